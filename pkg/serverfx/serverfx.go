// Package serverfx wires the hook server together with Fx: manifest, logging,
// metrics, the in-process host and its registry, plugins, the relay and the
// HTTP front end.
package serverfx

import (
	"context"
	"net/http"
	"os"

	"github.com/joeydtaylor/steeze-hook/pkg/bundlefx"
	"github.com/joeydtaylor/steeze-hook/pkg/core"
	"github.com/joeydtaylor/steeze-hook/pkg/electrician"
	"github.com/joeydtaylor/steeze-hook/pkg/hook"
	"github.com/joeydtaylor/steeze-hook/pkg/manifest"
	"github.com/joeydtaylor/steeze-hook/pkg/middleware/logger"
	"github.com/joeydtaylor/steeze-hook/pkg/middleware/metrics"
	"github.com/joeydtaylor/steeze-hook/pkg/plugin"
	"github.com/joeydtaylor/steeze-hook/pkg/simhost"
	"github.com/joeydtaylor/steeze-hook/pkg/transport/httpx"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Options allow per-service env keys/defaults without code duplication.
type Options struct {
	Service         string // for logs only
	ManifestEnv     string // e.g. "HOOKD_MANIFEST"
	DefaultManifest string // e.g. "manifest.toml"
	ListenAddrEnv   string // e.g. "SERVER_LISTEN_ADDRESS"
	TLSCertEnv      string // e.g. "SSL_SERVER_CERTIFICATE"
	TLSKeyEnv       string // e.g. "SSL_SERVER_KEY"
}

type Option func(*Options)

func WithService(s string) Option            { return func(o *Options) { o.Service = s } }
func WithManifestEnv(k string) Option        { return func(o *Options) { o.ManifestEnv = k } }
func WithDefaultManifest(path string) Option { return func(o *Options) { o.DefaultManifest = path } }
func WithListenEnv(k string) Option          { return func(o *Options) { o.ListenAddrEnv = k } }
func WithTLSCertKeyEnv(cert, key string) Option {
	return func(o *Options) { o.TLSCertEnv, o.TLSKeyEnv = cert, key }
}

func defaultOptions() Options {
	return Options{
		Service:         "steeze-hookd",
		ManifestEnv:     "HOOKD_MANIFEST",
		DefaultManifest: "manifest.toml",
		ListenAddrEnv:   "SERVER_LISTEN_ADDRESS",
		TLSCertEnv:      "SSL_SERVER_CERTIFICATE",
		TLSKeyEnv:       "SSL_SERVER_KEY",
	}
}

// Module returns a complete Fx option set; add app-specific fx.Invoke(...) alongside.
func Module(opts ...Option) fx.Option {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return fx.Options(
		fx.Provide(func() Options { return o }),
		fx.Provide(provideConfig),
		fx.Provide(provideLifetime),
		bundlefx.Module,
		// Host and engine
		fx.Provide(provideHost, provideRegistry),
		// Electrician publish path
		fx.Provide(provideRelay),
		// Front end
		fx.Provide(provideOrigin, provideExchanges, httpx.NewChi),
		fx.Provide(fx.Annotate(provideRouter, fx.ResultTags(`name:"app"`))),
		// Lifecycle
		fx.Invoke(loadPlugins),
		fx.Invoke(registerHooks),
	)
}

// provideConfig loads the manifest and applies env overrides for listen
// address and TLS material.
func provideConfig(o Options) (manifest.Config, error) {
	cfg, err := manifest.Load(envOr(o.ManifestEnv, o.DefaultManifest))
	if err != nil {
		return manifest.Config{}, err
	}
	cfg.Server.Listen = envOr(o.ListenAddrEnv, cfg.Server.Listen)
	cfg.Server.TLSCert = envOr(o.TLSCertEnv, cfg.Server.TLSCert)
	cfg.Server.TLSKey = envOr(o.TLSKeyEnv, cfg.Server.TLSKey)
	return cfg, nil
}

// lifetime is canceled when the app stops; plugins and the relay hang their
// goroutines off it.
type lifetime struct{ ctx context.Context }

func provideLifetime(lc fx.Lifecycle) lifetime {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{OnStop: func(context.Context) error {
		cancel()
		return nil
	}})
	return lifetime{ctx: ctx}
}

func provideHost(zl *zap.Logger) *simhost.Host {
	return simhost.New(zl.Named("host"), simhost.WithoutJournal())
}

func provideRegistry(h *simhost.Host, zl *zap.Logger, obs hook.Observer) *hook.Registry {
	return hook.NewRegistry(h, hook.WithLogger(zl.Named("hook")), hook.WithObserver(obs))
}

func provideRelay(lt lifetime, cfg manifest.Config, zl *zap.Logger) (electrician.RelayClient, error) {
	return electrician.NewBuilderRelay(lt.ctx, electrician.ApplyEnv(cfg.Relay), zl.Named("relay"))
}

func provideOrigin(cfg manifest.Config, zl *zap.Logger) (*core.Origin, error) {
	return core.NewOrigin(cfg.Origin, zl.Named("origin"))
}

func provideExchanges(h *simhost.Host, o *core.Origin, zl *zap.Logger) *core.ExchangeHandler {
	return core.NewExchangeHandler(h, o, zl.Named("exchange"))
}

type routerDeps struct {
	fx.In

	Cfg       manifest.Config
	LogMW     *logger.Middleware
	Metrics   metrics.Handler
	R         httpx.Router
	Exchanges *core.ExchangeHandler
}

func provideRouter(d routerDeps) http.Handler {
	return core.BuildRouter(d.Cfg, core.BuildDeps{
		LogMW:     d.LogMW,
		Metrics:   d.Metrics,
		Router:    d.R,
		Exchanges: d.Exchanges,
	})
}

func loadPlugins(lt lifetime, cfg manifest.Config, reg *hook.Registry, rel electrician.RelayClient, zl *zap.Logger) error {
	return plugin.Load(plugin.Env{
		Ctx:      lt.ctx,
		Registry: reg,
		Log:      zl.Named("plugin"),
		Relay:    rel,
	}, cfg.Plugins)
}

// ---------- tiny helpers ----------

func envOr(k, def string) string {
	if k == "" {
		return def
	}
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
