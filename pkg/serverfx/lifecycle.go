package serverfx

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/joeydtaylor/steeze-hook/pkg/hook"
	"github.com/joeydtaylor/steeze-hook/pkg/manifest"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type serverDeps struct {
	fx.In
	Opts     Options
	Cfg      manifest.Config
	Logger   *zap.Logger
	Registry *hook.Registry
	App      http.Handler `name:"app"`
}

func registerHooks(lc fx.Lifecycle, sh fx.Shutdowner, d serverDeps) {
	addr := d.Cfg.Server.Listen
	cert, key := d.Cfg.Server.TLSCert, d.Cfg.Server.TLSKey

	srv := &http.Server{
		Addr:              addr,
		Handler:           d.App,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS13, MaxVersion: tls.VersionTLS13},
	}
	if t := d.Cfg.Server.ExchangeTimeout(); t > 0 {
		srv.WriteTimeout = t + 5*time.Second
	}
	useTLS := fileExists(cert) && fileExists(key)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			serve := func() error { return srv.Serve(ln) }
			if useTLS {
				d.Logger.Info("server starting (TLS)", zap.String("service", d.Opts.Service), zap.String("addr", ln.Addr().String()), zap.String("cert", cert))
				serve = func() error { return srv.ServeTLS(ln, cert, key) }
			} else {
				d.Logger.Info("server starting (PLAINTEXT)", zap.String("service", d.Opts.Service), zap.String("addr", ln.Addr().String()))
				srv.TLSConfig = nil
			}
			go func() {
				if err := serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					d.Logger.Error("server failed", zap.Error(err))
					_ = sh.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			d.Logger.Info("server stopping", zap.Int("live_registrations", d.Registry.Live()))
			return srv.Shutdown(ctx)
		},
	})
}
