package electrician

// Publish-only RelayClient implemented with Electrician builder primitives.
// No builder.* types are stored on the struct.

import (
	"context"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/joeydtaylor/electrician/pkg/builder"
	"github.com/joeydtaylor/steeze-hook/pkg/manifest"
	"go.uber.org/zap"
)

type builderClient struct {
	submit func(context.Context, []byte) error // captures wire.Submit
}

// ApplyEnv overlays ELECTRICIAN_* environment variables on cfg:
//
//	ELECTRICIAN_TARGET          = "host:port[,host2:port2]" (comma or space separated)
//	ELECTRICIAN_TLS_ENABLE      = "true" | "false"
//	ELECTRICIAN_TLS_CLIENT_CRT  = path (default: keys/tls/client.crt)
//	ELECTRICIAN_TLS_CLIENT_KEY  = path (default: keys/tls/client.key)
//	ELECTRICIAN_TLS_CA          = path (default: keys/tls/ca.crt)
//	ELECTRICIAN_COMPRESS        = "snappy" | ""
//	ELECTRICIAN_ENCRYPT         = "aesgcm" | ""
//	ELECTRICIAN_AES256_KEY_HEX  = 64 hex chars (32 bytes)
//	ELECTRICIAN_STATIC_HEADERS  = "k=v,k2=v2"
func ApplyEnv(cfg manifest.Relay) manifest.Relay {
	if t := envTargets("ELECTRICIAN_TARGET"); len(t) > 0 {
		cfg.Targets = t
	}
	if v := envOr("ELECTRICIAN_TLS_ENABLE", ""); v != "" {
		cfg.TLS = &manifest.RelayTLS{
			Enable:     strings.EqualFold(v, "true"),
			ClientCert: envOr("ELECTRICIAN_TLS_CLIENT_CRT", "keys/tls/client.crt"),
			ClientKey:  envOr("ELECTRICIAN_TLS_CLIENT_KEY", "keys/tls/client.key"),
			CA:         envOr("ELECTRICIAN_TLS_CA", "keys/tls/ca.crt"),
		}
	}
	cfg.Compress = envOr("ELECTRICIAN_COMPRESS", cfg.Compress)
	cfg.Encrypt = envOr("ELECTRICIAN_ENCRYPT", cfg.Encrypt)
	cfg.AES256Hex = envOr("ELECTRICIAN_AES256_KEY_HEX", cfg.AES256Hex)
	if h := envHeaders("ELECTRICIAN_STATIC_HEADERS"); len(h) > 0 {
		cfg.StaticHeaders = h
	}
	return cfg
}

// NewBuilderRelay returns a publish-capable RelayClient powered by
// Electrician's ForwardRelay[[]byte]. Without targets it returns a relay that
// writes records to log.
func NewBuilderRelay(ctx context.Context, cfg manifest.Relay, log *zap.Logger) (RelayClient, error) {
	if len(cfg.Targets) == 0 {
		return NewLogRelay(log), nil
	}

	useSnappy := strings.EqualFold(cfg.Compress, "snappy")
	useAESGCM := strings.EqualFold(cfg.Encrypt, "aesgcm")
	var aesKey string
	if useAESGCM {
		rawKey, err := hex.DecodeString(strings.TrimSpace(cfg.AES256Hex))
		if err != nil {
			return nil, fmt.Errorf("relay aes256 key: %w", err)
		}
		if len(rawKey) != 32 {
			return nil, fmt.Errorf("relay aes256 key must be 32 bytes, got %d", len(rawKey))
		}
		aesKey = string(rawKey)
	}

	useTLS := cfg.TLS != nil && cfg.TLS.Enable
	var tlsCrt, tlsKey, tlsCA string
	if cfg.TLS != nil {
		tlsCrt, tlsKey, tlsCA = cfg.TLS.ClientCert, cfg.TLS.ClientKey, cfg.TLS.CA
	}

	logger := builder.NewLogger(builder.LoggerWithDevelopment(true))
	wire := builder.NewWire[[]byte](ctx, builder.WireWithLogger[[]byte](logger))

	perf := builder.NewPerformanceOptions(useSnappy, builder.COMPRESS_SNAPPY)
	sec := builder.NewSecurityOptions(useAESGCM, builder.ENCRYPTION_AES_GCM)
	tlsCfg := builder.NewTlsClientConfig(
		useTLS,
		tlsCrt, tlsKey, tlsCA,
		tls.VersionTLS13, tls.VersionTLS13,
	)

	relay := builder.NewForwardRelay[[]byte](
		ctx,
		builder.ForwardRelayWithLogger[[]byte](logger),
		builder.ForwardRelayWithTarget[[]byte](cfg.Targets...),
		builder.ForwardRelayWithPerformanceOptions[[]byte](perf),
		builder.ForwardRelayWithSecurityOptions[[]byte](sec, aesKey),
		builder.ForwardRelayWithTLSConfig[[]byte](tlsCfg),
		builder.ForwardRelayWithStaticHeaders[[]byte](cfg.StaticHeaders),
		builder.ForwardRelayWithInput(wire),
	)

	if err := wire.Start(ctx); err != nil {
		return nil, fmt.Errorf("builder wire start: %w", err)
	}
	if err := relay.Start(ctx); err != nil {
		return nil, fmt.Errorf("builder relay start: %w", err)
	}
	if log != nil {
		log.Info("relay started", zap.Strings("targets", cfg.Targets), zap.Bool("tls", useTLS))
	}
	return &builderClient{
		submit: func(ctx context.Context, b []byte) error { return wire.Submit(ctx, b) },
	}, nil
}

// Publish sends bytes into the pipeline. Topic and headers ride the relay path.
func (c *builderClient) Publish(ctx context.Context, rr RelayRequest) error {
	if rr.Topic == "" {
		return fmt.Errorf("relay: missing topic")
	}
	return c.submit(ctx, rr.Body)
}
