package logger

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Options(
	fx.Provide(ProvideLoggerMiddleware),
	fx.Provide(ProvideLogger),
	fx.Invoke(syncOnStop),
)

// syncOnStop flushes buffered entries when the app shuts down.
func syncOnStop(lc fx.Lifecycle, l *zap.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			_ = l.Sync() // stdout sync fails on some platforms
			return nil
		},
	})
}
