package logger

import (
	"github.com/joeydtaylor/steeze-hook/pkg/manifest"
	"go.uber.org/zap"
)

func ProvideLoggerMiddleware(cfg manifest.Config) *Middleware {
	access := NewLog(cfg.Log.Dir, cfg.Log.AccessFile, zap.InfoLevel)
	return NewMiddleware(access, cfg.Log.BodyPaths...)
}

func ProvideLogger(cfg manifest.Config) *zap.Logger {
	return NewLog(cfg.Log.Dir, cfg.Log.File, ParseLevel(cfg.Log.Level))
}
