package bundlefx

import (
	"github.com/joeydtaylor/steeze-hook/pkg/middleware/logger"
	"github.com/joeydtaylor/steeze-hook/pkg/middleware/metrics"
	"go.uber.org/fx"
)

// Module provides the ambient middleware: zap loggers, the access-log
// middleware, the metrics handler and the hook observer. It needs a
// manifest.Config in the graph.
var Module = fx.Options(
	logger.Module,
	metrics.Module,
)
