package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

// NewPromHttpHandler returns the /metrics handler.
func NewPromHttpHandler() http.Handler { return promhttp.Handler() }

// Handler is the named type the server wires at the metrics path.
type Handler http.Handler

// ProvideMetrics is the Fx provider used by the server wiring.
func ProvideMetrics() Handler { return NewPromHttpHandler() }

var Module = fx.Options(
	fx.Provide(ProvideMetrics, NewObserver),
)
