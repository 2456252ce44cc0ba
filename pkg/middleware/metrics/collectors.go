package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	exchangeResponseTime = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "exchange_response_time",
			Help:    "time from request arrival to response written.",
			Buckets: []float64{0.005, 0.05, 0.5, 1, 5, 10, 30, 60},
		},
	)

	totalExchangesToUri = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "total_exchanges_to_uri", Help: "exchanges by code, uri and method"},
		[]string{"code", "uri", "method"},
	)

	totalExchanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "total_exchanges", Help: "exchanges by code and method"},
		[]string{"code", "method"},
	)

	hookDispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "hook_dispatch_total", Help: "hook deliveries by event and outcome"},
		[]string{"event", "outcome"},
	)

	hookDispatchSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hook_dispatch_seconds",
			Help:    "time spent in one hook delivery, handler included.",
			Buckets: prometheus.ExponentialBuckets(0.00005, 4, 10),
		},
		[]string{"event"},
	)

	hookRegistrationsLive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "hook_registrations_live", Help: "exchange-scoped registrations not yet released"},
		[]string{"event"},
	)

	hookRegistrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "hook_registrations_total", Help: "registrations by scope and event"},
		[]string{"scope", "event"},
	)

	hookHandlerPanics = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "hook_handler_panics_total", Help: "handler panics recovered by the dispatcher"},
		[]string{"event"},
	)
)

func init() {
	prometheus.MustRegister(
		exchangeResponseTime,
		totalExchangesToUri,
		totalExchanges,
		hookDispatchTotal,
		hookDispatchSeconds,
		hookRegistrationsLive,
		hookRegistrationsTotal,
		hookHandlerPanics,
	)
}
