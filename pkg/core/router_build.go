// Package core is the HTTP front end: every request that is not a service
// route becomes one host exchange, runs through the registered hooks and the
// origin, and is answered with whatever response the exchange ended with.
package core

import (
	"net/http"

	chimd "github.com/go-chi/chi/v5/middleware"
	"github.com/joeydtaylor/steeze-hook/pkg/manifest"
	hmetrics "github.com/joeydtaylor/steeze-hook/pkg/middleware/metrics"
)

func BuildRouter(cfg manifest.Config, d BuildDeps) http.Handler {
	r := d.Router
	r.Use(chimd.RequestID, chimd.Recoverer, chimd.Heartbeat("/ping"))

	if d.LogMW != nil {
		r.Use(d.LogMW.Middleware())
	}
	r.Use(hmetrics.Collect(hmetrics.WithSkipPaths(append([]string{cfg.Metrics.Path}, cfg.Metrics.SkipPaths...)...)))

	if d.Metrics != nil {
		r.Get(cfg.Metrics.Path, d.Metrics)
	}

	var h http.Handler = d.Exchanges
	if t := cfg.Server.ExchangeTimeout(); t > 0 {
		h = withTimeout(h, t)
	}
	r.Fallback(h)
	return r.Mux()
}
