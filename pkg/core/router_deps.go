package core

import (
	"net/http"

	"github.com/joeydtaylor/steeze-hook/pkg/middleware/logger"
	httpx "github.com/joeydtaylor/steeze-hook/pkg/transport/httpx"
)

type BuildDeps struct {
	LogMW     *logger.Middleware
	Metrics   http.Handler
	Router    httpx.Router
	Exchanges *ExchangeHandler
}
