package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Router is the minimal HTTP router contract the front end depends on.
// NewChi implements it.
type Router interface {
	Handle(method, path string, h http.Handler)
	Get(path string, h http.Handler)
	// Fallback receives every request no route matched, whatever the method.
	Fallback(h http.Handler)
	Mux() http.Handler
	Use(mw ...func(http.Handler) http.Handler)
}

// chiRouter is our default Router backed by github.com/go-chi/chi/v5.
type chiRouter struct{ r *chi.Mux }

// NewChi returns a Chi-backed Router.
func NewChi() Router { return &chiRouter{r: chi.NewRouter()} }

func (c *chiRouter) Handle(method, path string, h http.Handler) { c.r.Method(method, path, h) }
func (c *chiRouter) Get(path string, h http.Handler)            { c.r.Method(http.MethodGet, path, h) }
func (c *chiRouter) Mux() http.Handler                          { return c.r }
func (c *chiRouter) Use(mw ...func(http.Handler) http.Handler)  { c.r.Use(mw...) }

func (c *chiRouter) Fallback(h http.Handler) {
	c.r.NotFound(h.ServeHTTP)
	c.r.MethodNotAllowed(h.ServeHTTP)
}
