package metrics

import (
	"net/http"
	"strings"
)

type collectConfig struct {
	skip      map[string]struct{}
	normalize func(*http.Request) string
}

// Option adjusts the Collect middleware.
type Option func(*collectConfig)

// WithSkipPaths adds paths that are never counted. "/metrics" is always skipped.
func WithSkipPaths(paths ...string) Option {
	return func(c *collectConfig) {
		for _, p := range paths {
			p = strings.TrimSpace(p)
			if p != "" {
				c.skip[p] = struct{}{}
			}
		}
	}
}

// WithPathNormalizer sets the function that produces the uri label, e.g. to
// collapse ids. The default keeps only the first path segment.
func WithPathNormalizer(fn func(*http.Request) string) Option {
	return func(c *collectConfig) {
		if fn != nil {
			c.normalize = fn
		}
	}
}

func newCollectConfig(opts []Option) *collectConfig {
	c := &collectConfig{
		skip:      map[string]struct{}{"/metrics": {}},
		normalize: firstSegment,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *collectConfig) isSkipPath(r *http.Request) bool {
	_, ok := c.skip[r.URL.Path]
	return ok
}

// firstSegment keeps proxied paths from exploding label cardinality.
func firstSegment(r *http.Request) string {
	p := strings.TrimPrefix(r.URL.Path, "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		p = p[:i]
	}
	return "/" + p
}
