package logger

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	chimd "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Middleware writes one access-log line per exchange.
type Middleware struct {
	access    *zap.Logger
	bodyPaths map[string]struct{}
}

// NewMiddleware logs to access. bodyPaths lists paths whose small JSON
// request bodies are included; everything else is redacted.
func NewMiddleware(access *zap.Logger, bodyPaths ...string) *Middleware {
	if access == nil {
		access = zap.NewNop()
	}
	m := &Middleware{access: access, bodyPaths: map[string]struct{}{}}
	for _, p := range bodyPaths {
		if p = strings.TrimSpace(p); p != "" {
			m.bodyPaths[p] = struct{}{}
		}
	}
	return m
}

func (m *Middleware) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimd.NewWrapResponseWriter(w, r.ProtoMajor)

			var body []byte
			if m.wantsBody(r) {
				body = captureBody(r)
			}

			scheme := "http"
			if r.TLS != nil {
				scheme = "https"
			}

			start := time.Now()
			defer func() {
				log := m.access.With(
					zap.String("dateTime", start.UTC().Format(time.RFC1123)),
					zap.String("requestId", chimd.GetReqID(r.Context())),
					zap.String("httpScheme", scheme),
					zap.String("httpProto", r.Proto),
					zap.String("httpMethod", r.Method),
					zap.String("remoteAddr", r.RemoteAddr),
					zap.String("uri", r.URL.Path),
					zap.Duration("lat", time.Since(start)),
					zap.Int("responseSize", ww.BytesWritten()),
					zap.Int("status", ww.Status()),
				)

				if loggable(body) {
					log.Info("", zap.ByteString("requestData", body))
				} else {
					log.Info("")
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// captureBody reads up to maxLoggedBody+1 bytes and puts them back in front
// of the rest, so the handler always sees the whole body. Returns nil if the
// read failed.
func captureBody(r *http.Request) []byte {
	rest := r.Body
	b, err := io.ReadAll(io.LimitReader(rest, maxLoggedBody+1))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(b), rest), rest}
	if err != nil {
		return nil
	}
	return b
}
