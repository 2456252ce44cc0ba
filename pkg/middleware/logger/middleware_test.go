package logger

import (
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	chimd "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func serve(t *testing.T, m *Middleware, r *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	h := chimd.RequestID(m.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write(b)
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestAccessLine(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewMiddleware(zap.New(core), "/orders")

	r := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"id":1}`))
	r.Header.Set("Content-Type", "application/json")
	rec := serve(t, m, r)
	assert.Equal(t, `{"id":1}`, rec.Body.String(), "body is restored for the handler")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.EqualValues(t, http.StatusCreated, fields["status"])
	assert.EqualValues(t, 8, fields["responseSize"])
	assert.Equal(t, "/orders", fields["uri"])
	assert.Equal(t, "http", fields["httpScheme"])
	assert.NotEmpty(t, fields["requestId"])
	assert.Equal(t, `{"id":1}`, fields["requestData"])
}

func TestBodyRedacted(t *testing.T) {
	cases := map[string]*http.Request{
		"path": httptest.NewRequest(http.MethodPost, "/other", strings.NewReader(`{}`)),
		"type": httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{}`)),
		"verb": httptest.NewRequest(http.MethodGet, "/orders", strings.NewReader(`{}`)),
	}
	for name, r := range cases {
		t.Run(name, func(t *testing.T) {
			if name != "type" {
				r.Header.Set("Content-Type", "application/json")
			}
			core, logs := observer.New(zap.InfoLevel)
			serve(t, NewMiddleware(zap.New(core), "/orders"), r)
			require.Equal(t, 1, logs.Len())
			_, ok := logs.All()[0].ContextMap()["requestData"]
			assert.False(t, ok)
		})
	}
}

func TestNoBodyPathsLeavesBodyAlone(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := httptest.NewRequest(http.MethodPut, "/x", strings.NewReader("raw"))
	rec := serve(t, NewMiddleware(zap.New(core)), r)
	assert.Equal(t, "raw", rec.Body.String())
	assert.Equal(t, 1, logs.Len())
}

type countingBody struct {
	io.Reader
	reads int
}

func (c *countingBody) Read(p []byte) (int, error) {
	c.reads++
	return c.Reader.Read(p)
}

func (c *countingBody) Close() error { return nil }

func TestUnlistedBodyIsNotRead(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewMiddleware(zap.New(core), "/orders")

	body := &countingBody{Reader: strings.NewReader(`{"id":1}`)}
	r := httptest.NewRequest(http.MethodPost, "/other", nil)
	r.Header.Set("Content-Type", "application/json")
	r.Body = body

	var seen io.ReadCloser
	h := m.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Body
		w.WriteHeader(http.StatusNoContent)
	}))
	h.ServeHTTP(httptest.NewRecorder(), r)

	assert.Same(t, body, seen)
	assert.Zero(t, body.reads)
	assert.Equal(t, 1, logs.Len())
}

func TestLargeBodyPassesThroughUnlogged(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewMiddleware(zap.New(core), "/orders")

	payload := `{"blob":"` + strings.Repeat("x", 3*maxLoggedBody) + `"}`
	r := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(payload))
	r.Header.Set("Content-Type", "application/json")
	r.ContentLength = -1
	rec := serve(t, m, r)

	assert.Equal(t, payload, rec.Body.String())
	require.Equal(t, 1, logs.Len())
	_, ok := logs.All()[0].ContextMap()["requestData"]
	assert.False(t, ok)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("nonsense"))
}

func TestNewLogCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	l := NewLog(dir, "system.log", zapcore.InfoLevel)
	l.Info("hello")
	_ = l.Sync()
	assert.FileExists(t, filepath.Join(dir, "system.log"))
}
