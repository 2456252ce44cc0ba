package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/joeydtaylor/steeze-hook/pkg/manifest"
	"github.com/joeydtaylor/steeze-hook/pkg/simhost"
	"go.uber.org/zap"
)

const maxBody = 32 << 20

var errBodyTooLarge = errors.New("origin response body too large")

// Origin forwards rewritten requests upstream.
type Origin struct {
	base    *url.URL // nil: only remapped hosts are reachable
	timeout time.Duration
	proxy   *httputil.ReverseProxy
	log     *zap.Logger
}

func NewOrigin(cfg manifest.Origin, log *zap.Logger) (*Origin, error) {
	if log == nil {
		log = zap.NewNop()
	}
	o := &Origin{
		timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		log:     log,
	}
	if raw := strings.TrimSpace(cfg.URL); raw != "" {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("origin url: %w", err)
		}
		o.base = u
	}
	o.proxy = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.Host = ""
			pr.SetXForwarded()
		},
		ErrorLog: zap.NewStdLog(log),
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.Warn("origin request failed", zap.String("url", r.URL.String()), zap.Error(err))
			w.WriteHeader(http.StatusBadGateway)
		},
	}
	return o, nil
}

// For returns the OriginFunc for one exchange. pristineHost is the host the
// client asked for; a hook that rewrote the host to something else routes
// the request there instead of to the configured origin.
func (o *Origin) For(parent context.Context, body []byte, pristineHost string, client netip.AddrPort) simhost.OriginFunc {
	return func(req simhost.Request) simhost.Response {
		target, ok := o.target(req.URL, pristineHost)
		if !ok {
			return simhost.Response{Status: http.StatusBadGateway, Header: http.Header{}}
		}

		// Detached from the server request: ReverseProxy panics on a failed
		// body copy when it sees a server context.
		var (
			ctx    context.Context
			cancel context.CancelFunc
		)
		if o.timeout > 0 {
			ctx, cancel = context.WithTimeout(context.Background(), o.timeout)
		} else {
			ctx, cancel = context.WithCancel(context.Background())
		}
		defer cancel()
		stop := context.AfterFunc(parent, cancel)
		defer stop()

		out, err := http.NewRequestWithContext(ctx, req.Method, target.String(), bytes.NewReader(body))
		if err != nil {
			o.log.Warn("origin request build failed", zap.Error(err))
			return simhost.Response{Status: http.StatusBadGateway, Header: http.Header{}}
		}
		out.Header = req.Header.Clone()
		stripHop(out.Header)
		if client.IsValid() {
			out.RemoteAddr = client.String()
		}

		rec := newRecorder(maxBody)
		o.proxy.ServeHTTP(rec, out)
		return rec.response()
	}
}

func (o *Origin) target(u *url.URL, pristineHost string) (*url.URL, bool) {
	if u == nil {
		return nil, false
	}
	if u.Host != "" && u.Host != pristineHost {
		t := *u
		if t.Scheme == "" {
			t.Scheme = "http"
		}
		t.User = nil
		return &t, true
	}
	if o.base == nil {
		return nil, false
	}
	t := *o.base
	t.Path = joinPath(o.base.Path, u.Path)
	t.RawPath = ""
	t.RawQuery = u.RawQuery
	return &t, true
}

func joinPath(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return strings.TrimSuffix(a, "/") + "/" + strings.TrimPrefix(b, "/")
}
