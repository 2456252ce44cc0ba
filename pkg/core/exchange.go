package core

import (
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"

	chimd "github.com/go-chi/chi/v5/middleware"
	"github.com/joeydtaylor/steeze-hook/pkg/simhost"
	"go.uber.org/zap"
)

// ExchangeHandler runs each request as one host exchange.
type ExchangeHandler struct {
	host   *simhost.Host
	origin *Origin
	log    *zap.Logger
}

func NewExchangeHandler(h *simhost.Host, o *Origin, log *zap.Logger) *ExchangeHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ExchangeHandler{host: h, origin: o, log: log}
}

func (x *ExchangeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	u := absoluteURL(r)
	client := remoteAddr(r)
	hdr := r.Header.Clone()
	stripHop(hdr)

	t, err := x.host.NewTxn(simhost.TxnSpec{
		Method:   r.Method,
		URL:      u.String(),
		Header:   hdr,
		Client:   client,
		Incoming: localAddr(r),
		Origin:   x.origin.For(r.Context(), body, u.Host, client),
	})
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	log := x.log.With(
		zap.Uint64("txn", uint64(t.ID())),
		zap.String("requestId", chimd.GetReqID(r.Context())),
	)

	x.host.Start(t)
	select {
	case <-t.Sent():
	case <-r.Context().Done():
		if err := x.host.Abort(t.ID()); err != nil {
			log.Warn("abort failed", zap.Error(err))
		}
		if t.Aborted() {
			log.Warn("exchange abandoned", zap.Error(r.Context().Err()))
			http.Error(w, http.StatusText(http.StatusGatewayTimeout), http.StatusGatewayTimeout)
			return
		}
		<-t.Sent()
	}
	writeResponse(w, t.Response())
}

func absoluteURL(r *http.Request) *url.URL {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return &url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     r.URL.Path,
		RawPath:  r.URL.RawPath,
		RawQuery: r.URL.RawQuery,
	}
}

func remoteAddr(r *http.Request) netip.AddrPort {
	ap, err := netip.ParseAddrPort(r.RemoteAddr)
	if err != nil {
		return netip.AddrPort{}
	}
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
}

func localAddr(r *http.Request) netip.AddrPort {
	a, ok := r.Context().Value(http.LocalAddrContextKey).(net.Addr)
	if !ok {
		return netip.AddrPort{}
	}
	ap, err := netip.ParseAddrPort(a.String())
	if err != nil {
		return netip.AddrPort{}
	}
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
}
