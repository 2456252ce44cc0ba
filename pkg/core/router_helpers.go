package core

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/joeydtaylor/steeze-hook/pkg/simhost"
)

// hop-by-hop headers are never copied between client and origin.
var hopHeaders = []string{
	"Connection", "Proxy-Connection", "Keep-Alive", "Proxy-Authenticate",
	"Proxy-Authorization", "Te", "Trailer", "Transfer-Encoding", "Upgrade",
}

func stripHop(h http.Header) {
	for _, k := range hopHeaders {
		h.Del(k)
	}
}

func statusIf(s, def int) int {
	if s > 0 {
		return s
	}
	return def
}

// writeResponse copies an exchange's final response to the client.
func writeResponse(w http.ResponseWriter, resp simhost.Response) {
	h := w.Header()
	for k, vs := range resp.Header {
		h[k] = append([]string(nil), vs...)
	}
	stripHop(h)
	h.Set("Content-Length", strconv.Itoa(len(resp.Body)))
	w.WriteHeader(statusIf(resp.Status, http.StatusBadGateway))
	if len(resp.Body) > 0 {
		_, _ = w.Write(resp.Body)
	}
}

// recorder buffers an origin response so hooks can inspect it before the
// client sees anything.
type recorder struct {
	header http.Header
	status int
	body   bytes.Buffer
	limit  int
	over   bool
}

func newRecorder(limit int) *recorder {
	return &recorder{header: http.Header{}, limit: limit}
}

func (r *recorder) Header() http.Header { return r.header }

func (r *recorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
}

func (r *recorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	if r.limit > 0 && r.body.Len()+len(b) > r.limit {
		r.over = true
		return 0, errBodyTooLarge
	}
	return r.body.Write(b)
}

func (r *recorder) response() simhost.Response {
	if r.over {
		return simhost.Response{Status: http.StatusBadGateway, Header: http.Header{}}
	}
	h := r.header.Clone()
	stripHop(h)
	h.Del("Content-Length")
	return simhost.Response{Status: statusIf(r.status, http.StatusOK), Header: h, Body: r.body.Bytes()}
}
