package simhost

import (
	"fmt"
	"net/http"
	"net/netip"
	"net/url"

	"github.com/joeydtaylor/steeze-hook/pkg/host"
	"go.uber.org/zap"
)

// stages is the order hook points are visited in.
var stages = []host.HookID{
	host.HookReadRequestHdr,
	host.HookPreRemap,
	host.HookPostRemap,
	host.HookReadResponseHdr,
	host.HookSendResponseHdr,
	host.HookTxnClose,
}

const (
	originAfter = 2 // post-remap
	sendStage   = 4
	closeStage  = 5
)

// Request is what the origin sees: the client request after rewrites.
type Request struct {
	Method string
	URL    *url.URL
	Header http.Header
}

// Response is an origin (or error) response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OriginFunc produces the server response for a transaction.
type OriginFunc func(req Request) Response

// TxnSpec describes a new transaction.
type TxnSpec struct {
	Method   string
	URL      string
	Header   http.Header
	Client   netip.AddrPort
	Incoming netip.AddrPort
	// Internal marks a request the host originated itself. Never set for
	// requests read off a client connection.
	Internal bool
	Origin   OriginFunc
}

type message struct {
	method string
	url    *url.URL
	header http.Header
	status int
}

// Txn is one transaction. Its fields are guarded by the owning Host's lock.
type Txn struct {
	id       host.TxnID
	h        *Host
	req      message
	pristine *url.URL
	resp     *message
	body     []byte
	client   netip.AddrPort
	incoming netip.AddrPort
	internal bool
	origin   OriginFunc
	hooks    map[host.HookID][]host.Cont

	stage     int
	idx       int
	started   bool
	waiting   bool
	inCall    bool
	running   bool
	errored   bool
	aborted   bool
	status    int
	closed    bool
	reenables []host.EventCode

	sent chan struct{}
	done chan struct{}
}

// NewTxn registers a transaction without running any hooks.
func (h *Host) NewTxn(spec TxnSpec) (*Txn, error) {
	u, err := url.Parse(spec.URL)
	if err != nil {
		return nil, fmt.Errorf("simhost: parse url: %w", err)
	}
	method := spec.Method
	if method == "" {
		method = http.MethodGet
	}
	hdr := spec.Header.Clone()
	if hdr == nil {
		hdr = http.Header{}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextTxn++
	t := &Txn{
		id:       h.nextTxn,
		h:        h,
		req:      message{method: method, url: u, header: hdr},
		pristine: cloneURL(u),
		client:   spec.Client,
		incoming: spec.Incoming,
		internal: spec.Internal,
		origin:   spec.Origin,
		hooks:    make(map[host.HookID][]host.Cont),
		sent:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	h.txns[t.id] = t
	return t, nil
}

// Start runs the transaction until it pauses or closes.
func (h *Host) Start(t *Txn) {
	h.mu.Lock()
	if t.started {
		h.mu.Unlock()
		return
	}
	t.started = true
	h.mu.Unlock()
	h.advance(t)
}

// Run is NewTxn followed by Start.
func (h *Host) Run(spec TxnSpec) (*Txn, error) {
	t, err := h.NewTxn(spec)
	if err != nil {
		return nil, err
	}
	h.Start(t)
	return t, nil
}

// TxnReenable resumes a transaction waiting on its current continuation.
func (h *Host) TxnReenable(id host.TxnID, ev host.EventCode) error {
	h.mu.Lock()
	t, ok := h.txns[id]
	if !ok {
		h.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrUnknownTxn, id)
	}
	if !t.waiting {
		h.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrNotWaiting, id)
	}
	t.waiting = false
	t.reenables = append(t.reenables, ev)
	h.record(Entry{Kind: KindReenable, Txn: id, Event: ev})
	if ev == host.EventHTTPError && t.stage < sendStage {
		t.errored = true
		t.resp = t.errorResponse()
		t.stage, t.idx = sendStage, 0
	}
	resume := !t.inCall
	h.mu.Unlock()

	if resume {
		h.advance(t)
	}
	return nil
}

// Abort skips whatever hook points remain and runs the txn-close hooks.
// A continuation that suspended the transaction is abandoned; its later
// reenable fails with ErrNotWaiting or ErrUnknownTxn.
func (h *Host) Abort(id host.TxnID) error {
	h.mu.Lock()
	t, ok := h.txns[id]
	if !ok {
		h.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrUnknownTxn, id)
	}
	if t.aborted || t.stage >= closeStage {
		h.mu.Unlock()
		return nil
	}
	t.aborted, t.errored = true, true
	if t.stage <= sendStage {
		close(t.sent)
	}
	t.stage, t.idx = closeStage, 0
	resume := t.started && !t.inCall
	t.waiting = false
	h.log.Debug("transaction aborted", zap.Uint64("txn", uint64(id)))
	h.mu.Unlock()

	if resume {
		h.advance(t)
	}
	return nil
}

// advance delivers hook events until the transaction pauses or closes.
// Only one goroutine drives a transaction at a time; a second caller returns
// at once and the running one picks up its change.
func (h *Host) advance(t *Txn) {
	h.mu.Lock()
	if t.running {
		h.mu.Unlock()
		return
	}
	t.running = true
	h.mu.Unlock()

	for {
		h.mu.Lock()
		if t.closed || t.waiting {
			t.running = false
			h.mu.Unlock()
			return
		}
		id := stages[t.stage]
		conts := append(append([]host.Cont(nil), h.global[id]...), t.hooks[id]...)
		if t.idx >= len(conts) {
			runOrigin := h.finishStage(t)
			h.mu.Unlock()
			if runOrigin {
				h.callOrigin(t)
			}
			continue
		}
		c := conts[t.idx]
		t.idx++
		ev, _ := id.Event()
		ct, ok := h.live(c)
		if !ok {
			h.violate("delivery of %d to destroyed continuation %d (txn %d)", ev, c, t.id)
			h.mu.Unlock()
			continue
		}
		t.waiting, t.inCall = true, true
		h.record(Entry{Kind: KindDeliver, Cont: c, Txn: t.id, Hook: id, Event: ev})
		fn := ct.fn
		h.mu.Unlock()

		fn(c, ev, t.id)

		h.mu.Lock()
		t.inCall = false
		h.mu.Unlock()
	}
}

// finishStage moves past a completed hook point. It reports whether the
// origin should be called before the next stage. Caller holds h.mu.
func (h *Host) finishStage(t *Txn) bool {
	finished := t.stage
	t.stage++
	t.idx = 0
	switch finished {
	case originAfter:
		return !t.errored
	case sendStage:
		close(t.sent)
	case closeStage:
		t.closed = true
		delete(h.txns, t.id)
		close(t.done)
		h.log.Debug("transaction closed", zap.Uint64("txn", uint64(t.id)))
	}
	return false
}

func (h *Host) callOrigin(t *Txn) {
	h.mu.Lock()
	req := Request{Method: t.req.method, URL: cloneURL(t.req.url), Header: t.req.header.Clone()}
	origin := t.origin
	h.record(Entry{Kind: KindOrigin, Txn: t.id})
	h.mu.Unlock()

	var resp Response
	if origin == nil {
		resp = Response{Status: http.StatusBadGateway}
	} else {
		resp = origin(req)
	}
	if resp.Status == 0 {
		resp.Status = http.StatusOK
	}
	if resp.Header == nil {
		resp.Header = http.Header{}
	}

	h.mu.Lock()
	t.resp = &message{status: resp.Status, header: resp.Header}
	t.body = resp.Body
	h.mu.Unlock()
}

// caller holds h.mu
func (t *Txn) errorResponse() *message {
	code := t.status
	if code == 0 {
		code = http.StatusInternalServerError
	}
	t.body = []byte(http.StatusText(code))
	return &message{status: code, header: http.Header{"Content-Type": {"text/plain; charset=utf-8"}}}
}

func (h *Host) TxnStatusSet(id host.TxnID, code int) error {
	if code < 100 || code > 999 {
		return fmt.Errorf("simhost: invalid status %d", code)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.txns[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownTxn, id)
	}
	t.status = code
	return nil
}

func (t *Txn) ID() host.TxnID { return t.id }

// Sent is closed once send-response-header hooks have all run.
func (t *Txn) Sent() <-chan struct{} { return t.sent }

// Done is closed once txn-close hooks have all run.
func (t *Txn) Done() <-chan struct{} { return t.done }

// Response returns the response the client would receive.
func (t *Txn) Response() Response {
	t.h.mu.Lock()
	defer t.h.mu.Unlock()
	if t.resp == nil {
		return Response{}
	}
	return Response{Status: t.resp.status, Header: t.resp.header.Clone(), Body: append([]byte(nil), t.body...)}
}

// Request returns the client request as currently rewritten.
func (t *Txn) Request() Request {
	t.h.mu.Lock()
	defer t.h.mu.Unlock()
	return Request{Method: t.req.method, URL: cloneURL(t.req.url), Header: t.req.header.Clone()}
}

// Reenables returns the reenable events received so far, in order.
func (t *Txn) Reenables() []host.EventCode {
	t.h.mu.Lock()
	defer t.h.mu.Unlock()
	return append([]host.EventCode(nil), t.reenables...)
}

// Waiting reports whether the transaction is paused on a continuation.
func (t *Txn) Waiting() bool {
	t.h.mu.Lock()
	defer t.h.mu.Unlock()
	return t.waiting
}

// Aborted reports whether Abort cut the transaction short.
func (t *Txn) Aborted() bool {
	t.h.mu.Lock()
	defer t.h.mu.Unlock()
	return t.aborted
}

// Errored reports whether the transaction took the error path.
func (t *Txn) Errored() bool {
	t.h.mu.Lock()
	defer t.h.mu.Unlock()
	return t.errored
}

func cloneURL(u *url.URL) *url.URL {
	c := *u
	if u.User != nil {
		uu := *u.User
		c.User = &uu
	}
	return &c
}
