// Package simhost is an in-process implementation of the host contract.
//
// It keeps a continuation table, global and per-transaction hook lists, and
// runs each transaction through the hook points in host order:
//
//	read-request-header, pre-remap, post-remap, (origin),
//	read-response-header, send-response-header, txn-close
//
// Continuations on a hook point run one at a time; the next one is only
// called after the previous one reenabled the transaction. A continuation
// that returns without reenabling leaves the transaction paused until some
// other goroutine calls TxnReenable. An error reenable skips straight to
// send-response-header with an error response.
//
// Every host call is journaled so tests can assert ordering.
package simhost

import (
	"errors"
	"fmt"
	"sync"

	"github.com/joeydtaylor/steeze-hook/pkg/host"
	"go.uber.org/zap"
)

var (
	ErrUnknownCont = errors.New("simhost: unknown continuation")
	ErrUnknownTxn  = errors.New("simhost: unknown or closed transaction")
	ErrNotWaiting  = errors.New("simhost: transaction is not waiting for reenable")
	ErrRejected    = errors.New("simhost: rejected")
	ErrReleased    = errors.New("simhost: handle already released")
)

// Faults make selected host calls fail, for exercising error paths.
type Faults struct {
	ContCreate     bool
	HookAdd        bool
	TxnHookAdd     map[host.HookID]bool
	ClientRequest  bool
	ClientURL      bool
	PristineURL    bool
	ServerResponse bool
	ClientAddr     bool
}

type cont struct {
	fn        host.ContFunc
	data      host.Handle
	destroyed bool
}

// Host is safe for concurrent use. Continuations are never called while its
// lock is held.
type Host struct {
	log       *zap.Logger
	noJournal bool

	mu          sync.Mutex
	nextCont    host.Cont
	nextTxn     host.TxnID
	conts       map[host.Cont]*cont
	destroys    map[host.Cont]int
	global      map[host.HookID][]host.Cont
	txns        map[host.TxnID]*Txn
	faults      Faults
	journal     []Entry
	violations  []string
	outstanding int
}

var _ host.Host = (*Host)(nil)

type Option func(*Host)

// WithoutJournal turns journaling off for long-running hosts.
func WithoutJournal() Option { return func(h *Host) { h.noJournal = true } }

// New returns an empty host. A nil logger discards.
func New(log *zap.Logger, opts ...Option) *Host {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Host{
		log:      log,
		conts:    make(map[host.Cont]*cont),
		destroys: make(map[host.Cont]int),
		global:   make(map[host.HookID][]host.Cont),
		txns:     make(map[host.TxnID]*Txn),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// SetFaults replaces the active fault set.
func (h *Host) SetFaults(f Faults) {
	h.mu.Lock()
	h.faults = f
	h.mu.Unlock()
}

func (h *Host) ContCreate(fn host.ContFunc) (host.Cont, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.faults.ContCreate {
		return 0, fmt.Errorf("%w: cont create", ErrRejected)
	}
	if fn == nil {
		return 0, errors.New("simhost: nil continuation func")
	}
	h.nextCont++
	h.conts[h.nextCont] = &cont{fn: fn}
	return h.nextCont, nil
}

func (h *Host) ContDestroy(c host.Cont) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.destroys[c]++
	h.record(Entry{Kind: KindDestroy, Cont: c})
	ct, ok := h.conts[c]
	if !ok {
		h.violate("destroy of unknown continuation %d", c)
		return fmt.Errorf("%w: %d", ErrUnknownCont, c)
	}
	if ct.destroyed {
		h.violate("double destroy of continuation %d", c)
		return fmt.Errorf("%w: %d already destroyed", ErrUnknownCont, c)
	}
	ct.destroyed = true
	if h.noJournal {
		delete(h.conts, c)
		delete(h.destroys, c)
	}
	return nil
}

func (h *Host) ContDataSet(c host.Cont, d host.Handle) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	ct, ok := h.live(c)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownCont, c)
	}
	ct.data = d
	return nil
}

func (h *Host) ContDataGet(c host.Cont) (host.Handle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ct, ok := h.live(c)
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownCont, c)
	}
	return ct.data, nil
}

func (h *Host) HookAdd(id host.HookID, c host.Cont) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.faults.HookAdd {
		return fmt.Errorf("%w: hook add %d", ErrRejected, id)
	}
	if _, ok := id.Event(); !ok {
		return fmt.Errorf("simhost: unsupported hook %d", id)
	}
	if _, ok := h.live(c); !ok {
		return fmt.Errorf("%w: %d", ErrUnknownCont, c)
	}
	h.global[id] = append(h.global[id], c)
	h.record(Entry{Kind: KindHookAdd, Cont: c, Hook: id})
	return nil
}

func (h *Host) TxnHookAdd(txn host.TxnID, id host.HookID, c host.Cont) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.faults.TxnHookAdd[id] {
		return fmt.Errorf("%w: txn hook add %d", ErrRejected, id)
	}
	if _, ok := id.Event(); !ok {
		return fmt.Errorf("simhost: unsupported hook %d", id)
	}
	if _, ok := h.live(c); !ok {
		return fmt.Errorf("%w: %d", ErrUnknownCont, c)
	}
	t, ok := h.txns[txn]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownTxn, txn)
	}
	t.hooks[id] = append(t.hooks[id], c)
	h.record(Entry{Kind: KindHookAdd, Cont: c, Txn: txn, Hook: id})
	return nil
}

// Destroys returns how many times c was destroyed.
func (h *Host) Destroys(c host.Cont) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.destroys[c]
}

// LiveConts returns the number of continuations created and not destroyed.
func (h *Host) LiveConts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.conts {
		if !c.destroyed {
			n++
		}
	}
	return n
}

// Outstanding returns the number of accessor handles not yet released.
func (h *Host) Outstanding() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.outstanding
}

// Violations lists protocol misuse the host observed (double destroy,
// delivery to a destroyed continuation, double handle release).
func (h *Host) Violations() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.violations...)
}

func (h *Host) live(c host.Cont) (*cont, bool) {
	ct, ok := h.conts[c]
	if !ok || ct.destroyed {
		return nil, false
	}
	return ct, true
}

func (h *Host) violate(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	h.violations = append(h.violations, msg)
	h.log.Warn("host protocol violation", zap.String("detail", msg))
}
