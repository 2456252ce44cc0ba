// Package hook registers handlers against transaction lifecycle events and
// dispatches host deliveries back to them.
//
// Every registration owns one host continuation. The continuation's data slot
// carries an opaque handle; the Registry maps handles back to records. Global
// registrations live for the process. Exchange registrations are tied to one
// transaction: their continuation is always subscribed to TxnClose as well,
// and the record is released on that delivery, before the transaction is
// resumed.
package hook

import (
	"fmt"
	"sync"

	"github.com/joeydtaylor/steeze-hook/pkg/exchange"
	"github.com/joeydtaylor/steeze-hook/pkg/host"
	"go.uber.org/zap"
)

// record binds one handler to one continuation.
type record struct {
	handle host.Handle
	cont   host.Cont
	fn     Handler
	event  Event
	hookID host.HookID
	scope  Scope
	txn    host.TxnID
}

// Registry owns registration records for one host.
type Registry struct {
	host host.Host
	log  *zap.Logger
	obs  Observer

	mu      sync.Mutex
	next    host.Handle
	records map[host.Handle]*record
}

type Option func(*Registry)

func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(r *Registry) {
		if o != nil {
			r.obs = o
		}
	}
}

// NewRegistry returns an empty registry bound to h.
func NewRegistry(h host.Host, opts ...Option) *Registry {
	r := &Registry{
		host:    h,
		log:     zap.NewNop(),
		obs:     nopObserver{},
		records: make(map[host.Handle]*record),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Host returns the host the registry installs continuations on.
func (r *Registry) Host() host.Host { return r.host }

// Live returns the number of records currently owned.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// RegisterGlobal installs fn for every future transaction reaching ev.
func (r *Registry) RegisterGlobal(ev Event, fn Handler) error {
	rec, err := r.newRecord(ev, fn, ScopeGlobal, 0)
	if err != nil {
		return err
	}
	if err := r.host.HookAdd(rec.hookID, rec.cont); err != nil {
		r.discard(rec)
		return fmt.Errorf("%w: global %s: %w", ErrRegistration, ev, err)
	}
	r.obs.Registered(ScopeGlobal, ev)
	r.log.Debug("global hook registered",
		zap.Stringer("event", ev),
		zap.Uint64("cont", uint64(rec.cont)),
	)
	return nil
}

// RegisterForExchange installs fn for the transaction v is bound to. The
// record is released when that transaction closes, whether or not ev was
// ever delivered.
//
// The TxnClose subscription is made first. If it fails nothing stays
// registered. If the subscription to ev fails afterwards, the record is
// still released at close and the error is returned.
func (r *Registry) RegisterForExchange(v *exchange.View, ev Event, fn Handler) error {
	if v == nil || v.Expired() {
		return ErrExpiredView
	}
	txn := v.Txn()
	rec, err := r.newRecord(ev, fn, ScopeExchange, txn)
	if err != nil {
		return err
	}
	if err := r.host.TxnHookAdd(txn, host.HookTxnClose, rec.cont); err != nil {
		r.discard(rec)
		return fmt.Errorf("%w: txn %d close subscription: %w", ErrRegistration, txn, err)
	}
	r.obs.Registered(ScopeExchange, ev)
	if rec.hookID != host.HookTxnClose {
		if err := r.host.TxnHookAdd(txn, rec.hookID, rec.cont); err != nil {
			return fmt.Errorf("%w: txn %d %s: %w", ErrRegistration, txn, ev, err)
		}
	}
	r.log.Debug("exchange hook registered",
		zap.Stringer("event", ev),
		zap.Uint64("txn", uint64(txn)),
		zap.Uint64("cont", uint64(rec.cont)),
	)
	return nil
}

// OnExchangeEnd runs release exactly once when v's transaction closes.
func (r *Registry) OnExchangeEnd(v *exchange.View, release func()) error {
	if release == nil {
		return ErrNilHandler
	}
	return r.RegisterForExchange(v, TxnClose, func(*exchange.View) Outcome {
		release()
		return Continue
	})
}

// Resume reenables a transaction a handler suspended. Suspend itself is a no-op.
func (r *Registry) Resume(txn host.TxnID, o Outcome) error {
	code, ok := o.ReenableEvent()
	if !ok {
		return nil
	}
	return r.host.TxnReenable(txn, code)
}

func (r *Registry) newRecord(ev Event, fn Handler, s Scope, txn host.TxnID) (*record, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	id, err := ev.HookID()
	if err != nil {
		return nil, err
	}
	cont, err := r.host.ContCreate(r.dispatch)
	if err != nil {
		return nil, fmt.Errorf("%w: create continuation: %w", ErrRegistration, err)
	}
	rec := &record{cont: cont, fn: fn, event: ev, hookID: id, scope: s, txn: txn}

	r.mu.Lock()
	r.next++
	rec.handle = r.next
	r.records[rec.handle] = rec
	r.mu.Unlock()

	if err := r.host.ContDataSet(cont, rec.handle); err != nil {
		r.discard(rec)
		return nil, fmt.Errorf("%w: set continuation data: %w", ErrRegistration, err)
	}
	return rec, nil
}

// discard drops a record the host never got a reference to.
func (r *Registry) discard(rec *record) {
	r.mu.Lock()
	delete(r.records, rec.handle)
	r.mu.Unlock()
	if err := r.host.ContDestroy(rec.cont); err != nil {
		r.log.Warn("continuation destroy failed", zap.Uint64("cont", uint64(rec.cont)), zap.Error(err))
	}
}
