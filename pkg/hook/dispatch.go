package hook

import (
	"time"

	"github.com/joeydtaylor/steeze-hook/pkg/exchange"
	"github.com/joeydtaylor/steeze-hook/pkg/host"
	"go.uber.org/zap"
)

// dispatch is the ContFunc behind every continuation the registry creates.
func (r *Registry) dispatch(c host.Cont, code host.EventCode, txn host.TxnID) int {
	start := time.Now()
	closing := code == host.EventHTTPTxnClose

	rec := r.resolve(c)
	if rec == nil {
		r.log.Warn("delivery on unknown continuation",
			zap.Uint64("cont", uint64(c)),
			zap.Int("event", int(code)),
			zap.Uint64("txn", uint64(txn)),
		)
		r.resume(txn, Continue)
		return host.Handled
	}

	v := exchange.New(r.host, txn, c)
	outcome := Continue
	// A close delivery on a record registered for something else is the
	// cleanup subscription: the handler does not run.
	if !closing || rec.event == TxnClose {
		outcome = r.invoke(rec, v)
	}
	v.Expire()

	if closing && rec.scope == ScopeExchange {
		r.release(rec)
	}

	delivered, _ := eventForCode(code)
	r.obs.Dispatched(delivered, outcome, time.Since(start))
	r.log.Debug("hook dispatched",
		zap.Stringer("event", delivered),
		zap.Stringer("registered", rec.event),
		zap.Stringer("outcome", outcome),
		zap.Uint64("txn", uint64(txn)),
	)

	// Resume strictly after release so a late reenable cannot reach a
	// destroyed record.
	r.resume(txn, outcome)
	return host.Handled
}

func (r *Registry) resolve(c host.Cont) *record {
	h, err := r.host.ContDataGet(c)
	if err != nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[h]
	if !ok || rec.cont != c {
		return nil
	}
	return rec
}

func (r *Registry) invoke(rec *record, v *exchange.View) (out Outcome) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("hook handler panicked",
				zap.Stringer("event", rec.event),
				zap.Uint64("txn", uint64(v.Txn())),
				zap.Any("panic", p),
				zap.Stack("stack"),
			)
			r.obs.Panicked(rec.event)
			out = Error
		}
	}()
	return rec.fn(v)
}

// release removes rec and destroys its continuation. A second call is a no-op.
func (r *Registry) release(rec *record) {
	r.mu.Lock()
	cur, ok := r.records[rec.handle]
	if ok && cur == rec {
		delete(r.records, rec.handle)
	}
	r.mu.Unlock()
	if !ok || cur != rec {
		return
	}
	if err := r.host.ContDestroy(rec.cont); err != nil {
		r.log.Warn("continuation destroy failed", zap.Uint64("cont", uint64(rec.cont)), zap.Error(err))
	}
	r.obs.Released(rec.event)
}

func (r *Registry) resume(txn host.TxnID, o Outcome) {
	if err := r.Resume(txn, o); err != nil {
		r.log.Warn("reenable failed",
			zap.Uint64("txn", uint64(txn)),
			zap.Stringer("outcome", o),
			zap.Error(err),
		)
	}
}

func eventForCode(code host.EventCode) (Event, bool) {
	for ev, id := range eventHooks {
		if c, ok := id.Event(); ok && c == code {
			return ev, true
		}
	}
	return 0, false
}
