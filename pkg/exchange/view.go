// Package exchange provides View, the handle a hook handler receives for the
// transaction it was invoked on.
//
// A View borrows host state for the span of a single accessor call: each
// accessor acquires the host structure it needs, reads or writes it, and
// releases it before returning. A View is only valid while the handler that
// received it is running; afterwards every accessor returns ErrExpired.
package exchange

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/joeydtaylor/steeze-hook/pkg/host"
)

var (
	// ErrAcquire wraps failures to acquire a host structure.
	ErrAcquire = errors.New("exchange: acquire failed")
	// ErrExpired is returned by accessors used after the handler returned.
	ErrExpired = errors.New("exchange: view used after handler returned")
)

// View is a non-owning reference to one transaction plus the continuation
// the current delivery arrived on.
type View struct {
	host    host.Host
	txn     host.TxnID
	cont    host.Cont
	expired atomic.Bool
}

// New binds a view to txn. The dispatcher creates one per delivery.
func New(h host.Host, txn host.TxnID, cont host.Cont) *View {
	return &View{host: h, txn: txn, cont: cont}
}

// Txn returns the transaction id. It stays meaningful after the view
// expires, so a handler that suspends can hand it to whoever resumes.
func (v *View) Txn() host.TxnID { return v.txn }

// Cont returns the continuation the current delivery arrived on.
func (v *View) Cont() host.Cont { return v.cont }

// Expire invalidates the view. Called by the dispatcher once the handler returns.
func (v *View) Expire() { v.expired.Store(true) }

// Expired reports whether Expire has been called.
func (v *View) Expired() bool { return v.expired.Load() }

func (v *View) check() error {
	if v == nil || v.host == nil {
		return fmt.Errorf("%w: nil view", ErrAcquire)
	}
	if v.expired.Load() {
		return ErrExpired
	}
	return nil
}

func acquireErr(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrAcquire, what, err)
}

// withClientRequest runs fn with the client request header, releasing it on
// every path.
func (v *View) withClientRequest(fn func(host.Header) error) error {
	if err := v.check(); err != nil {
		return err
	}
	hdr, err := v.host.ClientRequest(v.txn)
	if err != nil {
		return acquireErr("client request", err)
	}
	defer hdr.Release()
	return fn(hdr)
}

// withClientURL runs fn with the client request URL; header and URL handles
// are both released before returning.
func (v *View) withClientURL(fn func(host.URL) error) error {
	return v.withClientRequest(func(hdr host.Header) error {
		u, err := hdr.URL()
		if err != nil {
			return acquireErr("client request url", err)
		}
		defer u.Release()
		return fn(u)
	})
}

func (v *View) withPristineURL(fn func(host.URL) error) error {
	if err := v.check(); err != nil {
		return err
	}
	u, err := v.host.PristineURL(v.txn)
	if err != nil {
		return acquireErr("pristine url", err)
	}
	defer u.Release()
	return fn(u)
}

func (v *View) withServerResponse(fn func(host.Header) error) error {
	if err := v.check(); err != nil {
		return err
	}
	hdr, err := v.host.ServerResponse(v.txn)
	if err != nil {
		return acquireErr("server response", err)
	}
	defer hdr.Release()
	return fn(hdr)
}

// clientURLString reads one string component of the client URL.
func (v *View) clientURLString(get func(host.URL) string) (string, error) {
	var out string
	err := v.withClientURL(func(u host.URL) error {
		out = get(u)
		return nil
	})
	return out, err
}

func (v *View) pristineURLString(get func(host.URL) string) (string, error) {
	var out string
	err := v.withPristineURL(func(u host.URL) error {
		out = get(u)
		return nil
	})
	return out, err
}
