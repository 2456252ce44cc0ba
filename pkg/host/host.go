// Package host describes the event-driven proxy host that hook handlers run
// inside. Everything here is the host's side of the contract: continuations,
// hook ids, event codes and accessor handles over a transaction's state.
//
// Numbering of HookID and EventCode follows the host's public API so that
// an adapter over a real host can pass the values through unchanged.
package host

import "net/netip"

// Cont is an opaque continuation: the executable unit the host calls back.
type Cont uint64

// TxnID identifies one in-flight transaction (request/response exchange).
type TxnID uint64

// Handle is the single opaque data slot a continuation carries.
type Handle uint64

// Handled is the value a ContFunc returns to acknowledge a delivery.
const Handled = 0

// ContFunc is invoked by the host once per delivered event.
type ContFunc func(c Cont, ev EventCode, txn TxnID) int

// HookID names a point in transaction processing a continuation can be
// attached to.
type HookID int

const (
	HookReadRequestHdr  HookID = 0
	HookReadResponseHdr HookID = 4
	HookSendResponseHdr HookID = 5
	HookTxnClose        HookID = 10
	HookPreRemap        HookID = 14
	HookPostRemap       HookID = 15
)

// EventCode is delivered to continuations and passed back on reenable.
type EventCode int

const (
	EventHTTPContinue        EventCode = 60000
	EventHTTPError           EventCode = 60001
	EventHTTPReadRequestHdr  EventCode = 60002
	EventHTTPReadResponseHdr EventCode = 60006
	EventHTTPSendResponseHdr EventCode = 60007
	EventHTTPTxnClose        EventCode = 60012
	EventHTTPPreRemap        EventCode = 60016
	EventHTTPPostRemap       EventCode = 60017
)

// Event returns the code the host delivers for hook id h.
func (h HookID) Event() (EventCode, bool) {
	switch h {
	case HookReadRequestHdr:
		return EventHTTPReadRequestHdr, true
	case HookReadResponseHdr:
		return EventHTTPReadResponseHdr, true
	case HookSendResponseHdr:
		return EventHTTPSendResponseHdr, true
	case HookTxnClose:
		return EventHTTPTxnClose, true
	case HookPreRemap:
		return EventHTTPPreRemap, true
	case HookPostRemap:
		return EventHTTPPostRemap, true
	}
	return 0, false
}

// Continuations manages continuation lifetime and the per-continuation data slot.
type Continuations interface {
	ContCreate(fn ContFunc) (Cont, error)
	ContDestroy(c Cont) error
	ContDataSet(c Cont, h Handle) error
	ContDataGet(c Cont) (Handle, error)
}

// Hooks attaches continuations to hook points and resumes paused transactions.
type Hooks interface {
	HookAdd(id HookID, c Cont) error
	TxnHookAdd(txn TxnID, id HookID, c Cont) error
	TxnReenable(txn TxnID, ev EventCode) error
}

// URL is a borrowed handle on a URL owned by the host. Release must be
// called exactly once. Host and SetHost deal in bare names; the port is
// only reached through Port and SetPort.
type URL interface {
	String() string
	Scheme() string
	SetScheme(s string) error
	Host() string
	SetHost(s string) error
	Port() int
	SetPort(p int) error
	Path() string
	SetPath(s string) error
	Query() string
	SetQuery(s string) error
	Release()
}

// Header is a borrowed handle on an HTTP message header owned by the host.
// Release must be called exactly once.
type Header interface {
	URL() (URL, error)
	Method() string
	SetMethod(m string) error
	Status() int
	Get(name string) (string, bool)
	Set(name, value string) error
	Del(name string) error
	Release()
}

// Txns exposes a transaction's state.
type Txns interface {
	ClientRequest(txn TxnID) (Header, error)
	ServerResponse(txn TxnID) (Header, error)
	PristineURL(txn TxnID) (URL, error)
	ClientAddr(txn TxnID) (netip.AddrPort, error)
	IncomingAddr(txn TxnID) (netip.AddrPort, error)
	IsInternal(txn TxnID) (bool, error)
	TxnStatusSet(txn TxnID, code int) error
}

// Host is the full collaborator the hook engine and exchange views use.
type Host interface {
	Continuations
	Hooks
	Txns
}
