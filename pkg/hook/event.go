package hook

import (
	"fmt"
	"strings"

	"github.com/joeydtaylor/steeze-hook/pkg/host"
)

// Event is a point in a transaction's processing where handlers may run.
type Event int

const (
	PreRemap Event = iota + 100
	PostRemap
	ReadResponseHeader
	ReadRequestHeader
	SendResponseHeader
	TxnClose
)

var eventNames = map[Event]string{
	PreRemap:           "pre-remap",
	PostRemap:          "post-remap",
	ReadResponseHeader: "read-response-header",
	ReadRequestHeader:  "read-request-header",
	SendResponseHeader: "send-response-header",
	TxnClose:           "txn-close",
}

var eventHooks = map[Event]host.HookID{
	PreRemap:           host.HookPreRemap,
	PostRemap:          host.HookPostRemap,
	ReadResponseHeader: host.HookReadResponseHdr,
	ReadRequestHeader:  host.HookReadRequestHdr,
	SendResponseHeader: host.HookSendResponseHdr,
	TxnClose:           host.HookTxnClose,
}

func (e Event) String() string {
	if n, ok := eventNames[e]; ok {
		return n
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// Valid reports whether e is one of the defined events.
func (e Event) Valid() bool {
	_, ok := eventHooks[e]
	return ok
}

// HookID resolves e to the host hook it is delivered on.
func (e Event) HookID() (host.HookID, error) {
	id, ok := eventHooks[e]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownEvent, e)
	}
	return id, nil
}

// ParseEvent accepts the names used in configuration ("read-request-header",
// "txn-close", ...). Case and surrounding space are ignored.
func ParseEvent(name string) (Event, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for e, s := range eventNames {
		if s == n {
			return e, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
}
