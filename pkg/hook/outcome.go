package hook

import "github.com/joeydtaylor/steeze-hook/pkg/host"

// Outcome is a handler's directive for how the host should proceed.
type Outcome int

const (
	// Continue advances the transaction normally.
	Continue Outcome = iota + 200
	// Error sends the transaction down the host's error path.
	Error
	// Suspend leaves the transaction paused. Whoever the handler arranged to
	// finish the work must call Registry.Resume.
	Suspend
)

func (o Outcome) String() string {
	switch o {
	case Continue:
		return "continue"
	case Error:
		return "error"
	case Suspend:
		return "suspend"
	}
	return "unknown"
}

// ReenableEvent maps o to the event code passed to TxnReenable. The boolean
// is false for Suspend, which must not reenable. Unknown values continue.
func (o Outcome) ReenableEvent() (host.EventCode, bool) {
	switch o {
	case Suspend:
		return 0, false
	case Error:
		return host.EventHTTPError, true
	default:
		return host.EventHTTPContinue, true
	}
}
