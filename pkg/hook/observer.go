package hook

import "time"

// Scope says how long a registration lives.
type Scope int

const (
	// ScopeGlobal registrations live for the process.
	ScopeGlobal Scope = iota
	// ScopeExchange registrations are released when their transaction closes.
	ScopeExchange
)

func (s Scope) String() string {
	if s == ScopeExchange {
		return "exchange"
	}
	return "global"
}

// Observer receives engine events; pkg/middleware/metrics implements it with prometheus.
type Observer interface {
	Registered(s Scope, ev Event)
	Released(ev Event)
	Dispatched(delivered Event, o Outcome, took time.Duration)
	Panicked(ev Event)
}

type nopObserver struct{}

func (nopObserver) Registered(Scope, Event)                  {}
func (nopObserver) Released(Event)                           {}
func (nopObserver) Dispatched(Event, Outcome, time.Duration) {}
func (nopObserver) Panicked(Event)                           {}
