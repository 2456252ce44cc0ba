package metrics

import (
	"time"

	"github.com/joeydtaylor/steeze-hook/pkg/hook"
)

// Observer feeds hook engine events into the package collectors.
type Observer struct{}

var _ hook.Observer = Observer{}

// NewObserver is the Fx provider for the registry's observer.
func NewObserver() hook.Observer { return Observer{} }

func (Observer) Registered(s hook.Scope, ev hook.Event) {
	hookRegistrationsTotal.WithLabelValues(s.String(), ev.String()).Inc()
	if s == hook.ScopeExchange {
		hookRegistrationsLive.WithLabelValues(ev.String()).Inc()
	}
}

func (Observer) Released(ev hook.Event) {
	hookRegistrationsLive.WithLabelValues(ev.String()).Dec()
}

func (Observer) Dispatched(delivered hook.Event, o hook.Outcome, took time.Duration) {
	hookDispatchTotal.WithLabelValues(delivered.String(), o.String()).Inc()
	hookDispatchSeconds.WithLabelValues(delivered.String()).Observe(took.Seconds())
}

func (Observer) Panicked(ev hook.Event) {
	hookHandlerPanics.WithLabelValues(ev.String()).Inc()
}
