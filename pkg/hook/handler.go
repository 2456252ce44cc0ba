package hook

import "github.com/joeydtaylor/steeze-hook/pkg/exchange"

// Handler runs on a delivered event and says how the host should proceed.
type Handler func(v *exchange.View) Outcome

// Chain runs handlers in order and stops at the first outcome that is not
// Continue.
func Chain(handlers ...Handler) Handler {
	return func(v *exchange.View) Outcome {
		for _, h := range handlers {
			if h == nil {
				continue
			}
			if o := h(v); o != Continue {
				return o
			}
		}
		return Continue
	}
}
