package simhost

import "github.com/joeydtaylor/steeze-hook/pkg/host"

// Kind classifies a journal entry.
type Kind string

const (
	KindHookAdd  Kind = "hook-add"
	KindDeliver  Kind = "deliver"
	KindReenable Kind = "reenable"
	KindDestroy  Kind = "destroy"
	KindOrigin   Kind = "origin"
)

// Entry is one journaled host call.
type Entry struct {
	Kind  Kind
	Cont  host.Cont
	Txn   host.TxnID
	Hook  host.HookID
	Event host.EventCode
}

// Journal returns a copy of every entry recorded so far.
func (h *Host) Journal() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Entry(nil), h.journal...)
}

// JournalFor returns the entries for txn, plus destroys of continuations
// that were attached to it.
func (h *Host) JournalFor(txn host.TxnID) []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	attached := map[host.Cont]bool{}
	var out []Entry
	for _, e := range h.journal {
		switch {
		case e.Txn == txn:
			if e.Kind == KindHookAdd || e.Kind == KindDeliver {
				attached[e.Cont] = true
			}
			out = append(out, e)
		case e.Kind == KindDestroy && attached[e.Cont]:
			out = append(out, e)
		}
	}
	return out
}

// caller holds h.mu
func (h *Host) record(e Entry) {
	if h.noJournal {
		return
	}
	h.journal = append(h.journal, e)
}
