// Package admit bounds the number of exchanges in flight.
//
// An exchange that finds a free slot continues at once. Otherwise it is
// suspended while a goroutine waits up to --wait for a slot; the exchange is
// then resumed, or sent down the error path with 503. The slot is returned
// when the exchange closes.
package admit

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/joeydtaylor/steeze-hook/pkg/exchange"
	"github.com/joeydtaylor/steeze-hook/pkg/hook"
	"github.com/joeydtaylor/steeze-hook/pkg/plugin"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

func init() { plugin.Register("admit", Bootstrap) }

// Admit holds the shared slot pool.
type Admit struct {
	sem  *semaphore.Weighted
	max  int64
	wait time.Duration
	reg  *hook.Registry
	ctx  context.Context
	log  *zap.Logger

	inflight atomic.Int64
	queued   atomic.Int64
}

func Bootstrap(env plugin.Env, args []string) error {
	fs := plugin.FlagSet(args)
	max := fs.Int64("max", 64, "exchanges admitted at once")
	wait := fs.Duration("wait", 5*time.Second, "how long a suspended exchange waits for a slot")
	if err := plugin.ParseFlags(fs, args); err != nil {
		return err
	}
	a, err := New(env.Ctx, env.Registry, *max, *wait)
	if err != nil {
		return err
	}
	a.log = env.Log
	return env.Registry.RegisterGlobal(hook.ReadRequestHeader, a.Handle)
}

// New returns an Admit with max slots. ctx bounds every wait.
func New(ctx context.Context, reg *hook.Registry, max int64, wait time.Duration) (*Admit, error) {
	if max < 1 {
		return nil, fmt.Errorf("admit: --max must be >= 1, got %d", max)
	}
	if wait < 0 {
		return nil, fmt.Errorf("admit: --wait must be >= 0, got %s", wait)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return &Admit{
		sem:  semaphore.NewWeighted(max),
		max:  max,
		wait: wait,
		reg:  reg,
		ctx:  ctx,
		log:  zap.NewNop(),
	}, nil
}

// InFlight returns the number of slots held.
func (a *Admit) InFlight() int64 { return a.inflight.Load() }

// Queued returns the number of suspended exchanges waiting for a slot.
func (a *Admit) Queued() int64 { return a.queued.Load() }

func (a *Admit) Handle(v *exchange.View) hook.Outcome {
	var held, ended atomic.Bool
	giveBack := func() {
		if held.Swap(false) {
			a.inflight.Add(-1)
			a.sem.Release(1)
		}
	}
	if err := a.reg.OnExchangeEnd(v, func() {
		ended.Store(true)
		giveBack()
	}); err != nil {
		a.log.Warn("admit: register release", zap.Error(err))
		return hook.Error
	}

	if a.sem.TryAcquire(1) {
		a.inflight.Add(1)
		held.Store(true)
		return hook.Continue
	}
	if a.wait == 0 {
		_ = v.SetStatus(http.StatusServiceUnavailable)
		return hook.Error
	}

	txn := v.Txn()
	a.queued.Add(1)
	go func() {
		defer a.queued.Add(-1)
		ctx, cancel := context.WithTimeout(a.ctx, a.wait)
		defer cancel()

		outcome := hook.Continue
		if err := a.sem.Acquire(ctx, 1); err != nil {
			a.log.Info("admit: no slot", zap.Uint64("txn", uint64(txn)), zap.Error(err))
			outcome = hook.Error
			// the view has expired; the transaction is still paused on us
			if err := a.reg.Host().TxnStatusSet(txn, http.StatusServiceUnavailable); err != nil {
				a.log.Warn("admit: set status", zap.Error(err))
			}
		} else {
			a.inflight.Add(1)
			held.Store(true)
			// aborted while we waited
			if ended.Load() {
				giveBack()
			}
		}
		if err := a.reg.Resume(txn, outcome); err != nil {
			a.log.Warn("admit: resume", zap.Uint64("txn", uint64(txn)), zap.Error(err))
		}
	}()
	return hook.Suspend
}
