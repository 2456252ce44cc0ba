package admit

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/joeydtaylor/steeze-hook/pkg/exchange"
	"github.com/joeydtaylor/steeze-hook/pkg/hook"
	"github.com/joeydtaylor/steeze-hook/pkg/host"
	"github.com/joeydtaylor/steeze-hook/pkg/plugin"
	"github.com/joeydtaylor/steeze-hook/pkg/simhost"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setup installs a with a pre-remap handler that parks every admitted
// exchange and reports it on the returned channel.
func setup(t *testing.T, max int64, wait time.Duration) (*simhost.Host, *hook.Registry, *Admit, <-chan host.TxnID) {
	t.Helper()
	h := simhost.New(nil)
	reg := hook.NewRegistry(h)
	a, err := New(context.Background(), reg, max, wait)
	require.NoError(t, err)
	require.NoError(t, reg.RegisterGlobal(hook.ReadRequestHeader, a.Handle))

	parked := make(chan host.TxnID, 8)
	require.NoError(t, reg.RegisterGlobal(hook.PreRemap, func(v *exchange.View) hook.Outcome {
		parked <- v.Txn()
		return hook.Suspend
	}))
	return h, reg, a, parked
}

func start(t *testing.T, h *simhost.Host) *simhost.Txn {
	t.Helper()
	txn, err := h.Run(simhost.TxnSpec{
		URL:    "http://example.com/",
		Origin: func(simhost.Request) simhost.Response { return simhost.Response{Status: http.StatusOK} },
	})
	require.NoError(t, err)
	return txn
}

func awaitParked(t *testing.T, parked <-chan host.TxnID, want host.TxnID) {
	t.Helper()
	select {
	case got := <-parked:
		require.Equal(t, want, got)
	case <-time.After(5 * time.Second):
		t.Fatalf("txn %d never reached pre-remap", want)
	}
}

func awaitDone(t *testing.T, txn *simhost.Txn) {
	t.Helper()
	select {
	case <-txn.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("txn %d did not close", txn.ID())
	}
}

func TestRejectsWithoutWait(t *testing.T) {
	h, reg, a, parked := setup(t, 1, 0)

	first := start(t, h)
	awaitParked(t, parked, first.ID())
	assert.EqualValues(t, 1, a.InFlight())

	second := start(t, h)
	awaitDone(t, second)
	assert.Equal(t, http.StatusServiceUnavailable, second.Response().Status)
	assert.EqualValues(t, 1, a.InFlight())

	require.NoError(t, reg.Resume(first.ID(), hook.Continue))
	awaitDone(t, first)
	assert.Equal(t, http.StatusOK, first.Response().Status)
	assert.Zero(t, a.InFlight())
	assert.Equal(t, 2, reg.Live())
}

func TestQueuedExchangeResumes(t *testing.T) {
	h, reg, a, parked := setup(t, 1, 5*time.Second)

	first := start(t, h)
	awaitParked(t, parked, first.ID())

	second := start(t, h)
	assert.True(t, second.Waiting())
	assert.EqualValues(t, 1, a.Queued())

	require.NoError(t, reg.Resume(first.ID(), hook.Continue))
	awaitDone(t, first)

	awaitParked(t, parked, second.ID())
	assert.EqualValues(t, 1, a.InFlight())
	require.NoError(t, reg.Resume(second.ID(), hook.Continue))
	awaitDone(t, second)
	assert.Equal(t, http.StatusOK, second.Response().Status)
	assert.Zero(t, a.InFlight())
	assert.Eventually(t, func() bool { return a.Queued() == 0 }, time.Second, time.Millisecond)
}

func TestQueuedExchangeTimesOut(t *testing.T) {
	h, reg, a, parked := setup(t, 1, 20*time.Millisecond)

	first := start(t, h)
	awaitParked(t, parked, first.ID())

	second := start(t, h)
	awaitDone(t, second)
	assert.Equal(t, http.StatusServiceUnavailable, second.Response().Status)
	assert.True(t, second.Errored())

	require.NoError(t, reg.Resume(first.ID(), hook.Continue))
	awaitDone(t, first)
	assert.Zero(t, a.InFlight())
	assert.Empty(t, h.Violations())
}

func TestBootstrapFlags(t *testing.T) {
	reg := hook.NewRegistry(simhost.New(nil))
	env := plugin.Env{Ctx: context.Background(), Registry: reg}
	assert.NoError(t, Bootstrap(env, []string{"admit", "--max", "2", "--wait", "1s"}))
	assert.Error(t, Bootstrap(env, []string{"admit", "--max", "0"}))
	assert.Error(t, Bootstrap(env, []string{"admit", "--wait", "-1s"}))
}

func TestAbortedWhileQueuedReturnsSlot(t *testing.T) {
	h, reg, a, parked := setup(t, 1, time.Second)

	first := start(t, h)
	awaitParked(t, parked, first.ID())

	second := start(t, h)
	require.NoError(t, h.Abort(second.ID()))
	awaitDone(t, second)

	require.NoError(t, reg.Resume(first.ID(), hook.Continue))
	awaitDone(t, first)
	assert.Eventually(t, func() bool { return a.Queued() == 0 && a.InFlight() == 0 }, 2*time.Second, time.Millisecond)

	third := start(t, h)
	awaitParked(t, parked, third.ID())
	require.NoError(t, reg.Resume(third.ID(), hook.Continue))
	awaitDone(t, third)
}
