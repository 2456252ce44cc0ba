package exchange_test

import (
	"net/http"
	"net/netip"
	"testing"

	"github.com/joeydtaylor/steeze-hook/pkg/exchange"
	"github.com/joeydtaylor/steeze-hook/pkg/host"
	"github.com/joeydtaylor/steeze-hook/pkg/simhost"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newView(t *testing.T, url string) (*simhost.Host, *simhost.Txn, *exchange.View) {
	t.Helper()
	h := simhost.New(zaptest.NewLogger(t))
	txn, err := h.NewTxn(simhost.TxnSpec{
		Method:   http.MethodPost,
		URL:      url,
		Header:   http.Header{"X-Trace": {"abc"}},
		Client:   netip.MustParseAddrPort("[2001:db8::7]:51000"),
		Incoming: netip.MustParseAddrPort("10.0.0.1:8443"),
		Internal: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.Zero(t, h.Outstanding(), "every acquired handle is released")
		assert.Empty(t, h.Violations())
	})
	return h, txn, exchange.New(h, txn.ID(), 0)
}

func TestURLAccessorsRoundTrip(t *testing.T) {
	_, _, v := newView(t, "http://example.com:8080/a/b?x=1")

	require.NoError(t, v.SetScheme("https"))
	require.NoError(t, v.SetHost("origin.internal"))
	require.NoError(t, v.SetPort(9443))
	require.NoError(t, v.SetPath("/c/d"))
	require.NoError(t, v.SetQuery("y=2&z=3"))

	scheme, err := v.Scheme()
	require.NoError(t, err)
	assert.Equal(t, "https", scheme)

	hostname, err := v.Host()
	require.NoError(t, err)
	assert.Equal(t, "origin.internal", hostname)

	port, err := v.Port()
	require.NoError(t, err)
	assert.Equal(t, 9443, port)

	path, err := v.Path()
	require.NoError(t, err)
	assert.Equal(t, "/c/d", path)

	query, err := v.Query()
	require.NoError(t, err)
	assert.Equal(t, "y=2&z=3", query)

	u, err := v.URL()
	require.NoError(t, err)
	assert.Equal(t, "https://origin.internal:9443/c/d?y=2&z=3", u)
}

func TestSetHostKeepsPort(t *testing.T) {
	_, _, v := newView(t, "http://example.com:8080/")
	require.NoError(t, v.SetHost("other"))
	u, err := v.URL()
	require.NoError(t, err)
	assert.Equal(t, "http://other:8080/", u)

	require.NoError(t, v.SetPort(0))
	port, err := v.Port()
	require.NoError(t, err)
	assert.Zero(t, port)
}

func TestPristineURLIsUntouched(t *testing.T) {
	_, _, v := newView(t, "http://example.com:8080/a/b?x=1")

	require.NoError(t, v.SetScheme("https"))
	require.NoError(t, v.SetHost("rewritten"))
	require.NoError(t, v.SetPath("/z"))
	require.NoError(t, v.SetQuery("q=9"))

	scheme, err := v.PristineScheme()
	require.NoError(t, err)
	assert.Equal(t, "http", scheme)

	hostname, err := v.PristineHost()
	require.NoError(t, err)
	assert.Equal(t, "example.com", hostname)

	port, err := v.PristinePort()
	require.NoError(t, err)
	assert.Equal(t, 8080, port)

	path, err := v.PristinePath()
	require.NoError(t, err)
	assert.Equal(t, "/a/b", path)

	query, err := v.PristineQuery()
	require.NoError(t, err)
	assert.Equal(t, "x=1", query)

	u, err := v.PristineURL()
	require.NoError(t, err)
	assert.Equal(t, "http://example.com:8080/a/b?x=1", u)
}

func TestEmptyStringSetters(t *testing.T) {
	_, _, v := newView(t, "http://example.com/a/b?x=1")

	require.NoError(t, v.SetQuery(""))
	query, err := v.Query()
	require.NoError(t, err)
	assert.Equal(t, "", query)
	u, err := v.URL()
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/a/b", u)

	require.NoError(t, v.SetPath(""))
	path, err := v.Path()
	require.NoError(t, err)
	assert.Equal(t, "", path)
}

func TestMethodAndHeaders(t *testing.T) {
	_, txn, v := newView(t, "http://example.com/")

	m, err := v.Method()
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, m)
	require.NoError(t, v.SetMethod(http.MethodPut))

	val, ok, err := v.Header("x-trace")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", val)

	_, ok, err = v.Header("X-Missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, v.SetHeader("X-Added", "1"))
	require.NoError(t, v.DelHeader("X-Trace"))

	req := txn.Request()
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "1", req.Header.Get("X-Added"))
	assert.Empty(t, req.Header.Values("X-Trace"))
}

func TestAddressesAndInternal(t *testing.T) {
	_, _, v := newView(t, "http://example.com/")

	ip, err := v.ClientIP()
	require.NoError(t, err)
	assert.Equal(t, "2001:db8::7", ip)
	port, err := v.ClientPort()
	require.NoError(t, err)
	assert.Equal(t, uint16(51000), port)

	ip, err = v.IncomingIP()
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", ip)
	port, err = v.IncomingPort()
	require.NoError(t, err)
	assert.Equal(t, uint16(8443), port)

	internal, err := v.IsInternal()
	require.NoError(t, err)
	assert.True(t, internal)
}

func TestResponseStatusBeforeOrigin(t *testing.T) {
	_, _, v := newView(t, "http://example.com/")
	_, err := v.ResponseStatus()
	assert.ErrorIs(t, err, exchange.ErrAcquire)
}

func TestAcquireFailuresAreDistinguishable(t *testing.T) {
	h, _, v := newView(t, "http://example.com/a")

	h.SetFaults(simhost.Faults{ClientRequest: true})
	path, err := v.Path()
	assert.ErrorIs(t, err, exchange.ErrAcquire)
	assert.ErrorIs(t, err, simhost.ErrRejected)
	assert.Empty(t, path)
	assert.ErrorIs(t, v.SetPath("/b"), exchange.ErrAcquire)

	h.SetFaults(simhost.Faults{ClientURL: true})
	_, err = v.Scheme()
	assert.ErrorIs(t, err, exchange.ErrAcquire)

	h.SetFaults(simhost.Faults{PristineURL: true})
	_, err = v.PristineHost()
	assert.ErrorIs(t, err, exchange.ErrAcquire)

	h.SetFaults(simhost.Faults{ClientAddr: true})
	_, err = v.ClientIP()
	assert.ErrorIs(t, err, exchange.ErrAcquire)

	h.SetFaults(simhost.Faults{})
	path, err = v.Path()
	require.NoError(t, err)
	assert.Equal(t, "/a", path)
}

func TestExpiredViewRejectsEverything(t *testing.T) {
	_, _, v := newView(t, "http://example.com/a")
	v.Expire()

	_, err := v.URL()
	assert.ErrorIs(t, err, exchange.ErrExpired)
	assert.ErrorIs(t, v.SetQuery("a=1"), exchange.ErrExpired)
	assert.ErrorIs(t, v.SetStatus(404), exchange.ErrExpired)
	_, err = v.IsInternal()
	assert.ErrorIs(t, err, exchange.ErrExpired)
	assert.NotZero(t, v.Txn(), "txn id survives expiry")
}

func TestClosedTransaction(t *testing.T) {
	h := simhost.New(zaptest.NewLogger(t))
	v := exchange.New(h, host.TxnID(99), 0)
	_, err := v.Method()
	assert.ErrorIs(t, err, exchange.ErrAcquire)
	assert.ErrorIs(t, err, simhost.ErrUnknownTxn)

	var nilView *exchange.View
	_, err = nilView.Path()
	assert.ErrorIs(t, err, exchange.ErrAcquire)
}
