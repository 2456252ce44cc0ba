package jwtgate

import (
	"net/http"
	"net/netip"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joeydtaylor/steeze-hook/pkg/hook"
	"github.com/joeydtaylor/steeze-hook/pkg/plugin"
	"github.com/joeydtaylor/steeze-hook/pkg/simhost"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const secret = "test-secret-0123456789"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.RegisteredClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func claims(sub string, exp time.Duration) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Subject:   sub,
		Issuer:    "steeze",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(exp)),
	}
}

func TestVerify(t *testing.T) {
	t.Setenv("GATE_SECRET", secret)
	g, err := Parse([]string{"jwtgate", "--secret-env", "GATE_SECRET", "--issuer", "steeze", "--leeway", "0s"})
	require.NoError(t, err)

	sub, err := g.Verify(sign(t, jwt.SigningMethodHS256, []byte(secret), claims("alice", time.Minute)))
	require.NoError(t, err)
	assert.Equal(t, "alice", sub)

	bad := map[string]string{
		"expired":    sign(t, jwt.SigningMethodHS256, []byte(secret), claims("alice", -time.Minute)),
		"wrong key":  sign(t, jwt.SigningMethodHS256, []byte("other"), claims("alice", time.Minute)),
		"hs512":      sign(t, jwt.SigningMethodHS512, []byte(secret), claims("alice", time.Minute)),
		"no subject": sign(t, jwt.SigningMethodHS256, []byte(secret), claims("", time.Minute)),
		"garbage":    "not.a.token",
	}
	c := claims("alice", time.Minute)
	c.Issuer = "someone-else"
	bad["issuer"] = sign(t, jwt.SigningMethodHS256, []byte(secret), c)
	c = claims("alice", time.Minute)
	c.ExpiresAt = nil
	bad["no exp"] = sign(t, jwt.SigningMethodHS256, []byte(secret), c)

	for name, tok := range bad {
		_, err := g.Verify(tok)
		assert.Error(t, err, name)
	}
}

func TestParseNeedsSecret(t *testing.T) {
	t.Setenv("GATE_SECRET", "")
	_, err := Parse([]string{"jwtgate", "--secret-env", "GATE_SECRET"})
	assert.ErrorIs(t, err, errNoSecret)
}

func TestBearer(t *testing.T) {
	tok, err := bearer("bearer  abc ")
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)
	for _, h := range []string{"", "Bearer", "Basic abc", "Bearer   "} {
		_, err := bearer(h)
		assert.ErrorIs(t, err, errNoToken, h)
	}
}

type exchangeResult struct {
	status int
	origin http.Header
}

func run(t *testing.T, spec simhost.TxnSpec, args ...string) exchangeResult {
	t.Helper()
	t.Setenv("GATE_SECRET", secret)
	h := simhost.New(zaptest.NewLogger(t))
	reg := hook.NewRegistry(h, hook.WithLogger(zaptest.NewLogger(t)))
	argv := append([]string{"jwtgate", "--secret-env", "GATE_SECRET"}, args...)
	require.NoError(t, Bootstrap(plugin.Env{Registry: reg, Log: zaptest.NewLogger(t)}, argv))

	var seen http.Header
	spec.URL = "http://example.com/private"
	spec.Origin = func(req simhost.Request) simhost.Response {
		seen = req.Header
		return simhost.Response{Status: http.StatusOK}
	}
	txn, err := h.Run(spec)
	require.NoError(t, err)
	<-txn.Done()
	assert.Zero(t, h.Outstanding())
	return exchangeResult{status: txn.Response().Status, origin: seen}
}

func TestHandleAccepts(t *testing.T) {
	tok := sign(t, jwt.SigningMethodHS256, []byte(secret), claims("alice", time.Minute))
	res := run(t, simhost.TxnSpec{Header: http.Header{
		"Authorization":  {"Bearer " + tok},
		"X-Auth-Subject": {"mallory"},
	}}, "--strip-token")

	assert.Equal(t, http.StatusOK, res.status)
	require.NotNil(t, res.origin)
	assert.Equal(t, "alice", res.origin.Get(SubjectHeader))
	assert.Empty(t, res.origin.Get("Authorization"))
}

func TestHandleRejects(t *testing.T) {
	res := run(t, simhost.TxnSpec{Header: http.Header{"X-Auth-Subject": {"mallory"}}})
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Nil(t, res.origin, "origin is never contacted")
}

func TestHandleSkipsInternal(t *testing.T) {
	res := run(t, simhost.TxnSpec{
		Internal: true,
		Client:   netip.MustParseAddrPort("127.0.0.1:5000"),
		Header:   http.Header{"X-Auth-Subject": {"mallory"}},
	}, "--skip-internal")
	assert.Equal(t, http.StatusOK, res.status)
	require.NotNil(t, res.origin)
	assert.Empty(t, res.origin.Get(SubjectHeader))
}
