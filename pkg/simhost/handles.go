package simhost

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strconv"
	"strings"

	"github.com/joeydtaylor/steeze-hook/pkg/host"
)

// handle accounts for one borrowed structure.
type handle struct {
	h        *Host
	released bool
}

// caller holds h.mu
func (h *Host) borrow() handle {
	h.outstanding++
	return handle{h: h}
}

func (b *handle) Release() {
	b.h.mu.Lock()
	defer b.h.mu.Unlock()
	if b.released {
		b.h.violate("handle released twice")
		return
	}
	b.released = true
	b.h.outstanding--
}

type urlHandle struct {
	handle
	u *url.URL
}

func (u *urlHandle) read(fn func(*url.URL) string) string {
	u.h.mu.Lock()
	defer u.h.mu.Unlock()
	return fn(u.u)
}

func (u *urlHandle) write(fn func(*url.URL) error) error {
	u.h.mu.Lock()
	defer u.h.mu.Unlock()
	if u.released {
		return ErrReleased
	}
	return fn(u.u)
}

func (u *urlHandle) String() string { return u.read((*url.URL).String) }
func (u *urlHandle) Scheme() string { return u.read(func(x *url.URL) string { return x.Scheme }) }
func (u *urlHandle) Host() string   { return u.read((*url.URL).Hostname) }
func (u *urlHandle) Path() string   { return u.read(func(x *url.URL) string { return x.Path }) }
func (u *urlHandle) Query() string  { return u.read(func(x *url.URL) string { return x.RawQuery }) }

func (u *urlHandle) Port() int {
	p, _ := strconv.Atoi(u.read((*url.URL).Port))
	return p
}

func (u *urlHandle) SetScheme(s string) error {
	return u.write(func(x *url.URL) error { x.Scheme = s; return nil })
}

func (u *urlHandle) SetHost(s string) error {
	name, err := bareHost(s)
	if err != nil {
		return err
	}
	return u.write(func(x *url.URL) error {
		x.Host = joinHost(name, x.Port())
		return nil
	})
}

func (u *urlHandle) SetPort(p int) error {
	if p < 0 || p > 65535 {
		return fmt.Errorf("simhost: invalid port %d", p)
	}
	return u.write(func(x *url.URL) error {
		port := ""
		if p != 0 {
			port = strconv.Itoa(p)
		}
		x.Host = joinHost(x.Hostname(), port)
		return nil
	})
}

// bareHost validates a host name for SetHost. IPv6 literals may come with
// or without brackets; anything carrying a port is refused.
func bareHost(s string) (string, error) {
	name := s
	if strings.HasPrefix(name, "[") && strings.HasSuffix(name, "]") {
		name = name[1 : len(name)-1]
		if _, err := netip.ParseAddr(name); err != nil {
			return "", fmt.Errorf("simhost: invalid host %q", s)
		}
		return name, nil
	}
	if strings.ContainsAny(name, "[]/?#@ ") {
		return "", fmt.Errorf("simhost: invalid host %q", s)
	}
	if strings.Contains(name, ":") {
		if _, err := netip.ParseAddr(name); err != nil {
			return "", fmt.Errorf("simhost: host %q carries a port, use SetPort", s)
		}
	}
	return name, nil
}

// joinHost rebuilds url.URL.Host from a bare name and an optional port.
func joinHost(name, port string) string {
	if port != "" {
		return net.JoinHostPort(name, port)
	}
	if strings.Contains(name, ":") {
		return "[" + name + "]"
	}
	return name
}

func (u *urlHandle) SetPath(s string) error {
	return u.write(func(x *url.URL) error { x.Path, x.RawPath = s, ""; return nil })
}

func (u *urlHandle) SetQuery(s string) error {
	return u.write(func(x *url.URL) error { x.RawQuery = s; return nil })
}

type headerHandle struct {
	handle
	msg *message
}

func (m *headerHandle) URL() (host.URL, error) {
	m.h.mu.Lock()
	defer m.h.mu.Unlock()
	if m.h.faults.ClientURL {
		return nil, fmt.Errorf("%w: header url", ErrRejected)
	}
	if m.msg.url == nil {
		return nil, fmt.Errorf("simhost: message has no url")
	}
	return &urlHandle{handle: m.h.borrow(), u: m.msg.url}, nil
}

func (m *headerHandle) Method() string {
	m.h.mu.Lock()
	defer m.h.mu.Unlock()
	return m.msg.method
}

func (m *headerHandle) SetMethod(s string) error {
	m.h.mu.Lock()
	defer m.h.mu.Unlock()
	if m.released {
		return ErrReleased
	}
	m.msg.method = s
	return nil
}

func (m *headerHandle) Status() int {
	m.h.mu.Lock()
	defer m.h.mu.Unlock()
	return m.msg.status
}

func (m *headerHandle) Get(name string) (string, bool) {
	m.h.mu.Lock()
	defer m.h.mu.Unlock()
	vs, ok := m.msg.header[http.CanonicalHeaderKey(name)]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

func (m *headerHandle) Set(name, value string) error {
	m.h.mu.Lock()
	defer m.h.mu.Unlock()
	if m.released {
		return ErrReleased
	}
	m.msg.header.Set(name, value)
	return nil
}

func (m *headerHandle) Del(name string) error {
	m.h.mu.Lock()
	defer m.h.mu.Unlock()
	if m.released {
		return ErrReleased
	}
	m.msg.header.Del(name)
	return nil
}

// caller holds h.mu
func (h *Host) txn(id host.TxnID) (*Txn, error) {
	t, ok := h.txns[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTxn, id)
	}
	return t, nil
}

func (h *Host) ClientRequest(id host.TxnID) (host.Header, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.faults.ClientRequest {
		return nil, fmt.Errorf("%w: client request", ErrRejected)
	}
	t, err := h.txn(id)
	if err != nil {
		return nil, err
	}
	return &headerHandle{handle: h.borrow(), msg: &t.req}, nil
}

func (h *Host) ServerResponse(id host.TxnID) (host.Header, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.faults.ServerResponse {
		return nil, fmt.Errorf("%w: server response", ErrRejected)
	}
	t, err := h.txn(id)
	if err != nil {
		return nil, err
	}
	if t.resp == nil {
		return nil, fmt.Errorf("simhost: txn %d has no server response yet", id)
	}
	return &headerHandle{handle: h.borrow(), msg: t.resp}, nil
}

func (h *Host) PristineURL(id host.TxnID) (host.URL, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.faults.PristineURL {
		return nil, fmt.Errorf("%w: pristine url", ErrRejected)
	}
	t, err := h.txn(id)
	if err != nil {
		return nil, err
	}
	return &urlHandle{handle: h.borrow(), u: t.pristine}, nil
}

func (h *Host) ClientAddr(id host.TxnID) (netip.AddrPort, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.faults.ClientAddr {
		return netip.AddrPort{}, fmt.Errorf("%w: client addr", ErrRejected)
	}
	t, err := h.txn(id)
	if err != nil {
		return netip.AddrPort{}, err
	}
	return t.client, nil
}

func (h *Host) IncomingAddr(id host.TxnID) (netip.AddrPort, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, err := h.txn(id)
	if err != nil {
		return netip.AddrPort{}, err
	}
	return t.incoming, nil
}

func (h *Host) IsInternal(id host.TxnID) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, err := h.txn(id)
	if err != nil {
		return false, err
	}
	return t.internal, nil
}
