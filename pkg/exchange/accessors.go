package exchange

import (
	"net/netip"

	"github.com/joeydtaylor/steeze-hook/pkg/host"
)

// URL returns the client request URL as currently rewritten.
func (v *View) URL() (string, error) { return v.clientURLString(host.URL.String) }

// PristineURL returns the client request URL as it arrived.
func (v *View) PristineURL() (string, error) { return v.pristineURLString(host.URL.String) }

func (v *View) Scheme() (string, error) { return v.clientURLString(host.URL.Scheme) }

func (v *View) PristineScheme() (string, error) { return v.pristineURLString(host.URL.Scheme) }

func (v *View) SetScheme(s string) error {
	return v.withClientURL(func(u host.URL) error { return u.SetScheme(s) })
}

func (v *View) Host() (string, error) { return v.clientURLString(host.URL.Host) }

func (v *View) PristineHost() (string, error) { return v.pristineURLString(host.URL.Host) }

func (v *View) SetHost(s string) error {
	return v.withClientURL(func(u host.URL) error { return u.SetHost(s) })
}

func (v *View) Path() (string, error) { return v.clientURLString(host.URL.Path) }

func (v *View) PristinePath() (string, error) { return v.pristineURLString(host.URL.Path) }

func (v *View) SetPath(s string) error {
	return v.withClientURL(func(u host.URL) error { return u.SetPath(s) })
}

func (v *View) Query() (string, error) { return v.clientURLString(host.URL.Query) }

func (v *View) PristineQuery() (string, error) { return v.pristineURLString(host.URL.Query) }

func (v *View) SetQuery(s string) error {
	return v.withClientURL(func(u host.URL) error { return u.SetQuery(s) })
}

// Port returns the client URL port; zero when the URL carries none.
func (v *View) Port() (int, error) {
	var port int
	err := v.withClientURL(func(u host.URL) error {
		port = u.Port()
		return nil
	})
	return port, err
}

func (v *View) PristinePort() (int, error) {
	var port int
	err := v.withPristineURL(func(u host.URL) error {
		port = u.Port()
		return nil
	})
	return port, err
}

func (v *View) SetPort(p int) error {
	return v.withClientURL(func(u host.URL) error { return u.SetPort(p) })
}

func (v *View) Method() (string, error) {
	var m string
	err := v.withClientRequest(func(h host.Header) error {
		m = h.Method()
		return nil
	})
	return m, err
}

func (v *View) SetMethod(m string) error {
	return v.withClientRequest(func(h host.Header) error { return h.SetMethod(m) })
}

// Header returns a client request header value and whether it was present.
func (v *View) Header(name string) (string, bool, error) {
	var (
		val string
		ok  bool
	)
	err := v.withClientRequest(func(h host.Header) error {
		val, ok = h.Get(name)
		return nil
	})
	return val, ok, err
}

func (v *View) SetHeader(name, value string) error {
	return v.withClientRequest(func(h host.Header) error { return h.Set(name, value) })
}

func (v *View) DelHeader(name string) error {
	return v.withClientRequest(func(h host.Header) error { return h.Del(name) })
}

// ResponseStatus returns the origin server's response status code. It fails
// with ErrAcquire before the origin has responded.
func (v *View) ResponseStatus() (int, error) {
	var code int
	err := v.withServerResponse(func(h host.Header) error {
		code = h.Status()
		return nil
	})
	return code, err
}

// SetStatus sets the status the host uses if the transaction takes the
// error path.
func (v *View) SetStatus(code int) error {
	if err := v.check(); err != nil {
		return err
	}
	return v.host.TxnStatusSet(v.txn, code)
}

func (v *View) ClientAddr() (netip.AddrPort, error) {
	if err := v.check(); err != nil {
		return netip.AddrPort{}, err
	}
	ap, err := v.host.ClientAddr(v.txn)
	if err != nil {
		return netip.AddrPort{}, acquireErr("client addr", err)
	}
	return ap, nil
}

func (v *View) ClientIP() (string, error) {
	ap, err := v.ClientAddr()
	if err != nil {
		return "", err
	}
	return ap.Addr().String(), nil
}

func (v *View) ClientPort() (uint16, error) {
	ap, err := v.ClientAddr()
	return ap.Port(), err
}

// IncomingAddr is the local address the client connected to.
func (v *View) IncomingAddr() (netip.AddrPort, error) {
	if err := v.check(); err != nil {
		return netip.AddrPort{}, err
	}
	ap, err := v.host.IncomingAddr(v.txn)
	if err != nil {
		return netip.AddrPort{}, acquireErr("incoming addr", err)
	}
	return ap, nil
}

func (v *View) IncomingIP() (string, error) {
	ap, err := v.IncomingAddr()
	if err != nil {
		return "", err
	}
	return ap.Addr().String(), nil
}

func (v *View) IncomingPort() (uint16, error) {
	ap, err := v.IncomingAddr()
	return ap.Port(), err
}

// IsInternal reports whether the host itself originated the request.
func (v *View) IsInternal() (bool, error) {
	if err := v.check(); err != nil {
		return false, err
	}
	ok, err := v.host.IsInternal(v.txn)
	if err != nil {
		return false, acquireErr("internal flag", err)
	}
	return ok, nil
}
