// Package remap rewrites the client request URL before the host routes it.
//
//	[[plugin]]
//	name = "remap"
//	args = ["--map", "/api=/v2", "--host", "backend.internal", "--port", "8081"]
//
// Rules are tried in order; the first matching path prefix wins. Host,
// scheme and port overrides apply only to requests some rule matched, or to
// every request when no rules are given.
package remap

import (
	"fmt"
	"strings"

	"github.com/joeydtaylor/steeze-hook/pkg/exchange"
	"github.com/joeydtaylor/steeze-hook/pkg/hook"
	"github.com/joeydtaylor/steeze-hook/pkg/plugin"
	"go.uber.org/zap"
)

func init() { plugin.Register("remap", Bootstrap) }

type rule struct {
	from string
	to   string
}

// Remap is the configured rewriter.
type Remap struct {
	rules  []rule
	host   string
	scheme string
	port   int
	log    *zap.Logger
}

// Bootstrap registers the rewriter on pre-remap.
func Bootstrap(env plugin.Env, args []string) error {
	m, err := Parse(args)
	if err != nil {
		return err
	}
	m.log = env.Log
	return env.Registry.RegisterGlobal(hook.PreRemap, m.Handle)
}

// Parse builds a Remap from argv.
func Parse(args []string) (*Remap, error) {
	fs := plugin.FlagSet(args)
	maps := fs.StringArray("map", nil, "path prefix rewrite FROM=TO (repeatable)")
	host := fs.String("host", "", "replace the request host")
	scheme := fs.String("scheme", "", "replace the request scheme")
	port := fs.Int("port", 0, "replace the request port")
	if err := plugin.ParseFlags(fs, args); err != nil {
		return nil, err
	}
	if *port < 0 || *port > 65535 {
		return nil, fmt.Errorf("remap: port %d out of range", *port)
	}

	m := &Remap{host: *host, scheme: *scheme, port: *port, log: zap.NewNop()}
	for _, s := range *maps {
		from, to, ok := strings.Cut(s, "=")
		if !ok || !strings.HasPrefix(from, "/") || !strings.HasPrefix(to, "/") {
			return nil, fmt.Errorf("remap: bad --map %q, want /from=/to", s)
		}
		m.rules = append(m.rules, rule{from: from, to: to})
	}
	return m, nil
}

// Rewrite returns the path after applying the first matching rule.
func (m *Remap) Rewrite(path string) (string, bool) {
	for _, r := range m.rules {
		rest, ok := cutPrefix(path, r.from)
		if !ok {
			continue
		}
		if rest == "" {
			return r.to, true
		}
		return strings.TrimSuffix(r.to, "/") + rest, true
	}
	return path, false
}

// cutPrefix matches on whole path segments: /api matches /api and /api/x,
// not /apis.
func cutPrefix(path, prefix string) (string, bool) {
	if strings.HasSuffix(prefix, "/") && len(prefix) > 1 {
		prefix = strings.TrimSuffix(prefix, "/")
	}
	if prefix == "/" {
		if strings.HasPrefix(path, "/") {
			return path, true
		}
		return "", false
	}
	rest, ok := strings.CutPrefix(path, prefix)
	if !ok || (rest != "" && rest[0] != '/') {
		return "", false
	}
	return rest, true
}

func (m *Remap) Handle(v *exchange.View) hook.Outcome {
	matched := len(m.rules) == 0
	if len(m.rules) > 0 {
		path, err := v.Path()
		if err != nil {
			m.log.Warn("remap: read path", zap.Error(err))
			return hook.Error
		}
		if to, ok := m.Rewrite(path); ok {
			if err := v.SetPath(to); err != nil {
				m.log.Warn("remap: set path", zap.Error(err))
				return hook.Error
			}
			matched = true
		}
	}
	if !matched {
		return hook.Continue
	}

	if m.scheme != "" {
		if err := v.SetScheme(m.scheme); err != nil {
			m.log.Warn("remap: set scheme", zap.Error(err))
			return hook.Error
		}
	}
	if m.host != "" {
		if err := v.SetHost(m.host); err != nil {
			m.log.Warn("remap: set host", zap.Error(err))
			return hook.Error
		}
	}
	if m.port != 0 {
		if err := v.SetPort(m.port); err != nil {
			m.log.Warn("remap: set port", zap.Error(err))
			return hook.Error
		}
	}
	return hook.Continue
}
