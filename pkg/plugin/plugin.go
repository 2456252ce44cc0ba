// Package plugin bootstraps named plugins against a hook registry.
//
// Plugins register a Bootstrap under a name at init time. The server then
// loads the [[plugin]] entries from its manifest in order; each Bootstrap
// receives an argv-style slice whose first element is the plugin name.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/joeydtaylor/steeze-hook/pkg/electrician"
	"github.com/joeydtaylor/steeze-hook/pkg/hook"
	"github.com/joeydtaylor/steeze-hook/pkg/manifest"
	"go.uber.org/zap"
)

// ErrUnknownPlugin is returned by Load for a name nothing registered.
var ErrUnknownPlugin = errors.New("plugin: unknown plugin")

// Env is what a plugin gets to work with.
type Env struct {
	// Ctx is canceled when the server shuts down. Goroutines a plugin starts
	// should watch it.
	Ctx      context.Context
	Registry *hook.Registry
	Log      *zap.Logger
	Relay    electrician.RelayClient
}

// Bootstrap is a plugin entry point. args[0] is the plugin name.
type Bootstrap func(env Env, args []string) error

var (
	mu  sync.RWMutex
	reg = map[string]Bootstrap{}
)

// Register makes a plugin available under name. It panics on an empty name,
// a nil bootstrap, or a duplicate.
func Register(name string, b Bootstrap) {
	if name == "" || b == nil {
		panic("plugin: name and bootstrap required")
	}
	mu.Lock()
	defer mu.Unlock()
	if _, dup := reg[name]; dup {
		panic("plugin: duplicate " + name)
	}
	reg[name] = b
}

// Lookup retrieves a registered plugin by name.
func Lookup(name string) (Bootstrap, bool) {
	mu.RLock()
	defer mu.RUnlock()
	b, ok := reg[name]
	return b, ok
}

// Names lists registered plugins, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(reg))
	for n := range reg {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Load runs each plugin's bootstrap in order and stops at the first failure.
func Load(env Env, plugins []manifest.Plugin) error {
	if env.Registry == nil {
		return errors.New("plugin: nil registry")
	}
	if env.Ctx == nil {
		env.Ctx = context.Background()
	}
	if env.Log == nil {
		env.Log = zap.NewNop()
	}
	if env.Relay == nil {
		env.Relay = electrician.NewLogRelay(env.Log)
	}
	for _, p := range plugins {
		b, ok := Lookup(p.Name)
		if !ok {
			return fmt.Errorf("%w: %q (have %v)", ErrUnknownPlugin, p.Name, Names())
		}
		pe := env
		pe.Log = env.Log.Named(p.Name)
		if err := b(pe, p.Argv()); err != nil {
			return fmt.Errorf("plugin %s: %w", p.Name, err)
		}
		env.Log.Info("plugin loaded", zap.String("plugin", p.Name), zap.Strings("args", p.Args))
	}
	return nil
}
