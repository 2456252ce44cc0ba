package plugin

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
)

// FlagSet returns a flag set named after the plugin that reports errors
// instead of exiting.
func FlagSet(args []string) *pflag.FlagSet {
	name := "plugin"
	if len(args) > 0 && args[0] != "" {
		name = args[0]
	}
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// ParseFlags parses everything after the plugin name. Positional arguments
// are rejected.
func ParseFlags(fs *pflag.FlagSet, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%s: empty argv", fs.Name())
	}
	if err := fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("%s: %w", fs.Name(), err)
	}
	if rest := fs.Args(); len(rest) > 0 {
		return fmt.Errorf("%s: unexpected arguments %s", fs.Name(), strings.Join(rest, " "))
	}
	return nil
}
