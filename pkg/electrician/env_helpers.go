package electrician

import (
	"os"
	"strings"
)

// envOr returns the variable k, or def when k is unset or empty.
func envOr(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

// envTargets reads a comma or space separated target list.
func envTargets(k string) []string {
	return strings.FieldsFunc(os.Getenv(k), func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}

// envHeaders reads "k=v,k2=v2". Entries without '=' are skipped; keys are
// lower-cased the way the relay sends them.
func envHeaders(k string) map[string]string {
	var out map[string]string
	for _, kv := range strings.Split(os.Getenv(k), ",") {
		name, val, ok := strings.Cut(kv, "=")
		name = strings.ToLower(strings.TrimSpace(name))
		if !ok || name == "" {
			continue
		}
		if out == nil {
			out = map[string]string{}
		}
		out[name] = strings.TrimSpace(val)
	}
	return out
}
