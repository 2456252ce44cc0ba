package logger

import (
	"net/http"
	"strings"
)

const maxLoggedBody = 1 << 16 // 64 KiB

// Only small JSON request bodies on allowlisted routes are read at all.
func (m *Middleware) wantsBody(r *http.Request) bool {
	if len(m.bodyPaths) == 0 || r.Body == nil || r.Body == http.NoBody {
		return false
	}
	if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
		return false
	}
	if r.ContentLength > maxLoggedBody {
		return false
	}
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return false
	}
	_, ok := m.bodyPaths[r.URL.Path]
	return ok
}

func loggable(body []byte) bool {
	return len(body) > 0 && len(body) <= maxLoggedBody
}
