package middleware

import (
	"net/http"
	"strings"
)

// DefaultBlockedAgents are matched case-insensitively anywhere in the
// User-Agent header.
var DefaultBlockedAgents = []string{"bot", "crawler", "spider"}

// BlockAgents rejects requests whose User-Agent contains any of substrs
// with 403. An empty list disables the check.
func BlockAgents(substrs []string) func(http.Handler) http.Handler {
	lowered := make([]string, 0, len(substrs))
	for _, s := range substrs {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			lowered = append(lowered, s)
		}
	}
	return func(next http.Handler) http.Handler {
		if len(lowered) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ua := strings.ToLower(r.UserAgent())
			for _, s := range lowered {
				if strings.Contains(ua, s) {
					writeError(w, http.StatusForbidden, "Request blocked")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
