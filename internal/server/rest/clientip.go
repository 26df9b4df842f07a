package rest

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP resolves the caller's address: the first X-Forwarded-For entry,
// then X-Real-IP, then the connection's remote host. Empty and "unknown"
// header values are skipped.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); usableIP(xff) {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); usableIP(first) {
			return first
		}
	}
	if xr := strings.TrimSpace(r.Header.Get("X-Real-IP")); usableIP(xr) {
		return xr
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func usableIP(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, "unknown")
}
