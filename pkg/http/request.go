package http

import (
	"net/http"
	"strings"
)

const (
	// HeaderConnectingIP is injected by the Cloudflare edge and cannot be set by the client
	HeaderConnectingIP = "CF-Connecting-IP"
	HeaderForwardedFor = "X-Forwarded-For"

	// UnknownClientKey is shared by every client whose address cannot be determined
	UnknownClientKey = "unknown"
)

// ClientKey derives the rate limit key for a request.
//
// Flow:
// 1. Trusted edge header (CF-Connecting-IP)
// 2. First address in X-Forwarded-For
// 3. UnknownClientKey
func ClientKey(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get(HeaderConnectingIP)); ip != "" {
		return ip
	}

	if xff := r.Header.Get(HeaderForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	return UnknownClientKey
}
