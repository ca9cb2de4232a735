// internal/app/system/network/ip.go

// Package network extracts and normalizes client addresses.
package network

import (
	"net"
	"net/http"
	"strings"
)

// clientIPHeaders is the proxy header priority order. The CDN header
// comes first because it is set by the edge and cannot be spoofed past
// it; the generic forwarding headers follow.
var clientIPHeaders = []string{
	"CF-Connecting-IP",
	"X-Real-IP",
	"X-Forwarded-For",
	"Client-IP",
}

// ClientIP extracts the client IP address from the request.
// It walks the proxy headers in priority order, taking the first
// address from comma-separated forwarding chains (leftmost is the
// original client), and falls back to RemoteAddr with the port
// stripped.
func ClientIP(r *http.Request) string {
	for _, h := range clientIPHeaders {
		v := r.Header.Get(h)
		if v == "" {
			continue
		}
		if idx := strings.Index(v, ","); idx != -1 {
			v = v[:idx]
		}
		return strings.TrimSpace(v)
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// PackIP validates addr as an IPv4 or IPv6 literal and returns its raw
// binary form, 4 bytes for IPv4 and 16 for IPv6. Unparsable input
// returns nil; address capture is best-effort and an event without an
// IP is still worth storing.
//
// When anonymize is set the host portion is zeroed: the last octet for
// IPv4, the bottom 64 bits for IPv6. Anonymization is idempotent.
func PackIP(addr string, anonymize bool) []byte {
	ip := net.ParseIP(strings.TrimSpace(addr))
	if ip == nil {
		return nil
	}

	if v4 := ip.To4(); v4 != nil {
		out := make([]byte, net.IPv4len)
		copy(out, v4)
		if anonymize {
			out[3] = 0
		}
		return out
	}

	out := make([]byte, net.IPv6len)
	copy(out, ip.To16())
	if anonymize {
		for i := 8; i < net.IPv6len; i++ {
			out[i] = 0
		}
	}
	return out
}
