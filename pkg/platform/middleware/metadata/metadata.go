// Package metadata records the caller's address and user agent in the
// request context. Reset sessions and audit events read them from there.
package metadata

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"idmcore/pkg/requestcontext"
)

// maxForwardedLength bounds X-Forwarded-For and X-Real-IP before parsing.
const maxForwardedLength = 512

// ClientMetadata only honours forwarding headers from peers inside trusted.
type ClientMetadata struct {
	trusted []netip.Prefix
}

func New(trusted ...netip.Prefix) *ClientMetadata {
	return &ClientMetadata{trusted: trusted}
}

// ParseTrustedProxies reads CIDR strings such as "10.0.0.0/8".
func ParseTrustedProxies(cidrs []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(cidrs))
	for _, raw := range cidrs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		p, err := netip.ParsePrefix(raw)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
		}
		prefixes = append(prefixes, p.Masked())
	}
	return prefixes, nil
}

func (m *ClientMetadata) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), m.clientIP(r), r.Header.Get("User-Agent"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *ClientMetadata) clientIP(r *http.Request) string {
	peer, ok := peerAddr(r.RemoteAddr)
	if !ok {
		return "unknown"
	}
	if !m.isTrusted(peer) {
		return peer.String()
	}
	if forwarded, ok := firstForwarded(r.Header.Get("X-Forwarded-For")); ok {
		return forwarded.String()
	}
	if realIP, ok := firstForwarded(r.Header.Get("X-Real-IP")); ok {
		return realIP.String()
	}
	return peer.String()
}

func (m *ClientMetadata) isTrusted(addr netip.Addr) bool {
	for _, p := range m.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// firstForwarded returns the original client, the left-most hop.
func firstForwarded(header string) (netip.Addr, bool) {
	if header == "" || len(header) > maxForwardedLength {
		return netip.Addr{}, false
	}
	first, _, _ := strings.Cut(header, ",")
	addr, err := netip.ParseAddr(strings.TrimSpace(first))
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

func peerAddr(remote string) (netip.Addr, bool) {
	if remote == "" {
		return netip.Addr{}, false
	}
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		host = strings.Trim(remote, "[]")
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}
