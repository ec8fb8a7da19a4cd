package netutil

import (
	"net/http"
	"net/netip"
	"strings"
	"unicode/utf8"
)

const MaxUserAgentLength = 512

// NormalizeIP accepts a bare IP or an address with a port ("192.0.2.4:1234",
// "[2001:db8::1]:443") and returns the canonical IP without zone. The bool is
// false when raw does not contain an IP.
func NormalizeIP(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if ap, err := netip.ParseAddrPort(raw); err == nil {
		return canonical(ap.Addr())
	}
	if addr, err := netip.ParseAddr(raw); err == nil {
		return canonical(addr)
	}
	host := raw
	if strings.HasPrefix(raw, "[") {
		if end := strings.LastIndex(raw, "]"); end > 0 {
			host = raw[1:end]
		}
	} else if idx := strings.LastIndex(raw, ":"); idx > 0 {
		host = raw[:idx]
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		return canonical(addr)
	}
	return raw, false
}

func canonical(addr netip.Addr) (string, bool) {
	addr = addr.WithZone("").Unmap()
	if !addr.IsValid() {
		return "", false
	}
	return addr.String(), true
}

// ClientIP returns the caller address. Forwarding headers are only honoured
// when trustProxy is set.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip, ok := NormalizeIP(first); ok {
				return ip
			}
		}
		if ip, ok := NormalizeIP(r.Header.Get("X-Real-IP")); ok {
			return ip
		}
	}
	if ip, ok := NormalizeIP(r.RemoteAddr); ok {
		return ip
	}
	return strings.TrimSpace(r.RemoteAddr)
}

// TruncateUserAgent trims ua to MaxUserAgentLength runes.
func TruncateUserAgent(ua string) string {
	if utf8.RuneCountInString(ua) <= MaxUserAgentLength {
		return ua
	}
	count := 0
	for i := range ua {
		if count == MaxUserAgentLength {
			return ua[:i]
		}
		count++
	}
	return ua
}
