package httpx

import (
	"net"
	"strings"
)

// HeaderGetter is satisfied by http.Header and by a huma.Context's Header method
// value wrapped in HeaderFunc.
type HeaderGetter interface {
	Get(key string) string
}

// HeaderFunc adapts a lookup function to HeaderGetter.
type HeaderFunc func(string) string

func (f HeaderFunc) Get(key string) string { return f(key) }

// ClientIP resolves the caller address behind proxies: first hop of
// X-Forwarded-For, then X-Real-IP, then X-Client-IP, then the socket address.
func ClientIP(h HeaderGetter, remoteAddr string) string {
	if xff := h.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(h.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if ip := strings.TrimSpace(h.Get("X-Client-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
