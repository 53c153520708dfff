package middleware

import (
	"net"
	"net/http"
	"strings"
)

// RealIP rewrites RemoteAddr to the client address reported by the last
// trustedProxies hops of X-Forwarded-For. Entries left of those hops are
// written by the client and ignored. With trustedProxies == 0, or when the
// header has fewer entries than trusted hops, RemoteAddr is left untouched.
func RealIP(trustedProxies int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ip := forwardedFor(r.Header.Values("X-Forwarded-For"), trustedProxies); ip != "" {
				r.RemoteAddr = ip
			}
			next.ServeHTTP(w, r)
		})
	}
}

// forwardedFor returns the hop appended by the outermost trusted proxy.
func forwardedFor(headers []string, trustedProxies int) string {
	if trustedProxies <= 0 {
		return ""
	}

	var hops []string
	for _, h := range headers {
		for _, hop := range strings.Split(h, ",") {
			if hop = strings.TrimSpace(hop); hop != "" {
				hops = append(hops, hop)
			}
		}
	}
	if len(hops) < trustedProxies {
		return ""
	}

	ip := net.ParseIP(hops[len(hops)-trustedProxies])
	if ip == nil {
		return ""
	}
	return ip.String()
}

// getClientIP is the connection address with the port stripped. Proxy
// headers are only honored through RealIP.
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
