package analytics

import (
	"net"
	"net/http"
	"strings"
)

// GetClientIP extracts client IP address from request
func GetClientIP(r *http.Request) string {
	// Try X-Forwarded-For header first (proxy/load balancer)
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		// Take the first IP if multiple
		ips := strings.Split(forwarded, ",")
		return strings.TrimSpace(ips[0])
	}

	// Try X-Real-IP header
	realIP := r.Header.Get("X-Real-IP")
	if realIP != "" {
		return realIP
	}

	// Fall back to RemoteAddr, stripping the port
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// GetUserAgent extracts user agent from request
func GetUserAgent(r *http.Request) string {
	return r.UserAgent()
}

// GetReferrer extracts referrer from request
func GetReferrer(r *http.Request) string {
	return r.Header.Get("Referer")
}
