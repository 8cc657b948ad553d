package handlers

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// RateLimiter is the minimal interface required to guard sensitive endpoints.
type RateLimiter interface {
	Allow(key string) bool
}

// throttled answers 429 and returns true when the caller has exhausted its
// budget for scope. A nil limiter never throttles.
func throttled(ctx context.Context, w http.ResponseWriter, r *http.Request, limiter RateLimiter, scope string) bool {
	if limiter == nil || limiter.Allow(limiterKey(r, scope)) {
		return false
	}
	respondError(ctx, w, http.StatusTooManyRequests, "Too many requests, please try again later")
	return true
}

func limiterKey(r *http.Request, scope string) string {
	return scope + ":" + clientIP(r)
}

// clientIP takes the first parseable address from X-Forwarded-For, then
// X-Real-IP, then the socket peer.
func clientIP(r *http.Request) string {
	first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
	for _, candidate := range []string{first, r.Header.Get("X-Real-IP")} {
		if addr, err := netip.ParseAddr(strings.TrimSpace(candidate)); err == nil {
			return addr.Unmap().String()
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
