package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
)

// New picks the distributed backend when a Redis client is given, otherwise local.
func New(config Config, redis RedisInterface) (Limiter, error) {
	if redis != nil {
		return NewDistributed(config, redis)
	}
	return NewLocal(config)
}

// HTTPMiddleware rejects requests over the limit with 429 and the same JSON
// envelope the gate endpoints answer with.
func HTTPMiddleware(limiter Limiter, keyFunc func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter.Allow(keyFunc(r)) {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"data":    "Too many requests. Please try again shortly.",
			})
		})
	}
}

// IPKey keys requests by the connecting address and ignores forwarding
// headers, which any client can set.
func IPKey(r *http.Request) string {
	return "ip:" + remoteIP(r)
}

// IPKeyFunc keys requests by client IP. X-Forwarded-For and X-Real-IP are
// honoured only when the connecting address is one of the trusted proxies;
// the client is then the right-most forwarded hop that is not a trusted proxy.
func IPKeyFunc(trusted []*net.IPNet) func(*http.Request) string {
	if len(trusted) == 0 {
		return IPKey
	}

	isTrusted := func(raw string) bool {
		ip := net.ParseIP(raw)
		if ip == nil {
			return false
		}
		for _, n := range trusted {
			if n.Contains(ip) {
				return true
			}
		}
		return false
	}

	return func(r *http.Request) string {
		remote := remoteIP(r)
		if !isTrusted(remote) {
			return "ip:" + remote
		}

		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			hops := strings.Split(xff, ",")
			for i := len(hops) - 1; i >= 0; i-- {
				hop := strings.TrimSpace(hops[i])
				if net.ParseIP(hop) == nil {
					break
				}
				if !isTrusted(hop) || i == 0 {
					return "ip:" + hop
				}
			}
		}
		if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(realIP) != nil {
			return "ip:" + realIP
		}
		return "ip:" + remote
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return host
}
