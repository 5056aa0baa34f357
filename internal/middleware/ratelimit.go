package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"

	"storefront/internal/metrics"
	"storefront/internal/ratelimit"

	"github.com/rs/zerolog"
)

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(r *http.Request) string

// ByClientIP keys requests on the caller's address.
func ByClientIP(r *http.Request) string {
	return "ip:" + ClientIP(r)
}

// BySessionOrIP keys authenticated requests on the user and anonymous ones on the address.
func BySessionOrIP(r *http.Request) string {
	if s, ok := SessionFromContext(r.Context()); ok {
		return "user:" + s.UserID
	}
	return ByClientIP(r)
}

// RateLimitMiddleware answers 429 once the limiter rejects a key. A failing limiter
// lets requests through.
func RateLimitMiddleware(l ratelimit.Limiter, resource string, key KeyFunc, m metrics.Metrics, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := l.Allow(r.Context(), resource+":"+key(r))
			if err != nil {
				logger.Error().Err(err).Str("resource", resource).Msg("Rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}
			if !res.Allowed {
				m.RecordRateLimitExceeded(resource)
				secs := max(int(res.RetryAfter.Seconds()+0.999), 1)
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				http.Error(w, "rate limit exceeded, try again later", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the client IP, preferring proxy headers if available.
func ClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.SplitN(xff, ",", 2)
		return strings.TrimSpace(parts[0])
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

const clientIPContextKey = contextKey("client_ip")

// ClientIPMiddleware records the caller's address for handlers that never see the request.
func ClientIPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), clientIPContextKey, ClientIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIPFromContext returns the address stored by ClientIPMiddleware, or "".
func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPContextKey).(string)
	return ip
}
