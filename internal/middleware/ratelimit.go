package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/evp-nightshift/messenger/internal/transport"
)

// RateLimit limits requests per client IP. The key is the socket address
// unless trustProxy is set, in which case X-Forwarded-For, X-Real-IP and
// True-Client-IP win. Only enable that behind a proxy that overwrites them.
func RateLimit(requests int, window time.Duration, trustProxy bool) func(next http.Handler) http.Handler {
	if window <= 0 {
		window = time.Minute
	}

	key := httprate.KeyByIP
	if trustProxy {
		key = httprate.KeyByRealIP
	}

	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(key),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			transport.WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests, slow down")
		}),
	)
}
