package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/evp-nightshift/messenger/internal/observability"
	"github.com/evp-nightshift/messenger/internal/transport"
)

func Recovery() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log := observability.GetLogger(r.Context())
					log.Error("panic_recovered",
						zap.Any("error", rec),
						zap.Stack("stack"),
					)

					transport.WriteError(
						w,
						http.StatusInternalServerError,
						"internal_error",
						"internal server error",
					)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
