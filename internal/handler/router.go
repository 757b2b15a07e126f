package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/evp-nightshift/messenger/internal/middleware"
	"github.com/evp-nightshift/messenger/internal/observability"
)

type RouterConfig struct {
	ServiceName string

	// Empty JWTSecret leaves the reviewer routes open and the phone
	// verification route unmounted.
	JWTSecret    string
	JWTIssuer    string
	JWTAudience  string
	ReviewerRole string

	RateLimitRequests int
	RateLimitWindow   time.Duration
	TrustProxyHeaders bool
	RequestTimeout    time.Duration
}

func NewRouter(
	msgH *MessageHandler,
	supH *SupervisorHandler,
	verH *VerificationHandler,
	cfg RouterConfig,
) http.Handler {

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(observability.MetricsMiddleware(cfg.ServiceName))
	r.Use(middleware.Recovery())
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	sendLimit := middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow, cfg.TrustProxyHeaders)
	verifyLimit := middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow, cfg.TrustProxyHeaders)

	r.Route("/api", func(api chi.Router) {
		api.With(sendLimit).Post("/send", msgH.Send)
		api.Get("/categories", msgH.Categories)

		api.Route("/supervisor", func(sup chi.Router) {
			if cfg.JWTSecret != "" {
				sup.Use(middleware.JWT(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience))
				sup.Use(middleware.RequireRole(cfg.ReviewerRole))
			}
			sup.Get("/messages", supH.Messages)
			sup.Post("/action", supH.Action)
		})

		if cfg.JWTSecret != "" && verH != nil {
			api.With(
				middleware.JWT(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience),
				verifyLimit,
			).Post("/auth/verify-phone", verH.VerifyPhone)
		}
	})

	return otelhttp.NewHandler(r, cfg.ServiceName)
}
