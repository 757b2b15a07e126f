package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/evp-nightshift/messenger/internal/handler"
	"github.com/evp-nightshift/messenger/internal/kafka"
	"github.com/evp-nightshift/messenger/internal/observability"
	"github.com/evp-nightshift/messenger/internal/outbox"
	"github.com/evp-nightshift/messenger/internal/repository/sqlstore"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the observability server and the outbox worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "create tables before serving")
	return cmd
}

func serve(ctx context.Context, migrate bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	log := a.log

	if cfg.TracingEnabled {
		shutdown, err := observability.InitTracer(cfg.ServiceName, cfg.JaegerURL)
		if err != nil {
			return err
		}
		defer func() {
			shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := shutdown(shutCtx); err != nil {
				log.Warn("tracer shutdown failed", zap.Error(err))
			}
		}()
	}

	if migrate && a.db != nil {
		if err := sqlstore.Migrate(ctx, a.db, a.dialect); err != nil {
			return err
		}
	}

	var verH *handler.VerificationHandler
	if cfg.JWTSecret != "" {
		ver, err := a.verificationService(ctx)
		if err != nil {
			return err
		}
		verH = handler.NewVerificationHandler(ver)
	} else {
		log.Warn("JWT_SECRET is not set; reviewer routes are unauthenticated and phone verification is disabled")
	}

	mux := handler.NewRouter(
		handler.NewMessageHandler(a.service),
		handler.NewSupervisorHandler(a.service),
		verH,
		handler.RouterConfig{
			ServiceName:       cfg.ServiceName,
			JWTSecret:         cfg.JWTSecret,
			JWTIssuer:         cfg.JWTIssuer,
			JWTAudience:       cfg.JWTAudience,
			ReviewerRole:      cfg.ReviewerRole,
			RateLimitRequests: cfg.RateLimitRequests,
			RateLimitWindow:   cfg.RateLimitWindow,
			TrustProxyHeaders: cfg.TrustProxyHeaders,
			RequestTimeout:    cfg.RequestTimeout,
		},
	)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ready := map[string]observability.Pinger{}
	if a.db != nil {
		ready["database"] = a.db
	}
	if a.redis != nil {
		ready["redis"] = observability.PingFunc(func(ctx context.Context) error { return a.redis.Ping(ctx).Err() })
	}

	obsMux := chi.NewRouter()
	obsMux.Use(observability.MetricsMiddleware(cfg.ServiceName + "-obs"))
	obsMux.Handle("/metrics", promhttp.Handler())
	obsMux.Get("/health/live", observability.HealthLiveHandler)
	obsMux.Get("/health/ready", observability.HealthReadyHandler(ready))
	obsSrv := &http.Server{Addr: cfg.ObsHTTPAddr, Handler: obsMux, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("HTTP started", zap.String("addr", cfg.HTTPAddr), zap.Bool("require_approval", cfg.RequireApproval))
		return listen(srv)
	})
	g.Go(func() error {
		log.Info("Observability HTTP started", zap.String("addr", cfg.ObsHTTPAddr))
		return listen(obsSrv)
	})

	if brokers := cfg.Brokers(); len(brokers) > 0 && a.db != nil {
		producer := kafka.NewProducer(brokers)
		defer producer.Close()

		worker := outbox.NewWorker(a.db, a.dialect, producer, cfg.KafkaTopic, 100, 500*time.Millisecond)
		g.Go(func() error { return worker.Start(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")

		shutCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return errors.Join(srv.Shutdown(shutCtx), obsSrv.Shutdown(shutCtx))
	})

	err = g.Wait()
	log.Info("stopped", zap.String("service", cfg.ServiceName))
	return err
}

func listen(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
