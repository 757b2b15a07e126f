package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/evp-nightshift/messenger/internal/application"
	"github.com/evp-nightshift/messenger/internal/category"
	"github.com/evp-nightshift/messenger/internal/config"
	"github.com/evp-nightshift/messenger/internal/notify"
	"github.com/evp-nightshift/messenger/internal/observability"
	"github.com/evp-nightshift/messenger/internal/repository"
	"github.com/evp-nightshift/messenger/internal/repository/memory"
	"github.com/evp-nightshift/messenger/internal/repository/sqlstore"
	"github.com/evp-nightshift/messenger/internal/verification"
)

// app holds the wired dependencies shared by every subcommand.
type app struct {
	cfg       *config.Config
	log       *zap.Logger
	db        *sql.DB
	dialect   sqlstore.Dialect
	store     repository.MessageStore
	directory *category.Directory
	mailer    *notify.ResendMailer
	service   *application.Service
	redis     *redis.Client

	closers []func() error
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	observability.InitLogger(cfg.ServiceName, cfg.LogLevel)
	return cfg, nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, log: observability.Log}

	dir, err := loadDirectory(cfg)
	if err != nil {
		return nil, err
	}
	if dups := dir.Duplicates(); len(dups) > 0 {
		a.log.Warn("duplicate category labels, first entry wins", zap.Strings("labels", dups))
	}
	a.directory = dir

	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.mailer = notify.NewResendMailer(cfg.ResendAPIKey, cfg.EmailFrom)
	if !a.mailer.Configured() {
		a.log.Warn("RESEND_API_KEY is not set; every delivery will fail with a configuration error")
	}
	notifier := notify.NewNotifier(a.mailer, notify.WithReviewer(cfg.ReviewerEmail, cfg.ReviewURL))

	a.service = application.New(a.store, a.directory, notifier, notifier,
		application.WithApproval(cfg.RequireApproval),
		application.WithLocation(cfg.Location()),
	)
	return a, nil
}

func loadDirectory(cfg *config.Config) (*category.Directory, error) {
	if cfg.CategoriesFile == "" {
		return category.Default(), nil
	}
	dir, err := category.LoadFile(cfg.CategoriesFile)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	return dir, nil
}

func (a *app) openStore(ctx context.Context) error {
	if a.cfg.StoreDriver == "memory" {
		a.log.Warn("using in-memory message store; pending messages are lost on restart")
		a.store = memory.New()
		return nil
	}

	d, err := sqlstore.ParseDialect(a.cfg.StoreDriver)
	if err != nil {
		return err
	}
	db, err := sqlstore.Open(ctx, d, a.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open %s: %w", d, err)
	}
	a.db, a.dialect = db, d
	a.closers = append(a.closers, db.Close)

	a.store = sqlstore.New(db, d, sqlstore.WithOutbox(len(a.cfg.Brokers()) > 0))
	return nil
}

// verificationService prefers Redis so codes survive restarts and are shared
// across instances.
func (a *app) verificationService(ctx context.Context) (*verification.Service, error) {
	var store verification.Store
	if a.cfg.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: a.cfg.RedisAddr})
		a.closers = append(a.closers, a.redis.Close)
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		store = &verification.RedisStore{R: a.redis}
	} else {
		a.log.Warn("REDIS_ADDR is not set; verification codes are kept in process memory")
		store = verification.NewMemoryStore()
	}

	return verification.NewService(store,
		verification.LogCodeSender{DevMode: a.cfg.VerificationDevMode},
		verification.WithTTL(a.cfg.VerificationTTL),
		verification.WithDevMode(a.cfg.VerificationDevMode),
	), nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close failed", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}
