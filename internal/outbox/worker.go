// Package outbox drains lifecycle events written alongside message state
// changes and hands them to Kafka.
package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/evp-nightshift/messenger/internal/observability"
	"github.com/evp-nightshift/messenger/internal/repository/sqlstore"
)

type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type Worker struct {
	DB        *sql.DB
	Dialect   sqlstore.Dialect
	Producer  Publisher
	Topic     string
	BatchSize int
	PollDelay time.Duration

	now func() time.Time
}

func NewWorker(db *sql.DB, d sqlstore.Dialect, p Publisher, topic string, batchSize int, delay time.Duration) *Worker {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Worker{
		DB:        db,
		Dialect:   d,
		Producer:  p,
		Topic:     topic,
		BatchSize: batchSize,
		PollDelay: delay,
		now:       time.Now,
	}
}

// Start polls until ctx is cancelled. It always returns nil so it can run
// under an errgroup without tearing the server down on a broker outage.
func (w *Worker) Start(ctx context.Context) error {
	log := observability.Log.With(zap.String("component", "outbox"))
	log.Info("outbox worker started", zap.String("topic", w.Topic))
	for {
		n, err := w.processBatch(ctx)
		if err != nil && ctx.Err() == nil {
			log.Error("outbox batch failed", zap.Error(err))
		}

		delay := w.PollDelay
		if err != nil {
			delay = time.Second
		} else if n == w.BatchSize {
			delay = 0
		}

		select {
		case <-ctx.Done():
			log.Info("outbox worker stopping")
			return nil
		case <-time.After(delay):
		}
	}
}

type event struct {
	seq         int64
	aggregateID string
	eventType   string
	payload     []byte
}

func (w *Worker) selectQuery() string {
	q := `
		SELECT seq, aggregate_id, event_type, payload
		FROM outbox_events
		WHERE processed_at IS NULL
		ORDER BY seq`
	if w.Dialect == sqlstore.Postgres {
		q += `
		FOR UPDATE SKIP LOCKED`
	}
	return w.Dialect.Rebind(q + `
		LIMIT $1`)
}

// processBatch publishes up to BatchSize events in seq order and marks them
// processed. Delivery to Kafka is at least once.
func (w *Worker) processBatch(ctx context.Context) (int, error) {
	if w.Dialect == sqlstore.Postgres {
		return w.processLocked(ctx)
	}
	return w.processUnlocked(ctx)
}

// processLocked holds the row locks for the whole batch so concurrent
// workers skip each other's events. A publish failure rolls the batch back.
func (w *Worker) processLocked(ctx context.Context) (int, error) {
	tx, err := w.DB.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	events, err := w.load(ctx, tx)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	for _, e := range events {
		if err := w.publish(ctx, e); err != nil {
			return 0, err
		}
		if _, err := tx.ExecContext(ctx, w.markQuery(), w.now().UTC(), e.seq); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(events), nil
}

// processUnlocked publishes with no transaction open. SQLite runs on a single
// pooled connection, so a transaction held across a slow broker would block
// every store call. SQLite deployments run one worker, which makes the
// unlocked read safe. Events published before a failure are still marked.
func (w *Worker) processUnlocked(ctx context.Context) (int, error) {
	events, err := w.load(ctx, w.DB)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	done := make([]int64, 0, len(events))
	var pubErr error
	for _, e := range events {
		if pubErr = w.publish(ctx, e); pubErr != nil {
			break
		}
		done = append(done, e.seq)
	}

	if err := w.markProcessed(ctx, done); err != nil {
		return 0, errors.Join(pubErr, err)
	}
	if pubErr != nil {
		return len(done), pubErr
	}
	return len(done), nil
}

func (w *Worker) markProcessed(ctx context.Context, seqs []int64) error {
	if len(seqs) == 0 {
		return nil
	}
	tx, err := w.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := w.now().UTC()
	for _, seq := range seqs {
		if _, err := tx.ExecContext(ctx, w.markQuery(), now, seq); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (w *Worker) publish(ctx context.Context, e event) error {
	if err := w.Producer.Publish(ctx, w.Topic, []byte(e.aggregateID), e.payload); err != nil {
		observability.OutboxEventsPublishedTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("publish %s for message %s: %w", e.eventType, e.aggregateID, err)
	}
	observability.OutboxEventsPublishedTotal.WithLabelValues("ok").Inc()
	return nil
}

func (w *Worker) markQuery() string {
	return w.Dialect.Rebind(`UPDATE outbox_events SET processed_at = $1 WHERE seq = $2`)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func (w *Worker) load(ctx context.Context, q querier) ([]event, error) {
	rows, err := q.QueryContext(ctx, w.selectQuery(), w.BatchSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []event
	for rows.Next() {
		var e event
		if err := rows.Scan(&e.seq, &e.aggregateID, &e.eventType, &e.payload); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
