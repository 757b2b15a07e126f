package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/evp-nightshift/messenger/internal/domain"
	"github.com/evp-nightshift/messenger/internal/tx"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Repo is a repository.MessageStore over database/sql.
type Repo struct {
	db      *sql.DB
	dialect Dialect
	tx      *tx.Manager
	outbox  bool
	now     func() time.Time
}

type Option func(*Repo)

// WithOutbox makes Create and terminal transitions write a lifecycle event
// row in the same transaction.
func WithOutbox(enabled bool) Option {
	return func(r *Repo) { r.outbox = enabled }
}

func WithClock(now func() time.Time) Option {
	return func(r *Repo) {
		if now != nil {
			r.now = now
		}
	}
}

func New(db *sql.DB, d Dialect, opts ...Option) *Repo {
	r := &Repo{
		db:      db,
		dialect: d,
		tx:      &tx.Manager{DB: db},
		now:     time.Now,
	}
	if d == Postgres {
		r.tx.Isolation = sql.LevelReadCommitted
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

const messageColumns = `id, category, recipient_name, recipient_email, recipient_phone_ext,
	worker_name, worker_email, worker_phone, is_anonymous, topic, message, "timestamp", status, created_at`

func (r *Repo) Create(ctx context.Context, msg *domain.Message) (int64, error) {
	if msg.Status == "" {
		msg.Status = domain.StatusPending
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = r.now().UTC()
	}

	if !r.outbox {
		return r.insertMessage(ctx, r.db, msg)
	}

	var id int64
	err := r.tx.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		id, err = r.insertMessage(ctx, tx, msg)
		if err != nil {
			return err
		}
		stored := *msg
		stored.ID = id
		return r.insertOutbox(ctx, tx, &stored, msg.Status)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Repo) insertMessage(ctx context.Context, q querier, msg *domain.Message) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, r.dialect.Rebind(`
		INSERT INTO messages (category, recipient_name, recipient_email, recipient_phone_ext,
			worker_name, worker_email, worker_phone, is_anonymous, topic, message, "timestamp", status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`),
		msg.Category, msg.RecipientName, msg.RecipientEmail, msg.RecipientPhoneExt,
		msg.SubmitterName, msg.SubmitterEmail, msg.SubmitterPhone, msg.Anonymous,
		msg.Topic, msg.Body, msg.Timestamp, string(msg.Status), msg.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert message: %w", err)
	}
	return id, nil
}

func (r *Repo) Get(ctx context.Context, id int64) (*domain.Message, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind(
		`SELECT `+messageColumns+` FROM messages WHERE id = $1`), id)

	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message: %w", err)
	}
	return msg, nil
}

func (r *Repo) ListByStatus(ctx context.Context, status domain.Status) ([]*domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(`
		SELECT `+messageColumns+`
		FROM messages
		WHERE status = $1
		ORDER BY created_at DESC, id DESC`), string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var out []*domain.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

// Transition is a single conditional UPDATE; the status predicate in the
// WHERE clause makes concurrent callers serialize on the row.
func (r *Repo) Transition(ctx context.Context, id int64, from, to domain.Status) (bool, error) {
	if !domain.CanTransition(from, to) {
		return false, fmt.Errorf("illegal transition %s -> %s", from, to)
	}

	if !r.outbox || !to.Terminal() {
		return r.updateStatus(ctx, r.db, id, from, to)
	}

	var changed bool
	err := r.tx.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		changed, err = r.updateStatus(ctx, tx, id, from, to)
		if err != nil || !changed {
			return err
		}
		msg, err := scanMessage(tx.QueryRowContext(ctx, r.dialect.Rebind(
			`SELECT `+messageColumns+` FROM messages WHERE id = $1`), id))
		if err != nil {
			return fmt.Errorf("failed to reload message: %w", err)
		}
		return r.insertOutbox(ctx, tx, msg, to)
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

func (r *Repo) updateStatus(ctx context.Context, q querier, id int64, from, to domain.Status) (bool, error) {
	res, err := q.ExecContext(ctx, r.dialect.Rebind(
		`UPDATE messages SET status = $1 WHERE id = $2 AND status = $3`),
		string(to), id, string(from))
	if err != nil {
		return false, fmt.Errorf("failed to update message status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(s scanner) (*domain.Message, error) {
	var (
		m                  domain.Message
		status             string
		name, email, phone sql.NullString
	)
	err := s.Scan(&m.ID, &m.Category, &m.RecipientName, &m.RecipientEmail, &m.RecipientPhoneExt,
		&name, &email, &phone, &m.Anonymous, &m.Topic, &m.Body, &m.Timestamp, &status, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	m.Status = domain.Status(status)
	m.SubmitterName = nullable(name)
	m.SubmitterEmail = nullable(email)
	m.SubmitterPhone = nullable(phone)
	return &m, nil
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
