package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/evp-nightshift/messenger/internal/domain"
)

const AggregateMessage = "message"

// Event types written to outbox_events.
const (
	EventMessagePending  = "MESSAGE_PENDING"
	EventMessageSent     = "MESSAGE_SENT"
	EventMessageRejected = "MESSAGE_REJECTED"
)

// LifecycleEvent is the outbox payload. It never carries submitter identity.
type LifecycleEvent struct {
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	MessageID  int64     `json:"message_id"`
	Category   string    `json:"category"`
	Status     string    `json:"status"`
	Anonymous  bool      `json:"is_anonymous"`
	Timestamp  string    `json:"timestamp"`
	OccurredAt time.Time `json:"occurred_at"`
}

func eventType(s domain.Status) (string, bool) {
	switch s {
	case domain.StatusPending:
		return EventMessagePending, true
	case domain.StatusSent:
		return EventMessageSent, true
	case domain.StatusRejected:
		return EventMessageRejected, true
	}
	return "", false
}

func (r *Repo) insertOutbox(ctx context.Context, tx *sql.Tx, msg *domain.Message, status domain.Status) error {
	typ, ok := eventType(status)
	if !ok {
		return nil
	}

	now := r.now().UTC()
	ev := LifecycleEvent{
		EventID:    uuid.NewString(),
		Type:       typ,
		MessageID:  msg.ID,
		Category:   msg.Category,
		Status:     string(status),
		Anonymous:  msg.Anonymous,
		Timestamp:  msg.Timestamp,
		OccurredAt: now,
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal lifecycle event: %w", err)
	}

	_, err = tx.ExecContext(ctx, r.dialect.Rebind(`
		INSERT INTO outbox_events (event_id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`),
		ev.EventID, AggregateMessage, strconv.FormatInt(msg.ID, 10), typ, payload, now)
	if err != nil {
		return fmt.Errorf("failed to save outbox event: %w", err)
	}
	return nil
}
