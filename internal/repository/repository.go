package repository

import (
	"context"

	"github.com/evp-nightshift/messenger/internal/domain"
)

// MessageStore persists submitted messages.
//
// Transition is the only mutation after Create. It must be a single atomic
// conditional write: the row changes only if its current status equals from,
// and the returned bool reports whether it did. Two concurrent callers racing
// on the same (id, from) therefore see exactly one true.
type MessageStore interface {
	Create(ctx context.Context, msg *domain.Message) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Message, error)
	ListByStatus(ctx context.Context, status domain.Status) ([]*domain.Message, error)
	Transition(ctx context.Context, id int64, from, to domain.Status) (bool, error)
}
