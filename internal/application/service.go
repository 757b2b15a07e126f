// Package application implements the message submission and approval
// workflows.
package application

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/evp-nightshift/messenger/internal/category"
	"github.com/evp-nightshift/messenger/internal/domain"
	"github.com/evp-nightshift/messenger/internal/notify"
	"github.com/evp-nightshift/messenger/internal/repository"
)

// TimestampLayout is the human-readable submission time carried on every
// message and email.
const TimestampLayout = "Monday, January 2, 2006 at 3:04:05 PM MST"

type Sender interface {
	Send(ctx context.Context, env notify.Envelope) error
}

type ReviewerNotifier interface {
	NotifyReviewer(ctx context.Context, msg *domain.Message) error
}

type Service struct {
	store           repository.MessageStore
	directory       *category.Directory
	sender          Sender
	reviewer        ReviewerNotifier
	requireApproval bool
	now             func() time.Time
	loc             *time.Location
	validate        *validator.Validate
}

type Option func(*Service)

func WithApproval(required bool) Option {
	return func(s *Service) { s.requireApproval = required }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func New(store repository.MessageStore, dir *category.Directory, sender Sender, reviewer ReviewerNotifier, opts ...Option) *Service {
	s := &Service{
		store:     store,
		directory: dir,
		sender:    sender,
		reviewer:  reviewer,
		now:       time.Now,
		loc:       time.UTC,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) RequireApproval() bool { return s.requireApproval }

func (s *Service) Categories() []category.Mapping { return s.directory.Mappings() }

func (s *Service) timestamp() string {
	return s.now().In(s.loc).Format(TimestampLayout)
}
