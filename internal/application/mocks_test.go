package application

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/evp-nightshift/messenger/internal/category"
	"github.com/evp-nightshift/messenger/internal/domain"
	"github.com/evp-nightshift/messenger/internal/notify"
	"github.com/evp-nightshift/messenger/internal/repository/memory"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, env notify.Envelope) error {
	args := m.Called(ctx, env)
	return args.Error(0)
}

type MockReviewer struct {
	mock.Mock
}

func (m *MockReviewer) NotifyReviewer(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Create(ctx context.Context, msg *domain.Message) (int64, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) Get(ctx context.Context, id int64) (*domain.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockStore) ListByStatus(ctx context.Context, status domain.Status) ([]*domain.Message, error) {
	args := m.Called(ctx, status)
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func (m *MockStore) Transition(ctx context.Context, id int64, from, to domain.Status) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

// recordingSender captures envelopes and can be told to fail.
type recordingSender struct {
	mu    sync.Mutex
	sent  []notify.Envelope
	err   error
	delay time.Duration
}

func (r *recordingSender) Send(_ context.Context, env notify.Envelope) error {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, env)
	return nil
}

func (r *recordingSender) calls() []notify.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Envelope(nil), r.sent...)
}

type nopReviewer struct{}

func (nopReviewer) NotifyReviewer(context.Context, *domain.Message) error { return nil }

var fixedNow = time.Date(2026, 10, 18, 2, 30, 0, 0, time.UTC)

func testDirectory() *category.Directory {
	return category.New([]category.Mapping{
		{Label: "General Inquiry", RecipientName: "Office Staff", Email: "office@example.org", PhoneExt: "204"},
		{Label: "Payroll", RecipientName: "Payroll Team", Email: "payroll@example.org"},
		{Label: category.AnonymousFeedback, RecipientName: "HR", Email: "hr@example.org", Anonymous: true},
	})
}

func newService(t interface{ Helper() }, store *memory.Store, sender Sender, approval bool) *Service {
	t.Helper()
	halifax, err := time.LoadLocation("America/Halifax")
	if err != nil {
		halifax = time.UTC
	}
	return New(store, testDirectory(), sender, nopReviewer{},
		WithApproval(approval),
		WithClock(func() time.Time { return fixedNow }),
		WithLocation(halifax),
	)
}

func generalInquiry() SubmitCommand {
	return SubmitCommand{
		Category:       "General Inquiry",
		Topic:          "Broken light",
		Body:           "Hallway light out",
		SubmitterName:  domain.StringPtr("A. Worker"),
		SubmitterEmail: domain.StringPtr("a@x.com"),
	}
}
