// Package verification issues and checks one-time phone verification codes.
package verification

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/evp-nightshift/messenger/internal/domain"
	"github.com/evp-nightshift/messenger/internal/observability"
)

var (
	ErrPhoneRequired = &domain.ValidationError{Reason: "Phone number is required"}
	ErrCodeRequired  = &domain.ValidationError{Reason: "Code and phone number are required"}
	ErrNoCode        = &domain.ValidationError{Reason: "No verification code found. Please request a new one."}
	ErrCodeExpired   = &domain.ValidationError{Reason: "Verification code expired. Please request a new one."}
	ErrPhoneMismatch = &domain.ValidationError{Reason: "Phone number mismatch"}
	ErrInvalidCode   = &domain.ValidationError{Reason: "Invalid verification code"}
	ErrTooManyTries  = &domain.ValidationError{Reason: "Too many failed attempts. Please request a new code."}
)

const (
	DefaultTTL         = 10 * time.Minute
	DefaultMaxAttempts = 5
)

// CodeSender delivers a code to a phone.
type CodeSender interface {
	SendCode(ctx context.Context, phone, code string) error
}

// LogCodeSender writes codes to the log in place of an SMS gateway. The code
// itself is only logged in dev mode.
type LogCodeSender struct {
	DevMode bool
}

func (s LogCodeSender) SendCode(ctx context.Context, phone, code string) error {
	fields := []zap.Field{zap.String("phone", maskPhone(phone))}
	if s.DevMode {
		fields = append(fields, zap.String("code", code))
	}
	observability.GetLogger(ctx).Info("verification code issued", fields...)
	return nil
}

func maskPhone(p string) string {
	if len(p) <= 4 {
		return "****"
	}
	return "****" + p[len(p)-4:]
}

type Service struct {
	store    Store
	sender   CodeSender
	ttl      time.Duration
	devMode  bool
	hashCost int
	maxTries int
	now      func() time.Time
}

type Option func(*Service)

func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithDevMode makes Send return the code to the caller.
func WithDevMode(dev bool) Option {
	return func(s *Service) { s.devMode = dev }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMaxAttempts sets how many wrong codes burn the current one.
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxTries = n
		}
	}
}

func WithHashCost(cost int) Option {
	return func(s *Service) { s.hashCost = cost }
}

func NewService(store Store, sender CodeSender, opts ...Option) *Service {
	s := &Service{
		store:    store,
		sender:   sender,
		ttl:      DefaultTTL,
		hashCost: bcrypt.DefaultCost,
		maxTries: DefaultMaxAttempts,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type SendResult struct {
	Message string
	Code    string
}

// Send issues a fresh code for userID, replacing any earlier one.
func (s *Service) Send(ctx context.Context, userID, phone string) (*SendResult, error) {
	if phone == "" {
		return nil, ErrPhoneRequired
	}

	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash code: %w", err)
	}

	entry := Code{Hash: hash, Phone: phone, ExpiresAt: s.now().Add(s.ttl)}
	if err := s.store.Put(ctx, userID, entry, s.ttl); err != nil {
		return nil, fmt.Errorf("store code: %w", err)
	}
	if err := s.sender.SendCode(ctx, phone, code); err != nil {
		return nil, fmt.Errorf("send code: %w", err)
	}

	if s.devMode {
		return &SendResult{Message: "Verification code sent", Code: code}, nil
	}
	return &SendResult{Message: "Verification code sent to your phone"}, nil
}

// Verify checks code against the one issued to userID and consumes it on
// success.
func (s *Service) Verify(ctx context.Context, userID, phone, code string) error {
	if code == "" || phone == "" {
		return ErrCodeRequired
	}

	stored, err := s.store.Get(ctx, userID)
	if err != nil {
		return err
	}

	if s.now().After(stored.ExpiresAt) {
		if err := s.store.Delete(ctx, userID); err != nil {
			observability.GetLogger(ctx).Warn("failed to delete expired code", zap.Error(err))
		}
		return ErrCodeExpired
	}
	if stored.Phone != phone {
		return ErrPhoneMismatch
	}
	if bcrypt.CompareHashAndPassword(stored.Hash, []byte(code)) != nil {
		return s.fail(ctx, userID, stored.ExpiresAt.Sub(s.now()))
	}

	return s.store.Delete(ctx, userID)
}

// fail records a wrong guess. Reaching the limit deletes the code so the
// user has to request a new one.
func (s *Service) fail(ctx context.Context, userID string, remaining time.Duration) error {
	n, err := s.store.Fail(ctx, userID, remaining)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	if n < s.maxTries {
		return ErrInvalidCode
	}
	observability.GetLogger(ctx).Warn("verification code burned after failed attempts", zap.Int("attempts", n))
	if err := s.store.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete code: %w", err)
	}
	return ErrTooManyTries
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
