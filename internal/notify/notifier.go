// Package notify renders messages into email and hands them to a Mailer.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/evp-nightshift/messenger/internal/domain"
	"github.com/evp-nightshift/messenger/internal/observability"
)

const (
	kindMessage  = "message"
	kindReviewer = "reviewer"
)

type Notifier struct {
	mailer    Mailer
	branding  Branding
	reviewer  string
	reviewURL string
}

type Option func(*Notifier)

func WithBranding(b Branding) Option {
	return func(n *Notifier) { n.branding = b }
}

// WithReviewer sets where pending-message notices go. Without an address
// NotifyReviewer is a no-op.
func WithReviewer(email, reviewURL string) Option {
	return func(n *Notifier) {
		n.reviewer = email
		n.reviewURL = reviewURL
	}
}

func NewNotifier(m Mailer, opts ...Option) *Notifier {
	n := &Notifier{mailer: m, branding: DefaultBranding()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Send renders env and delivers it. Failures come back classified as
// domain.ErrConfiguration or domain.ErrDelivery.
func (n *Notifier) Send(ctx context.Context, env Envelope) error {
	return n.deliver(ctx, kindMessage, Render(env, n.branding))
}

func (n *Notifier) NotifyReviewer(ctx context.Context, msg *domain.Message) error {
	if n.reviewer == "" {
		return nil
	}
	return n.deliver(ctx, kindReviewer, n.reviewerNotice(msg))
}

func (n *Notifier) deliver(ctx context.Context, kind string, email Email) error {
	log := observability.GetLogger(ctx)
	start := time.Now()

	err := n.mailer.Send(ctx, email)
	observability.EmailDeliveryDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	if err != nil {
		observability.EmailDeliveriesTotal.WithLabelValues(kind, "error").Inc()
		log.Error("email delivery failed", zap.String("kind", kind), zap.Error(err))
		return domain.WrapDelivery(err)
	}
	observability.EmailDeliveriesTotal.WithLabelValues(kind, "ok").Inc()
	log.Info("email delivered", zap.String("kind", kind), zap.Int("recipients", len(email.To)))
	return nil
}

func (n *Notifier) reviewerNotice(msg *domain.Message) Email {
	from := "Anonymous"
	if !msg.Anonymous && msg.SubmitterName != nil {
		from = *msg.SubmitterName
	}

	lines := []string{
		"A message is waiting for review.",
		"",
		fmt.Sprintf("ID: %d", msg.ID),
		"Category: " + msg.Category,
		fmt.Sprintf("Recipient: %s <%s>", msg.RecipientName, msg.RecipientEmail),
		"Topic: " + msg.Topic,
		"From: " + from,
		"Submitted: " + msg.Timestamp,
	}
	if n.reviewURL != "" {
		lines = append(lines, "", "Review it at "+n.reviewURL)
	}
	text := strings.Join(lines, "\n")

	return Email{
		To:      []string{n.reviewer},
		Subject: fmt.Sprintf("%s Message awaiting approval: %s", n.branding.SubjectPrefix, msg.Topic),
		HTML:    "<p>" + escapeLines(text) + "</p>",
		Text:    text,
	}
}
