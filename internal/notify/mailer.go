package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/resend/resend-go/v2"

	"github.com/evp-nightshift/messenger/internal/domain"
)

const DefaultFrom = "EVP - Night Shift <onboarding@resend.dev>"

type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// ResendMailer delivers through the Resend API. A mailer built without an
// API key fails every send with a configuration error instead of refusing to
// start, so the approval branch keeps accepting submissions.
type ResendMailer struct {
	client *resend.Client
	from   string
}

func NewResendMailer(apiKey, from string) *ResendMailer {
	if from == "" {
		from = DefaultFrom
	}
	m := &ResendMailer{from: from}
	if apiKey != "" {
		m.client = resend.NewClient(apiKey)
	}
	return m
}

func (m *ResendMailer) Configured() bool { return m.client != nil }

func (m *ResendMailer) Send(ctx context.Context, email Email) error {
	if m.client == nil {
		return fmt.Errorf("%w: RESEND_API_KEY is not set", domain.ErrConfiguration)
	}
	if len(email.To) == 0 {
		return errors.New("email has no recipient")
	}

	req := &resend.SendEmailRequest{
		From:    m.from,
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Text,
		ReplyTo: email.ReplyTo,
		Bcc:     email.Bcc,
	}
	if _, err := m.client.Emails.SendWithContext(ctx, req); err != nil {
		return domain.WrapDelivery(fmt.Errorf("resend: %w", err))
	}
	return nil
}
