package application

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/evp-nightshift/messenger/internal/domain"
	"github.com/evp-nightshift/messenger/internal/notify"
	"github.com/evp-nightshift/messenger/internal/observability"
)

type SubmitCommand struct {
	Category       string `validate:"required"`
	Topic          string `validate:"required"`
	Body           string `validate:"required"`
	SubmitterName  *string
	SubmitterEmail *string
	SubmitterPhone *string
	Anonymous      bool
}

type SubmissionResult struct {
	Status    domain.Status
	MessageID int64
	Message   string
}

// Submit validates cmd and either delivers it now or stores it for review,
// depending on whether approval is required.
//
// Without approval nothing is persisted: a delivery failure is returned and
// the submission is lost. With approval the message is stored as pending and
// a failed reviewer notice is only logged.
func (s *Service) Submit(ctx context.Context, cmd SubmitCommand) (*SubmissionResult, error) {
	log := observability.GetLogger(ctx)

	if err := s.validate.StructCtx(ctx, cmd); err != nil {
		observability.MessagesSubmittedTotal.WithLabelValues("invalid").Inc()
		return nil, domain.ErrMissingFields
	}

	mapping, err := s.directory.Resolve(cmd.Category)
	if err != nil {
		observability.MessagesSubmittedTotal.WithLabelValues("invalid").Inc()
		return nil, domain.ErrInvalidCategory
	}

	msg := &domain.Message{
		Category:          mapping.Label,
		RecipientName:     mapping.RecipientName,
		RecipientEmail:    mapping.Email,
		RecipientPhoneExt: mapping.PhoneExt,
		SubmitterName:     clean(cmd.SubmitterName),
		SubmitterEmail:    clean(cmd.SubmitterEmail),
		SubmitterPhone:    clean(cmd.SubmitterPhone),
		Anonymous:         cmd.Anonymous || s.directory.IsAnonymous(mapping.Label),
		Topic:             cmd.Topic,
		Body:              cmd.Body,
		Timestamp:         s.timestamp(),
		Status:            domain.StatusPending,
		CreatedAt:         s.now().UTC(),
	}
	if msg.Anonymous {
		msg.Anonymize()
	}

	if !s.requireApproval {
		if err := s.sender.Send(ctx, notify.EnvelopeFromMessage(msg)); err != nil {
			observability.MessagesSubmittedTotal.WithLabelValues("failed").Inc()
			log.Error("immediate delivery failed",
				zap.String("category", msg.Category),
				zap.Error(err),
			)
			return nil, err
		}
		observability.MessagesSubmittedTotal.WithLabelValues("sent").Inc()
		log.Info("message sent", zap.String("category", msg.Category), zap.Bool("anonymous", msg.Anonymous))
		return &SubmissionResult{Status: domain.StatusSent, Message: "Message sent successfully"}, nil
	}

	id, err := s.store.Create(ctx, msg)
	if err != nil {
		observability.MessagesSubmittedTotal.WithLabelValues("failed").Inc()
		return nil, err
	}
	msg.ID = id
	observability.MessagesSubmittedTotal.WithLabelValues("pending").Inc()
	log.Info("message stored for approval", zap.Int64("message_id", id), zap.String("category", msg.Category))

	if err := s.reviewer.NotifyReviewer(ctx, msg); err != nil {
		fields := []zap.Field{zap.Int64("message_id", id), zap.Error(err)}
		if errors.Is(err, domain.ErrConfiguration) {
			log.Error("reviewer notice skipped: delivery not configured", fields...)
		} else {
			log.Warn("reviewer notice failed", fields...)
		}
	}

	return &SubmissionResult{
		Status:    domain.StatusPending,
		MessageID: id,
		Message:   "Message submitted for approval",
	}, nil
}

func clean(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}
