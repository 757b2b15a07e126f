package application

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/evp-nightshift/messenger/internal/domain"
	"github.com/evp-nightshift/messenger/internal/notify"
	"github.com/evp-nightshift/messenger/internal/observability"
)

type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

func (a Action) Valid() bool { return a == ActionApprove || a == ActionReject }

type DecisionResult struct {
	ID      int64
	Status  domain.Status
	Message string
}

// Decide applies a reviewer decision to a pending message.
//
// Approval first claims the message (pending -> approved) with a conditional
// write, so of two concurrent approvals only one reaches the sender. A failed
// send releases the claim and the message is pending again.
func (s *Service) Decide(ctx context.Context, id int64, action Action) (*DecisionResult, error) {
	if !s.requireApproval {
		return nil, domain.ErrFeatureDisabled
	}
	if !action.Valid() {
		return nil, domain.ErrInvalidAction
	}
	if id <= 0 {
		return nil, domain.ErrInvalidID
	}

	outcome := "error"
	defer func() {
		observability.MessageDecisionsTotal.WithLabelValues(string(action), outcome).Inc()
	}()

	msg, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrMessageNotFound) {
			outcome = "not_found"
		}
		return nil, err
	}
	if msg.Status != domain.StatusPending {
		outcome = "already_processed"
		return nil, domain.ErrAlreadyProcessed
	}

	var res *DecisionResult
	if action == ActionReject {
		res, err = s.reject(ctx, msg)
	} else {
		res, err = s.approve(ctx, msg)
	}
	switch {
	case err == nil:
		outcome = "ok"
	case errors.Is(err, domain.ErrAlreadyProcessed):
		outcome = "already_processed"
	}
	return res, err
}

func (s *Service) reject(ctx context.Context, msg *domain.Message) (*DecisionResult, error) {
	ok, err := s.store.Transition(ctx, msg.ID, domain.StatusPending, domain.StatusRejected)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrAlreadyProcessed
	}

	observability.GetLogger(ctx).Info("message rejected", zap.Int64("message_id", msg.ID))
	return &DecisionResult{ID: msg.ID, Status: domain.StatusRejected, Message: "Message rejected successfully"}, nil
}

func (s *Service) approve(ctx context.Context, msg *domain.Message) (*DecisionResult, error) {
	log := observability.GetLogger(ctx).With(zap.Int64("message_id", msg.ID))

	ok, err := s.store.Transition(ctx, msg.ID, domain.StatusPending, domain.StatusApproved)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrAlreadyProcessed
	}

	// The claim must be settled even if the caller has gone away.
	settle := context.WithoutCancel(ctx)

	if err := s.sender.Send(ctx, notify.EnvelopeFromMessage(msg)); err != nil {
		if _, relErr := s.store.Transition(settle, msg.ID, domain.StatusApproved, domain.StatusPending); relErr != nil {
			log.Error("failed to release approval claim", zap.Error(relErr))
		}
		log.Warn("approval delivery failed, message left pending", zap.Error(err))
		return nil, err
	}

	// The email is out; a failure here must not invite a second send.
	if ok, err := s.store.Transition(settle, msg.ID, domain.StatusApproved, domain.StatusSent); err != nil || !ok {
		log.Error("message delivered but not marked sent", zap.Bool("updated", ok), zap.Error(err))
	}

	log.Info("message approved and sent")
	return &DecisionResult{ID: msg.ID, Status: domain.StatusSent, Message: "Message approved successfully"}, nil
}

// ListPending returns messages awaiting a decision, newest first.
func (s *Service) ListPending(ctx context.Context) ([]*domain.Message, error) {
	if !s.requireApproval {
		return nil, domain.ErrFeatureDisabled
	}
	return s.store.ListByStatus(ctx, domain.StatusPending)
}

// ListByStatus is the operator view over any lifecycle state. Rows left in
// approved are claims whose delivery never settled and need a manual look.
func (s *Service) ListByStatus(ctx context.Context, status domain.Status) ([]*domain.Message, error) {
	if !status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	return s.store.ListByStatus(ctx, status)
}
