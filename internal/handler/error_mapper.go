package handler

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/evp-nightshift/messenger/internal/domain"
	"github.com/evp-nightshift/messenger/internal/observability"
	"github.com/evp-nightshift/messenger/internal/transport"
)

// HTTPError is the transport form of a failed operation.
type HTTPError struct {
	Status  int
	Code    string
	Message string
}

// MapError converts a domain error into a status, machine code and caller
// facing message. Validation reasons are surfaced verbatim; server faults
// are not.
func MapError(err error) HTTPError {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return HTTPError{http.StatusBadRequest, "validation_error", ve.Reason}

	case errors.Is(err, errBodyTooLarge):
		return HTTPError{http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large"}

	case errors.Is(err, domain.ErrFeatureDisabled):
		return HTTPError{http.StatusForbidden, "feature_disabled", "Supervisor approval is not enabled"}

	case errors.Is(err, domain.ErrMessageNotFound):
		return HTTPError{http.StatusNotFound, "not_found", "Message not found"}

	case errors.Is(err, domain.ErrAlreadyProcessed):
		return HTTPError{http.StatusConflict, "already_processed", "Message already processed"}

	case errors.Is(err, domain.ErrConfiguration):
		return HTTPError{http.StatusInternalServerError, "configuration_error", "Email delivery is not configured"}

	case errors.Is(err, domain.ErrDelivery):
		return HTTPError{http.StatusBadGateway, "delivery_failed", "Failed to send email. Please try again."}

	case errors.Is(err, context.DeadlineExceeded):
		return HTTPError{http.StatusGatewayTimeout, "timeout", "request timed out"}

	default:
		return HTTPError{http.StatusInternalServerError, "internal_error", "Internal server error"}
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	he := MapError(err)

	log := observability.GetLogger(r.Context())
	if he.Status >= http.StatusInternalServerError {
		log.Error("request failed", zap.String("code", he.Code), zap.Error(err))
	} else {
		log.Info("request rejected", zap.String("code", he.Code), zap.Int("status", he.Status))
	}

	transport.WriteError(w, he.Status, he.Code, he.Message)
}
