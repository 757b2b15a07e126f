package handler

import (
	"context"
	"net/http"

	"github.com/evp-nightshift/messenger/internal/domain"
	"github.com/evp-nightshift/messenger/internal/middleware"
	"github.com/evp-nightshift/messenger/internal/transport"
	"github.com/evp-nightshift/messenger/internal/verification"
)

var errInvalidVerifyAction = &domain.ValidationError{Reason: `Invalid action. Use "send" or "verify"`}

type VerificationService interface {
	Send(ctx context.Context, userID, phone string) (*verification.SendResult, error)
	Verify(ctx context.Context, userID, phone, code string) error
}

// VerificationHandler serves phone verification for the signed-in user.
type VerificationHandler struct{ S VerificationService }

func NewVerificationHandler(s VerificationService) *VerificationHandler {
	return &VerificationHandler{S: s}
}

type verifyPhoneRequest struct {
	Action string `json:"action"`
	Phone  string `json:"phone"`
	Code   string `json:"code"`
}

type verifyPhoneResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func (h *VerificationHandler) VerifyPhone(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UserID(r.Context())
	if uid == "" {
		transport.WriteError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}

	var req verifyPhoneRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	switch req.Action {
	case "send":
		res, err := h.S.Send(r.Context(), uid, req.Phone)
		if err != nil {
			writeError(w, r, err)
			return
		}
		transport.WriteJSON(w, http.StatusOK, verifyPhoneResponse{Success: true, Message: res.Message, Code: res.Code})

	case "verify":
		if err := h.S.Verify(r.Context(), uid, req.Phone, req.Code); err != nil {
			writeError(w, r, err)
			return
		}
		transport.WriteJSON(w, http.StatusOK, verifyPhoneResponse{Success: true, Message: "Phone number verified successfully"})

	default:
		writeError(w, r, errInvalidVerifyAction)
	}
}
