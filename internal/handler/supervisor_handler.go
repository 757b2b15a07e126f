package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/evp-nightshift/messenger/internal/application"
	"github.com/evp-nightshift/messenger/internal/domain"
	"github.com/evp-nightshift/messenger/internal/transport"
)

var errInvalidRequest = &domain.ValidationError{Reason: "invalid request"}

// SupervisorHandler serves the reviewer's pending list and decisions.
type SupervisorHandler struct {
	S        MessageService
	validate *validator.Validate
}

func NewSupervisorHandler(s MessageService) *SupervisorHandler {
	return &SupervisorHandler{S: s, validate: validator.New()}
}

type actionRequest struct {
	MessageID int64  `json:"messageId" validate:"gt=0"`
	Action    string `json:"action" validate:"oneof=approve reject"`
}

type actionResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Status  domain.Status `json:"status"`
}

// Messages lists pending messages, newest first.
func (h *SupervisorHandler) Messages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.S.ListPending(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []*domain.Message{}
	}
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{"messages": msgs})
}

// Action approves or rejects a pending message.
func (h *SupervisorHandler) Action(w http.ResponseWriter, r *http.Request) {
	// A disabled workflow answers 403 before the body is looked at.
	if !h.S.RequireApproval() {
		writeError(w, r, domain.ErrFeatureDisabled)
		return
	}

	var req actionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.validate.StructCtx(r.Context(), req); err != nil {
		writeError(w, r, errInvalidRequest)
		return
	}

	res, err := h.S.Decide(r.Context(), req.MessageID, application.Action(req.Action))
	if err != nil {
		writeError(w, r, err)
		return
	}

	transport.WriteJSON(w, http.StatusOK, actionResponse{Success: true, Message: res.Message, Status: res.Status})
}
