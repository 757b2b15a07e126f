package handler

import (
	"context"
	"net/http"

	"github.com/evp-nightshift/messenger/internal/application"
	"github.com/evp-nightshift/messenger/internal/category"
	"github.com/evp-nightshift/messenger/internal/domain"
	"github.com/evp-nightshift/messenger/internal/transport"
)

// MessageService is the workflow surface the HTTP layer needs.
type MessageService interface {
	Submit(ctx context.Context, cmd application.SubmitCommand) (*application.SubmissionResult, error)
	Decide(ctx context.Context, id int64, action application.Action) (*application.DecisionResult, error)
	ListPending(ctx context.Context) ([]*domain.Message, error)
	Categories() []category.Mapping
	RequireApproval() bool
}

// MessageHandler serves message submission and the category list.
type MessageHandler struct{ S MessageService }

func NewMessageHandler(s MessageService) *MessageHandler { return &MessageHandler{S: s} }

type sendRequest struct {
	Category    string  `json:"category"`
	Topic       string  `json:"topic"`
	Message     string  `json:"message"`
	WorkerName  *string `json:"workerName"`
	WorkerEmail *string `json:"workerEmail"`
	WorkerPhone *string `json:"workerPhone"`
	IsAnonymous bool    `json:"isAnonymous"`
}

type sendResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	MessageID int64  `json:"messageId,omitempty"`
}

// Send submits a message for delivery or approval.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.S.Submit(r.Context(), application.SubmitCommand{
		Category:       req.Category,
		Topic:          req.Topic,
		Body:           req.Message,
		SubmitterName:  req.WorkerName,
		SubmitterEmail: req.WorkerEmail,
		SubmitterPhone: req.WorkerPhone,
		Anonymous:      req.IsAnonymous,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	transport.WriteJSON(w, http.StatusOK, sendResponse{
		Success:   true,
		Message:   res.Message,
		MessageID: res.MessageID,
	})
}

type categoryView struct {
	Label     string `json:"label"`
	Anonymous bool   `json:"anonymous"`
}

// Categories lists the labels a submitter can choose from. Recipient
// addresses stay server side.
func (h *MessageHandler) Categories(w http.ResponseWriter, r *http.Request) {
	mappings := h.S.Categories()
	out := make([]categoryView, 0, len(mappings))
	for _, m := range mappings {
		out = append(out, categoryView{Label: m.Label, Anonymous: m.Anonymous || m.Label == category.AnonymousFeedback})
	}
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{"categories": out})
}
