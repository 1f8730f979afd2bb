package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/studyflow/supportrelay/internal/api/middleware"
	"github.com/studyflow/supportrelay/internal/models"
)

// HistoryResponse is the conversation history payload.
type HistoryResponse struct {
	Messages []models.Message `json:"messages"`
}

// ConversationHistory returns one conversation's full ordered history.
// The caller must be the conversation's requester or hold the
// support-agent role. Reading marks other-author messages as read.
func (h *Handler) ConversationHistory(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	conversationID := chi.URLParam(r, "conversationID")

	if user.ID != conversationID && !user.IsAgent() {
		h.Error(w, http.StatusForbidden, "not a participant of this conversation")
		return
	}

	msgs, err := h.gateway.History(r.Context(), conversationID, user.ID)
	if err != nil {
		h.Fail(w, err)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}

	h.JSON(w, http.StatusOK, HistoryResponse{Messages: msgs})
}
