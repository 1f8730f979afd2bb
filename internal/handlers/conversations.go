package handlers

import (
	"net/http"

	"github.com/studyflow/supportrelay/internal/api/middleware"
	"github.com/studyflow/supportrelay/internal/models"
)

// ConversationsResponse is the support-pool directory payload.
type ConversationsResponse struct {
	Conversations []models.Conversation `json:"conversations"`
}

// Conversations returns every requester conversation with its last message
// preview and the unread count as seen by the calling agent. Support agents
// only.
func (h *Handler) Conversations(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if !user.IsAgent() {
		h.Error(w, http.StatusForbidden, "support-agent role required")
		return
	}

	convs, err := h.gateway.Summaries(r.Context(), user.ID)
	if err != nil {
		h.Fail(w, err)
		return
	}
	if convs == nil {
		convs = []models.Conversation{}
	}

	h.JSON(w, http.StatusOK, ConversationsResponse{Conversations: convs})
}
