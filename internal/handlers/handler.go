package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/studyflow/supportrelay/internal/relay"
	"github.com/studyflow/supportrelay/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	log     zerolog.Logger
	gateway *relay.Gateway
	hub     *relay.Hub
	store   store.MessageStore
	redis   *store.RedisStore
}

// NewHandler creates a new Handler with the given dependencies. redis may
// be nil when rate limiting is not configured.
func NewHandler(log zerolog.Logger, gateway *relay.Gateway, hub *relay.Hub, messages store.MessageStore, redis *store.RedisStore) *Handler {
	return &Handler{
		log:     log,
		gateway: gateway,
		hub:     hub,
		store:   messages,
		redis:   redis,
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// Fail maps the relay/store error taxonomy onto HTTP statuses.
func (h *Handler) Fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrValidation):
		h.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		h.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, relay.ErrInvalidTarget):
		h.Error(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, relay.ErrAuthorization):
		h.Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, store.ErrUnavailable):
		h.Error(w, http.StatusServiceUnavailable, "message store unavailable, retry later")
	default:
		h.log.Error().Err(err).Msg("unhandled error")
		h.Error(w, http.StatusInternalServerError, "internal error")
	}
}
