package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/studyflow/supportrelay/internal/api/middleware"
	"github.com/studyflow/supportrelay/internal/relay"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser origin checks are the CORS layer's concern; the upgrade
	// itself is already gated on a resolved identity.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades an authenticated request into a relay connection. The
// client re-issues its join events after every reconnect; no session state
// survives the socket.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("user", user.ID).Msg("websocket upgrade failed")
		return
	}

	client := relay.NewClient(h.log, h.hub, h.gateway, conn, user)

	h.log.Info().Str("user", user.ID).Str("role", string(user.Role)).Msg("relay connection opened")
	client.Run()
	h.log.Info().Str("user", user.ID).Msg("relay connection closed")
}
