package realtime

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/Jyok1m/ipseis-backend/internal/contextx"
	"github.com/gorilla/websocket"
)

// Handler upgrades authenticated requests to websocket connections and
// registers them with the hub. It expects the identity set by
// middleware.Authenticator.
func Handler(h *Hub, allowedOrigins []string, logger *slog.Logger) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, origin)
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := contextx.IdentityFrom(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", "user_id", id.UserID, "error", err)
			return
		}

		c := newClient(conn, id.UserID)
		if !h.Register(c) {
			_ = conn.Close()
			return
		}
		go c.writePump()
		go c.readPump(h)
	}
}
