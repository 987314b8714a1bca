package realtime

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"
)

// UserFunc extracts the authenticated user ID from a request.
type UserFunc func(r *http.Request) (string, bool)

// Handler upgrades authenticated requests to WebSocket connections and runs
// them as Hub clients. originPatterns is passed to the upgrader; "*" allows
// any origin.
func Handler(hub *Hub, userOf UserFunc, originPatterns []string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userOf(r)
		if !ok {
			http.Error(w, `{"error":"authorization token required"}`, http.StatusUnauthorized)
			return
		}

		opts := &ws.AcceptOptions{OriginPatterns: originPatterns}
		for _, p := range originPatterns {
			if p == "*" {
				opts = &ws.AcceptOptions{InsecureSkipVerify: true}
				break
			}
		}

		conn, err := ws.Accept(w, r, opts)
		if err != nil {
			logger.Warn("websocket accept failed", "error", err, "user_id", userID)
			return
		}

		logger.Debug("websocket connected", "user_id", userID)
		client := NewClient(hub, conn, userID)
		client.Run(r.Context())
		logger.Debug("websocket disconnected", "user_id", userID)
	}
}
