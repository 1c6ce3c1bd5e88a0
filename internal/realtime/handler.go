package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const writeTimeout = 5 * time.Second

// ServeUser upgrades the request to a websocket and streams the user's
// progress events until the client disconnects.
func (h *Hub) ServeUser(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "user_id", userID, "error", err)
		return
	}
	defer conn.CloseNow()

	events, cancel := h.Subscribe(userID)
	defer cancel()

	// Reads are only needed to notice the client going away.
	ctx := conn.CloseRead(r.Context())

	slog.Debug("websocket subscriber connected", "user_id", userID)
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case evt, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "hub closed")
				return
			}
			writeCtx, cancelWrite := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, conn, evt)
			cancelWrite()
			if err != nil {
				slog.Debug("websocket write failed", "user_id", userID, "error", err)
				return
			}
		}
	}
}
