package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"roomchat/internal/app/chat"
	"roomchat/internal/pkg/errs"
	"roomchat/internal/pkg/limiter"
	"roomchat/internal/pkg/logx"
	"roomchat/internal/pkg/resp"
)

// HandleWebSocket upgrades the request and runs the client's pumps. The
// connection starts unauthenticated; the first accepted frame must be auth.
func HandleWebSocket(deps *AppDeps, upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !rateLimiter.Allow(r) {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", limiter.ClientIP(r))
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Warn("Failed to upgrade connection to WebSocket", "error", err.Error())
			return
		}

		client := chat.NewClient(deps.Core, conn)

		go client.WritePump()

		logx.Debug("WebSocket connection established", "conn_id", client.ConnID())

		client.ReadPump()
	}
}
