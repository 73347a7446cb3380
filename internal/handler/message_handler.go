package handler

import (
	"net/http"
	"strings"

	"roomchat/internal/app/store"
	"roomchat/internal/pkg/errs"
	"roomchat/internal/pkg/req"
	"roomchat/internal/pkg/resp"
)

// HandleListMessages returns a room's history, oldest first within the page.
// Query: room_id (required), limit, before (message id cursor).
func HandleListMessages(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := strings.TrimSpace(r.URL.Query().Get("room_id"))
		if roomID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		limit, customErr := req.QueryInt64(r, "limit", 0)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}
		before, customErr := req.QueryInt64(r, "before", 0)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		messages, err := deps.Core.Rooms.History(r.Context(), CurrentUser(r).ID, roomID, before, int(min(limit, 1<<20)))
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}
		if messages == nil {
			messages = []store.Message{}
		}

		resp.RespondSuccess(w, r, map[string]any{
			"messages": messages,
			"room_id":  roomID,
			"count":    len(messages),
		})
	}
}
