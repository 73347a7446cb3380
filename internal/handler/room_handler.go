package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"roomchat/internal/app/store"
	"roomchat/internal/pkg/errs"
	"roomchat/internal/pkg/req"
	"roomchat/internal/pkg/resp"
)

type CreateRoomInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// HandleCreateRoom creates a room owned by the caller.
func HandleCreateRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input CreateRoomInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		room, err := deps.Core.Rooms.Create(r.Context(), CurrentUser(r).ID, input.Name, input.Description)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		resp.RespondCreated(w, r, room)
	}
}

// HandleListRooms returns one page of rooms, newest first.
func HandleListRooms(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, customErr := req.BindPage(r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		rooms, total, err := deps.Core.Rooms.List(r.Context(), page.Limit, page.Offset)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}
		if rooms == nil {
			rooms = []store.Room{}
		}

		resp.RespondSuccess(w, r, map[string]any{
			"rooms":  rooms,
			"total":  total,
			"limit":  page.Limit,
			"offset": page.Offset,
		})
	}
}

// HandleGetRoom returns one room.
func HandleGetRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := deps.Core.Rooms.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, room)
	}
}

type UpdateRoomInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// HandleUpdateRoom changes a room's name and/or description. Creator only.
func HandleUpdateRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input UpdateRoomInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		actor := CurrentUser(r)
		room, err := deps.Core.Rooms.Update(r.Context(), actor.ID, chi.URLParam(r, "id"), input.Name, input.Description)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"room_id":         room.ID,
			"new_name":        room.Name,
			"new_description": room.Description,
			"updated_by":      actor.ID,
		})
	}
}

// HandleDeleteRoom deletes a room and evicts its live members. Creator only.
func HandleDeleteRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := CurrentUser(r)
		roomID := chi.URLParam(r, "id")

		if err := deps.Core.Rooms.Delete(r.Context(), actor.ID, roomID); err != nil {
			resp.RespondError(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"room_id":    roomID,
			"deleted_by": actor.ID,
		})
	}
}

type RoomRefInput struct {
	RoomID string `json:"room_id"`
}

func bindRoomRef(r *http.Request) (string, *errs.CustomError) {
	var input RoomRefInput
	if customErr := req.BindJSON(r, &input); customErr != nil {
		return "", customErr
	}
	roomID := strings.TrimSpace(input.RoomID)
	if roomID == "" {
		return "", errs.NewError(errs.ErrInvalidParams)
	}
	return roomID, nil
}

// HandleJoinRoom records the caller as a persisted member.
func HandleJoinRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, customErr := bindRoomRef(r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		actor := CurrentUser(r)
		joinedAt, err := deps.Core.Rooms.JoinPersisted(r.Context(), actor.ID, roomID)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"room_id":   roomID,
			"user_id":   actor.ID,
			"joined_at": joinedAt,
		})
	}
}

// HandleLeaveRoom removes the caller's persisted membership.
func HandleLeaveRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, customErr := bindRoomRef(r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		actor := CurrentUser(r)
		if err := deps.Core.Rooms.LeavePersisted(r.Context(), actor.ID, roomID); err != nil {
			resp.RespondError(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"room_id": roomID,
			"user_id": actor.ID,
		})
	}
}

// HandleArchiveRoom exports the room transcript to object storage. Creator only.
func HandleArchiveRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		archive, err := deps.Core.Rooms.Archive(r.Context(), CurrentUser(r).ID, chi.URLParam(r, "id"))
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, archive)
	}
}

// HandleListRoomOnline returns the users with a live connection in the room.
func HandleListRoomOnline(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := deps.Core.Rooms.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		ids := deps.Core.Hub.OnlineUsers(room.ID)
		resp.RespondSuccess(w, r, map[string]any{
			"room_id":  room.ID,
			"user_ids": ids,
			"count":    len(ids),
		})
	}
}
