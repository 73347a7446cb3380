package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"roomchat/internal/app/store"
	"roomchat/internal/app/user"
	"roomchat/internal/pkg/errs"
	"roomchat/internal/pkg/req"
	"roomchat/internal/pkg/resp"
)

// UserView is a user as the control plane shows it, with live presence.
type UserView struct {
	user.User
	IsOnline bool `json:"is_online"`
}

func presentUser(deps *AppDeps, u user.User) UserView {
	return UserView{User: u, IsOnline: deps.Core.Registry.IsOnline(u.ID)}
}

// HandleGetMe returns the caller's identity.
func HandleGetMe(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, presentUser(deps, *CurrentUser(r)))
	}
}

// HandleListOnlineUsers returns the ids of users with a live connection.
func HandleListOnlineUsers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids := deps.Core.Registry.OnlineUsers()
		resp.RespondSuccess(w, r, map[string]any{
			"user_ids": ids,
			"count":    len(ids),
		})
	}
}

// HandleListUsers returns one page of users.
func HandleListUsers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, customErr := req.BindPage(r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		users, total, err := deps.Store.ListUsers(r.Context(), page.Limit, page.Offset)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageFailed, err))
			return
		}
		views := make([]UserView, 0, len(users))
		for _, u := range users {
			views = append(views, presentUser(deps, u))
		}

		resp.RespondSuccess(w, r, map[string]any{
			"users":  views,
			"total":  total,
			"limit":  page.Limit,
			"offset": page.Offset,
		})
	}
}

// HandleGetUser returns one user by id.
func HandleGetUser(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := deps.Store.GetUserByID(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
				return
			}
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageFailed, err))
			return
		}

		resp.RespondSuccess(w, r, presentUser(deps, *u))
	}
}
