/*
Package handler provides the HTTP control plane and the WebSocket entry point.
*/
package handler

import (
	"errors"
	"net/http"
	"regexp"

	"golang.org/x/crypto/bcrypt"

	"roomchat/internal/app/store"
	"roomchat/internal/app/user"
	"roomchat/internal/pkg/errs"
	"roomchat/internal/pkg/logx"
	"roomchat/internal/pkg/req"
	"roomchat/internal/pkg/resp"
)

const (
	minPasswordBytes = 6

	// bcrypt ignores everything past 72 bytes.
	maxPasswordBytes = 72
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)

type CredentialsInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token    string `json:"token"`
	ID       string `json:"id"`
	Username string `json:"username"`
}

// HandleRegister creates an account and returns a token for it.
func HandleRegister(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input CredentialsInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if !usernameRegex.MatchString(input.Username) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidUsername))
			return
		}

		if n := len(input.Password); n < minPasswordBytes || n > maxPasswordBytes {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidPassword))
			return
		}

		cost := deps.PasswordCost
		if cost == 0 {
			cost = bcrypt.DefaultCost
		}
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), cost)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
			return
		}

		u, err := deps.Store.CreateUser(r.Context(), input.Username, string(hashedPassword))
		if err != nil {
			if errors.Is(err, store.ErrConflict) {
				logx.Warn("registration conflict: username already exists", "username", input.Username)
				resp.RespondError(w, r, errs.NewError(errs.ErrUserAlreadyExists))
				return
			}
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageFailed, err))
			return
		}

		respondWithToken(w, r, deps, u, http.StatusCreated)
	}
}

// HandleLogin verifies user credentials and issues a JWT token.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input CredentialsInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		creds, err := deps.Store.GetCredentials(r.Context(), input.Username)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrStorageFailed, err))
				return
			}
			logx.Warn("login: unknown username", "username", input.Username)
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(input.Password)); err != nil {
			logx.Warn("login: password mismatch", "username", input.Username)
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		respondWithToken(w, r, deps, &creds.User, http.StatusOK)
	}
}

func respondWithToken(w http.ResponseWriter, r *http.Request, deps *AppDeps, u *user.User, status int) {
	token, err := deps.Core.Gate.Issue(u)
	if err != nil {
		logx.Error(err, "jwt generation failed", "user_id", u.ID)
		resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
		return
	}

	resp.RespondStatus(w, r, status, authResponse{Token: token, ID: u.ID, Username: u.Username})
}
