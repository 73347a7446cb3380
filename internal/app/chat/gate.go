package chat

import (
	"context"
	"errors"

	"roomchat/internal/app/store"
	"roomchat/internal/app/user"
	"roomchat/internal/pkg/auth/jwt"
	"roomchat/internal/pkg/errs"
)

// Gate turns bearer tokens into identities. The HTTP middleware and the
// realtime auth frame both go through it.
type Gate struct {
	users  store.UserStore
	secret string
}

// NewGate returns a Gate verifying HS256 tokens signed with secret.
func NewGate(users store.UserStore, secret string) *Gate {
	return &Gate{users: users, secret: secret}
}

// Authenticate verifies token and resolves its subject in the user store.
// Every failure is ErrUnauthorized except a store outage.
func (g *Gate) Authenticate(ctx context.Context, token string) (*user.User, error) {
	claims, err := jwt.ParseToken(token, g.secret)
	if err != nil {
		return nil, errs.NewError(errs.ErrUnauthorized)
	}

	u, err := g.users.GetUserByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errs.NewError(errs.ErrUnauthorized)
		}
		return nil, errs.NewError(errs.ErrStorageFailed, err)
	}

	return u, nil
}

// Issue signs a token for u valid for jwt.UserIdentityExpiration.
func (g *Gate) Issue(u *user.User) (string, error) {
	return jwt.GenerateToken(&jwt.Payload{ID: u.ID, Username: u.Username}, g.secret, jwt.UserIdentityExpiration)
}
