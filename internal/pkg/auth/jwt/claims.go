package jwt

import "github.com/golang-jwt/jwt"

// Payload is the claim set of a roomchat identity token. The token is opaque
// to clients; the server resolves ID against the user store on every use.
type Payload struct {
	jwt.StandardClaims

	// ID is the user's identifier in the user store.
	ID string `json:"id"`

	// Username is informational; the user store remains authoritative.
	Username string `json:"username"`
}
