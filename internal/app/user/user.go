/*
Package user defines the identity a connection or HTTP request acts as.
*/
package user

import "time"

// User is an immutable identity owned by the user store. The realtime core
// holds users by ID and never mutates them.
type User struct {
	// ID is the store-assigned identifier (UUID string).
	ID string `json:"id"`

	// Username is unique across the store.
	Username string `json:"username"`

	// CreatedAt is the registration time.
	CreatedAt time.Time `json:"created_at"`
}
