/*
Package store declares the persistence contracts the realtime core and the
control plane depend on, together with the records they exchange.

Three implementations exist: memstore (in-process), db (PostgreSQL via pgx)
and litedb (SQLite via gorm). All of them satisfy Store.
*/
package store

import (
	"context"
	"errors"
	"time"

	"roomchat/internal/app/user"
)

var (
	// ErrNotFound is returned when the referenced record does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrConflict is returned when a uniqueness constraint is violated.
	ErrConflict = errors.New("store: conflict")
)

// Room is a named, creator-owned channel.
type Room struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatorID   string    `json:"creator_id"`
	CreatedAt   time.Time `json:"created_at"`

	// MemberCount is the number of persisted members; filled by list queries only.
	MemberCount int `json:"member_count"`

	// OnlineCount is the number of distinct users with a live connection in
	// the room. It is never persisted; the realtime core fills it on reads.
	OnlineCount int `json:"online_count"`
}

// RoomPatch carries the optional fields of a room update.
type RoomPatch struct {
	Name        *string
	Description *string
}

// Message is one immutable entry of a room's history. ID is assigned by the
// store and strictly increases in append order.
type Message struct {
	ID        int64     `json:"id"`
	RoomID    string    `json:"room_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Credentials pairs a user with the stored password hash.
type Credentials struct {
	User         user.User
	PasswordHash string
}

// UserStore resolves identities.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) (*user.User, error)
	GetUserByID(ctx context.Context, id string) (*user.User, error)
	GetCredentials(ctx context.Context, username string) (*Credentials, error)
	ListUsers(ctx context.Context, limit, offset int) ([]user.User, int, error)
}

// RoomStore holds room metadata and the persisted membership list.
type RoomStore interface {
	CreateRoom(ctx context.Context, room *Room) error
	GetRoom(ctx context.Context, id string) (*Room, error)
	ListRooms(ctx context.Context, limit, offset int) ([]Room, int, error)
	UpdateRoom(ctx context.Context, id string, patch RoomPatch) (*Room, error)
	DeleteRoom(ctx context.Context, id string) error

	// AddMember is an upsert; re-adding keeps the original joined time.
	AddMember(ctx context.Context, roomID, userID string) (time.Time, error)
	RemoveMember(ctx context.Context, roomID, userID string) error
	IsMember(ctx context.Context, roomID, userID string) (bool, error)
}

// MessageStore is an ordered append log keyed by room.
type MessageStore interface {
	// AppendMessage persists msg and sets msg.ID.
	AppendMessage(ctx context.Context, msg *Message) error

	// ListMessages returns up to limit messages with ID < before (0 = no bound),
	// newest page first but ordered ascending by (CreatedAt, ID) within the page.
	ListMessages(ctx context.Context, roomID string, before int64, limit int) ([]Message, error)
}

// Store is the full persistence surface.
type Store interface {
	UserStore
	RoomStore
	MessageStore
	Close() error
}
