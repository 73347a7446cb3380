package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"roomchat/internal/app/store"
	"roomchat/internal/app/user"
)

// Store implements store.Store on a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// NewStore wraps an open pool; see NewPool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open connects, migrates and returns a ready store.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := NewPool(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return NewStore(pool), nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (*user.User, error) {
	u := user.User{ID: uuid.NewString(), Username: username}

	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, username, password_hash) VALUES ($1, $2, $3) RETURNING created_at`,
		u.ID, username, passwordHash,
	).Scan(&u.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*user.User, error) {
	if !validID(id) {
		return nil, store.ErrNotFound
	}

	var u user.User
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, username, created_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Username, &u.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) GetCredentials(ctx context.Context, username string) (*store.Credentials, error) {
	var c store.Credentials
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, username, created_at, password_hash FROM users WHERE username = $1`, username,
	).Scan(&c.User.ID, &c.User.Username, &c.User.CreatedAt, &c.PasswordHash)
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *Store) ListUsers(ctx context.Context, limit, offset int) ([]user.User, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id::text, username, created_at FROM users ORDER BY created_at, username LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}

	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (user.User, error) {
		var u user.User
		err := row.Scan(&u.ID, &u.Username, &u.CreatedAt)
		return u, err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

func (s *Store) CreateRoom(ctx context.Context, room *store.Room) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}

	err := s.pool.QueryRow(ctx,
		`INSERT INTO rooms (id, name, description, creator_id) VALUES ($1, $2, $3, $4) RETURNING created_at`,
		room.ID, room.Name, room.Description, room.CreatorID,
	).Scan(&room.CreatedAt)
	return translate(err)
}

const roomColumns = `r.id::text, r.name, r.description, r.creator_id::text, r.created_at,
	(SELECT count(*) FROM room_members m WHERE m.room_id = r.id)`

func scanRoom(row pgx.Row) (store.Room, error) {
	var r store.Room
	err := row.Scan(&r.ID, &r.Name, &r.Description, &r.CreatorID, &r.CreatedAt, &r.MemberCount)
	return r, err
}

func (s *Store) GetRoom(ctx context.Context, id string) (*store.Room, error) {
	if !validID(id) {
		return nil, store.ErrNotFound
	}

	r, err := scanRoom(s.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms r WHERE r.id = $1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *Store) ListRooms(ctx context.Context, limit, offset int) ([]store.Room, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM rooms`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+roomColumns+` FROM rooms r ORDER BY r.created_at DESC, r.id LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}

	rooms, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Room, error) {
		return scanRoom(row)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, total, nil
}

func (s *Store) UpdateRoom(ctx context.Context, id string, patch store.RoomPatch) (*store.Room, error) {
	if !validID(id) {
		return nil, store.ErrNotFound
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE rooms SET name = COALESCE($2, name), description = COALESCE($3, description) WHERE id = $1`,
		id, patch.Name, patch.Description,
	)
	if err != nil {
		return nil, translate(err)
	}
	if tag.RowsAffected() == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetRoom(ctx, id)
}

// DeleteRoom removes the room; memberships cascade, messages stay.
func (s *Store) DeleteRoom(ctx context.Context, id string) error {
	if !validID(id) {
		return store.ErrNotFound
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) AddMember(ctx context.Context, roomID, userID string) (time.Time, error) {
	if !validID(roomID) || !validID(userID) {
		return time.Time{}, store.ErrNotFound
	}

	// DO UPDATE with a no-op keeps the original joined_at and still returns it.
	var joinedAt time.Time
	err := s.pool.QueryRow(ctx,
		`INSERT INTO room_members (room_id, user_id) VALUES ($1, $2)
		 ON CONFLICT (room_id, user_id) DO UPDATE SET joined_at = room_members.joined_at
		 RETURNING joined_at`,
		roomID, userID,
	).Scan(&joinedAt)
	if err != nil {
		return time.Time{}, translate(err)
	}
	return joinedAt, nil
}

func (s *Store) RemoveMember(ctx context.Context, roomID, userID string) error {
	if !validID(roomID) || !validID(userID) {
		return store.ErrNotFound
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM room_members WHERE room_id = $1 AND user_id = $2`, roomID, userID)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	if !validID(roomID) || !validID(userID) {
		return false, nil
	}

	var ok bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM room_members WHERE room_id = $1 AND user_id = $2)`,
		roomID, userID,
	).Scan(&ok)
	return ok, err
}

func (s *Store) AppendMessage(ctx context.Context, msg *store.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	err := s.pool.QueryRow(ctx,
		`INSERT INTO messages (room_id, user_id, content, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		msg.RoomID, msg.UserID, msg.Content, msg.CreatedAt,
	).Scan(&msg.ID)
	return translate(err)
}

func (s *Store) ListMessages(ctx context.Context, roomID string, before int64, limit int) ([]store.Message, error) {
	if !validID(roomID) {
		return []store.Message{}, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT * FROM (
			SELECT m.id, m.room_id::text, m.user_id::text, COALESCE(u.username, ''), m.content, m.created_at
			FROM messages m LEFT JOIN users u ON u.id = m.user_id
			WHERE m.room_id = $1 AND ($2::bigint = 0 OR m.id < $2::bigint)
			ORDER BY m.created_at DESC, m.id DESC
			LIMIT $3
		) page ORDER BY created_at, id`,
		roomID, before, limit,
	)
	if err != nil {
		return nil, err
	}

	messages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Message, error) {
		var m store.Message
		err := row.Scan(&m.ID, &m.RoomID, &m.UserID, &m.Username, &m.Content, &m.CreatedAt)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}
