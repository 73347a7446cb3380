/*
Package memstore is an in-process implementation of store.Store. It backs the
"memory" store driver and the tests of the realtime core and HTTP layer.
*/
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"roomchat/internal/app/store"
	"roomchat/internal/app/user"
)

type userRecord struct {
	user user.User
	hash string
}

type memberKey struct {
	roomID string
	userID string
}

// Store keeps every record in maps guarded by one RWMutex.
type Store struct {
	mu sync.RWMutex

	users      map[string]*userRecord
	byUsername map[string]string

	rooms   map[string]*store.Room
	members map[memberKey]time.Time

	messages []store.Message
	lastID   int64
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		users:      make(map[string]*userRecord),
		byUsername: make(map[string]string),
		rooms:      make(map[string]*store.Room),
		members:    make(map[memberKey]time.Time),
	}
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func (s *Store) CreateUser(_ context.Context, username, passwordHash string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[username]; ok {
		return nil, store.ErrConflict
	}

	u := user.User{ID: uuid.NewString(), Username: username, CreatedAt: time.Now().UTC()}
	s.users[u.ID] = &userRecord{user: u, hash: passwordHash}
	s.byUsername[username] = u.ID

	return &u, nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	u := rec.user
	return &u, nil
}

func (s *Store) GetCredentials(_ context.Context, username string) (*store.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	rec := s.users[id]
	return &store.Credentials{User: rec.user, PasswordHash: rec.hash}, nil
}

func (s *Store) ListUsers(_ context.Context, limit, offset int) ([]user.User, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]user.User, 0, len(s.users))
	for _, rec := range s.users {
		all = append(all, rec.user)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].Username < all[j].Username
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	return window(all, limit, offset), len(all), nil
}

func (s *Store) CreateRoom(_ context.Context, room *store.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	if _, ok := s.rooms[room.ID]; ok {
		return store.ErrConflict
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now().UTC()
	}

	stored := *room
	s.rooms[room.ID] = &stored
	return nil
}

func (s *Store) GetRoom(_ context.Context, id string) (*store.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := *room
	out.MemberCount = s.countMembersLocked(id)
	return &out, nil
}

func (s *Store) ListRooms(_ context.Context, limit, offset int) ([]store.Room, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]store.Room, 0, len(s.rooms))
	for id, room := range s.rooms {
		out := *room
		out.MemberCount = s.countMembersLocked(id)
		all = append(all, out)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	return window(all, limit, offset), len(all), nil
}

func (s *Store) UpdateRoom(_ context.Context, id string, patch store.RoomPatch) (*store.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if patch.Name != nil {
		room.Name = *patch.Name
	}
	if patch.Description != nil {
		room.Description = *patch.Description
	}

	out := *room
	out.MemberCount = s.countMembersLocked(id)
	return &out, nil
}

// DeleteRoom removes the room and its membership list; messages are kept.
func (s *Store) DeleteRoom(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.rooms, id)
	for key := range s.members {
		if key.roomID == id {
			delete(s.members, key)
		}
	}
	return nil
}

func (s *Store) AddMember(_ context.Context, roomID, userID string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[roomID]; !ok {
		return time.Time{}, store.ErrNotFound
	}

	key := memberKey{roomID: roomID, userID: userID}
	if joinedAt, ok := s.members[key]; ok {
		return joinedAt, nil
	}
	joinedAt := time.Now().UTC()
	s.members[key] = joinedAt
	return joinedAt, nil
}

func (s *Store) RemoveMember(_ context.Context, roomID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memberKey{roomID: roomID, userID: userID}
	if _, ok := s.members[key]; !ok {
		return store.ErrNotFound
	}
	delete(s.members, key)
	return nil
}

func (s *Store) IsMember(_ context.Context, roomID, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.members[memberKey{roomID: roomID, userID: userID}]
	return ok, nil
}

func (s *Store) AppendMessage(_ context.Context, msg *store.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	msg.ID = s.lastID
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	if msg.Username == "" {
		if rec, ok := s.users[msg.UserID]; ok {
			msg.Username = rec.user.Username
		}
	}
	s.messages = append(s.messages, *msg)
	return nil
}

// ListMessages walks the log backwards; ids increase in append order so the
// newest page is collected first and then reversed.
func (s *Store) ListMessages(_ context.Context, roomID string, before int64, limit int) ([]store.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Message, 0, limit)
	for i := len(s.messages) - 1; i >= 0 && len(out) < limit; i-- {
		m := s.messages[i]
		if m.RoomID != roomID || (before > 0 && m.ID >= before) {
			continue
		}
		out = append(out, m)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *Store) countMembersLocked(roomID string) int {
	n := 0
	for key := range s.members {
		if key.roomID == roomID {
			n++
		}
	}
	return n
}

func window[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return []T{}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}
