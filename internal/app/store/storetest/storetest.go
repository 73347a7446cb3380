/*
Package storetest holds the behaviour every store.Store implementation must
share. Driver packages call Run from their own tests.
*/
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomchat/internal/app/store"
)

// Factory returns a fresh, empty store.
type Factory func(t *testing.T) store.Store

// Run executes the conformance suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("Rooms", func(t *testing.T) { testRooms(t, newStore(t)) })
	t.Run("Members", func(t *testing.T) { testMembers(t, newStore(t)) })
	t.Run("Messages", func(t *testing.T) { testMessages(t, newStore(t)) })
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()

	alice, err := s.CreateUser(ctx, "alice", "hash-a")
	require.NoError(t, err)
	assert.NotEmpty(t, alice.ID)
	assert.Equal(t, "alice", alice.Username)

	_, err = s.CreateUser(ctx, "alice", "other")
	assert.ErrorIs(t, err, store.ErrConflict)

	got, err := s.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.Username, got.Username)

	creds, err := s.GetCredentials(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "hash-a", creds.PasswordHash)
	assert.Equal(t, alice.ID, creds.User.ID)

	_, err = s.GetCredentials(ctx, "nobody")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.GetUserByID(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.CreateUser(ctx, "bob", "hash-b")
	require.NoError(t, err)

	users, total, err := s.ListUsers(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, users, 1)

	users, total, err = s.ListUsers(ctx, 10, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Empty(t, users)
}

func testRooms(t *testing.T, s store.Store) {
	ctx := context.Background()

	owner, err := s.CreateUser(ctx, "owner", "h")
	require.NoError(t, err)

	room := &store.Room{Name: "general", Description: "talk", CreatorID: owner.ID}
	require.NoError(t, s.CreateRoom(ctx, room))
	assert.NotEmpty(t, room.ID)
	assert.False(t, room.CreatedAt.IsZero())

	got, err := s.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, "general", got.Name)
	assert.Equal(t, owner.ID, got.CreatorID)

	name := "renamed"
	updated, err := s.UpdateRoom(ctx, room.ID, store.RoomPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, "talk", updated.Description)

	second := &store.Room{Name: "second", CreatorID: owner.ID}
	require.NoError(t, s.CreateRoom(ctx, second))
	_, err = s.AddMember(ctx, second.ID, owner.ID)
	require.NoError(t, err)

	rooms, total, err := s.ListRooms(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, rooms, 2)
	counts := map[string]int{}
	for _, r := range rooms {
		counts[r.ID] = r.MemberCount
	}
	assert.Equal(t, 1, counts[second.ID])
	assert.Equal(t, 0, counts[room.ID])

	require.NoError(t, s.DeleteRoom(ctx, room.ID))
	_, err = s.GetRoom(ctx, room.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteRoom(ctx, room.ID), store.ErrNotFound)

	_, err = s.UpdateRoom(ctx, room.ID, store.RoomPatch{Name: &name})
	assert.ErrorIs(t, err, store.ErrNotFound)

	rooms, total, err = s.ListRooms(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, rooms, 1)
	assert.Equal(t, second.ID, rooms[0].ID)
}

func testMembers(t *testing.T, s store.Store) {
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "member", "h")
	require.NoError(t, err)
	room := &store.Room{Name: "club", CreatorID: u.ID}
	require.NoError(t, s.CreateRoom(ctx, room))

	first, err := s.AddMember(ctx, room.ID, u.ID)
	require.NoError(t, err)

	again, err := s.AddMember(ctx, room.ID, u.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, first, again, time.Millisecond)

	ok, err := s.IsMember(ctx, room.ID, u.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.RemoveMember(ctx, room.ID, u.ID))
	assert.ErrorIs(t, s.RemoveMember(ctx, room.ID, u.ID), store.ErrNotFound)

	ok, err = s.IsMember(ctx, room.ID, u.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.AddMember(ctx, "00000000-0000-0000-0000-000000000000", u.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testMessages(t *testing.T, s store.Store) {
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "writer", "h")
	require.NoError(t, err)
	room := &store.Room{Name: "log", CreatorID: u.ID}
	require.NoError(t, s.CreateRoom(ctx, room))
	other := &store.Room{Name: "other", CreatorID: u.ID}
	require.NoError(t, s.CreateRoom(ctx, other))

	base := time.Now().UTC().Truncate(time.Millisecond)
	var ids []int64
	for i, content := range []string{"one", "two", "three", "four"} {
		msg := &store.Message{
			RoomID:    room.ID,
			UserID:    u.ID,
			Content:   content,
			CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
		}
		require.NoError(t, s.AppendMessage(ctx, msg))
		if len(ids) > 0 {
			assert.Greater(t, msg.ID, ids[len(ids)-1])
		}
		ids = append(ids, msg.ID)
	}
	require.NoError(t, s.AppendMessage(ctx, &store.Message{RoomID: other.ID, UserID: u.ID, Content: "elsewhere", CreatedAt: base}))

	page, err := s.ListMessages(ctx, room.ID, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "three", page[0].Content)
	assert.Equal(t, "four", page[1].Content)
	assert.Equal(t, "writer", page[1].Username)

	page, err = s.ListMessages(ctx, room.ID, page[0].ID, 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "one", page[0].Content)
	assert.Equal(t, "two", page[1].Content)

	// History outlives the room.
	require.NoError(t, s.DeleteRoom(ctx, room.ID))
	page, err = s.ListMessages(ctx, room.ID, 0, 10)
	require.NoError(t, err)
	assert.Len(t, page, 4)
}
