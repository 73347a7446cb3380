package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"roomchat/internal/app/store"
	"roomchat/internal/pkg/errs"
)

const (
	// MaxRoomNameLength bounds a room name in characters, after trimming.
	MaxRoomNameLength = 64

	// MaxRoomDescriptionLength bounds a room description in characters.
	MaxRoomDescriptionLength = 512

	// DefaultHistoryLimit is the page size of History when none is given.
	DefaultHistoryLimit = 50

	// MaxHistoryLimit caps a History page.
	MaxHistoryLimit = 100

	// archivePageSize is the batch size used to read a full transcript.
	archivePageSize = 500
)

// Archiver uploads a transcript under key and returns a time-limited
// download URL.
type Archiver interface {
	PutTranscript(ctx context.Context, key string, body []byte) (string, error)
}

// Archive describes an uploaded transcript.
type Archive struct {
	RoomID string `json:"room_id"`
	URL    string `json:"url"`
	Key    string `json:"key"`
	Count  int    `json:"count"`
}

// Rooms manages room metadata. Mutations are creator-only; Update and Delete
// also reach the live members through the Hub.
type Rooms struct {
	store    store.RoomStore
	messages store.MessageStore
	hub      *Hub
	archiver Archiver

	logger zerolog.Logger
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxRoomNameLength {
		return "", errs.NewError(errs.ErrRoomNameInvalid)
	}
	return name, nil
}

func checkDescription(description string) error {
	if utf8.RuneCountInString(description) > MaxRoomDescriptionLength {
		return errs.NewError(errs.ErrRoomDescriptionInvalid)
	}
	return nil
}

func storageError(err error, notFound int) error {
	if errors.Is(err, store.ErrNotFound) {
		return errs.NewError(notFound)
	}
	return errs.NewError(errs.ErrStorageFailed, err)
}

// Create stores a new room owned by creatorID and makes the creator its
// first persisted member.
func (m *Rooms) Create(ctx context.Context, creatorID, name, description string) (*store.Room, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	description = strings.TrimSpace(description)
	if err := checkDescription(description); err != nil {
		return nil, err
	}

	room := &store.Room{Name: name, Description: description, CreatorID: creatorID}
	if err := m.store.CreateRoom(ctx, room); err != nil {
		return nil, errs.NewError(errs.ErrStorageFailed, err)
	}
	if _, err := m.store.AddMember(ctx, room.ID, creatorID); err != nil {
		return nil, errs.NewError(errs.ErrStorageFailed, err)
	}
	room.MemberCount = 1

	m.logger.Info().Str("room_id", room.ID).Str("creator_id", creatorID).Msg("Room created.")
	return room, nil
}

// Get returns one room with its live online count.
func (m *Rooms) Get(ctx context.Context, roomID string) (*store.Room, error) {
	room, err := m.lookup(ctx, roomID)
	if err != nil {
		return nil, err
	}
	room.OnlineCount = len(m.hub.OnlineUsers(roomID))
	return room, nil
}

func (m *Rooms) lookup(ctx context.Context, roomID string) (*store.Room, error) {
	room, err := m.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, storageError(err, errs.ErrRoomNotFound)
	}
	return room, nil
}

// List returns one page of rooms, newest first, and the total count.
func (m *Rooms) List(ctx context.Context, limit, offset int) ([]store.Room, int, error) {
	rooms, total, err := m.store.ListRooms(ctx, limit, offset)
	if err != nil {
		return nil, 0, errs.NewError(errs.ErrStorageFailed, err)
	}
	for i := range rooms {
		rooms[i].OnlineCount = len(m.hub.OnlineUsers(rooms[i].ID))
	}
	return rooms, total, nil
}

// Update changes name and/or description. Live members get room_updated.
func (m *Rooms) Update(ctx context.Context, actorID, roomID string, name, description *string) (*store.Room, error) {
	room, err := m.lookup(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.CreatorID != actorID {
		return nil, errs.NewError(errs.ErrForbidden)
	}

	var patch store.RoomPatch
	if name != nil {
		normalized, err := normalizeName(*name)
		if err != nil {
			return nil, err
		}
		patch.Name = &normalized
	}
	if description != nil {
		trimmed := strings.TrimSpace(*description)
		if err := checkDescription(trimmed); err != nil {
			return nil, err
		}
		patch.Description = &trimmed
	}
	if patch.Name == nil && patch.Description == nil {
		return nil, errs.NewError(errs.ErrInvalidParams)
	}

	updated, err := m.store.UpdateRoom(ctx, roomID, patch)
	if err != nil {
		return nil, storageError(err, errs.ErrRoomNotFound)
	}

	if st := m.hub.lockExisting(roomID); st != nil {
		m.hub.broadcaster.Room(st, successFrame("Room updated", RoomUpdatedEvent{
			Type:        EventRoomUpdated,
			RoomID:      roomID,
			Name:        updated.Name,
			Description: updated.Description,
			UpdatedBy:   actorID,
		}), "")
		st.mu.Unlock()
	}

	m.logger.Info().Str("room_id", roomID).Str("user_id", actorID).Msg("Room updated.")
	return updated, nil
}

// Delete removes the room from the store and evicts every live member with
// room_deleted before returning. History is kept.
func (m *Rooms) Delete(ctx context.Context, actorID, roomID string) error {
	room, err := m.lookup(ctx, roomID)
	if err != nil {
		return err
	}
	if room.CreatorID != actorID {
		return errs.NewError(errs.ErrForbidden)
	}

	st := m.hub.lockRoom(roomID)
	if err := m.store.DeleteRoom(ctx, roomID); err != nil {
		st.mu.Unlock()
		return storageError(err, errs.ErrRoomNotFound)
	}
	evicted := m.hub.evictLocked(st, successFrame("Room deleted", RoomDeletedEvent{
		Type:      EventRoomDeleted,
		RoomID:    roomID,
		DeletedBy: actorID,
	}))
	st.mu.Unlock()
	m.hub.forget(roomID, st)
	m.hub.dropClock(roomID)

	m.logger.Info().
		Str("room_id", roomID).
		Str("user_id", actorID).
		Int("evicted", evicted).
		Msg("Room deleted.")
	return nil
}

// JoinPersisted records userID as a member without a live connection.
func (m *Rooms) JoinPersisted(ctx context.Context, userID, roomID string) (time.Time, error) {
	if _, err := m.lookup(ctx, roomID); err != nil {
		return time.Time{}, err
	}
	joinedAt, err := m.store.AddMember(ctx, roomID, userID)
	if err != nil {
		return time.Time{}, storageError(err, errs.ErrRoomNotFound)
	}
	return joinedAt, nil
}

// LeavePersisted removes the persisted membership. Live connections of the
// user are not affected.
func (m *Rooms) LeavePersisted(ctx context.Context, userID, roomID string) error {
	if _, err := m.lookup(ctx, roomID); err != nil {
		return err
	}
	if err := m.store.RemoveMember(ctx, roomID, userID); err != nil {
		return storageError(err, errs.ErrNotAMember)
	}
	return nil
}

// History returns up to limit messages older than before (0 for the newest),
// ascending by (created_at, id). Only persisted members may read it.
func (m *Rooms) History(ctx context.Context, actorID, roomID string, before int64, limit int) ([]store.Message, error) {
	if _, err := m.lookup(ctx, roomID); err != nil {
		return nil, err
	}

	member, err := m.store.IsMember(ctx, roomID, actorID)
	if err != nil {
		return nil, errs.NewError(errs.ErrStorageFailed, err)
	}
	if !member {
		return nil, errs.NewError(errs.ErrForbidden)
	}

	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}

	messages, err := m.messages.ListMessages(ctx, roomID, before, limit)
	if err != nil {
		return nil, errs.NewError(errs.ErrStorageFailed, err)
	}
	return messages, nil
}

// transcript is the JSON document written by Archive.
type transcript struct {
	Room       *store.Room     `json:"room"`
	ExportedAt time.Time       `json:"exported_at"`
	Messages   []store.Message `json:"messages"`
}

// Archive exports the room's full history to object storage. Creator only.
func (m *Rooms) Archive(ctx context.Context, actorID, roomID string) (*Archive, error) {
	if m.archiver == nil {
		return nil, errs.NewError(errs.ErrArchiveDisabled)
	}

	room, err := m.lookup(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.CreatorID != actorID {
		return nil, errs.NewError(errs.ErrForbidden)
	}

	var all []store.Message
	var before int64
	for {
		page, err := m.messages.ListMessages(ctx, roomID, before, archivePageSize)
		if err != nil {
			return nil, errs.NewError(errs.ErrStorageFailed, err)
		}
		all = append(page, all...)
		if len(page) < archivePageSize {
			break
		}
		before = page[0].ID
	}

	exportedAt := time.Now().UTC()
	body, err := json.Marshal(transcript{Room: room, ExportedAt: exportedAt, Messages: all})
	if err != nil {
		return nil, errs.NewError(errs.ErrUnknown, err)
	}

	key := fmt.Sprintf("rooms/%s/transcript-%d.json", roomID, exportedAt.Unix())
	url, err := m.archiver.PutTranscript(ctx, key, body)
	if err != nil {
		return nil, errs.NewError(errs.ErrStorageFailed, err)
	}

	m.logger.Info().Str("room_id", roomID).Str("key", key).Int("messages", len(all)).Msg("Room transcript archived.")
	return &Archive{RoomID: roomID, URL: url, Key: key, Count: len(all)}, nil
}
