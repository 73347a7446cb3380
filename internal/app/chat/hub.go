package chat

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"roomchat/internal/app/store"
	"roomchat/internal/pkg/errs"
	"roomchat/internal/pkg/logx"
)

// ErrConnClosed is returned when a join races with the connection's
// unregistration.
var ErrConnClosed = errors.New("chat: connection closed")

// roomState is the live side of one room. mu serializes membership changes,
// message ordering and every fan-out for the room.
type roomState struct {
	id string

	mu      sync.Mutex
	members map[string]*Conn

	// retired states are no longer reachable from the hub map; holders must
	// look the room up again.
	retired bool
}

// Hub owns the room side of the membership relation. Lock order is hub map,
// then room, then connection.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*roomState

	store       store.RoomStore
	registry    *Registry
	broadcaster *Broadcaster

	// clocks keeps the newest message timestamp per room across state
	// retirement. clockMu is taken only with a room lock held.
	clockMu sync.Mutex
	clocks  map[string]time.Time

	// cleanup carries ids of rooms that became empty.
	cleanup  chan string
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	logger zerolog.Logger
}

func newHub(rooms store.RoomStore, b *Broadcaster) *Hub {
	h := &Hub{
		rooms:       make(map[string]*roomState),
		clocks:      make(map[string]time.Time),
		store:       rooms,
		broadcaster: b,
		cleanup:     make(chan string, 64),
		done:        make(chan struct{}),
		logger:      logx.Component("Hub"),
	}

	h.wg.Add(1)
	go h.runCleanupLoop()

	return h
}

// runCleanupLoop retires room states that are still empty when their id
// comes through the cleanup channel.
func (h *Hub) runCleanupLoop() {
	defer h.wg.Done()

	h.logger.Info().Msg("Cleanup loop started.")

	for {
		select {
		case roomID := <-h.cleanup:
			h.retireIfEmpty(roomID)
		case <-h.done:
			h.logger.Info().Msg("Cleanup loop stopped.")
			return
		}
	}
}

func (h *Hub) retireIfEmpty(roomID string) {
	h.mu.RLock()
	st := h.rooms[roomID]
	h.mu.RUnlock()

	if st == nil {
		return
	}

	// The room lock may be held across a store call; never wait for it while
	// holding the hub map lock.
	st.mu.Lock()
	if st.retired || len(st.members) > 0 {
		st.mu.Unlock()
		return
	}
	st.retired = true
	st.mu.Unlock()

	h.forget(roomID, st)
	h.logger.Debug().Str("room_id", roomID).Msg("Empty room state retired.")
}

// scheduleCleanup never blocks; a skipped id is retried at the next empty transition.
func (h *Hub) scheduleCleanup(roomID string) {
	select {
	case h.cleanup <- roomID:
	case <-h.done:
	default:
		h.logger.Warn().Str("room_id", roomID).Msg("Cleanup channel full. Skipping cleanup notification.")
	}
}

// lockRoom returns the live state for roomID, creating it if needed, with
// its mutex held.
func (h *Hub) lockRoom(roomID string) *roomState {
	for {
		h.mu.RLock()
		st := h.rooms[roomID]
		h.mu.RUnlock()

		if st == nil {
			h.mu.Lock()
			if st = h.rooms[roomID]; st == nil {
				st = &roomState{id: roomID, members: make(map[string]*Conn)}
				h.rooms[roomID] = st
			}
			h.mu.Unlock()
		}

		st.mu.Lock()
		if !st.retired {
			return st
		}
		st.mu.Unlock()
		h.forget(roomID, st)
	}
}

// lockExisting is lockRoom without creation; nil when the room has no live state.
func (h *Hub) lockExisting(roomID string) *roomState {
	h.mu.RLock()
	st := h.rooms[roomID]
	h.mu.RUnlock()

	if st == nil {
		return nil
	}

	st.mu.Lock()
	if st.retired {
		st.mu.Unlock()
		return nil
	}
	return st
}

// forget drops st from the map if it is still the registered state for roomID.
func (h *Hub) forget(roomID string, st *roomState) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[roomID] == st {
		delete(h.rooms, roomID)
	}
}

// stamp returns now, raised to the room's newest message timestamp if the
// wall clock went backwards. The caller must hold the room lock.
func (h *Hub) stamp(roomID string, now time.Time) time.Time {
	h.clockMu.Lock()
	defer h.clockMu.Unlock()

	if last, ok := h.clocks[roomID]; ok && now.Before(last) {
		return last
	}
	return now
}

// advanceClock records t as the room's newest message timestamp.
func (h *Hub) advanceClock(roomID string, t time.Time) {
	h.clockMu.Lock()
	defer h.clockMu.Unlock()

	if t.After(h.clocks[roomID]) {
		h.clocks[roomID] = t
	}
}

func (h *Hub) dropClock(roomID string) {
	h.clockMu.Lock()
	delete(h.clocks, roomID)
	h.clockMu.Unlock()
}

// Join adds the connection to the room. Re-joining re-sends the
// acknowledgment without a second membership or broadcast.
func (h *Hub) Join(ctx context.Context, connID, roomID string) error {
	conn := h.registry.Get(connID)
	if conn == nil {
		return errs.NewError(errs.ErrUnauthorized)
	}
	ident, ok := conn.Identity()
	if !ok {
		return errs.NewError(errs.ErrUnauthorized)
	}

	st := h.lockRoom(roomID)
	defer st.mu.Unlock()
	defer func() {
		if len(st.members) == 0 {
			h.scheduleCleanup(roomID)
		}
	}()

	joined := successFrame("Joined room", MembershipEvent{
		Type:     EventRoomJoined,
		UserID:   ident.ID,
		Username: ident.Username,
		RoomID:   roomID,
	})

	if _, ok := st.members[conn.ID]; ok {
		h.broadcaster.Direct(conn, joined)
		return nil
	}

	if _, err := h.store.GetRoom(ctx, roomID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errs.NewError(errs.ErrRoomNotFound)
		}
		return errs.NewError(errs.ErrStorageFailed, err)
	}

	if _, err := h.store.AddMember(ctx, roomID, ident.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errs.NewError(errs.ErrRoomNotFound)
		}
		return errs.NewError(errs.ErrStorageFailed, err)
	}

	if !conn.addRoom(roomID) {
		return ErrConnClosed
	}
	st.members[conn.ID] = conn

	h.logger.Info().
		Str("room_id", roomID).
		Str("conn_id", conn.ID).
		Str("user_id", ident.ID).
		Int("total_members", len(st.members)).
		Msg("Connection joined room.")

	h.broadcaster.Direct(conn, joined)
	h.broadcaster.Room(st, successFrame("User joined", MembershipEvent{
		Type:     EventUserJoined,
		UserID:   ident.ID,
		Username: ident.Username,
		RoomID:   roomID,
	}), conn.ID)

	return nil
}

// Leave removes the connection from the room, acknowledges it and tells the
// remaining members.
func (h *Hub) Leave(ctx context.Context, connID, roomID string) error {
	conn := h.registry.Get(connID)
	if conn == nil || !conn.Authenticated() {
		return errs.NewError(errs.ErrUnauthorized)
	}

	if !h.leave(conn, roomID, true) {
		return errs.NewError(errs.ErrNotAMember)
	}
	return nil
}

// forceLeave is Leave on behalf of a closing connection.
func (h *Hub) forceLeave(conn *Conn, roomID string) {
	h.leave(conn, roomID, false)
}

func (h *Hub) leave(conn *Conn, roomID string, ack bool) bool {
	st := h.lockExisting(roomID)
	if st == nil {
		return false
	}
	defer st.mu.Unlock()

	if _, ok := st.members[conn.ID]; !ok {
		return false
	}

	delete(st.members, conn.ID)
	conn.removeRoom(roomID)

	ident, _ := conn.Identity()
	h.logger.Info().
		Str("room_id", roomID).
		Str("conn_id", conn.ID).
		Int("total_members", len(st.members)).
		Msg("Connection left room.")

	if ack {
		h.broadcaster.Direct(conn, successFrame("Left room", MembershipEvent{
			Type:     EventRoomLeft,
			UserID:   ident.ID,
			Username: ident.Username,
			RoomID:   roomID,
		}))
	}
	h.broadcaster.Room(st, successFrame("User left", MembershipEvent{
		Type:     EventUserLeft,
		UserID:   ident.ID,
		Username: ident.Username,
		RoomID:   roomID,
	}), conn.ID)

	if len(st.members) == 0 {
		h.scheduleCleanup(roomID)
	}
	return true
}

// Members returns a snapshot of the connection ids in the room, sorted.
func (h *Hub) Members(roomID string) []string {
	st := h.lockExisting(roomID)
	if st == nil {
		return []string{}
	}
	defer st.mu.Unlock()

	ids := make([]string, 0, len(st.members))
	for id := range st.members {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// OnlineUsers returns the distinct ids of users with a live connection in
// the room, sorted.
func (h *Hub) OnlineUsers(roomID string) []string {
	st := h.lockExisting(roomID)
	if st == nil {
		return []string{}
	}
	defer st.mu.Unlock()

	ids := make([]string, 0, len(st.members))
	for _, conn := range st.members {
		if ident, ok := conn.Identity(); ok {
			ids = append(ids, ident.ID)
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// evictLocked closes the room's live state: every member gets f and loses the
// membership. The caller must hold st.mu.
func (h *Hub) evictLocked(st *roomState, f Frame) int {
	h.broadcaster.Room(st, f, "")

	evicted := len(st.members)
	for id, conn := range st.members {
		conn.removeRoom(st.id)
		delete(st.members, id)
	}
	st.retired = true
	return evicted
}

// Shutdown stops the cleanup loop and drops all live room state.
func (h *Hub) Shutdown() {
	h.logger.Info().Msg("Shutting down Hub cleanup loop...")

	h.stopOnce.Do(func() { close(h.done) })
	h.wg.Wait()

	h.mu.Lock()
	h.rooms = make(map[string]*roomState)
	h.mu.Unlock()

	h.logger.Info().Msg("Hub shutdown complete.")
}
