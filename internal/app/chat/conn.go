package chat

import (
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"roomchat/internal/app/user"
	"roomchat/internal/pkg/logx"
)

// Conn is one live client connection. Its outbound queue is bounded; when
// full the oldest frame is discarded so a slow reader never blocks a room.
type Conn struct {
	// ID is assigned at registration and never reused.
	ID string

	mu       sync.Mutex
	identity *user.User
	closed   bool

	// rooms is the connection side of the membership relation.
	rooms map[string]struct{}

	// joinOrder lists joined rooms oldest first; the last entry is the room
	// a send_message without room_id goes to.
	joinOrder []string

	queue   [][]byte
	limit   int
	dropped int

	ready chan struct{}
	done  chan struct{}

	logger zerolog.Logger
}

func newConn(id string, queueSize int) *Conn {
	return &Conn{
		ID:     id,
		rooms:  make(map[string]struct{}),
		limit:  queueSize,
		ready:  make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: logx.Logger().With().Str("conn_id", id).Logger(),
	}
}

// Identity returns the authenticated user, if any.
func (c *Conn) Identity() (user.User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.identity == nil {
		return user.User{}, false
	}
	return *c.identity, true
}

// Authenticated reports whether an identity is attached.
func (c *Conn) Authenticated() bool {
	_, ok := c.Identity()
	return ok
}

// attach sets the identity once; later calls fail.
func (c *Conn) attach(u user.User) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.identity != nil || c.closed {
		return false
	}
	c.identity = &u
	return true
}

// Rooms returns the joined room ids in ascending order.
func (c *Conn) Rooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sortedRoomsLocked()
}

func (c *Conn) sortedRoomsLocked() []string {
	ids := make([]string, 0, len(c.rooms))
	for id := range c.rooms {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// CurrentRoom returns the most recently joined room still joined, or "".
func (c *Conn) CurrentRoom() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.joinOrder) == 0 {
		return ""
	}
	return c.joinOrder[len(c.joinOrder)-1]
}

func (c *Conn) inRoom(roomID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.rooms[roomID]
	return ok
}

// addRoom records roomID; false when the connection is already closed.
func (c *Conn) addRoom(roomID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	c.rooms[roomID] = struct{}{}
	c.joinOrder = append(slices.DeleteFunc(c.joinOrder, func(id string) bool { return id == roomID }), roomID)
	return true
}

func (c *Conn) removeRoom(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.rooms, roomID)
	c.joinOrder = slices.DeleteFunc(c.joinOrder, func(id string) bool { return id == roomID })
}

// close marks the connection closed, wakes the writer and returns the rooms
// it still had joined. Only the first call returns rooms.
func (c *Conn) close() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)
	return c.sortedRoomsLocked()
}

// Closed reports whether the connection has been unregistered.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// enqueue appends a frame without blocking. It reports whether the frame was
// accepted and whether an older frame had to be discarded for it.
func (c *Conn) enqueue(frame []byte) (accepted, droppedOldest bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false, false
	}
	if len(c.queue) >= c.limit {
		c.queue[0] = nil
		c.queue = c.queue[1:]
		c.dropped++
		droppedOldest = true
	}
	c.queue = append(c.queue, frame)
	c.mu.Unlock()

	select {
	case c.ready <- struct{}{}:
	default:
	}
	return true, droppedOldest
}

// Ready is signalled when frames are waiting in the queue.
func (c *Conn) Ready() <-chan struct{} { return c.ready }

// Done is closed once the connection is unregistered.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Drain removes and returns every queued frame in order.
func (c *Conn) Drain() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	frames := c.queue
	c.queue = nil
	return frames
}

// Dropped returns how many frames were discarded because the queue was full.
func (c *Conn) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}
