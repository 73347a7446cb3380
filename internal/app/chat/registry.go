package chat

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"roomchat/internal/pkg/errs"
)

// Registry is the table of live connections.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Conn

	// online counts authenticated live connections per user id. It changes
	// together with conns under mu.
	online map[string]int

	gate        *Gate
	hub         *Hub
	broadcaster *Broadcaster
	queueSize   int

	logger zerolog.Logger
}

// Register opens a new unauthenticated connection.
func (r *Registry) Register() *Conn {
	conn := newConn(uuid.NewString(), r.queueSize)

	r.mu.Lock()
	r.conns[conn.ID] = conn
	total := len(r.conns)
	r.mu.Unlock()

	r.logger.Debug().Str("conn_id", conn.ID).Int("total_conns", total).Msg("Connection registered.")
	return conn
}

// Get returns the live connection with id, or nil.
func (r *Registry) Get(id string) *Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conns[id]
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// IsOnline reports whether userID has at least one authenticated live connection.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.online[userID] > 0
}

// OnlineUsers returns the ids of users with a live connection, sorted.
func (r *Registry) OnlineUsers() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.online))
	for id := range r.online {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

// OnlineCount returns the number of distinct online users.
func (r *Registry) OnlineCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.online)
}

// Authenticate attaches the identity behind token to the connection and
// acknowledges with a connected frame. A connection authenticates once; on
// failure it stays open and unauthenticated.
func (r *Registry) Authenticate(ctx context.Context, connID, token string) error {
	conn := r.Get(connID)
	if conn == nil {
		return errs.NewError(errs.ErrUnauthorized)
	}
	if conn.Authenticated() {
		return errs.NewError(errs.ErrAlreadyAuthenticated)
	}

	u, err := r.gate.Authenticate(ctx, token)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.conns[conn.ID] != conn {
		r.mu.Unlock()
		return errs.NewError(errs.ErrUnauthorized)
	}
	if !conn.attach(*u) {
		r.mu.Unlock()
		return errs.NewError(errs.ErrAlreadyAuthenticated)
	}
	r.online[u.ID]++
	r.mu.Unlock()

	r.logger.Info().Str("conn_id", conn.ID).Str("user_id", u.ID).Msg("Connection authenticated.")
	r.broadcaster.Direct(conn, successFrame("Authenticated", ConnectedEvent{
		Type:     EventConnected,
		UserID:   u.ID,
		Username: u.Username,
	}))
	return nil
}

// Unregister removes the connection and force-leaves each room it had
// joined, in ascending room id order, notifying the remaining members.
// Calling it again is a no-op.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	conn, ok := r.conns[connID]
	delete(r.conns, connID)
	if ok {
		if ident, authed := conn.Identity(); authed {
			if r.online[ident.ID]--; r.online[ident.ID] <= 0 {
				delete(r.online, ident.ID)
			}
		}
	}
	total := len(r.conns)
	r.mu.Unlock()

	if !ok {
		return
	}

	rooms := conn.close()
	for _, roomID := range rooms {
		r.hub.forceLeave(conn, roomID)
	}

	r.logger.Debug().
		Str("conn_id", connID).
		Int("rooms_left", len(rooms)).
		Int("total_conns", total).
		Msg("Connection unregistered.")
}

// closeAll unregisters every connection; used at shutdown.
func (r *Registry) closeAll() {
	r.mu.RLock()
	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	for _, id := range ids {
		r.Unregister(id)
	}
}
