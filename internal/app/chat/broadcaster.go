package chat

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"roomchat/internal/pkg/logx"
)

// Broadcaster delivers frames to connection queues. It never blocks: a full
// queue loses its oldest frame and a closed connection is skipped.
type Broadcaster struct {
	logger zerolog.Logger
}

func newBroadcaster() *Broadcaster {
	return &Broadcaster{logger: logx.Component("Broadcaster")}
}

// Direct sends f to conn only.
func (b *Broadcaster) Direct(conn *Conn, f Frame) {
	payload, ok := b.encode(f)
	if !ok {
		return
	}
	b.deliver(conn, payload)
}

// Room sends f to every member of st except the connection with id exclude.
// The caller must hold st.mu, which fixes the recipient snapshot and the
// order of events within the room.
func (b *Broadcaster) Room(st *roomState, f Frame, exclude string) int {
	payload, ok := b.encode(f)
	if !ok {
		return 0
	}

	delivered := 0
	for id, conn := range st.members {
		if id == exclude {
			continue
		}
		if b.deliver(conn, payload) {
			delivered++
		}
	}
	return delivered
}

func (b *Broadcaster) encode(f Frame) ([]byte, bool) {
	payload, err := json.Marshal(f)
	if err != nil {
		b.logger.Error().Err(err).Msg("Error marshaling frame for delivery")
		return nil, false
	}
	return payload, true
}

func (b *Broadcaster) deliver(conn *Conn, payload []byte) bool {
	accepted, dropped := conn.enqueue(payload)
	if dropped {
		conn.logger.Warn().Int("dropped_total", conn.Dropped()).Msg("Send queue full, dropped oldest frame")
	}
	return accepted
}
