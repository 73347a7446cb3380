package chat

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"roomchat/internal/app/store"
	"roomchat/internal/pkg/errs"
	"roomchat/internal/pkg/logx"
)

// DefaultMaxContentBytes bounds message content when no limit is configured.
const DefaultMaxContentBytes = 5000

// Pipeline validates, persists and fans out chat messages.
type Pipeline struct {
	messages    store.MessageStore
	registry    *Registry
	hub         *Hub
	broadcaster *Broadcaster
	maxContent  int

	// now is the clock messages are stamped with.
	now func() time.Time

	logger zerolog.Logger
}

// Send appends content to the room's history and delivers it: message_sent
// to the sender, message_received to every other member. An empty roomID
// means the connection's most recently joined room.
//
// The room lock is held from timestamp assignment through fan-out, so members
// observe messages in persistence order. Nothing is delivered if the append fails.
func (p *Pipeline) Send(ctx context.Context, connID, roomID, content string) (*store.Message, error) {
	conn := p.registry.Get(connID)
	if conn == nil {
		return nil, errs.NewError(errs.ErrUnauthorized)
	}
	ident, ok := conn.Identity()
	if !ok {
		return nil, errs.NewError(errs.ErrUnauthorized)
	}

	if trimmed := strings.TrimSpace(content); trimmed == "" || len(content) > p.maxContent {
		return nil, errs.NewError(errs.ErrMessageContentInvalid, p.maxContent)
	}

	if roomID == "" {
		if roomID = conn.CurrentRoom(); roomID == "" {
			return nil, errs.NewError(errs.ErrNotAMember)
		}
	}

	st := p.hub.lockExisting(roomID)
	if st == nil {
		return nil, errs.NewError(errs.ErrNotAMember)
	}
	defer st.mu.Unlock()

	if _, ok := st.members[conn.ID]; !ok {
		return nil, errs.NewError(errs.ErrNotAMember)
	}

	now := p.hub.stamp(roomID, p.now().UTC().Truncate(time.Microsecond))

	msg := &store.Message{
		RoomID:    roomID,
		UserID:    ident.ID,
		Username:  ident.Username,
		Content:   content,
		CreatedAt: now,
	}
	if err := p.messages.AppendMessage(ctx, msg); err != nil {
		return nil, errs.NewError(errs.ErrStorageFailed, err)
	}
	p.hub.advanceClock(roomID, now)

	p.broadcaster.Direct(conn, messageFrame(EventMessageSent, msg))
	delivered := p.broadcaster.Room(st, messageFrame(EventMessageReceived, msg), conn.ID)

	p.logger.Debug().
		Int64("message_id", msg.ID).
		Str("room_id", roomID).
		Int("recipients", delivered).
		Msg("Message delivered.")

	return msg, nil
}

func newPipeline(messages store.MessageStore, b *Broadcaster, maxContent int) *Pipeline {
	if maxContent <= 0 {
		maxContent = DefaultMaxContentBytes
	}
	return &Pipeline{
		messages:    messages,
		broadcaster: b,
		maxContent:  maxContent,
		now:         time.Now,
		logger:      logx.Component("Pipeline"),
	}
}
