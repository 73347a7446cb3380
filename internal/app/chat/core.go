package chat

import (
	"context"

	"github.com/rs/zerolog"

	"roomchat/internal/app/store"
	"roomchat/internal/pkg/errs"
	"roomchat/internal/pkg/logx"
)

// Options configures a Core.
type Options struct {
	JWTSecret string

	// SendQueueSize bounds each connection's outbound queue.
	SendQueueSize int

	// MaxContentBytes bounds message content.
	MaxContentBytes int

	// Archiver enables transcript export when non-nil.
	Archiver Archiver
}

// DefaultSendQueueSize is used when Options.SendQueueSize is not positive.
const DefaultSendQueueSize = 256

// Core wires the realtime components around one store.
type Core struct {
	Gate        *Gate
	Registry    *Registry
	Hub         *Hub
	Pipeline    *Pipeline
	Rooms       *Rooms
	Broadcaster *Broadcaster

	logger zerolog.Logger
}

// NewCore builds the realtime core and starts the hub's cleanup loop. Call
// Shutdown to stop it.
func NewCore(st store.Store, opts Options) *Core {
	if opts.SendQueueSize <= 0 {
		opts.SendQueueSize = DefaultSendQueueSize
	}

	b := newBroadcaster()
	gate := NewGate(st, opts.JWTSecret)
	hub := newHub(st, b)
	registry := &Registry{
		conns:       make(map[string]*Conn),
		online:      make(map[string]int),
		gate:        gate,
		hub:         hub,
		broadcaster: b,
		queueSize:   opts.SendQueueSize,
		logger:      logx.Component("Registry"),
	}
	hub.registry = registry

	pipeline := newPipeline(st, b, opts.MaxContentBytes)
	pipeline.registry = registry
	pipeline.hub = hub

	return &Core{
		Gate:        gate,
		Registry:    registry,
		Hub:         hub,
		Pipeline:    pipeline,
		Broadcaster: b,
		Rooms: &Rooms{
			store:    st,
			messages: st,
			hub:      hub,
			archiver: opts.Archiver,
			logger:   logx.Component("Rooms"),
		},
		logger: logx.Component("Core"),
	}
}

// Handle processes one raw frame from conn. Failures are answered with an
// error frame on the same connection, which stays open. Until auth succeeds
// only auth frames are accepted.
func (c *Core) Handle(ctx context.Context, conn *Conn, raw []byte) {
	cmd, err := ParseCommand(raw)
	if err != nil {
		c.logger.Debug().Err(err).Str("conn_id", conn.ID).Msg("Rejected malformed frame")
		c.Broadcaster.Direct(conn, errorFrame(err))
		return
	}

	if _, isAuth := cmd.(AuthCommand); !isAuth && !conn.Authenticated() {
		c.Broadcaster.Direct(conn, errorFrame(errs.NewError(errs.ErrUnauthorized)))
		return
	}

	switch cmd := cmd.(type) {
	case AuthCommand:
		err = c.Registry.Authenticate(ctx, conn.ID, cmd.Token)
	case JoinCommand:
		err = c.Hub.Join(ctx, conn.ID, cmd.RoomID)
	case LeaveCommand:
		err = c.Hub.Leave(ctx, conn.ID, cmd.RoomID)
	case SendCommand:
		_, err = c.Pipeline.Send(ctx, conn.ID, cmd.RoomID, cmd.Content)
	case PingCommand:
		c.Broadcaster.Direct(conn, pongFrame())
	}

	if err != nil {
		c.Broadcaster.Direct(conn, errorFrame(err))
	}
}

// Shutdown closes every connection and stops background work.
func (c *Core) Shutdown() {
	c.logger.Info().Int("connections", c.Registry.Count()).Msg("Shutting down realtime core...")
	c.Registry.closeAll()
	c.Hub.Shutdown()
}
