package chat

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"roomchat/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 8192
)

// Client binds a registered Conn to a WebSocket transport.
type Client struct {
	core *Core
	conn *Conn
	ws   *websocket.Conn

	// ctx is cancelled when ReadPump returns.
	ctx    context.Context
	cancel context.CancelFunc

	logger zerolog.Logger
}

// NewClient registers a new connection for ws.
func NewClient(core *Core, ws *websocket.Conn) *Client {
	conn := core.Registry.Register()
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		core:   core,
		conn:   conn,
		ws:     ws,
		ctx:    ctx,
		cancel: cancel,
		logger: logx.Logger().With().
			Str("conn_id", conn.ID).
			Str("remote_addr", ws.RemoteAddr().String()).
			Logger(),
	}
}

// ConnID returns the registry id of the client's connection.
func (c *Client) ConnID() string { return c.conn.ID }

// ReadPump reads frames until the transport fails, handing each to the core.
// On exit the connection is unregistered, which releases all its rooms.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.ws.SetReadLimit(maxMessageSize)

	if err := c.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, messageBytes, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}

		c.core.Handle(c.ctx, c.conn, messageBytes)
	}
}

// cleanupOnDisconnect unregisters the connection and closes the transport.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Client connection cleanup starting.")

	c.cancel()
	c.core.Registry.Unregister(c.conn.ID)

	if err := c.ws.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

// WritePump drains the connection's queue onto the socket and keeps the
// heartbeat going. It returns when the connection is unregistered or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit
		if err := c.ws.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case <-c.conn.Ready():
			for _, frame := range c.conn.Drain() {
				if !c.writeFrame(frame) {
					return
				}
			}

		case <-c.conn.Done():
			// Frames queued before the close (the last user_left events) still go out.
			for _, frame := range c.conn.Drain() {
				if !c.writeFrame(frame) {
					return
				}
			}
			c.writeClose()
			return

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeFrame writes one queued frame. Returns false if the pump should stop.
func (c *Client) writeFrame(frame []byte) bool {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Warn().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

func (c *Client) writeClose() {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return
	}
	if err := c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")); err != nil {
		c.logger.Debug().Err(err).Msg("Error writing close message")
	}
}

// writePingMessage sends a periodic WebSocket Ping message to maintain the connection heartbeat.
// Returns false if the WritePump loop should terminate due to write failure.
func (c *Client) writePingMessage() bool {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Warn().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
