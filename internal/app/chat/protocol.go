/*
Package chat is the realtime room-messaging core: it authenticates live
connections, tracks which connection is in which room, persists chat messages
and fans events out to the right connections in per-room order.

This file defines the wire protocol: the closed set of inbound commands a
client may send and the outbound frames the server produces.
*/
package chat

import (
	"encoding/json"
	"strings"
	"time"

	"roomchat/internal/app/store"
	"roomchat/internal/pkg/errs"
)

// InboundType discriminates client frames.
type InboundType string

const (
	TypeAuth        InboundType = "auth"
	TypeJoinRoom    InboundType = "join_room"
	TypeLeaveRoom   InboundType = "leave_room"
	TypeSendMessage InboundType = "send_message"
	TypePing        InboundType = "ping"
)

// EventType discriminates server frames (data.type).
type EventType string

const (
	EventConnected       EventType = "connected"
	EventRoomJoined      EventType = "room_joined"
	EventUserJoined      EventType = "user_joined"
	EventRoomLeft        EventType = "room_left"
	EventUserLeft        EventType = "user_left"
	EventMessageSent     EventType = "message_sent"
	EventMessageReceived EventType = "message_received"
	EventRoomUpdated     EventType = "room_updated"
	EventRoomDeleted     EventType = "room_deleted"
	EventPong            EventType = "pong"
	EventError           EventType = "error"
)

// Command is one validated inbound frame.
type Command interface {
	inboundType() InboundType
}

type AuthCommand struct{ Token string }

type JoinCommand struct{ RoomID string }

type LeaveCommand struct{ RoomID string }

// SendCommand carries an optional RoomID; empty means the connection's
// current room.
type SendCommand struct {
	RoomID  string
	Content string
}

type PingCommand struct{}

func (AuthCommand) inboundType() InboundType  { return TypeAuth }
func (JoinCommand) inboundType() InboundType  { return TypeJoinRoom }
func (LeaveCommand) inboundType() InboundType { return TypeLeaveRoom }
func (SendCommand) inboundType() InboundType  { return TypeSendMessage }
func (PingCommand) inboundType() InboundType  { return TypePing }

// ParseCommand decodes and validates a raw client frame.
func ParseCommand(raw []byte) (Command, error) {
	var in struct {
		Type    InboundType `json:"type"`
		Token   string      `json:"token"`
		RoomID  string      `json:"room_id"`
		Content string      `json:"content"`
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, errs.NewError(errs.ErrInvalidJSONFormat)
	}

	switch in.Type {
	case TypeAuth:
		return AuthCommand{Token: strings.TrimSpace(in.Token)}, nil
	case TypeJoinRoom, TypeLeaveRoom:
		roomID := strings.TrimSpace(in.RoomID)
		if roomID == "" {
			return nil, errs.NewError(errs.ErrInvalidParams)
		}
		if in.Type == TypeJoinRoom {
			return JoinCommand{RoomID: roomID}, nil
		}
		return LeaveCommand{RoomID: roomID}, nil
	case TypeSendMessage:
		return SendCommand{RoomID: strings.TrimSpace(in.RoomID), Content: in.Content}, nil
	case TypePing:
		return PingCommand{}, nil
	default:
		return nil, errs.NewError(errs.ErrUnknownMessageType, in.Type)
	}
}

// Frame is the outbound envelope, shared with the HTTP control plane shape.
type Frame struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    int    `json:"code,omitempty"`
	Data    any    `json:"data"`
}

// ConnectedEvent acknowledges a successful auth.
type ConnectedEvent struct {
	Type     EventType `json:"type"`
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
}

// MembershipEvent covers room_joined, user_joined, room_left and user_left.
type MembershipEvent struct {
	Type     EventType `json:"type"`
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	RoomID   string    `json:"room_id"`
}

// MessageEvent covers message_sent and message_received.
type MessageEvent struct {
	Type      EventType `json:"type"`
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	RoomID    string    `json:"room_id"`
	CreatedAt time.Time `json:"created_at"`
}

type RoomUpdatedEvent struct {
	Type        EventType `json:"type"`
	RoomID      string    `json:"room_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	UpdatedBy   string    `json:"updated_by"`
}

type RoomDeletedEvent struct {
	Type      EventType `json:"type"`
	RoomID    string    `json:"room_id"`
	DeletedBy string    `json:"deleted_by"`
}

type bareEvent struct {
	Type EventType `json:"type"`
}

func successFrame(message string, data any) Frame {
	return Frame{Success: true, Message: message, Data: data}
}

func errorFrame(err error) Frame {
	customErr := errs.From(err)
	return Frame{
		Success: false,
		Error:   customErr.Message,
		Code:    customErr.Code,
		Data:    bareEvent{Type: EventError},
	}
}

func pongFrame() Frame {
	return successFrame("pong", bareEvent{Type: EventPong})
}

func messageFrame(t EventType, msg *store.Message) Frame {
	text := "Message received"
	if t == EventMessageSent {
		text = "Message sent"
	}
	return successFrame(text, MessageEvent{
		Type:      t,
		ID:        msg.ID,
		Content:   msg.Content,
		UserID:    msg.UserID,
		Username:  msg.Username,
		RoomID:    msg.RoomID,
		CreatedAt: msg.CreatedAt,
	})
}
