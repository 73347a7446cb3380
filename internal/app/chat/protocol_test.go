package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomchat/internal/pkg/errs"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		want     Command
		wantCode int
	}{
		{"auth", `{"type":"auth","token":" abc "}`, AuthCommand{Token: "abc"}, 0},
		{"join", `{"type":"join_room","room_id":"r1"}`, JoinCommand{RoomID: "r1"}, 0},
		{"leave", `{"type":"leave_room","room_id":"r1"}`, LeaveCommand{RoomID: "r1"}, 0},
		{"send with room", `{"type":"send_message","room_id":"r1","content":"hi"}`, SendCommand{RoomID: "r1", Content: "hi"}, 0},
		{"send implicit room", `{"type":"send_message","content":"hi"}`, SendCommand{Content: "hi"}, 0},
		{"ping", `{"type":"ping"}`, PingCommand{}, 0},
		{"join without room", `{"type":"join_room"}`, nil, errs.ErrInvalidParams},
		{"unknown type", `{"type":"typing"}`, nil, errs.ErrUnknownMessageType},
		{"missing type", `{}`, nil, errs.ErrUnknownMessageType},
		{"not json", `hello`, nil, errs.ErrInvalidJSONFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := ParseCommand([]byte(tt.raw))
			if tt.wantCode != 0 {
				require.Error(t, err)
				assert.True(t, errs.IsCode(err, tt.wantCode), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cmd)
		})
	}
}

func TestErrorFrameShape(t *testing.T) {
	f := errorFrame(errs.NewError(errs.ErrNotAMember))
	assert.False(t, f.Success)
	assert.Equal(t, errs.ErrNotAMember, f.Code)
	assert.NotEmpty(t, f.Error)
	assert.Equal(t, bareEvent{Type: EventError}, f.Data)
}
