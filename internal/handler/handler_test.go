package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"roomchat/internal/app/chat"
	"roomchat/internal/app/store/memstore"
	"roomchat/internal/configs"
	"roomchat/internal/pkg/errs"
	"roomchat/internal/pkg/logx"
)

func TestMain(m *testing.M) {
	logx.Silence(io.Discard)
	os.Exit(m.Run())
}

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func (e envelope) decode(t *testing.T, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(e.Data, dst))
}

type testServer struct {
	t    *testing.T
	srv  *httptest.Server
	core *chat.Core
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st := memstore.New()
	cfg := &configs.AppConfig{Environment: "development", JWTSecret: "handler-test-secret"}
	core := chat.NewCore(st, chat.Options{JWTSecret: cfg.JWTSecret})

	router, stop := Router(&AppDeps{Core: core, Store: st, Config: cfg, PasswordCost: bcrypt.MinCost})
	srv := httptest.NewServer(router)

	t.Cleanup(func() {
		core.Shutdown()
		srv.Close()
		stop()
	})

	return &testServer{t: t, srv: srv, core: core}
}

func (s *testServer) do(method, path, token string, body any) (int, envelope) {
	s.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}

	r, err := http.NewRequest(method, s.srv.URL+path, reader)
	require.NoError(s.t, err)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := http.DefaultClient.Do(r)
	require.NoError(s.t, err)
	defer res.Body.Close()

	var env envelope
	require.NoError(s.t, json.NewDecoder(res.Body).Decode(&env))
	return res.StatusCode, env
}

type account struct {
	Token    string `json:"token"`
	ID       string `json:"id"`
	Username string `json:"username"`
}

func (s *testServer) register(username string) account {
	s.t.Helper()
	status, env := s.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": username,
		"password": "secret123",
	})
	require.Equal(s.t, http.StatusCreated, status, env.Error)

	var acc account
	env.decode(s.t, &acc)
	return acc
}

func (s *testServer) login(username, password string) (int, account) {
	s.t.Helper()
	status, env := s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	var acc account
	if env.Success {
		env.decode(s.t, &acc)
	}
	return status, acc
}

type wsFrame struct {
	Success bool           `json:"success"`
	Code    int            `json:"code"`
	Data    map[string]any `json:"data"`
}

func (s *testServer) dial() *websocket.Conn {
	s.t.Helper()
	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(s.t, err)
	s.t.Cleanup(func() { conn.Close() })
	return conn
}

func writeFrame(t *testing.T, conn *websocket.Conn, frame map[string]any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(frame))
}

func readFrame(t *testing.T, conn *websocket.Conn) wsFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var f wsFrame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func expectType(t *testing.T, conn *websocket.Conn, want string) wsFrame {
	t.Helper()
	f := readFrame(t, conn)
	require.Equal(t, want, f.Data["type"], "frame: %+v", f)
	return f
}

func TestRoomScenario(t *testing.T) {
	s := newTestServer(t)

	alice := s.register("alice")
	bob := s.register("bob")

	status, _ := s.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{"username": "alice", "password": "another1"})
	assert.Equal(t, http.StatusConflict, status)

	status, loggedIn := s.login("alice", "secret123")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, alice.ID, loggedIn.ID)
	alice.Token = loggedIn.Token

	status, _ = s.login("bob", "wrong-password")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env := s.do(http.MethodPost, "/api/v1/rooms", alice.Token, map[string]string{"name": "R"})
	require.Equal(t, http.StatusCreated, status)
	var room struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		CreatorID string `json:"creator_id"`
	}
	env.decode(t, &room)
	assert.Equal(t, "R", room.Name)
	assert.Equal(t, alice.ID, room.CreatorID)

	// A connects and joins.
	wsA := s.dial()
	writeFrame(t, wsA, map[string]any{"type": "join_room", "room_id": room.ID})
	f := readFrame(t, wsA)
	assert.False(t, f.Success)
	assert.Equal(t, errs.ErrUnauthorized, f.Code)

	writeFrame(t, wsA, map[string]any{"type": "auth", "token": alice.Token})
	f = expectType(t, wsA, "connected")
	assert.Equal(t, alice.ID, f.Data["user_id"])

	writeFrame(t, wsA, map[string]any{"type": "join_room", "room_id": room.ID})
	expectType(t, wsA, "room_joined")

	// B connects and joins; A hears about it.
	wsB := s.dial()
	writeFrame(t, wsB, map[string]any{"type": "auth", "token": bob.Token})
	expectType(t, wsB, "connected")
	writeFrame(t, wsB, map[string]any{"type": "join_room", "room_id": room.ID})

	f = expectType(t, wsB, "room_joined")
	assert.Equal(t, bob.ID, f.Data["user_id"])
	assert.Equal(t, room.ID, f.Data["room_id"])

	f = expectType(t, wsA, "user_joined")
	assert.Equal(t, bob.ID, f.Data["user_id"])

	// A says hello.
	writeFrame(t, wsA, map[string]any{"type": "send_message", "content": "hello"})
	f = expectType(t, wsA, "message_sent")
	assert.Equal(t, "hello", f.Data["content"])
	f = expectType(t, wsB, "message_received")
	assert.Equal(t, "hello", f.Data["content"])
	assert.Equal(t, alice.ID, f.Data["user_id"])

	status, env = s.do(http.MethodGet, "/api/v1/messages?room_id="+room.ID, alice.Token, nil)
	require.Equal(t, http.StatusOK, status)
	var history struct {
		Messages []struct {
			Content string `json:"content"`
			UserID  string `json:"user_id"`
		} `json:"messages"`
		RoomID string `json:"room_id"`
		Count  int    `json:"count"`
	}
	env.decode(t, &history)
	assert.Equal(t, room.ID, history.RoomID)
	require.Equal(t, 1, history.Count)
	assert.Equal(t, "hello", history.Messages[0].Content)
	assert.Equal(t, alice.ID, history.Messages[0].UserID)

	// Only the creator may delete.
	status, env = s.do(http.MethodDelete, "/api/v1/rooms/"+room.ID, bob.Token, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.False(t, env.Success)

	status, env = s.do(http.MethodDelete, "/api/v1/rooms/"+room.ID, alice.Token, nil)
	require.Equal(t, http.StatusOK, status)
	var deleted map[string]string
	env.decode(t, &deleted)
	assert.Equal(t, map[string]string{"room_id": room.ID, "deleted_by": alice.ID}, deleted)

	expectType(t, wsA, "room_deleted")
	expectType(t, wsB, "room_deleted")

	status, env = s.do(http.MethodGet, "/api/v1/rooms", "", nil)
	require.Equal(t, http.StatusOK, status)
	var listing struct {
		Rooms []struct {
			ID string `json:"id"`
		} `json:"rooms"`
		Total int `json:"total"`
	}
	env.decode(t, &listing)
	assert.Equal(t, 0, listing.Total)
	assert.Empty(t, listing.Rooms)
}

func TestDisconnectNotifiesRoom(t *testing.T) {
	s := newTestServer(t)
	alice, bob := s.register("alice"), s.register("bob")

	_, env := s.do(http.MethodPost, "/api/v1/rooms", alice.Token, map[string]string{"name": "R"})
	var room struct {
		ID string `json:"id"`
	}
	env.decode(t, &room)

	wsA, wsB := s.dial(), s.dial()
	for _, c := range []struct {
		conn  *websocket.Conn
		token string
	}{{wsA, alice.Token}, {wsB, bob.Token}} {
		writeFrame(t, c.conn, map[string]any{"type": "auth", "token": c.token})
		expectType(t, c.conn, "connected")
		writeFrame(t, c.conn, map[string]any{"type": "join_room", "room_id": room.ID})
		expectType(t, c.conn, "room_joined")
	}
	expectType(t, wsA, "user_joined")

	require.NoError(t, wsB.Close())

	f := expectType(t, wsA, "user_left")
	assert.Equal(t, bob.ID, f.Data["user_id"])
}

func TestControlPlaneErrors(t *testing.T) {
	s := newTestServer(t)
	alice, bob := s.register("alice"), s.register("bob")

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		body       any
		wantStatus int
		wantCode   int
	}{
		{"me without token", http.MethodGet, "/api/v1/users/me", "", nil, http.StatusUnauthorized, errs.ErrUnauthorized},
		{"me with garbage token", http.MethodGet, "/api/v1/users/me", "garbage", nil, http.StatusUnauthorized, errs.ErrUnauthorized},
		{"unknown user", http.MethodGet, "/api/v1/users/00000000-0000-0000-0000-000000000000", alice.Token, nil, http.StatusNotFound, errs.ErrUserNotFound},
		{"bad username", http.MethodPost, "/api/v1/auth/register", "", map[string]string{"username": "a!", "password": "secret123"}, http.StatusBadRequest, errs.ErrInvalidUsername},
		{"short password", http.MethodPost, "/api/v1/auth/register", "", map[string]string{"username": "carol", "password": "123"}, http.StatusBadRequest, errs.ErrInvalidPassword},
		{"unknown field", http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "alice", "pass": "x"}, http.StatusBadRequest, errs.ErrInvalidJSONFormat},
		{"empty room name", http.MethodPost, "/api/v1/rooms", alice.Token, map[string]string{"name": " "}, http.StatusBadRequest, errs.ErrRoomNameInvalid},
		{"missing room", http.MethodGet, "/api/v1/rooms/nope", "", nil, http.StatusNotFound, errs.ErrRoomNotFound},
		{"messages without room", http.MethodGet, "/api/v1/messages", bob.Token, nil, http.StatusBadRequest, errs.ErrInvalidParams},
		{"join missing room", http.MethodPost, "/api/v1/rooms/join", bob.Token, map[string]string{"room_id": "nope"}, http.StatusNotFound, errs.ErrRoomNotFound},
		{"bad page", http.MethodGet, "/api/v1/rooms?limit=-3", "", nil, http.StatusBadRequest, errs.ErrInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := s.do(tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.wantStatus, status)
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantCode, env.Code)
		})
	}
}

func TestRoomMembershipAndUpdate(t *testing.T) {
	s := newTestServer(t)
	alice, bob := s.register("alice"), s.register("bob")

	_, env := s.do(http.MethodPost, "/api/v1/rooms", alice.Token, map[string]string{"name": "R", "description": "first"})
	var room struct {
		ID string `json:"id"`
	}
	env.decode(t, &room)

	status, _ := s.do(http.MethodGet, "/api/v1/messages?room_id="+room.ID, bob.Token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env = s.do(http.MethodPost, "/api/v1/rooms/join", bob.Token, map[string]string{"room_id": room.ID})
	require.Equal(t, http.StatusOK, status)
	var joined struct {
		RoomID   string    `json:"room_id"`
		UserID   string    `json:"user_id"`
		JoinedAt time.Time `json:"joined_at"`
	}
	env.decode(t, &joined)
	assert.Equal(t, bob.ID, joined.UserID)
	assert.False(t, joined.JoinedAt.IsZero())

	status, _ = s.do(http.MethodGet, "/api/v1/messages?room_id="+room.ID, bob.Token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, env = s.do(http.MethodGet, "/api/v1/rooms/"+room.ID, "", nil)
	require.Equal(t, http.StatusOK, status)
	var got struct {
		MemberCount int `json:"member_count"`
	}
	env.decode(t, &got)
	assert.Equal(t, 2, got.MemberCount)

	status, _ = s.do(http.MethodPost, "/api/v1/rooms/leave", bob.Token, map[string]string{"room_id": room.ID})
	assert.Equal(t, http.StatusOK, status)
	status, env = s.do(http.MethodPost, "/api/v1/rooms/leave", bob.Token, map[string]string{"room_id": room.ID})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, errs.ErrNotAMember, env.Code)

	status, _ = s.do(http.MethodPatch, "/api/v1/rooms/"+room.ID, bob.Token, map[string]string{"description": "mine now"})
	assert.Equal(t, http.StatusForbidden, status)

	status, env = s.do(http.MethodPatch, "/api/v1/rooms/"+room.ID, alice.Token, map[string]string{"description": "second"})
	require.Equal(t, http.StatusOK, status)
	var updated map[string]string
	env.decode(t, &updated)
	assert.Equal(t, "second", updated["new_description"])
	assert.Equal(t, "R", updated["new_name"])
	assert.Equal(t, alice.ID, updated["updated_by"])

	status, env = s.do(http.MethodPost, "/api/v1/rooms/"+room.ID+"/archive", alice.Token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, errs.ErrArchiveDisabled, env.Code)
}

func TestUsersEndpoints(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")
	s.register("bob")

	status, env := s.do(http.MethodGet, "/api/v1/users/me", alice.Token, nil)
	require.Equal(t, http.StatusOK, status)
	var me map[string]any
	env.decode(t, &me)
	assert.Equal(t, alice.ID, me["id"])
	assert.Equal(t, "alice", me["username"])
	assert.NotContains(t, me, "password_hash")

	status, env = s.do(http.MethodGet, "/api/v1/users?limit=1", alice.Token, nil)
	require.Equal(t, http.StatusOK, status)
	var page struct {
		Users []map[string]any `json:"users"`
		Total int              `json:"total"`
		Limit int              `json:"limit"`
	}
	env.decode(t, &page)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 1, page.Limit)
	assert.Len(t, page.Users, 1)

	status, env = s.do(http.MethodGet, "/api/v1/users/"+alice.ID, alice.Token, nil)
	require.Equal(t, http.StatusOK, status)

	status, env = s.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, status)
	var health map[string]any
	env.decode(t, &health)
	assert.Equal(t, "ok", health["status"])
}

func (s *testServer) joinOverWS(acc account, roomID string) *websocket.Conn {
	s.t.Helper()
	conn := s.dial()
	writeFrame(s.t, conn, map[string]any{"type": "auth", "token": acc.Token})
	expectType(s.t, conn, "connected")
	writeFrame(s.t, conn, map[string]any{"type": "join_room", "room_id": roomID})
	expectType(s.t, conn, "room_joined")
	return conn
}

func TestPresenceEndpoints(t *testing.T) {
	s := newTestServer(t)
	alice, bob := s.register("alice"), s.register("bob")

	_, env := s.do(http.MethodPost, "/api/v1/rooms", alice.Token, map[string]string{"name": "R"})
	var room struct {
		ID string `json:"id"`
	}
	env.decode(t, &room)

	status, env := s.do(http.MethodGet, "/api/v1/users/me", alice.Token, nil)
	require.Equal(t, http.StatusOK, status)
	var me map[string]any
	env.decode(t, &me)
	assert.Equal(t, false, me["is_online"])

	s.joinOverWS(alice, room.ID)

	_, env = s.do(http.MethodGet, "/api/v1/users/"+alice.ID, bob.Token, nil)
	var got map[string]any
	env.decode(t, &got)
	assert.Equal(t, true, got["is_online"])
	assert.Equal(t, "alice", got["username"])

	_, env = s.do(http.MethodGet, "/api/v1/users", bob.Token, nil)
	var page struct {
		Users []struct {
			ID       string `json:"id"`
			IsOnline bool   `json:"is_online"`
		} `json:"users"`
	}
	env.decode(t, &page)
	online := map[string]bool{}
	for _, u := range page.Users {
		online[u.ID] = u.IsOnline
	}
	assert.Equal(t, map[string]bool{alice.ID: true, bob.ID: false}, online)

	_, env = s.do(http.MethodGet, "/api/v1/users/online", bob.Token, nil)
	var onlineUsers struct {
		UserIDs []string `json:"user_ids"`
		Count   int      `json:"count"`
	}
	env.decode(t, &onlineUsers)
	assert.Equal(t, []string{alice.ID}, onlineUsers.UserIDs)
	assert.Equal(t, 1, onlineUsers.Count)

	_, env = s.do(http.MethodGet, "/api/v1/rooms/"+room.ID, "", nil)
	var roomView struct {
		MemberCount int `json:"member_count"`
		OnlineCount int `json:"online_count"`
	}
	env.decode(t, &roomView)
	assert.Equal(t, 1, roomView.MemberCount)
	assert.Equal(t, 1, roomView.OnlineCount)

	status, env = s.do(http.MethodGet, "/api/v1/rooms/"+room.ID+"/online", "", nil)
	require.Equal(t, http.StatusOK, status)
	var roomOnline struct {
		RoomID  string   `json:"room_id"`
		UserIDs []string `json:"user_ids"`
	}
	env.decode(t, &roomOnline)
	assert.Equal(t, room.ID, roomOnline.RoomID)
	assert.Equal(t, []string{alice.ID}, roomOnline.UserIDs)
}

func TestShutdownFlushesQueuedFrames(t *testing.T) {
	s := newTestServer(t)
	alice, bob := s.register("alice"), s.register("bob")

	_, env := s.do(http.MethodPost, "/api/v1/rooms", alice.Token, map[string]string{"name": "R"})
	var room struct {
		ID string `json:"id"`
	}
	env.decode(t, &room)

	wsA := s.joinOverWS(alice, room.ID)
	wsB := s.joinOverWS(bob, room.ID)
	expectType(t, wsA, "user_joined")

	s.core.Shutdown()

	// Whichever connection closes second was told the other one left, and
	// must receive that frame before the close.
	userLeft := 0
	for _, conn := range []*websocket.Conn{wsA, wsB} {
		for {
			require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
			var f wsFrame
			err := conn.ReadJSON(&f)
			if err != nil {
				assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected read error: %v", err)
				break
			}
			if f.Data["type"] == "user_left" {
				userLeft++
			}
		}
	}
	assert.Equal(t, 1, userLeft)
}
