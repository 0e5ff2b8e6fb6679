package api_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/duelrooms/internal/api"
	"github.com/mcoot/duelrooms/internal/api/apierr"
	"github.com/mcoot/duelrooms/internal/api/response"
	"github.com/mcoot/duelrooms/internal/factory"
	"github.com/mcoot/duelrooms/internal/model"
	"github.com/mcoot/duelrooms/internal/realtime"
	"github.com/mcoot/duelrooms/internal/testutil"
)

// testServer creates a test server with all dependencies
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	app := factory.NewTestApp()
	t.Cleanup(func() { _ = app.Close() })

	router := api.NewRouter(api.RouterConfig{
		Logger:      testutil.NopLogger(),
		RoomService: app.RoomService,
		UserService: app.UserService,
		HubManager:  app.HubManager,
		WSHandler:   app.WSHandler,
	})

	return &testServer{handler: router, app: app}
}

func (ts *testServer) request(method, path string, body any) *httptest.ResponseRecorder {
	reqBody := bytes.NewBuffer(nil)
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	return v
}

func assertErrorCode(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	assert.Equal(t, status, rr.Code)
	assert.Equal(t, code, decode[apierr.ErrorResponse](t, rr).Error.Code)
}

func (ts *testServer) register(t *testing.T, name string) response.User {
	t.Helper()
	rr := ts.request(http.MethodPost, "/api/v1/users", map[string]string{"displayName": name, "password": "pw-" + name})
	require.Equal(t, http.StatusCreated, rr.Code)
	return decode[response.User](t, rr)
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decode[response.Health](t, rr).Status)
}

func TestCreateRoom(t *testing.T) {
	ts := newTestServer(t)
	ts.app.MockRandom.QueueString("ROOM42")

	rr := ts.request(http.MethodPost, "/api/v1/rooms", map[string]string{"hostId": "u1"})
	require.Equal(t, http.StatusCreated, rr.Code)

	room := decode[response.Room](t, rr)
	assert.Equal(t, "ROOM42", room.ID)
	require.NotNil(t, room.HostID)
	assert.Equal(t, "u1", *room.HostID)
	assert.Nil(t, room.OpponentID)
	assert.Equal(t, "waiting", room.Status)
	assert.Equal(t, 50, room.HostHP)
	assert.Equal(t, 50, room.OpponentHP)
	assert.Nil(t, room.WinnerID)
	assert.Nil(t, room.StartAt)
}

func TestCreateRoomFullShapeOnTheWire(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/rooms", map[string]string{"hostId": "u1"})
	require.Equal(t, http.StatusCreated, rr.Code)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
	for _, key := range []string{
		"id", "hostId", "opponentId", "status", "hostHP", "opponentHP", "winnerId",
		"hostReady", "opponentReady", "startAt", "createdAt", "updatedAt",
	} {
		assert.Contains(t, raw, key)
	}
}

func TestCreateRoomWithoutBody(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/rooms", nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Nil(t, decode[response.Room](t, rr).HostID)
}

func TestCreateRoomInvalidBody(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rooms", strings.NewReader("{nope"))
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	assertErrorCode(t, rr, http.StatusBadRequest, apierr.CodeInvalidRequest)
}

func TestGetAndListRooms(t *testing.T) {
	ts := newTestServer(t)
	ts.app.MockRandom.QueueString("FIRST1", "SECOND")

	ts.request(http.MethodPost, "/api/v1/rooms", map[string]string{"hostId": "u1"})
	ts.app.MockClock.Advance(time.Second)
	ts.request(http.MethodPost, "/api/v1/rooms", map[string]string{"hostId": "u2"})

	rr := ts.request(http.MethodGet, "/api/v1/rooms/SECOND", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "SECOND", decode[response.Room](t, rr).ID)

	rr = ts.request(http.MethodGet, "/api/v1/rooms", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rooms := decode[[]response.Room](t, rr)
	require.Len(t, rooms, 2)
	assert.Equal(t, "FIRST1", rooms[0].ID)
	assert.Equal(t, "SECOND", rooms[1].ID)
}

func TestListRoomsEmpty(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/rooms", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rr.Body.String()))
}

func TestGetRoomNotFound(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/rooms/NOPE00", nil)
	assertErrorCode(t, rr, http.StatusNotFound, apierr.CodeRoomNotFound)
}

func TestRoomEventsNotFound(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/rooms/NOPE00/events", nil)
	assertErrorCode(t, rr, http.StatusNotFound, apierr.CodeRoomNotFound)
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)

	alice := ts.register(t, "alice")
	assert.NotEmpty(t, alice.ID)
	assert.Equal(t, "alice", alice.DisplayName)
	assert.Zero(t, alice.Wins)

	rr := ts.request(http.MethodPost, "/api/v1/users/login", map[string]string{"displayName": "alice", "password": "pw-alice"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, alice.ID, decode[response.User](t, rr).ID)
	assert.NotContains(t, rr.Body.String(), "password")
}

func TestLoginWrongPassword(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice")

	rr := ts.request(http.MethodPost, "/api/v1/users/login", map[string]string{"displayName": "alice", "password": "guess"})
	assertErrorCode(t, rr, http.StatusUnauthorized, apierr.CodeInvalidCredentials)
}

func TestRegisterErrors(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice")

	rr := ts.request(http.MethodPost, "/api/v1/users", map[string]string{"displayName": "alice", "password": "other"})
	assertErrorCode(t, rr, http.StatusConflict, apierr.CodeDisplayNameTaken)

	rr = ts.request(http.MethodPost, "/api/v1/users", map[string]string{"displayName": "bob"})
	assertErrorCode(t, rr, http.StatusBadRequest, apierr.CodeInvalidRequest)
}

func TestGetUser(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.register(t, "alice")

	rr := ts.request(http.MethodGet, "/api/v1/users/"+alice.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "alice", decode[response.User](t, rr).DisplayName)

	rr = ts.request(http.MethodGet, "/api/v1/users/nobody", nil)
	assertErrorCode(t, rr, http.StatusNotFound, apierr.CodeUserNotFound)
}

func TestLeaderboard(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.register(t, "alice")
	bob := ts.register(t, "bob")

	// Play bob to a win over alice through the services
	ctx := context.Background()
	ts.app.MockRandom.QueueString("DUEL01")
	r, err := ts.app.RoomService.CreateRoom(ctx, "")
	require.NoError(t, err)
	_, err = ts.app.Coordinator.JoinGame(ctx, r.ID, model.UserID(bob.ID), nil)
	require.NoError(t, err)
	_, err = ts.app.Coordinator.JoinGame(ctx, r.ID, model.UserID(alice.ID), nil)
	require.NoError(t, err)
	for _, id := range []string{bob.ID, alice.ID} {
		_, err = ts.app.Scheduler.SetReady(ctx, r.ID, model.UserID(id), true)
		require.NoError(t, err)
	}
	ts.app.MockClock.Advance(3 * time.Second)
	for range 50 {
		_, err = ts.app.Resolver.Attack(ctx, r.ID, model.UserID(bob.ID))
		require.NoError(t, err)
	}

	rr := ts.request(http.MethodGet, "/api/v1/users", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	board := decode[[]response.User](t, rr)
	require.Len(t, board, 2)
	assert.Equal(t, "bob", board[0].DisplayName)
	assert.Equal(t, 1, board[0].Wins)
	assert.Equal(t, "alice", board[1].DisplayName)
	assert.Equal(t, 1, board[1].Losses)
}

func TestRoomEventsStream(t *testing.T) {
	ts := newTestServer(t)
	ts.app.MockRandom.QueueString("LIVE01")
	srv := httptest.NewServer(ts.handler)
	defer srv.Close()

	rr := ts.request(http.MethodPost, "/api/v1/rooms", map[string]string{"hostId": "u1"})
	require.Equal(t, http.StatusCreated, rr.Code)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/rooms/LIVE01/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	reader := bufio.NewReader(resp.Body)

	assert.Equal(t, realtime.EventConnected, nextEventName(t, reader))
	assert.Equal(t, realtime.EventGameUpdate, nextEventName(t, reader))

	_, err = ts.app.Coordinator.JoinGame(ctx, "LIVE01", "u2", nil)
	require.NoError(t, err)
	assert.Equal(t, realtime.EventGameUpdate, nextEventName(t, reader))
}

func TestWebSocketThroughRouter(t *testing.T) {
	ts := newTestServer(t)
	ts.app.MockRandom.QueueString("SOCK01")
	srv := httptest.NewServer(ts.handler)
	defer srv.Close()

	rr := ts.request(http.MethodPost, "/api/v1/rooms", map[string]string{"hostId": "u1"})
	require.Equal(t, http.StatusCreated, rr.Code)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := realtime.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/api/v1/ws")
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	ack, err := conn.Request(ctx, realtime.EventJoinGame, realtime.JoinPayload{RoomID: "SOCK01", ParticipantID: "u2"})
	require.NoError(t, err)
	assert.True(t, ack.OK)
	require.NotNil(t, ack.Room)
	assert.Equal(t, "ready", ack.Room.Status)
}

// nextEventName reads SSE lines until an event name followed by a blank line
func nextEventName(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	name := ""
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case line == "" && name != "":
			return name
		}
	}
}
