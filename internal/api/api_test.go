package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"iter"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"guild-loot/internal/command"
	"guild-loot/internal/model"
	"guild-loot/internal/render"
	"guild-loot/internal/service"
	internalws "guild-loot/internal/websocket"
	"guild-loot/pkg/config"
	"guild-loot/pkg/db"
	"guild-loot/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "api-secret"

type testEnv struct {
	router *gin.Engine
	svc    *service.LootService
	hub    *internalws.Hub
}

func setupTestEnv(t *testing.T) *testEnv {
	gin.SetMode(gin.TestMode)

	conn, err := db.Open(config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "loot.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(conn) })

	wsConfig := config.WebSocketConfig{BroadcastBufferSize: 16, WriteWaitSeconds: 1, PongWaitSeconds: 5, MaxMessageSize: 512, MessageRetryCount: 1, MessageRetryIntervalMs: 10}
	hub := internalws.NewHub(wsConfig)
	ctx, cancel := context.WithCancel(context.Background())
	hub.Start(ctx)
	t.Cleanup(cancel)

	svc := service.NewLootService(conn,
		service.WithRand(rand.New(rand.NewPCG(3, 4))),
		service.WithBroadcaster(hub),
	)
	dispatcher := command.NewDispatcher(svc, render.New("Blackhorse"), nil)

	router := NewRouter(RouterDeps{
		Reader:     svc,
		Dispatcher: dispatcher,
		Board:      hub,
		Ping:       func(ctx context.Context) error { return db.Ping(ctx, conn) },
		JWTSecret:  testSecret,
		WebSocket:  wsConfig,
	})
	return &testEnv{router: router, svc: svc, hub: hub}
}

func (e *testEnv) seed(t *testing.T) {
	ctx := context.Background()
	_, err := e.svc.AddItem(ctx, "Thunderfury")
	require.NoError(t, err)
	for _, name := range []string{"Alice", "Bob", "Carol"} {
		_, _, err := e.svc.AddMember(ctx, name, "id-"+name)
		require.NoError(t, err)
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func token(t *testing.T, externalID, name string, admin bool) string {
	tok, err := utils.GenerateToken(testSecret, externalID, name, admin, time.Hour)
	require.NoError(t, err)
	return tok
}

func TestRootAndHealth(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodGet, "/", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Bot is running!", w.Body.String())

	w = env.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","database":"ok","board_clients":0}`, w.Body.String())

	w = env.do(t, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "loot_http_requests_total")
}

func TestHealth_DatabaseDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHealthHandler(func(context.Context) error { return errors.New("gone") }, nil)
	r := gin.New()
	r.GET("/health", h.Health)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "unreachable")
}

func TestListItems(t *testing.T) {
	env := setupTestEnv(t)
	env.seed(t)

	w := env.do(t, http.MethodGet, "/api/items", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Items []queueJSON `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "Thunderfury", resp.Items[0].Name)
	require.Len(t, resp.Items[0].Queue, 3)
	for i, st := range resp.Items[0].Queue {
		assert.Equal(t, i+1, st.Rank)
	}
	assert.Equal(t, "Alice", resp.Items[0].Queue[0].Name)
}

func TestGetItem(t *testing.T) {
	env := setupTestEnv(t)
	env.seed(t)

	w := env.do(t, http.MethodGet, "/api/items/thunder", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var q queueJSON
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &q))
	assert.Equal(t, "Thunderfury", q.Name)

	w = env.do(t, http.MethodGet, "/api/items/ashkandi", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMembersAndLoot(t *testing.T) {
	env := setupTestEnv(t)
	env.seed(t)

	w := env.do(t, http.MethodGet, "/api/members", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"external_id":"id-Bob"`)

	w = env.do(t, http.MethodGet, "/api/members/id-Bob/loot", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Standings []struct {
			ItemName string `json:"item_name"`
			Rank     int    `json:"rank"`
			Total    int    `json:"total"`
		} `json:"standings"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Standings, 1)
	assert.Equal(t, 2, resp.Standings[0].Rank)
	assert.Equal(t, 3, resp.Standings[0].Total)

	w = env.do(t, http.MethodGet, "/api/members/nobody/loot", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExecuteCommand(t *testing.T) {
	env := setupTestEnv(t)
	env.seed(t)

	admin := token(t, "gm", "Leader", true)
	member := token(t, "id-Alice", "Alice", false)

	tests := []struct {
		name       string
		token      string
		body       any
		wantStatus int
		wantText   string
	}{
		{
			name:       "no token",
			body:       CommandRequest{Command: "itemlist"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing command",
			token:      member,
			body:       map[string]string{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "member lists items",
			token:      member,
			body:       CommandRequest{Command: "itemlist"},
			wantStatus: http.StatusOK,
			wantText:   "THUNDERFURY",
		},
		{
			name:       "member cannot move",
			token:      member,
			body:       CommandRequest{Command: "moveplayer", Args: map[string]string{"item_name": "thunder", "member": "id-Carol", "new_position": "1"}},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "admin moves",
			token:      admin,
			body:       CommandRequest{Command: "moveplayer", Args: map[string]string{"item_name": "thunder", "member": "id-Carol", "new_position": "1"}},
			wantStatus: http.StatusOK,
			wantText:   "updated to 1",
		},
		{
			name:       "out of range",
			token:      admin,
			body:       CommandRequest{Command: "moveplayer", Args: map[string]string{"item_name": "thunder", "member": "id-Carol", "new_position": "9"}},
			wantStatus: http.StatusUnprocessableEntity,
			wantText:   "between 1 and 3",
		},
		{
			name:       "duplicate item",
			token:      admin,
			body:       CommandRequest{Command: "additem", Args: map[string]string{"item_name": "thunderfury"}},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "unknown command",
			token:      admin,
			body:       CommandRequest{Command: "dance"},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "member cannot pass",
			token:      member,
			body:       CommandRequest{Command: "pass", Args: map[string]string{"item_name": "thunder", "member": "id-Alice"}},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "member raffles",
			token:      member,
			body:       CommandRequest{Command: "raffle"},
			wantStatus: http.StatusOK,
			wantText:   "Raffle Result",
		},
		{
			name:       "admin passes for a member",
			token:      admin,
			body:       CommandRequest{Command: "pass", Args: map[string]string{"item_name": "thunder", "member": "id-Alice"}},
			wantStatus: http.StatusOK,
			wantText:   "**Alice** passed on **Thunderfury**",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/commands", tt.body, tt.token)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantText != "" {
				assert.Contains(t, w.Body.String(), tt.wantText)
			}
		})
	}

	q, err := env.svc.ListForItem(context.Background(), "thunder")
	require.NoError(t, err)
	names := make([]string, 0, len(q.Standings))
	for _, st := range q.Standings {
		names = append(names, st.Member.Name)
	}
	assert.Equal(t, []string{"Carol", "Bob"}, names)
}

func TestListCommands(t *testing.T) {
	env := setupTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/commands", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"moveplayer"`)
}

func TestBoardWebSocket(t *testing.T) {
	env := setupTestEnv(t)
	env.seed(t)

	server := httptest.NewServer(env.router)
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var snap snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, "snapshot", snap.Kind)
	require.Len(t, snap.Queues, 1)
	assert.Len(t, snap.Queues[0].Queue, 3)

	require.Eventually(t, func() bool { return env.hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	_, err = env.svc.BindItem(context.Background(), "thunder", "id-Alice")
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err = conn.ReadMessage()
	require.NoError(t, err)
	var event model.QueueEvent
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, model.EventItemBound, event.Kind)
	assert.Equal(t, "Alice", event.MemberName)
	assert.Equal(t, 1, event.From)
	assert.Equal(t, 3, event.To)
}

// commitOnRead commits a change the first time the board snapshot is read,
// landing it between viewer registration and the snapshot.
type commitOnRead struct {
	QueueReader
	once   sync.Once
	commit func()
}

func (r *commitOnRead) ListAll(ctx context.Context) iter.Seq2[service.ItemQueue, error] {
	r.once.Do(r.commit)
	return r.QueueReader.ListAll(ctx)
}

func TestBoardWebSocket_ChangeDuringSnapshotIsDelivered(t *testing.T) {
	env := setupTestEnv(t)
	env.seed(t)

	reader := &commitOnRead{QueueReader: env.svc, commit: func() {
		_, err := env.svc.BindItem(context.Background(), "thunder", "id-Alice")
		assert.NoError(t, err)
	}}
	wsConfig := config.WebSocketConfig{WriteWaitSeconds: 1, PongWaitSeconds: 5, MaxMessageSize: 512}
	r := gin.New()
	r.GET("/ws", NewWSHandler(env.hub, reader, wsConfig).HandleConnection)
	server := httptest.NewServer(r)
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var snap snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	require.Equal(t, "snapshot", snap.Kind)
	require.Len(t, snap.Queues, 1)
	assert.Equal(t, "Alice", snap.Queues[0].Queue[2].Name, "snapshot already shows the bind")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err = conn.ReadMessage()
	require.NoError(t, err, "the change must also arrive as an event")
	var event model.QueueEvent
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, model.EventItemBound, event.Kind)
}
