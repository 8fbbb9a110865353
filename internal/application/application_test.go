package application

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mindful-app/realtime-service/internal/auth"
	"github.com/mindful-app/realtime-service/internal/config"
	"github.com/mindful-app/realtime-service/internal/model"
	"github.com/segmentio/encoding/json"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret"

type testEnv struct {
	t      *testing.T
	srv    *httptest.Server
	db     *gorm.DB
	tokens *auth.Tokens
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&model.User{}, &model.MeditationSession{}, &model.Follow{}, &model.Achievement{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	cfg := &config.Config{
		AppEnv:            "test",
		AppHost:           "127.0.0.1",
		HTTPPort:          "0",
		WSReadBufferSize:  1024,
		WSWriteBufferSize: 1024,
		WSMaxMessageSize:  65536,
		WSSendBuffer:      32,
		JWTSecret:         testSecret,
		JWTIssuer:         "mindful-api",
		JWTTTL:            time.Hour,
		PersistTimeout:    2 * time.Second,
	}
	api := Build(cfg, db, zap.NewNop())
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = sqlDB.Close()
	})

	return &testEnv{
		t:      t,
		srv:    srv,
		db:     db,
		tokens: auth.NewTokens(testSecret, cfg.JWTIssuer, cfg.JWTTTL),
	}
}

func (e *testEnv) user(id, username string, minutes int) string {
	e.t.Helper()
	u := &model.User{ID: id, Username: username, IsPublic: true, TotalMinutes: minutes, QRCode: "qr-" + id}
	if err := e.db.Create(u).Error; err != nil {
		e.t.Fatalf("seed user %s: %v", id, err)
	}
	tok, err := e.tokens.Issue(id, username)
	if err != nil {
		e.t.Fatalf("issue token: %v", err)
	}
	return tok
}

func (e *testEnv) dial(token string) *websocket.Conn {
	e.t.Helper()
	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		e.t.Fatalf("dial: %v", err)
	}
	e.t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (e *testEnv) do(method, path, token string, body interface{}) *http.Response {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			e.t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	if err != nil {
		e.t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		e.t.Fatalf("%s %s: %v", method, path, err)
	}
	e.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

type wireFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func send(t *testing.T, conn *websocket.Conn, event string, data interface{}) {
	t.Helper()
	frame := map[string]interface{}{"event": event}
	if data != nil {
		frame["data"] = data
	}
	raw, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func recv(t *testing.T, conn *websocket.Conn) wireFrame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var f wireFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		t.Fatalf("bad frame %s: %v", raw, err)
	}
	return f
}

func expect(t *testing.T, conn *websocket.Conn, event string) wireFrame {
	t.Helper()
	f := recv(t, conn)
	if f.Event != event {
		t.Fatalf("expected %s, got %s (%s)", event, f.Event, f.Data)
	}
	return f
}

func TestSocket_RejectsMissingOrBadToken(t *testing.T) {
	env := newTestEnv(t)
	env.user("a", "anna", 0)
	base := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/ws"

	for _, url := range []string{base, base + "?token=garbage"} {
		_, resp, err := websocket.DefaultDialer.Dial(url, nil)
		if err == nil {
			t.Fatalf("%s: expected handshake failure", url)
		}
		if resp == nil || resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %v", url, resp)
		}
		_ = resp.Body.Close()
	}

	forged, _ := auth.NewTokens("other-secret", "mindful-api", time.Hour).Issue("a", "anna")
	_, resp, err := websocket.DefaultDialer.Dial(base+"?token="+forged, nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("forged token must be rejected, got err=%v resp=%v", err, resp)
	}
	_ = resp.Body.Close()
}

func TestSocket_LeaderboardAndStats(t *testing.T) {
	env := newTestEnv(t)
	tokA := env.user("A", "anna", 100)
	env.user("B", "ben", 150)

	conn := env.dial(tokA)
	send(t, conn, model.EventRequestBoard, nil)
	f := expect(t, conn, model.EventLeaderboard)

	var board []model.LeaderboardEntry
	if err := json.Unmarshal(f.Data, &board); err != nil {
		t.Fatalf("decode leaderboard: %v", err)
	}
	if len(board) != 2 || board[0].UserID != "B" || board[0].Rank != 1 || board[1].UserID != "A" {
		t.Fatalf("unexpected leaderboard %+v", board)
	}

	resp := env.do(http.MethodGet, "/stats", "", nil)
	var stats model.StatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Connections != 1 || len(stats.Rooms) != 1 || stats.Rooms[0] != "user:A" {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestSocket_CompletionBroadcast(t *testing.T) {
	env := newTestEnv(t)
	tokA := env.user("A", "anna", 100)
	tokB := env.user("B", "ben", 150)

	a := env.dial(tokA)
	b := env.dial(tokB)
	// Round-trip on b so its registration is complete before a broadcasts.
	send(t, b, model.EventRequestBoard, nil)
	expect(t, b, model.EventLeaderboard)

	send(t, a, model.EventCompleted, map[string]interface{}{"duration": 180, "points": 10, "sessionType": "breathing"})

	for _, conn := range []*websocket.Conn{a, b} {
		f := expect(t, conn, model.EventLeaderboard)
		var board []model.LeaderboardEntry
		if err := json.Unmarshal(f.Data, &board); err != nil {
			t.Fatalf("decode leaderboard: %v", err)
		}
		if board[1].UserID != "A" || board[1].TotalMinutes != 103 {
			t.Errorf("unexpected leaderboard %+v", board)
		}
		f = expect(t, conn, model.EventUserAchievement)
		var ach model.UserAchievementEvent
		if err := json.Unmarshal(f.Data, &ach); err != nil {
			t.Fatalf("decode achievement: %v", err)
		}
		if ach.Points != 10 || ach.UserID != "A" {
			t.Errorf("unexpected achievement %+v", ach)
		}
	}
}

func TestSocket_MalformedFrame(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(env.user("a", "anna", 0))

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	expect(t, conn, model.EventError)

	// The connection survives a bad frame.
	send(t, conn, model.EventRequestBoard, nil)
	expect(t, conn, model.EventLeaderboard)
}

func TestSessions_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	tokA := env.user("a", "anna", 0)
	tokB := env.user("b", "ben", 0)

	if resp := env.do(http.MethodPost, "/api/sessions", "", map[string]string{"session_type": "breathing"}); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
	if resp := env.do(http.MethodPost, "/api/sessions", tokA, map[string]string{}); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing type, got %d", resp.StatusCode)
	}

	resp := env.do(http.MethodPost, "/api/sessions", tokA, map[string]string{"session_type": "breathing"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var sess model.SessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}

	a := env.dial(tokA)
	send(t, a, model.EventJoinSession, map[string]string{"sessionId": sess.ID})
	// Frames are handled in order, so the join is applied once this reply arrives.
	send(t, a, model.EventRequestBoard, nil)
	expect(t, a, model.EventLeaderboard)

	resp = env.do(http.MethodGet, "/api/sessions/"+sess.ID, tokB, nil)
	var got model.SessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if got.Participants != 1 || got.Status != model.SessionStatusActive {
		t.Errorf("unexpected session %+v", got)
	}

	if resp := env.do(http.MethodDelete, "/api/sessions/"+sess.ID, tokB, nil); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner, got %d", resp.StatusCode)
	}
	if resp := env.do(http.MethodDelete, "/api/sessions/"+sess.ID, tokA, nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	expect(t, a, model.EventSessionEnded)

	if resp := env.do(http.MethodDelete, "/api/sessions/"+sess.ID, tokA, nil); resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 on second finish, got %d", resp.StatusCode)
	}
	if resp := env.do(http.MethodGet, "/api/sessions/missing", tokA, nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestLeaderboardEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.user("a", "anna", 30)
	env.user("b", "ben", 60)

	resp := env.do(http.MethodGet, "/api/leaderboard", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out model.LeaderboardResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Entries) != 2 || out.Entries[0].UserID != "b" {
		t.Errorf("unexpected entries %+v", out.Entries)
	}
}
