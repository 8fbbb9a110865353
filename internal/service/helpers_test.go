package service

import (
	"testing"

	"github.com/mindful-app/realtime-service/internal/model"
	"github.com/segmentio/encoding/json"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

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
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&model.User{}, &model.MeditationSession{}, &model.Follow{}, &model.Achievement{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, u *model.User) *model.User {
	t.Helper()
	if u.QRCode == "" {
		u.QRCode = "qr-" + u.ID
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("failed to seed user %s: %v", u.ID, err)
	}
	return u
}

func strPtr(s string) *string { return &s }

func newTestManager() *ConnectionManager {
	return NewConnectionManager(ManagerOptions{SendBuffer: 32}, zap.NewNop())
}

type receivedFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// drain returns every frame queued for c without blocking.
func drain(t *testing.T, c *Client) []receivedFrame {
	t.Helper()
	var out []receivedFrame
	for {
		select {
		case raw, ok := <-c.Send:
			if !ok {
				return out
			}
			var f receivedFrame
			if err := json.Unmarshal(raw, &f); err != nil {
				t.Fatalf("bad frame %s: %v", raw, err)
			}
			out = append(out, f)
		default:
			return out
		}
	}
}

func events(frames []receivedFrame) []string {
	out := make([]string, len(frames))
	for i, f := range frames {
		out[i] = f.Event
	}
	return out
}
