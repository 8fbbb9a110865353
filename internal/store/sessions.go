package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mindful-app/realtime-service/internal/errs"
	"github.com/mindful-app/realtime-service/internal/model"
	"gorm.io/gorm"
)

// SessionStore manages meditation session records.
type SessionStore struct {
	db *gorm.DB
}

// NewSessionStore creates a session store.
func NewSessionStore(db *gorm.DB) *SessionStore {
	return &SessionStore{db: db}
}

// Create creates an active session owned by ownerID.
func (s *SessionStore) Create(ctx context.Context, ownerID, sessionType string) (*model.MeditationSession, error) {
	ent := &model.MeditationSession{
		ID:          uuid.New().String(),
		UserID:      ownerID,
		SessionType: sessionType,
		Status:      model.SessionStatusActive,
	}
	if err := s.db.WithContext(ctx).Create(ent).Error; err != nil {
		return nil, err
	}
	return ent, nil
}

// Get returns a session by ID or errs.ErrSessionNotFound.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (*model.MeditationSession, error) {
	var ent model.MeditationSession
	if err := s.db.WithContext(ctx).Where("id = ?", sessionID).First(&ent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrSessionNotFound
		}
		return nil, err
	}
	return &ent, nil
}

// Finish marks the session finished.
func (s *SessionStore) Finish(ctx context.Context, sessionID string) (*model.MeditationSession, error) {
	ent, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if ent.Status == model.SessionStatusFinished {
		return nil, errs.ErrSessionFinished
	}
	now := time.Now()
	if err := s.db.WithContext(ctx).Model(ent).Updates(map[string]interface{}{
		"status":      model.SessionStatusFinished,
		"finished_at": now,
	}).Error; err != nil {
		return nil, err
	}
	ent.Status = model.SessionStatusFinished
	ent.FinishedAt = &now
	return ent, nil
}
