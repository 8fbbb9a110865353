package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mindful-app/realtime-service/internal/model"
	"gorm.io/gorm"
)

// AchievementStore records achievement unlocks.
type AchievementStore struct {
	db *gorm.DB
}

// NewAchievementStore creates an achievement store.
func NewAchievementStore(db *gorm.DB) *AchievementStore {
	return &AchievementStore{db: db}
}

// Create inserts one unlock row. Repeated unlocks are not deduplicated here.
func (s *AchievementStore) Create(ctx context.Context, userID, achievementID string, unlockedAt time.Time) (*model.Achievement, error) {
	a := &model.Achievement{
		ID:            uuid.New().String(),
		UserID:        userID,
		AchievementID: achievementID,
		UnlockedAt:    unlockedAt,
	}
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}
