package store

import (
	"context"

	"github.com/mindful-app/realtime-service/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowStore creates follow edges.
type FollowStore struct {
	db *gorm.DB
}

// NewFollowStore creates a follow store.
func NewFollowStore(db *gorm.DB) *FollowStore {
	return &FollowStore{db: db}
}

// Create records that followerID follows followingID. An existing edge is left as is.
func (s *FollowStore) Create(ctx context.Context, followerID, followingID string) error {
	edge := &model.Follow{FollowerID: followerID, FollowingID: followingID}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(edge).Error
}
