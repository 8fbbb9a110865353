package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/mindful-app/realtime-service/internal/errs"
	"github.com/mindful-app/realtime-service/internal/model"
	"gorm.io/gorm"
)

// UserStore reads users and bumps their cumulative minutes.
type UserStore struct {
	db *gorm.DB
}

// NewUserStore creates a user store.
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// FindByID returns a user by id or errs.ErrNotFound.
func (s *UserStore) FindByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// FindByQRCode returns the user owning code or errs.ErrNotFound.
func (s *UserStore) FindByQRCode(ctx context.Context, code string) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).Where("qr_code = ?", code).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// AddMinutes increments total_minutes by minutes in a single relative UPDATE.
func (s *UserStore) AddMinutes(ctx context.Context, userID string, minutes int) error {
	res := s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		UpdateColumn("total_minutes", gorm.Expr("total_minutes + ?", minutes))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("add minutes for %s: %w", userID, errs.ErrNotFound)
	}
	return nil
}

// ListPublicByMinutes returns up to limit public users, most minutes first.
func (s *UserStore) ListPublicByMinutes(ctx context.Context, limit int) ([]model.User, error) {
	var users []model.User
	err := s.db.WithContext(ctx).
		Where("is_public = ?", true).
		Order("total_minutes DESC, id ASC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}
