package model

import "time"

// User is the identity row owned by the wider application. The relay reads it
// and bumps TotalMinutes; it never creates or deletes users.
type User struct {
	ID           string    `gorm:"type:uuid;primaryKey"`
	Username     string    `gorm:"size:64;not null;uniqueIndex"`
	Name         *string   `gorm:"size:128"`
	Avatar       *string   `gorm:"size:512"`
	IsPublic     bool      `gorm:"column:is_public;not null;index"`
	TotalMinutes int       `gorm:"column:total_minutes;not null;default:0;index"`
	QRCode       string    `gorm:"column:qr_code;size:64;not null;uniqueIndex"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (User) TableName() string { return "users" }

// DisplayName returns Name, or Username when no display name is set.
func (u *User) DisplayName() string {
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	return u.Username
}

// MeditationSession is a group meditation owned by the user who created it.
type MeditationSession struct {
	ID          string     `gorm:"type:uuid;primaryKey"`
	UserID      string     `gorm:"type:uuid;not null;index"`
	SessionType string     `gorm:"column:session_type;size:32;not null"`
	Status      string     `gorm:"size:20;not null;default:active"` // active, finished
	CreatedAt   time.Time  `gorm:"autoCreateTime"`
	FinishedAt  *time.Time `gorm:"column:finished_at"`
}

func (MeditationSession) TableName() string { return "meditation_sessions" }

// Follow is a one-directional edge: FollowerID follows FollowingID.
type Follow struct {
	FollowerID  string    `gorm:"type:uuid;primaryKey"`
	FollowingID string    `gorm:"type:uuid;primaryKey;index"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (Follow) TableName() string { return "follows" }

// Achievement records one unlock. Duplicate unlocks produce duplicate rows.
type Achievement struct {
	ID            string    `gorm:"type:uuid;primaryKey"`
	UserID        string    `gorm:"type:uuid;not null;index"`
	AchievementID string    `gorm:"column:achievement_id;size:64;not null"`
	UnlockedAt    time.Time `gorm:"column:unlocked_at;not null"`
}

func (Achievement) TableName() string { return "achievements" }
