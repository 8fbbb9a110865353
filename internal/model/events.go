package model

import "github.com/segmentio/encoding/json"

// Envelope is the socket frame in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound event names.
const (
	EventJoinSession   = "join-meditation-session"
	EventLeaveSession  = "leave-meditation-session"
	EventProgress      = "meditation-progress"
	EventMilestone     = "meditation-milestone"
	EventCompleted     = "meditation-completed"
	EventQRScanned     = "qr-scanned"
	EventRequestBoard  = "request-leaderboard"
	EventAchievement   = "achievement-unlocked"
	EventNewPost       = "new-post"
	EventPostLiked     = "post-liked"
	EventPostCommented = "post-commented"
	EventUserFollowed  = "user-followed"
)

// Outbound event names.
const (
	EventParticipantJoined = "participant-joined"
	EventParticipantLeft   = "participant-left"
	EventMilestoneReached  = "milestone-reached"
	EventLeaderboard       = "leaderboard-update"
	EventUserAchievement   = "user-achievement"
	EventQRScanSuccess     = "qr-scan-success"
	EventQRScanError       = "qr-scan-error"
	EventNewConnection     = "new-connection"
	EventNewComment        = "new-comment"
	EventNewFollower       = "new-follower"
	EventSessionEnded      = "session-ended"
	EventError             = "error"
)

type JoinSessionPayload struct {
	SessionID string `json:"sessionId" binding:"required"`
}

type LeaveSessionPayload struct {
	SessionID string `json:"sessionId" binding:"required"`
}

type ProgressPayload struct {
	SessionID   string   `json:"sessionId" binding:"required"`
	Progress    *float64 `json:"progress" binding:"required,min=0,max=100"`
	TimeElapsed *float64 `json:"timeElapsed" binding:"required,min=0"`
}

type MilestonePayload struct {
	SessionID string `json:"sessionId" binding:"required"`
	Milestone string `json:"milestone" binding:"required"`
}

// CompletedPayload carries the session duration in seconds, at most one day.
type CompletedPayload struct {
	Duration    *float64 `json:"duration" binding:"required,min=0,max=86400"`
	Points      *int     `json:"points" binding:"required,min=0"`
	SessionType string   `json:"sessionType"`
}

type QRScannedPayload struct {
	ScannedQRCode string `json:"scannedQrCode" binding:"required"`
}

type AchievementPayload struct {
	AchievementID string `json:"achievementId" binding:"required"`
	Title         string `json:"title"`
}

type NewPostPayload struct {
	PostID  string `json:"postId" binding:"required"`
	Content string `json:"content"`
}

type PostLikedPayload struct {
	PostID      string `json:"postId" binding:"required"`
	PostOwnerID string `json:"postOwnerId" binding:"required"`
}

type PostCommentedPayload struct {
	PostID      string `json:"postId" binding:"required"`
	PostOwnerID string `json:"postOwnerId" binding:"required"`
	CommentID   string `json:"commentId"`
	Content     string `json:"content" binding:"required"`
}

type UserFollowedPayload struct {
	FollowedUserID string `json:"followedUserId" binding:"required"`
}

// UserRef is the public view of a user embedded in notifications.
type UserRef struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Name     string  `json:"name"`
	Avatar   *string `json:"avatar,omitempty"`
}

// RefOf builds the notification view of u.
func RefOf(u *User) UserRef {
	return UserRef{ID: u.ID, Username: u.Username, Name: u.DisplayName(), Avatar: u.Avatar}
}

// LeaderboardEntry is one ranked row; derived on every request.
type LeaderboardEntry struct {
	Rank         int     `json:"rank"`
	UserID       string  `json:"userId"`
	Name         string  `json:"name"`
	TotalMinutes int     `json:"totalMinutes"`
	Avatar       *string `json:"avatar,omitempty"`
}

type ParticipantEvent struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
}

type ProgressEvent struct {
	SessionID   string  `json:"sessionId"`
	UserID      string  `json:"userId"`
	Progress    float64 `json:"progress"`
	TimeElapsed float64 `json:"timeElapsed"`
}

type MilestoneEvent struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Milestone string `json:"milestone"`
}

type UserAchievementEvent struct {
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	Achievement string `json:"achievement"`
	Points      int    `json:"points"`
	SessionType string `json:"sessionType,omitempty"`
	Minutes     int    `json:"minutes"`
}

type AchievementUnlockedEvent struct {
	UserID        string `json:"userId"`
	Username      string `json:"username"`
	AchievementID string `json:"achievementId"`
	Title         string `json:"title,omitempty"`
	UnlockedAt    int64  `json:"unlockedAt"`
}

type QRScanSuccessEvent struct {
	Message string  `json:"message"`
	User    UserRef `json:"user"`
}

type NewConnectionEvent struct {
	Message     string  `json:"message"`
	NewFollower UserRef `json:"newFollower"`
}

type NewPostEvent struct {
	PostID  string  `json:"postId"`
	Content string  `json:"content,omitempty"`
	Author  UserRef `json:"author"`
}

type PostLikedEvent struct {
	PostID string  `json:"postId"`
	Liker  UserRef `json:"liker"`
}

type NewCommentEvent struct {
	PostID    string  `json:"postId"`
	CommentID string  `json:"commentId,omitempty"`
	Content   string  `json:"content"`
	Author    UserRef `json:"author"`
}

type NewFollowerEvent struct {
	Follower UserRef `json:"follower"`
}

type SessionEndedEvent struct {
	SessionID string `json:"sessionId"`
}

// ErrorEvent is echoed to the sender only.
type ErrorEvent struct {
	Message string `json:"message"`
	Event   string `json:"event,omitempty"`
}
