package model

import "time"

// CreateSessionRequest is the request body for POST /api/sessions.
type CreateSessionRequest struct {
	SessionType string `json:"session_type" binding:"required,max=32"`
}

// SessionResponse is the API view of a meditation session.
type SessionResponse struct {
	ID           string     `json:"id"`
	OwnerID      string     `json:"owner_id"`
	SessionType  string     `json:"session_type"`
	Status       string     `json:"status"`
	Room         string     `json:"room"`
	Participants int        `json:"participants"`
	CreatedAt    time.Time  `json:"created_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// StatsResponse is the response for GET /stats.
type StatsResponse struct {
	Connections int      `json:"connections"`
	Rooms       []string `json:"rooms"`
}

// LeaderboardResponse is the response for GET /api/leaderboard.
type LeaderboardResponse struct {
	Entries []LeaderboardEntry `json:"entries"`
}

const (
	SessionStatusActive   = "active"
	SessionStatusFinished = "finished"
)
