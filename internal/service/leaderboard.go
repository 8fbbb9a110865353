package service

import (
	"context"
	"sort"

	"github.com/mindful-app/realtime-service/internal/model"
)

const (
	// LeaderboardSize caps a snapshot.
	LeaderboardSize = 50
	// AnonymousName replaces a missing display name.
	AnonymousName = "Anonymous"
)

// PublicUserLister lists public users ordered by cumulative minutes.
type PublicUserLister interface {
	ListPublicByMinutes(ctx context.Context, limit int) ([]model.User, error)
}

// LeaderboardProvider computes a fresh ranked snapshot on every call.
type LeaderboardProvider struct {
	users PublicUserLister
}

// NewLeaderboardProvider creates a leaderboard provider.
func NewLeaderboardProvider(users PublicUserLister) *LeaderboardProvider {
	return &LeaderboardProvider{users: users}
}

// Snapshot returns at most LeaderboardSize public users, most minutes first,
// ranked 1..n by position.
func (p *LeaderboardProvider) Snapshot(ctx context.Context) ([]model.LeaderboardEntry, error) {
	users, err := p.users.ListPublicByMinutes(ctx, LeaderboardSize)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].TotalMinutes > users[j].TotalMinutes
	})

	entries := make([]model.LeaderboardEntry, 0, len(users))
	for _, u := range users {
		if !u.IsPublic {
			continue
		}
		if len(entries) == LeaderboardSize {
			break
		}
		name := AnonymousName
		if u.Name != nil && *u.Name != "" {
			name = *u.Name
		}
		entries = append(entries, model.LeaderboardEntry{
			Rank:         len(entries) + 1,
			UserID:       u.ID,
			Name:         name,
			TotalMinutes: u.TotalMinutes,
			Avatar:       u.Avatar,
		})
	}
	return entries, nil
}
