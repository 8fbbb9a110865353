package service

import (
	"context"

	"github.com/mindful-app/realtime-service/internal/errs"
	"github.com/mindful-app/realtime-service/internal/model"
	"go.uber.org/zap"
)

// SessionStore persists meditation sessions.
type SessionStore interface {
	Create(ctx context.Context, ownerID, sessionType string) (*model.MeditationSession, error)
	Get(ctx context.Context, sessionID string) (*model.MeditationSession, error)
	Finish(ctx context.Context, sessionID string) (*model.MeditationSession, error)
}

// SessionServicer is what the REST handler needs from the session service.
type SessionServicer interface {
	Create(ctx context.Context, owner *model.User, sessionType string) (*model.SessionResponse, error)
	Get(ctx context.Context, sessionID string) (*model.SessionResponse, error)
	Finish(ctx context.Context, requester *model.User, sessionID string) error
}

// SessionService manages meditation session lifecycle and closes the session
// room when a session ends.
type SessionService struct {
	store SessionStore
	rooms *ConnectionManager
	log   *zap.Logger
}

// NewSessionService creates a session service.
func NewSessionService(store SessionStore, rooms *ConnectionManager, log *zap.Logger) *SessionService {
	return &SessionService{store: store, rooms: rooms, log: log}
}

// Create creates an active session owned by owner.
func (s *SessionService) Create(ctx context.Context, owner *model.User, sessionType string) (*model.SessionResponse, error) {
	ent, err := s.store.Create(ctx, owner.ID, sessionType)
	if err != nil {
		return nil, err
	}
	s.log.Info("session created", zap.String("session_id", ent.ID), zap.String("user_id", owner.ID))
	return s.toResponse(ent), nil
}

// Get returns a session with its live participant count.
func (s *SessionService) Get(ctx context.Context, sessionID string) (*model.SessionResponse, error) {
	ent, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ent), nil
}

// Finish marks the session finished and evicts everyone from its room. Only
// the owner may finish a session.
func (s *SessionService) Finish(ctx context.Context, requester *model.User, sessionID string) error {
	ent, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if ent.UserID != requester.ID {
		return errs.ErrForbidden
	}
	if _, err := s.store.Finish(ctx, sessionID); err != nil {
		return err
	}
	s.rooms.CloseRoom(SessionRoom(sessionID), model.EventSessionEnded, model.SessionEndedEvent{SessionID: sessionID})
	return nil
}

func (s *SessionService) toResponse(ent *model.MeditationSession) *model.SessionResponse {
	room := SessionRoom(ent.ID)
	return &model.SessionResponse{
		ID:           ent.ID,
		OwnerID:      ent.UserID,
		SessionType:  ent.SessionType,
		Status:       ent.Status,
		Room:         room,
		Participants: s.rooms.RoomSize(room),
		CreatedAt:    ent.CreatedAt,
		FinishedAt:   ent.FinishedAt,
	}
}
