package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/mindful-app/realtime-service/internal/errs"
	"github.com/mindful-app/realtime-service/internal/model"
	"github.com/segmentio/encoding/json"
	"go.uber.org/zap"
)

// UserRepository is the identity store used by the relay.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByQRCode(ctx context.Context, code string) (*model.User, error)
	AddMinutes(ctx context.Context, userID string, minutes int) error
}

// FollowRepository creates follow edges.
type FollowRepository interface {
	Create(ctx context.Context, followerID, followingID string) error
}

// AchievementRepository records achievement unlocks.
type AchievementRepository interface {
	Create(ctx context.Context, userID, achievementID string, unlockedAt time.Time) (*model.Achievement, error)
}

// SessionRepository looks up meditation sessions.
type SessionRepository interface {
	Get(ctx context.Context, sessionID string) (*model.MeditationSession, error)
}

// Leaderboard produces ranked snapshots.
type Leaderboard interface {
	Snapshot(ctx context.Context) ([]model.LeaderboardEntry, error)
}

// RelayDeps are the collaborators of a Relay.
type RelayDeps struct {
	Users        UserRepository
	Follows      FollowRepository
	Achievements AchievementRepository
	Sessions     SessionRepository
	Leaderboard  Leaderboard
}

// Relay turns one inbound socket event into an Outcome. It never sends
// anything itself; the transport applies the Outcome.
type Relay struct {
	deps    RelayDeps
	timeout time.Duration
	log     *zap.Logger
	now     func() time.Time
}

// NewRelay creates a relay. timeout bounds every store call made for an event.
func NewRelay(deps RelayDeps, timeout time.Duration, log *zap.Logger) *Relay {
	return &Relay{deps: deps, timeout: timeout, log: log, now: time.Now}
}

// Handle processes env for sender. Failures are turned into sender-directed
// events; nothing is returned as an error.
func (r *Relay) Handle(ctx context.Context, s Sender, env model.Envelope) Outcome {
	switch env.Event {
	case model.EventJoinSession:
		return r.joinSession(ctx, s, env)
	case model.EventLeaveSession:
		return r.leaveSession(s, env)
	case model.EventProgress:
		return r.progress(s, env)
	case model.EventMilestone:
		return r.milestone(s, env)
	case model.EventCompleted:
		return r.completed(ctx, s, env)
	case model.EventQRScanned:
		return r.qrScanned(ctx, s, env)
	case model.EventRequestBoard:
		return r.requestLeaderboard(ctx, env)
	case model.EventAchievement:
		return r.achievementUnlocked(ctx, s, env)
	case model.EventNewPost:
		return r.newPost(s, env)
	case model.EventPostLiked:
		return r.postLiked(s, env)
	case model.EventPostCommented:
		return r.postCommented(s, env)
	case model.EventUserFollowed:
		return r.userFollowed(s, env)
	default:
		return errorOutcome(env.Event, "unknown event")
	}
}

// decode unmarshals data into v and applies its binding rules.
func decode(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}
	if err := binding.Validator.ValidateStruct(v); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}
	return nil
}

func (r *Relay) invalid(s Sender, event string, err error) Outcome {
	r.log.Debug("invalid payload",
		zap.String("conn_id", s.ConnID),
		zap.String("event", event),
		zap.Error(err))
	return errorOutcome(event, err.Error())
}

func (r *Relay) persistCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *Relay) joinSession(ctx context.Context, s Sender, env model.Envelope) Outcome {
	var p model.JoinSessionPayload
	if err := decode(env.Data, &p); err != nil {
		return r.invalid(s, env.Event, err)
	}
	pctx, cancel := r.persistCtx(ctx)
	defer cancel()

	sess, err := r.deps.Sessions.Get(pctx, p.SessionID)
	if err != nil {
		if !errors.Is(err, errs.ErrSessionNotFound) {
			r.log.Warn("session lookup failed", zap.String("session_id", p.SessionID), zap.Error(err))
		}
		return Outcome{}
	}
	if sess.UserID != s.User.ID || sess.Status == model.SessionStatusFinished {
		r.log.Debug("session join denied",
			zap.String("user_id", s.User.ID),
			zap.String("session_id", p.SessionID),
			zap.Error(errs.ErrAuthorization))
		return Outcome{}
	}

	room := SessionRoom(sess.ID)
	return Outcome{
		Join: []string{room},
		Messages: []Outbound{toRoom(room, true, model.EventParticipantJoined, model.ParticipantEvent{
			SessionID: sess.ID,
			UserID:    s.User.ID,
			Username:  s.User.DisplayName(),
		})},
	}
}

func (r *Relay) leaveSession(s Sender, env model.Envelope) Outcome {
	var p model.LeaveSessionPayload
	if err := decode(env.Data, &p); err != nil {
		return r.invalid(s, env.Event, err)
	}
	room := SessionRoom(p.SessionID)
	if !s.In(room) {
		return Outcome{}
	}
	return Outcome{
		Leave: []string{room},
		Messages: []Outbound{toRoom(room, true, model.EventParticipantLeft, model.ParticipantEvent{
			SessionID: p.SessionID,
			UserID:    s.User.ID,
			Username:  s.User.DisplayName(),
		})},
	}
}

func (r *Relay) progress(s Sender, env model.Envelope) Outcome {
	var p model.ProgressPayload
	if err := decode(env.Data, &p); err != nil {
		return r.invalid(s, env.Event, err)
	}
	room := SessionRoom(p.SessionID)
	if !s.In(room) {
		return errorOutcome(env.Event, "not a participant of this session")
	}
	return emit(toRoom(room, true, model.EventProgress, model.ProgressEvent{
		SessionID:   p.SessionID,
		UserID:      s.User.ID,
		Progress:    *p.Progress,
		TimeElapsed: *p.TimeElapsed,
	}))
}

func (r *Relay) milestone(s Sender, env model.Envelope) Outcome {
	var p model.MilestonePayload
	if err := decode(env.Data, &p); err != nil {
		return r.invalid(s, env.Event, err)
	}
	room := SessionRoom(p.SessionID)
	if !s.In(room) {
		return errorOutcome(env.Event, "not a participant of this session")
	}
	return emit(toRoom(room, true, model.EventMilestoneReached, model.MilestoneEvent{
		SessionID: p.SessionID,
		UserID:    s.User.ID,
		Username:  s.User.DisplayName(),
		Milestone: p.Milestone,
	}))
}

// completed adds floor(duration/60) minutes, then broadcasts the leaderboard
// and the achievement notice, in that order.
func (r *Relay) completed(ctx context.Context, s Sender, env model.Envelope) Outcome {
	var p model.CompletedPayload
	if err := decode(env.Data, &p); err != nil {
		return r.invalid(s, env.Event, err)
	}
	minutes := int(math.Floor(*p.Duration / 60))

	pctx, cancel := r.persistCtx(ctx)
	err := r.deps.Users.AddMinutes(pctx, s.User.ID, minutes)
	cancel()
	if err != nil {
		r.log.Warn("add minutes failed",
			zap.String("user_id", s.User.ID),
			zap.Int("minutes", minutes),
			zap.Error(err))
		return errorOutcome(env.Event, errs.ErrPersistence.Error()+": could not record meditation")
	}

	var out Outcome
	rctx, cancel := r.persistCtx(ctx)
	board, err := r.deps.Leaderboard.Snapshot(rctx)
	cancel()
	if err != nil {
		r.log.Warn("leaderboard snapshot failed", zap.Error(err))
	} else {
		out.Messages = append(out.Messages, toAll(false, model.EventLeaderboard, board))
	}

	achievement := "Completed a meditation"
	if p.SessionType != "" {
		achievement = fmt.Sprintf("Completed a %s meditation", p.SessionType)
	}
	out.Messages = append(out.Messages, toAll(false, model.EventUserAchievement, model.UserAchievementEvent{
		UserID:      s.User.ID,
		Username:    s.User.DisplayName(),
		Achievement: achievement,
		Points:      *p.Points,
		SessionType: p.SessionType,
		Minutes:     minutes,
	}))
	return out
}

func qrError(message string) Outcome {
	return emit(toSender(model.EventQRScanError, model.ErrorEvent{Message: message, Event: model.EventQRScanned}))
}

// qrScanned makes the scanner follow the owner of the scanned code. The edge is
// one-directional.
func (r *Relay) qrScanned(ctx context.Context, s Sender, env model.Envelope) Outcome {
	var p model.QRScannedPayload
	if err := decode(env.Data, &p); err != nil {
		return emit(toSender(model.EventQRScanError, model.ErrorEvent{Message: err.Error(), Event: env.Event}))
	}
	if p.ScannedQRCode == s.User.QRCode {
		return qrError(errs.ErrSelfScan.Error())
	}

	pctx, cancel := r.persistCtx(ctx)
	defer cancel()

	target, err := r.deps.Users.FindByQRCode(pctx, p.ScannedQRCode)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return qrError("QR code not found")
		}
		r.log.Warn("qr lookup failed", zap.Error(err))
		return qrError("Failed to process QR code")
	}
	if target.ID == s.User.ID {
		return qrError(errs.ErrSelfScan.Error())
	}

	if err := r.deps.Follows.Create(pctx, s.User.ID, target.ID); err != nil {
		r.log.Warn("create follow failed",
			zap.String("follower_id", s.User.ID),
			zap.String("following_id", target.ID),
			zap.Error(err))
		return qrError("Failed to create connection")
	}

	r.log.Info("qr connection created",
		zap.String("follower_id", s.User.ID),
		zap.String("following_id", target.ID))
	return emit(
		toSender(model.EventQRScanSuccess, model.QRScanSuccessEvent{
			Message: fmt.Sprintf("You are now following %s", target.Username),
			User:    model.RefOf(target),
		}),
		toRoom(UserRoom(target.ID), false, model.EventNewConnection, model.NewConnectionEvent{
			Message:     fmt.Sprintf("%s connected with you via QR code", s.User.Username),
			NewFollower: model.RefOf(s.User),
		}),
	)
}

func (r *Relay) requestLeaderboard(ctx context.Context, env model.Envelope) Outcome {
	pctx, cancel := r.persistCtx(ctx)
	defer cancel()
	board, err := r.deps.Leaderboard.Snapshot(pctx)
	if err != nil {
		r.log.Warn("leaderboard snapshot failed", zap.Error(err))
		return errorOutcome(env.Event, "failed to load leaderboard")
	}
	return emit(toSender(model.EventLeaderboard, board))
}

func (r *Relay) achievementUnlocked(ctx context.Context, s Sender, env model.Envelope) Outcome {
	var p model.AchievementPayload
	if err := decode(env.Data, &p); err != nil {
		return r.invalid(s, env.Event, err)
	}
	pctx, cancel := r.persistCtx(ctx)
	defer cancel()

	a, err := r.deps.Achievements.Create(pctx, s.User.ID, p.AchievementID, r.now())
	if err != nil {
		r.log.Warn("save achievement failed",
			zap.String("user_id", s.User.ID),
			zap.String("achievement_id", p.AchievementID),
			zap.Error(err))
		return errorOutcome(env.Event, errs.ErrPersistence.Error()+": could not save achievement")
	}
	return emit(toAll(true, model.EventAchievement, model.AchievementUnlockedEvent{
		UserID:        s.User.ID,
		Username:      s.User.DisplayName(),
		AchievementID: a.AchievementID,
		Title:         p.Title,
		UnlockedAt:    a.UnlockedAt.UnixMilli(),
	}))
}

// Social events below are notification-only; the posts, likes, comments and
// follows themselves are written by the REST API.

func (r *Relay) newPost(s Sender, env model.Envelope) Outcome {
	var p model.NewPostPayload
	if err := decode(env.Data, &p); err != nil {
		return r.invalid(s, env.Event, err)
	}
	return emit(toAll(true, model.EventNewPost, model.NewPostEvent{
		PostID:  p.PostID,
		Content: p.Content,
		Author:  model.RefOf(s.User),
	}))
}

func (r *Relay) postLiked(s Sender, env model.Envelope) Outcome {
	var p model.PostLikedPayload
	if err := decode(env.Data, &p); err != nil {
		return r.invalid(s, env.Event, err)
	}
	if p.PostOwnerID == s.User.ID {
		return Outcome{}
	}
	return emit(toRoom(UserRoom(p.PostOwnerID), true, model.EventPostLiked, model.PostLikedEvent{
		PostID: p.PostID,
		Liker:  model.RefOf(s.User),
	}))
}

func (r *Relay) postCommented(s Sender, env model.Envelope) Outcome {
	var p model.PostCommentedPayload
	if err := decode(env.Data, &p); err != nil {
		return r.invalid(s, env.Event, err)
	}
	if p.PostOwnerID == s.User.ID {
		return Outcome{}
	}
	return emit(toRoom(UserRoom(p.PostOwnerID), true, model.EventNewComment, model.NewCommentEvent{
		PostID:    p.PostID,
		CommentID: p.CommentID,
		Content:   p.Content,
		Author:    model.RefOf(s.User),
	}))
}

func (r *Relay) userFollowed(s Sender, env model.Envelope) Outcome {
	var p model.UserFollowedPayload
	if err := decode(env.Data, &p); err != nil {
		return r.invalid(s, env.Event, err)
	}
	if p.FollowedUserID == s.User.ID {
		return errorOutcome(env.Event, "cannot follow yourself")
	}
	return emit(toRoom(UserRoom(p.FollowedUserID), true, model.EventNewFollower, model.NewFollowerEvent{
		Follower: model.RefOf(s.User),
	}))
}
