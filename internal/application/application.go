package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mindful-app/realtime-service/internal/auth"
	"github.com/mindful-app/realtime-service/internal/config"
	"github.com/mindful-app/realtime-service/internal/database"
	"github.com/mindful-app/realtime-service/internal/handler"
	"github.com/mindful-app/realtime-service/internal/router"
	"github.com/mindful-app/realtime-service/internal/service"
	"github.com/mindful-app/realtime-service/internal/store"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// API is the HTTP + WebSocket API application.
type API struct {
	cfg    *config.Config
	srv    *http.Server
	db     *gorm.DB
	conns  *service.ConnectionManager
	socket *handler.SocketHandler
	log    *zap.Logger
}

// NewAPI creates the API application: validates config, runs migrations, opens DB, builds router.
func NewAPI(cfg *config.Config, logger *zap.Logger) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := database.MigrateUp(cfg.DatabaseURL(), logger); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	a := Build(cfg, db, logger)
	return a, nil
}

// Build wires stores, services and handlers on an open database.
func Build(cfg *config.Config, db *gorm.DB, logger *zap.Logger) *API {
	users := store.NewUserStore(db)
	sessions := store.NewSessionStore(db)

	conns := service.NewConnectionManager(service.ManagerOptions{
		ReadBufferSize:  cfg.WSReadBufferSize,
		WriteBufferSize: cfg.WSWriteBufferSize,
		MaxMessageSize:  cfg.WSMaxMessageSize,
		SendBuffer:      cfg.WSSendBuffer,
	}, logger.Named("conns"))
	board := service.NewLeaderboardProvider(users)
	relay := service.NewRelay(service.RelayDeps{
		Users:        users,
		Follows:      store.NewFollowStore(db),
		Achievements: store.NewAchievementStore(db),
		Sessions:     sessions,
		Leaderboard:  board,
	}, cfg.PersistTimeout, logger.Named("relay"))

	authn := auth.NewAuthenticator(auth.NewTokens(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL), users)
	sessionSvc := service.NewSessionService(sessions, conns, logger.Named("sessions"))

	socket := handler.NewSocketHandler(authn, conns, relay, logger.Named("socket"))
	r := router.New(
		handler.NewSessionHandler(sessionSvc),
		socket,
		handler.NewHealthHandler(conns),
		handler.NewLeaderboardHandler(board, logger),
		auth.RequireAuth(authn),
	)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return &API{cfg: cfg, srv: srv, db: db, conns: conns, socket: socket, log: logger}
}

// Handler returns the HTTP handler (for tests).
func (a *API) Handler() http.Handler { return a.srv.Handler }

// Run starts the HTTP server and blocks until ctx is cancelled or a connection
// goroutine panics; then shuts down gracefully.
func (a *API) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	a.socket.OnFatal(cancel)

	host := a.cfg.AppHost
	if host == "0.0.0.0" {
		host = "localhost"
	}
	base := "http://" + host + ":" + a.cfg.HTTPPort
	a.log.Info("HTTP server listening",
		zap.String("addr", a.srv.Addr),
		zap.String("health", base+"/health"),
		zap.String("stats", base+"/stats"),
		zap.String("socket", "ws://"+host+":"+a.cfg.HTTPPort+"/ws"))

	go func() {
		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server failed", zap.Error(err))
			cancel(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := a.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	a.log.Info("server stopped", zap.Int("open_connections", a.conns.ConnectionCount()))

	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return fmt.Errorf("fatal: %w", cause)
	}
	return nil
}
