package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mindful-app/realtime-service/internal/auth"
	"github.com/mindful-app/realtime-service/internal/errs"
	"github.com/mindful-app/realtime-service/internal/model"
	"github.com/mindful-app/realtime-service/internal/service"
)

// SessionHandler handles REST API for meditation sessions.
type SessionHandler struct {
	svc service.SessionServicer
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(svc service.SessionServicer) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// CreateSession godoc
// POST /api/sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req model.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
		return
	}
	sess, err := h.svc.Create(c.Request.Context(), user, req.SessionType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	c.JSON(http.StatusCreated, sess)
}

// GetSession godoc
// GET /api/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	sess, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, errs.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get session"})
		return
	}
	c.JSON(http.StatusOK, sess)
}

// FinishSession godoc
// DELETE /api/sessions/:id
func (h *SessionHandler) FinishSession(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	err := h.svc.Finish(c.Request.Context(), user, c.Param("id"))
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, errs.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, errs.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "only the owner can finish a session"})
	case errors.Is(err, errs.ErrSessionFinished):
		c.JSON(http.StatusConflict, gin.H{"error": "session already finished"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to finish session"})
	}
}
