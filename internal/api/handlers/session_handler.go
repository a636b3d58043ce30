package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/heatmap-portal/internal/domain"
	"github.com/wms-platform/heatmap-portal/internal/navigation"
	"github.com/wms-platform/heatmap-portal/internal/session"
	"github.com/wms-platform/heatmap-portal/pkg/errors"
	"github.com/wms-platform/heatmap-portal/pkg/logging"
	"github.com/wms-platform/heatmap-portal/pkg/middleware"
)

// SessionHandler exposes the session state machine and the navigation
// guard to the rendering layer
type SessionHandler struct {
	sessions *session.Store
	guard    *navigation.Guard
	logger   *logging.Logger
}

// NewSessionHandler creates a session handler
func NewSessionHandler(sessions *session.Store, guard *navigation.Guard, logger *logging.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		guard:    guard,
		logger:   logger.WithComponent("session-handler"),
	}
}

// RegisterRoutes registers the session and navigation endpoints
func (h *SessionHandler) RegisterRoutes(api *gin.RouterGroup) {
	auth := api.Group("/auth")
	{
		auth.POST("/login", h.Login)
		auth.POST("/guest", h.EnterGuest)
		auth.POST("/logout", h.Logout)
		auth.POST("/refresh", h.Refresh)
		auth.GET("/session", h.GetSession)
		auth.PUT("/profile", h.UpdateProfile)
		auth.PUT("/password", h.ChangePassword)
	}
	api.GET("/navigation/decision", h.NavigationDecision)
}

type loginRequest struct {
	Username string `json:"username" binding:"required,min=2,max=64"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

type sessionResponse struct {
	Session domain.SessionInfo `json:"session"`
	User    *domain.User       `json:"user,omitempty"`
}

// Login authenticates and switches the session to authenticated.
// Credential rejections are surfaced to the caller, never absorbed.
func (h *SessionHandler) Login(c *gin.Context) {
	var req loginRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	user, err := h.sessions.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, sessionResponse{Session: h.sessions.Snapshot(), User: user})
}

// EnterGuest switches the session to read-only guest access
func (h *SessionHandler) EnterGuest(c *gin.Context) {
	h.sessions.EnterGuest(c.Request.Context())
	c.JSON(http.StatusOK, sessionResponse{Session: h.sessions.Snapshot()})
}

// Logout returns the session to anonymous. Always succeeds locally.
func (h *SessionHandler) Logout(c *gin.Context) {
	h.sessions.Logout(c.Request.Context())
	c.JSON(http.StatusOK, sessionResponse{Session: h.sessions.Snapshot()})
}

// Refresh re-validates the token. A failed validation comes back as an
// anonymous session, not as an error.
func (h *SessionHandler) Refresh(c *gin.Context) {
	user := h.sessions.Refresh(c.Request.Context())
	c.JSON(http.StatusOK, sessionResponse{Session: h.sessions.Snapshot(), User: user})
}

// GetSession returns the current session snapshot
func (h *SessionHandler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, sessionResponse{Session: h.sessions.Snapshot()})
}

type profileRequest struct {
	Nickname *string `json:"nickname,omitempty" binding:"omitempty,max=64"`
	Email    *string `json:"email,omitempty" binding:"omitempty,email"`
	Phone    *string `json:"phone,omitempty" binding:"omitempty,max=32"`
}

// UpdateProfile passes a profile mutation through to the auth service
func (h *SessionHandler) UpdateProfile(c *gin.Context) {
	var req profileRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	user, err := h.sessions.UpdateProfile(c.Request.Context(), domain.ProfileUpdate{
		Nickname: req.Nickname,
		Email:    req.Email,
		Phone:    req.Phone,
	})
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, sessionResponse{Session: h.sessions.Snapshot(), User: user})
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6,max=128"`
}

// ChangePassword passes a password change through to the auth service
func (h *SessionHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	if err := h.sessions.ChangePassword(c.Request.Context(), req.OldPassword, req.NewPassword); err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// NavigationDecision evaluates a navigation attempt for the view layer
func (h *SessionHandler) NavigationDecision(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		middleware.AbortWithAppError(c, errors.ErrBadRequest("path query parameter is required"))
		return
	}

	c.JSON(http.StatusOK, h.guard.Decide(path, h.sessions))
}
