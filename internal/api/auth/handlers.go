// Package auth implements the login, logout, and session-check endpoints.
package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"webwatch/internal/api/types"
	"webwatch/internal/auth"
	"webwatch/internal/config"
	"webwatch/internal/eventlog"
)

// CookieName is the session cookie attribute name.
const CookieName = "session"

// Handler serves the authentication endpoints.
type Handler struct {
	manager *auth.Manager
	cfg     config.AuthConfig
	sink    *eventlog.Sink
}

// NewHandler creates an authentication handler.
func NewHandler(manager *auth.Manager, cfg config.AuthConfig, sink *eventlog.Sink) *Handler {
	return &Handler{manager: manager, cfg: cfg, sink: sink}
}

// sessionView is the session shape exposed to clients; the token itself
// only travels in the cookie.
type sessionView struct {
	CreatedAt    string `json:"created_at"`
	ExpiresAt    string `json:"expires_at"`
	LastAccessAt string `json:"last_access_at"`
	IPAddress    string `json:"ip_address"`
}

// Login handles POST /api/login.
//
// The same-origin guard runs before this handler. Lockout is evaluated
// before the password, so a locked-out client is rejected even with the
// correct credential.
func (h *Handler) Login(c *gin.Context) {
	var req types.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Password == "" {
		types.Abort(c, types.ValidationError("密码不能为空"))
		return
	}

	ip := auth.ClientIP(c.Request.Header)
	session, err := h.manager.Login(req.Password, ip, c.Request.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrRateLimited):
			h.sink.Warn("登录被限流: " + ip)
			types.Abort(c, types.RateLimitError())
		case errors.Is(err, auth.ErrBadCredentials):
			h.sink.Warn("登录失败: " + ip)
			types.Abort(c, types.AuthFailedError())
		default:
			types.Abort(c, types.DatabaseError())
		}
		return
	}

	h.setSessionCookie(c, session.ID, int(h.cfg.SessionTTL().Seconds()))
	h.sink.Info("管理员登录成功: " + ip)
	c.JSON(http.StatusOK, types.SuccessResponse(gin.H{"authenticated": true}))
}

// Logout handles POST /api/logout: the session record is deleted and the
// cookie cleared. Logging out without a session still succeeds.
func (h *Handler) Logout(c *gin.Context) {
	if token, err := c.Cookie(CookieName); err == nil {
		h.manager.Logout(token)
	}
	h.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, types.SuccessResponse(gin.H{"authenticated": false}))
}

// Check handles GET /api/auth/check and reports whether the request
// carries a live session.
func (h *Handler) Check(c *gin.Context) {
	token, err := c.Cookie(CookieName)
	if err != nil {
		c.JSON(http.StatusOK, types.SuccessResponse(gin.H{"authenticated": false}))
		return
	}
	session, ok := h.manager.Authenticate(token)
	if !ok {
		c.JSON(http.StatusOK, types.SuccessResponse(gin.H{"authenticated": false}))
		return
	}

	const layout = "2006-01-02T15:04:05.000Z07:00"
	c.JSON(http.StatusOK, types.SuccessResponse(gin.H{
		"authenticated": true,
		"session": sessionView{
			CreatedAt:    session.CreatedAt.Format(layout),
			ExpiresAt:    session.ExpiresAt.Format(layout),
			LastAccessAt: session.LastAccessAt.Format(layout),
			IPAddress:    session.IPAddress,
		},
	}))
}

// setSessionCookie writes the session cookie with the attributes
// HttpOnly; Secure; SameSite=Strict; Path=/.
func (h *Handler) setSessionCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(CookieName, token, maxAge, "/", "", true, true)
}
