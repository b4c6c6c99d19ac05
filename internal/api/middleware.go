package api

import (
	"net/url"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	authapi "webwatch/internal/api/auth"
	"webwatch/internal/api/types"
	"webwatch/internal/auth"
)

// sessionContextKey is where RequireAuth stores the resolved session.
const sessionContextKey = "session"

// SecurityHeaders attaches the default security headers to every response.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// PanicRecovery converts an uncaught panic into a 5001 envelope and logs
// the stack. Internals never reach the error field.
func PanicRecovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Interface("panic", r).
					Str("path", c.Request.URL.Path).
					Bytes("stack", debug.Stack()).
					Msg("Handler panicked")
				types.Abort(c, types.InternalError())
			}
		}()
		c.Next()
	}
}

// LoggerMiddleware emits one structured log line per request.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	}
}

// SameOrigin is the CSRF guard for state-changing endpoints: the request
// must carry an Origin or Referer whose host equals the Host header.
func SameOrigin() gin.HandlerFunc {
	return func(c *gin.Context) {
		source := c.GetHeader("Origin")
		if source == "" {
			source = c.GetHeader("Referer")
		}
		if source == "" {
			types.Abort(c, types.CSRFError())
			return
		}
		u, err := url.Parse(source)
		if err != nil || u.Host != c.Request.Host {
			types.Abort(c, types.CSRFError())
			return
		}
		c.Next()
	}
}

// RequireAuth resolves the session cookie and rejects the request with a
// 1003 envelope when no live session exists. The session is stored in the
// request context for handlers that want it.
func RequireAuth(manager *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(authapi.CookieName)
		if err != nil {
			types.Abort(c, types.AuthRequiredError())
			return
		}
		session, ok := manager.Authenticate(token)
		if !ok {
			types.Abort(c, types.AuthRequiredError())
			return
		}
		c.Set(sessionContextKey, session)
		c.Next()
	}
}
