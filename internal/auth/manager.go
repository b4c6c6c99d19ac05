// Package auth implements the session and login rate-limit layer.
//
// A single shared admin credential guards the whole API. Successful logins
// mint opaque session tokens persisted in the store; failed logins
// accumulate per-IP inside a trailing lockout window and block further
// attempts once the threshold is reached, regardless of the password.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"webwatch/internal/config"
	"webwatch/internal/storage"
)

// Sentinel errors surfaced to the API layer.
var (
	// ErrBadCredentials means the supplied password did not match.
	ErrBadCredentials = errors.New("bad credentials")

	// ErrRateLimited means the IP exhausted its failed-login budget.
	ErrRateLimited = errors.New("too many login attempts")
)

// Manager owns session lifecycle and the login rate limit.
type Manager struct {
	cfg      config.AuthConfig
	sessions *storage.SessionRepo
	attempts *storage.AttemptRepo
}

// NewManager creates an auth manager over the session and attempt
// repositories.
func NewManager(cfg config.AuthConfig, sessions *storage.SessionRepo, attempts *storage.AttemptRepo) *Manager {
	return &Manager{cfg: cfg, sessions: sessions, attempts: attempts}
}

// Login validates the password for a client and creates a session.
//
// The lockout check runs before the password check, so a locked-out IP is
// rejected even with the correct password, and every outcome (including a
// lockout rejection) is recorded as an attempt. Failed attempts keep
// counting toward the window until they age out; a successful login does
// not reset the counter.
func (m *Manager) Login(password, ip, userAgent string) (*storage.Session, error) {
	now := storage.Now()

	failures, err := m.attempts.CountFailuresSince(ip, now.Add(-m.cfg.LockoutWindow()))
	if err != nil {
		log.Warn().Err(err).Str("ip", ip).Msg("Failed to count login attempts")
	}
	if failures >= m.cfg.MaxLoginAttempts {
		m.recordAttempt(ip, false)
		return nil, ErrRateLimited
	}

	if !m.passwordMatches(password) {
		m.recordAttempt(ip, false)
		return nil, ErrBadCredentials
	}

	session := &storage.Session{
		ID:            newToken(),
		Authenticated: true,
		CreatedAt:     now,
		ExpiresAt:     now.Add(m.cfg.SessionTTL()),
		LastAccessAt:  now,
		IPAddress:     ip,
		UserAgent:     userAgent,
	}
	if err := m.sessions.Save(session); err != nil {
		return nil, err
	}
	m.recordAttempt(ip, true)
	return session, nil
}

// Authenticate resolves a session token. Expired sessions are deleted on
// sight and reported as absent; live sessions get their last-access time
// refreshed (a benign last-writer-wins race).
func (m *Manager) Authenticate(token string) (*storage.Session, bool) {
	if token == "" {
		return nil, false
	}
	session, err := m.sessions.Get(token)
	if err != nil {
		log.Warn().Err(err).Msg("Session lookup failed")
		return nil, false
	}
	if session == nil {
		return nil, false
	}
	if session.Expired(storage.Now()) {
		if err := m.sessions.Delete(token); err != nil {
			log.Warn().Err(err).Msg("Failed to delete expired session")
		}
		return nil, false
	}

	session.LastAccessAt = storage.Now()
	if err := m.sessions.Save(session); err != nil {
		log.Warn().Err(err).Msg("Failed to touch session")
	}
	return session, true
}

// Logout deletes the session for a token. Unknown tokens are a no-op.
func (m *Manager) Logout(token string) {
	if token == "" {
		return
	}
	if err := m.sessions.Delete(token); err != nil {
		log.Warn().Err(err).Msg("Failed to delete session on logout")
	}
}

// passwordMatches compares the supplied password against the configured
// admin credential. A bcrypt-shaped credential is verified with bcrypt,
// anything else with a constant-time byte compare.
func (m *Manager) passwordMatches(password string) bool {
	admin := m.cfg.AdminPassword
	if strings.HasPrefix(admin, "$2a$") || strings.HasPrefix(admin, "$2b$") || strings.HasPrefix(admin, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(admin), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(admin), []byte(password)) == 1
}

// recordAttempt appends a login attempt; failures here only lose one
// rate-limit data point, so they are logged and swallowed.
func (m *Manager) recordAttempt(ip string, success bool) {
	attempt := &storage.LoginAttempt{
		IP:        ip,
		Timestamp: storage.Now(),
		Success:   success,
	}
	if err := m.attempts.Append(attempt); err != nil {
		log.Warn().Err(err).Str("ip", ip).Msg("Failed to record login attempt")
	}
}

// newToken mints an opaque 256-bit session token.
func newToken() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// ClientIP extracts the client address from proxy headers: the first
// X-Forwarded-For entry, then X-Real-IP, then CF-Connecting-IP. Without
// any of them the client is "unknown".
func ClientIP(header http.Header) string {
	if fwd := header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if ip := strings.TrimSpace(header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	return "unknown"
}
