package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/trivia-director/sessions"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeySession stores the authenticated *sessions.Session
	ContextKeySession ContextKey = "session"

	SessionHeader = "X-Session-ID"
	SessionCookie = "session_id"
	sessionQuery  = "session"
)

// sessionID finds the session id on the header, the cookie or the query
// string, in that order. Browsers cannot set headers on websocket
// upgrades, hence the query fallback.
func sessionID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(SessionHeader)); id != "" {
		return id
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return r.URL.Query().Get(sessionQuery)
}

// SessionFromContext returns the session RequireSession placed on ctx.
func SessionFromContext(ctx context.Context) (*sessions.Session, bool) {
	sess, ok := ctx.Value(ContextKeySession).(*sessions.Session)
	return sess, ok && sess != nil
}

// RequireSession rejects requests without a live session.
func (s *Server) RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.auth.Authenticate(r.Context(), sessionID(r))
		if err != nil {
			writeError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), ContextKeySession, sess)
		next(w, r.WithContext(ctx))
	}
}

// RequireAdmin must follow RequireSession. The role is re-read from the
// user record so a demoted or revoked admin loses access immediately.
func (s *Server) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if _, err := s.auth.RequireAdmin(r.Context(), sess.UserID); err != nil {
			writeError(w, err)
			return
		}
		next(w, r)
	}
}
