package server

import (
	"net/http"
	"time"

	"github.com/jrsteele09/trivia-director/sessions"
)

type credentialRequest struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

// RegisterHandler self-registers a user. The credential is only ever
// returned here.
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		result, err := s.auth.Register(r.Context(), req.Username, r.UserAgent())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, apiResponse{
			Success: true,
			Data:    result.User.Public(),
			Token:   result.Credential,
		})
	}
}

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		session, err := s.auth.Login(r.Context(), req.Username, req.Token, r.UserAgent())
		if err != nil {
			writeError(w, err)
			return
		}
		s.setSessionCookie(w, session)
		writeJSON(w, http.StatusOK, apiResponse{Success: true, Session: session})
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.auth.Logout(r.Context(), sessionID(r)); err != nil {
			writeError(w, err)
			return
		}
		s.clearSessionCookie(w)
		writeJSON(w, http.StatusOK, apiResponse{Success: true})
	}
}

func (s *Server) HeartbeatHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := s.auth.Heartbeat(r.Context(), sessionID(r))
		if err != nil {
			s.clearSessionCookie(w)
			writeError(w, err)
			return
		}
		s.setSessionCookie(w, session)
		writeJSON(w, http.StatusOK, apiResponse{Success: true, Session: session})
	}
}

func (s *Server) setSessionCookie(w http.ResponseWriter, session *sessions.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   s.env != "DEV",
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.env != "DEV",
		SameSite: http.SameSiteLaxMode,
	})
}
