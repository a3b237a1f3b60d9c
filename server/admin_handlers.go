package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/jrsteele09/trivia-director/audit"
	apperrors "github.com/jrsteele09/trivia-director/internal/errors"
	"github.com/jrsteele09/trivia-director/internal/utils"
	"github.com/jrsteele09/trivia-director/token"
	"github.com/jrsteele09/trivia-director/users"
)

// tokenView hides the hash and salt of a stored token.
type tokenView struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	IssuedBy  string     `json:"issuedBy,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
	Permanent bool       `json:"permanent"`
}

func newTokenView(t *token.AuthToken) tokenView {
	return tokenView{
		ID:        t.ID,
		UserID:    t.UserID,
		IssuedBy:  t.IssuedBy,
		CreatedAt: t.CreatedAt,
		ExpiresAt: t.ExpiresAt,
		RevokedAt: t.RevokedAt,
		Permanent: t.Permanent(),
	}
}

// adminID is the acting user id. Admin routes always run behind
// RequireSession.
func adminID(r *http.Request) string {
	sess, _ := SessionFromContext(r.Context())
	if sess == nil {
		return ""
	}
	return sess.UserID
}

func (s *Server) AdminListUsersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := s.auth.ListUsers(r.Context(), adminID(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, list)
	}
}

func (s *Server) AdminCreateUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		user, plaintext, err := s.auth.CreateUser(r.Context(), adminID(r), req.Username)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, apiResponse{Success: true, Data: user.Public(), Token: plaintext})
	}
}

func (s *Server) AdminDeleteUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.auth.DeleteUser(r.Context(), adminID(r), r.PathValue("id")); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, apiResponse{Success: true})
	}
}

func (s *Server) AdminSetUserStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Status users.Status `json:"status"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		user, err := s.auth.SetUserStatus(r.Context(), adminID(r), r.PathValue("id"), req.Status)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, user.Public())
	}
}

func (s *Server) AdminForceLogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := s.auth.ForceLogout(r.Context(), adminID(r), r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, map[string]int{"sessionsRemoved": n})
	}
}

func (s *Server) AdminListTokensHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := s.auth.ListTokens(r.Context(), adminID(r), r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		views := make([]tokenView, len(list))
		for i, t := range list {
			views[i] = newTokenView(t)
		}
		writeData(w, http.StatusOK, views)
	}
}

// AdminIssueTokenHandler issues a token. expiresInHours of zero or absent
// issues a permanent token.
func (s *Server) AdminIssueTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ExpiresInHours float64 `json:"expiresInHours"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if req.ExpiresInHours < 0 {
			writeError(w, apperrors.NewValidation("expiresInHours", "must not be negative"))
			return
		}
		var expiry *time.Duration
		if req.ExpiresInHours > 0 {
			expiry = utils.Ptr(time.Duration(req.ExpiresInHours * float64(time.Hour)))
		}
		issued, err := s.auth.IssueToken(r.Context(), adminID(r), r.PathValue("id"), expiry)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, apiResponse{
			Success: true,
			Data:    newTokenView(issued.Token),
			Token:   issued.Plaintext,
		})
	}
}

func (s *Server) AdminRevokeTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := s.auth.RevokeToken(r.Context(), adminID(r), r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, newTokenView(t))
	}
}

func (s *Server) AdminAuditLogsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := audit.Filter{
			Action:       audit.Action(q.Get("action")),
			ActorID:      q.Get("actorId"),
			TargetUserID: q.Get("targetUserId"),
		}
		if raw := q.Get("since"); raw != "" {
			since, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				writeError(w, apperrors.NewValidation("since", "must be RFC3339"))
				return
			}
			filter.Since = since
		}
		limit, err := parseLimit(q.Get("limit"))
		if err != nil {
			writeError(w, err)
			return
		}
		filter.Limit = limit

		entries, err := s.auth.ListAuditLogs(r.Context(), adminID(r), filter)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, entries)
	}
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperrors.NewValidation("limit", "must be a non-negative integer")
	}
	return n, nil
}
