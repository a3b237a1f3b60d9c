package server

import (
	"net/http"
	"time"

	apperrors "github.com/jrsteele09/trivia-director/internal/errors"
	"github.com/jrsteele09/trivia-director/tokenrequests"
)

const DeviceHashHeader = "X-Device-Hash"

// writeIntakeError always carries one of the public error codes, the
// intake form keys its messages on them.
func (s *Server) writeIntakeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	code := apperrors.PublicCode(err)
	message := err.Error()
	if code == apperrors.CodeInternal {
		s.logger.Error().Err(err).Msg("token request intake failed")
		status = http.StatusInternalServerError
		message = "internal error"
	}
	writeJSON(w, status, apiResponse{Error: &apiError{Code: code, Message: message}})
}

// SubmitTokenRequestHandler is the public intake form.
func (s *Server) SubmitTokenRequestHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sub tokenrequests.Submission
		if err := decodeJSON(r, &sub); err != nil {
			s.writeIntakeError(w, err)
			return
		}
		if sub.DeviceHash == "" {
			sub.DeviceHash = r.Header.Get(DeviceHashHeader)
		}
		req, err := s.requests.Submit(r.Context(), sub)
		if err != nil {
			s.writeIntakeError(w, err)
			return
		}
		writeData(w, http.StatusCreated, struct {
			ID        string               `json:"id"`
			Status    tokenrequests.Status `json:"status"`
			CreatedAt time.Time            `json:"createdAt"`
		}{req.ID, req.Status, req.CreatedAt})
	}
}

func (s *Server) AdminListTokenRequestsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := parseLimit(r.URL.Query().Get("limit"))
		if err != nil {
			writeError(w, err)
			return
		}
		filter := tokenrequests.Filter{
			Status: tokenrequests.Status(r.URL.Query().Get("status")),
			Limit:  limit,
		}
		list, err := s.requests.List(r.Context(), adminID(r), filter)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, list)
	}
}

func (s *Server) AdminTokenRequestStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Status tokenrequests.Status `json:"status"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, err)
			return
		}
		req, err := s.requests.SetStatus(r.Context(), adminID(r), r.PathValue("id"), body.Status)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, req)
	}
}

// AdminApproveTokenRequestHandler provisions the requested account. The
// plaintext token is returned once for the admin to hand over.
func (s *Server) AdminApproveTokenRequestHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		approval, err := s.requests.Approve(r.Context(), adminID(r), r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, apiResponse{
			Success: true,
			Data: map[string]any{
				"request": approval.Request,
				"user":    approval.User,
				"token":   newTokenView(approval.Token),
			},
			Token: approval.Plaintext,
		})
	}
}

func (s *Server) AdminRetryTokenRequestEmailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := s.requests.RetryNotification(r.Context(), adminID(r), r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, req)
	}
}
