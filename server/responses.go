package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	apperrors "github.com/jrsteele09/trivia-director/internal/errors"
	"github.com/pkg/errors"
)

const maxBodyBytes = 64 << 10

type apiError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type apiResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Session any       `json:"session,omitempty"`
	Token   string    `json:"token,omitempty"`
	Error   *apiError `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, apiResponse{Success: true, Data: data})
}

// writeError maps err onto its HTTP status. Internal failures never leak
// their message.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	var verr *apperrors.ValidationError
	if apperrors.As(err, &verr) {
		message = verr.Error()
	}
	code := apperrors.PublicCode(err)
	if code == apperrors.CodeInternal && status != http.StatusInternalServerError {
		code = ""
	}
	writeJSON(w, status, apiResponse{Error: &apiError{Code: code, Message: message}})
}

func statusFor(err error) int {
	switch {
	case apperrors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest
	case apperrors.IsAuth(err):
		return http.StatusUnauthorized
	case apperrors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden
	case apperrors.Is(err, apperrors.ErrRateLimited):
		return http.StatusTooManyRequests
	case apperrors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case apperrors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return apperrors.NewValidation("body", "malformed JSON: %v", err)
}

func sameHost(origin, host string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == host
}
