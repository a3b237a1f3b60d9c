package tokenrequests

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/jrsteele09/trivia-director/internal/errors"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusContacted Status = "CONTACTED"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
)

// CanTransition reports whether an admin may move a request from s to next.
// APPROVED and REJECTED are terminal.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusContacted || next == StatusApproved || next == StatusRejected
	case StatusContacted:
		return next == StatusApproved || next == StatusRejected
	}
	return false
}

type EmailStatus string

const (
	EmailPending EmailStatus = "PENDING"
	EmailSent    EmailStatus = "SENT"
	EmailFailed  EmailStatus = "FAILED"
)

// Request is one public application for director access.
type Request struct {
	ID                string      `json:"id"`
	FullName          string      `json:"fullName"`
	Email             string      `json:"email"`
	TiktokHandle      string      `json:"tiktokHandle"`
	Phone             string      `json:"phone"`
	PreferredUsername string      `json:"preferredUsername"`
	Notes             string      `json:"notes,omitempty"`
	Status            Status      `json:"status"`
	EmailStatus       EmailStatus `json:"emailStatus"`
	DeviceHash        string      `json:"deviceHash"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
	LastError         string      `json:"lastError,omitempty"`
	ApprovedUserID    string      `json:"approvedUserId,omitempty"`
	ApprovedTokenID   string      `json:"approvedTokenId,omitempty"`
}

// Submission is the public intake payload.
type Submission struct {
	FullName          string `json:"fullName"`
	Email             string `json:"email"`
	TiktokHandle      string `json:"tiktokHandle"`
	Phone             string `json:"phone"`
	PreferredUsername string `json:"preferredUsername"`
	Notes             string `json:"notes,omitempty"`
	DeviceHash        string `json:"deviceHash"`
}

var (
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	handlePattern   = regexp.MustCompile(`^@?[A-Za-z0-9._]{2,24}$`)
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
)

func (s *Submission) normalize() {
	s.FullName = strings.TrimSpace(s.FullName)
	s.Email = strings.TrimSpace(s.Email)
	s.TiktokHandle = strings.TrimSpace(s.TiktokHandle)
	s.Phone = strings.TrimSpace(s.Phone)
	s.PreferredUsername = strings.TrimSpace(s.PreferredUsername)
	s.Notes = strings.TrimSpace(s.Notes)
	s.DeviceHash = strings.TrimSpace(s.DeviceHash)
}

// Validate checks the fields in a fixed order and reports the first
// violation.
func (s Submission) Validate() error {
	if n := utf8.RuneCountInString(s.FullName); n < 2 || n > 100 {
		return apperrors.NewValidation("fullName", "must be between 2 and 100 characters")
	}
	if !emailPattern.MatchString(s.Email) {
		return apperrors.NewValidation("email", "is not a valid email address")
	}
	if !handlePattern.MatchString(s.TiktokHandle) {
		return apperrors.NewValidation("tiktokHandle", "must be 2 to 24 letters, numbers, '.' or '_'")
	}
	if s.Phone == "" {
		return apperrors.NewValidation("phone", "is required")
	}
	if n := len(s.PreferredUsername); n < 3 || n > 50 {
		return apperrors.NewValidation("preferredUsername", "must be between 3 and 50 characters")
	}
	if !usernamePattern.MatchString(s.PreferredUsername) {
		return apperrors.NewValidation("preferredUsername", "may only contain letters, numbers, '_', '.' and '-'")
	}
	if s.DeviceHash == "" {
		return apperrors.NewValidation("deviceHash", "is required")
	}
	return nil
}

// handleKey is the comparison form of a handle: no '@', lower case.
func handleKey(handle string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(handle), "@"))
}
