// Package auth manages director sessions: registration, login against a
// registration credential or an issued token, heartbeat renewal, logout
// and the admin operations over users, tokens and sessions.
package auth

import (
	"context"
	"time"

	"github.com/jrsteele09/trivia-director/audit"
	apperrors "github.com/jrsteele09/trivia-director/internal/errors"
	"github.com/jrsteele09/trivia-director/internal/metrics"
	"github.com/jrsteele09/trivia-director/ratelimit"
	"github.com/jrsteele09/trivia-director/sessions"
	"github.com/jrsteele09/trivia-director/token"
	"github.com/jrsteele09/trivia-director/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	DefaultSessionTTL = 30 * time.Minute

	RateKeyLogin    = "login"
	RateKeyRegister = "register"
)

// Repos holds all repository dependencies for the Service
type Repos struct {
	Users    users.Repo    // Repository for user records
	Tokens   token.Repo    // Repository for issued tokens
	Sessions sessions.Repo // Repository for live sessions
}

// Service owns sessions and credentials. It is safe for concurrent use.
type Service struct {
	users    *users.CredentialStore
	tokens   token.Repo
	sessions sessions.Repo
	audit    *audit.Log
	limiter  *ratelimit.Limiter

	sessionTTL      time.Duration
	sessionIDLength int
	secretLength    int
	saltLength      int
	nowTime         func() time.Time
	logger          zerolog.Logger
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithSessionTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

func WithRateLimiter(l *ratelimit.Limiter) ServiceOption {
	return func(s *Service) {
		s.limiter = l
	}
}

// WithCredentialLengths overrides the random byte lengths of generated
// secrets, salts and session ids.
func WithCredentialLengths(secret, salt, sessionID int) ServiceOption {
	return func(s *Service) {
		s.secretLength = secret
		s.saltLength = salt
		s.sessionIDLength = sessionID
	}
}

// NewService initializes a Service. Optional configuration is provided via
// options (e.g. WithNowTime for testing).
func NewService(repos Repos, auditLog *audit.Log, options ...ServiceOption) (*Service, error) {
	if repos.Users == nil {
		return nil, errors.New("[auth.NewService] Users repo is required")
	}
	if repos.Tokens == nil {
		return nil, errors.New("[auth.NewService] Tokens repo is required")
	}
	if repos.Sessions == nil {
		return nil, errors.New("[auth.NewService] Sessions repo is required")
	}
	if auditLog == nil {
		return nil, errors.New("[auth.NewService] audit log is required")
	}

	s := &Service{
		tokens:          repos.Tokens,
		sessions:        repos.Sessions,
		audit:           auditLog,
		sessionTTL:      DefaultSessionTTL,
		sessionIDLength: sessions.DefaultIDLength,
		secretLength:    token.DefaultSecretLength,
		saltLength:      token.DefaultSaltLength,
		nowTime:         time.Now,
		logger:          zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.limiter == nil {
		s.limiter = ratelimit.New(ratelimit.DefaultWindow, ratelimit.DefaultMaxAttempts, ratelimit.WithNowTime(s.nowTime))
	}
	s.users = users.NewCredentialStore(repos.Users,
		users.WithNowTime(s.nowTime),
		users.WithSecretLengths(s.secretLength, s.saltLength),
	)
	return s, nil
}

// RegisterResult carries the new user and the one-time plaintext credential.
type RegisterResult struct {
	User       *users.User
	Credential string
}

// Register self-registers a user and returns its credential once.
func (s *Service) Register(ctx context.Context, username, userAgent string) (*RegisterResult, error) {
	if err := s.allow(RateKeyRegister); err != nil {
		return nil, err
	}
	user, plaintext, err := s.users.CreateUser(ctx, username, users.CreateOptions{Role: users.RoleUser})
	if err != nil {
		return nil, err
	}
	s.record(ctx, audit.ActionUserCreated, user.ID, user.ID, map[string]any{
		"username":  user.Username,
		"source":    "register",
		"userAgent": userAgent,
	})
	return &RegisterResult{User: user, Credential: plaintext}, nil
}

// Login validates the credential and opens the user's only session. Every
// credential failure returns ErrInvalidCredentials so callers cannot tell
// unknown users from wrong secrets.
func (s *Service) Login(ctx context.Context, username, credential, userAgent string) (*sessions.Session, error) {
	if err := s.allow(RateKeyLogin); err != nil {
		metrics.LoginAttempts.WithLabelValues("rate_limited").Inc()
		return nil, err
	}

	user, err := s.checkCredential(ctx, username, credential)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrInvalidCredentials) {
			metrics.LoginAttempts.WithLabelValues("invalid").Inc()
		}
		return nil, err
	}

	id, err := sessions.NewID(s.sessionIDLength)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Login] session id")
	}
	now := s.nowTime().UTC()
	session := &sessions.Session{
		ID:            id,
		UserID:        user.ID,
		Username:      user.Username,
		Role:          user.Role,
		UserAgent:     userAgent,
		CreatedAt:     now,
		LastHeartbeat: now,
		ExpiresAt:     now.Add(s.sessionTTL),
	}
	revoked, err := s.sessions.ReplaceForUser(ctx, session)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Login] storing session")
	}
	if revoked > 0 {
		metrics.SessionsRevoked.WithLabelValues("conflict").Add(float64(revoked))
		s.record(ctx, audit.ActionSessionRevokedConflict, user.ID, user.ID, map[string]any{"count": revoked})
	}

	// A revocation that landed between the credential check and the swap
	// has already swept the user's sessions, so drop the one just stored.
	if err := s.ensureStillActive(ctx, user.ID, session.ID); err != nil {
		return nil, err
	}

	if err := s.users.TouchLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to stamp last login")
	}
	s.record(ctx, audit.ActionSessionCreated, user.ID, user.ID, map[string]any{"userAgent": userAgent})
	metrics.LoginAttempts.WithLabelValues("success").Inc()

	s.logger.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("session created")
	return session, nil
}

// checkCredential accepts the registration credential or any valid issued
// token of an ACTIVE user.
func (s *Service) checkCredential(ctx context.Context, username, credential string) (*users.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Login] user lookup")
	}
	if !user.IsActive() {
		return nil, apperrors.ErrInvalidCredentials
	}
	if s.users.VerifyCredential(user, credential) {
		return user, nil
	}

	tokens, err := s.tokens.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Login] token lookup")
	}
	now := s.nowTime()
	for _, t := range tokens {
		if t.IsValid(now) && t.Matches(credential) {
			return user, nil
		}
	}
	return nil, apperrors.ErrInvalidCredentials
}

func (s *Service) ensureStillActive(ctx context.Context, userID, sessionID string) error {
	current, err := s.users.FindByID(ctx, userID)
	if err == nil && current.IsActive() {
		return nil
	}
	if delErr := s.sessions.Delete(ctx, sessionID); delErr != nil && !errors.Is(delErr, apperrors.ErrSessionNotFound) {
		return errors.Wrap(delErr, "[Service.Login] dropping session of revoked user")
	}
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return errors.Wrap(err, "[Service.Login] user lookup")
	}
	metrics.LoginAttempts.WithLabelValues("invalid").Inc()
	return apperrors.ErrInvalidCredentials
}

// Authenticate returns the live session for id. An expired session is
// deleted on sight and reported as ErrSessionExpired.
func (s *Service) Authenticate(ctx context.Context, sessionID string) (*sessions.Session, error) {
	if sessionID == "" {
		return nil, apperrors.ErrSessionNotFound
	}
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Expired(s.nowTime()) {
		if err := s.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, apperrors.ErrSessionNotFound) {
			s.logger.Warn().Err(err).Msg("failed to delete expired session")
		}
		metrics.SessionsRevoked.WithLabelValues("expired").Inc()
		return nil, apperrors.ErrSessionExpired
	}
	return session, nil
}

// Heartbeat extends a live session by the session TTL. The check and the
// renewal are one repository write, so a session ended concurrently is
// never written back.
func (s *Service) Heartbeat(ctx context.Context, sessionID string) (*sessions.Session, error) {
	if sessionID == "" {
		return nil, apperrors.ErrSessionNotFound
	}
	session, err := s.sessions.Renew(ctx, sessionID, s.nowTime().UTC(), s.sessionTTL)
	if errors.Is(err, apperrors.ErrSessionExpired) {
		metrics.SessionsRevoked.WithLabelValues("expired").Inc()
		return nil, err
	}
	if err != nil && !errors.Is(err, apperrors.ErrSessionNotFound) {
		return nil, errors.Wrap(err, "[Service.Heartbeat] renewing session")
	}
	return session, err
}

// Logout ends a session.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	metrics.SessionsRevoked.WithLabelValues("logout").Inc()
	s.record(ctx, audit.ActionSessionEnded, session.UserID, session.UserID, nil)
	return nil
}

// SweepExpired deletes every lapsed session.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	n, err := s.sessions.DeleteExpired(ctx, s.nowTime())
	if err != nil {
		return 0, errors.Wrap(err, "[Service.SweepExpired]")
	}
	if n > 0 {
		metrics.SessionsRevoked.WithLabelValues("expired").Add(float64(n))
	}
	return n, nil
}

func (s *Service) allow(key string) error {
	if s.limiter.Allow(key) {
		return nil
	}
	metrics.RateLimited.WithLabelValues(key).Inc()
	return apperrors.ErrRateLimited
}

// record appends an audit entry. The action it describes has already
// happened, so a failed append is logged rather than returned.
func (s *Service) record(ctx context.Context, action audit.Action, actorID, targetID string, metadata map[string]any) {
	if err := s.audit.Record(ctx, action, actorID, targetID, metadata); err != nil {
		s.logger.Error().Err(err).Str("action", string(action)).Msg("failed to append audit entry")
	}
}
