package auth

import (
	"context"
	"time"

	apperrors "github.com/jrsteele09/trivia-director/internal/errors"
)

// RunHeartbeat renews sessionID every interval until ctx is done or the
// session is gone. A failed tick is logged and the next tick retries.
// It returns the error that ended the session, or nil when ctx ended first.
func (s *Service) RunHeartbeat(ctx context.Context, sessionID string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_, err := s.Heartbeat(ctx, sessionID)
			if err == nil {
				continue
			}
			if apperrors.IsAuth(err) {
				s.logger.Info().Err(err).Msg("heartbeat stopped, session ended")
				return err
			}
			s.logger.Warn().Err(err).Msg("heartbeat failed")
		}
	}
}
