package server

import (
	"context"
	"fmt"
)

// InitialiseSystem ensures the system admin account exists.
// Returns the generated credential on first creation (empty string if the
// admin already exists).
func (s *Server) InitialiseSystem(ctx context.Context) (generatedCredential string, err error) {
	s.logger.Info().Msg("🔧 Bootstrap: Checking system configuration...")

	username := s.config.GetSystemAdminUser()
	admin, plaintext, created, err := s.auth.BootstrapAdmin(ctx, username)
	if err != nil {
		return "", fmt.Errorf("failed to bootstrap admin %q: %w", username, err)
	}
	if !created {
		s.logger.Info().Str("username", admin.Username).Msg("✓ Bootstrap: admin already exists")
		return "", nil
	}

	s.logger.Warn().
		Str("username", admin.Username).
		Str("user_id", admin.ID).
		Str("token", plaintext).
		Msg("👤 Admin created. SAVE THIS TOKEN - it will not be displayed again!")
	return plaintext, nil
}
