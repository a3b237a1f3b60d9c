package notify

import (
	"context"
	"net/smtp"
)

// SetSendFunc replaces the SMTP transport in tests.
func (s *SmtpSender) SetSendFunc(fn func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error) {
	s.send = fn
}
