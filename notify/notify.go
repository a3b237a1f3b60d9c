// Package notify delivers outbound notifications about token requests.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/trivia-director/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type Email struct {
	To      string
	Subject string
	Body    string
}

// Result describes a delivered notification.
type Result struct {
	Provider string
	SentAt   time.Time
}

// Sender delivers an email. Errors are ErrDependency.
type Sender interface {
	SendEmail(ctx context.Context, email Email) (Result, error)
}

// SmtpConfig is satisfied by config.EnvConfig.
type SmtpConfig interface {
	GetSmtpHost() string
	GetSmtpPort() string
	GetSmtpAccount() string
	GetSmtpPassword() string
}

// DefaultSmtpTimeout bounds a whole SMTP conversation when the caller's
// context carries no earlier deadline.
const DefaultSmtpTimeout = 30 * time.Second

type sendFunc func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SmtpSender struct {
	host     string
	port     string
	account  string
	password string
	timeout  time.Duration
	send     sendFunc
	nowTime  func() time.Time
}

type SmtpOption func(*SmtpSender)

func WithSmtpTimeout(d time.Duration) SmtpOption {
	return func(s *SmtpSender) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewSmtpSender(cfg SmtpConfig, options ...SmtpOption) *SmtpSender {
	s := &SmtpSender{
		host:     cfg.GetSmtpHost(),
		port:     cfg.GetSmtpPort(),
		account:  cfg.GetSmtpAccount(),
		password: cfg.GetSmtpPassword(),
		timeout:  DefaultSmtpTimeout,
		nowTime:  time.Now,
	}
	s.send = s.sendMail
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *SmtpSender) SendEmail(ctx context.Context, email Email) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", apperrors.ErrDependency, err)
	}
	if email.To == "" {
		return Result{}, fmt.Errorf("%w: no recipient", apperrors.ErrDependency)
	}
	auth := smtp.PlainAuth("", s.account, s.password, s.host)
	addr := net.JoinHostPort(s.host, s.port)
	if err := s.send(ctx, addr, auth, s.account, []string{email.To}, buildMessage(s.account, email)); err != nil {
		return Result{}, fmt.Errorf("%w: %v", apperrors.ErrDependency, errors.Wrap(err, "[SmtpSender.SendEmail]"))
	}
	return Result{Provider: "smtp", SentAt: s.nowTime().UTC()}, nil
}

// sendMail is smtp.SendMail over a connection that honours ctx and never
// outlives the sender's timeout.
func (s *SmtpSender) sendMail(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return errors.Wrap(err, "dial")
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return errors.Wrap(err, "set deadline")
		}
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	c, err := smtp.NewClient(conn, s.host)
	if err != nil {
		return errors.Wrap(err, "greeting")
	}
	defer c.Close()
	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
			return errors.Wrap(err, "starttls")
		}
	}
	if a != nil {
		if ok, _ := c.Extension("AUTH"); !ok {
			return errors.New("server does not support AUTH")
		}
		if err := c.Auth(a); err != nil {
			return errors.Wrap(err, "auth")
		}
	}
	if err := c.Mail(from); err != nil {
		return errors.Wrap(err, "mail from")
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return errors.Wrap(err, "rcpt to")
		}
	}
	w, err := c.Data()
	if err != nil {
		return errors.Wrap(err, "data")
	}
	if _, err := w.Write(msg); err != nil {
		return errors.Wrap(err, "write body")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "end body")
	}
	return c.Quit()
}

func buildMessage(from string, email Email) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", email.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", email.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(strings.ReplaceAll(email.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// LogSender writes notifications to the log instead of delivering them.
// Used when no SMTP account is configured.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendEmail(_ context.Context, email Email) (Result, error) {
	s.logger.Info().
		Str("to", email.To).
		Str("subject", email.Subject).
		Msg("notification (not delivered, smtp disabled)")
	return Result{Provider: "log", SentAt: time.Now().UTC()}, nil
}

// NewSender picks SMTP when an account is configured.
func NewSender(cfg SmtpConfig, logger zerolog.Logger) Sender {
	if cfg.GetSmtpAccount() == "" || cfg.GetSmtpPassword() == "" {
		return NewLogSender(logger)
	}
	return NewSmtpSender(cfg)
}
