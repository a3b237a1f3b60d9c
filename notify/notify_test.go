package notify_test

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/smtp"
	"strings"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/trivia-director/internal/errors"
	"github.com/jrsteele09/trivia-director/notify"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type smtpConfig struct {
	account, password string
}

func (smtpConfig) GetSmtpHost() string       { return "smtp.example.com" }
func (smtpConfig) GetSmtpPort() string       { return "587" }
func (c smtpConfig) GetSmtpAccount() string  { return c.account }
func (c smtpConfig) GetSmtpPassword() string { return c.password }

func TestSmtpSender_SendsMessage(t *testing.T) {
	sender := notify.NewSmtpSender(smtpConfig{account: "director@example.com", password: "pw"})

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	sender.SetSendFunc(func(_ context.Context, addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	})

	res, err := sender.SendEmail(context.Background(), notify.Email{
		To:      "admin@example.com",
		Subject: "New token request",
		Body:    "line one\nline two",
	})
	require.NoError(t, err)
	require.Equal(t, "smtp", res.Provider)
	require.Equal(t, "smtp.example.com:587", gotAddr)
	require.Equal(t, "director@example.com", gotFrom)
	require.Equal(t, []string{"admin@example.com"}, gotTo)
	require.Contains(t, string(gotMsg), "Subject: New token request\r\n")
	require.True(t, strings.HasSuffix(string(gotMsg), "line one\r\nline two"))
}

func TestSmtpSender_FailureIsDependencyError(t *testing.T) {
	sender := notify.NewSmtpSender(smtpConfig{account: "a", password: "b"})
	sender.SetSendFunc(func(context.Context, string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	})

	_, err := sender.SendEmail(context.Background(), notify.Email{To: "admin@example.com"})
	require.ErrorIs(t, err, apperrors.ErrDependency)
	require.Contains(t, err.Error(), "connection refused")

	_, err = sender.SendEmail(context.Background(), notify.Email{})
	require.ErrorIs(t, err, apperrors.ErrDependency)
}

type addrConfig struct {
	host, port string
}

func (c addrConfig) GetSmtpHost() string   { return c.host }
func (c addrConfig) GetSmtpPort() string   { return c.port }
func (addrConfig) GetSmtpAccount() string  { return "director@example.com" }
func (addrConfig) GetSmtpPassword() string { return "pw" }

// silentServer accepts connections and never sends the SMTP greeting.
func silentServer(t *testing.T) addrConfig {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		var held []net.Conn
		defer func() {
			for _, conn := range held {
				_ = conn.Close()
			}
		}()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			held = append(held, conn)
		}
	}()
	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	return addrConfig{host: host, port: port}
}

func TestSmtpSender_SilentServerTimesOut(t *testing.T) {
	sender := notify.NewSmtpSender(silentServer(t), notify.WithSmtpTimeout(200*time.Millisecond))

	start := time.Now()
	_, err := sender.SendEmail(context.Background(), notify.Email{To: "admin@example.com"})
	require.ErrorIs(t, err, apperrors.ErrDependency)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestSmtpSender_SilentServerHonoursContext(t *testing.T) {
	sender := notify.NewSmtpSender(silentServer(t))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := sender.SendEmail(ctx, notify.Email{To: "admin@example.com"})
	require.ErrorIs(t, err, apperrors.ErrDependency)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestNewSender_FallsBackToLog(t *testing.T) {
	var buf bytes.Buffer
	sender := notify.NewSender(smtpConfig{}, zerolog.New(&buf))
	require.IsType(t, &notify.LogSender{}, sender)

	res, err := sender.SendEmail(context.Background(), notify.Email{To: "x@example.com", Subject: "hi"})
	require.NoError(t, err)
	require.Equal(t, "log", res.Provider)
	require.Contains(t, buf.String(), `"subject":"hi"`)

	require.IsType(t, &notify.SmtpSender{}, notify.NewSender(smtpConfig{account: "a", password: "b"}, zerolog.Nop()))
}
