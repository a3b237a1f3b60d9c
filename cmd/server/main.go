package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/trivia-director/audit"
	"github.com/jrsteele09/trivia-director/auth"
	"github.com/jrsteele09/trivia-director/broadcast"
	"github.com/jrsteele09/trivia-director/internal/config"
	"github.com/jrsteele09/trivia-director/internal/logging"
	"github.com/jrsteele09/trivia-director/notify"
	"github.com/jrsteele09/trivia-director/ratelimit"
	"github.com/jrsteele09/trivia-director/server"
	"github.com/jrsteele09/trivia-director/sessions"
	"github.com/jrsteele09/trivia-director/storage"
	"github.com/jrsteele09/trivia-director/token"
	"github.com/jrsteele09/trivia-director/tokenrequests"
	"github.com/jrsteele09/trivia-director/users"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error running server: %s\n", err)
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return err
	}
	logger := logging.New(logging.Options{
		Level:   c.GetLogLevel(),
		File:    c.GetLogFile(),
		Console: c.GetEnv() == "DEV",
	})
	displayAppname(c.GetAppName())

	ctx := context.Background()
	store, err := storage.Open(ctx, c)
	if err != nil {
		return fmt.Errorf("opening %s store: %w", c.GetStorageDriver(), err)
	}
	defer store.Close()

	handler, closeServer, err := newServer(c, store, logger)
	if err != nil {
		return err
	}
	defer closeServer()

	httpServer := &http.Server{Addr: c.GetPort(), Handler: handler}
	errs := make(chan error, 1)
	go func() { errs <- listenAndServe(httpServer, logger) }()

	select {
	case err := <-errs:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

// newServer wires the services onto store.
func newServer(c config.Config, store storage.Store, logger zerolog.Logger) (http.Handler, func() error, error) {
	auditLog := audit.New(store, audit.WithCap(c.GetAuditLogCap()))
	limiter := ratelimit.New(c.GetRateLimitWindow(), c.GetRateLimitMaxAttempts())

	authService, err := auth.NewService(auth.Repos{
		Users:    users.NewKVRepo(store),
		Tokens:   token.NewKVRepo(store),
		Sessions: sessions.NewKVRepo(store),
	}, auditLog,
		auth.WithLogger(logger.With().Str("component", "auth").Logger()),
		auth.WithRateLimiter(limiter),
		auth.WithSessionTTL(c.GetSessionTTL()),
		auth.WithCredentialLengths(c.GetTokenLength(), c.GetSaltLength(), c.GetSessionIDLength()),
	)
	if err != nil {
		return nil, nil, err
	}

	workflow, err := tokenrequests.NewWorkflow(tokenrequests.NewKVRepo(store), authService,
		notify.NewSender(c, logger.With().Str("component", "notify").Logger()), auditLog,
		tokenrequests.WithLogger(logger.With().Str("component", "tokenrequests").Logger()),
		tokenrequests.WithDeviceLimit(c.GetRequestLimitPerDevice(), c.GetRequestLimitWindow()),
		tokenrequests.WithRecipient(c.GetSmtpRecipient()),
	)
	if err != nil {
		return nil, nil, err
	}

	bus := broadcast.NewBus(
		broadcast.WithBufferSize(c.GetSyncBufferSize()),
		broadcast.WithBusLogger(logger.With().Str("component", "broadcast").Logger()),
	)

	srv, err := server.New(c, server.Deps{
		Auth:     authService,
		Requests: workflow,
		Bus:      bus,
		Store:    store,
	}, server.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return srv, srv.Close, nil
}

func listenAndServe(server *http.Server, logger zerolog.Logger) error {
	logger.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
