package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jrsteele09/trivia-director/auth"
	"github.com/jrsteele09/trivia-director/broadcast"
	"github.com/jrsteele09/trivia-director/internal/config"
	"github.com/jrsteele09/trivia-director/storage"
	"github.com/jrsteele09/trivia-director/tokenrequests"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Deps are the services the HTTP surface is built on.
type Deps struct {
	Auth     *auth.Service
	Requests *tokenrequests.Workflow
	Bus      *broadcast.Bus
	Store    storage.Store
}

type Server struct {
	env    string // Environment (e.g., "DEV", "PROD")
	mux    *http.ServeMux
	routes []string
	config config.Config
	logger zerolog.Logger

	auth     *auth.Service
	requests *tokenrequests.Workflow
	bus      *broadcast.Bus
	store    storage.Store
	upgrader websocket.Upgrader

	ctx       context.Context // background work (recorders, bridges) ends with it
	cancel    context.CancelFunc
	recorders map[string]*broadcast.Recorder
	recMu     sync.Mutex
	bridges   sync.WaitGroup
}

type Option func(*Server)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func New(cfg config.Config, deps Deps, options ...Option) (*Server, error) {
	if deps.Auth == nil || deps.Requests == nil || deps.Bus == nil || deps.Store == nil {
		return nil, errors.New("[server.New] auth, requests, bus and store are required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		env:       cfg.GetEnv(),
		mux:       http.NewServeMux(),
		config:    cfg,
		logger:    zerolog.Nop(),
		auth:      deps.Auth,
		requests:  deps.Requests,
		bus:       deps.Bus,
		store:     deps.Store,
		ctx:       ctx,
		cancel:    cancel,
		recorders: make(map[string]*broadcast.Recorder),
	}
	for _, opt := range options {
		opt(s)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	// Bootstrap: ensure the admin account exists
	if _, err := s.InitialiseSystem(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("[Server New] Failed to initialise the system: %w", err)
	}

	s.initRoutes()
	s.logRoutes()
	go s.sweepSessions(ctx, cfg.GetHeartbeatInterval())

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Close stops background work and waits for websocket bridges to end.
func (s *Server) Close() error {
	s.cancel()
	s.bridges.Wait()

	s.recMu.Lock()
	defer s.recMu.Unlock()
	for name, rec := range s.recorders {
		_ = rec.Close()
		delete(s.recorders, name)
	}
	return nil
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			s.logRoute(parts[0], parts[1])
		} else {
			s.logRoute("", parts[0])
		}
	}
}

func (s *Server) logRoute(method, path string) {
	displayMethod := Gray + fmt.Sprintf(" %-7s", method) + ResetColor
	if color, ok := methodColors[method]; ok {
		displayMethod = color + fmt.Sprintf(" %-7s", method) + ResetColor
	}
	s.logger.Debug().Msgf("[%-19s] %s", displayMethod, path)
}

// recorder starts the snapshot recorder of ch on first use.
func (s *Server) recorder(ch *broadcast.Channel) {
	s.recMu.Lock()
	defer s.recMu.Unlock()
	if _, ok := s.recorders[ch.Name()]; ok {
		return
	}
	rec := broadcast.NewRecorder(ch, s.store, broadcast.WithRecorderLogger(s.logger))
	s.recorders[ch.Name()] = rec
	go rec.Run(s.ctx)
}

// sweepSessions deletes lapsed sessions so abandoned windows do not
// accumulate.
func (s *Server) sweepSessions(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.auth.SweepExpired(ctx)
			if err != nil {
				s.logger.Warn().Err(err).Msg("session sweep failed")
				continue
			}
			if n > 0 {
				s.logger.Info().Int("removed", n).Msg("expired sessions swept")
			}
		}
	}
}
