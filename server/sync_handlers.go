package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jrsteele09/trivia-director/broadcast"
	apperrors "github.com/jrsteele09/trivia-director/internal/errors"
	"github.com/jrsteele09/trivia-director/internal/metrics"
	"github.com/jrsteele09/trivia-director/sessions"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameBytes  = 1 << 20
	recorderClient = "recorder"
)

func (s *Server) channelFor(sess *sessions.Session) *broadcast.Channel {
	return s.bus.Channel(broadcast.ChannelName(s.config.GetSyncChannelPrefix(), sess.UserID))
}

// SyncHandler upgrades an authenticated request and bridges the socket
// onto the identity's broadcast channel.
func (s *Server) SyncHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.auth.Authenticate(r.Context(), sessionID(r))
		if err != nil {
			writeError(w, err)
			return
		}
		clientID := r.URL.Query().Get("client")
		if clientID == "" {
			clientID = uuid.NewString()
		}
		if clientID == recorderClient {
			writeError(w, apperrors.NewValidation("client", "reserved client id"))
			return
		}

		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already answered the request.
			s.logger.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}

		ch := s.channelFor(sess)
		s.recorder(ch)

		s.bridges.Add(1)
		go func() {
			defer s.bridges.Done()
			s.bridge(conn, ch, sess, clientID)
		}()
	}
}

// bridge relays frames between conn and the channel until either side
// ends or the session lapses. It keeps the session alive while the
// window is open.
func (s *Server) bridge(conn *websocket.Conn, ch *broadcast.Channel, sess *sessions.Session, clientID string) {
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	logger := s.logger.With().
		Str("channel", ch.Name()).
		Str("client", clientID).
		Str("user_id", sess.UserID).
		Logger()

	sub := ch.Subscribe(clientID)
	defer sub.Close()
	defer conn.Close()

	metrics.ConnectedWindows.Inc()
	defer metrics.ConnectedWindows.Dec()
	logger.Info().Msg("window attached")

	go func() {
		if err := s.auth.RunHeartbeat(ctx, sess.ID, s.config.GetHeartbeatInterval()); err != nil {
			logger.Info().Err(err).Msg("session ended, closing sync socket")
		}
		cancel()
	}()
	go s.readFrames(conn, sub, cancel, logger)

	s.writeFrames(ctx, conn, sub, logger)
	logger.Info().Msg("window detached")
}

// readFrames publishes every valid inbound envelope. Malformed frames are
// dropped without ending the connection.
func (s *Server) readFrames(conn *websocket.Conn, sub *broadcast.Subscription, cancel context.CancelFunc, logger zerolog.Logger) {
	defer cancel()

	conn.SetReadLimit(maxFrameBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug().Err(err).Msg("sync socket read failed")
			}
			return
		}
		var msg broadcast.Envelope
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Debug().Err(err).Msg("dropping malformed frame")
			continue
		}
		if err := msg.Validate(); err != nil {
			logger.Debug().Err(err).Msg("dropping invalid envelope")
			continue
		}
		if err := sub.Send(msg); err != nil {
			return
		}
	}
}

// writeFrames is the only writer on conn.
func (s *Server) writeFrames(ctx context.Context, conn *websocket.Conn, sub *broadcast.Subscription, logger zerolog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"), time.Now().Add(writeWait))
			return
		case msg, ok := <-sub.Inbox():
			if !ok {
				// Replaced by a newer attachment with the same client id.
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "replaced"), time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				logger.Debug().Err(err).Msg("sync socket write failed")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// GameStateHandler returns the last recorded snapshot of the caller's
// channel.
func (s *Server) GameStateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := SessionFromContext(r.Context())
		channel := broadcast.ChannelName(s.config.GetSyncChannelPrefix(), sess.UserID)
		snap, err := broadcast.LoadSnapshot(r.Context(), s.store, channel)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, snap)
	}
}
