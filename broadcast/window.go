package broadcast

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/jrsteele09/trivia-director/game"
	"github.com/jrsteele09/trivia-director/storage"
	"github.com/rs/zerolog"
)

// Window is one director window's copy of the game. All mutations and
// inbound messages are applied one at a time under mu.
type Window struct {
	endpoint Endpoint
	store    storage.Store
	logger   zerolog.Logger

	mu             sync.Mutex
	state          *game.State
	applyingRemote bool // set while a received snapshot runs the change cycle
	seq            uint64

	onChange         func(s *game.State)
	onDirectorClosed func()
}

type WindowOption func(*Window)

// WithStore mirrors the event name of applied snapshots into store.
func WithStore(store storage.Store) WindowOption {
	return func(w *Window) {
		w.store = store
	}
}

func WithWindowLogger(logger zerolog.Logger) WindowOption {
	return func(w *Window) {
		w.logger = logger
	}
}

// WithChangeHandler is called with a copy of the state after every local
// or remote change.
func WithChangeHandler(fn func(s *game.State)) WindowOption {
	return func(w *Window) {
		w.onChange = fn
	}
}

// WithDirectorClosedHandler is called when another window announces the
// director closed, typically to re-attach the board.
func WithDirectorClosedHandler(fn func()) WindowOption {
	return func(w *Window) {
		w.onDirectorClosed = fn
	}
}

func WithInitialState(s *game.State) WindowOption {
	return func(w *Window) {
		w.state = s.Clone()
	}
}

func NewWindow(endpoint Endpoint, options ...WindowOption) *Window {
	w := &Window{
		endpoint: endpoint,
		logger:   zerolog.Nop(),
		state:    game.New(),
	}
	for _, opt := range options {
		opt(w)
	}
	w.logger = w.logger.With().Str("window", endpoint.ID()).Logger()
	return w
}

func (w *Window) ID() string {
	return w.endpoint.ID()
}

// State returns a copy of the current state.
func (w *Window) State() *game.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.Clone()
}

// Mutate applies fn to a copy of the state. On success the copy becomes
// the state and is broadcast; on error nothing changes.
func (w *Window) Mutate(fn func(s *game.State) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	next := w.state.Clone()
	if err := fn(next); err != nil {
		return err
	}
	w.state = next
	w.commit()
	return nil
}

// Attach asks the other windows for their state. Only an active window
// answers.
func (w *Window) Attach() error {
	return w.send(Envelope{Type: MessageRequestState})
}

// CloseDirector tells the other windows this director is going away.
func (w *Window) CloseDirector() error {
	return w.send(Envelope{Type: MessageDirectorClosed})
}

// Handle applies one inbound envelope.
func (w *Window) Handle(ctx context.Context, msg Envelope) {
	if msg.Sender != "" && msg.Sender == w.endpoint.ID() {
		return
	}
	if err := msg.Validate(); err != nil {
		w.logger.Warn().Err(err).Msg("ignoring invalid message")
		return
	}

	if msg.Type == MessageDirectorClosed {
		if w.onDirectorClosed != nil {
			w.onDirectorClosed()
		}
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	switch msg.Type {
	case MessageStateUpdate:
		w.applyingRemote = true
		w.state = msg.Payload.Clone()
		w.mirrorEventName(ctx, w.state.EventName)
		w.commit()
	case MessageRequestState:
		if w.state.IsActive {
			w.publishState()
		}
	}
}

// Run handles inbound envelopes until ctx ends or the endpoint closes.
func (w *Window) Run(ctx context.Context) error {
	inbox := w.endpoint.Inbox()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-inbox:
			if !ok {
				return nil
			}
			w.Handle(ctx, msg)
		}
	}
}

func (w *Window) Close() error {
	return w.endpoint.Close()
}

// commit is the change cycle. A change that came from a remote snapshot
// clears the loop guard instead of being broadcast back. Caller holds mu.
func (w *Window) commit() {
	if w.onChange != nil {
		w.onChange(w.state.Clone())
	}
	if w.applyingRemote {
		w.applyingRemote = false
		return
	}
	w.publishState()
}

// publishState broadcasts the current state. Caller holds mu.
func (w *Window) publishState() {
	if err := w.sendLocked(Envelope{Type: MessageStateUpdate, Payload: w.state.Clone()}); err != nil {
		w.logger.Warn().Err(err).Msg("failed to publish state")
	}
}

func (w *Window) send(msg Envelope) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sendLocked(msg)
}

func (w *Window) sendLocked(msg Envelope) error {
	w.seq++
	msg.Sender = w.endpoint.ID()
	msg.Seq = w.seq
	return w.endpoint.Send(msg)
}

func (w *Window) mirrorEventName(ctx context.Context, name string) {
	if w.store == nil || name == "" {
		return
	}
	raw, err := json.Marshal(name)
	if err != nil {
		return
	}
	if err := w.store.Set(ctx, storage.KeyEventName, raw); err != nil {
		w.logger.Warn().Err(err).Msg("failed to cache event name")
	}
}
