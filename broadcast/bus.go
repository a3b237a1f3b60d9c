package broadcast

import (
	"sync"

	"github.com/jrsteele09/trivia-director/internal/metrics"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const DefaultBufferSize = 64

var ErrClosed = errors.New("endpoint closed")

// Endpoint is one window's attachment to a channel.
type Endpoint interface {
	ID() string
	Send(msg Envelope) error
	Inbox() <-chan Envelope
	Close() error
}

// Bus owns the named channels of one process.
type Bus struct {
	mu         sync.Mutex
	channels   map[string]*Channel
	bufferSize int
	logger     zerolog.Logger
}

type BusOption func(*Bus)

func WithBufferSize(n int) BusOption {
	return func(b *Bus) {
		if n > 0 {
			b.bufferSize = n
		}
	}
}

func WithBusLogger(logger zerolog.Logger) BusOption {
	return func(b *Bus) {
		b.logger = logger
	}
}

func NewBus(options ...BusOption) *Bus {
	b := &Bus{
		channels:   make(map[string]*Channel),
		bufferSize: DefaultBufferSize,
		logger:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

// Channel returns the channel called name, creating it on first use.
func (b *Bus) Channel(name string) *Channel {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.channels[name]
	if !ok {
		ch = &Channel{
			name:       name,
			subs:       make(map[string]*Subscription),
			bufferSize: b.bufferSize,
			logger:     b.logger.With().Str("channel", name).Logger(),
		}
		b.channels[name] = ch
	}
	return ch
}

// Channel delivers each published envelope to every subscriber except
// the sender, in publish order per subscriber.
type Channel struct {
	name       string
	mu         sync.RWMutex
	subs       map[string]*Subscription
	bufferSize int
	logger     zerolog.Logger
}

func (c *Channel) Name() string {
	return c.name
}

// Subscribe attaches id. A second Subscribe with the same id replaces and
// closes the first.
func (c *Channel) Subscribe(id string) *Subscription {
	sub := &Subscription{
		id:      id,
		channel: c,
		inbox:   make(chan Envelope, c.bufferSize),
	}
	c.mu.Lock()
	old := c.subs[id]
	c.subs[id] = sub
	if old != nil {
		old.closed = true
		close(old.inbox)
	}
	c.mu.Unlock()
	return sub
}

// Publish enqueues msg for every subscriber other than msg.Sender and
// returns how many accepted it. A full queue drops the envelope.
func (c *Channel) Publish(msg Envelope) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	metrics.BroadcastMessages.WithLabelValues(string(msg.Type)).Inc()
	delivered := 0
	for id, sub := range c.subs {
		if id == msg.Sender {
			continue
		}
		select {
		case sub.inbox <- msg:
			delivered++
		default:
			metrics.BroadcastDropped.Inc()
			c.logger.Warn().Str("subscriber", id).Str("type", string(msg.Type)).Msg("subscriber queue full, dropping message")
		}
	}
	return delivered
}

func (c *Channel) Subscribers() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs)
}

func (c *Channel) unsubscribe(sub *Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sub.closed {
		return
	}
	sub.closed = true
	close(sub.inbox)
	if c.subs[sub.id] == sub {
		delete(c.subs, sub.id)
	}
}

// Subscription is an in-process Endpoint. closed is guarded by the
// channel mutex.
type Subscription struct {
	id      string
	channel *Channel
	inbox   chan Envelope
	closed  bool
}

var _ Endpoint = (*Subscription)(nil)

func (s *Subscription) ID() string {
	return s.id
}

// Send publishes msg on the channel as this subscriber.
func (s *Subscription) Send(msg Envelope) error {
	s.channel.mu.RLock()
	closed := s.closed
	s.channel.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	msg.Sender = s.id
	s.channel.Publish(msg)
	return nil
}

func (s *Subscription) Inbox() <-chan Envelope {
	return s.inbox
}

func (s *Subscription) Close() error {
	s.channel.unsubscribe(s)
	return nil
}
