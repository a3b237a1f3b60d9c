package broadcast

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jrsteele09/trivia-director/game"
	apperrors "github.com/jrsteele09/trivia-director/internal/errors"
	"github.com/jrsteele09/trivia-director/storage"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Snapshot is the last state recorded for a channel.
type Snapshot struct {
	Channel    string      `json:"channel"`
	Sender     string      `json:"sender,omitempty"`
	Seq        uint64      `json:"seq,omitempty"`
	RecordedAt time.Time   `json:"recordedAt"`
	State      *game.State `json:"state"`
}

func snapshotKey(channel string) string {
	return storage.KeyGameStateBase + channel
}

// Recorder subscribes to a channel and persists every STATE_UPDATE so the
// show survives a restart.
type Recorder struct {
	channel string
	sub     *Subscription
	store   storage.Store
	nowTime func() time.Time
	logger  zerolog.Logger
}

type RecorderOption func(*Recorder)

func WithRecorderNowTime(nowFunc func() time.Time) RecorderOption {
	return func(r *Recorder) {
		r.nowTime = nowFunc
	}
}

func WithRecorderLogger(logger zerolog.Logger) RecorderOption {
	return func(r *Recorder) {
		r.logger = logger
	}
}

func NewRecorder(ch *Channel, store storage.Store, options ...RecorderOption) *Recorder {
	r := &Recorder{
		channel: ch.Name(),
		sub:     ch.Subscribe("recorder"),
		store:   store,
		nowTime: time.Now,
		logger:  zerolog.Nop(),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Record persists msg when it is a state update.
func (r *Recorder) Record(ctx context.Context, msg Envelope) error {
	if msg.Type != MessageStateUpdate || msg.Payload == nil {
		return nil
	}
	raw, err := json.Marshal(Snapshot{
		Channel:    r.channel,
		Sender:     msg.Sender,
		Seq:        msg.Seq,
		RecordedAt: r.nowTime().UTC(),
		State:      msg.Payload,
	})
	if err != nil {
		return errors.Wrap(err, "[Recorder.Record] encode")
	}
	if err := r.store.Set(ctx, snapshotKey(r.channel), raw); err != nil {
		return errors.Wrap(err, "[Recorder.Record] store")
	}
	return nil
}

// Run records until ctx ends or the recorder is closed.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-r.sub.Inbox():
			if !ok {
				return
			}
			if err := r.Record(ctx, msg); err != nil {
				r.logger.Error().Err(err).Str("channel", r.channel).Msg("failed to record snapshot")
			}
		}
	}
}

func (r *Recorder) Close() error {
	return r.sub.Close()
}

// LoadSnapshot returns the last recorded snapshot of channel, or
// ErrNotFound.
func LoadSnapshot(ctx context.Context, store storage.Store, channel string) (*Snapshot, error) {
	raw, err := store.Get(ctx, snapshotKey(channel))
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, errors.Wrapf(apperrors.ErrStorage, "decode snapshot: %v", err)
	}
	return &snap, nil
}
