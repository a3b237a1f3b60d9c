// Package broadcast keeps several director windows showing one game. A
// named Channel fans envelopes out to every other subscriber, a Window
// applies them to its own copy of the state, and a Recorder persists the
// last snapshot of each channel.
package broadcast

import (
	"fmt"

	"github.com/jrsteele09/trivia-director/game"
	apperrors "github.com/jrsteele09/trivia-director/internal/errors"
)

type MessageType string

const (
	MessageStateUpdate    MessageType = "STATE_UPDATE"
	MessageRequestState   MessageType = "REQUEST_STATE"
	MessageDirectorClosed MessageType = "DIRECTOR_CLOSED"
)

// Envelope is the wire message. Sender and Seq are informational:
// receivers apply whatever STATE_UPDATE arrives last.
type Envelope struct {
	Type    MessageType `json:"type"`
	Payload *game.State `json:"payload,omitempty"`
	Sender  string      `json:"sender,omitempty"`
	Seq     uint64      `json:"seq,omitempty"`
}

func (e Envelope) Validate() error {
	switch e.Type {
	case MessageStateUpdate:
		if e.Payload == nil {
			return apperrors.NewValidation("payload", "%s requires a payload", e.Type)
		}
	case MessageRequestState, MessageDirectorClosed:
	default:
		return apperrors.NewValidation("type", "unknown message type %q", e.Type)
	}
	return nil
}

// ChannelName is the per-identity channel all of a user's windows share.
func ChannelName(prefix, userID string) string {
	return fmt.Sprintf("%s:%s", prefix, userID)
}
