package broadcast

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 1 << 20
)

// WSEndpoint attaches a Window to a remote channel through the server's
// websocket bridge.
type WSEndpoint struct {
	id        string
	conn      *websocket.Conn
	inbox     chan Envelope
	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

var _ Endpoint = (*WSEndpoint)(nil)

// Dial connects to rawURL as client id. header carries the session
// credentials the bridge expects.
func Dial(ctx context.Context, rawURL, id string, header http.Header) (*WSEndpoint, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, "[broadcast.Dial] parse url")
	}
	q := u.Query()
	q.Set("client", id)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return nil, errors.Wrap(err, "[broadcast.Dial]")
	}
	conn.SetReadLimit(maxMessageSize)

	e := &WSEndpoint{
		id:    id,
		conn:  conn,
		inbox: make(chan Envelope, DefaultBufferSize),
		done:  make(chan struct{}),
	}
	go e.readLoop()
	return e, nil
}

func (e *WSEndpoint) ID() string {
	return e.id
}

func (e *WSEndpoint) Send(msg Envelope) error {
	select {
	case <-e.done:
		return ErrClosed
	default:
	}
	msg.Sender = e.id

	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	_ = e.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := e.conn.WriteJSON(msg); err != nil {
		return errors.Wrap(err, "[WSEndpoint.Send]")
	}
	return nil
}

func (e *WSEndpoint) Inbox() <-chan Envelope {
	return e.inbox
}

func (e *WSEndpoint) Close() error {
	var err error
	e.closeOnce.Do(func() {
		close(e.done)
		e.writeMu.Lock()
		_ = e.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		e.writeMu.Unlock()
		err = e.conn.Close()
	})
	return err
}

// readLoop owns inbox and closes it when the connection ends.
func (e *WSEndpoint) readLoop() {
	defer close(e.inbox)
	for {
		var msg Envelope
		if err := e.conn.ReadJSON(&msg); err != nil {
			return
		}
		select {
		case e.inbox <- msg:
		case <-e.done:
			return
		}
	}
}
