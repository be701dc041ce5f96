package capture

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Transport owns one duplex connection to the remote endpoint.
type Transport interface {
	Connect(ctx context.Context, timeout time.Duration) *CaptureError
	Send(chunk AudioChunk)
	SendControl(v interface{}) error
	OnMessage(handler MessageHandler)
	OnClose(handler CloseHandler)
	IsOpen() bool
	Close()
}

// WSTransport implements Transport over a websocket. Outbound audio chunks
// are raw binary frames; control messages and inbound results are JSON.
type WSTransport struct {
	cfg *Config
	log *Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	state     TransportState
	onMessage MessageHandler
	onClose   CloseHandler
	explicit  bool
}

func NewWSTransport(cfg *Config) *WSTransport {
	return &WSTransport{
		cfg:   cfg,
		log:   GetGlobalLogger().WithComponent("transport"),
		state: TransportDisconnected,
	}
}

// Connect dials the endpoint and resolves once the connection is open.
// Fails with CONNECT_TIMEOUT if the open state is not reached in time and
// CONNECT_ERROR on any other transport-level error.
func (t *WSTransport) Connect(ctx context.Context, timeout time.Duration) *CaptureError {
	t.mu.Lock()
	if t.state == TransportOpen || t.state == TransportConnecting {
		t.mu.Unlock()
		return NewConnectError(errAlreadyConnecting)
	}
	t.state = TransportConnecting
	t.mu.Unlock()

	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	header := make(http.Header)
	if t.cfg.APIKey != "" {
		if key, cerr := ValidateAPIKeyFormat(t.cfg.APIKey); cerr == nil {
			if token, terr := MintWSToken(key, t.cfg.UserID); terr == nil {
				header.Set("Authorization", "Bearer "+token.Token)
			} else {
				t.log.LogError(terr)
			}
		}
	}
	for k, v := range t.cfg.Headers {
		header.Set(k, v)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, t.cfg.Endpoint, header)
	if err != nil {
		t.setState(TransportErrored)
		if isDialTimeout(dialCtx, err) {
			return NewConnectTimeoutError(timeout)
		}
		return NewConnectError(err)
	}

	t.mu.Lock()
	if t.explicit {
		// Close raced the dial; a late-established socket is discarded.
		t.mu.Unlock()
		_ = conn.Close()
		return NewConnectError(errClosedDuringConnect)
	}
	t.conn = conn
	t.state = TransportOpen
	t.mu.Unlock()

	t.log.LogConnectionEvent("connected", TransportOpen)
	go t.readLoop(conn)
	return nil
}

// Send forwards one chunk as a binary frame. Fire-and-forget: it silently
// no-ops when the connection is not open and never panics on a write error.
func (t *WSTransport) Send(chunk AudioChunk) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != TransportOpen || t.conn == nil {
		return
	}
	if err := t.conn.WriteMessage(websocket.BinaryMessage, chunk.Data); err != nil {
		if t.cfg.DebugTransport {
			t.log.WithError(err).Debug("Chunk write failed")
		}
		t.state = TransportErrored
	}
}

// SendControl sends a JSON control frame (recording_started/stopped,
// process_audio). Unlike Send it reports failure to the caller.
func (t *WSTransport) SendControl(v interface{}) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != TransportOpen || t.conn == nil {
		return errNotConnected
	}
	return t.conn.WriteJSON(v)
}

func (t *WSTransport) OnMessage(handler MessageHandler) {
	t.mu.Lock()
	t.onMessage = handler
	t.mu.Unlock()
}

func (t *WSTransport) OnClose(handler CloseHandler) {
	t.mu.Lock()
	t.onClose = handler
	t.mu.Unlock()
}

func (t *WSTransport) setState(state TransportState) {
	t.mu.Lock()
	t.state = state
	t.mu.Unlock()
}

// isDialTimeout classifies a dial failure as a timeout. The dialer pushes the
// context deadline down to the socket, whose read deadline can fire before
// the context's own timer does; the dial then surfaces an i/o timeout while
// ctx.Err() is still nil.
func isDialTimeout(ctx context.Context, err error) bool {
	if ctx.Err() == context.DeadlineExceeded || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (t *WSTransport) IsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == TransportOpen
}

func (t *WSTransport) State() TransportState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Close is idempotent and safe to call before Connect or after a failure.
func (t *WSTransport) Close() {
	t.mu.Lock()
	if t.explicit {
		t.mu.Unlock()
		return
	}
	t.explicit = true
	conn := t.conn
	t.conn = nil
	t.state = TransportClosed
	t.mu.Unlock()

	if conn != nil {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = conn.Close()
	}
	t.log.LogConnectionEvent("closed", TransportClosed)
}

func (t *WSTransport) readLoop(conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			explicit := t.explicit
			if !explicit {
				t.state = TransportErrored
			}
			handler := t.onClose
			t.mu.Unlock()

			if !explicit && handler != nil {
				handler(err)
			}
			return
		}
		t.dispatch(payload)
	}
}

// dispatch parses one inbound frame. Messages that fail to parse or carry an
// unknown type are logged and dropped, never escalated.
func (t *WSTransport) dispatch(payload []byte) {
	var msg InboundMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.log.WithError(err).Warn("Dropping unparseable inbound message")
		return
	}

	switch msg.Type {
	case MessageTranscript, MessageSummary, MessageMeetingCreated, MessageTasks, MessageError:
	default:
		t.log.WithField("type", msg.Type).Debug("Ignoring unknown inbound message type")
		return
	}

	if t.cfg.DebugTransport {
		t.log.WithField("type", msg.Type).Debug("Inbound message")
	}

	t.mu.Lock()
	handler := t.onMessage
	t.mu.Unlock()
	if handler != nil {
		handler(&msg)
	}
}
