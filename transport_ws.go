package mqtt

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// WebsocketTransport carries MQTT over websocket frames, one binary frame per
// control packet as required for the "mqtt" subprotocol. Frame boundaries
// make the whole-packets-per-Recv assumption of the engine exact rather than
// probabilistic, unlike a raw TCP stream.
type WebsocketTransport struct {
	conn    *websocket.Conn
	timeout time.Duration
}

// DialWebsocket connects to a broker websocket endpoint (ws:// or wss://)
// negotiating the "mqtt" subprotocol.
func DialWebsocket(url string, timeout time.Duration) (*WebsocketTransport, error) {
	dialer := websocket.Dialer{
		Subprotocols:     []string{"mqtt"},
		HandshakeTimeout: 30 * time.Second,
	}
	conn, _, err := dialer.Dial(url, http.Header{})
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	return NewWebsocketTransport(conn, timeout), nil
}

// NewWebsocketTransport wraps an established websocket connection. A zero
// timeout means Recv blocks indefinitely.
func NewWebsocketTransport(conn *websocket.Conn, timeout time.Duration) *WebsocketTransport {
	return &WebsocketTransport{conn: conn, timeout: timeout}
}

// SetRecvTimeout changes the deadline applied to subsequent Recv calls.
func (t *WebsocketTransport) SetRecvTimeout(d time.Duration) { t.timeout = d }

func (t *WebsocketTransport) Send(packet []byte) error {
	if err := t.conn.WriteMessage(websocket.BinaryMessage, packet); err != nil {
		return classifyWSError(err)
	}
	return nil
}

func (t *WebsocketTransport) Recv(buf []byte) (int, error) {
	if t.timeout > 0 {
		if err := t.conn.SetReadDeadline(time.Now().Add(t.timeout)); err != nil {
			return 0, classifyWSError(err)
		}
	}
	_, frame, err := t.conn.ReadMessage()
	if err != nil {
		return 0, classifyWSError(err)
	}
	if len(frame) > len(buf) {
		return 0, ErrBufferTooSmall
	}
	return copy(buf, frame), nil
}

func (t *WebsocketTransport) Close() error { return t.conn.Close() }

func classifyWSError(err error) error {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
		return ErrConnectionClosed
	}
	return classifyIOError(err)
}
