package mqtt

import (
	"errors"
	"io"
	"net"
	"os"
	"time"
)

// Transport moves whole MQTT packets over some byte pipe. Send writes one
// encoded packet; Recv reads into buf and returns the number of bytes read,
// which the caller hands to a Decoder. Recv reports ErrTimeout when the read
// deadline passes with no data, ErrConnectionClosed when the peer is gone,
// and wraps any other I/O failure in a TransportError. All three are fatal to
// the session except ErrTimeout, which the runtime uses as its tick pulse.
type Transport interface {
	Send(packet []byte) error
	Recv(buf []byte) (int, error)
	Close() error
}

// RecvTimeoutSetter is implemented by transports whose Recv deadline can be
// adjusted per call. The runtime uses it to bound each read by the nearest
// module tick so a silent broker cannot stall the tick schedule.
type RecvTimeoutSetter interface {
	SetRecvTimeout(d time.Duration)
}

// NetTransport adapts a net.Conn to the Transport interface with a fixed
// receive timeout. TCP packet coalescing means a single Recv may return
// several packets or a partial one; the engine assumes each Recv holds whole
// packets, which holds for the small request/response traffic this engine
// generates but not for arbitrary streams.
type NetTransport struct {
	conn    net.Conn
	timeout time.Duration
}

// NewNetTransport wraps conn with the given receive timeout. A zero timeout
// means Recv blocks indefinitely.
func NewNetTransport(conn net.Conn, timeout time.Duration) *NetTransport {
	return &NetTransport{conn: conn, timeout: timeout}
}

// SetRecvTimeout changes the deadline applied to subsequent Recv calls.
func (t *NetTransport) SetRecvTimeout(d time.Duration) { t.timeout = d }

func (t *NetTransport) Send(packet []byte) error {
	_, err := t.conn.Write(packet)
	if err != nil {
		return classifyIOError(err)
	}
	return nil
}

func (t *NetTransport) Recv(buf []byte) (int, error) {
	if t.timeout > 0 {
		// Setting the deadline fails on a connection that is already gone;
		// classify it like any other read failure so callers still see
		// ErrConnectionClosed rather than a generic transport error.
		if err := t.conn.SetReadDeadline(time.Now().Add(t.timeout)); err != nil {
			return 0, classifyIOError(err)
		}
	}
	n, err := t.conn.Read(buf)
	if err != nil {
		return n, classifyIOError(err)
	}
	if n == 0 {
		return 0, ErrConnectionClosed
	}
	return n, nil
}

func (t *NetTransport) Close() error { return t.conn.Close() }

// classifyIOError maps raw I/O errors onto the transport error taxonomy so
// callers can test with errors.Is instead of inspecting net internals.
func classifyIOError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrDeadlineExceeded):
		return ErrTimeout
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed), errors.Is(err, io.ErrClosedPipe):
		return ErrConnectionClosed
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return ErrTimeout
	}
	return &TransportError{Err: err}
}
