package mqtt

import (
	"errors"
	"strconv"
)

// Sentinel errors returned by codec, transport and session operations. Match
// them with errors.Is; every fallible operation in this package returns one
// of these, a typed error below, or a TransportError wrapping the underlying
// link failure.
var (
	// ErrNotConnected is returned by session operations attempted while the
	// client is not in the connected state.
	ErrNotConnected = errors.New("mqtt: not connected")
	// ErrBufferTooSmall is returned when an encode does not fit the provided
	// buffer. No bytes beyond the buffer are ever written.
	ErrBufferTooSmall = errors.New("mqtt: buffer too small")
	// ErrTimeout is returned when a bounded wait elapses before data arrives.
	// It is distinct from transport failures so callers can tell a silent
	// broker from a broken link.
	ErrTimeout = errors.New("mqtt: operation timed out")
	// ErrConnectionClosed is returned when the peer closes the stream. An
	// orderly zero-byte read is reported as this error, never as success.
	ErrConnectionClosed = errors.New("mqtt: connection closed by peer")
	// ErrMalformedPacket is returned when decoding runs past the end of the
	// input or encounters bytes that contradict the protocol grammar.
	ErrMalformedPacket = errors.New("mqtt: malformed packet")
	// ErrPayloadTooLarge is returned before any bytes are written when a
	// string or payload exceeds the maximum encodable size.
	ErrPayloadTooLarge = errors.New("mqtt: payload too large")
	// ErrInvalidUTF8 is returned when a decoded string field is not valid
	// UTF-8.
	ErrInvalidUTF8 = errors.New("mqtt: string is not valid UTF-8")
	// ErrInvalidResponse is returned when the server sends a packet that is
	// valid in isolation but unexpected for the pending operation.
	ErrInvalidResponse = errors.New("mqtt: invalid or unexpected response")
	// ErrTooManyProperties is returned when a v5 packet carries more
	// properties than the fixed per-packet property table holds.
	ErrTooManyProperties = errors.New("mqtt: too many properties")
	// ErrExactlyOnceUnsupported is returned by Client.Publish for QoS2. The
	// codec handles QoS2 packets but the exactly-once handshake is not
	// implemented.
	ErrExactlyOnceUnsupported = errors.New("mqtt: exactly-once delivery not implemented")
	// ErrSubscribeFailed is returned when the SUBACK marks at least one
	// requested topic filter with the 0x80 failure code.
	ErrSubscribeFailed = errors.New("mqtt: server rejected subscription")
)

// InvalidPacketTypeError reports a fixed-header type nibble that does not
// correspond to a control packet this engine handles. The value is the
// offending nibble.
type InvalidPacketTypeError byte

func (e InvalidPacketTypeError) Error() string {
	return "mqtt: invalid packet type " + strconv.Itoa(int(e))
}

// ConnectionRefusedError is returned by Client.Connect when the server
// answers the CONNECT with a non-zero CONNACK return code.
type ConnectionRefusedError ConnectReasonCode

func (e ConnectionRefusedError) Error() string {
	return "mqtt: connection refused: " + ConnectReasonCode(e).String()
}

// ReasonCode returns the CONNACK return code that caused the refusal.
func (e ConnectionRefusedError) ReasonCode() ConnectReasonCode {
	return ConnectReasonCode(e)
}

// TransportError wraps an error produced by the underlying transport so that
// callers can separate link failures from protocol violations. Unwrap exposes
// the inner error for errors.Is/errors.As.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "mqtt: transport: " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// isFatal reports whether err must terminate the runtime loop: transport
// failures, timeouts and connection loss. Codec errors are not fatal; the
// loop drops the offending packet and continues.
func isFatal(err error) bool {
	var te *TransportError
	return errors.As(err, &te) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConnectionClosed) ||
		errors.Is(err, ErrNotConnected)
}
