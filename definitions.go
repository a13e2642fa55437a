package mqtt

// PacketType represents the 4 MSB bits of the first byte in an MQTT fixed
// header. Takes on values 1..14. Of these this library decodes the client
// relevant subset: CONNECT, CONNACK, PUBLISH, PUBACK, SUBSCRIBE, SUBACK,
// PINGREQ, PINGRESP and DISCONNECT. The remaining types are defined so error
// messages and switch statements can name them.
type PacketType byte

const (
	// 0 Forbidden/Reserved
	_ PacketType = iota
	// A CONNECT packet is sent from Client to Server, it is a Client request
	// to connect to a Server. It must be the first packet sent over a new
	// network connection and may be sent only once per connection.
	PacketConnect
	// The CONNACK packet is sent by the Server in response to a CONNECT packet.
	// It carries a session-present flag and a return code which indicates
	// whether the connection was accepted.
	PacketConnack
	// A PUBLISH packet transports an Application Message in either direction.
	// Its variable header holds the topic name and, for QoS above 0, a packet
	// identifier. The remainder of the packet is the application payload.
	PacketPublish
	// A PUBACK packet is the response to a PUBLISH packet with QoS 1. Its
	// variable header contains the acknowledged packet identifier.
	PacketPuback
	// Assured delivery part 1 (QoS 2, not implemented end-to-end).
	PacketPubrec
	// Assured delivery part 2 (QoS 2, not implemented end-to-end).
	PacketPubrel
	// Assured delivery part 3 (QoS 2, not implemented end-to-end).
	PacketPubcomp
	// The SUBSCRIBE packet is sent from the Client to the Server to create one
	// or more subscriptions, each pairing a topic filter with a requested QoS.
	PacketSubscribe
	// A SUBACK packet confirms receipt and processing of a SUBSCRIBE packet.
	// Its payload carries one return code per requested topic filter, in order.
	PacketSuback
	// An UNSUBSCRIBE packet removes subscriptions (not used by this engine).
	PacketUnsubscribe
	// The UNSUBACK packet confirms an UNSUBSCRIBE (not used by this engine).
	PacketUnsuback
	// The PINGREQ packet tells the Server the Client is alive in the absence
	// of other traffic and requests a PINGRESP. No variable header or payload.
	PacketPingreq
	// A PINGRESP packet is the Server's reply to a PINGREQ.
	PacketPingresp
	// The DISCONNECT packet is the final packet sent by the Client; it
	// indicates a clean disconnection.
	PacketDisconnect
)

// String returns the packet type stylized in all caps, i.e. "CONNECT".
// Does not allocate memory.
func (p PacketType) String() string {
	if p > 15 {
		return "impossible packet type value" // Exceeds 4 bit value.
	}
	var s string
	switch p {
	case PacketConnect:
		s = "CONNECT"
	case PacketConnack:
		s = "CONNACK"
	case PacketPublish:
		s = "PUBLISH"
	case PacketPuback:
		s = "PUBACK"
	case PacketPubrec:
		s = "PUBREC"
	case PacketPubrel:
		s = "PUBREL"
	case PacketPubcomp:
		s = "PUBCOMP"
	case PacketSubscribe:
		s = "SUBSCRIBE"
	case PacketSuback:
		s = "SUBACK"
	case PacketUnsubscribe:
		s = "UNSUBSCRIBE"
	case PacketUnsuback:
		s = "UNSUBACK"
	case PacketPingreq:
		s = "PINGREQ"
	case PacketPingresp:
		s = "PINGRESP"
	case PacketDisconnect:
		s = "DISCONNECT"
	default:
		s = "forbidden/reserved packet type"
	}
	return s
}

// QoSLevel represents the Quality of Service of a message. The ordering of
// the values is significant: comparing two levels picks the stricter of two
// delivery guarantees.
type QoSLevel uint8

const (
	// QoS0 at most once delivery. The message arrives either once or not at
	// all, depending on the capabilities of the underlying network.
	QoS0 QoSLevel = iota
	// QoS1 at least once delivery. The message is acknowledged with a PUBACK
	// and may arrive more than once.
	QoS1
	// QoS2 exactly once delivery. Decoded and encoded by this library but the
	// four-way handshake that provides the guarantee is not implemented; see
	// ErrExactlyOnceUnsupported. A documented limitation, not a bug.
	QoS2
	// Reserved, must not be used.
	reservedQoS3
	// QoSSubfail marks a failed subscription in a SUBACK return code. It is
	// never encoded into a packet header.
	QoSSubfail QoSLevel = 0x80
)

// IsValid returns true if qos is a valid Quality of Service.
func (qos QoSLevel) IsValid() bool { return qos <= QoS2 }

// String returns a pretty-string representation of qos i.e: "QoS0".
// Does not allocate memory.
func (qos QoSLevel) String() (s string) {
	switch qos {
	case QoS0:
		s = "QoS0"
	case QoS1:
		s = "QoS1"
	case QoS2:
		s = "QoS2"
	case QoSSubfail:
		s = "QoS subscribe failure"
	case reservedQoS3:
		s = "invalid: use of reserved QoS3"
	default:
		s = "undefined QoS"
	}
	return s
}

// ProtocolVersion selects the protocol revision spoken on the wire. It is the
// value of the protocol level byte in the CONNECT variable header.
type ProtocolVersion byte

const (
	// Version311 is MQTT v3.1.1, protocol level 4.
	Version311 ProtocolVersion = 4
	// Version5 is MQTT v5.0, protocol level 5. Packets gain optional property
	// lists; see Property.
	Version5 ProtocolVersion = 5
)

// String returns "3.1.1" or "5" for the known versions.
func (v ProtocolVersion) String() string {
	switch v {
	case Version311:
		return "3.1.1"
	case Version5:
		return "5"
	}
	return "unknown protocol version"
}

// ConnectReasonCode is the return code in the CONNACK variable header. It
// indicates whether the connection attempt was accepted (zero) or why it was
// refused.
type ConnectReasonCode uint8

const (
	ReasonAccepted ConnectReasonCode = iota
	ReasonUnacceptableProtocol
	ReasonIdentifierRejected
	ReasonServerUnavailable
	ReasonBadUserCredentials
	ReasonNotAuthorized
)

// String returns a human readable description of the reason code.
func (rc ConnectReasonCode) String() (s string) {
	switch rc {
	default:
		s = "unknown CONNACK return code"
	case ReasonAccepted:
		s = "connection accepted"
	case ReasonUnacceptableProtocol:
		s = "unacceptable protocol version"
	case ReasonIdentifierRejected:
		s = "client identifier rejected"
	case ReasonServerUnavailable:
		s = "server unavailable"
	case ReasonBadUserCredentials:
		s = "bad username and/or password"
	case ReasonNotAuthorized:
		s = "client unauthorized"
	}
	return s
}

const (
	// defaultProtocol is the protocol name encoded in every CONNECT packet.
	defaultProtocol = "MQTT"
	// maxRemainingLength is the largest value representable by the 4 digit
	// base-128 remaining length encoding: 268_435_455.
	maxRemainingLength = 0x0fff_ffff
	// maxVarintLen bounds the remaining length encoding to 4 digits. A fifth
	// continuation byte is a malformed packet.
	maxVarintLen = 4
	// headerReserve is the gap left for the fixed header while the packet
	// body is assembled: 1 type byte plus a worst case 4 byte remaining
	// length. Encoders compact the body leftwards once the true length is
	// known.
	headerReserve = 1 + maxVarintLen
	// defaultBufferLen is the per-packet buffer size used when the
	// configuration does not specify one.
	defaultBufferLen = 1500
)

// MaxTopicLen bounds the length of an owned topic string as stored by the
// topic registry and the buffered outbox.
const MaxTopicLen = 128

// maxSubscribeTopics bounds the number of topic filters decoded from a single
// SUBSCRIBE packet.
const maxSubscribeTopics = 8

// maxProperties bounds the number of v5 properties decoded per packet.
const maxProperties = 8

// bool to uint8
//
//go:inline
func b2u8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
