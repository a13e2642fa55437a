package mqtt

import "errors"

var (
	errGotZeroPI      = errors.New("mqtt: packet identifier must be nonzero for QoS above 0")
	errNoTopicFilters = errors.New("mqtt: SUBSCRIBE must carry at least one topic filter")
	errEmptyTopic     = errors.New("mqtt: empty topic")
)

// Each packet kind encodes itself into the start of buf and returns the
// number of bytes written. Packets with a variable-size body use the
// reserve-then-compact scheme (see finishPacket): the body is assembled
// headerReserve bytes into the buffer and shifted left once the true
// remaining length is known. On any error buf may hold partial bytes within
// its bounds but nothing is ever written beyond them.

// Encode writes the CONNECT packet. The protocol level byte is 4 for
// Version311 and 5 for Version5.
func (p *Connect) Encode(buf []byte, version ProtocolVersion) (int, error) {
	if len(buf) < headerReserve {
		return 0, ErrBufferTooSmall
	}
	buf[0] = byte(PacketConnect) << 4
	cursor := headerReserve
	n, err := encodeString(buf[cursor:], []byte(defaultProtocol))
	if err != nil {
		return 0, err
	}
	cursor += n
	if err := encodeByteAt(buf, &cursor, byte(version)); err != nil {
		return 0, err
	}
	if err := encodeByteAt(buf, &cursor, b2u8(p.CleanSession)<<1); err != nil {
		return 0, err
	}
	if err := encodeUint16(buf, &cursor, p.KeepAlive); err != nil {
		return 0, err
	}
	if version == Version5 {
		if err := encodeProperties(buf, &cursor, p.Properties); err != nil {
			return 0, err
		}
	}
	n, err = encodeString(buf[cursor:], p.ClientID)
	if err != nil {
		return 0, err
	}
	cursor += n
	return finishPacket(buf, cursor)
}

// Encode writes the CONNACK packet. Clients normally only decode CONNACK;
// the encoder exists for the server side of loopback transports.
func (p *ConnAck) Encode(buf []byte, version ProtocolVersion) (int, error) {
	if len(buf) < headerReserve {
		return 0, ErrBufferTooSmall
	}
	buf[0] = byte(PacketConnack) << 4
	cursor := headerReserve
	if err := encodeByteAt(buf, &cursor, b2u8(p.SessionPresent)); err != nil {
		return 0, err
	}
	if err := encodeByteAt(buf, &cursor, byte(p.ReasonCode)); err != nil {
		return 0, err
	}
	if version == Version5 {
		if err := encodeProperties(buf, &cursor, p.Properties); err != nil {
			return 0, err
		}
	}
	return finishPacket(buf, cursor)
}

// Encode writes the PUBLISH packet. QoS is encoded into bits 1-2 of the
// flags nibble; the packet identifier field is present iff QoS is above
// QoS0, in which case it must be nonzero.
func (p *Publish) Encode(buf []byte, version ProtocolVersion) (int, error) {
	if !p.QoS.IsValid() {
		return 0, ErrMalformedPacket
	}
	if len(p.Topic) == 0 {
		return 0, errEmptyTopic
	}
	if len(buf) < headerReserve {
		return 0, ErrBufferTooSmall
	}
	buf[0] = byte(PacketPublish)<<4 | byte(p.QoS)<<1
	cursor := headerReserve
	n, err := encodeString(buf[cursor:], p.Topic)
	if err != nil {
		return 0, err
	}
	cursor += n
	if p.QoS > QoS0 {
		if p.PacketID == 0 {
			return 0, errGotZeroPI
		}
		if err := encodeUint16(buf, &cursor, p.PacketID); err != nil {
			return 0, err
		}
	}
	if version == Version5 {
		if err := encodeProperties(buf, &cursor, p.Properties); err != nil {
			return 0, err
		}
	}
	if cursor+len(p.Payload) > len(buf) {
		return 0, ErrBufferTooSmall
	}
	cursor += copy(buf[cursor:], p.Payload)
	return finishPacket(buf, cursor)
}

// Encode writes the PUBACK packet. For Version311, or a v5 success with no
// properties, the short four byte form is used.
func (p *PubAck) Encode(buf []byte, version ProtocolVersion) (int, error) {
	if p.PacketID == 0 {
		return 0, errGotZeroPI
	}
	if version == Version311 || (p.ReasonCode == 0 && len(p.Properties) == 0) {
		if len(buf) < 4 {
			return 0, ErrBufferTooSmall
		}
		buf[0] = byte(PacketPuback) << 4
		buf[1] = 2
		buf[2] = byte(p.PacketID >> 8)
		buf[3] = byte(p.PacketID)
		return 4, nil
	}
	if len(buf) < headerReserve {
		return 0, ErrBufferTooSmall
	}
	buf[0] = byte(PacketPuback) << 4
	cursor := headerReserve
	if err := encodeUint16(buf, &cursor, p.PacketID); err != nil {
		return 0, err
	}
	if err := encodeByteAt(buf, &cursor, p.ReasonCode); err != nil {
		return 0, err
	}
	if err := encodeProperties(buf, &cursor, p.Properties); err != nil {
		return 0, err
	}
	return finishPacket(buf, cursor)
}

// Encode writes the SUBSCRIBE packet. The flags nibble carries the reserved
// control bit 0b0010 required by the standard.
func (p *Subscribe) Encode(buf []byte, version ProtocolVersion) (int, error) {
	if len(p.Topics) == 0 {
		return 0, errNoTopicFilters
	}
	if p.PacketID == 0 {
		return 0, errGotZeroPI
	}
	if len(buf) < headerReserve {
		return 0, ErrBufferTooSmall
	}
	buf[0] = byte(PacketSubscribe)<<4 | 0b0010
	cursor := headerReserve
	if err := encodeUint16(buf, &cursor, p.PacketID); err != nil {
		return 0, err
	}
	if version == Version5 {
		if err := encodeProperties(buf, &cursor, p.Properties); err != nil {
			return 0, err
		}
	}
	for _, tf := range p.Topics {
		if !tf.QoS.IsValid() {
			return 0, ErrMalformedPacket
		}
		if len(tf.Topic) == 0 {
			return 0, errEmptyTopic
		}
		n, err := encodeString(buf[cursor:], tf.Topic)
		if err != nil {
			return 0, err
		}
		cursor += n
		if err := encodeByteAt(buf, &cursor, byte(tf.QoS)); err != nil {
			return 0, err
		}
	}
	return finishPacket(buf, cursor)
}

// Encode writes the SUBACK packet (server side of loopback transports).
func (p *SubAck) Encode(buf []byte, version ProtocolVersion) (int, error) {
	if p.PacketID == 0 {
		return 0, errGotZeroPI
	}
	if len(buf) < headerReserve {
		return 0, ErrBufferTooSmall
	}
	buf[0] = byte(PacketSuback) << 4
	cursor := headerReserve
	if err := encodeUint16(buf, &cursor, p.PacketID); err != nil {
		return 0, err
	}
	if version == Version5 {
		if err := encodeProperties(buf, &cursor, p.Properties); err != nil {
			return 0, err
		}
	}
	if cursor+len(p.ReasonCodes) > len(buf) {
		return 0, ErrBufferTooSmall
	}
	cursor += copy(buf[cursor:], p.ReasonCodes)
	return finishPacket(buf, cursor)
}

// Encode writes the two byte PINGREQ packet.
func (PingReq) Encode(buf []byte, _ ProtocolVersion) (int, error) {
	if len(buf) < 2 {
		return 0, ErrBufferTooSmall
	}
	buf[0] = byte(PacketPingreq) << 4
	buf[1] = 0
	return 2, nil
}

// Encode writes the two byte PINGRESP packet.
func (PingResp) Encode(buf []byte, _ ProtocolVersion) (int, error) {
	if len(buf) < 2 {
		return 0, ErrBufferTooSmall
	}
	buf[0] = byte(PacketPingresp) << 4
	buf[1] = 0
	return 2, nil
}

// Encode writes the DISCONNECT packet. For Version311 this is the bare two
// byte header; Version5 adds the reason code and properties.
func (p *Disconnect) Encode(buf []byte, version ProtocolVersion) (int, error) {
	if version == Version311 || (p.ReasonCode == 0 && len(p.Properties) == 0) {
		if len(buf) < 2 {
			return 0, ErrBufferTooSmall
		}
		buf[0] = byte(PacketDisconnect) << 4
		buf[1] = 0
		return 2, nil
	}
	if len(buf) < headerReserve {
		return 0, ErrBufferTooSmall
	}
	buf[0] = byte(PacketDisconnect) << 4
	cursor := headerReserve
	if err := encodeByteAt(buf, &cursor, p.ReasonCode); err != nil {
		return 0, err
	}
	if err := encodeProperties(buf, &cursor, p.Properties); err != nil {
		return 0, err
	}
	return finishPacket(buf, cursor)
}
