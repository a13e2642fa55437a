package mqtt

import "errors"

var errTooManySubscriptions = errors.New("mqtt: too many topic filters in SUBSCRIBE")

// Decoder decodes MQTT control packets from byte buffers without heap
// allocation. The decoder owns the storage behind every packet it returns:
// the variant structs, the SUBSCRIBE topic filter table and the property
// table all live inside the Decoder and are overwritten by the next Decode
// call. A returned packet and its borrowed byte fields are therefore valid
// only until the next Decode on the same Decoder. Not safe for concurrent
// use.
type Decoder struct {
	version ProtocolVersion

	connect    Connect
	connack    ConnAck
	publish    Publish
	puback     PubAck
	subscribe  Subscribe
	suback     SubAck
	disconnect Disconnect

	// Only one variant is live at a time so one table serves them all.
	topics [maxSubscribeTopics]TopicFilter
	props  [maxProperties]Property
}

// NewDecoder returns a Decoder for the given protocol version.
func NewDecoder(version ProtocolVersion) *Decoder {
	return &Decoder{version: version}
}

// Decode decodes a single packet from buf using a throwaway Decoder. It is a
// convenience for tests and simple callers; allocation-sensitive code should
// hold on to one Decoder and reuse it.
func Decode(buf []byte, version ProtocolVersion) (Packet, error) {
	return NewDecoder(version).Decode(buf)
}

// Decode decodes the packet at the start of buf. An empty buffer yields
// (nil, nil). Decoding is total: any out-of-range access maps to
// ErrMalformedPacket and an unknown type nibble to InvalidPacketTypeError,
// never to a fault. The full packet must be present in buf; packets
// fragmented across reads are not supported.
func (d *Decoder) Decode(buf []byte) (Packet, error) {
	if len(buf) == 0 {
		return nil, nil
	}
	firstByte := buf[0]
	switch PacketType(firstByte >> 4) {
	case PacketConnect:
		return d.decodeConnect(buf)
	case PacketConnack:
		return d.decodeConnAck(buf)
	case PacketPublish:
		return d.decodePublish(buf)
	case PacketPuback:
		return d.decodePubAck(buf)
	case PacketSubscribe:
		return d.decodeSubscribe(buf)
	case PacketSuback:
		return d.decodeSubAck(buf)
	case PacketPingreq:
		return PingReq{}, nil
	case PacketPingresp:
		return PingResp{}, nil
	case PacketDisconnect:
		return d.decodeDisconnect(buf)
	}
	return nil, InvalidPacketTypeError(firstByte >> 4)
}

// body decodes the remaining length after the first byte and bounds-checks
// it against buf, returning the body slice and the cursor positioned at the
// variable header. The body slice ends exactly at the packet end so borrowed
// fields can never reach past the packet.
func body(buf []byte) ([]byte, int, error) {
	cursor := 1
	remaining, err := decodeVarint(buf, &cursor)
	if err != nil {
		return nil, 0, err
	}
	end := cursor + int(remaining)
	if end > len(buf) {
		return nil, 0, ErrMalformedPacket
	}
	return buf[:end], cursor, nil
}

func (d *Decoder) decodeConnect(buf []byte) (*Connect, error) {
	pkt, cursor, err := body(buf)
	if err != nil {
		return nil, err
	}
	if _, err := decodeString(pkt, &cursor); err != nil { // protocol name
		return nil, err
	}
	if _, err := decodeByteAt(pkt, &cursor); err != nil { // protocol level
		return nil, err
	}
	flags, err := decodeByteAt(pkt, &cursor)
	if err != nil {
		return nil, err
	}
	if flags&1 != 0 { // [MQTT-3.1.2-3]
		return nil, ErrMalformedPacket
	}
	keepAlive, err := decodeUint16(pkt, &cursor)
	if err != nil {
		return nil, err
	}
	var props []Property
	if d.version == Version5 {
		props, err = decodeProperties(pkt, &cursor, d.props[:0:maxProperties])
		if err != nil {
			return nil, err
		}
	}
	clientID, err := decodeString(pkt, &cursor)
	if err != nil {
		return nil, err
	}
	d.connect = Connect{
		ClientID:     clientID,
		KeepAlive:    keepAlive,
		CleanSession: flags&(1<<1) != 0,
		Properties:   props,
	}
	return &d.connect, nil
}

func (d *Decoder) decodeConnAck(buf []byte) (*ConnAck, error) {
	pkt, cursor, err := body(buf)
	if err != nil {
		return nil, err
	}
	ackFlags, err := decodeByteAt(pkt, &cursor)
	if err != nil {
		return nil, err
	}
	if ackFlags&^1 != 0 {
		return nil, ErrMalformedPacket
	}
	rc, err := decodeByteAt(pkt, &cursor)
	if err != nil {
		return nil, err
	}
	var props []Property
	if d.version == Version5 {
		props, err = decodeProperties(pkt, &cursor, d.props[:0:maxProperties])
		if err != nil {
			return nil, err
		}
	}
	d.connack = ConnAck{
		SessionPresent: ackFlags&1 != 0,
		ReasonCode:     ConnectReasonCode(rc),
		Properties:     props,
	}
	return &d.connack, nil
}

func (d *Decoder) decodePublish(buf []byte) (*Publish, error) {
	qosBits := (buf[0] >> 1) & 0b11
	if qosBits == 3 {
		return nil, ErrMalformedPacket
	}
	qos := QoSLevel(qosBits)
	pkt, cursor, err := body(buf)
	if err != nil {
		return nil, err
	}
	topic, err := decodeString(pkt, &cursor)
	if err != nil {
		return nil, err
	}
	var pi uint16
	if qos > QoS0 {
		pi, err = decodeUint16(pkt, &cursor)
		if err != nil {
			return nil, err
		}
		if pi == 0 {
			return nil, errGotZeroPI
		}
	}
	var props []Property
	if d.version == Version5 {
		props, err = decodeProperties(pkt, &cursor, d.props[:0:maxProperties])
		if err != nil {
			return nil, err
		}
	}
	d.publish = Publish{
		Topic:      topic,
		Payload:    pkt[cursor:],
		QoS:        qos,
		PacketID:   pi,
		Properties: props,
	}
	return &d.publish, nil
}

func (d *Decoder) decodePubAck(buf []byte) (*PubAck, error) {
	pkt, cursor, err := body(buf)
	if err != nil {
		return nil, err
	}
	pi, err := decodeUint16(pkt, &cursor)
	if err != nil {
		return nil, err
	}
	if pi == 0 {
		return nil, errGotZeroPI
	}
	d.puback = PubAck{PacketID: pi}
	if d.version == Version5 && cursor < len(pkt) {
		rc, err := decodeByteAt(pkt, &cursor)
		if err != nil {
			return nil, err
		}
		d.puback.ReasonCode = rc
		if cursor < len(pkt) {
			d.puback.Properties, err = decodeProperties(pkt, &cursor, d.props[:0:maxProperties])
			if err != nil {
				return nil, err
			}
		}
	}
	return &d.puback, nil
}

func (d *Decoder) decodeSubscribe(buf []byte) (*Subscribe, error) {
	if buf[0]&0b1111 != 0b0010 {
		return nil, ErrMalformedPacket
	}
	pkt, cursor, err := body(buf)
	if err != nil {
		return nil, err
	}
	pi, err := decodeUint16(pkt, &cursor)
	if err != nil {
		return nil, err
	}
	if pi == 0 {
		return nil, errGotZeroPI
	}
	var props []Property
	if d.version == Version5 {
		props, err = decodeProperties(pkt, &cursor, d.props[:0:maxProperties])
		if err != nil {
			return nil, err
		}
	}
	topics := d.topics[:0]
	for cursor < len(pkt) {
		topic, err := decodeString(pkt, &cursor)
		if err != nil {
			return nil, err
		}
		qos, err := decodeByteAt(pkt, &cursor)
		if err != nil {
			return nil, err
		}
		if !QoSLevel(qos).IsValid() {
			return nil, ErrMalformedPacket
		}
		if len(topics) == maxSubscribeTopics {
			return nil, errTooManySubscriptions
		}
		topics = append(topics, TopicFilter{Topic: topic, QoS: QoSLevel(qos)})
	}
	if len(topics) == 0 {
		return nil, errNoTopicFilters
	}
	d.subscribe = Subscribe{PacketID: pi, Topics: topics, Properties: props}
	return &d.subscribe, nil
}

func (d *Decoder) decodeSubAck(buf []byte) (*SubAck, error) {
	pkt, cursor, err := body(buf)
	if err != nil {
		return nil, err
	}
	pi, err := decodeUint16(pkt, &cursor)
	if err != nil {
		return nil, err
	}
	if pi == 0 {
		return nil, errGotZeroPI
	}
	var props []Property
	if d.version == Version5 {
		props, err = decodeProperties(pkt, &cursor, d.props[:0:maxProperties])
		if err != nil {
			return nil, err
		}
	}
	d.suback = SubAck{PacketID: pi, ReasonCodes: pkt[cursor:], Properties: props}
	return &d.suback, nil
}

func (d *Decoder) decodeDisconnect(buf []byte) (*Disconnect, error) {
	pkt, cursor, err := body(buf)
	if err != nil {
		return nil, err
	}
	d.disconnect = Disconnect{}
	if d.version == Version5 && cursor < len(pkt) {
		rc, err := decodeByteAt(pkt, &cursor)
		if err != nil {
			return nil, err
		}
		d.disconnect.ReasonCode = rc
		if cursor < len(pkt) {
			d.disconnect.Properties, err = decodeProperties(pkt, &cursor, d.props[:0:maxProperties])
			if err != nil {
				return nil, err
			}
		}
	}
	return &d.disconnect, nil
}
