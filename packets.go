package mqtt

// Packet is a decoded MQTT control packet. The concrete type is one of
// *Connect, *ConnAck, *Publish, *PubAck, *Subscribe, *SubAck, PingReq,
// PingResp or *Disconnect. Byte-slice fields of a decoded packet borrow from
// the buffer it was decoded from: they are valid only until that buffer is
// reused, which for Decoder and Client means until the next receive.
type Packet interface {
	// Type returns the control packet type encoded in the fixed header.
	Type() PacketType
}

// Connect is the first packet sent by a client over a new connection.
// This engine encodes the minimal client-side variable header: protocol
// name/level, the clean session flag, keep-alive interval and client
// identifier.
type Connect struct {
	ClientID     []byte
	KeepAlive    uint16 // Seconds of allowed silence before a ping is due.
	CleanSession bool
	// Properties are encoded/decoded only for Version5.
	Properties []Property
}

func (*Connect) Type() PacketType { return PacketConnect }

// ConnAck is the server's response to a CONNECT.
type ConnAck struct {
	SessionPresent bool
	ReasonCode     ConnectReasonCode
	Properties     []Property
}

func (*ConnAck) Type() PacketType { return PacketConnack }

// Publish transports an application message. Topic and Payload borrow from
// the receive buffer when decoded. PacketID is meaningful only when QoS is
// above QoS0; it is then nonzero and unique among in-flight exchanges.
type Publish struct {
	Topic      []byte
	Payload    []byte
	QoS        QoSLevel
	PacketID   uint16
	Properties []Property
}

func (*Publish) Type() PacketType { return PacketPublish }

// TopicIs reports whether the message topic equals topic. Modules use this
// in OnMessage to recognize their own topics; the comparison does not
// allocate.
func (p *Publish) TopicIs(topic string) bool { return string(p.Topic) == topic }

// PubAck acknowledges a QoS1 PUBLISH.
type PubAck struct {
	PacketID   uint16
	ReasonCode byte // Version5 only; 0 on v3.1.1.
	Properties []Property
}

func (*PubAck) Type() PacketType { return PacketPuback }

// TopicFilter pairs a subscription topic filter with its requested QoS.
type TopicFilter struct {
	Topic []byte
	QoS   QoSLevel
}

// Subscribe requests one or more subscriptions. Decoding fills Topics from a
// fixed table of maxSubscribeTopics entries owned by the Decoder.
type Subscribe struct {
	PacketID   uint16
	Topics     []TopicFilter
	Properties []Property
}

func (*Subscribe) Type() PacketType { return PacketSubscribe }

// SubAck confirms a SUBSCRIBE. ReasonCodes holds one return code per
// requested topic filter in request order and borrows from the receive
// buffer; 0x80 marks a failed subscription.
type SubAck struct {
	PacketID    uint16
	ReasonCodes []byte
	Properties  []Property
}

func (*SubAck) Type() PacketType { return PacketSuback }

// PingReq is the client liveness probe. No variable header or payload.
type PingReq struct{}

func (PingReq) Type() PacketType { return PacketPingreq }

// PingResp is the server's answer to a PINGREQ.
type PingResp struct{}

func (PingResp) Type() PacketType { return PacketPingresp }

// Disconnect announces a clean disconnection. ReasonCode and Properties are
// encoded only for Version5; v3.1.1 DISCONNECT is the bare two byte header.
type Disconnect struct {
	ReasonCode byte
	Properties []Property
}

func (*Disconnect) Type() PacketType { return PacketDisconnect }
