package mqtt

import (
	"errors"
	"time"
)

// connState is the session lifecycle position.
type connState uint8

const (
	stateDisconnected connState = iota
	stateConnecting
	stateConnected
)

// ClientConfig configures a Client. The zero value of each field selects a
// sensible default where one exists.
type ClientConfig struct {
	// ClientID identifies the session to the broker. Required.
	ClientID string
	// KeepAlive is the negotiated maximum silence in seconds. Zero disables
	// the keep-alive mechanism.
	KeepAlive uint16
	// CleanSession requests a fresh session state on connect.
	CleanSession bool
	// Version selects the protocol revision. Zero selects Version311.
	Version ProtocolVersion
	// ReadTimeout bounds each wait for an expected response packet.
	// Zero selects 5 seconds.
	ReadTimeout time.Duration
	// BufferSize is the size of the per-client transmit and receive buffers
	// and therefore the largest packet the client can exchange. Zero selects
	// defaultBufferLen.
	BufferSize int
}

// Client is a single-session MQTT client engine. It owns its transmit and
// receive buffers and a Decoder, performing no per-packet allocation after
// construction. Not safe for concurrent use: all methods must be called from
// one goroutine, which in the runtime is the event loop.
type Client struct {
	cfg       ClientConfig
	transport Transport
	dec       *Decoder
	txBuf     []byte
	rxBuf     []byte
	state     connState
	pi        uint16
	lastTx    time.Time

	// OnPublish, when set, receives inbound PUBLISH packets that arrive
	// while the client is waiting for an acknowledgement, so application
	// traffic is not dropped during request/response exchanges. The packet
	// is invalid after the callback returns.
	OnPublish func(*Publish)
}

// NewClient returns a client over transport. The transport is assumed
// connected; Connect performs only the MQTT-level handshake.
func NewClient(transport Transport, cfg ClientConfig) *Client {
	if cfg.Version == 0 {
		cfg.Version = Version311
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 5 * time.Second
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = defaultBufferLen
	}
	return &Client{
		cfg:       cfg,
		transport: transport,
		dec:       NewDecoder(cfg.Version),
		txBuf:     make([]byte, cfg.BufferSize),
		rxBuf:     make([]byte, cfg.BufferSize),
	}
}

// IsConnected reports whether the session handshake has completed and no
// fatal error has been observed since.
func (c *Client) IsConnected() bool { return c.state == stateConnected }

// Connect performs the CONNECT/CONNACK handshake. A CONNACK with a non-zero
// return code yields a ConnectionRefusedError and leaves the client
// disconnected.
func (c *Client) Connect() error {
	if c.state != stateDisconnected {
		return errors.New("mqtt: connect on a live session")
	}
	c.state = stateConnecting
	connect := Connect{
		ClientID:     []byte(c.cfg.ClientID),
		KeepAlive:    c.cfg.KeepAlive,
		CleanSession: c.cfg.CleanSession,
	}
	if err := c.send(&connect); err != nil {
		c.state = stateDisconnected
		return err
	}
	pkt, err := c.ReadPacket(c.cfg.ReadTimeout)
	if err != nil {
		c.state = stateDisconnected
		return err
	}
	ack, ok := pkt.(*ConnAck)
	if !ok {
		c.state = stateDisconnected
		return ErrInvalidResponse
	}
	if ack.ReasonCode != ReasonAccepted {
		c.state = stateDisconnected
		return ConnectionRefusedError(ack.ReasonCode)
	}
	c.state = stateConnected
	return nil
}

// Subscribe sends a SUBSCRIBE for the given filters and waits for the
// matching SUBACK. A SUBACK marking any filter with the 0x80 failure code
// yields ErrSubscribeFailed.
func (c *Client) Subscribe(filters []TopicFilter) error {
	if c.state != stateConnected {
		return ErrNotConnected
	}
	sub := Subscribe{PacketID: c.nextPI(), Topics: filters}
	if err := c.send(&sub); err != nil {
		return err
	}
	pkt, err := c.awaitAck(PacketSuback, sub.PacketID)
	if err != nil {
		return err
	}
	ack := pkt.(*SubAck)
	if len(ack.ReasonCodes) != len(filters) {
		return ErrInvalidResponse
	}
	for _, rc := range ack.ReasonCodes {
		if QoSLevel(rc) == QoSSubfail {
			return ErrSubscribeFailed
		}
	}
	return nil
}

// Publish sends an application message. QoS0 returns once the packet is on
// the wire; QoS1 additionally waits for the matching PUBACK within the read
// timeout. QoS2 is refused with ErrExactlyOnceUnsupported.
func (c *Client) Publish(topic string, payload []byte, qos QoSLevel) error {
	if qos == QoS2 {
		return ErrExactlyOnceUnsupported
	}
	if !qos.IsValid() {
		return ErrMalformedPacket
	}
	if c.state != stateConnected {
		return ErrNotConnected
	}
	pub := Publish{Topic: []byte(topic), Payload: payload, QoS: qos}
	if qos > QoS0 {
		pub.PacketID = c.nextPI()
	}
	if err := c.send(&pub); err != nil {
		return err
	}
	if qos == QoS0 {
		return nil
	}
	pkt, err := c.awaitAck(PacketPuback, pub.PacketID)
	if err != nil {
		return err
	}
	if ack := pkt.(*PubAck); ack.ReasonCode >= 0x80 {
		return ErrInvalidResponse
	}
	return nil
}

// Ping sends a PINGREQ and waits for the PINGRESP. A missing response within
// the read timeout is treated as connection loss: the client transitions to
// disconnected and the timeout is returned.
func (c *Client) Ping() error {
	if c.state != stateConnected {
		return ErrNotConnected
	}
	if err := c.send(PingReq{}); err != nil {
		return err
	}
	_, err := c.awaitAck(PacketPingresp, 0)
	if err != nil {
		c.state = stateDisconnected
		return err
	}
	return nil
}

// Disconnect sends a best-effort DISCONNECT and closes the transport. The
// client transitions to disconnected regardless of errors on the way out.
func (c *Client) Disconnect() error {
	if c.state == stateConnected {
		d := Disconnect{}
		_ = c.send(&d)
	}
	c.state = stateDisconnected
	return c.transport.Close()
}

// KeepAliveDue reports whether the client has been silent long enough that a
// PINGREQ must be sent to keep the session alive. Any transmitted packet
// resets the silence window.
func (c *Client) KeepAliveDue(now time.Time) bool {
	if c.cfg.KeepAlive == 0 || c.state != stateConnected {
		return false
	}
	return now.Sub(c.lastTx) >= time.Duration(c.cfg.KeepAlive)*time.Second
}

// ReadPacket waits up to timeout for one inbound packet and decodes it. The
// packet borrows from the client receive buffer and is invalid after the
// next ReadPacket call. Received QoS1 PUBLISH packets are acknowledged with
// a PUBACK before this returns. Fatal transport errors move the client to
// disconnected; ErrTimeout does not.
func (c *Client) ReadPacket(timeout time.Duration) (Packet, error) {
	if c.state == stateDisconnected {
		return nil, ErrNotConnected
	}
	if ts, ok := c.transport.(RecvTimeoutSetter); ok && timeout > 0 {
		ts.SetRecvTimeout(timeout)
	}
	n, err := c.transport.Recv(c.rxBuf)
	if err != nil {
		if !errors.Is(err, ErrTimeout) {
			c.state = stateDisconnected
		}
		return nil, err
	}
	pkt, err := c.dec.Decode(c.rxBuf[:n])
	if err != nil {
		return nil, err
	}
	if pub, ok := pkt.(*Publish); ok && pub.QoS == QoS1 {
		ack := PubAck{PacketID: pub.PacketID}
		if err := c.send(&ack); err != nil {
			return nil, err
		}
	}
	return pkt, nil
}

// awaitAck reads packets until one of the wanted type arrives or the read
// timeout elapses. Interleaved PUBLISH packets are dispatched to OnPublish;
// any other packet type, or a wanted packet with the wrong identifier, is an
// invalid response. pi is ignored for PINGRESP.
func (c *Client) awaitAck(want PacketType, pi uint16) (Packet, error) {
	deadline := time.Now().Add(c.cfg.ReadTimeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, ErrTimeout
		}
		pkt, err := c.ReadPacket(remaining)
		if err != nil {
			return nil, err
		}
		if pub, ok := pkt.(*Publish); ok {
			if c.OnPublish != nil {
				c.OnPublish(pub)
			}
			continue
		}
		if pkt == nil || pkt.Type() != want {
			return nil, ErrInvalidResponse
		}
		switch p := pkt.(type) {
		case *SubAck:
			if p.PacketID != pi {
				return nil, ErrInvalidResponse
			}
		case *PubAck:
			if p.PacketID != pi {
				return nil, ErrInvalidResponse
			}
		}
		return pkt, nil
	}
}

// nextPI returns the next packet identifier, wrapping past zero since zero
// is not a legal identifier on the wire.
func (c *Client) nextPI() uint16 {
	c.pi++
	if c.pi == 0 {
		c.pi = 1
	}
	return c.pi
}

type packetEncoder interface {
	Encode(buf []byte, version ProtocolVersion) (int, error)
}

// send encodes p into the transmit buffer and hands it to the transport,
// recording the transmission time for keep-alive accounting.
func (c *Client) send(p packetEncoder) error {
	n, err := p.Encode(c.txBuf, c.cfg.Version)
	if err != nil {
		return err
	}
	if err := c.transport.Send(c.txBuf[:n]); err != nil {
		c.state = stateDisconnected
		return err
	}
	c.lastTx = time.Now()
	return nil
}
