package mqtt

import (
	"bytes"
	"errors"
	"testing"
)

func encodeOrFatal(t *testing.T, p packetEncoder, version ProtocolVersion) []byte {
	t.Helper()
	buf := make([]byte, defaultBufferLen)
	n, err := p.Encode(buf, version)
	if err != nil {
		t.Fatalf("encode %T: %v", p, err)
	}
	return buf[:n]
}

func TestConnectRoundTrip(t *testing.T) {
	in := Connect{ClientID: []byte("panambi-1"), KeepAlive: 30, CleanSession: true}
	wire := encodeOrFatal(t, &in, Version311)
	if wire[0] != byte(PacketConnect)<<4 {
		t.Fatalf("first byte %#x", wire[0])
	}
	pkt, err := Decode(wire, Version311)
	if err != nil {
		t.Fatal(err)
	}
	out, ok := pkt.(*Connect)
	if !ok {
		t.Fatalf("decoded %T", pkt)
	}
	if !bytes.Equal(out.ClientID, in.ClientID) || out.KeepAlive != 30 || !out.CleanSession {
		t.Errorf("round trip mismatch: %+v", out)
	}
}

func TestConnAckRoundTrip(t *testing.T) {
	in := ConnAck{SessionPresent: true, ReasonCode: ReasonServerUnavailable}
	pkt, err := Decode(encodeOrFatal(t, &in, Version311), Version311)
	if err != nil {
		t.Fatal(err)
	}
	out := pkt.(*ConnAck)
	if !out.SessionPresent || out.ReasonCode != ReasonServerUnavailable {
		t.Errorf("round trip mismatch: %+v", out)
	}
}

func TestPublishRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		pub  Publish
	}{
		{"qos0", Publish{Topic: []byte("sensor/temp"), Payload: []byte("21.5"), QoS: QoS0}},
		{"qos1", Publish{Topic: []byte("sensor/temp"), Payload: []byte("21.5"), QoS: QoS1, PacketID: 42}},
		{"empty payload", Publish{Topic: []byte("t"), QoS: QoS0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pkt, err := Decode(encodeOrFatal(t, &tc.pub, Version311), Version311)
			if err != nil {
				t.Fatal(err)
			}
			out := pkt.(*Publish)
			if !bytes.Equal(out.Topic, tc.pub.Topic) ||
				!bytes.Equal(out.Payload, tc.pub.Payload) ||
				out.QoS != tc.pub.QoS || out.PacketID != tc.pub.PacketID {
				t.Errorf("round trip mismatch: %+v", out)
			}
			if !out.TopicIs(string(tc.pub.Topic)) {
				t.Error("TopicIs rejected own topic")
			}
		})
	}
}

func TestPublishIdentifierPresence(t *testing.T) {
	// A QoS0 PUBLISH has no identifier field on the wire; the topic string
	// is immediately followed by the payload.
	wire := encodeOrFatal(t, &Publish{Topic: []byte("t"), Payload: []byte{0xAA, 0xBB}, QoS: QoS0}, Version311)
	want := []byte{0x30, 5, 0x00, 0x01, 't', 0xAA, 0xBB}
	if !bytes.Equal(wire, want) {
		t.Errorf("qos0 wire % x, want % x", wire, want)
	}
	// QoS1 inserts the 2 byte identifier between topic and payload.
	wire = encodeOrFatal(t, &Publish{Topic: []byte("t"), Payload: []byte{0xAA}, QoS: QoS1, PacketID: 0x1234}, Version311)
	want = []byte{0x32, 6, 0x00, 0x01, 't', 0x12, 0x34, 0xAA}
	if !bytes.Equal(wire, want) {
		t.Errorf("qos1 wire % x, want % x", wire, want)
	}
}

func TestPublishZeroIdentifier(t *testing.T) {
	var buf [64]byte
	pub := Publish{Topic: []byte("t"), QoS: QoS1}
	if _, err := pub.Encode(buf[:], Version311); err == nil {
		t.Error("encode accepted a zero identifier at QoS1")
	}
	// Same on the decode side.
	wire := []byte{0x32, 5, 0x00, 0x01, 't', 0x00, 0x00}
	if _, err := Decode(wire, Version311); err == nil {
		t.Error("decode accepted a zero identifier at QoS1")
	}
}

func TestPublishReservedQoSBits(t *testing.T) {
	wire := encodeOrFatal(t, &Publish{Topic: []byte("t"), QoS: QoS1, PacketID: 1}, Version311)
	wire[0] |= 0b110 // force QoS bit pattern 3
	if _, err := Decode(wire, Version311); !errors.Is(err, ErrMalformedPacket) {
		t.Errorf("got %v, want ErrMalformedPacket", err)
	}
}

func TestSubscribeRoundTrip(t *testing.T) {
	in := Subscribe{
		PacketID: 7,
		Topics: []TopicFilter{
			{Topic: []byte("a/cmd"), QoS: QoS1},
			{Topic: []byte("b/#"), QoS: QoS0},
		},
	}
	wire := encodeOrFatal(t, &in, Version311)
	if wire[0] != byte(PacketSubscribe)<<4|0b0010 {
		t.Fatalf("first byte %#x, want reserved bits 0010", wire[0])
	}
	pkt, err := Decode(wire, Version311)
	if err != nil {
		t.Fatal(err)
	}
	out := pkt.(*Subscribe)
	if out.PacketID != 7 || len(out.Topics) != 2 {
		t.Fatalf("round trip mismatch: %+v", out)
	}
	for i := range in.Topics {
		if !bytes.Equal(out.Topics[i].Topic, in.Topics[i].Topic) || out.Topics[i].QoS != in.Topics[i].QoS {
			t.Errorf("filter %d mismatch: %+v", i, out.Topics[i])
		}
	}
}

func TestSubscribeRejectsEmpty(t *testing.T) {
	var buf [64]byte
	s := Subscribe{PacketID: 1}
	if _, err := s.Encode(buf[:], Version311); !errors.Is(err, errNoTopicFilters) {
		t.Errorf("got %v, want errNoTopicFilters", err)
	}
}

func TestSubAckRoundTrip(t *testing.T) {
	in := SubAck{PacketID: 7, ReasonCodes: []byte{0x01, 0x80}}
	pkt, err := Decode(encodeOrFatal(t, &in, Version311), Version311)
	if err != nil {
		t.Fatal(err)
	}
	out := pkt.(*SubAck)
	if out.PacketID != 7 || !bytes.Equal(out.ReasonCodes, in.ReasonCodes) {
		t.Errorf("round trip mismatch: %+v", out)
	}
}

func TestPubAckShortForm(t *testing.T) {
	wire := encodeOrFatal(t, &PubAck{PacketID: 0x0102}, Version311)
	want := []byte{0x40, 2, 0x01, 0x02}
	if !bytes.Equal(wire, want) {
		t.Fatalf("wire % x, want % x", wire, want)
	}
	pkt, err := Decode(wire, Version311)
	if err != nil {
		t.Fatal(err)
	}
	if out := pkt.(*PubAck); out.PacketID != 0x0102 {
		t.Errorf("round trip mismatch: %+v", out)
	}
}

func TestPingAndDisconnectWire(t *testing.T) {
	cases := []struct {
		p    packetEncoder
		wire []byte
	}{
		{PingReq{}, []byte{0xC0, 0x00}},
		{PingResp{}, []byte{0xD0, 0x00}},
		{&Disconnect{}, []byte{0xE0, 0x00}},
	}
	for _, tc := range cases {
		got := encodeOrFatal(t, tc.p, Version311)
		if !bytes.Equal(got, tc.wire) {
			t.Errorf("%T: % x, want % x", tc.p, got, tc.wire)
		}
		pkt, err := Decode(tc.wire, Version311)
		if err != nil {
			t.Fatalf("%T decode: %v", tc.p, err)
		}
		if pkt.Type() != PacketType(tc.wire[0]>>4) {
			t.Errorf("%T decoded as %v", tc.p, pkt.Type())
		}
	}
}

func TestDecodeEmptyAndUnknown(t *testing.T) {
	pkt, err := Decode(nil, Version311)
	if pkt != nil || err != nil {
		t.Errorf("empty buffer: (%v, %v), want (nil, nil)", pkt, err)
	}
	// UNSUBSCRIBE is a valid MQTT type this engine does not handle.
	var ipt InvalidPacketTypeError
	_, err = Decode([]byte{byte(PacketUnsubscribe) << 4, 0}, Version311)
	if !errors.As(err, &ipt) || byte(ipt) != byte(PacketUnsubscribe) {
		t.Errorf("got %v, want InvalidPacketTypeError(%d)", err, PacketUnsubscribe)
	}
	// Type nibble 0 is forbidden outright.
	if _, err := Decode([]byte{0x00, 0x00}, Version311); !errors.As(err, &ipt) {
		t.Errorf("nibble 0: got %v, want InvalidPacketTypeError", err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	wire := encodeOrFatal(t, &Connect{ClientID: []byte("c"), KeepAlive: 10}, Version311)
	// Every proper prefix must fail cleanly, never panic.
	for n := 1; n < len(wire); n++ {
		if _, err := Decode(wire[:n], Version311); err == nil {
			t.Errorf("prefix of %d bytes decoded without error", n)
		}
	}
}

func TestEncodeBufferExhaustion(t *testing.T) {
	pub := Publish{Topic: []byte("some/topic"), Payload: bytes.Repeat([]byte{'x'}, 64), QoS: QoS1, PacketID: 3}
	full := encodeOrFatal(t, &pub, Version311)
	// Any buffer shorter than the full packet must fail without touching
	// bytes beyond its bounds. The canary byte after the buffer checks that.
	for size := 0; size < len(full); size++ {
		backing := make([]byte, size+1)
		backing[size] = 0x5A
		if _, err := pub.Encode(backing[:size], Version311); err == nil {
			t.Fatalf("encode into %d bytes succeeded, need %d", size, len(full))
		}
		if backing[size] != 0x5A {
			t.Fatalf("encode into %d bytes wrote past the buffer", size)
		}
	}
}

func TestDecoderReusesStorage(t *testing.T) {
	dec := NewDecoder(Version311)
	wire1 := encodeOrFatal(t, &Publish{Topic: []byte("first"), Payload: []byte("one"), QoS: QoS0}, Version311)
	wire2 := encodeOrFatal(t, &Publish{Topic: []byte("second"), Payload: []byte("two"), QoS: QoS0}, Version311)

	p1, err := dec.Decode(wire1)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := dec.Decode(wire2)
	if err != nil {
		t.Fatal(err)
	}
	// Both results are the same decoder-owned struct; the second decode
	// overwrote the first.
	if p1.(*Publish) != p2.(*Publish) {
		t.Error("decoder allocated a new Publish per decode")
	}
	if !p2.(*Publish).TopicIs("second") {
		t.Errorf("topic %q after reuse", p2.(*Publish).Topic)
	}
}
