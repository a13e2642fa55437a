package mqtt

import (
	"bytes"
	"errors"
	"testing"
)

func TestPropertyRoundTrip(t *testing.T) {
	in := Publish{
		Topic:    []byte("t"),
		Payload:  []byte("p"),
		QoS:      QoS1,
		PacketID: 9,
		Properties: []Property{
			{ID: PropPayloadFormat, Data: []byte{1}},
			{ID: PropMessageExpiry, Data: []byte{0, 0, 0, 60}},
			{ID: PropContentType, Data: []byte{0, 10, 't', 'e', 'x', 't', '/', 'p', 'l', 'a', 'i', 'n'}},
		},
	}
	wire := encodeOrFatal(t, &in, Version5)
	pkt, err := Decode(wire, Version5)
	if err != nil {
		t.Fatal(err)
	}
	out := pkt.(*Publish)
	if len(out.Properties) != len(in.Properties) {
		t.Fatalf("decoded %d properties, want %d", len(out.Properties), len(in.Properties))
	}
	for i := range in.Properties {
		if out.Properties[i].ID != in.Properties[i].ID ||
			!bytes.Equal(out.Properties[i].Data, in.Properties[i].Data) {
			t.Errorf("property %d mismatch: %+v", i, out.Properties[i])
		}
	}
	if !bytes.Equal(out.Payload, in.Payload) {
		t.Errorf("payload %q corrupted by property list", out.Payload)
	}
}

func TestPropertiesAbsentOnV311(t *testing.T) {
	in := Publish{Topic: []byte("t"), Payload: []byte("p"), QoS: QoS0,
		Properties: []Property{{ID: PropPayloadFormat, Data: []byte{1}}}}
	v311 := encodeOrFatal(t, &in, Version311)
	v5 := encodeOrFatal(t, &in, Version5)
	if len(v311) >= len(v5) {
		t.Errorf("v3.1.1 encoding (%d bytes) should omit the property list present in v5 (%d bytes)", len(v311), len(v5))
	}
}

func TestPropertyUnknownID(t *testing.T) {
	// PUBLISH v5 with a property list containing an id outside the table.
	wire := []byte{
		0x30, 6,
		0x00, 0x01, 't', // topic
		2,          // property list length
		0x7F, 0x00, // unknown property id
	}
	if _, err := Decode(wire, Version5); !errors.Is(err, ErrMalformedPacket) {
		t.Errorf("got %v, want ErrMalformedPacket", err)
	}
}

func TestPropertyListOverrun(t *testing.T) {
	// The declared property list length runs past the packet body.
	wire := []byte{
		0x30, 4,
		0x00, 0x01, 't',
		20, // property list claims 20 bytes, none follow
	}
	if _, err := Decode(wire, Version5); !errors.Is(err, ErrMalformedPacket) {
		t.Errorf("got %v, want ErrMalformedPacket", err)
	}
}

func TestTooManyProperties(t *testing.T) {
	props := make([]Property, maxProperties+1)
	for i := range props {
		props[i] = Property{ID: PropPayloadFormat, Data: []byte{1}}
	}
	var buf [256]byte
	pub := Publish{Topic: []byte("t"), QoS: QoS0, Properties: props}
	if _, err := pub.Encode(buf[:], Version5); !errors.Is(err, ErrTooManyProperties) {
		t.Errorf("encode: got %v, want ErrTooManyProperties", err)
	}

	// Build the over-long list by hand for the decode side.
	wire := make([]byte, 0, 64)
	wire = append(wire, 0x30, 0)
	wire = append(wire, 0x00, 0x01, 't')
	wire = append(wire, byte(2*(maxProperties+1)))
	for i := 0; i < maxProperties+1; i++ {
		wire = append(wire, PropPayloadFormat, 1)
	}
	wire[1] = byte(len(wire) - 2)
	if _, err := Decode(wire, Version5); !errors.Is(err, ErrTooManyProperties) {
		t.Errorf("decode: got %v, want ErrTooManyProperties", err)
	}
}

func TestDisconnectV5Reason(t *testing.T) {
	in := Disconnect{ReasonCode: 0x04} // disconnect with will message
	wire := encodeOrFatal(t, &in, Version5)
	pkt, err := Decode(wire, Version5)
	if err != nil {
		t.Fatal(err)
	}
	if out := pkt.(*Disconnect); out.ReasonCode != 0x04 {
		t.Errorf("reason %#x, want 0x04", out.ReasonCode)
	}
	// v3.1.1 stays the bare two byte packet regardless of the reason field.
	if got := encodeOrFatal(t, &in, Version311); !bytes.Equal(got, []byte{0xE0, 0x00}) {
		t.Errorf("v3.1.1 wire % x", got)
	}
}
