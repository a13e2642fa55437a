package mqtt

import (
	"bytes"
	"errors"
	"testing"
)

func TestVarintBoundaries(t *testing.T) {
	// Boundary values where the encoding gains a digit, with their exact
	// wire bytes per the standard's remaining length table.
	cases := []struct {
		value uint32
		wire  []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{16_383, []byte{0xff, 0x7f}},
		{16_384, []byte{0x80, 0x80, 0x01}},
		{2_097_151, []byte{0xff, 0xff, 0x7f}},
		{2_097_152, []byte{0x80, 0x80, 0x80, 0x01}},
		{268_435_455, []byte{0xff, 0xff, 0xff, 0x7f}},
	}
	var buf [8]byte
	for _, tc := range cases {
		n, err := encodeVarint(buf[:], tc.value)
		if err != nil {
			t.Fatalf("encode %d: %v", tc.value, err)
		}
		if !bytes.Equal(buf[:n], tc.wire) {
			t.Errorf("encode %d: got % x, want % x", tc.value, buf[:n], tc.wire)
		}
		if got := varintSize(tc.value); got != len(tc.wire) {
			t.Errorf("varintSize(%d) = %d, want %d", tc.value, got, len(tc.wire))
		}
		cursor := 0
		v, err := decodeVarint(tc.wire, &cursor)
		if err != nil {
			t.Fatalf("decode % x: %v", tc.wire, err)
		}
		if v != tc.value || cursor != len(tc.wire) {
			t.Errorf("decode % x: got (%d, %d), want (%d, %d)", tc.wire, v, cursor, tc.value, len(tc.wire))
		}
	}
}

func TestVarintOverflow(t *testing.T) {
	if _, err := encodeVarint(make([]byte, 8), maxRemainingLength+1); !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("encode over max: got %v, want ErrPayloadTooLarge", err)
	}
	if got := varintSize(maxRemainingLength + 1); got != 0 {
		t.Errorf("varintSize over max = %d, want 0", got)
	}
	// A fourth byte with its continuation bit set would demand a fifth
	// digit, which the grammar forbids.
	cursor := 0
	_, err := decodeVarint([]byte{0x80, 0x80, 0x80, 0x80, 0x01}, &cursor)
	if !errors.Is(err, ErrMalformedPacket) {
		t.Errorf("decode 5-digit varint: got %v, want ErrMalformedPacket", err)
	}
	// Truncated input.
	cursor = 0
	if _, err := decodeVarint([]byte{0x80}, &cursor); !errors.Is(err, ErrMalformedPacket) {
		t.Errorf("decode truncated varint: got %v, want ErrMalformedPacket", err)
	}
}

func TestStringCodec(t *testing.T) {
	var buf [64]byte
	n, err := encodeString(buf[:], []byte("a/b"))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2+3 {
		t.Errorf("encoded length %d, want %d", n, 2+3)
	}
	if buf[0] != 0 || buf[1] != 3 {
		t.Errorf("length prefix % x, want 00 03", buf[:2])
	}
	cursor := 0
	s, err := decodeString(buf[:n], &cursor)
	if err != nil {
		t.Fatal(err)
	}
	if string(s) != "a/b" || cursor != n {
		t.Errorf("decoded (%q, %d), want (%q, %d)", s, cursor, "a/b", n)
	}
}

func TestStringTooLong(t *testing.T) {
	big := make([]byte, 65536)
	buf := make([]byte, 70000)
	if _, err := encodeString(buf, big); !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("got %v, want ErrPayloadTooLarge", err)
	}
	// 65535 is still legal given room.
	if _, err := encodeString(buf, big[:65535]); err != nil {
		t.Errorf("65535 byte string: %v", err)
	}
}

func TestStringInvalidUTF8(t *testing.T) {
	wire := []byte{0x00, 0x02, 0xff, 0xfe}
	cursor := 0
	if _, err := decodeString(wire, &cursor); !errors.Is(err, ErrInvalidUTF8) {
		t.Errorf("got %v, want ErrInvalidUTF8", err)
	}
	// Same bytes are fine as binary data.
	cursor = 0
	b, err := decodeBytes(wire, &cursor)
	if err != nil || len(b) != 2 {
		t.Errorf("decodeBytes: (%v, %v)", b, err)
	}
}

func TestStringTruncated(t *testing.T) {
	cases := [][]byte{
		{},           // no length prefix
		{0x00},       // half a length prefix
		{0x00, 0x05}, // prefix promises 5 bytes, none present
		{0x00, 0x03, 'a', 'b'},
	}
	for _, wire := range cases {
		cursor := 0
		if _, err := decodeString(wire, &cursor); !errors.Is(err, ErrMalformedPacket) {
			t.Errorf("decode % x: got %v, want ErrMalformedPacket", wire, err)
		}
	}
}

func TestFinishPacketCompacts(t *testing.T) {
	// A 3 byte body needs a 1 byte remaining length, so the 4 byte reserve
	// gap must close.
	buf := make([]byte, 16)
	buf[0] = byte(PacketPublish) << 4
	copy(buf[headerReserve:], "abc")
	n, err := finishPacket(buf, headerReserve+3)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{byte(PacketPublish) << 4, 3, 'a', 'b', 'c'}
	if !bytes.Equal(buf[:n], want) {
		t.Errorf("got % x, want % x", buf[:n], want)
	}
}

func TestFinishPacketMultiByteLength(t *testing.T) {
	body := 200 // needs a 2 byte remaining length
	buf := make([]byte, headerReserve+body)
	buf[0] = byte(PacketPublish) << 4
	for i := 0; i < body; i++ {
		buf[headerReserve+i] = byte(i)
	}
	n, err := finishPacket(buf, headerReserve+body)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1+2+body {
		t.Fatalf("packet size %d, want %d", n, 1+2+body)
	}
	cursor := 1
	remaining, err := decodeVarint(buf[:n], &cursor)
	if err != nil || remaining != uint32(body) {
		t.Fatalf("remaining length (%d, %v), want %d", remaining, err, body)
	}
	for i := 0; i < body; i++ {
		if buf[cursor+i] != byte(i) {
			t.Fatalf("body byte %d corrupted by compaction", i)
		}
	}
}
