package mqtt

import (
	"encoding/binary"
	"math"
	"unicode/utf8"
)

// Serialization primitives shared by the packet codec. All helpers operate on
// plain byte slices with an explicit cursor and never index past the slice:
// an out-of-range access during decoding is reported as ErrMalformedPacket,
// making decode a total function over arbitrary input.

// decodeVarint reads the base-128 variable byte integer at *cursor and
// advances the cursor past it. The encoding is little-endian in base-128
// digits with the high bit of each byte acting as continuation flag. At most
// 4 digits are read; a fourth byte with its continuation bit set means the
// value would need a fifth digit, which is malformed.
func decodeVarint(buf []byte, cursor *int) (uint32, error) {
	var value uint32
	multiplier := uint32(1)
	for i := 0; i < maxVarintLen; i++ {
		if *cursor+i >= len(buf) {
			return 0, ErrMalformedPacket
		}
		encoded := buf[*cursor+i]
		value += uint32(encoded&0x7f) * multiplier
		if encoded&0x80 == 0 {
			*cursor += i + 1
			return value, nil
		}
		multiplier *= 128
	}
	return 0, ErrMalformedPacket
}

// encodeVarint writes v as a 1..4 byte variable byte integer at the start of
// buf and returns the number of bytes written.
func encodeVarint(buf []byte, v uint32) (int, error) {
	if v > maxRemainingLength {
		return 0, ErrPayloadTooLarge
	}
	n := 0
	for {
		if n >= len(buf) {
			return 0, ErrBufferTooSmall
		}
		digit := byte(v % 128)
		v /= 128
		if v > 0 {
			digit |= 0x80
		}
		buf[n] = digit
		n++
		if v == 0 {
			return n, nil
		}
	}
}

// varintSize returns the number of bytes encodeVarint produces for v, or 0
// if v exceeds the representable range.
func varintSize(v uint32) int {
	switch {
	case v <= 127:
		return 1
	case v <= 16_383:
		return 2
	case v <= 2_097_151:
		return 3
	case v <= maxRemainingLength:
		return 4
	}
	return 0
}

// decodeString reads a 2-byte big-endian length prefix followed by that many
// raw bytes. The returned slice borrows from buf; it is valid only as long
// as buf is. The bytes must form valid UTF-8.
func decodeString(buf []byte, cursor *int) ([]byte, error) {
	length, err := decodeUint16(buf, cursor)
	if err != nil {
		return nil, err
	}
	end := *cursor + int(length)
	if end > len(buf) {
		return nil, ErrMalformedPacket
	}
	s := buf[*cursor:end]
	if !utf8.Valid(s) {
		return nil, ErrInvalidUTF8
	}
	*cursor = end
	return s, nil
}

// decodeBytes reads a 2-byte big-endian length prefix followed by that many
// raw bytes with no UTF-8 requirement.
func decodeBytes(buf []byte, cursor *int) ([]byte, error) {
	length, err := decodeUint16(buf, cursor)
	if err != nil {
		return nil, err
	}
	end := *cursor + int(length)
	if end > len(buf) {
		return nil, ErrMalformedPacket
	}
	b := buf[*cursor:end]
	*cursor = end
	return b, nil
}

// encodeString writes a 2-byte big-endian length prefix followed by s at the
// start of buf. A string longer than 65535 bytes fails with
// ErrPayloadTooLarge before any bytes are written.
func encodeString(buf []byte, s []byte) (int, error) {
	if len(s) > math.MaxUint16 {
		return 0, ErrPayloadTooLarge
	}
	if 2+len(s) > len(buf) {
		return 0, ErrBufferTooSmall
	}
	binary.BigEndian.PutUint16(buf, uint16(len(s)))
	copy(buf[2:], s)
	return 2 + len(s), nil
}

func decodeUint16(buf []byte, cursor *int) (uint16, error) {
	if *cursor+2 > len(buf) {
		return 0, ErrMalformedPacket
	}
	v := binary.BigEndian.Uint16(buf[*cursor:])
	*cursor += 2
	return v, nil
}

func encodeUint16(buf []byte, cursor *int, v uint16) error {
	if *cursor+2 > len(buf) {
		return ErrBufferTooSmall
	}
	binary.BigEndian.PutUint16(buf[*cursor:], v)
	*cursor += 2
	return nil
}

func decodeByteAt(buf []byte, cursor *int) (byte, error) {
	if *cursor >= len(buf) {
		return 0, ErrMalformedPacket
	}
	b := buf[*cursor]
	*cursor++
	return b, nil
}

func encodeByteAt(buf []byte, cursor *int, v byte) error {
	if *cursor >= len(buf) {
		return ErrBufferTooSmall
	}
	buf[*cursor] = v
	*cursor++
	return nil
}

// finishPacket completes the reserve-then-compact encoding scheme. Encoders
// write the packet body starting headerReserve bytes into the buffer because
// the remaining length is unknown until the body is assembled. finishPacket
// encodes the true 1..4 byte remaining length immediately after the first
// byte and shifts the body left over the unused gap, returning the total
// packet size. This avoids both a second buffer and a size pre-computation
// pass.
func finishPacket(buf []byte, end int) (int, error) {
	remaining := end - headerReserve
	lenBytes, err := encodeVarint(buf[1:], uint32(remaining))
	if err != nil {
		return 0, err
	}
	headerLen := 1 + lenBytes
	copy(buf[headerLen:], buf[headerReserve:end])
	return headerLen + remaining, nil
}
