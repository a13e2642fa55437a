package mqtt

// MQTT v5 property identifiers used by the length-class table below. Only
// properties that can legally appear on the packet types this engine handles
// are listed; an unlisted identifier in a property list is a malformed
// packet.
const (
	PropPayloadFormat          = 0x01
	PropMessageExpiry          = 0x02
	PropContentType            = 0x03
	PropResponseTopic          = 0x08
	PropCorrelationData        = 0x09
	PropSubscriptionIdentifier = 0x0B
	PropSessionExpiry          = 0x11
	PropAssignedClientID       = 0x12
	PropServerKeepAlive        = 0x13
	PropAuthMethod             = 0x15
	PropAuthData               = 0x16
	PropRequestProblemInfo     = 0x17
	PropWillDelay              = 0x18
	PropRequestResponseInfo    = 0x19
	PropResponseInfo           = 0x1A
	PropServerReference        = 0x1C
	PropReasonString           = 0x1F
	PropReceiveMaximum         = 0x21
	PropTopicAliasMaximum      = 0x22
	PropTopicAlias             = 0x23
	PropMaximumQoS             = 0x24
	PropRetainAvailable        = 0x25
	PropUserProperty           = 0x26
	PropMaximumPacketSize      = 0x27
	PropWildcardSubAvailable   = 0x28
	PropSubIDAvailable         = 0x29
	PropSharedSubAvailable     = 0x2A
)

// Property is a single v5 property: an identifier byte and the property
// value in wire form. For fixed-width identifiers Data is the 1, 2 or 4
// value bytes; for string/binary identifiers Data includes the 2-byte length
// prefix(es); for varint identifiers Data is the encoded varint. Data
// borrows from the receive buffer when decoded.
type Property struct {
	ID   byte
	Data []byte
}

// property value length classes.
type propClass uint8

const (
	propByte propClass = iota
	propTwoByte
	propFourByte
	propVarint
	propString
	propBinary
	propStringPair
)

func classOf(id byte) (propClass, bool) {
	switch id {
	case PropPayloadFormat, PropRequestProblemInfo, PropRequestResponseInfo,
		PropMaximumQoS, PropRetainAvailable, PropWildcardSubAvailable,
		PropSubIDAvailable, PropSharedSubAvailable:
		return propByte, true
	case PropServerKeepAlive, PropReceiveMaximum, PropTopicAliasMaximum, PropTopicAlias:
		return propTwoByte, true
	case PropMessageExpiry, PropSessionExpiry, PropWillDelay, PropMaximumPacketSize:
		return propFourByte, true
	case PropSubscriptionIdentifier:
		return propVarint, true
	case PropContentType, PropResponseTopic, PropAssignedClientID, PropAuthMethod,
		PropResponseInfo, PropServerReference, PropReasonString:
		return propString, true
	case PropCorrelationData, PropAuthData:
		return propBinary, true
	case PropUserProperty:
		return propStringPair, true
	}
	return 0, false
}

// decodeProperties reads a v5 property list at *cursor into dst, which must
// have capacity maxProperties, and returns the filled prefix. The list is a
// varint byte count followed by id/value pairs; the value span of each pair
// is determined by the identifier's length class, not by a per-list rule.
func decodeProperties(buf []byte, cursor *int, dst []Property) ([]Property, error) {
	propLen, err := decodeVarint(buf, cursor)
	if err != nil {
		return nil, err
	}
	end := *cursor + int(propLen)
	if end > len(buf) {
		return nil, ErrMalformedPacket
	}
	props := dst[:0]
	for *cursor < end {
		id, err := decodeByteAt(buf, cursor)
		if err != nil {
			return nil, err
		}
		class, ok := classOf(id)
		if !ok {
			return nil, ErrMalformedPacket
		}
		start := *cursor
		switch class {
		case propByte:
			*cursor++
		case propTwoByte:
			*cursor += 2
		case propFourByte:
			*cursor += 4
		case propVarint:
			if _, err := decodeVarint(buf, cursor); err != nil {
				return nil, err
			}
		case propString:
			if _, err := decodeString(buf, cursor); err != nil {
				return nil, err
			}
		case propBinary:
			if _, err := decodeBytes(buf, cursor); err != nil {
				return nil, err
			}
		case propStringPair:
			if _, err := decodeString(buf, cursor); err != nil {
				return nil, err
			}
			if _, err := decodeString(buf, cursor); err != nil {
				return nil, err
			}
		}
		if *cursor > end {
			return nil, ErrMalformedPacket
		}
		if len(props) == cap(props) {
			return nil, ErrTooManyProperties
		}
		props = append(props, Property{ID: id, Data: buf[start:*cursor]})
	}
	return props, nil
}

// encodeProperties writes the property list at *cursor: a varint byte count
// followed by each identifier and its wire-form data. Property data is
// assumed to already be in wire form for its identifier's class.
func encodeProperties(buf []byte, cursor *int, props []Property) error {
	if len(props) > maxProperties {
		return ErrTooManyProperties
	}
	total := 0
	for i := range props {
		total += 1 + len(props[i].Data)
	}
	if *cursor >= len(buf) {
		return ErrBufferTooSmall
	}
	n, err := encodeVarint(buf[*cursor:], uint32(total))
	if err != nil {
		return err
	}
	*cursor += n
	for i := range props {
		if err := encodeByteAt(buf, cursor, props[i].ID); err != nil {
			return err
		}
		if *cursor+len(props[i].Data) > len(buf) {
			return ErrBufferTooSmall
		}
		*cursor += copy(buf[*cursor:], props[i].Data)
	}
	return nil
}
