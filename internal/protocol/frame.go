package protocol

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// HeaderSize is the fixed binary header length. Everything past it is
// payload; framing relies on the WebSocket layer delivering discrete
// messages, not on length fields.
const HeaderSize = 4

// Tag is the (b1,b2,b3) header triple selecting a message category.
// The fourth header byte carries the per-message sequence value.
type Tag struct {
	B1, B2, B3 byte
}

// Header tags from captured dashboard exchanges.
var (
	TagInit         = Tag{0x01, 0x30, 0x00} // capability negotiation
	TagLogin        = Tag{0x00, 0x02, 0x00} // credential handshake
	TagDeviceQuery  = Tag{0x01, 0x1b, 0x00} // device list query
	TagSelectDevice = Tag{0x00, 0x49, 0x01} // select device by number
	TagOpenPage     = Tag{0x01, 0x04, 0x01} // open device status page
	TagKeepalive    = Tag{0x00, 0x06, 0x00} // idle keepalive, no payload
)

// WidgetUpdateB2 marks inbound telemetry widget updates. Only b2 is
// significant for these; b1 and b3 vary.
const WidgetUpdateB2 = 0x14

func (t Tag) String() string {
	return fmt.Sprintf("%02x/%02x/%02x", t.B1, t.B2, t.B3)
}

// Frame is one decoded wire message: four header bytes plus an optional
// classified payload. Payload is nil for header-only frames.
type Frame struct {
	B1, B2, B3, B4 byte
	Payload        Payload
	Raw            []byte
}

// Tag returns the frame's (b1,b2,b3) header triple
func (f *Frame) Tag() Tag {
	return Tag{f.B1, f.B2, f.B3}
}

// HasPayload reports whether the frame carried any body bytes
func (f *Frame) HasPayload() bool {
	return f.Payload != nil
}

// HeaderHex returns the four header bytes as hex
func (f *Frame) HeaderHex() string {
	return hex.EncodeToString([]byte{f.B1, f.B2, f.B3, f.B4})
}

func (f *Frame) String() string {
	if f.Payload == nil {
		return fmt.Sprintf("Frame{header=%s, no payload}", f.HeaderHex())
	}
	return fmt.Sprintf("Frame{header=%s, kind=%s, len=%d}",
		f.HeaderHex(), f.Payload.Kind(), len(f.Raw)-HeaderSize)
}

// Encode builds the wire bytes for one outbound frame.
//
// A nil payload produces a header-only frame. A string payload is sent
// as its raw bytes with no quoting. Anything else is serialized as
// compact JSON.
func Encode(payload any, b1, b2, b3, b4 byte) ([]byte, error) {
	header := []byte{b1, b2, b3, b4}

	switch p := payload.(type) {
	case nil:
		return header, nil
	case string:
		return append(header, p...), nil
	case []byte:
		return append(header, p...), nil
	default:
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payload: %w", err)
		}
		return append(header, body...), nil
	}
}

// EncodeTagged builds an outbound frame for a known message tag
func EncodeTagged(payload any, tag Tag, seq byte) ([]byte, error) {
	return Encode(payload, tag.B1, tag.B2, tag.B3, seq)
}

// Decode parses one received wire message.
//
// Fewer than four bytes is not an error: the frame has no header and
// Decode returns (nil, nil). Exactly four bytes yields a header-only
// frame. With a payload present, frames tagged as widget updates go
// through the widget sub-format parser; everything else runs the
// classification fallback chain, which always produces a payload value
// rather than failing the message.
func Decode(data []byte, names NameResolver) (*Frame, error) {
	if len(data) < HeaderSize {
		return nil, nil
	}

	f := &Frame{
		B1:  data[0],
		B2:  data[1],
		B3:  data[2],
		B4:  data[3],
		Raw: data,
	}

	if len(data) == HeaderSize {
		return f, nil
	}

	body := data[HeaderSize:]
	if f.B2 == WidgetUpdateB2 {
		f.Payload = ParseWidgetUpdate(body, names)
	} else {
		f.Payload = classifyPayload(body)
	}

	return f, nil
}
