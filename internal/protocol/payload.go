package protocol

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"unicode"
	"unicode/utf8"
)

// BinaryPreviewLimit caps the hex preview stored for opaque binary
// payloads. The full hex dump is kept alongside it.
const BinaryPreviewLimit = 50

// Kind classifies the decoded payload of a frame.
type Kind int

const (
	KindDocument Kind = iota // JSON document
	KindText                 // printable text
	KindWidgetUpdate         // telemetry widget update sub-format
	KindBinary               // opaque binary with hex preview
	KindDiagnostic           // decode failure converted to data
)

// String returns a human-readable name for the payload kind
func (k Kind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindText:
		return "text"
	case KindWidgetUpdate:
		return "widget_update"
	case KindBinary:
		return "binary"
	case KindDiagnostic:
		return "diagnostic"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Payload is a decoded frame payload
type Payload interface {
	Kind() Kind
	String() string
}

// Document is a JSON payload. Raw keeps the original bytes so callers
// can decode into their own typed models.
type Document struct {
	Value any
	Raw   []byte
}

func (d *Document) Kind() Kind { return KindDocument }

func (d *Document) String() string {
	return fmt.Sprintf("Document{%d bytes}", len(d.Raw))
}

// Decode unmarshals the document into v
func (d *Document) Decode(v any) error {
	return json.Unmarshal(d.Raw, v)
}

// Text is a printable text payload. ASCII records whether the pure
// ASCII decode succeeded or the UTF-8 fallback was needed.
type Text struct {
	Value string
	ASCII bool
}

func (t *Text) Kind() Kind     { return KindText }
func (t *Text) String() string { return t.Value }

// Binary is the opaque fallback for payloads nothing else could decode.
type Binary struct {
	Hex     string
	Length  int
	Preview string
}

func (b *Binary) Kind() Kind { return KindBinary }

func (b *Binary) String() string {
	return fmt.Sprintf("Binary{length=%d, preview=%s}", b.Length, b.Preview)
}

// Diagnostic is a decode failure converted into data. Malformed frames
// never surface as errors; the caller always receives a payload value.
type Diagnostic struct {
	Reason string
	RawHex string
}

func (d *Diagnostic) Kind() Kind { return KindDiagnostic }

func (d *Diagnostic) String() string {
	return fmt.Sprintf("Diagnostic{%s, raw=%s}", d.Reason, d.RawHex)
}

// attempt tries one decoding of payload bytes, reporting success.
type attempt func([]byte) (Payload, bool)

// classifyAttempts is the fixed fallback order for non-widget payloads.
// Each attempt is pure; the first success wins and the opaque binary
// rendering is the unconditional last resort, so classification always
// produces a value.
var classifyAttempts = []attempt{
	attemptDocument,
	attemptASCIIText,
	attemptUTF8Text,
}

// classifyPayload decodes payload bytes through the fallback chain.
func classifyPayload(data []byte) Payload {
	for _, try := range classifyAttempts {
		if p, ok := try(data); ok {
			return p
		}
	}
	return binaryPayload(data)
}

func attemptDocument(data []byte) (Payload, bool) {
	if !utf8.Valid(data) {
		return nil, false
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false
	}
	return &Document{Value: v, Raw: data}, true
}

func attemptASCIIText(data []byte) (Payload, bool) {
	for _, b := range data {
		if b < 0x20 || b > 0x7e {
			return nil, false
		}
	}
	return &Text{Value: string(data), ASCII: true}, true
}

func attemptUTF8Text(data []byte) (Payload, bool) {
	if !utf8.Valid(data) {
		return nil, false
	}
	s := string(data)
	for _, r := range s {
		if !unicode.IsPrint(r) {
			return nil, false
		}
	}
	return &Text{Value: s}, true
}

func binaryPayload(data []byte) *Binary {
	preview := data
	if len(preview) > BinaryPreviewLimit {
		preview = preview[:BinaryPreviewLimit]
	}
	return &Binary{
		Hex:     hex.EncodeToString(data),
		Length:  len(data),
		Preview: hex.EncodeToString(preview),
	}
}
