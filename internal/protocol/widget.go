package protocol

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// UnknownWidget is the sentinel name for widget IDs absent from the
// session's mapping table. Updates arriving before the page is opened
// resolve to this rather than failing.
const UnknownWidget = "Unknown"

// NameResolver resolves widget IDs to display names. The session owns
// the per-page mapping table and implements this; a nil resolver makes
// every lookup miss.
type NameResolver interface {
	WidgetName(page int, widgetID string) (string, bool)
}

// WidgetUpdate is one decoded telemetry sample. All fields are text as
// carried on the wire; missing trailing fields stay empty.
type WidgetUpdate struct {
	DeviceID   string
	WidgetID   string
	WidgetName string
	Value      string
}

func (w *WidgetUpdate) Kind() Kind { return KindWidgetUpdate }

func (w *WidgetUpdate) String() string {
	return fmt.Sprintf("WidgetUpdate{device=%s, widget=%s (%s), value=%s}",
		w.DeviceID, w.WidgetID, w.WidgetName, w.Value)
}

// ParseWidgetUpdate decodes the null-separated widget update sub-format:
//
//	<deviceId> 0x00 <unused> 0x00 <widgetId> 0x00 <value>
//
// Malformed payloads come back as a Diagnostic carrying the raw hex;
// parsing never fails past this boundary.
func ParseWidgetUpdate(data []byte, names NameResolver) Payload {
	parts := bytes.Split(data, []byte{0x00})

	if len(parts) < 2 {
		return &Diagnostic{
			Reason: "insufficient null separators",
			RawHex: hex.EncodeToString(data),
		}
	}

	upd := &WidgetUpdate{
		DeviceID:   asciiIgnore(parts[0]),
		WidgetName: UnknownWidget,
	}
	if len(parts) > 2 {
		upd.WidgetID = asciiIgnore(parts[2])
	}
	if len(parts) > 3 {
		// Replace rather than drop invalid bytes so value strings stay
		// length-stable for numeric parsing downstream.
		upd.Value = asciiReplace(parts[3])
	}

	// Widget names live in the page-0 table; multi-page sessions are not
	// supported.
	if names != nil {
		if name, ok := names.WidgetName(0, upd.WidgetID); ok {
			upd.WidgetName = name
		}
	}

	return upd
}

// asciiIgnore decodes bytes as ASCII, silently dropping anything outside
// the 7-bit range.
func asciiIgnore(data []byte) string {
	out := make([]byte, 0, len(data))
	for _, b := range data {
		if b < 0x80 {
			out = append(out, b)
		}
	}
	return string(out)
}

// asciiReplace decodes bytes as ASCII, substituting U+FFFD for anything
// outside the 7-bit range.
func asciiReplace(data []byte) string {
	var out []rune
	for _, b := range data {
		if b < 0x80 {
			out = append(out, rune(b))
		} else {
			out = append(out, '�')
		}
	}
	return string(out)
}
