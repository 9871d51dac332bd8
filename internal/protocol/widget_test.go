package protocol

import (
	"encoding/hex"
	"testing"
)

// tableResolver backs NameResolver with a plain map for tests.
type tableResolver map[string]string

func (r tableResolver) WidgetName(page int, widgetID string) (string, bool) {
	if page != 0 {
		return "", false
	}
	name, ok := r[widgetID]
	return name, ok
}

func TestParseWidgetUpdate(t *testing.T) {
	names := tableResolver{"89349": "Charging Power"}

	tests := []struct {
		name   string
		data   []byte
		verify func(t *testing.T, p Payload)
	}{
		{
			name: "full update resolves widget name",
			data: []byte("5\x00ignored\x0089349\x00241.29"),
			verify: func(t *testing.T, p Payload) {
				upd, ok := p.(*WidgetUpdate)
				if !ok {
					t.Fatalf("payload = %T, want *WidgetUpdate", p)
				}
				if upd.DeviceID != "5" {
					t.Errorf("device = %q, want 5", upd.DeviceID)
				}
				if upd.WidgetID != "89349" {
					t.Errorf("widget = %q, want 89349", upd.WidgetID)
				}
				if upd.WidgetName != "Charging Power" {
					t.Errorf("name = %q, want Charging Power", upd.WidgetName)
				}
				if upd.Value != "241.29" {
					t.Errorf("value = %q, want 241.29", upd.Value)
				}
			},
		},
		{
			name: "unmapped widget falls back to sentinel",
			data: []byte("5\x00vw\x0012345\x000.00"),
			verify: func(t *testing.T, p Payload) {
				upd := p.(*WidgetUpdate)
				if upd.WidgetName != UnknownWidget {
					t.Errorf("name = %q, want %q", upd.WidgetName, UnknownWidget)
				}
			},
		},
		{
			name: "missing trailing fields stay empty",
			data: []byte("5\x00vw"),
			verify: func(t *testing.T, p Payload) {
				upd := p.(*WidgetUpdate)
				if upd.DeviceID != "5" {
					t.Errorf("device = %q", upd.DeviceID)
				}
				if upd.WidgetID != "" || upd.Value != "" {
					t.Errorf("widget = %q, value = %q, want empty", upd.WidgetID, upd.Value)
				}
			},
		},
		{
			name: "too few segments yields diagnostic",
			data: []byte{0xde, 0xad, 0xbe, 0xef},
			verify: func(t *testing.T, p Payload) {
				diag, ok := p.(*Diagnostic)
				if !ok {
					t.Fatalf("payload = %T, want *Diagnostic", p)
				}
				if diag.RawHex != hex.EncodeToString([]byte{0xde, 0xad, 0xbe, 0xef}) {
					t.Errorf("raw hex = %s", diag.RawHex)
				}
			},
		},
		{
			name: "invalid bytes in value are replaced not dropped",
			data: []byte("5\x00vw\x0089349\x0024\xff.29"),
			verify: func(t *testing.T, p Payload) {
				upd := p.(*WidgetUpdate)
				want := "24�.29"
				if upd.Value != want {
					t.Errorf("value = %q, want %q", upd.Value, want)
				}
			},
		},
		{
			name: "invalid bytes in device id are dropped",
			data: []byte("5\xff\x00vw\x0089349\x001"),
			verify: func(t *testing.T, p Payload) {
				upd := p.(*WidgetUpdate)
				if upd.DeviceID != "5" {
					t.Errorf("device = %q, want 5", upd.DeviceID)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.verify(t, ParseWidgetUpdate(tt.data, names))
		})
	}
}

func TestParseWidgetUpdateNilResolver(t *testing.T) {
	p := ParseWidgetUpdate([]byte("5\x00vw\x0089349\x001.0"), nil)
	upd, ok := p.(*WidgetUpdate)
	if !ok {
		t.Fatalf("payload = %T, want *WidgetUpdate", p)
	}
	if upd.WidgetName != UnknownWidget {
		t.Errorf("name = %q, want %q", upd.WidgetName, UnknownWidget)
	}
}
