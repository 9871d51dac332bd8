package model

import (
	"encoding/json"
	"fmt"
)

// User is the account record returned by the login reply. The service
// sends many more fields; only the ones the client reads are typed.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Device is one charger from the device query reply.
type Device struct {
	DeviceID *int64 `json:"deviceId"`
	Name     string `json:"name"`
	Status   string `json:"status,omitempty"`
}

// DeviceQueryResult is the device list reply. On the wire each docs
// entry is a two-element array [tag, details]; only the details object
// is kept.
type DeviceQueryResult struct {
	Docs []Device `json:"docs"`
}

// UnmarshalJSON unwraps the [tag, details] pairs in the docs array.
func (r *DeviceQueryResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		Docs []json.RawMessage `json:"docs"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Docs = r.Docs[:0]
	for i, doc := range raw.Docs {
		var pair []json.RawMessage
		if err := json.Unmarshal(doc, &pair); err != nil {
			return fmt.Errorf("device doc %d is not an array: %w", i, err)
		}
		if len(pair) < 2 {
			return fmt.Errorf("device doc %d has %d elements, want 2", i, len(pair))
		}
		var dev Device
		if err := json.Unmarshal(pair[1], &dev); err != nil {
			return fmt.Errorf("device doc %d details: %w", i, err)
		}
		r.Docs = append(r.Docs, dev)
	}
	return nil
}

// DevicePage is the status page reply for one device. The widget
// mapping table is extracted from its dashboard tree.
type DevicePage struct {
	Dashboard Dashboard `json:"dashboard"`
}

// Dashboard holds the widgets of one device status page.
type Dashboard struct {
	Widgets []Widget `json:"widgets"`
}

// Widget is a display widget grouping one or more modules.
type Widget struct {
	Modules []Module `json:"modules"`
}

// Module contributes telemetry streams to a widget.
type Module struct {
	DisplayDataStreams []DataStream `json:"displayDataStreams"`
}

// DataStream is one named telemetry channel. Its ID is what widget
// update frames reference.
type DataStream struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
