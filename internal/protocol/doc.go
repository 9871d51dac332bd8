// Package protocol implements the Eviqo dashboard binary message format.
//
// Every message exchanged over the dashboard WebSocket is one discrete
// binary frame with a fixed 4-byte header and an optional payload:
//
//	[0] b1   message category (high)
//	[1] b2   message category (low); 0x14 marks telemetry widget updates
//	[2] b3   sub-selector
//	[3] b4   sequence: the session's send counter, or a fixed reply value
//	[4+]     payload (absent is valid and means "no body")
//
// There is no length field; the WebSocket layer delivers whole messages.
//
// # Payload classification
//
// The remote mixes JSON documents, plain text and raw binary in the same
// framing, so Decode classifies payloads through a fixed fallback chain:
// JSON document, then printable ASCII, then printable UTF-8, then an
// opaque binary record with a bounded hex preview. A misclassified or
// malformed payload degrades to the next step instead of failing the
// message - Decode always hands the caller something.
//
// # Widget updates
//
// Frames with b2 = 0x14 carry the telemetry sub-format: null-separated
// text fields [deviceId, unused, widgetId, value]. Widget IDs resolve to
// display names through a NameResolver backed by the session's mapping
// table, falling back to "Unknown" for IDs seen before the device page
// was opened. Malformed updates become Diagnostic payloads, never
// errors.
//
// # Construction
//
//	data, err := protocol.EncodeTagged(map[string]any{
//	    "clientType": "web",
//	}, protocol.TagInit, seq)
//
// All functions are stateless and safe for concurrent use.
package protocol
