// Package session drives one authenticated connection to the Eviqo
// dashboard service through its strict handshake sequence:
//
//	Disconnected -> Connected -> Initialized -> Authenticated ->
//	DevicesQueried -> PageOpen -> Listening -> Closed
//
// Each step sends one request frame and waits for exactly one reply;
// there is never more than one outstanding request. Replies are not
// correlated by tag or sequence - the next frame received is the reply,
// matching the reference exchange. The only legal backward transition
// is a full reconnect from Disconnected.
//
// The session owns the transport handle, the widget ID to name mapping
// table built from the opened device page, the auto-incrementing send
// counter, and the keepalive timer. One goroutine owns the session;
// only Close is safe to call concurrently.
//
// Run executes the whole flow and then alternates keepalive checks with
// bounded listens until the context is cancelled or the transport
// fails. Listen timeouts are not errors - they hand control back so the
// keepalive check can run. The transport is closed exactly once on
// every exit path, including errors.
package session
