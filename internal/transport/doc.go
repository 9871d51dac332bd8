// Package transport opens and owns the WebSocket connection to the
// Eviqo dashboard service.
//
// Connecting is a two-step handshake: one HTTP GET to the dashboard
// login page to harvest session cookies, then the WebSocket upgrade
// carrying those cookies plus the browser-like User-Agent and Origin
// headers the service expects.
//
// The resulting Conn exchanges discrete binary messages and nothing
// else; framing and semantics live in the protocol and session
// packages. Receive is bounded by a per-call timeout and reports an
// elapsed window as ErrTimeout rather than a connection failure, which
// lets the session interleave keepalives with listening.
package transport
