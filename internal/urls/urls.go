package urls

// Endpoints for the Eviqo dashboard cloud service.
// The client always talks to this single endpoint set; there is no
// region selection or endpoint discovery in the protocol.

// WebSocket is the dashboard WebSocket endpoint carrying the binary
// framed session protocol.
const WebSocket = "wss://app.eviqo.io/dashws"

// LoginPage is the dashboard login page fetched once before the
// WebSocket upgrade to harvest session cookies.
const LoginPage = "https://app.eviqo.io/dashboard/login"

// Origin is the Origin header value the dashboard web app sends on the
// WebSocket upgrade. The service rejects upgrades without it.
const Origin = "https://app.eviqo.io"

// UserAgent is a browser-like User-Agent for both the cookie bootstrap
// request and the WebSocket upgrade, matching what the web dashboard
// sends.
const UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/140.0.0.0 Safari/537.36"
