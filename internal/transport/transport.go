package transport

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrTimeout is returned by Receive when no frame arrives within the
// caller's window. It is not a connection failure; the caller is
// expected to try again.
var ErrTimeout = errors.New("receive timed out")

// DefaultHandshakeTimeout bounds the bootstrap request and the
// WebSocket upgrade.
const DefaultHandshakeTimeout = 15 * time.Second

// Conn is the transport handle the session drives. Implementations
// deliver discrete binary messages; the session assumes one outstanding
// read at a time.
type Conn interface {
	Send(data []byte) error
	Receive(timeout time.Duration) ([]byte, error)
	Close() error
}

// Options configures a Dial.
type Options struct {
	// WSURL is the wss:// endpoint carrying the session protocol.
	WSURL string

	// BootstrapURL, when set, is fetched once before the upgrade to
	// harvest session cookies, which are forwarded on the upgrade.
	BootstrapURL string

	// Origin and UserAgent are sent on the upgrade. The service expects
	// the web dashboard's browser identity.
	Origin    string
	UserAgent string

	// SessionID, when set, is appended as a session cookie alongside any
	// harvested bootstrap cookies.
	SessionID string

	// HandshakeTimeout bounds the bootstrap request and upgrade.
	// Zero means DefaultHandshakeTimeout.
	HandshakeTimeout time.Duration

	// HTTPClient performs the bootstrap request. Nil uses a default
	// client with the handshake timeout.
	HTTPClient *http.Client
}

// WSConn is a Conn over a gorilla WebSocket connection.
type WSConn struct {
	ws        *websocket.Conn
	log       *zap.Logger
	closeOnce sync.Once
	closeErr  error
}

// Dial performs the cookie bootstrap and WebSocket upgrade.
func Dial(opts Options, log *zap.Logger) (*WSConn, error) {
	if log == nil {
		log = zap.NewNop()
	}

	timeout := opts.HandshakeTimeout
	if timeout == 0 {
		timeout = DefaultHandshakeTimeout
	}

	header := http.Header{}
	if opts.UserAgent != "" {
		header.Set("User-Agent", opts.UserAgent)
	}
	if opts.Origin != "" {
		header.Set("Origin", opts.Origin)
	}

	cookies, err := bootstrapCookies(opts, timeout, log)
	if err != nil {
		return nil, err
	}
	if cookie := cookieHeader(cookies, opts.SessionID); cookie != "" {
		header.Set("Cookie", cookie)
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
	}

	log.Debug("dialing websocket", zap.String("url", opts.WSURL))
	ws, resp, err := dialer.Dial(opts.WSURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket upgrade failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket upgrade failed: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	log.Debug("websocket connected", zap.String("url", opts.WSURL))
	return &WSConn{ws: ws, log: log}, nil
}

// bootstrapCookies fetches the login page once and returns its cookies.
func bootstrapCookies(opts Options, timeout time.Duration, log *zap.Logger) ([]*http.Cookie, error) {
	if opts.BootstrapURL == "" {
		return nil, nil
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	req, err := http.NewRequest(http.MethodGet, opts.BootstrapURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create bootstrap request: %w", err)
	}
	if opts.UserAgent != "" {
		req.Header.Set("User-Agent", opts.UserAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cookie bootstrap failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	cookies := resp.Cookies()
	for _, c := range cookies {
		log.Debug("bootstrap cookie", zap.String("name", c.Name))
	}
	return cookies, nil
}

// cookieHeader joins harvested cookies, plus an optional explicit
// session cookie, into a Cookie header value.
func cookieHeader(cookies []*http.Cookie, sessionID string) string {
	parts := make([]string, 0, len(cookies)+1)
	for _, c := range cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	if sessionID != "" {
		parts = append(parts, "session="+sessionID)
	}
	return strings.Join(parts, "; ")
}

// Send writes one binary message
func (c *WSConn) Send(data []byte) error {
	if err := c.ws.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	return nil
}

// Receive waits up to timeout for the next binary message. Text and
// control messages inside the window are skipped. Returns ErrTimeout
// when the window elapses without a binary message.
func (c *WSConn) Receive(timeout time.Duration) ([]byte, error) {
	if err := c.ws.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, fmt.Errorf("failed to set read deadline: %w", err)
	}

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return nil, ErrTimeout
			}
			return nil, fmt.Errorf("receive failed: %w", err)
		}

		if msgType == websocket.BinaryMessage {
			return data, nil
		}

		c.log.Debug("skipping non-binary message",
			zap.Int("type", msgType),
			zap.Int("length", len(data)),
		)
	}
}

// Close closes the underlying connection exactly once. Repeat calls
// return the first result.
func (c *WSConn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.ws.Close()
		c.log.Debug("websocket closed")
	})
	return c.closeErr
}
