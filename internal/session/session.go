package session

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/evigo/internal/auth"
	"github.com/muurk/evigo/internal/model"
	"github.com/muurk/evigo/internal/protocol"
	"github.com/muurk/evigo/internal/transport"
	"github.com/muurk/evigo/internal/urls"
	"github.com/muurk/evigo/internal/version"
)

const (
	// KeepaliveInterval is the minimum gap between keepalive sends.
	KeepaliveInterval = 15 * time.Second

	// DefaultListenTimeout bounds isolated listens during the handshake
	// and after a keepalive.
	DefaultListenTimeout = 10 * time.Second

	// SteadyListenTimeout bounds each listen in the steady-state loop.
	SteadyListenTimeout = 20 * time.Second

	// devicePageID is the fixed status page identifier the dashboard
	// opens for a charger. Observed constant across accounts.
	devicePageID = "17948"

	clientType = "web"
	locale     = "en_US"

	// deviceQueryLimit is the fixed page size of the device query. There
	// is no pagination beyond it.
	deviceQueryLimit = 17
)

// State is the session's position in the strict handshake sequence.
// The only legal backward transition is a full reconnect from
// StateDisconnected.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateInitialized
	StateAuthenticated
	StateDevicesQueried
	StatePageOpen
	StateListening
	StateClosed
)

// String returns a human-readable state name
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateInitialized:
		return "initialized"
	case StateAuthenticated:
		return "authenticated"
	case StateDevicesQueried:
		return "devices_queried"
	case StatePageOpen:
		return "page_open"
	case StateListening:
		return "listening"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Hasher derives the login hash from an account identifier and secret.
// Injected so the session core carries no crypto of its own.
type Hasher func(user, secret string) string

// defaultHasher is the production credential hash chain.
var defaultHasher Hasher = auth.PasswordHash

// Config carries everything a session needs up front. No globals are
// consulted after construction.
type Config struct {
	// Email and Password authenticate the account. Both are required
	// unless SessionID carries a pre-authenticated dashboard session.
	Email    string
	Password string

	// SessionID is an optional existing dashboard session cookie value,
	// forwarded on the WebSocket upgrade.
	SessionID string

	// WSURL and BootstrapURL override the cloud endpoints (tests).
	// Empty means the production endpoints.
	WSURL        string
	BootstrapURL string

	// Hash overrides the credential hasher (tests). Nil means the
	// production hash chain.
	Hash Hasher

	// OnWidgetUpdate, when set, receives every decoded telemetry sample
	// as it arrives.
	OnWidgetUpdate func(*protocol.WidgetUpdate)
}

// Session drives one authenticated dashboard connection through the
// handshake sequence and the keepalive/listen loop. A Session is owned
// by a single goroutine; nothing here is safe for concurrent use except
// Close.
type Session struct {
	cfg  Config
	log  *zap.Logger
	dial func() (transport.Conn, error)

	conn    transport.Conn
	state   State
	counter byte

	keepaliveAt time.Time

	// widgets maps page index -> widget ID -> display name. Page index
	// is always 0 today; multi-page sessions are not supported.
	widgets map[int]map[string]string

	user    *model.User
	devices []model.Device
	pages   []model.DevicePage

	closeOnce sync.Once
	closeErr  error
}

// New creates a session for the given configuration. The logger is the
// session's only diagnostic sink; nil disables logging.
func New(cfg Config, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.WSURL == "" {
		cfg.WSURL = urls.WebSocket
	}
	if cfg.BootstrapURL == "" {
		cfg.BootstrapURL = urls.LoginPage
	}

	s := &Session{
		cfg:         cfg,
		log:         log,
		state:       StateDisconnected,
		keepaliveAt: time.Now(),
		widgets:     make(map[int]map[string]string),
	}
	s.dial = func() (transport.Conn, error) {
		return transport.Dial(transport.Options{
			WSURL:        cfg.WSURL,
			BootstrapURL: cfg.BootstrapURL,
			Origin:       urls.Origin,
			UserAgent:    urls.UserAgent,
			SessionID:    cfg.SessionID,
		}, log)
	}
	return s
}

// State returns the session's current handshake state
func (s *Session) State() State { return s.state }

// User returns the authenticated account record, nil before login
func (s *Session) User() *model.User { return s.user }

// Devices returns the discovered device list
func (s *Session) Devices() []model.Device { return s.devices }

// Pages returns the opened device pages
func (s *Session) Pages() []model.DevicePage { return s.pages }

// WidgetName resolves a widget ID through the session's mapping table,
// implementing protocol.NameResolver.
func (s *Session) WidgetName(page int, widgetID string) (string, bool) {
	name, ok := s.widgets[page][widgetID]
	return name, ok
}

func (s *Session) requireState(want State, op string) error {
	if s.state != want {
		return NewStateError(op + " requires state " + want.String() + ", session is " + s.state.String())
	}
	return nil
}

// nextSeq increments the outbound counter and returns it. The counter
// wraps with its byte width; the service does not object.
func (s *Session) nextSeq() byte {
	s.counter++
	return s.counter
}

// send transmits one frame using the auto-incrementing counter
func (s *Session) send(payload any, tag protocol.Tag) error {
	return s.sendSeq(payload, tag, s.nextSeq())
}

// sendSeq transmits one frame with an explicit sequence byte
func (s *Session) sendSeq(payload any, tag protocol.Tag, seq byte) error {
	data, err := protocol.EncodeTagged(payload, tag, seq)
	if err != nil {
		return NewTransportError("failed to encode message", err)
	}
	s.log.Debug("sending frame",
		zap.String("tag", tag.String()),
		zap.Uint8("seq", seq),
		zap.Int("length", len(data)),
	)
	if err := s.conn.Send(data); err != nil {
		return NewTransportError("send failed", err)
	}
	return nil
}

// Connect opens the transport. There is no automatic retry; a failed
// connect leaves the session disconnected.
func (s *Session) Connect() error {
	if err := s.requireState(StateDisconnected, "connect"); err != nil {
		return err
	}

	conn, err := s.dial()
	if err != nil {
		s.log.Error("connection failed", zap.Error(err))
		return NewTransportError("connection failed", err)
	}

	s.conn = conn
	s.state = StateConnected
	s.log.Debug("connected", zap.String("url", s.cfg.WSURL))
	return nil
}

// Listen waits up to timeout for the next inbound frame and decodes it.
// At most one frame is returned per call; buffered frames beyond the
// first stay queued. A timeout is not an error - both return values are
// nil. Transport failures are errors and end the session.
func (s *Session) Listen(timeout time.Duration) (*protocol.Frame, error) {
	data, err := s.conn.Receive(timeout)
	if err != nil {
		if errors.Is(err, transport.ErrTimeout) {
			s.log.Debug("listen window elapsed")
			return nil, nil
		}
		return nil, NewTransportError("receive failed", err)
	}

	frame, err := protocol.Decode(data, s)
	if err != nil || frame == nil {
		// Short frames decode to nothing; keep listening next round.
		s.log.Debug("received undecodable frame", zap.Int("length", len(data)))
		return nil, nil
	}

	s.log.Debug("received frame", zap.String("frame", frame.String()))

	if upd, ok := frame.Payload.(*protocol.WidgetUpdate); ok {
		s.log.Info("widget update",
			zap.String("device", upd.DeviceID),
			zap.String("widget", upd.WidgetName),
			zap.String("value", upd.Value),
		)
		if s.cfg.OnWidgetUpdate != nil {
			s.cfg.OnWidgetUpdate(upd)
		}
	}

	return frame, nil
}

// Initialize sends the capability negotiation frame and requires a
// reply with a payload.
func (s *Session) Initialize() error {
	if err := s.requireState(StateConnected, "initialize"); err != nil {
		return err
	}

	err := s.send(map[string]any{
		"clientType": clientType,
		"version":    version.ProtocolVersion,
		"locale":     locale,
	}, protocol.TagInit)
	if err != nil {
		return err
	}

	reply, err := s.Listen(DefaultListenTimeout)
	if err != nil {
		return err
	}
	if reply == nil || !reply.HasPayload() {
		return NewHandshakeError("init reply carried no payload")
	}

	s.state = StateInitialized
	return nil
}

// Login authenticates the account. It fails fast, before any network
// activity, when either credential is missing.
func (s *Session) Login() error {
	if s.cfg.Email == "" || s.cfg.Password == "" {
		return NewConfigError("account email and password must be set")
	}
	if err := s.requireState(StateInitialized, "login"); err != nil {
		return err
	}

	hash := s.cfg.Hash
	if hash == nil {
		hash = defaultHasher
	}

	err := s.send(map[string]any{
		"email":      s.cfg.Email,
		"hash":       hash(s.cfg.Email, s.cfg.Password),
		"clientType": clientType,
		"version":    version.ProtocolVersion,
		"locale":     locale,
	}, protocol.TagLogin)
	if err != nil {
		return err
	}

	reply, err := s.Listen(DefaultListenTimeout)
	if err != nil {
		return err
	}
	doc, ok := replyDocument(reply)
	if !ok {
		return NewHandshakeError("login reply carried no user payload")
	}

	var user model.User
	if err := doc.Decode(&user); err != nil {
		return NewHandshakeError("login reply user document is malformed")
	}

	s.user = &user
	s.state = StateAuthenticated
	s.log.Debug("authenticated", zap.String("email", user.Email))
	return nil
}

// QueryDevices requests the account's device list: match-all filter,
// list view, ascending by name, fixed page size. Zero devices is fatal
// for the exploration flow.
func (s *Session) QueryDevices() error {
	if err := s.requireState(StateAuthenticated, "device query"); err != nil {
		return err
	}

	err := s.send(map[string]any{
		"docType":  "DEVICE",
		"mode":     "MATCH_ALL",
		"viewType": "LIST",
		"filters": []map[string]any{
			{
				"type":      "SUB_SEGMENT",
				"filters":   []any{},
				"mode":      "MATCH_ANY",
				"isCurrent": true,
			},
		},
		"offset": 0,
		"limit":  deviceQueryLimit,
		"order":  "ASC",
		"sortBy": "Name",
	}, protocol.TagDeviceQuery)
	if err != nil {
		return err
	}

	reply, err := s.Listen(DefaultListenTimeout)
	if err != nil {
		return err
	}
	doc, ok := replyDocument(reply)
	if !ok {
		return NewHandshakeError("device query reply carried no payload")
	}

	var result model.DeviceQueryResult
	if err := doc.Decode(&result); err != nil {
		return NewHandshakeError("device query reply is malformed")
	}
	if len(result.Docs) == 0 {
		return NewHandshakeError("no devices discovered")
	}

	s.devices = result.Docs
	for _, dev := range s.devices {
		s.log.Info("found device",
			zap.String("name", dev.Name),
			zap.Int64p("device_id", dev.DeviceID),
		)
	}

	s.state = StateDevicesQueried
	return nil
}

// OpenDevicePage selects a device by number and opens its status page.
// The select reply's content is only logged; the page reply is required
// and parsed.
func (s *Session) OpenDevicePage(deviceID int64) (*model.DevicePage, error) {
	if err := s.requireState(StateDevicesQueried, "open device page"); err != nil {
		return nil, err
	}

	id := strconv.FormatInt(deviceID, 10)
	if err := s.send(id, protocol.TagSelectDevice); err != nil {
		return nil, err
	}
	reply, err := s.Listen(DefaultListenTimeout)
	if err != nil {
		return nil, err
	}
	if reply != nil {
		s.log.Debug("select device reply", zap.String("frame", reply.String()))
	}

	err = s.send(map[string]any{
		"pageId":          devicePageID,
		"deviceId":        id,
		"dashboardPageId": nil,
	}, protocol.TagOpenPage)
	if err != nil {
		return nil, err
	}

	reply, err = s.Listen(DefaultListenTimeout)
	if err != nil {
		return nil, err
	}
	doc, ok := replyDocument(reply)
	if !ok {
		return nil, NewHandshakeError("device page reply carried no payload")
	}

	var page model.DevicePage
	if err := doc.Decode(&page); err != nil {
		return nil, NewHandshakeError("device page document is malformed")
	}

	s.pages = append(s.pages, page)
	s.state = StatePageOpen
	return &page, nil
}

// ExtractWidgetMappings walks the page's widget tree and fills the
// session's widget ID to name table. Repeated IDs overwrite; last one
// wins.
func (s *Session) ExtractWidgetMappings(pageIdx int, page *model.DevicePage) {
	table := s.widgets[pageIdx]
	if table == nil {
		table = make(map[string]string)
		s.widgets[pageIdx] = table
	}

	for _, widget := range page.Dashboard.Widgets {
		for _, module := range widget.Modules {
			for _, stream := range module.DisplayDataStreams {
				table[strconv.FormatInt(stream.ID, 10)] = stream.Name
			}
		}
	}

	for id, name := range table {
		s.log.Debug("widget mapping", zap.String("id", id), zap.String("name", name))
	}
}

// Keepalive sends a zero-payload keepalive frame when the interval has
// elapsed, then performs one bounded listen. Calling early is a no-op.
func (s *Session) Keepalive() error {
	if time.Since(s.keepaliveAt) < KeepaliveInterval {
		return nil
	}

	s.log.Debug("issuing keepalive")
	s.keepaliveAt = time.Now()
	if err := s.send(nil, protocol.TagKeepalive); err != nil {
		return err
	}
	_, err := s.Listen(DefaultListenTimeout)
	return err
}

// Run executes the full session: connect, handshake, open the first
// device's page, then keepalive and listen until the context is
// cancelled or the transport fails. The transport is closed exactly
// once on every exit path.
func (s *Session) Run(ctx context.Context) error {
	if err := s.Connect(); err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	if err := s.Initialize(); err != nil {
		return err
	}
	if err := s.Login(); err != nil {
		return err
	}
	if err := s.QueryDevices(); err != nil {
		return err
	}

	// First discovered device only; there is no selection policy.
	device := s.devices[0]
	if device.DeviceID == nil {
		return NewHandshakeError("first device has no device ID")
	}

	page, err := s.OpenDevicePage(*device.DeviceID)
	if err != nil {
		return err
	}
	s.ExtractWidgetMappings(0, page)

	if err := s.Keepalive(); err != nil {
		return err
	}

	s.state = StateListening
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := s.Keepalive(); err != nil {
			return err
		}
		if _, err := s.Listen(SteadyListenTimeout); err != nil {
			return err
		}
	}
}

// Close closes the transport exactly once. Safe to call from any state;
// repeat calls return the first result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.conn != nil {
			s.closeErr = s.conn.Close()
		}
		s.state = StateClosed
		s.log.Debug("session closed")
	})
	return s.closeErr
}

// replyDocument extracts the JSON document from a required reply.
func replyDocument(reply *protocol.Frame) (*protocol.Document, bool) {
	if reply == nil || !reply.HasPayload() {
		return nil, false
	}
	doc, ok := reply.Payload.(*protocol.Document)
	return doc, ok
}
