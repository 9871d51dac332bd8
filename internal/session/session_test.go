package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/muurk/evigo/internal/protocol"
	"github.com/muurk/evigo/internal/transport"
)

// fakeConn scripts the replies a session receives. Once the script is
// exhausted, Receive reports recvErr if set, or a timeout.
type fakeConn struct {
	replies [][]byte
	sent    [][]byte
	recvErr error
	closed  int
}

func (f *fakeConn) Send(data []byte) error {
	f.sent = append(f.sent, data)
	return nil
}

func (f *fakeConn) Receive(timeout time.Duration) ([]byte, error) {
	if len(f.replies) == 0 {
		if f.recvErr != nil {
			return nil, f.recvErr
		}
		return nil, transport.ErrTimeout
	}
	next := f.replies[0]
	f.replies = f.replies[1:]
	return next, nil
}

func (f *fakeConn) Close() error {
	f.closed++
	return nil
}

func newTestSession(t *testing.T, fc *fakeConn, cfg Config) *Session {
	t.Helper()
	s := New(cfg, nil)
	s.dial = func() (transport.Conn, error) { return fc, nil }
	return s
}

func reply(t *testing.T, tag protocol.Tag, seq byte, body string) []byte {
	t.Helper()
	var payload any
	if body != "" {
		payload = body
	}
	data, err := protocol.EncodeTagged(payload, tag, seq)
	if err != nil {
		t.Fatalf("failed to build reply frame: %v", err)
	}
	return data
}

const (
	userDoc    = `{"id":1,"email":"user@example.com","name":"Test User"}`
	devicesDoc = `{"docs":[["DEVICE",{"deviceId":5,"name":"Garage Charger"}]]}`
	pageDoc    = `{"dashboard":{"widgets":[{"modules":[{"displayDataStreams":[` +
		`{"id":89349,"name":"Charging Power"},{"id":89350,"name":"Voltage"}]}]}]}}`
)

func handshakeReplies(t *testing.T) [][]byte {
	return [][]byte{
		reply(t, protocol.TagInit, 1, `{"status":"ok"}`),
		reply(t, protocol.TagLogin, 2, userDoc),
		reply(t, protocol.TagDeviceQuery, 3, devicesDoc),
		reply(t, protocol.TagSelectDevice, 4, ""),
		reply(t, protocol.TagOpenPage, 5, pageDoc),
	}
}

func credentials() Config {
	return Config{Email: "user@example.com", Password: "hunter2"}
}

func TestHandshakeSequence(t *testing.T) {
	fc := &fakeConn{replies: handshakeReplies(t)}
	s := newTestSession(t, fc, credentials())

	if err := s.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := s.Login(); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if s.User() == nil || s.User().Email != "user@example.com" {
		t.Errorf("user = %+v", s.User())
	}
	if err := s.QueryDevices(); err != nil {
		t.Fatalf("QueryDevices() error = %v", err)
	}
	if len(s.Devices()) != 1 || s.Devices()[0].Name != "Garage Charger" {
		t.Errorf("devices = %+v", s.Devices())
	}

	page, err := s.OpenDevicePage(5)
	if err != nil {
		t.Fatalf("OpenDevicePage() error = %v", err)
	}
	s.ExtractWidgetMappings(0, page)

	if name, ok := s.WidgetName(0, "89349"); !ok || name != "Charging Power" {
		t.Errorf("WidgetName(89349) = %q, %v", name, ok)
	}
	if name, ok := s.WidgetName(0, "89350"); !ok || name != "Voltage" {
		t.Errorf("WidgetName(89350) = %q, %v", name, ok)
	}
	if _, ok := s.WidgetName(0, "1"); ok {
		t.Error("unexpected mapping for unknown widget")
	}

	if s.State() != StatePageOpen {
		t.Errorf("state = %s, want %s", s.State(), StatePageOpen)
	}

	// Outbound headers: counter starts at 0 and increments before use.
	wantHeaders := [][4]byte{
		{0x01, 0x30, 0x00, 0x01}, // init
		{0x00, 0x02, 0x00, 0x02}, // login
		{0x01, 0x1b, 0x00, 0x03}, // device query
		{0x00, 0x49, 0x01, 0x04}, // select device
		{0x01, 0x04, 0x01, 0x05}, // open page
	}
	if len(fc.sent) != len(wantHeaders) {
		t.Fatalf("sent %d frames, want %d", len(fc.sent), len(wantHeaders))
	}
	for i, want := range wantHeaders {
		got := fc.sent[i][:4]
		if got[0] != want[0] || got[1] != want[1] || got[2] != want[2] || got[3] != want[3] {
			t.Errorf("frame %d header = %x, want %x", i, got, want)
		}
	}

	// Select device carries the decimal device ID as raw text.
	if body := string(fc.sent[3][4:]); body != "5" {
		t.Errorf("select device body = %q, want 5", body)
	}
}

func TestLoginRequiresCredentials(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no credentials", Config{}},
		{"missing password", Config{Email: "user@example.com"}},
		{"missing email", Config{Password: "hunter2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeConn{}
			s := newTestSession(t, fc, tt.cfg)

			err := s.Login()
			if !IsConfigError(err) {
				t.Errorf("Login() error = %v, want configuration error", err)
			}
			if len(fc.sent) != 0 {
				t.Error("login must fail before any network activity")
			}
		})
	}
}

func TestInitializeMissingPayloadFatal(t *testing.T) {
	fc := &fakeConn{replies: [][]byte{
		reply(t, protocol.TagInit, 1, ""), // header only
	}}
	s := newTestSession(t, fc, credentials())

	if err := s.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	err := s.Initialize()
	if !IsHandshakeError(err) {
		t.Errorf("Initialize() error = %v, want handshake error", err)
	}
}

func TestQueryDevicesZeroDevicesFatal(t *testing.T) {
	fc := &fakeConn{replies: [][]byte{
		reply(t, protocol.TagInit, 1, `{"status":"ok"}`),
		reply(t, protocol.TagLogin, 2, userDoc),
		reply(t, protocol.TagDeviceQuery, 3, `{"docs":[]}`),
	}}
	s := newTestSession(t, fc, credentials())

	if err := s.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := s.Login(); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	err := s.QueryDevices()
	if !IsHandshakeError(err) {
		t.Errorf("QueryDevices() error = %v, want handshake error", err)
	}
}

func TestOperationsEnforceOrder(t *testing.T) {
	s := newTestSession(t, &fakeConn{}, credentials())

	if err := s.Initialize(); err == nil {
		t.Error("Initialize() before Connect() should fail")
	}
	if err := s.QueryDevices(); err == nil {
		t.Error("QueryDevices() before handshake should fail")
	}
	if _, err := s.OpenDevicePage(5); err == nil {
		t.Error("OpenDevicePage() before handshake should fail")
	}
}

func TestKeepaliveTimer(t *testing.T) {
	fc := &fakeConn{}
	s := newTestSession(t, fc, credentials())
	if err := s.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	// Fresh timer: nothing to do yet.
	if err := s.Keepalive(); err != nil {
		t.Fatalf("Keepalive() error = %v", err)
	}
	if len(fc.sent) != 0 {
		t.Fatal("keepalive fired before the interval elapsed")
	}

	// Interval elapsed: one zero-payload frame, timer reset.
	s.keepaliveAt = time.Now().Add(-KeepaliveInterval - time.Second)
	if err := s.Keepalive(); err != nil {
		t.Fatalf("Keepalive() error = %v", err)
	}
	if len(fc.sent) != 1 {
		t.Fatalf("sent %d frames, want 1", len(fc.sent))
	}
	frame := fc.sent[0]
	if len(frame) != 4 {
		t.Errorf("keepalive frame = %x, want header only", frame)
	}
	if frame[0] != 0x00 || frame[1] != 0x06 || frame[2] != 0x00 {
		t.Errorf("keepalive header = %x", frame[:4])
	}
	if time.Since(s.keepaliveAt) > time.Second {
		t.Error("keepalive timer was not reset")
	}

	// Timer just reset: immediate repeat is a no-op.
	if err := s.Keepalive(); err != nil {
		t.Fatalf("Keepalive() error = %v", err)
	}
	if len(fc.sent) != 1 {
		t.Error("keepalive fired again before the interval elapsed")
	}
}

func TestRunClosesTransportOnListenError(t *testing.T) {
	fc := &fakeConn{
		replies: handshakeReplies(t),
		recvErr: errors.New("connection reset"),
	}
	s := newTestSession(t, fc, credentials())

	err := s.Run(context.Background())
	if !IsTransportError(err) {
		t.Errorf("Run() error = %v, want transport error", err)
	}
	if fc.closed != 1 {
		t.Errorf("transport closed %d times, want exactly 1", fc.closed)
	}
}

func TestRunClosesTransportOnCancel(t *testing.T) {
	fc := &fakeConn{replies: handshakeReplies(t)}
	s := newTestSession(t, fc, credentials())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if fc.closed != 1 {
		t.Errorf("transport closed %d times, want exactly 1", fc.closed)
	}
	if s.User() == nil {
		t.Error("handshake should complete before cancellation is observed")
	}
	if s.State() != StateClosed {
		t.Errorf("state = %s, want %s", s.State(), StateClosed)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	fc := &fakeConn{}
	s := newTestSession(t, fc, credentials())
	if err := s.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if fc.closed != 1 {
		t.Errorf("transport closed %d times, want 1", fc.closed)
	}
}

func TestExplicitSequenceByte(t *testing.T) {
	fc := &fakeConn{}
	s := newTestSession(t, fc, credentials())
	if err := s.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if err := s.sendSeq(nil, protocol.TagKeepalive, 0x63); err != nil {
		t.Fatalf("sendSeq() error = %v", err)
	}
	if fc.sent[0][3] != 0x63 {
		t.Errorf("explicit seq = 0x%02x, want 0x63", fc.sent[0][3])
	}

	// Explicit sends do not consume the auto counter.
	if err := s.send(nil, protocol.TagKeepalive); err != nil {
		t.Fatalf("send() error = %v", err)
	}
	if fc.sent[1][3] != 0x01 {
		t.Errorf("auto seq = 0x%02x, want 0x01", fc.sent[1][3])
	}
}

func TestListenDeliversWidgetUpdates(t *testing.T) {
	update := append([]byte{0x00, 0x14, 0x00, 0x09}, []byte("5\x00vw\x0089349\x00241.29")...)
	fc := &fakeConn{replies: [][]byte{update}}

	var got *protocol.WidgetUpdate
	cfg := credentials()
	cfg.OnWidgetUpdate = func(u *protocol.WidgetUpdate) { got = u }

	s := newTestSession(t, fc, cfg)
	s.widgets[0] = map[string]string{"89349": "Charging Power"}
	if err := s.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	frame, err := s.Listen(time.Second)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	if frame == nil || frame.Payload.Kind() != protocol.KindWidgetUpdate {
		t.Fatalf("frame = %v, want widget update", frame)
	}
	if got == nil {
		t.Fatal("OnWidgetUpdate callback not invoked")
	}
	if got.WidgetName != "Charging Power" || got.Value != "241.29" {
		t.Errorf("update = %+v", got)
	}
}

func TestListenTimeoutIsNotAnError(t *testing.T) {
	fc := &fakeConn{}
	s := newTestSession(t, fc, credentials())
	if err := s.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	frame, err := s.Listen(time.Millisecond)
	if err != nil {
		t.Errorf("Listen() timeout error = %v, want nil", err)
	}
	if frame != nil {
		t.Errorf("frame = %v, want nil", frame)
	}
}
