package connect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joshua-takyi/bashbay-client/internal/models"
)

const (
	writeWait         = 10 * time.Second
	defaultPingPeriod = 30 * time.Second
)

// Conn is one live realtime channel carrying JSON frames.
type Conn interface {
	ReadFrame(v any) error
	WriteFrame(v any) error
	Close() error
}

// FrameError is returned by ReadFrame for a message that is not valid
// JSON. The connection itself is still usable.
type FrameError struct {
	Err error
}

func (e *FrameError) Error() string { return "malformed frame: " + e.Err.Error() }
func (e *FrameError) Unwrap() error { return e.Err }

type SocketDialer struct {
	base       *url.URL
	dialer     *websocket.Dialer
	pingPeriod time.Duration
}

func NewSocketDialer(wsURL string, handshakeTimeout, pingPeriod time.Duration) (*SocketDialer, error) {
	base, err := url.Parse(strings.TrimRight(wsURL, "/"))
	if err != nil || (base.Scheme != "ws" && base.Scheme != "wss") {
		return nil, fmt.Errorf("invalid websocket url %q", wsURL)
	}
	if pingPeriod <= 0 {
		pingPeriod = defaultPingPeriod
	}
	return &SocketDialer{
		base: base,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		pingPeriod: pingPeriod,
	}, nil
}

func (d *SocketDialer) DialConversation(ctx context.Context, conversationID, token string) (Conn, error) {
	return d.dial(ctx, "/ws/chat/"+url.PathEscape(conversationID)+"/", token)
}

func (d *SocketDialer) DialConversationList(ctx context.Context, token string) (Conn, error) {
	return d.dial(ctx, "/ws/chat-list/", token)
}

func (d *SocketDialer) dial(ctx context.Context, path, token string) (Conn, error) {
	u := *d.base
	u.Path = d.base.Path + path
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, resp, err := d.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: websocket handshake rejected", models.ErrAuthExpired)
		}
		return nil, fmt.Errorf("%w: dial %s: %v", models.ErrNetwork, path, err)
	}

	s := &Socket{conn: conn, pingPeriod: d.pingPeriod, done: make(chan struct{})}
	s.keepalive()
	return s, nil
}

// Socket wraps a gorilla connection. Reads happen on one goroutine; writes
// may come from several and are serialised.
type Socket struct {
	conn       *websocket.Conn
	pingPeriod time.Duration
	writeMu    sync.Mutex
	closeOnce  sync.Once
	done       chan struct{}
}

func NewSocket(conn *websocket.Conn, pingPeriod time.Duration) *Socket {
	if pingPeriod <= 0 {
		pingPeriod = defaultPingPeriod
	}
	s := &Socket{conn: conn, pingPeriod: pingPeriod, done: make(chan struct{})}
	s.keepalive()
	return s
}

func (s *Socket) keepalive() {
	pongWait := s.pingPeriod*2 + writeWait
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go func() {
		ticker := time.NewTicker(s.pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				s.writeMu.Lock()
				err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
				s.writeMu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()
}

func (s *Socket) ReadFrame(v any) error {
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return err
	}
	// any inbound traffic proves the peer is alive
	_ = s.conn.SetReadDeadline(time.Now().Add(s.pingPeriod*2 + writeWait))
	if err := json.Unmarshal(data, v); err != nil {
		return &FrameError{Err: err}
	}
	return nil
}

func (s *Socket) WriteFrame(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(v)
}

func (s *Socket) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}

// IsNormalClosure reports a deliberate close by the peer.
func IsNormalClosure(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}

// IsAuthClosure reports a close frame the backend sends for a bad token.
func IsAuthClosure(err error) bool {
	return websocket.IsCloseError(err, websocket.ClosePolicyViolation, 4001, 4003)
}
