package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joshua-takyi/bashbay-client/internal/connect"
	"github.com/joshua-takyi/bashbay-client/internal/models"
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Options tune the reconnect policy and typing behaviour.
type Options struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxAttempts    int
	TypingTimeout  time.Duration
	TypingInterval time.Duration
}

func DefaultOptions() Options {
	return Options{
		InitialBackoff: 3 * time.Second,
		MaxBackoff:     30 * time.Second,
		MaxAttempts:    10,
		TypingTimeout:  5 * time.Second,
		TypingInterval: 2 * time.Second,
	}
}

// Backoff doubles the delay after each failed attempt up to Max.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
	attempt int
}

func (b *Backoff) Next() time.Duration {
	d := b.Initial
	for i := 0; i < b.attempt && d < b.Max; i++ {
		d *= 2
	}
	if d > b.Max {
		d = b.Max
	}
	b.attempt++
	return d
}

func (b *Backoff) Attempts() int { return b.attempt }

func (b *Backoff) Reset() { b.attempt = 0 }

// ErrGaveUp is the terminal error once reconnect attempts are exhausted.
var ErrGaveUp = fmt.Errorf("%w: realtime connection lost", models.ErrNetwork)

// TokenRefresher rotates credentials after the socket handshake was
// rejected.
type TokenRefresher interface {
	RefreshCredentials(ctx context.Context, creds *connect.Credentials, staleToken string) error
}

// connector owns one socket's lifecycle: dial, read until the socket drops,
// back off and redial. It stops on a normal close, on context cancellation,
// on an auth failure that a refresh did not cure, or when attempts run out.
type connector struct {
	name      string
	creds     *connect.Credentials
	dial      func(ctx context.Context, token string) (connect.Conn, error)
	refresher TokenRefresher
	opts      Options
	logger    *slog.Logger

	setState  func(State, error)
	attach    func(connect.Conn)
	detach    func(connect.Conn)
	onFrame   func(models.Frame)
	firstDial func()
}

func (c *connector) run(ctx context.Context) {
	backoff := &Backoff{Initial: c.opts.InitialBackoff, Max: c.opts.MaxBackoff}
	refreshed := false
	first := true
	c.setState(StateConnecting, nil)

	for {
		token := c.creds.AccessToken()
		conn, err := c.dial(ctx, token)
		if first {
			first = false
			if c.firstDial != nil {
				c.firstDial()
			}
		}

		if err == nil {
			backoff.Reset()
			refreshed = false
			c.attach(conn)
			c.setState(StateConnected, nil)
			c.logger.Info("socket connected", "socket", c.name)

			err = c.read(conn)
			c.detach(conn)
			_ = conn.Close()

			if ctx.Err() != nil {
				return
			}
			if connect.IsNormalClosure(err) {
				c.logger.Info("socket closed by server", "socket", c.name)
				c.setState(StateDisconnected, nil)
				return
			}
		}
		if ctx.Err() != nil {
			return
		}

		if errors.Is(err, models.ErrAuthExpired) || connect.IsAuthClosure(err) {
			if refreshed || c.refresher == nil {
				c.setState(StateDisconnected, fmt.Errorf("%w: socket rejected credentials", models.ErrAuthExpired))
				return
			}
			refreshed = true
			if rerr := c.refresher.RefreshCredentials(ctx, c.creds, token); rerr != nil {
				if errors.Is(rerr, models.ErrAuthExpired) {
					c.setState(StateDisconnected, rerr)
					return
				}
				err = rerr
			} else {
				continue
			}
		}

		if backoff.Attempts() >= c.opts.MaxAttempts {
			c.logger.Warn("giving up on socket", "socket", c.name, "attempts", backoff.Attempts(), "error", err)
			c.setState(StateDisconnected, ErrGaveUp)
			return
		}
		delay := backoff.Next()
		c.setState(StateReconnecting, nil)
		c.logger.Warn("socket dropped, reconnecting",
			"socket", c.name,
			"attempt", backoff.Attempts(),
			"delay", delay,
			"error", err,
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (c *connector) read(conn connect.Conn) error {
	for {
		var frame models.Frame
		if err := conn.ReadFrame(&frame); err != nil {
			var frameErr *connect.FrameError
			if errors.As(err, &frameErr) {
				c.logger.Warn("dropping malformed frame", "socket", c.name, "error", err)
				continue
			}
			return err
		}
		c.onFrame(frame)
	}
}
