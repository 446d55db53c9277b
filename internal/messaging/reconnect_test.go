package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joshua-takyi/bashbay-client/internal/connect"
	"github.com/joshua-takyi/bashbay-client/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffDoublesToCap(t *testing.T) {
	b := &Backoff{Initial: 3 * time.Second, Max: 30 * time.Second}

	var got []time.Duration
	for i := 0; i < 6; i++ {
		got = append(got, b.Next())
	}
	assert.Equal(t, []time.Duration{
		3 * time.Second, 6 * time.Second, 12 * time.Second,
		24 * time.Second, 30 * time.Second, 30 * time.Second,
	}, got)
	assert.Equal(t, 6, b.Attempts())

	b.Reset()
	assert.Equal(t, 3*time.Second, b.Next())
}

func TestStateText(t *testing.T) {
	text, err := StateReconnecting.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "reconnecting", string(text))
	assert.Equal(t, "disconnected", State(42).String())
}

type stateLog struct {
	mu     sync.Mutex
	states []State
	last   error
}

func (l *stateLog) set(s State, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, s)
	l.last = err
}

type countingRefresher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *countingRefresher) RefreshCredentials(_ context.Context, _ *connect.Credentials, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.err
}

func fastOptions() Options {
	return Options{
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		MaxAttempts:    3,
		TypingTimeout:  5 * time.Second,
		TypingInterval: time.Hour,
	}
}

func testConnector(dial func(context.Context, string) (connect.Conn, error), refresher TokenRefresher, log *stateLog) *connector {
	return &connector{
		name:      "test",
		creds:     connect.NewCredentials("access", "refresh"),
		dial:      dial,
		refresher: refresher,
		opts:      fastOptions(),
		logger:    discardLogger(),
		setState:  log.set,
		attach:    func(connect.Conn) {},
		detach:    func(connect.Conn) {},
		onFrame:   func(models.Frame) {},
	}
}

func TestConnectorGivesUpAfterMaxAttempts(t *testing.T) {
	log := &stateLog{}
	dials := 0
	c := testConnector(func(context.Context, string) (connect.Conn, error) {
		dials++
		return nil, models.ErrNetwork
	}, nil, log)

	c.run(context.Background())

	assert.Equal(t, 4, dials)
	assert.ErrorIs(t, log.last, ErrGaveUp)
	assert.ErrorIs(t, log.last, models.ErrNetwork)
	assert.Equal(t, StateDisconnected, log.states[len(log.states)-1])
	assert.Contains(t, log.states, StateReconnecting)
}

func TestConnectorRefreshesOnceOnAuthFailure(t *testing.T) {
	log := &stateLog{}
	refresher := &countingRefresher{}
	dials := 0
	c := testConnector(func(context.Context, string) (connect.Conn, error) {
		dials++
		return nil, models.ErrAuthExpired
	}, refresher, log)

	c.run(context.Background())

	assert.Equal(t, 2, dials)
	assert.Equal(t, 1, refresher.calls)
	assert.ErrorIs(t, log.last, models.ErrAuthExpired)
}

func TestConnectorStopsWhenRefreshRejected(t *testing.T) {
	log := &stateLog{}
	refresher := &countingRefresher{err: models.ErrAuthExpired}
	dials := 0
	c := testConnector(func(context.Context, string) (connect.Conn, error) {
		dials++
		return nil, models.ErrAuthExpired
	}, refresher, log)

	c.run(context.Background())

	assert.Equal(t, 1, dials)
	assert.ErrorIs(t, log.last, models.ErrAuthExpired)
}

func TestConnectorStopsOnNormalClosure(t *testing.T) {
	log := &stateLog{}
	var frames []models.Frame
	conn := newFakeConn()
	c := testConnector(func(context.Context, string) (connect.Conn, error) {
		return conn, nil
	}, nil, log)
	c.onFrame = func(f models.Frame) { frames = append(frames, f) }

	conn.push(models.Frame{Type: models.FrameTyping, UserID: "u1"})
	conn.closeWith(&websocket.CloseError{Code: websocket.CloseNormalClosure})

	c.run(context.Background())

	require.Len(t, frames, 1)
	assert.Equal(t, models.FrameTyping, frames[0].Type)
	assert.NoError(t, log.last)
	assert.Equal(t, []State{StateConnecting, StateConnected, StateDisconnected}, log.states)
}

func TestConnectorReconnectsAfterDrop(t *testing.T) {
	log := &stateLog{}
	first, second := newFakeConn(), newFakeConn()
	first.closeWith(errors.New("connection reset"))
	second.closeWith(&websocket.CloseError{Code: websocket.CloseGoingAway})

	conns := []*fakeConn{first, second}
	c := testConnector(func(context.Context, string) (connect.Conn, error) {
		next := conns[0]
		conns = conns[1:]
		return next, nil
	}, nil, log)

	c.run(context.Background())

	assert.Empty(t, conns)
	assert.Equal(t, []State{StateConnecting, StateConnected, StateReconnecting, StateConnected, StateDisconnected}, log.states)
}

func TestConnectorAuthClosureTriggersRefresh(t *testing.T) {
	log := &stateLog{}
	refresher := &countingRefresher{}
	first, second := newFakeConn(), newFakeConn()
	first.closeWith(&websocket.CloseError{Code: 4001})
	second.closeWith(&websocket.CloseError{Code: websocket.CloseNormalClosure})

	conns := []*fakeConn{first, second}
	c := testConnector(func(context.Context, string) (connect.Conn, error) {
		next := conns[0]
		conns = conns[1:]
		return next, nil
	}, refresher, log)

	c.run(context.Background())

	assert.Equal(t, 1, refresher.calls)
	assert.Empty(t, conns)
	assert.NoError(t, log.last)
}

func TestConnectorStopsOnCancel(t *testing.T) {
	log := &stateLog{}
	conn := newFakeConn()
	c := testConnector(func(context.Context, string) (connect.Conn, error) {
		return conn, nil
	}, nil, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		log.mu.Lock()
		defer log.mu.Unlock()
		return len(log.states) >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	_ = conn.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("connector did not stop")
	}
	assert.True(t, conn.isClosed())
}
