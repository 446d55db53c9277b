package messaging

import (
	"context"
	"log/slog"
	"sync"

	"github.com/joshua-takyi/bashbay-client/internal/connect"
	"github.com/joshua-takyi/bashbay-client/internal/models"
)

type ListDialer interface {
	DialConversationList(ctx context.Context, token string) (connect.Conn, error)
}

type ConversationLister interface {
	ListConversations(ctx context.Context) ([]models.Conversation, error)
}

type FeedSnapshot struct {
	State         State                 `json:"state"`
	Error         string                `json:"error,omitempty"`
	Conversations []models.Conversation `json:"conversations"`
}

// Feed keeps the user's conversation list current over its own socket.
// Every chat_list frame replaces the list wholesale. A REST load that was
// in flight when a frame arrived is discarded.
type Feed struct {
	lister ConversationLister
	logger *slog.Logger

	mu            sync.Mutex
	state         State
	err           error
	conn          connect.Conn
	conversations []models.Conversation
	pushes        uint64

	subs      *notifier
	connector *connector
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

func newFeed(creds *connect.Credentials, dialer ListDialer, lister ConversationLister,
	refresher TokenRefresher, opts Options, logger *slog.Logger) *Feed {
	f := &Feed{
		lister:        lister,
		logger:        logger,
		conversations: []models.Conversation{},
		subs:          newNotifier(),
		done:          make(chan struct{}),
	}
	f.connector = &connector{
		name:      "chat-list",
		creds:     creds,
		dial:      dialer.DialConversationList,
		refresher: refresher,
		opts:      opts,
		logger:    logger,
		setState:  f.setState,
		attach:    f.attach,
		detach:    f.detach,
		onFrame:   f.handleFrame,
	}
	return f
}

func (f *Feed) start(creds *connect.Credentials) {
	f.ctx, f.cancel = context.WithCancel(connect.ContextWithCredentials(context.Background(), creds))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		f.connector.run(f.ctx)
	}()
	go func() {
		defer wg.Done()
		if err := f.Refresh(f.ctx); err != nil && f.ctx.Err() == nil {
			f.logger.Warn("failed to load conversations", "error", err)
		}
	}()
	go func() {
		wg.Wait()
		close(f.done)
	}()
}

// Refresh reloads the list over REST.
func (f *Feed) Refresh(ctx context.Context) error {
	f.mu.Lock()
	seen := f.pushes
	f.mu.Unlock()

	conversations, err := f.lister.ListConversations(ctx)
	if err != nil {
		return err
	}

	f.mu.Lock()
	stale := f.pushes != seen
	if !stale {
		f.conversations = nonNil(conversations)
	}
	f.mu.Unlock()
	if stale {
		f.logger.Debug("dropping conversation list superseded by push")
		return nil
	}
	f.subs.notify()
	return nil
}

func (f *Feed) Subscribe() (<-chan struct{}, func()) {
	return f.subs.subscribe()
}

func (f *Feed) Done() <-chan struct{} { return f.done }

func (f *Feed) Snapshot() FeedSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := FeedSnapshot{
		State:         f.state,
		Conversations: append([]models.Conversation(nil), f.conversations...),
	}
	if f.err != nil {
		snap.Error = f.err.Error()
	}
	return snap
}

func (f *Feed) Close() {
	f.closeOnce.Do(func() {
		f.cancel()
		f.mu.Lock()
		conn := f.conn
		f.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		<-f.done
		f.setState(StateDisconnected, nil)
		f.subs.close()
	})
}

func (f *Feed) attach(conn connect.Conn) {
	f.mu.Lock()
	f.conn = conn
	if f.ctx.Err() != nil {
		_ = conn.Close()
	}
	f.mu.Unlock()
}

func (f *Feed) detach(conn connect.Conn) {
	f.mu.Lock()
	if f.conn == conn {
		f.conn = nil
	}
	f.mu.Unlock()
}

func (f *Feed) handleFrame(frame models.Frame) {
	if frame.Type != models.FrameChatList {
		return
	}
	f.mu.Lock()
	f.pushes++
	f.conversations = nonNil(frame.Conversations)
	f.mu.Unlock()
	f.subs.notify()
}

func nonNil(conversations []models.Conversation) []models.Conversation {
	if conversations == nil {
		return []models.Conversation{}
	}
	return conversations
}

func (f *Feed) setState(state State, err error) {
	f.mu.Lock()
	f.state = state
	if err != nil || state == StateConnected {
		f.err = err
	}
	f.mu.Unlock()
	f.subs.notify()
}
