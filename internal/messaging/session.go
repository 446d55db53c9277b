package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/joshua-takyi/bashbay-client/internal/connect"
	"github.com/joshua-takyi/bashbay-client/internal/models"
	"golang.org/x/time/rate"
)

// ErrNotConnected is returned for outbound frames while the socket is down.
var ErrNotConnected = fmt.Errorf("%w: conversation is not connected", models.ErrNetwork)

type ConversationDialer interface {
	DialConversation(ctx context.Context, conversationID, token string) (connect.Conn, error)
}

type HistoryClient interface {
	ListMessages(ctx context.Context, conversationID, cursor string) (connect.Page[models.Message], error)
}

// Snapshot is a point-in-time copy of a session's view state.
type Snapshot struct {
	ConversationID string              `json:"conversation_id"`
	State          State               `json:"state"`
	Error          string              `json:"error,omitempty"`
	Messages       []models.Message    `json:"messages"`
	Typing         []models.TypingUser `json:"typing"`
	Presence       []models.Presence   `json:"presence"`
	HasMore        bool                `json:"has_more"`
}

// Session is the live view of one conversation: a socket kept connected
// with backoff, merged history and push events, typing and presence.
type Session struct {
	conversationID string
	selfID         string
	creds          *connect.Credentials
	history        HistoryClient
	logger         *slog.Logger

	mu            sync.Mutex
	state         State
	err           error
	conn          connect.Conn
	timeline      *Timeline
	typing        *TypingTracker
	presence      map[string]models.Presence
	cursor        string
	historyLoaded bool
	receipts      []string
	receiptSent   map[string]bool

	typingLimit *rate.Limiter
	subs        *notifier
	connector   *connector

	ctx       context.Context
	cancel    context.CancelFunc
	dialed    chan struct{}
	loaded    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newSession(conversationID, selfID string, creds *connect.Credentials, dialer ConversationDialer,
	history HistoryClient, refresher TokenRefresher, opts Options, logger *slog.Logger) *Session {
	s := &Session{
		conversationID: conversationID,
		selfID:         selfID,
		creds:          creds,
		history:        history,
		logger:         logger.With("conversation_id", conversationID),
		timeline:       NewTimeline(),
		typing:         NewTypingTracker(opts.TypingTimeout),
		presence:       make(map[string]models.Presence),
		receiptSent:    make(map[string]bool),
		typingLimit:    rate.NewLimiter(rate.Every(opts.TypingInterval), 1),
		subs:           newNotifier(),
		dialed:         make(chan struct{}),
		loaded:         make(chan struct{}),
		done:           make(chan struct{}),
	}
	var dialOnce sync.Once
	s.connector = &connector{
		name:  "chat:" + conversationID,
		creds: creds,
		dial: func(ctx context.Context, token string) (connect.Conn, error) {
			return dialer.DialConversation(ctx, conversationID, token)
		},
		refresher: refresher,
		opts:      opts,
		logger:    s.logger,
		setState:  s.setState,
		attach:    s.attach,
		detach:    s.detach,
		onFrame:   s.handleFrame,
		firstDial: func() { dialOnce.Do(func() { close(s.dialed) }) },
	}
	return s
}

// start dials the socket and fetches the latest history page concurrently.
func (s *Session) start() {
	s.ctx, s.cancel = context.WithCancel(connect.ContextWithCredentials(context.Background(), s.creds))

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		s.connector.run(s.ctx)
	}()
	go func() {
		defer wg.Done()
		defer close(s.loaded)
		if _, err := s.loadPage(s.ctx, ""); err != nil && s.ctx.Err() == nil {
			s.logger.Warn("failed to load message history", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		s.expireTyping()
	}()
	go func() {
		wg.Wait()
		close(s.done)
	}()
}

func (s *Session) ConversationID() string { return s.conversationID }

// Ready waits until the first dial attempt finished and the first history
// page was merged, or ctx ends.
func (s *Session) Ready(ctx context.Context) error {
	for _, ch := range []chan struct{}{s.dialed, s.loaded} {
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		}
	}
	return nil
}

// Done is closed once the session stopped for good.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err is the reason the session ended, if it ended abnormally.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Subscribe returns a channel signalled after every visible change. Signals
// coalesce; call Snapshot to read the state.
func (s *Session) Subscribe() (<-chan struct{}, func()) {
	return s.subs.subscribe()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ConversationID: s.conversationID,
		State:          s.state,
		Messages:       s.timeline.Messages(),
		Typing:         s.typing.Active(),
		Presence:       make([]models.Presence, 0, len(s.presence)),
		HasMore:        s.cursor != "",
	}
	if s.err != nil {
		snap.Error = s.err.Error()
	}
	for _, p := range s.presence {
		snap.Presence = append(snap.Presence, p)
	}
	sort.Slice(snap.Presence, func(i, j int) bool { return snap.Presence[i].UserID < snap.Presence[j].UserID })
	return snap
}

// LoadOlder merges the next page of history. It reports whether more pages
// remain.
func (s *Session) LoadOlder(ctx context.Context) (bool, error) {
	s.mu.Lock()
	cursor, loaded := s.cursor, s.historyLoaded
	s.mu.Unlock()

	if loaded && cursor == "" {
		return false, nil
	}
	return s.loadPage(ctx, cursor)
}

func (s *Session) loadPage(ctx context.Context, cursor string) (bool, error) {
	page, err := s.history.ListMessages(ctx, s.conversationID, cursor)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	changed := false
	for _, m := range page.Items {
		if s.timeline.Insert(m) {
			changed = true
		}
		if m.SenderID != s.selfID && !m.ReadByUser(s.selfID) && !s.receiptSent[m.ID] {
			s.receiptSent[m.ID] = true
			s.receipts = append(s.receipts, m.ID)
		}
	}
	// a stale first page must not rewind a cursor LoadOlder already advanced
	if cursor != "" || !s.historyLoaded {
		s.cursor = page.Next
	}
	s.historyLoaded = true
	hasMore := s.cursor != ""
	s.mu.Unlock()

	s.flushReceipts()
	if changed {
		s.subs.notify()
	}
	return hasMore, nil
}

// flushReceipts sends queued read receipts if connected. Failures are
// logged and dropped.
func (s *Session) flushReceipts() {
	s.mu.Lock()
	conn := s.conn
	if conn == nil || len(s.receipts) == 0 {
		s.mu.Unlock()
		return
	}
	ids := s.receipts
	s.receipts = nil
	s.mu.Unlock()

	for _, id := range ids {
		if err := conn.WriteFrame(models.Frame{Type: models.FrameReadReceipt, MessageID: id}); err != nil {
			s.logger.Debug("read receipt not sent", "message_id", id, "error", err)
		}
	}
}

func (s *Session) Send(content, replyTo string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return fmt.Errorf("%w: message is empty", models.ErrValidation)
	}
	return s.write(models.Frame{Type: models.FrameMessage, Content: content, ReplyTo: replyTo})
}

func (s *Session) Edit(messageID, content string) error {
	content = strings.TrimSpace(content)
	if messageID == "" || content == "" {
		return fmt.Errorf("%w: message id and content are required", models.ErrValidation)
	}
	return s.write(models.Frame{Type: models.FrameEditMessage, MessageID: messageID, Content: content})
}

func (s *Session) React(messageID, reaction string) error {
	if messageID == "" || reaction == "" {
		return fmt.Errorf("%w: message id and reaction are required", models.ErrValidation)
	}
	return s.write(models.Frame{Type: models.FrameReaction, MessageID: messageID, Reaction: reaction})
}

func (s *Session) RemoveReaction(messageID, reaction string) error {
	if messageID == "" {
		return fmt.Errorf("%w: message id is required", models.ErrValidation)
	}
	return s.write(models.Frame{Type: models.FrameRemoveReaction, MessageID: messageID, Reaction: reaction})
}

// SetTyping announces the local user's typing state. typing:true frames are
// throttled; typing:false always goes out.
func (s *Session) SetTyping(typing bool) error {
	if typing && !s.typingLimit.Allow() {
		return nil
	}
	return s.write(models.Frame{Type: models.FrameTyping, IsTyping: &typing})
}

func (s *Session) write(f models.Frame) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	if err := conn.WriteFrame(f); err != nil {
		return fmt.Errorf("%w: send %s: %v", models.ErrNetwork, f.Type, err)
	}
	return nil
}

// Close stops the session and waits for its goroutines.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		<-s.done
		s.setState(StateDisconnected, nil)
		s.subs.close()
	})
}

func (s *Session) setState(state State, err error) {
	s.mu.Lock()
	if s.state == state && err == nil {
		s.mu.Unlock()
		return
	}
	s.state = state
	if err != nil || state == StateConnected {
		s.err = err
	}
	s.mu.Unlock()
	s.subs.notify()
}

func (s *Session) attach(conn connect.Conn) {
	s.mu.Lock()
	s.conn = conn
	// Close may have run between dial and attach
	if s.ctx.Err() != nil {
		_ = conn.Close()
	}
	s.mu.Unlock()
	s.flushReceipts()
}

func (s *Session) detach(conn connect.Conn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
}

func (s *Session) handleFrame(f models.Frame) {
	s.mu.Lock()
	changed := false
	switch f.Type {
	case models.FrameMessage:
		msg, ok := messageFromFrame(f)
		if !ok {
			s.logger.Warn("message frame without a message", "message_id", f.MessageID)
			break
		}
		changed = s.timeline.Insert(msg)
		// a new message ends the sender's typing
		if s.typing.Set(msg.SenderID, "", false) {
			changed = true
		}
	case models.FrameEditMessage, models.FrameReaction, models.FrameRemoveReaction, models.FrameReadReceipt:
		changed = s.timeline.Apply(f)
	case models.FrameTyping:
		if f.UserID != s.selfID {
			changed = s.typing.Set(f.UserID, f.Username, f.IsTyping == nil || *f.IsTyping)
		}
	case models.FrameUserStatus:
		changed = s.updatePresence(f)
	default:
		s.logger.Debug("ignoring frame", "type", f.Type)
	}
	s.mu.Unlock()

	if changed {
		s.subs.notify()
	}
}

// messageFromFrame accepts both the nested {message: {...}} form and a flat
// frame carrying message_id, content and timestamp.
func messageFromFrame(f models.Frame) (models.Message, bool) {
	if f.Message != nil {
		return *f.Message, f.Message.ID != ""
	}
	if f.MessageID == "" || f.Timestamp == nil {
		return models.Message{}, false
	}
	return models.Message{
		ID:        f.MessageID,
		Content:   f.Content,
		SenderID:  f.UserID,
		CreatedAt: *f.Timestamp,
		ReplyToID: f.ReplyTo,
	}, true
}

func (s *Session) updatePresence(f models.Frame) bool {
	if f.UserID == "" {
		return false
	}
	p := models.Presence{UserID: f.UserID, Online: f.Status == "online"}
	if f.Timestamp != nil {
		p.LastSeen = *f.Timestamp
	}
	if old, ok := s.presence[f.UserID]; ok && old == p {
		return false
	}
	s.presence[f.UserID] = p
	return true
}

func (s *Session) expireTyping() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			removed := s.typing.Expire()
			s.mu.Unlock()
			if removed {
				s.subs.notify()
			}
		}
	}
}
