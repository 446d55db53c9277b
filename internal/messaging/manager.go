package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/joshua-takyi/bashbay-client/internal/connect"
	"github.com/joshua-takyi/bashbay-client/internal/models"
)

// Dialer opens both kinds of realtime socket.
type Dialer interface {
	ConversationDialer
	ListDialer
}

// Backend is the REST side the manager needs.
type Backend interface {
	HistoryClient
	ConversationLister
	TokenRefresher
}

type sessionKey struct {
	userID         string
	conversationID string
}

// Manager owns every open session and feed. At most one session exists per
// user and conversation; opening again replaces the previous one.
type Manager struct {
	dialer  Dialer
	backend Backend
	opts    Options
	logger  *slog.Logger

	// openMu serialises Open so a replaced session is closed before its
	// successor dials.
	openMu   sync.Mutex
	mu       sync.Mutex
	sessions map[sessionKey]*Session
	feeds    map[string]*Feed
	closed   bool
}

func NewManager(dialer Dialer, backend Backend, opts Options, logger *slog.Logger) *Manager {
	return &Manager{
		dialer:   dialer,
		backend:  backend,
		opts:     opts,
		logger:   logger,
		sessions: make(map[sessionKey]*Session),
		feeds:    make(map[string]*Feed),
	}
}

var errManagerClosed = fmt.Errorf("%w: messaging is shutting down", models.ErrNetwork)

// Open starts a session for conversationID using the credentials on ctx,
// closing any earlier session for the same user and conversation first.
func (m *Manager) Open(ctx context.Context, userID, conversationID string) (*Session, error) {
	if userID == "" || conversationID == "" {
		return nil, fmt.Errorf("%w: user and conversation are required", models.ErrValidation)
	}
	creds, ok := connect.CredentialsFrom(ctx)
	if !ok {
		return nil, fmt.Errorf("%w: no credentials", models.ErrAuthExpired)
	}

	key := sessionKey{userID: userID, conversationID: conversationID}
	s := newSession(conversationID, userID, creds.Detach(), m.dialer, m.backend, m.backend, m.opts,
		m.logger.With("user_id", userID))

	m.openMu.Lock()
	defer m.openMu.Unlock()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, errManagerClosed
	}
	prev := m.sessions[key]
	delete(m.sessions, key)
	m.mu.Unlock()

	if prev != nil {
		m.logger.Info("replacing conversation session", "user_id", userID, "conversation_id", conversationID)
		prev.Close()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, errManagerClosed
	}
	// start only spawns goroutines, so it is safe under the lock
	s.start()
	m.sessions[key] = s
	return s, nil
}

func (m *Manager) Session(userID, conversationID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionKey{userID: userID, conversationID: conversationID}]
	return s, ok
}

// Close ends the session for the conversation, if open.
func (m *Manager) Close(userID, conversationID string) bool {
	key := sessionKey{userID: userID, conversationID: conversationID}
	m.mu.Lock()
	s, ok := m.sessions[key]
	delete(m.sessions, key)
	m.mu.Unlock()

	if ok {
		s.Close()
	}
	return ok
}

// OpenFeed returns the user's running conversation-list feed, starting a new
// one if none is running.
func (m *Manager) OpenFeed(ctx context.Context, userID string) (*Feed, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user is required", models.ErrValidation)
	}
	creds, ok := connect.CredentialsFrom(ctx)
	if !ok {
		return nil, fmt.Errorf("%w: no credentials", models.ErrAuthExpired)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, errManagerClosed
	}
	prev, ok := m.feeds[userID]
	if ok {
		select {
		case <-prev.Done():
		default:
			m.mu.Unlock()
			return prev, nil
		}
	}
	detached := creds.Detach()
	f := newFeed(detached, m.dialer, m.backend, m.backend, m.opts, m.logger.With("user_id", userID))
	f.start(detached)
	m.feeds[userID] = f
	m.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	return f, nil
}

func (m *Manager) Feed(userID string) (*Feed, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.feeds[userID]
	return f, ok
}

func (m *Manager) CloseFeed(userID string) bool {
	m.mu.Lock()
	f, ok := m.feeds[userID]
	delete(m.feeds, userID)
	m.mu.Unlock()

	if ok {
		f.Close()
	}
	return ok
}

// CloseUser ends every session and the feed belonging to userID.
func (m *Manager) CloseUser(userID string) int {
	m.mu.Lock()
	var sessions []*Session
	for key, s := range m.sessions {
		if key.userID == userID {
			sessions = append(sessions, s)
			delete(m.sessions, key)
		}
	}
	feed, hasFeed := m.feeds[userID]
	delete(m.feeds, userID)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	if hasFeed {
		feed.Close()
	}
	return len(sessions)
}

// Shutdown closes every session and feed and refuses new ones.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.closed = true
	sessions := m.sessions
	feeds := m.feeds
	m.sessions = make(map[sessionKey]*Session)
	m.feeds = make(map[string]*Feed)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			s.Close()
		}(s)
	}
	for _, f := range feeds {
		wg.Add(1)
		go func(f *Feed) {
			defer wg.Done()
			f.Close()
		}(f)
	}
	wg.Wait()
	m.logger.Info("messaging shut down", "sessions", len(sessions), "feeds", len(feeds))
}
