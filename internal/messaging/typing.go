package messaging

import (
	"sort"
	"time"

	"github.com/joshua-takyi/bashbay-client/internal/models"
)

type typingEntry struct {
	username string
	expires  time.Time
}

// TypingTracker is the ephemeral set of users currently typing. An entry
// lapses after timeout without a fresh typing:true. Not safe for
// concurrent use.
type TypingTracker struct {
	timeout time.Duration
	now     func() time.Time
	users   map[string]typingEntry
}

func NewTypingTracker(timeout time.Duration) *TypingTracker {
	return &TypingTracker{
		timeout: timeout,
		now:     time.Now,
		users:   make(map[string]typingEntry),
	}
}

// Set records a typing frame and reports whether the visible set changed.
func (t *TypingTracker) Set(userID, username string, typing bool) bool {
	if userID == "" {
		return false
	}
	_, present := t.users[userID]
	if !typing {
		delete(t.users, userID)
		return present
	}
	t.users[userID] = typingEntry{username: username, expires: t.now().Add(t.timeout)}
	return !present
}

// Expire drops lapsed entries and reports whether any were removed.
func (t *TypingTracker) Expire() bool {
	now := t.now()
	removed := false
	for id, e := range t.users {
		if !now.Before(e.expires) {
			delete(t.users, id)
			removed = true
		}
	}
	return removed
}

// Active lists the typing users ordered by username.
func (t *TypingTracker) Active() []models.TypingUser {
	now := t.now()
	out := make([]models.TypingUser, 0, len(t.users))
	for id, e := range t.users {
		if now.Before(e.expires) {
			out = append(out, models.TypingUser{UserID: id, Username: e.username})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Username != out[j].Username {
			return out[i].Username < out[j].Username
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}
