package messaging

import (
	"sort"
	"time"

	"github.com/joshua-takyi/bashbay-client/internal/models"
)

// maxPending bounds the events held for messages that have not arrived yet.
const maxPending = 512

// Timeline is one conversation's messages ordered by creation time and keyed
// by id. Every merge is idempotent, so history pages and socket events can
// arrive in any order. Timeline is not safe for concurrent use.
type Timeline struct {
	byID    map[string]*models.Message
	order   []string
	pending map[string][]models.Frame
	held    int
	// removed remembers reaction removals per message and user so that an
	// older full copy cannot bring the reaction back.
	removed map[string]map[string]string
}

func NewTimeline() *Timeline {
	return &Timeline{
		byID:    make(map[string]*models.Message),
		pending: make(map[string][]models.Frame),
		removed: make(map[string]map[string]string),
	}
}

func (t *Timeline) Len() int { return len(t.order) }

func (t *Timeline) Get(id string) (models.Message, bool) {
	m, ok := t.byID[id]
	if !ok {
		return models.Message{}, false
	}
	return m.Clone(), true
}

// Messages returns a copy of the ordered list.
func (t *Timeline) Messages() []models.Message {
	out := make([]models.Message, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.byID[id].Clone())
	}
	return out
}

// Pending reports how many events are waiting for their message.
func (t *Timeline) Pending() int { return t.held }

// Insert adds msg, or merges it into the copy already present. Events that
// arrived early for this id are replayed afterwards.
func (t *Timeline) Insert(msg models.Message) bool {
	if msg.ID == "" {
		return false
	}

	changed := false
	if existing, ok := t.byID[msg.ID]; ok {
		changed = t.mergeMessage(existing, msg)
	} else {
		m := msg.Clone()
		t.byID[m.ID] = &m
		t.insertOrdered(m.ID)
		changed = true
	}

	if frames, ok := t.pending[msg.ID]; ok {
		delete(t.pending, msg.ID)
		t.held -= len(frames)
		for _, f := range frames {
			if t.Apply(f) {
				changed = true
			}
		}
	}
	return changed
}

// Apply merges an edit, reaction, reaction removal or read receipt frame.
// A frame for an unknown message is held until that message is inserted.
func (t *Timeline) Apply(f models.Frame) bool {
	m, ok := t.byID[f.MessageID]
	if !ok {
		t.hold(f)
		return false
	}

	switch f.Type {
	case models.FrameEditMessage:
		return applyEdit(m, f.Content, f.EditedAt)
	case models.FrameReaction:
		if byUser, ok := t.removed[m.ID]; ok {
			delete(byUser, f.UserID)
		}
		return upsertReaction(m, f.UserID, f.Reaction)
	case models.FrameRemoveReaction:
		t.markRemoved(m.ID, f.UserID, f.Reaction)
		return removeReaction(m, f.UserID, f.Reaction)
	case models.FrameReadReceipt:
		var ts time.Time
		if f.Timestamp != nil {
			ts = *f.Timestamp
		}
		return addReadReceipt(m, f.UserID, ts)
	}
	return false
}

func (t *Timeline) hold(f models.Frame) {
	if f.MessageID == "" || t.held >= maxPending {
		return
	}
	t.pending[f.MessageID] = append(t.pending[f.MessageID], f)
	t.held++
}

func (t *Timeline) insertOrdered(id string) {
	m := t.byID[id]
	i := sort.Search(len(t.order), func(i int) bool {
		return before(m, t.byID[t.order[i]])
	})
	t.order = append(t.order, "")
	copy(t.order[i+1:], t.order[i:])
	t.order[i] = id
}

func before(a, b *models.Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func (t *Timeline) markRemoved(messageID, userID, reaction string) {
	if userID == "" {
		return
	}
	byUser, ok := t.removed[messageID]
	if !ok {
		byUser = make(map[string]string)
		t.removed[messageID] = byUser
	}
	byUser[userID] = reaction
}

func (t *Timeline) wasRemoved(messageID string, r models.Reaction) bool {
	reaction, ok := t.removed[messageID][r.UserID]
	return ok && (reaction == "" || reaction == r.Reaction)
}

// mergeMessage folds a second full copy of a message into the stored one.
// A copy without an edit timestamp never replaces edited content.
func (t *Timeline) mergeMessage(dst *models.Message, src models.Message) bool {
	changed := false
	switch {
	case src.EditedAt != nil:
		changed = applyEdit(dst, src.Content, src.EditedAt)
	case dst.EditedAt == nil:
		changed = applyEdit(dst, src.Content, nil)
	}
	for _, r := range src.Reactions {
		if t.wasRemoved(dst.ID, r) {
			continue
		}
		if !hasReactionFrom(dst, r.UserID) && upsertReaction(dst, r.UserID, r.Reaction) {
			changed = true
		}
	}
	for _, r := range src.ReadBy {
		if addReadReceipt(dst, r.UserID, r.Timestamp) {
			changed = true
		}
	}
	if dst.ReplyToID == "" && src.ReplyToID != "" {
		dst.ReplyToID = src.ReplyToID
		changed = true
	}
	return changed
}

// applyEdit keeps the newest edit. An edit frame without a timestamp always
// wins.
func applyEdit(m *models.Message, content string, editedAt *time.Time) bool {
	if editedAt != nil && m.EditedAt != nil && editedAt.Before(*m.EditedAt) {
		return false
	}
	changed := false
	if content != "" && content != m.Content {
		m.Content = content
		changed = true
	}
	if editedAt != nil && (m.EditedAt == nil || !editedAt.Equal(*m.EditedAt)) {
		t := *editedAt
		m.EditedAt = &t
		changed = true
	}
	return changed
}

func hasReactionFrom(m *models.Message, userID string) bool {
	for _, r := range m.Reactions {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// upsertReaction stores one reaction per user, replacing any earlier one.
func upsertReaction(m *models.Message, userID, reaction string) bool {
	if userID == "" || reaction == "" {
		return false
	}
	for i, r := range m.Reactions {
		if r.UserID == userID {
			if r.Reaction == reaction {
				return false
			}
			m.Reactions[i].Reaction = reaction
			return true
		}
	}
	m.Reactions = append(m.Reactions, models.Reaction{UserID: userID, Reaction: reaction})
	return true
}

func removeReaction(m *models.Message, userID, reaction string) bool {
	for i, r := range m.Reactions {
		if r.UserID != userID {
			continue
		}
		if reaction != "" && r.Reaction != reaction {
			return false
		}
		m.Reactions = append(m.Reactions[:i], m.Reactions[i+1:]...)
		return true
	}
	return false
}

func addReadReceipt(m *models.Message, userID string, ts time.Time) bool {
	if userID == "" || m.ReadByUser(userID) {
		return false
	}
	m.ReadBy = append(m.ReadBy, models.ReadReceipt{UserID: userID, Timestamp: ts})
	return true
}
