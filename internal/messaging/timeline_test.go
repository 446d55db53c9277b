package messaging

import (
	"testing"
	"time"

	"github.com/joshua-takyi/bashbay-client/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func msg(id string, offset time.Duration) models.Message {
	return models.Message{ID: id, Content: "hello " + id, SenderID: "u-other", CreatedAt: t0.Add(offset)}
}

func ids(msgs []models.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func TestTimelineOrdersByCreation(t *testing.T) {
	tl := NewTimeline()
	tl.Insert(msg("c", 2*time.Minute))
	tl.Insert(msg("a", 0))
	tl.Insert(msg("b", time.Minute))
	// same timestamp falls back to id
	tl.Insert(msg("a2", 0))

	assert.Equal(t, []string{"a", "a2", "b", "c"}, ids(tl.Messages()))
}

func TestTimelineInsertIsIdempotent(t *testing.T) {
	tl := NewTimeline()
	assert.True(t, tl.Insert(msg("a", 0)))
	assert.False(t, tl.Insert(msg("a", 0)))
	assert.Equal(t, 1, tl.Len())
	assert.False(t, tl.Insert(models.Message{}))
}

func TestTimelineReactionOncePerUser(t *testing.T) {
	tl := NewTimeline()
	tl.Insert(msg("m1", 0))

	react := models.Frame{Type: models.FrameReaction, MessageID: "m1", UserID: "u1", Reaction: "👍"}
	assert.True(t, tl.Apply(react))
	assert.False(t, tl.Apply(react))

	m, ok := tl.Get("m1")
	require.True(t, ok)
	assert.Equal(t, []models.Reaction{{UserID: "u1", Reaction: "👍"}}, m.Reactions)

	// a different reaction from the same user replaces the first
	assert.True(t, tl.Apply(models.Frame{Type: models.FrameReaction, MessageID: "m1", UserID: "u1", Reaction: "❤️"}))
	m, _ = tl.Get("m1")
	assert.Equal(t, []models.Reaction{{UserID: "u1", Reaction: "❤️"}}, m.Reactions)
}

func TestTimelineRemoveReaction(t *testing.T) {
	tl := NewTimeline()
	tl.Insert(msg("m1", 0))
	tl.Apply(models.Frame{Type: models.FrameReaction, MessageID: "m1", UserID: "u1", Reaction: "👍"})
	tl.Apply(models.Frame{Type: models.FrameReaction, MessageID: "m1", UserID: "u2", Reaction: "👍"})

	// mismatched reaction is a no-op
	assert.False(t, tl.Apply(models.Frame{Type: models.FrameRemoveReaction, MessageID: "m1", UserID: "u1", Reaction: "❤️"}))
	assert.True(t, tl.Apply(models.Frame{Type: models.FrameRemoveReaction, MessageID: "m1", UserID: "u1", Reaction: "👍"}))
	assert.False(t, tl.Apply(models.Frame{Type: models.FrameRemoveReaction, MessageID: "m1", UserID: "u1", Reaction: "👍"}))

	m, _ := tl.Get("m1")
	assert.Equal(t, []models.Reaction{{UserID: "u2", Reaction: "👍"}}, m.Reactions)
}

func TestTimelineReadReceiptOnce(t *testing.T) {
	tl := NewTimeline()
	tl.Insert(msg("m1", 0))
	ts := t0.Add(time.Hour)

	receipt := models.Frame{Type: models.FrameReadReceipt, MessageID: "m1", UserID: "u1", Timestamp: &ts}
	assert.True(t, tl.Apply(receipt))
	assert.False(t, tl.Apply(receipt))

	m, _ := tl.Get("m1")
	require.Len(t, m.ReadBy, 1)
	assert.True(t, m.ReadByUser("u1"))
	assert.Equal(t, ts, m.ReadBy[0].Timestamp)
}

func TestTimelineHoldsEventsForUnknownMessage(t *testing.T) {
	tl := NewTimeline()
	edited := t0.Add(time.Minute)

	assert.False(t, tl.Apply(models.Frame{Type: models.FrameEditMessage, MessageID: "m1", Content: "fixed", EditedAt: &edited}))
	assert.False(t, tl.Apply(models.Frame{Type: models.FrameReaction, MessageID: "m1", UserID: "u1", Reaction: "👍"}))
	assert.Equal(t, 2, tl.Pending())

	assert.True(t, tl.Insert(msg("m1", 0)))
	assert.Zero(t, tl.Pending())

	m, _ := tl.Get("m1")
	assert.Equal(t, "fixed", m.Content)
	require.NotNil(t, m.EditedAt)
	assert.Len(t, m.Reactions, 1)
}

func TestTimelinePendingIsBounded(t *testing.T) {
	tl := NewTimeline()
	for i := 0; i < maxPending+10; i++ {
		tl.Apply(models.Frame{Type: models.FrameReaction, MessageID: "ghost", UserID: "u1", Reaction: "x"})
	}
	assert.Equal(t, maxPending, tl.Pending())
}

func TestTimelineKeepsNewestEdit(t *testing.T) {
	tl := NewTimeline()
	tl.Insert(msg("m1", 0))
	newer := t0.Add(2 * time.Minute)
	older := t0.Add(time.Minute)

	assert.True(t, tl.Apply(models.Frame{Type: models.FrameEditMessage, MessageID: "m1", Content: "second", EditedAt: &newer}))
	assert.False(t, tl.Apply(models.Frame{Type: models.FrameEditMessage, MessageID: "m1", Content: "first", EditedAt: &older}))

	m, _ := tl.Get("m1")
	assert.Equal(t, "second", m.Content)
}

func TestTimelineMergesHistoryWithPushedCopy(t *testing.T) {
	tl := NewTimeline()
	pushed := msg("m1", 0)
	tl.Insert(pushed)
	tl.Apply(models.Frame{Type: models.FrameReaction, MessageID: "m1", UserID: "u1", Reaction: "👍"})

	fromHistory := msg("m1", 0)
	fromHistory.Reactions = []models.Reaction{{UserID: "u1", Reaction: "😂"}, {UserID: "u2", Reaction: "👍"}}
	fromHistory.ReadBy = []models.ReadReceipt{{UserID: "u3", Timestamp: t0}}
	assert.True(t, tl.Insert(fromHistory))

	m, _ := tl.Get("m1")
	assert.ElementsMatch(t, []models.Reaction{{UserID: "u1", Reaction: "👍"}, {UserID: "u2", Reaction: "👍"}}, m.Reactions)
	assert.True(t, m.ReadByUser("u3"))
	assert.Equal(t, 1, tl.Len())
}

func TestTimelineEditSurvivesStaleHistoryCopy(t *testing.T) {
	edited := t0.Add(time.Minute)
	edit := models.Frame{Type: models.FrameEditMessage, MessageID: "m1", Content: "edited", EditedAt: &edited}

	editFirst := NewTimeline()
	editFirst.Insert(msg("m1", 0))
	editFirst.Apply(edit)
	assert.False(t, editFirst.Insert(msg("m1", 0)))

	historyFirst := NewTimeline()
	historyFirst.Insert(msg("m1", 0))
	historyFirst.Insert(msg("m1", 0))
	historyFirst.Apply(edit)

	a, _ := editFirst.Get("m1")
	b, _ := historyFirst.Get("m1")
	assert.Equal(t, "edited", a.Content)
	require.NotNil(t, a.EditedAt)
	assert.Equal(t, edited, *a.EditedAt)
	assert.Equal(t, b, a)
}

func TestTimelineHistoryCopyWithNewerEditWins(t *testing.T) {
	tl := NewTimeline()
	tl.Insert(msg("m1", 0))
	first := t0.Add(time.Minute)
	tl.Apply(models.Frame{Type: models.FrameEditMessage, MessageID: "m1", Content: "first", EditedAt: &first})

	later := msg("m1", 0)
	second := t0.Add(2 * time.Minute)
	later.Content = "second"
	later.EditedAt = &second
	assert.True(t, tl.Insert(later))

	m, _ := tl.Get("m1")
	assert.Equal(t, "second", m.Content)
	assert.Equal(t, second, *m.EditedAt)
}

func TestTimelineRemovedReactionStaysRemoved(t *testing.T) {
	stale := msg("m1", 0)
	stale.Reactions = []models.Reaction{{UserID: "u1", Reaction: "x"}}
	remove := models.Frame{Type: models.FrameRemoveReaction, MessageID: "m1", UserID: "u1", Reaction: "x"}

	removeFirst := NewTimeline()
	removeFirst.Insert(stale)
	removeFirst.Apply(remove)
	assert.False(t, removeFirst.Insert(stale))

	historyFirst := NewTimeline()
	historyFirst.Insert(stale)
	historyFirst.Insert(stale)
	historyFirst.Apply(remove)

	a, _ := removeFirst.Get("m1")
	b, _ := historyFirst.Get("m1")
	assert.Empty(t, a.Reactions)
	assert.Equal(t, b.Reactions, a.Reactions)

	// reacting again lifts the removal
	removeFirst.Apply(models.Frame{Type: models.FrameReaction, MessageID: "m1", UserID: "u1", Reaction: "x"})
	removeFirst.Insert(stale)
	m, _ := removeFirst.Get("m1")
	assert.Equal(t, []models.Reaction{{UserID: "u1", Reaction: "x"}}, m.Reactions)
}

func TestTimelineReturnsCopies(t *testing.T) {
	tl := NewTimeline()
	tl.Insert(msg("m1", 0))

	out := tl.Messages()
	out[0].Content = "mutated"
	out[0].Reactions = append(out[0].Reactions, models.Reaction{UserID: "x", Reaction: "y"})

	m, _ := tl.Get("m1")
	assert.Equal(t, "hello m1", m.Content)
	assert.Empty(t, m.Reactions)
}
