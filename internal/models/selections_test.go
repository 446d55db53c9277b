package models

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySelectionRepo(t *testing.T) {
	repo := NewMemorySelectionRepo(time.Minute)
	ctx := context.Background()
	key := SelectionKey{UserID: "u1", VenueID: uuid.New(), Date: "2024-01-01"}

	empty, err := repo.GetSelection(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, empty)

	set := SelectionSet{NewSlot(540, 600), NewSlot(600, 660)}
	require.NoError(t, repo.SaveSelection(ctx, key, set))

	got, err := repo.GetSelection(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, set, got)

	// the stored copy is not aliased
	got[0] = NewSlot(0, 60)
	again, _ := repo.GetSelection(ctx, key)
	assert.Equal(t, set, again)

	other := key
	other.Date = "2024-01-02"
	none, err := repo.GetSelection(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, repo.DeleteSelection(ctx, key))
	got, err = repo.GetSelection(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemorySelectionRepoExpires(t *testing.T) {
	repo := NewMemorySelectionRepo(30 * time.Minute)
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	ctx := context.Background()
	key := SelectionKey{UserID: "u1", VenueID: uuid.New(), Date: "2024-01-01"}

	require.NoError(t, repo.SaveSelection(ctx, key, SelectionSet{NewSlot(540, 600)}))

	now = now.Add(29 * time.Minute)
	got, _ := repo.GetSelection(ctx, key)
	assert.Len(t, got, 1)

	// saving again pushes the expiry out
	require.NoError(t, repo.SaveSelection(ctx, key, SelectionSet{NewSlot(540, 600), NewSlot(600, 660)}))
	now = now.Add(29 * time.Minute)
	got, _ = repo.GetSelection(ctx, key)
	assert.Len(t, got, 2)

	now = now.Add(2 * time.Minute)
	got, _ = repo.GetSelection(ctx, key)
	assert.Empty(t, got)
}

func TestSaveEmptySelectionDeletes(t *testing.T) {
	repo := NewMemorySelectionRepo(time.Minute)
	ctx := context.Background()
	key := SelectionKey{UserID: "u1", VenueID: uuid.New(), Date: "2024-01-01"}

	require.NoError(t, repo.SaveSelection(ctx, key, SelectionSet{NewSlot(540, 600)}))
	require.NoError(t, repo.SaveSelection(ctx, key, SelectionSet{}))

	got, _ := repo.GetSelection(ctx, key)
	assert.Empty(t, got)
}

func TestSlotHelpers(t *testing.T) {
	s := NewSlot(540, 600)
	assert.Equal(t, "09:00-10:00", s.Label)

	assert.True(t, s.Overlaps(570, 630))
	assert.False(t, s.Overlaps(600, 660))
	assert.False(t, s.Overlaps(480, 540))

	start, end, ok := SelectionSet{NewSlot(600, 660), s}.Span()
	require.True(t, ok)
	assert.Equal(t, 540, start)
	assert.Equal(t, 660, end)

	_, _, ok = SelectionSet{}.Span()
	assert.False(t, ok)
}
