package models

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	SelectionsDbName  = "bashbay"
	SelectionsColName = "selection_drafts"
)

// SelectionKey identifies one user's pending selection for a venue and day.
type SelectionKey struct {
	UserID  string
	VenueID uuid.UUID
	Date    string // YYYY-MM-DD
}

// SelectionDraft is the stored form of a SelectionSet. It is local to this
// client and never mirrors confirmed bookings.
type SelectionDraft struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"user_id"`
	VenueID   string             `bson:"venue_id"`
	Date      string             `bson:"date"`
	Slots     SelectionSet       `bson:"slots"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
	ExpiresAt time.Time          `bson:"expires_at"` // TTL index field
}

type SelectionRepo interface {
	GetSelection(ctx context.Context, key SelectionKey) (SelectionSet, error)
	SaveSelection(ctx context.Context, key SelectionKey, set SelectionSet) error
	DeleteSelection(ctx context.Context, key SelectionKey) error
}

func selectionFilter(key SelectionKey) bson.M {
	return bson.M{
		"user_id":  key.UserID,
		"venue_id": key.VenueID.String(),
		"date":     key.Date,
	}
}

// EnsureSelectionIndexes creates the TTL index that expires abandoned drafts
// and the unique index on the draft key.
func (mdb *MongodbRepo) EnsureSelectionIndexes(ctx context.Context) error {
	col, err := mdb.GetCollection(ctx, SelectionsDbName, SelectionsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().
				SetExpireAfterSeconds(0).
				SetName("expires_at_ttl"),
		},
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "venue_id", Value: 1},
				{Key: "date", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetName("user_venue_date_unique"),
		},
	}

	if _, err := col.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("error creating indexes: %w", err)
	}
	return nil
}

func (mdb *MongodbRepo) GetSelection(ctx context.Context, key SelectionKey) (SelectionSet, error) {
	col, err := mdb.GetCollection(ctx, SelectionsDbName, SelectionsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	var draft SelectionDraft
	err = col.FindOne(ctx, selectionFilter(key)).Decode(&draft)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return SelectionSet{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error finding selection: %w", err)
	}
	// the TTL monitor only runs once a minute
	if time.Now().After(draft.ExpiresAt) {
		return SelectionSet{}, nil
	}
	return draft.Slots, nil
}

func (mdb *MongodbRepo) SaveSelection(ctx context.Context, key SelectionKey, set SelectionSet) error {
	if len(set) == 0 {
		return mdb.DeleteSelection(ctx, key)
	}

	col, err := mdb.GetCollection(ctx, SelectionsDbName, SelectionsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}

	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"slots":      set,
			"updated_at": now,
			"expires_at": now.Add(mdb.draftTTL),
		},
		"$setOnInsert": bson.M{
			"created_at": now,
		},
	}

	_, err = col.UpdateOne(ctx, selectionFilter(key), update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("error saving selection: %w", err)
	}
	return nil
}

func (mdb *MongodbRepo) DeleteSelection(ctx context.Context, key SelectionKey) error {
	col, err := mdb.GetCollection(ctx, SelectionsDbName, SelectionsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}
	if _, err := col.DeleteOne(ctx, selectionFilter(key)); err != nil {
		return fmt.Errorf("error deleting selection: %w", err)
	}
	return nil
}

// MemorySelectionRepo keeps drafts in process memory. Used when no MongoDB
// is configured.
type MemorySelectionRepo struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	drafts map[SelectionKey]SelectionDraft
}

func NewMemorySelectionRepo(ttl time.Duration) *MemorySelectionRepo {
	return &MemorySelectionRepo{
		ttl:    ttl,
		now:    time.Now,
		drafts: make(map[SelectionKey]SelectionDraft),
	}
}

func (m *MemorySelectionRepo) GetSelection(_ context.Context, key SelectionKey) (SelectionSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	draft, ok := m.drafts[key]
	if !ok {
		return SelectionSet{}, nil
	}
	if m.ttl > 0 && m.now().After(draft.ExpiresAt) {
		delete(m.drafts, key)
		return SelectionSet{}, nil
	}
	return append(SelectionSet(nil), draft.Slots...), nil
}

func (m *MemorySelectionRepo) SaveSelection(_ context.Context, key SelectionKey, set SelectionSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(set) == 0 {
		delete(m.drafts, key)
		return nil
	}
	now := m.now()
	draft, ok := m.drafts[key]
	if !ok {
		draft = SelectionDraft{
			UserID:    key.UserID,
			VenueID:   key.VenueID.String(),
			Date:      key.Date,
			CreatedAt: now,
		}
	}
	draft.Slots = append(SelectionSet(nil), set...)
	draft.UpdatedAt = now
	draft.ExpiresAt = now.Add(m.ttl)
	m.drafts[key] = draft
	return nil
}

func (m *MemorySelectionRepo) DeleteSelection(_ context.Context, key SelectionKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, key)
	return nil
}
