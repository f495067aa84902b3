package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/raidenx/notify-pipeline/internal/domain"
)

type preferenceDoc struct {
	UserID       string `bson:"userId"`
	Account      bool   `bson:"account"`
	Announcement bool   `bson:"announcement"`
	Campaign     bool   `bson:"campaign"`
	Transaction  bool   `bson:"transaction"`
}

// PreferenceStore implements domain.PreferenceStore.
type PreferenceStore struct {
	store *Store
}

func NewPreferenceStore(s *Store) *PreferenceStore {
	return &PreferenceStore{store: s}
}

func (p *PreferenceStore) FindAll(ctx context.Context) (map[string]domain.Preferences, error) {
	cur, err := p.store.preferences().Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("find all preferences: %w", err)
	}
	defer cur.Close(ctx)

	out := make(map[string]domain.Preferences)
	for cur.Next(ctx) {
		var doc preferenceDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode preference doc: %w", err)
		}
		out[doc.UserID] = domain.Preferences{
			Announcement: doc.Announcement,
			Account:      doc.Account,
			Campaign:     doc.Campaign,
			Transaction:  doc.Transaction,
		}
	}
	return out, cur.Err()
}

func (p *PreferenceStore) FindByUserIDs(ctx context.Context, userIDs []string) (map[string]domain.Preferences, error) {
	if len(userIDs) == 0 {
		return map[string]domain.Preferences{}, nil
	}

	cur, err := p.store.preferences().Find(ctx, bson.M{"userId": bson.M{"$in": userIDs}})
	if err != nil {
		return nil, fmt.Errorf("find preferences by user ids: %w", err)
	}
	defer cur.Close(ctx)

	out := make(map[string]domain.Preferences, len(userIDs))
	for cur.Next(ctx) {
		var doc preferenceDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode preference doc: %w", err)
		}
		out[doc.UserID] = domain.Preferences{
			Announcement: doc.Announcement,
			Account:      doc.Account,
			Campaign:     doc.Campaign,
			Transaction:  doc.Transaction,
		}
	}
	return out, cur.Err()
}

// Upsert writes a user's preference row, used by the admin surface (the
// core pipeline only ever reads preferences).
func (p *PreferenceStore) Upsert(ctx context.Context, userID string, prefs domain.Preferences) error {
	filter := bson.M{"userId": userID}
	update := bson.M{"$set": preferenceDoc{
		UserID:       userID,
		Account:      prefs.Account,
		Announcement: prefs.Announcement,
		Campaign:     prefs.Campaign,
		Transaction:  prefs.Transaction,
	}}
	_, err := p.store.preferences().UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert preferences: %w", err)
	}
	return nil
}
