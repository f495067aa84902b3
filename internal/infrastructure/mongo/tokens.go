package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/raidenx/notify-pipeline/internal/domain"
)

type tokenDoc struct {
	UserID    string `bson:"userId"`
	DeviceID  string `bson:"deviceId"`
	Token     string `bson:"token"`
	Platform  string `bson:"platform"`
	Status    string `bson:"status"`
	CreatedAt int64  `bson:"createdAt"`
	UpdatedAt int64  `bson:"updatedAt"`
}

// TokenStore implements domain.TokenStore, plus the upsert/deactivate
// operations the admin surface needs.
type TokenStore struct {
	store *Store
}

func NewTokenStore(s *Store) *TokenStore {
	return &TokenStore{store: s}
}

func (t *TokenStore) FindAllActive(ctx context.Context) (map[string][]string, error) {
	cur, err := t.store.tokens().Find(ctx, bson.M{"status": string(domain.DeviceTokenActive)})
	if err != nil {
		return nil, fmt.Errorf("find all active tokens: %w", err)
	}
	defer cur.Close(ctx)

	out := make(map[string][]string)
	for cur.Next(ctx) {
		var doc tokenDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode token doc: %w", err)
		}
		out[doc.UserID] = append(out[doc.UserID], doc.Token)
	}
	return out, cur.Err()
}

func (t *TokenStore) FindActiveByUserID(ctx context.Context, userID string) ([]string, error) {
	cur, err := t.store.tokens().Find(ctx, bson.M{
		"userId": userID,
		"status": string(domain.DeviceTokenActive),
	})
	if err != nil {
		return nil, fmt.Errorf("find active tokens by user: %w", err)
	}
	defer cur.Close(ctx)

	var tokens []string
	for cur.Next(ctx) {
		var doc tokenDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode token doc: %w", err)
		}
		tokens = append(tokens, doc.Token)
	}
	return tokens, cur.Err()
}

// Upsert creates or refreshes a device's token row. A new token for the
// same device_id supersedes the prior row, implemented as a Mongo upsert
// keyed on device_id.
func (t *TokenStore) Upsert(ctx context.Context, userID, deviceID, token, platform string, now int64) error {
	filter := bson.M{"deviceId": deviceID}
	update := bson.M{
		"$set": bson.M{
			"userId":    userID,
			"deviceId":  deviceID,
			"token":     token,
			"platform":  platform,
			"status":    string(domain.DeviceTokenActive),
			"updatedAt": now,
		},
		"$setOnInsert": bson.M{
			"createdAt": now,
		},
	}
	_, err := t.store.tokens().UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert fcm token: %w", err)
	}
	return nil
}

// Deactivate flips a device's token row to Inactive rather than deleting
// it, preserving history for audit/debugging.
func (t *TokenStore) Deactivate(ctx context.Context, userID, deviceID string, now int64) error {
	filter := bson.M{"deviceId": deviceID, "userId": userID}
	update := bson.M{"$set": bson.M{"status": string(domain.DeviceTokenInactive), "updatedAt": now}}
	res, err := t.store.tokens().UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("deactivate fcm token: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("no fcm token found for user_id=%s device_id=%s", userID, deviceID)
	}
	return nil
}

// TokenForDeactivation is a narrow read the admin surface needs to resolve
// the token value it must publish as a Remove invalidation.
func (t *TokenStore) TokenForDeactivation(ctx context.Context, userID, deviceID string) (string, error) {
	var doc tokenDoc
	err := t.store.tokens().FindOne(ctx, bson.M{"deviceId": deviceID, "userId": userID}).Decode(&doc)
	if err != nil {
		return "", fmt.Errorf("find token for deactivation: %w", err)
	}
	return doc.Token, nil
}
