// Package mongo adapts domain.PreferenceStore, domain.TokenStore and
// domain.NotificationStore onto the MongoDB document store.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionNotifications = "user_notifications"
	CollectionPreferences   = "user_notification_settings"
	CollectionTokens        = "user_fcm_tokens"
)

// Store wraps a *mongo.Database and exposes the three collections the core
// pipeline reads/writes through.
type Store struct {
	db *mongo.Database
}

// Connect dials the document store and pings it, failing fast if either
// step errors rather than deferring the failure to the first query.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &Store{db: client.Database(database)}, nil
}

func (s *Store) notifications() *mongo.Collection { return s.db.Collection(CollectionNotifications) }
func (s *Store) preferences() *mongo.Collection    { return s.db.Collection(CollectionPreferences) }
func (s *Store) tokens() *mongo.Collection         { return s.db.Collection(CollectionTokens) }

// Disconnect tears down the underlying client.
func (s *Store) Disconnect(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}
