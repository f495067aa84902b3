package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/raidenx/notify-pipeline/internal/domain"
)

type notificationDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"userId"`
	Type      string             `bson:"type"`
	Title     string             `bson:"title"`
	Message   string             `bson:"message"`
	CreatedAt int64              `bson:"createdAt"`
	UpdatedAt int64              `bson:"updatedAt"`
	IsRead    bool               `bson:"isRead"`
}

// NotificationStore implements domain.NotificationStore.
type NotificationStore struct {
	store *Store
}

func NewNotificationStore(s *Store) *NotificationStore {
	return &NotificationStore{store: s}
}

// Insert persists a rendered notification record as-is. created_at and
// updated_at are carried from the record, already pinned to the source
// event's timestamp rather than wall clock.
func (n *NotificationStore) Insert(ctx context.Context, rec domain.NotificationRecord) error {
	id := primitive.NewObjectID()
	if rec.ID != "" {
		if parsed, err := primitive.ObjectIDFromHex(rec.ID); err == nil {
			id = parsed
		}
	}
	doc := notificationDoc{
		ID:        id,
		UserID:    rec.UserID,
		Type:      string(rec.Type),
		Title:     rec.Title,
		Message:   rec.Message,
		CreatedAt: rec.CreatedAt.UnixMilli(),
		UpdatedAt: rec.UpdatedAt.UnixMilli(),
		IsRead:    rec.IsRead,
	}
	if _, err := n.store.notifications().InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}
