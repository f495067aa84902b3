// Package worker implements the Persister and Publisher — the two
// consumer loops that sit between the bus and the side-effect sinks.
package worker

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/raidenx/notify-pipeline/internal/domain"
	"github.com/raidenx/notify-pipeline/internal/grouping"
	"github.com/raidenx/notify-pipeline/internal/render"
)

// Persister durably records one or many rows per coalesced group: Order
// events collapse to their latest status, Transaction and Account events
// each get their own row.
type Persister struct {
	prefs grouping.PreferenceLookup
	store domain.NotificationStore
}

func NewPersister(prefs grouping.PreferenceLookup, store domain.NotificationStore) *Persister {
	return &Persister{prefs: prefs, store: store}
}

// HandleBatch implements kafka.BatchHandler. An empty or fully-filtered
// batch is a no-op success, so its offset still commits.
func (p *Persister) HandleBatch(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		log.Debug().Msg("persister: empty batch, committing")
		return nil
	}

	grouped := grouping.GroupByUser(ctx, events, p.prefs)
	if len(grouped) == 0 {
		log.Debug().Msg("persister: batch fully filtered by preferences, committing")
		return nil
	}

	for key, rendered := range grouped {
		p.persistGroup(ctx, key, rendered)
	}
	return nil
}

// persistGroup writes the rows for one coalescing group. Order collapses
// to its last rendering; Transaction and Account write one row per
// element. An individual write failure is logged and the loop continues
// — losing one advisory record never aborts the batch.
func (p *Persister) persistGroup(ctx context.Context, key domain.GroupKey, rendered []domain.RenderedNotification) {
	if len(rendered) == 0 {
		return
	}

	title := render.Title(key.NotifType)

	switch key.NotifType {
	case domain.NotifOrder:
		last := rendered[len(rendered)-1]
		p.insert(ctx, key, title, last)
	case domain.NotifTransaction, domain.NotifAccount:
		for _, r := range rendered {
			p.insert(ctx, key, title, r)
		}
	default:
		log.Warn().Str("user_id", key.UserID).Str("notif_type", string(key.NotifType)).
			Msg("persister: no write rule for notif_type, skipping group")
	}
}

func (p *Persister) insert(ctx context.Context, key domain.GroupKey, title string, r domain.RenderedNotification) {
	record := domain.NewNotificationRecord(key.UserID, key.NotifType, title, r.Message, r.Timestamp)
	if err := p.store.Insert(ctx, record); err != nil {
		log.Warn().Err(err).Str("user_id", key.UserID).Str("notif_type", string(key.NotifType)).
			Msg("persister: failed to insert notification, continuing batch")
	}
}
