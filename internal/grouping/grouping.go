// Package grouping implements the Grouping/Coalescing Engine: a pure function from a raw event batch to
// (user, second, type) buckets of rendered, preference-filtered messages.
package grouping

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/raidenx/notify-pipeline/internal/domain"
	"github.com/raidenx/notify-pipeline/internal/render"
)

// PreferenceLookup is the subset of the Preference Cache the grouping
// engine needs — a single batch call resolving every distinct user in the
// input.
type PreferenceLookup interface {
	GetBatch(ctx context.Context, userIDs []string) map[string]domain.Preferences
}

// GroupByUser sorts events by timestamp, resolves preferences for every
// distinct user in one batched call, drops events the user has opted out
// of, renders the rest, and buckets them by GroupKey. The returned map
// never contains an empty slice value — a GroupKey only appears if at
// least one event survived preference filtering and rendering.
func GroupByUser(ctx context.Context, events []domain.Event, prefs PreferenceLookup) map[domain.GroupKey][]domain.RenderedNotification {
	sorted := make([]domain.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	userSet := make(map[string]struct{}, len(sorted))
	for _, e := range sorted {
		userSet[e.UserID] = struct{}{}
	}
	userIDs := make([]string, 0, len(userSet))
	for u := range userSet {
		userIDs = append(userIDs, u)
	}
	preferences := prefs.GetBatch(ctx, userIDs)

	grouped := make(map[domain.GroupKey][]domain.RenderedNotification)
	for _, e := range sorted {
		pref, ok := preferences[e.UserID]
		if !ok {
			pref = domain.DefaultPreferences()
		}
		if !pref.Allows(e.NotifType) {
			continue
		}

		message, err := render.Render(e.Metadata, e.Timestamp)
		if err != nil {
			log.Warn().
				Err(err).
				Str("user_id", e.UserID).
				Str("notif_type", string(e.NotifType)).
				Msg("grouping: skipping event with unsupported rendering")
			continue
		}

		key := domain.GroupKey{
			UserID:    e.UserID,
			Second:    e.Timestamp / 1000,
			NotifType: e.NotifType,
		}
		grouped[key] = append(grouped[key], domain.RenderedNotification{
			Message:   message,
			Timestamp: e.Timestamp,
		})
	}

	return grouped
}
