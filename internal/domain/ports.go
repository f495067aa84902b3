package domain

import "context"

// Preferences are the four per-user notification toggles. The
// zero value is NOT the default — callers needing "no record found" must
// use DefaultPreferences(), since Go's zero value for bool is false but
// every toggle defaults to enabled.
type Preferences struct {
	Announcement bool `json:"announcement" bson:"announcement"`
	Account      bool `json:"account" bson:"account"`
	Campaign     bool `json:"campaign" bson:"campaign"`
	Transaction  bool `json:"transaction" bson:"transaction"`
}

// DefaultPreferences is used when no settings row exists for a user.
func DefaultPreferences() Preferences {
	return Preferences{Announcement: true, Account: true, Campaign: true, Transaction: true}
}

// Allows reports whether notifType is enabled under these preferences.
// Order is gated by the Transaction toggle, not a toggle of its own.
func (p Preferences) Allows(notifType NotifType) bool {
	switch notifType {
	case NotifOrder, NotifTransaction:
		return p.Transaction
	case NotifAccount:
		return p.Account
	case NotifAnnouncement:
		return p.Announcement
	case NotifCampaign:
		return p.Campaign
	default:
		return false
	}
}

// TokenAction is the action carried by a token-cache invalidation message
// on the vdax:notification:update_fcm_token channel.
type TokenAction string

const (
	TokenActionAdd    TokenAction = "Add"
	TokenActionRemove TokenAction = "Remove"
)

// DeviceTokenStatus mirrors the status column of user_fcm_tokens.
type DeviceTokenStatus string

const (
	DeviceTokenActive   DeviceTokenStatus = "Active"
	DeviceTokenInactive DeviceTokenStatus = "Inactive"
)

// DeviceToken is one row of user_fcm_tokens.
type DeviceToken struct {
	UserID    string            `bson:"userId"`
	DeviceID  string            `bson:"deviceId"`
	Token     string            `bson:"token"`
	Platform  string            `bson:"platform"`
	Status    DeviceTokenStatus `bson:"status"`
	CreatedAt int64             `bson:"createdAt"`
	UpdatedAt int64             `bson:"updatedAt"`
}

// TokenUpdate is the payload of a token-cache invalidation message.
type TokenUpdate struct {
	UserID string      `json:"user_id"`
	Token  string      `json:"token"`
	Action TokenAction `json:"action"`
}

// PreferenceStore is the document-store port consulted by the Preference
// Cache on a local-map miss.
type PreferenceStore interface {
	// FindAll scans the full preferences collection, for cache preload.
	FindAll(ctx context.Context) (map[string]Preferences, error)
	// FindByUserIDs looks up preferences for a set of users in one round
	// trip ($in filter); users with no row are simply absent from the
	// result map.
	FindByUserIDs(ctx context.Context, userIDs []string) (map[string]Preferences, error)
}

// TokenStore is the document-store port consulted by the Token Cache on a
// local-map miss.
type TokenStore interface {
	// FindAllActive scans the full tokens collection for Active rows, for
	// cache preload.
	FindAllActive(ctx context.Context) (map[string][]string, error)
	// FindActiveByUserID looks up the Active tokens for one user.
	FindActiveByUserID(ctx context.Context, userID string) ([]string, error)
}

// NotificationStore is the document-store port the Persister writes
// through.
type NotificationStore interface {
	Insert(ctx context.Context, record NotificationRecord) error
}

// PreferenceKV is the shared-cache port backing the Preference Cache's
// optional KV tier.
type PreferenceKV interface {
	GetPreferences(ctx context.Context, userID string) (Preferences, bool, error)
	SetPreferences(ctx context.Context, userID string, prefs Preferences) error
}

// RateLimiter is the KV-backed rate-limit bookkeeping port consulted by the
// Publisher per device token.
type RateLimiter interface {
	// LastSent returns the last successful send time (ms since epoch) for
	// token, and whether a value was found.
	LastSent(ctx context.Context, token string) (int64, bool, error)
	// UnsentCount returns the current unsent count for token (0 on miss).
	UnsentCount(ctx context.Context, token string) (int64, error)
	// IncrementUnsent increments and persists the unsent count (TTL 24h),
	// returning the new value.
	IncrementUnsent(ctx context.Context, token string) (int64, error)
	// MarkSent records a successful send: sets last_sent=now (TTL=rate
	// window) and resets unsent_count to 0 (TTL 24h).
	MarkSent(ctx context.Context, token string, now int64) error
}

// TokenInvalidations is the pub/sub port the Token Cache subscribes
// through.
type TokenInvalidations interface {
	Subscribe(ctx context.Context, handle func(TokenUpdate)) error
}

// PushGateway is the FCM-shaped push dispatch port. A single Send
// call is one attempt; retry/backoff is the caller's responsibility.
type PushGateway interface {
	Send(ctx context.Context, token, title, body string) error
}
