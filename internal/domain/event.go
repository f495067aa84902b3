// Package domain holds the core types of the notification fan-out pipeline:
// the inbound event envelope, the coalescing key, and the records the two
// workers produce. Nothing in this package talks to Kafka, Mongo, Redis or
// FCM directly — those live behind the ports in ports.go.
package domain

// NotifType is the origin category of a notification. It gates preference
// checks and selects the rendering/title table.
type NotifType string

const (
	NotifOrder        NotifType = "ORDER"
	NotifTransaction  NotifType = "TRANSACTION"
	NotifAccount      NotifType = "ACCOUNT"
	NotifAnnouncement NotifType = "ANNOUNCEMENT"
	NotifCampaign     NotifType = "CAMPAIGN"
)

// TradingType is the transaction direction carried by TransactionMetadata.
type TradingType string

const (
	TradingAdd    TradingType = "Add"
	TradingRemove TradingType = "Remove"
	TradingBuy    TradingType = "Buy"
	TradingSell   TradingType = "Sell"
)

// EventMetadata is the tagged-union payload of an Event. It has exactly one
// concrete implementation per notif_type that carries metadata; the marker
// method keeps the set closed so a new variant can't silently satisfy the
// interface without being taught to the renderer.
type EventMetadata interface {
	isEventMetadata()
}

// OrderMetadata is the metadata shape for NotifOrder events.
type OrderMetadata struct {
	OrderID uint64 `json:"orderId" msgpack:"orderId"`
	Status  string `json:"status" msgpack:"status"`
}

func (OrderMetadata) isEventMetadata() {}

// TransactionMetadata is the metadata shape for NotifTransaction events.
type TransactionMetadata struct {
	ID        uint64      `json:"id" msgpack:"id"`
	Asset     string      `json:"asset" msgpack:"asset"`
	NetworkID string      `json:"networkId" msgpack:"networkId"`
	TxHash    string      `json:"txHash" msgpack:"txHash"`
	Type      TradingType `json:"type" msgpack:"type"`
	Amount    string      `json:"amount" msgpack:"amount"`
	Status    string      `json:"status" msgpack:"status"`
}

func (TransactionMetadata) isEventMetadata() {}

// AccountNotifType identifies the account-activity category for
// AccountMetadata, crossed with ActionStatus below to select a template.
type AccountNotifType string

const (
	AccountActivityKYCApproved            AccountNotifType = "KYC_APPROVED"
	AccountActivityKYCUpgraded            AccountNotifType = "KYC_UPGRADED"
	AccountActivityWhitelistEnabled       AccountNotifType = "WHITELIST_ENABLED"
	AccountActivityWhitelistDisabled      AccountNotifType = "WHITELIST_DISABLED"
	AccountActivityWhitelistAddressAdded  AccountNotifType = "WHITELIST_ADDRESS_ADDED"
	AccountActivityWhitelistAddressRemove AccountNotifType = "WHITELIST_ADDRESS_REMOVED"
	AccountActivityAccountDisabled        AccountNotifType = "ACCOUNT_DISABLED"
	AccountActivityAccountDeleted         AccountNotifType = "ACCOUNT_DELETED"
	AccountActivityMFAEnabled             AccountNotifType = "MFA_ENABLED"
	AccountActivityMFADisabled            AccountNotifType = "MFA_DISABLED"
	AccountActivityPasswordInitialized    AccountNotifType = "PASSWORD_INITIALIZED"
	AccountActivityPasswordChanged        AccountNotifType = "PASSWORD_CHANGED"
	AccountActivityPasswordReset          AccountNotifType = "PASSWORD_RESET"
)

// ActionStatus is the outcome of an account-activity event.
type ActionStatus string

const (
	ActionFailed  ActionStatus = "Failed"
	ActionSuccess ActionStatus = "Success"
)

// AccountMetadata is the metadata shape for NotifAccount events.
type AccountMetadata struct {
	ActivityType AccountNotifType `json:"activityType" msgpack:"activityType"`
	ActionStatus ActionStatus     `json:"actionStatus" msgpack:"actionStatus"`
}

func (AccountMetadata) isEventMetadata() {}

// Event is one record on the bus, as carried inside the MessagePack-encoded
// batch. UserID is opaque; Timestamp is the producer clock,
// milliseconds since epoch.
type Event struct {
	UserID    string        `json:"userId" msgpack:"userId"`
	NotifType NotifType     `json:"notifType" msgpack:"notifType"`
	Timestamp int64         `json:"timestamp" msgpack:"timestamp"`
	Metadata  EventMetadata `json:"metadata" msgpack:"-"`
}

// GroupKey identifies one coalescing bucket: same user, same wall-clock
// second, same notification type.
type GroupKey struct {
	UserID    string
	Second    int64
	NotifType NotifType
}

// RenderedNotification is a pure-function rendering of one Event, retained
// in timestamp order within its GroupKey (ingest order among equal
// timestamps).
type RenderedNotification struct {
	Message   string
	Timestamp int64
}
