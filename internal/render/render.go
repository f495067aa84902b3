// Package render implements the pure, type-dispatched rendering rules:
// one exhaustive switch over domain.EventMetadata producing the message
// text a notification row or push body carries, plus the one-title-per-type
// lookup. Nothing here performs I/O or logs — callers decide what to do
// with ErrUnsupported.
package render

import (
	"errors"
	"fmt"
	"time"

	"github.com/raidenx/notify-pipeline/internal/domain"
)

func formatEventTime(timestampMS int64) string {
	return time.UnixMilli(timestampMS).UTC().Format("2006-01-02 15:04:05")
}

// ErrUnsupported is returned when the metadata's status/combination has no
// rendering template. Callers skip the event and log at warn.
var ErrUnsupported = errors.New("render: unsupported notification variant")

// Title returns the fixed title for a notification type.
func Title(t domain.NotifType) string {
	switch t {
	case domain.NotifOrder:
		return "Order Notification"
	case domain.NotifTransaction:
		return "Transaction Notification"
	case domain.NotifAccount:
		return "Account Notification"
	case domain.NotifAnnouncement:
		return "Announcement Notification"
	case domain.NotifCampaign:
		return "Campaign Notification"
	default:
		return "Notification"
	}
}

// Render produces the message text for one event's metadata. timestampMS is
// the source event's timestamp (producer clock); any human-readable time
// the rendered text carries is formatted from this same value, so Render
// is a pure function of its two arguments.
func Render(meta domain.EventMetadata, timestampMS int64) (string, error) {
	switch m := meta.(type) {
	case domain.OrderMetadata:
		return renderOrder(m)
	case domain.TransactionMetadata:
		return renderTransaction(m, timestampMS)
	case domain.AccountMetadata:
		return renderAccount(m, timestampMS)
	default:
		return "", fmt.Errorf("%w: unrecognized metadata type %T", ErrUnsupported, meta)
	}
}

func renderOrder(m domain.OrderMetadata) (string, error) {
	var phrase string
	switch m.Status {
	case "NEW":
		phrase = "placed successfully"
	case "FILLED":
		phrase = "matched"
	case "CANCELLED":
		phrase = "cancelled"
	case "REJECTED":
		phrase = "rejected"
	default:
		return "", fmt.Errorf("%w: order %d has unsupported status %q", ErrUnsupported, m.OrderID, m.Status)
	}
	return fmt.Sprintf("Order %d %s.", m.OrderID, phrase), nil
}

func renderTransaction(m domain.TransactionMetadata, timestampMS int64) (string, error) {
	now := formatEventTime(timestampMS)
	switch m.Status {
	case "COMPLETED":
		switch m.Type {
		case domain.TradingAdd:
			return fmt.Sprintf("You have successfully deposit %s %s at %s", m.Amount, m.Asset, now), nil
		case domain.TradingRemove, domain.TradingBuy, domain.TradingSell:
			return fmt.Sprintf(
				"You have successfully withdraw %s %s at %s. If you do not recognize this activity, please contact us immediately.",
				m.Amount, m.Asset, now,
			), nil
		default:
			return "", fmt.Errorf("%w: transaction %d has unsupported trading type %q", ErrUnsupported, m.ID, m.Type)
		}
	case "FAILED", "REJECTED":
		return fmt.Sprintf("Your %s transaction of %s %s failed at %s.", m.Type, m.Amount, m.Asset, now), nil
	default:
		return "", fmt.Errorf("%w: transaction %d has unsupported status %q", ErrUnsupported, m.ID, m.Status)
	}
}

func renderAccount(m domain.AccountMetadata, timestampMS int64) (string, error) {
	now := formatEventTime(timestampMS)
	if m.ActionStatus == domain.ActionFailed {
		return fmt.Sprintf(
			"Your request to %s failed on %s. If you do not recognize this activity, please contact us immediately.",
			accountActivityVerb(m.ActivityType), now,
		), nil
	}

	switch m.ActivityType {
	case domain.AccountActivityKYCApproved:
		return fmt.Sprintf("Your identity verification was approved on %s.", now), nil
	case domain.AccountActivityKYCUpgraded:
		return fmt.Sprintf("Your verification level was upgraded on %s.", now), nil
	case domain.AccountActivityWhitelistEnabled:
		return fmt.Sprintf("Withdrawal address whitelisting was enabled on %s.", now), nil
	case domain.AccountActivityWhitelistDisabled:
		return fmt.Sprintf("Withdrawal address whitelisting was disabled on %s.", now), nil
	case domain.AccountActivityWhitelistAddressAdded:
		return fmt.Sprintf("A new withdrawal address was added to your whitelist on %s.", now), nil
	case domain.AccountActivityWhitelistAddressRemove:
		return fmt.Sprintf("A withdrawal address was removed from your whitelist on %s.", now), nil
	case domain.AccountActivityAccountDisabled:
		return fmt.Sprintf("Your account was disabled on %s. If you do not recognize this activity, please contact us immediately.", now), nil
	case domain.AccountActivityAccountDeleted:
		return fmt.Sprintf("Your account was permanently deleted on %s. All data has been removed as requested.", now), nil
	case domain.AccountActivityMFAEnabled:
		return fmt.Sprintf("Two-factor authentication was enabled on %s.", now), nil
	case domain.AccountActivityMFADisabled:
		return fmt.Sprintf("Two-factor authentication was disabled on %s. If you do not recognize this activity, please contact us immediately.", now), nil
	case domain.AccountActivityPasswordInitialized:
		return fmt.Sprintf("Your account password was set up on %s. Your account is ready to use.", now), nil
	case domain.AccountActivityPasswordChanged:
		return fmt.Sprintf("Your password was changed on %s. If you do not recognize this activity, please contact us immediately.", now), nil
	case domain.AccountActivityPasswordReset:
		return fmt.Sprintf("Your password was reset on %s. If you do not recognize this activity, please contact us immediately.", now), nil
	default:
		return "", fmt.Errorf("%w: unrecognized account activity %q", ErrUnsupported, m.ActivityType)
	}
}

// accountActivityVerb renders the human phrase used in the shared Failed
// template, e.g. "verify KYC", "enable two-factor authentication".
func accountActivityVerb(t domain.AccountNotifType) string {
	switch t {
	case domain.AccountActivityKYCApproved:
		return "verify KYC"
	case domain.AccountActivityKYCUpgraded:
		return "upgrade KYC"
	case domain.AccountActivityWhitelistEnabled:
		return "enable withdrawal address whitelisting"
	case domain.AccountActivityWhitelistDisabled:
		return "disable withdrawal address whitelisting"
	case domain.AccountActivityWhitelistAddressAdded:
		return "add withdrawal address to whitelist"
	case domain.AccountActivityWhitelistAddressRemove:
		return "remove withdrawal address from whitelist"
	case domain.AccountActivityAccountDisabled:
		return "disable account"
	case domain.AccountActivityAccountDeleted:
		return "delete account"
	case domain.AccountActivityMFAEnabled:
		return "enable two-factor authentication"
	case domain.AccountActivityMFADisabled:
		return "disable two-factor authentication"
	case domain.AccountActivityPasswordInitialized:
		return "initialize password"
	case domain.AccountActivityPasswordChanged:
		return "change password"
	case domain.AccountActivityPasswordReset:
		return "reset password"
	default:
		return string(t)
	}
}
