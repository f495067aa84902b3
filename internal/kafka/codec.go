package kafka

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/raidenx/notify-pipeline/internal/domain"
)

// wireEvent mirrors domain.Event but carries Metadata as a raw MessagePack
// value, since msgpack can't auto-decode into the domain.EventMetadata
// interface.
type wireEvent struct {
	UserID    string             `msgpack:"userId"`
	NotifType domain.NotifType   `msgpack:"notifType"`
	Timestamp int64              `msgpack:"timestamp"`
	Metadata  msgpack.RawMessage `msgpack:"metadata"`
}

// DecodeEvents unpacks one bus record's value — a MessagePack array of
// events — into domain.Event values, resolving each event's metadata
// shape from its notifType discriminant.
func DecodeEvents(data []byte) ([]domain.Event, error) {
	var wire []wireEvent
	if err := msgpack.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decode event batch: %w", err)
	}

	events := make([]domain.Event, 0, len(wire))
	for _, w := range wire {
		meta, err := decodeMetadata(w.NotifType, w.Metadata)
		if err != nil {
			return nil, fmt.Errorf("decode metadata for user %s: %w", w.UserID, err)
		}
		events = append(events, domain.Event{
			UserID:    w.UserID,
			NotifType: w.NotifType,
			Timestamp: w.Timestamp,
			Metadata:  meta,
		})
	}
	return events, nil
}

// decodeMetadata resolves the concrete EventMetadata variant for
// notifType. Announcement and Campaign events carry no registered
// metadata shape (open question #1) and decode to a nil interface, which
// internal/render treats as unsupported.
func decodeMetadata(notifType domain.NotifType, raw msgpack.RawMessage) (domain.EventMetadata, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	switch notifType {
	case domain.NotifOrder:
		var m domain.OrderMetadata
		if err := msgpack.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	case domain.NotifTransaction:
		var m domain.TransactionMetadata
		if err := msgpack.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	case domain.NotifAccount:
		var m domain.AccountMetadata
		if err := msgpack.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, nil
	}
}

// EncodeEvents packs events the same way a producer would, used by tests
// to build wire-compatible fixtures.
func EncodeEvents(events []domain.Event) ([]byte, error) {
	wire := make([]wireEvent, 0, len(events))
	for _, e := range events {
		raw, err := msgpack.Marshal(e.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode metadata: %w", err)
		}
		wire = append(wire, wireEvent{
			UserID:    e.UserID,
			NotifType: e.NotifType,
			Timestamp: e.Timestamp,
			Metadata:  raw,
		})
	}
	return msgpack.Marshal(wire)
}
