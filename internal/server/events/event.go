// Package events publishes user and entry lifecycle events to a message
// broker. Publishing is best effort: callers log failures and carry on.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type Type string

const (
	UserRegistered     Type = "user.registered"
	EntryCreated       Type = "entry.created"
	EntryUpdated       Type = "entry.updated"
	EntryStatusChanged Type = "entry.status_changed"
	EntryDeleted       Type = "entry.deleted"
)

// Event is the message body. EntryID, Status and Amount are empty for user events.
type Event struct {
	Type       Type            `json:"type"`
	EntryID    int64           `json:"entry_id,omitempty"`
	UserID     int64           `json:"user_id"`
	Status     string          `json:"status,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers events; implementations are safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }
