package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entry is a single income or expense record owned by a user.
// Zero values mean "not provided".
type Entry struct {
	ID          int64
	Description string
	Month       int
	Year        int
	Amount      decimal.Decimal
	Type        EntryType
	Status      EntryStatus
	UserID      int64
	CreatedAt   time.Time
}

// EntryFilter selects entries by equality on the fields that are set.
type EntryFilter struct {
	Description string
	Month       int
	Year        int
	UserID      int64
	Type        EntryType
	Status      EntryStatus
}
