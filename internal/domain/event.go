package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType names a discrete engine event.
type EventType string

const (
	EventPaymentProcessed EventType = "payment-processed"
	EventLiabilityPaidOff EventType = "liability-paid-off"
	EventRefreshFailed    EventType = "refresh-failed"
)

// Event is emitted by the refresh pipeline for consumers.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	AssetID   string          `json:"assetId,omitempty"`
	Name      string          `json:"name,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Remaining decimal.Decimal `json:"remaining"`
	Message   string          `json:"message,omitempty"`
}
