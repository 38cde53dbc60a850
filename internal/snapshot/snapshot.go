// Package snapshot records point-in-time portfolio totals into a bounded history log.
package snapshot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/wealth/internal/accrual"
	"github.com/mtlprog/wealth/internal/domain"
)

// HistorySchemaVersion is the current history document version.
const HistorySchemaVersion = 1

// Retention limits.
const (
	DefaultMaxLength = 1000
	YearMaxLength    = 365
)

// DefaultPeriod is the chart window used when none is requested.
const DefaultPeriod = "7d"

// ErrUnknownPeriod is returned by ParsePeriod for an unsupported window name.
var ErrUnknownPeriod = errors.New("unknown history period")

var periods = map[string]int{
	"7d":  7,
	"30d": 30,
	"90d": 90,
	"1y":  365,
}

// Snapshot is one immutable history entry.
type Snapshot struct {
	Timestamp        time.Time                          `json:"timestamp"`
	NetWorth         decimal.Decimal                    `json:"netWorth"`
	TotalAssets      decimal.Decimal                    `json:"totalAssets"`
	TotalLiabilities decimal.Decimal                    `json:"totalLiabilities"`
	PerCategoryValue map[domain.Category]decimal.Decimal `json:"perCategoryValue"`
	PeriodicIncome   decimal.Decimal                    `json:"periodicIncome"`
	PeriodicExpense  decimal.Decimal                    `json:"periodicExpense"`
}

// History is the persisted history document.
type History struct {
	SchemaVersion       int        `json:"schemaVersion"`
	Entries             []Snapshot `json:"entries"`
	LastUpdateTimestamp time.Time  `json:"lastUpdateTimestamp"`
}

// NewHistory returns an empty history document.
func NewHistory() History {
	return History{SchemaVersion: HistorySchemaVersion, Entries: []Snapshot{}}
}

// Build creates a snapshot from aggregation and accrual output.
func Build(totals domain.Totals, acc accrual.Result, now time.Time) Snapshot {
	perCategory := lo.MapValues(totals.Categories, func(ct domain.CategoryTotal, _ domain.Category) decimal.Decimal {
		return ct.Value
	})
	return Snapshot{
		Timestamp:        now,
		NetWorth:         totals.NetWorth,
		TotalAssets:      totals.TotalAssets,
		TotalLiabilities: totals.TotalLiabilities,
		PerCategoryValue: perCategory,
		PeriodicIncome:   acc.Income,
		PeriodicExpense:  acc.Expense,
	}
}

// Append adds s and drops the oldest entries beyond maxLen. A non-positive maxLen means DefaultMaxLength.
func (h *History) Append(s Snapshot, maxLen int) {
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}
	h.Entries = append(h.Entries, s)
	if over := len(h.Entries) - maxLen; over > 0 {
		h.Entries = append([]Snapshot(nil), h.Entries[over:]...)
	}
	h.LastUpdateTimestamp = s.Timestamp
}

// Latest returns the newest entry.
func (h History) Latest() (Snapshot, bool) {
	if len(h.Entries) == 0 {
		return Snapshot{}, false
	}
	return h.Entries[len(h.Entries)-1], true
}

// FilterByPeriod returns the entries no older than windowDays before now, in their original order.
// The input slice is not modified. A non-positive window returns every entry.
func FilterByPeriod(entries []Snapshot, windowDays int, now time.Time) []Snapshot {
	if windowDays <= 0 {
		return append([]Snapshot(nil), entries...)
	}
	cutoff := now.Add(-time.Duration(windowDays) * 24 * time.Hour)
	return lo.Filter(entries, func(s Snapshot, _ int) bool {
		return !s.Timestamp.Before(cutoff)
	})
}

// ParsePeriod maps a chart window name ("7d", "30d", "90d", "1y") to days.
// An empty name selects DefaultPeriod.
func ParsePeriod(name string) (int, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultPeriod
	}
	days, ok := periods[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownPeriod, name)
	}
	return days, nil
}
