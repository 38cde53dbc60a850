package domain

import "github.com/samber/lo"

// LedgerSchemaVersion is the current on-disk ledger document version.
const LedgerSchemaVersion = 1

// Ledger is the portfolio owner's source of truth: assets grouped by category,
// each group kept in insertion order.
type Ledger struct {
	SchemaVersion int                  `json:"schemaVersion"`
	BaseCurrency  string               `json:"baseCurrency"`
	Assets        map[Category][]Asset `json:"assets"`
}

// NewLedger creates an empty ledger reporting in the given base currency.
func NewLedger(baseCurrency string) Ledger {
	return Ledger{
		SchemaVersion: LedgerSchemaVersion,
		BaseCurrency:  baseCurrency,
		Assets:        make(map[Category][]Asset),
	}
}

// ByCategory returns the assets of one category.
func (l Ledger) ByCategory(c Category) []Asset {
	return l.Assets[c]
}

// All returns every asset, categories in display order.
func (l Ledger) All() []Asset {
	var all []Asset
	for _, c := range categories {
		all = append(all, l.Assets[c]...)
	}
	return all
}

// Liabilities returns the liability records.
func (l Ledger) Liabilities() []Asset {
	return l.Assets[CategoryLiability]
}

// Len returns the number of assets across all categories.
func (l Ledger) Len() int {
	return lo.SumBy(categories, func(c Category) int { return len(l.Assets[c]) })
}

// CategoryCount returns how many categories hold at least one asset.
func (l Ledger) CategoryCount() int {
	return lo.CountBy(categories, func(c Category) bool { return len(l.Assets[c]) > 0 })
}

// Find returns a pointer to the stored asset with the given id, so callers can mutate it in place.
func (l Ledger) Find(id string) (*Asset, bool) {
	for _, c := range categories {
		group := l.Assets[c]
		for i := range group {
			if group[i].ID == id {
				return &group[i], true
			}
		}
	}
	return nil, false
}

// Clone returns a copy whose category slices can be mutated independently.
func (l Ledger) Clone() Ledger {
	out := l
	out.Assets = make(map[Category][]Asset, len(l.Assets))
	for c, group := range l.Assets {
		out.Assets[c] = append([]Asset(nil), group...)
	}
	return out
}
