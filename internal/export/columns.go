package export

import (
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/wealth/internal/domain"
	"github.com/mtlprog/wealth/internal/snapshot"
)

// historyCol describes one column of the HISTORY sheet after the timestamp column.
type historyCol struct {
	header string
	value  func(s snapshot.Snapshot) decimal.Decimal
}

func categoryCol(c domain.Category) historyCol {
	return historyCol{
		header: c.Label(),
		value:  func(s snapshot.Snapshot) decimal.Decimal { return s.PerCategoryValue[c] },
	}
}

// historyColumns lists the snapshot fields in sheet order.
var historyColumns = append([]historyCol{
	{header: "Net worth", value: func(s snapshot.Snapshot) decimal.Decimal { return s.NetWorth }},
	{header: "Total assets", value: func(s snapshot.Snapshot) decimal.Decimal { return s.TotalAssets }},
	{header: "Total liabilities", value: func(s snapshot.Snapshot) decimal.Decimal { return s.TotalLiabilities }},
	{header: "Income", value: func(s snapshot.Snapshot) decimal.Decimal { return s.PeriodicIncome }},
	{header: "Expense", value: func(s snapshot.Snapshot) decimal.Decimal { return s.PeriodicExpense }},
}, lo.Map(domain.Categories(), func(c domain.Category, _ int) historyCol { return categoryCol(c) })...)

const timestampLayout = "2006-01-02 15:04:05"

// historyHeader returns the header row: Timestamp followed by every column header.
func historyHeader() []any {
	row := make([]any, 1+len(historyColumns))
	row[0] = "Timestamp"
	for i, col := range historyColumns {
		row[i+1] = col.header
	}
	return row
}

// historyRow returns one data row for s.
func historyRow(s snapshot.Snapshot) []any {
	row := make([]any, 1+len(historyColumns))
	row[0] = s.Timestamp.UTC().Format(timestampLayout)
	for i, col := range historyColumns {
		row[i+1] = toFloat(col.value(s))
	}
	return row
}

var holdingsHeader = []any{"Category", "Symbol", "Name", "Price", "Quote", "Quote currency", "Price source", "Value", "Cost", "Change %"}

// holdingsRows returns one row per assessed asset.
func holdingsRows(assessments []domain.Assessment) [][]any {
	return lo.Map(assessments, func(a domain.Assessment, _ int) []any {
		var quote any
		if a.Price.QuoteCurrency != "" {
			quote = toFloat(a.Price.Quote)
		}
		return []any{
			a.Category.Label(), a.Symbol, a.Name,
			toFloat(a.Price.Base), quote, a.Price.QuoteCurrency, a.Price.Source,
			toFloat(a.Value), toFloat(a.Cost), toFloat(a.Change.Percent),
		}
	})
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func stamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
