package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/wealth/internal/accrual"
	"github.com/mtlprog/wealth/internal/domain"
	"github.com/mtlprog/wealth/internal/portfolio"
	"github.com/mtlprog/wealth/internal/refresh"
	"github.com/mtlprog/wealth/internal/trend"
)

// Summary renders the dashboard of one refresh cycle as markdown.
// tr may be nil when no history is available yet.
func Summary(res refresh.Result, tr *trend.Report, period string) string {
	base := res.Rates.Base
	if base == "" {
		base = res.Ledger.BaseCurrency
	}
	money := func(d decimal.Decimal) string { return FormatMoney(d, base) }
	sum := portfolio.Summarize(res.Ledger, res.Totals, res.CompletedAt)

	var b strings.Builder
	fmt.Fprintf(&b, "# Net worth %s\n\n", money(sum.NetWorth))
	fmt.Fprintf(&b, "| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Total assets | %s (%s) |\n", money(sum.TotalAssets), FormatPercent(sum.Change.Percent))
	fmt.Fprintf(&b, "| Total liabilities | %s at %s%% |\n", money(sum.TotalLiabilities), sum.LiabilityRate.StringFixed(2))
	fmt.Fprintf(&b, "| Holdings | %d in %d categories |\n", sum.AssetCount, sum.CategoryCount)
	fmt.Fprintf(&b, "| Last update | %s |\n\n", sum.LastUpdate.Format("2006-01-02 15:04"))

	b.WriteString("## Allocation\n\n| Category | Value | Share |\n|---|---:|---:|\n")
	for _, w := range sum.Allocation {
		share := w.Percent.StringFixed(2) + "%"
		if w.DebtRatio {
			share += " debt ratio"
		}
		fmt.Fprintf(&b, "| %s | %s | %s |\n", w.Category.Label(), money(w.Value), share)
	}

	if len(res.Assessments) > 0 {
		b.WriteString("\n## Holdings\n\n| Category | Symbol | Name | Price | Value | Change |\n|---|---|---|---:|---:|---:|\n")
		for _, a := range res.Assessments {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
				a.Category.Label(), a.Symbol, a.Name, priceLabel(a.Price, base), money(a.Value), changeLabel(a))
		}
	}

	flow := accrualPeriod(res.Accrual.PeriodsPerYear)
	state := "healthy"
	if !res.Accrual.Healthy() {
		state = "underwater"
	}
	fmt.Fprintf(&b, "\n## Cash flow (%s)\n\n", flow)
	fmt.Fprintf(&b, "- Income: %s\n- Expense: %s\n- Net: %s (%s)\n",
		money(res.Accrual.Income), money(res.Accrual.Expense), money(res.Accrual.Net), state)

	if tr != nil && len(tr.Points) > 0 {
		fmt.Fprintf(&b, "\n## Trend (%s)\n\n", period)
		fmt.Fprintf(&b, "- Change: %s (%s)\n", money(tr.Change), FormatPercent(tr.ChangePercent))
		fmt.Fprintf(&b, "- Range: %s to %s\n", money(tr.Low), money(tr.High))
		fmt.Fprintf(&b, "- Max drawdown: %s%%\n", tr.MaxDrawdown.StringFixed(2))
		fmt.Fprintf(&b, "- Volatility: %s%%\n", tr.Volatility.StringFixed(2))
	}

	if len(res.Events) > 0 || len(res.Warnings) > 0 || len(res.Totals.Skipped) > 0 {
		b.WriteString("\n## Notices\n\n")
		for _, e := range res.Events {
			fmt.Fprintf(&b, "- **%s** %s\n", e.Type, e.Message)
		}
		for _, w := range res.Warnings {
			fmt.Fprintf(&b, "- warning: %s\n", w)
		}
		for _, s := range res.Totals.Skipped {
			fmt.Fprintf(&b, "- skipped %s: %s\n", s.Symbol, s.Reason)
		}
	}
	return b.String()
}

func priceLabel(p domain.Price, base string) string {
	label := FormatMoney(p.Base, base)
	if p.QuoteCurrency != "" {
		label += fmt.Sprintf(" (%s %s)", p.Quote.String(), p.QuoteCurrency)
	}
	switch p.Source {
	case domain.PriceSourceManual:
		label += " manual"
	case domain.PriceSourceUnconverted:
		label += " unconverted"
	}
	return label
}

func changeLabel(a domain.Assessment) string {
	if a.Category == domain.CategoryCash || a.Category.IsLiability() {
		return a.Change.Percent.StringFixed(2) + "% p.a."
	}
	return FormatPercent(a.Change.Percent)
}

func accrualPeriod(periodsPerYear int) string {
	switch periodsPerYear {
	case accrual.PeriodsAnnual:
		return "annual"
	case accrual.PeriodsMonthly:
		return "monthly"
	default:
		return fmt.Sprintf("1/%d year", periodsPerYear)
	}
}

// Render formats markdown for a terminal of the given width.
func Render(markdown string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("creating markdown renderer: %w", err)
	}
	out, err := r.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return out, nil
}
