package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/mtlprog/wealth/internal/domain"
	"github.com/mtlprog/wealth/internal/export"
	"github.com/mtlprog/wealth/internal/fsutil"
	"github.com/mtlprog/wealth/internal/ledger"
	"github.com/mtlprog/wealth/internal/refresh"
	"github.com/mtlprog/wealth/internal/report"
	"github.com/mtlprog/wealth/internal/snapshot"
	"github.com/mtlprog/wealth/internal/trend"
)

var periodFlag = &cli.StringFlag{
	Name:  "period",
	Usage: "history window: 7d, 30d, 90d or 1y",
	Value: snapshot.DefaultPeriod,
}

var rawFlag = &cli.BoolFlag{
	Name:  "raw",
	Usage: "print markdown without terminal styling",
}

func refreshCommand() *cli.Command {
	return &cli.Command{
		Name:  "refresh",
		Usage: "run one refresh cycle and record a snapshot",
		Action: withDeps(func(c *cli.Context, d *deps) error {
			lock, err := d.lockLedger()
			if errors.Is(err, fsutil.ErrLocked) {
				return cli.Exit("the ledger is owned by a running `wealth serve`; use POST /api/v1/refresh", 1)
			}
			if err != nil {
				return err
			}
			defer lock.Release()

			res, err := d.refresher.Run(c.Context, time.Now())
			if err != nil {
				return err
			}
			fmt.Printf("net worth %s, %d events, %d warnings\n",
				report.FormatMoney(res.Totals.NetWorth, d.cfg.BaseCurrency), len(res.Events), len(res.Warnings))
			return nil
		}),
	}
}

func summaryCommand() *cli.Command {
	return &cli.Command{
		Name:  "summary",
		Usage: "refresh and print the dashboard",
		Flags: []cli.Flag{periodFlag, rawFlag},
		Action: withDeps(func(c *cli.Context, d *deps) error {
			now := time.Now()
			res, err := cycle(c, d, now)
			if err != nil {
				return err
			}
			entries, err := d.snapshots.Period(c.String("period"), now)
			if err != nil {
				return err
			}
			var tr *trend.Report
			if len(entries) > 0 {
				r := trend.Analyze(entries)
				tr = &r
			}
			if d.store.Degraded() {
				res.Warnings = append(res.Warnings, "ledger unreadable: run `wealth import` or `wealth asset add` to reconfigure")
			}
			return printMarkdown(report.Summary(res, tr, c.String("period")), c.Bool("raw"))
		}),
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "print recorded snapshots",
		Flags: []cli.Flag{periodFlag, &cli.BoolFlag{Name: "json", Usage: "print JSON"}},
		Action: withDeps(func(c *cli.Context, d *deps) error {
			entries, err := d.snapshots.Period(c.String("period"), time.Now())
			if err != nil {
				return err
			}
			if c.Bool("json") {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			base := d.cfg.BaseCurrency
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "Timestamp\tNet worth\tAssets\tLiabilities\tIncome\tExpense\t")
			for _, s := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
					s.Timestamp.Local().Format("2006-01-02 15:04"),
					report.FormatMoney(s.NetWorth, base),
					report.FormatMoney(s.TotalAssets, base),
					report.FormatMoney(s.TotalLiabilities, base),
					report.FormatMoney(s.PeriodicIncome, base),
					report.FormatMoney(s.PeriodicExpense, base))
			}
			return tw.Flush()
		}),
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "write a JSON backup, or an XLSX workbook when the file ends in .xlsx",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "with-holdings", Usage: "refresh first and include current holdings in the workbook"},
		},
		Action: withDeps(func(c *cli.Context, d *deps) error {
			path := c.Args().First()
			if path == "" {
				return cli.Exit("export: FILE is required", 2)
			}
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()

			if strings.EqualFold(filepath.Ext(path), ".xlsx") {
				var holdings []domain.Assessment
				if c.Bool("with-holdings") {
					res, err := cycle(c, d, time.Now())
					if err != nil {
						return err
					}
					holdings = res.Assessments
				}
				if err := export.WriteWorkbook(f, d.snapshots.History().Entries, holdings); err != nil {
					return err
				}
			} else {
				l, _, err := d.files.Load(c.Context)
				if err != nil {
					return err
				}
				if err := ledger.Export(f, l, d.snapshots.History(), time.Now()); err != nil {
					return err
				}
			}
			fmt.Printf("exported to %s\n", path)
			return f.Close()
		}),
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "replace the ledger and history with a JSON backup",
		ArgsUsage: "FILE",
		Action: withDeps(func(c *cli.Context, d *deps) error {
			path := c.Args().First()
			if path == "" {
				return cli.Exit("import: FILE is required", 2)
			}
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			b, loadReport, err := ledger.Import(f)
			if err != nil {
				return err
			}
			if err := d.store.Replace(c.Context, b.Ledger); err != nil {
				return err
			}
			if err := d.snapshots.Replace(c.Context, b.History); err != nil {
				return err
			}

			fmt.Printf("imported %d assets and %d snapshots\n", b.Ledger.Len(), len(b.History.Entries))
			for _, r := range loadReport.Rejected {
				fmt.Printf("  malformed: %v\n", r)
			}
			return nil
		}),
	}
}

func assetCommand() *cli.Command {
	return &cli.Command{
		Name:  "asset",
		Usage: "manage ledger records",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list ledger records",
				Action: withDeps(func(c *cli.Context, d *deps) error {
					l, loadReport, err := d.files.Load(c.Context)
					if err != nil {
						return err
					}
					tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "ID\tCategory\tSymbol\tName\tQuantity\tCost\tAmount")
					for _, a := range l.All() {
						fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
							a.ID, a.Category, a.Symbol, a.Name, a.Quantity, a.AverageCost, a.Amount)
					}
					if err := tw.Flush(); err != nil {
						return err
					}
					for _, r := range loadReport.Rejected {
						fmt.Printf("malformed: %v\n", r)
					}
					return nil
				}),
			},
			{
				Name:   "add",
				Usage:  "add a holding or liability",
				Flags:  assetFlags(true),
				Action: withDeps(addAsset),
			},
			{
				Name:      "edit",
				Usage:     "change fields of a record, keeping its id",
				ArgsUsage: "ID",
				Flags:     assetFlags(false),
				Action:    withDeps(editAsset),
			},
			{
				Name:      "remove",
				Usage:     "remove a record by id",
				ArgsUsage: "ID",
				Action: withDeps(func(c *cli.Context, d *deps) error {
					l, err := loadForEdit(c, d)
					if err != nil {
						return err
					}
					a, err := ledger.Remove(&l, c.Args().First())
					if err != nil {
						return err
					}
					if err := d.files.Save(c.Context, l); err != nil {
						return err
					}
					fmt.Printf("removed %s %s\n", a.Category, a.Symbol)
					return nil
				}),
			},
		},
	}
}

// cycle runs a full refresh when this process can own the ledger, and a side-effect free
// preview while a server holds it.
func cycle(c *cli.Context, d *deps, now time.Time) (refresh.Result, error) {
	lock, err := d.lockLedger()
	if errors.Is(err, fsutil.ErrLocked) {
		res, err := d.refresher.Preview(c.Context, now)
		res.Warnings = append(res.Warnings, "a running server owns the ledger; figures are a preview and due payments are left to it")
		return res, err
	}
	if err != nil {
		return refresh.Result{}, err
	}
	defer lock.Release()
	return d.refresher.Run(c.Context, now)
}

// assetFlags lists the record fields settable from the command line. add requires the
// identifying fields; edit changes only the flags that are given.
func assetFlags(add bool) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "category", Required: add, Usage: "crypto, stock, cash, forex or liability"},
		&cli.StringFlag{Name: "symbol", Required: add},
		&cli.StringFlag{Name: "name", Required: add},
		&cli.StringFlag{Name: "quantity"},
		&cli.StringFlag{Name: "cost", Usage: "average unit cost"},
		&cli.StringFlag{Name: "price-currency", Usage: "quote currency of a crypto price, e.g. USDT"},
		&cli.StringFlag{Name: "manual-price", Usage: "fixed unit price that bypasses the provider"},
		&cli.BoolFlag{Name: "clear-manual-price", Usage: "go back to provider prices"},
		&cli.StringFlag{Name: "dividend-rate"},
		&cli.StringFlag{Name: "interest-rate"},
		&cli.StringFlag{Name: "purchase-date", Usage: "YYYY-MM-DD"},
		&cli.StringFlag{Name: "amount", Usage: "outstanding liability balance"},
		&cli.IntFlag{Name: "payment-day", Usage: "day of month an automatic payment is due"},
		&cli.StringFlag{Name: "monthly-payment"},
		&cli.BoolFlag{Name: "auto-payment"},
	}
}

// applyAssetFlags copies every flag that was set onto a.
func applyAssetFlags(c *cli.Context, a *domain.Asset) error {
	if c.IsSet("category") {
		category, err := domain.ParseCategory(c.String("category"))
		if err != nil {
			return err
		}
		a.Category = category
	}
	if c.IsSet("symbol") {
		a.Symbol = c.String("symbol")
	}
	if c.IsSet("name") {
		a.Name = c.String("name")
	}
	if c.IsSet("price-currency") {
		a.PriceCurrency = strings.ToUpper(c.String("price-currency"))
	}
	if c.IsSet("purchase-date") {
		a.PurchaseDate = c.String("purchase-date")
	}
	if c.IsSet("payment-day") {
		a.PaymentDay = c.Int("payment-day")
	}
	if c.IsSet("auto-payment") {
		a.AutoPayment = c.Bool("auto-payment")
	}
	if c.Bool("clear-manual-price") {
		a.UseManualPrice = false
		a.ManualPrice = decimal.Zero
	}

	decimals := []struct {
		flag  string
		field *decimal.Decimal
	}{
		{"quantity", &a.Quantity},
		{"cost", &a.AverageCost},
		{"manual-price", &a.ManualPrice},
		{"dividend-rate", &a.DividendRate},
		{"interest-rate", &a.InterestRate},
		{"amount", &a.Amount},
		{"monthly-payment", &a.MonthlyPayment},
	}
	var errs []error
	for _, dd := range decimals {
		if !c.IsSet(dd.flag) {
			continue
		}
		v, err := decimal.NewFromString(c.String(dd.flag))
		if err != nil {
			errs = append(errs, fmt.Errorf("--%s: %w", dd.flag, err))
			continue
		}
		*dd.field = v
	}
	if c.IsSet("manual-price") {
		a.UseManualPrice = true
	}
	return errors.Join(errs...)
}

// loadForEdit reads the ledger file directly; an unreadable file is reported rather than
// replaced by the empty fallback.
func loadForEdit(c *cli.Context, d *deps) (domain.Ledger, error) {
	l, _, err := d.files.Load(c.Context)
	if err != nil {
		if errors.Is(err, ledger.ErrConfigLoad) {
			return domain.Ledger{}, fmt.Errorf("%w; fix the file or run `wealth import`", err)
		}
		return domain.Ledger{}, err
	}
	return l, nil
}

func addAsset(c *cli.Context, d *deps) error {
	var a domain.Asset
	if err := applyAssetFlags(c, &a); err != nil {
		return err
	}

	l, err := loadForEdit(c, d)
	if err != nil {
		return err
	}
	added, err := ledger.Add(&l, a)
	if err != nil {
		return err
	}
	if err := d.files.Save(c.Context, l); err != nil {
		return err
	}
	fmt.Printf("added %s %s as %s\n", added.Category, added.Symbol, added.ID)
	return nil
}

func editAsset(c *cli.Context, d *deps) error {
	id := c.Args().First()
	if id == "" {
		return cli.Exit("asset edit: ID is required", 2)
	}

	l, err := loadForEdit(c, d)
	if err != nil {
		return err
	}
	current, ok := l.Find(id)
	if !ok {
		return fmt.Errorf("%w: %s", ledger.ErrNotFound, id)
	}
	a := *current
	if err := applyAssetFlags(c, &a); err != nil {
		return err
	}

	updated, err := ledger.Update(&l, a)
	if err != nil {
		return err
	}
	if err := d.files.Save(c.Context, l); err != nil {
		return err
	}
	fmt.Printf("updated %s %s (%s)\n", updated.Category, updated.Symbol, updated.ID)
	return nil
}

func quotesCommand() *cli.Command {
	return &cli.Command{
		Name:  "quotes",
		Usage: "list the last stored provider quotes (requires DATABASE_URL)",
		Action: withDeps(func(c *cli.Context, d *deps) error {
			if d.quotes == nil {
				return cli.Exit("quotes are only stored when DATABASE_URL is set", 1)
			}
			quotes, err := d.quotes.GetAllQuotes(c.Context)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "Category\tSymbol\tPrice\tCurrency\tUpdated")
			for _, q := range quotes {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					q.Category, q.Symbol, q.Price, q.Currency, q.UpdatedAt.Local().Format(time.DateTime))
			}
			return tw.Flush()
		}),
	}
}

func printMarkdown(md string, raw bool) error {
	if raw {
		_, err := fmt.Print(md)
		return err
	}
	out, err := report.Render(md, 100)
	if err != nil {
		return err
	}
	_, err = fmt.Print(out)
	return err
}
