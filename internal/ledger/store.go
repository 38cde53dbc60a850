// Package ledger loads, validates and persists the asset ledger and its payment audit log.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/wealth/internal/domain"
	"github.com/mtlprog/wealth/internal/fsutil"
)

var (
	// ErrConfigLoad indicates the ledger document could not be read or decoded.
	ErrConfigLoad = errors.New("ledger configuration could not be loaded")
	// ErrDuplicateAsset indicates an asset with the same category and symbol already exists.
	ErrDuplicateAsset = errors.New("duplicate asset")
	// ErrNotFound indicates no asset carries the requested id.
	ErrNotFound = errors.New("asset not found")
)

// LoadReport lists the records that failed validation when the ledger was read.
// Rejected records stay in the ledger; the engine skips them at computation time.
type LoadReport struct {
	Loaded   int                       `json:"loaded"`
	Rejected []*domain.ValidationError `json:"rejected,omitempty"`
}

// OK reports whether every record passed validation.
func (r LoadReport) OK() bool {
	return len(r.Rejected) == 0
}

// Validate checks every record of l.
func Validate(l domain.Ledger) LoadReport {
	var report LoadReport
	for c, group := range l.Assets {
		for _, a := range group {
			report.Loaded++
			if a.Category != c {
				report.Rejected = append(report.Rejected, &domain.ValidationError{
					AssetID: a.ID, Symbol: a.Symbol, Field: "category",
					Reason: fmt.Sprintf("%q is filed under %q", a.Category, c),
				})
				continue
			}
			var verr *domain.ValidationError
			if err := a.Validate(); errors.As(err, &verr) {
				report.Rejected = append(report.Rejected, verr)
			}
		}
	}
	return report
}

// FileStore keeps the ledger as a JSON document.
type FileStore struct {
	path         string
	baseCurrency string
	mu           sync.Mutex
}

// NewFileStore creates a ledger store at path. baseCurrency is used for a ledger that does not exist yet.
func NewFileStore(path, baseCurrency string) *FileStore {
	return &FileStore{path: path, baseCurrency: baseCurrency}
}

// Load reads and validates the ledger. A missing file yields an empty ledger.
// Read and decode failures wrap ErrConfigLoad.
func (s *FileStore) Load(_ context.Context) (domain.Ledger, LoadReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.NewLedger(s.baseCurrency), LoadReport{}, nil
		}
		return domain.Ledger{}, LoadReport{}, fmt.Errorf("%w: reading %s: %v", ErrConfigLoad, s.path, err)
	}

	l, err := Decode(data, s.baseCurrency)
	if err != nil {
		return domain.Ledger{}, LoadReport{}, fmt.Errorf("%w: %s: %v", ErrConfigLoad, s.path, err)
	}

	report := Validate(l)
	for _, r := range report.Rejected {
		slog.Warn("malformed ledger record", "id", r.AssetID, "symbol", r.Symbol, "field", r.Field, "reason", r.Reason)
	}
	return l, report, nil
}

// Save writes the ledger back to disk.
func (s *FileStore) Save(_ context.Context, l domain.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l.SchemaVersion = domain.LedgerSchemaVersion
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}
	if err := fsutil.WriteFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("writing ledger %s: %w", s.path, err)
	}
	return nil
}

// Decode parses a ledger document. Records without a category inherit the one they are filed under.
func Decode(data []byte, baseCurrency string) (domain.Ledger, error) {
	l := domain.NewLedger(baseCurrency)
	if err := json.Unmarshal(data, &l); err != nil {
		return domain.Ledger{}, fmt.Errorf("decoding ledger: %w", err)
	}
	if l.SchemaVersion > domain.LedgerSchemaVersion {
		return domain.Ledger{}, fmt.Errorf("unsupported ledger schema version %d", l.SchemaVersion)
	}
	if l.Assets == nil {
		l.Assets = make(map[domain.Category][]domain.Asset)
	}
	if l.BaseCurrency == "" {
		l.BaseCurrency = baseCurrency
	}
	for c, group := range l.Assets {
		for i := range group {
			if group[i].Category == "" {
				group[i].Category = c
			}
		}
	}
	return l, nil
}

// Add validates a new record, assigns it an id and appends it to its category.
func Add(l *domain.Ledger, a domain.Asset) (domain.Asset, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a = normalize(a)

	if err := validateNew(a); err != nil {
		return domain.Asset{}, err
	}
	if err := checkDuplicate(*l, a); err != nil {
		return domain.Asset{}, err
	}
	if _, ok := l.Find(a.ID); ok {
		return domain.Asset{}, fmt.Errorf("%w: id %s", ErrDuplicateAsset, a.ID)
	}

	if l.Assets == nil {
		l.Assets = make(map[domain.Category][]domain.Asset)
	}
	l.Assets[a.Category] = append(l.Assets[a.Category], a)
	return a, nil
}

// Update replaces the record carrying a.ID in place. The id and the category are fixed
// for the life of a record, so the payment audit log keeps pointing at it.
func Update(l *domain.Ledger, a domain.Asset) (domain.Asset, error) {
	current, ok := l.Find(a.ID)
	if !ok {
		return domain.Asset{}, fmt.Errorf("%w: %s", ErrNotFound, a.ID)
	}
	if a.Category != current.Category {
		return domain.Asset{}, &domain.ValidationError{AssetID: a.ID, Symbol: a.Symbol, Field: "category", Reason: "cannot be changed"}
	}
	a = normalize(a)

	if err := validateNew(a); err != nil {
		return domain.Asset{}, err
	}
	if err := checkDuplicate(*l, a); err != nil {
		return domain.Asset{}, err
	}

	*current = a
	return a, nil
}

func normalize(a domain.Asset) domain.Asset {
	a.Symbol = strings.TrimSpace(a.Symbol)
	a.Name = strings.TrimSpace(a.Name)
	if a.Category == domain.CategoryCash && a.AverageCost.IsZero() {
		a.AverageCost = decimal.NewFromInt(1)
	}
	return a
}

// checkDuplicate rejects a when another record of its category has the same symbol.
func checkDuplicate(l domain.Ledger, a domain.Asset) error {
	for _, existing := range l.ByCategory(a.Category) {
		if existing.ID != a.ID && existing.Key() == a.Key() {
			return fmt.Errorf("%w: %s %s", ErrDuplicateAsset, a.Category, a.Symbol)
		}
	}
	return nil
}

// validateNew applies the stricter rules for records entered by hand.
func validateNew(a domain.Asset) error {
	if err := a.Validate(); err != nil {
		return err
	}
	invalid := func(field, reason string) error {
		return &domain.ValidationError{AssetID: a.ID, Symbol: a.Symbol, Field: field, Reason: reason}
	}
	if a.Name == "" {
		return invalid("name", "is required")
	}
	switch a.Category {
	case domain.CategoryLiability:
		if !a.Amount.IsPositive() {
			return invalid("amount", "must be greater than 0")
		}
	case domain.CategoryCrypto, domain.CategoryStock, domain.CategoryForex:
		if !a.AverageCost.IsPositive() {
			return invalid("averageCost", "must be greater than 0")
		}
	}
	return nil
}

// Remove deletes the asset with the given id.
func Remove(l *domain.Ledger, id string) (domain.Asset, error) {
	for c, group := range l.Assets {
		for i, a := range group {
			if a.ID == id {
				l.Assets[c] = append(group[:i:i], group[i+1:]...)
				return a, nil
			}
		}
	}
	return domain.Asset{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}
