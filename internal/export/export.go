// Package export writes snapshot history and holdings to spreadsheets.
package export

import (
	"context"
	"fmt"

	"github.com/mtlprog/wealth/internal/refresh"
)

// SheetWriter writes rows to a spreadsheet destination.
type SheetWriter interface {
	AppendHistory(ctx context.Context, header, row []any) error
	ReplaceHoldings(ctx context.Context, rows [][]any) error
}

// Service mirrors every refresh cycle into a spreadsheet.
type Service struct {
	writer SheetWriter
}

// NewService creates a new export Service.
func NewService(writer SheetWriter) *Service {
	if writer == nil {
		panic("export.NewService: writer is nil")
	}
	return &Service{writer: writer}
}

// Export appends the cycle's snapshot to the history sheet and rewrites the holdings sheet.
// Implements worker.AfterRefreshHook.
func (s *Service) Export(ctx context.Context, res refresh.Result) error {
	if err := s.writer.AppendHistory(ctx, historyHeader(), historyRow(res.Snapshot)); err != nil {
		return fmt.Errorf("exporting snapshot of %s: %w", stamp(res.Snapshot.Timestamp), err)
	}
	rows := append([][]any{holdingsHeader}, holdingsRows(res.Assessments)...)
	if err := s.writer.ReplaceHoldings(ctx, rows); err != nil {
		return fmt.Errorf("exporting holdings: %w", err)
	}
	return nil
}
