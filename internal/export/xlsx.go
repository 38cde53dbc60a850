package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/mtlprog/wealth/internal/domain"
	"github.com/mtlprog/wealth/internal/snapshot"
)

// Sheet names shared by the XLSX and Google Sheets exports.
const (
	HistorySheet  = "HISTORY"
	HoldingsSheet = "HOLDINGS"
)

// WriteWorkbook writes the snapshot history and the current holdings as an XLSX workbook.
func WriteWorkbook(w io.Writer, history []snapshot.Snapshot, holdings []domain.Assessment) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", HistorySheet); err != nil {
		return fmt.Errorf("naming history sheet: %w", err)
	}
	historyRows := make([][]any, 0, len(history)+1)
	historyRows = append(historyRows, historyHeader())
	for _, s := range history {
		historyRows = append(historyRows, historyRow(s))
	}
	if err := writeRows(f, HistorySheet, historyRows); err != nil {
		return err
	}

	if _, err := f.NewSheet(HoldingsSheet); err != nil {
		return fmt.Errorf("creating holdings sheet: %w", err)
	}
	if err := writeRows(f, HoldingsSheet, append([][]any{holdingsHeader}, holdingsRows(holdings)...)); err != nil {
		return err
	}

	for _, sheet := range []string{HistorySheet, HoldingsSheet} {
		if err := f.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return fmt.Errorf("freezing %s header: %w", sheet, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("addressing %s row %d: %w", sheet, i+1, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
