package excel

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"geoanomaly/domain/cooccur"
)

// ResultWriter exports a cooccurrence analysis run as a workbook for
// reviewers: a summary sheet plus one row per pairing with the null
// distribution behind each score.
type ResultWriter struct{}

// NewResultWriter creates an Excel result writer
func NewResultWriter() *ResultWriter {
	return &ResultWriter{}
}

const (
	summarySheet  = "Summary"
	pairingsSheet = "Pairings"
)

// Write renders the result workbook to path.
func (w *ResultWriter) Write(result *cooccur.Result, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", summarySheet)
	if _, err := f.NewSheet(pairingsSheet); err != nil {
		return fmt.Errorf("failed to create pairings sheet: %w", err)
	}

	w.writeSummary(f, result)
	w.writePairings(f, result.Pairings, pairingsSheet)

	for i, stratum := range result.Stratified {
		sheet := fmt.Sprintf("Quartile %d", stratum.Quartile)
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to create stratum sheet %d: %w", i, err)
		}
		w.writePairings(f, stratum.Pairings, sheet)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func (w *ResultWriter) writeSummary(f *excelize.File, result *cooccur.Result) {
	rows := [][]interface{}{
		{"Run ID", result.RunID.String()},
		{"Resolution (degrees)", result.Resolution},
		{"Shuffle count", result.ShuffleCount},
		{"Cells analyzed", result.CellCount},
		{"Window effect detected", result.WindowEffectDetected},
		{"Analyzed at", result.AnalyzedAt.String()},
	}
	if result.Strongest != nil {
		rows = append(rows,
			[]interface{}{"Strongest pairing", result.Strongest.Pairing.Label},
			[]interface{}{"Strongest z-score", result.Strongest.ZScore},
		)
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		f.SetSheetRow(summarySheet, cell, &row)
	}
}

func (w *ResultWriter) writePairings(f *excelize.File, pairings []cooccur.PairingResult, sheet string) {
	header := []interface{}{
		"Pairing", "Observed", "Expected", "Std Dev", "Z-Score",
		"P-Value", "Obs/Exp Ratio", "Null Min", "Null Max", "Null P95",
	}
	f.SetSheetRow(sheet, "A1", &header)

	for i, p := range pairings {
		row := []interface{}{
			p.Pairing.Label, p.ObservedCount, p.Expected, p.StdDev, p.ZScore,
			p.PValue, p.Ratio, p.NullMin, p.NullMax, p.NullP95,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		f.SetSheetRow(sheet, cell, &row)
	}
}
