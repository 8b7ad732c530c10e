package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"payslipx/internal/domain"
)

const (
	ledgerSheet  = "Ledger"
	devicesSheet = "Devices"
)

var deviceColumns = []string{"Device ID", "Calls", "Failures", "Total Tokens", "Cost (USD)", "Cost (INR)", "Last Seen", "Anomaly"}

// WriteXLSX writes a workbook with the raw ledger and the per-device rollup.
func WriteXLSX(out io.Writer, recs []domain.UsageRecord, summary *domain.UsageSummary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ledgerSheet); err != nil {
		return fmt.Errorf("export.WriteXLSX: %w", err)
	}
	if err := writeRow(f, ledgerSheet, 1, toAny(columns)); err != nil {
		return err
	}
	for i := range recs {
		r := &recs[i]
		row := []any{
			r.Timestamp.UTC().Format(time.RFC3339), r.ID.String(), r.DeviceID, r.SessionID.String(),
			r.Provider, r.Model, r.InputTokens, r.OutputTokens, r.TotalTokens,
			r.CostUSD, r.CostINR, formatBool(r.Success), r.LatencyMs, r.ErrorMessage,
		}
		if err := writeRow(f, ledgerSheet, i+2, row); err != nil {
			return err
		}
	}

	if summary != nil {
		if _, err := f.NewSheet(devicesSheet); err != nil {
			return fmt.Errorf("export.WriteXLSX: %w", err)
		}
		if err := writeRow(f, devicesSheet, 1, toAny(deviceColumns)); err != nil {
			return err
		}
		flagged := make(map[string]bool, len(summary.Anomalies))
		for _, a := range summary.Anomalies {
			flagged[a.DeviceID] = true
		}
		for i, d := range summary.Devices {
			row := []any{
				d.DeviceID, d.Calls, d.Failures, d.TotalTokens, d.CostUSD, d.CostINR,
				d.LastSeen.UTC().Format(time.RFC3339), formatBool(flagged[d.DeviceID]),
			}
			if err := writeRow(f, devicesSheet, i+2, row); err != nil {
				return err
			}
		}
	}

	if err := f.Write(out); err != nil {
		return fmt.Errorf("export.WriteXLSX: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("export.writeRow: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("export.writeRow: %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
