// Package export writes the usage ledger as CSV or XLSX.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"payslipx/internal/domain"
)

// BOM is the UTF-8 byte order mark Excel on Windows needs to detect UTF-8.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the ledger header row.
var columns = []string{
	"Timestamp",
	"Record ID",
	"Device ID",
	"Session ID",
	"Provider",
	"Model",
	"Input Tokens",
	"Output Tokens",
	"Total Tokens",
	"Cost (USD)",
	"Cost (INR)",
	"Success",
	"Latency (ms)",
	"Error",
}

// Columns returns a copy of the ledger header row.
func Columns() []string {
	return append([]string(nil), columns...)
}

// Writer wraps csv.Writer for exporting usage records.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

func (w *Writer) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteRecords writes one row per usage record.
func (w *Writer) WriteRecords(recs []domain.UsageRecord) error {
	for i := range recs {
		if err := w.csv.Write(recordToRow(&recs[i])); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) Flush() {
	w.csv.Flush()
}

func (w *Writer) Error() error {
	return w.csv.Error()
}

// WriteCSV writes BOM, header and records to out.
func WriteCSV(out io.Writer, recs []domain.UsageRecord) error {
	if _, err := out.Write(BOM); err != nil {
		return err
	}
	w := NewWriter(out)
	if err := w.WriteHeader(); err != nil {
		return err
	}
	if err := w.WriteRecords(recs); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func recordToRow(r *domain.UsageRecord) []string {
	return []string{
		r.Timestamp.UTC().Format(time.RFC3339),
		r.ID.String(),
		r.DeviceID,
		r.SessionID.String(),
		r.Provider,
		r.Model,
		strconv.Itoa(r.InputTokens),
		strconv.Itoa(r.OutputTokens),
		strconv.Itoa(r.TotalTokens),
		formatCost(r.CostUSD),
		formatCost(r.CostINR),
		formatBool(r.Success),
		strconv.FormatInt(r.LatencyMs, 10),
		r.ErrorMessage,
	}
}

func formatCost(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func formatBool(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename replaces characters other than alphanumerics, - and _
// with _, collapses runs of _ and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns {name}_{from}_{to}.{ext} for Content-Disposition.
func BuildFilename(name string, from, to time.Time, ext string) string {
	return fmt.Sprintf("%s_%s_%s.%s", SanitizeFilename(name), from.Format("2006-01-02"), to.Format("2006-01-02"), ext)
}
