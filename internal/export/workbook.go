// Package export renders a batch and its compliance report as an XLSX workbook.
package export

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/tradedocs/internal/pipeline"
	"github.com/joseph-ayodele/tradedocs/internal/schema"
	"github.com/joseph-ayodele/tradedocs/internal/summarize"
)

const (
	SheetReport = "Report"
	SheetItems  = "Items"
	SheetFields = "Fields"
)

// WriteWorkbook returns the workbook bytes for one run.
func WriteWorkbook(items []pipeline.BatchItem, report summarize.ComplianceReport, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()

	// the default sheet becomes the report sheet
	if err := f.SetSheetName(f.GetSheetName(0), SheetReport); err != nil {
		return nil, err
	}
	for _, name := range []string{SheetItems, SheetFields} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	writeReport(f, report)
	writeItems(f, items)
	rows := writeFields(f, items)

	_ = f.SetColWidth(SheetReport, "A", "A", 24)
	_ = f.SetColWidth(SheetReport, "B", "B", 100)
	_ = f.SetColWidth(SheetItems, "A", "A", 40)
	_ = f.SetColWidth(SheetItems, "B", "D", 26)
	_ = f.SetColWidth(SheetItems, "E", "E", 60)
	_ = f.SetColWidth(SheetFields, "A", "A", 40)
	_ = f.SetColWidth(SheetFields, "B", "C", 26)
	_ = f.SetColWidth(SheetFields, "D", "D", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	logger.Info("export.xlsx.ok",
		"items", len(items),
		"field_rows", rows,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// WriteWorkbookFile writes the workbook to path, creating parent directories.
func WriteWorkbookFile(path string, items []pipeline.BatchItem, report summarize.ComplianceReport, logger *slog.Logger) error {
	b, err := WriteWorkbook(items, report, logger)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) {
	cell, _ := excelize.CoordinatesToCellName(1, row)
	_ = f.SetSheetRow(sheet, cell, &values)
}

func writeReport(f *excelize.File, r summarize.ComplianceReport) {
	row := 1
	writeRow(f, SheetReport, row, "Overall Status", r.OverallStatus)
	row += 2
	sections := []struct {
		title string
		lines []string
	}{
		{"Summary", r.Summary},
		{"LC Validation", r.LCValidationSummary},
		{"Detailed Findings", r.DetailedFindings},
		{"Missing Documents", r.MissingDocuments},
	}
	for _, s := range sections {
		if len(s.lines) == 0 {
			writeRow(f, SheetReport, row, s.title, "None")
			row += 2
			continue
		}
		for i, line := range s.lines {
			title := ""
			if i == 0 {
				title = s.title
			}
			writeRow(f, SheetReport, row, title, line)
			row++
		}
		row++
	}
}

func itemStatus(it pipeline.BatchItem) (status, errKind, raw string) {
	if it.ClassificationError != nil {
		return "Unresolved", string(it.ClassificationError.Error), it.ClassificationError.RawModelOutput
	}
	rec, ok := it.Record()
	if !ok {
		return "Unresolved", "", ""
	}
	if failure, failed := rec.Failure(); failed {
		return "Extraction failed", string(failure.Error), failure.RawModelOutput
	}
	return "Extracted", "", ""
}

func writeItems(f *excelize.File, items []pipeline.BatchItem) {
	writeRow(f, SheetItems, 1, "File Name", "Document Type", "Status", "Error", "Raw Model Output")
	for i, it := range items {
		dt := ""
		if t, ok := it.Type(); ok {
			dt = t.String()
		}
		status, kind, raw := itemStatus(it)
		writeRow(f, SheetItems, i+2, it.FileName, dt, status, kind, truncate(raw, 500))
	}
}

func writeFields(f *excelize.File, items []pipeline.BatchItem) int {
	writeRow(f, SheetFields, 1, "File Name", "Document Type", "Field", "Value")
	row := 2
	for _, it := range items {
		rec, ok := it.Record()
		if !ok {
			continue
		}
		fields, ok := rec.Fields()
		if !ok {
			continue
		}
		dt, _ := it.Type()
		for _, kv := range flatten("", fields) {
			writeRow(f, SheetFields, row, it.FileName, dt.String(), kv[0], kv[1])
			row++
		}
	}
	return row - 2
}

// flatten lists fields in schema order with nested keys dotted.
func flatten(prefix string, r schema.Record) [][2]string {
	var out [][2]string
	for _, key := range r.Schema().Keys() {
		name := key
		if prefix != "" {
			name = prefix + "." + key
		}
		if nested, ok := r.Object(key); ok {
			out = append(out, flatten(name, nested)...)
			continue
		}
		v, _ := r.Get(key)
		out = append(out, [2]string{name, cellText(v)})
	}
	return out
}

func cellText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, it := range t {
			parts = append(parts, cellText(it))
		}
		return strings.Join(parts, "; ")
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
