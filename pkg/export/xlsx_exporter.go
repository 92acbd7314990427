package export

import (
	"fmt"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Attendance"

// XLSXExporter renders datasets into a single-sheet workbook.
type XLSXExporter struct{}

// NewXLSXExporter constructs an Excel exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

func (e *XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (e *XLSXExporter) Extension() string { return "xlsx" }

// Render writes the header and rows, then applies bold header, auto filter and column widths.
func (e *XLSXExporter) Render(data Dataset) ([]byte, error) {
	if err := data.validate("xlsx"); err != nil {
		return nil, err
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), xlsxSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	if err := f.SetSheetRow(xlsxSheet, "A1", &data.Headers); err != nil {
		return nil, fmt.Errorf("write xlsx headers: %w", err)
	}
	for i, row := range data.Rows {
		record := data.Record(row)
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(xlsxSheet, cell, &record); err != nil {
			return nil, fmt.Errorf("write xlsx row: %w", err)
		}
	}

	if err := applyFormatting(f, data); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func applyFormatting(f *excelize.File, data Dataset) error {
	cols := len(data.Headers)
	last, err := excelize.ColumnNumberToName(cols)
	if err != nil {
		return fmt.Errorf("resolve column: %w", err)
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	if err := f.SetCellStyle(xlsxSheet, "A1", last+"1", style); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}
	if err := f.AutoFilter(xlsxSheet, fmt.Sprintf("A1:%s1", last), nil); err != nil {
		return fmt.Errorf("apply auto filter: %w", err)
	}

	widths := make([]float64, cols)
	for i, header := range data.Headers {
		widths[i] = columnWidth(header, true)
	}
	for _, row := range data.Rows {
		for i, v := range data.Record(row) {
			if w := columnWidth(v, false); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for i, w := range widths {
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(xlsxSheet, name, name, w); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}
	return nil
}

func columnWidth(value string, header bool) float64 {
	w := float64(utf8.RuneCountInString(value)) * 1.1
	if header {
		w += 1.5
	}
	if w < 6 {
		w = 6
	}
	if w > 60 {
		w = 60
	}
	return w
}
