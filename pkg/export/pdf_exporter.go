package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfPageWidth   = 297.0
	pdfMargin      = 10.0
	pdfIndexWidth  = 10.0
	pdfNameWidth   = 50.0
	pdfMinColWidth = 14.0
	pdfNarrowWidth = 18.0
)

// PDFExporter renders datasets into a landscape tabular PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

func (e *PDFExporter) ContentType() string { return "application/pdf" }

func (e *PDFExporter) Extension() string { return "pdf" }

// pdfSection is one horizontal slice of a table: the header indexes it prints
// and their widths.
type pdfSection struct {
	Columns []int
	Widths  []float64
}

// Render creates a PDF document with the dataset title and a grid with a filled header row.
// Tables wider than the page are split into sections that repeat the key columns.
func (e *PDFExporter) Render(data Dataset) ([]byte, error) {
	if err := data.validate("pdf"); err != nil {
		return nil, err
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, 15, pdfMargin)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	_, pageHeight := pdf.GetPageSize()

	sections := layoutSections(data.Headers, data.KeyColumns)
	for n, section := range sections {
		pdf.AddPage()
		if data.Title != "" {
			title := data.Title
			if len(sections) > 1 {
				title = fmt.Sprintf("%s (part %d of %d)", data.Title, n+1, len(sections))
			}
			pdf.SetFont("Arial", "B", 14)
			pdf.CellFormat(0, 10, tr(title), "", 1, "L", false, 0, "")
			pdf.Ln(3)
		}

		fontSize := sectionFontSize(section)
		writeHeader := func() {
			pdf.SetFont("Arial", "B", fontSize)
			pdf.SetFillColor(52, 73, 94)
			pdf.SetTextColor(255, 255, 255)
			for i, col := range section.Columns {
				pdf.CellFormat(section.Widths[i], 8, tr(data.Headers[col]), "1", 0, "C", true, 0, "")
			}
			pdf.Ln(-1)
			pdf.SetTextColor(0, 0, 0)
			pdf.SetFont("Arial", "", fontSize)
		}
		writeHeader()

		_, _, _, bottom := pdf.GetMargins()
		for idx, row := range data.Rows {
			if pdf.GetY()+7 > pageHeight-bottom {
				pdf.AddPage()
				writeHeader()
			}
			fill := idx%2 == 1
			pdf.SetFillColor(236, 240, 241)
			record := data.Record(row)
			for i, col := range section.Columns {
				align := "C"
				if col == 1 {
					align = "L"
				}
				pdf.CellFormat(section.Widths[i], 7, tr(record[col]), "1", 0, align, fill, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// layoutSections splits headers into sections that each span exactly the printable
// width. The index and name columns keep fixed widths; every other column gets at
// least pdfMinColWidth, and the first key columns lead every section.
func layoutSections(headers []string, key int) []pdfSection {
	usable := pdfPageWidth - 2*pdfMargin
	if len(headers) <= 2 {
		section := pdfSection{Columns: make([]int, len(headers)), Widths: make([]float64, len(headers))}
		for i := range headers {
			section.Columns[i] = i
			section.Widths[i] = usable / float64(len(headers))
		}
		return []pdfSection{section}
	}
	if key < 0 || key >= len(headers) {
		key = 0
	}

	keyWidth := 0.0
	for i := 0; i < key; i++ {
		keyWidth += naturalWidth(i)
	}

	var sections []pdfSection
	var current []int
	used := keyWidth
	for col := key; col < len(headers); col++ {
		w := naturalWidth(col)
		if len(current) > 0 && used+w > usable {
			sections = append(sections, stretchSection(key, current, usable))
			current = nil
			used = keyWidth
		}
		current = append(current, col)
		used += w
	}
	if len(current) > 0 || len(sections) == 0 {
		sections = append(sections, stretchSection(key, current, usable))
	}
	return sections
}

func naturalWidth(col int) float64 {
	switch col {
	case 0:
		return pdfIndexWidth
	case 1:
		return pdfNameWidth
	default:
		return pdfMinColWidth
	}
}

// stretchSection prefixes the key columns and spreads the leftover width evenly
// over the flexible columns so the section fills the page.
func stretchSection(key int, body []int, usable float64) pdfSection {
	columns := make([]int, 0, key+len(body))
	for i := 0; i < key; i++ {
		columns = append(columns, i)
	}
	columns = append(columns, body...)

	fixed := 0.0
	flexible := 0
	for _, col := range columns {
		if col <= 1 {
			fixed += naturalWidth(col)
		} else {
			flexible++
		}
	}
	widths := make([]float64, len(columns))
	for i, col := range columns {
		switch {
		case col <= 1 && flexible > 0:
			widths[i] = naturalWidth(col)
		case col <= 1:
			widths[i] = naturalWidth(col) * usable / fixed
		default:
			widths[i] = (usable - fixed) / float64(flexible)
		}
	}
	return pdfSection{Columns: columns, Widths: widths}
}

func sectionFontSize(section pdfSection) float64 {
	for i, col := range section.Columns {
		if col > 1 && section.Widths[i] < pdfNarrowWidth {
			return 7
		}
	}
	return 9
}
