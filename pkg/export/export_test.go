package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	headers := []string{"#", "Name", "Roll Number", "01 May, 24", "03 May, 24", "Percentage"}
	return Dataset{
		Title:   "CS101 attendance register",
		Headers: headers,
		Rows: []map[string]string{
			{"#": "1", "Name": "Ada, Lovelace", "Roll Number": "01", "01 May, 24": "P", "03 May, 24": "P", "Percentage": "100.00"},
			{"#": "2", "Name": `Bob "B" Stone`, "Roll Number": "02", "01 May, 24": "A", "03 May, 24": "-", "Percentage": "0.00"},
		},
	}
}

func TestCSVExporterLineAndFieldCounts(t *testing.T) {
	data := sampleDataset()
	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, len(data.Rows)+1)
	dates := 2
	for _, rec := range records {
		assert.Len(t, rec, 3+dates+1)
	}
	assert.Equal(t, "Ada, Lovelace", records[1][1])
	assert.Equal(t, `Bob "B" Stone`, records[2][1])
	assert.Contains(t, string(out), `"Bob ""B"" Stone"`)
}

func TestCSVExporterRejectsMissingHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)

	_, err = NewCSVExporter().Render(Dataset{Headers: []string{"a", "a"}})
	assert.Error(t, err)
}

func TestPDFExporterProducesDocument(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestXLSXExporterWritesSheet(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleDataset())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(xlsxSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Roll Number", rows[0][2])
	assert.Equal(t, "100.00", rows[1][5])
}

func TestNewRenderer(t *testing.T) {
	r, err := NewRenderer(FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, "xlsx", r.Extension())

	r, err = NewRenderer("")
	require.NoError(t, err)
	assert.Equal(t, "csv", r.Extension())

	_, err = NewRenderer("docx")
	assert.Error(t, err)
}

func registerHeaders(dates int) []string {
	headers := []string{"#", "Name", "Roll Number"}
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < dates; i++ {
		headers = append(headers, day.AddDate(0, 0, i).Format("02 Jan, 06"))
	}
	return append(headers, "Percentage")
}

func TestColumnWidthsFitPage(t *testing.T) {
	sections := layoutSections([]string{"#", "Name", "Roll", "P"}, 0)
	require.Len(t, sections, 1)
	assert.Equal(t, pdfIndexWidth, sections[0].Widths[0])
	assert.Equal(t, pdfNameWidth, sections[0].Widths[1])
	assert.InDelta(t, pdfPageWidth-2*pdfMargin, sumWidths(sections[0].Widths), 0.001)
}

func TestLayoutSectionsSplitsWideRegister(t *testing.T) {
	for _, dates := range []int{2, 13, 14, 20, 40} {
		t.Run(fmt.Sprintf("%d dates", dates), func(t *testing.T) {
			headers := registerHeaders(dates)
			sections := layoutSections(headers, 3)
			require.NotEmpty(t, sections)

			seen := map[int]int{}
			for _, section := range sections {
				require.Len(t, section.Widths, len(section.Columns))
				assert.Equal(t, []int{0, 1, 2}, section.Columns[:3])
				assert.InDelta(t, pdfPageWidth-2*pdfMargin, sumWidths(section.Widths), 0.001)
				for i, col := range section.Columns {
					if col > 1 {
						assert.GreaterOrEqual(t, section.Widths[i], pdfMinColWidth)
					}
					if col >= 3 {
						seen[col]++
					}
				}
			}
			for col := 3; col < len(headers); col++ {
				assert.Equal(t, 1, seen[col], "column %q printed once", headers[col])
			}
			last := sections[len(sections)-1]
			assert.Equal(t, len(headers)-1, last.Columns[len(last.Columns)-1])
		})
	}

	assert.Len(t, layoutSections(registerHeaders(13), 3), 1)
	assert.Len(t, layoutSections(registerHeaders(20), 3), 2)
	assert.Len(t, layoutSections(registerHeaders(40), 3), 3)
}

func TestPDFExporterRendersWideRegister(t *testing.T) {
	headers := registerHeaders(40)
	row := map[string]string{}
	for _, h := range headers {
		row[h] = "P"
	}
	out, err := NewPDFExporter().Render(Dataset{Title: "CS101", Headers: headers, Rows: []map[string]string{row}, KeyColumns: 3})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func sumWidths(widths []float64) float64 {
	total := 0.0
	for _, w := range widths {
		total += w
	}
	return total
}
