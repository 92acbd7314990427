package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/attendance-ease-api/internal/dto"
	"github.com/noah-isme/attendance-ease-api/internal/models"
	appErrors "github.com/noah-isme/attendance-ease-api/pkg/errors"
	"github.com/noah-isme/attendance-ease-api/pkg/export"
)

// Report views that can be exported.
const (
	ReportViewRegister = "register"
	ReportViewSummary  = "summary"
)

// columnDateLayout renders register date headers, e.g. "01 May, 24".
const columnDateLayout = "02 Jan, 06"

type reportBuilder interface {
	Register(ctx context.Context, courseID string) (*dto.RegisterReport, error)
	Summary(ctx context.Context, courseID string, from, to *time.Time) (*dto.SummaryReport, error)
}

// ExportConfig tunes rendered documents.
type ExportConfig struct {
	Title string
}

// ExportService renders attendance reports into downloadable documents.
type ExportService struct {
	reports reportBuilder
	logger  *zap.Logger
	metrics *MetricsService
	cfg     ExportConfig
	now     func() time.Time
}

// NewExportService constructs the exporter.
func NewExportService(reports reportBuilder, logger *zap.Logger, metrics *MetricsService, cfg ExportConfig) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Title == "" {
		cfg.Title = "AttendanceEase"
	}
	return &ExportService{reports: reports, logger: logger, metrics: metrics, cfg: cfg, now: time.Now}
}

// ExportRegister renders the course-wide register in the requested format.
func (s *ExportService) ExportRegister(ctx context.Context, courseID string, format export.Format) (*dto.ExportFile, error) {
	renderer, err := rendererFor(format)
	if err != nil {
		return nil, err
	}
	report, err := s.reports.Register(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return s.render(renderer, ReportViewRegister, courseID, RegisterDataset(report, s.title(report.Course, "attendance register")))
}

// ExportSummary renders the dated summary in the requested format.
func (s *ExportService) ExportSummary(ctx context.Context, courseID string, from, to *time.Time, format export.Format) (*dto.ExportFile, error) {
	renderer, err := rendererFor(format)
	if err != nil {
		return nil, err
	}
	report, err := s.reports.Summary(ctx, courseID, from, to)
	if err != nil {
		return nil, err
	}
	title := s.title(report.Course, "attendance summary")
	if report.From != nil || report.To != nil {
		title += fmt.Sprintf(" (%s to %s)", orDash(report.From), orDash(report.To))
	}
	return s.render(renderer, ReportViewSummary, courseID, SummaryDataset(report, title))
}

func (s *ExportService) render(renderer export.Renderer, view, courseID string, data export.Dataset) (*dto.ExportFile, error) {
	payload, err := renderer.Render(data)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render report")
	}
	s.metrics.RecordReport(view, renderer.Extension())
	s.logger.Info("attendance report exported",
		zap.String("view", view),
		zap.String("course_id", courseID),
		zap.String("format", renderer.Extension()),
		zap.Int("rows", len(data.Rows)),
	)
	return &dto.ExportFile{
		Filename:    ReportFilename(view, courseID, s.now(), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Payload:     payload,
	}, nil
}

func (s *ExportService) title(course dto.CourseRef, label string) string {
	name := course.Name
	if course.Code != "" {
		name = fmt.Sprintf("%s (%s)", course.Name, course.Code)
	}
	return fmt.Sprintf("%s - %s %s", s.cfg.Title, name, label)
}

// ReportFilename returns attendance_<view>_<courseID>_<yyyy-MM-dd>.<ext>.
func ReportFilename(view, courseID string, at time.Time, ext string) string {
	return fmt.Sprintf("attendance_%s_%s_%s.%s", view, courseID, at.Format(models.DateLayout), ext)
}

// RegisterDataset lays out the register as #, Name, Roll Number, one column per
// date and Percentage.
func RegisterDataset(report *dto.RegisterReport, title string) export.Dataset {
	dateHeaders := make([]string, len(report.Dates))
	for i, date := range report.Dates {
		dateHeaders[i] = date
		if t, err := time.Parse(models.DateLayout, date); err == nil {
			dateHeaders[i] = t.Format(columnDateLayout)
		}
	}

	headers := append([]string{"#", "Name", "Roll Number"}, dateHeaders...)
	headers = append(headers, "Percentage")

	rows := make([]map[string]string, 0, len(report.Rows))
	for i, r := range report.Rows {
		row := map[string]string{
			"#":           strconv.Itoa(i + 1),
			"Name":        r.Name,
			"Roll Number": r.RollNumber,
			"Percentage":  strconv.FormatFloat(r.Percentage, 'f', 2, 64),
		}
		for j, header := range dateHeaders {
			cell := dto.CellMissing
			if j < len(r.Cells) && r.Cells[j] != "" {
				cell = r.Cells[j]
			}
			row[header] = cell
		}
		rows = append(rows, row)
	}
	return export.Dataset{Title: title, Headers: headers, Rows: rows, KeyColumns: 3}
}

// SummaryDataset lays out the summary as #, Name, Roll Number, Present, Absent,
// Total and Percentage.
func SummaryDataset(report *dto.SummaryReport, title string) export.Dataset {
	headers := []string{"#", "Name", "Roll Number", "Present", "Absent", "Total", "Percentage"}
	rows := make([]map[string]string, 0, len(report.Rows))
	for i, r := range report.Rows {
		rows = append(rows, map[string]string{
			"#":           strconv.Itoa(i + 1),
			"Name":        r.Name,
			"Roll Number": r.RollNumber,
			"Present":     strconv.Itoa(r.Present),
			"Absent":      strconv.Itoa(r.Absent),
			"Total":       strconv.Itoa(r.Total),
			"Percentage":  strconv.Itoa(r.Percentage),
		})
	}
	return export.Dataset{Title: title, Headers: headers, Rows: rows, KeyColumns: 3}
}

func rendererFor(format export.Format) (export.Renderer, error) {
	renderer, err := export.NewRenderer(export.Format(strings.ToLower(string(format))))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnsupportedFormat.Code, appErrors.ErrUnsupportedFormat.Status, appErrors.ErrUnsupportedFormat.Message)
	}
	return renderer, nil
}

func orDash(v *string) string {
	if v == nil {
		return "-"
	}
	return *v
}
