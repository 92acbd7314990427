package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attendance-ease-api/internal/dto"
	"github.com/noah-isme/attendance-ease-api/internal/service"
	"github.com/noah-isme/attendance-ease-api/pkg/export"
	"github.com/noah-isme/attendance-ease-api/pkg/response"
)

type reportService interface {
	Register(ctx context.Context, courseID string) (*dto.RegisterReport, error)
	Summary(ctx context.Context, courseID string, from, to *time.Time) (*dto.SummaryReport, error)
}

type exportService interface {
	ExportRegister(ctx context.Context, courseID string, format export.Format) (*dto.ExportFile, error)
	ExportSummary(ctx context.Context, courseID string, from, to *time.Time, format export.Format) (*dto.ExportFile, error)
}

// ReportHandler exposes attendance report endpoints.
type ReportHandler struct {
	reports reportService
	exports exportService
}

// NewReportHandler constructs the handler.
func NewReportHandler(reports reportService, exports exportService) *ReportHandler {
	return &ReportHandler{reports: reports, exports: exports}
}

// Register godoc
// @Summary Attendance register
// @Description Per-date P/A grid; percentages use every recorded course date as denominator
// @Tags Reports
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/reports/register [get]
func (h *ReportHandler) Register(c *gin.Context) {
	report, err := h.reports.Register(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil, map[string]interface{}{"rateBasis": report.RateBasis})
}

// Summary godoc
// @Summary Attendance summary
// @Description Per-student counts within an optional range; percentages use the student's recorded sessions
// @Tags Reports
// @Produce json
// @Param id path string true "Course ID"
// @Param from query string false "From date (yyyy-MM-dd)"
// @Param to query string false "To date (yyyy-MM-dd)"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/reports/summary [get]
func (h *ReportHandler) Summary(c *gin.Context) {
	from, to, err := service.ParseDateRange(c.Query("from"), c.Query("to"))
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.reports.Summary(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil, map[string]interface{}{"rateBasis": report.RateBasis})
}

// ExportRegister godoc
// @Summary Export attendance register
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Course ID"
// @Param format query string false "csv, pdf or xlsx" default(csv)
// @Success 200 {file} file
// @Router /courses/{id}/reports/register/export [get]
func (h *ReportHandler) ExportRegister(c *gin.Context) {
	file, err := h.exports.ExportRegister(c.Request.Context(), c.Param("id"), export.Format(c.DefaultQuery("format", string(export.FormatCSV))))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}

// ExportSummary godoc
// @Summary Export attendance summary
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Course ID"
// @Param from query string false "From date (yyyy-MM-dd)"
// @Param to query string false "To date (yyyy-MM-dd)"
// @Param format query string false "csv, pdf or xlsx" default(csv)
// @Success 200 {file} file
// @Router /courses/{id}/reports/summary/export [get]
func (h *ReportHandler) ExportSummary(c *gin.Context) {
	from, to, err := service.ParseDateRange(c.Query("from"), c.Query("to"))
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exports.ExportSummary(c.Request.Context(), c.Param("id"), from, to, export.Format(c.DefaultQuery("format", string(export.FormatCSV))))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}
