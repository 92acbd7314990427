package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attendance-ease-api/internal/models"
	"github.com/noah-isme/attendance-ease-api/internal/service"
	"github.com/noah-isme/attendance-ease-api/pkg/response"
)

type attendanceService interface {
	Mark(ctx context.Context, courseID string, req models.MarkAttendanceRequest, markedBy string) (*models.MarkAttendanceResult, error)
	List(ctx context.Context, courseID string, from, to *time.Time) ([]models.AttendanceRecord, error)
}

// AttendanceHandler exposes attendance marking endpoints.
type AttendanceHandler struct {
	attendance attendanceService
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(attendance attendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// Mark godoc
// @Summary Mark attendance
// @Description Stores one status per student for a date; re-marking overwrites
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body models.MarkAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/attendance [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req models.MarkAttendanceRequest
	if !bindJSON(c, &req, "invalid attendance payload") {
		return
	}
	result, err := h.attendance.Mark(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List attendance marks
// @Tags Attendance
// @Produce json
// @Param id path string true "Course ID"
// @Param from query string false "From date (yyyy-MM-dd)"
// @Param to query string false "To date (yyyy-MM-dd)"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	from, to, err := service.ParseDateRange(c.Query("from"), c.Query("to"))
	if err != nil {
		response.Error(c, err)
		return
	}
	records, err := h.attendance.List(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}
