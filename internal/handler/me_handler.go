package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attendance-ease-api/internal/dto"
	"github.com/noah-isme/attendance-ease-api/internal/models"
	"github.com/noah-isme/attendance-ease-api/internal/service"
	"github.com/noah-isme/attendance-ease-api/pkg/response"
)

type studentCourseLister interface {
	CoursesForStudent(ctx context.Context, studentID string) ([]models.Course, error)
}

type studentAttendanceReader interface {
	StudentOverview(ctx context.Context, studentID, courseID string, from, to *time.Time) ([]dto.StudentCourseAttendance, error)
}

// MeHandler serves a logged-in student's own data.
type MeHandler struct {
	courses studentCourseLister
	reports studentAttendanceReader
}

// NewMeHandler constructs the handler.
func NewMeHandler(courses studentCourseLister, reports studentAttendanceReader) *MeHandler {
	return &MeHandler{courses: courses, reports: reports}
}

// Courses godoc
// @Summary My courses
// @Tags Student self-service
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/courses [get]
func (h *MeHandler) Courses(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	courses, err := h.courses.CoursesForStudent(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// Attendance godoc
// @Summary My attendance
// @Tags Student self-service
// @Produce json
// @Param courseId query string false "Restrict to one course"
// @Param from query string false "From date (yyyy-MM-dd)"
// @Param to query string false "To date (yyyy-MM-dd)"
// @Success 200 {object} response.Envelope
// @Router /me/attendance [get]
func (h *MeHandler) Attendance(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	from, to, err := service.ParseDateRange(c.Query("from"), c.Query("to"))
	if err != nil {
		response.Error(c, err)
		return
	}
	overview, err := h.reports.StudentOverview(c.Request.Context(), claims.UserID, strings.TrimSpace(c.Query("courseId")), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, nil)
}
