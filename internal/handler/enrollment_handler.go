package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attendance-ease-api/internal/models"
	"github.com/noah-isme/attendance-ease-api/pkg/response"
)

type enrollmentService interface {
	Roster(ctx context.Context, courseID string) ([]models.Student, error)
	Enroll(ctx context.Context, courseID string, req models.EnrollStudentsRequest) (*models.EnrollmentResult, error)
	Unenroll(ctx context.Context, courseID, studentID string) error
}

// EnrollmentHandler exposes course roster endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs the handler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// Roster godoc
// @Summary Course roster
// @Description Enrolled students ordered by roll number
// @Tags Enrollments
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/students [get]
func (h *EnrollmentHandler) Roster(c *gin.Context) {
	students, err := h.enrollments.Roster(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil, map[string]interface{}{"count": len(students)})
}

// Enroll godoc
// @Summary Enroll students
// @Description Enrolls one or many students; existing enrollments are left untouched
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body models.EnrollStudentsRequest true "Student ids"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req models.EnrollStudentsRequest
	if !bindJSON(c, &req, "invalid enrollment payload") {
		return
	}
	result, err := h.enrollments.Enroll(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Unenroll godoc
// @Summary Remove a student from a course
// @Tags Enrollments
// @Param id path string true "Course ID"
// @Param studentId path string true "Student ID"
// @Success 204
// @Router /courses/{id}/enrollments/{studentId} [delete]
func (h *EnrollmentHandler) Unenroll(c *gin.Context) {
	if err := h.enrollments.Unenroll(c.Request.Context(), c.Param("id"), c.Param("studentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
