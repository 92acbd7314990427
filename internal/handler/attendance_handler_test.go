package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-ease-api/internal/models"
)

func TestAttendanceHandlerMark(t *testing.T) {
	svc := &fakeAttendanceService{}
	handler := NewAttendanceHandler(svc)

	payload := models.MarkAttendanceRequest{
		Date: "2024-05-01",
		Items: []models.AttendanceMarkItem{
			{StudentID: "a", Status: models.AttendanceStatusPresent},
			{StudentID: "b", Status: models.AttendanceStatusAbsent},
		},
	}
	c, w := newGinContext(http.MethodPost, "/courses/cs101/attendance", jsonBody(payload))
	c.Params = gin.Params{{Key: "id", Value: "cs101"}}
	withClaims(c, &models.JWTClaims{UserID: "edu-1", Role: models.RoleEducator})
	handler.Mark(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cs101", svc.courseID)
	assert.Equal(t, "edu-1", svc.markedBy)
	assert.Len(t, svc.req.Items, 2)
	assert.Contains(t, string(decodeEnvelope(w).Data), `"saved":2`)
}

func TestAttendanceHandlerList(t *testing.T) {
	svc := &fakeAttendanceService{}
	handler := NewAttendanceHandler(svc)

	c, w := newGinContext(http.MethodGet, "/courses/cs101/attendance?to=2024-05-03", nil)
	c.Params = gin.Params{{Key: "id", Value: "cs101"}}
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, svc.from)
	require.NotNil(t, svc.to)
	assert.Equal(t, "2024-05-03", svc.to.Format("2006-01-02"))
}
