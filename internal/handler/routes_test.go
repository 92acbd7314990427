package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/attendance-ease-api/internal/models"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	reports := &fakeReportService{}
	enrollments := &fakeEnrollmentService{}
	handlers := Handlers{
		Auth:       NewAuthHandler(&fakeAuthService{res: &models.LoginResponse{AccessToken: "t"}}),
		Courses:    NewCourseHandler(&fakeCourseService{}),
		Students:   NewStudentHandler(&fakeStudentService{}, &fakeCredentialService{}, 0),
		Enrollment: NewEnrollmentHandler(enrollments),
		Attendance: NewAttendanceHandler(&fakeAttendanceService{}),
		Reports:    NewReportHandler(reports, &fakeExportService{}),
		Me:         NewMeHandler(enrollments, reports),
		Users:      NewUserHandler(&fakeUserService{}),
		Dashboard:  NewDashboardHandler(fakeDashboardService{}),
	}
	tokens := stubTokens{
		"admin":   {UserID: "admin-1", Role: models.RoleAdmin},
		"marker":  {UserID: "edu-1", Role: models.RoleEducator, Permissions: models.Permissions{CanMarkAttendance: true}},
		"viewer":  {UserID: "edu-2", Role: models.RoleEducator, Permissions: models.Permissions{CanViewRecords: true, CanViewDashboard: true}},
		"student": {UserID: "stu-1", Role: models.RoleStudent},
	}
	r := gin.New()
	RegisterRoutes(r.Group("/api/v1"), handlers, tokens)
	return r
}

func call(r *gin.Engine, method, path, token, body string) int {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec.Code
}

func TestRoutesAuthorization(t *testing.T) {
	r := newTestRouter()
	mark := `{"date":"2024-05-01","items":[{"student_id":"a","status":"present"}]}`

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		body   string
		want   int
	}{
		{"login is public", http.MethodPost, "/api/v1/auth/login", "", `{"email":"a@b.io","password":"x"}`, http.StatusOK},
		{"me needs a token", http.MethodGet, "/api/v1/auth/me", "", "", http.StatusUnauthorized},
		{"unknown token", http.MethodGet, "/api/v1/courses", "forged", "", http.StatusUnauthorized},
		{"educator lists courses", http.MethodGet, "/api/v1/courses", "marker", "", http.StatusOK},
		{"educator cannot create course", http.MethodPost, "/api/v1/courses", "marker", `{"name":"x","code":"y"}`, http.StatusForbidden},
		{"admin creates course", http.MethodPost, "/api/v1/courses", "admin", `{"name":"x","code":"y"}`, http.StatusCreated},
		{"student cannot list courses", http.MethodGet, "/api/v1/courses", "student", "", http.StatusForbidden},
		{"marker marks attendance", http.MethodPost, "/api/v1/courses/c1/attendance", "marker", mark, http.StatusOK},
		{"viewer cannot mark", http.MethodPost, "/api/v1/courses/c1/attendance", "viewer", mark, http.StatusForbidden},
		{"marker cannot view records", http.MethodGet, "/api/v1/courses/c1/attendance", "marker", "", http.StatusForbidden},
		{"viewer reads attendance", http.MethodGet, "/api/v1/courses/c1/attendance", "viewer", "", http.StatusOK},
		{"viewer exports", http.MethodGet, "/api/v1/courses/c1/reports/register/export", "viewer", "", http.StatusOK},
		{"marker cannot see dashboard", http.MethodGet, "/api/v1/dashboard", "marker", "", http.StatusForbidden},
		{"viewer sees dashboard", http.MethodGet, "/api/v1/dashboard", "viewer", "", http.StatusOK},
		{"educator cannot manage students", http.MethodGet, "/api/v1/students", "viewer", "", http.StatusForbidden},
		{"admin generates credentials", http.MethodPost, "/api/v1/students/credentials", "admin", "", http.StatusOK},
		{"educator cannot manage users", http.MethodGet, "/api/v1/users", "viewer", "", http.StatusForbidden},
		{"admin unenrolls", http.MethodDelete, "/api/v1/courses/c1/enrollments/s1", "admin", "", http.StatusNoContent},
		{"student reads own courses", http.MethodGet, "/api/v1/me/courses", "student", "", http.StatusOK},
		{"student reads own attendance", http.MethodGet, "/api/v1/me/attendance?courseId=c1", "student", "", http.StatusOK},
		{"admin is not a student", http.MethodGet, "/api/v1/me/courses", "admin", "", http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, call(r, tc.method, tc.path, tc.token, tc.body))
		})
	}
}

func TestMetricsHandlerReadiness(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	up := NewMetricsHandler(nil, fakePinger{})
	down := NewMetricsHandler(nil, fakePinger{err: errors.New("connection refused")})
	r.GET("/health", up.Health)
	r.GET("/ready", up.Ready)
	r.GET("/ready-down", down.Ready)
	r.GET("/metrics", up.Prometheus)

	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/health", "", ""))
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/ready", "", ""))
	assert.Equal(t, http.StatusServiceUnavailable, call(r, http.MethodGet, "/ready-down", "", ""))
	assert.Equal(t, http.StatusServiceUnavailable, call(r, http.MethodGet, "/metrics", "", ""))
}
