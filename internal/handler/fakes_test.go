package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attendance-ease-api/internal/dto"
	"github.com/noah-isme/attendance-ease-api/internal/middleware"
	"github.com/noah-isme/attendance-ease-api/internal/models"
	appErrors "github.com/noah-isme/attendance-ease-api/pkg/errors"
	"github.com/noah-isme/attendance-ease-api/pkg/export"
)

type responseEnvelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func decodeEnvelope(rec *httptest.ResponseRecorder) responseEnvelope {
	var env responseEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return env
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func withClaims(c *gin.Context, claims *models.JWTClaims) {
	c.Set(middleware.ContextUserKey, claims)
}

type stubTokens map[string]*models.JWTClaims

func (s stubTokens) ValidateToken(ctx context.Context, token string) (*models.JWTClaims, error) {
	claims, ok := s[token]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return claims, nil
}

type fakeAuthService struct {
	loginReq   models.LoginRequest
	studentReq models.StudentLoginRequest
	res        *models.LoginResponse
	err        error
}

func (f *fakeAuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	f.loginReq = req
	return f.res, f.err
}

func (f *fakeAuthService) StudentLogin(ctx context.Context, req models.StudentLoginRequest) (*models.LoginResponse, error) {
	f.studentReq = req
	return f.res, f.err
}

func (f *fakeAuthService) Me(ctx context.Context, claims *models.JWTClaims) (*models.UserInfo, error) {
	return &models.UserInfo{ID: claims.UserID, Role: claims.Role}, nil
}

type fakeCourseService struct {
	created models.CreateCourseRequest
}

func (f *fakeCourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	return []models.Course{{ID: "c1", Code: "CS101"}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, nil
}

func (f *fakeCourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	return &models.Course{ID: id}, nil
}

func (f *fakeCourseService) Create(ctx context.Context, req models.CreateCourseRequest) (*models.Course, error) {
	f.created = req
	return &models.Course{ID: "c1", Name: req.Name, Code: req.Code}, nil
}

func (f *fakeCourseService) Delete(ctx context.Context, id string) error { return nil }

type fakeStudentService struct {
	imported string
	result   *models.StudentImportResult
}

func (f *fakeStudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	return nil, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (f *fakeStudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	return &models.Student{ID: id}, nil
}

func (f *fakeStudentService) Create(ctx context.Context, req models.CreateStudentRequest) (*models.Student, error) {
	return &models.Student{ID: "s1", FirstName: req.FirstName}, nil
}

func (f *fakeStudentService) Update(ctx context.Context, id string, req models.UpdateStudentRequest) (*models.Student, error) {
	return &models.Student{ID: id}, nil
}

func (f *fakeStudentService) Delete(ctx context.Context, id string) error { return nil }

func (f *fakeStudentService) Import(ctx context.Context, r io.Reader) (*models.StudentImportResult, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f.imported = string(raw)
	if f.result != nil {
		return f.result, nil
	}
	return &models.StudentImportResult{}, nil
}

type fakeCredentialService struct {
	generated []models.StudentCredential
	resetID   string
}

func (f *fakeCredentialService) GenerateMissing(ctx context.Context) ([]models.StudentCredential, error) {
	return f.generated, nil
}

func (f *fakeCredentialService) Reset(ctx context.Context, studentID string) (*models.StudentCredential, error) {
	f.resetID = studentID
	return &models.StudentCredential{StudentID: studentID, UID: "AbCd1234", Password: "p"}, nil
}

type fakeEnrollmentService struct {
	roster []models.Student
}

func (f *fakeEnrollmentService) Roster(ctx context.Context, courseID string) ([]models.Student, error) {
	return f.roster, nil
}

func (f *fakeEnrollmentService) Enroll(ctx context.Context, courseID string, req models.EnrollStudentsRequest) (*models.EnrollmentResult, error) {
	return &models.EnrollmentResult{CourseID: courseID, Requested: len(req.StudentIDs), Added: len(req.StudentIDs)}, nil
}

func (f *fakeEnrollmentService) Unenroll(ctx context.Context, courseID, studentID string) error {
	return nil
}

func (f *fakeEnrollmentService) CoursesForStudent(ctx context.Context, studentID string) ([]models.Course, error) {
	return []models.Course{{ID: "c1"}}, nil
}

type fakeAttendanceService struct {
	courseID string
	markedBy string
	req      models.MarkAttendanceRequest
	from, to *time.Time
}

func (f *fakeAttendanceService) Mark(ctx context.Context, courseID string, req models.MarkAttendanceRequest, markedBy string) (*models.MarkAttendanceResult, error) {
	f.courseID, f.req, f.markedBy = courseID, req, markedBy
	return &models.MarkAttendanceResult{CourseID: courseID, Date: req.Date, Saved: len(req.Items)}, nil
}

func (f *fakeAttendanceService) List(ctx context.Context, courseID string, from, to *time.Time) ([]models.AttendanceRecord, error) {
	f.courseID, f.from, f.to = courseID, from, to
	return []models.AttendanceRecord{}, nil
}

type fakeReportService struct {
	register *dto.RegisterReport
	summary  *dto.SummaryReport
	err      error
	from, to *time.Time
}

func (f *fakeReportService) Register(ctx context.Context, courseID string) (*dto.RegisterReport, error) {
	return f.register, f.err
}

func (f *fakeReportService) Summary(ctx context.Context, courseID string, from, to *time.Time) (*dto.SummaryReport, error) {
	f.from, f.to = from, to
	return f.summary, f.err
}

func (f *fakeReportService) StudentOverview(ctx context.Context, studentID, courseID string, from, to *time.Time) ([]dto.StudentCourseAttendance, error) {
	return []dto.StudentCourseAttendance{{Course: dto.CourseRef{ID: "c1"}}}, nil
}

type fakeExportService struct {
	format export.Format
	err    error
}

func (f *fakeExportService) ExportRegister(ctx context.Context, courseID string, format export.Format) (*dto.ExportFile, error) {
	f.format = format
	if f.err != nil {
		return nil, f.err
	}
	return &dto.ExportFile{Filename: "attendance_register_" + courseID + ".csv", ContentType: "text/csv", Payload: []byte("#,Name\n")}, nil
}

func (f *fakeExportService) ExportSummary(ctx context.Context, courseID string, from, to *time.Time, format export.Format) (*dto.ExportFile, error) {
	f.format = format
	if f.err != nil {
		return nil, f.err
	}
	return &dto.ExportFile{Filename: "attendance_summary_" + courseID + ".pdf", ContentType: "application/pdf", Payload: []byte("%PDF")}, nil
}

type fakeUserService struct {
	filter  models.UserFilter
	actorID string
	deleted string
}

func (f *fakeUserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	f.filter = filter
	return []models.User{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (f *fakeUserService) Get(ctx context.Context, id string) (*models.User, error) {
	return &models.User{ID: id}, nil
}

func (f *fakeUserService) Create(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	return &models.User{ID: "u2", Email: req.Email, Role: req.Role}, nil
}

func (f *fakeUserService) UpdatePermissions(ctx context.Context, id string, req models.UpdatePermissionsRequest) (*models.User, error) {
	return &models.User{ID: id, Permissions: req.Permissions}, nil
}

func (f *fakeUserService) Delete(ctx context.Context, id, actorID string) error {
	f.deleted, f.actorID = id, actorID
	return nil
}

type fakeDashboardService struct{}

func (fakeDashboardService) Summary(ctx context.Context) (*models.DashboardSummary, error) {
	return &models.DashboardSummary{}, nil
}

type fakePinger struct{ err error }

func (f fakePinger) PingContext(ctx context.Context) error { return f.err }

func jsonBody(v interface{}) []byte {
	raw, _ := json.Marshal(v)
	return raw
}
