package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/attendance-ease-api/internal/models"
	appErrors "github.com/noah-isme/attendance-ease-api/pkg/errors"
)

type attendanceRepository interface {
	UpsertBatch(ctx context.Context, records []models.AttendanceRecord) error
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
}

type enrollmentChecker interface {
	NotEnrolled(ctx context.Context, courseID string, studentIDs []string) ([]string, error)
}

// AttendanceService records and lists attendance marks.
type AttendanceService struct {
	courses     courseReader
	repo        attendanceRepository
	enrollments enrollmentChecker
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAttendanceService constructs the service. cache may be nil; when set,
// marking attendance drops cached dashboard counters.
func NewAttendanceService(courses courseReader, repo attendanceRepository, enrollments enrollmentChecker, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{courses: courses, repo: repo, enrollments: enrollments, cache: cache, validator: validate, logger: logger}
}

// Mark stores one status per listed student for the given date. Every student
// must be enrolled; either all marks are written or none.
func (s *AttendanceService) Mark(ctx context.Context, courseID string, req models.MarkAttendanceRequest, markedBy string) (*models.MarkAttendanceResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	date, err := time.ParseInLocation(models.DateLayout, req.Date, time.UTC)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must be a yyyy-MM-dd date")
	}
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Internal(err, "failed to load course")
	}

	seen := make(map[string]struct{}, len(req.Items))
	ids := make([]string, 0, len(req.Items))
	records := make([]models.AttendanceRecord, 0, len(req.Items))
	for _, item := range req.Items {
		if _, dup := seen[item.StudentID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, "student listed twice: "+item.StudentID)
		}
		seen[item.StudentID] = struct{}{}
		ids = append(ids, item.StudentID)
		records = append(records, models.AttendanceRecord{
			CourseID:  courseID,
			StudentID: item.StudentID,
			Date:      date,
			Status:    item.Status,
			MarkedBy:  markedBy,
		})
	}

	outside, err := s.enrollments.NotEnrolled(ctx, courseID, ids)
	if err != nil {
		return nil, err
	}
	if len(outside) > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "students not enrolled in course: "+strings.Join(outside, ", "))
	}

	if err := s.repo.UpsertBatch(ctx, records); err != nil {
		return nil, appErrors.Internal(err, "failed to save attendance")
	}
	s.cache.Invalidate(ctx, dashboardCachePattern)
	s.logger.Info("attendance marked",
		zap.String("course_id", courseID),
		zap.String("date", req.Date),
		zap.Int("count", len(records)),
		zap.String("marked_by", markedBy),
	)
	return &models.MarkAttendanceResult{CourseID: courseID, Date: req.Date, Saved: len(records)}, nil
}

// List returns a course's marks within the optional inclusive range.
func (s *AttendanceService) List(ctx context.Context, courseID string, from, to *time.Time) ([]models.AttendanceRecord, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Internal(err, "failed to load course")
	}
	records, err := s.repo.List(ctx, models.AttendanceFilter{CourseID: courseID, From: from, To: to})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list attendance")
	}
	if records == nil {
		records = []models.AttendanceRecord{}
	}
	return records, nil
}
