package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/noah-isme/attendance-ease-api/internal/models"
	appErrors "github.com/noah-isme/attendance-ease-api/pkg/errors"
)

// DefaultRosterBatchSize bounds the ids sent in one student lookup.
const DefaultRosterBatchSize = 30

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type enrollmentRepository interface {
	ListStudentIDs(ctx context.Context, courseID string) ([]string, error)
	Enroll(ctx context.Context, courseID string, studentIDs []string) (int, error)
	Unenroll(ctx context.Context, courseID, studentID string) error
	EnrolledAmong(ctx context.Context, courseID string, studentIDs []string) (map[string]bool, error)
	ListCoursesForStudent(ctx context.Context, studentID string) ([]models.Course, error)
}

type studentBatchReader interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Student, error)
}

// EnrollmentConfig tunes roster resolution.
type EnrollmentConfig struct {
	BatchSize int
}

// EnrollmentService resolves course rosters and manages enrollments.
type EnrollmentService struct {
	courses     courseReader
	enrollments enrollmentRepository
	students    studentBatchReader
	validator   *validator.Validate
	logger      *zap.Logger
	metrics     *MetricsService
	batchSize   int
}

// NewEnrollmentService constructs the service.
func NewEnrollmentService(courses courseReader, enrollments enrollmentRepository, students studentBatchReader, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService, cfg EnrollmentConfig) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultRosterBatchSize
	}
	return &EnrollmentService{
		courses:     courses,
		enrollments: enrollments,
		students:    students,
		validator:   validate,
		logger:      logger,
		metrics:     metrics,
		batchSize:   cfg.BatchSize,
	}
}

// Roster returns the students enrolled in a course in canonical order. Students
// are hydrated with one lookup per batch of at most batchSize ids; an empty
// enrollment issues no lookup at all.
func (s *EnrollmentService) Roster(ctx context.Context, courseID string) ([]models.Student, error) {
	if _, err := s.requireCourse(ctx, courseID); err != nil {
		return nil, err
	}
	return s.roster(ctx, courseID)
}

func (s *EnrollmentService) roster(ctx context.Context, courseID string) ([]models.Student, error) {
	ids, err := s.enrollments.ListStudentIDs(ctx, courseID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list enrolled students")
	}
	students, err := s.StudentsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	SortStudents(students)
	return students, nil
}

// StudentsByIDs hydrates ids in batches of at most batchSize. Order follows the
// store; callers sort when they need the canonical order.
func (s *EnrollmentService) StudentsByIDs(ctx context.Context, ids []string) ([]models.Student, error) {
	if len(ids) == 0 {
		return []models.Student{}, nil
	}
	students := make([]models.Student, 0, len(ids))
	for _, chunk := range chunkIDs(ids, s.batchSize) {
		start := time.Now()
		batch, err := s.students.FindByIDs(ctx, chunk)
		s.metrics.ObserveDBQuery("students_by_ids", time.Since(start))
		s.metrics.RecordRosterBatch()
		if err != nil {
			return nil, appErrors.Internal(err, "failed to load students")
		}
		students = append(students, batch...)
	}
	if len(students) != len(ids) {
		s.logger.Warn("enrolled students missing from store", zap.Int("enrolled", len(ids)), zap.Int("found", len(students)))
	}
	return students, nil
}

// Enroll adds students to a course. Students already enrolled are skipped.
func (s *EnrollmentService) Enroll(ctx context.Context, courseID string, req models.EnrollStudentsRequest) (*models.EnrollmentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if _, err := s.requireCourse(ctx, courseID); err != nil {
		return nil, err
	}

	ids := uniqueIDs(req.StudentIDs)
	found, err := s.StudentsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if missing := missingIDs(ids, found); len(missing) > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown students: "+strings.Join(missing, ", "))
	}

	added, err := s.enrollments.Enroll(ctx, courseID, ids)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to enroll students")
	}
	s.logger.Info("students enrolled", zap.String("course_id", courseID), zap.Int("requested", len(ids)), zap.Int("added", added))
	return &models.EnrollmentResult{CourseID: courseID, Requested: len(ids), Added: added}, nil
}

// Unenroll removes a student from a course. Attendance history is kept.
func (s *EnrollmentService) Unenroll(ctx context.Context, courseID, studentID string) error {
	if err := s.enrollments.Unenroll(ctx, courseID, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Internal(err, "failed to unenroll student")
	}
	return nil
}

// CoursesForStudent lists the courses a student is enrolled in.
func (s *EnrollmentService) CoursesForStudent(ctx context.Context, studentID string) ([]models.Course, error) {
	courses, err := s.enrollments.ListCoursesForStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list courses")
	}
	if courses == nil {
		courses = []models.Course{}
	}
	return courses, nil
}

// NotEnrolled returns the ids among studentIDs that are not enrolled in the course.
func (s *EnrollmentService) NotEnrolled(ctx context.Context, courseID string, studentIDs []string) ([]string, error) {
	enrolled, err := s.enrollments.EnrolledAmong(ctx, courseID, studentIDs)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to verify enrollments")
	}
	var outside []string
	for _, id := range studentIDs {
		if !enrolled[id] {
			outside = append(outside, id)
		}
	}
	return outside, nil
}

// IsEnrolled reports whether a student belongs to a course.
func (s *EnrollmentService) IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error) {
	outside, err := s.NotEnrolled(ctx, courseID, []string{studentID})
	if err != nil {
		return false, err
	}
	return len(outside) == 0, nil
}

func (s *EnrollmentService) requireCourse(ctx context.Context, courseID string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Internal(err, "failed to load course")
	}
	return course, nil
}

// SortStudents orders students by roll number using English collation with
// numeric segments compared by value. A missing roll number sorts first; ties
// fall back to last name, first name and id.
func SortStudents(students []models.Student) {
	col := collate.New(language.English, collate.Numeric)
	sort.SliceStable(students, func(i, j int) bool {
		a, b := students[i], students[j]
		if c := col.CompareString(a.Roll(), b.Roll()); c != 0 {
			return c < 0
		}
		if c := col.CompareString(a.LastName, b.LastName); c != 0 {
			return c < 0
		}
		if c := col.CompareString(a.FirstName, b.FirstName); c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})
}

func chunkIDs(ids []string, size int) [][]string {
	if size <= 0 {
		size = DefaultRosterBatchSize
	}
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func missingIDs(ids []string, found []models.Student) []string {
	present := make(map[string]struct{}, len(found))
	for _, st := range found {
		present[st.ID] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
