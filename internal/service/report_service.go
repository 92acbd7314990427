package service

import (
	"context"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/attendance-ease-api/internal/dto"
	"github.com/noah-isme/attendance-ease-api/internal/models"
	appErrors "github.com/noah-isme/attendance-ease-api/pkg/errors"
)

type attendanceReader interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
}

type rosterResolver interface {
	Roster(ctx context.Context, courseID string) ([]models.Student, error)
	StudentsByIDs(ctx context.Context, ids []string) ([]models.Student, error)
	CoursesForStudent(ctx context.Context, studentID string) ([]models.Course, error)
	IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error)
}

// ReportService aggregates attendance records into register and summary views.
type ReportService struct {
	courses    courseReader
	roster     rosterResolver
	attendance attendanceReader
	logger     *zap.Logger
}

// NewReportService constructs the aggregator.
func NewReportService(courses courseReader, roster rosterResolver, attendance attendanceReader, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{courses: courses, roster: roster, attendance: attendance, logger: logger}
}

// Register builds the course-wide register. Columns are every distinct date
// recorded for the course and each student's percentage uses that date count
// as denominator, so a missing cell counts as absent.
func (s *ReportService) Register(ctx context.Context, courseID string) (*dto.RegisterReport, error) {
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	records, err := s.attendance.List(ctx, models.AttendanceFilter{CourseID: courseID})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load attendance records")
	}

	report := &dto.RegisterReport{
		Course:    courseRef(course),
		Dates:     []string{},
		RateBasis: dto.RateBasisCourseWide,
		Rows:      []dto.RegisterRow{},
	}
	if len(records) == 0 {
		return report, nil
	}

	dates := distinctDates(records)
	marks := make(map[string]map[string]models.AttendanceStatus)
	var studentIDs []string
	for _, rec := range records {
		byDate, ok := marks[rec.StudentID]
		if !ok {
			byDate = make(map[string]models.AttendanceStatus)
			marks[rec.StudentID] = byDate
			studentIDs = append(studentIDs, rec.StudentID)
		}
		byDate[rec.DateKey()] = rec.Status
	}

	students, err := s.roster.StudentsByIDs(ctx, studentIDs)
	if err != nil {
		return nil, err
	}
	SortStudents(students)

	report.Dates = dates
	report.TotalSessions = len(dates)
	for _, st := range students {
		byDate := marks[st.ID]
		row := dto.RegisterRow{
			StudentID:  st.ID,
			Name:       st.FullName(),
			RollNumber: st.Roll(),
			Cells:      make([]string, len(dates)),
		}
		for i, date := range dates {
			status, ok := byDate[date]
			switch {
			case !ok:
				row.Cells[i] = dto.CellMissing
			case status == models.AttendanceStatusPresent:
				row.Cells[i] = dto.CellPresent
				row.Present++
			default:
				row.Cells[i] = dto.CellAbsent
			}
		}
		row.Absent = len(dates) - row.Present
		row.Percentage = CourseWideRate(row.Present, len(dates))
		report.Rows = append(report.Rows, row)
	}
	return report, nil
}

// Summary counts each enrolled student's own recorded sessions within the
// optional inclusive range. Students without records report zeros.
func (s *ReportService) Summary(ctx context.Context, courseID string, from, to *time.Time) (*dto.SummaryReport, error) {
	if from != nil && to != nil && from.After(*to) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "from must not be after to")
	}
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	students, err := s.roster.Roster(ctx, courseID)
	if err != nil {
		return nil, err
	}
	records, err := s.attendance.List(ctx, models.AttendanceFilter{CourseID: courseID, From: from, To: to})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load attendance records")
	}

	counts := make(map[string]*dto.SummaryRow, len(students))
	for _, rec := range records {
		row, ok := counts[rec.StudentID]
		if !ok {
			row = &dto.SummaryRow{}
			counts[rec.StudentID] = row
		}
		tally(row, rec.Status)
	}

	report := &dto.SummaryReport{
		Course:    courseRef(course),
		From:      formatDatePtr(from),
		To:        formatDatePtr(to),
		RateBasis: dto.RateBasisRecordedSessions,
		Rows:      make([]dto.SummaryRow, 0, len(students)),
	}
	for _, st := range students {
		row := dto.SummaryRow{StudentID: st.ID, Name: st.FullName(), RollNumber: st.Roll()}
		if c, ok := counts[st.ID]; ok {
			row.Present, row.Absent, row.Total = c.Present, c.Absent, c.Total
		}
		row.Percentage = RecordedSessionsRate(row.Present, row.Total)
		report.Rows = append(report.Rows, row)
	}
	return report, nil
}

// StudentOverview returns a student's own marks per enrolled course. When
// courseID is set only that course is returned and enrollment is required.
func (s *ReportService) StudentOverview(ctx context.Context, studentID, courseID string, from, to *time.Time) ([]dto.StudentCourseAttendance, error) {
	if from != nil && to != nil && from.After(*to) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "from must not be after to")
	}

	var courses []models.Course
	if courseID != "" {
		enrolled, err := s.roster.IsEnrolled(ctx, courseID, studentID)
		if err != nil {
			return nil, err
		}
		if !enrolled {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "not enrolled in this course")
		}
		course, err := s.loadCourse(ctx, courseID)
		if err != nil {
			return nil, err
		}
		courses = []models.Course{*course}
	} else {
		list, err := s.roster.CoursesForStudent(ctx, studentID)
		if err != nil {
			return nil, err
		}
		courses = list
	}

	overview := make([]dto.StudentCourseAttendance, 0, len(courses))
	for _, course := range courses {
		records, err := s.attendance.List(ctx, models.AttendanceFilter{CourseID: course.ID, StudentID: studentID, From: from, To: to})
		if err != nil {
			return nil, appErrors.Internal(err, "failed to load attendance records")
		}
		entry := dto.StudentCourseAttendance{
			Course:  courseRef(&course),
			Records: make([]dto.StudentAttendance, 0, len(records)),
			Summary: dto.SummaryRow{StudentID: studentID},
		}
		for _, rec := range records {
			entry.Records = append(entry.Records, dto.StudentAttendance{Date: rec.DateKey(), Status: string(rec.Status)})
			tally(&entry.Summary, rec.Status)
		}
		entry.Summary.Percentage = RecordedSessionsRate(entry.Summary.Present, entry.Summary.Total)
		overview = append(overview, entry)
	}
	return overview, nil
}

func (s *ReportService) loadCourse(ctx context.Context, courseID string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Internal(err, "failed to load course")
	}
	return course, nil
}

// CourseWideRate is present/sessions*100 rounded to two decimals, 0 without sessions.
func CourseWideRate(present, sessions int) float64 {
	if sessions == 0 {
		return 0
	}
	return math.Round(float64(present)/float64(sessions)*100*100) / 100
}

// RecordedSessionsRate is present/total*100 rounded to an integer, 0 without records.
func RecordedSessionsRate(present, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(present) / float64(total) * 100))
}

// ParseDateRange parses optional yyyy-MM-dd bounds and rejects inverted ranges.
func ParseDateRange(rawFrom, rawTo string) (*time.Time, *time.Time, error) {
	from, err := parseOptionalDate(rawFrom, "from")
	if err != nil {
		return nil, nil, err
	}
	to, err := parseOptionalDate(rawTo, "to")
	if err != nil {
		return nil, nil, err
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "from must not be after to")
	}
	return from, to, nil
}

func parseOptionalDate(raw, field string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(models.DateLayout, raw, time.UTC)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, field+" must be a yyyy-MM-dd date")
	}
	return &t, nil
}

func tally(row *dto.SummaryRow, status models.AttendanceStatus) {
	row.Total++
	if status == models.AttendanceStatusPresent {
		row.Present++
	} else {
		row.Absent++
	}
}

func distinctDates(records []models.AttendanceRecord) []string {
	seen := make(map[string]struct{})
	var dates []string
	for _, rec := range records {
		key := rec.DateKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		dates = append(dates, key)
	}
	sort.Strings(dates)
	return dates
}

func courseRef(course *models.Course) dto.CourseRef {
	return dto.CourseRef{ID: course.ID, Name: course.Name, Code: course.Code}
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.Format(models.DateLayout)
	return &v
}
