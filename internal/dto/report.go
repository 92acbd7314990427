package dto

// RateBasis labels which denominator an attendance percentage uses.
type RateBasis string

const (
	// RateBasisCourseWide divides by every distinct session date recorded for the course.
	RateBasisCourseWide RateBasis = "course_wide"
	// RateBasisRecordedSessions divides by the sessions recorded for the student.
	RateBasisRecordedSessions RateBasis = "recorded_sessions"
)

// Register cell values.
const (
	CellPresent = "P"
	CellAbsent  = "A"
	CellMissing = "-"
)

// CourseRef identifies the course a report belongs to.
type CourseRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// RegisterReport is the course-wide attendance register.
type RegisterReport struct {
	Course        CourseRef     `json:"course"`
	Dates         []string      `json:"dates"`
	TotalSessions int           `json:"totalSessions"`
	RateBasis     RateBasis     `json:"rateBasis"`
	Rows          []RegisterRow `json:"rows"`
}

// RegisterRow holds one student's cells aligned with RegisterReport.Dates.
type RegisterRow struct {
	StudentID  string   `json:"studentId"`
	Name       string   `json:"name"`
	RollNumber string   `json:"rollNumber"`
	Cells      []string `json:"cells"`
	Present    int      `json:"present"`
	Absent     int      `json:"absent"`
	Percentage float64  `json:"percentage"`
}

// SummaryReport is the dated per-student attendance summary.
type SummaryReport struct {
	Course    CourseRef    `json:"course"`
	From      *string      `json:"from,omitempty"`
	To        *string      `json:"to,omitempty"`
	RateBasis RateBasis    `json:"rateBasis"`
	Rows      []SummaryRow `json:"rows"`
}

// SummaryRow holds counts over the student's own recorded sessions.
type SummaryRow struct {
	StudentID  string `json:"studentId"`
	Name       string `json:"name"`
	RollNumber string `json:"rollNumber"`
	Present    int    `json:"present"`
	Absent     int    `json:"absent"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
}

// ExportFile is a rendered report ready to be served as an attachment.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// StudentCourseAttendance is a student's own view of one course.
type StudentCourseAttendance struct {
	Course  CourseRef           `json:"course"`
	Records []StudentAttendance `json:"records"`
	Summary SummaryRow          `json:"summary"`
}

// StudentAttendance is one dated mark shown to the student.
type StudentAttendance struct {
	Date   string `json:"date"`
	Status string `json:"status"`
}
