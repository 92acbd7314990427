package models

import "time"

// AttendanceStatus is the mark recorded for a student on a date.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
)

// DateLayout is the calendar date format used on the wire and in reports.
const DateLayout = "2006-01-02"

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent:
		return true
	default:
		return false
	}
}

// AttendanceRecord is unique per (course, student, date).
type AttendanceRecord struct {
	ID        string           `db:"id" json:"id"`
	CourseID  string           `db:"course_id" json:"course_id"`
	StudentID string           `db:"student_id" json:"student_id"`
	Date      time.Time        `db:"date" json:"date"`
	Status    AttendanceStatus `db:"status" json:"status"`
	MarkedBy  string           `db:"marked_by" json:"marked_by"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// DateKey renders the record date as yyyy-MM-dd.
func (r AttendanceRecord) DateKey() string {
	return r.Date.Format(DateLayout)
}

// AttendanceMarkItem is one student's status in a marking request.
type AttendanceMarkItem struct {
	StudentID string           `json:"student_id" validate:"required"`
	Status    AttendanceStatus `json:"status" validate:"required,oneof=present absent"`
}

// MarkAttendanceRequest marks a set of students for one course date.
type MarkAttendanceRequest struct {
	Date  string               `json:"date" validate:"required,datetime=2006-01-02"`
	Items []AttendanceMarkItem `json:"items" validate:"required,min=1,dive"`
}

// MarkAttendanceResult reports the persisted marks.
type MarkAttendanceResult struct {
	CourseID string `json:"course_id"`
	Date     string `json:"date"`
	Saved    int    `json:"saved"`
}

// AttendanceFilter narrows attendance queries. Bounds are inclusive.
type AttendanceFilter struct {
	CourseID  string
	StudentID string
	From      *time.Time
	To        *time.Time
}
