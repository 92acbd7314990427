package models

import "time"

// Enrollment links a student to a course. The pair is the primary key so
// enrolling twice leaves a single row.
type Enrollment struct {
	CourseID  string    `db:"course_id" json:"course_id"`
	StudentID string    `db:"student_id" json:"student_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// EnrollStudentsRequest enrolls one or many students.
type EnrollStudentsRequest struct {
	StudentIDs []string `json:"student_ids" validate:"required,min=1,dive,required"`
}

// EnrollmentResult reports how many enrollments were newly created.
type EnrollmentResult struct {
	CourseID  string `json:"course_id"`
	Requested int    `json:"requested"`
	Added     int    `json:"added"`
}
