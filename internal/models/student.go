package models

import (
	"strings"
	"time"
)

// Student represents a learner who can be enrolled in courses. UID and
// PasswordHash stay empty until credentials are generated.
type Student struct {
	ID           string    `db:"id" json:"id"`
	UID          *string   `db:"uid" json:"uid,omitempty"`
	PasswordHash *string   `db:"password_hash" json:"-"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	Email        string    `db:"email" json:"email"`
	RollNumber   *string   `db:"roll_number" json:"roll_number,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last name.
func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// Roll returns the roll number or an empty string when unset.
func (s Student) Roll() string {
	if s.RollNumber == nil {
		return ""
	}
	return *s.RollNumber
}

// HasUID reports whether a login identifier was already issued.
func (s Student) HasUID() bool {
	return s.UID != nil && *s.UID != ""
}

// HasPassword reports whether a password hash is stored.
func (s Student) HasPassword() bool {
	return s.PasswordHash != nil && *s.PasswordHash != ""
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// CreateStudentRequest is the payload for registering a student.
type CreateStudentRequest struct {
	FirstName  string `json:"first_name" validate:"required,max=100"`
	LastName   string `json:"last_name" validate:"omitempty,max=100"`
	Email      string `json:"email" validate:"omitempty,email"`
	RollNumber string `json:"roll_number" validate:"omitempty,max=32"`
}

// UpdateStudentRequest replaces the editable profile fields.
type UpdateStudentRequest struct {
	FirstName  string `json:"first_name" validate:"required,max=100"`
	LastName   string `json:"last_name" validate:"omitempty,max=100"`
	Email      string `json:"email" validate:"omitempty,email"`
	RollNumber string `json:"roll_number" validate:"omitempty,max=32"`
}

// StudentImportResult summarises a bulk CSV upload.
type StudentImportResult struct {
	Created int              `json:"created"`
	Errors  []ImportRowError `json:"errors,omitempty"`
	Items   []Student        `json:"items"`
}

// ImportRowError reports why a CSV row was rejected. Row is the 1-based line in the uploaded file.
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}
