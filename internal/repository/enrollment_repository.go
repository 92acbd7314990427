package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/attendance-ease-api/internal/models"
)

// EnrollmentRepository handles persistence of course enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ListStudentIDs returns the ids of students enrolled in a course.
func (r *EnrollmentRepository) ListStudentIDs(ctx context.Context, courseID string) ([]string, error) {
	const query = `SELECT student_id FROM enrollments WHERE course_id = $1 ORDER BY student_id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, courseID); err != nil {
		return nil, fmt.Errorf("list enrolled students: %w", err)
	}
	return ids, nil
}

// Enroll links students to a course in one transaction. Existing pairs are left
// untouched; the number of new rows is returned.
func (r *EnrollmentRepository) Enroll(ctx context.Context, courseID string, studentIDs []string) (int, error) {
	if len(studentIDs) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin enroll: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO enrollments (course_id, student_id, created_at) VALUES ($1, $2, $3)
ON CONFLICT (course_id, student_id) DO NOTHING`
	now := time.Now().UTC()
	added := 0
	for _, studentID := range studentIDs {
		res, err := tx.ExecContext(ctx, query, courseID, studentID, now)
		if err != nil {
			return 0, fmt.Errorf("enroll student %s: %w", studentID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("enroll rows: %w", err)
		}
		added += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit enroll: %w", err)
	}
	committed = true
	return added, nil
}

// Unenroll removes one enrollment. sql.ErrNoRows is returned when absent.
func (r *EnrollmentRepository) Unenroll(ctx context.Context, courseID, studentID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM enrollments WHERE course_id = $1 AND student_id = $2`, courseID, studentID)
	if err != nil {
		return fmt.Errorf("unenroll student: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("unenroll rows: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// EnrolledAmong returns which of the given students are enrolled in the course.
func (r *EnrollmentRepository) EnrolledAmong(ctx context.Context, courseID string, studentIDs []string) (map[string]bool, error) {
	enrolled := make(map[string]bool, len(studentIDs))
	if len(studentIDs) == 0 {
		return enrolled, nil
	}
	args := make([]interface{}, 0, len(studentIDs)+1)
	args = append(args, courseID)
	for _, id := range studentIDs {
		args = append(args, id)
	}
	query := fmt.Sprintf("SELECT student_id FROM enrollments WHERE course_id = $1 AND student_id IN (%s)", placeholders(2, len(studentIDs)))
	var found []string
	if err := r.db.SelectContext(ctx, &found, query, args...); err != nil {
		return nil, fmt.Errorf("check enrollments: %w", err)
	}
	for _, id := range found {
		enrolled[id] = true
	}
	return enrolled, nil
}

// ListCoursesForStudent returns the courses a student is enrolled in.
func (r *EnrollmentRepository) ListCoursesForStudent(ctx context.Context, studentID string) ([]models.Course, error) {
	const query = `SELECT c.id, c.name, c.code, c.description, c.created_at, c.updated_at
        FROM courses c JOIN enrollments e ON e.course_id = c.id
        WHERE e.student_id = $1 ORDER BY c.code`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, studentID); err != nil {
		return nil, fmt.Errorf("list student courses: %w", err)
	}
	return courses, nil
}
