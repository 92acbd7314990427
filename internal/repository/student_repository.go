package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/attendance-ease-api/internal/models"
)

const studentColumns = `id, uid, password_hash, first_name, last_name, email, roll_number, created_at, updated_at`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	base := "FROM students"
	var args []interface{}
	if filter.Search != "" {
		base += " WHERE (LOWER(first_name) LIKE $1 OR LOWER(last_name) LIKE $1 OR LOWER(email) LIKE $1 OR LOWER(COALESCE(roll_number, '')) LIKE $1)"
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	allowedSorts := map[string]string{
		"first_name":  "first_name",
		"last_name":   "last_name",
		"roll_number": "roll_number",
		"created_at":  "created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	order := sortOrder(filter.SortOrder, "DESC")
	size, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s, id LIMIT %d OFFSET %d", studentColumns, base, column, order, size, offset)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student by ID. sql.ErrNoRows is returned unwrapped.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := "SELECT " + studentColumns + " FROM students WHERE id = $1"
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// FindByUID fetches a student by login identifier.
func (r *StudentRepository) FindByUID(ctx context.Context, uid string) (*models.Student, error) {
	query := "SELECT " + studentColumns + " FROM students WHERE uid = $1"
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, uid); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find student by uid: %w", err)
	}
	return &student, nil
}

// FindByIDs hydrates the given ids in a single IN query. Callers bound the
// slice length; unknown ids are silently absent from the result.
func (r *StudentRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Student, error) {
	if len(ids) == 0 {
		return []models.Student{}, nil
	}
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := fmt.Sprintf("SELECT %s FROM students WHERE id IN (%s)", studentColumns, placeholders(1, len(ids)))
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("find students by ids: %w", err)
	}
	return students, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	prepareStudent(student, time.Now().UTC())
	if _, err := r.db.NamedExecContext(ctx, insertStudentQuery, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// BulkCreate inserts all students in one transaction.
func (r *StudentRepository) BulkCreate(ctx context.Context, students []models.Student) error {
	if len(students) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk students: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for i := range students {
		prepareStudent(&students[i], now)
		if _, err := tx.NamedExecContext(ctx, insertStudentQuery, &students[i]); err != nil {
			return fmt.Errorf("bulk create student: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk students: %w", err)
	}
	committed = true
	return nil
}

const insertStudentQuery = `INSERT INTO students (id, uid, password_hash, first_name, last_name, email, roll_number, created_at, updated_at)
        VALUES (:id, :uid, :password_hash, :first_name, :last_name, :email, :roll_number, :created_at, :updated_at)`

func prepareStudent(student *models.Student, now time.Time) {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
}

// Update modifies the profile fields of an existing student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET first_name = :first_name, last_name = :last_name, email = :email, roll_number = :roll_number, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Delete removes a student together with its attendance and enrollments.
// sql.ErrNoRows is returned when the student does not exist.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	return deleteCascade(ctx, r.db, "student", []string{
		"DELETE FROM attendance_records WHERE student_id = $1",
		"DELETE FROM enrollments WHERE student_id = $1",
	}, "DELETE FROM students WHERE id = $1", id)
}

// ListMissingCredentials returns students lacking a uid or a password hash.
func (r *StudentRepository) ListMissingCredentials(ctx context.Context) ([]models.Student, error) {
	query := "SELECT " + studentColumns + " FROM students WHERE uid IS NULL OR uid = '' OR password_hash IS NULL OR password_hash = '' ORDER BY roll_number NULLS FIRST, id"
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list students missing credentials: %w", err)
	}
	return students, nil
}

// ExistingUIDs reports which of the candidate uids are already taken.
func (r *StudentRepository) ExistingUIDs(ctx context.Context, uids []string) (map[string]bool, error) {
	taken := make(map[string]bool)
	if len(uids) == 0 {
		return taken, nil
	}
	args := make([]interface{}, len(uids))
	for i, uid := range uids {
		args[i] = uid
	}
	query := fmt.Sprintf("SELECT uid FROM students WHERE uid IN (%s)", placeholders(1, len(uids)))
	var found []string
	if err := r.db.SelectContext(ctx, &found, query, args...); err != nil {
		return nil, fmt.Errorf("check existing uids: %w", err)
	}
	for _, uid := range found {
		taken[uid] = true
	}
	return taken, nil
}

// ApplyCredentials writes every assignment in one transaction. A nil field keeps
// the stored value.
func (r *StudentRepository) ApplyCredentials(ctx context.Context, assignments []models.CredentialAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin credentials: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const query = `UPDATE students SET uid = COALESCE($2, uid), password_hash = COALESCE($3, password_hash), updated_at = $4 WHERE id = $1`
	now := time.Now().UTC()
	for _, a := range assignments {
		if _, err := tx.ExecContext(ctx, query, a.StudentID, a.UID, a.PasswordHash, now); err != nil {
			return fmt.Errorf("apply credentials for %s: %w", a.StudentID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit credentials: %w", err)
	}
	committed = true
	return nil
}

// deleteCascade runs the dependent deletes then the owner delete in one transaction.
func deleteCascade(ctx context.Context, db *sqlx.DB, entity string, dependents []string, owner string, id string) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete %s: %w", entity, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	for _, stmt := range dependents {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("delete %s dependents: %w", entity, err)
		}
	}
	res, err := tx.ExecContext(ctx, owner, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", entity, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s rows: %w", entity, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete %s: %w", entity, err)
	}
	committed = true
	return nil
}
