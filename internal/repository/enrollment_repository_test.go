package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrollmentRepositoryListStudentIDs(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id FROM enrollments WHERE course_id = $1")).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}).AddRow("s1").AddRow("s2"))

	ids, err := repo.ListStudentIDs(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryEnrollIsIdempotent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO enrollments .* ON CONFLICT \\(course_id, student_id\\) DO NOTHING").
		WithArgs("c1", "s1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO enrollments").
		WithArgs("c1", "s1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	added, err := repo.Enroll(context.Background(), "c1", []string{"s1", "s1"})
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryEnrollRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO enrollments").WillReturnError(errors.New("foreign key violation"))
	mock.ExpectRollback()

	_, err := repo.Enroll(context.Background(), "c1", []string{"ghost"})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUnenroll(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("DELETE FROM enrollments").WithArgs("c1", "s1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM enrollments").WithArgs("c1", "s2").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Unenroll(context.Background(), "c1", "s1"))
	assert.True(t, errors.Is(repo.Unenroll(context.Background(), "c1", "s2"), sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryEnrolledAmong(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id FROM enrollments WHERE course_id = $1 AND student_id IN ($2,$3)")).
		WithArgs("c1", "s1", "s9").
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}).AddRow("s1"))

	found, err := repo.EnrolledAmong(context.Background(), "c1", []string{"s1", "s9"})
	require.NoError(t, err)
	assert.True(t, found["s1"])
	assert.False(t, found["s9"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
