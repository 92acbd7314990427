package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/attendance-ease-api/internal/models"
)

// DashboardRepository gathers headline counters in one round trip.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository constructs the repository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Summary returns entity counts and the attendance tally for date.
func (r *DashboardRepository) Summary(ctx context.Context, date time.Time) (*models.DashboardSummary, error) {
	const query = `SELECT
        (SELECT COUNT(*) FROM courses) AS courses,
        (SELECT COUNT(*) FROM students) AS students,
        (SELECT COUNT(*) FROM users WHERE active = TRUE) AS users,
        (SELECT COUNT(*) FROM enrollments) AS enrollments,
        (SELECT COUNT(*) FROM attendance_records WHERE date = $1 AND status = 'present') AS present_today,
        (SELECT COUNT(*) FROM attendance_records WHERE date = $1 AND status = 'absent') AS absent_today`
	var summary models.DashboardSummary
	if err := r.db.GetContext(ctx, &summary, query, date); err != nil {
		return nil, fmt.Errorf("dashboard summary: %w", err)
	}
	summary.Date = date.Format(models.DateLayout)
	return &summary, nil
}
