package models

// DashboardSummary aggregates headline counters.
type DashboardSummary struct {
	Courses      int    `json:"courses" db:"courses"`
	Students     int    `json:"students" db:"students"`
	Users        int    `json:"users" db:"users"`
	Enrollments  int    `json:"enrollments" db:"enrollments"`
	Date         string `json:"date" db:"-"`
	PresentToday int    `json:"present_today" db:"present_today"`
	AbsentToday  int    `json:"absent_today" db:"absent_today"`
}
