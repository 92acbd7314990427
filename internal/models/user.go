package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin    UserRole = "ADMIN"
	RoleEducator UserRole = "EDUCATOR"
	RoleStudent  UserRole = "STUDENT"
)

// Permission names a capability flag granted to educators.
type Permission string

const (
	PermissionMarkAttendance Permission = "canMarkAttendance"
	PermissionViewRecords    Permission = "canViewRecords"
	PermissionViewDashboard  Permission = "canViewDashboard"
)

// Permissions are the capability flags stored per user.
type Permissions struct {
	CanMarkAttendance bool `db:"can_mark_attendance" json:"canMarkAttendance"`
	CanViewRecords    bool `db:"can_view_records" json:"canViewRecords"`
	CanViewDashboard  bool `db:"can_view_dashboard" json:"canViewDashboard"`
}

// Has reports whether the flag for p is set.
func (p Permissions) Has(perm Permission) bool {
	switch perm {
	case PermissionMarkAttendance:
		return p.CanMarkAttendance
	case PermissionViewRecords:
		return p.CanViewRecords
	case PermissionViewDashboard:
		return p.CanViewDashboard
	default:
		return false
	}
}

// AllPermissions grants every flag; administrators implicitly hold it.
func AllPermissions() Permissions {
	return Permissions{CanMarkAttendance: true, CanViewRecords: true, CanViewDashboard: true}
}

// User represents an administrator or educator stored in the users table.
type User struct {
	ID           string   `db:"id" json:"id"`
	Email        string   `db:"email" json:"email"`
	PasswordHash string   `db:"password_hash" json:"-"`
	FullName     string   `db:"full_name" json:"full_name"`
	Role         UserRole `db:"role" json:"role"`
	Permissions
	Active    bool       `db:"active" json:"active"`
	LastLogin *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// CreateUserRequest is the payload for registering an administrator or educator.
type CreateUserRequest struct {
	Email       string      `json:"email" validate:"required,email"`
	Password    string      `json:"password" validate:"required,min=8"`
	FullName    string      `json:"full_name" validate:"required,max=150"`
	Role        UserRole    `json:"role" validate:"required,oneof=ADMIN EDUCATOR"`
	Permissions Permissions `json:"permissions"`
}

// UpdatePermissionsRequest replaces a user's capability flags.
type UpdatePermissionsRequest struct {
	Permissions
	Active *bool `json:"active,omitempty"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
