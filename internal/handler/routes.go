package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attendance-ease-api/internal/middleware"
	"github.com/noah-isme/attendance-ease-api/internal/models"
)

// Handlers groups every HTTP handler mounted under the API prefix.
type Handlers struct {
	Auth       *AuthHandler
	Courses    *CourseHandler
	Students   *StudentHandler
	Enrollment *EnrollmentHandler
	Attendance *AttendanceHandler
	Reports    *ReportHandler
	Me         *MeHandler
	Users      *UserHandler
	Dashboard  *DashboardHandler
}

// RegisterRoutes mounts the API on api. Course, student, enrollment and user
// management is admin only; attendance, reports and the dashboard are gated by
// permission flags; students only reach /me.
func RegisterRoutes(api *gin.RouterGroup, h Handlers, tokens middleware.TokenValidator) {
	auth := api.Group("/auth")
	auth.POST("/login", h.Auth.Login)
	auth.POST("/student/login", h.Auth.StudentLogin)

	secured := api.Group("")
	secured.Use(middleware.JWT(tokens))
	secured.GET("/auth/me", h.Auth.Me)

	staff := secured.Group("")
	staff.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleEducator))

	admin := secured.Group("")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))

	canMark := middleware.RequirePermission(models.PermissionMarkAttendance)
	canView := middleware.RequirePermission(models.PermissionViewRecords)

	staff.GET("/courses", h.Courses.List)
	staff.GET("/courses/:id", h.Courses.Get)
	staff.GET("/courses/:id/students", h.Enrollment.Roster)
	admin.POST("/courses", h.Courses.Create)
	admin.DELETE("/courses/:id", h.Courses.Delete)
	admin.POST("/courses/:id/enrollments", h.Enrollment.Enroll)
	admin.DELETE("/courses/:id/enrollments/:studentId", h.Enrollment.Unenroll)

	staff.POST("/courses/:id/attendance", canMark, h.Attendance.Mark)
	staff.GET("/courses/:id/attendance", canView, h.Attendance.List)
	staff.GET("/courses/:id/reports/register", canView, h.Reports.Register)
	staff.GET("/courses/:id/reports/register/export", canView, h.Reports.ExportRegister)
	staff.GET("/courses/:id/reports/summary", canView, h.Reports.Summary)
	staff.GET("/courses/:id/reports/summary/export", canView, h.Reports.ExportSummary)

	admin.GET("/students", h.Students.List)
	admin.POST("/students", h.Students.Create)
	admin.POST("/students/import", h.Students.Import)
	admin.POST("/students/credentials", h.Students.GenerateCredentials)
	admin.GET("/students/:id", h.Students.Get)
	admin.PUT("/students/:id", h.Students.Update)
	admin.DELETE("/students/:id", h.Students.Delete)
	admin.POST("/students/:id/credentials/reset", h.Students.ResetCredentials)

	admin.GET("/users", h.Users.List)
	admin.POST("/users", h.Users.Create)
	admin.GET("/users/:id", h.Users.Get)
	admin.PUT("/users/:id/permissions", h.Users.UpdatePermissions)
	admin.DELETE("/users/:id", h.Users.Delete)

	staff.GET("/dashboard", middleware.RequirePermission(models.PermissionViewDashboard), h.Dashboard.Summary)

	me := secured.Group("/me")
	me.Use(middleware.RequireRoles(models.RoleStudent))
	me.GET("/courses", h.Me.Courses)
	me.GET("/attendance", h.Me.Attendance)
}
