package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/attendance-ease-api/internal/models"
	appErrors "github.com/noah-isme/attendance-ease-api/pkg/errors"
)

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newAuthFixture(t *testing.T) (*AuthService, *fakeUserRepo, *fakeStudentRepo, *fakeAttempts) {
	t.Helper()
	studentHash := hashPassword(t, "Student12345")
	users := newFakeUserRepo(
		models.User{ID: "u1", Email: "teacher@example.com", PasswordHash: hashPassword(t, "password"), FullName: "Teacher", Role: models.RoleEducator, Active: true, Permissions: models.Permissions{CanViewRecords: true}},
		models.User{ID: "u2", Email: "gone@example.com", PasswordHash: hashPassword(t, "password"), Role: models.RoleEducator, Active: false},
	)
	students := newFakeStudentRepo(
		models.Student{ID: "s1", UID: strPtr("AbCd1234"), PasswordHash: &studentHash, FirstName: "Ada", LastName: "Lovelace"},
		models.Student{ID: "s2", UID: strPtr("NoPass00")},
	)
	attempts := newFakeAttempts()
	svc := NewAuthService(users, students, attempts, nil, nil, nil, AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "attendance-ease",
		MaxLoginAttempts:  3,
		LockoutWindow:     time.Minute,
	})
	return svc, users, students, attempts
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	svc, users, _, _ := newAuthFixture(t)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "teacher@example.com", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Contains(t, users.lastLogin, "u1")

	claims, err := svc.ValidateToken(context.Background(), res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleEducator, claims.Role)
	assert.True(t, claims.Can(models.PermissionViewRecords))
	assert.False(t, claims.Can(models.PermissionMarkAttendance))
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc, _, _, attempts := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "teacher@example.com", Password: "nope"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
	assert.Equal(t, int64(1), attempts.counts["user:teacher@example.com"])

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "unknown@example.com", Password: "nope"})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactive(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "gone@example.com", Password: "password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceThrottlesRepeatedFailures(t *testing.T) {
	svc, _, _, attempts := newAuthFixture(t)
	req := models.LoginRequest{Email: "teacher@example.com", Password: "wrong"}

	for i := 0; i < 3; i++ {
		_, err := svc.Login(context.Background(), req)
		assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
	}

	req.Password = "password"
	_, err := svc.Login(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTooManyAttempts.Code, appErrors.FromError(err).Code)

	delete(attempts.counts, "user:teacher@example.com")
	_, err = svc.Login(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, attempts.resets, "user:teacher@example.com")
}

func TestAuthServiceWithoutThrottleStore(t *testing.T) {
	users := newFakeUserRepo()
	svc := NewAuthService(users, newFakeStudentRepo(), nil, nil, nil, nil, AuthConfig{AccessTokenSecret: "secret", MaxLoginAttempts: 1})

	for i := 0; i < 3; i++ {
		_, err := svc.Login(context.Background(), models.LoginRequest{Email: "x@example.com", Password: "wrong"})
		assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
	}
}

func TestAuthServiceStudentLogin(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t)

	res, err := svc.StudentLogin(context.Background(), models.StudentLoginRequest{UID: "AbCd1234", Password: "Student12345"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, res.User.Role)
	assert.Equal(t, "Ada Lovelace", res.User.FullName)

	claims, err := svc.ValidateToken(context.Background(), res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "s1", claims.UserID)
	assert.False(t, claims.Can(models.PermissionViewRecords))

	_, err = svc.StudentLogin(context.Background(), models.StudentLoginRequest{UID: "NoPass00", Password: "anything"})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)

	_, err = svc.StudentLogin(context.Background(), models.StudentLoginRequest{UID: "AbCd1234", Password: "wrong"})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceMe(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t)

	info, err := svc.Me(context.Background(), &models.JWTClaims{UserID: "u1", Role: models.RoleEducator})
	require.NoError(t, err)
	assert.Equal(t, "teacher@example.com", info.Email)
	assert.True(t, info.Permissions.CanViewRecords)

	student, err := svc.Me(context.Background(), &models.JWTClaims{UserID: "s1", Role: models.RoleStudent})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", student.FullName)

	_, err = svc.Me(context.Background(), &models.JWTClaims{UserID: "u2", Role: models.RoleEducator})
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsForeignSignature(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t)
	other := NewAuthService(newFakeUserRepo(), newFakeStudentRepo(), nil, nil, nil, nil, AuthConfig{AccessTokenSecret: "other"})
	token, _, err := other.generateAccessToken(models.UserInfo{ID: "u1", Role: models.RoleAdmin})
	require.NoError(t, err)

	_, err = svc.ValidateToken(context.Background(), token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenReflectsPermissionChanges(t *testing.T) {
	svc, users, _, _ := newAuthFixture(t)
	userSvc := NewUserService(users, nil, nil)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "teacher@example.com", Password: "password"})
	require.NoError(t, err)

	_, err = userSvc.UpdatePermissions(context.Background(), "u1", models.UpdatePermissionsRequest{
		Permissions: models.Permissions{CanMarkAttendance: true},
	})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(context.Background(), res.AccessToken)
	require.NoError(t, err)
	assert.False(t, claims.Can(models.PermissionViewRecords))
	assert.True(t, claims.Can(models.PermissionMarkAttendance))

	require.NoError(t, userSvc.Delete(context.Background(), "u1", "admin"))
	_, err = svc.ValidateToken(context.Background(), res.AccessToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsRemovedStudent(t *testing.T) {
	svc, _, students, _ := newAuthFixture(t)

	res, err := svc.StudentLogin(context.Background(), models.StudentLoginRequest{UID: "AbCd1234", Password: "Student12345"})
	require.NoError(t, err)

	delete(students.students, "s1")
	_, err = svc.ValidateToken(context.Background(), res.AccessToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
