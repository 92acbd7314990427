package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/attendance-ease-api/internal/models"
	appErrors "github.com/noah-isme/attendance-ease-api/pkg/errors"
)

func newUserFixture(users ...models.User) (*UserService, *fakeUserRepo) {
	repo := newFakeUserRepo(users...)
	svc := NewUserService(repo, nil, nil)
	svc.bcryptCost = bcrypt.MinCost
	return svc, repo
}

func TestUserServiceCreateEducator(t *testing.T) {
	svc, repo := newUserFixture()

	user, err := svc.Create(context.Background(), models.CreateUserRequest{
		Email:       "Teacher@Example.com",
		Password:    "password123",
		FullName:    "Teacher",
		Role:        models.RoleEducator,
		Permissions: models.Permissions{CanMarkAttendance: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "teacher@example.com", user.Email)
	assert.True(t, user.Active)
	assert.True(t, user.CanMarkAttendance)
	assert.False(t, user.CanViewDashboard)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.created[0].PasswordHash), []byte("password123")))
}

func TestUserServiceCreateAdminHoldsEveryPermission(t *testing.T) {
	svc, _ := newUserFixture()

	user, err := svc.Create(context.Background(), models.CreateUserRequest{Email: "root@example.com", Password: "password123", FullName: "Root", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, models.AllPermissions(), user.Permissions)
}

func TestUserServiceCreateDuplicateEmail(t *testing.T) {
	svc, _ := newUserFixture(models.User{ID: "u1", Email: "taken@example.com"})

	_, err := svc.Create(context.Background(), models.CreateUserRequest{Email: "TAKEN@example.com", Password: "password123", FullName: "Dup", Role: models.RoleEducator})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, "email already in use", appErr.Message)
}

func TestUserServiceCreateRejectsStudentRole(t *testing.T) {
	svc, _ := newUserFixture()

	_, err := svc.Create(context.Background(), models.CreateUserRequest{Email: "s@example.com", Password: "password123", FullName: "S", Role: models.RoleStudent})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserServiceUpdatePermissions(t *testing.T) {
	svc, _ := newUserFixture(
		models.User{ID: "edu", Role: models.RoleEducator, Active: true},
		models.User{ID: "adm", Role: models.RoleAdmin, Active: true, Permissions: models.AllPermissions()},
	)
	inactive := false

	user, err := svc.UpdatePermissions(context.Background(), "edu", models.UpdatePermissionsRequest{
		Permissions: models.Permissions{CanViewRecords: true},
		Active:      &inactive,
	})
	require.NoError(t, err)
	assert.True(t, user.CanViewRecords)
	assert.False(t, user.CanMarkAttendance)
	assert.False(t, user.Active)

	admin, err := svc.UpdatePermissions(context.Background(), "adm", models.UpdatePermissionsRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.AllPermissions(), admin.Permissions)
}

func TestUserServiceDelete(t *testing.T) {
	svc, repo := newUserFixture(models.User{ID: "u1"}, models.User{ID: "u2"})

	err := svc.Delete(context.Background(), "u1", "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Delete(context.Background(), "u2", "u1"))
	assert.Equal(t, []string{"u2"}, repo.deleted)

	err = svc.Delete(context.Background(), "ghost", "u1")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnsureBootstrapAdmin(t *testing.T) {
	svc, repo := newUserFixture()
	admin := BootstrapAdmin{Email: "admin@example.com", Password: "changeme123"}

	require.NoError(t, svc.EnsureBootstrapAdmin(context.Background(), admin))
	require.Len(t, repo.created, 1)
	assert.Equal(t, models.RoleAdmin, repo.created[0].Role)
	assert.Equal(t, "Administrator", repo.created[0].FullName)

	require.NoError(t, svc.EnsureBootstrapAdmin(context.Background(), admin))
	assert.Len(t, repo.created, 1)
}

func TestEnsureBootstrapAdminDisabled(t *testing.T) {
	svc, repo := newUserFixture()

	require.NoError(t, svc.EnsureBootstrapAdmin(context.Background(), BootstrapAdmin{}))
	assert.Empty(t, repo.created)
}
