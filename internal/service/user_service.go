package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/attendance-ease-api/internal/models"
	"github.com/noah-isme/attendance-ease-api/pkg/database"
	appErrors "github.com/noah-isme/attendance-ease-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdatePermissions(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
}

// BootstrapAdmin describes the administrator seeded into an empty users table.
type BootstrapAdmin struct {
	Email    string
	Password string
	FullName string
}

// UserService handles administrator and educator accounts.
type UserService struct {
	repo       userRepository
	validator  *validator.Validate
	logger     *zap.Logger
	bcryptCost int
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, validator: validate, logger: logger, bcryptCost: bcrypt.DefaultCost}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list users")
	}
	if users == nil {
		users = []models.User{}
	}
	return users, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}
	return user, nil
}

// Create registers an administrator or educator. Administrators always carry
// every permission flag.
func (s *UserService) Create(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create user payload")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already in use")
	} else if !isNoRows(err) {
		return nil, appErrors.Internal(err, "failed to check email uniqueness")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to hash password")
	}

	perms := req.Permissions
	if req.Role == models.RoleAdmin {
		perms = models.AllPermissions()
	}
	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(req.FullName),
		Role:         req.Role,
		Permissions:  perms,
		Active:       true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already in use")
		}
		return nil, appErrors.Internal(err, "failed to create user")
	}

	s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// UpdatePermissions replaces the flags of an educator and optionally toggles the account.
func (s *UserService) UpdatePermissions(ctx context.Context, id string, req models.UpdatePermissionsRequest) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role == models.RoleAdmin {
		user.Permissions = models.AllPermissions()
	} else {
		user.Permissions = req.Permissions
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	if err := s.repo.UpdatePermissions(ctx, user); err != nil {
		return nil, appErrors.Internal(err, "failed to update permissions")
	}
	s.logger.Info("user permissions updated", zap.String("user_id", user.ID))
	return user, nil
}

// Delete deactivates a user. Accounts cannot deactivate themselves.
func (s *UserService) Delete(ctx context.Context, id, actorID string) error {
	if id == actorID {
		return appErrors.Clone(appErrors.ErrValidation, "cannot delete your own account")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Internal(err, "failed to delete user")
	}
	s.logger.Info("user deactivated", zap.String("user_id", id), zap.String("actor_id", actorID))
	return nil
}

// EnsureBootstrapAdmin creates the first administrator when no users exist.
// It is a no-op when the email is unset or any user is present.
func (s *UserService) EnsureBootstrapAdmin(ctx context.Context, admin BootstrapAdmin) error {
	if admin.Email == "" || admin.Password == "" {
		return nil
	}
	_, total, err := s.repo.List(ctx, models.UserFilter{Page: 1, PageSize: 1})
	if err != nil {
		return appErrors.Internal(err, "failed to count users")
	}
	if total > 0 {
		return nil
	}
	name := admin.FullName
	if name == "" {
		name = "Administrator"
	}
	if _, err := s.Create(ctx, models.CreateUserRequest{
		Email:    admin.Email,
		Password: admin.Password,
		FullName: name,
		Role:     models.RoleAdmin,
	}); err != nil {
		return err
	}
	s.logger.Info("bootstrap administrator created", zap.String("email", admin.Email))
	return nil
}
