package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/attendance-ease-api/internal/models"
	appErrors "github.com/noah-isme/attendance-ease-api/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
}

type authStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByUID(ctx context.Context, uid string) (*models.Student, error)
}

type loginAttemptStore interface {
	Failures(ctx context.Context, identity string) (int64, error)
	RecordFailure(ctx context.Context, identity string, window time.Duration) (int64, error)
	Reset(ctx context.Context, identity string) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
	MaxLoginAttempts  int
	LockoutWindow     time.Duration
}

// AuthService authenticates users and students and validates issued tokens.
type AuthService struct {
	users     authUserRepository
	students  authStudentRepository
	attempts  loginAttemptStore
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance. attempts may be nil to
// disable throttling.
func NewAuthService(users authUserRepository, students authStudentRepository, attempts loginAttemptStore, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 12 * time.Hour
	}
	if config.LockoutWindow <= 0 {
		config.LockoutWindow = 15 * time.Minute
	}
	return &AuthService{
		users:     users,
		students:  students,
		attempts:  attempts,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Login authenticates an administrator or educator by email and password.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}
	identity := "user:" + strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.checkThrottle(ctx, identity); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if isNoRows(err) {
			return nil, s.failure(ctx, identity, "user")
		}
		return nil, appErrors.Internal(err, "failed to fetch user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, s.failure(ctx, identity, "user")
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}

	s.resetThrottle(ctx, identity)
	if err := s.users.UpdateLastLogin(ctx, user.ID, s.now()); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}

	info := models.UserInfo{
		ID:          user.ID,
		Email:       user.Email,
		FullName:    user.FullName,
		Role:        user.Role,
		Permissions: effectivePermissions(user.Role, user.Permissions),
	}
	return s.issue(info, req.IP)
}

// StudentLogin authenticates a student with a generated uid and password.
func (s *AuthService) StudentLogin(ctx context.Context, req models.StudentLoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}
	identity := "student:" + strings.TrimSpace(req.UID)
	if err := s.checkThrottle(ctx, identity); err != nil {
		return nil, err
	}

	student, err := s.students.FindByUID(ctx, strings.TrimSpace(req.UID))
	if err != nil {
		if isNoRows(err) {
			return nil, s.failure(ctx, identity, "student")
		}
		return nil, appErrors.Internal(err, "failed to fetch student")
	}
	if !student.HasPassword() {
		return nil, s.failure(ctx, identity, "student")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*student.PasswordHash), []byte(req.Password)); err != nil {
		return nil, s.failure(ctx, identity, "student")
	}

	s.resetThrottle(ctx, identity)
	info := models.UserInfo{
		ID:       student.ID,
		Email:    student.Email,
		FullName: student.FullName(),
		Role:     models.RoleStudent,
	}
	return s.issue(info, req.IP)
}

// Me reloads the subject behind the claims so revoked or deleted accounts are noticed.
func (s *AuthService) Me(ctx context.Context, claims *models.JWTClaims) (*models.UserInfo, error) {
	if claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing claims")
	}
	if claims.Role == models.RoleStudent {
		student, err := s.students.FindByID(ctx, claims.UserID)
		if err != nil {
			if isNoRows(err) {
				return nil, appErrors.Clone(appErrors.ErrUnauthorized, "student no longer exists")
			}
			return nil, appErrors.Internal(err, "failed to load student")
		}
		return &models.UserInfo{ID: student.ID, Email: student.Email, FullName: student.FullName(), Role: models.RoleStudent}, nil
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "user no longer exists")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}
	return &models.UserInfo{
		ID:          user.ID,
		Email:       user.Email,
		FullName:    user.FullName,
		Role:        user.Role,
		Permissions: effectivePermissions(user.Role, user.Permissions),
	}, nil
}

// ValidateToken parses an access token and reloads its subject, so role and
// permission changes or deactivation apply to tokens issued earlier.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	info, err := s.Me(ctx, claims)
	if err != nil {
		appErr := appErrors.FromError(err)
		if appErr.Code == appErrors.ErrInactiveAccount.Code {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "account is inactive")
		}
		return nil, err
	}
	claims.Role = info.Role
	claims.Email = info.Email
	claims.FullName = info.FullName
	claims.Permissions = info.Permissions
	return claims, nil
}

func (s *AuthService) issue(info models.UserInfo, ip string) (*models.LoginResponse, error) {
	token, issuedAt, err := s.generateAccessToken(info)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to create access token")
	}
	s.logger.Info("login succeeded",
		zap.String("subject", info.ID),
		zap.String("role", string(info.Role)),
		zap.String("ip", ip),
	)
	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		User:        info,
		IssuedAt:    issuedAt,
	}, nil
}

func (s *AuthService) generateAccessToken(info models.UserInfo) (string, time.Time, error) {
	issuedAt := s.now()
	claims := &models.JWTClaims{
		UserID:      info.ID,
		Role:        info.Role,
		Email:       info.Email,
		FullName:    info.FullName,
		Permissions: info.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   info.ID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, issuedAt, nil
}

func (s *AuthService) throttled() bool {
	return s.attempts != nil && s.config.MaxLoginAttempts > 0
}

func (s *AuthService) checkThrottle(ctx context.Context, identity string) error {
	if !s.throttled() {
		return nil
	}
	failures, err := s.attempts.Failures(ctx, identity)
	if err != nil {
		s.logger.Warn("login attempt lookup failed", zap.Error(err))
		return nil
	}
	if failures >= int64(s.config.MaxLoginAttempts) {
		return appErrors.Clone(appErrors.ErrTooManyAttempts, "too many failed login attempts, try again later")
	}
	return nil
}

// failure records a failed attempt and returns the error for the caller. The
// same message is used for unknown identities and wrong passwords.
func (s *AuthService) failure(ctx context.Context, identity, kind string) error {
	s.metrics.RecordLoginFailure(kind)
	if s.throttled() {
		if _, err := s.attempts.RecordFailure(ctx, identity, s.config.LockoutWindow); err != nil {
			s.logger.Warn("failed to record login failure", zap.Error(err))
		}
	}
	if kind == "student" {
		return appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid uid or password")
	}
	return appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
}

func (s *AuthService) resetThrottle(ctx context.Context, identity string) {
	if !s.throttled() {
		return
	}
	if err := s.attempts.Reset(ctx, identity); err != nil {
		s.logger.Warn("failed to reset login attempts", zap.Error(err))
	}
}

func effectivePermissions(role models.UserRole, perms models.Permissions) models.Permissions {
	if role == models.RoleAdmin {
		return models.AllPermissions()
	}
	return perms
}
