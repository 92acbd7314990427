package service

import (
	"context"
	"crypto/rand"
	"io"
	"math/big"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/attendance-ease-api/internal/models"
	"github.com/noah-isme/attendance-ease-api/pkg/database"
	appErrors "github.com/noah-isme/attendance-ease-api/pkg/errors"
)

// Credential shape for generated student logins.
const (
	CredentialAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	UIDLength          = 8
	PasswordLength     = 12
	maxUIDAttempts     = 5
)

type credentialRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ListMissingCredentials(ctx context.Context) ([]models.Student, error)
	ExistingUIDs(ctx context.Context, uids []string) (map[string]bool, error)
	ApplyCredentials(ctx context.Context, assignments []models.CredentialAssignment) error
}

// CredentialConfig tunes credential hashing.
type CredentialConfig struct {
	BcryptCost int
}

// CredentialService issues login credentials to students.
type CredentialService struct {
	repo    credentialRepository
	logger  *zap.Logger
	metrics *MetricsService
	cost    int
	random  io.Reader
}

// NewCredentialService constructs the generator.
func NewCredentialService(repo credentialRepository, logger *zap.Logger, metrics *MetricsService, cfg CredentialConfig) *CredentialService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &CredentialService{repo: repo, logger: logger, metrics: metrics, cost: cfg.BcryptCost, random: rand.Reader}
}

// GenerateMissing assigns a uid and/or password to every student lacking one and
// persists all assignments atomically. Plaintext pairs are returned once; only
// bcrypt hashes are stored. A batch hitting a uid collision is regenerated.
func (s *CredentialService) GenerateMissing(ctx context.Context) ([]models.StudentCredential, error) {
	students, err := s.repo.ListMissingCredentials(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list students without credentials")
	}
	if len(students) == 0 {
		return []models.StudentCredential{}, nil
	}

	var lastErr error
	for attempt := 0; attempt < maxUIDAttempts; attempt++ {
		creds, assignments, err := s.prepare(ctx, students)
		if err != nil {
			return nil, err
		}
		if err := s.repo.ApplyCredentials(ctx, assignments); err != nil {
			if database.IsUniqueViolation(err) {
				lastErr = err
				s.logger.Warn("uid collision while applying credentials, regenerating batch", zap.Int("attempt", attempt+1))
				continue
			}
			return nil, appErrors.Internal(err, "failed to store credentials")
		}
		s.metrics.RecordCredentials(len(creds))
		s.logger.Info("student credentials generated", zap.Int("count", len(creds)))
		return creds, nil
	}
	return nil, appErrors.Internal(lastErr, "failed to allocate unique uids")
}

// Reset issues a new password for one student, also assigning a uid if missing.
func (s *CredentialService) Reset(ctx context.Context, studentID string) (*models.StudentCredential, error) {
	student, err := s.repo.FindByID(ctx, studentID)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}

	cleared := *student
	cleared.PasswordHash = nil
	creds, assignments, err := s.prepare(ctx, []models.Student{cleared})
	if err != nil {
		return nil, err
	}
	if err := s.repo.ApplyCredentials(ctx, assignments); err != nil {
		return nil, appErrors.Internal(err, "failed to store credentials")
	}
	s.metrics.RecordCredentials(1)
	return &creds[0], nil
}

// prepare builds plaintext credentials and their stored form. Candidate uids
// are unique within the batch and checked against the store.
func (s *CredentialService) prepare(ctx context.Context, students []models.Student) ([]models.StudentCredential, []models.CredentialAssignment, error) {
	uids, err := s.allocateUIDs(ctx, students)
	if err != nil {
		return nil, nil, err
	}

	creds := make([]models.StudentCredential, 0, len(students))
	assignments := make([]models.CredentialAssignment, 0, len(students))
	for _, st := range students {
		cred := models.StudentCredential{StudentID: st.ID, Name: st.FullName(), RollNumber: st.Roll()}
		assignment := models.CredentialAssignment{StudentID: st.ID}

		if uid, ok := uids[st.ID]; ok {
			cred.UID = uid
			assignment.UID = &uid
		} else if st.UID != nil {
			cred.UID = *st.UID
		}

		if !st.HasPassword() {
			password, err := RandomString(s.random, PasswordLength)
			if err != nil {
				return nil, nil, appErrors.Internal(err, "failed to generate password")
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
			if err != nil {
				return nil, nil, appErrors.Internal(err, "failed to hash password")
			}
			hashed := string(hash)
			cred.Password = password
			assignment.PasswordHash = &hashed
		}

		creds = append(creds, cred)
		assignments = append(assignments, assignment)
	}
	return creds, assignments, nil
}

func (s *CredentialService) allocateUIDs(ctx context.Context, students []models.Student) (map[string]string, error) {
	pending := make([]string, 0, len(students))
	for _, st := range students {
		if !st.HasUID() {
			pending = append(pending, st.ID)
		}
	}

	assigned := make(map[string]string, len(pending))
	used := make(map[string]bool, len(pending))
	for attempt := 0; len(pending) > 0; attempt++ {
		if attempt == maxUIDAttempts {
			return nil, appErrors.Clone(appErrors.ErrInternal, "failed to allocate unique uids")
		}
		candidates := make([]string, 0, len(pending))
		for _, id := range pending {
			uid, err := RandomString(s.random, UIDLength)
			if err != nil {
				return nil, appErrors.Internal(err, "failed to generate uid")
			}
			for used[uid] {
				if uid, err = RandomString(s.random, UIDLength); err != nil {
					return nil, appErrors.Internal(err, "failed to generate uid")
				}
			}
			used[uid] = true
			assigned[id] = uid
			candidates = append(candidates, uid)
		}

		taken, err := s.repo.ExistingUIDs(ctx, candidates)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to check uid uniqueness")
		}
		var retry []string
		for _, id := range pending {
			if taken[assigned[id]] {
				delete(assigned, id)
				retry = append(retry, id)
			}
		}
		pending = retry
	}
	return assigned, nil
}

// RandomString draws n characters uniformly from CredentialAlphabet.
func RandomString(r io.Reader, n int) (string, error) {
	limit := big.NewInt(int64(len(CredentialAlphabet)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(r, limit)
		if err != nil {
			return "", err
		}
		buf[i] = CredentialAlphabet[idx.Int64()]
	}
	return string(buf), nil
}
