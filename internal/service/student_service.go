package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/attendance-ease-api/internal/models"
	appErrors "github.com/noah-isme/attendance-ease-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	BulkCreate(ctx context.Context, students []models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

// StudentImportColumns is the header expected in student CSV uploads.
var StudentImportColumns = []string{"first_name", "last_name", "email", "roll_number"}

// StudentServiceConfig bounds CSV imports.
type StudentServiceConfig struct {
	MaxImportRows int
}

// StudentService manages student profiles.
type StudentService struct {
	repo      studentRepository
	validator *validator.Validate
	logger    *zap.Logger
	cfg       StudentServiceConfig
}

// NewStudentService constructs the service.
func NewStudentService(repo studentRepository, validate *validator.Validate, logger *zap.Logger, cfg StudentServiceConfig) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxImportRows <= 0 {
		cfg.MaxImportRows = 2000
	}
	return &StudentService{repo: repo, validator: validate, logger: logger, cfg: cfg}
}

// List returns paginated students.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list students")
	}
	if students == nil {
		students = []models.Student{}
	}
	return students, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns a student by id.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}
	return student, nil
}

// Create registers a student without credentials.
func (s *StudentService) Create(ctx context.Context, req models.CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student := newStudent(req)
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Internal(err, "failed to create student")
	}
	s.logger.Info("student created", zap.String("student_id", student.ID))
	return student, nil
}

// Update replaces the editable profile fields.
func (s *StudentService) Update(ctx context.Context, id string, req models.UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	student.FirstName = strings.TrimSpace(req.FirstName)
	student.LastName = strings.TrimSpace(req.LastName)
	student.Email = strings.ToLower(strings.TrimSpace(req.Email))
	student.RollNumber = optionalString(req.RollNumber)
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Internal(err, "failed to update student")
	}
	return student, nil
}

// Delete removes a student with its enrollments and attendance.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if isNoRows(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Internal(err, "failed to delete student")
	}
	s.logger.Info("student deleted", zap.String("student_id", id))
	return nil
}

// Import reads a CSV upload and inserts every valid row in one transaction.
// Invalid rows are reported back and skipped.
func (s *StudentService) Import(ctx context.Context, r io.Reader) (*models.StudentImportResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "csv file is empty")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid csv file")
	}
	index, err := headerIndex(header)
	if err != nil {
		return nil, err
	}

	result := &models.StudentImportResult{Items: []models.Student{}}
	students := make([]models.Student, 0)
	count := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				result.Errors = append(result.Errors, models.ImportRowError{Row: parseErr.StartLine, Message: parseErr.Err.Error()})
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid csv file")
		}
		if blankRecord(record) {
			continue
		}
		count++
		if count > s.cfg.MaxImportRows {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("csv exceeds %d rows", s.cfg.MaxImportRows))
		}
		line, _ := reader.FieldPos(0)
		req := models.CreateStudentRequest{
			FirstName:  field(record, index, "first_name"),
			LastName:   field(record, index, "last_name"),
			Email:      field(record, index, "email"),
			RollNumber: field(record, index, "roll_number"),
		}
		if err := s.validator.Struct(req); err != nil {
			result.Errors = append(result.Errors, models.ImportRowError{Row: line, Message: validationMessage(err)})
			continue
		}
		students = append(students, *newStudent(req))
	}

	if len(students) > 0 {
		if err := s.repo.BulkCreate(ctx, students); err != nil {
			return nil, appErrors.Internal(err, "failed to import students")
		}
	}
	result.Created = len(students)
	result.Items = students
	s.logger.Info("students imported", zap.Int("created", result.Created), zap.Int("rejected", len(result.Errors)))
	return result, nil
}

func newStudent(req models.CreateStudentRequest) *models.Student {
	return &models.Student{
		FirstName:  strings.TrimSpace(req.FirstName),
		LastName:   strings.TrimSpace(req.LastName),
		Email:      strings.ToLower(strings.TrimSpace(req.Email)),
		RollNumber: optionalString(req.RollNumber),
	}
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func headerIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		index[key] = i
	}
	if _, ok := index["first_name"]; !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "csv header must include "+strings.Join(StudentImportColumns, ","))
	}
	return index, nil
}

func field(record []string, index map[string]int, name string) string {
	i, ok := index[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		parts := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
		}
		return strings.Join(parts, "; ")
	}
	return err.Error()
}
