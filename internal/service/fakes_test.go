package service

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/attendance-ease-api/internal/models"
)

type fakeCourseRepo struct {
	courses   map[string]models.Course
	findErr   error
	codeTaken bool
	createErr error
	created   []models.Course
	deleted   []string
}

func newFakeCourseRepo(courses ...models.Course) *fakeCourseRepo {
	repo := &fakeCourseRepo{courses: map[string]models.Course{}}
	for _, c := range courses {
		repo.courses[c.ID] = c
	}
	return repo
}

func (f *fakeCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	out := make([]models.Course, 0, len(f.courses))
	for _, c := range f.courses {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (f *fakeCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	c, ok := f.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (f *fakeCourseRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return f.codeTaken, nil
}

func (f *fakeCourseRepo) Create(ctx context.Context, course *models.Course) error {
	if f.createErr != nil {
		return f.createErr
	}
	if course.ID == "" {
		course.ID = "course-" + strings.ToLower(course.Code)
	}
	f.created = append(f.created, *course)
	f.courses[course.ID] = *course
	return nil
}

func (f *fakeCourseRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.courses[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.courses, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeEnrollmentRepo struct {
	byCourse    map[string][]string
	listErr     error
	enrollCalls [][]string
	courses     map[string][]models.Course
}

func newFakeEnrollmentRepo() *fakeEnrollmentRepo {
	return &fakeEnrollmentRepo{byCourse: map[string][]string{}, courses: map[string][]models.Course{}}
}

func (f *fakeEnrollmentRepo) ListStudentIDs(ctx context.Context, courseID string) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]string(nil), f.byCourse[courseID]...), nil
}

func (f *fakeEnrollmentRepo) Enroll(ctx context.Context, courseID string, studentIDs []string) (int, error) {
	f.enrollCalls = append(f.enrollCalls, studentIDs)
	added := 0
	for _, id := range studentIDs {
		if !f.contains(courseID, id) {
			f.byCourse[courseID] = append(f.byCourse[courseID], id)
			added++
		}
	}
	return added, nil
}

func (f *fakeEnrollmentRepo) Unenroll(ctx context.Context, courseID, studentID string) error {
	ids := f.byCourse[courseID]
	for i, id := range ids {
		if id == studentID {
			f.byCourse[courseID] = append(ids[:i], ids[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeEnrollmentRepo) EnrolledAmong(ctx context.Context, courseID string, studentIDs []string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, id := range studentIDs {
		if f.contains(courseID, id) {
			out[id] = true
		}
	}
	return out, nil
}

func (f *fakeEnrollmentRepo) ListCoursesForStudent(ctx context.Context, studentID string) ([]models.Course, error) {
	return f.courses[studentID], nil
}

func (f *fakeEnrollmentRepo) contains(courseID, studentID string) bool {
	for _, id := range f.byCourse[courseID] {
		if id == studentID {
			return true
		}
	}
	return false
}

type fakeStudentRepo struct {
	students       map[string]models.Student
	findByIDsCalls [][]string
	created        []models.Student
	bulkCreated    []models.Student
	updated        []models.Student

	takenUIDs      map[string]bool
	existingCalls  int
	applyErrs      []error
	applyCalls     [][]models.CredentialAssignment
	listMissingErr error
}

func newFakeStudentRepo(students ...models.Student) *fakeStudentRepo {
	repo := &fakeStudentRepo{students: map[string]models.Student{}, takenUIDs: map[string]bool{}}
	for _, st := range students {
		repo.students[st.ID] = st
	}
	return repo
}

func (f *fakeStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	out := make([]models.Student, 0, len(f.students))
	for _, st := range f.students {
		out = append(out, st)
	}
	return out, len(out), nil
}

func (f *fakeStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	st, ok := f.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &st, nil
}

func (f *fakeStudentRepo) FindByUID(ctx context.Context, uid string) (*models.Student, error) {
	for _, st := range f.students {
		if st.UID != nil && *st.UID == uid {
			found := st
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentRepo) FindByIDs(ctx context.Context, ids []string) ([]models.Student, error) {
	f.findByIDsCalls = append(f.findByIDsCalls, append([]string(nil), ids...))
	out := make([]models.Student, 0, len(ids))
	for _, id := range ids {
		if st, ok := f.students[id]; ok {
			out = append(out, st)
		}
	}
	return out, nil
}

func (f *fakeStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = "student-" + student.FirstName
	}
	f.created = append(f.created, *student)
	f.students[student.ID] = *student
	return nil
}

func (f *fakeStudentRepo) BulkCreate(ctx context.Context, students []models.Student) error {
	f.bulkCreated = append(f.bulkCreated, students...)
	return nil
}

func (f *fakeStudentRepo) Update(ctx context.Context, student *models.Student) error {
	f.updated = append(f.updated, *student)
	f.students[student.ID] = *student
	return nil
}

func (f *fakeStudentRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.students[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.students, id)
	return nil
}

func (f *fakeStudentRepo) ListMissingCredentials(ctx context.Context) ([]models.Student, error) {
	if f.listMissingErr != nil {
		return nil, f.listMissingErr
	}
	var out []models.Student
	for _, st := range f.students {
		if !st.HasUID() || !st.HasPassword() {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ExistingUIDs reports every candidate as taken on the first call when
// takenUIDs["*"] is set, which forces one regeneration round.
func (f *fakeStudentRepo) ExistingUIDs(ctx context.Context, uids []string) (map[string]bool, error) {
	f.existingCalls++
	out := map[string]bool{}
	for _, uid := range uids {
		if f.takenUIDs[uid] || (f.takenUIDs["*"] && f.existingCalls == 1) {
			out[uid] = true
		}
	}
	return out, nil
}

func (f *fakeStudentRepo) ApplyCredentials(ctx context.Context, assignments []models.CredentialAssignment) error {
	f.applyCalls = append(f.applyCalls, assignments)
	if len(f.applyErrs) > 0 {
		err := f.applyErrs[0]
		f.applyErrs = f.applyErrs[1:]
		if err != nil {
			return err
		}
	}
	for _, a := range assignments {
		st := f.students[a.StudentID]
		if a.UID != nil {
			st.UID = a.UID
		}
		if a.PasswordHash != nil {
			st.PasswordHash = a.PasswordHash
		}
		f.students[a.StudentID] = st
	}
	return nil
}

type fakeAttendanceRepo struct {
	records   []models.AttendanceRecord
	upserted  []models.AttendanceRecord
	upsertErr error
}

func (f *fakeAttendanceRepo) UpsertBatch(ctx context.Context, records []models.AttendanceRecord) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, records...)
	return nil
}

func (f *fakeAttendanceRepo) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	var out []models.AttendanceRecord
	for _, rec := range f.records {
		if filter.CourseID != "" && rec.CourseID != filter.CourseID {
			continue
		}
		if filter.StudentID != "" && rec.StudentID != filter.StudentID {
			continue
		}
		if filter.From != nil && rec.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && rec.Date.After(*filter.To) {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].StudentID < out[j].StudentID
	})
	return out, nil
}

type fakeUserRepo struct {
	users     map[string]models.User
	created   []models.User
	updated   []models.User
	deleted   []string
	lastLogin map[string]time.Time
}

func newFakeUserRepo(users ...models.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: map[string]models.User{}, lastLogin: map[string]time.Time{}}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (f *fakeUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	out := make([]models.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, len(out), nil
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &u, nil
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			found := u
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "user-" + user.Email
	}
	f.created = append(f.created, *user)
	f.users[user.ID] = *user
	return nil
}

func (f *fakeUserRepo) UpdatePermissions(ctx context.Context, user *models.User) error {
	f.updated = append(f.updated, *user)
	f.users[user.ID] = *user
	return nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	if u, ok := f.users[id]; ok {
		u.Active = false
		f.users[id] = u
	}
	return nil
}

func (f *fakeUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	f.lastLogin[id] = ts
	return nil
}

type fakeAttempts struct {
	counts map[string]int64
	resets []string
}

func newFakeAttempts() *fakeAttempts {
	return &fakeAttempts{counts: map[string]int64{}}
}

func (f *fakeAttempts) Failures(ctx context.Context, identity string) (int64, error) {
	return f.counts[identity], nil
}

func (f *fakeAttempts) RecordFailure(ctx context.Context, identity string, window time.Duration) (int64, error) {
	f.counts[identity]++
	return f.counts[identity], nil
}

func (f *fakeAttempts) Reset(ctx context.Context, identity string) error {
	delete(f.counts, identity)
	f.resets = append(f.resets, identity)
	return nil
}

func mustDate(raw string) time.Time {
	t, err := time.ParseInLocation(models.DateLayout, raw, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func strPtr(v string) *string { return &v }
