package enrollment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/gopimeda/elearning/core"
	"github.com/gopimeda/elearning/core/course"
	"github.com/gopimeda/elearning/core/user"
)

type fakeRepo struct {
	Repository
	byID map[string]Enrollment
}

func (r *fakeRepo) CreateEnrollment(_ context.Context, enr Enrollment) (Enrollment, error) {
	enr.ID = "enr1"
	r.byID[enr.ID] = enr
	return enr, nil
}

func (r *fakeRepo) GetEnrollmentByID(_ context.Context, id string) (Enrollment, error) {
	enr, ok := r.byID[id]
	if !ok {
		return Enrollment{}, ErrNotFound
	}
	return enr, nil
}

func (r *fakeRepo) GetEnrollment(_ context.Context, userID, courseID string) (Enrollment, error) {
	for _, enr := range r.byID {
		if enr.UserID == userID && enr.CourseID == courseID {
			return enr, nil
		}
	}
	return Enrollment{}, ErrNotFound
}

func (r *fakeRepo) UpdateEnrollment(_ context.Context, enr Enrollment) error {
	r.byID[enr.ID] = enr
	return nil
}

type fakeUserSvc struct {
	user.ServiceInterface
}

func (fakeUserSvc) GetByID(_ context.Context, id string) (user.User, error) {
	return user.User{ID: id, Name: "Jane Doe", Email: "jane@test.com"}, nil
}

type fakeCourseSvc struct {
	course.ServiceInterface
	lessons []course.Lesson
}

func (s *fakeCourseSvc) GetByID(_ context.Context, id string) (course.Course, error) {
	return course.Course{ID: id, Title: "Go Basics", IsPublished: null.BoolFrom(true)}, nil
}

func (s *fakeCourseSvc) Lessons(_ context.Context, _ string) ([]course.Lesson, error) {
	return s.lessons, nil
}

type noopMail struct{}

func (noopMail) SendMessages(...*core.EmailMessage) {}

type noopLogger struct{}

func (noopLogger) Enable(bool)                  {}
func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) Fatal(string, ...interface{}) {}

func newTestService(lessonCount int) (*Service, *fakeRepo) {
	lessons := make([]course.Lesson, 0, lessonCount)
	for i := 0; i < lessonCount; i++ {
		lessons = append(lessons, course.Lesson{ID: string(rune('a' + i)), Order: i + 1})
	}
	repo := &fakeRepo{byID: make(map[string]Enrollment)}
	svc := NewService(repo, fakeUserSvc{}, &fakeCourseSvc{lessons: lessons}, noopMail{}, noopLogger{})
	return svc, repo
}

func TestEnroll(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(2)

	enr, err := svc.Enroll(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, enr.Status)
	assert.Equal(t, "Jane Doe", enr.UserName)
	assert.Equal(t, "Go Basics", enr.CourseTitle)
	assert.Zero(t, enr.Progress)

	// enrolling twice fails
	_, err = svc.Enroll(ctx, "u1", "c1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already enrolled")
}

func TestCompleteLessonProgress(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(4)

	enr, err := svc.Enroll(ctx, "u1", "c1")
	require.NoError(t, err)

	enr, err = svc.CompleteLesson(ctx, enr.ID, "a")
	require.NoError(t, err)
	assert.Equal(t, 25.0, enr.Progress)
	assert.Equal(t, StatusActive, enr.Status)

	// completing the same lesson again changes nothing
	enr, err = svc.CompleteLesson(ctx, enr.ID, "a")
	require.NoError(t, err)
	assert.Equal(t, 25.0, enr.Progress)
	assert.Len(t, enr.CompletedLessons, 1)

	// unknown lesson is rejected
	_, err = svc.CompleteLesson(ctx, enr.ID, "nope")
	assert.Error(t, err)

	for _, id := range []string{"b", "c"} {
		enr, err = svc.CompleteLesson(ctx, enr.ID, id)
		require.NoError(t, err)
	}
	assert.Equal(t, 75.0, enr.Progress)

	// last lesson completes the enrollment
	enr, err = svc.CompleteLesson(ctx, enr.ID, "d")
	require.NoError(t, err)
	assert.Equal(t, 100.0, enr.Progress)
	assert.Equal(t, StatusCompleted, enr.Status)
	assert.False(t, enr.CompletedAt.IsZero())

	// a completed enrollment takes no more completions
	_, err = svc.CompleteLesson(ctx, enr.ID, "a")
	assert.Error(t, err)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(1)

	enr, err := svc.Enroll(ctx, "u1", "c1")
	require.NoError(t, err)

	enr, err = svc.Cancel(ctx, enr.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, enr.Status)

	// cancelling twice fails
	_, err = svc.Cancel(ctx, enr.ID)
	assert.Error(t, err)

	// empty bulk selection is rejected without touching the repo
	err = svc.CancelBulk(ctx)
	assert.Error(t, err)
}
