package review

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gopimeda/elearning/core/course"
)

type fakeRepo struct {
	Repository
	byID map[string]Review
	next int
}

func (r *fakeRepo) CreateReview(_ context.Context, rev Review) (Review, error) {
	r.next++
	rev.ID = fmt.Sprintf("rev%d", r.next)
	r.byID[rev.ID] = rev
	return rev, nil
}

func (r *fakeRepo) GetReviewByID(_ context.Context, id string) (Review, error) {
	rev, ok := r.byID[id]
	if !ok {
		return Review{}, ErrNotFound
	}
	return rev, nil
}

func (r *fakeRepo) GetReview(_ context.Context, userID, courseID string) (Review, error) {
	for _, rev := range r.byID {
		if rev.UserID == userID && rev.CourseID == courseID {
			return rev, nil
		}
	}
	return Review{}, ErrNotFound
}

func (r *fakeRepo) QueryApprovedRatings(_ context.Context, courseID string) ([]int, error) {
	var ratings []int
	for _, rev := range r.byID {
		if rev.CourseID == courseID && rev.Approved() {
			ratings = append(ratings, rev.Rating)
		}
	}
	return ratings, nil
}

func (r *fakeRepo) UpdateReview(_ context.Context, rev Review) error {
	r.byID[rev.ID] = rev
	return nil
}

func (r *fakeRepo) DeleteReviewsByID(_ context.Context, ids ...string) error {
	for _, id := range ids {
		delete(r.byID, id)
	}
	return nil
}

type fakeCourseSvc struct {
	course.ServiceInterface
	rating float64
	count  int
}

func (s *fakeCourseSvc) GetByID(_ context.Context, id string) (course.Course, error) {
	return course.Course{ID: id, Title: "Go Basics"}, nil
}

func (s *fakeCourseSvc) SetRating(_ context.Context, _ string, rating float64, count int) error {
	s.rating = rating
	s.count = count
	return nil
}

func TestAverageRating(t *testing.T) {
	assert.Zero(t, AverageRating(nil))
	assert.Equal(t, 4.0, AverageRating([]int{4}))
	assert.Equal(t, 3.5, AverageRating([]int{3, 4}))
	assert.InDelta(t, 4.333, AverageRating([]int{5, 5, 3}), 0.001)
}

func TestModerationUpdatesCourseRating(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepo{byID: make(map[string]Review)}
	crsSvc := &fakeCourseSvc{}
	svc := NewService(repo, crsSvc, noopLogger{})

	r1, err := svc.Create(ctx, "u1", "Jane", NewReview{CourseID: "c1", Rating: 5})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, r1.Status)
	assert.Zero(t, crsSvc.count) // pending reviews don't count

	// one user, one review per course
	_, err = svc.Create(ctx, "u1", "Jane", NewReview{CourseID: "c1", Rating: 1})
	assert.Error(t, err)

	r2, err := svc.Create(ctx, "u2", "John", NewReview{CourseID: "c1", Rating: 3})
	require.NoError(t, err)

	_, err = svc.SetStatus(ctx, r1.ID, StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, 5.0, crsSvc.rating)
	assert.Equal(t, 1, crsSvc.count)

	_, err = svc.SetStatus(ctx, r2.ID, StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, 4.0, crsSvc.rating)
	assert.Equal(t, 2, crsSvc.count)

	// rejecting an approved review removes it from the aggregate
	_, err = svc.SetStatus(ctx, r2.ID, StatusRejected)
	require.NoError(t, err)
	assert.Equal(t, 5.0, crsSvc.rating)
	assert.Equal(t, 1, crsSvc.count)

	// deleting the last approved review zeroes the aggregate
	err = svc.Delete(ctx, r1.ID)
	require.NoError(t, err)
	assert.Zero(t, crsSvc.rating)
	assert.Zero(t, crsSvc.count)
}

func TestSetStatusRejectsUnknownStatus(t *testing.T) {
	repo := &fakeRepo{byID: make(map[string]Review)}
	svc := NewService(repo, &fakeCourseSvc{}, noopLogger{})

	_, err := svc.SetStatus(context.Background(), "rev1", "archived")
	assert.Error(t, err)
}

type noopLogger struct{}

func (noopLogger) Enable(bool)                  {}
func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) Fatal(string, ...interface{}) {}
