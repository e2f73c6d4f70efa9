package course

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	cachesvc "github.com/gopimeda/elearning/services/cache"
	logsvc "github.com/gopimeda/elearning/services/logger"
)

type fakeRepo struct {
	Repository
	byID map[string]Course
}

func (r *fakeRepo) CreateCourse(_ context.Context, crs Course) (Course, error) {
	crs.ID = "crs1"
	r.byID[crs.ID] = crs
	return crs, nil
}

func (r *fakeRepo) GetCourseByID(_ context.Context, id string) (Course, error) {
	crs, ok := r.byID[id]
	if !ok {
		return Course{}, ErrNotFound
	}
	return crs, nil
}

func (r *fakeRepo) UpdateCourse(_ context.Context, crs Course) (Course, error) {
	if _, ok := r.byID[crs.ID]; !ok {
		return Course{}, ErrNotFound
	}
	r.byID[crs.ID] = crs
	return crs, nil
}

func newTestService(t *testing.T) (*Service, *fakeRepo) {
	t.Helper()
	cache := cachesvc.NewInMemoryCache(time.Minute, time.Minute)
	t.Cleanup(cache.Stop)
	repo := &fakeRepo{byID: make(map[string]Course)}
	logger := logsvc.NewStdLogger(log.New(io.Discard, "", 0))
	return NewService(repo, cache, logger), repo
}

func seedCourse(t *testing.T, svc *Service) Course {
	t.Helper()
	crs, err := svc.Create(context.Background(), "usr1", "Fatima Haidara", NewCourse{
		Title:       "Intro to Gardening",
		Description: "From seed to harvest.",
		Category:    "lifestyle",
		Level:       "beginner",
		Price:       49.99,
	})
	require.NoError(t, err)
	return crs
}

func TestUpdate_partialKeepsStoredFields(t *testing.T) {
	svc, repo := newTestService(t)
	crs := seedCourse(t, svc)

	updated, err := svc.Update(context.Background(), crs.ID, UpdateCourse{
		Description: "From seed to harvest, in any climate.",
	})
	require.NoError(t, err)

	assert.Equal(t, "From seed to harvest, in any climate.", updated.Description)
	assert.Equal(t, crs.Title, updated.Title)
	assert.Equal(t, crs.Slug, updated.Slug)
	assert.Equal(t, crs.Category, updated.Category)
	assert.Equal(t, crs.Level, updated.Level)
	assert.Equal(t, crs.Price, updated.Price)
	assert.Equal(t, crs.InstructorID, updated.InstructorID)
	assert.Equal(t, crs.InstructorName, updated.InstructorName)
	assert.Equal(t, crs.CreatedAt, updated.CreatedAt)

	stored := repo.byID[crs.ID]
	assert.Equal(t, updated, stored)
}

func TestUpdate_titleRefreshesSlug(t *testing.T) {
	svc, _ := newTestService(t)
	crs := seedCourse(t, svc)

	updated, err := svc.Update(context.Background(), crs.ID, UpdateCourse{Title: "Advanced Gardening"})
	require.NoError(t, err)
	assert.Equal(t, "advanced-gardening", updated.Slug)
	assert.Equal(t, crs.Description, updated.Description)
}

func TestSetPublished_keepsStoredFields(t *testing.T) {
	svc, repo := newTestService(t)
	crs := seedCourse(t, svc)

	published, err := svc.SetPublished(context.Background(), crs.ID, true)
	require.NoError(t, err)
	assert.Equal(t, null.BoolFrom(true), published.IsPublished)
	assert.Equal(t, crs.Title, published.Title)
	assert.Equal(t, crs.Slug, published.Slug)
	assert.Equal(t, crs.InstructorID, published.InstructorID)
	assert.Equal(t, crs.Price, published.Price)
	assert.Equal(t, crs.CreatedAt, published.CreatedAt)

	stored := repo.byID[crs.ID]
	assert.True(t, stored.Published())
	assert.Equal(t, crs.Title, stored.Title)

	unpublished, err := svc.SetPublished(context.Background(), crs.ID, false)
	require.NoError(t, err)
	assert.False(t, unpublished.Published())
	assert.Equal(t, crs.InstructorID, unpublished.InstructorID)
}

func TestDelete_emptySelection(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.Delete(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoSelection) // the validation wrapper unwraps
}

func TestSetPublished_unknownCourse(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.SetPublished(context.Background(), "nope", true)
	assert.ErrorIs(t, err, ErrNotFound)
}
