package course

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/gopimeda/elearning/core"
	"github.com/gopimeda/elearning/core/listing"
)

var (
	// errors
	ErrNotFound       = errors.New("course not found")
	ErrLessonNotFound = errors.New("lesson not found")
	ErrNoSelection    = errors.New("no courses selected")
	ErrNotInstructor  = errors.New("course belongs to another instructor")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		GetCourseByID(ctx context.Context, id string) (Course, error)
		GetCourseBySlug(ctx context.Context, slug string) (Course, error)
		// QueryCourses applies an AND operation on available QueryFilter fields
		// and returns the page selected by params.
		QueryCourses(ctx context.Context, filter *QueryFilter, params listing.Params) (listing.Page[Course], error)
		// UpdateCourse replaces the stored course.
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		DeleteCoursesByID(ctx context.Context, ids ...string) error

		CreateLesson(ctx context.Context, lsn Lesson) (Lesson, error)
		GetLessonByID(ctx context.Context, id string) (Lesson, error)
		// QueryLessons returns all lessons of a course in Order.
		QueryLessons(ctx context.Context, courseID string) ([]Lesson, error)
		UpdateLesson(ctx context.Context, lsn Lesson) (Lesson, error)
		DeleteLessonsByID(ctx context.Context, ids ...string) error
	}

	ServiceInterface interface {
		Create(ctx context.Context, instructorID, instructorName string, nc NewCourse) (Course, error)
		GetByID(ctx context.Context, id string) (Course, error)
		GetBySlug(ctx context.Context, slug string) (Course, error)
		Query(ctx context.Context, filter *QueryFilter, params listing.Params) (listing.Page[Course], error)
		Update(ctx context.Context, id string, uc UpdateCourse) (Course, error)
		SetPublished(ctx context.Context, id string, published bool) (Course, error)
		SetPublishedBulk(ctx context.Context, published bool, ids ...string) error
		SetRating(ctx context.Context, id string, rating float64, count int) error
		Delete(ctx context.Context, ids ...string) error

		AddLesson(ctx context.Context, courseID string, nl NewLesson) (Lesson, error)
		GetLesson(ctx context.Context, id string) (Lesson, error)
		Lessons(ctx context.Context, courseID string) ([]Lesson, error)
		UpdateLesson(ctx context.Context, id string, ul UpdateLesson) (Lesson, error)
		ReorderLessons(ctx context.Context, courseID string, orderedIDs []string) error
		DeleteLesson(ctx context.Context, id string) error
	}

	Service struct {
		repo  Repository
		cache core.Cache
		log   core.Logger
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, cache core.Cache, log core.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

func (svc *Service) Create(ctx context.Context, instructorID, instructorName string, nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	crs := Course{
		Title:          nc.Title,
		Slug:           Slugify(nc.Title),
		Description:    nc.Description,
		Category:       nc.Category,
		Level:          nc.Level,
		Price:          nc.Price,
		IsPublished:    null.BoolFrom(false), // courses start as drafts
		InstructorID:   instructorID,
		InstructorName: instructorName,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return svc.repo.CreateCourse(ctx, crs)
}

// GetByID reads through the cache.
func (svc *Service) GetByID(ctx context.Context, id string) (Course, error) {
	var crs Course
	key := CacheKeyByID(id)
	if hit, err := svc.cache.Get(ctx, key, &crs); err != nil {
		svc.log.Warn("course cache get failed", err)
	} else if hit {
		return crs, nil
	}

	crs, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if err := svc.cache.Set(ctx, key, crs, 0 /* default TTL */); err != nil {
		svc.log.Warn("course cache set failed", err)
	}
	return crs, nil
}

func (svc *Service) GetBySlug(ctx context.Context, slug string) (Course, error) {
	return svc.repo.GetCourseBySlug(ctx, slug)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, params listing.Params) (listing.Page[Course], error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryCourses(ctx, filter, params)
}

// Update only touches the fields set in uc; everything else keeps its
// stored value.
func (svc *Service) Update(ctx context.Context, id string, uc UpdateCourse) (Course, error) {
	crs, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if uc.Title != "" {
		crs.Title = uc.Title
		crs.Slug = Slugify(uc.Title)
	}
	if uc.Description != "" {
		crs.Description = uc.Description
	}
	if uc.Category != "" {
		crs.Category = uc.Category
	}
	if uc.Level != "" {
		crs.Level = uc.Level
	}
	if uc.IsPublished.Valid {
		crs.IsPublished = uc.IsPublished
	}
	if uc.Price != nil {
		crs.Price = *uc.Price
	}
	crs.UpdatedAt = time.Now().UTC()
	updated, err := svc.repo.UpdateCourse(ctx, crs)
	if err != nil {
		return Course{}, err
	}
	svc.invalidate(ctx, id)
	return updated, nil
}

// SetPublished backs the publish/unpublish row actions.
func (svc *Service) SetPublished(ctx context.Context, id string, published bool) (Course, error) {
	crs, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, err
	}
	crs.IsPublished = null.BoolFrom(published)
	crs.UpdatedAt = time.Now().UTC()
	updated, err := svc.repo.UpdateCourse(ctx, crs)
	if err != nil {
		return Course{}, err
	}
	svc.invalidate(ctx, id)
	return updated, nil
}

// SetPublishedBulk publishes/unpublishes a set of courses in one request;
// it requires a non-empty selection.
func (svc *Service) SetPublishedBulk(ctx context.Context, published bool, ids ...string) error {
	if len(ids) == 0 {
		return core.NewValidationError(ErrNoSelection)
	}
	for _, id := range ids {
		if _, err := svc.SetPublished(ctx, id, published); err != nil {
			return errors.Wrapf(err, "publishing course %s", id)
		}
	}
	return nil
}

// SetRating stores the review aggregate; called by the review moderation flow.
func (svc *Service) SetRating(ctx context.Context, id string, rating float64, count int) error {
	crs, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return err
	}
	crs.Rating = rating
	crs.RatingCount = count
	crs.UpdatedAt = time.Now().UTC()
	if _, err := svc.repo.UpdateCourse(ctx, crs); err != nil {
		return errors.Wrap(err, "updating course rating")
	}
	svc.invalidate(ctx, id)
	return nil
}

// Delete removes the given courses; it requires a non-empty selection.
func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return core.NewValidationError(ErrNoSelection)
	}
	if err := svc.repo.DeleteCoursesByID(ctx, ids...); err != nil {
		return err
	}
	for _, id := range ids {
		svc.invalidate(ctx, id)
	}
	return nil
}

func (svc *Service) AddLesson(ctx context.Context, courseID string, nl NewLesson) (Lesson, error) {
	lessons, err := svc.repo.QueryLessons(ctx, courseID)
	if err != nil {
		return Lesson{}, err
	}
	now := time.Now().UTC()
	lsn := Lesson{
		CourseID:  courseID,
		Title:     nl.Title,
		Order:     len(lessons) + 1,
		Duration:  nl.Duration,
		Content:   nl.Content,
		IsPreview: nl.IsPreview,
		CreatedAt: now,
		UpdatedAt: now,
	}
	created, err := svc.repo.CreateLesson(ctx, lsn)
	if err != nil {
		return Lesson{}, err
	}
	svc.invalidate(ctx, courseID) // lesson count changed
	return created, nil
}

func (svc *Service) GetLesson(ctx context.Context, id string) (Lesson, error) {
	return svc.repo.GetLessonByID(ctx, id)
}

func (svc *Service) Lessons(ctx context.Context, courseID string) ([]Lesson, error) {
	return svc.repo.QueryLessons(ctx, courseID)
}

func (svc *Service) UpdateLesson(ctx context.Context, id string, ul UpdateLesson) (Lesson, error) {
	lsn, err := svc.repo.GetLessonByID(ctx, id)
	if err != nil {
		return Lesson{}, err
	}
	if ul.Title != "" {
		lsn.Title = ul.Title
	}
	if ul.Content != "" {
		lsn.Content = ul.Content
	}
	if ul.Duration != nil {
		lsn.Duration = *ul.Duration
	}
	if ul.IsPreview != nil {
		lsn.IsPreview = *ul.IsPreview
	}
	lsn.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateLesson(ctx, lsn)
}

// ReorderLessons rewrites the Order of a course's lessons to match orderedIDs.
func (svc *Service) ReorderLessons(ctx context.Context, courseID string, orderedIDs []string) error {
	lessons, err := svc.repo.QueryLessons(ctx, courseID)
	if err != nil {
		return err
	}
	byID := make(map[string]Lesson, len(lessons))
	for _, lsn := range lessons {
		byID[lsn.ID] = lsn
	}
	if len(orderedIDs) != len(lessons) {
		return core.NewValidationError(errors.New("lesson list is incomplete"))
	}
	now := time.Now().UTC()
	for i, id := range orderedIDs {
		lsn, ok := byID[id]
		if !ok {
			return core.NewValidationError(errors.Errorf("unknown lesson %s", id))
		}
		lsn.Order = i + 1
		lsn.UpdatedAt = now
		if _, err := svc.repo.UpdateLesson(ctx, lsn); err != nil {
			return errors.Wrapf(err, "reordering lesson %s", id)
		}
	}
	return nil
}

func (svc *Service) DeleteLesson(ctx context.Context, id string) error {
	lsn, err := svc.repo.GetLessonByID(ctx, id)
	if err != nil {
		return err
	}
	if err := svc.repo.DeleteLessonsByID(ctx, id); err != nil {
		return err
	}
	svc.invalidate(ctx, lsn.CourseID)
	return nil
}

func (svc *Service) invalidate(ctx context.Context, id string) {
	if err := svc.cache.Delete(ctx, CacheKeyByID(id)); err != nil {
		svc.log.Warn("course cache delete failed", err)
	}
}
