package inmem

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gopimeda/elearning/core/course"
	"github.com/gopimeda/elearning/core/listing"
)

type CourseRepository struct {
	courses *table[course.Course]
	lessons *table[course.Lesson]
}

var _ course.Repository = (*CourseRepository)(nil)

func NewCourseRepository() *CourseRepository {
	return &CourseRepository{
		courses: newTable[course.Course](),
		lessons: newTable[course.Lesson](),
	}
}

func (r *CourseRepository) CreateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	if crs.ID == "" {
		crs.ID = uuid.New().String()
	}
	r.courses.insert(crs.ID, crs)
	return crs, nil
}

func (r *CourseRepository) GetCourseByID(_ context.Context, id string) (course.Course, error) {
	crs, ok := r.courses.get(id)
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	return crs, nil
}

func (r *CourseRepository) GetCourseBySlug(_ context.Context, slug string) (course.Course, error) {
	for _, crs := range r.courses.all() {
		if crs.Slug == slug {
			return crs, nil
		}
	}
	return course.Course{}, course.ErrNotFound
}

func (r *CourseRepository) QueryCourses(_ context.Context, qf *course.QueryFilter, params listing.Params) (listing.Page[course.Course], error) {
	matched := make([]course.Course, 0)
	for _, crs := range r.courses.all() {
		if matchCourse(crs, qf) {
			matched = append(matched, crs)
		}
	}
	if qf != nil {
		params.Search = qf.Search
	}
	return course.Schema().ApplyPage(matched, params), nil
}

func matchCourse(crs course.Course, qf *course.QueryFilter) bool {
	if qf == nil || qf.IsEmpty() {
		return true
	}
	if qf.Category != "" && !strings.EqualFold(crs.Category, qf.Category) {
		return false
	}
	if qf.Level != "" && !strings.EqualFold(crs.Level, qf.Level) {
		return false
	}
	if qf.IsPublished != nil && crs.Published() != *qf.IsPublished {
		return false
	}
	if qf.InstructorID != "" && crs.InstructorID != qf.InstructorID {
		return false
	}
	return true
}

func (r *CourseRepository) UpdateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	crs.UpdatedAt = time.Now().UTC()
	if !r.courses.update(crs.ID, crs) {
		return course.Course{}, course.ErrNotFound
	}
	return crs, nil
}

func (r *CourseRepository) DeleteCoursesByID(_ context.Context, ids ...string) error {
	for _, courseID := range ids {
		var lessonIDs []string
		for _, lsn := range r.lessons.all() {
			if lsn.CourseID == courseID {
				lessonIDs = append(lessonIDs, lsn.ID)
			}
		}
		r.lessons.delete(lessonIDs...)
	}
	r.courses.delete(ids...)
	return nil
}

func (r *CourseRepository) CreateLesson(_ context.Context, lsn course.Lesson) (course.Lesson, error) {
	if lsn.ID == "" {
		lsn.ID = uuid.New().String()
	}
	r.lessons.insert(lsn.ID, lsn)
	r.syncLessonCount(lsn.CourseID)
	return lsn, nil
}

func (r *CourseRepository) GetLessonByID(_ context.Context, id string) (course.Lesson, error) {
	lsn, ok := r.lessons.get(id)
	if !ok {
		return course.Lesson{}, course.ErrLessonNotFound
	}
	return lsn, nil
}

func (r *CourseRepository) QueryLessons(_ context.Context, courseID string) ([]course.Lesson, error) {
	var lessons []course.Lesson
	for _, lsn := range r.lessons.all() {
		if lsn.CourseID == courseID {
			lessons = append(lessons, lsn)
		}
	}
	sort.SliceStable(lessons, func(i, j int) bool { return lessons[i].Order < lessons[j].Order })
	return lessons, nil
}

func (r *CourseRepository) UpdateLesson(_ context.Context, lsn course.Lesson) (course.Lesson, error) {
	lsn.UpdatedAt = time.Now().UTC()
	if !r.lessons.update(lsn.ID, lsn) {
		return course.Lesson{}, course.ErrLessonNotFound
	}
	return lsn, nil
}

func (r *CourseRepository) DeleteLessonsByID(_ context.Context, ids ...string) error {
	courseIDs := make(map[string]struct{})
	for _, id := range ids {
		if lsn, ok := r.lessons.get(id); ok {
			courseIDs[lsn.CourseID] = struct{}{}
		}
	}
	r.lessons.delete(ids...)
	for courseID := range courseIDs {
		r.syncLessonCount(courseID)
	}
	return nil
}

func (r *CourseRepository) syncLessonCount(courseID string) {
	crs, ok := r.courses.get(courseID)
	if !ok {
		return
	}
	var n int
	for _, lsn := range r.lessons.all() {
		if lsn.CourseID == courseID {
			n++
		}
	}
	crs.LessonCount = n
	r.courses.update(courseID, crs)
}
