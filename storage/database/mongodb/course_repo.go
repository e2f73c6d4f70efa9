package mongodb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gopimeda/elearning/core/course"
	"github.com/gopimeda/elearning/core/listing"
)

type CourseRepository struct {
	courses *mongo.Collection
	lessons *mongo.Collection
}

var _ course.Repository = (*CourseRepository)(nil)

func NewCourseRepository(db *mongo.Database) *CourseRepository {
	return &CourseRepository{
		courses: db.Collection("courses"),
		lessons: db.Collection("lessons"),
	}
}

type mongoCourse struct {
	ID             string    `bson:"_id"`
	Title          string    `bson:"title"`
	Slug           string    `bson:"slug"`
	Description    string    `bson:"description"`
	Category       string    `bson:"category"`
	Level          string    `bson:"level"`
	Price          float64   `bson:"price"`
	IsPublished    *bool     `bson:"isPublished"`
	InstructorID   string    `bson:"instructorId"`
	InstructorName string    `bson:"instructorName"`
	Rating         float64   `bson:"rating"`
	RatingCount    int       `bson:"ratingCount"`
	LessonCount    int       `bson:"lessonCount"`
	CreatedAt      time.Time `bson:"createdAt"`
	UpdatedAt      time.Time `bson:"updatedAt"`
}

type mongoLesson struct {
	ID        string    `bson:"_id"`
	CourseID  string    `bson:"courseId"`
	Title     string    `bson:"title"`
	Order     int       `bson:"order"`
	Duration  int       `bson:"duration"`
	Content   string    `bson:"content"`
	IsPreview bool      `bson:"isPreview"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func toMongoCourse(crs course.Course) mongoCourse {
	mc := mongoCourse{
		ID:             crs.ID,
		Title:          crs.Title,
		Slug:           crs.Slug,
		Description:    crs.Description,
		Category:       crs.Category,
		Level:          crs.Level,
		Price:          crs.Price,
		InstructorID:   crs.InstructorID,
		InstructorName: crs.InstructorName,
		Rating:         crs.Rating,
		RatingCount:    crs.RatingCount,
		LessonCount:    crs.LessonCount,
		CreatedAt:      crs.CreatedAt,
		UpdatedAt:      crs.UpdatedAt,
	}
	if crs.IsPublished.Valid {
		mc.IsPublished = &crs.IsPublished.Bool
	}
	return mc
}

func fromMongoCourse(mc mongoCourse) course.Course {
	crs := course.Course{
		ID:             mc.ID,
		Title:          mc.Title,
		Slug:           mc.Slug,
		Description:    mc.Description,
		Category:       mc.Category,
		Level:          mc.Level,
		Price:          mc.Price,
		InstructorID:   mc.InstructorID,
		InstructorName: mc.InstructorName,
		Rating:         mc.Rating,
		RatingCount:    mc.RatingCount,
		LessonCount:    mc.LessonCount,
		CreatedAt:      mc.CreatedAt,
		UpdatedAt:      mc.UpdatedAt,
	}
	if mc.IsPublished != nil {
		crs.IsPublished = null.BoolFrom(*mc.IsPublished)
	}
	return crs
}

func toMongoLesson(lsn course.Lesson) mongoLesson {
	return mongoLesson(lsn)
}

func fromMongoLesson(ml mongoLesson) course.Lesson {
	return course.Lesson(ml)
}

var courseSortFields = map[string]string{
	"title":      "title",
	"category":   "category",
	"price":      "price",
	"rating":     "rating",
	"created_at": "createdAt",
}

func (r *CourseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	if crs.ID == "" {
		crs.ID = uuid.New().String()
	}
	if _, err := r.courses.InsertOne(ctx, toMongoCourse(crs)); err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return crs, nil
}

func (r *CourseRepository) getOne(ctx context.Context, filter bson.M) (course.Course, error) {
	var mc mongoCourse
	if err := r.courses.FindOne(ctx, filter).Decode(&mc); err != nil {
		if errors.Cause(err) == mongo.ErrNoDocuments {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "finding course")
	}
	return fromMongoCourse(mc), nil
}

func (r *CourseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	return r.getOne(ctx, bson.M{"_id": id})
}

func (r *CourseRepository) GetCourseBySlug(ctx context.Context, slug string) (course.Course, error) {
	return r.getOne(ctx, bson.M{"slug": slug})
}

func courseFilter(qf *course.QueryFilter) bson.M {
	filter := bson.M{}
	if qf == nil || qf.IsEmpty() {
		return filter
	}
	if qf.Search != "" {
		re := searchRegex(qf.Search)
		filter["$or"] = bson.A{
			bson.M{"title": re},
			bson.M{"category": re},
			bson.M{"instructorName": re},
		}
	}
	if qf.Category != "" {
		filter["category"] = qf.Category
	}
	if qf.Level != "" {
		filter["level"] = qf.Level
	}
	if qf.IsPublished != nil {
		filter["isPublished"] = *qf.IsPublished
	}
	if qf.InstructorID != "" {
		filter["instructorId"] = qf.InstructorID
	}
	return filter
}

func (r *CourseRepository) QueryCourses(ctx context.Context, qf *course.QueryFilter, params listing.Params) (listing.Page[course.Course], error) {
	return queryPage(ctx, r.courses, courseFilter(qf), params, courseSortFields, fromMongoCourse)
}

func (r *CourseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	crs.UpdatedAt = time.Now().UTC()
	res, err := r.courses.ReplaceOne(ctx, bson.M{"_id": crs.ID}, toMongoCourse(crs))
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if res.MatchedCount == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return crs, nil
}

func (r *CourseRepository) DeleteCoursesByID(ctx context.Context, ids ...string) error {
	if _, err := r.lessons.DeleteMany(ctx, bson.M{"courseId": bson.M{"$in": ids}}); err != nil {
		return errors.Wrap(err, "deleting course lessons")
	}
	_, err := r.courses.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	return errors.Wrap(err, "deleting courses")
}

func (r *CourseRepository) CreateLesson(ctx context.Context, lsn course.Lesson) (course.Lesson, error) {
	if lsn.ID == "" {
		lsn.ID = uuid.New().String()
	}
	if _, err := r.lessons.InsertOne(ctx, toMongoLesson(lsn)); err != nil {
		return course.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	err := r.syncLessonCount(ctx, lsn.CourseID)
	return lsn, err
}

func (r *CourseRepository) GetLessonByID(ctx context.Context, id string) (course.Lesson, error) {
	var ml mongoLesson
	if err := r.lessons.FindOne(ctx, bson.M{"_id": id}).Decode(&ml); err != nil {
		if errors.Cause(err) == mongo.ErrNoDocuments {
			return course.Lesson{}, course.ErrLessonNotFound
		}
		return course.Lesson{}, errors.Wrap(err, "finding lesson")
	}
	return fromMongoLesson(ml), nil
}

func (r *CourseRepository) QueryLessons(ctx context.Context, courseID string) ([]course.Lesson, error) {
	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}})
	cursor, err := r.lessons.Find(ctx, bson.M{"courseId": courseID}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "finding lessons")
	}
	defer cursor.Close(ctx)

	var lessons []course.Lesson
	for cursor.Next(ctx) {
		var ml mongoLesson
		if err = cursor.Decode(&ml); err != nil {
			return nil, errors.Wrap(err, "decoding lesson")
		}
		lessons = append(lessons, fromMongoLesson(ml))
	}
	return lessons, cursor.Err()
}

func (r *CourseRepository) UpdateLesson(ctx context.Context, lsn course.Lesson) (course.Lesson, error) {
	lsn.UpdatedAt = time.Now().UTC()
	res, err := r.lessons.ReplaceOne(ctx, bson.M{"_id": lsn.ID}, toMongoLesson(lsn))
	if err != nil {
		return course.Lesson{}, errors.Wrap(err, "updating lesson")
	}
	if res.MatchedCount == 0 {
		return course.Lesson{}, course.ErrLessonNotFound
	}
	return lsn, nil
}

func (r *CourseRepository) DeleteLessonsByID(ctx context.Context, ids ...string) error {
	courseIDs, err := r.lessons.Distinct(ctx, "courseId", bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return errors.Wrap(err, "resolving lesson courses")
	}
	if _, err = r.lessons.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return errors.Wrap(err, "deleting lessons")
	}
	for _, courseID := range courseIDs {
		if id, ok := courseID.(string); ok {
			if err = r.syncLessonCount(ctx, id); err != nil {
				return err
			}
		}
	}
	return nil
}

// syncLessonCount keeps the denormalized count on the course document
// in step with the lessons collection.
func (r *CourseRepository) syncLessonCount(ctx context.Context, courseID string) error {
	n, err := r.lessons.CountDocuments(ctx, bson.M{"courseId": courseID})
	if err != nil {
		return errors.Wrap(err, "counting lessons")
	}
	_, err = r.courses.UpdateOne(ctx, bson.M{"_id": courseID}, bson.M{"$set": bson.M{"lessonCount": n}})
	return errors.Wrap(err, "syncing lesson count")
}
