package mongodb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gopimeda/elearning/core/enrollment"
	"github.com/gopimeda/elearning/core/listing"
)

type EnrollmentRepository struct {
	coll *mongo.Collection
}

var _ enrollment.Repository = (*EnrollmentRepository)(nil)

func NewEnrollmentRepository(db *mongo.Database) *EnrollmentRepository {
	return &EnrollmentRepository{coll: db.Collection("enrollments")}
}

type mongoEnrollment struct {
	ID               string    `bson:"_id"`
	UserID           string    `bson:"userId"`
	UserName         string    `bson:"userName"`
	CourseID         string    `bson:"courseId"`
	CourseTitle      string    `bson:"courseTitle"`
	Status           string    `bson:"status"`
	Progress         float64   `bson:"progress"`
	CompletedLessons []string  `bson:"completedLessons"`
	EnrolledAt       time.Time `bson:"enrolledAt"`
	CompletedAt      time.Time `bson:"completedAt"`
	UpdatedAt        time.Time `bson:"updatedAt"`
}

var enrollmentSortFields = map[string]string{
	"user_name":    "userName",
	"course_title": "courseTitle",
	"progress":     "progress",
	"enrolled_at":  "enrolledAt",
}

func (r *EnrollmentRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	if enr.ID == "" {
		enr.ID = uuid.New().String()
	}
	if _, err := r.coll.InsertOne(ctx, mongoEnrollment(enr)); err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return enr, nil
}

func (r *EnrollmentRepository) getOne(ctx context.Context, filter bson.M) (enrollment.Enrollment, error) {
	var me mongoEnrollment
	if err := r.coll.FindOne(ctx, filter).Decode(&me); err != nil {
		if errors.Cause(err) == mongo.ErrNoDocuments {
			return enrollment.Enrollment{}, enrollment.ErrNotFound
		}
		return enrollment.Enrollment{}, errors.Wrap(err, "finding enrollment")
	}
	return enrollment.Enrollment(me), nil
}

func (r *EnrollmentRepository) GetEnrollmentByID(ctx context.Context, id string) (enrollment.Enrollment, error) {
	return r.getOne(ctx, bson.M{"_id": id})
}

func (r *EnrollmentRepository) GetEnrollment(ctx context.Context, userID, courseID string) (enrollment.Enrollment, error) {
	return r.getOne(ctx, bson.M{"userId": userID, "courseId": courseID})
}

func enrollmentFilter(qf *enrollment.QueryFilter) bson.M {
	filter := bson.M{}
	if qf == nil || qf.IsEmpty() {
		return filter
	}
	if qf.Search != "" {
		re := searchRegex(qf.Search)
		filter["$or"] = bson.A{
			bson.M{"userName": re},
			bson.M{"courseTitle": re},
		}
	}
	if qf.UserID != "" {
		filter["userId"] = qf.UserID
	}
	if qf.CourseID != "" {
		filter["courseId"] = qf.CourseID
	}
	if qf.Status != "" {
		filter["status"] = qf.Status
	}
	return filter
}

func (r *EnrollmentRepository) QueryEnrollments(ctx context.Context, qf *enrollment.QueryFilter, params listing.Params) (listing.Page[enrollment.Enrollment], error) {
	return queryPage(ctx, r.coll, enrollmentFilter(qf), params, enrollmentSortFields,
		func(me mongoEnrollment) enrollment.Enrollment { return enrollment.Enrollment(me) })
}

func (r *EnrollmentRepository) UpdateEnrollment(ctx context.Context, enr enrollment.Enrollment) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": enr.ID}, mongoEnrollment(enr))
	if err != nil {
		return errors.Wrap(err, "updating enrollment")
	}
	if res.MatchedCount == 0 {
		return enrollment.ErrNotFound
	}
	return nil
}

func (r *EnrollmentRepository) DeleteEnrollmentsByID(ctx context.Context, ids ...string) error {
	_, err := r.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	return errors.Wrap(err, "deleting enrollments")
}
