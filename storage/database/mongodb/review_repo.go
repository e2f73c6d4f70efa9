package mongodb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gopimeda/elearning/core/listing"
	"github.com/gopimeda/elearning/core/review"
)

type ReviewRepository struct {
	coll *mongo.Collection
}

var _ review.Repository = (*ReviewRepository)(nil)

func NewReviewRepository(db *mongo.Database) *ReviewRepository {
	return &ReviewRepository{coll: db.Collection("reviews")}
}

type mongoReview struct {
	ID          string    `bson:"_id"`
	CourseID    string    `bson:"courseId"`
	CourseTitle string    `bson:"courseTitle"`
	UserID      string    `bson:"userId"`
	UserName    string    `bson:"userName"`
	Rating      int       `bson:"rating"`
	Comment     string    `bson:"comment"`
	Status      string    `bson:"status"`
	CreatedAt   time.Time `bson:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

var reviewSortFields = map[string]string{
	"user_name":  "userName",
	"rating":     "rating",
	"created_at": "createdAt",
}

func (r *ReviewRepository) CreateReview(ctx context.Context, rev review.Review) (review.Review, error) {
	if rev.ID == "" {
		rev.ID = uuid.New().String()
	}
	if _, err := r.coll.InsertOne(ctx, mongoReview(rev)); err != nil {
		return review.Review{}, errors.Wrap(err, "inserting review")
	}
	return rev, nil
}

func (r *ReviewRepository) getOne(ctx context.Context, filter bson.M) (review.Review, error) {
	var mr mongoReview
	if err := r.coll.FindOne(ctx, filter).Decode(&mr); err != nil {
		if errors.Cause(err) == mongo.ErrNoDocuments {
			return review.Review{}, review.ErrNotFound
		}
		return review.Review{}, errors.Wrap(err, "finding review")
	}
	return review.Review(mr), nil
}

func (r *ReviewRepository) GetReviewByID(ctx context.Context, id string) (review.Review, error) {
	return r.getOne(ctx, bson.M{"_id": id})
}

func (r *ReviewRepository) GetReview(ctx context.Context, userID, courseID string) (review.Review, error) {
	return r.getOne(ctx, bson.M{"userId": userID, "courseId": courseID})
}

func reviewFilter(qf *review.QueryFilter) bson.M {
	filter := bson.M{}
	if qf == nil || qf.IsEmpty() {
		return filter
	}
	if qf.Search != "" {
		re := searchRegex(qf.Search)
		filter["$or"] = bson.A{
			bson.M{"userName": re},
			bson.M{"courseTitle": re},
			bson.M{"comment": re},
		}
	}
	if qf.CourseID != "" {
		filter["courseId"] = qf.CourseID
	}
	if qf.UserID != "" {
		filter["userId"] = qf.UserID
	}
	if qf.Status != "" {
		filter["status"] = qf.Status
	}
	if qf.Rating != 0 {
		filter["rating"] = qf.Rating
	}
	return filter
}

func (r *ReviewRepository) QueryReviews(ctx context.Context, qf *review.QueryFilter, params listing.Params) (listing.Page[review.Review], error) {
	return queryPage(ctx, r.coll, reviewFilter(qf), params, reviewSortFields,
		func(mr mongoReview) review.Review { return review.Review(mr) })
}

func (r *ReviewRepository) QueryApprovedRatings(ctx context.Context, courseID string) ([]int, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"courseId": courseID, "status": review.StatusApproved})
	if err != nil {
		return nil, errors.Wrap(err, "finding approved reviews")
	}
	defer cursor.Close(ctx)

	var ratings []int
	for cursor.Next(ctx) {
		var mr mongoReview
		if err = cursor.Decode(&mr); err != nil {
			return nil, errors.Wrap(err, "decoding review")
		}
		ratings = append(ratings, mr.Rating)
	}
	return ratings, cursor.Err()
}

func (r *ReviewRepository) UpdateReview(ctx context.Context, rev review.Review) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": rev.ID}, mongoReview(rev))
	if err != nil {
		return errors.Wrap(err, "updating review")
	}
	if res.MatchedCount == 0 {
		return review.ErrNotFound
	}
	return nil
}

func (r *ReviewRepository) DeleteReviewsByID(ctx context.Context, ids ...string) error {
	_, err := r.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	return errors.Wrap(err, "deleting reviews")
}
