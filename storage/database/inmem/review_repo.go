package inmem

import (
	"context"

	"github.com/google/uuid"

	"github.com/gopimeda/elearning/core/listing"
	"github.com/gopimeda/elearning/core/review"
)

type ReviewRepository struct {
	reviews *table[review.Review]
}

var _ review.Repository = (*ReviewRepository)(nil)

func NewReviewRepository() *ReviewRepository {
	return &ReviewRepository{reviews: newTable[review.Review]()}
}

func (r *ReviewRepository) CreateReview(_ context.Context, rev review.Review) (review.Review, error) {
	if rev.ID == "" {
		rev.ID = uuid.New().String()
	}
	r.reviews.insert(rev.ID, rev)
	return rev, nil
}

func (r *ReviewRepository) GetReviewByID(_ context.Context, id string) (review.Review, error) {
	rev, ok := r.reviews.get(id)
	if !ok {
		return review.Review{}, review.ErrNotFound
	}
	return rev, nil
}

func (r *ReviewRepository) GetReview(_ context.Context, userID, courseID string) (review.Review, error) {
	for _, rev := range r.reviews.all() {
		if rev.UserID == userID && rev.CourseID == courseID {
			return rev, nil
		}
	}
	return review.Review{}, review.ErrNotFound
}

func (r *ReviewRepository) QueryReviews(_ context.Context, qf *review.QueryFilter, params listing.Params) (listing.Page[review.Review], error) {
	matched := make([]review.Review, 0)
	for _, rev := range r.reviews.all() {
		if matchReview(rev, qf) {
			matched = append(matched, rev)
		}
	}
	if qf != nil {
		params.Search = qf.Search
	}
	return review.Schema().ApplyPage(matched, params), nil
}

func matchReview(rev review.Review, qf *review.QueryFilter) bool {
	if qf == nil || qf.IsEmpty() {
		return true
	}
	if qf.CourseID != "" && rev.CourseID != qf.CourseID {
		return false
	}
	if qf.UserID != "" && rev.UserID != qf.UserID {
		return false
	}
	if qf.Status != "" && rev.Status != qf.Status {
		return false
	}
	if qf.Rating != 0 && rev.Rating != qf.Rating {
		return false
	}
	return true
}

func (r *ReviewRepository) QueryApprovedRatings(_ context.Context, courseID string) ([]int, error) {
	var ratings []int
	for _, rev := range r.reviews.all() {
		if rev.CourseID == courseID && rev.Approved() {
			ratings = append(ratings, rev.Rating)
		}
	}
	return ratings, nil
}

func (r *ReviewRepository) UpdateReview(_ context.Context, rev review.Review) error {
	if !r.reviews.update(rev.ID, rev) {
		return review.ErrNotFound
	}
	return nil
}

func (r *ReviewRepository) DeleteReviewsByID(_ context.Context, ids ...string) error {
	r.reviews.delete(ids...)
	return nil
}
