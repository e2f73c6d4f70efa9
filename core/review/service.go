package review

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/gopimeda/elearning/core"
	"github.com/gopimeda/elearning/core/course"
	"github.com/gopimeda/elearning/core/listing"
)

var (
	ErrNotFound        = errors.New("review not found")
	ErrAlreadyReviewed = errors.New("user has already reviewed this course")
	ErrNoSelection     = errors.New("no reviews selected")
)

type Repository interface {
	CreateReview(ctx context.Context, rev Review) (Review, error)
	GetReviewByID(ctx context.Context, id string) (Review, error)
	GetReview(ctx context.Context, userID, courseID string) (Review, error)
	QueryReviews(ctx context.Context, qf *QueryFilter, params listing.Params) (listing.Page[Review], error)
	// QueryApprovedRatings returns the ratings of all approved reviews of a course.
	QueryApprovedRatings(ctx context.Context, courseID string) ([]int, error)
	UpdateReview(ctx context.Context, rev Review) error
	DeleteReviewsByID(ctx context.Context, ids ...string) error
}

type ServiceInterface interface {
	Create(ctx context.Context, userID, userName string, nr NewReview) (Review, error)
	GetByID(ctx context.Context, id string) (Review, error)
	Query(ctx context.Context, qf *QueryFilter, params listing.Params) (listing.Page[Review], error)
	SetStatus(ctx context.Context, id, status string) (Review, error)
	SetStatusBulk(ctx context.Context, status string, ids ...string) error
	Delete(ctx context.Context, ids ...string) error
}

type Service struct {
	repo      Repository
	courseSvc course.ServiceInterface
	log       core.Logger
}

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, courseSvc course.ServiceInterface, log core.Logger) *Service {
	return &Service{
		repo:      repo,
		courseSvc: courseSvc,
		log:       log,
	}
}

// Create stores a pending review. A user gets one review per course.
func (svc *Service) Create(ctx context.Context, userID, userName string, nr NewReview) (Review, error) {
	crs, err := svc.courseSvc.GetByID(ctx, nr.CourseID)
	if err != nil {
		return Review{}, err
	}
	if _, err = svc.repo.GetReview(ctx, userID, nr.CourseID); err == nil {
		return Review{}, core.NewValidationError(ErrAlreadyReviewed)
	} else if errors.Cause(err) != ErrNotFound {
		return Review{}, err
	}

	now := time.Now().UTC()
	rev := Review{
		CourseID:    crs.ID,
		CourseTitle: crs.Title,
		UserID:      userID,
		UserName:    userName,
		Rating:      nr.Rating,
		Comment:     nr.Comment,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateReview(ctx, rev)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Review, error) {
	return svc.repo.GetReviewByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, qf *QueryFilter, params listing.Params) (listing.Page[Review], error) {
	if qf != nil {
		qf.Clean()
	}
	return svc.repo.QueryReviews(ctx, qf, params)
}

// SetStatus moderates a review and refreshes the course's rating
// aggregate when the approved set changes.
func (svc *Service) SetStatus(ctx context.Context, id, status string) (Review, error) {
	if status != StatusApproved && status != StatusRejected && status != StatusPending {
		return Review{}, core.NewValidationError(errors.Errorf("invalid status %q", status))
	}
	rev, err := svc.repo.GetReviewByID(ctx, id)
	if err != nil {
		return Review{}, err
	}
	wasApproved := rev.Approved()
	rev.Status = status
	rev.UpdatedAt = time.Now().UTC()
	if err = svc.repo.UpdateReview(ctx, rev); err != nil {
		return Review{}, err
	}
	if wasApproved != rev.Approved() {
		if err = svc.refreshCourseRating(ctx, rev.CourseID); err != nil {
			svc.log.Warn("refreshing course rating", err)
		}
	}
	return rev, nil
}

func (svc *Service) SetStatusBulk(ctx context.Context, status string, ids ...string) error {
	if len(ids) == 0 {
		return core.NewValidationError(ErrNoSelection)
	}
	for _, id := range ids {
		if _, err := svc.SetStatus(ctx, id, status); err != nil {
			return errors.Wrapf(err, "moderating review %s", id)
		}
	}
	return nil
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return core.NewValidationError(ErrNoSelection)
	}
	courseIDs := make(map[string]struct{})
	for _, id := range ids {
		rev, err := svc.repo.GetReviewByID(ctx, id)
		if err != nil {
			continue
		}
		if rev.Approved() {
			courseIDs[rev.CourseID] = struct{}{}
		}
	}
	if err := svc.repo.DeleteReviewsByID(ctx, ids...); err != nil {
		return err
	}
	for courseID := range courseIDs {
		if err := svc.refreshCourseRating(ctx, courseID); err != nil {
			svc.log.Warn("refreshing course rating", err)
		}
	}
	return nil
}

func (svc *Service) refreshCourseRating(ctx context.Context, courseID string) error {
	ratings, err := svc.repo.QueryApprovedRatings(ctx, courseID)
	if err != nil {
		return err
	}
	avg := AverageRating(ratings)
	return svc.courseSvc.SetRating(ctx, courseID, avg, len(ratings))
}

// AverageRating computes the mean of the given ratings; no ratings is 0.
func AverageRating(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0
	}
	var sum int
	for _, r := range ratings {
		sum += r
	}
	return float64(sum) / float64(len(ratings))
}
