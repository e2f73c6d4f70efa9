package review

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gopimeda/elearning/core"
	"github.com/gopimeda/elearning/core/listing"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Review is a student's rating of a course. New reviews start out
// pending and only count towards the course rating once approved.
type Review struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course_id"`
	CourseTitle string    `json:"course_title"`
	UserID      string    `json:"user_id"`
	UserName    string    `json:"user_name"`
	Rating      int       `json:"rating"` // 1..5
	Comment     string    `json:"comment"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

func (r *Review) Approved() bool { return r.Status == StatusApproved }

// NewReview contains information needed to create a new Review.
type NewReview struct {
	CourseID string `json:"course_id" validate:"required"`
	Rating   int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment  string `json:"comment" validate:"max=2000"`
}

func (nr *NewReview) Validate(validate *validator.Validate) error {
	nr.Comment = core.CleanString(nr.Comment)
	return validate.Struct(nr)
}

// QueryFilter narrows down a review listing.
// Search does a case-insensitive match on UserName, CourseTitle and Comment.
type QueryFilter struct {
	Search   string `query:"search"`
	CourseID string `query:"course_id"`
	UserID   string `query:"user_id"`
	Status   string `query:"status"`
	Rating   int    `query:"rating"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.CourseID == "" && qf.UserID == "" &&
		qf.Status == "" && qf.Rating == 0
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status, true)
}

// Schema drives the in-memory derivation pipeline for review list views.
func Schema() listing.Schema[Review] {
	return listing.Schema[Review]{
		Searchable: func(r Review) []string { return []string{r.UserName, r.CourseTitle, r.Comment} },
		Categories: func(r Review) map[string]string {
			return map[string]string{"status": r.Status, "course_id": r.CourseID}
		},
		Less: map[string]func(a, b Review) bool{
			"user_name":  func(a, b Review) bool { return a.UserName < b.UserName },
			"rating":     func(a, b Review) bool { return a.Rating < b.Rating },
			"created_at": func(a, b Review) bool { return a.CreatedAt.Before(b.CreatedAt) },
		},
	}
}
