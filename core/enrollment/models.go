package enrollment

import (
	"time"

	"github.com/gopimeda/elearning/core"
	"github.com/gopimeda/elearning/core/listing"
)

const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Enrollment ties a student to a course and tracks their progress
// through its lessons.
type Enrollment struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	UserName    string `json:"user_name"`
	CourseID    string `json:"course_id"`
	CourseTitle string `json:"course_title"`
	Status      string `json:"status"`
	// Progress is the percentage of lessons completed, 0..100.
	Progress         float64   `json:"progress"`
	CompletedLessons []string  `json:"completed_lessons"`
	EnrolledAt       time.Time `json:"enrolled_at"` // UTC
	CompletedAt      time.Time `json:"completed_at,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"` // UTC
}

func (e *Enrollment) Active() bool    { return e.Status == StatusActive }
func (e *Enrollment) Completed() bool { return e.Status == StatusCompleted }

// HasCompleted reports whether the lesson has already been marked done.
func (e *Enrollment) HasCompleted(lessonID string) bool {
	for _, id := range e.CompletedLessons {
		if id == lessonID {
			return true
		}
	}
	return false
}

// QueryFilter narrows down an enrollment listing.
// Search does a case-insensitive match on UserName and CourseTitle.
type QueryFilter struct {
	Search   string `query:"search"`
	UserID   string `query:"user_id"`
	CourseID string `query:"course_id"`
	Status   string `query:"status"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.UserID == "" && qf.CourseID == "" && qf.Status == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status, true)
}

// Schema drives the in-memory derivation pipeline for enrollment list views.
func Schema() listing.Schema[Enrollment] {
	return listing.Schema[Enrollment]{
		Searchable: func(e Enrollment) []string { return []string{e.UserName, e.CourseTitle} },
		Categories: func(e Enrollment) map[string]string {
			return map[string]string{"status": e.Status, "course_id": e.CourseID}
		},
		Less: map[string]func(a, b Enrollment) bool{
			"user_name":    func(a, b Enrollment) bool { return a.UserName < b.UserName },
			"course_title": func(a, b Enrollment) bool { return a.CourseTitle < b.CourseTitle },
			"progress":     func(a, b Enrollment) bool { return a.Progress < b.Progress },
			"enrolled_at":  func(a, b Enrollment) bool { return a.EnrolledAt.Before(b.EnrolledAt) },
		},
	}
}
