package quiz

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/gopimeda/elearning/core"
	"github.com/gopimeda/elearning/core/listing"
)

type Quiz struct {
	ID       string `json:"id"`
	CourseID string `json:"course_id"`
	// LessonID ties a quiz to one lesson; course-level quizzes leave it null.
	LessonID     null.String `json:"lesson_id"`
	Title        string      `json:"title"`
	TimeLimit    int         `json:"time_limit"` // minutes; 0 = unlimited
	PassingScore float64     `json:"passing_score"` // percent
	IsPublished  null.Bool   `json:"is_published"`
	Questions    []Question  `json:"questions"`
	CreatedAt    time.Time   `json:"created_at"` // UTC
	UpdatedAt    time.Time   `json:"updated_at"` // UTC
}

func (q *Quiz) Published() bool {
	return q.IsPublished.Valid && q.IsPublished.Bool
}

func (q *Quiz) Status() string {
	if q.Published() {
		return "published"
	}
	return "draft"
}

// TotalPoints sums the points of all questions.
func (q *Quiz) TotalPoints() int {
	var total int
	for _, qst := range q.Questions {
		total += qst.Points
	}
	return total
}

type Question struct {
	ID           string   `json:"id"`
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"-"` // never serialized to students
	Points       int      `json:"points"`
}

// Attempt is one user's graded submission of a quiz.
type Attempt struct {
	ID          string    `json:"id"`
	QuizID      string    `json:"quiz_id"`
	UserID      string    `json:"user_id"`
	Answers     []int     `json:"answers"` // selected option index per question; -1 = unanswered
	Score       int       `json:"score"`
	TotalPoints int       `json:"total_points"`
	Percent     float64   `json:"percent"`
	Passed      bool      `json:"passed"`
	StartedAt   time.Time `json:"started_at"`   // UTC
	SubmittedAt time.Time `json:"submitted_at"` // UTC
}

// NewQuiz contains information needed to create a new Quiz.
type NewQuiz struct {
	CourseID     string        `json:"course_id" validate:"required"`
	LessonID     string        `json:"lesson_id"`
	Title        string        `json:"title" validate:"required"`
	TimeLimit    int           `json:"time_limit" validate:"gte=0"`
	PassingScore float64       `json:"passing_score" validate:"gte=0,lte=100"`
	Questions    []NewQuestion `json:"questions" validate:"required,min=1,dive"`
}

type NewQuestion struct {
	Prompt       string   `json:"prompt" validate:"required"`
	Options      []string `json:"options" validate:"required,min=2"`
	CorrectIndex int      `json:"correct_index" validate:"gte=0"`
	Points       int      `json:"points" validate:"gte=1"`
}

func (nq *NewQuiz) Validate(validate *validator.Validate) error {
	nq.Title = core.CleanString(nq.Title)
	if err := validate.Struct(nq); err != nil {
		return err
	}
	for i, qst := range nq.Questions {
		if qst.CorrectIndex >= len(qst.Options) {
			return core.NewValidationError(nil, core.FieldError{
				Field: "questions",
				Error: "correct_index out of range",
			})
		}
		nq.Questions[i].Prompt = core.CleanString(qst.Prompt)
	}
	return nil
}

// QueryFilter narrows down a quiz listing.
// Search does a case-insensitive match on Quiz.Title.
type QueryFilter struct {
	Search      string `query:"search"`
	CourseID    string `query:"course_id"`
	IsPublished *bool  `query:"is_published"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.CourseID == "" && qf.IsPublished == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// Schema drives the in-memory derivation pipeline for quiz list views.
func Schema() listing.Schema[Quiz] {
	return listing.Schema[Quiz]{
		Searchable: func(q Quiz) []string { return []string{q.Title} },
		Categories: func(q Quiz) map[string]string {
			return map[string]string{"status": q.Status(), "course_id": q.CourseID}
		},
		Less: map[string]func(a, b Quiz) bool{
			"title":      func(a, b Quiz) bool { return a.Title < b.Title },
			"created_at": func(a, b Quiz) bool { return a.CreatedAt.Before(b.CreatedAt) },
		},
	}
}
