package course

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/gopimeda/elearning/core"
	"github.com/gopimeda/elearning/core/listing"
)

// Levels
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

var AllLevels = []string{LevelBeginner, LevelIntermediate, LevelAdvanced}

type Course struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description"`
	Category     string    `json:"category"`
	Level        string    `json:"level"`
	Price        float64   `json:"price"`
	IsPublished  null.Bool `json:"is_published"`
	InstructorID string    `json:"instructor_id"`
	// denormalized for list display and search
	InstructorName string    `json:"instructor_name"`
	Rating         float64   `json:"rating"`
	RatingCount    int       `json:"rating_count"`
	LessonCount    int       `json:"lesson_count"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at"` // UTC
}

func (c *Course) Published() bool {
	return c.IsPublished.Valid && c.IsPublished.Bool
}

// Status is the category-filter value list views filter on.
func (c *Course) Status() string {
	if c.Published() {
		return "published"
	}
	return "draft"
}

type Lesson struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	Title     string    `json:"title"`
	Order     int       `json:"order"`
	Duration  int       `json:"duration"` // minutes
	Content   string    `json:"content"`
	IsPreview bool      `json:"is_preview"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title       string  `json:"title" validate:"required"`
	Description string  `json:"description"`
	Category    string  `json:"category" validate:"required"`
	Level       string  `json:"level" validate:"required,oneof=beginner intermediate advanced"`
	Price       float64 `json:"price" validate:"gte=0"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Category = core.CleanString(nc.Category, true /* lower */)
	nc.Level = core.CleanString(nc.Level, true /* lower */)
	return validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
type UpdateCourse struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Level       string    `json:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
	Price       *float64  `json:"price" validate:"omitempty,gte=0"`
	IsPublished null.Bool `json:"is_published"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	uc.Title = core.CleanString(uc.Title)
	uc.Category = core.CleanString(uc.Category, true /* lower */)
	uc.Level = core.CleanString(uc.Level, true /* lower */)
	return validate.Struct(uc)
}

// NewLesson contains information needed to add a Lesson to a Course.
type NewLesson struct {
	Title     string `json:"title" validate:"required"`
	Duration  int    `json:"duration" validate:"gte=0"`
	Content   string `json:"content"`
	IsPreview bool   `json:"is_preview"`
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.Title = core.CleanString(nl.Title)
	return validate.Struct(nl)
}

// UpdateLesson defines what information may be provided to modify an existing Lesson.
type UpdateLesson struct {
	Title     string `json:"title"`
	Duration  *int   `json:"duration" validate:"omitempty,gte=0"`
	Content   string `json:"content"`
	IsPreview *bool  `json:"is_preview"`
}

func (ul *UpdateLesson) Validate(validate *validator.Validate) error {
	ul.Title = core.CleanString(ul.Title)
	return validate.Struct(ul)
}

// QueryFilter narrows down a course listing.
// Search does a case-insensitive match on one of Course.Title, Course.Category
// or Course.InstructorName.
type QueryFilter struct {
	Search       string `query:"search"`
	Category     string `query:"category"`
	Level        string `query:"level"`
	IsPublished  *bool  `query:"is_published"`
	InstructorID string `query:"instructor_id"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Category == "" && qf.Level == "" &&
		qf.IsPublished == nil && qf.InstructorID == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Category = core.CleanString(qf.Category, true /* lower */)
	qf.Level = core.CleanString(qf.Level, true /* lower */)
}

// Schema drives the in-memory derivation pipeline for course list views.
func Schema() listing.Schema[Course] {
	return listing.Schema[Course]{
		Searchable: func(c Course) []string { return []string{c.Title, c.Category, c.InstructorName} },
		Categories: func(c Course) map[string]string {
			return map[string]string{
				"status":   c.Status(),
				"category": c.Category,
				"level":    c.Level,
			}
		},
		Less: map[string]func(a, b Course) bool{
			"title":      func(a, b Course) bool { return a.Title < b.Title },
			"category":   func(a, b Course) bool { return a.Category < b.Category },
			"price":      func(a, b Course) bool { return a.Price < b.Price },
			"rating":     func(a, b Course) bool { return a.Rating < b.Rating },
			"created_at": func(a, b Course) bool { return a.CreatedAt.Before(b.CreatedAt) },
		},
	}
}

// Slugify builds the URL slug of a course title.
func Slugify(title string) string {
	var b strings.Builder
	for _, char := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case char >= 'a' && char <= 'z', char >= '0' && char <= '9':
			b.WriteRune(char)
		case char == ' ' || char == '-' || char == '_':
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

// CacheKeyByID forms a consistent cache key for a course ID.
func CacheKeyByID(id string) string {
	return fmt.Sprintf("course:id:%s", id)
}
