package quiz

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/gopimeda/elearning/core"
	"github.com/gopimeda/elearning/core/listing"
)

var (
	ErrNotFound        = errors.New("quiz not found")
	ErrAttemptNotFound = errors.New("attempt not found")
	ErrNoSelection     = errors.New("no quizzes selected")
	ErrAnswerCount     = errors.New("answer count does not match question count")
	ErrNotPublished    = errors.New("quiz is not published")
)

type Repository interface {
	CreateQuiz(ctx context.Context, qz Quiz) (Quiz, error)
	GetQuizByID(ctx context.Context, id string) (Quiz, error)
	QueryQuizzes(ctx context.Context, qf *QueryFilter, params listing.Params) (listing.Page[Quiz], error)
	UpdateQuiz(ctx context.Context, qz Quiz) error
	DeleteQuizzesByID(ctx context.Context, ids ...string) error

	CreateAttempt(ctx context.Context, att Attempt) (Attempt, error)
	GetAttemptByID(ctx context.Context, id string) (Attempt, error)
	QueryAttempts(ctx context.Context, quizID, userID string, params listing.Params) (listing.Page[Attempt], error)
}

type ServiceInterface interface {
	Create(ctx context.Context, nq NewQuiz) (Quiz, error)
	GetByID(ctx context.Context, id string) (Quiz, error)
	Query(ctx context.Context, qf *QueryFilter, params listing.Params) (listing.Page[Quiz], error)
	SetPublished(ctx context.Context, id string, published bool) (Quiz, error)
	SetPublishedBulk(ctx context.Context, published bool, ids ...string) error
	Delete(ctx context.Context, ids ...string) error
	SubmitAttempt(ctx context.Context, userID, quizID string, answers []int, startedAt time.Time) (Attempt, error)
	GetAttempt(ctx context.Context, id string) (Attempt, error)
	QueryAttempts(ctx context.Context, quizID, userID string, params listing.Params) (listing.Page[Attempt], error)
}

type Service struct {
	repo Repository
	log  core.Logger
}

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, log core.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
	}
}

// Create stores a new quiz as a draft.
func (svc *Service) Create(ctx context.Context, nq NewQuiz) (Quiz, error) {
	now := time.Now().UTC()
	qz := Quiz{
		CourseID:     nq.CourseID,
		Title:        nq.Title,
		TimeLimit:    nq.TimeLimit,
		PassingScore: nq.PassingScore,
		IsPublished:  null.BoolFrom(false),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if nq.LessonID != "" {
		qz.LessonID = null.StringFrom(nq.LessonID)
	}
	for _, qst := range nq.Questions {
		qz.Questions = append(qz.Questions, Question{
			ID:           uuid.New().String(),
			Prompt:       qst.Prompt,
			Options:      qst.Options,
			CorrectIndex: qst.CorrectIndex,
			Points:       qst.Points,
		})
	}
	return svc.repo.CreateQuiz(ctx, qz)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Quiz, error) {
	return svc.repo.GetQuizByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, qf *QueryFilter, params listing.Params) (listing.Page[Quiz], error) {
	if qf != nil {
		qf.Clean()
	}
	return svc.repo.QueryQuizzes(ctx, qf, params)
}

func (svc *Service) SetPublished(ctx context.Context, id string, published bool) (Quiz, error) {
	qz, err := svc.repo.GetQuizByID(ctx, id)
	if err != nil {
		return Quiz{}, err
	}
	qz.IsPublished = null.BoolFrom(published)
	qz.UpdatedAt = time.Now().UTC()
	if err = svc.repo.UpdateQuiz(ctx, qz); err != nil {
		return Quiz{}, err
	}
	return qz, nil
}

func (svc *Service) SetPublishedBulk(ctx context.Context, published bool, ids ...string) error {
	if len(ids) == 0 {
		return core.NewValidationError(ErrNoSelection)
	}
	for _, id := range ids {
		if _, err := svc.SetPublished(ctx, id, published); err != nil {
			return errors.Wrapf(err, "publishing quiz %s", id)
		}
	}
	return nil
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return core.NewValidationError(ErrNoSelection)
	}
	return svc.repo.DeleteQuizzesByID(ctx, ids...)
}

// SubmitAttempt grades the answers and stores the attempt.
// The quiz must be published and the answer slice must cover every question.
func (svc *Service) SubmitAttempt(ctx context.Context, userID, quizID string, answers []int, startedAt time.Time) (Attempt, error) {
	qz, err := svc.repo.GetQuizByID(ctx, quizID)
	if err != nil {
		return Attempt{}, err
	}
	if !qz.Published() {
		return Attempt{}, core.NewValidationError(ErrNotPublished)
	}
	if len(answers) != len(qz.Questions) {
		return Attempt{}, core.NewValidationError(ErrAnswerCount)
	}

	score, total, percent, passed := Grade(&qz, answers)
	att := Attempt{
		QuizID:      quizID,
		UserID:      userID,
		Answers:     answers,
		Score:       score,
		TotalPoints: total,
		Percent:     percent,
		Passed:      passed,
		StartedAt:   startedAt,
		SubmittedAt: time.Now().UTC(),
	}
	return svc.repo.CreateAttempt(ctx, att)
}

func (svc *Service) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	return svc.repo.GetAttemptByID(ctx, id)
}

func (svc *Service) QueryAttempts(ctx context.Context, quizID, userID string, params listing.Params) (listing.Page[Attempt], error) {
	return svc.repo.QueryAttempts(ctx, quizID, userID, params)
}
