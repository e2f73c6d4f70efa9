package inmem

import (
	"context"

	"github.com/google/uuid"

	"github.com/gopimeda/elearning/core/listing"
	"github.com/gopimeda/elearning/core/quiz"
)

type QuizRepository struct {
	quizzes  *table[quiz.Quiz]
	attempts *table[quiz.Attempt]
}

var _ quiz.Repository = (*QuizRepository)(nil)

func NewQuizRepository() *QuizRepository {
	return &QuizRepository{
		quizzes:  newTable[quiz.Quiz](),
		attempts: newTable[quiz.Attempt](),
	}
}

func (r *QuizRepository) CreateQuiz(_ context.Context, qz quiz.Quiz) (quiz.Quiz, error) {
	if qz.ID == "" {
		qz.ID = uuid.New().String()
	}
	r.quizzes.insert(qz.ID, qz)
	return qz, nil
}

func (r *QuizRepository) GetQuizByID(_ context.Context, id string) (quiz.Quiz, error) {
	qz, ok := r.quizzes.get(id)
	if !ok {
		return quiz.Quiz{}, quiz.ErrNotFound
	}
	return qz, nil
}

func (r *QuizRepository) QueryQuizzes(_ context.Context, qf *quiz.QueryFilter, params listing.Params) (listing.Page[quiz.Quiz], error) {
	matched := make([]quiz.Quiz, 0)
	for _, qz := range r.quizzes.all() {
		if matchQuiz(qz, qf) {
			matched = append(matched, qz)
		}
	}
	if qf != nil {
		params.Search = qf.Search
	}
	return quiz.Schema().ApplyPage(matched, params), nil
}

func matchQuiz(qz quiz.Quiz, qf *quiz.QueryFilter) bool {
	if qf == nil || qf.IsEmpty() {
		return true
	}
	if qf.CourseID != "" && qz.CourseID != qf.CourseID {
		return false
	}
	if qf.IsPublished != nil && qz.Published() != *qf.IsPublished {
		return false
	}
	return true
}

func (r *QuizRepository) UpdateQuiz(_ context.Context, qz quiz.Quiz) error {
	if !r.quizzes.update(qz.ID, qz) {
		return quiz.ErrNotFound
	}
	return nil
}

func (r *QuizRepository) DeleteQuizzesByID(_ context.Context, ids ...string) error {
	for _, quizID := range ids {
		var attemptIDs []string
		for _, att := range r.attempts.all() {
			if att.QuizID == quizID {
				attemptIDs = append(attemptIDs, att.ID)
			}
		}
		r.attempts.delete(attemptIDs...)
	}
	r.quizzes.delete(ids...)
	return nil
}

func (r *QuizRepository) CreateAttempt(_ context.Context, att quiz.Attempt) (quiz.Attempt, error) {
	if att.ID == "" {
		att.ID = uuid.New().String()
	}
	r.attempts.insert(att.ID, att)
	return att, nil
}

func (r *QuizRepository) GetAttemptByID(_ context.Context, id string) (quiz.Attempt, error) {
	att, ok := r.attempts.get(id)
	if !ok {
		return quiz.Attempt{}, quiz.ErrAttemptNotFound
	}
	return att, nil
}

func (r *QuizRepository) QueryAttempts(_ context.Context, quizID, userID string, params listing.Params) (listing.Page[quiz.Attempt], error) {
	matched := make([]quiz.Attempt, 0)
	for _, att := range r.attempts.all() {
		if quizID != "" && att.QuizID != quizID {
			continue
		}
		if userID != "" && att.UserID != userID {
			continue
		}
		matched = append(matched, att)
	}
	return listing.PageOf(matched, params), nil
}
