package mongodb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gopimeda/elearning/core/listing"
	"github.com/gopimeda/elearning/core/quiz"
)

type QuizRepository struct {
	quizzes  *mongo.Collection
	attempts *mongo.Collection
}

var _ quiz.Repository = (*QuizRepository)(nil)

func NewQuizRepository(db *mongo.Database) *QuizRepository {
	return &QuizRepository{
		quizzes:  db.Collection("quizzes"),
		attempts: db.Collection("quiz_attempts"),
	}
}

type mongoQuiz struct {
	ID           string          `bson:"_id"`
	CourseID     string          `bson:"courseId"`
	LessonID     *string         `bson:"lessonId"`
	Title        string          `bson:"title"`
	TimeLimit    int             `bson:"timeLimit"`
	PassingScore float64         `bson:"passingScore"`
	IsPublished  *bool           `bson:"isPublished"`
	Questions    []mongoQuestion `bson:"questions"`
	CreatedAt    time.Time       `bson:"createdAt"`
	UpdatedAt    time.Time       `bson:"updatedAt"`
}

type mongoQuestion struct {
	ID           string   `bson:"_id"`
	Prompt       string   `bson:"prompt"`
	Options      []string `bson:"options"`
	CorrectIndex int      `bson:"correctIndex"`
	Points       int      `bson:"points"`
}

type mongoAttempt struct {
	ID          string    `bson:"_id"`
	QuizID      string    `bson:"quizId"`
	UserID      string    `bson:"userId"`
	Answers     []int     `bson:"answers"`
	Score       int       `bson:"score"`
	TotalPoints int       `bson:"totalPoints"`
	Percent     float64   `bson:"percent"`
	Passed      bool      `bson:"passed"`
	StartedAt   time.Time `bson:"startedAt"`
	SubmittedAt time.Time `bson:"submittedAt"`
}

func toMongoQuiz(qz quiz.Quiz) mongoQuiz {
	mq := mongoQuiz{
		ID:           qz.ID,
		CourseID:     qz.CourseID,
		Title:        qz.Title,
		TimeLimit:    qz.TimeLimit,
		PassingScore: qz.PassingScore,
		CreatedAt:    qz.CreatedAt,
		UpdatedAt:    qz.UpdatedAt,
	}
	if qz.LessonID.Valid {
		mq.LessonID = &qz.LessonID.String
	}
	if qz.IsPublished.Valid {
		mq.IsPublished = &qz.IsPublished.Bool
	}
	for _, qst := range qz.Questions {
		mq.Questions = append(mq.Questions, mongoQuestion(qst))
	}
	return mq
}

func fromMongoQuiz(mq mongoQuiz) quiz.Quiz {
	qz := quiz.Quiz{
		ID:           mq.ID,
		CourseID:     mq.CourseID,
		Title:        mq.Title,
		TimeLimit:    mq.TimeLimit,
		PassingScore: mq.PassingScore,
		CreatedAt:    mq.CreatedAt,
		UpdatedAt:    mq.UpdatedAt,
	}
	if mq.LessonID != nil {
		qz.LessonID = null.StringFrom(*mq.LessonID)
	}
	if mq.IsPublished != nil {
		qz.IsPublished = null.BoolFrom(*mq.IsPublished)
	}
	for _, qst := range mq.Questions {
		qz.Questions = append(qz.Questions, quiz.Question(qst))
	}
	return qz
}

func fromMongoAttempt(ma mongoAttempt) quiz.Attempt {
	return quiz.Attempt(ma)
}

var quizSortFields = map[string]string{
	"title":      "title",
	"created_at": "createdAt",
}

var attemptSortFields = map[string]string{
	"percent":      "percent",
	"submitted_at": "submittedAt",
}

func (r *QuizRepository) CreateQuiz(ctx context.Context, qz quiz.Quiz) (quiz.Quiz, error) {
	if qz.ID == "" {
		qz.ID = uuid.New().String()
	}
	if _, err := r.quizzes.InsertOne(ctx, toMongoQuiz(qz)); err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "inserting quiz")
	}
	return qz, nil
}

func (r *QuizRepository) GetQuizByID(ctx context.Context, id string) (quiz.Quiz, error) {
	var mq mongoQuiz
	if err := r.quizzes.FindOne(ctx, bson.M{"_id": id}).Decode(&mq); err != nil {
		if errors.Cause(err) == mongo.ErrNoDocuments {
			return quiz.Quiz{}, quiz.ErrNotFound
		}
		return quiz.Quiz{}, errors.Wrap(err, "finding quiz")
	}
	return fromMongoQuiz(mq), nil
}

func quizFilter(qf *quiz.QueryFilter) bson.M {
	filter := bson.M{}
	if qf == nil || qf.IsEmpty() {
		return filter
	}
	if qf.Search != "" {
		filter["title"] = searchRegex(qf.Search)
	}
	if qf.CourseID != "" {
		filter["courseId"] = qf.CourseID
	}
	if qf.IsPublished != nil {
		filter["isPublished"] = *qf.IsPublished
	}
	return filter
}

func (r *QuizRepository) QueryQuizzes(ctx context.Context, qf *quiz.QueryFilter, params listing.Params) (listing.Page[quiz.Quiz], error) {
	return queryPage(ctx, r.quizzes, quizFilter(qf), params, quizSortFields, fromMongoQuiz)
}

func (r *QuizRepository) UpdateQuiz(ctx context.Context, qz quiz.Quiz) error {
	res, err := r.quizzes.ReplaceOne(ctx, bson.M{"_id": qz.ID}, toMongoQuiz(qz))
	if err != nil {
		return errors.Wrap(err, "updating quiz")
	}
	if res.MatchedCount == 0 {
		return quiz.ErrNotFound
	}
	return nil
}

func (r *QuizRepository) DeleteQuizzesByID(ctx context.Context, ids ...string) error {
	if _, err := r.attempts.DeleteMany(ctx, bson.M{"quizId": bson.M{"$in": ids}}); err != nil {
		return errors.Wrap(err, "deleting quiz attempts")
	}
	_, err := r.quizzes.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	return errors.Wrap(err, "deleting quizzes")
}

func (r *QuizRepository) CreateAttempt(ctx context.Context, att quiz.Attempt) (quiz.Attempt, error) {
	if att.ID == "" {
		att.ID = uuid.New().String()
	}
	if _, err := r.attempts.InsertOne(ctx, mongoAttempt(att)); err != nil {
		return quiz.Attempt{}, errors.Wrap(err, "inserting attempt")
	}
	return att, nil
}

func (r *QuizRepository) GetAttemptByID(ctx context.Context, id string) (quiz.Attempt, error) {
	var ma mongoAttempt
	if err := r.attempts.FindOne(ctx, bson.M{"_id": id}).Decode(&ma); err != nil {
		if errors.Cause(err) == mongo.ErrNoDocuments {
			return quiz.Attempt{}, quiz.ErrAttemptNotFound
		}
		return quiz.Attempt{}, errors.Wrap(err, "finding attempt")
	}
	return fromMongoAttempt(ma), nil
}

func (r *QuizRepository) QueryAttempts(ctx context.Context, quizID, userID string, params listing.Params) (listing.Page[quiz.Attempt], error) {
	filter := bson.M{}
	if quizID != "" {
		filter["quizId"] = quizID
	}
	if userID != "" {
		filter["userId"] = userID
	}
	return queryPage(ctx, r.attempts, filter, params, attemptSortFields, fromMongoAttempt)
}
