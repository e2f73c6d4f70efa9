package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gopimeda/elearning/core"
	"github.com/gopimeda/elearning/core/course"
	"github.com/gopimeda/elearning/core/listing"
	"github.com/gopimeda/elearning/core/quiz"
	"github.com/gopimeda/elearning/core/user"
)

// Bulk actions on the quizzes collection.
const (
	quizActionDelete    = "delete"
	quizActionPublish   = "publish"
	quizActionUnpublish = "unpublish"
)

type quizApi struct {
	svc       quiz.ServiceInterface
	courseSvc course.ServiceInterface
	userSvc   user.ServiceInterface
	validate  *validator.Validate
}

func registerQuizAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc quiz.ServiceInterface,
	courseSvc course.ServiceInterface,
	userSvc user.ServiceInterface,
	validate *validator.Validate,
) {
	api := quizApi{svc: svc, courseSvc: courseSvc, userSvc: userSvc, validate: validate}

	qg := g.Group("/quizzes", jwt)

	// staff endpoints
	qg.GET("", api.query, staffMiddleware())
	qg.POST("", api.create, staffMiddleware())
	qg.GET("/export", api.export, staffMiddleware())
	qg.POST("/bulk", api.bulk, staffMiddleware())
	qg.PUT("/:id/publish", api.setPublished(true), staffMiddleware())
	qg.PUT("/:id/unpublish", api.setPublished(false), staffMiddleware())
	qg.DELETE("/:id", api.destroy, staffMiddleware())

	// learner endpoints
	qg.GET("/:id", api.retrieve)
	qg.POST("/:id/attempts", api.submitAttempt)
	qg.GET("/:id/attempts", api.queryAttempts)
	qg.GET("/:id/attempts/:attemptID", api.retrieveAttempt)
}

// Handlers

func (api *quizApi) query(ctx echo.Context) error {
	filter := new(quiz.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return core.NewValidationError(errors.New("invalid query parameters"))
	}
	filter.Clean()

	page, err := api.svc.Query(ctx.Request().Context(), filter, bindParams(ctx))
	if err != nil {
		return errors.Wrap(err, "querying quizzes")
	}
	return respondPage(ctx, "quizzes", page)
}

func (api *quizApi) create(ctx echo.Context) error {
	var data quiz.NewQuiz
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuiz")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	// the quiz's course must exist and belong to the instructor
	if _, err := api.ownCourse(ctx, data.CourseID); err != nil {
		return err
	}

	qz, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating quiz")
	}
	return respondObj(ctx, http.StatusCreated, "quiz", qz)
}

func (api *quizApi) export(ctx echo.Context) error {
	filter := new(quiz.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return core.NewValidationError(errors.New("invalid query parameters"))
	}
	filter.Clean()

	rows, err := collectPages(ctx, func(params listing.Params) (listing.Page[quiz.Quiz], error) {
		return api.svc.Query(ctx.Request().Context(), filter, params)
	}, func(qz quiz.Quiz) []string {
		return []string{
			qz.ID, qz.Title, qz.CourseID, qz.Status(),
			strconv.Itoa(len(qz.Questions)),
			strconv.Itoa(qz.TotalPoints()),
			strconv.FormatFloat(qz.PassingScore, 'f', 1, 64),
			qz.CreatedAt.Format(time.RFC3339),
		}
	})
	if err != nil {
		return errors.Wrap(err, "querying quizzes")
	}
	header := []string{"id", "title", "course_id", "status", "questions", "total_points", "passing_score", "created_at"}
	return writeCSV(ctx, "quizzes", header, rows)
}

func (api *quizApi) bulk(ctx echo.Context) error {
	var req BulkRequest
	if err := ctx.Bind(&req); err != nil {
		return errors.Wrap(err, "binding to BulkRequest")
	}
	if err := req.Validate(api.validate); err != nil {
		return err
	}
	if len(req.IDs) == 0 {
		return core.NewValidationError(quiz.ErrNoSelection)
	}

	rctx := ctx.Request().Context()
	for _, id := range req.IDs {
		if _, err := api.ownQuiz(ctx, id); err != nil {
			return err
		}
	}

	var err error
	switch req.Action {
	case quizActionDelete:
		err = api.svc.Delete(rctx, req.IDs...)
	case quizActionPublish, quizActionUnpublish:
		err = api.svc.SetPublishedBulk(rctx, req.Action == quizActionPublish, req.IDs...)
	default:
		return core.NewValidationError(errors.Errorf("unknown action %q", req.Action))
	}
	if err != nil {
		return errors.Wrapf(err, "applying %s", req.Action)
	}
	return respondMessage(ctx, "ok")
}

func (api *quizApi) retrieve(ctx echo.Context) error {
	qz, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == quiz.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding quiz by ID")
	}

	// drafts are staff-only
	if !qz.Published() {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		if !(claims.IsAdmin || claims.IsInstructor) {
			return errHttpNotFound
		}
	}
	return respondObj(ctx, http.StatusOK, "quiz", qz)
}

func (api *quizApi) setPublished(published bool) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		qz, err := api.ownQuiz(ctx, ctx.Param("id"))
		if err != nil {
			return err
		}

		qz, err = api.svc.SetPublished(ctx.Request().Context(), qz.ID, published)
		if err != nil {
			return errors.Wrap(err, "setting published")
		}
		return respondObj(ctx, http.StatusOK, "quiz", qz)
	}
}

func (api *quizApi) destroy(ctx echo.Context) error {
	qz, err := api.ownQuiz(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}

	if err := api.svc.Delete(ctx.Request().Context(), qz.ID); err != nil {
		return errors.Wrap(err, "deleting quiz")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type submitAttemptRequest struct {
	Answers   []int     `json:"answers" validate:"required"`
	StartedAt time.Time `json:"started_at"`
}

func (api *quizApi) submitAttempt(ctx echo.Context) error {
	var req submitAttemptRequest
	if err := ctx.Bind(&req); err != nil {
		return errors.Wrap(err, "binding attempt request")
	}
	if err := api.validate.Struct(&req); err != nil {
		return err
	}
	if req.StartedAt.IsZero() {
		req.StartedAt = time.Now().UTC()
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	att, err := api.svc.SubmitAttempt(ctx.Request().Context(), claims.Subject, ctx.Param("id"), req.Answers, req.StartedAt)
	if err != nil {
		switch errors.Cause(err) {
		case quiz.ErrNotFound:
			return errHttpNotFound
		case quiz.ErrNotPublished, quiz.ErrAnswerCount:
			return core.NewValidationError(errors.Cause(err))
		}
		return errors.Wrap(err, "submitting attempt")
	}
	return respondObj(ctx, http.StatusCreated, "attempt", att)
}

func (api *quizApi) queryAttempts(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	// learners only see their own attempts
	userID := ctx.QueryParam("user_id")
	if !(claims.IsAdmin || claims.IsInstructor) {
		userID = claims.Subject
	}

	page, err := api.svc.QueryAttempts(ctx.Request().Context(), ctx.Param("id"), userID, bindParams(ctx))
	if err != nil {
		return errors.Wrap(err, "querying attempts")
	}
	return respondPage(ctx, "attempts", page)
}

func (api *quizApi) retrieveAttempt(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	att, err := api.svc.GetAttempt(ctx.Request().Context(), ctx.Param("attemptID"))
	if err != nil {
		if errors.Cause(err) == quiz.ErrAttemptNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding attempt by ID")
	}
	// hide attempts of other quizzes and, for learners, of other users
	if att.QuizID != ctx.Param("id") {
		return errHttpNotFound
	}
	if !(claims.IsAdmin || claims.IsInstructor || att.UserID == claims.Subject) {
		return errHttpNotFound
	}
	return respondObj(ctx, http.StatusOK, "attempt", att)
}

// ownQuiz resolves a quiz and checks its course belongs to the instructor.
func (api *quizApi) ownQuiz(ctx echo.Context, id string) (quiz.Quiz, error) {
	qz, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		if errors.Cause(err) == quiz.ErrNotFound {
			return quiz.Quiz{}, errHttpNotFound
		}
		return quiz.Quiz{}, errors.Wrap(err, "finding quiz by ID")
	}
	if _, err := api.ownCourse(ctx, qz.CourseID); err != nil {
		return quiz.Quiz{}, err
	}
	return qz, nil
}

// ownCourse resolves a course and checks ownership; admins own everything.
func (api *quizApi) ownCourse(ctx echo.Context, courseID string) (course.Course, error) {
	crs, err := api.courseSvc.GetByID(ctx.Request().Context(), courseID)
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return course.Course{}, core.NewValidationError(course.ErrNotFound)
		}
		return course.Course{}, errors.Wrap(err, "finding course by ID")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "getting context user")
	}
	if !ctxUsr.IsAdmin() && crs.InstructorID != ctxUsr.ID {
		return course.Course{}, errHttpForbidden
	}
	return crs, nil
}
