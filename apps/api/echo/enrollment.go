package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gopimeda/elearning/core"
	"github.com/gopimeda/elearning/core/course"
	"github.com/gopimeda/elearning/core/enrollment"
	"github.com/gopimeda/elearning/core/listing"
	"github.com/gopimeda/elearning/core/user"
)

var errEnrNotFoundInCtx = errors.New("enrollment object not found in echo.Context")

// Bulk actions on the enrollments collection.
const (
	enrollmentActionCancel = "cancel"
	enrollmentActionDelete = "delete"
)

type enrollmentApi struct {
	svc     enrollment.ServiceInterface
	userSvc user.ServiceInterface
}

func registerEnrollmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc enrollment.ServiceInterface, userSvc user.ServiceInterface) {
	api := enrollmentApi{svc: svc, userSvc: userSvc}

	eg := g.Group("/enrollments", jwt)
	eg.POST("", api.enroll)
	eg.GET("", api.query)
	eg.GET("/export", api.export, staffMiddleware())
	eg.POST("/bulk", api.bulk, adminMiddleware())

	dg := eg.Group("/:id", api.ownEnrollmentMiddleware())
	dg.GET("", api.retrieve)
	dg.PUT("/lessons/:lessonID/complete", api.completeLesson)
	dg.PUT("/cancel", api.cancel)
	dg.DELETE("", api.destroy, adminMiddleware())
}

// Handlers

type enrollRequest struct {
	CourseID string `json:"course_id"`
	// UserID lets admins enroll another user; learners enroll themselves.
	UserID string `json:"user_id"`
}

func (api *enrollmentApi) enroll(ctx echo.Context) error {
	var req enrollRequest
	if err := ctx.Bind(&req); err != nil {
		return errors.Wrap(err, "binding enroll request")
	}
	if req.CourseID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "course_id", Error: "this field is required"})
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	userID := ctxUsr.ID
	if req.UserID != "" && req.UserID != ctxUsr.ID {
		if !ctxUsr.IsAdmin() {
			return errHttpForbidden
		}
		userID = req.UserID
	}

	enr, err := api.svc.Enroll(ctx.Request().Context(), userID, req.CourseID)
	if err != nil {
		switch errors.Cause(err) {
		case enrollment.ErrAlreadyEnrolled:
			return core.NewValidationError(enrollment.ErrAlreadyEnrolled)
		case user.ErrNotFound:
			return core.NewValidationError(nil, core.FieldError{Field: "user_id", Error: "user not found"})
		case course.ErrNotFound:
			return core.NewValidationError(nil, core.FieldError{Field: "course_id", Error: "course not found"})
		}
		return errors.Wrap(err, "enrolling")
	}
	return respondObj(ctx, http.StatusCreated, "enrollment", enr)
}

func (api *enrollmentApi) query(ctx echo.Context) error {
	filter := new(enrollment.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return core.NewValidationError(errors.New("invalid query parameters"))
	}
	filter.Clean()

	// learners only see their own enrollments
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !(ctxUsr.IsAdmin() || ctxUsr.IsInstructor()) {
		filter.UserID = ctxUsr.ID
	}

	page, err := api.svc.Query(ctx.Request().Context(), filter, bindParams(ctx))
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	return respondPage(ctx, "enrollments", page)
}

func (api *enrollmentApi) export(ctx echo.Context) error {
	filter := new(enrollment.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return core.NewValidationError(errors.New("invalid query parameters"))
	}
	filter.Clean()

	rows, err := collectPages(ctx, func(params listing.Params) (listing.Page[enrollment.Enrollment], error) {
		return api.svc.Query(ctx.Request().Context(), filter, params)
	}, func(enr enrollment.Enrollment) []string {
		return []string{
			enr.ID, enr.UserName, enr.CourseTitle, enr.Status,
			strconv.FormatFloat(enr.Progress, 'f', 1, 64),
			strconv.Itoa(len(enr.CompletedLessons)),
			enr.EnrolledAt.Format(time.RFC3339),
		}
	})
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	header := []string{"id", "user", "course", "status", "progress", "completed_lessons", "enrolled_at"}
	return writeCSV(ctx, "enrollments", header, rows)
}

func (api *enrollmentApi) bulk(ctx echo.Context) error {
	var req BulkRequest
	if err := ctx.Bind(&req); err != nil {
		return errors.Wrap(err, "binding to BulkRequest")
	}
	req.Action = core.CleanString(req.Action, true)
	if req.Action == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "action", Error: "this field is required"})
	}
	if len(req.IDs) == 0 {
		return core.NewValidationError(enrollment.ErrNoSelection)
	}

	var err error
	rctx := ctx.Request().Context()
	switch req.Action {
	case enrollmentActionCancel:
		err = api.svc.CancelBulk(rctx, req.IDs...)
	case enrollmentActionDelete:
		err = api.svc.Delete(rctx, req.IDs...)
	default:
		return core.NewValidationError(errors.Errorf("unknown action %q", req.Action))
	}
	if err != nil {
		return errors.Wrapf(err, "applying %s", req.Action)
	}
	return respondMessage(ctx, "ok")
}

func (api *enrollmentApi) retrieve(ctx echo.Context) error {
	enr, ok := ctx.Get("object").(enrollment.Enrollment)
	if !ok {
		return errors.Wrap(errEnrNotFoundInCtx, "retrieving object from context")
	}
	return respondObj(ctx, http.StatusOK, "enrollment", enr)
}

func (api *enrollmentApi) completeLesson(ctx echo.Context) error {
	enr, ok := ctx.Get("object").(enrollment.Enrollment)
	if !ok {
		return errors.Wrap(errEnrNotFoundInCtx, "retrieving object from context")
	}

	enr, err := api.svc.CompleteLesson(ctx.Request().Context(), enr.ID, ctx.Param("lessonID"))
	if err != nil {
		switch errors.Cause(err) {
		case enrollment.ErrNotActive, enrollment.ErrUnknownLesson:
			return core.NewValidationError(errors.Cause(err))
		}
		return errors.Wrap(err, "completing lesson")
	}
	return respondObj(ctx, http.StatusOK, "enrollment", enr)
}

func (api *enrollmentApi) cancel(ctx echo.Context) error {
	enr, ok := ctx.Get("object").(enrollment.Enrollment)
	if !ok {
		return errors.Wrap(errEnrNotFoundInCtx, "retrieving object from context")
	}

	enr, err := api.svc.Cancel(ctx.Request().Context(), enr.ID)
	if err != nil {
		if errors.Cause(err) == enrollment.ErrNotActive {
			return core.NewValidationError(enrollment.ErrNotActive)
		}
		return errors.Wrap(err, "cancelling enrollment")
	}
	return respondObj(ctx, http.StatusOK, "enrollment", enr)
}

func (api *enrollmentApi) destroy(ctx echo.Context) error {
	enr, ok := ctx.Get("object").(enrollment.Enrollment)
	if !ok {
		return errors.Wrap(errEnrNotFoundInCtx, "retrieving object from context")
	}

	if err := api.svc.Delete(ctx.Request().Context(), enr.ID); err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ownEnrollmentMiddleware loads :id into the context; learners only reach
// their own enrollments, staff reach all.
func (api *enrollmentApi) ownEnrollmentMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctxUsr, err := getContextUser(ctx, api.userSvc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}

			enr, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == enrollment.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding enrollment by ID")
			}
			if enr.UserID != ctxUsr.ID && !(ctxUsr.IsAdmin() || ctxUsr.IsInstructor()) {
				return errHttpNotFound
			}
			ctx.Set("object", enr)
			return next(ctx)
		}
	}
}
