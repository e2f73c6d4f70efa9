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
	"github.com/gopimeda/elearning/core/user"
)

var errCrsNotFoundInCtx = errors.New("course object not found in echo.Context")

// Bulk actions on the courses collection.
const (
	courseActionDelete    = "delete"
	courseActionPublish   = "publish"
	courseActionUnpublish = "unpublish"
)

type courseApi struct {
	svc      course.ServiceInterface
	userSvc  user.ServiceInterface
	validate *validator.Validate
}

func registerCourseAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc course.ServiceInterface,
	userSvc user.ServiceInterface,
	validate *validator.Validate,
) {
	api := courseApi{svc: svc, userSvc: userSvc, validate: validate}

	cg := g.Group("/courses")

	// public catalog, published courses only
	cg.GET("/catalog", api.catalog)
	cg.GET("/catalog/:slug", api.catalogDetail)

	// staff endpoints
	sg := cg.Group("", jwt, staffMiddleware())
	sg.GET("", api.query)
	sg.POST("", api.create)
	sg.GET("/export", api.export)
	sg.POST("/bulk", api.bulk)

	dg := sg.Group("/:id", api.ownCourseMiddleware())
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.PUT("/publish", api.setPublished(true))
	dg.PUT("/unpublish", api.setPublished(false))

	// lesson endpoints
	dg.GET("/lessons", api.queryLessons)
	dg.POST("/lessons", api.addLesson)
	dg.PUT("/lessons/reorder", api.reorderLessons)
	dg.PUT("/lessons/:lessonID", api.updateLesson)
	dg.DELETE("/lessons/:lessonID", api.destroyLesson)
}

// Handlers

func (api *courseApi) catalog(ctx echo.Context) error {
	filter := new(course.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return core.NewValidationError(errors.New("invalid query parameters"))
	}
	filter.Clean()
	published := true
	filter.IsPublished = &published

	page, err := api.svc.Query(ctx.Request().Context(), filter, bindParams(ctx))
	if err != nil {
		return errors.Wrap(err, "querying catalog")
	}
	return respondPage(ctx, "courses", page)
}

func (api *courseApi) catalogDetail(ctx echo.Context) error {
	crs, err := api.svc.GetBySlug(ctx.Request().Context(), ctx.Param("slug"))
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding course by slug")
	}
	if !crs.Published() {
		return errHttpNotFound
	}
	return respondObj(ctx, http.StatusOK, "course", crs)
}

func (api *courseApi) query(ctx echo.Context) error {
	filter := new(course.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return core.NewValidationError(errors.New("invalid query parameters"))
	}
	filter.Clean()

	// instructors only see their own courses
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !ctxUsr.IsAdmin() {
		filter.InstructorID = ctxUsr.ID
	}

	page, err := api.svc.Query(ctx.Request().Context(), filter, bindParams(ctx))
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return respondPage(ctx, "courses", page)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	crs, err := api.svc.Create(ctx.Request().Context(), ctxUsr.ID, ctxUsr.Name, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return respondObj(ctx, http.StatusCreated, "course", crs)
}

func (api *courseApi) export(ctx echo.Context) error {
	filter := new(course.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return core.NewValidationError(errors.New("invalid query parameters"))
	}
	filter.Clean()

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !ctxUsr.IsAdmin() {
		filter.InstructorID = ctxUsr.ID
	}

	rows, err := collectPages(ctx, func(params listing.Params) (listing.Page[course.Course], error) {
		return api.svc.Query(ctx.Request().Context(), filter, params)
	}, func(crs course.Course) []string {
		return []string{
			crs.ID, crs.Title, crs.Category, crs.Level,
			strconv.FormatFloat(crs.Price, 'f', 2, 64),
			crs.Status(), crs.InstructorName,
			strconv.Itoa(crs.LessonCount),
			strconv.FormatFloat(crs.Rating, 'f', 1, 64),
			crs.CreatedAt.Format(time.RFC3339),
		}
	})
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	header := []string{"id", "title", "category", "level", "price", "status", "instructor", "lessons", "rating", "created_at"}
	return writeCSV(ctx, "courses", header, rows)
}

func (api *courseApi) bulk(ctx echo.Context) error {
	var req BulkRequest
	if err := ctx.Bind(&req); err != nil {
		return errors.Wrap(err, "binding to BulkRequest")
	}
	if err := req.Validate(api.validate); err != nil {
		return err
	}
	if len(req.IDs) == 0 {
		return core.NewValidationError(course.ErrNoSelection)
	}

	// instructors may only target their own courses
	rctx := ctx.Request().Context()
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !ctxUsr.IsAdmin() {
		for _, id := range req.IDs {
			crs, err := api.svc.GetByID(rctx, id)
			if err != nil {
				if errors.Cause(err) == course.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding course by ID")
			}
			if crs.InstructorID != ctxUsr.ID {
				return errHttpForbidden
			}
		}
	}

	switch req.Action {
	case courseActionDelete:
		err = api.svc.Delete(rctx, req.IDs...)
	case courseActionPublish, courseActionUnpublish:
		err = api.svc.SetPublishedBulk(rctx, req.Action == courseActionPublish, req.IDs...)
	default:
		return core.NewValidationError(errors.Errorf("unknown action %q", req.Action))
	}
	if err != nil {
		return errors.Wrapf(err, "applying %s", req.Action)
	}
	return respondMessage(ctx, "ok")
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, ok := ctx.Get("object").(course.Course)
	if !ok {
		return errors.Wrap(errCrsNotFoundInCtx, "retrieving object from context")
	}
	return respondObj(ctx, http.StatusOK, "course", crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	crs, ok := ctx.Get("object").(course.Course)
	if !ok {
		return errors.Wrap(errCrsNotFoundInCtx, "retrieving object from context")
	}

	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.Update(ctx.Request().Context(), crs.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return respondObj(ctx, http.StatusOK, "course", crs)
}

func (api *courseApi) setPublished(published bool) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		crs, ok := ctx.Get("object").(course.Course)
		if !ok {
			return errors.Wrap(errCrsNotFoundInCtx, "retrieving object from context")
		}

		crs, err := api.svc.SetPublished(ctx.Request().Context(), crs.ID, published)
		if err != nil {
			return errors.Wrap(err, "setting published")
		}
		return respondObj(ctx, http.StatusOK, "course", crs)
	}
}

func (api *courseApi) destroy(ctx echo.Context) error {
	crs, ok := ctx.Get("object").(course.Course)
	if !ok {
		return errors.Wrap(errCrsNotFoundInCtx, "retrieving object from context")
	}

	if err := api.svc.Delete(ctx.Request().Context(), crs.ID); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Lesson handlers

func (api *courseApi) queryLessons(ctx echo.Context) error {
	crs, ok := ctx.Get("object").(course.Course)
	if !ok {
		return errors.Wrap(errCrsNotFoundInCtx, "retrieving object from context")
	}

	lessons, err := api.svc.Lessons(ctx.Request().Context(), crs.ID)
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	return respondObj(ctx, http.StatusOK, "lessons", lessons)
}

func (api *courseApi) addLesson(ctx echo.Context) error {
	crs, ok := ctx.Get("object").(course.Course)
	if !ok {
		return errors.Wrap(errCrsNotFoundInCtx, "retrieving object from context")
	}

	var data course.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	lsn, err := api.svc.AddLesson(ctx.Request().Context(), crs.ID, data)
	if err != nil {
		return errors.Wrap(err, "adding lesson")
	}
	return respondObj(ctx, http.StatusCreated, "lesson", lsn)
}

func (api *courseApi) reorderLessons(ctx echo.Context) error {
	crs, ok := ctx.Get("object").(course.Course)
	if !ok {
		return errors.Wrap(errCrsNotFoundInCtx, "retrieving object from context")
	}

	var req struct {
		IDs []string `json:"ids" validate:"required,min=1"`
	}
	if err := ctx.Bind(&req); err != nil {
		return errors.Wrap(err, "binding reorder request")
	}
	if err := api.validate.Struct(&req); err != nil {
		return err
	}

	if err := api.svc.ReorderLessons(ctx.Request().Context(), crs.ID, req.IDs); err != nil {
		return errors.Wrap(err, "reordering lessons")
	}
	lessons, err := api.svc.Lessons(ctx.Request().Context(), crs.ID)
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	return respondObj(ctx, http.StatusOK, "lessons", lessons)
}

func (api *courseApi) updateLesson(ctx echo.Context) error {
	crs, ok := ctx.Get("object").(course.Course)
	if !ok {
		return errors.Wrap(errCrsNotFoundInCtx, "retrieving object from context")
	}

	lsn, err := api.lessonOf(ctx, crs)
	if err != nil {
		return err
	}

	var data course.UpdateLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLesson")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	lsn, err = api.svc.UpdateLesson(ctx.Request().Context(), lsn.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating lesson")
	}
	return respondObj(ctx, http.StatusOK, "lesson", lsn)
}

func (api *courseApi) destroyLesson(ctx echo.Context) error {
	crs, ok := ctx.Get("object").(course.Course)
	if !ok {
		return errors.Wrap(errCrsNotFoundInCtx, "retrieving object from context")
	}

	lsn, err := api.lessonOf(ctx, crs)
	if err != nil {
		return err
	}

	if err := api.svc.DeleteLesson(ctx.Request().Context(), lsn.ID); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// lessonOf resolves :lessonID and checks it belongs to crs.
func (api *courseApi) lessonOf(ctx echo.Context, crs course.Course) (course.Lesson, error) {
	lsn, err := api.svc.GetLesson(ctx.Request().Context(), ctx.Param("lessonID"))
	if err != nil {
		if errors.Cause(err) == course.ErrLessonNotFound {
			return course.Lesson{}, errHttpNotFound
		}
		return course.Lesson{}, errors.Wrap(err, "finding lesson by ID")
	}
	if lsn.CourseID != crs.ID {
		return course.Lesson{}, errHttpNotFound
	}
	return lsn, nil
}

// ownCourseMiddleware loads :id into the context; instructors only reach
// their own courses, admins reach all.
func (api *courseApi) ownCourseMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctxUsr, err := getContextUser(ctx, api.userSvc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}

			crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == course.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding course by ID")
			}
			if !ctxUsr.IsAdmin() && crs.InstructorID != ctxUsr.ID {
				return errHttpNotFound
			}
			ctx.Set("object", crs)
			return next(ctx)
		}
	}
}
