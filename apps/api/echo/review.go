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
	"github.com/gopimeda/elearning/core/review"
	"github.com/gopimeda/elearning/core/user"
)

// Bulk actions on the reviews collection.
const (
	reviewActionDelete  = "delete"
	reviewActionApprove = "approve"
	reviewActionReject  = "reject"
)

type reviewApi struct {
	svc      review.ServiceInterface
	userSvc  user.ServiceInterface
	validate *validator.Validate
}

func registerReviewAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc review.ServiceInterface,
	userSvc user.ServiceInterface,
	validate *validator.Validate,
) {
	api := reviewApi{svc: svc, userSvc: userSvc, validate: validate}

	rg := g.Group("/reviews", jwt)
	rg.POST("", api.create)
	rg.GET("", api.query)
	rg.GET("/export", api.export, adminMiddleware())
	rg.POST("/bulk", api.bulk, adminMiddleware())
	rg.GET("/:id", api.retrieve)
	rg.PUT("/:id/approve", api.setStatus(review.StatusApproved), adminMiddleware())
	rg.PUT("/:id/reject", api.setStatus(review.StatusRejected), adminMiddleware())
	rg.DELETE("/:id", api.destroy, adminMiddleware())
}

// Handlers

func (api *reviewApi) create(ctx echo.Context) error {
	var data review.NewReview
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReview")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	rev, err := api.svc.Create(ctx.Request().Context(), ctxUsr.ID, ctxUsr.Name, data)
	if err != nil {
		switch errors.Cause(err) {
		case review.ErrAlreadyReviewed:
			return core.NewValidationError(review.ErrAlreadyReviewed)
		case course.ErrNotFound:
			return core.NewValidationError(nil, core.FieldError{Field: "course_id", Error: "course not found"})
		}
		return errors.Wrap(err, "creating review")
	}
	return respondObj(ctx, http.StatusCreated, "review", rev)
}

func (api *reviewApi) query(ctx echo.Context) error {
	filter := new(review.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return core.NewValidationError(errors.New("invalid query parameters"))
	}
	filter.Clean()

	// non-admins only see approved reviews, plus their own in any status
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !ctxUsr.IsAdmin() && filter.UserID != ctxUsr.ID {
		filter.Status = review.StatusApproved
	}

	page, err := api.svc.Query(ctx.Request().Context(), filter, bindParams(ctx))
	if err != nil {
		return errors.Wrap(err, "querying reviews")
	}
	return respondPage(ctx, "reviews", page)
}

func (api *reviewApi) export(ctx echo.Context) error {
	filter := new(review.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return core.NewValidationError(errors.New("invalid query parameters"))
	}
	filter.Clean()

	rows, err := collectPages(ctx, func(params listing.Params) (listing.Page[review.Review], error) {
		return api.svc.Query(ctx.Request().Context(), filter, params)
	}, func(rev review.Review) []string {
		return []string{
			rev.ID, rev.CourseTitle, rev.UserName,
			strconv.Itoa(rev.Rating), rev.Status,
			rev.CreatedAt.Format(time.RFC3339),
		}
	})
	if err != nil {
		return errors.Wrap(err, "querying reviews")
	}
	header := []string{"id", "course", "user", "rating", "status", "created_at"}
	return writeCSV(ctx, "reviews", header, rows)
}

func (api *reviewApi) bulk(ctx echo.Context) error {
	var req BulkRequest
	if err := ctx.Bind(&req); err != nil {
		return errors.Wrap(err, "binding to BulkRequest")
	}
	if err := req.Validate(api.validate); err != nil {
		return err
	}
	if len(req.IDs) == 0 {
		return core.NewValidationError(review.ErrNoSelection)
	}

	var err error
	rctx := ctx.Request().Context()
	switch req.Action {
	case reviewActionDelete:
		err = api.svc.Delete(rctx, req.IDs...)
	case reviewActionApprove:
		err = api.svc.SetStatusBulk(rctx, review.StatusApproved, req.IDs...)
	case reviewActionReject:
		err = api.svc.SetStatusBulk(rctx, review.StatusRejected, req.IDs...)
	default:
		return core.NewValidationError(errors.Errorf("unknown action %q", req.Action))
	}
	if err != nil {
		return errors.Wrapf(err, "applying %s", req.Action)
	}
	return respondMessage(ctx, "ok")
}

func (api *reviewApi) retrieve(ctx echo.Context) error {
	rev, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == review.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding review by ID")
	}

	// pending and rejected reviews are only visible to their author and admins
	if !rev.Approved() {
		ctxUsr, err := getContextUser(ctx, api.userSvc)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}
		if rev.UserID != ctxUsr.ID && !ctxUsr.IsAdmin() {
			return errHttpNotFound
		}
	}
	return respondObj(ctx, http.StatusOK, "review", rev)
}

func (api *reviewApi) setStatus(status string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		rev, err := api.svc.SetStatus(ctx.Request().Context(), ctx.Param("id"), status)
		if err != nil {
			if errors.Cause(err) == review.ErrNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "setting review status")
		}
		return respondObj(ctx, http.StatusOK, "review", rev)
	}
}

func (api *reviewApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == review.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting review")
	}
	return ctx.NoContent(http.StatusNoContent)
}
