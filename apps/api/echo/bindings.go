package echoapi

import (
	"encoding/json"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/gopimeda/elearning/core"
	"github.com/gopimeda/elearning/core/listing"
)

// bindParams reads the listing query parameters. Out-of-range values fall
// back to defaults rather than erroring; limit is clamped to the maximum.
func bindParams(ctx echo.Context) listing.Params {
	params := listing.NewParams()

	// SetPageSize resets paging, bind it before the page
	if limit, err := strconv.Atoi(ctx.QueryParam(listing.ParamLimit)); err == nil {
		params.SetPageSize(limit)
	}
	if page, err := strconv.Atoi(ctx.QueryParam(listing.ParamPage)); err == nil {
		params.SetPage(page)
	}
	if field := core.CleanString(ctx.QueryParam(listing.ParamSortBy)); field != "" {
		asc := ctx.QueryParam(listing.ParamSortOrder) != listing.SortDesc
		params.SortField = field
		params.SortAsc = asc
	}
	params.Search = core.CleanString(ctx.QueryParam(listing.ParamSearch))
	return params
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	// BulkRequest targets a set of ids with one action. Payload carries
	// action-specific input and stays raw until the handler knows the action.
	BulkRequest struct {
		Action  string          `json:"action" validate:"required"`
		IDs     []string        `json:"ids"`
		Payload json.RawMessage `json:"payload,omitempty"`
	}

	DestroyMultipleRequest struct {
		IDs []string `json:"ids"`
	}
)

func (r *LoginRequest) Validate(validate *validator.Validate) error {
	r.Username = core.CleanString(r.Username)
	return validate.Struct(r)
}

func (r *PasswordResetRequest) Validate(validate *validator.Validate) error {
	r.Email = core.CleanString(r.Email, true)
	return validate.Struct(r)
}

func (r *BulkRequest) Validate(validate *validator.Validate) error {
	r.Action = core.CleanString(r.Action, true)
	return validate.Struct(r)
}
