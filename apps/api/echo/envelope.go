package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gopimeda/elearning/core/listing"
)

// The API speaks one uniform envelope: {success, message, data}.
// List responses carry the item array under the collection's name plus a
// pagination block; detail responses carry the object under its singular name.
type (
	envelope struct {
		Success bool                   `json:"success"`
		Message string                 `json:"message,omitempty"`
		Data    map[string]interface{} `json:"data,omitempty"`
	}

	pagination struct {
		CurrentPage int  `json:"currentPage"`
		TotalPages  int  `json:"totalPages"`
		TotalItems  int  `json:"totalItems"`
		HasNextPage bool `json:"hasNextPage"`
		HasPrevPage bool `json:"hasPrevPage"`
	}
)

func respond(ctx echo.Context, code int, message string, data map[string]interface{}) error {
	return ctx.JSON(code, envelope{Success: true, Message: message, Data: data})
}

func respondObj(ctx echo.Context, code int, key string, obj interface{}) error {
	return respond(ctx, code, "", map[string]interface{}{key: obj})
}

func respondMessage(ctx echo.Context, message string) error {
	return respond(ctx, http.StatusOK, message, nil)
}

// respondPage emits the fetch contract's list shape.
func respondPage[T any](ctx echo.Context, collection string, page listing.Page[T]) error {
	items := page.Items
	if items == nil {
		items = []T{}
	}
	return respond(ctx, http.StatusOK, "", map[string]interface{}{
		collection: items,
		"pagination": pagination{
			CurrentPage: page.CurrentPage,
			TotalPages:  page.TotalPages,
			TotalItems:  page.TotalCount,
			HasNextPage: page.HasNext,
			HasPrevPage: page.HasPrev,
		},
	})
}
