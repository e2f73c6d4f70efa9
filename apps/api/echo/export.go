package echoapi

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gopimeda/elearning/core/listing"
)

// exportNow is the export filename clock; tests pin it.
var exportNow = time.Now

// writeCSV streams header+rows as a CSV attachment named
// <resource>-export-<ISO date>.csv.
func writeCSV(ctx echo.Context, resource string, header []string, rows [][]string) error {
	filename := fmt.Sprintf("%s-export-%s.csv", resource, exportNow().UTC().Format("2006-01-02"))

	res := ctx.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv")
	res.Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	res.WriteHeader(http.StatusOK)

	w := csv.NewWriter(res)
	if err := w.Write(header); err != nil {
		return errors.Wrap(err, "writing csv header")
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return errors.Wrap(err, "writing csv row")
		}
	}
	w.Flush()
	return errors.Wrap(w.Error(), "flushing csv")
}

// collectPages drains every page of a filtered query into CSV rows. Exports
// cover the full filtered set regardless of the caller's page and limit.
func collectPages[T any](
	ctx echo.Context,
	query func(listing.Params) (listing.Page[T], error),
	row func(T) []string,
) ([][]string, error) {
	params := bindParams(ctx)
	params.Page = 1
	params.PageSize = listing.MaxPageSize

	var rows [][]string
	for {
		page, err := query(params)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			rows = append(rows, row(item))
		}
		if !page.HasNext {
			return rows, nil
		}
		params.Page++
	}
}
