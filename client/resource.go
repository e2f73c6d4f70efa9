package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"github.com/gopimeda/elearning/core/listing"
	"github.com/gopimeda/elearning/core/listview"
)

// ActionDelete maps to a DELETE on the item itself; every other action maps
// to PUT <resource>/<id>/<action>.
const ActionDelete = "delete"

// Resource is a typed handle on one API collection. It implements the
// listview fetch, mutation and export collaborator contracts.
type Resource[T any] struct {
	client     *Client
	path       string // URL path segment, e.g. "courses"
	collection string // key of the item array inside the response data
}

var (
	_ listview.Fetcher[struct{}] = (*Resource[struct{}])(nil)
	_ listview.Mutator           = (*Resource[struct{}])(nil)
	_ listview.Exporter          = (*Resource[struct{}])(nil)
)

func NewResource[T any](c *Client, path, collection string) *Resource[T] {
	return &Resource[T]{client: c, path: path, collection: collection}
}

// FetchPage gets one page; only the active entries of params end up in the
// query string.
func (r *Resource[T]) FetchPage(ctx context.Context, params listing.Params) (listing.Page[T], error) {
	var page listing.Page[T]

	env, err := r.client.do(ctx, http.MethodGet, r.path, params.Values(), nil)
	if err != nil {
		return page, err
	}

	if raw, ok := env.Data[r.collection]; ok {
		if err := json.Unmarshal(raw, &page.Items); err != nil {
			return page, errors.Wrapf(err, "decoding %s", r.collection)
		}
	}
	if raw, ok := env.Data["pagination"]; ok {
		var meta pageMeta
		if err := json.Unmarshal(raw, &meta); err != nil {
			return page, errors.Wrap(err, "decoding pagination")
		}
		page.TotalCount = meta.TotalItems
		page.CurrentPage = meta.CurrentPage
		page.TotalPages = meta.TotalPages
		page.HasNext = meta.HasNextPage
		page.HasPrev = meta.HasPrevPage
	}
	return page, nil
}

// Do sends one row mutation: DELETE <resource>/<id> for ActionDelete,
// PUT <resource>/<id>/<action> otherwise.
func (r *Resource[T]) Do(ctx context.Context, id, action string, payload interface{}) error {
	method, path := http.MethodPut, fmt.Sprintf("%s/%s/%s", r.path, url.PathEscape(id), action)
	if action == ActionDelete {
		method, path = http.MethodDelete, fmt.Sprintf("%s/%s", r.path, url.PathEscape(id))
	}
	_, err := r.client.do(ctx, method, path, nil, payload)
	return err
}

// DoBulk targets a set of ids in one request.
func (r *Resource[T]) DoBulk(ctx context.Context, ids []string, action string, payload interface{}) error {
	body := map[string]interface{}{
		"action": action,
		"ids":    ids,
	}
	if payload != nil {
		body["payload"] = payload
	}
	_, err := r.client.do(ctx, http.MethodPost, r.path+"/bulk", nil, body)
	return err
}

// Export downloads the CSV export of the full result set matching params
// (paging stripped) and names it <resource>-export-<ISO date>.csv.
func (r *Resource[T]) Export(ctx context.Context, params listing.Params) (string, []byte, error) {
	query := params.Values()
	query.Del(listing.ParamPage)
	query.Del(listing.ParamLimit)

	data, _, err := r.client.doRaw(ctx, http.MethodGet, r.path+"/export", query, nil)
	if err != nil {
		return "", nil, err
	}
	filename := fmt.Sprintf("%s-export-%s.csv", r.path, r.client.now().UTC().Format("2006-01-02"))
	return filename, data, nil
}
