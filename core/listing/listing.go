// Package listing holds the shared filter/sort/paginate primitives used by
// every list view of the platform: admin and instructor tables, the public
// course catalog and the terminal admin client all express "what to show"
// as a Params value and get a Page back.
package listing

import (
	"net/url"
	"strconv"
)

// Query parameter names shared by the API, the HTTP client and the bindings.
const (
	ParamPage      = "page"
	ParamLimit     = "limit"
	ParamSortBy    = "sortBy"
	ParamSortOrder = "sortOrder"
	ParamSearch    = "search"

	SortAsc  = "asc"
	SortDesc = "desc"

	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100

	// Unconstrained is the category-filter value meaning "no constraint";
	// it is omitted from built queries, same as the empty string.
	Unconstrained = "all"
)

// Params describes the query a list view is currently expressing.
// The zero value is not usable; start from NewParams.
type Params struct {
	Search    string
	Filters   map[string]string // field -> selected value; ""/"all" means unconstrained
	SortField string
	SortAsc   bool
	Page      int // 1-based
	PageSize  int
}

func NewParams() Params {
	return Params{
		Filters:  make(map[string]string),
		Page:     DefaultPage,
		PageSize: DefaultPageSize,
	}
}

// SetSearch replaces the search term and resets paging.
func (p *Params) SetSearch(term string) {
	p.Search = term
	p.Page = DefaultPage
}

// SetFilter updates one category filter and resets paging.
func (p *Params) SetFilter(field, value string) {
	if p.Filters == nil {
		p.Filters = make(map[string]string)
	}
	p.Filters[field] = value
	p.Page = DefaultPage
}

// SetSort replaces the sort field/direction and resets paging.
// Sort-only changes reset paging too; keeping a page number that was computed
// under a different order is no more meaningful than keeping it under a
// different filter.
func (p *Params) SetSort(field string, asc bool) {
	p.SortField = field
	p.SortAsc = asc
	p.Page = DefaultPage
}

func (p *Params) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	p.Page = page
}

// SetPageSize replaces the page size, clamped to [1, MaxPageSize], and resets paging.
func (p *Params) SetPageSize(size int) {
	if size < 1 {
		size = DefaultPageSize
	} else if size > MaxPageSize {
		size = MaxPageSize
	}
	p.PageSize = size
	p.Page = DefaultPage
}

func (p Params) SortOrder() string {
	if p.SortAsc {
		return SortAsc
	}
	return SortDesc
}

func (p Params) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// ActiveFilters returns only the category filters that actually constrain
// the result set (value neither empty nor Unconstrained).
func (p Params) ActiveFilters() map[string]string {
	active := make(map[string]string, len(p.Filters))
	for field, val := range p.Filters {
		if val != "" && val != Unconstrained {
			active[field] = val
		}
	}
	return active
}

// Values builds the query string for the fetch contract:
// page, limit, sortBy/sortOrder when set, search when non-empty, and exactly
// the category filters that are active.
func (p Params) Values() url.Values {
	v := make(url.Values)
	v.Set(ParamPage, strconv.Itoa(p.Page))
	v.Set(ParamLimit, strconv.Itoa(p.PageSize))
	if p.SortField != "" {
		v.Set(ParamSortBy, p.SortField)
		v.Set(ParamSortOrder, p.SortOrder())
	}
	if p.Search != "" {
		v.Set(ParamSearch, p.Search)
	}
	for field, val := range p.ActiveFilters() {
		v.Set(field, val)
	}
	return v
}

// Page is one page of items plus the pagination metadata returned by a fetch.
type Page[T any] struct {
	Items       []T  `json:"items"`
	TotalCount  int  `json:"totalCount"`
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	HasNext     bool `json:"hasNextPage"`
	HasPrev     bool `json:"hasPrevPage"`
}

// NumPages computes ceil(totalCount/pageSize); an empty result set still has
// one (empty) page so a current page always exists.
func NumPages(totalCount, pageSize int) int {
	if totalCount <= 0 || pageSize <= 0 {
		return 1
	}
	return (totalCount + pageSize - 1) / pageSize
}

// ClampPage bounds page into [1, max(1, totalPages)].
func ClampPage(page, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// NewPage assembles the metadata for one page worth of items.
// items must already correspond to the (clamped) requested page.
func NewPage[T any](items []T, totalCount int, p Params) Page[T] {
	totalPages := NumPages(totalCount, p.PageSize)
	current := ClampPage(p.Page, totalPages)
	return Page[T]{
		Items:       items,
		TotalCount:  totalCount,
		CurrentPage: current,
		TotalPages:  totalPages,
		HasNext:     current < totalPages,
		HasPrev:     current > 1,
	}
}

// PageOf slices one page out of a fully materialized item list.
func PageOf[T any](all []T, p Params) Page[T] {
	totalPages := NumPages(len(all), p.PageSize)
	current := ClampPage(p.Page, totalPages)
	start := (current - 1) * p.PageSize
	if start > len(all) {
		start = len(all)
	}
	end := start + p.PageSize
	if end > len(all) {
		end = len(all)
	}
	return NewPage(all[start:end], len(all), p)
}
