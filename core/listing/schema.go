package listing

import (
	"sort"
	"strings"
)

// Schema describes how a concrete entity participates in the local
// derivation pipeline: which of its fields are searchable, which carry the
// category values equality filters match against, and how it sorts.
// Views that filter client-side (instead of delegating to the server) run
// their full fetched collection through Apply.
type Schema[T any] struct {
	// Searchable extracts the values matched case-insensitively against Params.Search.
	Searchable func(item T) []string

	// Categories extracts the item's category-filter values, keyed by filter field.
	Categories func(item T) map[string]string

	// Less holds an ascending-order comparator per sortable field.
	Less map[string]func(a, b T) bool
}

// Apply runs the derivation pipeline without paging:
// search match -> category filters -> stable sort.
// It is pure: fixed items and params always produce identical output, and
// ties keep insertion order.
func (s Schema[T]) Apply(items []T, p Params) []T {
	out := make([]T, 0, len(items))

	term := strings.ToLower(strings.TrimSpace(p.Search))
	active := p.ActiveFilters()

	for _, item := range items {
		if term != "" && !s.matchesSearch(item, term) {
			continue
		}
		if !s.matchesFilters(item, active) {
			continue
		}
		out = append(out, item)
	}

	if less, ok := s.Less[p.SortField]; ok {
		if p.SortAsc {
			sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
		} else {
			sort.SliceStable(out, func(i, j int) bool { return less(out[j], out[i]) })
		}
	}
	return out
}

// ApplyPage runs Apply and slices out the requested page.
func (s Schema[T]) ApplyPage(items []T, p Params) Page[T] {
	return PageOf(s.Apply(items, p), p)
}

// matchesSearch reports whether any searchable field contains term.
func (s Schema[T]) matchesSearch(item T, term string) bool {
	if s.Searchable == nil {
		return false
	}
	for _, val := range s.Searchable(item) {
		if strings.Contains(strings.ToLower(val), term) {
			return true
		}
	}
	return false
}

// matchesFilters applies an AND over all active equality filters.
func (s Schema[T]) matchesFilters(item T, active map[string]string) bool {
	if len(active) == 0 {
		return true
	}
	if s.Categories == nil {
		return false
	}
	cats := s.Categories(item)
	for field, want := range active {
		if cats[field] != want {
			return false
		}
	}
	return true
}
