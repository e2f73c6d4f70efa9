// Package listview implements the controller behind every list screen:
// it owns the filter/sort/page state, talks to a fetch collaborator, and
// exposes the row/bulk mutation triggers that reload the view on success.
package listview

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/gopimeda/elearning/core/listing"
)

// State is the controller's lifecycle state. There is no terminal state;
// a controller cycles between Loading and Ready/Errored for the life of
// its view.
type State int

const (
	Idle State = iota
	Loading
	Ready
	Errored
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Errored:
		return "errored"
	}
	return "unknown"
}

var (
	// ErrNoSelection is returned by BulkAction when no ids were selected;
	// no request is issued in that case.
	ErrNoSelection = errors.New("no items selected")

	// ErrStale marks a fetch whose response was discarded because a newer
	// fetch had been issued before it completed.
	ErrStale = errors.New("stale response discarded")

	errNoMutator  = errors.New("no mutation collaborator configured")
	errNoExporter = errors.New("no export collaborator configured")
)

type (
	// Fetcher is the fetch collaborator: one call, one page.
	Fetcher[T any] interface {
		FetchPage(ctx context.Context, params listing.Params) (listing.Page[T], error)
	}

	// Mutator is the mutation collaborator. The controller never applies
	// optimistic local updates: a successful mutation is followed by a fresh
	// fetch, trading latency for consistency with the server's canonical
	// state. Substituting an optimistic strategy only requires a different
	// Mutator plus a no-op refetch.
	Mutator interface {
		Do(ctx context.Context, id, action string, payload interface{}) error
		DoBulk(ctx context.Context, ids []string, action string, payload interface{}) error
	}

	// Exporter is the export collaborator; it returns the filename and raw
	// bytes of an export matching the current filter state.
	Exporter interface {
		Export(ctx context.Context, params listing.Params) (filename string, data []byte, err error)
	}

	Options[T any] struct {
		Fetcher  Fetcher[T] // required
		Mutator  Mutator
		Exporter Exporter
		Params   *listing.Params // initial filter state; defaults to listing.NewParams()
	}

	// Controller mediates between filter/sort/page input and the fetch
	// collaborator. Each instance exclusively owns its params and item cache;
	// views never share controllers.
	Controller[T any] struct {
		fetcher  Fetcher[T]
		mutator  Mutator
		exporter Exporter

		mu     sync.Mutex
		params listing.Params
		page   listing.Page[T]
		state  State
		errMsg string
		seq    uint64             // latest issued fetch
		cancel context.CancelFunc // cancels the in-flight fetch, if any
	}
)

func New[T any](opts Options[T]) *Controller[T] {
	params := listing.NewParams()
	if opts.Params != nil {
		params = *opts.Params
	}
	return &Controller[T]{
		fetcher:  opts.Fetcher,
		mutator:  opts.Mutator,
		exporter: opts.Exporter,
		params:   params,
		state:    Idle,
	}
}

// Params returns a copy of the current filter state.
func (c *Controller[T]) Params() listing.Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	params := c.params
	params.Filters = make(map[string]string, len(c.params.Filters))
	for k, v := range c.params.Filters {
		params.Filters[k] = v
	}
	return params
}

func (c *Controller[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller[T]) Page() listing.Page[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

func (c *Controller[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page.Items
}

// Error returns the current error message; empty when there is none.
func (c *Controller[T]) Error() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

// DismissError clears the error message without touching the displayed items.
func (c *Controller[T]) DismissError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errMsg = ""
	if c.state == Errored {
		c.state = Ready
	}
}

// Filter state mutators. All of them reset paging per listing's rules.

func (c *Controller[T]) SetSearch(term string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.params.SetSearch(term)
}

func (c *Controller[T]) SetFilter(field, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.params.SetFilter(field, value)
}

func (c *Controller[T]) SetSort(field string, asc bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.params.SetSort(field, asc)
}

func (c *Controller[T]) SetPage(page int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.params.SetPage(page)
}

func (c *Controller[T]) SetPageSize(size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.params.SetPageSize(size)
}

// FetchPage issues one fetch for the current filter state.
//
// Rapid filter changes may leave several fetches in flight; each fetch is
// tagged with a monotonically increasing sequence number and only the latest
// one may commit its response. A superseded fetch is cancelled and its
// response discarded (ErrStale). A failed fetch records a message and leaves
// the previously displayed items untouched.
func (c *Controller[T]) FetchPage(ctx context.Context) error {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	if c.cancel != nil {
		c.cancel() // supersede the in-flight fetch
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state = Loading
	params := c.params
	c.mu.Unlock()

	page, err := c.fetcher.FetchPage(ctx, params)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		return ErrStale
	}
	c.cancel = nil
	cancel()

	if err != nil {
		// previous items stay on display
		c.state = Errored
		c.errMsg = err.Error()
		return err
	}
	c.state = Ready
	c.errMsg = ""
	c.page = page
	c.params.Page = page.CurrentPage // server may have clamped
	return nil
}

// Close cancels any in-flight fetch. The controller remains usable.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// RowAction sends one mutation for a single item, then reloads the current
// page on success. On failure the local state is left untouched.
func (c *Controller[T]) RowAction(ctx context.Context, id, action string, payload interface{}) error {
	if c.mutator == nil {
		return errNoMutator
	}
	if err := c.mutator.Do(ctx, id, action, payload); err != nil {
		c.setError(err)
		return err
	}
	return c.FetchPage(ctx)
}

// BulkAction is RowAction over a set of ids in one request.
// It requires a non-empty selection and issues no request otherwise.
func (c *Controller[T]) BulkAction(ctx context.Context, ids []string, action string, payload interface{}) error {
	if len(ids) == 0 {
		c.setError(ErrNoSelection)
		return ErrNoSelection
	}
	if c.mutator == nil {
		return errNoMutator
	}
	if err := c.mutator.DoBulk(ctx, ids, action, payload); err != nil {
		c.setError(err)
		return err
	}
	return c.FetchPage(ctx)
}

// Export produces an export of the full result set matching the current
// filter state (paging excluded: the export covers all pages).
func (c *Controller[T]) Export(ctx context.Context) (string, []byte, error) {
	if c.exporter == nil {
		return "", nil, errNoExporter
	}
	params := c.Params()
	return c.exporter.Export(ctx, params)
}

func (c *Controller[T]) setError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Errored
	c.errMsg = err.Error()
}
