package pagination

import (
	"context"
	"errors"
	"iter"
)

// DefaultPageSize is the page size used by the typed client endpoints when
// the caller does not specify one. The Web API caps most collections at 50.
const DefaultPageSize = 50

// ErrNoProgress is returned when the server reports a further page while
// delivering zero items. Refetching the same offset would loop forever, so
// the sequence terminates with this error instead.
var ErrNoProgress = errors.New("pagination: server reported another page but returned no items")

// Page is one server-delivered batch of a paginated collection.
// The engine only interprets Items and Next; the remaining fields are
// passed through for callers that want totals or raw links.
type Page[T any] struct {
	// Href is the API URL that produced this page.
	Href string `json:"href"`

	// Items is the payload of this page, in server order.
	Items []T `json:"items"`

	// Limit is the page size the server applied.
	Limit int `json:"limit"`

	// Next is the URL of the following page. Empty on the final page;
	// its presence is the sole continuation signal.
	Next string `json:"next"`

	// Offset is the position of the first item within the full collection.
	Offset int `json:"offset"`

	// Previous is the URL of the preceding page, if any.
	Previous string `json:"previous"`

	// Total is the number of items in the full collection.
	Total int `json:"total"`
}

// RequestFunc fetches a single page of up to limit items starting at offset.
type RequestFunc[T any] func(ctx context.Context, limit, offset int) (*Page[T], error)

// RequestFuncWith is a RequestFunc that additionally receives a shared
// value on every call, for request builders that need access to state
// owned by the caller (a token slot, a client handle).
type RequestFuncWith[C, T any] func(ctx context.Context, shared C, limit, offset int) (*Page[T], error)

// Paginator walks a paginated collection item by item, fetching pages
// on demand. It is a single-pass, forward-only sequence: each call to
// Paginate or PaginateWith starts a fresh one at offset zero, and a
// consumed Paginator cannot be rewound.
//
// A Paginator buffers at most one page and never fetches ahead of its
// consumer. It may be handed to another goroutine, but must be driven
// by one consumer at a time.
type Paginator[T any] struct {
	fetch    RequestFunc[T]
	pageSize int

	page   *Page[T]
	idx    int
	offset int
	item   T
	err    error
	done   bool
}

// Paginate turns a page-fetch function into a lazy sequence of items.
// pageSize is handed to fetch unchanged; the engine does not validate it.
func Paginate[T any](fetch RequestFunc[T], pageSize int) *Paginator[T] {
	return &Paginator[T]{fetch: fetch, pageSize: pageSize}
}

// PaginateWith is Paginate for fetch functions that need a shared value
// threaded through every call. The value is passed unchanged for the
// lifetime of the sequence; any synchronization it needs across unrelated
// paginators is its owner's concern.
func PaginateWith[C, T any](shared C, fetch RequestFuncWith[C, T], pageSize int) *Paginator[T] {
	return &Paginator[T]{
		fetch: func(ctx context.Context, limit, offset int) (*Page[T], error) {
			return fetch(ctx, shared, limit, offset)
		},
		pageSize: pageSize,
	}
}

// Next advances to the next item, fetching a new page only when the
// buffered one is exhausted. It returns false when the sequence ends,
// either cleanly (final page consumed) or because a fetch failed; Err
// distinguishes the two. After returning false it keeps returning false.
func (p *Paginator[T]) Next(ctx context.Context) bool {
	if p.err != nil || p.done {
		return false
	}

	for p.page == nil || p.idx >= len(p.page.Items) {
		if p.page != nil && p.page.Next == "" {
			p.done = true
			return false
		}

		page, err := p.fetch(ctx, p.pageSize, p.offset)
		if err != nil {
			p.err = err
			return false
		}
		if len(page.Items) == 0 && page.Next != "" {
			p.err = ErrNoProgress
			return false
		}

		// The cursor moves by what the server actually returned,
		// not by the nominal page size: a final page may be short.
		p.offset += len(page.Items)
		p.page = page
		p.idx = 0
	}

	p.item = p.page.Items[p.idx]
	p.idx++
	return true
}

// Item returns the item produced by the last successful call to Next.
func (p *Paginator[T]) Item() T {
	return p.item
}

// Err returns the fetch error that terminated the sequence, or nil after
// a clean end. Errors are not retried; a caller wanting recovery must
// start a new Paginator from scratch.
func (p *Paginator[T]) Err() error {
	return p.err
}

// Items exposes the sequence as an iterator usable with range. A fetch
// failure is yielded as the final (zero value, error) pair. Breaking out
// of the loop early stops the sequence without further fetches.
func (p *Paginator[T]) Items(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for p.Next(ctx) {
			if !yield(p.item, nil) {
				return
			}
		}
		if p.err != nil {
			var zero T
			yield(zero, p.err)
		}
	}
}

// Collect drains the sequence into a slice. On a fetch failure it returns
// the items gathered from the pages before the failure alongside the error.
func (p *Paginator[T]) Collect(ctx context.Context) ([]T, error) {
	var items []T
	for p.Next(ctx) {
		items = append(items, p.item)
	}
	return items, p.err
}
