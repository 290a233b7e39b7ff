package pagination

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// BatchConfig holds batch fetcher configuration.
type BatchConfig struct {
	// MaxConcurrency is the maximum number of parallel page requests.
	MaxConcurrency int

	// Timeout applies per page fetch.
	Timeout time.Duration
}

// DefaultBatchConfig returns a configuration that stays comfortably
// inside the API's request budget.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
	}
}

// BatchFetcher fetches every page of a collection in parallel. Unlike
// Paginator it runs ahead of the consumer: the first page reveals the
// collection total, then a worker pool requests the remaining offsets.
type BatchFetcher[T any] struct {
	fetch    RequestFunc[T]
	pageSize int
	config   BatchConfig
}

// NewBatchFetcher creates a batch fetcher over the given page-fetch
// function. pageSize must match what the server will actually apply,
// since remaining offsets are derived from it.
func NewBatchFetcher[T any](fetch RequestFunc[T], pageSize int, config BatchConfig) *BatchFetcher[T] {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &BatchFetcher[T]{
		fetch:    fetch,
		pageSize: pageSize,
		config:   config,
	}
}

// pageResult carries one fetched page back from a worker.
type pageResult[T any] struct {
	offset int
	items  []T
}

// FetchAll retrieves the whole collection and returns its items in
// collection order. Any page failure aborts the batch; no partial
// results are returned.
func (bf *BatchFetcher[T]) FetchAll(ctx context.Context) ([]T, error) {
	start := time.Now()

	first, err := bf.fetch(ctx, bf.pageSize, 0)
	if err != nil {
		return nil, fmt.Errorf("fetch first page: %w", err)
	}

	// Single page optimization.
	if first.Next == "" || first.Total <= len(first.Items) {
		log.Debug().
			Int("items", len(first.Items)).
			Dur("duration", time.Since(start)).
			Msg("Batch fetch complete (single page)")
		return first.Items, nil
	}

	// Remaining offsets, derived from the requested page size.
	var offsets []int
	for offset := bf.pageSize; offset < first.Total; offset += bf.pageSize {
		offsets = append(offsets, offset)
	}

	log.Info().
		Int("total_items", first.Total).
		Int("pages", len(offsets)+1).
		Int("workers", bf.config.MaxConcurrency).
		Msg("Starting parallel page fetch")

	offsetQueue := make(chan int, len(offsets))
	results := make(chan pageResult[T], len(offsets))
	errs := make(chan error, bf.config.MaxConcurrency)

	for _, offset := range offsets {
		offsetQueue <- offset
	}
	close(offsetQueue)

	batchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < bf.config.MaxConcurrency; i++ {
		wg.Add(1)
		go bf.worker(batchCtx, offsetQueue, results, errs, &wg, i)
	}

	go func() {
		wg.Wait()
		close(results)
		close(errs)
	}()

	pages := []pageResult[T]{{offset: 0, items: first.Items}}
	for result := range results {
		pages = append(pages, result)

		if len(pages)%20 == 0 {
			log.Debug().
				Int("fetched", len(pages)).
				Int("total", len(offsets)+1).
				Msg("Batch fetch progress")
		}
	}

	if err := <-errs; err != nil {
		log.Warn().
			Err(err).
			Int("fetched_pages", len(pages)).
			Msg("Batch fetch aborted")
		return nil, err
	}

	// Reassemble in collection order.
	sort.Slice(pages, func(i, j int) bool { return pages[i].offset < pages[j].offset })

	items := make([]T, 0, first.Total)
	for _, page := range pages {
		items = append(items, page.items...)
	}

	log.Info().
		Int("items", len(items)).
		Int("pages", len(pages)).
		Dur("duration", time.Since(start)).
		Msg("Batch fetch complete")

	return items, nil
}

// worker fetches offsets from the queue until it drains or a fetch fails.
func (bf *BatchFetcher[T]) worker(ctx context.Context, offsets <-chan int, results chan<- pageResult[T], errs chan<- error, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()

	for offset := range offsets {
		select {
		case <-ctx.Done():
			return
		default:
		}

		pageCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
		page, err := bf.fetch(pageCtx, bf.pageSize, offset)
		cancel()

		if err != nil {
			log.Warn().
				Err(err).
				Int("worker_id", workerID).
				Int("offset", offset).
				Msg("Page fetch failed")

			select {
			case errs <- fmt.Errorf("fetch page at offset %d: %w", offset, err):
			default:
			}
			return
		}

		select {
		case results <- pageResult[T]{offset: offset, items: page.Items}:
		case <-ctx.Done():
			return
		}
	}
}
