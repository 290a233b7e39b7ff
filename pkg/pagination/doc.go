// Package pagination turns the Web API's offset-paginated endpoints into
// lazy item sequences and, separately, into parallel bulk fetches.
//
// # Lazy sequences
//
// Paginate adapts a page-fetch function into a Paginator that yields one
// item at a time, requesting the next page only when the buffered one is
// exhausted:
//
//	p := pagination.Paginate(fetchAlbums, 50)
//	for album, err := range p.Items(ctx) {
//		if err != nil {
//			return err
//		}
//		fmt.Println(album.Name)
//	}
//
// The offset cursor advances by the number of items each page actually
// returned, and the sequence ends when a page carries no next link. A
// failed fetch terminates the sequence with that error; nothing from the
// failed page is delivered and nothing is retried.
//
// PaginateWith threads an extra shared value (for example a token slot)
// into every fetch call for request builders that need caller-owned state.
//
// # Batch fetching
//
// BatchFetcher trades the laziness guarantee for throughput: once the
// first page reveals the collection total, the remaining offsets are
// fetched by a bounded worker pool and returned in collection order.
// Use it for bulk dumps, not for consumer-paced streaming.
package pagination
