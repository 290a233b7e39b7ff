package client

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/audiofold/spotify-go/pkg/model"
	"github.com/audiofold/spotify-go/pkg/pagination"
)

// fetchPage requests a single page of a paginated endpoint. limit and
// offset are appended to the caller's query.
func fetchPage[T any](ctx context.Context, c *Client, endpoint string, query url.Values, limit, offset int) (*pagination.Page[T], error) {
	q := url.Values{}
	for k, vs := range query {
		q[k] = vs
	}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	var page pagination.Page[T]
	if err := c.GetJSON(ctx, endpoint, q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ArtistAlbums returns one page of an artist's albums.
// Album type filtering uses include_groups ("album", "single",
// "compilation", "appears_on"); pass nil for all groups.
func (c *Client) ArtistAlbums(ctx context.Context, artistID string, includeGroups []string, limit, offset int) (*pagination.Page[model.SimplifiedAlbum], error) {
	query := url.Values{}
	if len(includeGroups) > 0 {
		query.Set("include_groups", strings.Join(includeGroups, ","))
	}
	return fetchPage[model.SimplifiedAlbum](ctx, c, "/v1/artists/"+artistID+"/albums", query, limit, offset)
}

// StreamArtistAlbums returns a paginator over all of an artist's albums.
// No request is made until the first Next call.
func (c *Client) StreamArtistAlbums(artistID string, includeGroups []string) *pagination.Paginator[model.SimplifiedAlbum] {
	return pagination.Paginate(func(ctx context.Context, limit, offset int) (*pagination.Page[model.SimplifiedAlbum], error) {
		return c.ArtistAlbums(ctx, artistID, includeGroups, limit, offset)
	}, c.config.PageSize)
}

// SavedTracks returns one page of the current user's saved tracks.
func (c *Client) SavedTracks(ctx context.Context, limit, offset int) (*pagination.Page[model.SavedTrack], error) {
	return fetchPage[model.SavedTrack](ctx, c, "/v1/me/tracks", nil, limit, offset)
}

// StreamSavedTracks returns a paginator over the current user's entire
// saved track library.
func (c *Client) StreamSavedTracks() *pagination.Paginator[model.SavedTrack] {
	return pagination.Paginate(c.SavedTracks, c.config.PageSize)
}

// CurrentUserPlaylists returns one page of the current user's playlists.
func (c *Client) CurrentUserPlaylists(ctx context.Context, limit, offset int) (*pagination.Page[model.SimplifiedPlaylist], error) {
	return fetchPage[model.SimplifiedPlaylist](ctx, c, "/v1/me/playlists", nil, limit, offset)
}

// StreamCurrentUserPlaylists returns a paginator over all of the current
// user's playlists.
func (c *Client) StreamCurrentUserPlaylists() *pagination.Paginator[model.SimplifiedPlaylist] {
	return pagination.Paginate(c.CurrentUserPlaylists, c.config.PageSize)
}

// SearchQuery describes a search request. Types lists the item types to
// search across ("artist", "album", "track", "playlist").
type SearchQuery struct {
	Query  string
	Types  []string
	Market string
}

func (s SearchQuery) values() url.Values {
	query := url.Values{}
	query.Set("q", s.Query)
	query.Set("type", strings.Join(s.Types, ","))
	if s.Market != "" {
		query.Set("market", s.Market)
	}
	return query
}

// Search performs a catalog search and returns the full result envelope
// with one page per requested item type.
func (c *Client) Search(ctx context.Context, sq SearchQuery, limit, offset int) (*model.SearchResult, error) {
	query := sq.values()
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	var result model.SearchResult
	if err := c.GetJSON(ctx, "/v1/search", query, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// StreamSearchTracks returns a paginator over all tracks matching the
// query, regardless of how many result pages the search spans.
func (c *Client) StreamSearchTracks(sq SearchQuery) *pagination.Paginator[model.Track] {
	sq.Types = []string{"track"}
	return pagination.PaginateWith(sq, func(ctx context.Context, sq SearchQuery, limit, offset int) (*pagination.Page[model.Track], error) {
		result, err := c.Search(ctx, sq, limit, offset)
		if err != nil {
			return nil, err
		}
		if result.Tracks == nil {
			return &pagination.Page[model.Track]{}, nil
		}
		return result.Tracks, nil
	}, c.config.PageSize)
}
