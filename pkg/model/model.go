// Package model defines the Web API object types returned by the client.
package model

import (
	"time"

	"github.com/audiofold/spotify-go/pkg/pagination"
)

// Image is an artwork rendition at one resolution.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Followers holds the follower count of an artist, playlist, or user.
type Followers struct {
	Href  string `json:"href"`
	Total int    `json:"total"`
}

// Artist is a full artist object.
type Artist struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	URI        string    `json:"uri"`
	Genres     []string  `json:"genres"`
	Popularity int       `json:"popularity"`
	Followers  Followers `json:"followers"`
	Images     []Image   `json:"images"`
}

// SimplifiedArtist is the reduced artist object embedded in albums and tracks.
type SimplifiedArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SimplifiedAlbum is the album object returned by listing endpoints.
type SimplifiedAlbum struct {
	ID                   string             `json:"id"`
	Name                 string             `json:"name"`
	URI                  string             `json:"uri"`
	AlbumType            string             `json:"album_type"`
	AlbumGroup           string             `json:"album_group,omitempty"`
	TotalTracks          int                `json:"total_tracks"`
	ReleaseDate          string             `json:"release_date"`
	ReleaseDatePrecision string             `json:"release_date_precision"`
	Artists              []SimplifiedArtist `json:"artists"`
	Images               []Image            `json:"images"`
}

// Track is a full track object.
type Track struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	URI        string             `json:"uri"`
	DurationMs int                `json:"duration_ms"`
	Explicit   bool               `json:"explicit"`
	Popularity int                `json:"popularity"`
	TrackNum   int                `json:"track_number"`
	DiscNum    int                `json:"disc_number"`
	Album      SimplifiedAlbum    `json:"album"`
	Artists    []SimplifiedArtist `json:"artists"`
}

// SavedTrack is a track in the user's library together with the time it
// was saved.
type SavedTrack struct {
	AddedAt time.Time `json:"added_at"`
	Track   Track     `json:"track"`
}

// PlaylistOwner identifies the user owning a playlist.
type PlaylistOwner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	URI         string `json:"uri"`
}

// SimplifiedPlaylist is the playlist object returned by listing endpoints.
type SimplifiedPlaylist struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	URI           string        `json:"uri"`
	Description   string        `json:"description"`
	Public        bool          `json:"public"`
	Collaborative bool          `json:"collaborative"`
	SnapshotID    string        `json:"snapshot_id"`
	Owner         PlaylistOwner `json:"owner"`
	Images        []Image       `json:"images"`
	Tracks        TracksRef     `json:"tracks"`
}

// TracksRef is the link-plus-count reference embedded in playlists.
type TracksRef struct {
	Href  string `json:"href"`
	Total int    `json:"total"`
}

// SearchResult wraps the per-type pages of a search response. Only the
// pages for the requested types are populated.
type SearchResult struct {
	Artists   *pagination.Page[Artist]             `json:"artists,omitempty"`
	Albums    *pagination.Page[SimplifiedAlbum]    `json:"albums,omitempty"`
	Tracks    *pagination.Page[Track]              `json:"tracks,omitempty"`
	Playlists *pagination.Page[SimplifiedPlaylist] `json:"playlists,omitempty"`
}
