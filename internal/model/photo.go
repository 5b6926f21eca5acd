// Package model defines the data structures used throughout the application.
//
// Two kinds of struct live here:
//   - wire records (PhotoResult, ProfileResult, ...) mirror the photo API's
//     snake_case JSON exactly and are never kept after conversion;
//   - domain values (Photo, Profile) are what services store and hand out.
package model

import "time"

// Size is a photo's pixel dimensions.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Photo is one entry of the feed.
//
// Identity is ID; every other field may be replaced by a later update.
// A Photo is a value: updates build a new Photo (see WithLiked) and replace
// the old one at the same position, fields are never mutated in place.
//
// WHY time.Time AND string INSTEAD OF POINTERS?
// CreatedAt and Description are optional upstream. A zero time and an empty
// string already mean "absent" and are simpler to pass around than nil
// pointers; CreatedAt.IsZero() is the presence check.
type Photo struct {
	ID          string    `json:"id"`
	Size        Size      `json:"size"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
	Description string    `json:"description,omitempty"`
	ThumbURL    string    `json:"thumbUrl"`
	FullURL     string    `json:"fullUrl"`
	IsLiked     bool      `json:"isLiked"`
}

// WithLiked returns a copy of p with IsLiked set to liked.
func (p Photo) WithLiked(liked bool) Photo {
	p.IsLiked = liked
	return p
}

// PhotoResult is one element of the GET /photos response.
type PhotoResult struct {
	ID          string    `json:"id"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	CreatedAt   string    `json:"created_at"`
	Description string    `json:"description"`
	URLs        PhotoURLs `json:"urls"`
	LikedByUser bool      `json:"liked_by_user"`
}

// PhotoURLs holds the rendition URLs we use.
type PhotoURLs struct {
	Thumb string `json:"thumb"`
	Full  string `json:"full"`
}

// Photo converts the wire record into a domain Photo.
// An absent or unparsable created_at yields a zero CreatedAt.
func (r PhotoResult) Photo() Photo {
	return Photo{
		ID:          r.ID,
		Size:        Size{Width: r.Width, Height: r.Height},
		CreatedAt:   parseTimestamp(r.CreatedAt),
		Description: r.Description,
		ThumbURL:    r.URLs.Thumb,
		FullURL:     r.URLs.Full,
		IsLiked:     r.LikedByUser,
	}
}

// parseTimestamp accepts ISO-8601 timestamps with an offset, e.g.
// "2016-05-03T11:00:28-04:00".
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// NoIndex marks a FeedChange that is not a single-item update.
const NoIndex = -1

// FeedChange is published by the feed whenever its collection changes.
//
// Appended is the number of photos added at the tail by a page fetch.
// Index is the position of a single replaced photo (like toggle), or NoIndex.
// Cleared is set when the whole collection was dropped (logout).
type FeedChange struct {
	Appended int  `json:"appended"`
	Index    int  `json:"index"`
	Cleared  bool `json:"cleared,omitempty"`
}
