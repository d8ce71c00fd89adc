// Package entity defines the entities and errors shared by the shortening engine
// and its adapters. It includes the ShortLink struct, which maps a short code to
// an original URL together with its hit counter and timestamps.
package entity

import (
	"errors"
	"time"
)

var (
	// ErrInvalidURL is returned when the submitted URL is blank or malformed.
	ErrInvalidURL = errors.New("invalid url")
	// ErrShortLinkNotFound is returned when no short link matches the lookup key.
	ErrShortLinkNotFound = errors.New("short link not found")
	// ErrShortCodeExists is returned by a store when the short code is already taken.
	ErrShortCodeExists = errors.New("short code exists")
	// ErrOriginalURLExists is returned by a store when the original URL is already shortened.
	ErrOriginalURLExists = errors.New("original url exists")
)

// ShortLink represents a shortened URL.
type ShortLink struct {
	ID          int64     // ID is the store-assigned identifier.
	ShortCode   string    // ShortCode is the generated code the original URL is reachable under.
	OriginalURL string    // OriginalURL is the normalized absolute URL the code resolves to.
	HitCount    int64     // HitCount is the number of successful resolutions.
	CreatedAt   time.Time // CreatedAt is the timestamp when the link was created.
	UpdatedAt   time.Time // UpdatedAt is the timestamp of the last mutation.
}

// Clone returns a copy of the link that shares no state with the receiver.
func (l *ShortLink) Clone() *ShortLink {
	if l == nil {
		return nil
	}

	clone := *l
	return &clone
}
