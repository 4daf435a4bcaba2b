// Package entity defines the entities and errors used in the application.
// It includes the URL record a short code resolves to, the click events
// recorded for it, and the errors shared by every layer.
package entity

import (
	"errors"
	"time"
)

var (
	// ErrShortCodeExists is returned when attempting to create a URL with a short code that already exists.
	ErrShortCodeExists = errors.New("short code exists")
	// ErrURLNotFound is returned when a URL with the specified short code cannot be found.
	ErrURLNotFound = errors.New("url not found")
	// ErrGenerationExhausted is returned when no unique short code could be produced within the retry bound.
	ErrGenerationExhausted = errors.New("short code generation exhausted")
	// ErrPersistence wraps failures of the underlying storage.
	ErrPersistence = errors.New("persistence error")
)

// URL represents a shortened URL.
type URL struct {
	ID          int64     // ID is the unique identifier of the URL in the database.
	ShortCode   string    // ShortCode is the generated code used to shorten the original URL.
	OriginalURL string    // OriginalURL is the full URL that the short code resolves to.
	CreatedAt   time.Time // CreatedAt is the timestamp when the URL was created.
}

// URLStats contains the click statistics of a shortened URL.
type URLStats struct {
	URL
	ClickCount   int64   // ClickCount is the total number of recorded clicks.
	RecentClicks []Click // RecentClicks holds the latest clicks, most recent first.
}
