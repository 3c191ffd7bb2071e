package database

import (
	"time"

	"github.com/postlens/postlens/app/post"
)

type Source struct {
	ID              string // Database UUID
	Name            string // Configuration source identifier derived from filename
	URL             string // Profile URL from configuration
	ProfileUsername string // Owner username observed during the last scrape
	LastFetchedAt   *time.Time
	NextFetchAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time // Tracks last successful processing
}

// Post is a stored post row: the canonical record plus bookkeeping columns.
// RawData keeps the original scraped record verbatim so the normalizer can
// be re-run over it and the archive export can reproduce it exactly.
type Post struct {
	ID         string // Database UUID
	SourceName string
	Canonical  post.Post
	RawData    string
	CreatedAt  time.Time
}
