package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SourceRepositoryImpl handles database operations for sources
type SourceRepositoryImpl struct {
	db *DB
}

var _ SourceRepository = (*SourceRepositoryImpl)(nil)

func NewSourceRepository(db *DB) *SourceRepositoryImpl {
	return &SourceRepositoryImpl{db: db}
}

// UpsertSource inserts or updates a source registration from its config.
func (r *SourceRepositoryImpl) UpsertSource(sourceName, url string) error {
	_, err := r.db.Exec(`
		INSERT INTO sources (id, name, url)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			url = excluded.url,
			updated_at = CURRENT_TIMESTAMP
	`, uuid.NewString(), sourceName, url)

	if err != nil {
		return fmt.Errorf("failed to upsert source: %w", err)
	}

	return nil
}

func (r *SourceRepositoryImpl) GetSource(sourceName string) (*Source, error) {
	var source Source
	var lastFetchedAt, nextFetchAt sql.NullTime

	err := r.db.QueryRow(`
		SELECT id, name, url, COALESCE(profile_username, ''),
		       last_fetched_at, next_fetch_at, created_at, updated_at
		FROM sources
		WHERE name = ?
	`, sourceName).Scan(
		&source.ID, &source.Name, &source.URL, &source.ProfileUsername,
		&lastFetchedAt, &nextFetchAt, &source.CreatedAt, &source.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}

	if lastFetchedAt.Valid {
		source.LastFetchedAt = &lastFetchedAt.Time
	}
	if nextFetchAt.Valid {
		source.NextFetchAt = &nextFetchAt.Time
	}

	return &source, nil
}

func (r *SourceRepositoryImpl) GetSourceCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM sources").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get source count: %w", err)
	}
	return count, nil
}

// UpdateSourceFetched records a successful scrape: the observed profile
// username, the fetch time, and when the source is next due.
func (r *SourceRepositoryImpl) UpdateSourceFetched(sourceName, profileUsername string, nextFetch time.Time) error {
	_, err := r.db.Exec(`
		UPDATE sources
		SET profile_username = CASE WHEN ? != '' THEN ? ELSE profile_username END,
		    last_fetched_at = CURRENT_TIMESTAMP,
		    next_fetch_at = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE name = ?
	`, profileUsername, profileUsername, nextFetch.UTC(), sourceName)

	if err != nil {
		return fmt.Errorf("failed to update source fetch state: %w", err)
	}

	return nil
}
