package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/postlens/postlens/app/post"
)

// PostRepositoryImpl handles database operations for stored posts
type PostRepositoryImpl struct {
	db *DB
}

var _ PostRepository = (*PostRepositoryImpl)(nil)

func NewPostRepository(db *DB) *PostRepositoryImpl {
	return &PostRepositoryImpl{db: db}
}

// UpsertPost stores a normalized post together with its raw record. A
// re-scrape of the same post refreshes the engagement counters and raw data
// in place instead of creating a duplicate row.
func (r *PostRepositoryImpl) UpsertPost(sourceName string, p post.Post, rawData string) error {
	_, err := r.db.Exec(`
		INSERT INTO posts (
			id, source_name, post_id, media_kind, caption, url, posted_at,
			likes, comments, hashtag_count, mention_count, tagged_user_count,
			has_music, owner_username, owner_id, owner_full_name, raw_data
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_name, post_id) DO UPDATE SET
			media_kind = excluded.media_kind,
			caption = excluded.caption,
			url = excluded.url,
			posted_at = excluded.posted_at,
			likes = excluded.likes,
			comments = excluded.comments,
			hashtag_count = excluded.hashtag_count,
			mention_count = excluded.mention_count,
			tagged_user_count = excluded.tagged_user_count,
			has_music = excluded.has_music,
			owner_username = excluded.owner_username,
			owner_id = excluded.owner_id,
			owner_full_name = excluded.owner_full_name,
			raw_data = excluded.raw_data
	`, uuid.NewString(), sourceName, p.ID, string(p.MediaKind), p.Caption, p.URL,
		nullableTime(p.PostedAt), p.Likes, p.Comments, p.HashtagCount,
		p.MentionCount, p.TaggedUserCount, p.HasMusic, p.OwnerUsername,
		p.OwnerID, p.OwnerFullName, rawData)

	if err != nil {
		return fmt.Errorf("failed to upsert post: %w", err)
	}

	return nil
}

// GetPosts returns up to limit posts for a source, newest first. Posts
// without a timestamp sort after dated ones by their insertion time.
func (r *PostRepositoryImpl) GetPosts(sourceName string, limit int) ([]Post, error) {
	rows, err := r.db.Query(postSelect+`
		WHERE source_name = ?
		ORDER BY posted_at IS NULL, posted_at DESC, created_at DESC
		LIMIT ?
	`, sourceName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get posts: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// GetAllPosts returns every stored post for a source, used by rebuilds.
func (r *PostRepositoryImpl) GetAllPosts(sourceName string) ([]Post, error) {
	rows, err := r.db.Query(postSelect+`
		WHERE source_name = ?
		ORDER BY posted_at IS NULL, posted_at DESC, created_at DESC
	`, sourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to get all posts: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

func (r *PostRepositoryImpl) GetPostCount(sourceName string) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM posts WHERE source_name = ?", sourceName).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get post count: %w", err)
	}
	return count, nil
}

// GetPostStats returns totals for a source: all posts, posts with a
// timestamp, and posts without one.
func (r *PostRepositoryImpl) GetPostStats(sourceName string) (total, dated, undated int, err error) {
	err = r.db.QueryRow(`
		SELECT
			COUNT(*) as total,
			COALESCE(SUM(CASE WHEN posted_at IS NOT NULL THEN 1 ELSE 0 END), 0) as dated,
			COALESCE(SUM(CASE WHEN posted_at IS NULL THEN 1 ELSE 0 END), 0) as undated
		FROM posts
		WHERE source_name = ?
	`, sourceName).Scan(&total, &dated, &undated)

	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to get post stats: %w", err)
	}

	return total, dated, undated, nil
}

// GetRawRecords returns the stored raw records for a source in the same
// order GetPosts serves them, for archive export.
func (r *PostRepositoryImpl) GetRawRecords(sourceName string) ([]any, error) {
	rows, err := r.db.Query(`
		SELECT raw_data
		FROM posts
		WHERE source_name = ?
		ORDER BY posted_at IS NULL, posted_at DESC, created_at DESC
	`, sourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to get raw records: %w", err)
	}
	defer rows.Close()

	records := make([]any, 0)
	for rows.Next() {
		var rawData string
		if err := rows.Scan(&rawData); err != nil {
			return nil, fmt.Errorf("failed to scan raw record: %w", err)
		}

		var record any
		if err := json.Unmarshal([]byte(rawData), &record); err != nil {
			return nil, fmt.Errorf("failed to decode raw record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating raw records: %w", err)
	}

	return records, nil
}

// UpdateNormalized rewrites the normalized columns of a stored post,
// leaving the raw record untouched. Used after classification rules change.
func (r *PostRepositoryImpl) UpdateNormalized(postRowID string, p post.Post) error {
	_, err := r.db.Exec(`
		UPDATE posts
		SET media_kind = ?, caption = ?, url = ?, posted_at = ?,
		    likes = ?, comments = ?, hashtag_count = ?, mention_count = ?,
		    tagged_user_count = ?, has_music = ?,
		    owner_username = ?, owner_id = ?, owner_full_name = ?
		WHERE id = ?
	`, string(p.MediaKind), p.Caption, p.URL, nullableTime(p.PostedAt),
		p.Likes, p.Comments, p.HashtagCount, p.MentionCount,
		p.TaggedUserCount, p.HasMusic, p.OwnerUsername, p.OwnerID,
		p.OwnerFullName, postRowID)

	if err != nil {
		return fmt.Errorf("failed to update normalized post: %w", err)
	}

	return nil
}

const postSelect = `
	SELECT id, source_name, post_id, media_kind, COALESCE(caption, ''),
	       COALESCE(url, ''), posted_at, likes, comments, hashtag_count,
	       mention_count, tagged_user_count, has_music,
	       COALESCE(owner_username, ''), COALESCE(owner_id, ''),
	       COALESCE(owner_full_name, ''), raw_data, created_at
	FROM posts
`

func scanPosts(rows *sql.Rows) ([]Post, error) {
	var posts []Post
	for rows.Next() {
		var p Post
		var mediaKind string
		var postedAt sql.NullTime

		err := rows.Scan(
			&p.ID, &p.SourceName, &p.Canonical.ID, &mediaKind,
			&p.Canonical.Caption, &p.Canonical.URL, &postedAt,
			&p.Canonical.Likes, &p.Canonical.Comments,
			&p.Canonical.HashtagCount, &p.Canonical.MentionCount,
			&p.Canonical.TaggedUserCount, &p.Canonical.HasMusic,
			&p.Canonical.OwnerUsername, &p.Canonical.OwnerID,
			&p.Canonical.OwnerFullName, &p.RawData, &p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}

		p.Canonical.MediaKind = post.MediaKind(mediaKind)
		if postedAt.Valid {
			t := postedAt.Time.UTC()
			p.Canonical.PostedAt = &t
		}
		posts = append(posts, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}

	return posts, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
