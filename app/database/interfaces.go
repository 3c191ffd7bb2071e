package database

import (
	"time"

	"github.com/postlens/postlens/app/post"
)

type SourceRepository interface {
	GetSource(sourceName string) (*Source, error)
	GetSourceCount() (int, error)

	UpsertSource(sourceName, url string) error
	UpdateSourceFetched(sourceName, profileUsername string, nextFetch time.Time) error
}

type PostRepository interface {
	GetPosts(sourceName string, limit int) ([]Post, error)
	GetAllPosts(sourceName string) ([]Post, error)
	GetPostCount(sourceName string) (int, error)
	GetPostStats(sourceName string) (total, dated, undated int, err error)
	GetRawRecords(sourceName string) ([]any, error)

	UpsertPost(sourceName string, p post.Post, rawData string) error
	UpdateNormalized(postRowID string, p post.Post) error
}
