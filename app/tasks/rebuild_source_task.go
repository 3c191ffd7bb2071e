package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/postlens/postlens/app/database"
	"github.com/postlens/postlens/app/post"
)

// RebuildSourceTask re-runs the normalizer over a source's stored raw
// records and rewrites the normalized columns. Used after the
// classification rules or field extraction change, so stored posts pick up
// the new behavior without a re-scrape.
type RebuildSourceTask struct {
	Task
	SourceConfig *post.Config
	normalizer   *post.Normalizer
	postRepo     database.PostRepository
}

func NewRebuildSourceTask(sourceName string, sourceConfig *post.Config, normalizer *post.Normalizer, postRepo database.PostRepository) *RebuildSourceTask {
	return &RebuildSourceTask{
		Task:         NewTask(TaskTypeRebuildSource, sourceName),
		SourceConfig: sourceConfig,
		normalizer:   normalizer,
		postRepo:     postRepo,
	}
}

func (t *RebuildSourceTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	rows, err := t.postRepo.GetAllPosts(t.SourceName)
	if err != nil {
		return fmt.Errorf("failed to get source posts: %w", err)
	}

	updatedCount := 0
	errorCount := 0

	for _, row := range rows {
		var raw map[string]any
		if err := json.Unmarshal([]byte(row.RawData), &raw); err != nil {
			slog.Error("Failed to decode stored raw record", "post_row_id", row.ID, "error", err)
			errorCount++
			continue
		}

		normalized := t.normalizer.Normalize(post.RawPost(raw))
		if normalized.ID == "" {
			// Keep the storage key stable for rows stored under a url
			// fallback id.
			normalized.ID = row.Canonical.ID
		}

		if err := t.postRepo.UpdateNormalized(row.ID, normalized); err != nil {
			slog.Error("Failed to update normalized post", "post_row_id", row.ID, "error", err)
			errorCount++
		} else {
			updatedCount++
		}
	}

	slog.Info("Task completed",
		"type", "RebuildSource",
		"source", t.SourceName,
		"duration", t.GetDuration(),
		"success", updatedCount,
		"errors", errorCount)

	return nil
}
