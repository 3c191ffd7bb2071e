package tasks

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/postlens/postlens/app/database"
	"github.com/postlens/postlens/app/post"
	"github.com/postlens/postlens/app/scraper"
)

type ScrapeSourceTask struct {
	Task
	SourceConfig  *post.Config
	scraperClient *scraper.Client
	normalizer    *post.Normalizer
	sourceRepo    database.SourceRepository
	postRepo      database.PostRepository
}

func NewScrapeSourceTask(sourceName string, sourceConfig *post.Config, scraperClient *scraper.Client, normalizer *post.Normalizer, sourceRepo database.SourceRepository, postRepo database.PostRepository) *ScrapeSourceTask {
	return &ScrapeSourceTask{
		Task:          NewTask(TaskTypeScrapeSource, sourceName),
		SourceConfig:  sourceConfig,
		scraperClient: scraperClient,
		normalizer:    normalizer,
		sourceRepo:    sourceRepo,
		postRepo:      postRepo,
	}
}

func (t *ScrapeSourceTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.SourceConfig.Settings.Enabled {
		slog.Debug("Source disabled, skipping", "source", t.SourceName)
		return nil
	}

	records, err := t.fetchRecords(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch records: %w", err)
	}

	if records == nil {
		slog.Info("Task completed",
			"type", "ScrapeSource",
			"source", t.SourceName,
			"duration", t.GetDuration(),
			"total", 0,
			"note", "no scraper endpoint and no archive configured")
		return nil
	}

	posts, skipped, err := t.normalizer.Run(records)
	if err != nil {
		return fmt.Errorf("failed to normalize records: %w", err)
	}

	// posts align index-for-index with the records the normalizer accepted.
	valid := make([]any, 0, len(records))
	for _, record := range records {
		if _, ok := record.(map[string]any); ok {
			valid = append(valid, record)
		}
	}

	storedCount := 0
	anonymousCount := 0
	profileUsername := ""

	for i, p := range posts {
		// Fall back to the post URL as the storage key when the id is
		// missing, mirroring how the raw sources themselves identify posts.
		storageID := cmp.Or(p.ID, p.URL)
		if storageID == "" {
			anonymousCount++
			slog.Debug("Skipping post with no id and no url", "source", t.SourceName, "index", i)
			continue
		}
		p.ID = storageID

		rawData, err := json.Marshal(valid[i])
		if err != nil {
			return fmt.Errorf("failed to encode raw record: %w", err)
		}

		if err := t.postRepo.UpsertPost(t.SourceName, p, string(rawData)); err != nil {
			return fmt.Errorf("failed to store post: %w", err)
		}
		storedCount++

		if profileUsername == "" {
			profileUsername = p.OwnerUsername
		}
	}

	now := time.Now().UTC()
	nextFetch := now.Add(time.Duration(t.SourceConfig.Settings.RefreshInterval) * time.Second)
	if err := t.sourceRepo.UpdateSourceFetched(t.SourceName, profileUsername, nextFetch); err != nil {
		return fmt.Errorf("failed to update source fetch state: %w", err)
	}

	slog.Info("Task completed",
		"type", "ScrapeSource",
		"source", t.SourceName,
		"duration", t.GetDuration(),
		"total", len(records),
		"skipped", skipped,
		"anonymous", anonymousCount,
		"stored", storedCount)

	return nil
}

// fetchRecords prefers the configured scraper endpoint and falls back to the
// source's local archive. A nil result with nil error means neither is
// configured: a valid no-data state, not a failure.
func (t *ScrapeSourceTask) fetchRecords(ctx context.Context) ([]any, error) {
	if t.scraperClient.Enabled() {
		timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(t.SourceConfig.Settings.Timeout)*time.Second)
		defer cancel()

		return t.scraperClient.FetchPosts(timeoutCtx, t.SourceConfig.URL, t.SourceConfig.Settings.ResultsLimit)
	}

	if t.SourceConfig.Archive != "" {
		return post.LoadArchive(t.SourceConfig.Archive)
	}

	return nil, nil
}
