package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/postlens/postlens/app/database"
	"github.com/postlens/postlens/app/post"
	"github.com/postlens/postlens/app/scraper"
	"github.com/postlens/postlens/app/tasks"
)

func NewHandler(configCache *post.ConfigCache, sourceRepo database.SourceRepository,
	postRepo database.PostRepository, normalizer *post.Normalizer,
	scraperClient *scraper.Client, scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		sourceRepo:    sourceRepo,
		postRepo:      postRepo,
		aggregator:    post.NewAggregator(),
		configCache:   configCache,
		normalizer:    normalizer,
		scraperClient: scraperClient,
		scheduler:     scheduler,
	}
}

// GetDashboard serves everything the rendering layer needs in one fetch:
// the canonical posts plus every derived series. An empty store yields
// empty series with HTTP 200, which the renderer shows as its "no data
// available" placeholder.
func (h *Handler) GetDashboard(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	sourceConfig, source, ok := h.lookupSource(c, name)
	if !ok {
		return
	}

	posts, err := h.canonicalPosts(c, name, sourceConfig.Settings.MaxPosts)
	if err != nil {
		return
	}

	view := h.aggregator.Run(posts)

	c.Header("X-Post-Count", strconv.Itoa(len(posts)))
	c.JSON(http.StatusOK, gin.H{
		"source": gin.H{
			"name":             source.Name,
			"url":              source.URL,
			"profile_username": source.ProfileUsername,
			"last_fetched_at":  source.LastFetchedAt,
		},
		"posts":        posts,
		"aggregate":    view,
		"generated_at": time.Now().UTC().Format(time.RFC3339),
	})
}

// GetDashboardPosts serves only the canonical post sequence.
func (h *Handler) GetDashboardPosts(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	sourceConfig, _, ok := h.lookupSource(c, name)
	if !ok {
		return
	}

	posts, err := h.canonicalPosts(c, name, sourceConfig.Settings.MaxPosts)
	if err != nil {
		return
	}

	c.Header("X-Post-Count", strconv.Itoa(len(posts)))
	c.JSON(http.StatusOK, gin.H{
		"posts": posts,
		"total": len(posts),
	})
}

// ExportDashboard serves the stored raw records in the persisted archive
// layout, so the export can be re-imported and normalized to identical
// posts.
func (h *Handler) ExportDashboard(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	if _, _, ok := h.lookupSource(c, name); !ok {
		return
	}

	records, err := h.postRepo.GetRawRecords(name)
	if err != nil {
		slog.Error("Database error", "operation", "get_raw_records", "source", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("X-Post-Count", strconv.Itoa(len(records)))
	c.JSON(http.StatusOK, records)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if sourceCount, err := h.sourceRepo.GetSourceCount(); err == nil {
		health["sources"] = sourceCount
	}

	health["loaded_configurations"] = h.configCache.GetConfigCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{
		"loaded_configurations": h.configCache.GetConfigCount(),
		"scraper_enabled":       h.scraperClient.Enabled(),
	}

	if sourceCount, err := h.sourceRepo.GetSourceCount(); err == nil {
		stats["sources"] = sourceCount
	}

	sources := make([]map[string]interface{}, 0)
	for name := range h.configCache.GetConfigs() {
		if total, dated, undated, err := h.postRepo.GetPostStats(name); err == nil {
			sources = append(sources, map[string]interface{}{
				"name":    name,
				"total":   total,
				"dated":   dated,
				"undated": undated,
			})
		}
	}
	stats["posts"] = sources

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APIListSources(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	sources := make([]map[string]interface{}, 0, len(configs))

	for _, sourceConfig := range configs {
		sourceInfo := map[string]interface{}{
			"name":             sourceConfig.Name,
			"url":              sourceConfig.URL,
			"enabled":          sourceConfig.Settings.Enabled,
			"max_posts":        sourceConfig.Settings.MaxPosts,
			"refresh_interval": (time.Duration(sourceConfig.Settings.RefreshInterval) * time.Second).String(),
		}

		if source, err := h.sourceRepo.GetSource(sourceConfig.Name); err == nil && source != nil {
			sourceInfo["profile_username"] = source.ProfileUsername
			sourceInfo["last_fetched_at"] = source.LastFetchedAt
			sourceInfo["next_fetch_at"] = source.NextFetchAt
			sourceInfo["updated_at"] = source.UpdatedAt
		}

		if postCount, err := h.postRepo.GetPostCount(sourceConfig.Name); err == nil {
			sourceInfo["post_count"] = postCount
		}

		sources = append(sources, sourceInfo)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"sources": sources,
		"total":   len(sources),
	})
}

func (h *Handler) APIGetSourceDetails(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing source name parameter"})
		return
	}

	sourceConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Source configuration not found", "source", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Source configuration not found"})
		return
	}

	source, err := h.sourceRepo.GetSource(name)
	if err != nil {
		slog.Error("Database error", "operation", "get_source", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if source == nil {
		slog.Error("Source not found in database", "source", name)
		c.JSON(http.StatusNotFound, gin.H{"error": "Source not found in database"})
		return
	}

	details := map[string]interface{}{
		"name":             name,
		"url":              sourceConfig.URL,
		"archive":          sourceConfig.Archive,
		"enabled":          sourceConfig.Settings.Enabled,
		"max_posts":        sourceConfig.Settings.MaxPosts,
		"results_limit":    sourceConfig.Settings.ResultsLimit,
		"refresh_interval": (time.Duration(sourceConfig.Settings.RefreshInterval) * time.Second).String(),
		"timeout":          (time.Duration(sourceConfig.Settings.Timeout) * time.Second).String(),
	}

	details["database"] = map[string]interface{}{
		"id":               source.ID,
		"name":             source.Name,
		"profile_username": source.ProfileUsername,
		"last_fetched_at":  source.LastFetchedAt,
		"next_fetch_at":    source.NextFetchAt,
		"created_at":       source.CreatedAt,
		"updated_at":       source.UpdatedAt,
	}

	if total, dated, undated, err := h.postRepo.GetPostStats(name); err == nil {
		details["posts"] = map[string]interface{}{
			"total":   total,
			"dated":   dated,
			"undated": undated,
		}
	}

	c.JSON(http.StatusOK, details)
}

// APIRefreshSource reloads the source's configuration and enqueues a sync
// plus a fresh scrape.
func (h *Handler) APIRefreshSource(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing source name parameter"})
		return
	}

	if _, err := h.configCache.GetConfig(name); err != nil {
		slog.Error("Source configuration not found", "source", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Source configuration not found"})
		return
	}

	sourceConfig, err := h.configCache.LoadConfig(name)
	if err != nil {
		slog.Error("Error reloading configuration", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to reload configuration",
			"details": err.Error(),
		})
		return
	}

	syncTask := tasks.NewSyncSourceConfigTask(name, sourceConfig, h.sourceRepo)
	if err := h.scheduler.EnqueueTask(syncTask); err != nil {
		slog.Error("Error enqueueing sync task", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue sync task",
			"details": err.Error(),
		})
		return
	}

	scrapeTask := tasks.NewScrapeSourceTask(name, sourceConfig, h.scraperClient, h.normalizer, h.sourceRepo, h.postRepo)
	if err := h.scheduler.EnqueueTask(scrapeTask); err != nil {
		slog.Error("Error enqueueing scrape task", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue scrape task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Configuration reloaded and tasks enqueued successfully",
		"source": gin.H{
			"name": name,
			"url":  sourceConfig.URL,
		},
		"tasks": []gin.H{
			{
				"id":   syncTask.ID,
				"type": syncTask.Type,
			},
			{
				"id":   scrapeTask.ID,
				"type": scrapeTask.Type,
			},
		},
	})
}

// APIRebuildSource enqueues a re-normalization of the source's stored raw
// records.
func (h *Handler) APIRebuildSource(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing source name parameter"})
		return
	}

	sourceConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Source configuration not found", "source", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Source configuration not found"})
		return
	}

	rebuildTask := tasks.NewRebuildSourceTask(name, sourceConfig, h.normalizer, h.postRepo)
	if err := h.scheduler.EnqueueTask(rebuildTask); err != nil {
		slog.Error("Error enqueueing rebuild task", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue rebuild task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Rebuild task enqueued successfully",
		"task": gin.H{
			"id":   rebuildTask.ID,
			"type": rebuildTask.Type,
		},
	})
}

func (h *Handler) lookupSource(c *gin.Context, name string) (*post.Config, *database.Source, bool) {
	sourceConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Source configuration not found", "source", name, "error", err)
		c.Status(http.StatusNotFound)
		return nil, nil, false
	}

	source, err := h.sourceRepo.GetSource(name)
	if err != nil {
		slog.Error("Database error", "operation", "get_source", "source", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return nil, nil, false
	}

	if source == nil {
		slog.Error("Source not found in database", "source", name)
		c.Status(http.StatusNotFound)
		return nil, nil, false
	}

	return sourceConfig, source, true
}

func (h *Handler) canonicalPosts(c *gin.Context, name string, limit int) ([]post.Post, error) {
	rows, err := h.postRepo.GetPosts(name, limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_posts", "source", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return nil, err
	}

	posts := make([]post.Post, 0, len(rows))
	for _, row := range rows {
		posts = append(posts, row.Canonical)
	}
	return posts, nil
}
