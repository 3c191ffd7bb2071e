package api

import (
	"github.com/postlens/postlens/app/database"
	"github.com/postlens/postlens/app/post"
	"github.com/postlens/postlens/app/scraper"
	"github.com/postlens/postlens/app/tasks"
)

type AggregatorInterface interface {
	Run(posts []post.Post) post.AggregateView
}

var _ AggregatorInterface = (*post.Aggregator)(nil)

type Handler struct {
	sourceRepo    database.SourceRepository
	postRepo      database.PostRepository
	aggregator    AggregatorInterface
	configCache   *post.ConfigCache
	normalizer    *post.Normalizer
	scraperClient *scraper.Client
	scheduler     tasks.TaskSchedulerInterface
}
