package tasks

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application and the API handlers to manage background
// processing of sources.
// Example usage:
//
//	scheduler := NewScheduler(configCache, sourceRepo, postRepo, scraperClient, normalizer)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewScrapeSourceTask(...))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
