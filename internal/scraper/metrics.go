package scraper

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// sideMissionsTotal tracks per-item outcomes, labeled by policy and result.
	sideMissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvester_side_missions_total",
		Help: "Total number of side-missions processed, labeled by policy and result.",
	}, []string{"policy", "result"})
	// batchesTotal tracks the number of batches driven to completion.
	batchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_batches_total",
		Help: "The total number of scrape batches processed.",
	})
	// commentsScrapedTotal tracks the number of comments persisted.
	commentsScrapedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_comments_scraped_total",
		Help: "The total number of comments scraped and saved.",
	})
	// discoveredURLsTotal tracks unique URLs found during discovery.
	discoveredURLsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_discovered_urls_total",
		Help: "The total number of unique video URLs discovered.",
	})
)
