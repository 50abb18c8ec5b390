package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/alvmarrod/wiki-weaver/internal/storage"
)

// Session outcome labels
const (
	OutcomeAllFound  = "all_found"
	OutcomeExhausted = "exhausted"
	OutcomeFailed    = "failed"
)

// Tracker holds and manages run metrics. Every update is mirrored to the
// Prometheus collectors.
type Tracker struct {
	mu               sync.Mutex
	data             storage.Metrics
	totalFetchTimeMs int64
	fetchCount       int
}

// NewTracker creates a new metrics tracker
func NewTracker() *Tracker {
	return &Tracker{
		data: storage.Metrics{
			StartTime: time.Now(),
		},
	}
}

// RecordFetch records the result of page requests. It matches the crawler's
// fetch callback.
func (t *Tracker) RecordFetch(fetched, failed int, elapsed time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.data.PagesFetched += fetched
	t.data.PagesFailed += failed
	t.totalFetchTimeMs += elapsed.Milliseconds()
	t.fetchCount += fetched + failed

	PagesFetchedTotal.WithLabelValues("ok").Add(float64(fetched))
	PagesFetchedTotal.WithLabelValues("failed").Add(float64(failed))
	FetchDuration.Observe(elapsed.Seconds())
}

// RecordSession records one finished search session
func (t *Tracker) RecordSession(outcome string, visited, newArticles, pathsFound int, elapsed time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.data.SessionsStarted++
	switch outcome {
	case OutcomeAllFound:
		t.data.SessionsFound++
	case OutcomeExhausted:
		t.data.SessionsExhausted++
	default:
		t.data.SessionsFailed++
	}
	t.data.ArticlesVisited += visited
	t.data.NewArticles += newArticles
	t.data.PathsFound += pathsFound

	SessionsTotal.WithLabelValues(outcome).Inc()
	SessionDuration.Observe(elapsed.Seconds())
	ArticlesVisitedTotal.Add(float64(visited))
	NewArticlesTotal.Add(float64(newArticles))
	PathsFoundTotal.Add(float64(pathsFound))
}

// SetBacklogDepth publishes the current backlog length
func (t *Tracker) SetBacklogDepth(n int) {
	BacklogDepth.Set(float64(n))
}

// GetSnapshot returns a copy of current metrics
func (t *Tracker) GetSnapshot() storage.Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := t.data
	snapshot.TotalFetchTimeMs = t.totalFetchTimeMs
	if t.fetchCount > 0 {
		snapshot.AvgFetchTimeMs = t.totalFetchTimeMs / int64(t.fetchCount)
	}
	return snapshot
}

// WriteToFile exports metrics to a JSON file
func (t *Tracker) WriteToFile(path, reason string) error {
	t.mu.Lock()
	t.data.EndTime = time.Now()
	t.data.TerminationReason = reason
	t.mu.Unlock()

	jsonData, err := json.MarshalIndent(t.GetSnapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}

// LogProgress formats current metrics for periodic log lines
func (t *Tracker) LogProgress() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return fmt.Sprintf("Sessions: %d (%d found, %d exhausted, %d failed) | Articles: %d visited, %d new | Paths: %d | Pages: %d fetched, %d failed",
		t.data.SessionsStarted,
		t.data.SessionsFound,
		t.data.SessionsExhausted,
		t.data.SessionsFailed,
		t.data.ArticlesVisited,
		t.data.NewArticles,
		t.data.PathsFound,
		t.data.PagesFetched,
		t.data.PagesFailed,
	)
}
