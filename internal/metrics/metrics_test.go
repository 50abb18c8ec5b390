package metrics

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alvmarrod/wiki-weaver/internal/storage"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_Sessions(t *testing.T) {
	tracker := NewTracker()
	before := testutil.ToFloat64(SessionsTotal.WithLabelValues(OutcomeExhausted))

	tracker.RecordSession(OutcomeAllFound, 10, 4, 2, time.Second)
	tracker.RecordSession(OutcomeExhausted, 3, 3, 0, time.Second)
	tracker.RecordSession(OutcomeFailed, 1, 0, 0, time.Second)

	snap := tracker.GetSnapshot()
	assert.Equal(t, 3, snap.SessionsStarted)
	assert.Equal(t, 1, snap.SessionsFound)
	assert.Equal(t, 1, snap.SessionsExhausted)
	assert.Equal(t, 1, snap.SessionsFailed)
	assert.Equal(t, 14, snap.ArticlesVisited)
	assert.Equal(t, 7, snap.NewArticles)
	assert.Equal(t, 2, snap.PathsFound)

	assert.Equal(t, before+1, testutil.ToFloat64(SessionsTotal.WithLabelValues(OutcomeExhausted)))
	assert.Contains(t, tracker.LogProgress(), "Sessions: 3 (1 found, 1 exhausted, 1 failed)")
}

func TestTracker_FetchAverage(t *testing.T) {
	tracker := NewTracker()

	tracker.RecordFetch(1, 0, 100*time.Millisecond)
	tracker.RecordFetch(0, 1, 300*time.Millisecond)

	snap := tracker.GetSnapshot()
	assert.Equal(t, 1, snap.PagesFetched)
	assert.Equal(t, 1, snap.PagesFailed)
	assert.Equal(t, int64(400), snap.TotalFetchTimeMs)
	assert.Equal(t, int64(200), snap.AvgFetchTimeMs)
}

func TestTracker_WriteToFile(t *testing.T) {
	tracker := NewTracker()
	tracker.RecordSession(OutcomeAllFound, 5, 5, 1, time.Second)

	path := filepath.Join(t.TempDir(), "metrics.json")
	require.NoError(t, tracker.WriteToFile(path, "signal"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var got storage.Metrics
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "signal", got.TerminationReason)
	assert.Equal(t, 1, got.SessionsFound)
	assert.False(t, got.EndTime.Before(got.StartTime))
}
