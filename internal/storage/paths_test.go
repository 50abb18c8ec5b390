package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSavePath_FirstFoundWins(t *testing.T) {
	store := newTestStorage(t)

	saved, err := store.SavePath([]string{"A", "B", "D"}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, saved)

	saved, err = store.SavePath([]string{"A", "C", "D"}, false)
	require.NoError(t, err)
	assert.Equal(t, 0, saved)

	path, err := store.Path("A", "D")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "D"}, path)

	report, err := store.Report()
	require.NoError(t, err)
	assert.Equal(t, 1, report.Paths)
}

func TestSavePath_RejectsShortPaths(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.SavePath([]string{"A"}, false)
	assert.ErrorIs(t, err, ErrPathTooShort)

	_, err = store.SavePath(nil, true)
	assert.ErrorIs(t, err, ErrPathTooShort)
}

func TestSavePath_DeepSaveStoresSuffixes(t *testing.T) {
	store := newTestStorage(t)

	saved, err := store.SavePath([]string{"A", "B", "C", "D", "E"}, true)
	require.NoError(t, err)
	// A..E, B..E, C..E; D..E is shorter than three articles
	assert.Equal(t, 3, saved)

	tests := []struct {
		start string
		want  []string
	}{
		{"A", []string{"A", "B", "C", "D", "E"}},
		{"B", []string{"B", "C", "D", "E"}},
		{"C", []string{"C", "D", "E"}},
	}
	for _, tt := range tests {
		t.Run(tt.start, func(t *testing.T) {
			path, err := store.Path(tt.start, "E")
			require.NoError(t, err)
			assert.Equal(t, tt.want, path)
		})
	}

	exists, err := store.PathExists("D", "E")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSavePath_DeepSaveSkipsSolvedSuffixes(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.SavePath([]string{"B", "X", "E"}, false)
	require.NoError(t, err)

	saved, err := store.SavePath([]string{"A", "B", "C", "E"}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, saved)

	path, err := store.Path("B", "E")
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "X", "E"}, path)
}

func TestPath_NotFound(t *testing.T) {
	store := newTestStorage(t)
	_, err := store.Path("A", "B")
	assert.ErrorIs(t, err, ErrPathNotFound)
}

func TestUnresolvedStarts(t *testing.T) {
	store := newTestStorage(t)

	// S1 reached both targets, S2 only one, S3 only a third end
	for _, p := range [][]string{
		{"S1", "X", "T1"},
		{"S1", "T2"},
		{"S2", "T1"},
		{"S3", "T3"},
	} {
		_, err := store.SavePath(p, false)
		require.NoError(t, err)
	}

	t.Run("explicit targets", func(t *testing.T) {
		starts, err := store.UnresolvedStarts([]string{"T1", "T2"})
		require.NoError(t, err)
		assert.Equal(t, []string{"S2", "S3"}, starts)
	})

	t.Run("all known ends", func(t *testing.T) {
		starts, err := store.UnresolvedStarts(nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"S1", "S2", "S3"}, starts)
	})

	t.Run("target never seen", func(t *testing.T) {
		starts, err := store.UnresolvedStarts([]string{"Unknown"})
		require.NoError(t, err)
		assert.Equal(t, []string{"S1", "S2", "S3"}, starts)
	})
}

func TestUnresolvedStarts_IgnoresSelfTarget(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.SavePath([]string{"T1", "T2"}, false)
	require.NoError(t, err)

	starts, err := store.UnresolvedStarts([]string{"T1", "T2"})
	require.NoError(t, err)
	assert.Empty(t, starts)
}
