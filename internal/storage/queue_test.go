package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHighestPriority(t *testing.T) {
	store := newTestStorage(t)

	_, ok, err := store.HighestPriority()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Enqueue("T1", 5, PolicyRaise))
	require.NoError(t, store.Enqueue("T2", 7, PolicyRaise))

	title, ok, err := store.HighestPriority()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "T2", title)

	// Peeking does not remove
	n, err := store.QueueLength()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestHighestPriority_OldestFirstAmongEquals(t *testing.T) {
	store := newTestStorage(t)

	require.NoError(t, store.Enqueue("First", 5, PolicyRaise))
	require.NoError(t, store.Enqueue("Second", 5, PolicyRaise))

	title, _, err := store.HighestPriority()
	require.NoError(t, err)
	assert.Equal(t, "First", title)
}

func TestEnqueue_Policies(t *testing.T) {
	tests := []struct {
		name     string
		policy   UpsertPolicy
		existing int
		incoming int
		want     int
	}{
		{"raise keeps higher existing", PolicyRaise, 7, 5, 7},
		{"raise takes higher incoming", PolicyRaise, 5, 7, 7},
		{"lower keeps lower existing", PolicyLower, 3, 5, 3},
		{"lower takes lower incoming", PolicyLower, 5, 3, 3},
		{"overwrite replaces higher", PolicyOverwrite, 7, 2, 2},
		{"overwrite replaces lower", PolicyOverwrite, 2, 7, 7},
		{"insert-if-absent ignores higher", PolicyInsertIfAbsent, 2, 9, 2},
		{"insert-if-absent ignores lower", PolicyInsertIfAbsent, 9, 2, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStorage(t)

			require.NoError(t, store.Enqueue("Title", tt.existing, PolicyOverwrite))
			require.NoError(t, store.Enqueue("Title", tt.incoming, tt.policy))

			entries, err := store.QueueEntries()
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, QueueEntry{Title: "Title", Priority: tt.want}, entries[0])
		})
	}
}

func TestEnqueue_InsertsWhenAbsent(t *testing.T) {
	for _, policy := range []UpsertPolicy{PolicyRaise, PolicyLower, PolicyOverwrite, PolicyInsertIfAbsent} {
		t.Run(policy.String(), func(t *testing.T) {
			store := newTestStorage(t)
			require.NoError(t, store.Enqueue("Title", 4, policy))

			entries, err := store.QueueEntries()
			require.NoError(t, err)
			assert.Equal(t, []QueueEntry{{Title: "Title", Priority: 4}}, entries)
		})
	}
}

func TestEnqueue_RejectsPriorityOutOfRange(t *testing.T) {
	store := newTestStorage(t)

	assert.ErrorIs(t, store.Enqueue("A", -1, PolicyRaise), ErrInvalidPriority)
	assert.ErrorIs(t, store.Enqueue("A", 10, PolicyRaise), ErrInvalidPriority)

	n, err := store.QueueLength()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRemove(t *testing.T) {
	store := newTestStorage(t)

	require.NoError(t, store.Enqueue("A", 5, PolicyRaise))
	require.NoError(t, store.Enqueue("B", 3, PolicyRaise))
	require.NoError(t, store.Remove("A"))
	require.NoError(t, store.Remove("Missing"))

	title, ok, err := store.HighestPriority()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "B", title)

	n, err := store.QueueLength()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPriority(t *testing.T) {
	store := newTestStorage(t)

	_, ok, err := store.Priority("A")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Enqueue("A", 4, PolicyRaise))
	priority, ok, err := store.Priority("A")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 4, priority)
}

func TestMoveToBack(t *testing.T) {
	store := newTestStorage(t)

	require.NoError(t, store.Enqueue("A", 2, PolicyRaise))
	require.NoError(t, store.Enqueue("B", 2, PolicyRaise))
	require.NoError(t, store.Enqueue("C", 1, PolicyRaise))

	require.NoError(t, store.MoveToBack("A"))
	require.NoError(t, store.MoveToBack("Missing"))

	entries, err := store.QueueEntries()
	require.NoError(t, err)
	assert.Equal(t, []QueueEntry{
		{Title: "B", Priority: 2},
		{Title: "A", Priority: 2},
		{Title: "C", Priority: 1},
	}, entries)
}
