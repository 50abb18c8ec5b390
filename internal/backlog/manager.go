package backlog

import (
	"fmt"

	"github.com/alvmarrod/wiki-weaver/internal/storage"
	"github.com/sirupsen/logrus"
)

// Backlog priorities by origin
const (
	PriorityShared  = 5
	PriorityDeadEnd = 7
	PrioritySeed    = storage.MaxPriority
	PriorityFloor   = storage.MinPriority
)

// Manager maintains the priority queue of start titles for future sessions
type Manager struct {
	store *storage.Storage
}

// NewManager creates a backlog manager over store
func NewManager(store *storage.Storage) *Manager {
	return &Manager{store: store}
}

// ShareStarts queues every start that already reaches some target but is
// still missing a path to one of targets. An empty targets list means all
// known end titles. Returns how much the backlog grew.
func (m *Manager) ShareStarts(targets []string) (int, error) {
	starts, err := m.store.UnresolvedStarts(targets)
	if err != nil {
		return 0, err
	}

	grown, err := m.enqueueAll(starts, PriorityShared)
	if err != nil {
		return 0, err
	}
	logrus.Infof("Shared %d unresolved starts, backlog grew by %d", len(starts), grown)
	return grown, nil
}

// RecheckDeadEnds queues every known dead end so it is fetched again as a
// session start
func (m *Manager) RecheckDeadEnds() (int, error) {
	deadEnds, err := m.store.DeadEnds()
	if err != nil {
		return 0, err
	}

	grown, err := m.enqueueAll(deadEnds, PriorityDeadEnd)
	if err != nil {
		return 0, err
	}
	logrus.Infof("Queued %d dead ends for recheck, backlog grew by %d", len(deadEnds), grown)
	return grown, nil
}

// PushSeeds queues caller supplied starts ahead of everything else
func (m *Manager) PushSeeds(titles []string) error {
	_, err := m.enqueueAll(titles, PrioritySeed)
	return err
}

func (m *Manager) enqueueAll(titles []string, priority int) (int, error) {
	before, err := m.store.QueueLength()
	if err != nil {
		return 0, err
	}

	for _, title := range titles {
		if err := m.store.Enqueue(title, priority, storage.PolicyRaise); err != nil {
			return 0, err
		}
	}

	after, err := m.store.QueueLength()
	if err != nil {
		return 0, err
	}
	return after - before, nil
}

// Next returns the highest priority start without removing it
func (m *Manager) Next() (string, bool, error) {
	return m.store.HighestPriority()
}

// Complete removes a start whose session found every target
func (m *Manager) Complete(title string) error {
	return m.store.Remove(title)
}

// Demote lowers a queued start by one level so entries behind it get a turn.
// At the floor it moves behind its equals instead. Titles not in the
// backlog are left alone.
func (m *Manager) Demote(title string) error {
	priority, ok, err := m.store.Priority(title)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	if priority == PriorityFloor {
		return m.store.MoveToBack(title)
	}

	if err := m.store.Enqueue(title, priority-1, storage.PolicyLower); err != nil {
		return fmt.Errorf("failed to demote %q: %w", title, err)
	}
	logrus.Debugf("Demoted %s to priority %d", title, priority-1)
	return nil
}

// Len returns the number of queued starts
func (m *Manager) Len() (int, error) {
	return m.store.QueueLength()
}
