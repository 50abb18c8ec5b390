package memory

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Store is the persistent graph the memory graph mirrors
type Store interface {
	HasCachedEdges(title string) (bool, error)
	CachedEdges(title string) ([]string, error)
	RecordEdges(title string, neighbors []string) error
	MarkDeadEnd(title string) error
	IsDeadEnd(title string) (bool, error)
	SavePath(path []string, deepSave bool) (int, error)
}

// Stats describes the memory graph contents and hit rate
type Stats struct {
	Nodes    int
	DeadEnds int
	Hits     int
	Misses   int
}

// MemoryGraph holds neighbor lists and dead ends in memory in front of the
// persistent store. Writes go to the store first, so memory never holds
// a fact the store does not.
type MemoryGraph struct {
	store    Store
	edges    map[string][]string // title -> neighbors in link order
	deadEnds map[string]bool
	maxNodes int // <= 0 means unbounded
	hits     int
	misses   int
	full     bool
	mu       sync.RWMutex
}

// NewMemoryGraph creates a new in-memory graph backed by store
func NewMemoryGraph(store Store, maxNodes int) *MemoryGraph {
	return &MemoryGraph{
		store:    store,
		edges:    make(map[string][]string),
		deadEnds: make(map[string]bool),
		maxNodes: maxNodes,
	}
}

// HasCachedEdges reports whether the neighbors of title are known
func (mg *MemoryGraph) HasCachedEdges(title string) (bool, error) {
	mg.mu.RLock()
	_, ok := mg.edges[title]
	mg.mu.RUnlock()
	if ok {
		return true, nil
	}
	return mg.store.HasCachedEdges(title)
}

// CachedEdges returns the known neighbors of title, reading through to the
// store on a miss
func (mg *MemoryGraph) CachedEdges(title string) ([]string, error) {
	mg.mu.Lock()
	if neighbors, ok := mg.edges[title]; ok {
		mg.hits++
		mg.mu.Unlock()
		return neighbors, nil
	}
	mg.misses++
	mg.mu.Unlock()

	neighbors, err := mg.store.CachedEdges(title)
	if err != nil {
		return nil, err
	}
	if len(neighbors) > 0 {
		mg.remember(title, neighbors)
	}
	return neighbors, nil
}

// RecordEdges persists the neighbors of title and keeps them in memory
func (mg *MemoryGraph) RecordEdges(title string, neighbors []string) error {
	if err := mg.store.RecordEdges(title, neighbors); err != nil {
		return err
	}
	mg.remember(title, neighbors)
	return nil
}

// MarkDeadEnd persists the dead end and keeps it in memory
func (mg *MemoryGraph) MarkDeadEnd(title string) error {
	if err := mg.store.MarkDeadEnd(title); err != nil {
		return err
	}
	mg.rememberDeadEnd(title)
	return nil
}

// IsDeadEnd reports whether title is a known dead end
func (mg *MemoryGraph) IsDeadEnd(title string) (bool, error) {
	mg.mu.RLock()
	dead := mg.deadEnds[title]
	mg.mu.RUnlock()
	if dead {
		return true, nil
	}

	dead, err := mg.store.IsDeadEnd(title)
	if err != nil {
		return false, err
	}
	if dead {
		mg.rememberDeadEnd(title)
	}
	return dead, nil
}

// SavePath passes through to the store
func (mg *MemoryGraph) SavePath(path []string, deepSave bool) (int, error) {
	return mg.store.SavePath(path, deepSave)
}

// GetStats returns current graph statistics
func (mg *MemoryGraph) GetStats() Stats {
	mg.mu.RLock()
	defer mg.mu.RUnlock()

	return Stats{
		Nodes:    len(mg.edges),
		DeadEnds: len(mg.deadEnds),
		Hits:     mg.hits,
		Misses:   mg.misses,
	}
}

func (mg *MemoryGraph) remember(title string, neighbors []string) {
	mg.mu.Lock()
	defer mg.mu.Unlock()

	if !mg.hasRoom() {
		return
	}
	mg.edges[title] = append([]string(nil), neighbors...)
}

func (mg *MemoryGraph) rememberDeadEnd(title string) {
	mg.mu.Lock()
	defer mg.mu.Unlock()

	if !mg.hasRoom() {
		return
	}
	mg.deadEnds[title] = true
}

// hasRoom must be called with the lock held
func (mg *MemoryGraph) hasRoom() bool {
	if mg.maxNodes <= 0 || len(mg.edges)+len(mg.deadEnds) < mg.maxNodes {
		return true
	}
	if !mg.full {
		mg.full = true
		logrus.Infof("Memory graph full at %d nodes, further nodes are read from the database", mg.maxNodes)
	}
	return false
}
