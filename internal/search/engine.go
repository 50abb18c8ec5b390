package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alvmarrod/wiki-weaver/internal/crawler"
	"github.com/alvmarrod/wiki-weaver/internal/metrics"
	"github.com/sirupsen/logrus"
)

// ErrNoTargets is returned when a search is started without targets
var ErrNoTargets = errors.New("search needs at least one target")

// Store is the memoized graph a search reads and extends
type Store interface {
	CachedEdges(title string) ([]string, error)
	RecordEdges(title string, neighbors []string) error
	MarkDeadEnd(title string) error
	IsDeadEnd(title string) (bool, error)
	SavePath(path []string, deepSave bool) (int, error)
}

// LinkProvider resolves the outgoing links of an article. A page without
// usable links is reported with crawler.ErrDeadEnd; any other error is
// fatal to the search.
type LinkProvider interface {
	FetchNeighbors(ctx context.Context, title string) ([]string, error)
}

// Outcome is the exit state of one search
type Outcome int

const (
	// AllFound means a path to every target was found
	AllFound Outcome = iota
	// Exhausted means the frontier emptied with targets left unresolved
	Exhausted
)

func (o Outcome) String() string {
	switch o {
	case AllFound:
		return metrics.OutcomeAllFound
	case Exhausted:
		return metrics.OutcomeExhausted
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Options tunes a single search
type Options struct {
	// DeepSave also stores every suffix of a found path
	DeepSave bool
	// RecheckDeadEndStart fetches the start again even if it is a known dead end
	RecheckDeadEndStart bool
}

// Result summarizes a finished search
type Result struct {
	Start       string
	Targets     []string
	Outcome     Outcome
	Found       [][]string // in discovery order
	Unresolved  []string
	Visited     int
	NewArticles int // titles resolved through the link provider
	CacheHits   int
	Elapsed     time.Duration
}

// Engine runs breadth-first searches over the memoized link graph
type Engine struct {
	store    Store
	provider LinkProvider
}

// NewEngine creates a search engine
func NewEngine(store Store, provider LinkProvider) *Engine {
	return &Engine{store: store, provider: provider}
}

// state is owned by exactly one Run call
type state struct {
	frontier  frontier
	visited   map[string]bool
	remaining map[string]bool
	result    *Result
}

func newState(start string, targets []string) *state {
	st := &state{
		visited:   make(map[string]bool),
		remaining: make(map[string]bool),
		result:    &Result{Start: start},
	}

	for _, t := range targets {
		if t == start || st.remaining[t] {
			continue
		}
		st.remaining[t] = true
		st.result.Targets = append(st.result.Targets, t)
	}

	st.frontier.push(newRoot(start))
	return st
}

// Run searches for the shortest path from start to every target. Each path
// is persisted as soon as it is found. On error the partial result is
// returned alongside it.
func (e *Engine) Run(ctx context.Context, start string, targets []string, opts Options) (*Result, error) {
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}
	if start == "" {
		return nil, errors.New("search needs a start title")
	}

	began := time.Now()
	st := newState(start, targets)
	res := st.result
	defer func() {
		res.Visited = len(st.visited)
		res.Elapsed = time.Since(began)
	}()

	for len(st.remaining) > 0 {
		if err := ctx.Err(); err != nil {
			st.finish()
			return res, err
		}

		node, ok := st.frontier.pop()
		if !ok {
			break
		}
		if st.visited[node.title] {
			continue
		}
		st.visited[node.title] = true

		recheck := opts.RecheckDeadEndStart && node.parent == nil
		neighbors, err := e.neighbors(ctx, st, node.title, recheck)
		if err != nil {
			st.finish()
			return res, err
		}
		if len(neighbors) == 0 {
			logrus.Debugf("Dead end at %s, %d paths left in frontier", node.title, st.frontier.size())
			continue
		}

		for _, n := range neighbors {
			// Visited titles were reached by a path at least as short
			if st.visited[n] {
				continue
			}
			child := node.child(n)
			st.frontier.push(child)

			if !st.remaining[n] {
				continue
			}
			if err := e.found(st, child.titles(), opts.DeepSave); err != nil {
				st.finish()
				return res, err
			}
			if len(st.remaining) == 0 {
				break
			}
		}
	}

	st.finish()
	if res.Outcome == Exhausted {
		logrus.Warnf("Search from %s exhausted after %d articles, unresolved: %s",
			start, len(st.visited), strings.Join(res.Unresolved, ", "))
	}
	return res, nil
}

// neighbors resolves the links of title from the store, falling back to
// the link provider and recording what it returns. Dead ends yield nil.
func (e *Engine) neighbors(ctx context.Context, st *state, title string, recheck bool) ([]string, error) {
	cached, err := e.store.CachedEdges(title)
	if err != nil {
		return nil, fmt.Errorf("failed to read links of %s: %w", title, err)
	}
	if len(cached) > 0 {
		st.result.CacheHits++
		return cached, nil
	}

	if !recheck {
		dead, err := e.store.IsDeadEnd(title)
		if err != nil {
			return nil, fmt.Errorf("failed to check dead end %s: %w", title, err)
		}
		if dead {
			st.result.CacheHits++
			return nil, nil
		}
	}

	fetched, err := e.provider.FetchNeighbors(ctx, title)
	switch {
	case errors.Is(err, crawler.ErrDeadEnd), err == nil && len(fetched) == 0:
		st.result.NewArticles++
		if err := e.store.MarkDeadEnd(title); err != nil {
			return nil, fmt.Errorf("failed to mark dead end %s: %w", title, err)
		}
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to fetch links of %s: %w", title, err)
	}

	st.result.NewArticles++
	if err := e.store.RecordEdges(title, fetched); err != nil {
		return nil, fmt.Errorf("failed to record links of %s: %w", title, err)
	}
	return fetched, nil
}

// found persists a path to one of the remaining targets
func (e *Engine) found(st *state, path []string, deepSave bool) error {
	end := path[len(path)-1]
	if _, err := e.store.SavePath(path, deepSave); err != nil {
		return fmt.Errorf("failed to save path %s -> %s: %w", path[0], end, err)
	}

	delete(st.remaining, end)
	st.result.Found = append(st.result.Found, path)
	logrus.Infof("Found path %s -> %s in %d clicks: %s", path[0], end, len(path)-1, strings.Join(path, " > "))
	return nil
}

// finish fills the outcome and the unresolved targets in input order
func (st *state) finish() {
	st.result.Unresolved = nil
	for _, t := range st.result.Targets {
		if st.remaining[t] {
			st.result.Unresolved = append(st.result.Unresolved, t)
		}
	}

	if len(st.result.Unresolved) == 0 {
		st.result.Outcome = AllFound
	} else {
		st.result.Outcome = Exhausted
	}
}
