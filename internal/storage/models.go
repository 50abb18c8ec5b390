package storage

import (
	"errors"
	"fmt"
	"time"
)

// Priority bounds for backlog entries
const (
	MinPriority = 0
	MaxPriority = 9
)

var (
	ErrPathTooShort    = errors.New("path must contain at least two articles")
	ErrInvalidPriority = errors.New("priority must be between 0 and 9")
	ErrNoEdges         = errors.New("no edges to record")
	ErrPathNotFound    = errors.New("path not found")
)

// Article is a page identified by its normalized title
type Article struct {
	ID    int64
	Title string
}

// LinkEdge is a directed link with its position in the source's link list
type LinkEdge struct {
	SourceID int64
	Sequence int
	TargetID int64
}

// PathRecord is a solved path between two articles
type PathRecord struct {
	ID     int64
	Start  string
	End    string
	Titles []string
}

// Len returns the number of articles on the path
func (p PathRecord) Len() int {
	return len(p.Titles)
}

// QueueEntry is a start title waiting in the backlog
type QueueEntry struct {
	Title    string
	Priority int
}

// UpsertPolicy decides what happens when an enqueued title is already queued
type UpsertPolicy int

const (
	// PolicyRaise keeps the existing priority unless the new one is higher
	PolicyRaise UpsertPolicy = iota
	// PolicyLower keeps the existing priority unless the new one is lower
	PolicyLower
	// PolicyOverwrite always replaces the existing priority
	PolicyOverwrite
	// PolicyInsertIfAbsent never touches an existing entry
	PolicyInsertIfAbsent
)

func (p UpsertPolicy) String() string {
	switch p {
	case PolicyRaise:
		return "raise"
	case PolicyLower:
		return "lower"
	case PolicyOverwrite:
		return "overwrite"
	case PolicyInsertIfAbsent:
		return "insert-if-absent"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// Report holds row counts for every table
type Report struct {
	Articles int `json:"articles"`
	Links    int `json:"links"`
	Paths    int `json:"paths"`
	DeadEnds int `json:"dead_ends"`
	Queue    int `json:"queue"`
}

// Metrics tracks crawl statistics for export on exit
type Metrics struct {
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	SessionsStarted   int       `json:"sessions_started"`
	SessionsFound     int       `json:"sessions_all_found"`
	SessionsExhausted int       `json:"sessions_exhausted"`
	SessionsFailed    int       `json:"sessions_failed"`
	ArticlesVisited   int       `json:"articles_visited"`
	NewArticles       int       `json:"new_articles"`
	PathsFound        int       `json:"paths_found"`
	PagesFetched      int       `json:"pages_fetched"`
	PagesFailed       int       `json:"pages_failed"`
	TotalFetchTimeMs  int64     `json:"total_fetch_time_ms"`
	AvgFetchTimeMs    int64     `json:"avg_fetch_time_ms"`
	TerminationReason string    `json:"termination_reason"`
}
