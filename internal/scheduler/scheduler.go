package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alvmarrod/wiki-weaver/internal/metrics"
	"github.com/alvmarrod/wiki-weaver/internal/search"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Searcher runs one search session
type Searcher interface {
	Run(ctx context.Context, start string, targets []string, opts search.Options) (*search.Result, error)
}

// TitleSource supplies random start titles
type TitleSource interface {
	RandomTitle(ctx context.Context) (string, error)
}

// Backlog is the queue of start titles continuous mode draws from
type Backlog interface {
	PushSeeds(titles []string) error
	Next() (string, bool, error)
	Complete(title string) error
	Demote(title string) error
	Len() (int, error)
}

// Outcome is the reported result of one session
type Outcome int

const (
	AllFound Outcome = iota
	Exhausted
	Failed
)

func (o Outcome) String() string {
	switch o {
	case AllFound:
		return metrics.OutcomeAllFound
	case Exhausted:
		return metrics.OutcomeExhausted
	case Failed:
		return metrics.OutcomeFailed
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Report describes one finished session
type Report struct {
	RunID       uuid.UUID
	Iteration   int
	Start       string
	Outcome     Outcome
	PathsFound  int
	Unresolved  []string
	Visited     int
	NewArticles int
	Backlog     int // queue length after the session, continuous mode only
	Elapsed     time.Duration
	Err         error
}

// Options configures the scheduler
type Options struct {
	Targets       []string
	DeepSave      bool
	MaxIterations int // continuous mode only, 0 means unbounded
	OnReport      func(Report)
}

// Scheduler drives search sessions in fixed, random or continuous mode
type Scheduler struct {
	searcher  Searcher
	titles    TitleSource
	backlog   Backlog
	opts      Options
	runID     uuid.UUID
	iteration int
}

// NewScheduler creates a scheduler. titles and backlog may be nil for modes
// that do not use them.
func NewScheduler(searcher Searcher, titles TitleSource, backlog Backlog, opts Options) *Scheduler {
	return &Scheduler{
		searcher: searcher,
		titles:   titles,
		backlog:  backlog,
		opts:     opts,
		runID:    uuid.New(),
	}
}

// RunID identifies this scheduler run in reports and logs
func (s *Scheduler) RunID() uuid.UUID {
	return s.runID
}

// RunFixed runs one session per start. Exhausted sessions are reported and
// the run continues; the first failed session aborts it.
func (s *Scheduler) RunFixed(ctx context.Context, starts []string) error {
	for _, start := range starts {
		if err := ctx.Err(); err != nil {
			return err
		}
		report := s.session(ctx, start, false)
		if report.Err != nil {
			return fmt.Errorf("session from %s failed: %w", start, report.Err)
		}
	}
	return nil
}

// RunRandom runs n sessions from random start titles, aborting on the first
// failure
func (s *Scheduler) RunRandom(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		start, err := s.titles.RandomTitle(ctx)
		if err != nil {
			return fmt.Errorf("failed to pick a random start: %w", err)
		}
		report := s.session(ctx, start, false)
		if report.Err != nil {
			return fmt.Errorf("session from %s failed: %w", start, report.Err)
		}
	}
	return nil
}

// RunContinuous pushes seeds to the front of the backlog once, then keeps
// running sessions from the backlog head, or from a random title when the
// backlog is empty, until ctx is cancelled or MaxIterations is reached.
// Starts that find every target leave the backlog; exhausted starts are
// demoted; failed sessions leave their start untouched.
func (s *Scheduler) RunContinuous(ctx context.Context, seeds []string) error {
	if len(seeds) > 0 {
		if err := s.backlog.PushSeeds(seeds); err != nil {
			return fmt.Errorf("failed to push seeds: %w", err)
		}
		logrus.Infof("Pushed %d seed starts to the backlog", len(seeds))
	}

	for done := 0; s.opts.MaxIterations == 0 || done < s.opts.MaxIterations; done++ {
		if ctx.Err() != nil {
			return nil
		}

		start, queued, err := s.backlog.Next()
		if err != nil {
			return fmt.Errorf("failed to read backlog: %w", err)
		}
		if !queued {
			if start, err = s.titles.RandomTitle(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("failed to pick a random start: %w", err)
			}
			logrus.Debugf("Backlog empty, picked random start %s", start)
		}

		report := s.sessionWith(ctx, start, true, func(r *Report) error {
			if queued {
				switch r.Outcome {
				case AllFound:
					if err := s.backlog.Complete(start); err != nil {
						return err
					}
				case Exhausted:
					if err := s.backlog.Demote(start); err != nil {
						return err
					}
				}
			}
			n, err := s.backlog.Len()
			r.Backlog = n
			return err
		})

		if report.Err != nil && ctx.Err() != nil {
			return nil
		}
	}

	logrus.Infof("Reached %d iterations, stopping", s.opts.MaxIterations)
	return nil
}

func (s *Scheduler) session(ctx context.Context, start string, recheck bool) Report {
	return s.sessionWith(ctx, start, recheck, nil)
}

// sessionWith runs one search. after runs before the report is delivered
// and may fail the session.
func (s *Scheduler) sessionWith(ctx context.Context, start string, recheck bool, after func(*Report) error) Report {
	s.iteration++
	report := Report{
		RunID:     s.runID,
		Iteration: s.iteration,
		Start:     start,
	}

	logrus.Infof("Session %d: searching from %s", s.iteration, start)
	began := time.Now()
	res, err := s.searcher.Run(ctx, start, s.opts.Targets, search.Options{
		DeepSave:            s.opts.DeepSave,
		RecheckDeadEndStart: recheck,
	})

	if res != nil {
		report.PathsFound = len(res.Found)
		report.Unresolved = res.Unresolved
		report.Visited = res.Visited
		report.NewArticles = res.NewArticles
		if res.Outcome == search.AllFound {
			report.Outcome = AllFound
		} else {
			report.Outcome = Exhausted
		}
	}
	if err != nil {
		report.Outcome = Failed
		report.Err = err
	}
	if err == nil && after != nil {
		if err := after(&report); err != nil {
			report.Outcome = Failed
			report.Err = err
		}
	}
	report.Elapsed = time.Since(began)

	s.log(report)
	if s.opts.OnReport != nil {
		s.opts.OnReport(report)
	}
	return report
}

func (s *Scheduler) log(r Report) {
	switch r.Outcome {
	case AllFound:
		logrus.Infof("Session %d from %s: all targets found (%d visited, %d new) in %v",
			r.Iteration, r.Start, r.Visited, r.NewArticles, r.Elapsed.Round(time.Millisecond))
	case Exhausted:
		logrus.Warnf("Session %d from %s: exhausted, unresolved %s (%d visited, %d new) in %v",
			r.Iteration, r.Start, strings.Join(r.Unresolved, ", "), r.Visited, r.NewArticles, r.Elapsed.Round(time.Millisecond))
	default:
		logrus.Errorf("Session %d from %s failed after %d visited, unresolved %s: %v",
			r.Iteration, r.Start, r.Visited, strings.Join(r.Unresolved, ", "), r.Err)
	}
}
