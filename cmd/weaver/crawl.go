package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/alvmarrod/wiki-weaver/internal/backlog"
	"github.com/alvmarrod/wiki-weaver/internal/crawler"
	"github.com/alvmarrod/wiki-weaver/internal/memory"
	"github.com/alvmarrod/wiki-weaver/internal/metrics"
	"github.com/alvmarrod/wiki-weaver/internal/scheduler"
	"github.com/alvmarrod/wiki-weaver/internal/search"
	"github.com/alvmarrod/wiki-weaver/internal/version"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	crawlStarts        []string
	crawlEnds          []string
	crawlIterations    int
	crawlContinuous    bool
	crawlDeepSave      bool
	crawlShareStarts   bool
	crawlVacuum        bool
	crawlMaxIterations int
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Search for shortest paths to the end articles",
	Long: `Runs search sessions towards the end articles.

With --start each given article is searched once. Without it, --iterations
random articles are searched. --continuous keeps running sessions from the
backlog, falling back to random articles, until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runCrawl,
}

func init() {
	crawlCmd.Flags().StringArrayVarP(&crawlStarts, "start", "s", nil, "Start article (repeatable)")
	crawlCmd.Flags().StringArrayVarP(&crawlEnds, "end", "e", nil, "End article (repeatable, default end_titles)")
	crawlCmd.Flags().IntVarP(&crawlIterations, "iterations", "n", 1, "Random sessions to run when no start is given")
	crawlCmd.Flags().BoolVar(&crawlContinuous, "continuous", false, "Keep crawling from the backlog until interrupted")
	crawlCmd.Flags().BoolVar(&crawlDeepSave, "deep-save", false, "Also save every suffix of found paths (or deep_save)")
	crawlCmd.Flags().BoolVar(&crawlShareStarts, "share-starts", false, "Queue unresolved starts before crawling")
	crawlCmd.Flags().BoolVar(&crawlVacuum, "vacuum", false, "Vacuum the database when done")
	crawlCmd.Flags().IntVar(&crawlMaxIterations, "max-iterations", 0, "Stop continuous mode after this many sessions (0 = unbounded)")

	rootCmd.AddCommand(crawlCmd)
}

// endTitles resolves the target list from flags or configuration
func endTitles(flagEnds []string, cfg []string) []string {
	ends := flagEnds
	if len(ends) == 0 {
		ends = cfg
	}
	return normalizeAll(ends)
}

func normalizeAll(titles []string) []string {
	out := make([]string, 0, len(titles))
	for _, t := range titles {
		if n := crawler.NormalizeTitle(t); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func runCrawl(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	logrus.Infof("Wiki Weaver v%s starting...", version.Version)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.cfg.MetricsAddr != "" {
		serveMetrics(ctx, a.cfg.MetricsAddr)
	}

	targets := endTitles(crawlEnds, a.cfg.EndTitles)
	starts := normalizeAll(crawlStarts)
	logrus.Infof("End articles: %v", targets)

	tracker := metrics.NewTracker()
	c := crawler.NewCrawler(a.cfg, tracker.RecordFetch)
	graph := memory.NewMemoryGraph(a.store, a.cfg.MemoryCacheNodes)
	engine := search.NewEngine(graph, c)
	manager := backlog.NewManager(a.store)

	if crawlShareStarts {
		if _, err := manager.ShareStarts(targets); err != nil {
			return err
		}
	}

	sched := scheduler.NewScheduler(engine, c, manager, scheduler.Options{
		Targets:       targets,
		DeepSave:      crawlDeepSave || a.cfg.DeepSave,
		MaxIterations: crawlMaxIterations,
		OnReport: func(r scheduler.Report) {
			tracker.RecordSession(r.Outcome.String(), r.Visited, r.NewArticles, r.PathsFound, r.Elapsed)
			if crawlContinuous {
				tracker.SetBacklogDepth(r.Backlog)
			}
		},
	})
	logrus.Infof("Run %s started", sched.RunID())

	var wg sync.WaitGroup
	progressCtx, stopProgress := context.WithCancel(ctx)
	wg.Add(1)
	go func() {
		defer wg.Done()
		logProgress(progressCtx, tracker)
	}()

	switch {
	case crawlContinuous:
		err = sched.RunContinuous(ctx, starts)
	case len(starts) > 0:
		err = sched.RunFixed(ctx, starts)
	default:
		err = sched.RunRandom(ctx, crawlIterations)
	}

	stopProgress()
	wg.Wait()

	reason := "completed"
	switch {
	case ctx.Err() != nil:
		reason = "signal"
		err = nil
	case err != nil:
		reason = "error"
	}

	stats := graph.GetStats()
	logrus.Infof("Memory graph: %d articles, %d dead ends, %d hits, %d misses",
		stats.Nodes, stats.DeadEnds, stats.Hits, stats.Misses)
	logrus.Info("Final stats: " + tracker.LogProgress())

	if werr := tracker.WriteToFile(a.cfg.MetricsPath, reason); werr != nil {
		logrus.Errorf("Failed to write metrics: %v", werr)
	} else {
		logrus.Infof("Metrics written to %s", a.cfg.MetricsPath)
	}

	if crawlVacuum && err == nil {
		if err := a.store.Vacuum(); err != nil {
			return err
		}
	}
	return err
}

// logProgress logs the tracker every 30 seconds until ctx is done
func logProgress(ctx context.Context, tracker *metrics.Tracker) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logrus.Info(tracker.LogProgress())
		case <-ctx.Done():
			return
		}
	}
}
