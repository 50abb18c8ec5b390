package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alvmarrod/wiki-weaver/internal/backlog"
	"github.com/alvmarrod/wiki-weaver/internal/crawler"
	"github.com/alvmarrod/wiki-weaver/internal/storage"
	"github.com/spf13/cobra"
)

var shareEnds []string

var shareStartsCmd = &cobra.Command{
	Use:   "share-starts",
	Short: "Queue starts that still miss a path to some end article",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		// Without --end every known end article counts
		grown, err := backlog.NewManager(a.store).ShareStarts(normalizeAll(shareEnds))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Backlog grew by %d\n", grown)
		return nil
	},
}

var recheckCmd = &cobra.Command{
	Use:   "recheck-dead-ends",
	Short: "Queue every known dead end to be fetched again",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		grown, err := backlog.NewManager(a.store).RecheckDeadEnds()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Backlog grew by %d\n", grown)
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show database contents and the head of the backlog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		report, err := a.store.Report()
		if err != nil {
			return err
		}
		entries, err := a.store.QueueEntries()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Articles:  %d\n", report.Articles)
		fmt.Fprintf(out, "Links:     %d\n", report.Links)
		fmt.Fprintf(out, "Paths:     %d\n", report.Paths)
		fmt.Fprintf(out, "Dead ends: %d\n", report.DeadEnds)
		fmt.Fprintf(out, "Backlog:   %d\n", report.Queue)
		for i, e := range entries {
			if i == 10 {
				fmt.Fprintf(out, "  ... %d more\n", len(entries)-i)
				break
			}
			fmt.Fprintf(out, "  [%d] %s\n", e.Priority, e.Title)
		}
		return nil
	},
}

var vacuumCmd = &cobra.Command{
	Use:   "vacuum",
	Short: "Compact the database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		return a.store.Vacuum()
	},
}

var pathCmd = &cobra.Command{
	Use:   "path START END",
	Short: "Print the saved shortest path between two articles",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		start, end := crawler.NormalizeTitle(args[0]), crawler.NormalizeTitle(args[1])
		path, err := a.store.Path(start, end)
		if errors.Is(err, storage.ErrPathNotFound) {
			return fmt.Errorf("no saved path from %s to %s, run crawl --start %s first", start, end, start)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%d clicks)\n", strings.Join(path, " > "), len(path)-1)
		return nil
	},
}

func init() {
	shareStartsCmd.Flags().StringArrayVarP(&shareEnds, "end", "e", nil, "End article (repeatable, default all known ends)")

	rootCmd.AddCommand(shareStartsCmd, recheckCmd, reportCmd, vacuumCmd, pathCmd)
}
