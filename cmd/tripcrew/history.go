package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/BaSui01/tripcrew/config"
	"github.com/BaSui01/tripcrew/internal/database"
	"github.com/BaSui01/tripcrew/internal/history"
	"github.com/BaSui01/tripcrew/types"
)

// =============================================================================
// 🗂️ history 命令
// =============================================================================

func newHistoryCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and prune recorded planning runs",
	}

	var listOpts history.ListOptions
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent planning runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeFn, err := openHistory(root)
			if err != nil {
				return err
			}
			defer closeFn()

			runs, total, err := repo.List(cmd.Context(), listOpts.Normalized())
			if err != nil {
				return err
			}
			return printRuns(cmd.OutOrStdout(), runs, total)
		},
	}
	list.Flags().IntVarP(&listOpts.Limit, "limit", "l", 20, "Maximum number of runs")
	list.Flags().IntVar(&listOpts.Offset, "offset", 0, "Number of runs to skip")
	list.Flags().StringVarP(&listOpts.City, "city", "c", "", "Filter by city")
	list.Flags().StringVarP(&listOpts.Status, "status", "s", "", "Filter by status: success, no_itinerary, failed")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print one run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeFn, err := openHistory(root)
			if err != nil {
				return err
			}
			defer closeFn()

			run, err := repo.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(run)
		},
	}

	var olderThan time.Duration
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete runs older than a given age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			repo, closeFn, err := openHistory(root)
			if err != nil {
				return err
			}
			defer closeFn()

			n, err := repo.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d run(s) older than %s\n", n, olderThan)
			return nil
		},
	}
	prune.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age threshold, e.g. 720h")

	cmd.AddCommand(list, show, prune)
	return cmd
}

// openHistory 直接打开历史库，不经过 planner 装配
func openHistory(root *rootOptions) (*history.Repository, func(), error) {
	cfg, err := root.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Database.Enabled {
		return nil, nil, types.NewError(types.ErrConfig, "database is not enabled (set database.enabled)")
	}
	logger := initLogger(quietLog(cfg.Log))

	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN(), logger)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		_ = logger.Sync()
	}
	return history.NewRepository(db, logger), closeFn, nil
}

// quietLog 管理类命令只输出警告以上日志
func quietLog(lc config.LogConfig) config.LogConfig {
	lc.Level = "warn"
	return lc
}

func printRuns(out io.Writer, runs []history.Run, total int64) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCITY\tDAYS\tSTATUS\tTOKENS\tDURATION\tCREATED")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d\t%s\t%s\n",
			r.ID, r.City, r.Days, r.Status, r.TotalTokens,
			(time.Duration(r.DurationMS) * time.Millisecond).String(),
			r.CreatedAt.Local().Format(time.DateTime))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d of %d run(s)\n", len(runs), total)
	return nil
}

