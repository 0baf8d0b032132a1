package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaSui01/tripcrew/config"
	"github.com/BaSui01/tripcrew/itinerary"
	"github.com/BaSui01/tripcrew/planner"
)

// =============================================================================
// 🧭 suggest / plan 命令
// =============================================================================

// crewErrorPrefix 与 Crew 运行失败时的输出保持一致，进程仍以 0 退出
const crewErrorPrefix = "Error while running crew: "

type suggestOptions struct {
	city  string
	count int
	quiet bool
}

func newSuggestCmd(root *rootOptions) *cobra.Command {
	opts := &suggestOptions{}
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest popular attractions in a city with a single travel agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			applyQuiet(cfg, opts.quiet)
			logger := initLogger(cfg.Log)
			defer logger.Sync()

			a, err := newApp(cmd.Context(), cfg, logger, appOptions{})
			if err != nil {
				return err
			}
			defer a.close()

			out := cmd.OutOrStdout()
			text, err := a.planner.Suggest(cmd.Context(), opts.city, opts.count)
			if err != nil {
				logger.Debug("suggest failed", zap.Error(err))
				fmt.Fprintln(out, crewErrorPrefix+err.Error())
				return nil
			}
			fmt.Fprintln(out, text)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.city, "city", "c", "New York", "City to suggest attractions for")
	f.IntVarP(&opts.count, "count", "n", 3, "Number of attractions")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "Disable verbose crew output")
	return cmd
}

type planOptions struct {
	city     string
	days     int
	perDay   int
	count    int
	quiet    bool
	jsonOnly bool
}

func newPlanCmd(root *rootOptions) *cobra.Command {
	opts := &planOptions{}
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Research a city and build a day-by-day itinerary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("count") {
				opts.perDay = itinerary.PerDayForCount(opts.count, opts.days)
			}
			req, err := itinerary.NewRequest(opts.city, opts.days, opts.perDay)
			if err != nil {
				return err
			}

			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			applyQuiet(cfg, opts.quiet)
			logger := initLogger(cfg.Log)
			defer logger.Sync()

			a, err := newApp(cmd.Context(), cfg, logger, appOptions{})
			if err != nil {
				return err
			}
			defer a.close()

			out := cmd.OutOrStdout()
			res, err := a.planner.Plan(cmd.Context(), req)
			if err != nil {
				fmt.Fprintln(out, crewErrorPrefix+err.Error())
				return nil
			}
			for _, w := range res.Warnings {
				logger.Warn("itinerary check", zap.String("warning", w))
			}
			if opts.jsonOnly {
				if err := planner.RenderJSON(out, res); err != nil {
					fmt.Fprintln(out, crewErrorPrefix+err.Error())
				}
				return nil
			}
			return planner.Render(out, res)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.city, "city", "c", "Isfahan", "City to plan the trip for")
	f.IntVarP(&opts.days, "days", "d", 2, "Number of days")
	f.IntVarP(&opts.perDay, "attractions-per-day", "a", 2, "Attractions per day")
	f.IntVarP(&opts.count, "count", "n", 0, "Total attractions; overrides --attractions-per-day")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "Disable verbose crew output")
	f.BoolVar(&opts.jsonOnly, "json", false, "Print only the itinerary JSON")
	return cmd
}

// applyQuiet 关闭逐任务日志并提高日志级别
func applyQuiet(cfg *config.Config, quiet bool) {
	if !quiet {
		return
	}
	cfg.Crew.Verbose = false
	cfg.Log.Level = "warn"
}
