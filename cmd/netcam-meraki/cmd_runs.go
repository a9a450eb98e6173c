package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/netcam-meraki/pkg/cli"
	"github.com/newtron-network/netcam-meraki/pkg/resultstore"
	"github.com/newtron-network/netcam-meraki/pkg/util"
)

var (
	runsRedis   string
	runsRedisDB int
	runsShowAll bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show validation runs kept in Redis",
	Long: `Show validation runs stored by 'check --redis'.

Examples:
  netcam-meraki runs list
  netcam-meraki runs show 0b6f7c2e-4a1d-4c55-9a57-2f8e1c9d3b10 --all
  netcam-meraki runs delete 0b6f7c2e-4a1d-4c55-9a57-2f8e1c9d3b10`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, s *resultstore.Store) error {
			runs, err := s.ListRuns(ctx)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("No stored runs")
				return nil
			}
			t := cli.NewTable("RUN", "SAVED")
			for _, r := range runs {
				t.Row(r.ID, r.Saved.Local().Format(time.RFC3339))
			}
			t.Flush()
			return nil
		})
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the results of a stored run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, s *resultstore.Store) error {
			rep, err := s.LoadRun(ctx, args[0])
			if err != nil {
				return err
			}
			printReport(os.Stdout, rep, runsShowAll)
			if rep.AnyFailures() {
				return fmt.Errorf("run %s has failures: %w", rep.RunID, util.ErrValidationFailed)
			}
			return nil
		})
	},
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a stored run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, s *resultstore.Store) error {
			if err := s.DeleteRun(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted run %s\n", args[0])
			return nil
		})
	},
}

func init() {
	runsCmd.PersistentFlags().StringVar(&runsRedis, "redis", "", "Redis address (default from settings)")
	runsCmd.PersistentFlags().IntVar(&runsRedisDB, "redis-db", -1, "Redis database (default from settings)")
	runsShowCmd.Flags().BoolVarP(&runsShowAll, "all", "a", false, "Show passing and informational results")

	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsDeleteCmd)
}

func withStore(ctx context.Context, fn func(context.Context, *resultstore.Store) error) error {
	s, err := openStore(ctx, runsRedis, runsRedisDB)
	if err != nil {
		return err
	}
	if s == nil {
		return util.NewConfigError("redis_addr", "use --redis or 'settings set redis_addr <addr>'")
	}
	defer s.Close()
	return fn(ctx, s)
}
