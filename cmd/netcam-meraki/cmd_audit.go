package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/netcam-meraki/pkg/audit"
	"github.com/newtron-network/netcam-meraki/pkg/cli"
	"github.com/newtron-network/netcam-meraki/pkg/settings"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "View the validation audit log",
	Long: `View the audit log of device validations.

Every device checked by 'check' is logged with:
  - Timestamp and user
  - Run id
  - Device, family and serial
  - Failure count and outcome

Examples:
  netcam-meraki audit list --device sw01
  netcam-meraki audit list --last 24h --failures
  netcam-meraki audit list --run 0b6f7c2e-4a1d-4c55-9a57-2f8e1c9d3b10`,
}

var (
	auditPath     string
	auditDevice   string
	auditRun      string
	auditLast     string
	auditLimit    int
	auditFailures bool
	auditJSON     bool
)

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit events",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := audit.Filter{
			Device:      auditDevice,
			RunID:       auditRun,
			Limit:       auditLimit,
			FailureOnly: auditFailures,
		}

		if auditLast != "" {
			duration, err := time.ParseDuration(auditLast)
			if err != nil {
				return fmt.Errorf("invalid duration: %s", auditLast)
			}
			filter.StartTime = time.Now().Add(-duration)
		}

		events, err := audit.QueryFile(auditPath, filter)
		if err != nil {
			return fmt.Errorf("querying audit log: %w", err)
		}

		if auditJSON {
			return json.NewEncoder(os.Stdout).Encode(events)
		}

		if len(events) == 0 {
			fmt.Println("No audit events found")
			return nil
		}

		t := cli.NewTable("TIMESTAMP", "USER", "RUN", "DEVICE", "FAILURES", "STATUS")
		for _, event := range events {
			status := cli.Green("ok")
			switch {
			case event.Unsupported:
				status = cli.Yellow("unsupported")
			case !event.Success:
				status = cli.Red("failed")
			}
			t.Row(
				event.Timestamp.Local().Format("2006-01-02 15:04:05"),
				event.User,
				event.RunID,
				event.Device,
				strconv.Itoa(event.Failures),
				status,
			)
		}
		t.Flush()
		return nil
	},
}

func init() {
	auditCmd.PersistentFlags().StringVar(&auditPath, "file", settings.DefaultAuditPath(), "Audit log file")
	auditListCmd.Flags().StringVar(&auditDevice, "device", "", "Filter by device")
	auditListCmd.Flags().StringVar(&auditRun, "run", "", "Filter by run id")
	auditListCmd.Flags().StringVar(&auditLast, "last", "", "Show events from last duration (e.g., 24h)")
	auditListCmd.Flags().IntVar(&auditLimit, "limit", 100, "Maximum events to show")
	auditListCmd.Flags().BoolVar(&auditFailures, "failures", false, "Show only failed devices")
	auditListCmd.Flags().BoolVar(&auditJSON, "json", false, "Output as JSON")

	auditCmd.AddCommand(auditListCmd)
}
