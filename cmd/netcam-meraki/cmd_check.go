package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/newtron-network/netcam-meraki/pkg/audit"
	"github.com/newtron-network/netcam-meraki/pkg/cli"
	"github.com/newtron-network/netcam-meraki/pkg/dashboard"
	"github.com/newtron-network/netcam-meraki/pkg/design"
	"github.com/newtron-network/netcam-meraki/pkg/result"
	"github.com/newtron-network/netcam-meraki/pkg/resultstore"
	"github.com/newtron-network/netcam-meraki/pkg/runner"
	"github.com/newtron-network/netcam-meraki/pkg/settings"
	"github.com/newtron-network/netcam-meraki/pkg/util"
)

var (
	checkShowAll     bool
	checkJSON        bool
	checkSkipProbe   bool
	checkConcurrency int
	checkRedis       string
	checkRedisDB     int
	checkMetricsAddr string
	checkAuditLog    string
)

var checkCmd = &cobra.Command{
	Use:   "check [device...]",
	Short: "Validate devices against the design",
	Long: `Validate devices against the design.

With no arguments every device in the design is checked. Failing checks,
skips and per-device errors are shown; use --all to include passes and
informational results. The exit status is non-zero when any check fails.

Examples:
  netcam-meraki check
  netcam-meraki check sw01 --all
  netcam-meraki check --json > run.json
  netcam-meraki check --redis localhost:6379 --metrics-addr :9273`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		d, err := design.Load(designFile)
		if err != nil {
			return err
		}

		cfg, err := initPlugin(checkSkipProbe)
		if err != nil {
			return err
		}

		if checkMetricsAddr == "" {
			checkMetricsAddr = userSettings.MetricsAddr
		}
		var metrics *dashboard.Metrics
		if checkMetricsAddr != "" {
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			metrics = dashboard.NewMetrics(reg)
			srv := serveMetrics(checkMetricsAddr, reg)
			defer srv.Close()
		}

		api, err := cfg.NewInvoker(metrics)
		if err != nil {
			return err
		}

		opts := runner.Options{
			Concurrency: checkConcurrency,
			Metrics:     metrics,
			Devices:     args,
		}
		if opts.Concurrency == 0 {
			opts.Concurrency = userSettings.Concurrency
		}

		var sinks runner.MultiSink
		if auditLog, err := audit.NewFileLogger(checkAuditLog, audit.DefaultRotation); err != nil {
			util.Warnf("Could not initialize audit logging: %v", err)
		} else {
			defer auditLog.Close()
			sinks = append(sinks, auditLog)
		}

		store, err := openStore(ctx, checkRedis, checkRedisDB)
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
			sinks = append(sinks, store)
		}
		if len(sinks) > 0 {
			opts.Sink = sinks
		}

		rep, err := runner.New(cfg, api, opts).Run(ctx, d)
		if err != nil {
			return err
		}

		if checkJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(rep); err != nil {
				return err
			}
		} else {
			printReport(os.Stdout, rep, checkShowAll)
			if store != nil {
				fmt.Printf("\nRun stored as %s\n", rep.RunID)
			}
		}

		if rep.AnyFailures() {
			return fmt.Errorf("%d of %d devices failed: %w", rep.Summary().Failed, len(rep.Devices), util.ErrValidationFailed)
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().BoolVarP(&checkShowAll, "all", "a", false, "Show passing and informational results")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Output the run as JSON")
	checkCmd.Flags().BoolVar(&checkSkipProbe, "skip-probe", false, "Skip the reachability probe")
	checkCmd.Flags().IntVarP(&checkConcurrency, "concurrency", "c", 0, fmt.Sprintf("Devices validated at once (default %d)", runner.DefaultConcurrency))
	checkCmd.Flags().StringVar(&checkRedis, "redis", "", "Store results in Redis at this address (default from settings)")
	checkCmd.Flags().IntVar(&checkRedisDB, "redis-db", -1, "Redis database for stored results (default from settings)")
	checkCmd.Flags().StringVar(&checkMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the run")
	checkCmd.Flags().StringVar(&checkAuditLog, "audit-log", settings.DefaultAuditPath(), "Audit log file")
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			util.Warnf("Metrics server on %s: %v", addr, err)
		}
	}()
	util.Infof("Serving metrics on %s/metrics", addr)
	return srv
}

// openStore connects the result store, or returns nil when no address is
// given by flag or settings.
func openStore(ctx context.Context, addr string, db int) (*resultstore.Store, error) {
	if addr == "" {
		addr = userSettings.GetRedisAddr()
	}
	if addr == "" {
		return nil, nil
	}
	if db < 0 {
		db = userSettings.RedisDB
	}
	return resultstore.NewStore(ctx, addr, db, resultstore.DefaultTTL)
}

// ============================================================================
// Report rendering
// ============================================================================

// printReport writes one section per device followed by a summary line.
// Unless all is set, only failures, skips and errors are listed.
func printReport(w io.Writer, rep *runner.Report, all bool) {
	for _, d := range rep.SortedDevices() {
		status := cli.Green("ok")
		switch {
		case d.Unsupported:
			status = cli.Yellow("unsupported")
		case d.Failed():
			status = cli.Red("failed")
		}
		heading := d.Device
		if d.Family != "" {
			heading += " (" + d.Family
			if d.Serial != "" {
				heading += " " + d.Serial
			}
			heading += ")"
		}
		fmt.Fprintf(w, "%s%s %s %s\n", cli.Bold(heading), strings.TrimPrefix(cli.DotPad(heading, 50), heading), status, cli.Dim(d.Duration.Round(time.Millisecond).String()))

		for _, e := range d.Errors {
			fmt.Fprintf(w, "  %s %s\n", cli.Red("ERROR"), e)
		}

		t := cli.NewTable("STATUS", "CHECK", "ID", "FIELD", "DETAIL").WithWriter(w).WithPrefix("  ")
		for _, r := range d.Results {
			if !all && (r.Kind == result.KindPass || r.Kind == result.KindInfo) {
				continue
			}
			t.Row(cli.KindLabel(r.Kind), r.CheckType, r.CheckID, r.Field, cli.Detail(r))
		}
		t.Flush()
	}

	s := rep.Summary()
	fmt.Fprintf(w, "\n%d devices: %d failed, %d errored, %d unsupported; %d pass, %d fail, %d info, %d skip\n",
		s.Devices, s.Failed, s.Errored, s.Unsupported,
		s.Counts[result.KindPass], failures(s.Counts), s.Counts[result.KindInfo], s.Counts[result.KindSkip])
}

func failures(counts map[result.Kind]int) int {
	n := 0
	for k, c := range counts {
		if k.IsFailure() {
			n += c
		}
	}
	return n
}
