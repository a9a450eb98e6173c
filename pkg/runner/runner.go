// Package runner validates the devices of a design concurrently. Each device
// runs in its own session; a failure on one device is recorded in its report
// and never stops the others.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/newtron-network/netcam-meraki/pkg/dashboard"
	"github.com/newtron-network/netcam-meraki/pkg/design"
	"github.com/newtron-network/netcam-meraki/pkg/plugin"
	"github.com/newtron-network/netcam-meraki/pkg/result"
	"github.com/newtron-network/netcam-meraki/pkg/util"
)

// DefaultConcurrency bounds the devices validated at once. The dashboard
// rate limit is per organization, so wide fan-out only buys 429s.
const DefaultConcurrency = 4

// Sink receives each device report as soon as the device finishes.
type Sink interface {
	SaveDevice(ctx context.Context, runID string, rep DeviceReport) error
}

// MultiSink fans a report out to several sinks. Every sink is tried; the
// errors are joined.
type MultiSink []Sink

// SaveDevice saves rep to every sink.
func (m MultiSink) SaveDevice(ctx context.Context, runID string, rep DeviceReport) error {
	var errs []error
	for _, s := range m {
		if err := s.SaveDevice(ctx, runID, rep); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Options configures a Runner.
type Options struct {
	Concurrency int
	Metrics     *dashboard.Metrics
	Sink        Sink
	// Devices restricts the run to the named devices; empty runs all.
	Devices []string
}

// DeviceReport is the outcome for one device.
type DeviceReport struct {
	Device      string         `json:"device"`
	Family      string         `json:"family,omitempty"`
	Serial      string         `json:"serial,omitempty"`
	Unsupported bool           `json:"unsupported,omitempty"`
	Results     result.Results `json:"results"`
	Errors      []string       `json:"errors,omitempty"`
	Duration    time.Duration  `json:"duration"`
}

// Failed reports whether the device had any failing result or error.
func (d DeviceReport) Failed() bool {
	return len(d.Errors) > 0 || d.Results.AnyFailures()
}

// Report is the outcome of one run.
type Report struct {
	RunID    string         `json:"run_id"`
	Started  time.Time      `json:"started"`
	Finished time.Time      `json:"finished"`
	Devices  []DeviceReport `json:"devices"`
}

// Summary counts a run's outcome.
type Summary struct {
	Devices     int                 `json:"devices"`
	Failed      int                 `json:"failed"`
	Errored     int                 `json:"errored"`
	Unsupported int                 `json:"unsupported"`
	Counts      map[result.Kind]int `json:"counts"`
}

// Summary tallies results by kind and devices by outcome.
func (r *Report) Summary() Summary {
	s := Summary{Counts: map[result.Kind]int{}}
	for _, d := range r.Devices {
		s.Devices++
		if d.Unsupported {
			s.Unsupported++
		}
		if len(d.Errors) > 0 {
			s.Errored++
		}
		if d.Failed() {
			s.Failed++
		}
		for k, n := range d.Results.Counts() {
			s.Counts[k] += n
		}
	}
	return s
}

// AnyFailures reports whether any device failed.
func (r *Report) AnyFailures() bool {
	for _, d := range r.Devices {
		if d.Failed() {
			return true
		}
	}
	return false
}

// Runner runs design validation against the dashboard.
type Runner struct {
	cfg  *plugin.Config
	api  dashboard.Invoker
	opts Options
}

// New creates a runner. api is shared by every session and should already
// carry the retry policy.
func New(cfg *plugin.Config, api dashboard.Invoker, opts Options) *Runner {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Runner{cfg: cfg, api: api, opts: opts}
}

// Run validates the selected devices of d. The returned error is non-nil
// only when the run itself could not proceed: an unknown device name, or a
// cancelled context.
func (r *Runner) Run(ctx context.Context, d *design.Design) (*Report, error) {
	devices, err := r.selectDevices(d)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		RunID:   uuid.NewString(),
		Started: time.Now(),
		Devices: make([]DeviceReport, len(devices)),
	}
	log := util.WithField("run_id", rep.RunID)
	log.Infof("Validating %d devices", len(devices))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)
	for i, dev := range devices {
		g.Go(func() error {
			dr := r.runDevice(gctx, dev)
			rep.Devices[i] = dr
			if r.opts.Sink != nil {
				if err := r.opts.Sink.SaveDevice(gctx, rep.RunID, dr); err != nil {
					log.WithError(err).WithField("device", dev.Name).Warn("Could not store device results")
				}
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return rep, err
	}

	rep.Finished = time.Now()
	log.WithField("elapsed", rep.Finished.Sub(rep.Started).Round(time.Millisecond)).Info("Run complete")
	return rep, nil
}

func (r *Runner) selectDevices(d *design.Design) ([]design.Device, error) {
	if len(r.opts.Devices) == 0 {
		return d.Devices, nil
	}
	out := make([]design.Device, 0, len(r.opts.Devices))
	for _, name := range r.opts.Devices {
		dev := d.Device(name)
		if dev == nil {
			return nil, fmt.Errorf("device %q is not in the design", name)
		}
		out = append(out, *dev)
	}
	return out, nil
}

// runDevice runs every collection of dev in one session. A collection error
// is recorded and the next collection still runs.
func (r *Runner) runDevice(ctx context.Context, dev design.Device) (dr DeviceReport) {
	start := time.Now()
	dr.Device = dev.Name
	log := util.WithDevice(dev.Name)
	defer func() { dr.Duration = time.Since(start) }()

	s, err := plugin.GetDUTWithMetrics(r.cfg, dev, r.api, r.opts.Metrics)
	if err != nil {
		dr.Errors = append(dr.Errors, err.Error())
		return dr
	}
	if s == nil {
		dr.Unsupported = true
		dr.Results = result.Results{result.Skip(result.For(dev.Name, "", ""),
			fmt.Sprintf("product model %q not supported", dev.ProductModel))}
		return dr
	}
	dr.Family = s.Family()

	if err := s.Setup(ctx); err != nil {
		dr.Errors = append(dr.Errors, err.Error())
		return dr
	}
	dr.Serial = s.Serial()
	defer func() {
		if err := s.Teardown(ctx); err != nil {
			log.WithError(err).Warn("Teardown failed")
		}
	}()

	for i := range dev.Collections {
		c := &dev.Collections[i]
		rs, err := s.Execute(ctx, c)
		if err != nil {
			log.WithError(err).WithField("kind", c.Kind.String()).Error("Collection failed")
			dr.Errors = append(dr.Errors, err.Error())
			continue
		}
		dr.Results = append(dr.Results, rs...)
	}

	log.WithFields(logrus.Fields{
		"results":  len(dr.Results),
		"failures": len(dr.Results.Failures()),
	}).Info("Device validated")
	return dr
}

// SortedDevices returns the device reports ordered by name.
func (r *Report) SortedDevices() []DeviceReport {
	out := append([]DeviceReport(nil), r.Devices...)
	sort.Slice(out, func(i, j int) bool { return out[i].Device < out[j].Device })
	return out
}
