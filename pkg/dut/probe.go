package dut

import (
	"context"
	"time"

	"github.com/newtron-network/netcam-meraki/pkg/dashboard"
	"github.com/newtron-network/netcam-meraki/pkg/util"
)

// Probe defaults: poll every 2s, at most 15 times.
const (
	DefaultProbeInterval = 2 * time.Second
	DefaultProbePolls    = 15
)

// Ping job statuses. ProbeTimeout is local: the job never reached a
// terminal status within the poll budget.
const (
	ProbeComplete = "complete"
	ProbeFailed   = "failed"
	ProbeTimeout  = "timeout"
)

const (
	opStartPing = "devices.createDeviceLiveToolsPingDevice"
	opPollPing  = "devices.getDeviceLiveToolsPingDevice"
)

// probe runs a dashboard live-tools ping against the device. The device is
// reachable exactly when the job completes. A failure of the probe API itself
// is logged and treated as reachable so that it cannot fail the session.
func (s *Session) probe(ctx context.Context, serial string) error {
	log := s.Log().WithField("serial", serial)

	if s.opts.SkipProbe {
		log.Info("Reachability probe disabled, treating device as reachable")
		s.setReachable()
		return nil
	}

	start, err := s.api.Invoke(ctx, opStartPing, dashboard.Params{"serial": serial})
	if err != nil {
		log.WithError(err).Warn("Could not start reachability probe, treating device as reachable")
		s.setReachable()
		return nil
	}
	pingID := start.Get("pingId").String()
	if pingID == "" {
		log.Warn("Reachability probe returned no job id, treating device as reachable")
		s.setReachable()
		return nil
	}

	status := ProbeTimeout
	for poll := 1; poll <= s.opts.ProbePolls; poll++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.opts.Clock.After(s.opts.ProbeInterval):
		}

		res, err := s.api.Invoke(ctx, opPollPing, dashboard.Params{"serial": serial, "id": pingID})
		if err != nil {
			log.WithError(err).Warn("Could not poll reachability probe, treating device as reachable")
			s.setReachable()
			return nil
		}

		st := res.Get("status").String()
		log.Debugf("Reachability probe poll %d/%d: %s", poll, s.opts.ProbePolls, st)
		if st == ProbeComplete || st == ProbeFailed {
			status = st
			break
		}
	}

	if status != ProbeComplete {
		return util.NewUnreachableError(s.Name(), serial, status)
	}
	s.setReachable()
	return nil
}

func (s *Session) setReachable() {
	s.mu.Lock()
	s.reachable = true
	s.mu.Unlock()
}
