// Package audit keeps a JSON-lines trail of device validations: who ran a
// check, against which device, and how it came out.
package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/newtron-network/netcam-meraki/pkg/result"
	"github.com/newtron-network/netcam-meraki/pkg/runner"
)

// Event records the outcome of validating one device in one run.
type Event struct {
	ID          string              `json:"id"`
	Timestamp   time.Time           `json:"timestamp"`
	User        string              `json:"user"`
	RunID       string              `json:"run_id"`
	Device      string              `json:"device"`
	Family      string              `json:"family,omitempty"`
	Serial      string              `json:"serial,omitempty"`
	Success     bool                `json:"success"`
	Unsupported bool                `json:"unsupported,omitempty"`
	Failures    int                 `json:"failures"`
	Counts      map[result.Kind]int `json:"counts,omitempty"`
	Errors      []string            `json:"errors,omitempty"`
	Duration    time.Duration       `json:"duration"`
}

// Filter defines criteria for querying audit events
type Filter struct {
	Device      string
	RunID       string
	User        string
	StartTime   time.Time
	EndTime     time.Time
	SuccessOnly bool
	FailureOnly bool
	Limit       int
	Offset      int
}

// NewEvent creates the event for one device report.
func NewEvent(user, runID string, rep runner.DeviceReport) *Event {
	return &Event{
		ID:          uuid.NewString(),
		Timestamp:   time.Now(),
		User:        user,
		RunID:       runID,
		Device:      rep.Device,
		Family:      rep.Family,
		Serial:      rep.Serial,
		Success:     !rep.Failed(),
		Unsupported: rep.Unsupported,
		Failures:    len(rep.Results.Failures()),
		Counts:      rep.Results.Counts(),
		Errors:      rep.Errors,
		Duration:    rep.Duration,
	}
}

func (f Filter) matches(e *Event) bool {
	if f.Device != "" && e.Device != f.Device {
		return false
	}
	if f.RunID != "" && e.RunID != f.RunID {
		return false
	}
	if f.User != "" && e.User != f.User {
		return false
	}
	if !f.StartTime.IsZero() && e.Timestamp.Before(f.StartTime) {
		return false
	}
	if !f.EndTime.IsZero() && e.Timestamp.After(f.EndTime) {
		return false
	}
	if f.SuccessOnly && !e.Success {
		return false
	}
	if f.FailureOnly && e.Success {
		return false
	}
	return true
}
