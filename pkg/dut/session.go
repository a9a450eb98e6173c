// Package dut implements the device-under-test session: identity resolution
// against the Meraki dashboard, the reachability probe, the per-session API
// cache and the dispatch of check collections to handlers.
package dut

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/newtron-network/netcam-meraki/pkg/dashboard"
	"github.com/newtron-network/netcam-meraki/pkg/design"
	"github.com/newtron-network/netcam-meraki/pkg/result"
	"github.com/newtron-network/netcam-meraki/pkg/util"
)

// Cache keys shared by the base accessors.
const (
	KeyOrganizations = "organizations"
	KeyInventory     = "inventory"
	KeyLLDPStatus    = "lldp_status"
	KeyMgmtIface     = "mgmt_iface"
)

// State is the session lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateSettingUp
	StateReady
	StateTornDown
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateSettingUp:
		return "setting-up"
	case StateReady:
		return "ready"
	case StateTornDown:
		return "torn-down"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Options is the session configuration, taken from the plugin config.
type Options struct {
	OrgID         string
	OrgName       string
	ProbeInterval time.Duration
	ProbePolls    int
	SkipProbe     bool
	Clock         clock.Clock
	Metrics       *dashboard.Metrics
}

func (o Options) withDefaults() Options {
	if o.ProbeInterval <= 0 {
		o.ProbeInterval = DefaultProbeInterval
	}
	if o.ProbePolls <= 0 {
		o.ProbePolls = DefaultProbePolls
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	return o
}

// Session is the validated binding to one dashboard-managed device. Handlers
// read device state through its cached accessors and never mutate it.
type Session struct {
	device   design.Device
	api      dashboard.Invoker
	opts     Options
	family   string
	dispatch *Dispatcher
	cache    *Cache

	mu        sync.RWMutex
	state     State
	orgID     string
	inventory gjson.Result
	serial    string
	model     string
	networkID string
	reachable bool
}

// NewSession creates an uninitialized session for dev. api should already be
// wrapped with the retry policy.
func NewSession(dev design.Device, api dashboard.Invoker, fam Family, opts Options) *Session {
	opts = opts.withDefaults()
	return &Session{
		device:   dev,
		api:      api,
		opts:     opts,
		family:   fam.Name,
		dispatch: NewDispatcher(fam.Handlers),
		cache:    NewCache(api, opts.Metrics),
	}
}

// ============================================================================
// Identity
// ============================================================================

// Name returns the design name of the device.
func (s *Session) Name() string { return s.device.Name }

// Device returns the design record for the device.
func (s *Session) Device() design.Device { return s.device }

// Family returns the product family name ("appliance", "switch", "wireless").
func (s *Session) Family() string { return s.family }

// Dispatcher returns the session's handler table.
func (s *Session) Dispatcher() *Dispatcher { return s.dispatch }

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Serial returns the dashboard serial number, set during Setup.
func (s *Session) Serial() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.serial
}

// Model returns the dashboard product model, set during Setup.
func (s *Session) Model() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

// NetworkID returns the dashboard network id, set during Setup.
func (s *Session) NetworkID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.networkID
}

// OrgID returns the resolved organization id.
func (s *Session) OrgID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orgID
}

// Reachable reports the result of the setup probe.
func (s *Session) Reachable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reachable
}

// Inventory returns the device's organization inventory record.
func (s *Session) Inventory() gjson.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inventory
}

// Log returns a logger scoped to this device.
func (s *Session) Log() *logrus.Entry {
	return util.WithDevice(s.device.Name)
}

// Ref builds a result reference for a check in c.
func (s *Session) Ref(c *design.Collection, checkID string) result.Ref {
	return result.For(s.device.Name, c.Kind.String(), checkID)
}

// ============================================================================
// Lifecycle
// ============================================================================

// Setup resolves the organization and the device's inventory record, then
// probes reachability. Any failure leaves the session Failed.
func (s *Session) Setup(ctx context.Context) (err error) {
	s.mu.Lock()
	if s.state != StateUninitialized {
		st := s.state
		s.mu.Unlock()
		return util.NewStateError(s.Name(), "setup", st.String())
	}
	s.state = StateSettingUp
	s.mu.Unlock()

	log := s.Log()
	log.Debug("Setting up device session")

	defer func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			s.state = StateFailed
			log.WithError(err).Error("Device session setup failed")
			return
		}
		s.state = StateReady
		log.WithFields(logrus.Fields{
			"serial": s.serial,
			"model":  s.model,
		}).Info("Device session ready")
	}()

	orgID, err := s.resolveOrg(ctx)
	if err != nil {
		return err
	}

	rec, err := s.lookupInventory(ctx, orgID)
	if err != nil {
		return err
	}

	serial := rec.Get("serial").String()
	if serial == "" {
		return util.NewPayloadError("organizations.getOrganizationDevices", "inventory record has no serial")
	}

	s.mu.Lock()
	s.orgID = orgID
	s.inventory = rec
	s.serial = serial
	s.model = rec.Get("model").String()
	s.networkID = rec.Get("networkId").String()
	s.mu.Unlock()

	return s.probe(ctx, serial)
}

func (s *Session) resolveOrg(ctx context.Context) (string, error) {
	if s.opts.OrgID != "" {
		return s.opts.OrgID, nil
	}
	if s.opts.OrgName == "" {
		return "", util.NewConfigError("org_id", "an organization id or name is required")
	}

	orgs, err := s.cache.Get(ctx, KeyOrganizations, "organizations.getOrganizations", nil)
	if err != nil {
		return "", fmt.Errorf("resolving organization %q: %w", s.opts.OrgName, err)
	}

	var ids []string
	for _, org := range orgs.Array() {
		if org.Get("name").String() == s.opts.OrgName {
			ids = append(ids, org.Get("id").String())
		}
	}
	switch len(ids) {
	case 0:
		return "", util.NewConfigError("org_name", fmt.Sprintf("no organization named %q", s.opts.OrgName))
	case 1:
		return ids[0], nil
	default:
		return "", util.NewConfigError("org_name", fmt.Sprintf("%d organizations named %q", len(ids), s.opts.OrgName))
	}
}

func (s *Session) lookupInventory(ctx context.Context, orgID string) (gjson.Result, error) {
	devices, err := s.cache.Get(ctx, KeyInventory, "organizations.getOrganizationDevices", dashboard.Params{
		"organizationId": orgID,
		"name":           s.device.Name,
	})
	if err != nil {
		return gjson.Result{}, fmt.Errorf("looking up %s: %w", s.device.Name, err)
	}

	// The name filter is a substring match on the dashboard side.
	var matches []gjson.Result
	for _, d := range devices.Array() {
		if d.Get("name").String() == s.device.Name {
			matches = append(matches, d)
		}
	}
	if len(matches) != 1 {
		return gjson.Result{}, util.NewNotFoundError(s.device.Name, orgID, len(matches))
	}
	return matches[0], nil
}

// Execute runs one check collection. A kind with no handler, or a handler that
// produces nothing, yields a single Skip result.
func (s *Session) Execute(ctx context.Context, c *design.Collection) (result.Results, error) {
	if st := s.State(); st != StateReady {
		return nil, util.NewStateError(s.Name(), "execute", st.String())
	}

	log := util.WithCollection(s.Name(), c.Kind.String())
	ref := s.Ref(c, "")

	h, ok := s.dispatch.Lookup(c.Kind)
	if !ok {
		log.Debug("No handler for collection kind")
		return result.Results{result.Skip(ref,
			fmt.Sprintf("Missing: device %s support for checks of type %q", s.Name(), c.Kind))}, nil
	}

	log.Debugf("Executing %d checks", len(c.Checks))
	rs, err := h(ctx, s, c)
	if err != nil {
		return nil, fmt.Errorf("%s: %s checks: %w", s.Name(), c.Kind, err)
	}
	if len(rs) == 0 {
		return result.Results{result.Skip(ref, "no results reported for "+c.Kind.String())}, nil
	}
	return rs, nil
}

// Teardown ends the session. Nothing is held open between calls, so it
// always succeeds.
func (s *Session) Teardown(ctx context.Context) error {
	s.mu.Lock()
	s.state = StateTornDown
	s.mu.Unlock()
	s.Log().WithField("cached", s.cache.Len()).Debug("Device session torn down")
	return nil
}

// ============================================================================
// Cached accessors
// ============================================================================

// Cached fetches op through the session cache under key.
func (s *Session) Cached(ctx context.Context, key, op string, params dashboard.Params) (gjson.Result, error) {
	return s.cache.Get(ctx, key, op, params)
}

// Cache returns the session cache.
func (s *Session) Cache() *Cache { return s.cache }

// LLDPStatus returns the device LLDP/CDP neighbor table.
func (s *Session) LLDPStatus(ctx context.Context) (gjson.Result, error) {
	return s.Cached(ctx, KeyLLDPStatus, "devices.getDeviceLldpCdp", dashboard.Params{"serial": s.Serial()})
}

// ManagementInterface returns the device management interface settings.
func (s *Session) ManagementInterface(ctx context.Context) (gjson.Result, error) {
	return s.Cached(ctx, KeyMgmtIface, "devices.getDeviceManagementInterface", dashboard.Params{"serial": s.Serial()})
}
