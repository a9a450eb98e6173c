// Package plugin implements the host hooks: Init decodes the plugin
// configuration block, GetDUT binds a design device to a session of the
// matching product family.
package plugin

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/mitchellh/mapstructure"

	"github.com/newtron-network/netcam-meraki/pkg/dashboard"
	"github.com/newtron-network/netcam-meraki/pkg/design"
	"github.com/newtron-network/netcam-meraki/pkg/dut"
	"github.com/newtron-network/netcam-meraki/pkg/dut/appliance"
	"github.com/newtron-network/netcam-meraki/pkg/dut/msswitch"
	"github.com/newtron-network/netcam-meraki/pkg/dut/wireless"
	"github.com/newtron-network/netcam-meraki/pkg/util"
)

// OSName is the design os_name served by this plugin.
const OSName = "meraki"

// Environment fallbacks for settings missing from the config block.
const (
	EnvAPIKey = "MERAKI_DASHBOARD_API_KEY"
	EnvOrgID  = "MERAKI_ORGID"
)

// Config is the decoded plugin configuration. It is passed explicitly to
// every session.
type Config struct {
	OrgID         string        `mapstructure:"org_id"`
	OrgName       string        `mapstructure:"org_name"`
	APIKey        string        `mapstructure:"api_key"`
	BaseURL       string        `mapstructure:"base_url"`
	ProbeInterval time.Duration `mapstructure:"probe_interval"`
	ProbePolls    int           `mapstructure:"probe_polls"`
	SkipProbe     bool          `mapstructure:"skip_probe"`
	Retry         RetryConfig   `mapstructure:"retry"`

	// Clock overrides the probe clock; nil uses wall time.
	Clock clock.Clock `mapstructure:"-"`
}

// RetryConfig tunes the rate-limit retry policy. Zero values take the
// dashboard defaults.
type RetryConfig struct {
	MinWait     time.Duration `mapstructure:"min_wait"`
	MaxWait     time.Duration `mapstructure:"max_wait"`
	MaxAttempts uint          `mapstructure:"max_attempts"`
}

// Init decodes raw into a Config. Durations accept Go duration strings
// ("2s") and integers are accepted in string form. An organization id or
// name is required, from the block or MERAKI_ORGID.
func Init(raw map[string]any) (*Config, error) {
	cfg := &Config{}
	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Metadata:         &md,
		Result:           cfg,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, util.NewConfigError("plugin config", err.Error())
	}
	if len(md.Unused) > 0 {
		util.Warnf("Ignoring unknown plugin config keys: %s", strings.Join(md.Unused, ", "))
	}

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(EnvAPIKey)
	}
	if cfg.OrgID == "" && cfg.OrgName == "" {
		cfg.OrgID = os.Getenv(EnvOrgID)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	util.WithFields(map[string]interface{}{
		"org_id":     cfg.OrgID,
		"org_name":   cfg.OrgName,
		"skip_probe": cfg.SkipProbe,
	}).Debug("Meraki plugin initialised")
	return cfg, nil
}

// Validate checks the settings that have no usable default.
func (c *Config) Validate() error {
	if c.OrgID == "" && c.OrgName == "" {
		return util.NewConfigError("org_id", "org_id or org_name is required")
	}
	if c.ProbePolls < 0 {
		return util.NewConfigError("probe_polls", "must not be negative")
	}
	if c.ProbeInterval < 0 {
		return util.NewConfigError("probe_interval", "must not be negative")
	}
	if c.Retry.MinWait > 0 && c.Retry.MaxWait > 0 && c.Retry.MinWait > c.Retry.MaxWait {
		return util.NewConfigError("retry", "min_wait exceeds max_wait")
	}
	return nil
}

// RetryPolicy returns the rate-limit policy with defaults applied.
func (c *Config) RetryPolicy(m *dashboard.Metrics) dashboard.RetryPolicy {
	p := dashboard.DefaultRetryPolicy()
	if c.Retry.MinWait > 0 {
		p.MinWait = c.Retry.MinWait
	}
	if c.Retry.MaxWait > 0 {
		p.MaxWait = c.Retry.MaxWait
	}
	if c.Retry.MaxAttempts > 0 {
		p.MaxAttempts = c.Retry.MaxAttempts
	}
	p.Metrics = m
	return p
}

// NewInvoker builds the dashboard client wrapped with the retry policy.
func (c *Config) NewInvoker(m *dashboard.Metrics) (dashboard.Invoker, error) {
	if c.APIKey == "" {
		return nil, util.NewConfigError("api_key", "set api_key or "+EnvAPIKey)
	}
	opts := []dashboard.ClientOption{dashboard.WithMetrics(m)}
	if c.BaseURL != "" {
		opts = append(opts, dashboard.WithBaseURL(c.BaseURL))
	}
	return dashboard.WithRetry(dashboard.NewClient(c.APIKey, opts...), c.RetryPolicy(m)), nil
}

// SessionOptions returns the session options derived from the config.
func (c *Config) SessionOptions(m *dashboard.Metrics) dut.Options {
	return dut.Options{
		OrgID:         c.OrgID,
		OrgName:       c.OrgName,
		ProbeInterval: c.ProbeInterval,
		ProbePolls:    c.ProbePolls,
		SkipProbe:     c.SkipProbe,
		Clock:         c.Clock,
		Metrics:       m,
	}
}

// families maps the product model prefix to the family registrations.
var families = map[string]func() dut.Family{
	"MX": appliance.Family,
	"MS": msswitch.Family,
	"MR": wireless.Family,
}

// FamilyFor returns the family serving a product model.
func FamilyFor(productModel string) (dut.Family, bool) {
	if len(productModel) < 2 {
		return dut.Family{}, false
	}
	f, ok := families[strings.ToUpper(productModel[:2])]
	if !ok {
		return dut.Family{}, false
	}
	return f(), true
}

// GetDUT returns an uninitialized session for dev, or nil when the product
// model is not one this plugin serves. A device whose os_name is not
// "meraki" was routed here by mistake and is an error.
func GetDUT(cfg *Config, dev design.Device, api dashboard.Invoker) (*dut.Session, error) {
	return GetDUTWithMetrics(cfg, dev, api, nil)
}

// GetDUTWithMetrics is GetDUT with cache lookups recorded in m.
func GetDUTWithMetrics(cfg *Config, dev design.Device, api dashboard.Invoker, m *dashboard.Metrics) (*dut.Session, error) {
	if cfg == nil {
		return nil, util.NewConfigError("plugin config", "Init has not been called")
	}
	if dev.OSName != OSName {
		return nil, util.NewConfigError("os_name",
			fmt.Sprintf("device %s has os_name %q, this plugin serves %q", dev.Name, dev.OSName, OSName))
	}

	fam, ok := FamilyFor(dev.ProductModel)
	if !ok {
		util.WithDevice(dev.Name).WithField("product_model", dev.ProductModel).Debug("Product model not supported")
		return nil, nil
	}
	return dut.NewSession(dev, api, fam, cfg.SessionOptions(m)), nil
}
