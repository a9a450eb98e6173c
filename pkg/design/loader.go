package design

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/newtron-network/netcam-meraki/pkg/util"
)

// Load reads a YAML design file and returns a validated Design.
func Load(path string) (*Design, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading design %s: %w", path, err)
	}
	d, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("design %s: %w", path, err)
	}
	return d, nil
}

// Parse decodes and validates design YAML.
func Parse(data []byte) (*Design, error) {
	var d Design
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks the structural rules a handler relies on: unique device
// names, unique non-empty check ids per collection, and well-formed
// kind-specific expectations.
func (d *Design) Validate() error {
	v := &util.ValidationBuilder{}
	seen := map[string]bool{}

	for i, dev := range d.Devices {
		if dev.Name == "" {
			v.AddErrorf("devices[%d]: name is required", i)
			continue
		}
		if seen[dev.Name] {
			v.AddErrorf("device %s: defined more than once", dev.Name)
		}
		seen[dev.Name] = true

		for j := range dev.Collections {
			validateCollection(v, dev.Name, j, &dev.Collections[j])
		}
	}
	return v.Build()
}

func validateCollection(v *util.ValidationBuilder, device string, idx int, c *Collection) {
	prefix := fmt.Sprintf("device %s: collections[%d]", device, idx)
	if c.Kind == "" {
		v.AddErrorf("%s: kind is required", prefix)
		return
	}
	prefix = fmt.Sprintf("device %s: %s", device, c.Kind)

	ids := map[string]bool{}
	for _, chk := range c.Checks {
		if chk.ID == "" {
			v.AddErrorf("%s: check id is required", prefix)
			continue
		}
		if ids[chk.ID] {
			v.AddErrorf("%s: check %s defined more than once", prefix, chk.ID)
		}
		ids[chk.ID] = true

		switch e := chk.Expected.(type) {
		case SwitchportExpect:
			v.Add(e.Mode == ModeAccess || e.Mode == ModeTrunk,
				fmt.Sprintf("%s: check %s: switchport_mode must be %q or %q", prefix, chk.ID, ModeAccess, ModeTrunk))
			for _, id := range e.AllowedVLANs {
				if err := util.ValidateVLANID(id); err != nil {
					v.AddErrorf("%s: check %s: %v", prefix, chk.ID, err)
				}
			}
		case VlanExpect:
			n, err := strconv.Atoi(chk.ID)
			if err != nil {
				v.AddErrorf("%s: check id %q is not a VLAN id", prefix, chk.ID)
				continue
			}
			v.Add(n == e.VLAN, fmt.Sprintf("%s: check %s: vlan %d does not match check id", prefix, chk.ID, e.VLAN))
			if err := util.ValidateVLANID(n); err != nil {
				v.AddErrorf("%s: check %s: %v", prefix, chk.ID, err)
			}
		case IPAddrExpect:
			if _, _, err := util.ParseIPWithMask(e.IfIPAddr); err != nil {
				v.AddErrorf("%s: check %s: if_ipaddr %q: %v", prefix, chk.ID, e.IfIPAddr, err)
			}
		case CablingExpect:
			v.Add(e.Device != "", fmt.Sprintf("%s: check %s: device is required", prefix, chk.ID))
		}
	}
}
