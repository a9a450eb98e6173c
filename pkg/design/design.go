// Package design holds the network design consumed by the validator: the
// devices to check and, per device, the check collections with their expected
// results.
package design

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Kind identifies a check collection. It is the dispatch key.
type Kind string

const (
	KindDeviceInfo  Kind = "device-info"
	KindInterfaces  Kind = "interfaces"
	KindIPAddrs     Kind = "ipaddrs"
	KindSwitchports Kind = "switchports"
	KindVlans       Kind = "vlans"
	KindCabling     Kind = "cabling"
)

// Known reports whether k has a defined expectation shape.
func (k Kind) Known() bool {
	switch k {
	case KindDeviceInfo, KindInterfaces, KindIPAddrs, KindSwitchports, KindVlans, KindCabling:
		return true
	}
	return false
}

func (k Kind) String() string { return string(k) }

// Switchport modes.
const (
	ModeAccess = "access"
	ModeTrunk  = "trunk"
)

// Design is the top-level design file.
type Design struct {
	Devices []Device `yaml:"devices"`
}

// Device describes one managed device and the collections to run on it.
type Device struct {
	Name         string       `yaml:"name"`
	OSName       string       `yaml:"os_name"`
	ProductModel string       `yaml:"product_model"`
	Collections  []Collection `yaml:"collections,omitempty"`
}

// Device returns the named device, or nil.
func (d *Design) Device(name string) *Device {
	for i := range d.Devices {
		if d.Devices[i].Name == name {
			return &d.Devices[i]
		}
	}
	return nil
}

// Collection is a typed batch of checks sharing one kind. When Exclusive is
// set the handler also emits a device-wide exclusive-list result.
type Collection struct {
	Kind      Kind
	Exclusive bool
	Checks    []Check
}

// CheckParams carries per-check modifiers.
type CheckParams struct {
	InterfaceFlags map[string]bool `yaml:"interface_flags,omitempty"`
}

// Check is one item of a collection. ID correlates it with measured data
// (an interface name, or a VLAN id in string form). Expected holds the
// kind-specific expectation struct.
type Check struct {
	ID       string
	Params   CheckParams
	Expected any
}

// IsReserved reports the interface_flags.is_reserved modifier.
func (c Check) IsReserved() bool {
	return c.Params.InterfaceFlags["is_reserved"]
}

// DeviceInfoExpect is the device-info expectation.
type DeviceInfoExpect struct {
	ProductModel string `yaml:"product_model"`
}

// InterfaceExpect is the interfaces expectation. Speed is in Mbps.
type InterfaceExpect struct {
	Used   bool `yaml:"used"`
	OperUp bool `yaml:"oper_up"`
	Speed  int  `yaml:"speed"`
}

// IPAddrExpect is the ipaddrs expectation; IfIPAddr is in prefix form.
type IPAddrExpect struct {
	IfIPAddr string `yaml:"if_ipaddr"`
}

// SwitchportExpect is the switchports expectation. VLAN applies to access
// ports; NativeVLAN and AllowedVLANs to trunks.
type SwitchportExpect struct {
	Mode         string `yaml:"switchport_mode"`
	VLAN         int    `yaml:"vlan,omitempty"`
	NativeVLAN   int    `yaml:"native_vlan,omitempty"`
	AllowedVLANs []int  `yaml:"trunk_allowed_vlans,omitempty"`
}

// VlanExpect is the vlans expectation: the interfaces expected to carry VLAN.
type VlanExpect struct {
	VLAN       int      `yaml:"vlan"`
	Name       string   `yaml:"name,omitempty"`
	Interfaces []string `yaml:"interfaces,omitempty"`
}

// CablingExpect is the cabling expectation: the LLDP neighbor on the port.
type CablingExpect struct {
	Device string `yaml:"device"`
	PortID string `yaml:"port_id"`
}

// The typed accessors return the zero expectation when Expected holds a
// different kind.

func (c Check) DeviceInfo() DeviceInfoExpect { e, _ := c.Expected.(DeviceInfoExpect); return e }
func (c Check) Interface() InterfaceExpect   { e, _ := c.Expected.(InterfaceExpect); return e }
func (c Check) IPAddr() IPAddrExpect         { e, _ := c.Expected.(IPAddrExpect); return e }
func (c Check) Switchport() SwitchportExpect { e, _ := c.Expected.(SwitchportExpect); return e }
func (c Check) Vlan() VlanExpect             { e, _ := c.Expected.(VlanExpect); return e }
func (c Check) Cabling() CablingExpect       { e, _ := c.Expected.(CablingExpect); return e }

// CheckIDs returns the ids of all checks in order.
func (c *Collection) CheckIDs() []string {
	ids := make([]string, 0, len(c.Checks))
	for _, chk := range c.Checks {
		ids = append(ids, chk.ID)
	}
	return ids
}

// ExpectedVLANs returns the VLAN id of every vlans check, including VLANs
// declared with no member interfaces. A check without a VLAN falls back to a
// numeric check id; other ids are left out.
func (c *Collection) ExpectedVLANs() []int {
	var ids []int
	for _, chk := range c.Checks {
		vlan := chk.Vlan().VLAN
		if vlan == 0 {
			n, err := strconv.Atoi(chk.ID)
			if err != nil {
				continue
			}
			vlan = n
		}
		ids = append(ids, vlan)
	}
	return ids
}

type rawCheck struct {
	ID     string      `yaml:"id"`
	Params CheckParams `yaml:"params,omitempty"`
	Expect yaml.Node   `yaml:"expect"`
}

type rawCollection struct {
	Kind      Kind       `yaml:"kind"`
	Exclusive bool       `yaml:"exclusive,omitempty"`
	Checks    []rawCheck `yaml:"checks"`
}

// UnmarshalYAML decodes each check's expect block into the struct for the
// collection kind. Unknown kinds keep Expected nil so the dispatcher can
// soft-skip them.
func (c *Collection) UnmarshalYAML(node *yaml.Node) error {
	var raw rawCollection
	if err := node.Decode(&raw); err != nil {
		return err
	}

	c.Kind = raw.Kind
	c.Exclusive = raw.Exclusive
	c.Checks = make([]Check, 0, len(raw.Checks))

	for i, rc := range raw.Checks {
		exp, err := decodeExpect(raw.Kind, &rc.Expect)
		if err != nil {
			return fmt.Errorf("%s check %d (%s): %w", raw.Kind, i, rc.ID, err)
		}
		chk := Check{ID: rc.ID, Params: rc.Params, Expected: exp}

		// A vlans check id is the VLAN id; fill whichever side is missing.
		if ve, ok := exp.(VlanExpect); ok {
			if ve.VLAN == 0 {
				if n, err := strconv.Atoi(rc.ID); err == nil {
					ve.VLAN = n
					chk.Expected = ve
				}
			}
			if chk.ID == "" && ve.VLAN != 0 {
				chk.ID = strconv.Itoa(ve.VLAN)
			}
		}
		c.Checks = append(c.Checks, chk)
	}
	return nil
}

// MarshalYAML writes the collection back in file form.
func (c Collection) MarshalYAML() (any, error) {
	type outCheck struct {
		ID     string      `yaml:"id"`
		Params CheckParams `yaml:"params,omitempty"`
		Expect any         `yaml:"expect,omitempty"`
	}
	out := struct {
		Kind      Kind       `yaml:"kind"`
		Exclusive bool       `yaml:"exclusive,omitempty"`
		Checks    []outCheck `yaml:"checks"`
	}{Kind: c.Kind, Exclusive: c.Exclusive}
	for _, chk := range c.Checks {
		out.Checks = append(out.Checks, outCheck{ID: chk.ID, Params: chk.Params, Expect: chk.Expected})
	}
	return out, nil
}

func decodeExpect(kind Kind, node *yaml.Node) (any, error) {
	switch kind {
	case KindDeviceInfo:
		return decodeInto[DeviceInfoExpect](node)
	case KindInterfaces:
		return decodeInto[InterfaceExpect](node)
	case KindIPAddrs:
		return decodeInto[IPAddrExpect](node)
	case KindSwitchports:
		return decodeInto[SwitchportExpect](node)
	case KindVlans:
		return decodeInto[VlanExpect](node)
	case KindCabling:
		return decodeInto[CablingExpect](node)
	}
	return nil, nil
}

func decodeInto[T any](node *yaml.Node) (T, error) {
	var v T
	if node == nil || node.Kind == 0 {
		return v, nil
	}
	err := node.Decode(&v)
	return v, err
}
