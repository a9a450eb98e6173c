// Package vlanmap derives a VLAN to interfaces index from per-port
// configuration. The dashboard reports VLAN membership per port only, so the
// inverse mapping has to be computed locally.
package vlanmap

import (
	"fmt"
	"sort"

	"github.com/tidwall/gjson"

	"github.com/newtron-network/netcam-meraki/pkg/util"
)

// AllVLANs is the allowed-VLAN value meaning every VLAN.
const AllVLANs = "all"

// Policy selects the product family rule for recognising unused ports.
type Policy int

const (
	// PolicyAppliance: a port is unused when it is a disabled trunk that
	// drops untagged traffic.
	PolicyAppliance Policy = iota

	// PolicySwitch: switch ports carry no untagged-drop flag, so a disabled
	// access port on VLAN 1 is taken as unused.
	PolicySwitch
)

func (p Policy) String() string {
	switch p {
	case PolicyAppliance:
		return "appliance"
	case PolicySwitch:
		return "switch"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// Port is the normalized configuration of one port.
type Port struct {
	Name         string
	Enabled      bool
	Mode         string // "access" or "trunk"
	VLAN         int    // access VLAN, or trunk native VLAN; 0 when unset
	AllowedVLANs string // "all" or a range string such as "1,5,10-12"
	DropUntagged bool
}

func (p Port) unused(policy Policy) bool {
	if p.Enabled {
		return false
	}
	switch policy {
	case PolicySwitch:
		return p.Mode == "access" && p.VLAN == 1
	default:
		return p.Mode == "trunk" && p.DropUntagged
	}
}

// PortsFromPayload normalizes a dashboard port list. nameKey is the field
// holding the port identifier ("number" for appliances, "portId" for switches).
func PortsFromPayload(payload gjson.Result, nameKey string) []Port {
	var ports []Port
	for _, rec := range payload.Array() {
		ports = append(ports, Port{
			Name:         rec.Get(nameKey).String(),
			Enabled:      rec.Get("enabled").Bool(),
			Mode:         rec.Get("type").String(),
			VLAN:         int(rec.Get("vlan").Int()),
			AllowedVLANs: rec.Get("allowedVlans").String(),
			DropUntagged: rec.Get("dropUntaggedTraffic").Bool(),
		})
	}
	return ports
}

// Index maps VLAN ids to the set of interfaces carrying them.
type Index struct {
	byVLAN map[int]map[string]struct{}
}

func (x *Index) add(vlan int, iface string) {
	set, ok := x.byVLAN[vlan]
	if !ok {
		set = make(map[string]struct{})
		x.byVLAN[vlan] = set
	}
	set[iface] = struct{}{}
}

// Interfaces returns the interfaces carrying vlan in natural order. A VLAN
// with no interfaces yields an empty, non-nil slice.
func (x *Index) Interfaces(vlan int) []string {
	names := make([]string, 0, len(x.byVLAN[vlan]))
	for name := range x.byVLAN[vlan] {
		names = append(names, name)
	}
	return util.SortInterfaceNames(names)
}

// Has reports whether vlan is present on the device.
func (x *Index) Has(vlan int) bool {
	_, ok := x.byVLAN[vlan]
	return ok
}

// VLANs returns every VLAN id observed on the device, ascending.
func (x *Index) VLANs() []int {
	ids := make([]int, 0, len(x.byVLAN))
	for id := range x.byVLAN {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Map returns a copy of the index as sorted slices.
func (x *Index) Map() map[int][]string {
	out := make(map[int][]string, len(x.byVLAN))
	for id := range x.byVLAN {
		out[id] = x.Interfaces(id)
	}
	return out
}

// Correlate builds the VLAN index for ports. expected is the set of VLAN ids
// the design expects on the device; an enabled trunk allowing "all" carries
// exactly those. Correlate has no side effects and returns an error only for
// an unparseable allowed-VLAN string.
func Correlate(ports []Port, expected []int, policy Policy) (*Index, error) {
	x := &Index{byVLAN: make(map[int]map[string]struct{})}
	enabled := make(map[string]bool, len(ports))

	for _, p := range ports {
		enabled[p.Name] = p.Enabled
		if p.unused(policy) {
			continue
		}

		if p.VLAN != 0 {
			x.add(p.VLAN, p.Name)
		}
		if p.Mode != "trunk" {
			continue
		}

		var allowed []int
		switch {
		case p.AllowedVLANs == AllVLANs && p.Enabled:
			allowed = expected
		case p.AllowedVLANs == AllVLANs:
			// disabled trunk: "all" carries nothing
		default:
			ids, err := util.ExpandVLANRange(p.AllowedVLANs)
			if err != nil {
				return nil, fmt.Errorf("port %s: allowed vlans %q: %w", p.Name, p.AllowedVLANs, err)
			}
			allowed = ids
		}
		for _, id := range allowed {
			x.add(id, p.Name)
		}
	}

	// VLAN 1 present only on disabled ports is default-VLAN noise.
	if set, ok := x.byVLAN[1]; ok {
		allDisabled := true
		for name := range set {
			if enabled[name] {
				allDisabled = false
				break
			}
		}
		if allDisabled {
			delete(x.byVLAN, 1)
		}
	}

	return x, nil
}
