package dut

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/newtron-network/netcam-meraki/pkg/design"
	"github.com/newtron-network/netcam-meraki/pkg/result"
	"github.com/newtron-network/netcam-meraki/pkg/util"
	"github.com/newtron-network/netcam-meraki/pkg/vlanmap"
)

// SwitchportRules carries the per-family differences in switchport checks.
type SwitchportRules struct {
	// SkipNativeWhenDropUntagged skips the native VLAN compare on trunks that
	// drop untagged traffic.
	SkipNativeWhenDropUntagged bool

	// ReportAllVLANs adds an Info result for trunks allowing every VLAN.
	ReportAllVLANs bool
}

// CheckSwitchports runs the switchports checks of c against ports keyed by
// name.
func CheckSwitchports(s *Session, c *design.Collection, ports map[string]vlanmap.Port, rules SwitchportRules) (result.Results, error) {
	var rs result.Results
	for _, chk := range c.Checks {
		ref := s.Ref(c, chk.ID)
		port, ok := ports[chk.ID]
		if !ok {
			rs = append(rs, result.NoExists(ref, ""))
			continue
		}
		one, err := checkOneSwitchport(ref, chk.Switchport(), port, rules)
		if err != nil {
			return nil, err
		}
		rs = append(rs, one...)
	}
	return rs, nil
}

func checkOneSwitchport(ref result.Ref, exp design.SwitchportExpect, port vlanmap.Port, rules SwitchportRules) (result.Results, error) {
	if exp.Mode != port.Mode {
		return result.Results{result.FieldMismatch(ref, "switchport_mode", exp.Mode, port.Mode)}, nil
	}

	var rs result.Results
	var allVLANs bool

	switch exp.Mode {
	case design.ModeAccess:
		if exp.VLAN != 0 && exp.VLAN != port.VLAN {
			rs = append(rs, result.FieldMismatch(ref, "vlan", exp.VLAN, port.VLAN))
		}

	case design.ModeTrunk:
		checkNative := !(rules.SkipNativeWhenDropUntagged && port.DropUntagged)
		if checkNative && exp.NativeVLAN != 0 && exp.NativeVLAN != port.VLAN {
			rs = append(rs, result.FieldMismatch(ref, "native_vlan", exp.NativeVLAN, port.VLAN))
		}

		if port.AllowedVLANs == vlanmap.AllVLANs {
			allVLANs = true
			break
		}
		measured, err := util.ExpandVLANRange(port.AllowedVLANs)
		if err != nil {
			return nil, util.NewPayloadError("switchports",
				fmt.Sprintf("port %s: allowed vlans %q: %v", port.Name, port.AllowedVLANs, err))
		}
		if !result.SameMembers(exp.AllowedVLANs, measured) {
			rs = append(rs, result.FieldMismatch(ref, "trunk_allowed_vlans",
				result.SortedSet(exp.AllowedVLANs), result.SortedSet(measured)))
		}
	}

	if !rs.AnyFailures() {
		rs = append(rs, result.Pass(ref, "", port))
	}
	if allVLANs && rules.ReportAllVLANs {
		rs = append(rs, result.Info(ref, "trunk_allowed_vlans", "trunk port allows 'all' vlans"))
	}
	return rs, nil
}

// CheckVlans correlates ports to VLANs and compares the result with the vlans
// collection: one exclusive-list group when the collection is exclusive, then
// per-VLAN interface set equality. Interface names starting with "Vlan" are
// SVIs, validated by ipaddrs, and are left out of the expected sets.
func CheckVlans(s *Session, c *design.Collection, ports []vlanmap.Port, policy vlanmap.Policy) (result.Results, error) {
	expected := c.ExpectedVLANs()
	index, err := vlanmap.Correlate(ports, expected, policy)
	if err != nil {
		return nil, util.NewPayloadError("vlans", err.Error())
	}
	s.Log().WithField("policy", policy.String()).Debugf("Correlated %d vlans", len(index.VLANs()))

	var rs result.Results
	if c.Exclusive {
		rs = append(rs, result.ExclusiveList(s.Ref(c, "exclusive_list"), "vlans", expected, index.VLANs())...)
	}

	for _, chk := range c.Checks {
		ref := s.Ref(c, chk.ID)
		vlan := chk.Vlan().VLAN
		if vlan == 0 {
			n, err := strconv.Atoi(chk.ID)
			if err != nil {
				rs = append(rs, result.NoExistsWithReason(ref, chk.ID, "check id is not a vlan id"))
				continue
			}
			vlan = n
		}

		var want []string
		for _, name := range chk.Vlan().Interfaces {
			if !strings.HasPrefix(name, "Vlan") {
				want = append(want, name)
			}
		}
		want = util.SortInterfaceNames(want)
		got := index.Interfaces(vlan)

		if result.SameMembers(want, got) {
			rs = append(rs, result.Pass(ref, "interfaces", got))
			continue
		}
		rs = append(rs, result.FieldMismatch(ref, "interfaces", want, got))
	}
	return rs, nil
}
