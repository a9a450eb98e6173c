// Package appliance validates Meraki MX security appliances. Port
// configuration and VLANs are network-scoped on the dashboard, so every
// accessor is keyed by the session's network id.
package appliance

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/newtron-network/netcam-meraki/pkg/dashboard"
	"github.com/newtron-network/netcam-meraki/pkg/design"
	"github.com/newtron-network/netcam-meraki/pkg/dut"
	"github.com/newtron-network/netcam-meraki/pkg/result"
	"github.com/newtron-network/netcam-meraki/pkg/util"
	"github.com/newtron-network/netcam-meraki/pkg/vlanmap"
)

// Name is the family name.
const Name = "appliance"

// Cache keys.
const (
	KeySwitchports = "switchports"
	KeyVLANs       = "vlans"
)

const (
	opPorts = "appliance.getNetworkAppliancePorts"
	opVLANs = "appliance.getNetworkApplianceVlans"
)

// Family returns the appliance handler registrations.
func Family() dut.Family {
	return dut.Family{
		Name: Name,
		Handlers: map[design.Kind]dut.Handler{
			design.KindInterfaces:  checkInterfaces,
			design.KindIPAddrs:     checkIPAddrs,
			design.KindSwitchports: checkSwitchports,
			design.KindVlans:       checkVlans,
			design.KindCabling:     checkCabling,
		},
	}
}

// Switchports returns the appliance LAN port configuration.
func Switchports(ctx context.Context, s *dut.Session) (gjson.Result, error) {
	return s.Cached(ctx, KeySwitchports, opPorts, dashboard.Params{"networkId": s.NetworkID()})
}

// VLANs returns the appliance VLAN configuration.
func VLANs(ctx context.Context, s *dut.Session) (gjson.Result, error) {
	return s.Cached(ctx, KeyVLANs, opVLANs, dashboard.Params{"networkId": s.NetworkID()})
}

func ports(ctx context.Context, s *dut.Session) ([]vlanmap.Port, error) {
	payload, err := Switchports(ctx, s)
	if err != nil {
		return nil, err
	}
	return vlanmap.PortsFromPayload(payload, "number"), nil
}

func portsByName(ctx context.Context, s *dut.Session) (map[string]vlanmap.Port, error) {
	list, err := ports(ctx, s)
	if err != nil {
		return nil, err
	}
	m := make(map[string]vlanmap.Port, len(list))
	for _, p := range list {
		m[p.Name] = p
	}
	return m, nil
}

// checkInterfaces compares the enabled state of the LAN ports. The WAN
// uplinks are not in the port list: a check named wan1/wan2, or numbered
// below the first LAN port, is reported as Info since its addressing is
// covered by ipaddrs. Any other unknown id does not exist.
func checkInterfaces(ctx context.Context, s *dut.Session, c *design.Collection) (result.Results, error) {
	list, err := ports(ctx, s)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]vlanmap.Port, len(list))
	firstLAN := 0
	for _, p := range list {
		byName[p.Name] = p
		if n, err := strconv.Atoi(p.Name); err == nil && (firstLAN == 0 || n < firstLAN) {
			firstLAN = n
		}
	}

	var rs result.Results
	for _, chk := range c.Checks {
		ref := s.Ref(c, chk.ID)
		port, ok := byName[chk.ID]
		switch {
		case !ok && isWANUplink(chk.ID, firstLAN):
			rs = append(rs, result.Info(ref, "wan_uplink", chk.ID))
		case !ok:
			rs = append(rs, result.NoExists(ref, ""))
		case chk.IsReserved():
			rs = append(rs, result.Info(ref, "is_reserved", port))
		default:
			rs = append(rs, result.FieldMatch(ref, "used", chk.Interface().Used, port.Enabled))
		}
	}
	return rs, nil
}

func isWANUplink(id string, firstLAN int) bool {
	switch strings.ToLower(id) {
	case "wan1", "wan2":
		return true
	}
	n, err := strconv.Atoi(id)
	return err == nil && n > 0 && n < firstLAN
}

// checkIPAddrs validates VLAN interface addresses. The design names them
// "Vlan<id>".
func checkIPAddrs(ctx context.Context, s *dut.Session, c *design.Collection) (result.Results, error) {
	vlans, err := VLANs(ctx, s)
	if err != nil {
		return nil, err
	}

	measured := map[string]string{}
	for _, rec := range vlans.Array() {
		name := fmt.Sprintf("Vlan%d", rec.Get("id").Int())
		addr, err := util.InterfaceAddr(rec.Get("applianceIp").String(), rec.Get("subnet").String())
		if err != nil {
			return nil, util.NewPayloadError(opVLANs, name+": "+err.Error())
		}
		measured[name] = addr
	}
	return dut.CheckInterfaceAddrs(s, c, measured), nil
}

func checkSwitchports(ctx context.Context, s *dut.Session, c *design.Collection) (result.Results, error) {
	byName, err := portsByName(ctx, s)
	if err != nil {
		return nil, err
	}
	return dut.CheckSwitchports(s, c, byName, dut.SwitchportRules{SkipNativeWhenDropUntagged: true})
}

func checkVlans(ctx context.Context, s *dut.Session, c *design.Collection) (result.Results, error) {
	list, err := ports(ctx, s)
	if err != nil {
		return nil, err
	}
	return dut.CheckVlans(s, c, list, vlanmap.PolicyAppliance)
}

// checkCabling reads the LLDP table, where appliance LAN ports appear as
// "port<N>", and matches it against the design's bare port numbers.
func checkCabling(ctx context.Context, s *dut.Session, c *design.Collection) (result.Results, error) {
	lldp, err := s.LLDPStatus(ctx)
	if err != nil {
		return nil, err
	}
	ports := lldp.Get("ports")
	if !ports.IsObject() || len(ports.Map()) == 0 {
		return nil, nil
	}

	byPort := map[string]gjson.Result{}
	for name, nei := range ports.Map() {
		if num, ok := strings.CutPrefix(name, "port"); ok {
			byPort[num] = nei
		}
	}
	return dut.CheckNeighbors(s, c, byPort), nil
}
