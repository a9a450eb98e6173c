package dut

import (
	"context"
	"regexp"
	"sort"

	"github.com/tidwall/gjson"

	"github.com/newtron-network/netcam-meraki/pkg/design"
	"github.com/newtron-network/netcam-meraki/pkg/result"
	"github.com/newtron-network/netcam-meraki/pkg/util"
)

var wanPortRE = regexp.MustCompile(`^wan[0-9]+$`)

func checkDeviceInfo(ctx context.Context, s *Session, c *design.Collection) (result.Results, error) {
	if len(c.Checks) == 0 {
		return nil, nil
	}
	chk := c.Checks[0]
	ref := s.Ref(c, chk.ID)
	inv := s.Inventory()

	var rs result.Results
	exp := chk.DeviceInfo().ProductModel
	model := inv.Get("model").String()
	if model != exp {
		rs = append(rs, result.FieldMismatch(ref, "product_model", exp, model))
	}

	rs = append(rs, result.Info(ref, "device_info", inv.Value()))

	if !rs.AnyFailures() {
		rs = append(rs, result.Pass(ref, "product_model", model))
	}
	return rs, nil
}

// ManagementPorts returns the wanN keys of a management interface payload.
func ManagementPorts(mgmt gjson.Result) map[string]gjson.Result {
	ports := map[string]gjson.Result{}
	mgmt.ForEach(func(k, v gjson.Result) bool {
		if wanPortRE.MatchString(k.String()) {
			ports[k.String()] = v
		}
		return true
	})
	return ports
}

// checkInterfaces infers interface use from neighbor discovery: a port with
// an LLDP or CDP neighbor is up and used. Management ports always exist and
// their addressing is covered by ipaddrs.
func checkInterfaces(ctx context.Context, s *Session, c *design.Collection) (result.Results, error) {
	lldp, err := s.LLDPStatus(ctx)
	if err != nil {
		return nil, err
	}
	ports := lldp.Get("ports")
	if !ports.IsObject() || len(ports.Map()) == 0 {
		return result.Results{result.Skip(s.Ref(c, ""), "No LLDP/CDP data returned from API")}, nil
	}

	mgmt, err := s.ManagementInterface(ctx)
	if err != nil {
		return nil, err
	}
	mgmtPorts := ManagementPorts(mgmt)

	used := map[string]bool{}
	ports.ForEach(func(k, v gjson.Result) bool {
		if v.Get("lldp.systemName").String() != "" || v.Get("cdp.deviceId").String() != "" {
			used[k.String()] = true
		}
		return true
	})

	var rs result.Results
	for _, chk := range c.Checks {
		ref := s.Ref(c, chk.ID)
		_, isMgmt := mgmtPorts[chk.ID]

		if !isMgmt && !used[chk.ID] {
			rs = append(rs, result.NoExists(ref, ""))
			continue
		}
		if isMgmt {
			rs = append(rs, result.Info(ref, "management", "management interface, status not checked"))
			continue
		}
		if chk.IsReserved() {
			rs = append(rs, result.Info(ref, "is_reserved", map[string]bool{"used": true}))
			continue
		}
		rs = append(rs, result.FieldMatch(ref, "used", chk.Interface().Used, true))
	}
	return rs, nil
}

// checkIPAddrs validates the static management addresses.
func checkIPAddrs(ctx context.Context, s *Session, c *design.Collection) (result.Results, error) {
	mgmt, err := s.ManagementInterface(ctx)
	if err != nil {
		return nil, err
	}

	measured := map[string]string{}
	for name, port := range ManagementPorts(mgmt) {
		ip := port.Get("staticIp").String()
		if ip == "" {
			continue
		}
		addr, err := util.InterfaceAddr(ip, port.Get("staticSubnetMask").String())
		if err != nil {
			return nil, util.NewPayloadError("devices.getDeviceManagementInterface", name+": "+err.Error())
		}
		measured[name] = addr
	}

	return CheckInterfaceAddrs(s, c, measured), nil
}

// CheckInterfaceAddrs compares each check's if_ipaddr with measured, keyed by
// interface name, and adds an extras-only exclusive result when requested.
func CheckInterfaceAddrs(s *Session, c *design.Collection, measured map[string]string) result.Results {
	var rs result.Results
	for _, chk := range c.Checks {
		ref := s.Ref(c, chk.ID)
		addr, ok := measured[chk.ID]
		if !ok {
			rs = append(rs, result.NoExists(ref, "if_ipaddr"))
			continue
		}
		rs = append(rs, result.FieldMatch(ref, "if_ipaddr", chk.IPAddr().IfIPAddr, addr))
	}

	if c.Exclusive {
		names := make([]string, 0, len(measured))
		for name := range measured {
			names = append(names, name)
		}
		sort.Strings(names)
		rs = append(rs, result.ExclusiveExtras(s.Ref(c, "exclusive_list"), "exclusive_list", c.CheckIDs(), names)...)
	}
	return rs
}

// checkCabling compares LLDP neighbors on the raw dashboard port names. No
// neighbor data at all yields no results, which Execute reports as a skip.
func checkCabling(ctx context.Context, s *Session, c *design.Collection) (result.Results, error) {
	lldp, err := s.LLDPStatus(ctx)
	if err != nil {
		return nil, err
	}
	ports := lldp.Get("ports")
	if !ports.IsObject() || len(ports.Map()) == 0 {
		return nil, nil
	}
	return CheckNeighbors(s, c, ports.Map()), nil
}
