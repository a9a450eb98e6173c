package dut

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/newtron-network/netcam-meraki/pkg/design"
	"github.com/newtron-network/netcam-meraki/pkg/result"
)

// HostnameMatch compares an expected neighbor hostname with an LLDP system
// name, ignoring case and any domain suffix on either side.
func HostnameMatch(expected, measured string) bool {
	e := strings.ToLower(strings.TrimSpace(expected))
	m := strings.ToLower(strings.TrimSpace(measured))
	if e == "" || m == "" {
		return false
	}
	if e == m {
		return true
	}
	eHost, _, _ := strings.Cut(e, ".")
	mHost, _, _ := strings.Cut(m, ".")
	return eHost == mHost
}

// MerakiHostnameMatch handles the system name Meraki devices advertise,
// "Meraki <model> - <name>", by comparing the trailing name.
func MerakiHostnameMatch(expected, measured string) bool {
	if !strings.HasPrefix(measured, "Meraki ") {
		return false
	}
	idx := strings.LastIndex(measured, " - ")
	if idx < 0 {
		return false
	}
	return HostnameMatch(expected, measured[idx+3:])
}

// NeighborHostMatch accepts either hostname form.
func NeighborHostMatch(expected, measured string) bool {
	return HostnameMatch(expected, measured) || MerakiHostnameMatch(expected, measured)
}

// PortIDMatch compares an expected neighbor port with an LLDP port id. Meraki
// devices report ports as "Port 3" or "port3"; those match "3".
func PortIDMatch(expected, measured string) bool {
	return normalizePortID(expected) == normalizePortID(measured)
}

func normalizePortID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	if rest, ok := strings.CutPrefix(id, "port"); ok {
		rest = strings.TrimSpace(rest)
		if rest != "" && rest[0] >= '0' && rest[0] <= '9' {
			return rest
		}
	}
	return id
}

// CheckLLDPNeighbor compares one port's LLDP neighbor block with the cabling
// expectation.
func CheckLLDPNeighbor(ref result.Ref, exp design.CablingExpect, lldp gjson.Result) result.Results {
	var rs result.Results

	name := lldp.Get("systemName").String()
	port := lldp.Get("portId").String()

	if !NeighborHostMatch(exp.Device, name) {
		rs = append(rs, result.FieldMismatch(ref, "device", exp.Device, name))
	}
	if !PortIDMatch(exp.PortID, port) {
		rs = append(rs, result.FieldMismatch(ref, "port_id", exp.PortID, port))
	}
	if !rs.AnyFailures() {
		rs = append(rs, result.Pass(ref, "", lldp.Value()))
	}
	return rs
}

// CheckNeighbors runs the cabling checks of c against a port name to
// neighbor-block map as returned by the LLDP/CDP endpoint. Only LLDP data is
// compared.
func CheckNeighbors(s *Session, c *design.Collection, byPort map[string]gjson.Result) result.Results {
	var rs result.Results
	for _, chk := range c.Checks {
		ref := s.Ref(c, chk.ID)

		nei, ok := byPort[chk.ID]
		if !ok {
			rs = append(rs, result.NoExists(ref, ""))
			continue
		}
		lldp := nei.Get("lldp")
		if !lldp.Exists() {
			rs = append(rs, result.NoExistsWithReason(ref, nei.Value(), "no LLDP neighbor reported"))
			continue
		}
		rs = append(rs, CheckLLDPNeighbor(ref, chk.Cabling(), lldp)...)
	}
	return rs
}
