// Package msswitch validates Meraki MS switches from the per-device port
// configuration and port status endpoints.
package msswitch

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/newtron-network/netcam-meraki/pkg/dashboard"
	"github.com/newtron-network/netcam-meraki/pkg/design"
	"github.com/newtron-network/netcam-meraki/pkg/dut"
	"github.com/newtron-network/netcam-meraki/pkg/result"
	"github.com/newtron-network/netcam-meraki/pkg/util"
	"github.com/newtron-network/netcam-meraki/pkg/vlanmap"
)

// Name is the family name.
const Name = "switch"

// Cache keys.
const (
	KeyPortConfig = "ports_config"
	KeyPortStatus = "ports_status"
)

const (
	opPortConfig = "switch.getDeviceSwitchPorts"
	opPortStatus = "switch.getDeviceSwitchPortsStatuses"
)

// Family returns the switch handler registrations.
func Family() dut.Family {
	return dut.Family{
		Name: Name,
		Handlers: map[design.Kind]dut.Handler{
			design.KindInterfaces:  checkInterfaces,
			design.KindSwitchports: checkSwitchports,
			design.KindVlans:       checkVlans,
			design.KindCabling:     checkCabling,
		},
	}
}

// PortConfig returns the switch port configuration.
func PortConfig(ctx context.Context, s *dut.Session) (gjson.Result, error) {
	return s.Cached(ctx, KeyPortConfig, opPortConfig, dashboard.Params{"serial": s.Serial()})
}

// PortStatus returns the switch port statuses, including LLDP and CDP
// neighbors.
func PortStatus(ctx context.Context, s *dut.Session) (gjson.Result, error) {
	return s.Cached(ctx, KeyPortStatus, opPortStatus, dashboard.Params{"serial": s.Serial()})
}

func byPortID(payload gjson.Result) map[string]gjson.Result {
	m := map[string]gjson.Result{}
	for _, rec := range payload.Array() {
		m[rec.Get("portId").String()] = rec
	}
	return m
}

// speeds maps dashboard link speed strings to Mbps.
var speeds = map[string]int{
	"":         0,
	"10 Mbps":  10,
	"100 Mbps": 100,
	"1 Gbps":   1000,
	"2.5 Gbps": 2500,
	"5 Gbps":   5000,
	"10 Gbps":  10000,
	"25 Gbps":  25000,
	"40 Gbps":  40000,
	"100 Gbps": 100000,
}

// SpeedMbps converts a dashboard speed string to Mbps.
func SpeedMbps(speed string) (int, error) {
	mbps, ok := speeds[speed]
	if !ok {
		return 0, util.NewPayloadError(opPortStatus, fmt.Sprintf("unknown port speed %q", speed))
	}
	return mbps, nil
}

// Measurement is the normalized status of one port.
type Measurement struct {
	Used   bool `json:"used"`
	OperUp bool `json:"oper_up"`
	Speed  int  `json:"speed"`
}

// MeasurementFromStatus normalizes one port status record.
func MeasurementFromStatus(rec gjson.Result) (Measurement, error) {
	speed, err := SpeedMbps(rec.Get("speed").String())
	if err != nil {
		return Measurement{}, fmt.Errorf("port %s: %w", rec.Get("portId").String(), err)
	}
	return Measurement{
		Used:   rec.Get("enabled").Bool(),
		OperUp: rec.Get("status").String() == "Connected",
		Speed:  speed,
	}, nil
}

func checkInterfaces(ctx context.Context, s *dut.Session, c *design.Collection) (result.Results, error) {
	status, err := PortStatus(ctx, s)
	if err != nil {
		return nil, err
	}
	byID := byPortID(status)

	var rs result.Results
	for _, chk := range c.Checks {
		ref := s.Ref(c, chk.ID)
		rec, ok := byID[chk.ID]
		if !ok {
			rs = append(rs, result.NoExists(ref, ""))
			continue
		}
		m, err := MeasurementFromStatus(rec)
		if err != nil {
			return nil, err
		}
		rs = append(rs, checkOneInterface(ref, chk, m)...)
	}
	return rs, nil
}

func checkOneInterface(ref result.Ref, chk design.Check, m Measurement) result.Results {
	if chk.IsReserved() {
		return result.Results{result.Info(ref, "is_reserved", m)}
	}

	exp := chk.Interface()
	var rs result.Results
	if exp.Used != m.Used {
		rs = append(rs, result.FieldMismatch(ref, "used", exp.Used, m.Used))
	}
	// oper state and speed of an unused port are not meaningful
	if exp.Used {
		if exp.OperUp != m.OperUp {
			rs = append(rs, result.FieldMismatch(ref, "oper_up", exp.OperUp, m.OperUp))
		}
		if exp.Speed != m.Speed {
			rs = append(rs, result.FieldMismatch(ref, "speed", exp.Speed, m.Speed))
		}
	}
	if !rs.AnyFailures() {
		rs = append(rs, result.Pass(ref, "", m))
	}
	return rs
}

func ports(ctx context.Context, s *dut.Session) ([]vlanmap.Port, error) {
	payload, err := PortConfig(ctx, s)
	if err != nil {
		return nil, err
	}
	return vlanmap.PortsFromPayload(payload, "portId"), nil
}

func checkSwitchports(ctx context.Context, s *dut.Session, c *design.Collection) (result.Results, error) {
	list, err := ports(ctx, s)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]vlanmap.Port, len(list))
	for _, p := range list {
		byName[p.Name] = p
	}
	return dut.CheckSwitchports(s, c, byName, dut.SwitchportRules{ReportAllVLANs: true})
}

func checkVlans(ctx context.Context, s *dut.Session, c *design.Collection) (result.Results, error) {
	list, err := ports(ctx, s)
	if err != nil {
		return nil, err
	}
	return dut.CheckVlans(s, c, list, vlanmap.PolicySwitch)
}

// checkCabling compares the LLDP neighbor on each port status. CDP-only
// neighbor data cannot be matched to a design hostname and is an error.
func checkCabling(ctx context.Context, s *dut.Session, c *design.Collection) (result.Results, error) {
	status, err := PortStatus(ctx, s)
	if err != nil {
		return nil, err
	}
	byID := byPortID(status)

	var rs result.Results
	for _, chk := range c.Checks {
		ref := s.Ref(c, chk.ID)
		rec, ok := byID[chk.ID]
		if !ok {
			rs = append(rs, result.NoExists(ref, ""))
			continue
		}

		lldp, cdp := rec.Get("lldp"), rec.Get("cdp")
		switch {
		case lldp.IsObject():
			rs = append(rs, dut.CheckLLDPNeighbor(ref, chk.Cabling(), lldp)...)
		case cdp.IsObject():
			return nil, util.NewPayloadError(opPortStatus,
				fmt.Sprintf("port %s: only CDP neighbor data (platform %q)", chk.ID, cdp.Get("platform").String()))
		default:
			rs = append(rs, result.NoExistsWithReason(ref, chk.Cabling(), "port status has no lldp or cdp neighbor"))
		}
	}
	return rs, nil
}
