// Package wireless validates Meraki MR access points. An AP has no switch
// ports; its wired uplink is modelled as the trunk "wired0" carrying every
// tagged SSID VLAN plus the management VLAN.
package wireless

import (
	"context"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/newtron-network/netcam-meraki/pkg/dashboard"
	"github.com/newtron-network/netcam-meraki/pkg/design"
	"github.com/newtron-network/netcam-meraki/pkg/dut"
	"github.com/newtron-network/netcam-meraki/pkg/result"
)

// Name is the family name.
const Name = "wireless"

// UplinkPort is the name of the AP's wired uplink.
const UplinkPort = "wired0"

// KeySSIDs is the cache key of the network SSID list.
const KeySSIDs = "config_ssids"

const opSSIDs = "wireless.getNetworkWirelessSsids"

// Family returns the wireless handler registrations.
func Family() dut.Family {
	return dut.Family{
		Name: Name,
		Handlers: map[design.Kind]dut.Handler{
			design.KindSwitchports: checkSwitchports,
			design.KindVlans:       checkVlans,
		},
	}
}

// SSIDs returns the network-wide SSID configuration. Per-AP SSID overrides
// are not consulted.
func SSIDs(ctx context.Context, s *dut.Session) (gjson.Result, error) {
	return s.Cached(ctx, KeySSIDs, opSSIDs, dashboard.Params{"networkId": s.NetworkID()})
}

// MeasuredVLANs returns the VLANs carried on the uplink: the default VLAN of
// every SSID with VLAN tagging, and the management VLAN when tagged. The two
// payloads are fetched concurrently.
func MeasuredVLANs(ctx context.Context, s *dut.Session) ([]int, error) {
	var ssids, mgmt gjson.Result

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ssids, err = SSIDs(gctx, s)
		return err
	})
	g.Go(func() error {
		var err error
		mgmt, err = s.ManagementInterface(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var vlans []int
	for _, ssid := range ssids.Array() {
		if ssid.Get("useVlanTagging").Bool() {
			vlans = append(vlans, int(ssid.Get("defaultVlanId").Int()))
		}
	}
	if v := mgmt.Get("wan1.vlan").Int(); v != 0 {
		vlans = append(vlans, int(v))
	}
	return result.SortedSet(vlans), nil
}

func checkSwitchports(ctx context.Context, s *dut.Session, c *design.Collection) (result.Results, error) {
	measured, err := MeasuredVLANs(ctx, s)
	if err != nil {
		return nil, err
	}

	var rs result.Results
	for _, chk := range c.Checks {
		ref := s.Ref(c, chk.ID)
		if chk.ID != UplinkPort {
			rs = append(rs, result.NoExists(ref, ""))
			continue
		}
		exp := chk.Switchport()
		if !result.SameMembers(exp.AllowedVLANs, measured) {
			rs = append(rs, result.FieldMismatch(ref, "trunk_allowed_vlans", result.SortedSet(exp.AllowedVLANs), measured))
			continue
		}
		rs = append(rs, result.Pass(ref, "trunk_allowed_vlans", measured))
	}
	return rs, nil
}

// checkVlans reports only the device-wide exclusive list; the AP has no
// per-port VLAN membership to compare.
func checkVlans(ctx context.Context, s *dut.Session, c *design.Collection) (result.Results, error) {
	if !c.Exclusive {
		return nil, nil
	}
	measured, err := MeasuredVLANs(ctx, s)
	if err != nil {
		return nil, err
	}
	return result.ExclusiveList(s.Ref(c, "exclusive_list"), "vlans", c.ExpectedVLANs(), measured), nil
}
