package appliance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newtron-network/netcam-meraki/internal/testutil"
	"github.com/newtron-network/netcam-meraki/pkg/design"
	"github.com/newtron-network/netcam-meraki/pkg/dut"
	"github.com/newtron-network/netcam-meraki/pkg/result"
	"github.com/newtron-network/netcam-meraki/pkg/util"
)

const (
	mxName   = "mx01"
	mxModel  = "MX67"
	mxSerial = "Q2FY-AAAA-0001"
)

const portsPayload = `[
	{"number": 3, "enabled": true,  "type": "access", "vlan": 10, "dropUntaggedTraffic": false},
	{"number": 4, "enabled": true,  "type": "trunk",  "vlan": 1,  "allowedVlans": "10,20", "dropUntaggedTraffic": false},
	{"number": 5, "enabled": true,  "type": "trunk",  "vlan": 1,  "allowedVlans": "all", "dropUntaggedTraffic": true},
	{"number": 6, "enabled": false, "type": "trunk",  "vlan": 1,  "allowedVlans": "all", "dropUntaggedTraffic": true}
]`

const vlansPayload = `[
	{"id": 10, "name": "users", "applianceIp": "10.10.0.1", "subnet": "10.10.0.0/24"},
	{"id": 20, "name": "voice", "applianceIp": "10.20.0.1", "subnet": "10.20.0.0/23"}
]`

func newSession(t *testing.T, fake *testutil.FakeDashboard) *dut.Session {
	t.Helper()
	s := dut.NewSession(design.Device{Name: mxName, OSName: "meraki", ProductModel: mxModel}, fake, Family(),
		dut.Options{OrgID: testutil.TestOrgID, SkipProbe: true})
	require.NoError(t, s.Setup(context.Background()))
	return s
}

func newFake() *testutil.FakeDashboard {
	return testutil.NewReachableDevice(mxName, mxModel, mxSerial).
		On(testutil.OpAppliancePorts, portsPayload).
		On(testutil.OpApplianceVlans, vlansPayload)
}

func TestFamilyRegistrations(t *testing.T) {
	d := dut.NewDispatcher(Family().Handlers)
	for _, k := range []design.Kind{design.KindInterfaces, design.KindIPAddrs, design.KindSwitchports, design.KindVlans, design.KindCabling, design.KindDeviceInfo} {
		_, ok := d.Lookup(k)
		assert.True(t, ok, "kind %s", k)
	}
	assert.Equal(t, Name, Family().Name)
}

func TestInterfaces(t *testing.T) {
	fake := newFake()
	s := newSession(t, fake)

	c := &design.Collection{Kind: design.KindInterfaces, Checks: []design.Check{
		{ID: "1", Expected: design.InterfaceExpect{Used: true}},
		{ID: "3", Expected: design.InterfaceExpect{Used: true}},
		{ID: "4", Expected: design.InterfaceExpect{Used: false}},
		{ID: "5", Params: design.CheckParams{InterfaceFlags: map[string]bool{"is_reserved": true}}},
	}}
	rs, err := s.Execute(context.Background(), c)
	require.NoError(t, err)

	wan := rs.ForCheck("1")
	require.Len(t, wan, 1, "wan uplink below the first LAN port")
	assert.Equal(t, result.KindInfo, wan[0].Kind)
	assert.Equal(t, result.KindPass, rs.ForCheck("3")[0].Kind)
	assert.Equal(t, result.KindFailFieldMismatch, rs.ForCheck("4")[0].Kind)
	assert.Equal(t, result.KindInfo, rs.ForCheck("5")[0].Kind)
	assert.Equal(t, testutil.TestNetwork, fake.LastParams(testutil.OpAppliancePorts)["networkId"])
}

func TestInterfacesMissing(t *testing.T) {
	s := newSession(t, newFake())

	t.Run("svi name", func(t *testing.T) {
		c := &design.Collection{Kind: design.KindInterfaces, Checks: []design.Check{
			{ID: "Vlan99", Expected: design.InterfaceExpect{Used: true}},
		}}
		rs, err := s.Execute(context.Background(), c)
		require.NoError(t, err)
		require.Len(t, rs, 1)
		assert.Equal(t, result.KindFailNoExists, rs[0].Kind)
		assert.Equal(t, "Vlan99", rs[0].CheckID)
	})

	t.Run("lan port beyond the device", func(t *testing.T) {
		c := &design.Collection{Kind: design.KindInterfaces, Checks: []design.Check{
			{ID: "12", Expected: design.InterfaceExpect{Used: true}},
			{ID: "wan2", Expected: design.InterfaceExpect{Used: true}},
		}}
		rs, err := s.Execute(context.Background(), c)
		require.NoError(t, err)
		assert.Equal(t, result.KindFailNoExists, rs.ForCheck("12")[0].Kind)
		assert.Equal(t, result.KindInfo, rs.ForCheck("wan2")[0].Kind)
	})
}

func TestIPAddrs(t *testing.T) {
	s := newSession(t, newFake())

	c := &design.Collection{Kind: design.KindIPAddrs, Exclusive: true, Checks: []design.Check{
		{ID: "Vlan10", Expected: design.IPAddrExpect{IfIPAddr: "10.10.0.1/24"}},
		{ID: "Vlan99", Expected: design.IPAddrExpect{IfIPAddr: "10.99.0.1/24"}},
	}}
	rs, err := s.Execute(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, result.KindPass, rs.ForCheck("Vlan10")[0].Kind)

	var noExists []result.Result
	for _, r := range rs {
		if r.Kind == result.KindFailNoExists {
			noExists = append(noExists, r)
		}
	}
	require.Len(t, noExists, 1)
	assert.Equal(t, "Vlan99", noExists[0].CheckID)

	excl := rs.ForCheck("exclusive_list")
	require.Len(t, excl, 1)
	assert.Equal(t, result.KindFailExtraMembers, excl[0].Kind)
	assert.Equal(t, []string{"Vlan20"}, excl[0].Extras)
}

func TestIPAddrsBadSubnet(t *testing.T) {
	fake := newFake().On(testutil.OpApplianceVlans, `[{"id": 10, "applianceIp": "10.10.0.1", "subnet": "bogus"}]`)
	s := newSession(t, fake)

	_, err := s.Execute(context.Background(), &design.Collection{Kind: design.KindIPAddrs})
	assert.ErrorIs(t, err, util.ErrUnsupportedPayload)
}

func TestSwitchports(t *testing.T) {
	s := newSession(t, newFake())

	c := &design.Collection{Kind: design.KindSwitchports, Checks: []design.Check{
		{ID: "3", Expected: design.SwitchportExpect{Mode: design.ModeAccess, VLAN: 10}},
		{ID: "4", Expected: design.SwitchportExpect{Mode: design.ModeTrunk, NativeVLAN: 1, AllowedVLANs: []int{20, 10}}},
		{ID: "5", Expected: design.SwitchportExpect{Mode: design.ModeTrunk, NativeVLAN: 30}},
		{ID: "6", Expected: design.SwitchportExpect{Mode: design.ModeAccess, VLAN: 1}},
		{ID: "9", Expected: design.SwitchportExpect{Mode: design.ModeAccess, VLAN: 10}},
	}}
	rs, err := s.Execute(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, result.KindPass, rs.ForCheck("3")[0].Kind)
	assert.Equal(t, result.KindPass, rs.ForCheck("4")[0].Kind, "allowed vlans compare as a set")

	p5 := rs.ForCheck("5")
	require.Len(t, p5, 1, "native vlan skipped on drop-untagged trunk, no info for 'all'")
	assert.Equal(t, result.KindPass, p5[0].Kind)

	p6 := rs.ForCheck("6")
	require.Len(t, p6, 1)
	assert.Equal(t, "switchport_mode", p6[0].Field)

	assert.Equal(t, result.KindFailNoExists, rs.ForCheck("9")[0].Kind)
}

func TestSwitchportsAllowedMismatch(t *testing.T) {
	s := newSession(t, newFake())

	c := &design.Collection{Kind: design.KindSwitchports, Checks: []design.Check{
		{ID: "4", Expected: design.SwitchportExpect{Mode: design.ModeTrunk, NativeVLAN: 2, AllowedVLANs: []int{10}}},
	}}
	rs, err := s.Execute(context.Background(), c)
	require.NoError(t, err)

	fails := rs.Failures()
	require.Len(t, fails, 2)
	assert.Equal(t, "native_vlan", fails[0].Field)
	assert.Equal(t, "trunk_allowed_vlans", fails[1].Field)
	assert.Equal(t, []int{10}, fails[1].Expected)
	assert.Equal(t, []int{10, 20}, fails[1].Measurement)
}

func TestVlans(t *testing.T) {
	s := newSession(t, newFake())

	c := &design.Collection{Kind: design.KindVlans, Exclusive: true, Checks: []design.Check{
		{ID: "10", Expected: design.VlanExpect{VLAN: 10, Interfaces: []string{"3", "4", "5", "Vlan10"}}},
		{ID: "20", Expected: design.VlanExpect{VLAN: 20, Interfaces: []string{"4", "5"}}},
		{ID: "30", Expected: design.VlanExpect{VLAN: 30, Interfaces: []string{"5"}}},
	}}
	rs, err := s.Execute(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, result.KindPass, rs.ForCheck("10")[0].Kind)
	assert.Equal(t, result.KindPass, rs.ForCheck("20")[0].Kind)
	assert.Equal(t, result.KindPass, rs.ForCheck("30")[0].Kind, "enabled 'all' trunk carries every expected vlan")

	excl := rs.ForCheck("exclusive_list")
	require.Len(t, excl, 1)
	assert.Equal(t, result.KindFailExtraMembers, excl[0].Kind, "vlan 1 native on enabled trunks")
	assert.Equal(t, []int{1}, excl[0].Extras)
}

func TestVlansMissingAndExtraSeparate(t *testing.T) {
	fake := newFake().On(testutil.OpAppliancePorts, `[
		{"number": 3, "enabled": true, "type": "access", "vlan": 10},
		{"number": 4, "enabled": true, "type": "access", "vlan": 30}
	]`)
	s := newSession(t, fake)

	c := &design.Collection{Kind: design.KindVlans, Exclusive: true, Checks: []design.Check{
		{ID: "10", Expected: design.VlanExpect{VLAN: 10, Interfaces: []string{"3"}}},
		{ID: "20", Expected: design.VlanExpect{VLAN: 20, Interfaces: []string{"4"}}},
	}}
	rs, err := s.Execute(context.Background(), c)
	require.NoError(t, err)

	excl := rs.ForCheck("exclusive_list")
	require.Len(t, excl, 2)
	assert.Equal(t, result.KindFailMissingMembers, excl[0].Kind)
	assert.Equal(t, []int{20}, excl[0].Missing)
	assert.Equal(t, result.KindFailExtraMembers, excl[1].Kind)
	assert.Equal(t, []int{30}, excl[1].Extras)

	v20 := rs.ForCheck("20")
	require.Len(t, v20, 1)
	assert.Equal(t, result.KindFailFieldMismatch, v20[0].Kind)
	assert.Equal(t, []string{}, v20[0].Measurement)
}

func TestCabling(t *testing.T) {
	fake := newFake().On(testutil.OpLLDP, `{"ports": {
		"port3": {"lldp": {"systemName": "Meraki MS220-8P - sw01", "portId": "Port 1"}},
		"wan1":  {"lldp": {"systemName": "isp-gw", "portId": "ge-0/0/1"}}
	}}`)
	s := newSession(t, fake)

	c := &design.Collection{Kind: design.KindCabling, Checks: []design.Check{
		{ID: "3", Expected: design.CablingExpect{Device: "sw01", PortID: "1"}},
		{ID: "4", Expected: design.CablingExpect{Device: "sw02", PortID: "1"}},
	}}
	rs, err := s.Execute(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, result.KindPass, rs.ForCheck("3")[0].Kind)
	assert.Equal(t, result.KindFailNoExists, rs.ForCheck("4")[0].Kind)
}
