package design

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/newtron-network/netcam-meraki/pkg/util"
)

const sampleDesign = `
devices:
  - name: mx01
    os_name: meraki
    product_model: MX68
    collections:
      - kind: device-info
        checks:
          - id: device-info
            expect:
              product_model: MX68
      - kind: switchports
        checks:
          - id: "3"
            expect:
              switchport_mode: trunk
              native_vlan: 10
              trunk_allowed_vlans: [10, 20]
      - kind: vlans
        exclusive: true
        checks:
          - id: "10"
            expect:
              interfaces: ["3", "4", "Vlan10"]
          - id: "20"
            expect:
              vlan: 20
              interfaces: ["3"]
          - id: "30"
            expect:
              vlan: 30
  - name: sw01
    os_name: meraki
    product_model: MS220-8P
    collections:
      - kind: interfaces
        checks:
          - id: "1"
            params:
              interface_flags:
                is_reserved: true
            expect:
              used: true
              oper_up: true
              speed: 1000
      - kind: ntp
        checks:
          - id: ntp
            expect:
              servers: [a, b]
`

func TestParse(t *testing.T) {
	d, err := Parse([]byte(sampleDesign))
	require.NoError(t, err)
	require.Len(t, d.Devices, 2)

	mx := d.Device("mx01")
	require.NotNil(t, mx)
	assert.Equal(t, "MX68", mx.ProductModel)
	require.Len(t, mx.Collections, 3)

	info := mx.Collections[0]
	assert.Equal(t, KindDeviceInfo, info.Kind)
	assert.Equal(t, "MX68", info.Checks[0].DeviceInfo().ProductModel)

	sp := mx.Collections[1].Checks[0].Switchport()
	assert.Equal(t, ModeTrunk, sp.Mode)
	assert.Equal(t, 10, sp.NativeVLAN)
	assert.Equal(t, []int{10, 20}, sp.AllowedVLANs)

	vlans := mx.Collections[2]
	assert.True(t, vlans.Exclusive)
	assert.Equal(t, 10, vlans.Checks[0].Vlan().VLAN, "vlan filled from check id")
	assert.Equal(t, []int{10, 20, 30}, vlans.ExpectedVLANs(), "vlan 30 has no interfaces but is designed")
	assert.Equal(t, []string{"10", "20", "30"}, vlans.CheckIDs())

	sw := d.Device("sw01")
	require.NotNil(t, sw)
	iface := sw.Collections[0].Checks[0]
	assert.True(t, iface.IsReserved())
	assert.Equal(t, 1000, iface.Interface().Speed)

	unknown := sw.Collections[1]
	assert.Equal(t, Kind("ntp"), unknown.Kind)
	assert.False(t, unknown.Kind.Known())
	assert.Nil(t, unknown.Checks[0].Expected)

	assert.Nil(t, d.Device("nope"))
}

func TestTypedAccessorWrongKind(t *testing.T) {
	c := Check{ID: "1", Expected: InterfaceExpect{Used: true}}
	assert.Equal(t, VlanExpect{}, c.Vlan())
	assert.True(t, c.Interface().Used)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing device name",
			yaml:    "devices:\n  - os_name: meraki\n",
			wantErr: "name is required",
		},
		{
			name:    "duplicate device",
			yaml:    "devices:\n  - name: a\n  - name: a\n",
			wantErr: "defined more than once",
		},
		{
			name: "bad switchport mode",
			yaml: `devices:
  - name: a
    collections:
      - kind: switchports
        checks:
          - id: "1"
            expect: {switchport_mode: hybrid}
`,
			wantErr: "switchport_mode",
		},
		{
			name: "vlan id not numeric",
			yaml: `devices:
  - name: a
    collections:
      - kind: vlans
        checks:
          - id: users
            expect: {vlan: 10}
`,
			wantErr: "not a VLAN id",
		},
		{
			name: "duplicate check",
			yaml: `devices:
  - name: a
    collections:
      - kind: interfaces
        checks:
          - id: "1"
          - id: "1"
`,
			wantErr: "check 1 defined more than once",
		},
		{
			name: "bad ip",
			yaml: `devices:
  - name: a
    collections:
      - kind: ipaddrs
        checks:
          - id: Vlan10
            expect: {if_ipaddr: 10.0.0.1}
`,
			wantErr: "if_ipaddr",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, errors.Is(err, util.ErrValidationFailed))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "design.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleDesign), 0o644))

	d, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, d.Devices, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestCollectionRoundTrip(t *testing.T) {
	c := Collection{
		Kind:      KindCabling,
		Exclusive: false,
		Checks:    []Check{{ID: "port1", Expected: CablingExpect{Device: "sw01", PortID: "3"}}},
	}
	data, err := yaml.Marshal(c)
	require.NoError(t, err)

	var back Collection
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, c.Kind, back.Kind)
	assert.Equal(t, "sw01", back.Checks[0].Cabling().Device)
	assert.Equal(t, "3", back.Checks[0].Cabling().PortID)
}

func TestExpectedVLANs(t *testing.T) {
	c := &Collection{Kind: KindVlans, Checks: []Check{
		{ID: "10", Expected: VlanExpect{VLAN: 10, Interfaces: []string{"1"}}},
		{ID: "99", Expected: VlanExpect{VLAN: 99}},
		{ID: "30"},
		{ID: "mgmt"},
	}}
	assert.Equal(t, []int{10, 99, 30}, c.ExpectedVLANs())
}
