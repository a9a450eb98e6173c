package testutil

import (
	"fmt"
	"net/http"

	"github.com/newtron-network/netcam-meraki/pkg/dashboard"
)

// Operation names used by the fixtures.
const (
	OpOrganizations    = "organizations.getOrganizations"
	OpOrgDevices       = "organizations.getOrganizationDevices"
	OpStartPing        = "devices.createDeviceLiveToolsPingDevice"
	OpPollPing         = "devices.getDeviceLiveToolsPingDevice"
	OpLLDP             = "devices.getDeviceLldpCdp"
	OpMgmtIface        = "devices.getDeviceManagementInterface"
	OpAppliancePorts   = "appliance.getNetworkAppliancePorts"
	OpApplianceVlans   = "appliance.getNetworkApplianceVlans"
	OpSwitchPorts      = "switch.getDeviceSwitchPorts"
	OpSwitchPortStatus = "switch.getDeviceSwitchPortsStatuses"
	OpWirelessSSIDs    = "wireless.getNetworkWirelessSsids"
)

// Test organization.
const (
	TestOrgID   = "549236"
	TestOrgName = "Lab Org"
	TestNetwork = "L_646829496481105433"
)

// InventoryRecord returns one organization device record.
func InventoryRecord(name, model, serial string) string {
	return fmt.Sprintf(`{"name":%q,"model":%q,"serial":%q,"networkId":%q,"mac":"e0:55:3d:00:00:01","lanIp":"10.0.0.2"}`,
		name, model, serial, TestNetwork)
}

// NewReachableDevice returns a fake that resolves name to a single inventory
// record and whose ping job completes on the first poll.
func NewReachableDevice(name, model, serial string) *FakeDashboard {
	return NewFakeDashboard().
		On(OpOrganizations, fmt.Sprintf(`[{"id":%q,"name":%q},{"id":"1","name":"Other"}]`, TestOrgID, TestOrgName)).
		On(OpOrgDevices, "["+InventoryRecord(name, model, serial)+"]").
		On(OpStartPing, `{"pingId":"ping-1","status":"new"}`).
		On(OpPollPing, `{"pingId":"ping-1","status":"complete","results":{"sent":5,"received":5}}`)
}

// RateLimited is a 429 response error.
func RateLimited(op string) error {
	return &dashboard.APIError{Op: op, Status: http.StatusTooManyRequests, Message: "API rate limit exceeded"}
}

// ServerError is a 500 response error.
func ServerError(op string) error {
	return &dashboard.APIError{Op: op, Status: http.StatusInternalServerError, Message: "internal error"}
}

// MgmtInterfacePayload is a management interface with a static wan1 on the
// given VLAN.
func MgmtInterfacePayload(ip, mask string, vlan int) string {
	return fmt.Sprintf(`{
		"ddnsHostnames": {"activeDdnsHostname": "mx01.dynamic-m.com"},
		"wan1": {"wanEnabled": "enabled", "usingStaticIp": true, "staticIp": %q, "staticSubnetMask": %q, "staticGatewayIp": "10.1.1.1", "vlan": %d},
		"wan2": {"wanEnabled": "disabled", "usingStaticIp": false}
	}`, ip, mask, vlan)
}
