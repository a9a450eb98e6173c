package runner

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newtron-network/netcam-meraki/internal/testutil"
	"github.com/newtron-network/netcam-meraki/pkg/design"
	"github.com/newtron-network/netcam-meraki/pkg/plugin"
	"github.com/newtron-network/netcam-meraki/pkg/result"
)

type memorySink struct {
	mu    sync.Mutex
	runID string
	saved map[string]DeviceReport
}

func (m *memorySink) SaveDevice(ctx context.Context, runID string, rep DeviceReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = map[string]DeviceReport{}
	}
	m.runID = runID
	m.saved[rep.Device] = rep
	return nil
}

func testDesign() *design.Design {
	return &design.Design{Devices: []design.Device{
		{
			Name: "sw01", OSName: "meraki", ProductModel: "MS220-8P",
			Collections: []design.Collection{
				{Kind: design.KindDeviceInfo, Checks: []design.Check{
					{ID: "device-info", Expected: design.DeviceInfoExpect{ProductModel: "MS220-8P"}},
				}},
				{Kind: design.KindSwitchports, Checks: []design.Check{
					{ID: "1", Expected: design.SwitchportExpect{Mode: design.ModeAccess, VLAN: 10}},
				}},
				{Kind: "ntp"},
			},
		},
		{Name: "cam01", OSName: "meraki", ProductModel: "MV12"},
		{Name: "sw02", OSName: "meraki", ProductModel: "MS120-8"},
	}}
}

func testFake() *testutil.FakeDashboard {
	return testutil.NewReachableDevice("sw01", "MS220-8P", "Q2HP-AAAA-0001").
		On(testutil.OpSwitchPorts, `[{"portId": "1", "enabled": true, "type": "access", "vlan": 20}]`)
}

func TestRun(t *testing.T) {
	sink := &memorySink{}
	cfg := &plugin.Config{OrgID: testutil.TestOrgID, SkipProbe: true}
	r := New(cfg, testFake(), Options{Sink: sink, Concurrency: 2})

	rep, err := r.Run(context.Background(), testDesign())
	require.NoError(t, err)

	_, err = uuid.Parse(rep.RunID)
	assert.NoError(t, err)
	require.Len(t, rep.Devices, 3)

	byName := map[string]DeviceReport{}
	for _, d := range rep.Devices {
		byName[d.Device] = d
	}

	sw01 := byName["sw01"]
	assert.Equal(t, "switch", sw01.Family)
	assert.Equal(t, "Q2HP-AAAA-0001", sw01.Serial)
	assert.Empty(t, sw01.Errors)
	assert.Equal(t, 1, sw01.Results.Counts()[result.KindFailFieldMismatch])
	assert.Equal(t, 1, sw01.Results.Counts()[result.KindSkip], "ntp soft-skipped")
	assert.True(t, sw01.Failed())

	cam := byName["cam01"]
	assert.True(t, cam.Unsupported)
	assert.False(t, cam.Failed())

	// sw02 is not in the fake inventory.
	sw02 := byName["sw02"]
	require.Len(t, sw02.Errors, 1)
	assert.Contains(t, sw02.Errors[0], "sw02")

	sum := rep.Summary()
	assert.Equal(t, 3, sum.Devices)
	assert.Equal(t, 2, sum.Failed)
	assert.Equal(t, 1, sum.Errored)
	assert.Equal(t, 1, sum.Unsupported)
	assert.True(t, rep.AnyFailures())

	assert.Equal(t, rep.RunID, sink.runID)
	assert.Len(t, sink.saved, 3)

	sorted := rep.SortedDevices()
	assert.Equal(t, []string{"cam01", "sw01", "sw02"}, []string{sorted[0].Device, sorted[1].Device, sorted[2].Device})
}

func TestRunSelectedDevices(t *testing.T) {
	cfg := &plugin.Config{OrgID: testutil.TestOrgID, SkipProbe: true}

	r := New(cfg, testFake(), Options{Devices: []string{"cam01"}})
	rep, err := r.Run(context.Background(), testDesign())
	require.NoError(t, err)
	require.Len(t, rep.Devices, 1)
	assert.Equal(t, "cam01", rep.Devices[0].Device)

	r = New(cfg, testFake(), Options{Devices: []string{"nope"}})
	_, err = r.Run(context.Background(), testDesign())
	assert.Error(t, err)
}

func TestRunCollectionErrorIsolated(t *testing.T) {
	fake := testFake().OnError(testutil.OpSwitchPorts, testutil.ServerError(testutil.OpSwitchPorts))
	cfg := &plugin.Config{OrgID: testutil.TestOrgID, SkipProbe: true}
	r := New(cfg, fake, Options{Devices: []string{"sw01"}})

	rep, err := r.Run(context.Background(), testDesign())
	require.NoError(t, err)

	d := rep.Devices[0]
	require.Len(t, d.Errors, 1)
	assert.Equal(t, 1, d.Results.Counts()[result.KindPass], "device-info still ran")
	assert.Equal(t, 1, d.Results.Counts()[result.KindSkip], "ntp still ran")
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := &plugin.Config{OrgID: testutil.TestOrgID, SkipProbe: true}
	_, err := New(cfg, testFake(), Options{}).Run(ctx, testDesign())
	assert.ErrorIs(t, err, context.Canceled)
}

type failingSink struct{}

func (failingSink) SaveDevice(ctx context.Context, runID string, rep DeviceReport) error {
	return errors.New("sink down")
}

func TestMultiSink(t *testing.T) {
	a, b := &memorySink{}, &memorySink{}
	sink := MultiSink{a, failingSink{}, b}

	err := sink.SaveDevice(context.Background(), "run-1", DeviceReport{Device: "sw01"})
	assert.EqualError(t, err, "sink down")
	assert.Len(t, a.saved, 1)
	assert.Len(t, b.saved, 1, "later sinks still run after a failure")

	assert.NoError(t, MultiSink{}.SaveDevice(context.Background(), "run-1", DeviceReport{}))
}

func TestRunSinkFailureDoesNotFailRun(t *testing.T) {
	cfg := &plugin.Config{OrgID: testutil.TestOrgID, SkipProbe: true}
	r := New(cfg, testFake(), Options{Sink: failingSink{}, Devices: []string{"cam01"}})

	rep, err := r.Run(context.Background(), testDesign())
	require.NoError(t, err)
	assert.Len(t, rep.Devices, 1)
}
