package resultstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newtron-network/netcam-meraki/internal/testutil"
	"github.com/newtron-network/netcam-meraki/pkg/result"
	"github.com/newtron-network/netcam-meraki/pkg/runner"
)

const testDB = 9

func newTestStore(t *testing.T) *Store {
	t.Helper()
	testutil.SkipIfNoRedis(t)
	testutil.FlushDB(t, testDB)
	return New(testutil.RedisClient(t, testDB), time.Hour)
}

func report(name string, rs ...result.Result) runner.DeviceReport {
	return runner.DeviceReport{Device: name, Family: "switch", Results: rs, Duration: time.Second}
}

func TestSaveAndLoadRun(t *testing.T) {
	s := newTestStore(t)
	ctx := testutil.Context(t)

	ref := result.For("sw02", "switchports", "1")
	require.NoError(t, s.SaveDevice(ctx, "run-1", report("sw02", result.FieldMismatch(ref, "vlan", 10, 20))))
	require.NoError(t, s.SaveDevice(ctx, "run-1", report("sw01", result.Pass(ref, "", nil))))

	rep, err := s.LoadRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, rep.Devices, 2)
	assert.Equal(t, "sw01", rep.Devices[0].Device)
	assert.Equal(t, "sw02", rep.Devices[1].Device)
	assert.Equal(t, result.KindFailFieldMismatch, rep.Devices[1].Results[0].Kind)
	assert.Equal(t, time.Second, rep.Devices[1].Duration)
	assert.True(t, rep.AnyFailures())

	ttl, err := testutil.RedisClient(t, testDB).TTL(ctx, devicesKey("run-1")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestLoadRunMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.LoadRun(testutil.Context(t), "nope")
	assert.Error(t, err)
}

func TestListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := testutil.Context(t)

	base := time.Unix(1700000000, 0)
	s.now = func() time.Time { return base }
	require.NoError(t, s.SaveDevice(ctx, "old", report("sw01")))
	s.now = func() time.Time { return base.Add(time.Minute) }
	require.NoError(t, s.SaveDevice(ctx, "new", report("sw01")))
	require.NoError(t, s.SaveDevice(ctx, "old", report("sw02")))

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "new", runs[0].ID)
	assert.Equal(t, "old", runs[1].ID)
	assert.Equal(t, base, runs[1].Saved, "first save of a run fixes its time")

	require.NoError(t, s.DeleteRun(ctx, "new"))
	runs, err = s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "old", runs[0].ID)
}

func TestListRunsPrunesExpired(t *testing.T) {
	s := newTestStore(t)
	ctx := testutil.Context(t)

	require.NoError(t, s.SaveDevice(ctx, "gone", report("sw01")))
	require.NoError(t, testutil.RedisClient(t, testDB).Del(ctx, devicesKey("gone")).Err())

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	assert.Empty(t, runs)

	n, err := testutil.RedisClient(t, testDB).ZCard(ctx, keyRuns).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}
