// Package resultstore keeps validation runs in Redis so that a later
// invocation can list and re-render them.
//
// Layout:
//
//	netcam:runs                      zset of run ids scored by save time
//	netcam:run:<id>:devices          hash of device name to DeviceReport JSON
package resultstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/newtron-network/netcam-meraki/pkg/runner"
	"github.com/newtron-network/netcam-meraki/pkg/util"
)

const (
	keyRuns   = "netcam:runs"
	keyPrefix = "netcam:run:"
)

// DefaultTTL is how long a run is kept.
const DefaultTTL = 7 * 24 * time.Hour

// Store wraps a Redis client holding validation runs.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewStore connects to Redis at addr and verifies the connection.
func NewStore(ctx context.Context, addr string, db int, ttl time.Duration) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return New(client, ttl), nil
}

// New wraps an existing client. A zero ttl takes DefaultTTL.
func New(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, ttl: ttl, now: time.Now}
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

func devicesKey(runID string) string {
	return keyPrefix + runID + ":devices"
}

// SaveDevice stores one device report under its run.
func (s *Store) SaveDevice(ctx context.Context, runID string, rep runner.DeviceReport) error {
	data, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("encoding report for %s: %w", rep.Device, err)
	}

	key := devicesKey(runID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, rep.Device, data)
	pipe.Expire(ctx, key, s.ttl)
	pipe.ZAddNX(ctx, keyRuns, &redis.Z{Score: float64(s.now().Unix()), Member: runID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("saving %s for run %s: %w", rep.Device, runID, err)
	}

	util.WithDevice(rep.Device).WithField("run_id", runID).Debug("Stored device report")
	return nil
}

// RunInfo identifies a stored run.
type RunInfo struct {
	ID    string    `json:"id"`
	Saved time.Time `json:"saved"`
}

// ListRuns returns stored runs, newest first. Runs whose device hash has
// expired are pruned from the index.
func (s *Store) ListRuns(ctx context.Context) ([]RunInfo, error) {
	zs, err := s.client.ZRevRangeWithScores(ctx, keyRuns, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	var runs []RunInfo
	for _, z := range zs {
		id, _ := z.Member.(string)
		n, err := s.client.Exists(ctx, devicesKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("checking run %s: %w", id, err)
		}
		if n == 0 {
			s.client.ZRem(ctx, keyRuns, id)
			continue
		}
		runs = append(runs, RunInfo{ID: id, Saved: time.Unix(int64(z.Score), 0)})
	}
	return runs, nil
}

// LoadRun returns the device reports of a run ordered by device name.
func (s *Store) LoadRun(ctx context.Context, runID string) (*runner.Report, error) {
	vals, err := s.client.HGetAll(ctx, devicesKey(runID)).Result()
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", runID, err)
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("run %s not found", runID)
	}

	rep := &runner.Report{RunID: runID}
	for name, data := range vals {
		var dr runner.DeviceReport
		if err := json.Unmarshal([]byte(data), &dr); err != nil {
			return nil, fmt.Errorf("decoding %s in run %s: %w", name, runID, err)
		}
		rep.Devices = append(rep.Devices, dr)
	}
	sort.Slice(rep.Devices, func(i, j int) bool { return rep.Devices[i].Device < rep.Devices[j].Device })
	return rep, nil
}

// DeleteRun removes a run.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, devicesKey(runID))
	pipe.ZRem(ctx, keyRuns, runID)
	_, err := pipe.Exec(ctx)
	return err
}

var _ runner.Sink = (*Store)(nil)
