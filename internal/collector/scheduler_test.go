package collector

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daos-confgen/internal/model"
)

type countingScanner struct {
	calls atomic.Int32
	fail  atomic.Bool
}

func (c *countingScanner) ScanStorage(context.Context) (model.StorageScan, error) {
	n := c.calls.Add(1)
	if c.fail.Load() {
		return model.StorageScan{}, errors.New("pci bus unreadable")
	}
	devs := make([]model.NvmeDevice, n)
	for i := range devs {
		devs[i] = model.NvmeDevice{PCIAddr: "0000:81:00." + string(rune('0'+i))}
	}
	return model.StorageScan{NvmeDevices: devs}, nil
}

func (c *countingScanner) ScanNetwork(_ context.Context, provider string) (model.NetworkScan, error) {
	if provider != model.ProviderAll {
		return model.NetworkScan{}, errors.Errorf("unexpected provider filter %q", provider)
	}
	return model.NetworkScan{}, nil
}

func (c *countingScanner) ScanTopology(context.Context) (model.Topology, error) {
	return model.Topology{NumaNodes: []uint{0}}, nil
}

func newTestScheduler(sc *countingScanner, onScan func(model.HostInventory, error)) *Scheduler {
	host := NewHostCollector(sc, "node-1", "wolf-a")
	host.now = func() time.Time { return time.Unix(1700000000, 0) }
	return NewScheduler(nil, host, time.Hour, time.Millisecond, onScan)
}

func TestScheduler_CachesInventory(t *testing.T) {
	sc := &countingScanner{}
	s := newTestScheduler(sc, nil)
	ctx := context.Background()

	first, err := s.Inventory(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, "wolf-a", first.Hostname)
	assert.Equal(t, int64(1700000000), first.CollectedAtUnix)
	assert.Len(t, first.Storage.NvmeDevices, 1)

	again, err := s.Inventory(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, int32(1), sc.calls.Load())

	fresh, err := s.Inventory(ctx, true)
	require.NoError(t, err)
	assert.Len(t, fresh.Storage.NvmeDevices, 2)
}

func TestScheduler_FailedScanKeepsCache(t *testing.T) {
	sc := &countingScanner{}
	var failures atomic.Int32
	s := newTestScheduler(sc, func(_ model.HostInventory, err error) {
		if err != nil {
			failures.Add(1)
		}
	})
	ctx := context.Background()

	_, err := s.Inventory(ctx, false)
	require.NoError(t, err)

	sc.fail.Store(true)
	_, err = s.Inventory(ctx, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pci bus unreadable")
	assert.Error(t, s.LastError())
	assert.Equal(t, int32(1), failures.Load())

	cached, err := s.Inventory(ctx, false)
	require.NoError(t, err)
	assert.Len(t, cached.Storage.NvmeDevices, 1)
}

func TestScheduler_Run(t *testing.T) {
	sc := &countingScanner{}
	scanned := make(chan struct{}, 1)
	s := newTestScheduler(sc, func(model.HostInventory, error) {
		select {
		case scanned <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, s.Run(ctx))
	}()

	select {
	case <-scanned:
	case <-time.After(5 * time.Second):
		t.Fatal("initial scan did not run")
	}
	cancel()
	wg.Wait()

	inv, err := s.Inventory(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, []uint{0}, inv.Topology.NumaNodes)
}
