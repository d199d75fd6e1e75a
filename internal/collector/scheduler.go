package collector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"

	"daos-confgen/internal/model"
)

// Scheduler rescans the host periodically and caches the last inventory.
type Scheduler struct {
	logger       *slog.Logger
	host         *HostCollector
	interval     time.Duration
	errorBackoff time.Duration
	onScan       func(model.HostInventory, error)

	// scanMu serializes scans; mu guards the cached result.
	scanMu  sync.Mutex
	mu      sync.RWMutex
	last    model.HostInventory
	lastErr error
	hasScan bool
}

func NewScheduler(
	logger *slog.Logger,
	host *HostCollector,
	interval, errorBackoff time.Duration,
	onScan func(model.HostInventory, error),
) *Scheduler {
	if errorBackoff <= 0 {
		errorBackoff = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		logger:       logger,
		host:         host,
		interval:     interval,
		errorBackoff: errorBackoff,
		onScan:       onScan,
	}
}

func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if _, err := s.rescan(ctx); err != nil {
		s.logger.Warn("initial host scan failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.rescan(ctx); err != nil {
				s.logger.Error("host scan failed", "error", err)
				s.sleepWithContext(ctx, s.errorBackoff)
			}
		}
	}
}

// Inventory returns the cached inventory, scanning first when refresh is set
// or nothing has been cached yet. A failed periodic scan leaves the previous
// inventory in place.
func (s *Scheduler) Inventory(ctx context.Context, refresh bool) (model.HostInventory, error) {
	if !refresh {
		s.mu.RLock()
		inv, ok := s.last, s.hasScan
		s.mu.RUnlock()
		if ok {
			return inv, nil
		}
	}
	return s.rescan(ctx)
}

// LastError reports the outcome of the most recent scan.
func (s *Scheduler) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *Scheduler) rescan(ctx context.Context) (model.HostInventory, error) {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	start := time.Now()
	inv, err := s.host.Collect(ctx)
	if s.onScan != nil {
		s.onScan(inv, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
	if err != nil {
		return model.HostInventory{}, errors.Wrap(err, "host scan")
	}
	s.last = inv
	s.hasScan = true
	s.logger.Debug("host scanned",
		"nvme", len(inv.Storage.NvmeDevices),
		"scm", len(inv.Storage.ScmNamespaces),
		"interfaces", len(inv.Network.Interfaces),
		"numa_nodes", len(inv.Topology.NumaNodes),
		"took", time.Since(start))
	return inv, nil
}

func (s *Scheduler) sleepWithContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
