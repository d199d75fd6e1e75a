package scan

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"daos-confgen/internal/discovery"
	"daos-confgen/internal/model"
)

// TopologySource reports NUMA topology, typically through libvirt.
type TopologySource interface {
	Topology(ctx context.Context) (model.Topology, error)
}

// LocalScanner scans the host it runs on.
type LocalScanner struct {
	hostname string
	reader   *discovery.Reader
	topo     TopologySource
	timeout  time.Duration
	logger   *slog.Logger
}

// NewLocalScanner returns a scanner over reader. topo may be nil, in which
// case NUMA nodes come from sysfs. A positive timeout bounds every scan.
func NewLocalScanner(hostname string, reader *discovery.Reader, topo TopologySource, timeout time.Duration, logger *slog.Logger) *LocalScanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalScanner{hostname: hostname, reader: reader, topo: topo, timeout: timeout, logger: logger}
}

func (s *LocalScanner) ScanStorage(ctx context.Context) (model.StorageScan, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	nvme, err := run(ctx, s.reader.ScanNvme)
	if err != nil {
		return model.StorageScan{}, errors.Wrap(err, "nvme scan")
	}
	scm, err := run(ctx, s.reader.ScanScm)
	if err != nil {
		return model.StorageScan{}, errors.Wrap(err, "scm scan")
	}
	s.logger.Debug("storage scanned", "nvme", len(nvme), "scm", len(scm))
	return model.StorageScan{Hostname: s.hostname, NvmeDevices: nvme, ScmNamespaces: scm}, nil
}

func (s *LocalScanner) ScanNetwork(ctx context.Context, provider string) (model.NetworkScan, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ifaces, err := run(ctx, func() ([]model.FabricInterface, error) {
		return s.reader.ScanFabric(provider)
	})
	if err != nil {
		return model.NetworkScan{}, errors.Wrap(err, "fabric scan")
	}
	s.logger.Debug("network scanned", "interfaces", len(ifaces), "provider", provider)
	return model.NetworkScan{Hostname: s.hostname, Interfaces: ifaces}, nil
}

func (s *LocalScanner) ScanTopology(ctx context.Context) (model.Topology, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if s.topo != nil {
		topo, err := s.topo.Topology(ctx)
		if err == nil && len(topo.NumaNodes) > 0 {
			if topo.Hostname == "" {
				topo.Hostname = s.hostname
			}
			return topo, nil
		}
		if ctx.Err() != nil {
			return model.Topology{}, ctx.Err()
		}
		s.logger.Warn("libvirt topology unavailable, falling back to sysfs", "error", err)
	}

	nodes, err := run(ctx, s.reader.ScanNumaNodes)
	if err != nil {
		return model.Topology{}, errors.Wrap(err, "numa scan")
	}
	return model.Topology{Hostname: s.hostname, NumaNodes: nodes}, nil
}

func (s *LocalScanner) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// run executes a blocking sysfs read, giving up when ctx ends first.
func run[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v: v, err: err}
	}()
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case r := <-done:
		return r.v, r.err
	}
}
