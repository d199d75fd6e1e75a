// Package scan collects a host inventory from sysfs, libvirt, a file or a
// remote agent.
package scan

import (
	"context"

	"golang.org/x/sync/errgroup"

	"daos-confgen/internal/model"
)

// Scanner reports the storage, fabric and NUMA layout of one host.
type Scanner interface {
	ScanStorage(ctx context.Context) (model.StorageScan, error)
	ScanNetwork(ctx context.Context, provider string) (model.NetworkScan, error)
	ScanTopology(ctx context.Context) (model.Topology, error)
}

// Host runs the three scans of s concurrently and merges them. The first
// failure cancels the others.
func Host(ctx context.Context, s Scanner, provider string) (model.HostInventory, error) {
	var (
		storage model.StorageScan
		network model.NetworkScan
		topo    model.Topology
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		storage, err = s.ScanStorage(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		network, err = s.ScanNetwork(gctx, provider)
		return err
	})
	g.Go(func() error {
		var err error
		topo, err = s.ScanTopology(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.HostInventory{}, err
	}

	hostname := firstNonEmpty(storage.Hostname, network.Hostname, topo.Hostname)
	return model.HostInventory{
		Hostname: hostname,
		Storage:  storage,
		Network:  network,
		Topology: topo,
	}, nil
}

// FilterProvider keeps the interfaces offering provider. Empty and "all"
// keep everything.
func FilterProvider(ifaces []model.FabricInterface, provider string) []model.FabricInterface {
	if provider == "" || provider == model.ProviderAll {
		return ifaces
	}
	out := make([]model.FabricInterface, 0, len(ifaces))
	for _, fi := range ifaces {
		if fi.Provider == provider {
			out = append(out, fi)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
