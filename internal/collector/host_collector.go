package collector

import (
	"context"
	"time"

	"daos-confgen/internal/model"
	"daos-confgen/internal/scan"
)

// HostCollector runs a full host scan bound to one node identity.
type HostCollector struct {
	scanner  scan.Scanner
	nodeID   string
	hostname string
	now      func() time.Time
}

// NewHostCollector creates a collector over scanner.
func NewHostCollector(scanner scan.Scanner, nodeID, hostname string) *HostCollector {
	return &HostCollector{scanner: scanner, nodeID: nodeID, hostname: hostname, now: time.Now}
}

// Collect scans every provider so the cached inventory can serve filtered
// requests later.
func (c *HostCollector) Collect(ctx context.Context) (model.HostInventory, error) {
	inv, err := scan.Host(ctx, c.scanner, model.ProviderAll)
	if err != nil {
		return model.HostInventory{}, err
	}
	if inv.Hostname == "" {
		inv.Hostname = c.hostname
	}
	inv.CollectedAtUnix = c.now().UTC().Unix()
	return inv, nil
}
