package confgen

import (
	"fmt"
	"strings"

	"github.com/juju/collections/set"

	"daos-confgen/internal/inventory"
)

// verify re-checks planner output against the inventory. Any failure is an
// allocator or normalization bug.
func verify(inv *inventory.ResourceInventory, req Request, allocs []allocation) error {
	sockets := make(map[inventory.NumaID]struct{}, len(allocs))
	ifaces := set.NewStrings()
	pci := set.NewStrings()

	for i, a := range allocs {
		if _, dup := sockets[a.socket]; dup {
			return &InvariantError{Engine: i, Detail: fmt.Sprintf("socket %d allocated twice", a.socket)}
		}
		sockets[a.socket] = struct{}{}

		if !inv.HasScmDevice(a.scm) {
			return &InvariantError{Engine: i, Detail: fmt.Sprintf("scm device %q not in scan", a.scm)}
		}
		if req.MinSSDs > 0 && len(a.nvme) < req.MinSSDs {
			return &InvariantError{
				Engine: i,
				Detail: fmt.Sprintf("%d nvme devices below threshold %d", len(a.nvme), req.MinSSDs),
			}
		}
		for _, addr := range a.nvme {
			if !inv.HasPCIAddr(addr) {
				return &InvariantError{Engine: i, Detail: fmt.Sprintf("nvme %q not in scan", addr)}
			}
			if pci.Contains(addr) {
				return &InvariantError{Engine: i, Detail: fmt.Sprintf("nvme %q allocated twice", addr)}
			}
			pci.Add(addr)
		}

		if ifaces.Contains(a.iface) {
			return &InvariantError{Engine: i, Detail: fmt.Sprintf("interface %q allocated twice", a.iface)}
		}
		ifaces.Add(a.iface)
		if !advertises(inv, a.iface, a.provider) {
			return &InvariantError{
				Engine: i,
				Detail: fmt.Sprintf("provider %q not advertised by %q", a.provider, a.iface),
			}
		}
	}
	return nil
}

func advertises(inv *inventory.ResourceInventory, device, provider string) bool {
	for _, p := range inv.ProvidersOf(device) {
		if p == provider {
			return true
		}
	}
	return false
}

func emit(accessPoints []string, req Request, allocs []allocation) *Config {
	cfg := &Config{
		Name:         DefaultSystemName,
		Port:         DefaultControlPort,
		AccessPoints: accessPoints,
		Engines:      make([]EngineConfig, 0, len(allocs)),
	}
	for i, a := range allocs {
		ec := EngineConfig{
			PinnedNumaNode:  uint(a.socket),
			Targets:         targetCount(len(a.nvme)),
			FabricIface:     a.iface,
			FabricIfacePort: DefaultFabricIfacePort + i*fabricPortStride,
			Provider:        a.provider,
			LogFile:         fmt.Sprintf("%s%d.log", engineLogPrefix, i),
			ScmMount:        fmt.Sprintf("%s%d", ScmMountPrefix, i),
			ScmClass:        ScmClassDCPM,
			ScmList:         []string{ScmDevicePrefix + a.scm},
		}
		if req.MinSSDs > 0 {
			ec.BdevClass = BdevClassNVMe
			ec.BdevList = append([]string(nil), a.nvme...)
		}
		cfg.Engines = append(cfg.Engines, ec)
	}
	return cfg
}

// ScmDeviceName strips the device prefix from an scm_list entry.
func ScmDeviceName(path string) string {
	return path[strings.LastIndex(path, "/")+1:]
}
