// Package inventory groups raw scan records by NUMA affinity and fabric
// class. Iteration order is always ascending NUMA id, and device order within
// a NUMA id is discovery order, so identical scans build identical
// inventories.
package inventory

import (
	"sort"
	"strings"

	"github.com/juju/collections/set"
	"github.com/pkg/errors"

	"daos-confgen/internal/model"
)

// ErrDuplicateDevice is returned by Build when a device identifier appears
// more than once in a scan.
var ErrDuplicateDevice = errors.New("duplicate device in scan")

// NumaID identifies a socket or NUMA node.
type NumaID uint

// Interface is one (device, provider) pair grouped under a class tag.
type Interface struct {
	Device   string
	Provider string
	NumaNode int
}

// ResourceInventory is the normalized, read-only view of one host scan.
type ResourceInventory struct {
	sockets    []NumaID
	nvme       map[NumaID][]string
	scm        map[NumaID][]string
	ifaces     map[string][]Interface
	classOrder []string

	pciAddrs   set.Strings
	scmDevices set.Strings
	ifaceNames set.Strings
}

// Build normalizes a host scan. Records with an empty identifier are
// ignored; a repeated identifier is rejected.
func Build(inv model.HostInventory) (*ResourceInventory, error) {
	r := &ResourceInventory{
		nvme:       make(map[NumaID][]string),
		scm:        make(map[NumaID][]string),
		ifaces:     make(map[string][]Interface),
		pciAddrs:   set.NewStrings(),
		scmDevices: set.NewStrings(),
		ifaceNames: set.NewStrings(),
	}
	present := make(map[NumaID]struct{})

	for _, dev := range inv.Storage.NvmeDevices {
		addr := strings.TrimSpace(dev.PCIAddr)
		if addr == "" {
			continue
		}
		if r.pciAddrs.Contains(addr) {
			return nil, errors.Wrapf(ErrDuplicateDevice, "nvme %s", addr)
		}
		r.pciAddrs.Add(addr)
		id := NumaID(dev.SocketID)
		r.nvme[id] = append(r.nvme[id], addr)
		present[id] = struct{}{}
	}

	for _, ns := range inv.Storage.ScmNamespaces {
		name := strings.TrimPrefix(strings.TrimSpace(ns.BlockDev), "/dev/")
		if name == "" {
			continue
		}
		if r.scmDevices.Contains(name) {
			return nil, errors.Wrapf(ErrDuplicateDevice, "scm %s", name)
		}
		r.scmDevices.Add(name)
		id := NumaID(ns.NumaNode)
		r.scm[id] = append(r.scm[id], name)
		present[id] = struct{}{}
	}

	// a device may carry several providers but only one class and affinity
	ifaceClass := make(map[string]string)
	seenPair := make(map[string]struct{})
	for _, fi := range inv.Network.Interfaces {
		dev := strings.TrimSpace(fi.Device)
		provider := strings.TrimSpace(fi.Provider)
		if dev == "" || provider == "" {
			continue
		}
		key := dev + "\x00" + provider
		if _, ok := seenPair[key]; ok {
			return nil, errors.Wrapf(ErrDuplicateDevice, "interface %s provider %s", dev, provider)
		}
		seenPair[key] = struct{}{}

		class := ClassOf(fi)
		if prev, ok := ifaceClass[dev]; ok && prev != class {
			return nil, errors.Errorf("interface %s reported with classes %q and %q", dev, prev, class)
		}
		if _, ok := ifaceClass[dev]; !ok {
			ifaceClass[dev] = class
			if len(r.ifaces[class]) == 0 {
				r.classOrder = append(r.classOrder, class)
			}
		}
		r.ifaceNames.Add(dev)
		r.ifaces[class] = append(r.ifaces[class], Interface{Device: dev, Provider: provider, NumaNode: fi.NumaNode})
	}
	sort.Strings(r.classOrder)

	for _, n := range inv.Topology.NumaNodes {
		present[NumaID(n)] = struct{}{}
	}
	r.sockets = make([]NumaID, 0, len(present))
	for id := range present {
		r.sockets = append(r.sockets, id)
	}
	sort.Slice(r.sockets, func(i, j int) bool { return r.sockets[i] < r.sockets[j] })

	return r, nil
}

// ClassOf returns the class tag of an interface record, inferring it from the
// device name when the scan did not report one.
func ClassOf(fi model.FabricInterface) string {
	switch c := strings.ToLower(strings.TrimSpace(fi.Class)); c {
	case "":
	case model.NetClassInfiniband, model.NetClassEthernet:
		return c
	default:
		return model.NetClassOther
	}
	dev := strings.TrimSpace(fi.Device)
	switch {
	case strings.HasPrefix(dev, "ib"):
		return model.NetClassInfiniband
	case strings.HasPrefix(dev, "eth"), strings.HasPrefix(dev, "en"):
		return model.NetClassEthernet
	default:
		return model.NetClassOther
	}
}

// Sockets returns every NUMA id present in the scan in ascending order,
// including ids with no devices attached.
func (r *ResourceInventory) Sockets() []NumaID {
	return append([]NumaID(nil), r.sockets...)
}

// NvmeDevices returns the PCI addresses attached to a socket, in discovery order.
func (r *ResourceInventory) NvmeDevices(id NumaID) []string {
	return append([]string(nil), r.nvme[id]...)
}

// ScmNamespaces returns the block devices on a NUMA node, in discovery order.
func (r *ResourceInventory) ScmNamespaces(id NumaID) []string {
	return append([]string(nil), r.scm[id]...)
}

// Classes returns the interface class tags present, sorted.
func (r *ResourceInventory) Classes() []string {
	return append([]string(nil), r.classOrder...)
}

// Interfaces returns the (device, provider) pairs of one class, or of every
// class when class is empty. Pairs keep discovery order within a class.
func (r *ResourceInventory) Interfaces(class string) []Interface {
	if class != model.NetClassAny {
		return append([]Interface(nil), r.ifaces[class]...)
	}
	var out []Interface
	for _, c := range r.classOrder {
		out = append(out, r.ifaces[c]...)
	}
	return out
}

// ProvidersOf returns every provider advertised for a device.
func (r *ResourceInventory) ProvidersOf(device string) []string {
	var out []string
	for _, c := range r.classOrder {
		for _, fi := range r.ifaces[c] {
			if fi.Device == device {
				out = append(out, fi.Provider)
			}
		}
	}
	return out
}

func (r *ResourceInventory) HasPCIAddr(addr string) bool {
	return r.pciAddrs.Contains(addr)
}

func (r *ResourceInventory) HasScmDevice(name string) bool {
	return r.scmDevices.Contains(name)
}

func (r *ResourceInventory) HasInterface(name string) bool {
	return r.ifaceNames.Contains(name)
}

// PCIAddrs returns the global NVMe address set, sorted.
func (r *ResourceInventory) PCIAddrs() []string {
	return r.pciAddrs.SortedValues()
}

// ScmDevices returns the global SCM block device set, sorted.
func (r *ResourceInventory) ScmDevices() []string {
	return r.scmDevices.SortedValues()
}

// InterfaceNames returns the global interface device set, sorted.
func (r *ResourceInventory) InterfaceNames() []string {
	return r.ifaceNames.SortedValues()
}
