package model

// UnknownNumaNode is reported by sysfs when a device has no NUMA affinity.
const UnknownNumaNode = -1

const (
	NetClassAny        = ""
	NetClassInfiniband = "infiniband"
	NetClassEthernet   = "ethernet"
	NetClassOther      = "other"
)

// ProviderAll asks a network scan to report every supported provider.
const ProviderAll = "all"

// FabricInterface is one (device, provider) pair. A device supporting several
// providers appears once per provider.
type FabricInterface struct {
	Device   string `json:"device" yaml:"device"`
	Provider string `json:"provider" yaml:"provider"`
	NumaNode int    `json:"numa_node" yaml:"numa_node"`
	Class    string `json:"class,omitempty" yaml:"class,omitempty"`
}

type NetworkScan struct {
	Hostname   string            `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	Interfaces []FabricInterface `json:"interfaces" yaml:"interfaces"`
}
