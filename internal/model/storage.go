package model

// NvmeDevice is one PCI-attached NVMe controller as reported by a storage scan.
type NvmeDevice struct {
	PCIAddr   string `json:"pci_addr" yaml:"pci_addr"`
	SocketID  uint   `json:"socket_id" yaml:"socket_id"`
	Model     string `json:"model,omitempty" yaml:"model,omitempty"`
	Serial    string `json:"serial,omitempty" yaml:"serial,omitempty"`
	SizeBytes uint64 `json:"size_bytes,omitempty" yaml:"size_bytes,omitempty"`
}

// ScmNamespace is one persistent-memory namespace exposed as a block device.
type ScmNamespace struct {
	BlockDev  string `json:"blockdev" yaml:"blockdev"`
	NumaNode  uint   `json:"numa_node" yaml:"numa_node"`
	UUID      string `json:"uuid,omitempty" yaml:"uuid,omitempty"`
	SizeBytes uint64 `json:"size_bytes,omitempty" yaml:"size_bytes,omitempty"`
}

type StorageScan struct {
	Hostname      string         `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	NvmeDevices   []NvmeDevice   `json:"nvme_devices" yaml:"nvme_devices"`
	ScmNamespaces []ScmNamespace `json:"scm_namespaces" yaml:"scm_namespaces"`
}
