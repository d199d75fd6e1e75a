package model

// Topology lists the NUMA nodes present on a host, whether or not any
// storage or fabric device is attached to them.
type Topology struct {
	Hostname  string `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	NumaNodes []uint `json:"numa_nodes" yaml:"numa_nodes"`
	Sockets   uint   `json:"sockets,omitempty" yaml:"sockets,omitempty"`
}

// HostInventory is the combined result of one host scan.
type HostInventory struct {
	Hostname        string      `json:"hostname" yaml:"hostname"`
	Storage         StorageScan `json:"storage" yaml:"storage"`
	Network         NetworkScan `json:"network" yaml:"network"`
	Topology        Topology    `json:"topology" yaml:"topology"`
	CollectedAtUnix int64       `json:"collected_at_unix,omitempty" yaml:"collected_at_unix,omitempty"`
}
