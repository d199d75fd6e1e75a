package model

type ScanType string

const (
	ScanTypeStorage ScanType = "storage_scan"
	ScanTypeNetwork ScanType = "network_scan"
	ScanTypeHost    ScanType = "host_scan"
)

// ScanRequest is the request frame of the scan service.
type ScanRequest struct {
	Type     ScanType `json:"type"`
	Provider string   `json:"provider,omitempty"`
	Refresh  bool     `json:"refresh,omitempty"`
}

// ScanReply carries exactly one of Storage, Network or Host, matching Type.
type ScanReply struct {
	Type          ScanType       `json:"type"`
	NodeID        string         `json:"node_id"`
	TimestampUnix int64          `json:"timestamp_unix"`
	Storage       *StorageScan   `json:"storage,omitempty"`
	Network       *NetworkScan   `json:"network,omitempty"`
	Host          *HostInventory `json:"host,omitempty"`
}
