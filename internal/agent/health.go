package agent

import (
	"sync"
	"sync/atomic"
	"time"
)

type HealthStatus struct {
	libvirtConnected atomic.Bool
	lastScanAt       atomic.Int64
	scanFailures     atomic.Int64

	mu          sync.Mutex
	lastScanErr string
}

func NewHealthStatus() *HealthStatus {
	return &HealthStatus{}
}

func (h *HealthStatus) SetLibvirtConnected(ok bool) {
	h.libvirtConnected.Store(ok)
}

// MarkScan records a successful scan and clears the last error.
func (h *HealthStatus) MarkScan(ts time.Time) {
	h.lastScanAt.Store(ts.UnixNano())
	h.mu.Lock()
	h.lastScanErr = ""
	h.mu.Unlock()
}

func (h *HealthStatus) MarkScanFailed(err error) {
	h.scanFailures.Add(1)
	h.mu.Lock()
	h.lastScanErr = err.Error()
	h.mu.Unlock()
}

// Ready reports whether at least one scan succeeded and the latest did not
// fail.
func (h *HealthStatus) Ready() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastScanAt.Load() > 0 && h.lastScanErr == ""
}

func (h *HealthStatus) Snapshot() map[string]any {
	out := map[string]any{
		"libvirt_connected": h.libvirtConnected.Load(),
		"scan_failures":     h.scanFailures.Load(),
	}
	if v := h.lastScanAt.Load(); v > 0 {
		out["last_scan_at"] = time.Unix(0, v).UTC()
	}
	h.mu.Lock()
	if h.lastScanErr != "" {
		out["last_scan_error"] = h.lastScanErr
	}
	h.mu.Unlock()
	return out
}
