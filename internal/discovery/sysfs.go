// Package discovery reads NVMe, SCM and fabric devices from sysfs.
//
// Every path is resolved below a configurable root so the readers can be
// pointed at a fixture tree.
package discovery

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"daos-confgen/internal/model"
)

// Reader scans one host's sysfs tree.
type Reader struct {
	root      string
	providers map[string][]string
	logger    *slog.Logger
}

// NewReader returns a reader rooted at root ("/" on a live host). providers
// maps a fabric class tag to the providers offered on interfaces of that
// class.
func NewReader(root string, providers map[string][]string, logger *slog.Logger) *Reader {
	if strings.TrimSpace(root) == "" {
		root = "/"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{root: root, providers: providers, logger: logger}
}

func (r *Reader) path(elem ...string) string {
	return filepath.Join(append([]string{r.root}, elem...)...)
}

func readTextFile(path string) string {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

func parseUintFlexible(raw string) uint64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	raw = strings.Fields(raw)[0]
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return value
}

// readNumaNode returns the numa_node attribute, or UnknownNumaNode when the
// file is missing or reports no affinity.
func readNumaNode(path string) int {
	raw := readTextFile(path)
	if raw == "" {
		return model.UnknownNumaNode
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return model.UnknownNumaNode
	}
	return n
}

// storageNuma folds an unknown affinity onto node 0, which is what a
// single-node host reports for every device.
func storageNuma(n int) uint {
	if n < 0 {
		return 0
	}
	return uint(n)
}

func isWholeBlockDevice(root, name string) bool {
	if name == "" {
		return false
	}
	if _, err := os.Stat(filepath.Join(root, "sys", "class", "block", name, "partition")); err == nil {
		return false
	}
	return true
}
