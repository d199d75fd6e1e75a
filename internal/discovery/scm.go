package discovery

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"daos-confgen/internal/model"
)

// ScanScm lists persistent-memory block devices (pmemN), sorted by name.
func (r *Reader) ScanScm() ([]model.ScmNamespace, error) {
	base := r.path("sys", "class", "block")
	entries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return []model.ScmNamespace{}, nil
		}
		return nil, errors.Wrapf(err, "read %s", base)
	}

	out := make([]model.ScmNamespace, 0, 2)
	for _, entry := range entries {
		name := strings.TrimSpace(entry.Name())
		if !strings.HasPrefix(name, "pmem") || !isWholeBlockDevice(r.root, name) {
			continue
		}
		devPath := filepath.Join(base, name)
		out = append(out, model.ScmNamespace{
			BlockDev:  name,
			NumaNode:  storageNuma(readNumaNode(filepath.Join(devPath, "device", "numa_node"))),
			UUID:      readTextFile(filepath.Join(devPath, "device", "uuid")),
			SizeBytes: parseUintFlexible(readTextFile(filepath.Join(devPath, "size"))) * 512,
		})
	}
	// pmem2 sorts before pmem10.
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].BlockDev, out[j].BlockDev
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})
	return out, nil
}
