package discovery

import (
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ScanNumaNodes lists the node ids under sys/devices/system/node. A host
// without that directory is treated as a single node 0.
func (r *Reader) ScanNumaNodes() ([]uint, error) {
	base := r.path("sys", "devices", "system", "node")
	entries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return []uint{0}, nil
		}
		return nil, errors.Wrapf(err, "read %s", base)
	}

	out := make([]uint, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "node") {
			continue
		}
		id, err := strconv.ParseUint(strings.TrimPrefix(name, "node"), 10, 32)
		if err != nil {
			continue
		}
		out = append(out, uint(id))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	if len(out) == 0 {
		out = append(out, 0)
	}
	return out, nil
}
