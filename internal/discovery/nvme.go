package discovery

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"daos-confgen/internal/model"
)

// pciClassNVMe is the PCI class code of an NVM Express controller.
const pciClassNVMe = "0x010802"

// ScanNvme lists NVMe controllers from the PCI bus, sorted by address.
func (r *Reader) ScanNvme() ([]model.NvmeDevice, error) {
	base := r.path("sys", "bus", "pci", "devices")
	entries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			r.logger.Debug("no pci bus in sysfs", "path", base)
			return []model.NvmeDevice{}, nil
		}
		return nil, errors.Wrapf(err, "read %s", base)
	}

	out := make([]model.NvmeDevice, 0, len(entries))
	for _, entry := range entries {
		addr := strings.TrimSpace(entry.Name())
		devPath := filepath.Join(base, addr)
		if readTextFile(filepath.Join(devPath, "class")) != pciClassNVMe {
			continue
		}
		dev := model.NvmeDevice{
			PCIAddr:  addr,
			SocketID: storageNuma(readNumaNode(filepath.Join(devPath, "numa_node"))),
		}
		if ctrl := firstController(devPath); ctrl != "" {
			dev.Model = readTextFile(filepath.Join(ctrl, "model"))
			dev.Serial = readTextFile(filepath.Join(ctrl, "serial"))
		}
		out = append(out, dev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PCIAddr < out[j].PCIAddr })
	return out, nil
}

// firstController returns the nvme/nvmeN directory of a bound controller.
// Controllers handed to a userspace driver have none.
func firstController(devPath string) string {
	entries, err := os.ReadDir(filepath.Join(devPath, "nvme"))
	if err != nil || len(entries) == 0 {
		return ""
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return filepath.Join(devPath, "nvme", names[0])
}
