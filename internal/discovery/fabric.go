package discovery

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"daos-confgen/internal/model"
)

// ARPHRD_* values from the net/if_arp.h header.
const (
	arphrdEther      = "1"
	arphrdInfiniband = "32"
)

// ScanFabric lists (interface, provider) pairs. provider restricts the result
// to one provider; empty or "all" returns every configured provider.
func (r *Reader) ScanFabric(provider string) ([]model.FabricInterface, error) {
	base := r.path("sys", "class", "net")
	entries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return []model.FabricInterface{}, nil
		}
		return nil, errors.Wrapf(err, "read %s", base)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := strings.TrimSpace(entry.Name())
		if shouldSkipNetworkInterface(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]model.FabricInterface, 0, len(names))
	for _, name := range names {
		devPath := filepath.Join(base, name)
		class := classFromType(readTextFile(filepath.Join(devPath, "type")))
		if class == "" {
			continue
		}
		numa := readNumaNode(filepath.Join(devPath, "device", "numa_node"))
		for _, p := range r.providers[class] {
			if provider != "" && provider != model.ProviderAll && p != provider {
				continue
			}
			out = append(out, model.FabricInterface{Device: name, Provider: p, NumaNode: numa, Class: class})
		}
	}
	return out, nil
}

func classFromType(t string) string {
	switch t {
	case arphrdInfiniband:
		return model.NetClassInfiniband
	case arphrdEther:
		return model.NetClassEthernet
	default:
		return ""
	}
}

func shouldSkipNetworkInterface(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || name == "lo" {
		return true
	}
	for _, prefix := range []string{"docker", "veth", "virbr", "br-"} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
