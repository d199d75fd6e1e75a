package scan

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"daos-confgen/internal/model"
)

// FileScanner serves a previously captured inventory document. YAML and
// JSON are both accepted.
type FileScanner struct {
	path string
}

func NewFileScanner(path string) *FileScanner {
	return &FileScanner{path: path}
}

// Load reads and decodes the inventory file.
func (s *FileScanner) Load() (model.HostInventory, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return model.HostInventory{}, errors.Wrap(err, "read inventory file")
	}
	return ParseInventory(raw)
}

// ParseInventory decodes a YAML or JSON host inventory. Unknown fields are
// rejected.
func ParseInventory(raw []byte) (model.HostInventory, error) {
	var inv model.HostInventory
	if strings.TrimSpace(string(raw)) == "" {
		return inv, errors.New("empty inventory document")
	}
	dec := yaml.NewDecoder(strings.NewReader(string(raw)))
	dec.KnownFields(true)
	if err := dec.Decode(&inv); err != nil {
		return model.HostInventory{}, errors.Wrap(err, "decode inventory")
	}
	for i := range inv.Network.Interfaces {
		if inv.Network.Interfaces[i].NumaNode < model.UnknownNumaNode {
			inv.Network.Interfaces[i].NumaNode = model.UnknownNumaNode
		}
	}
	return inv, nil
}

func (s *FileScanner) ScanStorage(ctx context.Context) (model.StorageScan, error) {
	inv, err := s.load(ctx)
	if err != nil {
		return model.StorageScan{}, err
	}
	inv.Storage.Hostname = firstNonEmpty(inv.Storage.Hostname, inv.Hostname)
	return inv.Storage, nil
}

func (s *FileScanner) ScanNetwork(ctx context.Context, provider string) (model.NetworkScan, error) {
	inv, err := s.load(ctx)
	if err != nil {
		return model.NetworkScan{}, err
	}
	inv.Network.Hostname = firstNonEmpty(inv.Network.Hostname, inv.Hostname)
	inv.Network.Interfaces = FilterProvider(inv.Network.Interfaces, provider)
	return inv.Network, nil
}

func (s *FileScanner) ScanTopology(ctx context.Context) (model.Topology, error) {
	inv, err := s.load(ctx)
	if err != nil {
		return model.Topology{}, err
	}
	inv.Topology.Hostname = firstNonEmpty(inv.Topology.Hostname, inv.Hostname)
	return inv.Topology, nil
}

func (s *FileScanner) load(ctx context.Context) (model.HostInventory, error) {
	if err := ctx.Err(); err != nil {
		return model.HostInventory{}, err
	}
	return s.Load()
}
