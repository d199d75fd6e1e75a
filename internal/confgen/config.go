package confgen

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSystemName      = "daos_server"
	DefaultControlPort     = 10001
	DefaultFabricIfacePort = 31416
	fabricPortStride       = 1000
	DefaultTargets         = 16
	ScmDevicePrefix        = "/dev/"
	ScmMountPrefix         = "/mnt/daos"
	ScmClassDCPM           = "dcpm"
	BdevClassNVMe          = "nvme"
	engineLogPrefix        = "/tmp/daos_engine."
)

// EngineConfig is the generated configuration of one engine.
type EngineConfig struct {
	PinnedNumaNode  uint     `json:"pinned_numa_node" yaml:"pinned_numa_node"`
	Targets         int      `json:"targets" yaml:"targets"`
	FabricIface     string   `json:"fabric_iface" yaml:"fabric_iface"`
	FabricIfacePort int      `json:"fabric_iface_port" yaml:"fabric_iface_port"`
	Provider        string   `json:"provider" yaml:"provider"`
	LogFile         string   `json:"log_file" yaml:"log_file"`
	ScmMount        string   `json:"scm_mount" yaml:"scm_mount"`
	ScmClass        string   `json:"scm_class" yaml:"scm_class"`
	ScmList         []string `json:"scm_list" yaml:"scm_list"`
	BdevClass       string   `json:"bdev_class,omitempty" yaml:"bdev_class,omitempty"`
	BdevList        []string `json:"bdev_list,omitempty" yaml:"bdev_list,omitempty"`
}

// Config is the generated server configuration document.
type Config struct {
	Name         string         `json:"name" yaml:"name"`
	Port         int            `json:"port" yaml:"port"`
	AccessPoints []string       `json:"access_points" yaml:"access_points"`
	Engines      []EngineConfig `json:"engines" yaml:"engines"`
}

// YAML renders the document with two-space indentation.
func (c *Config) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, errors.Wrap(err, "encode config yaml")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "flush config yaml")
	}
	return buf.Bytes(), nil
}

// JSON renders the document as indented JSON.
func (c *Config) JSON() ([]byte, error) {
	out, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encode config json")
	}
	return append(out, '\n'), nil
}

// ParseConfig reads a generated document back. JSON input is accepted since
// it is valid YAML.
func ParseConfig(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	return &c, nil
}

func targetCount(nvme int) int {
	if nvme == 0 {
		return DefaultTargets
	}
	return ((DefaultTargets + nvme - 1) / nvme) * nvme
}
