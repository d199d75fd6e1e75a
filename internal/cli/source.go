package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/juju/gnuflag"
	"github.com/pkg/errors"

	"daos-confgen/internal/config"
	"daos-confgen/internal/discovery"
	"daos-confgen/internal/libvirt"
	"daos-confgen/internal/model"
	"daos-confgen/internal/rpc"
	"daos-confgen/internal/scan"
)

// sourceFlags selects where the inventory comes from: a file, a remote
// agent or the local host.
type sourceFlags struct {
	inventory string
	host      string
	refresh   bool
}

func (s *sourceFlags) register(fs *gnuflag.FlagSet) {
	fs.StringVar(&s.inventory, "inventory", "", "read the host inventory from a YAML or JSON file")
	fs.StringVar(&s.host, "host", "", "scan through the agent listening at HOST:PORT")
	fs.BoolVar(&s.refresh, "refresh", false, "ask the agent for a fresh scan instead of its cached one")
}

func (s *sourceFlags) validate() error {
	if s.inventory != "" && s.host != "" {
		return &ExitError{Code: ExitUsage, Message: "--inventory and --host are mutually exclusive"}
	}
	return nil
}

// collect returns the host inventory from the selected source. provider
// filters the fabric scan.
func (s *sourceFlags) collect(ctx context.Context, logger *slog.Logger, provider string) (model.HostInventory, error) {
	if s.inventory != "" {
		return scan.Host(ctx, scan.NewFileScanner(s.inventory), provider)
	}

	cfg, err := config.Load()
	if err != nil {
		return model.HostInventory{}, errors.Wrap(err, "load config")
	}

	if s.host != "" {
		tlsCfg, err := cfg.TLSConfig()
		if err != nil {
			return model.HostInventory{}, errors.Wrap(err, "tls config")
		}
		remote := rpc.NewRemoteScanner(s.host, tlsCfg, cfg.Token, logger)
		defer func() { _ = remote.Close() }()
		remote.SetRefresh(s.refresh)
		return remote.ScanHost(ctx, provider)
	}

	var topo scan.TopologySource
	if cfg.UseLibvirt {
		conn := libvirt.NewConnManager(cfg.LibvirtURI, cfg.ReconnectInterval, cfg.MaxReconnectJitter, 1, logger)
		defer func() { _ = conn.Close() }()
		topo = libvirt.NewTopologyReader(conn)
	}
	hostname, _ := os.Hostname()
	reader := discovery.NewReader(cfg.SysfsRoot, cfg.Providers(), logger)
	return scan.Host(ctx, scan.NewLocalScanner(hostname, reader, topo, cfg.ScanTimeout, logger), provider)
}
