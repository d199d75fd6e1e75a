// Package agent runs the per-host scan daemon: periodic rescans, the gRPC
// scan service and a TCP probe endpoint.
package agent

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"daos-confgen/internal/collector"
	"daos-confgen/internal/config"
	"daos-confgen/internal/discovery"
	"daos-confgen/internal/libvirt"
	"daos-confgen/internal/model"
	"daos-confgen/internal/rpc"
	"daos-confgen/internal/scan"
)

type Agent struct {
	cfg       config.Config
	logger    *slog.Logger
	conn      *libvirt.ConnManager
	scheduler *collector.Scheduler
	server    *rpc.Server
	health    *HealthStatus
}

func New(cfg config.Config, logger *slog.Logger) (*Agent, error) {
	tlsCfg, err := cfg.TLSConfig()
	if err != nil {
		return nil, errors.Wrap(err, "tls config")
	}

	health := NewHealthStatus()
	reader := discovery.NewReader(cfg.SysfsRoot, cfg.Providers(), logger)

	var (
		conn *libvirt.ConnManager
		topo scan.TopologySource
	)
	if cfg.UseLibvirt {
		// Bounded so a missing daemon degrades to sysfs topology instead of
		// stalling every scan.
		conn = libvirt.NewConnManager(cfg.LibvirtURI, cfg.ReconnectInterval, cfg.MaxReconnectJitter, 2, logger)
		topo = libvirt.NewTopologyReader(conn)
	}

	scanner := scan.NewLocalScanner(cfg.Hostname, reader, topo, cfg.ScanTimeout, logger)
	host := collector.NewHostCollector(scanner, cfg.NodeID, cfg.Hostname)
	scheduler := collector.NewScheduler(logger, host, cfg.ScanInterval, cfg.ErrorBackoff,
		func(inv model.HostInventory, err error) {
			if err != nil {
				health.MarkScanFailed(err)
				return
			}
			health.MarkScan(time.Unix(inv.CollectedAtUnix, 0).UTC())
		})

	return &Agent{
		cfg:       cfg,
		logger:    logger,
		conn:      conn,
		scheduler: scheduler,
		server:    rpc.NewServer(scheduler, cfg.NodeID, cfg.Token, tlsCfg, logger),
		health:    health,
	}, nil
}

func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("starting confgen agent", "node_id", a.cfg.NodeID, "sysfs_root", a.cfg.SysfsRoot, "libvirt", a.cfg.UseLibvirt)
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- a.run(runCtx)
	}()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case runErr = <-runErrCh:
	case sig := <-sigCh:
		a.logger.Info("shutdown signal received, starting graceful shutdown", "signal", sig.String(), "timeout", a.cfg.ShutdownTimeout)
		cancelRun()

		graceTimer := time.NewTimer(a.cfg.ShutdownTimeout)
		defer graceTimer.Stop()

		select {
		case runErr = <-runErrCh:
		case sig2 := <-sigCh:
			a.logger.Warn("second signal received, forcing immediate shutdown", "signal", sig2.String())
			a.server.Stop()
			runErr = context.Canceled
		case <-graceTimer.C:
			a.logger.Warn("graceful shutdown timeout reached, forcing shutdown", "timeout", a.cfg.ShutdownTimeout)
			a.server.Stop()
			runErr = context.DeadlineExceeded
		}
	}

	a.shutdown()

	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return runErr
	}
	a.logger.Info("confgen agent stopped")
	return nil
}

// Health exposes the agent's health flags.
func (a *Agent) Health() *HealthStatus {
	return a.health
}

func (a *Agent) listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen %s", addr)
	}
	return ln, nil
}

// BuildLogger returns the agent's stderr logger.
func BuildLogger(cfg config.Config) *slog.Logger {
	return cfg.Logger(os.Stderr)
}
