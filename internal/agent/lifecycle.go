package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

func (a *Agent) run(ctx context.Context) error {
	scanLn, err := a.listen(a.cfg.ListenAddr)
	if err != nil {
		return errors.Wrap(err, "scan service")
	}
	probeLn, err := a.listen(a.cfg.ProbeListenAddr)
	if err != nil {
		_ = scanLn.Close()
		return errors.Wrap(err, "probe endpoint")
	}

	if a.conn != nil {
		if err := a.conn.Connect(ctx); err != nil {
			a.logger.Warn("initial libvirt connect failed, using sysfs topology", "error", err)
		} else {
			a.health.SetLibvirtConnected(true)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.scheduler.Run(gctx)
	})
	g.Go(func() error {
		return a.server.Serve(gctx, scanLn)
	})
	g.Go(func() error {
		return a.runHealthLoop(gctx)
	})
	g.Go(func() error {
		return a.serveProbe(gctx, probeLn)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (a *Agent) runHealthLoop(ctx context.Context) error {
	t := time.NewTicker(a.cfg.HealthInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			a.checkHealth(ctx)
		}
	}
}

func (a *Agent) checkHealth(ctx context.Context) {
	if a.conn == nil {
		a.logHealth("ok")
		return
	}
	if err := a.conn.Healthy(ctx); err != nil {
		a.logger.Warn("libvirt health check failed, reconnecting", "error", err)
		a.health.SetLibvirtConnected(false)
		a.conn.Reset()
		if recErr := a.conn.Connect(ctx); recErr != nil {
			a.logger.Error("libvirt reconnect failed", "error", recErr)
			return
		}
		a.health.SetLibvirtConnected(true)
		a.logHealth("recovered")
		return
	}
	a.health.SetLibvirtConnected(true)
	a.logHealth("ok")
}

func (a *Agent) logHealth(status string) {
	a.logger.Log(context.Background(), slog.LevelDebug, "agent health", "status", status, "snapshot", a.health.Snapshot())
}

func (a *Agent) shutdown() {
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Warn("libvirt close failed", "error", err)
		}
	}
	a.health.SetLibvirtConnected(false)
}
