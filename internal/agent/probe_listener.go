package agent

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"

	"daos-confgen/internal/agent/version"
)

// serveProbe answers every connection with one status line and closes it.
func (a *Agent) serveProbe(ctx context.Context, ln net.Listener) error {
	defer func() { _ = ln.Close() }()
	addr := ln.Addr().String()
	a.logger.Info("probe endpoint listening", "addr", addr)

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, acceptErr := ln.Accept()
		if acceptErr != nil {
			if ctx.Err() != nil || errors.Is(acceptErr, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(acceptErr, &ne) && ne.Timeout() {
				time.Sleep(100 * time.Millisecond)
				continue
			}
			return errors.Wrapf(acceptErr, "accept probe endpoint %s", addr)
		}

		status := "confgen-agent:ok "
		if !a.health.Ready() {
			status = "confgen-agent:degraded "
		}
		_ = conn.SetDeadline(time.Now().Add(2 * time.Second))
		_, _ = conn.Write(append([]byte(status), version.Get(a.cfg, time.Now()).Line()...))
		_ = conn.Close()
	}
}
