// Package libvirt reads host NUMA topology over a libvirt RPC connection.
package libvirt

import (
	"context"
	"log/slog"
	"math/rand"
	"net/url"
	"sync"
	"time"

	golibvirt "github.com/digitalocean/go-libvirt"
	"github.com/pkg/errors"
)

// ConnManager owns a single libvirt RPC connection and its reconnect flow.
type ConnManager struct {
	mu          sync.RWMutex
	client      *golibvirt.Libvirt
	uri         string
	logger      *slog.Logger
	retryWait   time.Duration
	maxJitter   time.Duration
	maxAttempts int
	randSrc     *rand.Rand
}

// NewConnManager returns a manager for uri. maxAttempts bounds each connect
// call; zero retries until ctx is done.
func NewConnManager(uri string, retryWait, maxJitter time.Duration, maxAttempts int, logger *slog.Logger) *ConnManager {
	if retryWait <= 0 {
		retryWait = 3 * time.Second
	}
	if maxJitter < 0 {
		maxJitter = 0
	}
	if maxAttempts < 0 {
		maxAttempts = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ConnManager{
		uri:         uri,
		logger:      logger,
		retryWait:   retryWait,
		maxJitter:   maxJitter,
		maxAttempts: maxAttempts,
		randSrc:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *ConnManager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectLocked(ctx)
}

func (m *ConnManager) Client(ctx context.Context) (*golibvirt.Libvirt, error) {
	m.mu.RLock()
	c := m.client
	m.mu.RUnlock()
	if c != nil {
		return c, nil
	}
	if err := m.Connect(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.client == nil {
		return nil, errors.New("libvirt client is nil after connect")
	}
	return m.client, nil
}

// Reset drops the current connection so the next Client call redials. Used
// after an RPC fails mid-scan.
func (m *ConnManager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		if err := m.client.Disconnect(); err != nil {
			m.logger.Warn("libvirt disconnect failed", "error", err)
		}
		m.client = nil
	}
}

func (m *ConnManager) Healthy(ctx context.Context) error {
	c, err := m.Client(ctx)
	if err != nil {
		return err
	}
	if _, err := c.Version(); err != nil {
		return errors.Wrap(err, "libvirt version check failed")
	}
	return nil
}

func (m *ConnManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		return nil
	}
	err := m.client.Disconnect()
	m.client = nil
	return err
}

func (m *ConnManager) connectLocked(ctx context.Context) error {
	if m.client != nil {
		if _, err := m.client.Version(); err == nil {
			return nil
		}
		_ = m.client.Disconnect()
		m.client = nil
	}

	uri, err := ParseURI(m.uri)
	if err != nil {
		return err
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		c, dialErr := golibvirt.ConnectToURI(uri)
		if dialErr == nil {
			m.client = c
			m.logger.Info("libvirt connected", "uri", uri.Redacted())
			return nil
		}
		if m.maxAttempts > 0 && attempt >= m.maxAttempts {
			return errors.Wrapf(dialErr, "connect %s after %d attempts", uri.Redacted(), attempt)
		}

		wait := m.retryWait + m.jitter()
		m.logger.Error("libvirt connect failed", "uri", uri.Redacted(), "attempt", attempt, "error", dialErr, "retry_in", wait)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// ParseURI parses a libvirt connection URI, falling back to the local
// system hypervisor when raw is empty or has no scheme.
func ParseURI(raw string) (*url.URL, error) {
	if raw == "" {
		raw = string(golibvirt.QEMUSystem)
	}
	uri, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "parse libvirt uri %q", raw)
	}
	if uri.Scheme == "" {
		uri, err = url.Parse(string(golibvirt.QEMUSystem))
		if err != nil {
			return nil, errors.Wrap(err, "parse fallback uri")
		}
	}
	return uri, nil
}

func (m *ConnManager) jitter() time.Duration {
	if m.maxJitter == 0 {
		return 0
	}
	return time.Duration(m.randSrc.Int63n(int64(m.maxJitter)))
}
