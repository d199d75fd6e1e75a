package rpc

import (
	"context"
	"crypto/tls"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"daos-confgen/internal/model"
)

// RemoteScanner scans a host through the agent running on it.
type RemoteScanner struct {
	mu sync.Mutex

	logger      *slog.Logger
	addr        string
	tlsConfig   *tls.Config
	token       string
	refresh     bool
	callTimeout time.Duration
	dialOpts    []grpc.DialOption
	conn        *grpc.ClientConn
}

// NewRemoteScanner returns a client for the agent at addr. The connection is
// opened on first use.
func NewRemoteScanner(addr string, tlsCfg *tls.Config, token string, logger *slog.Logger, opts ...grpc.DialOption) *RemoteScanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &RemoteScanner{
		logger:      logger,
		addr:        addr,
		tlsConfig:   tlsCfg,
		token:       token,
		callTimeout: 30 * time.Second,
		dialOpts:    opts,
	}
}

// SetRefresh makes every call ask the agent to rescan instead of returning
// its cached inventory.
func (c *RemoteScanner) SetRefresh(refresh bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refresh = refresh
}

func (c *RemoteScanner) ScanStorage(ctx context.Context) (model.StorageScan, error) {
	reply, err := c.call(ctx, MethodScanStorage, "")
	if err != nil {
		return model.StorageScan{}, err
	}
	if reply.Storage == nil {
		return model.StorageScan{}, errors.Errorf("%s: reply without storage payload", c.addr)
	}
	return *reply.Storage, nil
}

func (c *RemoteScanner) ScanNetwork(ctx context.Context, provider string) (model.NetworkScan, error) {
	reply, err := c.call(ctx, MethodScanNetwork, provider)
	if err != nil {
		return model.NetworkScan{}, err
	}
	if reply.Network == nil {
		return model.NetworkScan{}, errors.Errorf("%s: reply without network payload", c.addr)
	}
	return *reply.Network, nil
}

func (c *RemoteScanner) ScanTopology(ctx context.Context) (model.Topology, error) {
	inv, err := c.ScanHost(ctx, "")
	if err != nil {
		return model.Topology{}, err
	}
	return inv.Topology, nil
}

// ScanHost fetches the whole inventory in one call.
func (c *RemoteScanner) ScanHost(ctx context.Context, provider string) (model.HostInventory, error) {
	reply, err := c.call(ctx, MethodScanHost, provider)
	if err != nil {
		return model.HostInventory{}, err
	}
	if reply.Host == nil {
		return model.HostInventory{}, errors.Errorf("%s: reply without host payload", c.addr)
	}
	return *reply.Host, nil
}

func (c *RemoteScanner) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *RemoteScanner) call(ctx context.Context, method, provider string) (*model.ScanReply, error) {
	c.mu.Lock()
	conn, err := c.ensureConnLocked()
	refresh := c.refresh
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	callCtx, cancel := c.decorateContext(ctx)
	defer cancel()

	req := &model.ScanRequest{Provider: provider, Refresh: refresh}
	reply := new(model.ScanReply)
	if err := conn.Invoke(callCtx, method, req, reply); err != nil {
		return nil, errors.Wrapf(err, "%s %s", c.addr, method)
	}
	return reply, nil
}

func (c *RemoteScanner) ensureConnLocked() (*grpc.ClientConn, error) {
	if c.conn != nil {
		return c.conn, nil
	}

	var creds credentials.TransportCredentials
	if c.tlsConfig != nil {
		creds = credentials.NewTLS(c.tlsConfig)
	} else {
		creds = insecure.NewCredentials()
	}

	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{}), grpc.CallContentSubtype(codecName)),
	}, c.dialOpts...)
	conn, err := grpc.NewClient(c.addr, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "grpc client %s", c.addr)
	}
	c.conn = conn
	c.logger.Debug("scan client created", "addr", c.addr)
	return conn, nil
}

func (c *RemoteScanner) decorateContext(ctx context.Context) (context.Context, context.CancelFunc) {
	out, cancel := ctx, context.CancelFunc(func() {})
	if _, ok := ctx.Deadline(); !ok && c.callTimeout > 0 {
		out, cancel = context.WithTimeout(ctx, c.callTimeout)
	}
	if c.token != "" {
		out = metadata.AppendToOutgoingContext(out, "authorization", "Bearer "+c.token)
	}
	return out, cancel
}
