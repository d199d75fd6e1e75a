package rpc

import (
	"context"
	"crypto/subtle"
	"crypto/tls"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"daos-confgen/internal/model"
	"daos-confgen/internal/scan"
)

// Source yields the host inventory served to clients. refresh asks for a
// fresh scan instead of a cached one.
type Source interface {
	Inventory(ctx context.Context, refresh bool) (model.HostInventory, error)
}

// Server serves ScanService.
type Server struct {
	source Source
	nodeID string
	token  string
	logger *slog.Logger
	grpc   *grpc.Server
	now    func() time.Time
}

// NewServer builds a server over source. A nil tlsCfg serves plaintext; an
// empty token disables authentication.
func NewServer(source Source, nodeID, token string, tlsCfg *tls.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{source: source, nodeID: nodeID, token: token, logger: logger, now: time.Now}

	opts := []grpc.ServerOption{
		grpc.ForceServerCodec(jsonCodec{}),
		grpc.UnaryInterceptor(s.authorize),
	}
	if tlsCfg != nil {
		opts = append(opts, grpc.Creds(credentials.NewTLS(tlsCfg)))
	}
	s.grpc = grpc.NewServer(opts...)
	s.grpc.RegisterService(&scanServiceDesc, s)
	return s
}

// Serve accepts connections on lis until ctx is done, then drains in-flight
// calls.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.grpc.Serve(lis)
	}()
	s.logger.Info("scan service listening", "addr", lis.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.grpc.GracefulStop()
		<-errCh
		return nil
	}
}

// Stop aborts every open call.
func (s *Server) Stop() {
	s.grpc.Stop()
}

func (s *Server) scan(ctx context.Context, req *model.ScanRequest) (*model.ScanReply, error) {
	inv, err := s.source.Inventory(ctx, req.Refresh)
	if err != nil {
		s.logger.Warn("scan failed", "type", req.Type, "error", err)
		if ctx.Err() != nil {
			return nil, status.FromContextError(ctx.Err()).Err()
		}
		return nil, status.Errorf(codes.Unavailable, "scan: %v", err)
	}

	reply := &model.ScanReply{Type: req.Type, NodeID: s.nodeID, TimestampUnix: s.now().UTC().Unix()}
	switch req.Type {
	case model.ScanTypeStorage:
		st := inv.Storage
		if st.Hostname == "" {
			st.Hostname = inv.Hostname
		}
		reply.Storage = &st
	case model.ScanTypeNetwork:
		nw := inv.Network
		if nw.Hostname == "" {
			nw.Hostname = inv.Hostname
		}
		nw.Interfaces = scan.FilterProvider(nw.Interfaces, req.Provider)
		reply.Network = &nw
	case model.ScanTypeHost:
		inv.Network.Interfaces = scan.FilterProvider(inv.Network.Interfaces, req.Provider)
		reply.Host = &inv
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown scan type %q", req.Type)
	}
	return reply, nil
}

func (s *Server) authorize(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if s.token == "" {
		return handler(ctx, req)
	}
	md, _ := metadata.FromIncomingContext(ctx)
	for _, v := range md.Get("authorization") {
		got := strings.TrimPrefix(v, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) == 1 {
			return handler(ctx, req)
		}
	}
	s.logger.Warn("rejected unauthenticated call", "method", info.FullMethod)
	return nil, status.Error(codes.Unauthenticated, "missing or invalid bearer token")
}

type scanServer interface {
	scan(ctx context.Context, req *model.ScanRequest) (*model.ScanReply, error)
}

func scanHandler(typ model.ScanType, fullMethod string) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := new(model.ScanRequest)
		if err := dec(req); err != nil {
			return nil, err
		}
		req.Type = typ
		if interceptor == nil {
			return srv.(scanServer).scan(ctx, req)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return srv.(scanServer).scan(ctx, req.(*model.ScanRequest))
		}
		return interceptor(ctx, req, info, handler)
	}
}

var scanServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*scanServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ScanStorage", Handler: scanHandler(model.ScanTypeStorage, MethodScanStorage)},
		{MethodName: "ScanNetwork", Handler: scanHandler(model.ScanTypeNetwork, MethodScanNetwork)},
		{MethodName: "ScanHost", Handler: scanHandler(model.ScanTypeHost, MethodScanHost)},
	},
	Streams: []grpc.StreamDesc{},
}
