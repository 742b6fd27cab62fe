// Package server wraps the gRPC server with lifecycle management: listener
// setup, TLS, keepalive, health and reflection services, and graceful stop.
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"

	"github.com/vyrodovalexey/grpcguard/internal/config"
	"github.com/vyrodovalexey/grpcguard/internal/grpcutil"
	"github.com/vyrodovalexey/grpcguard/internal/observability"
)

// State represents the server state.
type State int32

const (
	// StateStopped indicates the server is stopped.
	StateStopped State = iota
	// StateStarting indicates the server is starting.
	StateStarting
	// StateRunning indicates the server is running.
	StateRunning
	// StateStopping indicates the server is stopping.
	StateStopping
)

// Default server configuration constants.
const (
	// DefaultMaxConcurrentStreams is the default maximum number of
	// concurrent streams per connection.
	DefaultMaxConcurrentStreams = 100

	// DefaultMaxMsgSize is the default maximum message size in bytes (4MB).
	DefaultMaxMsgSize = 4 * 1024 * 1024

	// DefaultConnectionTimeout is the default connection timeout.
	DefaultConnectionTimeout = 120 * time.Second

	// DefaultGracefulStopTimeout is the default timeout for graceful
	// server shutdown.
	DefaultGracefulStopTimeout = 30 * time.Second
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Server represents the guarded gRPC server.
type Server struct {
	// Configuration
	address              string
	maxConcurrentStreams uint32
	maxRecvMsgSize       int
	maxSendMsgSize       int
	keepaliveParams      *keepalive.ServerParameters
	keepaliveEnforcement *keepalive.EnforcementPolicy
	connectionTimeout    time.Duration
	gracefulStopTimeout  time.Duration

	// TLS
	tlsCertFile string
	tlsKeyFile  string

	// Interceptors
	unaryInterceptors  []grpc.UnaryServerInterceptor
	streamInterceptors []grpc.StreamServerInterceptor

	// Services
	reflectionEnabled    bool
	healthServiceEnabled bool
	healthServer         *health.Server

	// Runtime
	grpcServer *grpc.Server
	listener   net.Listener
	logger     observability.Logger
	state      atomic.Int32
	startTime  time.Time
}

// New creates a new server from configuration and options. Options override
// configuration values.
func New(cfg *config.ServerConfig, opts ...Option) (*Server, error) {
	s := &Server{
		logger:               observability.NopLogger(),
		maxConcurrentStreams: DefaultMaxConcurrentStreams,
		maxRecvMsgSize:       DefaultMaxMsgSize,
		maxSendMsgSize:       DefaultMaxMsgSize,
		connectionTimeout:    DefaultConnectionTimeout,
		gracefulStopTimeout:  DefaultGracefulStopTimeout,
		healthServiceEnabled: true,
	}

	if cfg != nil {
		s.address = cfg.Address
		if cfg.MaxConcurrentStreams > 0 {
			s.maxConcurrentStreams = cfg.MaxConcurrentStreams
		}
		if cfg.MaxRecvMsgSize > 0 {
			s.maxRecvMsgSize = cfg.MaxRecvMsgSize
		}
		if cfg.MaxSendMsgSize > 0 {
			s.maxSendMsgSize = cfg.MaxSendMsgSize
		}
		if cfg.GracefulTimeout.Duration() > 0 {
			s.gracefulStopTimeout = cfg.GracefulTimeout.Duration()
		}
		s.reflectionEnabled = cfg.Reflection
		s.healthServiceEnabled = cfg.HealthCheck

		if cfg.Keepalive != nil {
			s.keepaliveParams = &keepalive.ServerParameters{
				Time:                  cfg.Keepalive.Time.Duration(),
				Timeout:               cfg.Keepalive.Timeout.Duration(),
				MaxConnectionIdle:     cfg.Keepalive.MaxConnectionIdle.Duration(),
				MaxConnectionAge:      cfg.Keepalive.MaxConnectionAge.Duration(),
				MaxConnectionAgeGrace: cfg.Keepalive.MaxConnectionAgeGrace.Duration(),
			}
			s.keepaliveEnforcement = &keepalive.EnforcementPolicy{
				PermitWithoutStream: cfg.Keepalive.PermitWithoutStream,
			}
		}

		if cfg.TLS != nil && cfg.TLS.Enabled {
			s.tlsCertFile = cfg.TLS.CertFile
			s.tlsKeyFile = cfg.TLS.KeyFile
		}
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.address == "" {
		return nil, fmt.Errorf("server address is required")
	}

	serverOpts, err := s.buildServerOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to build server options: %w", err)
	}
	s.grpcServer = grpc.NewServer(serverOpts...)

	if s.healthServiceEnabled {
		s.healthServer = health.NewServer()
		healthpb.RegisterHealthServer(s.grpcServer, s.healthServer)
	}

	if s.reflectionEnabled {
		reflection.Register(s.grpcServer)
	}

	s.state.Store(int32(StateStopped))

	return s, nil
}

// Start starts the gRPC server.
func (s *Server) Start(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateStopped), int32(StateStarting)) {
		return fmt.Errorf("server is not in stopped state, current state: %s", State(s.state.Load()))
	}

	s.logger.Info("starting gRPC server",
		observability.String("address", s.address),
	)

	if s.healthServer != nil {
		s.healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	}

	ln, err := grpcutil.Listen(s.address)
	if err != nil {
		s.state.Store(int32(StateStopped))
		return fmt.Errorf("failed to listen on %s: %w", s.address, err)
	}
	s.listener = ln

	s.startTime = time.Now()
	s.state.Store(int32(StateRunning))

	s.logger.Info("gRPC server started",
		observability.String("address", s.address),
		observability.Bool("reflection", s.reflectionEnabled),
		observability.Bool("health", s.healthServiceEnabled),
	)

	go s.serve()

	return nil
}

// serve runs the gRPC accept loop.
func (s *Server) serve() {
	if err := s.grpcServer.Serve(s.listener); err != nil {
		if s.state.Load() != int32(StateStopping) && s.state.Load() != int32(StateStopped) {
			s.logger.Error("gRPC server error",
				observability.String("address", s.address),
				observability.Error(err),
			)
		}
	}
	s.state.Store(int32(StateStopped))
}

// Stop stops the gRPC server immediately.
func (s *Server) Stop(_ context.Context) error {
	if !s.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		return nil
	}

	s.logger.Info("stopping gRPC server",
		observability.String("address", s.address),
	)

	if s.healthServer != nil {
		s.healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	}

	s.grpcServer.Stop()
	s.state.Store(int32(StateStopped))

	s.logger.Info("gRPC server stopped",
		observability.String("address", s.address),
	)

	return nil
}

// GracefulStop stops the gRPC server gracefully, forcing a stop when the
// graceful timeout expires.
func (s *Server) GracefulStop(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		return nil
	}

	s.logger.Info("gracefully stopping gRPC server",
		observability.String("address", s.address),
	)

	if s.healthServer != nil {
		s.healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.gracefulStopTimeout)
		defer cancel()
	}

	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("gRPC server stopped gracefully",
			observability.String("address", s.address),
		)
	case <-ctx.Done():
		s.logger.Warn("graceful stop timeout, forcing stop",
			observability.String("address", s.address),
		)
		s.grpcServer.Stop()
	}

	s.state.Store(int32(StateStopped))
	return nil
}

// RegisterService registers a gRPC service with the server.
// This must be called before Start.
func (s *Server) RegisterService(desc *grpc.ServiceDesc, impl interface{}) {
	if s.grpcServer != nil {
		s.grpcServer.RegisterService(desc, impl)
	}
}

// GetServiceInfo returns information about registered services.
func (s *Server) GetServiceInfo() map[string]grpc.ServiceInfo {
	if s.grpcServer != nil {
		return s.grpcServer.GetServiceInfo()
	}
	return nil
}

// State returns the current server state.
func (s *Server) State() State {
	return State(s.state.Load())
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	return s.State() == StateRunning
}

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	if s.startTime.IsZero() {
		return 0
	}
	return time.Since(s.startTime)
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.address
}

// ListenerAddress returns the bound listener address, useful when the
// configured address uses port 0.
func (s *Server) ListenerAddress() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// GRPCServer returns the underlying gRPC server.
func (s *Server) GRPCServer() *grpc.Server {
	return s.grpcServer
}

// SetServingStatus sets the health serving status for a service.
func (s *Server) SetServingStatus(service string, status healthpb.HealthCheckResponse_ServingStatus) {
	if s.healthServer != nil {
		s.healthServer.SetServingStatus(service, status)
	}
}

// buildServerOptions builds gRPC server options.
func (s *Server) buildServerOptions() ([]grpc.ServerOption, error) {
	opts := make([]grpc.ServerOption, 0, 8)

	opts = append(opts,
		grpc.MaxConcurrentStreams(s.maxConcurrentStreams),
		grpc.MaxRecvMsgSize(s.maxRecvMsgSize),
		grpc.MaxSendMsgSize(s.maxSendMsgSize),
		grpc.ConnectionTimeout(s.connectionTimeout),
	)

	if s.keepaliveParams != nil {
		opts = append(opts, grpc.KeepaliveParams(*s.keepaliveParams))
	}
	if s.keepaliveEnforcement != nil {
		opts = append(opts, grpc.KeepaliveEnforcementPolicy(*s.keepaliveEnforcement))
	}

	if s.tlsCertFile != "" && s.tlsKeyFile != "" {
		creds, err := s.buildTLSCredentials()
		if err != nil {
			return nil, err
		}
		opts = append(opts, grpc.Creds(creds))
	} else {
		s.logger.Info("no TLS configured for gRPC server, running in plaintext",
			observability.String("address", s.address))
	}

	if len(s.unaryInterceptors) > 0 {
		opts = append(opts, grpc.ChainUnaryInterceptor(s.unaryInterceptors...))
	}
	if len(s.streamInterceptors) > 0 {
		opts = append(opts, grpc.ChainStreamInterceptor(s.streamInterceptors...))
	}

	return opts, nil
}

// buildTLSCredentials builds transport credentials from certificate files.
func (s *Server) buildTLSCredentials() (credentials.TransportCredentials, error) {
	cert, err := tls.LoadX509KeyPair(s.tlsCertFile, s.tlsKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS credentials: %w", err)
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
		NextProtos:   []string{"h2"},
	}

	s.logger.Info("gRPC server TLS configured",
		observability.String("address", s.address),
		observability.String("certFile", s.tlsCertFile),
	)

	return credentials.NewTLS(tlsConfig), nil
}
