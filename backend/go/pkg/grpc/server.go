package grpc

import (
	"fmt"
	"net"

	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/config"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/circuitbreaker"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/grpcinterceptor"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/logger"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/ratelimiter"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const defaultAddress = ":9090"

// Server 是协调服务的 gRPC 入口，目前只提供标准的 grpc.health.v1 健康检查。
// 健康状态由调用方通过 Health() 更新。
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	address    string
	log        *logger.Logger
}

// ServerOption 定义了用于配置 Server 的函数。
type ServerOption func(*Server)

// WithAddress 覆盖配置中的监听地址。
func WithAddress(addr string) ServerOption {
	return func(s *Server) {
		s.address = addr
	}
}

// NewServer 创建 Server 并注册健康检查服务。
// 日志拦截器总是启用，限流和熔断拦截器按 middleware 配置启用。
func NewServer(cfg *config.AppConfig, log *logger.Logger, opts ...ServerOption) (*Server, error) {
	interceptors, err := unaryInterceptors(cfg.Middleware, log)
	if err != nil {
		return nil, err
	}

	srv := &Server{
		grpcServer: grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors...)),
		health:     health.NewServer(),
		address:    cfg.Server.GRPCAddress,
		log:        log.Component("grpc"),
	}
	for _, opt := range opts {
		opt(srv)
	}
	if srv.address == "" {
		srv.address = defaultAddress
	}
	healthpb.RegisterHealthServer(srv.grpcServer, srv.health)
	return srv, nil
}

func unaryInterceptors(cfg config.MiddlewareConfig, log *logger.Logger) ([]grpc.UnaryServerInterceptor, error) {
	out := []grpc.UnaryServerInterceptor{grpcinterceptor.LoggingUnaryInterceptor(log)}
	if cfg.RateLimiter.Enabled {
		limiter, err := ratelimiter.FromConfig(cfg.RateLimiter)
		if err != nil {
			return nil, fmt.Errorf("grpc rate limiter: %w", err)
		}
		out = append(out, grpcinterceptor.RateLimitUnaryInterceptor(limiter))
	}
	if cfg.CircuitBreaker.Enabled {
		breaker, err := circuitbreaker.FromConfig(cfg.CircuitBreaker)
		if err != nil {
			return nil, fmt.Errorf("grpc circuit breaker: %w", err)
		}
		out = append(out, grpcinterceptor.CircuitBreakUnaryInterceptor(breaker))
	}
	return out, nil
}

// Health 返回健康检查服务，用于上报 SERVING / NOT_SERVING。
func (s *Server) Health() *health.Server {
	return s.health
}

// Address 返回监听地址。
func (s *Server) Address() string {
	return s.address
}

// ListenAndServe 在配置的地址上监听并阻塞提供服务。
func (s *Server) ListenAndServe() error {
	lis, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.address, err)
	}
	return s.Serve(lis)
}

// Serve 在给定的 listener 上提供服务，测试中使用随机端口。
func (s *Server) Serve(lis net.Listener) error {
	s.log.WithPayload(map[string]interface{}{"address": lis.Addr().String()}).Info("gRPC health server listening")
	return s.grpcServer.Serve(lis)
}

// GracefulStop 先把所有服务标记为 NOT_SERVING，再等待进行中的调用结束。
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}
