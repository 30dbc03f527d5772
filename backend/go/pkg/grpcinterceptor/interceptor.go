package grpcinterceptor

import (
	"context"
	"errors"
	"time"

	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/circuitbreaker"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/logger"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/ratelimiter"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// RateLimitUnaryInterceptor 返回一个 gRPC 一元拦截器，用于限流。
func RateLimitUnaryInterceptor(limiter ratelimiter.RateLimiter) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if !limiter.Allow() {
			return nil, status.Errorf(codes.ResourceExhausted, "request rejected due to rate limiting")
		}
		return handler(ctx, req)
	}
}

// CircuitBreakUnaryInterceptor 返回一个 gRPC 一元拦截器，用于熔断。
// 只有服务端类错误 (Unavailable、Internal 等) 会计入失败，调用方的参数错误不会触发熔断。
func CircuitBreakUnaryInterceptor(breaker circuitbreaker.CircuitBreaker) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		var callErr error
		resp, err := breaker.Execute(func() (interface{}, error) {
			resp, err := handler(ctx, req)
			callErr = err
			if isServerFault(err) {
				return nil, err
			}
			return resp, nil
		})
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
			return nil, status.Errorf(codes.Unavailable, "service unavailable: circuit breaker is open")
		}
		if callErr != nil {
			return nil, callErr
		}
		return resp, err
	}
}

func isServerFault(err error) bool {
	if err == nil {
		return false
	}
	switch status.Code(err) {
	case codes.Internal, codes.Unavailable, codes.DataLoss, codes.Unknown, codes.DeadlineExceeded:
		return true
	}
	return false
}

// LoggingUnaryInterceptor 记录每次调用的方法、耗时与错误。
func LoggingUnaryInterceptor(log *logger.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		l := log.WithPayload(map[string]interface{}{
			"method":     info.FullMethod,
			"latency_ms": time.Since(start).Milliseconds(),
			"code":       status.Code(err).String(),
		})
		if err != nil {
			l.WithError(models.ErrorInfo{Message: err.Error(), Type: "grpc"}).Warn("grpc call failed")
		} else {
			l.Debug("grpc call")
		}
		return resp, err
	}
}
