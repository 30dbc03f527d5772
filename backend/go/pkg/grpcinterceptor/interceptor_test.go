package grpcinterceptor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/circuitbreaker"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/logger"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/ratelimiter"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var info = &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

func okHandler(context.Context, interface{}) (interface{}, error) { return "pong", nil }

func TestRateLimitUnaryInterceptor(t *testing.T) {
	i := RateLimitUnaryInterceptor(ratelimiter.NewFixedWindowCounter(1, time.Hour))

	resp, err := i(context.Background(), nil, info, okHandler)
	assert.NoError(t, err)
	assert.Equal(t, "pong", resp)

	_, err = i(context.Background(), nil, info, okHandler)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
}

func TestCircuitBreakUnaryInterceptor(t *testing.T) {
	breaker := circuitbreaker.New(1, 1, time.Hour)
	i := CircuitBreakUnaryInterceptor(breaker)

	badArg := func(context.Context, interface{}) (interface{}, error) {
		return nil, status.Error(codes.InvalidArgument, "bad")
	}
	_, err := i(context.Background(), nil, info, badArg)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, circuitbreaker.Closed, breaker.State(), "client errors do not trip the breaker")

	down := func(context.Context, interface{}) (interface{}, error) {
		return nil, status.Error(codes.Unavailable, "store down")
	}
	_, err = i(context.Background(), nil, info, down)
	assert.Equal(t, codes.Unavailable, status.Code(err))
	assert.Equal(t, circuitbreaker.Open, breaker.State())

	_, err = i(context.Background(), nil, info, okHandler)
	assert.Equal(t, codes.Unavailable, status.Code(err))
	assert.Contains(t, err.Error(), "circuit breaker is open")
}

func TestLoggingUnaryInterceptor(t *testing.T) {
	i := LoggingUnaryInterceptor(logger.Discard())
	resp, err := i(context.Background(), nil, info, okHandler)
	assert.NoError(t, err)
	assert.Equal(t, "pong", resp)
}
