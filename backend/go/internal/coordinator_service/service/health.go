package service

import (
	"context"
	"time"

	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServiceName is the name the coordinator reports under in grpc.health.v1.
const HealthServiceName = "coordinator"

// ReportHealth sets the serving status of hs from the store's health once
// now and then every interval until ctx is done.
func (s *Service) ReportHealth(ctx context.Context, hs *health.Server, interval time.Duration) {
	check := func() {
		status := healthpb.HealthCheckResponse_SERVING
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := s.store.Ping(pingCtx)
		cancel()
		if err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			s.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "store_unavailable"}).
				Warn("Store health check failed")
		}
		hs.SetServingStatus("", status)
		hs.SetServingStatus(HealthServiceName, status)
	}

	check()
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-ticker.C:
			check()
		}
	}
}
