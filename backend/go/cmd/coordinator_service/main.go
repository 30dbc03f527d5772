package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/go-redis/redis/v8"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/agent"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/config"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/convergence"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/coordinator_service/api"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/coordinator_service/consumer"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/coordinator_service/publisher"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/coordinator_service/service"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/coordinator_service/store"
	kafkadb "github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/database/kafka"
	miniodb "github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/database/minio"
	redisdb "github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/database/redis"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/discovery/etcd"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/notification"
	pkggrpc "github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/grpc"
	pkghttp "github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/http"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/logger"
)

const healthCheckInterval = 15 * time.Second

func main() {
	configPath := flag.String("config", "backend/go/internal/config/config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	if err := logger.InitFromString(cfg.Logger.Level); err != nil {
		log.Fatalf("Invalid logger level: %v", err)
	}
	serviceLogger := logger.New(cfg.App.Name, "", "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Durable store
	st, err := store.Open(ctx, cfg)
	if err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error(), Type: "store_unavailable"}).Fatal("Failed to open store")
	}
	serviceLogger.WithPayload(map[string]interface{}{"driver": cfg.Store.Driver}).Info("Store opened")

	registry := agent.NewRegistry()

	// Optional Redis presence mirror
	var mirror *agent.RedisMirror
	var redisClient *goredis.Client
	if cfg.Presence.RedisMirror {
		redisClient, err = redisdb.GetClient(ctx, &cfg.Databases.Redis)
		if err != nil {
			serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to connect to Redis")
		}
		mirror = agent.NewRedisMirror(redisClient, cfg.Presence.RedisKey, cfg.Presence.RedisChannel, 0, serviceLogger)
		registry.AddObserver(mirror)
		mirror.Start(ctx)
	}

	// Optional Kafka event mirror and task request consumer
	var events service.EventSink = service.NopSink{}
	var taskConsumer *consumer.TaskRequestConsumer
	kafkaCfg := &cfg.Databases.Kafka
	if kafkaCfg.Enabled() {
		if err := kafkadb.EnsureTopics(ctx, kafkaCfg); err != nil {
			serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Warn("Failed to ensure Kafka topics")
		}
		events = publisher.NewEventPublisher(kafkaCfg, serviceLogger)
	}

	svc := service.NewService(st, registry, events, serviceLogger)
	svc.SetStoreTimeout(cfg.Store.OpTimeoutDuration())
	if err := svc.Restore(ctx); err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error(), Type: "store_unavailable"}).Fatal("Failed to restore coordinator state")
	}
	if redisClient != nil {
		restoreFromMirror(ctx, redisClient, cfg.Presence.RedisKey, registry, serviceLogger)
	}

	if kafkaCfg.Enabled() {
		taskConsumer, err = consumer.NewTaskRequestConsumer(kafkaCfg, svc.Tasks(), serviceLogger)
		if err != nil {
			serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to create task request consumer")
		}
		go taskConsumer.Run(ctx)
		serviceLogger.Info("Kafka task request consumer started")
	}

	// Convergence monitoring
	var conv api.Convergence
	var monitor *convergence.Monitor
	if cfg.Convergence.IsEnabled() {
		publishProtocols(ctx, cfg, serviceLogger)

		notifier, err := notification.New(cfg)
		if err != nil {
			serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to create notifier")
		}
		var alerts convergence.Notifier
		if notifier != nil {
			alerts = notifier
		}

		escalator := convergence.NewEscalator(st, registry, svc.Router(), alerts, svc, convergence.EscalatorConfig{
			Threshold:    cfg.Convergence.InterventionThreshold,
			Lookback:     cfg.Convergence.Lookback(),
			Recipient:    cfg.Notification.Recipient,
			StoreTimeout: cfg.Store.OpTimeoutDuration(),
		}, serviceLogger)
		svc.SetInterventionAcknowledger(escalator)

		assessor := convergence.NewAssessor(registry, st, cfg.Convergence.Window(), serviceLogger)
		monitor = convergence.NewMonitor(assessor, escalator, st, convergence.MonitorConfig{
			Threshold: cfg.Convergence.Threshold,
			Interval:  cfg.Convergence.Interval(),
			Backoff:   cfg.Convergence.Backoff(),
		}, serviceLogger)
		conv = api.Convergence{
			Escalator: escalator,
			Monitor:   monitor,
			Reporter:  convergence.NewReporter(st, cfg.Convergence.Threshold),
		}
		monitor.Start(ctx)
	}

	go svc.RunPresenceSweeper(ctx, cfg.Presence.TimeoutDuration(), cfg.Presence.SweepDuration())

	// HTTP + websocket
	gin.SetMode(gin.ReleaseMode)
	apiHandler := api.NewAPI(svc, st, conv, cfg.Transport, serviceLogger)
	router := api.SetupRouter(apiHandler, cfg.Auth)
	srv, err := pkghttp.NewServer(cfg, router, pkghttp.WithLogger(serviceLogger))
	if err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to create HTTP server")
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("HTTP server failed to start")
		}
	}()

	// gRPC health
	var grpcSrv *pkggrpc.Server
	if cfg.Server.GRPCAddress != "" {
		grpcSrv, err = pkggrpc.NewServer(cfg, serviceLogger)
		if err != nil {
			serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to create gRPC server")
		}
		go svc.ReportHealth(ctx, grpcSrv.Health(), healthCheckInterval)
		go func() {
			if err := grpcSrv.ListenAndServe(); err != nil {
				serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("gRPC server stopped")
			}
		}()
	}

	// etcd registration
	var discovery *etcd.ServiceDiscovery
	var registration *etcd.Registration
	if len(cfg.Databases.Etcd.Endpoints) > 0 {
		discovery, err = etcd.NewServiceDiscovery(&cfg.Databases.Etcd)
		if err != nil {
			serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to connect to etcd")
		}
		addr := cfg.Server.AdvertiseAddress
		if addr == "" {
			addr = cfg.Server.Address
		}
		registration, err = discovery.Register(ctx, cfg.Databases.Etcd.ServiceName, addr, cfg.Databases.Etcd.LeaseTTL)
		if err != nil {
			serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to register in etcd")
		} else {
			serviceLogger.WithPayload(map[string]interface{}{
				"key": etcd.ServiceKey(cfg.Databases.Etcd.ServiceName, addr),
			}).Info("Registered in etcd")
		}
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	serviceLogger.Info("Shutting down coordinator...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer shutdownCancel()

	if registration != nil {
		if err := registration.Stop(shutdownCtx); err != nil {
			serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Warn("Failed to revoke etcd lease")
		}
	}
	if discovery != nil {
		_ = discovery.Close()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("HTTP server forced to shutdown")
	}
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	// Hijacked websockets outlive srv.Shutdown.
	if err := svc.CloseAll(shutdownCtx); err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Warn("Connections still open at shutdown")
	}
	if monitor != nil {
		monitor.Stop()
	}

	cancel()
	if taskConsumer != nil {
		if err := taskConsumer.Close(); err != nil {
			serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error closing Kafka consumer")
		}
	}
	if err := events.Close(); err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error closing Kafka publisher")
	}
	if mirror != nil {
		mirror.Stop()
		_ = redisdb.Close()
	}
	if err := st.Close(shutdownCtx); err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error closing store")
	}

	serviceLogger.Info("Coordinator gracefully stopped")
}

// restoreFromMirror fills in agents the store does not know about, for
// example when the coordinator runs on the memory store.
func restoreFromMirror(ctx context.Context, client *goredis.Client, key string, registry *agent.Registry, log *logger.Logger) {
	agents, err := agent.ReadMirror(ctx, client, key)
	if err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error()}).Warn("Failed to read presence mirror")
		return
	}
	if n := registry.Restore(agents); n > 0 {
		log.WithPayload(map[string]interface{}{"agents": n}).Info("Agents restored from presence mirror")
	}
}

// publishProtocols writes the intervention protocol documents to the configured backend.
func publishProtocols(ctx context.Context, cfg *config.AppConfig, log *logger.Logger) {
	var docs convergence.DocumentStore
	switch cfg.Protocols.Backend {
	case "none":
		return
	case "minio":
		client, err := miniodb.Connect(ctx, &cfg.Databases.MinIO)
		if err != nil {
			log.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to connect to MinIO, protocol documents not published")
			return
		}
		docs = convergence.NewMinioStore(client, cfg.Databases.MinIO.Bucket, cfg.Protocols.Directory)
	default:
		docs = convergence.NewFileStore(cfg.Protocols.Directory)
	}
	if err := convergence.NewProtocolLibrary(docs, log).Publish(ctx); err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to publish protocol documents")
	}
}
