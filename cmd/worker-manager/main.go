// cmd/worker-manager/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"welfare-workers/internal/audit"
	"welfare-workers/internal/common/camunda"
	"welfare-workers/internal/common/config"
	"welfare-workers/internal/common/database"
	"welfare-workers/internal/common/logger"
	"welfare-workers/internal/common/observability"
	"welfare-workers/internal/httpapi"
	"welfare-workers/internal/lifecycle"
	"welfare-workers/internal/models"
	"welfare-workers/internal/notification"
	"welfare-workers/internal/scheme"
	"welfare-workers/internal/search"
	"welfare-workers/internal/store/redisstore"

	// Eligibility Workers (2)
	ee "welfare-workers/internal/workers/eligibility/evaluate-eligibility"
	rs "welfare-workers/internal/workers/eligibility/rank-schemes"

	// Application Lifecycle Workers (3)
	ca "welfare-workers/internal/workers/application/create-application"
	mtr "welfare-workers/internal/workers/application/move-to-review"
	uas "welfare-workers/internal/workers/application/update-application-status"

	// Notification Workers (1)
	sn "welfare-workers/internal/workers/notification/send-notification"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// seedActor owns catalogue entries loaded at startup.
var seedActor = models.Actor{ID: models.SystemActor, Role: "SUPER_ADMIN"}

func main() {
	zapLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog = logger.Build(logger.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{cfg.Logging.Output},
	})
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
		zap.String("storage", cfg.Storage.Backend),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs := observability.New(observability.Options{
		ServiceName:    cfg.Observability.ServiceName,
		JaegerEndpoint: cfg.Observability.JaegerEndpoint,
	}, log)
	defer obs.Shutdown(context.Background())

	checks := map[string]httpapi.Check{}

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: cfg.Camunda.Plaintext,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer zeebe.Close()
	checks["zeebe"] = zeebe.HealthCheck
	zapLog.Info("Zeebe client connected successfully")

	// --- Storage backend ---
	st, err := openStores(ctx, cfg, zapLog)
	if err != nil {
		zapLog.Fatal("storage init failed", zap.Error(err))
	}
	defer st.Close()
	for name, check := range st.checks {
		checks[name] = check
	}

	// --- Init Redis with retry (dedup guard, scheme cache) ---
	var redis *database.RedisClient
	if cfg.Database.Redis.Address != "" {
		err = retryWithBackoff(func() error {
			var err error
			redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redis.Close()
		checks["redis"] = redis.Ping
		zapLog.Info("Redis connected successfully")
	}

	// --- Init Elasticsearch with retry (scheme search) ---
	var esClient *database.ElasticsearchClient
	if cfg.Database.Elasticsearch.Enabled() {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		checks["elasticsearch"] = esClient.Ping
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Domain services ---
	auditLog := audit.NewLogger(st.audit, log, config.GetDuration(cfg.Audit.Timeout))

	dispatcherOpts := []notification.Option{}
	window := time.Duration(cfg.Notifications.DedupWindow) * time.Second
	if cfg.Notifications.DedupBackend == "redis" {
		dispatcherOpts = append(dispatcherOpts, notification.WithGuard(redisstore.NewDedupGuard(redis.Client, window, log)))
	}
	deliverer, err := newDeliverer(ctx, cfg, st.contacts, log)
	if err != nil {
		zapLog.Fatal("notification delivery init failed", zap.Error(err))
	}
	if deliverer != nil {
		dispatcherOpts = append(dispatcherOpts, notification.WithDeliverer(deliverer))
	}
	dispatcher := notification.NewDispatcher(st.notifications, log, window, dispatcherOpts...)

	catalogueOpts := []scheme.Option{}
	if esClient != nil {
		catalogueOpts = append(catalogueOpts, scheme.WithIndex(search.NewSchemeIndex(esClient.Client, cfg.Search.SchemeIndex)))
	}
	if redis != nil {
		catalogueOpts = append(catalogueOpts, scheme.WithCache(
			redisstore.NewSchemeCache(redis.Client, time.Duration(cfg.Search.CacheTTL)*time.Second)))
	}
	// seeding must not broadcast "new scheme" notices on every fresh deploy
	seeder := scheme.NewService(st.schemes, auditLog, log, catalogueOpts...)
	catalogue := scheme.NewService(st.schemes, auditLog, log,
		append(catalogueOpts, scheme.WithBroadcaster(dispatcher))...)

	if cfg.Storage.SeedFile != "" {
		drafts, err := scheme.LoadSeedFile(cfg.Storage.SeedFile)
		if err != nil {
			zapLog.Fatal("scheme seed load failed", zap.Error(err))
		}
		added, err := seeder.Seed(ctx, seedActor, drafts)
		if err != nil {
			zapLog.Fatal("scheme seed failed", zap.Error(err), zap.Int("added", added))
		}
		zapLog.Info("scheme catalogue seeded", zap.Int("added", added), zap.Int("total", len(drafts)))
	}

	manager := lifecycle.NewManager(st.applications, auditLog, dispatcher, log,
		lifecycle.Config{
			SideEffectTimeout: config.GetDuration(cfg.Lifecycle.SideEffectTimeout),
			MaxCASRetries:     cfg.Lifecycle.MaxCASRetries,
		},
		lifecycle.WithPublisher(lifecycle.NewMessagePublisher(zeebe)),
	)

	// --- START: Register Workers ---
	var workers []*camunda.CamundaWorker
	start := func(taskType string, handler camunda.JobHandler) {
		wcfg := config.GetWorkerConfig(cfg, taskType)
		if !wcfg.Enabled {
			zapLog.Info("worker disabled", zap.String("taskType", taskType))
			return
		}
		workers = append(workers, camunda.NewWorker(zeebe.GetClient(), taskType, camunda.WorkerOptions{
			MaxJobsActive: wcfg.MaxJobsActive,
			Timeout:       config.GetDuration(wcfg.Timeout),
			Observer:      obs,
		}, handler, log))
	}

	// --- 1. Eligibility Workers (2) ---
	start(ee.TaskType, ee.NewHandler(
		&ee.Config{Timeout: workerTimeout(cfg, ee.TaskType)},
		catalogue, log,
	))
	start(rs.TaskType, rs.NewHandler(
		&rs.Config{Timeout: workerTimeout(cfg, rs.TaskType)},
		catalogue, log,
	))

	// --- 2. Application Lifecycle Workers (3) ---
	start(ca.TaskType, ca.NewHandler(
		&ca.Config{Timeout: workerTimeout(cfg, ca.TaskType)},
		manager, log,
	))
	start(mtr.TaskType, mtr.NewHandler(
		&mtr.Config{Timeout: workerTimeout(cfg, mtr.TaskType)},
		manager, log,
	))
	start(uas.TaskType, uas.NewHandler(
		&uas.Config{Timeout: workerTimeout(cfg, uas.TaskType)},
		manager, log,
	))

	// --- 3. Notification Workers (1) ---
	start(sn.TaskType, sn.NewHandler(
		&sn.Config{Timeout: workerTimeout(cfg, sn.TaskType)},
		dispatcher, auditLog, log,
	))

	zapLog.Info("All workers registered", zap.Int("count", len(workers)))

	// --- HTTP surface ---
	server, err := httpapi.NewServer(httpapi.Options{
		Address:        cfg.Server.Address,
		RequestTimeout: config.GetDuration(cfg.Server.RequestTimeout),
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
		RankWorkers:    cfg.Server.RankWorkers,
		TrustedProxies: cfg.Server.TrustedProxies,
	}, catalogue, checks, log)
	if err != nil {
		zapLog.Fatal("http server init failed", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Run(ctx)
	}()
	zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))

	select {
	case <-ctx.Done():
		zapLog.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("http server stopped", zap.Error(err))
		}
		stop()
	}

	for _, w := range workers {
		w.Stop()
	}
	zapLog.Info("worker manager stopped")
}

// workerTimeout bounds one job's execution by the worker's job timeout.
func workerTimeout(cfg *config.Config, taskType string) time.Duration {
	return config.GetDuration(config.GetWorkerConfig(cfg, taskType).Timeout)
}
