package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/example/storefront/gateway"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/discovery"
	"github.com/example/storefront/pkg/grpc"
	"github.com/example/storefront/pkg/inventory"
	"github.com/example/storefront/pkg/logging"
	"github.com/example/storefront/pkg/metrics"
	"github.com/example/storefront/pkg/repository"
)

// store is what both the Mongo and the in-memory repositories provide.
type store interface {
	gateway.ProductStore
	gateway.OrderStore
	inventory.StockStore
	inventory.AuditLogger
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

func openStore(cfg *config.MongoDBConfig) (store, error) {
	switch cfg.Driver {
	case "memory":
		return repository.NewMemoryRepository(), nil
	case "mongo", "":
		return repository.NewMongoRepository(cfg)
	default:
		return nil, fmt.Errorf("unknown mongodb.driver %q", cfg.Driver)
	}
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file, empty for defaults")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	logger, err := logging.New(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting storefront service",
		zap.String("name", cfg.Server.Name),
		zap.String("address", cfg.Server.Addr()),
		zap.String("store", cfg.MongoDB.Driver))

	db, err := openStore(&cfg.MongoDB)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}

	m := metrics.New(nil)
	checks := map[string]gateway.Pinger{"mongodb": db}
	deps := gateway.Dependencies{
		Products: db,
		Orders:   db,
		Metrics:  m,
		Checks:   checks,
	}
	restockOpts := []inventory.Option{
		inventory.WithLogger(logger.Named("inventory")),
		inventory.WithMetrics(m),
		inventory.WithTimeout(cfg.Inventory.Timeout),
	}

	var redis *repository.RedisRepository
	if cfg.Redis.Enabled() {
		redis = repository.NewRedisRepository(&cfg.Redis)
		if err := redis.Ping(context.Background()); err != nil {
			logger.Warn("Redis connection failed, product listings will not be cached until it recovers", zap.Error(err))
		} else {
			logger.Info("Redis connected successfully")
		}
		deps.Cache = redis
		checks["redis"] = redis
		restockOpts = append(restockOpts, inventory.WithCache(redis))
	}

	restocker, err := inventory.NewRestocker(db, db, restockOpts...)
	if err != nil {
		logger.Fatal("Failed to start restocker", zap.Error(err))
	}
	deps.Restocker = restocker

	gw, err := gateway.NewGateway(cfg, logger, deps)
	if err != nil {
		logger.Fatal("Failed to create gateway", zap.Error(err))
	}
	gw.SetupRoutes()

	// Register in etcd when configured
	var sd *discovery.ServiceDiscovery
	instance := &discovery.ServiceInstance{
		Name: cfg.Server.Name,
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}
	if cfg.Etcd.Enabled() {
		sd, err = discovery.NewServiceDiscovery(&cfg.Etcd, logger)
		if err != nil {
			logger.Warn("Failed to connect to etcd, continuing without service discovery", zap.Error(err))
		} else if err := sd.Register(context.Background(), instance); err != nil {
			logger.Warn("Failed to register service", zap.Error(err))
		}
	}

	serverErr := make(chan error, 2)

	var health *grpc.HealthServer
	if cfg.Health.GRPCPort > 0 {
		health = grpc.NewHealthServer(logger)
		go func() {
			if err := health.Start(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Health.GRPCPort)); err != nil {
				serverErr <- err
			}
		}()
	}

	go func() {
		if err := gw.Start(); err != nil {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("Received shutdown signal")
	case err := <-serverErr:
		logger.Error("Server error", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if health != nil {
		health.Stop()
	}
	if err := gw.Shutdown(ctx); err != nil {
		logger.Error("Failed to shut down gateway", zap.Error(err))
	}
	// In-flight restocks finish before the store goes away.
	if err := restocker.Stop(); err != nil {
		logger.Error("Failed to stop restocker", zap.Error(err))
	}

	if sd != nil {
		if err := sd.Deregister(ctx, instance); err != nil {
			logger.Error("Failed to deregister service", zap.Error(err))
		}
		sd.Close()
	}
	if redis != nil {
		redis.Close()
	}
	if err := db.Close(ctx); err != nil {
		logger.Error("Failed to close store", zap.Error(err))
	}

	logger.Info("Service stopped")
}
