package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"marketplace/internal/config"
	"marketplace/internal/credential"
	"marketplace/internal/event"
	apphttp "marketplace/internal/http"
	"marketplace/internal/repository"
	"marketplace/internal/repository/memory"
	"marketplace/internal/repository/postgres"
	"marketplace/internal/repository/sqlite"
	"marketplace/internal/service"
	"marketplace/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	configureLogger(logger, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	users, products, closer, err := openRepositories(ctx, cfg)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer closer.Close()

	if err := users.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}
	if err := products.Init(ctx); err != nil {
		logger.Fatalf("init product repository: %v", err)
	}

	codec, err := credential.NewBcryptCodec(cfg.Auth.BcryptCost)
	if err != nil {
		logger.Fatalf("setup credential codec: %v", err)
	}

	publisher := buildPublisher(cfg, logger)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warnf("close event publisher: %v", err)
		}
	}()

	userService := service.NewUserService(users, codec, publisher, logger)
	productService := service.NewProductService(products, userService, publisher, logger)

	if _, err := service.BootstrapAdmin(ctx, userService, service.BootstrapConfig{
		Enabled:  cfg.Bootstrap.Enabled,
		Username: cfg.Bootstrap.Username,
		Email:    cfg.Bootstrap.Email,
		Password: cfg.Bootstrap.Password,
	}, logger); err != nil {
		logger.Fatalf("bootstrap admin: %v", err)
	}

	exporter, err := buildExporter(ctx, cfg, productService, logger)
	if err != nil {
		logger.Fatalf("setup storage: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler, err := apphttp.NewHandler(userService, productService, exporter, logger)
	if err != nil {
		logger.Fatalf("setup http handler: %v", err)
	}
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

func configureLogger(logger *logrus.Logger, cfg config.Config) {
	if cfg.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.Warnf("unknown log level %q, using info", cfg.Log.Level)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func openRepositories(ctx context.Context, cfg config.Config) (repository.UserRepository, repository.ProductRepository, io.Closer, error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		return sqlite.NewUserRepository(db), sqlite.NewProductRepository(db), db, nil
	case config.DriverPostgres:
		pool, err := postgres.Open(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, nil, err
		}
		return postgres.NewUserRepository(pool), postgres.NewProductRepository(pool), closerFunc(func() error {
			pool.Close()
			return nil
		}), nil
	case config.DriverMemory:
		return memory.NewUserRepository(), memory.NewProductRepository(), closerFunc(func() error { return nil }), nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func buildPublisher(cfg config.Config, logger *logrus.Logger) event.Publisher {
	if len(cfg.Kafka.Brokers) == 0 {
		logger.Info("no kafka brokers configured, domain events are dropped")
		return event.NopPublisher{}
	}
	logger.Infof("publishing domain events to kafka %v (topic prefix %s)", cfg.Kafka.Brokers, cfg.Kafka.TopicPrefix)
	return event.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.TopicPrefix)
}

func buildExporter(ctx context.Context, cfg config.Config, products service.ProductService, logger *logrus.Logger) (service.CatalogExporter, error) {
	if cfg.Storage.Bucket == "" {
		logger.Info("no storage bucket configured, catalog export disabled")
		return nil, nil
	}

	client, err := storage.NewS3Client(ctx, storage.S3Options{
		Region:   cfg.Storage.Region,
		Endpoint: cfg.Storage.Endpoint,
		Profile:  cfg.AWS.Profile,
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return service.NewCatalogExporter(products, storage.NewS3Service(client), cfg.Storage.Bucket, cfg.Storage.KeyPrefix, logger), nil
}
