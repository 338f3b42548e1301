package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/Sivaraj16/medicals/internal/auth"
	"github.com/Sivaraj16/medicals/internal/config"
	"github.com/Sivaraj16/medicals/internal/event"
	handler "github.com/Sivaraj16/medicals/internal/handler/http"
	"github.com/Sivaraj16/medicals/internal/repository/postgres"
	redisrepo "github.com/Sivaraj16/medicals/internal/repository/redis"
	"github.com/Sivaraj16/medicals/internal/search"
	"github.com/Sivaraj16/medicals/internal/search/elasticsearch"
	"github.com/Sivaraj16/medicals/internal/search/memory"
	"github.com/Sivaraj16/medicals/internal/service"
	"github.com/Sivaraj16/medicals/migrations"
	"github.com/Sivaraj16/medicals/pkg/database"
	"github.com/Sivaraj16/medicals/pkg/health"
	"github.com/Sivaraj16/medicals/pkg/httpclient"
	pkgkafka "github.com/Sivaraj16/medicals/pkg/kafka"
	"github.com/Sivaraj16/medicals/pkg/middleware"
	"github.com/Sivaraj16/medicals/pkg/tracing"
)

const (
	serviceName    = "medicals"
	idempotencyTTL = 24 * time.Hour
)

// App wires together all dependencies and runs the pharmacy service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	dlq            *pkgkafka.DLQProducer
	depleted       *pkgkafka.Consumer
	inventory      *service.InventoryService
	httpServer     *http.Server
	tracerShutdown tracing.ShutdownFunc
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.closeClients()
		}
	}()

	// Initialize OpenTelemetry tracing.
	a.tracerShutdown, err = tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	a.pool, err = database.NewPostgresPool(ctx, cfg.Postgres(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(a.pool, serviceName)

	if err := database.RunMigrations(ctx, a.pool, migrations.FS, logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	// Initialize Redis for cart sessions and event idempotency.
	a.redis, err = database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", cfg.Redis().Addr()))

	// Initialize Kafka producer with connection validation and retry.
	kafkaMetrics, err := pkgkafka.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, fmt.Errorf("register kafka metrics: %w", err)
	}
	a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), kafkaMetrics, logger)
	if err := pingKafkaWithRetry(ctx, a.producer, logger); err != nil {
		logger.Warn("kafka producer ping failed after retries, continuing in degraded mode",
			slog.String("error", err.Error()),
		)
	} else {
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	engine, searchCheck, err := newSearchEngine(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	metrics, err := service.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, fmt.Errorf("register service metrics: %w", err)
	}

	// Build the dependency graph.
	medicineRepo := postgres.NewMedicineRepository(a.pool)
	orderRepo := postgres.NewOrderRepository(a.pool)
	restockRepo := postgres.NewRestockRepository(a.pool)
	cartStore := redisrepo.NewCartStore(a.redis, cfg.CartTTL)
	eventProducer := event.NewProducer(a.producer, logger)

	a.inventory = service.NewInventoryService(medicineRepo, engine, eventProducer, metrics, logger, cfg.ExpiringWindowDays)
	checkoutService := service.NewCheckoutService(orderRepo, eventProducer, metrics, logger)
	restockService := service.NewRestockService(restockRepo, medicineRepo, eventProducer, metrics, logger, cfg.RestockDefaultQuantity)

	services := handler.Services{
		Inventory: a.inventory,
		Checkout:  checkoutService,
		Orders:    service.NewOrderService(orderRepo),
		Dashboard: service.NewDashboardService(medicineRepo, orderRepo, cfg.ExpiringWindowDays),
		Carts:     service.NewCartService(cartStore, medicineRepo, checkoutService, logger),
		Restocks:  restockService,
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTTL)
	if cfg.OperatorPasswordHash != "" {
		services.Auth = service.NewAuthService(jwtManager, cfg.OperatorUsername, cfg.OperatorPasswordHash, logger)
	}
	var tokens middleware.TokenValidator
	if cfg.AuthEnabled {
		tokens = jwtManager.Validator()
	}

	// Set up the Kafka consumer that opens restock requests for sold-out items.
	if cfg.KafkaConsumersEnabled {
		store := pkgkafka.NewRedisIdempotencyStore(a.redis, serviceName+":events:", idempotencyTTL)
		restockConsumer := event.NewConsumer(restockService, logger)

		a.depleted = pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:      cfg.KafkaBrokers,
			GroupID:      event.ConsumerGroup,
			Topic:        event.TopicInventoryDepleted,
			MinBytes:     1,
			MaxBytes:     10e6,
			MaxRetries:   3,
			RetryBackoff: 500 * time.Millisecond,
		}, pkgkafka.IdempotentHandler(store, restockConsumer.HandleInventoryDepleted, logger), kafkaMetrics, logger)

		if cfg.KafkaDLQEnabled {
			a.dlq = pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
			a.depleted.WithDLQ(a.dlq)
		}
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", a.pool.Ping)
	healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
		return a.redis.Ping(ctx).Err()
	})
	healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
	if searchCheck != nil {
		healthHandler.RegisterNonCritical("elasticsearch", searchCheck)
	}

	router := handler.NewRouter(services, healthHandler, handler.RouterConfig{
		Tokens:     tokens,
		Registry:   prometheus.DefaultRegisterer,
		Gatherer:   prometheus.DefaultGatherer,
		PprofCIDRs: cfg.PprofAllowedCIDRs,
		CORS:       middleware.CORSConfig{AllowedOrigins: cfg.CORSAllowedOrigins},
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// newSearchEngine builds the configured search backend. The returned health
// check is nil for the in-memory engine.
func newSearchEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger) (search.Engine, health.Checker, error) {
	if cfg.SearchBackend != config.SearchElasticsearch {
		logger.Info("using in-memory medicine search")
		return memory.New(), nil, nil
	}

	if err := httpclient.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
		return nil, nil, fmt.Errorf("register circuit breaker metrics: %w", err)
	}
	clientCfg := httpclient.DefaultConfig()
	transport := httpclient.NewBreakerTransport(
		httpclient.NewRetryTransport(httpclient.NewPooledTransport(clientCfg), clientCfg),
		httpclient.DefaultCircuitBreakerConfig("elasticsearch"),
		logger,
	)

	engine, err := elasticsearch.New(ctx, elasticsearch.Config{
		URL:       cfg.ElasticsearchURL,
		Index:     cfg.ElasticsearchIndex,
		Transport: transport,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init elasticsearch search: %w", err)
	}
	logger.Info("using elasticsearch medicine search",
		slog.String("url", cfg.ElasticsearchURL),
		slog.String("index", cfg.ElasticsearchIndex),
	)
	return engine, engine.Ping, nil
}

// Run starts the HTTP server, the Kafka consumer and the startup reindex,
// then blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if a.depleted != nil {
		go func() {
			if err := a.depleted.Start(ctx); err != nil {
				errCh <- fmt.Errorf("inventory depleted consumer: %w", err)
			}
		}()
	}

	go a.reindex(ctx)

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// reindex loads the catalog into the search engine once at startup.
func (a *App) reindex(ctx context.Context) {
	start := time.Now()
	n, err := a.inventory.Reindex(ctx)
	if err != nil {
		a.logger.Error("search reindex failed", slog.String("error", err.Error()))
		return
	}
	a.logger.Info("search index rebuilt",
		slog.Int("medicines", n),
		slog.Duration("took", time.Since(start)),
	)
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka consumer and dead-letter producer
// 4. Kafka producer, Redis and PostgreSQL
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.depleted != nil {
		if err := a.depleted.Close(); err != nil {
			a.logger.Error("inventory depleted consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	errs = append(errs, a.closeClients()...)

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeClients releases the broker, cache and database connections that
// have been opened so far.
func (a *App) closeClients() []error {
	var errs []error
	if a.dlq != nil {
		if err := a.dlq.Close(); err != nil {
			a.logger.Error("kafka dlq producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return errs
}

// pingKafkaWithRetry attempts to ping the Kafka producer with exponential
// backoff (3 attempts, 1s/2s/4s with ±25% jitter).
func pingKafkaWithRetry(ctx context.Context, producer *pkgkafka.Producer, logger *slog.Logger) error {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if lastErr = producer.Ping(ctx); lastErr == nil {
			return nil
		}
		if attempt < 2 {
			base := time.Duration(1<<uint(attempt)) * time.Second
			jitter := time.Duration(float64(base) * 0.25 * (2*rand.Float64() - 1)) // #nosec G404 -- non-cryptographic jitter for retry backoff
			wait := base + jitter
			logger.Warn("kafka producer ping failed, retrying",
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", 3),
				slog.Duration("backoff", wait),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("kafka ping: context canceled during retry: %w", ctx.Err())
			case <-time.After(wait):
			}
		}
	}
	return fmt.Errorf("kafka producer ping failed after 3 attempts: %w", lastErr)
}
