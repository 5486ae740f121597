package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/sbilibin2017/upi-ledger/internal/handlers"
	"github.com/sbilibin2017/upi-ledger/internal/logger"
	"github.com/sbilibin2017/upi-ledger/internal/middlewares"
	"github.com/sbilibin2017/upi-ledger/internal/repositories"
	"github.com/sbilibin2017/upi-ledger/internal/services"

	_ "github.com/jackc/pgx/v5/stdlib"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Build info variables, set via ldflags at build time.
var (
	buildVersion = "N/A" // Version of the service
	buildDate    = "N/A" // Build date
	buildCommit  = "N/A" // Git commit hash
)

// Storage backends selectable with STORAGE_BACKEND.
const (
	backendMemory   = "memory"
	backendFile     = "file"
	backendPostgres = "postgres"
	backendRedis    = "redis"
	backendDynamoDB = "dynamodb"
)

// config holds every setting read by parseConfig.
type config struct {
	AppHost  string
	AppPort  string
	LogLevel string

	StorageBackend string
	DataDir        string

	PGHost         string
	PGPort         int
	PGUser         string
	PGPassword     string
	PGDB           string
	PGMaxOpenConns int
	PGMaxIdleConns int

	RedisHost         string
	RedisPort         int
	RedisDB           int
	RedisPassword     string
	RedisPoolSize     int
	RedisMinIdleConns int
	RedisPrefix       string

	DynamoRegion          string
	DynamoEndpoint        string
	DynamoTable           string
	DynamoAccessKeyID     string
	DynamoSecretAccessKey string

	KafkaBrokers []string
	KafkaTopic   string
}

// @title upi-ledger API
// @version 1.0.0
// @description Account ledger: accounts, credits, atomic transfers and an append-only transaction log
// @host localhost:8080
// @BasePath /api/v1
// @schemes http
func main() {
	printBuildInfo()
	configPath := parseFlags()

	cfg, err := parseConfig(configPath)
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}

	if err := run(context.Background(), cfg); err != nil {
		log.Fatalf("application stopped with error: %v", err)
	}
}

// printBuildInfo prints the build version, commit hash, and build date.
func printBuildInfo() {
	fmt.Printf("Starting service version %s, commit %s, build %s\n", buildVersion, buildCommit, buildDate)
}

// parseFlags parses command-line flags and returns the config file path.
func parseFlags() string {
	c := flag.String("c", "config.env", "Path to configuration file")
	flag.Parse()
	return *c
}

// parseConfig loads environment variables from a file and returns the
// application, storage, and Kafka configuration.
func parseConfig(path string) (cfg config, err error) {
	_ = godotenv.Load(path)

	getEnv := func(key, defaultValue string) string {
		if val, ok := os.LookupEnv(key); ok && val != "" {
			return val
		}
		return defaultValue
	}
	getInt := func(key, defaultValue string) (int, error) {
		n, err := strconv.Atoi(getEnv(key, defaultValue))
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}
		return n, nil
	}

	// Application config
	cfg.AppHost = getEnv("APP_HOST", "localhost")
	cfg.AppPort = getEnv("APP_PORT", "8080")
	cfg.LogLevel = getEnv("APP_LOG_LEVEL", "info")

	// Storage config
	cfg.StorageBackend = strings.ToLower(getEnv("STORAGE_BACKEND", backendFile))
	cfg.DataDir = getEnv("DATA_DIR", "data")

	// PostgreSQL config
	cfg.PGHost = getEnv("POSTGRES_HOST", "localhost")
	cfg.PGUser = getEnv("POSTGRES_USER", "user")
	cfg.PGPassword = getEnv("POSTGRES_PASSWORD", "password")
	cfg.PGDB = getEnv("POSTGRES_DB", "ledger")
	if cfg.PGPort, err = getInt("POSTGRES_PORT", "5432"); err != nil {
		return
	}
	if cfg.PGMaxOpenConns, err = getInt("POSTGRES_MAX_OPEN_CONNS", "16"); err != nil {
		return
	}
	if cfg.PGMaxIdleConns, err = getInt("POSTGRES_MAX_IDLE_CONNS", "8"); err != nil {
		return
	}

	// Redis config
	cfg.RedisHost = getEnv("REDIS_HOST", "localhost")
	if cfg.RedisPort, err = getInt("REDIS_PORT", "6379"); err != nil {
		return
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", "0"); err != nil {
		return
	}
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	if cfg.RedisPoolSize, err = getInt("REDIS_POOL_SIZE", "10"); err != nil {
		return
	}
	if cfg.RedisMinIdleConns, err = getInt("REDIS_MIN_IDLE_CONNS", "2"); err != nil {
		return
	}
	cfg.RedisPrefix = getEnv("REDIS_PREFIX", "ledger")

	// DynamoDB config
	cfg.DynamoRegion = getEnv("DYNAMODB_REGION", "us-east-1")
	cfg.DynamoEndpoint = getEnv("DYNAMODB_ENDPOINT", "")
	cfg.DynamoTable = getEnv("DYNAMODB_TABLE", "Ledger")
	cfg.DynamoAccessKeyID = getEnv("DYNAMODB_ACCESS_KEY_ID", "")
	cfg.DynamoSecretAccessKey = getEnv("DYNAMODB_SECRET_ACCESS_KEY", "")

	// Kafka config
	for _, b := range strings.Split(getEnv("KAFKA_BROKERS", ""), ",") {
		if b = strings.TrimSpace(b); b != "" {
			cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
		}
	}
	cfg.KafkaTopic = getEnv("KAFKA_TOPIC", "ledger.transactions")

	return
}

// newStorage builds the configured storage backend. The returned func releases
// its connections.
func newStorage(ctx context.Context, cfg config) (services.LedgerStorage, func(), error) {
	noop := func() {}

	switch cfg.StorageBackend {
	case backendMemory:
		return repositories.NewMemoryRepository(), noop, nil

	case backendFile:
		repo, err := repositories.NewFileRepository(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return repo, noop, nil

	case backendPostgres:
		migrateURL := fmt.Sprintf("pgx5://%s:%s@%s:%d/%s?sslmode=disable",
			cfg.PGUser, cfg.PGPassword, cfg.PGHost, cfg.PGPort, cfg.PGDB)
		if err := repositories.Migrate(migrateURL); err != nil {
			return nil, nil, err
		}

		dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
			cfg.PGUser, cfg.PGPassword, cfg.PGHost, cfg.PGPort, cfg.PGDB)
		db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("PostgreSQL connection error: %w", err)
		}
		db.SetMaxOpenConns(cfg.PGMaxOpenConns)
		db.SetMaxIdleConns(cfg.PGMaxIdleConns)
		logger.Log.Infow("connected to PostgreSQL", "host", cfg.PGHost, "port", cfg.PGPort, "db", cfg.PGDB)
		return repositories.NewPostgresRepository(db), func() { db.Close() }, nil

	case backendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:         fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			PoolSize:     cfg.RedisPoolSize,
			MinIdleConns: cfg.RedisMinIdleConns,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("Redis connection error: %w", err)
		}
		logger.Log.Infow("connected to Redis", "host", cfg.RedisHost, "port", cfg.RedisPort, "db", cfg.RedisDB)
		return repositories.NewRedisRepository(rdb, cfg.RedisPrefix), func() { rdb.Close() }, nil

	case backendDynamoDB:
		opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.DynamoRegion)}
		if cfg.DynamoAccessKeyID != "" {
			opts = append(opts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.DynamoAccessKeyID, cfg.DynamoSecretAccessKey, ""),
			))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("load AWS config: %w", err)
		}

		client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if cfg.DynamoEndpoint != "" {
				o.BaseEndpoint = aws.String(cfg.DynamoEndpoint)
			}
		})
		repo := repositories.NewDynamoRepository(client, cfg.DynamoTable)
		if err := repo.EnsureTable(ctx); err != nil {
			return nil, nil, err
		}
		return repo, noop, nil
	}

	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}

// newKafkaWriter returns a writer for committed transfers, or nil when no brokers are configured.
func newKafkaWriter(cfg config) *kafka.Writer {
	if len(cfg.KafkaBrokers) == 0 {
		return nil
	}

	kafkaLog := logger.Named("kafka")
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Logger:       kafka.LoggerFunc(kafkaLog.Debugf),
		ErrorLogger:  kafka.LoggerFunc(kafkaLog.Errorf),
	}
}

// newRouter mounts the ledger API under /api/v1 and the Swagger UI.
func newRouter(svc *services.LedgerService, appHost, appPort string) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middlewares.LoggingMiddleware(logger.Named("http")))

	r.Route("/api/v1", func(r chi.Router) {
		handlers.RegisterAccountHandlers(r,
			handlers.NewCreateAccountHandler(svc),
			handlers.NewListAccountsHandler(svc),
		)
		handlers.RegisterAddFundsHandler(r, handlers.NewAddFundsHandler(svc))
		handlers.RegisterGetBalanceHandler(r, handlers.NewGetBalanceHandler(svc))
		handlers.RegisterTransferHandler(r, handlers.NewTransferHandler(svc))
		handlers.RegisterListTransactionsHandler(r, handlers.NewListTransactionsHandler(svc))
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://%s:%s/swagger/doc.json", appHost, appPort)),
	))

	return r
}

// run initializes the logger, storage backend, Kafka writer, ledger and HTTP server.
// It sets up routes, applies middleware, and handles graceful shutdown.
func run(ctx context.Context, cfg config) error {
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Println("failed to initialize logger:", err)
		return err
	}
	defer logger.Sync()
	logger.Log.Infof("Logger initialized with level %s", cfg.LogLevel)

	storage, closeStorage, err := newStorage(ctx, cfg)
	if err != nil {
		logger.Log.Errorw("failed to initialize storage", "backend", cfg.StorageBackend, "error", err)
		return err
	}
	defer closeStorage()
	logger.Log.Infow("storage initialized", "backend", cfg.StorageBackend)

	var publisher services.KafkaWriter
	if w := newKafkaWriter(cfg); w != nil {
		publisher = w
		defer func() {
			if err := w.Close(); err != nil {
				logger.Log.Errorw("failed to close Kafka writer", "error", err)
			}
		}()
		logger.Log.Infow("Kafka writer initialized", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	svc, err := services.NewLedgerService(ctx, storage, publisher)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.AppHost, cfg.AppPort),
		Handler:           newRouter(svc, cfg.AppHost, cfg.AppPort),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown
	errChan := make(chan error, 1)
	ctxShutdown, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	go func() {
		logger.Log.Infof("HTTP server listening on %s:%s", cfg.AppHost, cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	select {
	case <-ctxShutdown.Done():
		logger.Log.Info("Shutdown signal received, stopping HTTP server...")
	case serveErr := <-errChan:
		return serveErr
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorw("HTTP server shutdown error", "error", err)
	}

	logger.Log.Info("HTTP server stopped gracefully")
	return nil
}
