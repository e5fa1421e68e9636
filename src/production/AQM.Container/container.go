package container

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.ApiService/health"
	"gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.ApiService/metrics"
	config "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Config"
	logger "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Logger"
	implementation "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Repository/Implementation"
	interfaces "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Repository/Interfaces"
	"go.mongodb.org/mongo-driver/mongo"
)

const connectTimeout = 20 * time.Second

// Container manages dependencies and their lifecycle
type Container struct {
	config *config.Config
	logger *logger.Logger

	repo          interfaces.ReadingRepository
	healthChecker *health.HealthChecker
	metrics       *metrics.Metrics

	connectMongo func(*config.Config, time.Duration) (*mongo.Client, error)

	// Mutex for thread-safe access
	mu sync.Mutex

	// Cleanup functions
	cleanupFuncs []func() error
}

// IngestorContainer manages dependencies for the MQTT ingestor service
type IngestorContainer struct {
	*Container
}

// NewContainer creates a new dependency injection container
func NewContainer() (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return newContainer(cfg), nil
}

// NewIngestorContainer creates a new container for the MQTT ingestor service
func NewIngestorContainer() (*IngestorContainer, error) {
	cfg, err := config.LoadIngestorConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load ingestor configuration: %w", err)
	}
	return &IngestorContainer{Container: newContainer(cfg)}, nil
}

// NewContainerWithConfig builds a container around an already loaded configuration
func NewContainerWithConfig(cfg *config.Config, log *logger.Logger) *Container {
	return &Container{
		config:       cfg,
		logger:       log,
		connectMongo: health.ConnectMongoWithTimeout,
	}
}

func newContainer(cfg *config.Config) *Container {
	return NewContainerWithConfig(cfg, logger.NewLogger(&cfg.Logging))
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.logger
}

// GetMetrics returns the process-wide metrics registry
func (c *Container) GetMetrics() *metrics.Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.metrics == nil {
		c.metrics = metrics.NewMetrics()
	}
	return c.metrics
}

// GetReadingRepository connects the configured backend on first use
func (c *Container) GetReadingRepository(ctx context.Context) (interfaces.ReadingRepository, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.repo != nil {
		return c.repo, nil
	}

	var (
		repo interfaces.ReadingRepository
		err  error
	)
	switch c.config.Store.Backend {
	case config.BackendDynamoDB:
		repo, err = c.dynamoRepository(ctx)
	case config.BackendMongoDB:
		repo, err = c.mongoRepository(ctx)
	case config.BackendPostgres:
		repo, err = c.postgresRepository(ctx)
	case config.BackendMemory:
		repo = implementation.NewMemoryReadingRepository()
	default:
		err = fmt.Errorf("unknown store backend %q", c.config.Store.Backend)
	}
	if err != nil {
		return nil, err
	}

	c.logger.Logger.Info().
		Str("backend", c.config.Store.Backend).
		Str("store", c.config.StoreName()).
		Msg("Reading store ready")

	c.repo = repo
	return c.repo, nil
}

func (c *Container) dynamoRepository(ctx context.Context) (interfaces.ReadingRepository, error) {
	client, err := health.NewDynamoClient(ctx, c.config)
	if err != nil {
		return nil, fmt.Errorf("failed to create DynamoDB client: %w", err)
	}
	return implementation.NewDynamoReadingRepository(client, c.config.Store.DynamoDB.TableName), nil
}

func (c *Container) mongoRepository(ctx context.Context) (interfaces.ReadingRepository, error) {
	client, err := c.connectMongo(c.config, connectTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	coll := client.Database(c.config.Store.MongoDB.Database).Collection(c.config.Store.MongoDB.Collection)
	repo := implementation.NewMongoReadingRepository(coll)
	if err := repo.EnsureIndexes(ctx); err != nil {
		if derr := client.Disconnect(context.Background()); derr != nil {
			c.logger.ErrorWithError(derr, "Error disconnecting MongoDB")
		}
		return nil, fmt.Errorf("failed to create MongoDB indexes: %w", err)
	}

	c.cleanupFuncs = append(c.cleanupFuncs, func() error {
		return client.Disconnect(context.Background())
	})
	return repo, nil
}

func (c *Container) postgresRepository(ctx context.Context) (interfaces.ReadingRepository, error) {
	db, err := health.ConnectPostgresWithTimeout(c.config, connectTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repo := implementation.NewPostgresReadingRepository(db)
	if err := repo.CreateTables(ctx); err != nil {
		if cerr := db.Close(); cerr != nil {
			c.logger.ErrorWithError(cerr, "Error closing database")
		}
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	c.cleanupFuncs = append(c.cleanupFuncs, db.Close)
	c.logger.Info("Database initialized successfully")
	return repo, nil
}

// GetHealthChecker returns the health checker
func (c *Container) GetHealthChecker(ctx context.Context) (*health.HealthChecker, error) {
	repo, err := c.GetReadingRepository(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get store for health checker: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.healthChecker == nil {
		c.healthChecker = health.NewHealthChecker(repo, c.config)
	}
	return c.healthChecker, nil
}

// Shutdown gracefully shuts down the container and all its dependencies
func (c *Container) Shutdown(ctx context.Context) error {
	c.logger.Info("Shutting down container...")

	c.mu.Lock()
	funcs := c.cleanupFuncs
	c.cleanupFuncs = nil
	c.mu.Unlock()

	// Execute cleanup functions in reverse order
	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](); err != nil {
			c.logger.ErrorWithError(err, "Error during cleanup")
		}
	}

	c.logger.Info("Container shutdown complete")
	return nil
}

// AddCleanupFunc adds a cleanup function
func (c *Container) AddCleanupFunc(fn func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
}
