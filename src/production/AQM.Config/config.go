package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends
const (
	BackendDynamoDB = "dynamodb"
	BackendMongoDB  = "mongodb"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	// Environment name reported by the health endpoint
	Environment string `json:"environment"`

	// Server configuration
	Server ServerConfig `json:"server"`

	// Store configuration
	Store StoreConfig `json:"store"`

	// Ingestion configuration
	Ingest IngestConfig `json:"ingest"`

	// MQTT configuration
	MQTT MQTTConfig `json:"mqtt"`

	// Logging configuration
	Logging LoggingConfig `json:"logging"`

	// CORS configuration
	CORS CORSConfig `json:"cors"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port         string        `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// StoreConfig selects and configures the reading store
type StoreConfig struct {
	Backend string        `json:"backend"`
	Timeout time.Duration `json:"timeout"`

	DynamoDB DynamoDBConfig `json:"dynamodb"`
	MongoDB  MongoDBConfig  `json:"mongodb"`
	Database DatabaseConfig `json:"database"`
}

// DynamoDBConfig holds DynamoDB-related configuration
type DynamoDBConfig struct {
	Region    string `json:"region"`
	TableName string `json:"table_name"`
	Endpoint  string `json:"endpoint"` // optional, e.g. DynamoDB Local
}

// MongoDBConfig holds MongoDB-related configuration
type MongoDBConfig struct {
	URI        string `json:"uri"`
	Database   string `json:"database"`
	Collection string `json:"collection"`
}

// DatabaseConfig holds PostgreSQL-related configuration
type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
	MaxConns int    `json:"max_conns"`
	MinConns int    `json:"min_conns"`
}

// IngestConfig holds ingestion-related configuration
type IngestConfig struct {
	DefaultDeviceID string `json:"default_device_id"`
	APIKey          string `json:"api_key"`
}

// MQTTConfig holds MQTT-related configuration
type MQTTConfig struct {
	Enabled     bool          `json:"enabled"`
	BrokerHost  string        `json:"broker_host"`
	BrokerPort  int           `json:"broker_port"`
	BrokerUser  string        `json:"broker_user"`
	BrokerPass  string        `json:"broker_pass"`
	UseTLS      bool          `json:"use_tls"`
	CACertPath  string        `json:"ca_cert_path"`
	Topic       string        `json:"topic"`
	ErrorTopic  string        `json:"error_topic"`
	ClientID    string        `json:"client_id"`
	SharedGroup string        `json:"shared_group"`
	KeepAlive   time.Duration `json:"keep_alive"`
	PingTimeout time.Duration `json:"ping_timeout"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level        string `json:"level"`
	Format       string `json:"format"` // json or text
	Output       string `json:"output"` // stdout or stderr
	EnableCaller bool   `json:"enable_caller"`
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	ExposedHeaders   []string `json:"exposed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	MaxAge           int      `json:"max_age"`
}

// Load loads configuration from environment variables with fallback defaults
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	config := &Config{
		Environment: getEnv("NODE_ENV", getEnv("APP_ENV", "production")),
		Server: ServerConfig{
			Port:         getEnv("PORT", "3000"),
			ReadTimeout:  getDuration("READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDuration("WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDuration("IDLE_TIMEOUT", 120*time.Second),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(getEnv("STORE_BACKEND", BackendDynamoDB)),
			Timeout: getDuration("STORE_TIMEOUT", 10*time.Second),
			DynamoDB: DynamoDBConfig{
				Region:    getEnv("AWS_REGION", "us-east-1"),
				TableName: getEnv("DYNAMODB_TABLE_NAME", "air-monitor-readings"),
				Endpoint:  getEnv("DYNAMODB_ENDPOINT", ""),
			},
			MongoDB: MongoDBConfig{
				URI:        getEnv("MONGODB_URI", ""),
				Database:   getEnv("MONGODB_DB", "iot"),
				Collection: getEnv("MONGODB_COLLECTION", "readings"),
			},
			Database: DatabaseConfig{
				Host:     getEnv("POSTGRES_HOST", "localhost"),
				Port:     getInt("POSTGRES_PORT", 5432),
				User:     getEnv("POSTGRES_USER", ""),
				Password: getEnv("POSTGRES_PASSWORD", ""),
				DBName:   getEnv("POSTGRES_DB", "iot"),
				SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
				MaxConns: getInt("POSTGRES_MAX_CONNS", 25),
				MinConns: getInt("POSTGRES_MIN_CONNS", 5),
			},
		},
		Ingest: IngestConfig{
			DefaultDeviceID: getEnv("DEFAULT_DEVICE_ID", "air-monitor-01"),
			APIKey:          getEnv("INGEST_API_KEY", ""),
		},
		MQTT: MQTTConfig{
			Enabled:     getBool("MQTT_ENABLED", false),
			BrokerHost:  getEnv("BROKER_HOST", "localhost"),
			BrokerPort:  getInt("BROKER_PORT", 1883),
			BrokerUser:  getEnv("BROKER_USER", ""),
			BrokerPass:  getEnv("BROKER_PASS", ""),
			UseTLS:      getBool("BROKER_TLS", false),
			CACertPath:  getEnv("BROKER_CA_FILE", ""),
			Topic:       getEnv("MQTT_TOPIC", "air-monitor/+/readings"),
			ErrorTopic:  getEnv("MQTT_ERROR_TOPIC", "air-monitor/errors"),
			ClientID:    getEnv("MQTT_CLIENT_ID", "aqm-ingestor"),
			SharedGroup: getEnv("MQTT_SHARED_GROUP", ""),
			KeepAlive:   getDuration("MQTT_KEEP_ALIVE", 30*time.Second),
			PingTimeout: getDuration("MQTT_PING_TIMEOUT", 10*time.Second),
		},
		Logging: LoggingConfig{
			Level:        getEnv("LOG_LEVEL", "info"),
			Format:       getEnv("LOG_FORMAT", "text"),
			Output:       getEnv("LOG_OUTPUT", "stdout"),
			EnableCaller: getBool("LOG_ENABLE_CALLER", false),
		},
		CORS: CORSConfig{
			AllowedOrigins:   getStringSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods:   getStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders:   getStringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization", "x-api-key"}),
			ExposedHeaders:   getStringSlice("CORS_EXPOSED_HEADERS", []string{"Content-Length", "X-Request-ID"}),
			AllowCredentials: getBool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           getInt("CORS_MAX_AGE", 43200), // 12 hours
		},
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// LoadIngestorConfig loads configuration for the MQTT ingestor service.
// The broker must be enabled explicitly.
func LoadIngestorConfig() (*Config, error) {
	config, err := Load()
	if err != nil {
		return nil, err
	}
	if !config.MQTT.Enabled {
		return nil, fmt.Errorf("MQTT_ENABLED must be true to run the ingestor")
	}
	if config.MQTT.BrokerHost == "" {
		return nil, fmt.Errorf("BROKER_HOST is required")
	}
	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendDynamoDB:
		if c.Store.DynamoDB.TableName == "" {
			return fmt.Errorf("DYNAMODB_TABLE_NAME is required")
		}
		if c.Store.DynamoDB.Region == "" {
			return fmt.Errorf("AWS_REGION is required")
		}
	case BackendMongoDB:
		if c.Store.MongoDB.URI == "" {
			return fmt.Errorf("MONGODB_URI is required for the mongodb backend")
		}
	case BackendPostgres:
		if c.Store.Database.User == "" {
			return fmt.Errorf("POSTGRES_USER is required for the postgres backend")
		}
		if c.Store.Database.Password == "" {
			return fmt.Errorf("POSTGRES_PASSWORD is required for the postgres backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}

	if c.Ingest.DefaultDeviceID == "" {
		return fmt.Errorf("DEFAULT_DEVICE_ID must not be empty")
	}
	if c.Store.Timeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive")
	}
	if c.Ingest.APIKey == "" {
		log.Println("WARNING: INGEST_API_KEY is not set, POST /readings accepts unauthenticated writes")
	}
	return nil
}

// StoreName returns the table or collection readings are kept in, for display
func (c *Config) StoreName() string {
	switch c.Store.Backend {
	case BackendDynamoDB:
		return c.Store.DynamoDB.TableName
	case BackendMongoDB:
		return c.Store.MongoDB.Database + "." + c.Store.MongoDB.Collection
	case BackendPostgres:
		return c.Store.Database.DBName + ".readings"
	default:
		return "memory"
	}
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	db := c.Store.Database
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		db.Host, db.Port, db.User, db.Password, db.DBName, db.SSLMode)
}

// GetMQTTBrokerURL returns the MQTT broker URL
func (c *Config) GetMQTTBrokerURL() string {
	scheme := "tcp"
	if c.MQTT.UseTLS {
		scheme = "tcps"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.MQTT.BrokerHost, c.MQTT.BrokerPort)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return intValue
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if value == "1" || value == "true" || value == "TRUE" {
		return true
	}
	if value == "0" || value == "false" || value == "FALSE" {
		return false
	}
	log.Fatalf("invalid %s: %q (expected true/false or 1/0)", key, value)
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return duration
}

func getStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
