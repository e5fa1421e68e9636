package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("PORT", "")
	t.Setenv("DEFAULT_DEVICE_ID", "")
	for _, key := range []string{"AWS_REGION", "DYNAMODB_TABLE_NAME", "STORE_TIMEOUT", "MQTT_ENABLED"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendDynamoDB, cfg.Store.Backend)
	assert.Equal(t, "air-monitor-readings", cfg.Store.DynamoDB.TableName)
	assert.Equal(t, "us-east-1", cfg.Store.DynamoDB.Region)
	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "air-monitor-01", cfg.Ingest.DefaultDeviceID)
	assert.Equal(t, 10*time.Second, cfg.Store.Timeout)
	assert.False(t, cfg.MQTT.Enabled)
}

func TestLoad_MemoryBackendOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "MEMORY")
	t.Setenv("PORT", "8081")
	t.Setenv("DEFAULT_DEVICE_ID", "kitchen")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.local, http://b.local,")
	t.Setenv("STORE_TIMEOUT", "2s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, "8081", cfg.Server.Port)
	assert.Equal(t, "kitchen", cfg.Ingest.DefaultDeviceID)
	assert.Equal(t, []string{"http://a.local", "http://b.local"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 2*time.Second, cfg.Store.Timeout)
	assert.Equal(t, "memory", cfg.StoreName())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Store: StoreConfig{
				Backend:  BackendDynamoDB,
				Timeout:  time.Second,
				DynamoDB: DynamoDBConfig{Region: "us-east-1", TableName: "t"},
			},
			Ingest: IngestConfig{DefaultDeviceID: "d", APIKey: "k"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "dynamodb ok", mutate: func(c *Config) {}},
		{name: "unknown backend", mutate: func(c *Config) { c.Store.Backend = "cassandra" }, wantErr: "unknown STORE_BACKEND"},
		{name: "mongo without uri", mutate: func(c *Config) { c.Store.Backend = BackendMongoDB }, wantErr: "MONGODB_URI"},
		{name: "postgres without user", mutate: func(c *Config) { c.Store.Backend = BackendPostgres }, wantErr: "POSTGRES_USER"},
		{name: "empty default device", mutate: func(c *Config) { c.Ingest.DefaultDeviceID = "" }, wantErr: "DEFAULT_DEVICE_ID"},
		{name: "zero store timeout", mutate: func(c *Config) { c.Store.Timeout = 0 }, wantErr: "STORE_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetMQTTBrokerURL(t *testing.T) {
	c := &Config{MQTT: MQTTConfig{BrokerHost: "broker", BrokerPort: 8883, UseTLS: true}}
	assert.Equal(t, "tcps://broker:8883", c.GetMQTTBrokerURL())

	c.MQTT.UseTLS = false
	c.MQTT.BrokerPort = 1883
	assert.Equal(t, "tcp://broker:1883", c.GetMQTTBrokerURL())
}
