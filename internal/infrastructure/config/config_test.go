package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "test",
			Password: "test",
			Database: "test_db",
			SSLMode:  "disable",
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
		},
		Gateway: GatewayConfig{
			Endpoint: "https://sandbox.shurjopayment.com",
		},
		Payment: PaymentConfig{
			Currency: "BDT",
			LockTTL:  30 * time.Second,
		},
		Reconciler: ReconcilerConfig{
			PollInterval: 5 * time.Minute,
			BatchSize:    50,
		},
	}
}

func TestConfig_Validate_Success(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Validate_InvalidServerPort(t *testing.T) {
	tests := []struct {
		name string
		port int
	}{
		{"port too low", 0},
		{"port negative", -1},
		{"port too high", 99999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Server.Port = tt.port

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "server.port")
		})
	}
}

func TestConfig_Validate_MissingGatewayEndpoint(t *testing.T) {
	cfg := validConfig()
	cfg.Gateway.Endpoint = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gateway.endpoint")
}

func TestConfig_Validate_BadCurrency(t *testing.T) {
	cfg := validConfig()
	cfg.Payment.Currency = "TAKA"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payment.currency")
}

func TestConfig_Validate_ReconcilerBounds(t *testing.T) {
	cfg := validConfig()
	cfg.Reconciler.BatchSize = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reconciler.batch_size")

	cfg = validConfig()
	cfg.Reconciler.PollInterval = 0
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reconciler.poll_interval")
}

func TestConfig_Validate_CollectsMultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.Gateway.Endpoint = ""
	cfg.Payment.Currency = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
	assert.Contains(t, err.Error(), "gateway.endpoint")
	assert.Contains(t, err.Error(), "payment.currency")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "BDT", cfg.Payment.Currency)
	assert.True(t, cfg.Payment.ReverifyFailed)
	assert.Equal(t, "https://sandbox.shurjopayment.com", cfg.Gateway.Endpoint)
	assert.Equal(t, 5*time.Minute, cfg.Reconciler.PollInterval)
	assert.Equal(t, 50, cfg.Reconciler.BatchSize)
}

func TestDatabaseDSN(t *testing.T) {
	cfg := validConfig()
	dsn := cfg.Database.DatabaseDSN()
	assert.Contains(t, dsn, "host=localhost")
	assert.Contains(t, dsn, "dbname=test_db")
	assert.Contains(t, dsn, "sslmode=disable")
}

func TestRedisAddr(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "localhost:6379", cfg.Redis.RedisAddr())
}
