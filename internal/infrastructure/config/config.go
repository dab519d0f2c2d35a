package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Gateway       GatewayConfig       `mapstructure:"gateway"`
	SMS           SMSConfig           `mapstructure:"sms"`
	Email         EmailConfig         `mapstructure:"email"`
	Payment       PaymentConfig       `mapstructure:"payment"`
	Reconciler    ReconcilerConfig    `mapstructure:"reconciler"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	InstanceID    string              `mapstructure:"instance_id"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimitPerMin int           `mapstructure:"rate_limit_per_min"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SSLMode         string        `mapstructure:"ssl_mode"`
}

type RedisConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	DB                int           `mapstructure:"db"`
	Password          string        `mapstructure:"password"`
	ConnectRetries    int           `mapstructure:"connect_retries"`
	ConnectRetryDelay time.Duration `mapstructure:"connect_retry_delay"`
}

// GatewayConfig holds the shurjoPay credentials and endpoints. The gateway
// re-authenticates on every outbound call, so no token settings exist here.
type GatewayConfig struct {
	Endpoint                string        `mapstructure:"endpoint"`
	Username                string        `mapstructure:"username"`
	Password                string        `mapstructure:"password"`
	Prefix                  string        `mapstructure:"prefix"`
	ReturnURL               string        `mapstructure:"return_url"`
	RequestTimeout          time.Duration `mapstructure:"request_timeout"`
	CircuitBreakerThreshold uint32        `mapstructure:"circuit_breaker_threshold"`
	CircuitBreakerTimeout   time.Duration `mapstructure:"circuit_breaker_timeout"`
}

type SMSConfig struct {
	APIURL    string `mapstructure:"api_url"`
	APIKey    string `mapstructure:"api_key"`
	SecretKey string `mapstructure:"secret_key"`
	CallerID  string `mapstructure:"caller_id"`
}

type EmailConfig struct {
	APIURL     string `mapstructure:"api_url"`
	APIKey     string `mapstructure:"api_key"`
	From       string `mapstructure:"from"`
	AdminEmail string `mapstructure:"admin_email"`
}

type PaymentConfig struct {
	Currency string `mapstructure:"currency"`
	// ReverifyFailed controls whether a FAILED registration may be
	// re-verified against the gateway. SUCCESS is always guarded.
	ReverifyFailed bool          `mapstructure:"reverify_failed"`
	LockTTL        time.Duration `mapstructure:"lock_ttl"`
	LockRetries    int           `mapstructure:"lock_retries"`
	LockRetryDelay time.Duration `mapstructure:"lock_retry_delay"`
}

type ReconcilerConfig struct {
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	MinPendingAge time.Duration `mapstructure:"min_pending_age"`
	BatchSize     int           `mapstructure:"batch_size"`
}

type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	EnableMetrics  bool   `mapstructure:"enable_metrics"`
	EnableTracing  bool   `mapstructure:"enable_tracing"`
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("NADIYATRA")
	v.AutomaticEnv()

	// Read from config file if exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/nadiyatra")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.read_timeout must be positive"))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.write_timeout must be positive"))
	}
	if c.Database.Host == "" {
		errs = append(errs, fmt.Errorf("database.host is required"))
	}
	if c.Database.Port <= 0 {
		errs = append(errs, fmt.Errorf("database.port must be positive"))
	}
	if c.Redis.Port <= 0 {
		errs = append(errs, fmt.Errorf("redis.port must be positive"))
	}
	if c.Gateway.Endpoint == "" {
		errs = append(errs, fmt.Errorf("gateway.endpoint is required"))
	}
	if len(c.Payment.Currency) != 3 {
		errs = append(errs, fmt.Errorf("payment.currency must be a 3-letter ISO code, got %q", c.Payment.Currency))
	}
	if c.Payment.LockTTL <= 0 {
		errs = append(errs, fmt.Errorf("payment.lock_ttl must be positive"))
	}
	if c.Reconciler.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("reconciler.poll_interval must be positive"))
	}
	if c.Reconciler.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("reconciler.batch_size must be positive"))
	}

	// Production environment checks
	env := os.Getenv("ENV")
	if env == "production" || env == "prod" {
		if c.Database.Password == "" {
			errs = append(errs, fmt.Errorf("database.password required in production"))
		}
		if c.Gateway.Username == "" || c.Gateway.Password == "" {
			errs = append(errs, fmt.Errorf("gateway credentials required in production"))
		}
		if c.SMS.APIKey == "" {
			errs = append(errs, fmt.Errorf("sms.api_key required in production"))
		}
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.rate_limit_per_min", 60)
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.cors.allow_credentials", false)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "nadiyatra")
	v.SetDefault("database.database", "nadiyatra")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.ssl_mode", "disable")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.connect_retries", 5)
	v.SetDefault("redis.connect_retry_delay", "1s")

	// Gateway defaults (sandbox)
	v.SetDefault("gateway.endpoint", "https://sandbox.shurjopayment.com")
	v.SetDefault("gateway.username", "sp_sandbox")
	v.SetDefault("gateway.prefix", "sp")
	v.SetDefault("gateway.return_url", "http://localhost:3000/payment/callback")
	v.SetDefault("gateway.request_timeout", "30s")
	v.SetDefault("gateway.circuit_breaker_threshold", 10)
	v.SetDefault("gateway.circuit_breaker_timeout", "30s")

	// SMS defaults
	v.SetDefault("sms.api_url", "https://api.revesms.com/sendsms")
	v.SetDefault("sms.caller_id", "NadiYatra")

	// Email defaults
	v.SetDefault("email.api_url", "https://api.resend.com/emails")
	v.SetDefault("email.from", "Nadi Yatra <onboarding@resend.dev>")

	// Payment defaults
	v.SetDefault("payment.currency", "BDT")
	v.SetDefault("payment.reverify_failed", true)
	v.SetDefault("payment.lock_ttl", "30s")
	v.SetDefault("payment.lock_retries", 3)
	v.SetDefault("payment.lock_retry_delay", "200ms")

	// Reconciler defaults
	v.SetDefault("reconciler.poll_interval", "5m")
	v.SetDefault("reconciler.min_pending_age", "30m")
	v.SetDefault("reconciler.batch_size", 50)

	// Observability defaults
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.enable_tracing", true)

	// Instance ID
	v.SetDefault("instance_id", "nadiyatra-1")
}

func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
