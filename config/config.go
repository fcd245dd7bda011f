package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/patricknguyendev/simplygrocery/internal/optimizer"
)

// Config holds the application configuration
type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Database  DatabaseConfig   `mapstructure:"database"`
	RateLimit RateLimitConfig  `mapstructure:"rate_limit"`
	Distance  DistanceConfig   `mapstructure:"distance"`
	Optimizer optimizer.Config `mapstructure:"optimizer"`
	Logging   LoggingConfig    `mapstructure:"logging"`
	Auth      AuthConfig       `mapstructure:"auth"`
	Telemetry TelemetryConfig  `mapstructure:"telemetry"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// RateLimitConfig holds outbound HTTP retry configuration
type RateLimitConfig struct {
	RequestsPerSecond int `mapstructure:"requests_per_second"`
	MaxRetries        int `mapstructure:"max_retries"`
	InitialBackoffMs  int `mapstructure:"initial_backoff_ms"`
	MaxBackoffMs      int `mapstructure:"max_backoff_ms"`
}

// DistanceConfig holds the Distance Matrix provider configuration
type DistanceConfig struct {
	GoogleAPIKey        string        `mapstructure:"google_api_key"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
	MaxOrigins          int           `mapstructure:"max_origins"`
	MaxDestinations     int           `mapstructure:"max_destinations"`
	MaxElements         int           `mapstructure:"max_elements"`
	BreakerMaxFailures  int           `mapstructure:"breaker_max_failures"`
	BreakerResetTimeout time.Duration `mapstructure:"breaker_reset_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// AuthConfig holds credentials for the internal admin surface
type AuthConfig struct {
	AdminAPIKey string `mapstructure:"admin_api_key"`
}

// TelemetryConfig holds OpenTelemetry export configuration
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

var globalConfig *Config

// Load loads the configuration from file, .env, and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// .env is optional, log but don't fail
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg(".env file not loaded")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("SIMPLYGROCERY")

	bindEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Optimizer.Validate(); err != nil {
		return nil, fmt.Errorf("invalid optimizer config: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// Get returns the loaded configuration, or nil before Load succeeds.
func Get() *Config {
	return globalConfig
}

// bindEnvVars binds flat environment variables to nested config keys
func bindEnvVars(v *viper.Viper) {
	v.BindEnv("database.url", "DATABASE_URL")

	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.host", "HOST")

	v.BindEnv("logging.level", "LOG_LEVEL")

	v.BindEnv("distance.google_api_key", "GOOGLE_MAPS_API_KEY")

	v.BindEnv("auth.admin_api_key", "ADMIN_API_KEY")

	v.BindEnv("telemetry.otlp_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.max_conn_lifetime", 1*time.Hour)
	v.SetDefault("database.max_conn_idle_time", 30*time.Minute)

	// Outbound HTTP defaults
	v.SetDefault("rate_limit.requests_per_second", 5)
	v.SetDefault("rate_limit.max_retries", 3)
	v.SetDefault("rate_limit.initial_backoff_ms", 100)
	v.SetDefault("rate_limit.max_backoff_ms", 10000)

	// Distance Matrix defaults mirror the Google per-request maximums
	v.SetDefault("distance.request_timeout", 10*time.Second)
	v.SetDefault("distance.max_origins", 25)
	v.SetDefault("distance.max_destinations", 25)
	v.SetDefault("distance.max_elements", 100)
	v.SetDefault("distance.breaker_max_failures", 5)
	v.SetDefault("distance.breaker_reset_timeout", 30*time.Second)

	// Planning defaults
	opt := optimizer.Defaults()
	v.SetDefault("optimizer.default_max_stores", opt.DefaultMaxStores)
	v.SetDefault("optimizer.balanced_max_stores", opt.BalancedMaxStores)
	v.SetDefault("optimizer.default_radius_km", opt.DefaultRadiusKm)
	v.SetDefault("optimizer.max_radius_km", opt.MaxRadiusKm)
	v.SetDefault("optimizer.max_items", opt.MaxItems)
	v.SetDefault("optimizer.availability_weight", opt.AvailabilityWeight)
	v.SetDefault("optimizer.distance_floor_km", opt.DistanceFloorKm)
	v.SetDefault("optimizer.baseline_chains", opt.BaselineChains)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.no_color", false)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "simplygrocery")
	v.SetDefault("telemetry.otlp_endpoint", "")
}
