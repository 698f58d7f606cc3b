package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the recovery server configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Custody     CustodyConfig     `mapstructure:"custody"`
	Attestation AttestationConfig `mapstructure:"attestation"`
	Bridge      BridgeConfig      `mapstructure:"bridge"`
	Identity    IdentityConfig    `mapstructure:"identity"`
	Swap        SwapConfig        `mapstructure:"swap"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig contains recovery registry storage settings.
// Driver "memory" keeps requests process-local; "postgres" makes
// approve/execute transitions crash-safe.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// CustodyConfig contains wallet custody provider settings
type CustodyConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	WalletSetID    string        `mapstructure:"wallet_set_id"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// AttestationConfig contains attestation service polling settings
type AttestationConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	MaxAttempts    uint          `mapstructure:"max_attempts"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// BridgeConfig contains CCTP bridge operation settings
type BridgeConfig struct {
	ConfirmationInterval    time.Duration `mapstructure:"confirmation_interval"`
	ConfirmationMaxAttempts uint          `mapstructure:"confirmation_max_attempts"`
	DestinationChain        string        `mapstructure:"destination_chain"`
}

// IdentityConfig contains identity registry service settings
type IdentityConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// SwapConfig contains DEX swap service settings
type SwapConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// MonitoringConfig contains monitoring and metrics settings
type MonitoringConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MetricsPort int  `mapstructure:"metrics_port"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "60s")
	viper.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	viper.SetDefault("database.driver", "memory")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.database", "recovery")

	// Custody defaults
	viper.SetDefault("custody.base_url", "https://api.circle.com")
	viper.SetDefault("custody.request_timeout", "30s")

	// Attestation defaults: 5s interval, 60 attempts (5-minute ceiling)
	viper.SetDefault("attestation.base_url", "https://iris-api-sandbox.circle.com")
	viper.SetDefault("attestation.poll_interval", "5s")
	viper.SetDefault("attestation.max_attempts", 60)
	viper.SetDefault("attestation.request_timeout", "10s")

	// Bridge defaults: confirmation wait matches the attestation ceiling
	viper.SetDefault("bridge.confirmation_interval", "5s")
	viper.SetDefault("bridge.confirmation_max_attempts", 60)
	viper.SetDefault("bridge.destination_chain", "ETH-SEPOLIA")

	// Identity defaults
	viper.SetDefault("identity.base_url", "http://localhost:8545")
	viper.SetDefault("identity.request_timeout", "30s")

	// Swap defaults
	viper.SetDefault("swap.base_url", "http://localhost:8546")
	viper.SetDefault("swap.request_timeout", "60s")

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.metrics_port", 9090)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output_path", "stdout")
}

func validate(config *Config) error {
	if config.Custody.BaseURL == "" {
		return fmt.Errorf("custody.base_url is required")
	}
	if config.Attestation.BaseURL == "" {
		return fmt.Errorf("attestation.base_url is required")
	}
	if config.Identity.BaseURL == "" {
		return fmt.Errorf("identity.base_url is required")
	}
	switch config.Database.Driver {
	case "memory":
	case "postgres":
		if config.Database.Host == "" {
			return fmt.Errorf("database.host is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown database.driver %q", config.Database.Driver)
	}
	return nil
}
