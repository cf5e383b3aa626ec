// Package config loads ACP core configuration from compiled-in defaults,
// an optional YAML file, and environment variables, each overriding the
// one before. A .env file, if present, is loaded into the environment
// first and does not replace variables that are already set.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServerConfig controls the HTTP facade.
type ServerConfig struct {
	Host string `yaml:"host" env:"ACP_SERVER_HOST"`
	Port int    `yaml:"port" env:"ACP_SERVER_PORT"`
}

// DatabaseConfig controls the Postgres persistence gateway.
type DatabaseConfig struct {
	DSN             string `yaml:"dsn" env:"ACP_DATABASE_DSN"`
	MaxOpenConns    int    `yaml:"max_open_conns" env:"ACP_DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `yaml:"max_idle_conns" env:"ACP_DATABASE_MAX_IDLE_CONNS"`
	MigrateOnStart  bool   `yaml:"migrate_on_start" env:"ACP_DATABASE_MIGRATE_ON_START"`
}

// LoggingConfig controls the logrus wrapper.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"ACP_LOG_LEVEL"`
	Format string `yaml:"format" env:"ACP_LOG_FORMAT"`
}

// VaultConfig supplies the Keypair Vault's process secret. The name matches
// spec.md §6: CLODDS_ESCROW_KEY or CLODDS_CREDENTIAL_KEY (either satisfies
// the requirement; ESCROW_KEY is preferred when both are set).
type VaultConfig struct {
	EscrowKey     string `env:"CLODDS_ESCROW_KEY"`
	CredentialKey string `env:"CLODDS_CREDENTIAL_KEY"`
}

// Secret returns the configured vault process secret, preferring EscrowKey.
func (v VaultConfig) Secret() string {
	if v.EscrowKey != "" {
		return v.EscrowKey
	}
	return v.CredentialKey
}

// OrchestrationConfig controls heartbeat, task timeout/retry defaults, and
// load-balancing policy, per spec.md §6.
type OrchestrationConfig struct {
	HeartbeatIntervalSeconds int    `yaml:"heartbeat_interval_seconds" env:"ACP_HEARTBEAT_INTERVAL_SECONDS"`
	TaskTimeoutSeconds       int    `yaml:"task_timeout_seconds" env:"ACP_TASK_TIMEOUT_SECONDS"`
	MaxRetries               int    `yaml:"max_retries" env:"ACP_MAX_RETRIES"`
	LoadBalancing            string `yaml:"load_balancing" env:"ACP_LOAD_BALANCING"`
}

// DiscoveryConfig carries the scoring weights from spec.md §4.6 as
// overridable static configuration rather than compiled-in constants.
type DiscoveryConfig struct {
	WeightRelevance   float64 `yaml:"weight_relevance"`
	WeightReputation  float64 `yaml:"weight_reputation"`
	WeightPrice       float64 `yaml:"weight_price"`
	WeightAvailability float64 `yaml:"weight_availability"`
	WeightExperience  float64 `yaml:"weight_experience"`
}

// AuthConfig controls the HTTP facade's bearer-token middleware.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"ACP_AUTH_JWT_SECRET"`
}

// EscrowConfig controls the Escrow Engine's background sweeps.
type EscrowConfig struct {
	ExpirySweepIntervalSeconds int `yaml:"expiry_sweep_interval_seconds" env:"ACP_ESCROW_EXPIRY_SWEEP_INTERVAL_SECONDS"`
}

// ExpirySweepInterval is ExpirySweepIntervalSeconds as a time.Duration.
func (e EscrowConfig) ExpirySweepInterval() time.Duration {
	return time.Duration(e.ExpirySweepIntervalSeconds) * time.Second
}

// Config is the top-level configuration for the acpd process.
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Logging       LoggingConfig
	Vault         VaultConfig
	Orchestration OrchestrationConfig
	Discovery     DiscoveryConfig
	Auth          AuthConfig
	Escrow        EscrowConfig
}

// Defaults returns a Config populated with the defaults named in spec.md §6.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		Database: DatabaseConfig{
			MaxOpenConns:   10,
			MaxIdleConns:   5,
			MigrateOnStart: true,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Orchestration: OrchestrationConfig{
			HeartbeatIntervalSeconds: 30,
			TaskTimeoutSeconds:       300,
			MaxRetries:               3,
			LoadBalancing:            "round-robin",
		},
		Discovery: DiscoveryConfig{
			WeightRelevance:    0.35,
			WeightReputation:   0.25,
			WeightPrice:        0.20,
			WeightAvailability: 0.10,
			WeightExperience:   0.10,
		},
		Escrow: EscrowConfig{ExpirySweepIntervalSeconds: 300},
	}
}

// Load loads a .env file if present, overlays an optional YAML file named by
// ACP_CONFIG_FILE (or configs/acp.yaml by default), then applies environment
// variable overrides via envdecode.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()

	path := strings.TrimSpace(os.Getenv("ACP_CONFIG_FILE"))
	if path == "" {
		path = "configs/acp.yaml"
	}
	if err := loadYAML(path, cfg); err != nil {
		return nil, err
	}

	if err := envdecode.Decode(cfg); err != nil {
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return nil, fmt.Errorf("decode env: %w", err)
		}
	}

	return cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
