// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// collaborator of an invocation (Guardian API, credential store, Kafka, Redis,
// Postgres) and for the serve and schedule triggers.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Credential sources understood by CredentialsConfig.Source.
const (
	SourceEnv      = "env"
	SourceRedis    = "redis"
	SourcePostgres = "postgres"
)

// Config is the top-level application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Guardian    GuardianConfig    `yaml:"guardian"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Postgres    PostgresConfig    `yaml:"postgres"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Redis       RedisConfig       `yaml:"redis"`
	Logging     LoggingConfig     `yaml:"logging"`
	Tracing     TracingConfig     `yaml:"tracing"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Schedules   []ScheduleConfig  `yaml:"schedules"`
}

// ServerConfig holds HTTP server settings for the serve trigger.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// GuardianConfig points the content fetcher at the search endpoint.
// A zero Timeout leaves the deadline to the caller's context.
type GuardianConfig struct {
	BaseURL string        `yaml:"baseUrl"`
	Timeout time.Duration `yaml:"timeout"`
}

// CredentialsConfig selects where the Guardian API key is read from.
type CredentialsConfig struct {
	Source     string `yaml:"source"`
	SecretName string `yaml:"secretName"`
	EnvVar     string `yaml:"envVar"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds broker settings. Topics are not configured here: the
// destination queue of each invocation is named by its event.
type KafkaConfig struct {
	Brokers       []string      `yaml:"brokers"`
	ConsumerGroup string        `yaml:"consumerGroup"`
	BatchTimeout  time.Duration `yaml:"batchTimeout"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"poolSize"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig toggles logging of per-invocation stage spans.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// ScheduleConfig runs Event on the cron Spec. Event values are kept as
// strings so that YAML dates are not decoded into timestamps.
type ScheduleConfig struct {
	Name  string            `yaml:"name"`
	Spec  string            `yaml:"spec"`
	Event map[string]string `yaml:"event"`
}

// EventMap converts the schedule's event into the mapping an invocation takes.
func (s ScheduleConfig) EventMap() map[string]any {
	event := make(map[string]any, len(s.Event))
	for k, v := range s.Event {
		event[k] = v
	}
	return event
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports configuration that would make every invocation fail.
func (c *Config) Validate() error {
	var problems []string
	switch c.Credentials.Source {
	case SourceEnv:
		if c.Credentials.EnvVar == "" {
			problems = append(problems, "credentials.envVar is required for the env source")
		}
	case SourceRedis, SourcePostgres:
		if c.Credentials.SecretName == "" {
			problems = append(problems, "credentials.secretName is required")
		}
	default:
		problems = append(problems, fmt.Sprintf("credentials.source %q is not one of env, redis, postgres", c.Credentials.Source))
	}
	if len(c.Kafka.Brokers) == 0 {
		problems = append(problems, "kafka.brokers must not be empty")
	}
	if c.Guardian.BaseURL == "" {
		problems = append(problems, "guardian.baseUrl must not be empty")
	}
	if c.Guardian.Timeout < 0 {
		problems = append(problems, "guardian.timeout must not be negative")
	}
	for i, s := range c.Schedules {
		if strings.TrimSpace(s.Spec) == "" {
			problems = append(problems, fmt.Sprintf("schedules[%d].spec must not be empty", i))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// defaultConfig returns a Config with defaults suited to local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Guardian: GuardianConfig{
			BaseURL: "https://content.guardianapis.com/search",
		},
		Credentials: CredentialsConfig{
			Source:     SourceEnv,
			SecretName: "guardian_api_key",
			EnvVar:     "GUARDIAN_API_KEY",
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "guardianstream",
			User:            "guardianstream",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "guardianstream-tail",
			BatchTimeout:  10 * time.Millisecond,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads GS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("GS_GUARDIAN_BASE_URL"); v != "" {
		cfg.Guardian.BaseURL = v
	}
	if v := os.Getenv("GS_GUARDIAN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Guardian.Timeout = d
		}
	}
	if v := os.Getenv("GS_CREDENTIALS_SOURCE"); v != "" {
		cfg.Credentials.Source = v
	}
	if v := os.Getenv("GS_CREDENTIALS_SECRET_NAME"); v != "" {
		cfg.Credentials.SecretName = v
	}
	if v := os.Getenv("GS_CREDENTIALS_ENV_VAR"); v != "" {
		cfg.Credentials.EnvVar = v
	}
	if v := os.Getenv("GS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("GS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("GS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("GS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("GS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("GS_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("GS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("GS_KAFKA_CONSUMER_GROUP"); v != "" {
		cfg.Kafka.ConsumerGroup = v
	}
	if v := os.Getenv("GS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("GS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("GS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("GS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("GS_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = v == "true"
	}
	if v := os.Getenv("GS_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
	if v := os.Getenv("GS_TRACING_ENABLED"); v != "" {
		cfg.Tracing.Enabled = v == "true"
	}
}
