package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/telhawk-systems/segmenter/pkg/model"
)

// Config contains runtime configuration for the segment service.
type Config struct {
	Server      ServerConfig   `yaml:"server" mapstructure:"server"`
	Logging     LoggingConfig  `yaml:"logging" mapstructure:"logging"`
	Mongo       MongoConfig    `yaml:"mongo" mapstructure:"mongo"`
	Redis       RedisConfig    `yaml:"redis" mapstructure:"redis"`
	NATS        NATSConfig     `yaml:"nats" mapstructure:"nats"`
	Segments    SegmentsConfig `yaml:"segments" mapstructure:"segments"`
	CORS        CORSConfig     `yaml:"cors" mapstructure:"cors"`
	DatabaseURL string         `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig captures HTTP server settings.
type ServerConfig struct {
	Port                int `yaml:"port" mapstructure:"port"`
	ReadTimeoutSeconds  int `yaml:"read_timeout_seconds" mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds" mapstructure:"write_timeout_seconds"`
	IdleTimeoutSeconds  int `yaml:"idle_timeout_seconds" mapstructure:"idle_timeout_seconds"`
}

func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSeconds) * time.Second
}

func (s ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSeconds) * time.Second
}

func (s ServerConfig) IdleTimeout() time.Duration {
	return time.Duration(s.IdleTimeoutSeconds) * time.Second
}

// LoggingConfig captures logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
}

// MongoConfig captures the profile store connection.
type MongoConfig struct {
	URI                string            `yaml:"uri" mapstructure:"uri"`
	DatabasePrefix     string            `yaml:"database_prefix" mapstructure:"database_prefix"`
	ProfilesCollection string            `yaml:"profiles_collection" mapstructure:"profiles_collection"`
	EventsCollection   string            `yaml:"events_collection" mapstructure:"events_collection"`
	TimeoutSeconds     int               `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	TimeFieldPaths     map[string]string `yaml:"time_field_paths" mapstructure:"time_field_paths"`
}

// Timeout bounds a single pipeline execution.
func (m MongoConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// Database returns the per-account database name.
func (m MongoConfig) Database(accountID string) string {
	return m.DatabasePrefix + accountID
}

// TimeFields resolves TimeFieldPaths against the known time fields. Viper
// lower-cases map keys, so keys match case-insensitively; unknown keys are
// returned separately.
func (m MongoConfig) TimeFields() (map[model.TimeField]string, []string) {
	known := []model.TimeField{
		model.FieldTimestamp, model.FieldCustomerCreatedAt, model.FieldProfileCreatedAt,
		model.FieldOrderDate, model.FieldLastUpdated,
	}
	out := make(map[model.TimeField]string, len(m.TimeFieldPaths))
	var unknown []string
	for key, path := range m.TimeFieldPaths {
		matched := false
		for _, f := range known {
			if strings.EqualFold(key, string(f)) {
				out[f] = path
				matched = true
				break
			}
		}
		if !matched {
			unknown = append(unknown, key)
		}
	}
	return out, unknown
}

// RedisConfig captures the option catalog cache.
type RedisConfig struct {
	URL               string `yaml:"url" mapstructure:"url"`
	Enabled           bool   `yaml:"enabled" mapstructure:"enabled"`
	OptionsTTLSeconds int    `yaml:"options_ttl_seconds" mapstructure:"options_ttl_seconds"`
}

func (r RedisConfig) OptionsTTL() time.Duration {
	return time.Duration(r.OptionsTTLSeconds) * time.Second
}

// NATSConfig captures NATS message broker connection settings.
type NATSConfig struct {
	URL           string `yaml:"url" mapstructure:"url"`
	Enabled       bool   `yaml:"enabled" mapstructure:"enabled"`
	MaxReconnects int    `yaml:"max_reconnects" mapstructure:"max_reconnects"`
	ReconnectWait int    `yaml:"reconnect_wait_seconds" mapstructure:"reconnect_wait_seconds"`
}

func (n NATSConfig) ReconnectWaitDuration() time.Duration {
	return time.Duration(n.ReconnectWait) * time.Second
}

// SegmentsConfig captures segment building limits and the account scope.
type SegmentsConfig struct {
	AccountID       string `yaml:"account_id" mapstructure:"account_id"`
	MaxGroups       int    `yaml:"max_groups" mapstructure:"max_groups"`
	DefaultPageSize int    `yaml:"default_page_size" mapstructure:"default_page_size"`
	MaxPageSize     int    `yaml:"max_page_size" mapstructure:"max_page_size"`
}

// CORSConfig lists browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// Load reads configuration from the provided path and environment variables.
// Environment variables use the SEGMENTER_ prefix, e.g. SEGMENTER_MONGO_URI.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.write_timeout_seconds", 30)
	v.SetDefault("server.idle_timeout_seconds", 60)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database_prefix", "account_")
	v.SetDefault("mongo.profiles_collection", "profiles")
	v.SetDefault("mongo.events_collection", "events")
	v.SetDefault("mongo.timeout_seconds", 20)
	v.SetDefault("mongo.time_field_paths", map[string]string{"timestamp": "events.timestamp"})

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.options_ttl_seconds", 300)

	v.SetDefault("nats.url", "nats://nats:4222")
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.max_reconnects", -1)
	v.SetDefault("nats.reconnect_wait_seconds", 2)

	v.SetDefault("segments.account_id", "")
	v.SetDefault("segments.max_groups", 2)
	v.SetDefault("segments.default_page_size", 20)
	v.SetDefault("segments.max_page_size", 100)

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("database_url", "")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/segmenter")
	}

	v.SetEnvPrefix("SEGMENTER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if c.Segments.AccountID == "" {
		return errors.New("segments.account_id is required")
	}
	if c.Segments.MaxGroups < 1 {
		return fmt.Errorf("segments.max_groups must be positive, got %d", c.Segments.MaxGroups)
	}
	if c.Segments.DefaultPageSize < 1 || c.Segments.DefaultPageSize > c.Segments.MaxPageSize {
		return fmt.Errorf("segments.default_page_size must be between 1 and %d", c.Segments.MaxPageSize)
	}
	return nil
}
