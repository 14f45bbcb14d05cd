package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	TransportHTTP  = "http"
	TransportKafka = "kafka"
)

type Config struct {
	Port    string `yaml:"port"`
	DataDir string `yaml:"data_dir"`

	LogEnv   string `yaml:"log_env"`
	LogLevel string `yaml:"log_level"`

	Transport    string   `yaml:"transport"`
	RelayURL     string   `yaml:"relay_url"`
	RelayToken   string   `yaml:"relay_token"`
	WebhookToken string   `yaml:"webhook_token"`
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`

	BuilderStrict     bool          `yaml:"builder_strict"`
	ThumbnailWidth    int           `yaml:"thumbnail_width"`
	ThumbnailTimeout  time.Duration `yaml:"thumbnail_timeout"`
	DefaultExpiration uint32        `yaml:"default_expiration"`

	// ThumbnailAllowedHosts limits thumbnail URL sources; empty allows any
	// public host.
	ThumbnailAllowedHosts []string `yaml:"thumbnail_allowed_hosts"`
}

func defaults() *Config {
	return &Config{
		Port:             "8080",
		DataDir:          ".",
		LogEnv:           "production",
		LogLevel:         "info",
		Transport:        TransportHTTP,
		ThumbnailWidth:   32,
		ThumbnailTimeout: 10 * time.Second,
	}
}

// Load reads configuration from, in increasing precedence: built-in
// defaults, the YAML file named by WAMSG_CONFIG, and the environment.
func Load() (*Config, error) {
	// .env is optional; env vars may already be set in production
	_ = godotenv.Load()

	cfg := defaults()
	if path := os.Getenv("WAMSG_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Port, "PORT")
	setString(&c.DataDir, "DATA_DIR")
	setString(&c.LogEnv, "LOG_ENV")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.Transport, "TRANSPORT")
	setString(&c.RelayURL, "RELAY_URL")
	setString(&c.RelayToken, "RELAY_TOKEN")
	setString(&c.WebhookToken, "WEBHOOK_TOKEN")
	setString(&c.KafkaTopic, "KAFKA_TOPIC")

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.KafkaBrokers = splitList(v)
	}
	if v := os.Getenv("THUMBNAIL_ALLOWED_HOSTS"); v != "" {
		c.ThumbnailAllowedHosts = splitList(v)
	}

	if v := os.Getenv("BUILDER_STRICT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("BUILDER_STRICT: %w", err)
		}
		c.BuilderStrict = b
	}
	if v := os.Getenv("THUMBNAIL_WIDTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("THUMBNAIL_WIDTH: %w", err)
		}
		c.ThumbnailWidth = n
	}
	if v := os.Getenv("THUMBNAIL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("THUMBNAIL_TIMEOUT: %w", err)
		}
		c.ThumbnailTimeout = d
	}
	if v := os.Getenv("DEFAULT_EXPIRATION"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("DEFAULT_EXPIRATION: %w", err)
		}
		c.DefaultExpiration = uint32(n)
	}
	return nil
}

// Validate checks that the selected transport is fully configured.
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportHTTP:
		if c.RelayURL == "" {
			return fmt.Errorf("required env var RELAY_URL is not set")
		}
	case TransportKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("required env var KAFKA_BROKERS is not set")
		}
		if c.KafkaTopic == "" {
			return fmt.Errorf("required env var KAFKA_TOPIC is not set")
		}
	default:
		return fmt.Errorf("unknown TRANSPORT %q (want %s or %s)", c.Transport, TransportHTTP, TransportKafka)
	}

	if c.ThumbnailWidth <= 0 {
		return fmt.Errorf("THUMBNAIL_WIDTH must be positive, got %d", c.ThumbnailWidth)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
