package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment does
// not leak into the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"WAMSG_CONFIG", "PORT", "DATA_DIR", "LOG_ENV", "LOG_LEVEL", "TRANSPORT",
		"RELAY_URL", "RELAY_TOKEN", "WEBHOOK_TOKEN", "KAFKA_BROKERS", "KAFKA_TOPIC",
		"BUILDER_STRICT", "THUMBNAIL_WIDTH", "THUMBNAIL_TIMEOUT", "DEFAULT_EXPIRATION",
		"THUMBNAIL_ALLOWED_HOSTS",
	} {
		t.Setenv(k, "")
	}
	// keep a stray .env in the package directory out of the way
	t.Chdir(t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("RELAY_URL", "http://relay:3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ".", cfg.DataDir)
	assert.Equal(t, TransportHTTP, cfg.Transport)
	assert.Equal(t, 32, cfg.ThumbnailWidth)
	assert.Equal(t, 10*time.Second, cfg.ThumbnailTimeout)
	assert.False(t, cfg.BuilderStrict)
	assert.Zero(t, cfg.DefaultExpiration)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TRANSPORT", "kafka")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("KAFKA_TOPIC", "wa-outgoing")
	t.Setenv("BUILDER_STRICT", "true")
	t.Setenv("THUMBNAIL_WIDTH", "48")
	t.Setenv("THUMBNAIL_TIMEOUT", "2s")
	t.Setenv("DEFAULT_EXPIRATION", "604800")
	t.Setenv("THUMBNAIL_ALLOWED_HOSTS", "cdn.example.com, images.example.org")
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, TransportKafka, cfg.Transport)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "wa-outgoing", cfg.KafkaTopic)
	assert.True(t, cfg.BuilderStrict)
	assert.Equal(t, 48, cfg.ThumbnailWidth)
	assert.Equal(t, 2*time.Second, cfg.ThumbnailTimeout)
	assert.EqualValues(t, 604800, cfg.DefaultExpiration)
	assert.Equal(t, []string{"cdn.example.com", "images.example.org"}, cfg.ThumbnailAllowedHosts)
	assert.Equal(t, "9090", cfg.Port)
}

func TestLoad_YAMLFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "wamsg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "7070"
relay_url: http://from-file:3000
relay_token: file-token
thumbnail_width: 64
thumbnail_timeout: 3s
default_expiration: 86400
`), 0o600))
	t.Setenv("WAMSG_CONFIG", path)
	t.Setenv("RELAY_TOKEN", "env-token")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "http://from-file:3000", cfg.RelayURL)
	assert.Equal(t, "env-token", cfg.RelayToken)
	assert.Equal(t, 64, cfg.ThumbnailWidth)
	assert.Equal(t, 3*time.Second, cfg.ThumbnailTimeout)
	assert.EqualValues(t, 86400, cfg.DefaultExpiration)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		msg  string
	}{
		{"missing relay url", nil, "RELAY_URL"},
		{"kafka without brokers", map[string]string{"TRANSPORT": "kafka", "KAFKA_TOPIC": "t"}, "KAFKA_BROKERS"},
		{"kafka without topic", map[string]string{"TRANSPORT": "kafka", "KAFKA_BROKERS": "k:9092"}, "KAFKA_TOPIC"},
		{"unknown transport", map[string]string{"TRANSPORT": "smtp"}, "unknown TRANSPORT"},
		{"bad bool", map[string]string{"RELAY_URL": "http://r", "BUILDER_STRICT": "maybe"}, "BUILDER_STRICT"},
		{"bad width", map[string]string{"RELAY_URL": "http://r", "THUMBNAIL_WIDTH": "wide"}, "THUMBNAIL_WIDTH"},
		{"negative width", map[string]string{"RELAY_URL": "http://r", "THUMBNAIL_WIDTH": "-1"}, "THUMBNAIL_WIDTH must be positive"},
		{"bad timeout", map[string]string{"RELAY_URL": "http://r", "THUMBNAIL_TIMEOUT": "soon"}, "THUMBNAIL_TIMEOUT"},
		{"bad expiration", map[string]string{"RELAY_URL": "http://r", "DEFAULT_EXPIRATION": "-5"}, "DEFAULT_EXPIRATION"},
		{"missing file", map[string]string{"WAMSG_CONFIG": "/nonexistent/wamsg.yaml"}, "reading config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
