package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the environment driven configuration shared by the API server,
// the upload dispatcher and the transcription worker.
type Config struct {
	// Service Configuration
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"casescribe"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"CASESCRIBE_PORT" envDefault:"8280"`
	LogLevel        string        `env:"CASESCRIBE_LOG_LEVEL" envDefault:"info"`
	EnableTracing   bool          `env:"ENABLE_TRACING" envDefault:"false"`
	OTLPEndpoint    string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Database (required, no default)
	DatabaseDSN string `env:"DB_POSTGRESQL_DSN,notEmpty"`

	// Database Connection Pool
	DBMaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBMaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"15"`
	DBConnLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`

	// Object Store
	S3Endpoint     string        `env:"AUDIO_S3_ENDPOINT"`
	S3Region       string        `env:"AUDIO_S3_REGION" envDefault:"us-west-2"`
	S3Bucket       string        `env:"AUDIO_S3_BUCKET"`
	S3AccessKeyID  string        `env:"AUDIO_S3_ACCESS_KEY_ID"`
	S3SecretKey    string        `env:"AUDIO_S3_SECRET_ACCESS_KEY"`
	S3UsePathStyle bool          `env:"AUDIO_S3_USE_PATH_STYLE" envDefault:"true"`
	UploadURLTTL   time.Duration `env:"AUDIO_UPLOAD_URL_TTL" envDefault:"5m"`
	DownloadURLTTL time.Duration `env:"AUDIO_DOWNLOAD_URL_TTL" envDefault:"15m"`

	// Work Queue
	UploadEventsQueueURL string        `env:"UPLOAD_EVENTS_QUEUE_URL"`
	WorkQueueURL         string        `env:"TRANSCRIPTION_QUEUE_URL"`
	QueueWaitTime        time.Duration `env:"QUEUE_WAIT_TIME" envDefault:"20s"`

	// Transcription engine
	TranscribeLanguageCode string        `env:"TRANSCRIBE_LANGUAGE_CODE" envDefault:"en-US"`
	PollMaxAttempts        int           `env:"TRANSCRIBE_POLL_MAX_ATTEMPTS" envDefault:"30"`
	PollInitialDelay       time.Duration `env:"TRANSCRIBE_POLL_INITIAL_DELAY" envDefault:"2s"`
	PollMaxDelay           time.Duration `env:"TRANSCRIBE_POLL_MAX_DELAY" envDefault:"30s"`

	// Notification Broker
	NATSURL             string `env:"NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	NotifySubjectPrefix string `env:"NOTIFY_SUBJECT_PREFIX" envDefault:"transcripts"`

	// Authentication
	AuthEnabled bool   `env:"AUTH_ENABLED" envDefault:"false"`
	AuthIssuer  string `env:"AUTH_ISSUER"`
	AuthJWKSURL string `env:"AUTH_JWKS_URL"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	cfg.S3Bucket = strings.TrimSpace(cfg.S3Bucket)
	cfg.S3AccessKeyID = strings.TrimSpace(cfg.S3AccessKeyID)
	cfg.S3SecretKey = strings.TrimSpace(cfg.S3SecretKey)
	cfg.S3Endpoint = strings.TrimSpace(cfg.S3Endpoint)
	cfg.NotifySubjectPrefix = strings.Trim(strings.TrimSpace(cfg.NotifySubjectPrefix), ".")

	if cfg.UploadURLTTL <= 0 {
		cfg.UploadURLTTL = 5 * time.Minute
	}
	if cfg.PollMaxAttempts <= 0 {
		cfg.PollMaxAttempts = 30
	}
	if cfg.NotifySubjectPrefix == "" {
		cfg.NotifySubjectPrefix = "transcripts"
	}
	if cfg.AuthEnabled {
		if strings.TrimSpace(cfg.AuthIssuer) == "" {
			return nil, fmt.Errorf("AUTH_ISSUER is required when AUTH_ENABLED is true")
		}
		if strings.TrimSpace(cfg.AuthJWKSURL) == "" {
			return nil, fmt.Errorf("AUTH_JWKS_URL is required when AUTH_ENABLED is true")
		}
	}
	return cfg, nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
