package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	defaultRetention    = 24 * time.Hour
	defaultMaxFileSize  = int64(100 << 20) // 100 MiB
	defaultSignedURLTTL = 10 * time.Minute
)

type (
	APP struct {
		Name string
		Host string
		Port string
		Env  string
	}
	DB struct {
		User        string
		Password    string
		Name        string
		Host        string
		Port        string
		SSLMode     string
		AutoMigrate bool
	}
	S3 struct {
		Region          string
		AccessKeyID     string
		SecretAccessKey string
		BucketUploads   string
		Endpoint        string
		UsePathStyle    bool
		SignedURLTTL    time.Duration
	}
	MQ struct {
		User         string
		Password     string
		Vhost        string
		Host         string
		AmqpPort     string
		Exchange     string
		ExchangeType string
		QueueName    string
	}
	Lifecycle struct {
		Retention         time.Duration
		MaxFileSize       int64
		AllowedMimeTypes  []string
		BlockedExtensions []string
		SweepSchedule     string
	}
	Cleanup struct {
		Secret string
	}
	HTTP struct {
		AllowedOrigins []string
	}

	Config struct {
		App       APP
		DB        DB
		S3        S3
		MQ        MQ
		Lifecycle Lifecycle
		Cleanup   Cleanup
		HTTP      HTTP
	}
)

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

// envParser collects malformed values so Load reports all of them at once.
type envParser struct {
	errs []error
}

func (p *envParser) fail(key, raw, want string) {
	p.errs = append(p.errs, fmt.Errorf("%s=%q: want %s", key, raw, want))
}

func (p *envParser) flag(key string, def bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(key, raw, "a boolean")
		return def
	}
	return v
}

func (p *envParser) duration(key string, def time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		p.fail(key, raw, "a positive duration such as 24h")
		return def
	}
	return d
}

// bytes accepts plain byte counts as well as sizes such as "100MB" or "100MiB".
func (p *envParser) size(key string, def int64) int64 {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	n, err := humanize.ParseBytes(raw)
	if err != nil || n == 0 || n > math.MaxInt64 {
		p.fail(key, raw, "a positive size such as 104857600 or 100MiB")
		return def
	}
	return int64(n)
}

// getEnvList splits a comma separated value, dropping blanks.
func getEnvList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}

	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Load reads the environment. Malformed values are reported together rather than replaced by defaults.
func Load() (Config, error) {
	var p envParser

	app := APP{
		Name: getEnv("SERVICE_NAME", "compraser"),
		Host: getEnv("SERVICE_HOST", ""),
		Port: getEnv("SERVICE_PORT", "8080"),
		Env:  getEnv("SERVICE_ENV", ""),
	}
	db := DB{
		User:        getEnv("POSTGRES_USER", ""),
		Password:    getEnv("POSTGRES_PASSWORD", ""),
		Name:        getEnv("POSTGRES_DB", ""),
		Host:        getEnv("POSTGRES_HOST", ""),
		Port:        getEnv("POSTGRES_PORT", "5432"),
		SSLMode:     getEnv("POSTGRES_SSLMODE", "disable"),
		AutoMigrate: p.flag("POSTGRES_AUTO_MIGRATE", true),
	}
	s3 := S3{
		Region:          getEnv("S3_REGION", ""),
		AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		BucketUploads:   getEnv("S3_BUCKET_UPLOADS", ""),
		Endpoint:        getEnv("S3_ENDPOINT", ""),
		UsePathStyle:    p.flag("S3_USE_PATH_STYLE", false),
		SignedURLTTL:    p.duration("SIGNED_URL_TTL", defaultSignedURLTTL),
	}
	mq := MQ{
		User:         getEnv("RABBITMQ_USER", ""),
		Password:     getEnv("RABBITMQ_PASSWORD", ""),
		Vhost:        getEnv("RABBITMQ_VHOST", ""),
		Host:         getEnv("RABBITMQ_HOST", ""),
		AmqpPort:     getEnv("RABBITMQ_AMQP_PORT", "5672"),
		Exchange:     getEnv("RABBITMQ_EXCHANGE", "compraser.files"),
		ExchangeType: getEnv("RABBITMQ_EXCHANGE_TYPE", "direct"),
		QueueName:    getEnv("RABBITMQ_QUEUE_NAME", "compraser.files.audit"),
	}
	lifecycle := Lifecycle{
		Retention:         p.duration("FILE_RETENTION", defaultRetention),
		MaxFileSize:       p.size("MAX_FILE_SIZE_BYTES", defaultMaxFileSize),
		AllowedMimeTypes:  getEnvList("ALLOWED_MIME_TYPES"),
		BlockedExtensions: getEnvList("BLOCKED_EXTENSIONS"),
		SweepSchedule:     getEnv("SWEEP_SCHEDULE", ""),
	}

	if err := errors.Join(p.errs...); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return Config{
		App:       app,
		DB:        db,
		S3:        s3,
		MQ:        mq,
		Lifecycle: lifecycle,
		Cleanup:   Cleanup{Secret: getEnv("CLEANUP_SECRET", "")},
		HTTP:      HTTP{AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS")},
	}, nil
}

// IsDev reports whether the service runs in a local/development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.App.Env) {
	case "dev", "development", "local":
		return true
	}
	return false
}

func (c Config) DBDSN() (string, error) {
	if c.DB.User == "" || c.DB.Name == "" || c.DB.Host == "" || c.DB.Port == "" {
		return "", fmt.Errorf("incomplete DB config")
	}
	return fmt.Sprintf(
		"postgres://%s@%s:%s/%s?sslmode=%s",
		url.UserPassword(c.DB.User, c.DB.Password).String(),
		c.DB.Host,
		c.DB.Port,
		c.DB.Name,
		c.DB.SSLMode,
	), nil
}

// MigrateDSN is the DBDSN with the scheme golang-migrate's pgx/v5 driver registers.
func (c Config) MigrateDSN() (string, error) {
	dsn, err := c.DBDSN()
	if err != nil {
		return "", err
	}
	return "pgx5://" + strings.TrimPrefix(dsn, "postgres://"), nil
}

// MQEnabled is false when no broker host is configured; events are then discarded.
func (c Config) MQEnabled() bool { return c.MQ.Host != "" }

func (c Config) AMQPDSN() (string, error) {
	if c.MQ.User == "" || c.MQ.Host == "" || c.MQ.AmqpPort == "" {
		return "", fmt.Errorf("invalid MQ config: user, host and amqp port are required")
	}

	return fmt.Sprintf(
		"%s://%s@%s:%s/%s",
		"amqp",
		url.UserPassword(c.MQ.User, c.MQ.Password).String(),
		c.MQ.Host,
		c.MQ.AmqpPort,
		url.PathEscape(c.MQ.Vhost),
	), nil
}
