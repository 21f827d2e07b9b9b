// Package config loads articledesk settings from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
)

// EnvPrefix is prepended to every variable name below.
const EnvPrefix = "ARTICLEDESK_"

const (
	ImageStoreBadger     = "badger"
	ImageStoreCloudinary = "cloudinary"
)

type Config struct {
	Addr string `env:"ADDR" envDefault:":8000"`

	DBDriver string `env:"DB_DRIVER" envDefault:"sqlite"`
	DBDSN    string `env:"DB_DSN" envDefault:"file:articles.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"`

	ImageStore       string `env:"IMAGE_STORE" envDefault:"badger"`
	CloudinaryURL    string `env:"CLOUDINARY_URL"`
	CloudinaryFolder string `env:"CLOUDINARY_FOLDER" envDefault:"articles"`
	BadgerPath       string `env:"BADGER_PATH" envDefault:"./badger-images"`
	PublicBaseURL    string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8000"`
	MaxUploadBytes   int64  `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`

	// RedisURL left empty disables event publishing.
	RedisURL     string `env:"REDIS_URL"`
	EventsStream string `env:"EVENTS_STREAM" envDefault:"articles:events"`
	EventsMaxLen int64  `env:"EVENTS_MAXLEN" envDefault:"10000"`

	PreviewTimeout  time.Duration `env:"PREVIEW_TIMEOUT" envDefault:"10s"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	LogDevelopment bool   `env:"LOG_DEVELOPMENT" envDefault:"false"`
}

// Load reads the process environment.
func Load() (Config, error) {
	return Parse(nil)
}

// Parse reads settings from environ, or from the process environment
// when environ is nil.
func Parse(environ map[string]string) (Config, error) {
	var cfg Config
	opts := env.Options{Prefix: EnvPrefix, Environment: environ}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	var errs []error

	dsn := strings.TrimSpace(c.DBDSN)
	switch strings.ToLower(c.DBDriver) {
	case "sqlite", "sqlite3":
	case "postgres", "postgresql", "pgx":
		if isSQLiteDSN(dsn) {
			errs = append(errs, fmt.Errorf("database dsn %q is a sqlite dsn, set a postgres dsn for driver %q", dsn, c.DBDriver))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver %q", c.DBDriver))
	}
	if dsn == "" {
		errs = append(errs, errors.New("database dsn is required"))
	}

	switch c.ImageStore {
	case ImageStoreBadger:
		if strings.TrimSpace(c.PublicBaseURL) == "" {
			errs = append(errs, errors.New("public base url is required for the badger image store"))
		}
	case ImageStoreCloudinary:
		if strings.TrimSpace(c.CloudinaryURL) == "" {
			errs = append(errs, errors.New("cloudinary url is required for the cloudinary image store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported image store %q", c.ImageStore))
	}

	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("max upload bytes must be positive"))
	}
	return errors.Join(errs...)
}

func isSQLiteDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "file:") || strings.HasPrefix(dsn, ":memory:") || strings.HasSuffix(dsn, ".db")
}

// ImagesBaseURL is where self-hosted images are served from.
func (c Config) ImagesBaseURL() string {
	return strings.TrimRight(c.PublicBaseURL, "/") + "/images"
}

// NewLogger builds the process logger.
func (c Config) NewLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	zc := zap.NewProductionConfig()
	if c.LogDevelopment {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}
