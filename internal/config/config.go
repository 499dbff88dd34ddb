package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the application's configuration values.
// Tags like `envconfig:"APP_ENV"` specify the environment variable name.
// `default:""` provides a default value if the env var is not set.
type Config struct {
	AppEnv     string `envconfig:"APP_ENV" default:"development"` // development, production
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`      // debug, info, warn, error
	LogFile    string `envconfig:"LOG_FILE" default:""`           // rotated JSON log file, empty disables it
	HttpServer ServerConfig
	GrpcServer GrpcServerConfig
	Catalog    CatalogConfig
	QR         QRConfig
	Postgres   PostgresConfig
	Scheduler  SchedulerConfig
}

// ServerConfig holds HTTP server-specific configurations.
type ServerConfig struct {
	Port         string        `envconfig:"HTTP_SERVER_PORT" default:"8080"`
	TimeoutRead  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_READ" default:"15s"`
	TimeoutWrite time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_WRITE" default:"15s"`
	TimeoutIdle  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_IDLE" default:"60s"`
}

// GrpcServerConfig holds gRPC server-specific configurations.
type GrpcServerConfig struct {
	Port string `envconfig:"GRPC_SERVER_PORT" default:"9090"`
}

// CatalogConfig locates the catalog documents and the shared asset directory.
// Assets live next to the data directory: <DataDir>/../<AssetDirName>.
type CatalogConfig struct {
	DataDir      string `envconfig:"CATALOG_DATA_DIR" default:"shop"`
	AssetDirName string `envconfig:"CATALOG_ASSET_DIR_NAME" default:"assets"`
}

// QRConfig controls QR-code generation for purchase links.
type QRConfig struct {
	Enabled       bool   `envconfig:"QR_ENABLED" default:"true"`
	ModulePixels  int    `envconfig:"QR_MODULE_PIXELS" default:"10"`
	RecoveryLevel string `envconfig:"QR_RECOVERY_LEVEL" default:"medium"` // low, medium, high, highest
}

// SchedulerConfig holds the cron schedules of maintenance jobs. An empty schedule disables the job.
type SchedulerConfig struct {
	MirrorResync string `envconfig:"MIRROR_RESYNC_SCHEDULE" default:"@every 15m"`
}

// PostgresConfig holds the optional replica database. Replication is off when Host is empty.
type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" default:""`
	Port     string `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:""`
	Password string `envconfig:"POSTGRES_PASSWORD" default:""`
	DBName   string `envconfig:"POSTGRES_DBNAME" default:""`
}

// Enabled reports whether a replica database is configured.
func (pc *PostgresConfig) Enabled() bool {
	return pc.Host != ""
}

// DSN constructs the Data Source Name string for connecting to PostgreSQL.
func (pc *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		pc.Host, pc.Port, pc.User, pc.Password, pc.DBName)
}

// Load initializes the configuration from environment variables.
// It should be called once during application startup.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration: %w", err)
	}

	if cfg.Catalog.DataDir == "" {
		return nil, fmt.Errorf("CATALOG_DATA_DIR must not be empty")
	}
	if cfg.Catalog.AssetDirName == "" || strings.ContainsAny(cfg.Catalog.AssetDirName, `/\`) {
		return nil, fmt.Errorf("invalid CATALOG_ASSET_DIR_NAME: %q", cfg.Catalog.AssetDirName)
	}
	if cfg.QR.ModulePixels <= 0 {
		return nil, fmt.Errorf("QR_MODULE_PIXELS must be positive, got %d", cfg.QR.ModulePixels)
	}
	if cfg.Postgres.Enabled() && (cfg.Postgres.User == "" || cfg.Postgres.DBName == "") {
		return nil, fmt.Errorf("POSTGRES_USER and POSTGRES_DBNAME are required when POSTGRES_HOST is set")
	}

	log.Printf("Configuration loaded successfully for APP_ENV: %s", cfg.AppEnv)
	return &cfg, nil
}
