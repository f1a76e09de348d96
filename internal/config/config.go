package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	DataWorks *DataWorksConfig
	Export    ExportConfig
	Query     QueryConfig
	Templates TemplatesConfig
}

type ServerConfig struct {
	Port       string
	CORSOrigin string
}

type DatabaseConfig struct {
	Host            string
	Port            string
	Username        string
	Password        string
	Database        string
	ConnectionLimit int
	QueueLimit      int
	ConnectTimeout  time.Duration
}

// DataWorksConfig holds the task-submission backend credentials. The
// connector is disabled entirely when the API key is not set.
type DataWorksConfig struct {
	Endpoint  string
	APIKey    string
	APISecret string
	ProjectID string
}

type ExportConfig struct {
	MaxRows       int
	RetentionDays int
	StoragePath   string
}

type QueryConfig struct {
	Timeout         time.Duration
	DefaultPageSize int
	MaxPageSize     int
}

type TemplatesConfig struct {
	Path string
}

func Load() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:       getEnv("PORT", "4000"),
			CORSOrigin: getEnv("CORS_ORIGIN", "*"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "3306"),
			Username:        getEnv("DB_USER", "root"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "jingxuan"),
			ConnectionLimit: getEnvInt("DB_CONNECTION_LIMIT", 10),
			QueueLimit:      getEnvInt("DB_QUEUE_LIMIT", 1000),
			ConnectTimeout:  time.Duration(getEnvInt("DB_CONNECT_TIMEOUT", 30000)) * time.Millisecond,
		},
		Export: ExportConfig{
			MaxRows:       getEnvInt("EXPORT_MAX_SIZE", 50000),
			RetentionDays: getEnvInt("EXPORT_RETENTION_DAYS", 1),
			StoragePath:   getEnv("EXPORT_STORAGE_PATH", "./exports"),
		},
		Query: QueryConfig{
			Timeout:         time.Duration(getEnvInt("QUERY_TIMEOUT_MS", 30000)) * time.Millisecond,
			DefaultPageSize: getEnvInt("DEFAULT_PAGE_SIZE", 20),
			MaxPageSize:     getEnvInt("MAX_RECORDS_PER_PAGE", 1000),
		},
		Templates: TemplatesConfig{
			Path: getEnv("SQL_TEMPLATES_PATH", "./sql-templates"),
		},
	}

	// The secondary backend is opt-in: no API key, no connector.
	if key := os.Getenv("DATAWORKS_API_KEY"); key != "" {
		cfg.DataWorks = &DataWorksConfig{
			Endpoint:  getEnv("DATAWORKS_ENDPOINT", ""),
			APIKey:    key,
			APISecret: getEnv("DATAWORKS_API_SECRET", ""),
			ProjectID: getEnv("DATAWORKS_PROJECT_ID", ""),
		}
	}

	return cfg
}

// Validate collects every configuration problem instead of stopping at
// the first one.
func (c *Config) Validate() []string {
	var errs []string

	if c.Database.Host == "" {
		errs = append(errs, "database host must not be empty")
	}
	if c.Database.Username == "" {
		errs = append(errs, "database username must not be empty")
	}
	if c.Export.MaxRows <= 0 {
		errs = append(errs, "export max row count must be positive")
	}
	if c.Export.RetentionDays < 0 {
		errs = append(errs, "export retention days must not be negative")
	}
	if c.Query.Timeout <= 0 {
		errs = append(errs, "query timeout must be positive")
	}
	if c.Query.DefaultPageSize <= 0 || c.Query.DefaultPageSize > c.Query.MaxPageSize {
		errs = append(errs, fmt.Sprintf("default page size must be in 1..%d", c.Query.MaxPageSize))
	}
	if c.DataWorks != nil && c.DataWorks.Endpoint == "" {
		errs = append(errs, "dataworks endpoint must be set when the API key is configured")
	}

	return errs
}

// SafeString renders the connection target for logs without credentials.
func (c *Config) SafeString() string {
	return fmt.Sprintf("mysql://%s@%s:%s/%s", c.Database.Username, c.Database.Host, c.Database.Port, c.Database.Database)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
