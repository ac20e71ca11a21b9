// Package config loads service configuration from the environment with an
// optional YAML overlay.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	domainconfig "github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/config"
)

// Environment names
const (
	Development = "development"
	Production  = "production"
)

// Access policies for dependency chains
const (
	AccessOpen          = "open"
	AccessPrerequisites = "prerequisites"
)

// Store backends
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StoreDynamoDB = "dynamodb"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"serverAddress"`
	Environment   string `yaml:"environment"`
	LogLevel      string `yaml:"logLevel"`

	// Storage
	StoreBackend string `yaml:"storeBackend"`
	SQLitePath   string `yaml:"sqlitePath"`
	AWSRegion    string `yaml:"awsRegion"`
	TableName    string `yaml:"tableName"`

	// AccessPolicy decides how dependency chains compute canAccess
	AccessPolicy string `yaml:"accessPolicy"`

	// Events
	EventBusName      string `yaml:"eventBusName"`
	NATSURL           string `yaml:"natsURL"`
	NATSSubjectPrefix string `yaml:"natsSubjectPrefix"`

	// Snapshot export
	ExportS3Bucket   string `yaml:"exportS3Bucket"`
	ExportS3Key      string `yaml:"exportS3Key"`
	ExportS3Endpoint string `yaml:"exportS3Endpoint"`
	ExportDir        string `yaml:"exportDir"`

	// Observability
	OTLPEndpoint string `yaml:"otlpEndpoint"`

	// Feature flags
	EnableMetrics bool `yaml:"enableMetrics"`
	EnableTracing bool `yaml:"enableTracing"`
	EnableCORS    bool `yaml:"enableCORS"`

	// ConfigFile is the YAML overlay, watched for graph tuning changes
	ConfigFile string `yaml:"-"`

	Graph *domainconfig.GraphConfig `yaml:"graph"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		ServerAddress:     ":8080",
		Environment:       Development,
		LogLevel:          "info",
		StoreBackend:      StoreMemory,
		SQLitePath:        "content-graph.db",
		AWSRegion:         "us-west-2",
		TableName:         "content-graph",
		AccessPolicy:      AccessOpen,
		NATSSubjectPrefix: "content-graph",
		ExportS3Key:       "snapshots/links-{timestamp}.jsonl",
		ExportDir:         "snapshots",
		EnableMetrics:     true,
		EnableCORS:        true,
		Graph:             domainconfig.DefaultGraphConfig(),
	}
}

// LoadConfig builds the configuration: defaults, then the YAML file named by
// CONFIG_FILE, then environment variables
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
		cfg.ConfigFile = path
	}
	cfg.overlayEnv()
	cfg.Graph = cfg.Graph.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) overlayEnv() {
	c.ServerAddress = getEnv("SERVER_ADDRESS", c.ServerAddress)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.StoreBackend = getEnv("STORE_BACKEND", c.StoreBackend)
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)
	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.TableName = getEnv("TABLE_NAME", c.TableName)

	c.AccessPolicy = getEnv("ACCESS_POLICY", c.AccessPolicy)

	c.EventBusName = getEnv("EVENT_BUS_NAME", c.EventBusName)
	c.NATSURL = getEnv("NATS_URL", c.NATSURL)
	c.NATSSubjectPrefix = getEnv("NATS_SUBJECT_PREFIX", c.NATSSubjectPrefix)

	c.ExportS3Bucket = getEnv("EXPORT_S3_BUCKET", c.ExportS3Bucket)
	c.ExportS3Key = getEnv("EXPORT_S3_KEY", c.ExportS3Key)
	c.ExportS3Endpoint = getEnv("EXPORT_S3_ENDPOINT", c.ExportS3Endpoint)
	c.ExportDir = getEnv("EXPORT_DIR", c.ExportDir)

	c.OTLPEndpoint = getEnv("OTLP_ENDPOINT", c.OTLPEndpoint)
	c.EnableMetrics = getEnvBool("ENABLE_METRICS", c.EnableMetrics)
	c.EnableTracing = getEnvBool("ENABLE_TRACING", c.EnableTracing)
	c.EnableCORS = getEnvBool("ENABLE_CORS", c.EnableCORS)

	if c.Graph == nil {
		c.Graph = domainconfig.DefaultGraphConfig()
	}
	c.Graph.CacheTTL = getEnvDuration("CACHE_TTL", c.Graph.CacheTTL)
	c.Graph.SimilarityThreshold = getEnvFloat("SIMILARITY_THRESHOLD", c.Graph.SimilarityThreshold)
}

// Validate checks the configuration is usable
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreMemory:
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite store")
		}
	case StoreDynamoDB:
		if c.TableName == "" {
			return fmt.Errorf("TABLE_NAME is required for the dynamodb store")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.AccessPolicy != AccessOpen && c.AccessPolicy != AccessPrerequisites {
		return fmt.Errorf("unknown ACCESS_POLICY %q", c.AccessPolicy)
	}
	if c.Environment == Production && c.StoreBackend == StoreMemory {
		return fmt.Errorf("the memory store is not allowed in production")
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
