// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Harvest       HarvestConfig           `mapstructure:"harvest"`
	Metadata      MetadataConfig          `mapstructure:"metadata"`
	Registry      RegistryConfig          `mapstructure:"registry"`
	Sink          SinkConfig              `mapstructure:"sink"`
	State         StateConfig             `mapstructure:"state"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Metrics       MetricsConfig           `mapstructure:"metrics"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// HarvestConfig describes where dataflows come from and which of them are
// expanded into records.
type HarvestConfig struct {
	SourceName         string   `mapstructure:"source_name"`
	SDEMURL            string   `mapstructure:"sdem_url"`
	StructureURLFormat string   `mapstructure:"structure_url_format"` // %s = structure id
	RestBaseURL        string   `mapstructure:"rest_base_url"`
	AllowedDimensions  []string `mapstructure:"allowed_dimensions"`
	DataflowPattern    string   `mapstructure:"dataflow_pattern"`
	GeoDimension       string   `mapstructure:"geo_dimension"`
	BatchSize          int      `mapstructure:"batch_size"`
}

// MetadataConfig holds the values copied into every record.
type MetadataConfig struct {
	Publisher  string   `mapstructure:"publisher"`
	Language   string   `mapstructure:"language"`
	Formats    []string `mapstructure:"formats"`
	RightsName string   `mapstructure:"rights_name"`
	RightsURI  string   `mapstructure:"rights_uri"`
	LogoURL    string   `mapstructure:"logo_url"`
}

type RegistryConfig struct {
	Timeout    int    `mapstructure:"timeout"` // milliseconds
	MaxRetries int    `mapstructure:"max_retries"`
	BaseDelay  int    `mapstructure:"base_delay"` // milliseconds
	MaxDelay   int    `mapstructure:"max_delay"`  // milliseconds
	UserAgent  string `mapstructure:"user_agent"`
}

const (
	SinkElasticsearch = "elasticsearch"
	SinkPostgres      = "postgres"
	SinkJSONLines     = "jsonl"
)

type SinkConfig struct {
	Kind  string `mapstructure:"kind"`
	Index string `mapstructure:"index"` // elasticsearch
	Table string `mapstructure:"table"` // postgres
	Path  string `mapstructure:"path"`  // jsonl, empty or "-" for stdout
}

type StateConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NotificationConfig holds settings for run report publishing.
type NotificationConfig struct {
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		Region   string `mapstructure:"region"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}
