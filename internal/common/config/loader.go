// internal/common/config/loader.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	commonerrors "sdmx-harvester/internal/common/errors"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on
// top and applies environment overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env", // tests in test/e2e/
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars replaces ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "sdmx-harvester"
	}

	// Harvest defaults follow the Eurostat registry.
	if cfg.Harvest.SourceName == "" {
		cfg.Harvest.SourceName = "eurostat"
	}
	if len(cfg.Harvest.AllowedDimensions) == 0 {
		cfg.Harvest.AllowedDimensions = []string{"NA_ITEM", "GEO", "UNIT", "FREQ", "INDICATORS", "PARTNER"}
	}
	if cfg.Harvest.DataflowPattern == "" {
		cfg.Harvest.DataflowPattern = "DSD_.*"
	}
	if cfg.Harvest.GeoDimension == "" {
		cfg.Harvest.GeoDimension = "GEO"
	}
	if cfg.Harvest.BatchSize == 0 {
		cfg.Harvest.BatchSize = 500
	}

	if cfg.Metadata.Publisher == "" {
		cfg.Metadata.Publisher = "Eurostat"
	}
	if cfg.Metadata.Language == "" {
		cfg.Metadata.Language = "en"
	}
	if len(cfg.Metadata.Formats) == 0 {
		cfg.Metadata.Formats = []string{"application/json"}
	}

	if cfg.Registry.Timeout == 0 {
		cfg.Registry.Timeout = 60000
	}
	if cfg.Registry.MaxRetries == 0 {
		cfg.Registry.MaxRetries = 3
	}
	if cfg.Registry.BaseDelay == 0 {
		cfg.Registry.BaseDelay = 1000
	}
	if cfg.Registry.MaxDelay == 0 {
		cfg.Registry.MaxDelay = 10000
	}
	if cfg.Registry.UserAgent == "" {
		cfg.Registry.UserAgent = cfg.App.Name
	}

	if cfg.Sink.Kind == "" {
		cfg.Sink.Kind = SinkJSONLines
	}
	if cfg.Sink.Index == "" {
		cfg.Sink.Index = "harvest-records"
	}
	if cfg.Sink.Table == "" {
		cfg.Sink.Table = "harvest_records"
	}

	if cfg.State.KeyPrefix == "" {
		cfg.State.KeyPrefix = "harvest:state:"
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 1
		}
		if worker.Timeout == 0 {
			worker.Timeout = 3600000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

// validateConfig rejects settings that would only fail once a harvest is
// under way.
func validateConfig(cfg *Config) error {
	invalid := func(format string, args ...interface{}) error {
		return commonerrors.NewConfigInvalidError(fmt.Sprintf(format, args...))
	}

	if !isHTTPURL(cfg.Harvest.SDEMURL) {
		return invalid("harvest.sdem_url must be an absolute http(s) URL, got %q", cfg.Harvest.SDEMURL)
	}
	if cfg.Harvest.StructureURLFormat == "" {
		return invalid("harvest.structure_url_format is required")
	}
	if !isHTTPURL(strings.ReplaceAll(cfg.Harvest.StructureURLFormat, "%s", "x")) {
		return invalid("harvest.structure_url_format must be an absolute http(s) URL, got %q", cfg.Harvest.StructureURLFormat)
	}
	if !isHTTPURL(cfg.Harvest.RestBaseURL) {
		return invalid("harvest.rest_base_url must be an absolute http(s) URL, got %q", cfg.Harvest.RestBaseURL)
	}
	if _, err := regexp.Compile(cfg.Harvest.DataflowPattern); err != nil {
		return invalid("harvest.dataflow_pattern: %v", err)
	}
	for _, dim := range cfg.Harvest.AllowedDimensions {
		if strings.TrimSpace(dim) == "" {
			return invalid("harvest.allowed_dimensions contains an empty id")
		}
	}
	if cfg.Harvest.BatchSize < 1 {
		return invalid("harvest.batch_size must be positive")
	}

	switch cfg.Sink.Kind {
	case SinkElasticsearch:
		if len(cfg.Database.Elasticsearch.Addresses) == 0 {
			return invalid("database.elasticsearch.addresses is required for the elasticsearch sink")
		}
	case SinkPostgres:
		if cfg.Database.Postgres.Host == "" || cfg.Database.Postgres.Database == "" || cfg.Database.Postgres.User == "" {
			return invalid("database.postgres host, database and user are required for the postgres sink")
		}
		if !sqlIdentifier.MatchString(cfg.Sink.Table) {
			return invalid("sink.table %q is not a valid table name", cfg.Sink.Table)
		}
	case SinkJSONLines:
	default:
		return invalid("sink.kind %q is not one of elasticsearch, postgres, jsonl", cfg.Sink.Kind)
	}

	if cfg.State.Enabled && cfg.Database.Redis.Address == "" {
		return invalid("database.redis.address is required when state is enabled")
	}
	if cfg.Notifications.SNS.Enabled && cfg.Notifications.SNS.TopicARN == "" {
		return invalid("notifications.sns.topic_arn is required when sns is enabled")
	}

	return nil
}

var sqlIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

func isHTTPURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// RequireCamunda checks the settings the worker host needs on top of a
// plain harvest.
func (c *Config) RequireCamunda() error {
	if c.Camunda.BrokerAddress == "" {
		return commonerrors.NewConfigInvalidError("camunda.broker_address is required")
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}

	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 1,
		Timeout:       3600000,
		MaxRetries:    3,
	}
}
