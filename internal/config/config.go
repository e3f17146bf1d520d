// Package config loads and validates crawler configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/JakeFAU/dhc-order-crawler/internal/crawler"
)

// DefaultCaseTypes is the commercial case type catalog, in crawl order. The
// codes are sent verbatim, including their irregular spacing.
var DefaultCaseTypes = []string{
	"RFA(OS)(COMM)",
	"FAO(OS) (COMM)",
	"EFA(OS)  (COMM)",
	"EFA(COMM)",
	"RFA(COMM)",
	"FAO(COMM)",
	"CS(COMM)",
	"O.M.P.(I) (COMM.)",
	"O.M.P. (E) (COMM.)",
	"O.M.P. (J) (COMM.)",
	"O.M.P. (T) (COMM.)",
	"O.M.P. (COMM)",
	"ARB. A. (COMM.)",
	"C.O. (COMM.IPD-TM)",
	"C.O.(COMM.IPD-CR)",
	"C.O.(COMM.IPD-PAT)",
	"C.A.(COMM.IPD-GI)",
	"C.A.(COMM.IPD-PAT)",
	"C.A.(COMM.IPD-PV)",
	"C.A.(COMM.IPD-TM)",
}

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Portal  PortalConfig  `mapstructure:"portal"`
	Crawl   CrawlConfig   `mapstructure:"crawl"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Store   StoreConfig   `mapstructure:"store"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// PortalConfig describes the upstream court portal.
type PortalConfig struct {
	BaseURL           string  `mapstructure:"base_url"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
	UserAgent         string  `mapstructure:"user_agent"`
	Token             string  `mapstructure:"token"`
	SCode             string  `mapstructure:"scode"`
	FFlag             string  `mapstructure:"fflag"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// Timeout returns the per-request timeout.
func (p PortalConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// CrawlConfig governs the enumeration and row extraction.
type CrawlConfig struct {
	StartYear      int      `mapstructure:"start_year"`
	FloorYear      int      `mapstructure:"floor_year"`
	CaseTypes      []string `mapstructure:"case_types"`
	MissThreshold  int      `mapstructure:"miss_threshold"`
	MaxNumber      int      `mapstructure:"max_number"`
	RowConcurrency int      `mapstructure:"row_concurrency"`
	TempDir        string   `mapstructure:"temp_dir"`
}

// Policy converts the crawl section into the Driver's policy.
func (c CrawlConfig) Policy() crawler.Policy {
	return crawler.Policy{
		StartYear:     c.StartYear,
		FloorYear:     c.FloorYear,
		CaseTypes:     append([]string(nil), c.CaseTypes...),
		MissThreshold: c.MissThreshold,
		MaxNumber:     c.MaxNumber,
	}
}

// ArchiveConfig selects where order documents are archived.
type ArchiveConfig struct {
	Provider    string      `mapstructure:"provider"`
	Naming      string      `mapstructure:"naming"`
	Prefix      string      `mapstructure:"prefix"`
	ContentType string      `mapstructure:"content_type"`
	Azure       AzureConfig `mapstructure:"azure"`
	GCS         GCSConfig   `mapstructure:"gcs"`
	Local       LocalConfig `mapstructure:"local"`
}

// AzureConfig holds Azure Blob Storage settings.
type AzureConfig struct {
	ConnectionString string `mapstructure:"connection_string"`
	Container        string `mapstructure:"container"`
}

// GCSConfig holds Google Cloud Storage settings.
type GCSConfig struct {
	Bucket        string `mapstructure:"bucket"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

// LocalConfig holds the filesystem archive root.
type LocalConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// StoreConfig selects where case records are persisted.
type StoreConfig struct {
	Provider string         `mapstructure:"provider"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// MongoConfig holds document store settings.
type MongoConfig struct {
	URI                   string `mapstructure:"uri"`
	Database              string `mapstructure:"database"`
	Collection            string `mapstructure:"collection"`
	ConnectTimeoutSeconds int    `mapstructure:"connect_timeout_seconds"`
}

// PostgresConfig holds relational store settings.
type PostgresConfig struct {
	DSN          string `mapstructure:"dsn"`
	Table        string `mapstructure:"table"`
	MaxConns     int32  `mapstructure:"max_conns"`
	EnsureSchema bool   `mapstructure:"ensure_schema"`
}

// PubSubConfig holds metadata for case notifications. An empty topic
// disables publishing.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// ServerConfig controls the operations HTTP server.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// envAliases maps config keys to the bare environment names deployments
// already use.
var envAliases = map[string]string{
	"store.mongo.uri":                 "MONGO_URI",
	"store.mongo.database":            "MONGO_DB_NAME",
	"store.mongo.collection":          "MONGO_COLLECTION_NAME",
	"archive.azure.connection_string": "AZURE_CONNECTION_STRING",
	"archive.azure.container":         "AZURE_CONTAINER_NAME",
}

// Load builds a Config from a .env file, an optional config file and the
// environment, in increasing order of precedence for the environment.
func Load(path string) (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix("CRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, alias := range envAliases {
		envKey := "CRAWLER_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, alias); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", alias, err)
		}
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// loadDotEnv sets variables from a .env file without overriding the real
// environment. A missing file is fine.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("portal.base_url", "https://dhcappl.nic.in/dhcorderportal")
	v.SetDefault("portal.timeout_seconds", 30)
	v.SetDefault("portal.user_agent", "dhc-order-crawler/0.1")
	v.SetDefault("portal.token", "")
	v.SetDefault("portal.scode", "31")
	v.SetDefault("portal.fflag", "1")
	v.SetDefault("portal.requests_per_second", 0)
	v.SetDefault("portal.burst", 1)
	v.SetDefault("crawl.start_year", 2023)
	v.SetDefault("crawl.floor_year", 2000)
	v.SetDefault("crawl.case_types", DefaultCaseTypes)
	v.SetDefault("crawl.miss_threshold", 20)
	v.SetDefault("crawl.max_number", 0)
	v.SetDefault("crawl.row_concurrency", 5)
	v.SetDefault("crawl.temp_dir", "pdf")
	v.SetDefault("archive.provider", "azure")
	v.SetDefault("archive.naming", "basename")
	v.SetDefault("archive.prefix", "")
	v.SetDefault("archive.content_type", "application/pdf")
	v.SetDefault("archive.local.base_dir", "archive")
	v.SetDefault("store.provider", "mongo")
	v.SetDefault("store.mongo.connect_timeout_seconds", 10)
	v.SetDefault("store.postgres.table", "cases")
	v.SetDefault("store.postgres.ensure_schema", false)
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 9090)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Portal.BaseURL) == "" {
		return fmt.Errorf("portal.base_url is required")
	}
	if c.Portal.TimeoutSeconds <= 0 {
		return fmt.Errorf("portal.timeout_seconds must be > 0")
	}
	if c.Portal.RequestsPerSecond < 0 {
		return fmt.Errorf("portal.requests_per_second must be >= 0")
	}
	if err := c.Crawl.Policy().Validate(); err != nil {
		return fmt.Errorf("crawl: %w", err)
	}
	if c.Crawl.RowConcurrency <= 0 {
		return fmt.Errorf("crawl.row_concurrency must be > 0")
	}
	if strings.TrimSpace(c.Crawl.TempDir) == "" {
		return fmt.Errorf("crawl.temp_dir is required")
	}
	if c.PubSub.Topic != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic is set")
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	return nil
}

// Validate checks the selected archive provider has what it needs. It is
// separate from Config.Validate so commands that never archive can run
// without storage credentials.
func (a ArchiveConfig) Validate() error {
	switch a.Naming {
	case "basename", "sha256":
	default:
		return fmt.Errorf("archive.naming must be basename or sha256, got %q", a.Naming)
	}
	switch a.Provider {
	case "azure":
		if a.Azure.ConnectionString == "" || a.Azure.Container == "" {
			return fmt.Errorf("archive.azure.connection_string and archive.azure.container are required")
		}
	case "gcs":
		if a.GCS.Bucket == "" {
			return fmt.Errorf("archive.gcs.bucket is required")
		}
	case "local":
		if a.Local.BaseDir == "" {
			return fmt.Errorf("archive.local.base_dir is required")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown archive.provider %q", a.Provider)
	}
	return nil
}

// Validate checks the selected store provider has what it needs.
func (s StoreConfig) Validate() error {
	switch s.Provider {
	case "mongo":
		if s.Mongo.URI == "" || s.Mongo.Database == "" || s.Mongo.Collection == "" {
			return fmt.Errorf("store.mongo.uri, store.mongo.database and store.mongo.collection are required")
		}
	case "postgres":
		if s.Postgres.DSN == "" {
			return fmt.Errorf("store.postgres.dsn is required")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown store.provider %q", s.Provider)
	}
	return nil
}
