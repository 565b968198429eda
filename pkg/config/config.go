package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Merchant MerchantConfig
	RFM      RFMConfig
	Export   ExportConfig
	Sheets   SheetsConfig
	Redis    RedisConfig
	Catalog  CatalogConfig
	GCP      GCPConfig
	BigQuery BigQueryConfig
	Metrics  MetricsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CLIENTPULSE_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"CLIENTPULSE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CLIENTPULSE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// MerchantConfig points at the Magento-style admin REST API that supplies
// orders, customers, and the product catalog.
type MerchantConfig struct {
	BaseURL    string        `envconfig:"CLIENTPULSE_MERCHANT_BASE_URL" required:"true" validate:"url"`
	Username   string        `envconfig:"CLIENTPULSE_MERCHANT_USERNAME" required:"true"`
	Password   string        `envconfig:"CLIENTPULSE_MERCHANT_PASSWORD" required:"true"`
	Timeout    time.Duration `envconfig:"CLIENTPULSE_MERCHANT_TIMEOUT" default:"30s"`
	MaxRetries int           `envconfig:"CLIENTPULSE_MERCHANT_MAX_RETRIES" default:"3" validate:"gte=0,lte=10"`
	PageSize   int           `envconfig:"CLIENTPULSE_MERCHANT_PAGE_SIZE" default:"200" validate:"gte=1,lte=1000"`
}

// NormalizedBaseURL strips the trailing slash so endpoint joins stay predictable.
func (m MerchantConfig) NormalizedBaseURL() string {
	return strings.TrimRight(strings.TrimSpace(m.BaseURL), "/")
}

type RFMConfig struct {
	QualifyingStatuses []string `envconfig:"CLIENTPULSE_RFM_QUALIFYING_STATUSES" default:"complete,processing"`
	MaxSkipRatio       float64  `envconfig:"CLIENTPULSE_RFM_MAX_SKIP_RATIO" default:"0.5" validate:"gte=0,lte=1"`
	SortKey            string   `envconfig:"CLIENTPULSE_RFM_SORT_KEY" default:"ltv" validate:"oneof=ltv frequency recency ticket"`
}

type ExportConfig struct {
	Dir    string `envconfig:"CLIENTPULSE_EXPORT_DIR" default:"output"`
	Format string `envconfig:"CLIENTPULSE_EXPORT_FORMAT" default:"csv" validate:"oneof=csv parquet both"`
}

type SheetsConfig struct {
	CredentialsFile string `envconfig:"CLIENTPULSE_SHEETS_CREDENTIALS_FILE"`
	SpreadsheetID   string `envconfig:"CLIENTPULSE_SHEETS_SPREADSHEET_ID"`
	Worksheet       string `envconfig:"CLIENTPULSE_SHEETS_WORKSHEET" default:"Customer Master"`
}

// Configured reports whether the sheets sink can be used at all.
func (s SheetsConfig) Configured() bool {
	return strings.TrimSpace(s.CredentialsFile) != "" && strings.TrimSpace(s.SpreadsheetID) != ""
}

type RedisConfig struct {
	URL          string        `envconfig:"CLIENTPULSE_REDIS_URL"`
	PoolSize     int           `envconfig:"CLIENTPULSE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CLIENTPULSE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CLIENTPULSE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CLIENTPULSE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CLIENTPULSE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Configured reports whether the catalog cache has a Redis backend.
func (r RedisConfig) Configured() bool {
	return strings.TrimSpace(r.URL) != ""
}

type CatalogConfig struct {
	CacheTTL time.Duration `envconfig:"CLIENTPULSE_CATALOG_CACHE_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CLIENTPULSE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"CLIENTPULSE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"CLIENTPULSE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type BigQueryConfig struct {
	Dataset     string `envconfig:"CLIENTPULSE_BIGQUERY_DATASET" default:"clientpulse"`
	MasterTable string `envconfig:"CLIENTPULSE_BIGQUERY_MASTER_TABLE" default:"customer_master"`
}

// Configured reports whether master rows should be streamed to BigQuery.
func (b BigQueryConfig) Configured(gcp GCPConfig) bool {
	return strings.TrimSpace(gcp.ProjectID) != "" && strings.TrimSpace(b.Dataset) != ""
}

type MetricsConfig struct {
	PushgatewayURL string `envconfig:"CLIENTPULSE_METRICS_PUSHGATEWAY_URL"`
	JobName        string `envconfig:"CLIENTPULSE_METRICS_JOB_NAME" default:"clientpulse-rfm"`
}
