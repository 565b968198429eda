package config

// EnvPrefix is the envconfig prefix shared by every variable.
const EnvPrefix = "clientpulse"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

// Environment variable names, kept in one place so tests and docs stay honest.
const (
	EnvAppEnv       = "CLIENTPULSE_APP_ENV"
	EnvLogLevel     = "CLIENTPULSE_LOG_LEVEL"
	EnvLogWarnStack = "CLIENTPULSE_LOG_WARN_STACK"

	EnvMerchantBaseURL  = "CLIENTPULSE_MERCHANT_BASE_URL"
	EnvMerchantUsername = "CLIENTPULSE_MERCHANT_USERNAME"
	EnvMerchantPassword = "CLIENTPULSE_MERCHANT_PASSWORD"
	EnvMerchantTimeout  = "CLIENTPULSE_MERCHANT_TIMEOUT"
	EnvMerchantRetries  = "CLIENTPULSE_MERCHANT_MAX_RETRIES"
	EnvMerchantPageSize = "CLIENTPULSE_MERCHANT_PAGE_SIZE"

	EnvRFMStatuses     = "CLIENTPULSE_RFM_QUALIFYING_STATUSES"
	EnvRFMMaxSkipRatio = "CLIENTPULSE_RFM_MAX_SKIP_RATIO"
	EnvRFMSortKey      = "CLIENTPULSE_RFM_SORT_KEY"

	EnvExportDir    = "CLIENTPULSE_EXPORT_DIR"
	EnvExportFormat = "CLIENTPULSE_EXPORT_FORMAT"

	EnvSheetsCredentialsFile = "CLIENTPULSE_SHEETS_CREDENTIALS_FILE"
	EnvSheetsSpreadsheetID   = "CLIENTPULSE_SHEETS_SPREADSHEET_ID"
	EnvSheetsWorksheet       = "CLIENTPULSE_SHEETS_WORKSHEET"

	EnvRedisURL = "CLIENTPULSE_REDIS_URL"

	EnvGCPProjectID      = "CLIENTPULSE_GCP_PROJECT_ID"
	EnvBigQueryDataset   = "CLIENTPULSE_BIGQUERY_DATASET"
	EnvBigQueryTable     = "CLIENTPULSE_BIGQUERY_MASTER_TABLE"
	EnvPushgatewayURL    = "CLIENTPULSE_METRICS_PUSHGATEWAY_URL"
	EnvMetricsJobName    = "CLIENTPULSE_METRICS_JOB_NAME"
	EnvCatalogCacheTTL   = "CLIENTPULSE_CATALOG_CACHE_TTL"
	EnvGCPCredsJSON      = "CLIENTPULSE_GCP_CREDENTIALS_JSON"
	EnvGCPCredsFile      = "CLIENTPULSE_GOOGLE_APPLICATION_CREDENTIALS"
	EnvRedisPoolSize     = "CLIENTPULSE_REDIS_POOL_SIZE"
	EnvRedisDialTimeout  = "CLIENTPULSE_REDIS_DIAL_TIMEOUT"
	EnvRedisReadTimeout  = "CLIENTPULSE_REDIS_READ_TIMEOUT"
	EnvRedisWriteTimeout = "CLIENTPULSE_REDIS_WRITE_TIMEOUT"
)
