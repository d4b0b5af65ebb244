package config

// EnvPrefix namespaces every variable read by envconfig.
const EnvPrefix = "STOCKLEDGER"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DBDriverSQLite   = "sqlite"
	DBDriverPostgres = "postgres"

	// DefaultSQLiteDSN keeps state in process memory for the lifetime of the service.
	DefaultSQLiteDSN = "file:stockledger?mode=memory&cache=shared"
)

const (
	EnvAppEnv       = "STOCKLEDGER_APP_ENV"
	EnvPort         = "STOCKLEDGER_APP_PORT"
	EnvLogLevel     = "STOCKLEDGER_LOG_LEVEL"
	EnvLogFormat    = "STOCKLEDGER_LOG_FORMAT"
	EnvDBDriver     = "STOCKLEDGER_DB_DRIVER"
	EnvDBDSN        = "STOCKLEDGER_DB_DSN"
	EnvDBHost       = "STOCKLEDGER_DB_HOST"
	EnvDBUser       = "STOCKLEDGER_DB_USER"
	EnvDBName       = "STOCKLEDGER_DB_NAME"
	EnvRedisURL     = "STOCKLEDGER_REDIS_URL"
	EnvLockTTL      = "STOCKLEDGER_LOCK_TTL"
	EnvAutoMigrate  = "STOCKLEDGER_AUTO_MIGRATE"
	EnvMetricsPath  = "STOCKLEDGER_METRICS_PATH"
	EnvIdempotency  = "STOCKLEDGER_FEATURE_IDEMPOTENCY"
	EnvLockWaitTime = "STOCKLEDGER_LOCK_WAIT_TIMEOUT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
