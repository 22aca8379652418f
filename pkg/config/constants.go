package config

const (
	// EnvPrefix scopes every environment variable the engine reads.
	EnvPrefix = "CLICKSTREAM"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv = "CLICKSTREAM_APP_ENV"
	EnvPort   = "CLICKSTREAM_APP_PORT"
	EnvDBDSN  = "CLICKSTREAM_DB_DSN"
	EnvDBHost = "CLICKSTREAM_DB_HOST"
	EnvDBUser = "CLICKSTREAM_DB_USER"
	EnvDBName = "CLICKSTREAM_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
