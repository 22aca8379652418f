package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App     AppConfig
	Service ServiceConfig
	DB      DBConfig
	Redis   RedisConfig
	Engine  EngineConfig
	Flags   FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CLICKSTREAM_APP_ENV" required:"true"`
	Port         string `envconfig:"CLICKSTREAM_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CLICKSTREAM_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CLICKSTREAM_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CLICKSTREAM_SERVICE_KIND" default:"engine"`
}

type DBConfig struct {
	DSN    string `envconfig:"CLICKSTREAM_DB_DSN"`
	Driver string `envconfig:"CLICKSTREAM_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CLICKSTREAM_DB_HOST"`
	LegacyPort     int    `envconfig:"CLICKSTREAM_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CLICKSTREAM_DB_USER"`
	LegacyPassword string `envconfig:"CLICKSTREAM_DB_PASSWORD"`
	LegacyName     string `envconfig:"CLICKSTREAM_DB_NAME"`
	LegacySSLMode  string `envconfig:"CLICKSTREAM_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CLICKSTREAM_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CLICKSTREAM_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CLICKSTREAM_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CLICKSTREAM_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CLICKSTREAM_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CLICKSTREAM_REDIS_ADDR"`
	Password     string        `envconfig:"CLICKSTREAM_REDIS_PASSWORD"`
	DB           int           `envconfig:"CLICKSTREAM_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CLICKSTREAM_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CLICKSTREAM_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CLICKSTREAM_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CLICKSTREAM_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CLICKSTREAM_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// EngineConfig carries the batch computation knobs. The session gap and
// lookback defaults encode the contract the downstream tables are built on;
// override them only in tests.
type EngineConfig struct {
	SessionGap     time.Duration `envconfig:"CLICKSTREAM_ENGINE_SESSION_GAP" default:"30m"`
	Lookback       time.Duration `envconfig:"CLICKSTREAM_ENGINE_LOOKBACK" default:"168h"`
	SiteDomain     string        `envconfig:"CLICKSTREAM_ENGINE_SITE_DOMAIN" required:"true"`
	RunLockKey     string        `envconfig:"CLICKSTREAM_ENGINE_RUN_LOCK_KEY" default:"clickstream:engine:run_lock"`
	RunLockTTL     time.Duration `envconfig:"CLICKSTREAM_ENGINE_RUN_LOCK_TTL" default:"2h"`
	WriteBatchSize int           `envconfig:"CLICKSTREAM_ENGINE_WRITE_BATCH_SIZE" default:"500"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CLICKSTREAM_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CLICKSTREAM_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
