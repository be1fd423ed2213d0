package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "CLINICSTOCK"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv = "CLINICSTOCK_APP_ENV"
	EnvPort   = "CLINICSTOCK_APP_PORT"
	EnvDBDSN  = "CLINICSTOCK_DB_DSN"
	EnvDBHost = "CLINICSTOCK_DB_HOST"
	EnvDBUser = "CLINICSTOCK_DB_USER"
	EnvDBName = "CLINICSTOCK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Sweep        SweepConfig
	Retention    RetentionConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"CLINICSTOCK_APP_ENV" required:"true"`
	Port         string `envconfig:"CLINICSTOCK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CLINICSTOCK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CLINICSTOCK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CLINICSTOCK_DB_DSN"`
	Driver string `envconfig:"CLINICSTOCK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CLINICSTOCK_DB_HOST"`
	LegacyPort     int    `envconfig:"CLINICSTOCK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CLINICSTOCK_DB_USER"`
	LegacyPassword string `envconfig:"CLINICSTOCK_DB_PASSWORD"`
	LegacyName     string `envconfig:"CLINICSTOCK_DB_NAME"`
	LegacySSLMode  string `envconfig:"CLINICSTOCK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CLINICSTOCK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CLINICSTOCK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CLINICSTOCK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CLINICSTOCK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CLINICSTOCK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CLINICSTOCK_REDIS_ADDR"`
	Password     string        `envconfig:"CLINICSTOCK_REDIS_PASSWORD"`
	DB           int           `envconfig:"CLINICSTOCK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CLINICSTOCK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CLINICSTOCK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CLINICSTOCK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CLINICSTOCK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CLINICSTOCK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CLINICSTOCK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CLINICSTOCK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"CLINICSTOCK_JWT_EXPIRATION_MINUTES" default:"60"`
}

// SweepConfig controls the background alert sweep.
type SweepConfig struct {
	Interval          time.Duration `envconfig:"CLINICSTOCK_SWEEP_INTERVAL" default:"5m"`
	LockTTL           time.Duration `envconfig:"CLINICSTOCK_SWEEP_LOCK_TTL" default:"10m"`
	SuppressionWindow time.Duration `envconfig:"CLINICSTOCK_ALERT_SUPPRESSION_WINDOW" default:"24h"`
	ExpiryWindowDays  int           `envconfig:"CLINICSTOCK_ALERT_EXPIRY_WINDOW_DAYS" default:"30"`
	LedgerRetries     int           `envconfig:"CLINICSTOCK_LEDGER_RETRIES" default:"3"`
}

type RetentionConfig struct {
	AlertLogDays     int `envconfig:"CLINICSTOCK_RETENTION_ALERT_LOG_DAYS" default:"90"`
	NotificationDays int `envconfig:"CLINICSTOCK_RETENTION_NOTIFICATION_DAYS" default:"30"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"CLINICSTOCK_GCP_PROJECT_ID" required:"true"`
}

type PubSubConfig struct {
	AlertsTopic        string `envconfig:"CLINICSTOCK_PUBSUB_ALERTS_TOPIC" required:"true"`
	AlertsSubscription string `envconfig:"CLINICSTOCK_PUBSUB_ALERTS_SUBSCRIPTION" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CLINICSTOCK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CLINICSTOCK_AUTO_MIGRATE" default:"false"`
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
