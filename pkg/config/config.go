package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = "TILLWORKS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "TILLWORKS_DB_DSN"
	EnvDBHost = "TILLWORKS_DB_HOST"
	EnvDBUser = "TILLWORKS_DB_USER"
	EnvDBName = "TILLWORKS_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Reconcile    ReconcileConfig
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
	if err := cfg.Reconcile.parseThreshold(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TILLWORKS_APP_ENV" required:"true"`
	Port         string `envconfig:"TILLWORKS_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"TILLWORKS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TILLWORKS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TILLWORKS_DB_DSN"`
	Driver string `envconfig:"TILLWORKS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TILLWORKS_DB_HOST"`
	LegacyPort     int    `envconfig:"TILLWORKS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TILLWORKS_DB_USER"`
	LegacyPassword string `envconfig:"TILLWORKS_DB_PASSWORD"`
	LegacyName     string `envconfig:"TILLWORKS_DB_NAME"`
	LegacySSLMode  string `envconfig:"TILLWORKS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TILLWORKS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TILLWORKS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TILLWORKS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TILLWORKS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TILLWORKS_REDIS_URL"`
	Address      string        `envconfig:"TILLWORKS_REDIS_ADDR"`
	Password     string        `envconfig:"TILLWORKS_REDIS_PASSWORD"`
	DB           int           `envconfig:"TILLWORKS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TILLWORKS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TILLWORKS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TILLWORKS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TILLWORKS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TILLWORKS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"TILLWORKS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TILLWORKS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TILLWORKS_JWT_EXPIRATION_MINUTES" default:"15"`
}

// ReconcileConfig carries the variance tolerance applied when a drawer closes.
type ReconcileConfig struct {
	VarianceThreshold string `envconfig:"TILLWORKS_VARIANCE_THRESHOLD" default:"100.00"`

	threshold decimal.Decimal
}

// Threshold returns the parsed, validated variance tolerance.
func (r ReconcileConfig) Threshold() decimal.Decimal {
	return r.threshold
}

func (r *ReconcileConfig) parseThreshold() error {
	value, err := decimal.NewFromString(strings.TrimSpace(r.VarianceThreshold))
	if err != nil {
		return fmt.Errorf("parsing variance threshold %q: %w", r.VarianceThreshold, err)
	}
	if value.IsNegative() {
		return fmt.Errorf("variance threshold must be non-negative, got %s", value)
	}
	r.threshold = value
	return nil
}

type GCPConfig struct {
	ProjectID              string `envconfig:"TILLWORKS_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"TILLWORKS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"TILLWORKS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	AuditTopic string `envconfig:"TILLWORKS_PUBSUB_AUDIT_TOPIC" default:"tw-drawer-audit"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TILLWORKS_AUTO_MIGRATE" default:"false"`
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
