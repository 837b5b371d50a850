package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "FACTURAS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "FACTURAS_DB_DSN"
	EnvDBHost = "FACTURAS_DB_HOST"
	EnvDBUser = "FACTURAS_DB_USER"
	EnvDBName = "FACTURAS_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Reporting     ReportingConfig
	Mailer        MailerConfig
	Seed          SeedConfig
	FeatureFlags  FeatureFlagsConfig
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
	Env          string   `envconfig:"FACTURAS_APP_ENV" required:"true"`
	Port         string   `envconfig:"FACTURAS_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"FACTURAS_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"FACTURAS_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"FACTURAS_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"FACTURAS_DB_DSN"`
	Driver string `envconfig:"FACTURAS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FACTURAS_DB_HOST"`
	LegacyPort     int    `envconfig:"FACTURAS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FACTURAS_DB_USER"`
	LegacyPassword string `envconfig:"FACTURAS_DB_PASSWORD"`
	LegacyName     string `envconfig:"FACTURAS_DB_NAME"`
	LegacySSLMode  string `envconfig:"FACTURAS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FACTURAS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FACTURAS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FACTURAS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FACTURAS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FACTURAS_REDIS_URL"`
	Address      string        `envconfig:"FACTURAS_REDIS_ADDR"`
	Password     string        `envconfig:"FACTURAS_REDIS_PASSWORD"`
	DB           int           `envconfig:"FACTURAS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FACTURAS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FACTURAS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FACTURAS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FACTURAS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FACTURAS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"FACTURAS_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"FACTURAS_JWT_ISSUER" default:"facturas-backend"`
	ExpirationMinutes      int    `envconfig:"FACTURAS_JWT_EXPIRATION_MINUTES" default:"240"`
	RefreshTokenTTLMinutes int    `envconfig:"FACTURAS_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"FACTURAS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"FACTURAS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"FACTURAS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"FACTURAS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"FACTURAS_ARGON_KEY_LEN" default:"32"`
	TempPasswordLen  int `envconfig:"FACTURAS_TEMP_PASSWORD_LEN" default:"12"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"FACTURAS_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"FACTURAS_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"FACTURAS_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"FACTURAS_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"FACTURAS_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"FACTURAS_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type ReportingConfig struct {
	MonthlyWindowMonths int `envconfig:"FACTURAS_REPORTING_MONTHLY_WINDOW_MONTHS" default:"6"`
	TopProviders        int `envconfig:"FACTURAS_REPORTING_TOP_PROVIDERS" default:"5"`
	TopAccounts         int `envconfig:"FACTURAS_REPORTING_TOP_ACCOUNTS" default:"5"`
	RecentInvoices      int `envconfig:"FACTURAS_REPORTING_RECENT_INVOICES" default:"10"`
	DashboardRecent     int `envconfig:"FACTURAS_REPORTING_DASHBOARD_RECENT" default:"5"`
}

type MailerConfig struct {
	APIKey      string `envconfig:"FACTURAS_RESEND_API_KEY"`
	DefaultFrom string `envconfig:"FACTURAS_MAIL_FROM" default:"no-reply@facturas.local"`
}

type SeedConfig struct {
	AdminEmail    string `envconfig:"FACTURAS_SEED_ADMIN_EMAIL" default:"admin@facturas.local"`
	AdminPassword string `envconfig:"FACTURAS_SEED_ADMIN_PASSWORD"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"FACTURAS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"FACTURAS_AUTO_MIGRATE" default:"false"`
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
