package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Razorpay     RazorpayConfig
	Delhivery    DelhiveryConfig
	Commission   CommissionConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Eventing     EventingConfig
	Outbox       OutboxConfig
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
	Env          string `envconfig:"TROVEMART_APP_ENV" required:"true"`
	Port         string `envconfig:"TROVEMART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TROVEMART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TROVEMART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"TROVEMART_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"TROVEMART_DB_DSN"`
	Driver string `envconfig:"TROVEMART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TROVEMART_DB_HOST"`
	LegacyPort     int    `envconfig:"TROVEMART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TROVEMART_DB_USER"`
	LegacyPassword string `envconfig:"TROVEMART_DB_PASSWORD"`
	LegacyName     string `envconfig:"TROVEMART_DB_NAME"`
	LegacySSLMode  string `envconfig:"TROVEMART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TROVEMART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TROVEMART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TROVEMART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TROVEMART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TROVEMART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TROVEMART_REDIS_ADDR"`
	Password     string        `envconfig:"TROVEMART_REDIS_PASSWORD"`
	DB           int           `envconfig:"TROVEMART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TROVEMART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TROVEMART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TROVEMART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TROVEMART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TROVEMART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"TROVEMART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TROVEMART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TROVEMART_JWT_EXPIRATION_MINUTES" required:"true"`
}

// Expiration returns the access token TTL configured in minutes.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"TROVEMART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"TROVEMART_AUTO_MIGRATE" default:"false"`
}

type RazorpayConfig struct {
	KeyID         string        `envconfig:"TROVEMART_RAZORPAY_KEY_ID"`
	KeySecret     string        `envconfig:"TROVEMART_RAZORPAY_KEY_SECRET"`
	WebhookSecret string        `envconfig:"TROVEMART_RAZORPAY_WEBHOOK_SECRET"`
	BaseURL       string        `envconfig:"TROVEMART_RAZORPAY_BASE_URL" default:"https://api.razorpay.com/v1"`
	Timeout       time.Duration `envconfig:"TROVEMART_RAZORPAY_TIMEOUT" default:"10s"`
}

type DelhiveryConfig struct {
	APIKey        string        `envconfig:"TROVEMART_DELHIVERY_API_KEY"`
	BaseURL       string        `envconfig:"TROVEMART_DELHIVERY_BASE_URL" default:"https://track.delhivery.com"`
	Timeout       time.Duration `envconfig:"TROVEMART_DELHIVERY_TIMEOUT" default:"5s"`
	PickupPincode string        `envconfig:"TROVEMART_DELHIVERY_PICKUP_PINCODE" default:"110001"`
}

type CommissionConfig struct {
	DefaultRatePercent float64 `envconfig:"TROVEMART_COMMISSION_DEFAULT_RATE_PERCENT" default:"10"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"TROVEMART_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"TROVEMART_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"TROVEMART_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic           string `envconfig:"TROVEMART_PUBSUB_ORDERS_TOPIC" required:"true"`
	OrdersSubscription    string `envconfig:"TROVEMART_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
	PaymentsTopic         string `envconfig:"TROVEMART_PUBSUB_PAYMENTS_TOPIC" required:"true"`
	PaymentsSubscription  string `envconfig:"TROVEMART_PUBSUB_PAYMENTS_SUBSCRIPTION" required:"true"`
	PayoutsTopic          string `envconfig:"TROVEMART_PUBSUB_PAYOUTS_TOPIC" default:"tm-payout-events"`
	PayoutsSubscription   string `envconfig:"TROVEMART_PUBSUB_PAYOUTS_SUBSCRIPTION"`
	NotificationTopic     string `envconfig:"TROVEMART_PUBSUB_NOTIFICATION_TOPIC" default:"tm-notification-events"`
	NotificationSub       string `envconfig:"TROVEMART_PUBSUB_NOTIFICATION_SUBSCRIPTION"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"TROVEMART_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"TROVEMART_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"TROVEMART_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"TROVEMART_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
