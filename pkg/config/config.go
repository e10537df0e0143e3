package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Pricing      PricingConfig
	Shipping     ShippingConfig
	Coupons      CouponConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Gateway      GatewayConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
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
	if err := cfg.Pricing.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"VASTRA_APP_ENV" required:"true"`
	Port         string `envconfig:"VASTRA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VASTRA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VASTRA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"VASTRA_DB_DSN"`
	Driver string `envconfig:"VASTRA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VASTRA_DB_HOST"`
	LegacyPort     int    `envconfig:"VASTRA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VASTRA_DB_USER"`
	LegacyPassword string `envconfig:"VASTRA_DB_PASSWORD"`
	LegacyName     string `envconfig:"VASTRA_DB_NAME"`
	LegacySSLMode  string `envconfig:"VASTRA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VASTRA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VASTRA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VASTRA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VASTRA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VASTRA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VASTRA_REDIS_ADDR"`
	Password     string        `envconfig:"VASTRA_REDIS_PASSWORD"`
	DB           int           `envconfig:"VASTRA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VASTRA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VASTRA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VASTRA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VASTRA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VASTRA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig describes tokens minted by the external identity provider; this
// service only verifies them.
type JWTConfig struct {
	Secret   string `envconfig:"VASTRA_JWT_SECRET" required:"true"`
	Issuer   string `envconfig:"VASTRA_JWT_ISSUER" required:"true"`
	Audience string `envconfig:"VASTRA_JWT_AUDIENCE" default:"vastra-storefront"`
}

// PricingConfig carries the display-price policy knobs.
type PricingConfig struct {
	// ShippingBuffer is folded into every display price. It is a pricing
	// policy, not the destination shipping fee charged at checkout.
	ShippingBuffer decimal.Decimal `envconfig:"VASTRA_PRICING_SHIPPING_BUFFER" default:"79"`
	GSTPercent     decimal.Decimal `envconfig:"VASTRA_PRICING_GST_PERCENT" default:"5"`
}

func (p PricingConfig) validate() error {
	if p.ShippingBuffer.IsNegative() {
		return fmt.Errorf("shipping buffer must be non-negative")
	}
	if p.GSTPercent.IsNegative() || p.GSTPercent.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("gst percent must be within [0,100]")
	}
	return nil
}

type ShippingConfig struct {
	BaseFee           decimal.Decimal `envconfig:"VASTRA_SHIPPING_BASE_FEE" default:"49"`
	RemoteZoneFee     decimal.Decimal `envconfig:"VASTRA_SHIPPING_REMOTE_ZONE_FEE" default:"99"`
	FreeOverSubtotal  decimal.Decimal `envconfig:"VASTRA_SHIPPING_FREE_OVER" default:"999"`
	RemoteZonePrefix  string          `envconfig:"VASTRA_SHIPPING_REMOTE_PREFIXES" default:"19,79"`
	StandardLabel     string          `envconfig:"VASTRA_SHIPPING_STANDARD_LABEL" default:"Standard Delivery"`
	RemoteLabel       string          `envconfig:"VASTRA_SHIPPING_REMOTE_LABEL" default:"Remote Area Delivery"`
	FreeShippingLabel string          `envconfig:"VASTRA_SHIPPING_FREE_LABEL" default:"Free Shipping"`
}

// RemoteZonePrefixes splits the configured comma-separated postal prefixes.
func (s ShippingConfig) RemoteZonePrefixes() []string {
	parts := strings.Split(s.RemoteZonePrefix, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

type CouponConfig struct {
	AppliedTTL time.Duration `envconfig:"VASTRA_COUPON_APPLIED_TTL" default:"72h"`
}

type RateLimitConfig struct {
	CouponWindow    time.Duration `envconfig:"VASTRA_RATE_LIMIT_COUPON_WINDOW" default:"1m"`
	CouponIPLimit   int           `envconfig:"VASTRA_RATE_LIMIT_COUPON_IP_LIMIT" default:"20"`
	CouponCodeLimit int           `envconfig:"VASTRA_RATE_LIMIT_COUPON_CODE_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"VASTRA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"VASTRA_AUTO_MIGRATE" default:"false"`
}

// GatewayConfig points at the external payment gateway. Capture is fully
// delegated; this service only creates gateway orders and verifies signatures.
type GatewayConfig struct {
	BaseURL       string        `envconfig:"VASTRA_GATEWAY_BASE_URL"`
	KeyID         string        `envconfig:"VASTRA_GATEWAY_KEY_ID"`
	KeySecret     string        `envconfig:"VASTRA_GATEWAY_KEY_SECRET"`
	WebhookSecret string        `envconfig:"VASTRA_GATEWAY_WEBHOOK_SECRET"`
	Timeout       time.Duration `envconfig:"VASTRA_GATEWAY_TIMEOUT" default:"10s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"VASTRA_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"VASTRA_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"VASTRA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"VASTRA_PUBSUB_ORDERS_TOPIC" default:"vastra-order-events"`
	OrdersSubscription string `envconfig:"VASTRA_PUBSUB_ORDERS_SUBSCRIPTION" default:"vastra-order-events-analytics"`
}

type BigQueryConfig struct {
	Dataset          string `envconfig:"VASTRA_BIGQUERY_DATASET" default:"vastra"`
	OrderEventsTable string `envconfig:"VASTRA_BIGQUERY_ORDER_EVENTS_TABLE" default:"order_events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"VASTRA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"VASTRA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"VASTRA_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
