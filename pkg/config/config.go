package config

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Checkout     CheckoutConfig
	GuestCart    GuestCartConfig
	RateLimit    RateLimitConfig
	Metrics      MetricsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate reports every out-of-range setting at once.
func (c Config) validate() error {
	err := c.Checkout.validate()
	if c.DB.TxAttempts < 1 || c.DB.TxAttempts > 10 {
		err = multierr.Append(err, fmt.Errorf("PETSHOP_DB_TX_ATTEMPTS must be between 1 and 10, got %d", c.DB.TxAttempts))
	}
	if c.JWT.LeewaySeconds < 0 || c.JWT.LeewaySeconds > 300 {
		err = multierr.Append(err, fmt.Errorf("PETSHOP_JWT_LEEWAY_SECONDS must be between 0 and 300, got %d", c.JWT.LeewaySeconds))
	}
	return err
}

type AppConfig struct {
	Env          string   `envconfig:"PETSHOP_APP_ENV" required:"true"`
	Port         string   `envconfig:"PETSHOP_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"PETSHOP_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"PETSHOP_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"PETSHOP_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"PETSHOP_DB_DSN"`

	LegacyHost     string `envconfig:"PETSHOP_DB_HOST"`
	LegacyPort     int    `envconfig:"PETSHOP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PETSHOP_DB_USER"`
	LegacyPassword string `envconfig:"PETSHOP_DB_PASSWORD"`
	LegacyName     string `envconfig:"PETSHOP_DB_NAME"`
	LegacySSLMode  string `envconfig:"PETSHOP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PETSHOP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PETSHOP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PETSHOP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PETSHOP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// TxAttempts bounds how often a transaction aborted by a serialization
	// failure or deadlock is run again.
	TxAttempts int `envconfig:"PETSHOP_DB_TX_ATTEMPTS" default:"3"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PETSHOP_REDIS_URL"`
	Address      string        `envconfig:"PETSHOP_REDIS_ADDR"`
	Password     string        `envconfig:"PETSHOP_REDIS_PASSWORD"`
	DB           int           `envconfig:"PETSHOP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PETSHOP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PETSHOP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PETSHOP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PETSHOP_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"PETSHOP_REDIS_WRITE_TIMEOUT" default:"3s"`
}

// JWTConfig describes how customer access tokens issued by the identity
// service are verified.
type JWTConfig struct {
	Secret string `envconfig:"PETSHOP_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"PETSHOP_JWT_ISSUER" required:"true"`
	// ExpirationMinutes is only used when minting tokens in tests and tooling.
	ExpirationMinutes int `envconfig:"PETSHOP_JWT_EXPIRATION_MINUTES" default:"60"`
	// LeewaySeconds absorbs clock skew between the identity service and us.
	LeewaySeconds int `envconfig:"PETSHOP_JWT_LEEWAY_SECONDS" default:"30"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PETSHOP_AUTO_MIGRATE" default:"false"`
	GuestCart   bool `envconfig:"PETSHOP_FEATURE_GUEST_CART" default:"true"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"PETSHOP_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"PETSHOP_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"PETSHOP_PUBSUB_ORDERS_TOPIC" default:"shop-orders"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PETSHOP_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PETSHOP_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PETSHOP_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// CheckoutConfig carries the placeholders substituted when a checkout request
// omits payment or delivery details.
type CheckoutConfig struct {
	DefaultPaymentMethod   string `envconfig:"PETSHOP_CHECKOUT_DEFAULT_PAYMENT_METHOD" default:"Cartão/Pix"`
	DefaultDeliveryAddress string `envconfig:"PETSHOP_CHECKOUT_DEFAULT_DELIVERY_ADDRESS" default:"Aguardando confirmação"`
	DefaultSellerID        int64  `envconfig:"PETSHOP_CHECKOUT_DEFAULT_SELLER_ID" default:"1"`
	Isolation              string `envconfig:"PETSHOP_CHECKOUT_ISOLATION" default:"repeatable_read"`
}

// IsolationLevel maps the configured isolation name onto database/sql levels.
// Anything weaker than repeatable read is rejected by validate.
func (c CheckoutConfig) IsolationLevel() sql.IsolationLevel {
	switch strings.ToLower(strings.TrimSpace(c.Isolation)) {
	case "serializable":
		return sql.LevelSerializable
	default:
		return sql.LevelRepeatableRead
	}
}

func (c CheckoutConfig) validate() error {
	var err error
	switch strings.ToLower(strings.TrimSpace(c.Isolation)) {
	case "", "repeatable_read", "serializable":
	default:
		err = fmt.Errorf("%s must be repeatable_read or serializable, got %q", EnvCheckoutIsolation, c.Isolation)
	}
	if c.DefaultSellerID <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvCheckoutDefaultSeller))
	}
	return err
}

type GuestCartConfig struct {
	TTL          time.Duration `envconfig:"PETSHOP_GUEST_CART_TTL" default:"168h"`
	MergeLockTTL time.Duration `envconfig:"PETSHOP_GUEST_CART_MERGE_LOCK_TTL" default:"30s"`
}

// RateLimitConfig throttles the anonymous guest-cart surface. A zero limit
// disables that dimension.
type RateLimitConfig struct {
	GuestWindow       time.Duration `envconfig:"PETSHOP_RATE_LIMIT_GUEST_WINDOW" default:"1m"`
	GuestIPLimit      int           `envconfig:"PETSHOP_RATE_LIMIT_GUEST_IP" default:"120"`
	GuestSessionLimit int           `envconfig:"PETSHOP_RATE_LIMIT_GUEST_SESSION" default:"60"`
}

type MetricsConfig struct {
	Enabled bool   `envconfig:"PETSHOP_METRICS_ENABLED" default:"true"`
	Addr    string `envconfig:"PETSHOP_METRICS_ADDR" default:":9090"`
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
