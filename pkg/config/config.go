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
	Mongo        MongoConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Marketplace  MarketplaceConfig
	RateLimit    RateLimitConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Marketplace.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BAZAAR_APP_ENV" required:"true"`
	Port         string `envconfig:"BAZAAR_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BAZAAR_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BAZAAR_LOG_WARN_STACK" default:"false"`
	CORSOrigins  string `envconfig:"BAZAAR_CORS_ALLOWED_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	out := []string{}
	for _, origin := range strings.Split(a.CORSOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

type ServiceConfig struct {
	Kind string `envconfig:"BAZAAR_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"BAZAAR_DB_DSN"`
	Driver string `envconfig:"BAZAAR_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BAZAAR_DB_HOST"`
	LegacyPort     int    `envconfig:"BAZAAR_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BAZAAR_DB_USER"`
	LegacyPassword string `envconfig:"BAZAAR_DB_PASSWORD"`
	LegacyName     string `envconfig:"BAZAAR_DB_NAME"`
	LegacySSLMode  string `envconfig:"BAZAAR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BAZAAR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BAZAAR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BAZAAR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BAZAAR_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SerializationRetries int           `envconfig:"BAZAAR_DB_SERIALIZATION_RETRIES" default:"3"`
	RetryBaseDelay       time.Duration `envconfig:"BAZAAR_DB_RETRY_BASE_DELAY" default:"25ms"`

	SlowQueryThreshold time.Duration `envconfig:"BAZAAR_DB_SLOW_QUERY_THRESHOLD" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BAZAAR_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BAZAAR_REDIS_ADDR"`
	Password     string        `envconfig:"BAZAAR_REDIS_PASSWORD"`
	DB           int           `envconfig:"BAZAAR_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BAZAAR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BAZAAR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BAZAAR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BAZAAR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BAZAAR_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type MongoConfig struct {
	URI            string        `envconfig:"BAZAAR_MONGO_URI" required:"true"`
	Database       string        `envconfig:"BAZAAR_MONGO_DATABASE" default:"bazaar"`
	ActivityColl   string        `envconfig:"BAZAAR_MONGO_ACTIVITY_COLLECTION" default:"activity_logs"`
	ConnectTimeout time.Duration `envconfig:"BAZAAR_MONGO_CONNECT_TIMEOUT" default:"10s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BAZAAR_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BAZAAR_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BAZAAR_JWT_EXPIRATION_MINUTES" required:"true"`
}

// TTL returns the access token lifetime.
func (j JWTConfig) TTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BAZAAR_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BAZAAR_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"BAZAAR_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	HTTPIdempotencyTTL   time.Duration `envconfig:"BAZAAR_HTTP_IDEMPOTENCY_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"BAZAAR_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"BAZAAR_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"BAZAAR_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic           string `envconfig:"BAZAAR_PUBSUB_ORDERS_TOPIC" required:"true"`
	ReviewsTopic          string `envconfig:"BAZAAR_PUBSUB_REVIEWS_TOPIC" required:"true"`
	InventoryTopic        string `envconfig:"BAZAAR_PUBSUB_INVENTORY_TOPIC" required:"true"`
	OrdersSubscription    string `envconfig:"BAZAAR_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
	ReviewsSubscription   string `envconfig:"BAZAAR_PUBSUB_REVIEWS_SUBSCRIPTION" required:"true"`
	InventorySubscription string `envconfig:"BAZAAR_PUBSUB_INVENTORY_SUBSCRIPTION" required:"true"`
}

// Topics lists the configured topics the outbox publisher writes to.
func (p PubSubConfig) Topics() []string {
	return nonBlank(p.OrdersTopic, p.ReviewsTopic, p.InventoryTopic)
}

// NotificationSubscriptions lists the subscriptions the notification consumer drains.
func (p PubSubConfig) NotificationSubscriptions() []string {
	return nonBlank(p.OrdersSubscription, p.ReviewsSubscription, p.InventorySubscription)
}

func nonBlank(names ...string) []string {
	out := []string{}
	for _, name := range names {
		if strings.TrimSpace(name) != "" {
			out = append(out, name)
		}
	}
	return out
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"BAZAAR_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"BAZAAR_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"BAZAAR_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// RateLimitConfig bounds write traffic per caller on the public API.
type RateLimitConfig struct {
	WriteLimit  int           `envconfig:"BAZAAR_RATE_LIMIT_WRITES" default:"60"`
	WriteWindow time.Duration `envconfig:"BAZAAR_RATE_LIMIT_WINDOW" default:"1m"`
}

// CronConfig schedules the maintenance worker and its retention windows.
type CronConfig struct {
	Interval              time.Duration `envconfig:"BAZAAR_CRON_INTERVAL" default:"24h"`
	NotificationRetention int           `envconfig:"BAZAAR_NOTIFICATION_RETENTION_DAYS" default:"90"`
	OutboxRetention       int           `envconfig:"BAZAAR_OUTBOX_RETENTION_DAYS" default:"14"`
}

type MarketplaceConfig struct {
	LowStockThreshold   int           `envconfig:"BAZAAR_LOW_STOCK_THRESHOLD" default:"10"`
	DeliveryDays        int           `envconfig:"BAZAAR_ESTIMATED_DELIVERY_DAYS" default:"7"`
	OrderNumberAttempts int           `envconfig:"BAZAAR_ORDER_NUMBER_ATTEMPTS" default:"5"`
	StockCacheTTL       time.Duration `envconfig:"BAZAAR_STOCK_CACHE_TTL" default:"30s"`
}

// EstimatedDelivery returns the delivery window applied to new orders.
func (m MarketplaceConfig) EstimatedDelivery() time.Duration {
	return time.Duration(m.DeliveryDays) * 24 * time.Hour
}

func (m MarketplaceConfig) validate() error {
	if m.LowStockThreshold < 0 {
		return fmt.Errorf("%s must be >= 0", EnvLowStockThreshold)
	}
	if m.OrderNumberAttempts < 1 {
		return fmt.Errorf("%s must be >= 1", EnvOrderNumberAttempts)
	}
	return nil
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
