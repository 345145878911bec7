// Package config loads the service configuration from environment variables.
// envconfig maps variables onto the struct fields; Validate catches
// combinations that would only fail later at runtime.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// maxDBInt is the largest value of a PostgreSQL INTEGER column.
const maxDBInt = 1<<31 - 1

// Config holds every setting of the application.
type Config struct {
	// --- HTTP ---
	HTTPAddr         string        `envconfig:"HTTP_ADDR" default:":4000"`
	HTTPReadTimeout  time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s"`
	HTTPWriteTimeout time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"30s"`
	MaxUploadMB      int64         `envconfig:"MAX_UPLOAD_MB" default:"25"`
	CORSOrigin       string        `envconfig:"CORS_ORIGIN" default:"*"`

	// --- Order size ---
	MaxPages  int `envconfig:"MAX_PAGES" default:"1000"`
	MaxCopies int `envconfig:"MAX_COPIES" default:"100"`
	MaxSheets int `envconfig:"MAX_SHEETS" default:"5000"`

	// --- Database ---
	// Inside docker-compose the database service is called "postgres";
	// override DB_HOST=localhost for local runs.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"printvend"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"printvend"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"2"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"info"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Asia/Kolkata"`

	// --- Pricing ---
	RateBWSingle    decimal.Decimal `envconfig:"RATE_BW_SINGLE" default:"1.5"`
	RateBWDouble    decimal.Decimal `envconfig:"RATE_BW_DOUBLE" default:"1.0"`
	RateColorSingle decimal.Decimal `envconfig:"RATE_COLOR_SINGLE" default:"5.0"`
	RateColorDouble decimal.Decimal `envconfig:"RATE_COLOR_DOUBLE" default:"4.5"`
	TaxRate         decimal.Decimal `envconfig:"TAX_RATE" default:"0.18"`
	CoinValue       decimal.Decimal `envconfig:"COIN_VALUE" default:"0.1"`
	CashbackDivisor decimal.Decimal `envconfig:"CASHBACK_DIVISOR" default:"10"`

	// --- Order lifecycle ---
	OrderTTL           time.Duration `envconfig:"ORDER_TTL" default:"1h"`
	UserOrdersLimit    int           `envconfig:"USER_ORDERS_LIMIT" default:"10"`
	WalletHistoryLimit int           `envconfig:"WALLET_HISTORY_LIMIT" default:"50"`
	OrphanGrace        time.Duration `envconfig:"ORPHAN_GRACE" default:"1h"`

	// --- Blob storage ---
	BlobDriver string `envconfig:"BLOB_DRIVER" default:"gridfs"`
	MongoURI   string `envconfig:"MONGO_URI" default:"mongodb://mongo:27017"`
	MongoDB    string `envconfig:"MONGO_DB" default:"printvend"`
	BlobBucket string `envconfig:"BLOB_BUCKET" default:"prints"`
	BlobDir    string `envconfig:"BLOB_DIR" default:"./data/prints"`

	BlobBreakerFailures uint32        `envconfig:"BLOB_BREAKER_FAILURES" default:"5"`
	BlobBreakerTimeout  time.Duration `envconfig:"BLOB_BREAKER_TIMEOUT" default:"30s"`

	// --- Coupon cache (empty REDIS_ADDR disables it) ---
	RedisAddr      string        `envconfig:"REDIS_ADDR"`
	CouponCacheTTL time.Duration `envconfig:"COUPON_CACHE_TTL" default:"5m"`

	// --- Order events (empty KAFKA_BROKERS disables publishing) ---
	KafkaBrokersRaw string   `envconfig:"KAFKA_BROKERS"`
	KafkaBrokers    []string `ignored:"true"`
	KafkaTopic      string   `envconfig:"KAFKA_TOPIC" default:"printvend.orders"`

	// --- Support notifications ---
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	SupportChatID    int64  `envconfig:"SUPPORT_CHAT_ID"`

	// --- Access tokens (argon2id hashes, see scripts/generate_hash.go) ---
	KioskTokenHash string `envconfig:"KIOSK_TOKEN_HASH"`
	AdminTokenHash string `envconfig:"ADMIN_TOKEN_HASH"`

	// --- Jobs ---
	SweepSchedule string `envconfig:"SWEEP_SCHEDULE" default:"*/5 * * * *"`

	// --- Rate limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"30"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

// DatabaseDSN returns the PostgreSQL connection string.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// MaxUploadBytes is the multipart body limit for /process-print.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// NotificationsEnabled reports whether support tickets are forwarded to Telegram.
func (c *Config) NotificationsEnabled() bool {
	return c.TelegramBotToken != "" && c.SupportChatID != 0
}

func (c *Config) Validate() error {
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return errors.New("invalid DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if c.MaxUploadMB <= 0 {
		return errors.New("MAX_UPLOAD_MB must be > 0")
	}
	if c.MaxPages <= 0 || c.MaxCopies <= 0 || c.MaxSheets <= 0 {
		return errors.New("MAX_PAGES, MAX_COPIES and MAX_SHEETS must be > 0")
	}
	if c.MaxSheets > maxDBInt {
		return fmt.Errorf("MAX_SHEETS must be <= %d", maxDBInt)
	}
	if c.OrderTTL <= 0 {
		return errors.New("ORDER_TTL must be > 0")
	}
	if !c.CoinValue.IsPositive() {
		return errors.New("COIN_VALUE must be > 0")
	}
	if !c.CashbackDivisor.IsPositive() {
		return errors.New("CASHBACK_DIVISOR must be > 0")
	}
	if c.TaxRate.IsNegative() {
		return errors.New("TAX_RATE must be >= 0")
	}
	for name, rate := range map[string]decimal.Decimal{
		"RATE_BW_SINGLE":    c.RateBWSingle,
		"RATE_BW_DOUBLE":    c.RateBWDouble,
		"RATE_COLOR_SINGLE": c.RateColorSingle,
		"RATE_COLOR_DOUBLE": c.RateColorDouble,
	} {
		if rate.IsNegative() {
			return fmt.Errorf("%s must be >= 0", name)
		}
	}
	switch c.BlobDriver {
	case "gridfs", "fs", "memory":
	default:
		return fmt.Errorf("unknown BLOB_DRIVER %q", c.BlobDriver)
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return errors.New("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be > 0")
	}
	if (c.TelegramBotToken == "") != (c.SupportChatID == 0) {
		return errors.New("TELEGRAM_BOT_TOKEN and SUPPORT_CHAT_ID must be set together")
	}
	return nil
}

// Load reads environment variables into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	cfg.KafkaBrokers = splitCSV(cfg.KafkaBrokersRaw)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func splitCSV(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
