package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	BaseCurrency          string
	ReferenceCurrency     string
	FallbackReferenceRate decimal.Decimal

	LedgerPath     string
	HistoryPath    string
	PaymentLogPath string
	DatabaseURL    string

	HistoryMaxLength      int
	AccrualPeriodsPerYear int
	// ClampPaymentDay moves payment days beyond a month's length to its last day.
	ClampPaymentDay bool

	CoinGeckoURL       string
	YahooURL           string
	ExchangeRateURL    string
	EquitySymbolSuffix string
	HTTPRetryMax       int
	HTTPRetryBaseDelay time.Duration
	EquityFetchDelay   time.Duration
	QuoteCacheTTL      time.Duration

	RefreshInterval time.Duration
	HTTPPort        string
	AdminAPIKey     string

	SheetsID              string
	GoogleCredentialsJSON string
}

// LoadDotEnv reads a .env file into the environment if one exists.
// Variables already set in the environment win.
func LoadDotEnv(paths ...string) {
	if err := godotenv.Load(paths...); err != nil {
		slog.Debug("no .env file loaded, using process environment", "error", err)
	}
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		BaseCurrency:          envOrDefault("BASE_CURRENCY", "TWD"),
		ReferenceCurrency:     envOrDefault("REFERENCE_CURRENCY", "USD"),
		FallbackReferenceRate: envOrDefaultDecimal("FALLBACK_REFERENCE_RATE", decimal.RequireFromString("31.5")),

		LedgerPath:     envOrDefault("LEDGER_PATH", "data/ledger.json"),
		HistoryPath:    envOrDefault("HISTORY_PATH", "data/history.json"),
		PaymentLogPath: envOrDefault("PAYMENT_LOG_PATH", "data/payments.json"),
		DatabaseURL:    envOrDefault("DATABASE_URL", ""),

		HistoryMaxLength:      envOrDefaultInt("HISTORY_MAX_LENGTH", 1000),
		AccrualPeriodsPerYear: envOrDefaultInt("ACCRUAL_PERIODS_PER_YEAR", 12),
		ClampPaymentDay:       envOrDefaultBool("CLAMP_PAYMENT_DAY", false),

		CoinGeckoURL:       envOrDefault("COINGECKO_URL", "https://api.coingecko.com/api/v3"),
		YahooURL:           envOrDefault("YAHOO_URL", "https://query1.finance.yahoo.com"),
		ExchangeRateURL:    envOrDefault("EXCHANGE_RATE_URL", "https://api.exchangerate-api.com/v4"),
		EquitySymbolSuffix: envOrDefault("EQUITY_SYMBOL_SUFFIX", ".TW"),
		HTTPRetryMax:       envOrDefaultInt("HTTP_RETRY_MAX", 3),
		HTTPRetryBaseDelay: envOrDefaultDuration("HTTP_RETRY_BASE_DELAY", 2*time.Second),
		EquityFetchDelay:   envOrDefaultDuration("EQUITY_FETCH_DELAY", 200*time.Millisecond),
		QuoteCacheTTL:      envOrDefaultDuration("QUOTE_CACHE_TTL", 30*time.Second),

		RefreshInterval: envOrDefaultDuration("REFRESH_INTERVAL", 5*time.Minute),
		HTTPPort:        envOrDefault("HTTP_PORT", "8080"),
		AdminAPIKey:     envOrDefault("ADMIN_API_KEY", ""),

		SheetsID:              envOrDefault("SHEETS_ID", ""),
		GoogleCredentialsJSON: envOrDefault("GOOGLE_CREDENTIALS_JSON", ""),
	}
}

// SheetsEnabled reports whether the Google Sheets export is configured.
func (c Config) SheetsEnabled() bool {
	return c.SheetsID != "" && c.GoogleCredentialsJSON != ""
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("invalid boolean env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return b
	}
	return defaultVal
}

func envOrDefaultDecimal(key string, defaultVal decimal.Decimal) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil || !d.IsPositive() {
			slog.Warn("invalid decimal env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}
