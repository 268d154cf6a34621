package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"rateio/internal/ledger"
	applog "rateio/internal/log"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export
	GoogleSpreadsheetID        string
	GoogleSheetName            string
	GoogleProjectionSheetName  string
	GoogleServiceAccountFile   string
	GoogleServiceAccountJSON   string
	ProjectionExportSchedule   string
	ProjectionExportParallel   int
	ProjectionExportJobTimeout time.Duration

	// Period cache
	CacheTTL  time.Duration
	CacheSize int

	// Balance strategies
	BalanceSplitPolicy string
	BalanceEntryFilter string

	// Observability
	LogLevel  string
	LogFormat string
	SentryDSN string

	// Backend selection
	DataBackend string
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/rateio.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "rateio"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_changes"),

		GoogleSpreadsheetID:        getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:            getEnv("GOOGLE_SHEET_NAME", "Lançamentos"),
		GoogleProjectionSheetName:  getEnv("GOOGLE_PROJECTION_SHEET_NAME", "Projeção"),
		GoogleServiceAccountFile:   getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON:   getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		ProjectionExportSchedule:   getEnv("PROJECTION_EXPORT_SCHEDULE", "@every 1h"),
		ProjectionExportParallel:   getEnvInt("PROJECTION_EXPORT_PARALLELISM", 4),
		ProjectionExportJobTimeout: getEnvDuration("PROJECTION_EXPORT_TIMEOUT", 5*time.Minute),

		CacheTTL:  getEnvDuration("CACHE_TTL", 5*time.Minute),
		CacheSize: getEnvInt("CACHE_SIZE", 256),

		BalanceSplitPolicy: getEnv("BALANCE_SPLIT_POLICY", "equal"),
		BalanceEntryFilter: getEnv("BALANCE_ENTRY_FILTER", "all"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
		SentryDSN: getEnv("SENTRY_DSN", ""),

		DataBackend: getEnv("DATA_BACKEND", BackendMemory),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{BackendMemory, BackendSQLite}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == BackendSQLite {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Sheets export is optional; a spreadsheet ID turns it on.
	if c.GoogleSpreadsheetID != "" {
		if c.GoogleSheetName == "" || c.GoogleProjectionSheetName == "" {
			errors = append(errors, "Google sheet names cannot be empty when a spreadsheet ID is provided")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.ProjectionExportSchedule != "" {
		if _, err := cron.ParseStandard(c.ProjectionExportSchedule); err != nil {
			errors = append(errors, fmt.Sprintf("invalid projection export schedule '%s': %v", c.ProjectionExportSchedule, err))
		}
	}
	if c.ProjectionExportParallel < 1 || c.ProjectionExportParallel > 64 {
		errors = append(errors, fmt.Sprintf("invalid projection export parallelism %d: must be between 1 and 64", c.ProjectionExportParallel))
	}

	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.CacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	} else if c.CacheTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at most 24 hours", c.CacheTTL))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	if _, err := ledger.SplitPolicyFor(c.BalanceSplitPolicy); err != nil {
		errors = append(errors, fmt.Sprintf("invalid balance split policy '%s': must be one of %v", c.BalanceSplitPolicy, ledger.SplitPolicyNames()))
	}
	if _, err := ledger.EntryFilterFor(c.BalanceEntryFilter); err != nil {
		errors = append(errors, fmt.Sprintf("invalid balance entry filter '%s': must be one of %v", c.BalanceEntryFilter, ledger.EntryFilterNames()))
	}

	if _, err := applog.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}
	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// BalanceOptions resolves the configured balance strategies. Call it only
// after Validate.
func (c *Config) BalanceOptions() (ledger.BalanceOptions, error) {
	split, err := ledger.SplitPolicyFor(c.BalanceSplitPolicy)
	if err != nil {
		return ledger.BalanceOptions{}, err
	}
	filter, err := ledger.EntryFilterFor(c.BalanceEntryFilter)
	if err != nil {
		return ledger.BalanceOptions{}, err
	}
	return ledger.BalanceOptions{Split: split, Filter: filter}, nil
}

// SheetsEnabled reports whether ledger changes are exported to Google Sheets.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
