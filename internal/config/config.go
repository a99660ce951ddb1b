package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/xavierca1/npi-leads/internal/usecase"
)

type Config struct {
	Env      string
	Port     string
	LogLevel string

	DatabaseURL    string
	DatabaseDriver string

	RegistryURL        string
	RegistryRPS        float64
	RegistryBurst      int
	RegistryMaxRetries int
	RegistryTimeout    time.Duration

	RabbitMQURL  string
	SyncMaxChain int

	MailHost        string
	MailPort        int
	MailUser        string
	MailPass        string
	MailFrom        string
	ReportRecipient []string

	S3Bucket    string
	S3Region    string
	S3Prefix    string
	S3Endpoint  string
	S3PathStyle bool

	AllowedOrigins []string
	SyncRateLimit  int

	ScheduledSyncEnabled  bool
	ScheduledSyncInterval time.Duration
	ScheduledSyncSearches []usecase.SyncInput
}

// Load reads .env when present and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:      stringEnv("APP_ENV", "production"),
		Port:     stringEnv("PORT", "8080"),
		LogLevel: stringEnv("LOG_LEVEL", "info"),

		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DatabaseDriver: stringEnv("DATABASE_DRIVER", "pgx"),

		RegistryURL: stringEnv("NPPES_BASE_URL", "https://npiregistry.cms.hhs.gov/api/"),
		RabbitMQURL: os.Getenv("RABBITMQ_URL"),

		MailHost:        os.Getenv("MAIL_HOST"),
		MailUser:        os.Getenv("MAIL_USER"),
		MailPass:        os.Getenv("MAIL_PASS"),
		MailFrom:        stringEnv("MAIL_FROM", "no-reply@npi-leads.local"),
		ReportRecipient: listEnv("REPORT_RECIPIENTS"),

		S3Bucket:   os.Getenv("S3_BUCKET"),
		S3Region:   os.Getenv("S3_REGION"),
		S3Prefix:   stringEnv("S3_PREFIX", "uploads"),
		S3Endpoint: os.Getenv("S3_ENDPOINT"),

		AllowedOrigins: listEnv("ALLOWED_ORIGINS"),
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"http://localhost:5173"}
	}

	var err error
	if cfg.RegistryRPS, err = floatEnv("NPPES_REQUESTS_PER_SECOND", 5); err != nil {
		return nil, err
	}
	if cfg.RegistryBurst, err = intEnv("NPPES_BURST", 3); err != nil {
		return nil, err
	}
	if cfg.RegistryMaxRetries, err = intEnv("NPPES_MAX_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.RegistryTimeout, err = durationEnv("NPPES_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.SyncMaxChain, err = intEnv("SYNC_MAX_CHAIN", 50); err != nil {
		return nil, err
	}
	if cfg.MailPort, err = intEnv("MAIL_PORT", 587); err != nil {
		return nil, err
	}
	if cfg.S3PathStyle, err = boolEnv("S3_PATH_STYLE", false); err != nil {
		return nil, err
	}
	if cfg.SyncRateLimit, err = intEnv("SYNC_RATE_LIMIT_PER_MINUTE", 10); err != nil {
		return nil, err
	}
	if cfg.ScheduledSyncEnabled, err = boolEnv("SCHEDULED_SYNC_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.ScheduledSyncInterval, err = durationEnv("SCHEDULED_SYNC_INTERVAL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.ScheduledSyncSearches, err = ParseSearches(os.Getenv("SCHEDULED_SYNC_SEARCHES")); err != nil {
		return nil, err
	}

	if cfg.DatabaseDriver != "pgx" && cfg.DatabaseDriver != "postgres" {
		return nil, fmt.Errorf("DATABASE_DRIVER must be pgx or postgres, got %q", cfg.DatabaseDriver)
	}
	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

func (c *Config) MailConfigured() bool {
	return c.MailHost != "" && len(c.ReportRecipient) > 0
}

// ParseSearches reads "state=TX,taxonomy=Family Medicine;city=Austin" into
// one SyncInput per ';'-separated entry.
func ParseSearches(raw string) ([]usecase.SyncInput, error) {
	var out []usecase.SyncInput
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		var in usecase.SyncInput
		for _, pair := range strings.Split(entry, ",") {
			k, v, ok := strings.Cut(pair, "=")
			if !ok {
				return nil, fmt.Errorf("invalid search %q: expected key=value", pair)
			}
			v = strings.TrimSpace(v)
			switch strings.ToLower(strings.TrimSpace(k)) {
			case "taxonomy":
				in.TaxonomyDescription = v
			case "state":
				in.State = v
			case "city":
				in.City = v
			case "last_name":
				in.LastName = v
			case "type", "enumeration_type":
				in.EnumerationType = v
			default:
				return nil, fmt.Errorf("invalid search %q: unknown key %q", entry, k)
			}
		}
		out = append(out, in)
	}
	return out, nil
}

func stringEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func listEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func intEnv(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func floatEnv(key string, def float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func boolEnv(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
