package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Auth      AuthConfig
	S3        S3Config
	Log       LogConfig
	LLM       LLMConfig
	Pipeline  PipelineConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Usage     UsageConfig
	Storage   StorageConfig
	CORS      CORSConfig
	Queue     QueueConfig
	Email     EmailConfig
}

// EmailConfig holds alert delivery settings.
type EmailConfig struct {
	Provider    string `mapstructure:"provider"`
	Region      string `mapstructure:"region"`
	FromAddress string `mapstructure:"from_address"`
	FromName    string `mapstructure:"from_name"`
}

// QueueConfig holds extraction queue worker settings.
type QueueConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	BufferSize  int           `mapstructure:"buffer_size"`
	JobTTL      time.Duration `mapstructure:"job_ttl"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ProviderConfig holds settings for a single LLM provider.
type ProviderConfig struct {
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`
	Endpoint     string `mapstructure:"endpoint"`
}

// LLMConfig holds LLM transport settings with multi-provider support.
type LLMConfig struct {
	Primary   ProviderConfig `mapstructure:"primary"`
	Secondary ProviderConfig `mapstructure:"secondary"`
	Tertiary  ProviderConfig `mapstructure:"tertiary"`

	BreakerFailures uint32        `mapstructure:"breaker_failures"`
	BreakerTimeout  time.Duration `mapstructure:"breaker_timeout"`
}

// Providers returns the configured providers in fallback order.
func (l *LLMConfig) Providers() []*ProviderConfig {
	var out []*ProviderConfig
	for _, p := range []*ProviderConfig{&l.Primary, &l.Secondary, &l.Tertiary} {
		if p.Provider != "" {
			out = append(out, p)
		}
	}
	return out
}

// PipelineConfig holds the tolerances and thresholds of the extraction pipeline.
type PipelineConfig struct {
	EquationTolerance       float64 `mapstructure:"equation_tolerance"`
	RetrySumThreshold       float64 `mapstructure:"retry_sum_threshold"`
	SumWarningTolerance     float64 `mapstructure:"sum_warning_tolerance"`
	SumMinorTolerance       float64 `mapstructure:"sum_minor_tolerance"`
	NetMatchTolerance       float64 `mapstructure:"net_match_tolerance"`
	VerificationEnabled     bool    `mapstructure:"verification_enabled"`
	VerificationTrigger     float64 `mapstructure:"verification_trigger"`
	AgreementHigh           float64 `mapstructure:"agreement_high"`
	AgreementModerate       float64 `mapstructure:"agreement_moderate"`
	AgreementValueTolerance float64 `mapstructure:"agreement_value_tolerance"`
	MaxTextBytes            int     `mapstructure:"max_text_bytes"`
	MaxFileSizeMB           int64   `mapstructure:"max_file_size_mb"`
}

// CacheConfig holds response cache bounds.
type CacheConfig struct {
	TTL      time.Duration `mapstructure:"ttl"`
	MaxItems int           `mapstructure:"max_items"`
	MaxBytes int64         `mapstructure:"max_bytes"`
}

// RateLimitConfig holds LLM call quota settings.
type RateLimitConfig struct {
	MinInterval            time.Duration `mapstructure:"min_interval"`
	HourlyMax              int           `mapstructure:"hourly_max"`
	YearlyMax              int           `mapstructure:"yearly_max"`
	Override               bool          `mapstructure:"override"`
	CountVerificationCalls bool          `mapstructure:"count_verification_calls"`
}

// UsageConfig holds usage ledger settings.
type UsageConfig struct {
	USDToINR          float64       `mapstructure:"usd_to_inr"`
	AnomalyMinCalls   int           `mapstructure:"anomaly_min_calls"`
	AnomalyMultiplier float64       `mapstructure:"anomaly_multiplier"`
	AlertRecipient    string        `mapstructure:"alert_recipient"`
	AlertInterval     time.Duration `mapstructure:"alert_interval"`
	AlertWindow       time.Duration `mapstructure:"alert_window"`
}

// StorageConfig selects the payslip record persistence backend.
type StorageConfig struct {
	Backend    string `mapstructure:"backend"` // memory, postgres or s3
	S3Prefix   string `mapstructure:"s3_prefix"`
	Ledger     string `mapstructure:"ledger"` // memory, postgres or sqlite
	SQLitePath string `mapstructure:"sqlite_path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// AuthConfig holds device token settings.
type AuthConfig struct {
	Secret      string        `mapstructure:"secret"`
	TokenExpiry time.Duration `mapstructure:"token_expiry"`
	Issuer      string        `mapstructure:"issuer"`
	AppKey      string        `mapstructure:"app_key"`
	AdminKey    string        `mapstructure:"admin_key"`
}

// S3Config holds AWS S3 settings.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from environment variables with the PAYSLIPX_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PAYSLIPX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "180s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "payslipx")
	v.SetDefault("db.password", "payslipx_secret")
	v.SetDefault("db.name", "payslipx_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// Auth defaults
	v.SetDefault("auth.secret", "change-me-in-production")
	v.SetDefault("auth.token_expiry", "720h")
	v.SetDefault("auth.issuer", "payslipx")
	v.SetDefault("auth.app_key", "")
	v.SetDefault("auth.admin_key", "")

	// S3 defaults
	v.SetDefault("s3.region", "ap-south-1")
	v.SetDefault("s3.bucket", "payslipx-records")
	v.SetDefault("s3.endpoint", "")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Queue defaults
	v.SetDefault("queue.concurrency", 4)
	v.SetDefault("queue.buffer_size", 64)
	v.SetDefault("queue.job_ttl", "24h")

	// Email defaults
	v.SetDefault("email.provider", "noop")
	v.SetDefault("email.region", "ap-south-1")
	v.SetDefault("email.from_address", "alerts@payslipx.local")
	v.SetDefault("email.from_name", "payslipx")

	// LLM defaults
	v.SetDefault("llm.primary.provider", "claude")
	v.SetDefault("llm.primary.api_key", "")
	v.SetDefault("llm.primary.default_model", "")
	v.SetDefault("llm.primary.timeout_secs", 120)
	v.SetDefault("llm.primary.endpoint", "")
	v.SetDefault("llm.secondary.provider", "")
	v.SetDefault("llm.secondary.api_key", "")
	v.SetDefault("llm.secondary.default_model", "")
	v.SetDefault("llm.secondary.timeout_secs", 120)
	v.SetDefault("llm.secondary.endpoint", "")
	v.SetDefault("llm.tertiary.provider", "")
	v.SetDefault("llm.tertiary.api_key", "")
	v.SetDefault("llm.tertiary.default_model", "")
	v.SetDefault("llm.tertiary.timeout_secs", 120)
	v.SetDefault("llm.tertiary.endpoint", "")
	v.SetDefault("llm.breaker_failures", 5)
	v.SetDefault("llm.breaker_timeout", "30s")

	// Pipeline defaults
	v.SetDefault("pipeline.equation_tolerance", 0.01)
	v.SetDefault("pipeline.retry_sum_threshold", 0.10)
	v.SetDefault("pipeline.sum_warning_tolerance", 0.05)
	v.SetDefault("pipeline.sum_minor_tolerance", 0.01)
	v.SetDefault("pipeline.net_match_tolerance", 100.0)
	v.SetDefault("pipeline.verification_enabled", true)
	v.SetDefault("pipeline.verification_trigger", 0.9)
	v.SetDefault("pipeline.agreement_high", 0.8)
	v.SetDefault("pipeline.agreement_moderate", 0.5)
	v.SetDefault("pipeline.agreement_value_tolerance", 0.05)
	v.SetDefault("pipeline.max_text_bytes", 200_000)
	v.SetDefault("pipeline.max_file_size_mb", 10)

	// Cache defaults
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.max_items", 100)
	v.SetDefault("cache.max_bytes", 10<<20)

	// Rate limit defaults
	v.SetDefault("ratelimit.min_interval", "2s")
	v.SetDefault("ratelimit.hourly_max", 20)
	v.SetDefault("ratelimit.yearly_max", 500)
	v.SetDefault("ratelimit.override", false)
	v.SetDefault("ratelimit.count_verification_calls", true)

	// Usage defaults
	v.SetDefault("usage.usd_to_inr", 83.0)
	v.SetDefault("usage.anomaly_min_calls", 50)
	v.SetDefault("usage.anomaly_multiplier", 3.0)
	v.SetDefault("usage.alert_recipient", "")
	v.SetDefault("usage.alert_interval", "1h")
	v.SetDefault("usage.alert_window", "24h")

	// Storage defaults
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.s3_prefix", "payslips/")
	v.SetDefault("storage.ledger", "memory")
	v.SetDefault("storage.sqlite_path", "data/usage.db")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                        "PAYSLIPX_SERVER_PORT",
		"server.read_timeout":                "PAYSLIPX_SERVER_READ_TIMEOUT",
		"server.write_timeout":               "PAYSLIPX_SERVER_WRITE_TIMEOUT",
		"server.environment":                 "PAYSLIPX_SERVER_ENVIRONMENT",
		"db.host":                            "PAYSLIPX_DB_HOST",
		"db.port":                            "PAYSLIPX_DB_PORT",
		"db.user":                            "PAYSLIPX_DB_USER",
		"db.password":                        "PAYSLIPX_DB_PASSWORD",
		"db.name":                            "PAYSLIPX_DB_NAME",
		"db.sslmode":                         "PAYSLIPX_DB_SSLMODE",
		"db.max_open":                        "PAYSLIPX_DB_MAX_OPEN",
		"db.max_idle":                        "PAYSLIPX_DB_MAX_IDLE",
		"auth.secret":                        "PAYSLIPX_AUTH_SECRET",
		"auth.token_expiry":                  "PAYSLIPX_AUTH_TOKEN_EXPIRY",
		"auth.issuer":                        "PAYSLIPX_AUTH_ISSUER",
		"auth.app_key":                       "PAYSLIPX_AUTH_APP_KEY",
		"auth.admin_key":                     "PAYSLIPX_AUTH_ADMIN_KEY",
		"s3.region":                          "PAYSLIPX_S3_REGION",
		"s3.bucket":                          "PAYSLIPX_S3_BUCKET",
		"s3.endpoint":                        "PAYSLIPX_S3_ENDPOINT",
		"s3.access_key":                      "PAYSLIPX_S3_ACCESS_KEY",
		"s3.secret_key":                      "PAYSLIPX_S3_SECRET_KEY",
		"log.level":                          "PAYSLIPX_LOG_LEVEL",
		"log.format":                         "PAYSLIPX_LOG_FORMAT",
		"cors.allowed_origins":               "PAYSLIPX_CORS_ALLOWED_ORIGINS",
		"queue.concurrency":                  "PAYSLIPX_QUEUE_CONCURRENCY",
		"queue.buffer_size":                  "PAYSLIPX_QUEUE_BUFFER_SIZE",
		"queue.job_ttl":                      "PAYSLIPX_QUEUE_JOB_TTL",
		"email.provider":                     "PAYSLIPX_EMAIL_PROVIDER",
		"email.region":                       "PAYSLIPX_EMAIL_REGION",
		"email.from_address":                 "PAYSLIPX_EMAIL_FROM_ADDRESS",
		"email.from_name":                    "PAYSLIPX_EMAIL_FROM_NAME",
		"llm.primary.provider":               "PAYSLIPX_LLM_PRIMARY_PROVIDER",
		"llm.primary.api_key":                "PAYSLIPX_LLM_PRIMARY_API_KEY",
		"llm.primary.default_model":          "PAYSLIPX_LLM_PRIMARY_DEFAULT_MODEL",
		"llm.primary.timeout_secs":           "PAYSLIPX_LLM_PRIMARY_TIMEOUT_SECS",
		"llm.primary.endpoint":               "PAYSLIPX_LLM_PRIMARY_ENDPOINT",
		"llm.secondary.provider":             "PAYSLIPX_LLM_SECONDARY_PROVIDER",
		"llm.secondary.api_key":              "PAYSLIPX_LLM_SECONDARY_API_KEY",
		"llm.secondary.default_model":        "PAYSLIPX_LLM_SECONDARY_DEFAULT_MODEL",
		"llm.secondary.timeout_secs":         "PAYSLIPX_LLM_SECONDARY_TIMEOUT_SECS",
		"llm.secondary.endpoint":             "PAYSLIPX_LLM_SECONDARY_ENDPOINT",
		"llm.tertiary.provider":              "PAYSLIPX_LLM_TERTIARY_PROVIDER",
		"llm.tertiary.api_key":               "PAYSLIPX_LLM_TERTIARY_API_KEY",
		"llm.tertiary.default_model":         "PAYSLIPX_LLM_TERTIARY_DEFAULT_MODEL",
		"llm.tertiary.timeout_secs":          "PAYSLIPX_LLM_TERTIARY_TIMEOUT_SECS",
		"llm.tertiary.endpoint":              "PAYSLIPX_LLM_TERTIARY_ENDPOINT",
		"llm.breaker_failures":               "PAYSLIPX_LLM_BREAKER_FAILURES",
		"llm.breaker_timeout":                "PAYSLIPX_LLM_BREAKER_TIMEOUT",
		"pipeline.equation_tolerance":        "PAYSLIPX_PIPELINE_EQUATION_TOLERANCE",
		"pipeline.retry_sum_threshold":       "PAYSLIPX_PIPELINE_RETRY_SUM_THRESHOLD",
		"pipeline.sum_warning_tolerance":     "PAYSLIPX_PIPELINE_SUM_WARNING_TOLERANCE",
		"pipeline.sum_minor_tolerance":       "PAYSLIPX_PIPELINE_SUM_MINOR_TOLERANCE",
		"pipeline.net_match_tolerance":       "PAYSLIPX_PIPELINE_NET_MATCH_TOLERANCE",
		"pipeline.verification_enabled":      "PAYSLIPX_PIPELINE_VERIFICATION_ENABLED",
		"pipeline.verification_trigger":      "PAYSLIPX_PIPELINE_VERIFICATION_TRIGGER",
		"pipeline.agreement_high":            "PAYSLIPX_PIPELINE_AGREEMENT_HIGH",
		"pipeline.agreement_moderate":        "PAYSLIPX_PIPELINE_AGREEMENT_MODERATE",
		"pipeline.agreement_value_tolerance": "PAYSLIPX_PIPELINE_AGREEMENT_VALUE_TOLERANCE",
		"pipeline.max_text_bytes":            "PAYSLIPX_PIPELINE_MAX_TEXT_BYTES",
		"pipeline.max_file_size_mb":          "PAYSLIPX_PIPELINE_MAX_FILE_SIZE_MB",
		"cache.ttl":                          "PAYSLIPX_CACHE_TTL",
		"cache.max_items":                    "PAYSLIPX_CACHE_MAX_ITEMS",
		"cache.max_bytes":                    "PAYSLIPX_CACHE_MAX_BYTES",
		"ratelimit.min_interval":             "PAYSLIPX_RATELIMIT_MIN_INTERVAL",
		"ratelimit.hourly_max":               "PAYSLIPX_RATELIMIT_HOURLY_MAX",
		"ratelimit.yearly_max":               "PAYSLIPX_RATELIMIT_YEARLY_MAX",
		"ratelimit.override":                 "PAYSLIPX_RATELIMIT_OVERRIDE",
		"ratelimit.count_verification_calls": "PAYSLIPX_RATELIMIT_COUNT_VERIFICATION_CALLS",
		"usage.usd_to_inr":                   "PAYSLIPX_USAGE_USD_TO_INR",
		"usage.anomaly_min_calls":            "PAYSLIPX_USAGE_ANOMALY_MIN_CALLS",
		"usage.anomaly_multiplier":           "PAYSLIPX_USAGE_ANOMALY_MULTIPLIER",
		"usage.alert_recipient":              "PAYSLIPX_USAGE_ALERT_RECIPIENT",
		"usage.alert_interval":               "PAYSLIPX_USAGE_ALERT_INTERVAL",
		"usage.alert_window":                 "PAYSLIPX_USAGE_ALERT_WINDOW",
		"storage.backend":                    "PAYSLIPX_STORAGE_BACKEND",
		"storage.s3_prefix":                  "PAYSLIPX_STORAGE_S3_PREFIX",
		"storage.ledger":                     "PAYSLIPX_STORAGE_LEDGER",
		"storage.sqlite_path":                "PAYSLIPX_STORAGE_SQLITE_PATH",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if PAYSLIPX_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("PAYSLIPX_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.Auth = AuthConfig{
		Secret:      v.GetString("auth.secret"),
		TokenExpiry: v.GetDuration("auth.token_expiry"),
		Issuer:      v.GetString("auth.issuer"),
		AppKey:      v.GetString("auth.app_key"),
		AdminKey:    v.GetString("auth.admin_key"),
	}
	cfg.S3 = S3Config{
		Region:    v.GetString("s3.region"),
		Bucket:    v.GetString("s3.bucket"),
		Endpoint:  v.GetString("s3.endpoint"),
		AccessKey: v.GetString("s3.access_key"),
		SecretKey: v.GetString("s3.secret_key"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}

	cfg.LLM = LLMConfig{
		Primary:         providerConfig(v, "llm.primary"),
		Secondary:       providerConfig(v, "llm.secondary"),
		Tertiary:        providerConfig(v, "llm.tertiary"),
		BreakerFailures: v.GetUint32("llm.breaker_failures"),
		BreakerTimeout:  v.GetDuration("llm.breaker_timeout"),
	}

	cfg.Pipeline = PipelineConfig{
		EquationTolerance:       v.GetFloat64("pipeline.equation_tolerance"),
		RetrySumThreshold:       v.GetFloat64("pipeline.retry_sum_threshold"),
		SumWarningTolerance:     v.GetFloat64("pipeline.sum_warning_tolerance"),
		SumMinorTolerance:       v.GetFloat64("pipeline.sum_minor_tolerance"),
		NetMatchTolerance:       v.GetFloat64("pipeline.net_match_tolerance"),
		VerificationEnabled:     v.GetBool("pipeline.verification_enabled"),
		VerificationTrigger:     v.GetFloat64("pipeline.verification_trigger"),
		AgreementHigh:           v.GetFloat64("pipeline.agreement_high"),
		AgreementModerate:       v.GetFloat64("pipeline.agreement_moderate"),
		AgreementValueTolerance: v.GetFloat64("pipeline.agreement_value_tolerance"),
		MaxTextBytes:            v.GetInt("pipeline.max_text_bytes"),
		MaxFileSizeMB:           v.GetInt64("pipeline.max_file_size_mb"),
	}

	cfg.Cache = CacheConfig{
		TTL:      v.GetDuration("cache.ttl"),
		MaxItems: v.GetInt("cache.max_items"),
		MaxBytes: v.GetInt64("cache.max_bytes"),
	}

	cfg.RateLimit = RateLimitConfig{
		MinInterval:            v.GetDuration("ratelimit.min_interval"),
		HourlyMax:              v.GetInt("ratelimit.hourly_max"),
		YearlyMax:              v.GetInt("ratelimit.yearly_max"),
		Override:               v.GetBool("ratelimit.override"),
		CountVerificationCalls: v.GetBool("ratelimit.count_verification_calls"),
	}

	cfg.Usage = UsageConfig{
		USDToINR:          v.GetFloat64("usage.usd_to_inr"),
		AnomalyMinCalls:   v.GetInt("usage.anomaly_min_calls"),
		AnomalyMultiplier: v.GetFloat64("usage.anomaly_multiplier"),
		AlertRecipient:    v.GetString("usage.alert_recipient"),
		AlertInterval:     v.GetDuration("usage.alert_interval"),
		AlertWindow:       v.GetDuration("usage.alert_window"),
	}

	cfg.Storage = StorageConfig{
		Backend:    v.GetString("storage.backend"),
		S3Prefix:   v.GetString("storage.s3_prefix"),
		Ledger:     v.GetString("storage.ledger"),
		SQLitePath: v.GetString("storage.sqlite_path"),
	}

	cfg.Queue = QueueConfig{
		Concurrency: v.GetInt("queue.concurrency"),
		BufferSize:  v.GetInt("queue.buffer_size"),
		JobTTL:      v.GetDuration("queue.job_ttl"),
	}

	cfg.Email = EmailConfig{
		Provider:    v.GetString("email.provider"),
		Region:      v.GetString("email.region"),
		FromAddress: v.GetString("email.from_address"),
		FromName:    v.GetString("email.from_name"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func providerConfig(v *viper.Viper, prefix string) ProviderConfig {
	return ProviderConfig{
		Provider:     v.GetString(prefix + ".provider"),
		APIKey:       v.GetString(prefix + ".api_key"),
		DefaultModel: v.GetString(prefix + ".default_model"),
		TimeoutSecs:  v.GetInt(prefix + ".timeout_secs"),
		Endpoint:     v.GetString(prefix + ".endpoint"),
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	p := c.Pipeline
	if p.AgreementModerate > p.AgreementHigh {
		return fmt.Errorf("config: agreement_moderate (%.2f) exceeds agreement_high (%.2f)", p.AgreementModerate, p.AgreementHigh)
	}
	if p.EquationTolerance <= 0 || p.EquationTolerance >= 1 {
		return fmt.Errorf("config: equation_tolerance must be in (0,1), got %.4f", p.EquationTolerance)
	}
	if p.SumMinorTolerance > p.SumWarningTolerance {
		return fmt.Errorf("config: sum_minor_tolerance (%.4f) exceeds sum_warning_tolerance (%.4f)", p.SumMinorTolerance, p.SumWarningTolerance)
	}
	switch c.Storage.Backend {
	case "memory", "postgres", "s3":
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}
	switch c.Storage.Ledger {
	case "memory", "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unknown usage ledger %q", c.Storage.Ledger)
	}
	if c.Cache.MaxItems <= 0 || c.Cache.MaxBytes <= 0 {
		return fmt.Errorf("config: cache bounds must be positive")
	}
	return nil
}
