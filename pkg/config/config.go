package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Planner  PlannerConfig
	Audit    AuditConfig
	Tracing  TracingConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// PlannerConfig drives schedule generation.
type PlannerConfig struct {
	TimeZone        string
	InsertChunkSize int
	SummaryCacheTTL time.Duration
}

// AuditConfig tunes conflict detection and repair.
type AuditConfig struct {
	DailyCeilingMinutes  int
	GapWarningDays       int
	GapCriticalDays      int
	RelocationWindowDays int
	Workers              int
	CacheTTL             time.Duration
	AsyncEnabled         bool
}

// TracingConfig toggles OpenTelemetry spans.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	chunk := v.GetInt("PLANNER_INSERT_CHUNK_SIZE")
	if chunk <= 0 {
		chunk = 100
	}
	cfg.Planner = PlannerConfig{
		TimeZone:        v.GetString("PLANNER_TIMEZONE"),
		InsertChunkSize: chunk,
		SummaryCacheTTL: parseDuration(v.GetString("PLANNER_SUMMARY_CACHE_TTL"), 24*time.Hour),
	}

	workers := v.GetInt("AUDIT_WORKERS")
	if workers <= 0 {
		workers = 1
	}
	cfg.Audit = AuditConfig{
		DailyCeilingMinutes:  v.GetInt("AUDIT_DAILY_CEILING_MINUTES"),
		GapWarningDays:       v.GetInt("AUDIT_GAP_WARNING_DAYS"),
		GapCriticalDays:      v.GetInt("AUDIT_GAP_CRITICAL_DAYS"),
		RelocationWindowDays: v.GetInt("AUDIT_RELOCATION_WINDOW_DAYS"),
		Workers:              workers,
		CacheTTL:             parseDuration(v.GetString("AUDIT_CACHE_TTL"), time.Hour),
		AsyncEnabled:         v.GetBool("ENABLE_ASYNC_AUDIT"),
	}

	cfg.Tracing = TracingConfig{
		Enabled:     v.GetBool("OTEL_ENABLED"),
		ServiceName: v.GetString("OTEL_SERVICE_NAME"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "studyplan")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("PLANNER_TIMEZONE", "America/Sao_Paulo")
	v.SetDefault("PLANNER_INSERT_CHUNK_SIZE", 100)
	v.SetDefault("PLANNER_SUMMARY_CACHE_TTL", "24h")

	v.SetDefault("AUDIT_DAILY_CEILING_MINUTES", 0)
	v.SetDefault("AUDIT_GAP_WARNING_DAYS", 7)
	v.SetDefault("AUDIT_GAP_CRITICAL_DAYS", 14)
	v.SetDefault("AUDIT_RELOCATION_WINDOW_DAYS", 30)
	v.SetDefault("AUDIT_WORKERS", 2)
	v.SetDefault("AUDIT_CACHE_TTL", "1h")
	v.SetDefault("ENABLE_ASYNC_AUDIT", true)

	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_SERVICE_NAME", "studyplan-api")
}

// SetConfigFile reports a missing .env as a path error, not ConfigFileNotFoundError
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
