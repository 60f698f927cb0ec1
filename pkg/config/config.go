package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Workload windows supported by the substitute tie-breaker.
const (
	WorkloadWindowLifetime = "lifetime"
	WorkloadWindowDaily    = "daily"
	WorkloadWindowWeekly   = "weekly"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string
	Timezone  string

	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	Arrangement ArrangementConfig
	AutoMark    AutoMarkConfig
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
	Enabled  bool
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

// LogConfig controls zap output. File* fields enable a rotated file sink.
type LogConfig struct {
	Level          string
	Format         string
	File           string
	FileMaxSizeMB  int
	FileMaxBackups int
	FileMaxAgeDays int
}

// ArrangementConfig tunes substitute planning.
type ArrangementConfig struct {
	WorkloadWindow string
	LockTTL        time.Duration
	LockWait       time.Duration
	RosterCacheTTL time.Duration
	QueueWorkers   int
	QueueRetries   int
	QueueBuffer    int
}

// AutoMarkConfig holds the defaults for the daily auto-absence run.
type AutoMarkConfig struct {
	Enabled      bool
	Hour         int
	Minute       int
	PollInterval time.Duration
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
	cfg.Timezone = v.GetString("SCHOOL_TIMEZONE")

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
		Enabled:  v.GetBool("REDIS_ENABLED"),
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
		Level:          v.GetString("LOG_LEVEL"),
		Format:         v.GetString("LOG_FORMAT"),
		File:           v.GetString("LOG_FILE"),
		FileMaxSizeMB:  v.GetInt("LOG_FILE_MAX_SIZE_MB"),
		FileMaxBackups: v.GetInt("LOG_FILE_MAX_BACKUPS"),
		FileMaxAgeDays: v.GetInt("LOG_FILE_MAX_AGE_DAYS"),
	}

	cfg.Arrangement = ArrangementConfig{
		WorkloadWindow: normalizeWindow(v.GetString("ARRANGEMENT_WORKLOAD_WINDOW")),
		LockTTL:        parseDuration(v.GetString("ARRANGEMENT_LOCK_TTL"), 30*time.Second),
		LockWait:       parseDuration(v.GetString("ARRANGEMENT_LOCK_WAIT"), 3*time.Second),
		RosterCacheTTL: parseDuration(v.GetString("ARRANGEMENT_ROSTER_CACHE_TTL"), 10*time.Minute),
		QueueWorkers:   v.GetInt("ARRANGEMENT_QUEUE_WORKERS"),
		QueueRetries:   v.GetInt("ARRANGEMENT_QUEUE_RETRIES"),
		QueueBuffer:    v.GetInt("ARRANGEMENT_QUEUE_BUFFER"),
	}

	cfg.AutoMark = AutoMarkConfig{
		Enabled:      v.GetBool("AUTO_MARK_ENABLED"),
		Hour:         clamp(v.GetInt("AUTO_MARK_HOUR"), 0, 23),
		Minute:       clamp(v.GetInt("AUTO_MARK_MINUTE"), 0, 59),
		PollInterval: parseDuration(v.GetString("AUTO_MARK_POLL_INTERVAL"), 30*time.Second),
	}

	return cfg
}

// Location resolves the school timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	if c == nil || c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("SCHOOL_TIMEZONE", "Asia/Kolkata")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "school_arrangements")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("LOG_FILE_MAX_SIZE_MB", 50)
	v.SetDefault("LOG_FILE_MAX_BACKUPS", 5)
	v.SetDefault("LOG_FILE_MAX_AGE_DAYS", 30)

	v.SetDefault("ARRANGEMENT_WORKLOAD_WINDOW", WorkloadWindowLifetime)
	v.SetDefault("ARRANGEMENT_LOCK_TTL", "30s")
	v.SetDefault("ARRANGEMENT_LOCK_WAIT", "3s")
	v.SetDefault("ARRANGEMENT_ROSTER_CACHE_TTL", "10m")
	v.SetDefault("ARRANGEMENT_QUEUE_WORKERS", 1)
	v.SetDefault("ARRANGEMENT_QUEUE_RETRIES", 3)
	v.SetDefault("ARRANGEMENT_QUEUE_BUFFER", 256)

	v.SetDefault("AUTO_MARK_ENABLED", false)
	v.SetDefault("AUTO_MARK_HOUR", 10)
	v.SetDefault("AUTO_MARK_MINUTE", 0)
	v.SetDefault("AUTO_MARK_POLL_INTERVAL", "30s")
}

func normalizeWindow(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case WorkloadWindowDaily:
		return WorkloadWindowDaily
	case WorkloadWindowWeekly:
		return WorkloadWindowWeekly
	default:
		return WorkloadWindowLifetime
	}
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func clamp(value, lo, hi int) int {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
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
