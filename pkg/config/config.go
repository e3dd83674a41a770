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

// Bundle naming schemes supported at the archive/storage boundary.
const (
	NamingSchemeID     = "id"
	NamingSchemeNameID = "name_id"
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
	Bundles  BundlesConfig
	Export   ExportConfig
	Cache    CacheConfig
	Reports  ReportsConfig
	Admin    AdminConfig
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
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// BundlesConfig controls bundle storage and download link signing.
type BundlesConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	MaxUploadBytes  int64
	NamingScheme    string
}

// ExportConfig tunes the bulk download pacing delays.
type ExportConfig struct {
	FirstDelay  time.Duration
	SteadyDelay time.Duration
}

// CacheConfig governs read-through caching of lookups and listings.
type CacheConfig struct {
	Enabled     bool
	TrackingTTL time.Duration
	ListingTTL  time.Duration
}

// ReportsConfig gates the submissions report endpoints.
type ReportsConfig struct {
	Enabled bool
}

// AdminConfig restricts which accounts may sign in.
type AdminConfig struct {
	AuthorizedEmails []string
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

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
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxUpload := v.GetInt64("BUNDLES_MAX_UPLOAD_BYTES")
	if maxUpload <= 0 {
		maxUpload = 25 * 1024 * 1024
	}
	scheme := v.GetString("BUNDLES_NAMING_SCHEME")
	if scheme != NamingSchemeNameID {
		scheme = NamingSchemeID
	}
	cfg.Bundles = BundlesConfig{
		StorageDir:      v.GetString("BUNDLES_STORAGE_DIR"),
		SignedURLSecret: v.GetString("BUNDLES_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("BUNDLES_SIGNED_URL_TTL"), 30*time.Minute),
		MaxUploadBytes:  maxUpload,
		NamingScheme:    scheme,
	}

	cfg.Export = ExportConfig{
		FirstDelay:  parseDuration(v.GetString("EXPORT_FIRST_DELAY"), time.Second),
		SteadyDelay: parseDuration(v.GetString("EXPORT_STEADY_DELAY"), 2*time.Second),
	}

	cfg.Cache = CacheConfig{
		Enabled:     v.GetBool("ENABLE_CACHE"),
		TrackingTTL: parseDuration(v.GetString("CACHE_TRACKING_TTL"), 5*time.Minute),
		ListingTTL:  parseDuration(v.GetString("CACHE_LISTING_TTL"), time.Minute),
	}

	cfg.Reports = ReportsConfig{
		Enabled: v.GetBool("ENABLE_REPORTS"),
	}

	cfg.Admin = AdminConfig{
		AuthorizedEmails: splitAndTrim(v.GetString("ADMIN_AUTHORIZED_EMAILS")),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "clearance")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("BUNDLES_STORAGE_DIR", "./bundles")
	v.SetDefault("BUNDLES_SIGNED_URL_SECRET", "dev_bundles_secret")
	v.SetDefault("BUNDLES_SIGNED_URL_TTL", "30m")
	v.SetDefault("BUNDLES_MAX_UPLOAD_BYTES", 25*1024*1024)
	v.SetDefault("BUNDLES_NAMING_SCHEME", NamingSchemeID)

	v.SetDefault("EXPORT_FIRST_DELAY", "1s")
	v.SetDefault("EXPORT_STEADY_DELAY", "2s")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("CACHE_TRACKING_TTL", "5m")
	v.SetDefault("CACHE_LISTING_TTL", "1m")

	v.SetDefault("ENABLE_REPORTS", true)
	v.SetDefault("ADMIN_AUTHORIZED_EMAILS", "")
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
