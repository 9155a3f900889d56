package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
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
	Env            string
	Port           int
	APIPrefix      string
	RequestTimeout time.Duration

	Mongo   MongoConfig
	Redis   RedisConfig
	JWT     JWTConfig
	Payment PaymentConfig
	CORS    CORSConfig
	Log     LogConfig
	Stats   StatsConfig
}

// MongoConfig describes the document store connection.
type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	Transactions   bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// PaymentConfig holds the payment processor credentials.
type PaymentConfig struct {
	SecretKey string
	Currency  string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// StatsConfig tunes caching of the popular class/instructor queries.
type StatsConfig struct {
	CacheTTL time.Duration
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
	cfg.APIPrefix = strings.TrimRight(v.GetString("API_PREFIX"), "/")
	cfg.RequestTimeout = parseDuration(v.GetString("REQUEST_TIMEOUT"), 15*time.Second)

	cfg.Mongo = MongoConfig{
		URI:            mongoURI(v),
		Database:       v.GetString("MONGO_DATABASE"),
		ConnectTimeout: parseDuration(v.GetString("MONGO_CONNECT_TIMEOUT"), 10*time.Second),
		Transactions:   v.GetBool("MONGO_TRANSACTIONS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("ACCESS_TOKEN"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.Payment = PaymentConfig{
		SecretKey: v.GetString("PAYMENT_SECRET"),
		Currency:  strings.ToLower(v.GetString("PAYMENT_CURRENCY")),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Stats = StatsConfig{
		CacheTTL: parseDuration(v.GetString("STATS_CACHE_TTL"), 5*time.Minute),
	}

	return cfg
}

// Validate reports configuration that cannot serve traffic safely.
func (c *Config) Validate() error {
	if c.Mongo.URI == "" {
		return errors.New("mongo uri is required")
	}
	if c.Mongo.Database == "" {
		return errors.New("mongo database name is required")
	}
	if c.Env == EnvProduction {
		if c.JWT.Secret == "" || c.JWT.Secret == defaultJWTSecret {
			return errors.New("ACCESS_TOKEN must be set in production")
		}
		if c.Payment.SecretKey == "" {
			return errors.New("PAYMENT_SECRET must be set in production")
		}
	}
	return nil
}

const defaultJWTSecret = "dev_secret"

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 5000)
	v.SetDefault("API_PREFIX", "")
	v.SetDefault("REQUEST_TIMEOUT", "15s")

	v.SetDefault("MONGO_URI", "")
	v.SetDefault("DB_USER", "")
	v.SetDefault("DB_PASS", "")
	v.SetDefault("DB_HOST", "")
	v.SetDefault("MONGO_DATABASE", "justMusic")
	v.SetDefault("MONGO_CONNECT_TIMEOUT", "10s")
	v.SetDefault("MONGO_TRANSACTIONS", false)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ACCESS_TOKEN", defaultJWTSecret)
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "justmusic-api")

	v.SetDefault("PAYMENT_SECRET", "")
	v.SetDefault("PAYMENT_CURRENCY", "usd")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("STATS_CACHE_TTL", "5m")
}

// mongoURI prefers an explicit MONGO_URI and otherwise builds an Atlas SRV
// URI from DB_USER/DB_PASS/DB_HOST.
func mongoURI(v *viper.Viper) string {
	if uri := strings.TrimSpace(v.GetString("MONGO_URI")); uri != "" {
		return uri
	}
	host := strings.TrimSpace(v.GetString("DB_HOST"))
	if host == "" {
		return "mongodb://localhost:27017"
	}
	user := v.GetString("DB_USER")
	pass := v.GetString("DB_PASS")
	return fmt.Sprintf("mongodb+srv://%s:%s@%s/?retryWrites=true&w=majority",
		url.QueryEscape(user), url.QueryEscape(pass), host)
}

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
