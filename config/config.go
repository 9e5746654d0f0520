package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"

	SessionsRedis  = "redis"
	SessionsMemory = "memory"
)

type Config struct {
	Port         string
	LogLevel     string
	MaxBodyBytes int64
	CORSOrigins  []string

	StoreDriver       string
	MongoURI          string
	MongoDatabase     string
	PostgresDSN       string
	DBConnectAttempts int
	StoreTimeout      time.Duration

	SessionStore  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SessionSecret string
	SessionTTL    time.Duration
	CookieSecure  bool

	OAuthClientID     string
	OAuthClientSecret string
	OAuthRedirectURL  string
	OAuthAuthURL      string
	OAuthTokenURL     string
	OAuthUserInfoURL  string
}

// Load reads .env when present and then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:         getEnv("PORT", "8080"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		MaxBodyBytes: int64(getIntEnv("MAX_BODY_BYTES", 1<<20)),
		CORSOrigins:  getListEnv("CORS_ORIGINS", []string{"*"}),

		StoreDriver:       strings.ToLower(getEnv("STORE_DRIVER", DriverMongo)),
		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:     getEnv("MONGO_DATABASE", "hospital"),
		PostgresDSN:       getEnv("DATABASE_URL", postgresDSNFromParts()),
		DBConnectAttempts: getIntEnv("DB_CONNECT_ATTEMPTS", 1),
		StoreTimeout:      getDuration("STORE_TIMEOUT", 10*time.Second),

		SessionStore:  strings.ToLower(getEnv("SESSION_STORE", SessionsMemory)),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),
		SessionSecret: getEnv("SESSION_SECRET", ""),
		SessionTTL:    getDuration("SESSION_TTL", 24*time.Hour),
		CookieSecure:  getBoolEnv("COOKIE_SECURE", false),

		OAuthClientID:     getEnv("OAUTH_CLIENT_ID", ""),
		OAuthClientSecret: getEnv("OAUTH_CLIENT_SECRET", ""),
		OAuthRedirectURL:  getEnv("OAUTH_REDIRECT_URL", "http://localhost:8080/auth/callback"),
		OAuthAuthURL:      getEnv("OAUTH_AUTH_URL", "https://accounts.google.com/o/oauth2/auth"),
		OAuthTokenURL:     getEnv("OAUTH_TOKEN_URL", "https://oauth2.googleapis.com/token"),
		OAuthUserInfoURL:  getEnv("OAUTH_USERINFO_URL", "https://openidconnect.googleapis.com/v1/userinfo"),
	}
}

// Validate reports the first setting the server cannot start with.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoURI == "" || c.MongoDatabase == "" {
			return errors.New("MONGO_URI and MONGO_DATABASE are required for the mongo driver")
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return errors.New("DATABASE_URL (or user/password/host/port/dbname) is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.SessionStore {
	case SessionsRedis, SessionsMemory:
	default:
		return fmt.Errorf("unknown SESSION_STORE %q", c.SessionStore)
	}

	if len(c.SessionSecret) < 16 {
		return errors.New("SESSION_SECRET must be at least 16 characters")
	}
	if c.DBConnectAttempts < 1 {
		return errors.New("DB_CONNECT_ATTEMPTS must be at least 1")
	}
	return nil
}

// OAuth2 returns the client configuration for the login flow.
func (c *Config) OAuth2() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.OAuthClientID,
		ClientSecret: c.OAuthClientSecret,
		RedirectURL:  c.OAuthRedirectURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  c.OAuthAuthURL,
			TokenURL: c.OAuthTokenURL,
		},
	}
}

// postgresDSNFromParts builds a DSN from the discrete connection variables.
func postgresDSNFromParts() string {
	dbUser := strings.TrimSpace(os.Getenv("user"))
	dbPass := strings.TrimSpace(os.Getenv("password"))
	dbHost := strings.TrimSpace(os.Getenv("host"))
	dbPort := strings.TrimSpace(os.Getenv("port"))
	dbName := strings.TrimSpace(os.Getenv("dbname"))

	if dbHost == "" || dbName == "" {
		return ""
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=require", dbUser, dbPass, dbHost, dbPort, dbName)
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
