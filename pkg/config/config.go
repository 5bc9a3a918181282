package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	Port                    string
	Env                     string
	FirebaseCredentialsPath string
	PostgresConnStr         string
	MongoURI                string
	MongoDatabase           string
	RedisAddr               string
	RedisPassword           string
	RedisDB                 int
	JWTSecret               string
	FrontendURL             string
	AllowedHosts            []string
	AdminUsername           string
	PushTimeout             time.Duration
	PushWorkers             int
	SMTPHost                string
	SMTPPort                string
	SMTPUser                string
	SMTPPassword            string
}

// Load reads the process environment, after merging an optional .env file.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		zap.L().Debug("No .env file found, assuming environment variables are set.")
	}

	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		PostgresConnStr:         getEnv("POSTGRES_CONN_STR", ""),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DB", "whoami"),
		RedisAddr:               getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:           getEnv("REDIS_PASSWORD", ""),
		RedisDB:                 getEnvInt("REDIS_DB", 0),
		JWTSecret:               getEnv("JWT_SECRET", "supersecretjwtkey"),
		FrontendURL:             getEnv("FRONTEND_URL", "http://localhost:3000"),
		AllowedHosts:            splitList(getEnv("ALLOWED_HOSTS", "*")),
		AdminUsername:           getEnv("ADMIN_USERNAME", "whoami"),
		PushTimeout:             getEnvDuration("PUSH_TIMEOUT", 10*time.Second),
		PushWorkers:             getEnvInt("PUSH_WORKERS", 4),
		SMTPHost:                getEnv("SMTP_HOST", ""),
		SMTPPort:                getEnv("SMTP_PORT", ""),
		SMTPUser:                getEnv("SMTP_USER", ""),
		SMTPPassword:            getEnv("SMTP_PASS", ""),
	}
}

// IsProduction reports whether the service runs with production logging and defaults.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		zap.L().Warn("invalid integer env value, using default", zap.String("key", key), zap.String("value", value))
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		zap.L().Warn("invalid duration env value, using default", zap.String("key", key), zap.String("value", value))
		return defaultValue
	}
	return d
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
