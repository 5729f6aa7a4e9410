package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                    string
	Env                     string
	LogLevel                string
	PostgresConnStr         string
	MongoURI                string
	MongoDatabase           string
	RedisURL                string
	UserCacheTTL            time.Duration
	JWTSecret               string
	FirebaseCredentialsPath string
	PushEnabled             bool
	RateLimitRPS            float64
}

// Load reads .env when present, then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		LogLevel:                getEnv("LOG_LEVEL", ""),
		PostgresConnStr:         getEnv("POSTGRES_CONN_STR", ""),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DATABASE", "goalsocial"),
		RedisURL:                getEnv("REDIS_URL", ""),
		UserCacheTTL:            getEnvDuration("USER_CACHE_TTL", 5*time.Minute),
		JWTSecret:               getEnv("JWT_SECRET", ""),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		PushEnabled:             getEnvBool("PUSH_ENABLED", false),
		RateLimitRPS:            getEnvFloat("RATE_LIMIT_RPS", 20),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return v
}
