package configs

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort       string
	DatabaseURL      string
	RedisURL         string
	LogFile          string
	LogLevel         string
	GameMaxAge       int // days a game stays visible in listings
	PSKFormat        string
	RateLimitPerHour int
	CacheTTL         time.Duration
	EnableWebSocket  bool
}

var AppConfig *Config

func LoadConfig() error {

	godotenv.Load()

	AppConfig = &Config{
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		DatabaseURL:      getEnv("DATABASE_URL", "host=localhost port=5432 user=tracker password=tracker dbname=tracker sslmode=disable"),
		RedisURL:         getEnv("REDIS_URL", "localhost:6379"),
		LogFile:          getEnv("LOG_FILE", ""),
		LogLevel:         getEnv("LOG_LEVEL", "debug"),
		GameMaxAge:       parseInt(getEnv("GAME_MAX_AGE", "30")),
		PSKFormat:        getEnv("PSK_FORMAT", "string"),
		RateLimitPerHour: parseInt(getEnv("RATE_LIMIT_PER_HOUR", "1000")),
		CacheTTL:         parseDuration(getEnv("CACHE_TTL", "1h")),
		EnableWebSocket:  parseBool(getEnv("ENABLE_WEBSOCKET", "true")),
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false
	}
	return b
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Hour
	}
	return d
}

func init() {
	if err := LoadConfig(); err != nil {
		log.Fatal("Failed to load config:", err)
	}
}
