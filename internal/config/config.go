package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
)

var AppEnv Config

type Config struct {
	Port      string
	LogLevel  string
	MongoURI  string
	DBName    string
	JWTSecret string

	FudoAPIURL           string
	FudoAuthURL          string
	FudoAPIKey           string
	FudoAPISecret        string
	FudoCashRegisterID   string
	FudoDefaultPartySize int
	FudoExcludedTag      string
	FudoHTTPTimeout      time.Duration

	CatalogCacheTTL     time.Duration
	DisplayThanksDelay  time.Duration
	TerminalIdleTimeout time.Duration
}

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = FromEnv()
}

// FromEnv reads the configuration without touching .env files.
func FromEnv() Config {
	return Config{
		Port:      getEnvOrDefault("PORT", "8080"),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		MongoURI:  getEnvOrDefault("MONGO_URI", ""),
		DBName:    getEnvOrDefault("DB_NAME", "backoffice"),
		JWTSecret: getEnvOrDefault("JWT_SECRET", ""),

		FudoAPIURL:           getEnvOrDefault("FUDO_API_URL", "https://api.fu.do/v1alpha1"),
		FudoAuthURL:          getEnvOrDefault("FUDO_AUTH_URL", "https://auth.fu.do/api"),
		FudoAPIKey:           getEnvOrDefault("FUDO_API_KEY", ""),
		FudoAPISecret:        getEnvOrDefault("FUDO_API_SECRET", ""),
		FudoCashRegisterID:   getEnvOrDefault("FUDO_CASH_REGISTER_ID", ""),
		FudoDefaultPartySize: getIntEnv("FUDO_DEFAULT_PARTY_SIZE", 1),
		FudoExcludedTag:      getEnvOrDefault("FUDO_EXCLUDED_PAYMENT_TAG", "delivery"),
		FudoHTTPTimeout:      getDurationEnv("FUDO_HTTP_TIMEOUT", 15, time.Second),

		CatalogCacheTTL:     getDurationEnv("CATALOG_CACHE_TTL", 5, time.Minute),
		DisplayThanksDelay:  getDurationEnv("DISPLAY_THANKS_DELAY", 3, time.Second),
		TerminalIdleTimeout: getDurationEnv("TERMINAL_IDLE_TIMEOUT", 12, time.Hour),
	}
}
