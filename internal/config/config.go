package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Services ServiceConfig
	Modules  ModulesConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type ServiceConfig struct {
	// DataAnalysisURL is the base URL of the external data-analysis service
	// holding the working set of raw consumption series.
	DataAnalysisURL string
	// RequestTimeoutSec bounds every outbound call to external services.
	RequestTimeoutSec int
}

// ModulesConfig maps each UI module name to the exact origin it is served
// from. The table is static configuration; a module whose origin is not
// listed here can neither attach nor be addressed.
type ModulesConfig struct {
	Origins map[string]string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Services: ServiceConfig{
			DataAnalysisURL:   getEnv("DATA_ANALYSIS_URL", "http://localhost:8100"),
			RequestTimeoutSec: getEnvAsInt("SERVICE_REQUEST_TIMEOUT_SEC", 30),
		},
		Modules: ModulesConfig{
			Origins: parseModuleOrigins(getEnv("MODULE_ORIGINS",
				"upload=http://localhost:5173,analysis=http://localhost:5174,economics=http://localhost:5175,projects=http://localhost:5176")),
		},
	}
}

// parseModuleOrigins parses "name=origin,name=origin" pairs. Malformed pairs
// are skipped with a log line rather than failing startup; an empty table is
// caught later as a configuration error when a module tries to attach.
func parseModuleOrigins(raw string) map[string]string {
	origins := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, origin, found := strings.Cut(pair, "=")
		if !found || name == "" || origin == "" {
			log.Printf("Warn: skipping malformed MODULE_ORIGINS entry %q", pair)
			continue
		}
		origins[strings.TrimSpace(name)] = strings.TrimRight(strings.TrimSpace(origin), "/")
	}
	return origins
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
