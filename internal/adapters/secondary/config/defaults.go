package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/siteforge/siteforge/internal/domain/entities"
)

// GetDefaultConfig returns the default configuration with environment overrides
func GetDefaultConfig() *entities.Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".siteforge", "sites")

	return &entities.Config{
		Server: entities.ServerConfig{
			Host:            getEnvOrDefault("SITEFORGE_HOST", "localhost"),
			Port:            getEnvIntOrDefault("SITEFORGE_PORT", 8080),
			ReadTimeout:     getEnvIntOrDefault("SITEFORGE_READ_TIMEOUT", 30),
			WriteTimeout:    getEnvIntOrDefault("SITEFORGE_WRITE_TIMEOUT", 30),
			ShutdownTimeout: getEnvIntOrDefault("SITEFORGE_SHUTDOWN_TIMEOUT", 5),
			Environment:     getEnvOrDefault("SITEFORGE_ENV", "development"),
			CORSOrigins: []string{
				"http://localhost:3000",
				"http://127.0.0.1:3000",
				"http://localhost:8080",
				"http://127.0.0.1:8080",
			},
		},
		Sites: entities.SitesConfig{
			RootDir: getEnvOrDefault("SITEFORGE_SITES_DIR", defaultRoot),
		},
		Tool: entities.ToolConfig{
			Command:        getEnvOrDefault("SITEFORGE_TOOL", "jekyll"),
			BuildArgs:      []string{"build", "--source"},
			ServeArgs:      []string{"serve", "--source"},
			BuildTimeoutMs: getEnvIntOrDefault("SITEFORGE_BUILD_TIMEOUT_MS", 120000),
		},
		Preview: entities.PreviewConfig{
			BasePort: getEnvIntOrDefault("SITEFORGE_PREVIEW_BASE_PORT", 4000),
			MinPort:  getEnvIntOrDefault("SITEFORGE_PREVIEW_MIN_PORT", 3000),
			MaxPort:  getEnvIntOrDefault("SITEFORGE_PREVIEW_MAX_PORT", 9999),
		},
		Watcher: entities.WatcherConfig{
			IntervalMs: getEnvIntOrDefault("SITEFORGE_WATCH_INTERVAL_MS", 500),
			DebounceMs: getEnvIntOrDefault("SITEFORGE_WATCH_DEBOUNCE_MS", 500),
		},
		Generator: entities.GeneratorConfig{
			Endpoint:   getEnvOrDefault("SITEFORGE_GENERATOR_ENDPOINT", ""),
			APIKey:     getEnvOrDefault("SITEFORGE_GENERATOR_API_KEY", ""),
			Model:      getEnvOrDefault("SITEFORGE_GENERATOR_MODEL", ""),
			TimeoutMs:  getEnvIntOrDefault("SITEFORGE_GENERATOR_TIMEOUT_MS", 60000),
			MaxRetries: getEnvIntOrDefault("SITEFORGE_GENERATOR_RETRIES", 3),
		},
		Logging: entities.LoggingConfig{
			Level:   getEnvOrDefault("SITEFORGE_LOG_LEVEL", "info"),
			Verbose: getEnvBoolOrDefault("SITEFORGE_LOG_VERBOSE", false),
			File:    getEnvOrDefault("SITEFORGE_LOG_FILE", ""),
		},
	}
}

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvIntOrDefault returns environment variable as int or default
func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvBoolOrDefault returns environment variable as bool or default
func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
