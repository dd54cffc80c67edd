package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Parser  ParserConfig
	Vision  VisionConfig
	Geocode GeocodeConfig
	Store   StoreConfig
}

// ParserConfig holds PDF parsing and rasterization configuration
type ParserConfig struct {
	Pdftoppm  string
	RasterDPI int
	Rasterize bool
}

// VisionConfig holds drawing-classifier configuration
type VisionConfig struct {
	Provider        string // "claude", "anthropic" or "openai"
	Model           string
	AnthropicAPIKey string
	OpenAIAPIKey    string
	ClaudeBin       string
	Timeout         time.Duration
}

// GeocodeConfig holds geocoding configuration
type GeocodeConfig struct {
	GoogleAPIKey string
	Timeout      time.Duration
}

// StoreConfig holds the optional run-history store configuration
type StoreConfig struct {
	DSN string // "" disables persistence; path -> sqlite, postgres:// -> pgx
}

// LoadConfig loads configuration from environment variables.
// Presence of ANTHROPIC_API_KEY or OPENAI_API_KEY selects the corresponding
// direct-API vision provider; absence defaults to the local claude CLI.
func LoadConfig() *Config {
	cfg := &Config{
		Parser: ParserConfig{
			Pdftoppm:  getEnv("PDFTOPPM", "pdftoppm"),
			RasterDPI: getEnvAsInt("RASTER_DPI", 150),
			Rasterize: true,
		},
		Vision: VisionConfig{
			Provider:        "claude",
			Model:           getEnv("VISION_MODEL", "claude-sonnet-4-20250514"),
			AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
			OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
			ClaudeBin:       getEnv("CLAUDE_BIN", "claude"),
			Timeout:         getEnvAsDuration("VISION_TIMEOUT", 120*time.Second),
		},
		Geocode: GeocodeConfig{
			GoogleAPIKey: getEnv("GOOGLE_API_KEY", ""),
			Timeout:      getEnvAsDuration("GEOCODE_TIMEOUT", 15*time.Second),
		},
		Store: StoreConfig{
			DSN: getEnv("INTAKE_DB", ""),
		},
	}

	if cfg.Vision.AnthropicAPIKey != "" {
		cfg.Vision.Provider = "anthropic"
	} else if cfg.Vision.OpenAIAPIKey != "" {
		cfg.Vision.Provider = "openai"
	}
	return cfg
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration.
func (c *Config) Validate() error {
	if c.Parser.RasterDPI <= 0 {
		return NewFatalError("CONFIG_ERROR", "RASTER_DPI must be positive", ErrInvalidInput)
	}
	if c.Vision.Provider == "anthropic" && c.Vision.AnthropicAPIKey == "" {
		return NewFatalError("CONFIG_ERROR", "ANTHROPIC_API_KEY is required for the anthropic provider", ErrInvalidInput)
	}
	if c.Vision.Provider == "openai" && c.Vision.OpenAIAPIKey == "" {
		return NewFatalError("CONFIG_ERROR", "OPENAI_API_KEY is required for the openai provider", ErrInvalidInput)
	}
	return nil
}
