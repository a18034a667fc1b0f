package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cesargomez89/quarry/internal/constants"
	"github.com/cesargomez89/quarry/internal/logger"
)

// Config holds all application configuration
type Config struct {
	Port            string
	StoreDriver     string
	DBPath          string
	MongoURI        string
	MongoDatabase   string
	PlacesAPIKey    string
	PlacesBaseURL   string
	CatalogPath     string
	LogLevel        string
	LogFormat       string
	Username        string
	Password        string
	MaxResults      int
	BatchSize       int
	RequestDelay    time.Duration
	DetailsCacheTTL time.Duration

	// parse errors collected by Load and reported by Validate
	problems []string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	c := &Config{
		Port:          getEnv("PORT", constants.DefaultPort),
		StoreDriver:   getEnv("STORE_DRIVER", constants.DefaultStoreDriver),
		DBPath:        getEnv("DB_PATH", constants.DefaultDBPath),
		MongoURI:      getEnv("MONGO_URI", constants.DefaultMongoURI),
		MongoDatabase: getEnv("MONGO_DATABASE", constants.DefaultMongoDatabase),
		PlacesAPIKey:  getEnv("PLACES_API_KEY", ""),
		PlacesBaseURL: getEnv("PLACES_BASE_URL", constants.DefaultPlacesURL),
		CatalogPath:   getEnv("CATALOG_PATH", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "text"),
		Username:      getEnv("QUARRY_USERNAME", constants.DefaultUsername),
		Password:      getEnv("QUARRY_PASSWORD", ""),
	}

	c.MaxResults = c.getInt("PLACES_MAX_RESULTS", constants.DefaultMaxResults)
	c.BatchSize = c.getInt("BATCH_SIZE", constants.DefaultBatchSize)
	c.RequestDelay = c.getDuration("REQUEST_DELAY", constants.DefaultRequestDelay)
	c.DetailsCacheTTL = c.getDuration("DETAILS_CACHE_TTL", constants.DefaultDetailsCacheTTL)

	return c
}

// UseMockProvider reports whether extraction should run against the in-process mock.
func (c *Config) UseMockProvider() bool {
	return c.PlacesAPIKey == constants.MockAPIKey
}

// Validate validates the configuration and returns detailed errors
func (c *Config) Validate() error {
	errors := append([]string(nil), c.problems...)

	// Validate Port
	if c.Port == "" {
		errors = append(errors, "PORT cannot be empty")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("PORT must be a valid number, got: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("PORT must be between 1 and 65535, got: %d", port))
		}
	}

	// Validate store
	switch c.StoreDriver {
	case constants.StoreSQLite:
		if c.DBPath == "" {
			errors = append(errors, "DB_PATH cannot be empty")
		}
	case constants.StoreMongo:
		if c.MongoURI == "" {
			errors = append(errors, "MONGO_URI cannot be empty")
		}
		if c.MongoDatabase == "" {
			errors = append(errors, "MONGO_DATABASE cannot be empty")
		}
	default:
		errors = append(errors, fmt.Sprintf("STORE_DRIVER must be one of: sqlite, mongo, got: %s", c.StoreDriver))
	}

	// Validate places API
	if c.PlacesAPIKey == "" {
		errors = append(errors, "PLACES_API_KEY cannot be empty (use \"mock\" for offline runs)")
	}
	if c.PlacesBaseURL == "" {
		errors = append(errors, "PLACES_BASE_URL cannot be empty")
	} else if u, err := url.Parse(c.PlacesBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, fmt.Sprintf("PLACES_BASE_URL is not a valid URL: %s", c.PlacesBaseURL))
	}
	if c.MaxResults < 1 || c.MaxResults > constants.MaxResultsLimit {
		errors = append(errors, fmt.Sprintf("PLACES_MAX_RESULTS must be between 1 and %d, got: %d", constants.MaxResultsLimit, c.MaxResults))
	}

	if c.BatchSize < 1 || c.BatchSize > constants.MaxBatchSize {
		errors = append(errors, fmt.Sprintf("BATCH_SIZE must be between 1 and %d, got: %d", constants.MaxBatchSize, c.BatchSize))
	}
	if c.RequestDelay < 0 {
		errors = append(errors, fmt.Sprintf("REQUEST_DELAY cannot be negative, got: %s", c.RequestDelay))
	}
	if c.DetailsCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("DETAILS_CACHE_TTL cannot be negative, got: %s", c.DetailsCacheTTL))
	}

	if c.CatalogPath != "" {
		if _, err := os.Stat(c.CatalogPath); err != nil {
			errors = append(errors, fmt.Sprintf("CATALOG_PATH is not readable: %s", c.CatalogPath))
		}
	}

	if _, ok := logger.ParseLevel(c.LogLevel); !ok {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: debug, info, warn, error, got: %s", c.LogLevel))
	}

	// Validate LogFormat
	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.LogFormat] {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: text, json, got: %s", c.LogFormat))
	}

	if c.Username == "" {
		errors = append(errors, "QUARRY_USERNAME cannot be empty")
	}
	if c.Password == "" {
		errors = append(errors, "QUARRY_PASSWORD cannot be empty")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func (c *Config) getInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		c.problems = append(c.problems, fmt.Sprintf("%s must be a valid number, got: %s", key, raw))
		return fallback
	}
	return n
}

func (c *Config) getDuration(key string, fallback time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		c.problems = append(c.problems, fmt.Sprintf("%s must be a duration like 2s or 500ms, got: %s", key, raw))
		return fallback
	}
	return d
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
