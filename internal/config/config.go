package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Dataset drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Session store backends.
const (
	SessionStoreMemory   = "memory"
	SessionStoreDynamoDB = "dynamodb"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Restaurant dataset.
	DatasetDriver string
	DatabaseURL   string
	SQLitePath    string

	// Province/district lookup table. Empty path means the built-in table.
	RegionsPath  string
	RegionsWatch bool

	// Session location store.
	SessionStore  string
	DynamoDBTable string

	// Location update events.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaLocationTopic string

	// Mapbox geocoding configuration.
	MapboxToken    string
	MapboxEnabled  bool
	MapboxTimeout  time.Duration
	MapboxCacheTTL time.Duration

	// Client-side settings used by cmd/explore.
	ChatBaseURL        string
	GeolocationTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file (ENV_FILE, default ".env") is loaded first when present; variables
// already set in the environment win.
func Load() (*Config, error) {
	if err := loadDotEnv(sharedcfg.EnvOrDefault("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	mapboxCacheTTL, err := parsePositiveDuration("MAPBOX_CACHE_TTL", "1h")
	if err != nil {
		return nil, err
	}
	geoTimeout, err := parsePositiveDuration("GEOLOCATION_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":5001"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DatasetDriver: sharedcfg.EnvOrDefault("DATASET_DRIVER", DriverSQLite),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		SQLitePath:    sharedcfg.EnvOrDefault("SQLITE_PATH", "data/restaurants.db"),

		RegionsPath:  os.Getenv("REGIONS_PATH"),
		RegionsWatch: os.Getenv("REGIONS_WATCH") == "true",

		SessionStore:  sharedcfg.EnvOrDefault("SESSION_STORE", SessionStoreMemory),
		DynamoDBTable: sharedcfg.EnvOrDefault("DYNAMODB_TABLE", "session_locations"),

		KafkaEnabled:       os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaLocationTopic: sharedcfg.EnvOrDefault("KAFKA_LOCATION_TOPIC", "session-locations"),

		MapboxToken:    mapboxToken,
		MapboxEnabled:  mapboxEnabled,
		MapboxTimeout:  mapboxTimeout,
		MapboxCacheTTL: mapboxCacheTTL,

		ChatBaseURL:        sharedcfg.EnvOrDefault("CHAT_BASE_URL", "http://localhost:5000"),
		GeolocationTimeout: geoTimeout,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	switch cfg.DatasetDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when DATASET_DRIVER is postgres")
		}
	case DriverSQLite:
		if cfg.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required when DATASET_DRIVER is sqlite")
		}
	default:
		return fmt.Errorf("invalid DATASET_DRIVER %q: want postgres or sqlite", cfg.DatasetDriver)
	}

	switch cfg.SessionStore {
	case SessionStoreMemory:
	case SessionStoreDynamoDB:
		if cfg.DynamoDBTable == "" {
			return errors.New("DYNAMODB_TABLE is required when SESSION_STORE is dynamodb")
		}
	default:
		return fmt.Errorf("invalid SESSION_STORE %q: want memory or dynamodb", cfg.SessionStore)
	}

	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaLocationTopic == "" {
			return errors.New("KAFKA_LOCATION_TOPIC is required when KAFKA_ENABLED is true")
		}
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	return nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
