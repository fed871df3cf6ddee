package application

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines tariff refresh configuration.
type Config struct {
	// ChangeThresholdPercent is the minimum absolute unit-price move,
	// in percent, that counts as a significant change.
	ChangeThresholdPercent float64 `yaml:"change_threshold_percent"`
	// Schedule is a standard 5-field cron expression for the refresh
	// cycle. The regulator publishes updates weekly.
	Schedule    string        `yaml:"schedule"`
	StorageRoot string        `yaml:"storage_root"`
	WebhookURL  string        `yaml:"webhook_url"`
	FeedTimeout time.Duration `yaml:"feed_timeout"`
	// FeedURLs maps a provider name to the endpoint serving its scraped
	// tariff snapshot.
	FeedURLs map[string]string `yaml:"feed_urls"`
}

// LoadConfig loads config from yaml or env.
func LoadConfig() (Config, error) {
	cfg := Config{
		ChangeThresholdPercent: getenvFloatDefault("TARIFF_CHANGE_THRESHOLD_PCT", 5),
		Schedule:               getenvDefault("TARIFF_REFRESH_SCHEDULE", "0 6 * * 0"),
		StorageRoot:            getenvDefault("TARIFF_STORAGE_ROOT", filepath.FromSlash("var/tariffs")),
		WebhookURL:             os.Getenv("TARIFF_CHANGE_WEBHOOK_URL"),
		FeedTimeout:            getenvDuration("TARIFF_FEED_TIMEOUT", 2*time.Minute),
		FeedURLs: map[string]string{
			"afinia":   os.Getenv("TARIFF_FEED_URL_AFINIA"),
			"veolia":   os.Getenv("TARIFF_FEED_URL_VEOLIA"),
			"surtigas": os.Getenv("TARIFF_FEED_URL_SURTIGAS"),
		},
	}

	if path := os.Getenv("TARIFF_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.ChangeThresholdPercent <= 0 {
		cfg.ChangeThresholdPercent = 5
	}
	if cfg.FeedTimeout <= 0 {
		cfg.FeedTimeout = 2 * time.Minute
	}
	if cfg.StorageRoot == "" {
		return cfg, errors.New("tariffs: storage root required")
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvFloatDefault(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
