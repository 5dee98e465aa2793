package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Scraper  ScraperConfig
	Browser  BrowserConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Logging  LoggingConfig
}

type ScraperConfig struct {
	InputFile   string
	InputSheet  string
	InputColumn string
	OutputDir   string
	Cities      []string

	MaxRetries        int
	NavigationTimeout time.Duration
	SettleDelay       time.Duration
	LocaleDelay       time.Duration
	DetailTimeout     time.Duration
	FeedTimeout       time.Duration
	PollInterval      time.Duration
	ClickDelayMin     time.Duration
	ClickDelayMax     time.Duration
	MaxPlaces         int
	AbortOnNavFailure bool
	CityRetries       int
	Resume            bool
	ProgressFile      string
}

type BrowserConfig struct {
	Headless       bool
	ExecutablePath string
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	UserAgent      string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Enabled reports whether the Postgres sink was configured.
func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
}

func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Scraper: ScraperConfig{
			InputFile:         getEnvOrDefault("SCRAPER_INPUT_FILE", "kota_di_indonesia.xlsx"),
			InputSheet:        getEnvOrDefault("SCRAPER_INPUT_SHEET", ""),
			InputColumn:       getEnvOrDefault("SCRAPER_INPUT_COLUMN", "Kota"),
			OutputDir:         getEnvOrDefault("SCRAPER_OUTPUT_DIR", "."),
			Cities:            getStringSliceOrDefault("SCRAPER_CITIES", nil),
			MaxRetries:        getIntOrDefault("SCRAPER_MAX_RETRIES", 3),
			NavigationTimeout: getDurationOrDefault("SCRAPER_NAV_TIMEOUT", 30*time.Second),
			SettleDelay:       getDurationOrDefault("SCRAPER_SETTLE_DELAY", 5*time.Second),
			LocaleDelay:       getDurationOrDefault("SCRAPER_LOCALE_DELAY", 2*time.Second),
			DetailTimeout:     getDurationOrDefault("SCRAPER_DETAIL_TIMEOUT", 10*time.Second),
			FeedTimeout:       getDurationOrDefault("SCRAPER_FEED_TIMEOUT", 5*time.Second),
			PollInterval:      getDurationOrDefault("SCRAPER_POLL_INTERVAL", 250*time.Millisecond),
			ClickDelayMin:     getDurationOrDefault("SCRAPER_CLICK_DELAY_MIN", 1*time.Second),
			ClickDelayMax:     getDurationOrDefault("SCRAPER_CLICK_DELAY_MAX", 3*time.Second),
			MaxPlaces:         getIntOrDefault("SCRAPER_MAX_PLACES", 0),
			AbortOnNavFailure: getBoolOrDefault("SCRAPER_ABORT_ON_NAV_FAILURE", true),
			CityRetries:       getIntOrDefault("SCRAPER_CITY_RETRIES", 0),
			Resume:            getBoolOrDefault("SCRAPER_RESUME", false),
			ProgressFile:      getEnvOrDefault("SCRAPER_PROGRESS_FILE", "progress.json"),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			ExecutablePath: getEnvOrDefault("BROWSER_EXECUTABLE_PATH", ""),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1366),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 900),
			AcceptLanguage: getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "en-US,en;q=0.9,id;q=0.8"),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "Asia/Jakarta"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "en-US"),
			UserAgent:      getEnvOrDefault("BROWSER_USER_AGENT", ""),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", ""),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "gmaps_poi"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", ""),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
			Stream:   getEnvOrDefault("REDIS_STREAM", "stream:places"),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Scraper.MaxRetries < 1 {
		return fmt.Errorf("SCRAPER_MAX_RETRIES must be at least 1")
	}

	if c.Scraper.NavigationTimeout <= 0 {
		return fmt.Errorf("SCRAPER_NAV_TIMEOUT must be positive")
	}

	if c.Scraper.ClickDelayMin > c.Scraper.ClickDelayMax {
		return fmt.Errorf("SCRAPER_CLICK_DELAY_MIN cannot be greater than SCRAPER_CLICK_DELAY_MAX")
	}

	if c.Scraper.MaxPlaces < 0 {
		return fmt.Errorf("SCRAPER_MAX_PLACES cannot be negative")
	}

	if c.Scraper.CityRetries < 0 {
		return fmt.Errorf("SCRAPER_CITY_RETRIES cannot be negative")
	}

	if len(c.Scraper.Cities) == 0 && c.Scraper.InputFile == "" {
		return fmt.Errorf("either SCRAPER_CITIES or SCRAPER_INPUT_FILE is required")
	}

	if c.Scraper.OutputDir == "" {
		return fmt.Errorf("SCRAPER_OUTPUT_DIR is required")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return defaultValue
}
