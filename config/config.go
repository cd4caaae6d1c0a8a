package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	scrapeerrors "ekaraca522/dolapscraper/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// Rate limiting
	DelayMin time.Duration `json:"delay_min"`
	DelayMax time.Duration `json:"delay_max"`

	// Navigation retry policy
	MaxRetries    int           `json:"max_retries"`
	BackoffFactor float64       `json:"backoff_factor"`
	Timeout       time.Duration `json:"timeout"`

	// Category crawl
	MaxPagesPerCategory int           `json:"max_pages_per_category"`
	Categories          []string      `json:"categories"`
	CategoryBlock       time.Duration `json:"category_block"`

	// Output
	OutputDir string `json:"output_dir"`
	CohortID  string `json:"cohort_id"`

	// Browser
	Headless bool `json:"headless"`

	// Memcache configuration (category block cache)
	MemcacheAddr string `json:"memcache_addr"`

	// Redis configuration (optional stream sink)
	RedisAddr         string `json:"redis_addr,omitempty"`
	RedisDB           int    `json:"redis_db"`
	RedisStream       string `json:"redis_stream"`
	RedisStreamMaxLen int    `json:"redis_stream_max_len"`

	// Environment
	Environment string `json:"environment"`
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	delayMin := getEnvFloat("SCRAPE_DELAY_MIN_SECONDS", 1.5)
	delayMax := getEnvFloat("SCRAPE_DELAY_MAX_SECONDS", 3.5)
	backoff := getEnvFloat("SCRAPE_BACKOFF_FACTOR", 2.0)
	timeout := getEnvInt("SCRAPE_TIMEOUT_SECONDS", 30)
	block := getEnvInt("CATEGORY_BLOCK_SECONDS", 300)

	return &Config{
		DelayMin:            time.Duration(delayMin * float64(time.Second)),
		DelayMax:            time.Duration(delayMax * float64(time.Second)),
		MaxRetries:          getEnvInt("SCRAPE_MAX_RETRIES", 3),
		BackoffFactor:       backoff,
		Timeout:             time.Duration(timeout) * time.Second,
		MaxPagesPerCategory: getEnvInt("SCRAPE_MAX_PAGES", 50),
		Categories:          splitCategories(getEnv("CATEGORIES", "kazak,elbise,mont")),
		CategoryBlock:       time.Duration(block) * time.Second,
		OutputDir:           getEnv("OUTPUT_DIR", "data/raw_snapshots"),
		CohortID:            getEnv("COHORT_ID", time.Now().Format("20060102")),
		Headless:            getEnvBool("HEADLESS", true),
		MemcacheAddr:        getEnv("MEMCACHE_ADDR", "localhost:11211"),
		RedisAddr:           getEnv("REDIS_ADDR", ""),
		RedisDB:             getEnvInt("REDIS_DB", 0),
		RedisStream:         getEnv("REDIS_STREAM", "listings"),
		RedisStreamMaxLen:   getEnvInt("REDIS_STREAM_MAX_LENGTH", 10000),
		Environment:         getEnv("DOLAP_ENVIRONMENT", "development"),
	}
}

// Validate checks the configuration for values the scraper cannot run with
func (c *Config) Validate() error {
	if c.DelayMin < 0 || c.DelayMax < c.DelayMin {
		return scrapeerrors.NewConfiguration(
			fmt.Sprintf("invalid delay range: min=%v max=%v", c.DelayMin, c.DelayMax), nil)
	}
	if c.MaxRetries < 1 {
		return scrapeerrors.NewConfiguration("max retries must be at least 1", nil)
	}
	if c.BackoffFactor < 1 {
		return scrapeerrors.NewConfiguration(
			fmt.Sprintf("backoff factor must be >= 1, got %g", c.BackoffFactor), nil)
	}
	if c.Timeout <= 0 {
		return scrapeerrors.NewConfiguration("timeout must be positive", nil)
	}
	if c.MaxPagesPerCategory < 1 {
		return scrapeerrors.NewConfiguration("max pages per category must be at least 1", nil)
	}
	if c.OutputDir == "" {
		return scrapeerrors.NewConfiguration("output dir must not be empty", nil)
	}
	if len(c.Categories) == 0 {
		return scrapeerrors.NewConfiguration("at least one category slug is required", nil)
	}
	return nil
}

// RedisEnabled reports whether the optional Redis stream sink is configured
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

func splitCategories(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}
