package config

import (
	"fmt"
	"net/url"
	"time"
)

// Discovery strategy names.
const (
	StrategyPages = "pages"
	StrategyAPI   = "api"
)

// Config holds exporter configuration.
type Config struct {
	BaseURL  string // site root, detail URLs are resolved against it
	APIURL   string // GraphQL endpoint for the api strategy
	Strategy string // pages or api

	Username  string
	Universe  string // media category, "2" is books
	SortOrder string

	// Optional collection filters; zero values mean no filter.
	CategoryID  int
	GenreID     int
	Keywords    string
	YearDone    int
	YearRelease int

	Workers   int           // concurrency cap for detail fetches
	Delay     time.Duration // per-task delay before each fetch
	BatchSize int           // api strategy page size
	MaxPages  int           // pages strategy safety cap
	Timeout   time.Duration // per-request timeout

	OutputFile   string
	OutputFormat string // json, csv, or dual
	UserAgent    string
	MetricsAddr  string
	Verbose      bool
}

// DefaultConfig returns conservative defaults for the book universe.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:      "https://www.senscritique.com",
		APIURL:       "https://apollo.senscritique.com/",
		Strategy:     StrategyAPI,
		Universe:     "2",
		SortOrder:    "LAST_ACTION",
		Workers:      3,
		Delay:        200 * time.Millisecond,
		BatchSize:    30,
		MaxPages:     100,
		Timeout:      10 * time.Second,
		OutputFile:   "output/books.json",
		OutputFormat: "json",
		UserAgent:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	parsed, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.Strategy != StrategyPages && c.Strategy != StrategyAPI {
		return fmt.Errorf("strategy must be %q or %q", StrategyPages, StrategyAPI)
	}
	if c.Strategy == StrategyAPI {
		if c.APIURL == "" {
			return fmt.Errorf("api URL cannot be empty")
		}
		if c.BatchSize <= 0 {
			return fmt.Errorf("batch size must be positive")
		}
	}

	if c.Username == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "json" && c.OutputFormat != "csv" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be json, csv, or dual")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}
