package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Fetch modes for the collector.
const (
	FetchModeHTTP    = "http"
	FetchModeBrowser = "browser"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DataDir     string
	CatalogPath string
	ListenAddr  string
	LogLevel    string

	UserAgent      string
	PageParam      string
	FetchMode      string
	FetchTimeoutMs int
	MaxRetries     int
	PageDelayMs    int
	ChromeBin      string

	KoboAPIURL  string
	KoboToken   string
	AssetUID    string
	KoboFormURL string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() *Config {
	return &Config{
		DataDir:     getEnv("DATA_DIR", "data"),
		CatalogPath: getEnv("CATALOG_PATH", "categories.yaml"),
		ListenAddr:  getEnv("LISTEN_ADDR", ":8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		UserAgent:      getEnv("USER_AGENT", "Mozilla/5.0"),
		PageParam:      getEnv("PAGE_PARAM", "page"),
		FetchMode:      getEnv("FETCH_MODE", FetchModeHTTP),
		FetchTimeoutMs: getEnvInt("FETCH_TIMEOUT_MS", 0),
		MaxRetries:     getEnvInt("MAX_RETRIES", 1),
		PageDelayMs:    getEnvInt("PAGE_DELAY_MS", 0),
		ChromeBin:      getEnv("CHROME_BIN", ""),

		KoboAPIURL:  getEnv("KOBO_API_URL", "https://kobo.humanitarianresponse.info/api/v2/assets/"),
		KoboToken:   getEnv("KOBO_TOKEN", ""),
		AssetUID:    getEnv("ASSET_UID", ""),
		KoboFormURL: getEnv("KOBO_FORM_URL", "https://ee.kobotoolbox.org/i/ncOeJVUx"),
	}
}

// FetchTimeout is the per-request timeout; zero means the HTTP client default.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMs) * time.Millisecond
}

// PageDelay is the minimum spacing between page requests; zero disables it.
func (c *Config) PageDelay() time.Duration {
	return time.Duration(c.PageDelayMs) * time.Millisecond
}

// FeedbackEnabled reports whether survey credentials are configured.
func (c *Config) FeedbackEnabled() bool {
	return c.KoboToken != "" && c.AssetUID != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}
