// Package config loads and validates service configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. MOVIES_DB_PATH.
const EnvPrefix = "MOVIES"

// Fetcher backends accepted by scraper.fetcher.
const (
	FetcherColly    = "colly"
	FetcherChromedp = "chromedp"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	DB      DBConfig      `mapstructure:"db"`
	Scraper ScraperConfig `mapstructure:"scraper"`
	Proxy   ProxyConfig   `mapstructure:"proxy"`
	API     APIConfig     `mapstructure:"api"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Host                  string `mapstructure:"host"`
	Port                  int    `mapstructure:"port"`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds"`
}

// DBConfig locates the SQLite file.
type DBConfig struct {
	Path          string `mapstructure:"path"`
	BusyTimeoutMs int    `mapstructure:"busy_timeout_ms"`
}

// ScraperConfig governs listing scrapes.
type ScraperConfig struct {
	DoulistID      string         `mapstructure:"doulist_id"`
	BaseURL        string         `mapstructure:"base_url"`
	MaxPages       int            `mapstructure:"max_pages"`
	DelaySeconds   float64        `mapstructure:"delay_seconds"`
	TimeoutSeconds int            `mapstructure:"timeout_seconds"`
	UserAgent      string         `mapstructure:"user_agent"`
	Fetcher        string         `mapstructure:"fetcher"`
	Headless       HeadlessConfig `mapstructure:"headless"`
}

// HeadlessConfig configures the chromedp listing fetcher.
type HeadlessConfig struct {
	NavTimeoutSeconds   int `mapstructure:"nav_timeout_seconds"`
	ReadyTimeoutSeconds int `mapstructure:"ready_timeout_seconds"`
}

// ProxyConfig configures the image proxy.
type ProxyConfig struct {
	TimeoutSeconds     int      `mapstructure:"timeout_seconds"`
	Referer            string   `mapstructure:"referer"`
	CacheMaxAgeSeconds int      `mapstructure:"cache_max_age_seconds"`
	RatePerSecond      float64  `mapstructure:"rate_per_second"`
	Burst              int      `mapstructure:"burst"`
	MaxHosts           int      `mapstructure:"max_hosts"`
	KnownHosts         []string `mapstructure:"known_hosts"`
}

// APIConfig bounds listing pagination.
type APIConfig struct {
	DefaultPerPage int `mapstructure:"default_per_page"`
	MaxPerPage     int `mapstructure:"max_per_page"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from an optional .env file, the environment and an
// optional config file at path.
func Load(path string) (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// loadDotEnv exports variables from file without overriding ones already set.
// A missing file is not an error.
func loadDotEnv(file string) error {
	if err := godotenv.Load(file); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", file, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 60)
	v.SetDefault("db.path", "movies.db")
	v.SetDefault("db.busy_timeout_ms", 5000)
	v.SetDefault("scraper.doulist_id", "157902238")
	v.SetDefault("scraper.base_url", "https://www.douban.com")
	v.SetDefault("scraper.max_pages", 10)
	v.SetDefault("scraper.delay_seconds", 2)
	v.SetDefault("scraper.timeout_seconds", 15)
	v.SetDefault("scraper.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 "+
		"(KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	v.SetDefault("scraper.fetcher", FetcherColly)
	v.SetDefault("scraper.headless.nav_timeout_seconds", 45)
	v.SetDefault("scraper.headless.ready_timeout_seconds", 5)
	v.SetDefault("proxy.timeout_seconds", 15)
	v.SetDefault("proxy.referer", "https://movie.douban.com/")
	v.SetDefault("proxy.cache_max_age_seconds", 86400)
	v.SetDefault("proxy.rate_per_second", 10)
	v.SetDefault("proxy.burst", 10)
	v.SetDefault("proxy.max_hosts", 256)
	v.SetDefault("proxy.known_hosts", []string{"doubanio.com"})
	v.SetDefault("api.default_per_page", 10)
	v.SetDefault("api.max_per_page", 100)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("server.request_timeout_seconds must be > 0")
	}
	if strings.TrimSpace(c.DB.Path) == "" {
		return fmt.Errorf("db.path must be set")
	}
	if c.DB.BusyTimeoutMs < 0 {
		return fmt.Errorf("db.busy_timeout_ms must be >= 0")
	}
	if strings.TrimSpace(c.Scraper.DoulistID) == "" {
		return fmt.Errorf("scraper.doulist_id must be set")
	}
	if c.Scraper.MaxPages <= 0 {
		return fmt.Errorf("scraper.max_pages must be > 0")
	}
	if c.Scraper.DelaySeconds < 0 {
		return fmt.Errorf("scraper.delay_seconds must be >= 0")
	}
	if c.Scraper.TimeoutSeconds <= 0 {
		return fmt.Errorf("scraper.timeout_seconds must be > 0")
	}
	switch c.Scraper.Fetcher {
	case FetcherColly, FetcherChromedp:
	default:
		return fmt.Errorf("scraper.fetcher must be %q or %q, got %q", FetcherColly, FetcherChromedp, c.Scraper.Fetcher)
	}
	if c.Scraper.Fetcher == FetcherChromedp && c.Scraper.Headless.ReadyTimeoutSeconds <= 0 {
		return fmt.Errorf("scraper.headless.ready_timeout_seconds must be > 0 when the chromedp fetcher is selected")
	}
	if c.Proxy.TimeoutSeconds <= 0 {
		return fmt.Errorf("proxy.timeout_seconds must be > 0")
	}
	if c.Proxy.CacheMaxAgeSeconds < 0 {
		return fmt.Errorf("proxy.cache_max_age_seconds must be >= 0")
	}
	if c.Proxy.RatePerSecond < 0 || c.Proxy.Burst < 0 {
		return fmt.Errorf("proxy.rate_per_second and proxy.burst must be >= 0")
	}
	if c.Proxy.MaxHosts < 0 {
		return fmt.Errorf("proxy.max_hosts must be >= 0")
	}
	if c.API.DefaultPerPage <= 0 {
		return fmt.Errorf("api.default_per_page must be > 0")
	}
	if c.API.MaxPerPage < c.API.DefaultPerPage {
		return fmt.Errorf("api.max_per_page must be >= api.default_per_page")
	}
	return nil
}

// Addr is the listen address for the API server.
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// RequestTimeout bounds each API request.
func (c ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// BusyTimeout is how long SQLite waits on a locked database.
func (c DBConfig) BusyTimeout() time.Duration {
	return time.Duration(c.BusyTimeoutMs) * time.Millisecond
}

// Delay is the pause before each listing request.
func (c ScraperConfig) Delay() time.Duration {
	return time.Duration(c.DelaySeconds * float64(time.Second))
}

// Timeout bounds each listing request.
func (c ScraperConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// NavTimeout bounds each headless navigation.
func (c HeadlessConfig) NavTimeout() time.Duration {
	return time.Duration(c.NavTimeoutSeconds) * time.Second
}

// ReadyTimeout is how long a rendered page may take to show its first item.
func (c HeadlessConfig) ReadyTimeout() time.Duration {
	return time.Duration(c.ReadyTimeoutSeconds) * time.Second
}

// Timeout bounds each upstream image request.
func (c ProxyConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CacheControl is the header value sent with proxied images.
func (c ProxyConfig) CacheControl() string {
	return fmt.Sprintf("public, max-age=%d", c.CacheMaxAgeSeconds)
}
