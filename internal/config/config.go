package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" envconfig:"SERVER"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Paths   PathsConfig   `yaml:"paths" envconfig:"PATHS"`
	Cache   CacheConfig   `yaml:"cache" envconfig:"CACHE"`
	Scraper ScraperConfig `yaml:"scraper" envconfig:"SCRAPER"`
	// Language is the default UI language ("en" or "zh").
	Language string `yaml:"language" envconfig:"LANGUAGE" default:"en"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS" default:"50"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST" default:"25"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
}

// PathsConfig contains filesystem paths configuration.
type PathsConfig struct {
	DataDir  string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	CacheDir string `yaml:"cache_dir" envconfig:"CACHE_DIR" default:"cache"`
	LogsDir  string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// CacheConfig controls the memoizing cache store.
type CacheConfig struct {
	// TTLSeconds is the validity window of a cache entry.
	TTLSeconds int `yaml:"ttl_seconds" envconfig:"TTL_SECONDS" default:"86400"`
	// Persist enables the best-effort disk snapshot under CacheDir. When the
	// directory is unwritable the store silently degrades to memory-only.
	Persist bool `yaml:"persist" envconfig:"PERSIST" default:"true"`
}

// ScraperConfig controls the source fetching stage.
type ScraperConfig struct {
	// Sources is the fixed list of government/statistics pages to poll.
	// Year-templated yearbook URLs are appended at runtime.
	Sources []string `yaml:"sources" envconfig:"SOURCES"`
	// Concurrency bounds the fetch worker pool.
	Concurrency int `yaml:"concurrency" envconfig:"CONCURRENCY" default:"4"`
	// RequestTimeout is the per-request timeout of the HTTP client.
	RequestTimeout time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"30s"`
	// RequestsPerSecond throttles outbound requests so government sites are
	// not hammered.
	RequestsPerSecond float64 `yaml:"requests_per_second" envconfig:"REQUESTS_PER_SECOND" default:"0.5"`
	// Retries is the number of attempts per page on 5xx responses.
	Retries int `yaml:"retries" envconfig:"RETRIES" default:"3"`
	// Synthetic switches the pipeline to the deterministic generated dataset
	// instead of live scraping (demo mode, offline development).
	Synthetic bool `yaml:"synthetic" envconfig:"SYNTHETIC" default:"false"`
	// UploadFile is the spreadsheet looked up under DataDir on every refresh.
	UploadFile string `yaml:"upload_file" envconfig:"UPLOAD_FILE" default:"liudongrenkou.xlsx"`
}

// DefaultSources is the built-in source list used when none is configured.
// These are the provincial and municipal statistics bureau bulletin indexes.
var DefaultSources = []string{
	"http://stats.gd.gov.cn/tjsj/tjfx/",
	"http://tjj.gz.gov.cn/tjgb/qstjgb/",
	"http://tjj.sz.gov.cn/xxgk/zfxxgkml/tjsj/tjgb/",
	"http://tjj.dg.gov.cn/tjfx/ndtjfx/",
	"http://tjj.fs.gov.cn/tjsj/tjfx/",
	"http://tjj.zh.gov.cn/tjfx/",
}

// Load loads configuration from environment variables and an optional config
// file. Environment variables take precedence over file values.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("POPFLOW", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile := findConfigFile(); configFile != "" {
		fileCfg, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = merge(*fileCfg, cfg)
	}

	if len(cfg.Scraper.Sources) == 0 {
		cfg.Scraper.Sources = DefaultSources
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// merge overlays env config on top of file config (env wins).
func merge(fileCfg, envCfg Config) Config {
	if envCfg.Server.Port == 0 {
		envCfg.Server.Port = fileCfg.Server.Port
	}
	if envCfg.Cache.TTLSeconds == 0 {
		envCfg.Cache.TTLSeconds = fileCfg.Cache.TTLSeconds
	}
	if len(envCfg.Scraper.Sources) == 0 {
		envCfg.Scraper.Sources = fileCfg.Scraper.Sources
	}
	if envCfg.Paths.DataDir == "" {
		envCfg.Paths.DataDir = fileCfg.Paths.DataDir
	}
	if envCfg.Paths.CacheDir == "" {
		envCfg.Paths.CacheDir = fileCfg.Paths.CacheDir
	}
	if envCfg.Language == "" {
		envCfg.Language = fileCfg.Language
	}
	return envCfg
}

// TTL returns the cache TTL as a duration.
func (c *Config) TTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// EnsureDirectories creates the data and logs directories. The cache
// directory is intentionally excluded: cache writability is probed by the
// cache store itself so a read-only deployment degrades instead of failing
// startup.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// UploadPath returns the resolved path of the refresh-time spreadsheet.
func (c *Config) UploadPath() string {
	return filepath.Join(c.Paths.DataDir, c.Scraper.UploadFile)
}

// validate validates the configuration.
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Cache.TTLSeconds <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %d", c.Cache.TTLSeconds)
	}
	if c.Scraper.Concurrency <= 0 {
		return fmt.Errorf("scraper concurrency must be positive, got %d", c.Scraper.Concurrency)
	}
	if c.Language != "en" && c.Language != "zh" {
		return fmt.Errorf("unsupported language %q", c.Language)
	}
	if c.Logging.Format != "json" {
		// All logging is structured JSON; anything else is coerced.
		c.Logging.Format = "json"
	}
	return nil
}

// findConfigFile returns the path of the first config file found in the
// conventional locations, or empty when running on env vars only.
func findConfigFile() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		filepath.Join("..", "configs", "config.yaml"),
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// Default returns the default configuration used by tests and by binaries
// when Load fails.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimitRPS:    50,
			RateLimitBurst:  25,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/app.log",
		},
		Paths: PathsConfig{
			DataDir:  "data",
			CacheDir: "cache",
			LogsDir:  "logs",
		},
		Cache: CacheConfig{
			TTLSeconds: 86400,
			Persist:    true,
		},
		Scraper: ScraperConfig{
			Sources:           DefaultSources,
			Concurrency:       4,
			RequestTimeout:    30 * time.Second,
			RequestsPerSecond: 0.5,
			Retries:           3,
			UploadFile:        "liudongrenkou.xlsx",
		},
		Language: "en",
	}
}
