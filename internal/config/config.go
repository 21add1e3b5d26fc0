package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents runtime configuration for the service.
type Config struct {
	Server    ServerConfig              `json:"server"`
	Session   SessionConfig             `json:"session"`
	Upload    UploadConfig              `json:"upload"`
	Worker    WorkerConfig              `json:"worker"`
	Provider  string                    `json:"provider"`
	Providers map[string]ProviderConfig `json:"providers"`
	Databases map[string]DatabaseConfig `json:"databases"`
	Redis     RedisConfig               `json:"redis"`
}

type ServerConfig struct {
	Port    int    `json:"port"`
	BaseURL string `json:"base_url"`
}

type SessionConfig struct {
	Backend              string `json:"backend"`
	TTLMinutes           int    `json:"ttl_minutes"`
	Capacity             int    `json:"capacity"`
	CleanIntervalMinutes int    `json:"clean_interval_minutes"`
}

type UploadConfig struct {
	SpoolDir        string `json:"spool_dir"`
	MaxFileBytes    int64  `json:"max_file_bytes"`
	MaxContextBytes int    `json:"max_context_bytes"`
}

type WorkerConfig struct {
	Workers        int  `json:"workers"`
	QueueSize      int  `json:"queue_size"`
	TimeoutSeconds int  `json:"timeout_seconds"`
	MaxRetries     *int `json:"max_retries"` // nil means DefaultMaxRetries, 0 disables retries
}

type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

const (
	DefaultPort            = 5000
	DefaultProvider        = "gemini"
	DefaultSessionTTL      = 24 * time.Hour
	DefaultSessionCapacity = 1000
	DefaultCleanInterval   = 10 * time.Minute
	DefaultMaxFileBytes    = 10 << 20 // 10 MB
	DefaultMaxContextBytes = 2 << 20
	DefaultWorkers         = 4
	DefaultQueueSize       = 32
	DefaultTimeout         = 60 * time.Second
	DefaultMaxRetries      = 2
)

var defaultModels = map[string]string{
	"gemini": "gemini-2.5-flash",
	"openai": "gpt-4o-mini",
	"claude": "claude-3-5-haiku-latest",
}

var providerKeyEnv = map[string]string{
	"gemini": "GEMINI_API_KEY",
	"openai": "OPENAI_API_KEY",
	"claude": "ANTHROPIC_API_KEY",
}

// Load reads configuration from the provided path (defaults to config.json), then applies
// environment overrides. A missing default config file is not an error; every field has a default.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: load .env: %v", err)
	}

	explicit := path != ""
	if path == "" {
		path = "config.json"
	}

	var cfg Config
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	file, err := os.Open(absPath)
	switch {
	case err == nil:
		defer file.Close()
		if err := json.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
		for name, db := range cfg.Databases {
			if db.DSN != "" && db.DSN != ":memory:" && strings.HasPrefix(name, "sqlite") && !filepath.IsAbs(db.DSN) {
				db.DSN = filepath.Join(filepath.Dir(absPath), db.DSN)
				cfg.Databases[name] = db
			}
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		} else {
			log.Printf("config: ignoring invalid PORT %q", v)
		}
	}
	if v := strings.TrimSpace(os.Getenv("BASE_URL")); v != "" {
		c.Server.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("QUICKREF_PROVIDER")); v != "" {
		c.Provider = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("QUICKREF_SESSION_BACKEND")); v != "" {
		c.Session.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("QUICKREF_REDIS_ADDR")); v != "" {
		host, portStr, err := net.SplitHostPort(v)
		if err != nil {
			log.Printf("config: ignoring invalid QUICKREF_REDIS_ADDR %q: %v", v, err)
		} else if port, err := strconv.Atoi(portStr); err == nil {
			c.Redis.Host = host
			c.Redis.Port = port
		}
	}

	provider := c.Provider
	if provider == "" {
		provider = DefaultProvider
	}
	if c.Providers == nil {
		c.Providers = make(map[string]ProviderConfig)
	}
	prov := c.Providers[provider]
	if env, ok := providerKeyEnv[provider]; ok {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			prov.APIKey = v
		}
	}
	if v := strings.TrimSpace(os.Getenv("QUICKREF_MODEL")); v != "" {
		prov.Model = v
	}
	c.Providers[provider] = prov
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = fmt.Sprintf("http://localhost:%d", c.Server.Port)
	}
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
	prov := c.Providers[c.Provider]
	if prov.Model == "" {
		prov.Model = defaultModels[c.Provider]
	}
	c.Providers[c.Provider] = prov
	if c.Session.Backend == "" {
		c.Session.Backend = "memory"
	}
	if c.Session.TTLMinutes <= 0 {
		c.Session.TTLMinutes = int(DefaultSessionTTL / time.Minute)
	}
	if c.Session.Capacity <= 0 {
		c.Session.Capacity = DefaultSessionCapacity
	}
	if c.Session.CleanIntervalMinutes <= 0 {
		c.Session.CleanIntervalMinutes = int(DefaultCleanInterval / time.Minute)
	}
	if c.Upload.SpoolDir == "" {
		c.Upload.SpoolDir = filepath.Join(os.TempDir(), "quickref-uploads")
	}
	if c.Upload.MaxFileBytes <= 0 {
		c.Upload.MaxFileBytes = DefaultMaxFileBytes
	}
	if c.Upload.MaxContextBytes <= 0 {
		c.Upload.MaxContextBytes = DefaultMaxContextBytes
	}
	if c.Worker.Workers <= 0 {
		c.Worker.Workers = DefaultWorkers
	}
	if c.Worker.QueueSize <= 0 {
		c.Worker.QueueSize = DefaultQueueSize
	}
	if c.Worker.TimeoutSeconds <= 0 {
		c.Worker.TimeoutSeconds = int(DefaultTimeout / time.Second)
	}
	if c.Worker.MaxRetries == nil {
		retries := DefaultMaxRetries
		c.Worker.MaxRetries = &retries
	}
}

// Validate refuses configurations that would only fail at the first request.
func (c *Config) Validate() error {
	if _, ok := defaultModels[c.Provider]; !ok {
		return fmt.Errorf("unsupported provider: %s", c.Provider)
	}
	if strings.TrimSpace(c.Providers[c.Provider].APIKey) == "" {
		env := providerKeyEnv[c.Provider]
		return fmt.Errorf("api key for provider %s must be configured (set %s)", c.Provider, env)
	}
	switch c.Session.Backend {
	case "memory", "redis":
	case "sqlite", "sqlite3", "mysql":
		if _, ok := c.Databases[c.Session.Backend]; !ok {
			return fmt.Errorf("database config for %s not found", c.Session.Backend)
		}
	default:
		return fmt.Errorf("unsupported session backend: %s", c.Session.Backend)
	}
	if c.Worker.MaxRetries != nil && *c.Worker.MaxRetries < 0 {
		return fmt.Errorf("invalid max_retries %d", *c.Worker.MaxRetries)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	return nil
}

// ActiveProvider returns the settings of the selected provider.
func (c *Config) ActiveProvider() ProviderConfig {
	return c.Providers[c.Provider]
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLMinutes) * time.Minute
}

func (c *Config) CleanInterval() time.Duration {
	return time.Duration(c.Session.CleanIntervalMinutes) * time.Minute
}

// Retries is the number of extra attempts for a transient upstream failure.
func (c *Config) Retries() int {
	if c.Worker.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return *c.Worker.MaxRetries
}

func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.Worker.TimeoutSeconds) * time.Second
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
