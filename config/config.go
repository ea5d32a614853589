package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Engine     EngineConfig     `yaml:"engine"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Catalogs   CatalogsConfig   `yaml:"catalogs"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RequestIPHeader string  `yaml:"request_ip_header"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// EngineConfig holds the tunables of the record computation pipeline.
type EngineConfig struct {
	// ReferencePeriodHours is the nominal production period an impact
	// percentage is measured against (typically one 8h shift).
	ReferencePeriodHours float64 `yaml:"reference_period_hours"`
	// FutureToleranceDays is how far past "today" a record date may lie.
	FutureToleranceDays int `yaml:"future_tolerance_days"`
}

// PushConfig holds the VAPID keys for web push notifications.
// Leaving the keys empty disables push entirely.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// CatalogsConfig seeds the reference catalogs on first run. Only applied
// when the corresponding tables are empty.
type CatalogsConfig struct {
	Sites    []SiteSeed   `yaml:"sites"`
	Clients  []string     `yaml:"clients"`
	Services []string     `yaml:"services"`
	Matrix   []MatrixSeed `yaml:"matrix"`
}

// SiteSeed declares a site and the buildings registered under it.
type SiteSeed struct {
	Name      string   `yaml:"name"`
	Buildings []string `yaml:"buildings"`
}

// MatrixSeed declares one productivity matrix row. Client "*" and
// shift_count 0 act as wildcards for the lookup fallback chain.
type MatrixSeed struct {
	Site       string  `yaml:"site"`
	Client     string  `yaml:"client"`
	ShiftCount int     `yaml:"shift_count"`
	Factor     float64 `yaml:"factor"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}

	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 60
	}

	if cfg.Engine.ReferencePeriodHours <= 0 {
		cfg.Engine.ReferencePeriodHours = 8
	}

	if cfg.Engine.FutureToleranceDays < 0 {
		cfg.Engine.FutureToleranceDays = 0
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	return &cfg, nil
}
