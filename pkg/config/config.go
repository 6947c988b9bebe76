package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "POSD"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App      AppConfig
	Upstream UpstreamConfig
	Cache    CacheConfig
	Snapshot SnapshotConfig
	Redis    RedisConfig
	Catalog  CatalogConfig
	Company  CompanyConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Upstream.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Cache.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"POSD_APP_ENV" required:"true"`
	Port         string   `envconfig:"POSD_APP_PORT" default:"8750"`
	LogLevel     string   `envconfig:"POSD_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"POSD_LOG_WARN_STACK" default:"false"`
	UIOrigins    []string `envconfig:"POSD_UI_ORIGINS" default:"http://localhost:8750"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// UpstreamConfig points at the remote POS API this terminal fronts.
type UpstreamConfig struct {
	BaseURL string        `envconfig:"POSD_UPSTREAM_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"POSD_UPSTREAM_TIMEOUT" default:"10s"`
}

func (u UpstreamConfig) validate() error {
	parsed, err := url.Parse(u.BaseURL)
	if err != nil {
		return fmt.Errorf("parsing upstream base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("upstream base url must be absolute, got %q", u.BaseURL)
	}
	return nil
}

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// CacheConfig drives the versioned response cache partitions.
type CacheConfig struct {
	Backend string `envconfig:"POSD_CACHE_BACKEND" default:"memory"`
	// Version tags the cache partitions; bumping it orphans old partitions
	// so the next activation wipes them.
	Version string `envconfig:"POSD_CACHE_VERSION" default:"v1"`
	// Precache lists the asset paths seeded into the static partition on install.
	Precache []string `envconfig:"POSD_CACHE_PRECACHE" default:"/,/offline,/static/css/style.css,/static/js/pos.js,/static/manifest.json,/static/icons/icon-192.png,/static/icons/icon-512.png"`
	// ManifestPath is cached stale-while-revalidate even though it sits
	// outside the /static/ prefix on some deployments.
	ManifestPath string `envconfig:"POSD_CACHE_MANIFEST_PATH" default:"/static/manifest.json"`
	OfflinePath  string `envconfig:"POSD_CACHE_OFFLINE_PATH" default:"/offline"`
}

func (c CacheConfig) validate() error {
	switch c.Backend {
	case CacheBackendMemory, CacheBackendRedis:
	default:
		return fmt.Errorf("unknown cache backend %q", c.Backend)
	}
	if strings.TrimSpace(c.Version) == "" {
		return fmt.Errorf("cache version must not be empty")
	}
	return nil
}

// SnapshotConfig controls best-effort local persistence of products and cart.
type SnapshotConfig struct {
	Disabled bool   `envconfig:"POSD_SNAPSHOT_DISABLED" default:"false"`
	Path     string `envconfig:"POSD_SNAPSHOT_PATH" default:"posd.db"`
}

type RedisConfig struct {
	URL          string        `envconfig:"POSD_REDIS_URL"`
	Address      string        `envconfig:"POSD_REDIS_ADDR"`
	Password     string        `envconfig:"POSD_REDIS_PASSWORD"`
	DB           int           `envconfig:"POSD_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"POSD_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"POSD_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"POSD_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"POSD_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"POSD_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type CatalogConfig struct {
	DefaultPageSize int `envconfig:"POSD_CATALOG_PAGE_SIZE" default:"8"`
	MaxPageSize     int `envconfig:"POSD_CATALOG_MAX_PAGE_SIZE" default:"48"`
}

// CompanyConfig feeds the invoice header and footer.
type CompanyConfig struct {
	Name    string `envconfig:"POSD_COMPANY_NAME" default:"POS System Store"`
	Address string `envconfig:"POSD_COMPANY_ADDRESS"`
	City    string `envconfig:"POSD_COMPANY_CITY"`
	Phone   string `envconfig:"POSD_COMPANY_PHONE"`
	Email   string `envconfig:"POSD_COMPANY_EMAIL"`
	Website string `envconfig:"POSD_COMPANY_WEBSITE"`
}
