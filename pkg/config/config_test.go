package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.Env != "prod" {
		t.Fatalf("expected App.Env to be prod, got %q", cfg.App.Env)
	}
	if cfg.App.Port != "8750" {
		t.Fatalf("unexpected default port %q", cfg.App.Port)
	}
	if cfg.Upstream.Timeout != 10*time.Second {
		t.Fatalf("unexpected upstream timeout %v", cfg.Upstream.Timeout)
	}
	if cfg.Cache.Backend != CacheBackendMemory {
		t.Fatalf("unexpected cache backend %q", cfg.Cache.Backend)
	}
	if len(cfg.Cache.Precache) == 0 {
		t.Fatal("expected a default precache list")
	}
	if cfg.Catalog.DefaultPageSize != 8 || cfg.Catalog.MaxPageSize != 48 {
		t.Fatalf("unexpected catalog paging defaults %+v", cfg.Catalog)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv("POSD_APP_ENV"); err != nil {
		t.Fatalf("failed to unset POSD_APP_ENV: %v", err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected missing required env to return an error")
	}
}

func TestLoad_RejectsRelativeUpstreamURL(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("POSD_UPSTREAM_BASE_URL", "/api")

	if _, err := Load(); err == nil {
		t.Fatal("expected relative upstream url to be rejected")
	}
}

func TestLoad_RejectsUnknownCacheBackend(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("POSD_CACHE_BACKEND", "memcached")

	if _, err := Load(); err == nil {
		t.Fatal("expected unknown cache backend to be rejected")
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv("POSD_APP_ENV", "prod")
	t.Setenv("POSD_UPSTREAM_BASE_URL", "http://pos.internal:5000")
}
