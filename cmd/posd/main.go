package main

import (
	"context"
	"net/http"
	"net/url"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/posdesk/posd/api/routes"
	"github.com/posdesk/posd/internal/cachestore"
	"github.com/posdesk/posd/internal/cart"
	"github.com/posdesk/posd/internal/catalog"
	"github.com/posdesk/posd/internal/checkout"
	"github.com/posdesk/posd/internal/invoice"
	"github.com/posdesk/posd/internal/lifecycle"
	"github.com/posdesk/posd/internal/proxy"
	"github.com/posdesk/posd/internal/snapshot"
	"github.com/posdesk/posd/internal/upstream"
	"github.com/posdesk/posd/pkg/config"
	"github.com/posdesk/posd/pkg/logger"
	"github.com/posdesk/posd/pkg/metrics"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "posd"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "posd",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	snaps, closeSnaps, err := newSnapshotStore(cfg.Snapshot)
	if err != nil {
		logg.Error(context.Background(), "failed to open snapshot store", err)
		os.Exit(1)
	}
	defer closeSnaps()

	store, closeStore, err := newCacheStore(context.Background(), cfg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap cache store", err)
		os.Exit(1)
	}
	defer closeStore()

	client, err := upstream.NewClient(cfg.Upstream)
	if err != nil {
		logg.Error(context.Background(), "failed to build upstream client", err)
		os.Exit(1)
	}

	upstreamURL, err := url.Parse(cfg.Upstream.BaseURL)
	if err != nil {
		logg.Error(context.Background(), "failed to parse upstream base url", err)
		os.Exit(1)
	}

	httpClient := &http.Client{Timeout: cfg.Upstream.Timeout}
	fetch := func(ctx context.Context, path string) (*cachestore.Entry, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, upstreamURL.JoinPath(path).String(), nil)
		if err != nil {
			return nil, err
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		return cachestore.NewEntryFromResponse(resp)
	}

	manager := lifecycle.NewManager(store, fetch, cfg.Cache.Version, cfg.Cache.Precache, logg)
	bootCtx := context.Background()
	if err := manager.Install(bootCtx); err != nil {
		// An offline boot serves whatever earlier generations left behind.
		logg.Warn(logg.WithField(bootCtx, "error", err.Error()), "precache install failed, continuing")
	} else if err := manager.Activate(bootCtx); err != nil {
		logg.Warn(logg.WithField(bootCtx, "error", err.Error()), "cache activation incomplete")
	}

	go func() {
		<-manager.Subscribe()
		ctx := logg.WithField(context.Background(), "version", cfg.Cache.Version)
		logg.Info(ctx, "cache generation active")
	}()

	registry := prometheus.NewRegistry()
	proxyMetrics := metrics.NewProxyMetrics(registry)

	proxyHandler := proxy.New(proxy.Params{
		Store:        store,
		Names:        manager.Names(),
		Upstream:     upstreamURL,
		Client:       httpClient,
		OfflinePath:  cfg.Cache.OfflinePath,
		ManifestPath: cfg.Cache.ManifestPath,
		Metrics:      proxyMetrics,
		Logger:       logg,
	})

	catalogSvc := catalog.NewService(client, snaps, cfg.Catalog.DefaultPageSize, logg)
	cartSvc := cart.NewService(client, snaps, logg)
	checkoutSvc := checkout.NewService(cartSvc, client, logg)
	renderer := invoice.NewRenderer(cfg.Company)

	router := routes.NewRouter(routes.Deps{
		Config:    cfg,
		Logger:    logg,
		Upstream:  client,
		Catalog:   catalogSvc,
		Cart:      cartSvc,
		Checkout:  checkoutSvc,
		Invoices:  renderer,
		Lifecycle: manager,
		Proxy:     proxyHandler,
		Registry:  registry,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"upstream": upstreamURL.Host,
	})
	logg.Info(ctx, "starting pos edge daemon")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func newSnapshotStore(cfg config.SnapshotConfig) (snapshot.Store, func(), error) {
	if cfg.Disabled {
		return snapshot.Noop{}, func() {}, nil
	}
	sqlite, err := snapshot.NewSQLite(cfg)
	if err != nil {
		return nil, nil, err
	}
	return sqlite, func() { _ = sqlite.Close() }, nil
}

func newCacheStore(ctx context.Context, cfg *config.Config) (cachestore.Store, func(), error) {
	if cfg.Cache.Backend == config.CacheBackendRedis {
		rdb, err := cachestore.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return rdb, func() { _ = rdb.Close() }, nil
	}
	return cachestore.NewMemory(), func() {}, nil
}
