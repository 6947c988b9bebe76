// Package proxy is the caching proxy in front of the remote POS origin. It
// classifies each request and dispatches to a fetch strategy: navigation
// and unclassified routes are network-first with cached fallbacks, static
// assets are stale-while-revalidate, API routes are network-only with a
// synthesized offline response.
package proxy

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/posdesk/posd/internal/cachestore"
	"github.com/posdesk/posd/pkg/logger"
	"github.com/posdesk/posd/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

const offlineJSON = `{"success":false,"message":"You are offline right now."}`

// Params wires a Handler.
type Params struct {
	Store        cachestore.Store
	Names        cachestore.Names
	Upstream     *url.URL
	Client       *http.Client
	OfflinePath  string
	ManifestPath string
	Metrics      *metrics.ProxyMetrics
	Logger       *logger.Logger
}

// Handler implements http.Handler over the routing policy.
type Handler struct {
	store        cachestore.Store
	names        cachestore.Names
	upstream     *url.URL
	client       *http.Client
	offlinePath  string
	manifestPath string
	metrics      *metrics.ProxyMetrics
	logg         *logger.Logger
	pass         *httputil.ReverseProxy
	refreshes    singleflight.Group
}

func New(p Params) *Handler {
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	pass := httputil.NewSingleHostReverseProxy(p.Upstream)
	pass.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		if p.Logger != nil {
			p.Logger.Error(r.Context(), "proxy.passthrough_failed", err)
		}
		w.WriteHeader(http.StatusBadGateway)
	}

	return &Handler{
		store:        p.Store,
		names:        p.Names,
		upstream:     p.Upstream,
		client:       client,
		offlinePath:  p.OfflinePath,
		manifestPath: p.ManifestPath,
		metrics:      p.Metrics,
		logg:         p.Logger,
		pass:         pass,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	class := Classify(r, h.manifestPath)
	h.metrics.IncRequest(string(class))

	ctx := r.Context()
	if h.logg != nil {
		ctx = h.logg.WithRouteClass(ctx, string(class))
		r = r.WithContext(ctx)
	}

	switch class {
	case ClassPassthrough:
		h.pass.ServeHTTP(w, r)
	case ClassNavigation:
		h.handleNavigation(w, r)
	case ClassAPI:
		h.handleAPI(w, r)
	case ClassStatic:
		h.staleWhileRevalidate(w, r)
	default:
		h.networkFirst(w, r)
	}
}

// handleAPI never consults the cache: a failure is reported honestly.
func (h *Handler) handleAPI(w http.ResponseWriter, r *http.Request) {
	entry, err := h.fetchEntry(r.Context(), r)
	if err != nil {
		h.metrics.IncUpstreamError(string(ClassAPI))
		if h.logg != nil {
			h.logg.Warn(h.logg.WithField(r.Context(), "path", r.URL.Path), "proxy.api_offline")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(offlineJSON))
		return
	}
	entry.WriteTo(w)
}

// staleWhileRevalidate serves the cached copy immediately when present and
// refreshes it in the background; the caller never waits on the network for
// an asset it has seen before.
func (h *Handler) staleWhileRevalidate(w http.ResponseWriter, r *http.Request) {
	key := cachestore.RequestKey(r)

	cached, found, err := h.store.Match(r.Context(), h.names.Static, key)
	if err != nil && h.logg != nil {
		h.logg.Error(r.Context(), "proxy.cache_read_failed", err)
	}

	if found {
		h.metrics.IncCacheHit(h.names.Static)
		// Background refresh is fire-and-forget: its write is not ordered
		// relative to the response below.
		refreshReq := r.Clone(context.Background())
		go h.refresh(refreshReq, key)
		cached.WriteTo(w)
		return
	}

	h.metrics.IncCacheMiss(h.names.Static)
	entry, err := h.fetchEntry(r.Context(), r)
	if err != nil {
		h.metrics.IncUpstreamError(string(ClassStatic))
		h.writeNetworkError(w)
		return
	}
	if cachestore.Cacheable(entry.Status) {
		h.put(r.Context(), h.names.Static, key, entry)
	}
	entry.WriteTo(w)
}

func (h *Handler) refresh(r *http.Request, key string) {
	_, _, _ = h.refreshes.Do(key, func() (any, error) {
		entry, err := h.fetchEntry(r.Context(), r)
		if err != nil {
			return nil, err
		}
		if cachestore.Cacheable(entry.Status) {
			h.put(r.Context(), h.names.Static, key, entry)
		}
		return nil, nil
	})
}

// networkFirst prefers a live response, falling back to the runtime
// partition and finally the precached offline page.
func (h *Handler) networkFirst(w http.ResponseWriter, r *http.Request) {
	key := cachestore.RequestKey(r)

	entry, err := h.fetchEntry(r.Context(), r)
	if err == nil {
		if cachestore.Cacheable(entry.Status) {
			h.put(r.Context(), h.names.Runtime, key, entry)
		}
		entry.WriteTo(w)
		return
	}
	h.metrics.IncUpstreamError(string(ClassRuntime))

	if cached, found, _ := h.store.Match(r.Context(), h.names.Runtime, key); found {
		h.metrics.IncFallback("runtime-cache")
		cached.WriteTo(w)
		return
	}
	if offline, found, _ := h.store.Match(r.Context(), h.names.Static, h.offlineKey()); found {
		h.metrics.IncFallback("offline-page")
		offline.WriteTo(w)
		return
	}
	h.writeNetworkError(w)
}

// handleNavigation is network-first specialized for document loads. A live
// response is stored and returned regardless of status: a redirect must
// still render. Offline, the chain is exact page, site root, offline page.
func (h *Handler) handleNavigation(w http.ResponseWriter, r *http.Request) {
	key := cachestore.RequestKey(r)

	entry, err := h.fetchEntry(r.Context(), r)
	if err == nil {
		h.put(r.Context(), h.names.Runtime, key, entry)
		entry.WriteTo(w)
		return
	}
	h.metrics.IncUpstreamError(string(ClassNavigation))
	if h.logg != nil {
		h.logg.Warn(h.logg.WithField(r.Context(), "path", r.URL.Path), "proxy.navigation_offline")
	}

	if cached, found := h.matchAny(r.Context(), key); found {
		h.metrics.IncFallback("exact-page")
		cached.WriteTo(w)
		return
	}
	if home, found := h.matchAny(r.Context(), cachestore.Key(http.MethodGet, "/")); found {
		h.metrics.IncFallback("home-page")
		home.WriteTo(w)
		return
	}
	if offline, found, _ := h.store.Match(r.Context(), h.names.Static, h.offlineKey()); found {
		h.metrics.IncFallback("offline-page")
		offline.WriteTo(w)
		return
	}
	h.writeNetworkError(w)
}

// matchAny checks the runtime partition first (freshest capture), then the
// static partition (precached pages).
func (h *Handler) matchAny(ctx context.Context, key string) (*cachestore.Entry, bool) {
	if entry, found, _ := h.store.Match(ctx, h.names.Runtime, key); found {
		return entry, true
	}
	if entry, found, _ := h.store.Match(ctx, h.names.Static, key); found {
		return entry, true
	}
	return nil, false
}

// fetchEntry performs the upstream GET and captures the full response.
func (h *Handler) fetchEntry(ctx context.Context, r *http.Request) (*cachestore.Entry, error) {
	target := *h.upstream
	target.Path = singleJoiningSlash(h.upstream.Path, r.URL.Path)
	target.RawQuery = r.URL.RawQuery

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, err
	}
	copyEndToEndHeaders(req.Header, r.Header)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	return cachestore.NewEntryFromResponse(resp)
}

func (h *Handler) put(ctx context.Context, partition, key string, entry *cachestore.Entry) {
	if err := h.store.Put(ctx, partition, key, entry); err != nil && h.logg != nil {
		h.logg.Error(h.logg.WithPartition(ctx, partition), "proxy.cache_write_failed", err)
	}
}

func (h *Handler) offlineKey() string {
	return cachestore.Key(http.MethodGet, h.offlinePath)
}

func (h *Handler) writeNetworkError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("network error"))
}

var hopByHopHeaders = []string{
	"Connection", "Proxy-Connection", "Keep-Alive",
	"Proxy-Authenticate", "Proxy-Authorization", "TE",
	"Trailer", "Transfer-Encoding", "Upgrade",
}

func copyEndToEndHeaders(dst, src http.Header) {
	for key, values := range src {
		dst[key] = append([]string(nil), values...)
	}
	for _, key := range hopByHopHeaders {
		dst.Del(key)
	}
	if conn := src.Get("Connection"); conn != "" {
		for _, token := range strings.Split(conn, ",") {
			if token = strings.TrimSpace(token); token != "" {
				dst.Del(token)
			}
		}
	}
}

func singleJoiningSlash(a, b string) string {
	aslash := strings.HasSuffix(a, "/")
	bslash := strings.HasPrefix(b, "/")
	switch {
	case aslash && bslash:
		return a + b[1:]
	case !aslash && !bslash:
		return a + "/" + b
	}
	return a + b
}
