package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ProxyMetrics records cache behavior of the request-routing proxy.
type ProxyMetrics struct {
	requests  *prometheus.CounterVec
	cacheHits *prometheus.CounterVec
	cacheMiss *prometheus.CounterVec
	fallbacks *prometheus.CounterVec
	upstream  *prometheus.CounterVec
}

// NewProxyMetrics registers the proxy metrics on the provided registerer.
func NewProxyMetrics(reg prometheus.Registerer) *ProxyMetrics {
	if reg == nil {
		return &ProxyMetrics{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "proxy_requests_total",
		Help: "Requests handled by the caching proxy, by route class.",
	}, []string{"class"})
	cacheHits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "proxy_cache_hits_total",
		Help: "Responses served from a cache partition.",
	}, []string{"partition"})
	cacheMiss := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "proxy_cache_misses_total",
		Help: "Cache lookups that found no entry.",
	}, []string{"partition"})
	fallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "proxy_fallbacks_total",
		Help: "Fallback chain steps taken after a network failure.",
	}, []string{"step"})
	upstream := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "proxy_upstream_errors_total",
		Help: "Upstream fetches that failed at the transport level.",
	}, []string{"class"})
	reg.MustRegister(requests, cacheHits, cacheMiss, fallbacks, upstream)
	return &ProxyMetrics{
		requests:  requests,
		cacheHits: cacheHits,
		cacheMiss: cacheMiss,
		fallbacks: fallbacks,
		upstream:  upstream,
	}
}

// IncRequest counts a routed request for the named class.
func (p *ProxyMetrics) IncRequest(class string) {
	if p == nil || p.requests == nil {
		return
	}
	p.requests.WithLabelValues(normalizeLabel(class)).Inc()
}

// IncCacheHit counts a response served from the named partition.
func (p *ProxyMetrics) IncCacheHit(partition string) {
	if p == nil || p.cacheHits == nil {
		return
	}
	p.cacheHits.WithLabelValues(normalizeLabel(partition)).Inc()
}

// IncCacheMiss counts a lookup that found nothing in the named partition.
func (p *ProxyMetrics) IncCacheMiss(partition string) {
	if p == nil || p.cacheMiss == nil {
		return
	}
	p.cacheMiss.WithLabelValues(normalizeLabel(partition)).Inc()
}

// IncFallback counts one step of a fallback chain.
func (p *ProxyMetrics) IncFallback(step string) {
	if p == nil || p.fallbacks == nil {
		return
	}
	p.fallbacks.WithLabelValues(normalizeLabel(step)).Inc()
}

// IncUpstreamError counts a transport-level fetch failure.
func (p *ProxyMetrics) IncUpstreamError(class string) {
	if p == nil || p.upstream == nil {
		return
	}
	p.upstream.WithLabelValues(normalizeLabel(class)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
