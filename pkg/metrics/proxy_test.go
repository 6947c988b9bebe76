package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestProxyMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewProxyMetrics(reg)

	metrics.IncRequest("static")
	metrics.IncRequest("static")
	metrics.IncCacheHit("posd-static-v1")
	metrics.IncCacheMiss("posd-static-v1")
	metrics.IncFallback("offline-page")
	metrics.IncUpstreamError("api")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	cases := []struct {
		name, label, value string
		want               float64
	}{
		{"proxy_requests_total", "class", "static", 2},
		{"proxy_cache_hits_total", "partition", "posd-static-v1", 1},
		{"proxy_cache_misses_total", "partition", "posd-static-v1", 1},
		{"proxy_fallbacks_total", "step", "offline-page", 1},
		{"proxy_upstream_errors_total", "class", "api", 1},
	}
	for _, tc := range cases {
		got, err := fetchCounterValue(mfs, tc.name, tc.label, tc.value)
		if err != nil {
			t.Fatalf("fetch %s: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s{%s=%q} = %f, want %f", tc.name, tc.label, tc.value, got, tc.want)
		}
	}
}

func TestProxyMetricsNormalizesEmptyLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewProxyMetrics(reg)
	metrics.IncRequest("")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "proxy_requests_total", "class", "unknown"); err != nil {
		t.Fatalf("fetch: %v", err)
	} else if got != 1 {
		t.Fatalf("unknown class = %f, want 1", got)
	}
}

func TestProxyMetricsNilSafe(t *testing.T) {
	var metrics *ProxyMetrics
	metrics.IncRequest("static")
	metrics.IncCacheHit("p")
	metrics.IncCacheMiss("p")
	metrics.IncFallback("s")
	metrics.IncUpstreamError("c")

	unregistered := NewProxyMetrics(nil)
	unregistered.IncRequest("static")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, labelName, labelValue string) (float64, error) {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == labelName && lp.GetValue() == labelValue {
					return m.GetCounter().GetValue(), nil
				}
			}
		}
	}
	return 0, fmt.Errorf("metric %s{%s=%q} not found", name, labelName, labelValue)
}
