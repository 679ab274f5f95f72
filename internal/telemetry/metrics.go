// Package telemetry exposes prometheus metrics for the kernel cache.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics aggregates the collectors published by the cache manager.
// A nil *Metrics is valid and turns every record call into a no-op, so
// callers that do not care about metrics can pass nil.
type Metrics struct {
	Downloads        prometheus.Counter
	DownloadBytes    prometheus.Counter
	DownloadFailures prometheus.Counter
	KernelsLoaded    prometheus.Gauge
	CacheBytes       prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a metrics set registered on a private registry.
func New() *Metrics {
	m := &Metrics{
		Downloads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heliospice_kernel_downloads_total",
			Help: "Number of kernel files fetched from the remote archive.",
		}),
		DownloadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heliospice_download_bytes_total",
			Help: "Total bytes downloaded from the remote archive.",
		}),
		DownloadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heliospice_download_failures_total",
			Help: "Number of failed kernel downloads.",
		}),
		KernelsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "heliospice_kernels_loaded",
			Help: "Kernel files currently loaded in the SPICE pool.",
		}),
		CacheBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "heliospice_cache_bytes",
			Help: "Total size of the on-disk kernel cache.",
		}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(m.Downloads, m.DownloadBytes, m.DownloadFailures, m.KernelsLoaded, m.CacheBytes)
	return m
}

// Handler returns an HTTP handler serving the metrics registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordDownload records a completed download of size bytes.
func (m *Metrics) RecordDownload(size int64) {
	if m == nil {
		return
	}
	m.Downloads.Inc()
	m.DownloadBytes.Add(float64(size))
}

// RecordDownloadFailure records a failed download attempt.
func (m *Metrics) RecordDownloadFailure() {
	if m == nil {
		return
	}
	m.DownloadFailures.Inc()
}

// SetLoaded records the number of kernels currently loaded.
func (m *Metrics) SetLoaded(n int) {
	if m == nil {
		return
	}
	m.KernelsLoaded.Set(float64(n))
}

// SetCacheBytes records the total on-disk cache size.
func (m *Metrics) SetCacheBytes(n int64) {
	if m == nil {
		return
	}
	m.CacheBytes.Set(float64(n))
}
