package obs

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CatalogSourceLoads counts snapshot loads per data source and outcome.
	CatalogSourceLoads *prometheus.CounterVec
	// CatalogFallbackTotal counts requests served from the static dataset.
	CatalogFallbackTotal *prometheus.CounterVec
	// CatalogCacheTotal counts snapshot cache lookups and stale writes by result.
	CatalogCacheTotal *prometheus.CounterVec
	// CatalogLoadLatency records snapshot load latency in milliseconds.
	CatalogLoadLatency *prometheus.HistogramVec
	// CatalogJobsTotal counts background catalog jobs by type and outcome.
	CatalogJobsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CatalogSourceLoads = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_source_loads_total",
			Help:      "Count of catalog snapshot loads by source and result.",
		}, []string{"source", "result"})
		CatalogFallbackTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_fallback_total",
			Help:      "Count of catalog requests served from the static dataset.",
		}, []string{"reason"})
		CatalogCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_cache_total",
			Help:      "Count of catalog snapshot cache lookups and skipped writes by result.",
		}, []string{"result"})
		CatalogLoadLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "catalog_load_duration_ms",
			Help:      "Latency of catalog snapshot loads in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 3000},
		}, []string{"source"})
		CatalogJobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_jobs_total",
			Help:      "Count of background catalog jobs by type and result.",
		}, []string{"type", "result"})

		mustRegisterCollector(reg, CatalogSourceLoads, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CatalogSourceLoads = v
			}
		})
		mustRegisterCollector(reg, CatalogFallbackTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CatalogFallbackTotal = v
			}
		})
		mustRegisterCollector(reg, CatalogCacheTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CatalogCacheTotal = v
			}
		})
		mustRegisterCollector(reg, CatalogLoadLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				CatalogLoadLatency = v
			}
		})
		mustRegisterCollector(reg, CatalogJobsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CatalogJobsTotal = v
			}
		})
	})
}

// IncCounter bumps a labelled counter when it has been registered.
func IncCounter(vec *prometheus.CounterVec, labels ...string) {
	if vec == nil {
		return
	}
	vec.WithLabelValues(labels...).Inc()
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}

// ObserveMillis records d on a labelled histogram when it has been registered.
func ObserveMillis(vec *prometheus.HistogramVec, d time.Duration, labels ...string) {
	if vec == nil {
		return
	}
	vec.WithLabelValues(labels...).Observe(DurationMillis(d))
}
