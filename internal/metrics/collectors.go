package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/quietdash/quietdash/internal/cache"
	"github.com/quietdash/quietdash/internal/scheduler"
)

// JobSource reports the state of the scheduled jobs.
type JobSource interface {
	GetJobs() []scheduler.JobInfo
}

// CacheSource reports the statistics of the caches.
type CacheSource interface {
	GetStats() []*cache.Stats
}

var (
	jobRunsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "job", "runs_total"),
		"Number of runs of a scheduled job.",
		[]string{"job"}, nil,
	)
	jobErrorsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "job", "errors_total"),
		"Number of failed runs of a scheduled job.",
		[]string{"job"}, nil,
	)
	jobLastRunDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "job", "last_run_timestamp_seconds"),
		"Unix time of the last run of a scheduled job.",
		[]string{"job"}, nil,
	)
	jobNextRunDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "job", "next_run_timestamp_seconds"),
		"Unix time of the next scheduled run of a job.",
		[]string{"job"}, nil,
	)
	jobStatusDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "job", "status"),
		"Current status of a scheduled job, 1 for the active status.",
		[]string{"job", "status"}, nil,
	)

	cacheHitsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "cache", "hits_total"),
		"Number of cache hits.",
		[]string{"cache"}, nil,
	)
	cacheMissesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "cache", "misses_total"),
		"Number of cache misses.",
		[]string{"cache"}, nil,
	)
	cacheSetErrorsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "cache", "set_errors_total"),
		"Number of failed cache writes.",
		[]string{"cache"}, nil,
	)
)

type jobCollector struct {
	source JobSource
}

// NewJobCollector exposes the run counters and schedule of every job.
func NewJobCollector(source JobSource) prometheus.Collector {
	return &jobCollector{source: source}
}

func (c *jobCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- jobRunsDesc
	ch <- jobErrorsDesc
	ch <- jobLastRunDesc
	ch <- jobNextRunDesc
	ch <- jobStatusDesc
}

func (c *jobCollector) Collect(ch chan<- prometheus.Metric) {
	for _, job := range c.source.GetJobs() {
		ch <- prometheus.MustNewConstMetric(jobRunsDesc, prometheus.CounterValue, float64(job.RunCount), job.ID)
		ch <- prometheus.MustNewConstMetric(jobErrorsDesc, prometheus.CounterValue, float64(job.ErrorCount), job.ID)
		ch <- prometheus.MustNewConstMetric(jobStatusDesc, prometheus.GaugeValue, 1, job.ID, string(job.Status))
		if !job.LastRun.IsZero() {
			ch <- prometheus.MustNewConstMetric(jobLastRunDesc, prometheus.GaugeValue, float64(job.LastRun.Unix()), job.ID)
		}
		if !job.NextRun.IsZero() {
			ch <- prometheus.MustNewConstMetric(jobNextRunDesc, prometheus.GaugeValue, float64(job.NextRun.Unix()), job.ID)
		}
	}
}

type cacheCollector struct {
	source CacheSource
}

// NewCacheCollector exposes the hit and miss counters of every cache.
func NewCacheCollector(source CacheSource) prometheus.Collector {
	return &cacheCollector{source: source}
}

func (c *cacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- cacheHitsDesc
	ch <- cacheMissesDesc
	ch <- cacheSetErrorsDesc
}

func (c *cacheCollector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.source.GetStats() {
		if s == nil || s.Stats == nil {
			continue
		}
		ch <- prometheus.MustNewConstMetric(cacheHitsDesc, prometheus.CounterValue, float64(s.Hits), s.CacheName)
		ch <- prometheus.MustNewConstMetric(cacheMissesDesc, prometheus.CounterValue, float64(s.Miss), s.CacheName)
		ch <- prometheus.MustNewConstMetric(cacheSetErrorsDesc, prometheus.CounterValue, float64(s.SetError), s.CacheName)
	}
}

// RegisterJobs adds the scheduler state to the metrics endpoint.
func RegisterJobs(source JobSource) error {
	return Registry.Register(NewJobCollector(source))
}

// RegisterCaches adds the cache statistics to the metrics endpoint.
func RegisterCaches(source CacheSource) error {
	return Registry.Register(NewCacheCollector(source))
}
