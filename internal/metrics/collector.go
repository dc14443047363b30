package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bsempool"

// PoolState はエクスポート対象となるプールの瞬間値
type PoolState struct {
	ID     string
	Total  int
	Alive  int
	Busy   int
	Queued int
}

// StatsSource はプールの状態を提供する
type StatsSource interface {
	PoolState() PoolState
}

// Collector はプールとジョブメトリクスを Prometheus に公開する
type Collector struct {
	source  StatsSource
	metrics *Metrics

	workersTotal *prometheus.Desc
	workersAlive *prometheus.Desc
	workersBusy  *prometheus.Desc
	queueDepth   *prometheus.Desc
	jobsExecuted *prometheus.Desc
	jobsFailed   *prometheus.Desc
	jobsPanicked *prometheus.Desc
	jobLatency   *prometheus.Desc
}

// NewCollector は Collector を作成する。m が nil の場合はジョブ系の値を出力しない
func NewCollector(source StatsSource, m *Metrics) *Collector {
	labels := []string{"pool"}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
	}
	return &Collector{
		source:       source,
		metrics:      m,
		workersTotal: desc("workers_total", "Number of workers the pool was built with."),
		workersAlive: desc("workers_alive", "Number of worker goroutines currently running."),
		workersBusy:  desc("workers_busy", "Number of workers currently executing a job."),
		queueDepth:   desc("queue_depth", "Number of jobs waiting in the queue."),
		jobsExecuted: desc("jobs_executed_total", "Jobs that finished executing."),
		jobsFailed:   desc("jobs_failed_total", "Jobs that returned a non-zero status or panicked."),
		jobsPanicked: desc("jobs_panicked_total", "Jobs that panicked."),
		jobLatency:   desc("job_latency_p99_seconds", "Sampled 99th percentile job execution time."),
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.workersTotal
	ch <- c.workersAlive
	ch <- c.workersBusy
	ch <- c.queueDepth
	if c.metrics != nil {
		ch <- c.jobsExecuted
		ch <- c.jobsFailed
		ch <- c.jobsPanicked
		ch <- c.jobLatency
	}
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	state := c.source.PoolState()

	ch <- prometheus.MustNewConstMetric(c.workersTotal, prometheus.GaugeValue, float64(state.Total), state.ID)
	ch <- prometheus.MustNewConstMetric(c.workersAlive, prometheus.GaugeValue, float64(state.Alive), state.ID)
	ch <- prometheus.MustNewConstMetric(c.workersBusy, prometheus.GaugeValue, float64(state.Busy), state.ID)
	ch <- prometheus.MustNewConstMetric(c.queueDepth, prometheus.GaugeValue, float64(state.Queued), state.ID)

	if c.metrics == nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.jobsExecuted, prometheus.CounterValue, float64(c.metrics.TotalJobs()), state.ID)
	ch <- prometheus.MustNewConstMetric(c.jobsFailed, prometheus.CounterValue, float64(c.metrics.FailedJobs()), state.ID)
	ch <- prometheus.MustNewConstMetric(c.jobsPanicked, prometheus.CounterValue, float64(c.metrics.PanickedJobs()), state.ID)
	ch <- prometheus.MustNewConstMetric(c.jobLatency, prometheus.GaugeValue, c.metrics.P99Latency().Seconds(), state.ID)
}
