// Package metrics provides job outcome metrics and a Prometheus exporter for
// worker pools.
//
// Metrics collects statistics about job latency, success/failure counts and
// throughput. A job is successful when its function returns 0; any other
// status is a failure, and a panic counts as both a panic and a failure.
//
// # Basic Usage
//
//	m := metrics.New()
//
//	start := time.Now()
//	status := job(arg)
//	m.Record(status, false, time.Since(start))
//
//	fmt.Printf("Jobs: %d, Throughput: %.2f/s, P99: %v\n",
//	    m.TotalJobs(), m.Throughput(), m.P99Latency())
//
// # Prometheus
//
// Collector exposes a pool's live counters together with a Metrics instance:
//
//	reg := prometheus.NewRegistry()
//	reg.MustRegister(metrics.NewCollector(pool, m))
//
// # Thread Safety
//
// Counters are atomic; latency samples are guarded by a RWMutex.
package metrics
