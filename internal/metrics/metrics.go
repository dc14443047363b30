package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const defaultMaxLatencySamples = 1000

// Config はメトリクスの設定
type Config struct {
	MaxLatencySamples int // P99 計算に保持するサンプル数
}

// Metrics はジョブ実行結果のメトリクスを収集する
type Metrics struct {
	totalJobs      atomic.Uint64
	successJobs    atomic.Uint64
	failedJobs     atomic.Uint64
	panickedJobs   atomic.Uint64
	totalLatencyNs atomic.Uint64

	mu                sync.RWMutex
	startTime         time.Time
	lastResetTime     time.Time
	windowJobs        uint64
	latencies         []time.Duration
	maxLatencySamples int
}

// New は新しいメトリクスを作成する
func New() *Metrics {
	return NewWithConfig(Config{})
}

// NewWithConfig は設定を指定してメトリクスを作成する
func NewWithConfig(config Config) *Metrics {
	samples := config.MaxLatencySamples
	if samples <= 0 {
		samples = defaultMaxLatencySamples
	}
	now := time.Now()
	return &Metrics{
		startTime:         now,
		lastResetTime:     now,
		latencies:         make([]time.Duration, 0, samples),
		maxLatencySamples: samples,
	}
}

// RecordSuccess は成功したジョブ（ステータス 0）を記録する
func (m *Metrics) RecordSuccess(latency time.Duration) {
	m.successJobs.Add(1)
	m.record(latency)
}

// RecordFailure は非ゼロのステータスを返したジョブを記録する
func (m *Metrics) RecordFailure(latency time.Duration) {
	m.failedJobs.Add(1)
	m.record(latency)
}

// RecordPanic はパニックしたジョブを記録する（失敗としても数える）
func (m *Metrics) RecordPanic(latency time.Duration) {
	m.panickedJobs.Add(1)
	m.failedJobs.Add(1)
	m.record(latency)
}

// Record はステータスに応じて成功/失敗を記録する
func (m *Metrics) Record(status int, panicked bool, latency time.Duration) {
	switch {
	case panicked:
		m.RecordPanic(latency)
	case status != 0:
		m.RecordFailure(latency)
	default:
		m.RecordSuccess(latency)
	}
}

func (m *Metrics) record(latency time.Duration) {
	m.totalJobs.Add(1)
	m.totalLatencyNs.Add(uint64(latency.Nanoseconds()))

	m.mu.Lock()
	m.windowJobs++
	if len(m.latencies) < m.maxLatencySamples {
		m.latencies = append(m.latencies, latency)
	}
	m.mu.Unlock()
}

// TotalJobs は実行済みジョブ数を返す
func (m *Metrics) TotalJobs() uint64 {
	return m.totalJobs.Load()
}

// SuccessJobs は成功ジョブ数を返す
func (m *Metrics) SuccessJobs() uint64 {
	return m.successJobs.Load()
}

// FailedJobs は失敗ジョブ数を返す（パニックを含む）
func (m *Metrics) FailedJobs() uint64 {
	return m.failedJobs.Load()
}

// PanickedJobs はパニックしたジョブ数を返す
func (m *Metrics) PanickedJobs() uint64 {
	return m.panickedJobs.Load()
}

// Throughput は直近ウィンドウの秒間ジョブ数を返す
func (m *Metrics) Throughput() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	elapsed := time.Since(m.lastResetTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(m.windowJobs) / elapsed
}

// OverallThroughput は開始からの平均秒間ジョブ数を返す
func (m *Metrics) OverallThroughput() float64 {
	elapsed := time.Since(m.startTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(m.totalJobs.Load()) / elapsed
}

// AverageLatency は平均実行時間を返す
func (m *Metrics) AverageLatency() time.Duration {
	total := m.totalJobs.Load()
	if total == 0 {
		return 0
	}
	return time.Duration(m.totalLatencyNs.Load() / total)
}

// P99Latency はP99実行時間を返す（サンプルベース）
func (m *Metrics) P99Latency() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.latencies) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	idx := int(float64(len(sorted)) * 0.99)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// FailureRate は失敗率を返す（0.0〜1.0）
func (m *Metrics) FailureRate() float64 {
	total := m.totalJobs.Load()
	if total == 0 {
		return 0
	}
	return float64(m.failedJobs.Load()) / float64(total)
}

// Reset はウィンドウメトリクスをリセットする
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.windowJobs = 0
	m.lastResetTime = time.Now()
	m.latencies = m.latencies[:0]
}

// Snapshot はメトリクスのスナップショット
type Snapshot struct {
	TotalJobs         uint64        `json:"total_jobs"`
	SuccessJobs       uint64        `json:"success_jobs"`
	FailedJobs        uint64        `json:"failed_jobs"`
	PanickedJobs      uint64        `json:"panicked_jobs"`
	Throughput        float64       `json:"throughput"`
	OverallThroughput float64       `json:"overall_throughput"`
	AverageLatency    time.Duration `json:"average_latency"`
	P99Latency        time.Duration `json:"p99_latency"`
	FailureRate       float64       `json:"failure_rate"`
	Elapsed           time.Duration `json:"elapsed"`
}

// Snapshot は現在のメトリクスのスナップショットを返す
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		TotalJobs:         m.TotalJobs(),
		SuccessJobs:       m.SuccessJobs(),
		FailedJobs:        m.FailedJobs(),
		PanickedJobs:      m.PanickedJobs(),
		Throughput:        m.Throughput(),
		OverallThroughput: m.OverallThroughput(),
		AverageLatency:    m.AverageLatency(),
		P99Latency:        m.P99Latency(),
		FailureRate:       m.FailureRate(),
		Elapsed:           time.Since(m.startTime),
	}
}
