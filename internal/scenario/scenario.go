package scenario

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"bsem-pool/internal/events"
	"bsem-pool/internal/logger"
	"bsem-pool/internal/metrics"
	"bsem-pool/internal/worker"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Config はシナリオの設定
type Config struct {
	Name        string // シナリオ名
	Description string // 説明

	// プール設定
	Workers      int           // ワーカー数
	StartTimeout time.Duration // ワーカー起動確認のタイムアウト

	// 投入設定
	Jobs       int     // 総ジョブ数
	PreRunJobs int     // Run 前に投入するジョブ数
	Producers  int     // Run 後に投入するプロデューサー数
	PushRate   float64 // プロデューサーごとの秒間投入数（0 で無制限）

	// ジョブ設定
	JobDuration time.Duration // 1ジョブの処理時間
	FailEvery   int           // N件ごとに失敗ステータスを返す（0 で無効）
	PanicEvery  int           // N件ごとにパニックする（0 で無効）
	Verbose     bool          // ジョブごとにログを出す
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	cfg := DemoScenario()
	cfg.Name = "default"
	cfg.Description = "Default scenario"
	cfg.Verbose = false
	return cfg
}

// Result はシナリオ実行結果
type Result struct {
	ScenarioName string        `json:"scenario_name"`
	PoolID       string        `json:"pool_id"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      time.Time     `json:"end_time"`
	Duration     time.Duration `json:"duration"`
	Workers      int           `json:"workers"`

	// ジョブ統計
	Pushed     uint64        `json:"pushed"`
	Executed   uint64        `json:"executed"`
	Succeeded  uint64        `json:"succeeded"`
	Failed     uint64        `json:"failed"`
	Panicked   uint64        `json:"panicked"`
	Abandoned  uint64        `json:"abandoned"`
	Throughput float64       `json:"throughput"`
	AvgLatency time.Duration `json:"avg_latency"`
	P99Latency time.Duration `json:"p99_latency"`

	// 実行順序が投入順と一致したか
	InOrder bool `json:"in_order"`
	// 静止状態に達する前に ctx が終了した
	Interrupted bool `json:"interrupted"`
}

// jobArg はジョブ引数。エンジンが所有し、プールには参照だけを渡す
type jobArg struct {
	index int
}

// Engine はシナリオ実行エンジン
type Engine struct {
	config   Config
	eventBus *events.Bus
	log      *logger.Logger

	mu      sync.RWMutex
	running bool
	pool    *worker.Pool
	metrics *metrics.Metrics

	orderMu sync.Mutex
	order   []int
	pushed  atomic.Uint64
}

// New は新しいEngineを作成する
func New(config Config) *Engine {
	return &Engine{
		config: config,
		log:    logger.Default,
	}
}

// SetEventBus はイベントバスを設定する
func (e *Engine) SetEventBus(bus *events.Bus) {
	e.eventBus = bus
}

// SetLogger はロガーを設定する
func (e *Engine) SetLogger(l *logger.Logger) {
	if l != nil {
		e.log = l
	}
}

// Run はシナリオを実行する
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil, fmt.Errorf("scenario is already running")
	}
	e.running = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	cfg := e.config
	e.log.Info("", "=== Scenario '%s' started ===", cfg.Name)
	e.log.Info("", "Description: %s", cfg.Description)

	result := &Result{
		ScenarioName: cfg.Name,
		StartTime:    time.Now(),
		Workers:      cfg.Workers,
	}

	pool, err := e.setup()
	if err != nil {
		return nil, fmt.Errorf("setup failed: %w", err)
	}
	result.PoolID = pool.ID()

	args := make([]jobArg, cfg.Jobs)
	for i := range args {
		args[i].index = i
	}
	pre := min(cfg.PreRunJobs, cfg.Jobs)

	for i := range pre {
		if err := e.push(pool, &args[i]); err != nil {
			pool.Stop()
			return nil, fmt.Errorf("pre-run push failed: %w", err)
		}
	}

	if err := pool.Run(ctx); err != nil {
		pool.Stop()
		return nil, fmt.Errorf("run failed: %w", err)
	}

	if err := e.produce(ctx, pool, args[pre:]); err != nil {
		if ctx.Err() == nil {
			pool.Stop()
			return nil, fmt.Errorf("producer failed: %w", err)
		}
		result.Interrupted = true
	}

	if err := pool.WaitContext(ctx); err != nil {
		result.Interrupted = true
		e.log.Warn("", "Scenario interrupted before the pool was idle: %v", err)
	}
	pool.Stop()

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	e.collectResults(result, pool)

	e.log.Info("", "=== Scenario '%s' completed ===", cfg.Name)

	return result, nil
}

// setup はプールとメトリクスを作成する
func (e *Engine) setup() (*worker.Pool, error) {
	m := metrics.New()
	opts := []worker.Option{
		worker.WithMetrics(m),
		worker.WithLogger(e.log),
	}
	if e.eventBus != nil {
		opts = append(opts, worker.WithEventBus(e.eventBus))
	}
	if e.config.StartTimeout > 0 {
		opts = append(opts, worker.WithStartTimeout(e.config.StartTimeout))
	}

	pool, err := worker.NewPool(e.config.Workers, opts...)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.pool = pool
	e.metrics = m
	e.mu.Unlock()

	e.orderMu.Lock()
	e.order = make([]int, 0, e.config.Jobs)
	e.orderMu.Unlock()
	e.pushed.Store(0)

	return pool, nil
}

func (e *Engine) push(pool *worker.Pool, arg *jobArg) error {
	if err := pool.Push(e.runJob, arg); err != nil {
		return err
	}
	e.pushed.Add(1)
	return nil
}

// produce は Run 後のジョブをプロデューサーで分担して投入する
func (e *Engine) produce(ctx context.Context, pool *worker.Pool, rest []jobArg) error {
	if len(rest) == 0 {
		return nil
	}

	producers := max(e.config.Producers, 1)
	g, gctx := errgroup.WithContext(ctx)

	for p := range producers {
		g.Go(func() error {
			var limiter *rate.Limiter
			if e.config.PushRate > 0 {
				limiter = rate.NewLimiter(rate.Limit(e.config.PushRate), 1)
			}
			for i := p; i < len(rest); i += producers {
				if limiter != nil {
					if err := limiter.Wait(gctx); err != nil {
						return err
					}
				} else if err := gctx.Err(); err != nil {
					return err
				}
				if err := e.push(pool, &rest[i]); err != nil {
					return err
				}
			}
			return nil
		})
	}

	return g.Wait()
}

// runJob はプールが実行するジョブ本体
func (e *Engine) runJob(arg any) int {
	a := arg.(*jobArg)
	n := a.index + 1

	if e.config.Verbose {
		e.log.Info("", "now in work %d", a.index)
	}
	if e.config.JobDuration > 0 {
		time.Sleep(e.config.JobDuration)
	}

	e.orderMu.Lock()
	e.order = append(e.order, a.index)
	e.orderMu.Unlock()

	if e.config.PanicEvery > 0 && n%e.config.PanicEvery == 0 {
		panic(fmt.Sprintf("job %d: injected panic", a.index))
	}
	if e.config.FailEvery > 0 && n%e.config.FailEvery == 0 {
		return 1
	}
	return 0
}

// collectResults は結果を収集する
func (e *Engine) collectResults(result *Result, pool *worker.Pool) {
	stats := pool.Stats()
	result.Pushed = e.pushed.Load()
	result.Executed = stats.Executed
	result.Failed = stats.Failed
	result.Panicked = stats.Panicked
	result.Succeeded = stats.Executed - stats.Failed
	result.Abandoned = stats.Abandoned

	e.mu.RLock()
	m := e.metrics
	e.mu.RUnlock()
	snapshot := m.Snapshot()
	result.Throughput = snapshot.OverallThroughput
	result.AvgLatency = snapshot.AverageLatency
	result.P99Latency = snapshot.P99Latency

	e.orderMu.Lock()
	result.InOrder = isAscending(e.order)
	e.orderMu.Unlock()
}

func isAscending(order []int) bool {
	for i := 1; i < len(order); i++ {
		if order[i] < order[i-1] {
			return false
		}
	}
	return true
}

// Report は結果をフォーマットして返す
func (r *Result) Report() string {
	status := "completed"
	if r.Interrupted {
		status = "interrupted"
	}

	return fmt.Sprintf(`
================================================================================
                         SCENARIO REPORT: %s
================================================================================

EXECUTION SUMMARY
-----------------
  Pool:           %s
  Workers:        %d
  Start Time:     %s
  End Time:       %s
  Duration:       %v
  Status:         %s

JOB STATISTICS
--------------
  Pushed:           %d
  Executed:         %d
  Succeeded:        %d
  Failed:           %d
  Panicked:         %d
  Abandoned:        %d
  In Push Order:    %v

LATENCY
-------
  Throughput:       %.2f jobs/s
  Avg Latency:      %v
  P99 Latency:      %v

================================================================================`,
		r.ScenarioName,
		r.PoolID,
		r.Workers,
		r.StartTime.Format("2006-01-02 15:04:05"),
		r.EndTime.Format("2006-01-02 15:04:05"),
		r.Duration.Round(time.Millisecond),
		status,
		r.Pushed,
		r.Executed,
		r.Succeeded,
		r.Failed,
		r.Panicked,
		r.Abandoned,
		r.InOrder,
		r.Throughput,
		r.AvgLatency.Round(time.Microsecond),
		r.P99Latency.Round(time.Microsecond),
	)
}

// IsRunning は実行中かどうかを返す
func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// Pool は直近のシナリオで使用したプールを返す
func (e *Engine) Pool() *worker.Pool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pool
}

// Metrics はジョブメトリクスを返す
func (e *Engine) Metrics() *metrics.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.metrics == nil {
		return nil
	}
	snapshot := e.metrics.Snapshot()
	return &snapshot
}

// RawMetrics はメトリクス本体を返す（Prometheus 連携用）
func (e *Engine) RawMetrics() *metrics.Metrics {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.metrics
}

