package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"bsem-pool/internal/bsem"
	"bsem-pool/internal/events"
	"bsem-pool/internal/logger"
	"bsem-pool/internal/metrics"
	"bsem-pool/internal/queue"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrInvalidWorkerCount はワーカー数が正でない場合のエラー
	ErrInvalidWorkerCount = errors.New("worker: worker count must be positive")
	// ErrNilJob は関数なしのジョブが投入された場合のエラー
	ErrNilJob = queue.ErrNilJob
	// ErrAlreadyRunning は Run が2回以上呼ばれた場合のエラー
	ErrAlreadyRunning = errors.New("worker: pool already running")
	// ErrSpawnFailed は全ワーカーの起動を確認できなかった場合のエラー
	ErrSpawnFailed = errors.New("worker: failed to start workers")
	// ErrStopped は停止済みのプールを操作した場合のエラー
	ErrStopped = errors.New("worker: pool stopped")
)

// Func はジョブ関数。arg は呼び出し側が所有する
type Func = queue.Func

// StatusPanicked はパニックしたジョブのステータス
const StatusPanicked = -1

// Stats はプールの状態のスナップショット
type Stats struct {
	ID        string `json:"id"`
	Total     int    `json:"total_workers"`
	Alive     int    `json:"alive_workers"`
	Busy      int    `json:"busy_workers"`
	Queued    int    `json:"queued_jobs"`
	Running   bool   `json:"running"`
	Paused    bool   `json:"paused"`
	Stopped   bool   `json:"stopped"`
	Executed  uint64 `json:"executed_jobs"`
	Failed    uint64 `json:"failed_jobs"`
	Panicked  uint64 `json:"panicked_jobs"`
	Abandoned uint64 `json:"abandoned_jobs"`
}

// Pool は固定数のワーカーでジョブキューを処理する
type Pool struct {
	id           string
	workers      []*worker
	queue        *queue.Queue
	allIdle      *bsem.Semaphore
	baseLog      *logger.Logger
	log          *logger.Scoped
	bus          *events.Bus
	metrics      *metrics.Metrics
	startTimeout time.Duration

	group errgroup.Group
	spawn func(func() error)
	jobID atomic.Uint64

	// mu はカウンタ・フラグを保護する。ロック順序は mu → queue → セマフォ
	mu           sync.Mutex
	online       chan struct{}
	onlineClosed bool
	onlineCount  int // 起動したワーカーの累計。終了しても減らない
	totalWorkers int
	aliveWorkers int
	busyWorkers  int
	started      bool
	running      bool
	paused       bool
	stopping     bool
	executed     uint64
	failed       uint64
	panicked     uint64
	abandoned    uint64
}

// NewPool は numWorkers 個のワーカーを持つプールを作成する。ワーカーは Run まで起動しない
func NewPool(numWorkers int, opts ...Option) (*Pool, error) {
	if numWorkers <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkerCount, numWorkers)
	}

	p := &Pool{
		id:           uuid.NewString(),
		queue:        queue.New(),
		allIdle:      bsem.New(),
		baseLog:      logger.Default,
		startTimeout: DefaultStartTimeout,
		online:       make(chan struct{}),
		totalWorkers: numWorkers,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.spawn = p.group.Go
	p.log = p.baseLog.Named(p.component())

	p.workers = make([]*worker, numWorkers)
	for i := range numWorkers {
		p.workers[i] = &worker{
			id:   i,
			pool: p,
			log:  p.log.Named(fmt.Sprintf("worker-%d", i)),
		}
	}

	return p, nil
}

func (p *Pool) component() string {
	id := p.id
	if len(id) > 8 {
		id = id[:8]
	}
	return "pool-" + id
}

// ID はプールIDを返す
func (p *Pool) ID() string {
	return p.id
}

// NumWorkers はワーカー数を返す
func (p *Pool) NumWorkers() int {
	return p.totalWorkers
}

// Push はジョブを投入する。Run の前後どちらでも呼べる
// arg の所有権は呼び出し側に残り、プールはコピーも解放もしない
func (p *Pool) Push(fn Func, arg any) error {
	if fn == nil {
		return ErrNilJob
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopping {
		return ErrStopped
	}
	return p.queue.Push(&queue.Job{
		ID:   p.jobID.Add(1),
		Func: fn,
		Arg:  arg,
	})
}

// Run はワーカーを起動し、全ワーカーのオンラインを確認してから戻る
// 2回目以降の呼び出しは ErrAlreadyRunning、Stop 後は ErrStopped を返す
// 起動に失敗した場合は Stop 済みの状態で ErrSpawnFailed を返す
func (p *Pool) Run(ctx context.Context) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return ErrAlreadyRunning
	}
	if p.stopping {
		p.mu.Unlock()
		return ErrStopped
	}
	p.started = true
	if err := ctx.Err(); err != nil {
		p.mu.Unlock()
		p.log.Error("run cancelled before workers started: %v", err)
		p.Stop()
		return fmt.Errorf("%w: %w", ErrSpawnFailed, err)
	}
	p.running = true

	// spawn は mu を保持したまま行い、Stop の join と重ならないようにする
	for _, w := range p.workers {
		p.spawn(func() error {
			w.loop()
			return nil
		})
	}
	p.mu.Unlock()

	if err := p.awaitOnline(ctx); err != nil {
		return err
	}

	// Run 前に積まれたジョブは起動前のワーカーを起こせていない
	if p.queue.Len() > 0 {
		p.queue.Semaphore().Signal()
	}

	p.log.Info("WorkerPool started with %d workers", p.totalWorkers)
	p.publish(events.NewPoolRunEvent(p.id, p.totalWorkers))
	return nil
}

// awaitOnline は全ワーカーのオンラインを待つ。間に合わなければプールを停止する
func (p *Pool) awaitOnline(ctx context.Context) error {
	if p.startTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.startTimeout)
		defer cancel()
	}

	select {
	case <-p.online:
		return nil
	case <-ctx.Done():
	}

	p.mu.Lock()
	online := p.onlineClosed
	alive := p.aliveWorkers
	p.mu.Unlock()

	// online と ctx が同時に成立した場合は起動成功として扱う
	if online {
		return nil
	}

	p.log.Error("only %d of %d workers came online: %v", alive, p.totalWorkers, ctx.Err())
	p.Stop()
	return fmt.Errorf("%w: %d of %d online: %w", ErrSpawnFailed, alive, p.totalWorkers, ctx.Err())
}

// Wait はキューが空で、かつ実行中のワーカーがいなくなるまでブロックする
// プールが停止した場合も戻る
func (p *Pool) Wait() {
	_ = p.WaitContext(context.Background())
}

// WaitContext は ctx が終了するまで Wait する
func (p *Pool) WaitContext(ctx context.Context) error {
	for {
		p.mu.Lock()
		done := p.stopping || (p.busyWorkers == 0 && p.queue.Len() == 0)
		p.mu.Unlock()

		if done {
			// 他の待機者へ連鎖させる
			p.allIdle.Signal()
			return nil
		}
		if err := p.allIdle.WaitContext(ctx); err != nil {
			return err
		}
	}
}

// Pause はワーカーによる新しいジョブの取得を止める。実行中のジョブは継続する
func (p *Pool) Pause() {
	p.mu.Lock()
	if p.paused || p.stopping {
		p.mu.Unlock()
		return
	}
	p.paused = true
	p.mu.Unlock()

	p.log.Info("WorkerPool paused")
	p.publish(events.NewPoolEvent(events.EventPoolPause, p.id))
}

// Resume は Pause を解除し、待機中のジョブがあればワーカーを起こす
func (p *Pool) Resume() {
	p.mu.Lock()
	if !p.paused {
		p.mu.Unlock()
		return
	}
	p.paused = false
	pending := p.queue.Len()
	p.mu.Unlock()

	if pending > 0 {
		p.queue.Semaphore().Signal()
	}

	p.log.Info("WorkerPool resumed with %d queued jobs", pending)
	p.publish(events.NewPoolEvent(events.EventPoolResume, p.id))
}

// Stop は新規投入を拒否し、未実行のジョブを破棄して全ワーカーを join する
// 実行中のジョブは完了まで待つ。破棄したジョブ数を返す。2回目以降は 0 を返す
func (p *Pool) Stop() int {
	p.mu.Lock()
	if p.stopping {
		p.mu.Unlock()
		_ = p.group.Wait()
		return 0
	}
	p.stopping = true
	p.running = false
	p.paused = false
	abandoned := p.queue.Drain()
	p.abandoned += uint64(len(abandoned))
	p.mu.Unlock()

	// 終了するワーカーが順にシグナルを引き継ぐ
	p.queue.Semaphore().Signal()
	p.allIdle.Signal()
	_ = p.group.Wait()

	if len(abandoned) > 0 {
		p.log.Warn("%d queued jobs abandoned", len(abandoned))
	}
	p.log.Info("WorkerPool stopped")
	p.publish(events.NewPoolStopEvent(p.id, len(abandoned)))
	return len(abandoned)
}

// Shutdown は静止状態まで待ってから Stop する
// ctx が先に終了した場合も Stop し、ctx のエラーを返す
func (p *Pool) Shutdown(ctx context.Context) error {
	err := p.WaitContext(ctx)
	p.Stop()
	return err
}

// Stats は現在の状態を返す
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Stats{
		ID:        p.id,
		Total:     p.totalWorkers,
		Alive:     p.aliveWorkers,
		Busy:      p.busyWorkers,
		Queued:    p.queue.Len(),
		Running:   p.running,
		Paused:    p.paused,
		Stopped:   p.stopping,
		Executed:  p.executed,
		Failed:    p.failed,
		Panicked:  p.panicked,
		Abandoned: p.abandoned,
	}
}

// PoolState implements metrics.StatsSource
func (p *Pool) PoolState() metrics.PoolState {
	s := p.Stats()
	return metrics.PoolState{
		ID:     s.ID,
		Total:  s.Total,
		Alive:  s.Alive,
		Busy:   s.Busy,
		Queued: s.Queued,
	}
}

func (p *Pool) publish(e events.Event) {
	if p.bus != nil {
		p.bus.Publish(e)
	}
}
