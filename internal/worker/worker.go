package worker

import (
	"time"

	"bsem-pool/internal/events"
	"bsem-pool/internal/logger"
	"bsem-pool/internal/queue"
)

// fetchResult はジョブ取得の結果
type fetchResult int

const (
	fetchJob   fetchResult = iota // ジョブを取得した
	fetchRetry                    // 取得できず待機に戻る
	fetchExit                     // プール停止、終了する
)

// worker はプールの1ゴルーチン
type worker struct {
	id   int
	pool *Pool
	log  *logger.Scoped
}

// loop はワーカーの状態遷移を実行する
// WaitingForWork → CheckRunning → CheckPaused → Fetch → Execute → UpdateCounters
func (w *worker) loop() {
	p := w.pool
	hasJob := p.queue.Semaphore()

	p.workerOnline(w)
	defer p.workerOffline(w)

	for {
		hasJob.Wait()

		job, result := p.fetch()
		switch result {
		case fetchExit:
			// 停止時のシグナルを次のワーカーへ引き継ぐ
			hasJob.Signal()
			return
		case fetchRetry:
			continue
		}

		start := time.Now()
		status, panicked := w.execute(job)
		latency := time.Since(start)

		p.record(w, job, status, panicked, latency)
		p.finish()
	}
}

// execute はジョブ関数を呼び出す。パニックは回復して失敗として扱う
func (w *worker) execute(job *queue.Job) (status int, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("job %d panicked: %v", job.ID, r)
			status, panicked = StatusPanicked, true
		}
	}()
	return job.Func(job.Arg), false
}

func (p *Pool) workerOnline(w *worker) {
	p.mu.Lock()
	p.aliveWorkers++
	p.onlineCount++
	if p.onlineCount == p.totalWorkers && !p.onlineClosed {
		p.onlineClosed = true
		close(p.online)
	}
	p.mu.Unlock()

	w.log.Debug("online")
	p.publish(events.NewWorkerEvent(events.EventWorkerOnline, p.id, w.id))
}

func (p *Pool) workerOffline(w *worker) {
	p.mu.Lock()
	p.aliveWorkers--
	p.mu.Unlock()

	w.log.Debug("offline")
	p.publish(events.NewWorkerEvent(events.EventWorkerOffline, p.id, w.id))
}

// fetch は取り出しと busy の加算を同じロック内で行う
// Wait が取り出し済み・未計上のジョブを見落とさないため
func (p *Pool) fetch() (*queue.Job, fetchResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return nil, fetchExit
	}
	if p.paused {
		return nil, fetchRetry
	}
	job, ok := p.queue.Pull()
	if !ok {
		return nil, fetchRetry
	}
	p.busyWorkers++
	return job, fetchJob
}

// record はジョブ結果を集計する。busy を減らす前に行い、Wait 復帰時点で反映済みにする
func (p *Pool) record(w *worker, job *queue.Job, status int, panicked bool, latency time.Duration) {
	p.mu.Lock()
	p.executed++
	if panicked {
		p.panicked++
	}
	if panicked || status != 0 {
		p.failed++
	}
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.Record(status, panicked, latency)
	}
	if status != 0 && !panicked {
		w.log.Debug("job %d returned status %d", job.ID, status)
	}
	p.publish(events.NewJobDoneEvent(p.id, w.id, job.ID, status, panicked, latency))
}

// finish は busy を減らし、最後のワーカーであれば次の待機者を起こす
func (p *Pool) finish() {
	p.mu.Lock()
	p.busyWorkers--
	idle := false
	if p.busyWorkers == 0 {
		if p.queue.Len() > 0 {
			p.queue.Semaphore().Signal()
		} else {
			p.allIdle.Signal()
			idle = true
		}
	}
	p.mu.Unlock()

	if idle {
		p.publish(events.NewPoolEvent(events.EventPoolIdle, p.id))
	}
}
