// Package queue provides the unbounded FIFO job queue shared by the pool's
// workers.
//
// The queue pairs its list with a binary semaphore that signals "has job".
// Because that semaphore coalesces signals, Pull re-signals whenever jobs
// remain after a removal so that idle workers are woken one after another
// until the backlog is drained.
package queue

import (
	"errors"
	"sync"
	"time"

	"bsem-pool/internal/bsem"

	"github.com/gammazero/deque"
)

// ErrNilJob は関数を持たないジョブが投入された場合のエラー
var ErrNilJob = errors.New("queue: job has no function")

// Func はジョブとして実行される関数
// 戻り値 0 は成功、それ以外は失敗を表す
type Func func(arg any) int

// Job はキューに積まれる1件の処理
// Arg は呼び出し側が所有し、プールはコピーも解放もしない
type Job struct {
	ID       uint64
	Func     Func
	Arg      any
	Enqueued time.Time
}

// Queue はロックで保護された FIFO ジョブキュー
type Queue struct {
	mu     sync.Mutex
	jobs   deque.Deque[*Job]
	hasJob *bsem.Semaphore
}

// New は空のキューを作成する
func New() *Queue {
	return &Queue{
		hasJob: bsem.New(),
	}
}

// Push はジョブを末尾に追加し、has-job セマフォをシグナルする
func (q *Queue) Push(job *Job) error {
	if job == nil || job.Func == nil {
		return ErrNilJob
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now()
	}
	q.jobs.PushBack(job)
	q.hasJob.Signal()
	return nil
}

// Pull は先頭のジョブを取り出す。空の場合は false を返す
func (q *Queue) Pull() (*Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.jobs.Len() == 0 {
		return nil, false
	}

	job := q.jobs.PopFront()
	// セマフォは合算されるため、残りがあれば次の待機者へ連鎖させる
	if q.jobs.Len() > 0 {
		q.hasJob.Signal()
	}
	return job, true
}

// Len は待機中のジョブ数を返す
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.jobs.Len()
}

// Drain は待機中のジョブをすべて取り除いて返す
func (q *Queue) Drain() []*Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	drained := make([]*Job, 0, q.jobs.Len())
	for q.jobs.Len() > 0 {
		drained = append(drained, q.jobs.PopFront())
	}
	return drained
}

// Semaphore は has-job セマフォを返す
func (q *Queue) Semaphore() *bsem.Semaphore {
	return q.hasJob
}
