package bsem

import (
	"context"
	"sync"
)

// Semaphore は mutex と条件変数で構成されたバイナリセマフォ
type Semaphore struct {
	mu        sync.Mutex
	cond      *sync.Cond
	available bool
}

// New は利用可能状態のセマフォを作成する
func New() *Semaphore {
	s := &Semaphore{available: true}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Wait は利用可能になるまでブロックし、状態を利用不可にして戻る
func (s *Semaphore) Wait() {
	s.mu.Lock()
	for !s.available {
		s.cond.Wait()
	}
	s.available = false
	s.mu.Unlock()
}

// WaitContext は ctx が終了するまで Wait する
// キャンセルされた場合は状態を変更せずに ctx.Err() を返す
func (s *Semaphore) WaitContext(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	for !s.available {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.cond.Wait()
	}
	s.available = false
	return nil
}

// TryWait はブロックせずに取得を試みる
func (s *Semaphore) TryWait() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.available {
		return false
	}
	s.available = false
	return true
}

// Signal は状態を利用可能にし、待機中のゴルーチンを最大1つ起こす
func (s *Semaphore) Signal() {
	s.mu.Lock()
	s.available = true
	s.cond.Signal()
	s.mu.Unlock()
}

// Available は現在利用可能かどうかを返す
func (s *Semaphore) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}
