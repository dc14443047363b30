package worker

import (
	"time"

	"bsem-pool/internal/events"
	"bsem-pool/internal/logger"
	"bsem-pool/internal/metrics"
)

// DefaultStartTimeout はワーカー起動確認の既定タイムアウト
const DefaultStartTimeout = 5 * time.Second

// Option はプールの設定を変更する
type Option func(*Pool)

// WithID はプールIDを指定する（既定は UUID）
func WithID(id string) Option {
	return func(p *Pool) {
		if id != "" {
			p.id = id
		}
	}
}

// WithLogger はログ出力先のロガーを指定する
func WithLogger(l *logger.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.baseLog = l
		}
	}
}

// WithEventBus はイベントの発行先を指定する
func WithEventBus(bus *events.Bus) Option {
	return func(p *Pool) {
		p.bus = bus
	}
}

// WithMetrics はジョブ結果の記録先を指定する
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pool) {
		p.metrics = m
	}
}

// WithStartTimeout は Run が全ワーカーの起動を待つ上限を指定する
// 0 以下の場合はタイムアウトなし（ctx のみで打ち切る）
func WithStartTimeout(d time.Duration) Option {
	return func(p *Pool) {
		p.startTimeout = d
	}
}
