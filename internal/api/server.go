package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"bsem-pool/internal/events"
	"bsem-pool/internal/logger"
	"bsem-pool/internal/metrics"
	"bsem-pool/internal/scenario"
	"bsem-pool/internal/worker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/websocket"
)

// Server はAPIサーバー
type Server struct {
	addr     string
	bus      *events.Bus
	registry *prometheus.Registry

	mu         sync.RWMutex
	defaults   scenario.Config
	running    bool
	engine     *scenario.Engine
	config     scenario.Config
	cancel     context.CancelFunc
	lastResult *scenario.Result
	wsClients  map[*websocket.Conn]bool

	// collectorMu は Prometheus に登録中のプールを保護する
	collectorMu   sync.Mutex
	collector     *metrics.Collector
	collectedPool *worker.Pool

	server *http.Server
}

// NewServer は新しいAPIサーバーを作成する
func NewServer(addr string) *Server {
	return &Server{
		addr:      addr,
		bus:       events.NewBus(),
		registry:  prometheus.NewRegistry(),
		defaults:  scenario.DefaultConfig(),
		wsClients: make(map[*websocket.Conn]bool),
	}
}

// SetDefaultConfig はプリセット未指定の開始リクエストで使う設定を指定する
func (s *Server) SetDefaultConfig(cfg scenario.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaults = cfg
}

// Handler はルーティング済みのハンドラーを返す
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// API routes
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/metrics", s.handleMetrics)
	mux.HandleFunc("/api/result", s.handleResult)
	mux.HandleFunc("/api/presets", s.handlePresets)
	mux.HandleFunc("/api/scenario/start", s.handleScenarioStart)
	mux.HandleFunc("/api/scenario/stop", s.handleScenarioStop)
	mux.HandleFunc("/api/pool/pause", s.handlePoolPause)
	mux.HandleFunc("/api/pool/resume", s.handlePoolResume)

	// Prometheus
	mux.Handle("/metrics", s.metricsHandler())

	// WebSocket
	mux.Handle("/ws", websocket.Handler(s.handleWebSocket))

	return mux
}

// Start はサーバーを開始する
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	// バックグラウンドでイベントとステータスを配信
	go s.forwardEvents(ctx)
	go s.broadcastLoop(ctx)

	logger.Info("", "API Server starting on http://%s", s.addr)

	go func() {
		<-ctx.Done()
		s.stopScenario()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
		s.bus.Close()
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// StatusResponse はステータスレスポンス
type StatusResponse struct {
	Running      bool          `json:"running"`
	ScenarioName string        `json:"scenario_name,omitempty"`
	Pool         *worker.Stats `json:"pool,omitempty"`
}

func (s *Server) status() StatusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resp := StatusResponse{
		Running:      s.running,
		ScenarioName: s.config.Name,
	}
	if s.engine != nil {
		if pool := s.engine.Pool(); pool != nil {
			stats := pool.Stats()
			resp.Pool = &stats
		}
	}
	return resp
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, s.status())
}

// MetricsResponse はメトリクスレスポンス
type MetricsResponse struct {
	TotalJobs    uint64  `json:"total_jobs"`
	SuccessJobs  uint64  `json:"success_jobs"`
	FailedJobs   uint64  `json:"failed_jobs"`
	PanickedJobs uint64  `json:"panicked_jobs"`
	Throughput   float64 `json:"throughput"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	P99LatencyMs float64 `json:"p99_latency_ms"`
	FailureRate  float64 `json:"failure_rate"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	engine := s.engine
	s.mu.RUnlock()

	resp := MetricsResponse{}
	if engine != nil {
		if snapshot := engine.Metrics(); snapshot != nil {
			resp = MetricsResponse{
				TotalJobs:    snapshot.TotalJobs,
				SuccessJobs:  snapshot.SuccessJobs,
				FailedJobs:   snapshot.FailedJobs,
				PanickedJobs: snapshot.PanickedJobs,
				Throughput:   snapshot.OverallThroughput,
				AvgLatencyMs: float64(snapshot.AverageLatency) / float64(time.Millisecond),
				P99LatencyMs: float64(snapshot.P99Latency) / float64(time.Millisecond),
				FailureRate:  snapshot.FailureRate,
			}
		}
	}

	s.writeJSON(w, resp)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	result := s.lastResult
	s.mu.RUnlock()

	if result == nil {
		http.Error(w, "No scenario result", http.StatusNotFound)
		return
	}
	s.writeJSON(w, result)
}

// ScenarioRequest はシナリオ開始リクエスト
type ScenarioRequest struct {
	Preset      string `json:"preset"`
	Workers     int    `json:"workers,omitempty"`
	Jobs        int    `json:"jobs,omitempty"`
	JobDuration string `json:"job_duration,omitempty"`
}

func (s *Server) handleScenarioStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// プリセット取得。未指定・不明な場合は起動時の設定を使う
	config, ok := scenario.GetPreset(req.Preset)
	if !ok {
		s.mu.RLock()
		config = s.defaults
		s.mu.RUnlock()
	}

	// オーバーライド
	if req.Workers > 0 {
		config.Workers = req.Workers
	}
	if req.Jobs > 0 {
		config.Jobs = req.Jobs
		config.PreRunJobs = min(config.PreRunJobs, req.Jobs)
	}
	if req.JobDuration != "" {
		d, err := time.ParseDuration(req.JobDuration)
		if err != nil {
			http.Error(w, "Invalid job_duration", http.StatusBadRequest)
			return
		}
		config.JobDuration = d
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		http.Error(w, "Scenario already running", http.StatusConflict)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	engine := scenario.New(config)
	engine.SetEventBus(s.bus)

	s.config = config
	s.engine = engine
	s.cancel = cancel
	s.running = true
	s.mu.Unlock()

	// バックグラウンドで実行
	go func() {
		defer cancel()
		result, err := engine.Run(ctx)

		s.mu.Lock()
		s.running = false
		s.cancel = nil
		if err == nil {
			s.lastResult = result
		}
		s.mu.Unlock()

		if err != nil {
			logger.Error("", "Scenario failed: %v", err)
			s.broadcast(map[string]any{
				"type":  "scenario_failed",
				"error": err.Error(),
			})
			return
		}

		logger.Info("", "Scenario completed: %d jobs executed", result.Executed)
		s.broadcast(map[string]any{
			"type":   "scenario_complete",
			"result": result,
		})
	}()

	s.writeJSON(w, map[string]string{"status": "started", "scenario": config.Name})
}

func (s *Server) handleScenarioStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !s.stopScenario() {
		http.Error(w, "No scenario running", http.StatusBadRequest)
		return
	}

	s.writeJSON(w, map[string]string{"status": "stop requested"})
}

// stopScenario は実行中のシナリオをキャンセルする
func (s *Server) stopScenario() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.cancel == nil {
		return false
	}
	s.cancel()
	return true
}

// currentPool は実行中シナリオのプールを返す
func (s *Server) currentPool() *worker.Pool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.running || s.engine == nil {
		return nil
	}
	return s.engine.Pool()
}

func (s *Server) handlePoolPause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pool := s.currentPool()
	if pool == nil {
		http.Error(w, "No scenario running", http.StatusBadRequest)
		return
	}
	pool.Pause()

	s.writeJSON(w, map[string]string{"status": "paused"})
}

func (s *Server) handlePoolResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pool := s.currentPool()
	if pool == nil {
		http.Error(w, "No scenario running", http.StatusBadRequest)
		return
	}
	pool.Resume()

	s.writeJSON(w, map[string]string{"status": "resumed"})
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, scenario.Presets())
}

// metricsHandler は直近のプールを登録し直してから Prometheus 形式で出力する
func (s *Server) metricsHandler() http.Handler {
	h := promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.syncCollector()
		h.ServeHTTP(w, r)
	})
}

// syncCollector は登録中のコレクターを直近のシナリオのプールに合わせる
func (s *Server) syncCollector() {
	s.mu.RLock()
	engine := s.engine
	s.mu.RUnlock()
	if engine == nil {
		return
	}
	pool := engine.Pool()
	if pool == nil {
		return
	}

	s.collectorMu.Lock()
	defer s.collectorMu.Unlock()

	if pool == s.collectedPool {
		return
	}
	if s.collector != nil {
		s.registry.Unregister(s.collector)
	}
	c := metrics.NewCollector(pool, engine.RawMetrics())
	if err := s.registry.Register(c); err != nil {
		logger.Error("", "Failed to register collector: %v", err)
		return
	}
	s.collector = c
	s.collectedPool = pool
}

// WebSocket handling
func (s *Server) handleWebSocket(ws *websocket.Conn) {
	s.mu.Lock()
	s.wsClients[ws] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.wsClients, ws)
		s.mu.Unlock()
		_ = ws.Close()
	}()

	// Keep connection alive
	for {
		var msg string
		if err := websocket.Message.Receive(ws, &msg); err != nil {
			break
		}
	}
}

func (s *Server) broadcast(data any) {
	s.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(s.wsClients))
	for ws := range s.wsClients {
		clients = append(clients, ws)
	}
	s.mu.RUnlock()

	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}

	for _, ws := range clients {
		_ = websocket.Message.Send(ws, string(jsonData))
	}
}

// forwardEvents はプール単位のイベントを WebSocket クライアントへ転送する
func (s *Server) forwardEvents(ctx context.Context) {
	ch := s.bus.SubscribeTypes(
		events.EventPoolRun,
		events.EventPoolStop,
		events.EventPoolIdle,
		events.EventPoolPause,
		events.EventPoolResume,
	)
	defer s.bus.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			s.broadcast(map[string]any{
				"type":  "event",
				"event": e,
			})
		}
	}
}

func (s *Server) broadcastLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status := s.status()
			if !status.Running {
				continue
			}

			s.broadcast(map[string]any{
				"type":   "status",
				"status": status,
			})
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("", "Failed to encode JSON: %v", err)
	}
}
