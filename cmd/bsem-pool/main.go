// Package main is the entry point for bsem-pool.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bsem-pool/internal/api"
	"bsem-pool/internal/config"
	"bsem-pool/internal/logger"
	"bsem-pool/internal/scenario"
)

var (
	version = "dev"
)

func main() {
	// フラグ定義
	var (
		configFile  = flag.String("config", "", "設定ファイルパス (YAML/JSON)")
		presetName  = flag.String("preset", "", "プリセットシナリオ名 (demo, fifo, burst, throttled, faulty)")
		workers     = flag.Int("workers", 0, "ワーカー数")
		jobs        = flag.Int("jobs", 0, "総ジョブ数")
		logLevel    = flag.String("log-level", "", "ログレベル (debug, info, warn, error)")
		listPresets = flag.Bool("list-presets", false, "利用可能なプリセットを表示")
		showVersion = flag.Bool("version", false, "バージョンを表示")
		serverMode  = flag.Bool("server", false, "API サーバーモードで起動")
		serverAddr  = flag.String("addr", "", "サーバーアドレス (例: :8080, 0.0.0.0:3000)")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `bsem-pool - Binary Semaphore Worker Pool

Usage:
  bsem-pool [options]

Options:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Environment:
  BSEMPOOL_WORKERS, BSEMPOOL_JOBS, BSEMPOOL_LOG_LEVEL,
  BSEMPOOL_START_TIMEOUT, BSEMPOOL_SERVER_ADDR (.env も読み込む)

Examples:
  # デモシナリオを実行
  bsem-pool

  # プリセットシナリオを実行
  bsem-pool --preset burst

  # 設定ファイルから実行
  bsem-pool --config pool.yaml

  # フラグでカスタマイズ
  bsem-pool --preset faulty --workers 8 --jobs 500

  # プリセット一覧を表示
  bsem-pool --list-presets

  # API サーバーモードで起動（-preset/-workers/-jobs は
  # プリセット未指定の /api/scenario/start の既定値になる）
  bsem-pool --server --addr :3000 --workers 8
`)
	}

	flag.Parse()

	// バージョン表示
	if *showVersion {
		fmt.Printf("bsem-pool version %s\n", version)
		return
	}

	// プリセット一覧表示
	if *listPresets {
		printPresets()
		return
	}

	if err := config.LoadEnv(); err != nil {
		logger.Error("", "環境変数ファイル読み込みエラー: %v", err)
		os.Exit(1)
	}

	fileConfig, err := loadFileConfig(*configFile, *presetName)
	if err != nil {
		logger.Error("", "設定エラー: %v", err)
		os.Exit(1)
	}

	// フラグでオーバーライド
	if *workers > 0 {
		fileConfig.Pool.Workers = *workers
	}
	if *jobs > 0 {
		fileConfig.Scenario.Jobs = *jobs
	}
	if *logLevel != "" {
		fileConfig.Log.Level = *logLevel
	}
	if *serverAddr != "" {
		fileConfig.Server.Addr = *serverAddr
	}

	if err := fileConfig.Validate(); err != nil {
		logger.Error("", "設定検証エラー: %v", err)
		os.Exit(1)
	}
	level, _ := fileConfig.LogLevel()
	logger.Default.SetLevel(level)

	scenarioConfig, err := fileConfig.ToScenarioConfig()
	if err != nil {
		logger.Error("", "設定変換エラー: %v", err)
		os.Exit(1)
	}

	// API サーバーモード。設定はプリセット未指定の開始リクエストの既定値になる
	if *serverMode {
		addr := fileConfig.Server.Addr
		if addr == "" {
			addr = ":8080"
		}
		if err := runServer(addr, scenarioConfig); err != nil {
			logger.Error("", "サーバーエラー: %v", err)
			os.Exit(1)
		}
		return
	}

	// シナリオ実行
	if err := runScenario(scenarioConfig); err != nil {
		logger.Error("", "シナリオ実行エラー: %v", err)
		os.Exit(1)
	}
}

// loadFileConfig は設定ファイルと環境変数から設定を構築する
func loadFileConfig(configFile, presetName string) (*config.FileConfig, error) {
	fileConfig := &config.FileConfig{}

	// 1. 設定ファイルから読み込み
	if configFile != "" {
		loaded, err := config.LoadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("設定ファイル読み込みエラー: %w", err)
		}
		fileConfig = loaded
	}

	// 2. プリセット指定はファイルより優先
	if presetName != "" {
		if _, ok := scenario.GetPreset(presetName); !ok {
			return nil, fmt.Errorf("不明なプリセット: %s (利用可能: %v)", presetName, scenario.ListPresets())
		}
		fileConfig.Scenario.Preset = presetName
	}

	// 3. 環境変数
	if err := fileConfig.ApplyEnv(); err != nil {
		return nil, err
	}

	return fileConfig, nil
}

// runScenario はシナリオを実行する
func runScenario(cfg scenario.Config) error {
	fmt.Println("bsem-pool - Binary Semaphore Worker Pool")
	fmt.Println("====================================================")
	fmt.Printf("Scenario: %s\n", cfg.Name)
	fmt.Printf("Workers: %d, Jobs: %d (pre-run %d)\n", cfg.Workers, cfg.Jobs, cfg.PreRunJobs)
	fmt.Printf("Producers: %d, Push rate: %.0f/s\n", cfg.Producers, cfg.PushRate)
	fmt.Println("====================================================")
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			fmt.Println("\n中断シグナルを受信、プールを停止中...")
			cancel()
		case <-ctx.Done():
		}
	}()

	// シナリオ実行
	engine := scenario.New(cfg)
	result, err := engine.Run(ctx)
	if err != nil {
		return err
	}

	// レポート出力
	fmt.Println(result.Report())

	return nil
}

// printPresets は利用可能なプリセットを表示する
func printPresets() {
	fmt.Println("利用可能なプリセットシナリオ:")
	fmt.Println()

	for _, p := range scenario.Presets() {
		fmt.Printf("  %-12s %s\n", p.Name, p.Description)
	}

	fmt.Println()
	fmt.Println("使用例: bsem-pool --preset demo")
}

// runServer は API サーバーを起動する
func runServer(addr string, defaults scenario.Config) error {
	fmt.Println("bsem-pool - API Server")
	fmt.Println("========================")
	fmt.Printf("Starting server on http://%s\n", addr)
	fmt.Printf("Default scenario: %s (workers %d, jobs %d)\n", defaults.Name, defaults.Workers, defaults.Jobs)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	server := api.NewServer(addr)
	server.SetDefaultConfig(defaults)
	return server.Start(ctx)
}
