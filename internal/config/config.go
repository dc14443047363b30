package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"bsem-pool/internal/logger"
	"bsem-pool/internal/scenario"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// 環境変数名
const (
	EnvWorkers      = "BSEMPOOL_WORKERS"
	EnvJobs         = "BSEMPOOL_JOBS"
	EnvLogLevel     = "BSEMPOOL_LOG_LEVEL"
	EnvStartTimeout = "BSEMPOOL_START_TIMEOUT"
	EnvServerAddr   = "BSEMPOOL_SERVER_ADDR"
)

// FileConfig は設定ファイルの構造
type FileConfig struct {
	Pool     PoolConfig     `yaml:"pool" json:"pool"`
	Scenario ScenarioConfig `yaml:"scenario" json:"scenario"`
	Log      LogConfig      `yaml:"log" json:"log"`
	Server   ServerConfig   `yaml:"server" json:"server"`
}

// PoolConfig はプール設定
type PoolConfig struct {
	Workers      int    `yaml:"workers" json:"workers"`
	StartTimeout string `yaml:"start_timeout" json:"start_timeout"`
}

// ScenarioConfig はデモシナリオの設定
type ScenarioConfig struct {
	Preset      string  `yaml:"preset" json:"preset"`
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description" json:"description"`
	Jobs        int     `yaml:"jobs" json:"jobs"`
	PreRunJobs  int     `yaml:"pre_run_jobs" json:"pre_run_jobs"`
	Producers   int     `yaml:"producers" json:"producers"`
	JobDuration string  `yaml:"job_duration" json:"job_duration"`
	FailEvery   int     `yaml:"fail_every" json:"fail_every"`
	PanicEvery  int     `yaml:"panic_every" json:"panic_every"`
	PushRate    float64 `yaml:"push_rate" json:"push_rate"`
	Verbose     bool    `yaml:"verbose" json:"verbose"`
}

// LogConfig はログ設定
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

// ServerConfig は API サーバー設定
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// LoadFile は設定ファイルを読み込む
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config FileConfig
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	return &config, nil
}

// LoadEnv は .env ファイルを読み込む。存在しないファイルは無視する
// 既に設定されている環境変数は上書きしない
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv は BSEMPOOL_* 環境変数で設定を上書きする
func (f *FileConfig) ApplyEnv() error {
	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvWorkers, err)
		}
		f.Pool.Workers = n
	}
	if v := os.Getenv(EnvJobs); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvJobs, err)
		}
		f.Scenario.Jobs = n
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		f.Log.Level = v
	}
	if v := os.Getenv(EnvStartTimeout); v != "" {
		f.Pool.StartTimeout = v
	}
	if v := os.Getenv(EnvServerAddr); v != "" {
		f.Server.Addr = v
	}
	return nil
}

// ToScenarioConfig はFileConfigをscenario.Configに変換する
// preset が指定されていればそれを土台にする
func (f *FileConfig) ToScenarioConfig() (scenario.Config, error) {
	sc := f.Scenario

	config := scenario.DefaultConfig()
	if sc.Preset != "" {
		preset, ok := scenario.GetPreset(sc.Preset)
		if !ok {
			return config, fmt.Errorf("unknown preset: %s", sc.Preset)
		}
		config = preset
	}

	if sc.Name != "" {
		config.Name = sc.Name
	}
	if sc.Description != "" {
		config.Description = sc.Description
	}
	if f.Pool.Workers > 0 {
		config.Workers = f.Pool.Workers
	}
	if f.Pool.StartTimeout != "" {
		d, err := time.ParseDuration(f.Pool.StartTimeout)
		if err != nil {
			return config, fmt.Errorf("invalid start timeout: %w", err)
		}
		config.StartTimeout = d
	}

	if sc.Jobs > 0 {
		config.Jobs = sc.Jobs
	}
	if sc.PreRunJobs > 0 {
		config.PreRunJobs = sc.PreRunJobs
	}
	if config.PreRunJobs > config.Jobs {
		config.PreRunJobs = config.Jobs
	}
	if sc.Producers > 0 {
		config.Producers = sc.Producers
	}
	if sc.JobDuration != "" {
		d, err := time.ParseDuration(sc.JobDuration)
		if err != nil {
			return config, fmt.Errorf("invalid job duration: %w", err)
		}
		config.JobDuration = d
	}
	if sc.FailEvery > 0 {
		config.FailEvery = sc.FailEvery
	}
	if sc.PanicEvery > 0 {
		config.PanicEvery = sc.PanicEvery
	}
	if sc.PushRate > 0 {
		config.PushRate = sc.PushRate
	}
	if sc.Verbose {
		config.Verbose = true
	}

	return config, nil
}

// LogLevel は設定されたログレベルを返す
func (f *FileConfig) LogLevel() (logger.Level, error) {
	return logger.ParseLevel(f.Log.Level)
}

// Validate は設定を検証する
func (f *FileConfig) Validate() error {
	if f.Pool.Workers < 0 {
		return fmt.Errorf("pool.workers must be non-negative")
	}

	sc := f.Scenario

	if sc.Jobs < 0 {
		return fmt.Errorf("scenario.jobs must be non-negative")
	}

	if sc.PreRunJobs < 0 {
		return fmt.Errorf("scenario.pre_run_jobs must be non-negative")
	}

	if sc.Producers < 0 {
		return fmt.Errorf("scenario.producers must be non-negative")
	}

	if sc.FailEvery < 0 || sc.PanicEvery < 0 {
		return fmt.Errorf("scenario.fail_every and scenario.panic_every must be non-negative")
	}

	if sc.PushRate < 0 {
		return fmt.Errorf("scenario.push_rate must be non-negative")
	}

	if _, err := f.LogLevel(); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	return nil
}
