package scenario

import (
	"time"
)

// Preset はプリセットの名前と説明
type Preset struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// DemoScenario は 4 ワーカー・40 ジョブをすべて Run 前に投入する
func DemoScenario() Config {
	return Config{
		Name:         "demo",
		Description:  "4 workers drain 40 jobs pushed before run",
		Workers:      4,
		Jobs:         40,
		PreRunJobs:   40,
		Producers:    1,
		StartTimeout: 5 * time.Second,
		Verbose:      true,
	}
}

// FIFOScenario は 1 ワーカーで投入順に実行されることを確認する
func FIFOScenario() Config {
	return Config{
		Name:         "fifo",
		Description:  "Single worker executes jobs in push order",
		Workers:      1,
		Jobs:         100,
		PreRunJobs:   50,
		Producers:    1,
		StartTimeout: 5 * time.Second,
	}
}

// BurstScenario は Run 後に複数プロデューサーから一斉投入する
func BurstScenario() Config {
	return Config{
		Name:         "burst",
		Description:  "Concurrent producers push after run while workers are busy",
		Workers:      8,
		Jobs:         2000,
		PreRunJobs:   0,
		Producers:    4,
		JobDuration:  200 * time.Microsecond,
		StartTimeout: 5 * time.Second,
	}
}

// ThrottledScenario は投入レートを制限したプロデューサーで実行する
func ThrottledScenario() Config {
	return Config{
		Name:         "throttled",
		Description:  "Rate-limited producers keep the queue short",
		Workers:      2,
		Jobs:         100,
		PreRunJobs:   0,
		Producers:    2,
		PushRate:     200,
		JobDuration:  time.Millisecond,
		StartTimeout: 5 * time.Second,
	}
}

// FaultyScenario は一定間隔で失敗・パニックするジョブを混ぜる
func FaultyScenario() Config {
	return Config{
		Name:         "faulty",
		Description:  "Every 5th job fails and every 17th job panics",
		Workers:      4,
		Jobs:         100,
		PreRunJobs:   20,
		Producers:    2,
		FailEvery:    5,
		PanicEvery:   17,
		StartTimeout: 5 * time.Second,
	}
}

var presets = map[string]func() Config{
	"demo":      DemoScenario,
	"fifo":      FIFOScenario,
	"burst":     BurstScenario,
	"throttled": ThrottledScenario,
	"faulty":    FaultyScenario,
}

// GetPreset は名前からプリセットシナリオを取得する
func GetPreset(name string) (Config, bool) {
	if fn, ok := presets[name]; ok {
		return fn(), true
	}
	return Config{}, false
}

// ListPresets は利用可能なプリセット名を返す
func ListPresets() []string {
	return []string{"demo", "fifo", "burst", "throttled", "faulty"}
}

// Presets はプリセットの一覧を説明付きで返す
func Presets() []Preset {
	names := ListPresets()
	out := make([]Preset, 0, len(names))
	for _, name := range names {
		cfg, _ := GetPreset(name)
		out = append(out, Preset{Name: name, Description: cfg.Description})
	}
	return out
}
