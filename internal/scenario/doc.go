// Package scenario は worker.Pool を駆動するデモシナリオを提供する。
//
// エンジンはプールを作成し、Run 前後に分けてジョブを投入し、静止状態まで
// 待ってから停止し、結果をレポートにまとめる。
//
// # 機能
//
// - Run 前投入と Run 後の並行プロデューサー投入
// - golang.org/x/time/rate による投入レート制限
// - 失敗・パニックするジョブの混入
// - 実行順序（FIFO）の検証
//
// # プリセットシナリオ
//
// - demo: 4 ワーカーで Run 前に積んだ 40 ジョブを処理
// - fifo: 1 ワーカーで投入順の実行を確認
// - burst: 複数プロデューサーからの一斉投入
// - throttled: レート制限付きの投入
// - faulty: 失敗・パニックの混入
//
// # 使用例
//
//	engine := scenario.New(scenario.DemoScenario())
//	result, err := engine.Run(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Report())
package scenario
