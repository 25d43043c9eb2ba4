// Package stateful イベント駆動の有限状態機械の基盤を提供する
//
// # 責務
// - イベントの直列ディスパッチ(同時に処理されるイベントは常に1つ)
// - 状態の交代(新状態の設置→旧状態の解体の順序保証)
// - 状態遷移中のエラー・panicのエラーシンクへの回送
// - 非同期完了の鮮度判定に使う世代トークンの発行
//
// # 使い分け
// このパッケージは以下の場合に使用する：
// - 複数のスレッドから届くイベントを単一の論理レーンで処理したい
// - 状態ごとにリソースの獲得と解放を対応づけたい
// - 遅延して届いたハードウェアコールバックを安全に無視したい
//
// # 仕様
// - Machine: 状態機械本体。SetInitialStateは一度だけ呼べる
// - ProcessEvent: 呼び出し元にエラーを返さない(fire-and-forget)
// - 処理中に届いたイベントはキューに積まれ、順番に処理される
// - 現在の状態が受け付けないイベントは無視される(デバッグログのみ)
package stateful
