// Package captureintent 1枚の写真を取得する撮影インテントのワークフローを調停する
//
// # 責務
// - 撮影インテントの状態機械(背景/プレビュー/撮影/確認/終了)の実装
// - UI・ハードウェア・ライフサイクルの通知のイベントへの変換
// - 状態ごとのリソース(カメラセッション等)の獲得と解放の対応づけ
// - 結果(承認された写真/キャンセル/失敗)の一度きりの通知
//
// # 使い分け
// このパッケージは以下の場合に使用する：
// - 外部の呼び出し元に1枚の確認済み写真を返したい
// - プレビュー・セルフタイマー・ズーム・撮り直しを含む撮影フローを駆動したい
// - 非同期に完了するカメラ操作を順序立てて扱いたい
//
// # 仕様
// - Module: 境界アダプタ。外部の信号をイベントに変換して状態機械へ転送する
// - 能力の照会(ハードウェア仕様・ボトムバー仕様)は状態機械ではなくリソースに問う
// - 状態はそれぞれ受け付けるイベントを明示的に列挙し、それ以外は無視する
// - 遅延して届いたハードウェア完了は世代トークンの照合で無害化される
// - finishing/failureは終端状態であり、以後のイベントはすべて無視される
package captureintent
