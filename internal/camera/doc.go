// Package camera カメラハードウェアへの非同期アクセスポイントを提供する
//
// # 責務
// - カメラデバイスの非同期オープンとセッション管理
// - プレビューフレームのストリーミング
// - 静止画の撮影とズーム・フォーカスの制御
// - V4L2デバイスからのffmpeg経由の画像取得
//
// # 使い分け
// このパッケージは以下の場合に使用する：
// - 向き(背面/前面)を指定してカメラを開きたい
// - 開いたセッションからプレビューフレームを受け取りたい
// - 撮影・ズーム・フォーカスを非同期に実行したい
//
// # 仕様
// - AccessPoint: 能力の照会とセッションのオープン(完了はコールバック)
// - Session: 開いたデバイスの操作。Closeは同期的かつ冪等
// - MockAccessPoint: テスト用。完了の手動制御と失敗注入をサポート
// - V4L2AccessPoint: ffmpeg/v4l2-ctlのサブプロセス経由の実装
//
// # 前提要件(V4L2実装)
//   - v4l-utils: デバイス確認とコントロール設定に使用
//     Ubuntu/Debian: sudo apt install v4l-utils
//   - ffmpeg: プレビューストリーミングと撮影に使用
//     Ubuntu/Debian: sudo apt install ffmpeg
//   - videoグループへの参加: デバイスアクセス権限
//     sudo usermod -a -G video $USER
package camera
