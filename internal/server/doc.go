// Package server は、HTTPサーバーと撮影インテントのWeb境界を管理します。
//
// このパッケージは、HTTPサーバーの起動、ルーティング、撮影インテントの
// 生成・操作・結末の配信を担当します。ブラウザや物理ボタンからの信号を
// captureintentモジュールの境界メソッド呼び出しに変換します。
//
// 責務:
//   - HTTPサーバーの起動と管理
//   - 撮影インテントのライフサイクル管理(同時に1つ)
//   - タップ・ズーム・フォーカス等の操作の転送
//   - プレビューのMJPEG配信
//   - 結末(Result)と写真の配信
//
// 仕様:
//   - ルーティングはgin-gonic/ginを使用
//   - プレビューはmultipart/x-mixed-replaceで配信
//   - グレースフルシャットダウンに対応
//   - 複数クライアントの同時接続をサポート
package server
