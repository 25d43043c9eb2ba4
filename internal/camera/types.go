package camera

import (
	"context"
	"errors"
	"time"
)

// ErrDeviceUnavailable はカメラデバイスが利用できないことを表す
var ErrDeviceUnavailable = errors.New("カメラデバイスが利用できない")

// ErrSessionClosed は閉じたセッションへの操作を表す
var ErrSessionClosed = errors.New("セッションは既に閉じられている")

// Facing はカメラの向きを表す
type Facing string

const (
	FacingBack  Facing = "back"  // 背面カメラ
	FacingFront Facing = "front" // 前面カメラ
)

// Photo は撮影された1枚の写真を表す
type Photo struct {
	ID       string    // 写真の一意識別子
	Data     []byte    // 画像データ
	MimeType string    // 画像のMIMEタイプ(例: image/jpeg)
	Facing   Facing    // 撮影したカメラの向き
	TakenAt  time.Time // 撮影時刻
	Width    int       // 画像幅
	Height   int       // 画像高さ
}

// Spec はカメラハードウェアの能力を表す
type Spec struct {
	HasFrontCamera bool    // 前面カメラの有無
	HasFlash       bool    // フラッシュの有無
	MaxZoomRatio   float64 // 最大ズーム倍率
}

// Config はセッションを開く際の設定
type Config struct {
	Facing Facing // 開くカメラの向き
	Width  int    // 画像幅
	Height int    // 画像高さ
	FPS    int    // フレームレート
}

// AccessPoint はカメラハードウェアへの入口を表すインターフェース
// 時間のかかる操作はすべて非同期で、完了はコールバックで通知される。
// 呼び出し側はポーリングせず、通知に反応するだけでよい。
type AccessPoint interface {
	// HardwareSpec はハードウェアの能力を返す
	HardwareSpec() Spec

	// Open は指定された向きのカメラを非同期に開く
	// 完了時にdoneが(セッション, nil)または(nil, エラー)で呼ばれる。
	// doneは任意のゴルーチンから呼ばれうる。
	Open(ctx context.Context, cfg Config, done func(Session, error))
}

// Session は開いたカメラデバイスへの排他的なハンドル
type Session interface {
	// Device はデバイスパスを返す
	Device() string

	// Facing はこのセッションのカメラの向きを返す
	Facing() Facing

	// Frames はプレビューフレーム(JPEG)のチャンネルを返す
	Frames() <-chan []byte

	// SetZoom はズーム倍率を設定する
	SetZoom(ratio float64) error

	// Focus は指定位置(0.0〜1.0の正規化座標)へのフォーカスを非同期に要求する
	Focus(x, y float64, done func(error))

	// Capture は静止画の撮影を非同期に要求する
	Capture(done func(*Photo, error))

	// Close はセッションを閉じる。同期的かつ冪等であること
	Close() error
}
