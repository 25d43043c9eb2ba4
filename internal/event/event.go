// Package event 撮影インテントのイベントカタログを定義する
//
// 各イベントは外部で起きた1つの出来事を表す不変値であり、振る舞いを持たない。
// 生成は決してブロックせず、失敗もしない。非同期ハードウェア完了のイベントは
// 発行元の状態の世代トークンを運び、受信側で鮮度を照合する。
package event

import "shunkan/internal/camera"

// イベント種別の識別子
const (
	NameShutterTap           = "shutter_tap"
	NameCancelShutterTap     = "cancel_shutter_tap"
	NameCancelIntentTap      = "cancel_intent_tap"
	NameConfirmPhotoTap      = "confirm_photo_tap"
	NameRetakePhotoTap       = "retake_photo_tap"
	NameSwitchCameraTap      = "switch_camera_tap"
	NameZoomChanged          = "zoom_changed"
	NamePreviewLayoutChanged = "preview_layout_changed"
	NameSurfaceAvailable     = "surface_available"
	NameSurfaceDestroyed     = "surface_destroyed"
	NameSurfaceUpdated       = "surface_updated"
	NamePreviewTap           = "preview_tap"
	NameResume               = "resume"
	NamePause                = "pause"
	NameCameraOpened         = "camera_opened"
	NameCameraOpenFailed     = "camera_open_failed"
	NameCaptureCompleted     = "capture_completed"
	NameCaptureFailed        = "capture_failed"
	NameFocusCompleted       = "focus_completed"
	NameCountdownTick        = "countdown_tick"
	NameCountdownFinished    = "countdown_finished"
)

// ShutterTap はシャッターボタンのタップを表す
type ShutterTap struct{}

func (ShutterTap) Name() string { return NameShutterTap }

// CancelShutterTap はカウントダウン中のキャンセルボタンのタップを表す
type CancelShutterTap struct{}

func (CancelShutterTap) Name() string { return NameCancelShutterTap }

// CancelIntentTap はインテント全体のキャンセルを表す
type CancelIntentTap struct{}

func (CancelIntentTap) Name() string { return NameCancelIntentTap }

// ConfirmPhotoTap は確認画面での承認を表す
type ConfirmPhotoTap struct{}

func (ConfirmPhotoTap) Name() string { return NameConfirmPhotoTap }

// RetakePhotoTap は確認画面での撮り直しを表す
type RetakePhotoTap struct{}

func (RetakePhotoTap) Name() string { return NameRetakePhotoTap }

// SwitchCameraTap はカメラ切り替えボタンのタップを表す
type SwitchCameraTap struct{}

func (SwitchCameraTap) Name() string { return NameSwitchCameraTap }

// ZoomChanged はズーム倍率の変更を表す
type ZoomChanged struct {
	Ratio float64
}

func (ZoomChanged) Name() string { return NameZoomChanged }

// PreviewLayoutChanged はプレビュー表示領域のサイズ変更を表す
type PreviewLayoutChanged struct {
	Width  int
	Height int
}

func (PreviewLayoutChanged) Name() string { return NamePreviewLayoutChanged }

// SurfaceAvailable はプレビュー表示面が利用可能になったことを表す
// Handleは表示側が発行する不透明なハンドル。
type SurfaceAvailable struct {
	Handle any
}

func (SurfaceAvailable) Name() string { return NameSurfaceAvailable }

// SurfaceDestroyed はプレビュー表示面が破棄されたことを表す
type SurfaceDestroyed struct{}

func (SurfaceDestroyed) Name() string { return NameSurfaceDestroyed }

// SurfaceUpdated はプレビュー表示面に最初のフレームが届いたことを表す
type SurfaceUpdated struct{}

func (SurfaceUpdated) Name() string { return NameSurfaceUpdated }

// PreviewTap はプレビュー上のタップ(タップフォーカス)を表す
// 座標は0.0〜1.0の正規化座標。
type PreviewTap struct {
	X float64
	Y float64
}

func (PreviewTap) Name() string { return NamePreviewTap }

// Resume はライフサイクルの再開を表す
type Resume struct{}

func (Resume) Name() string { return NameResume }

// Pause はライフサイクルの一時停止を表す
type Pause struct{}

func (Pause) Name() string { return NamePause }

// CameraOpened はカメラのオープン完了を表す
type CameraOpened struct {
	Gen     uint64
	Session camera.Session
}

func (CameraOpened) Name() string { return NameCameraOpened }

// Discard は引き取り手のないまま捨てられる際、届いたセッションを閉じる
// 発行元の状態が既に去っていてもデバイスを開いたままにしないための後始末。
func (e CameraOpened) Discard() {
	if e.Session != nil {
		_ = e.Session.Close()
	}
}

// CameraOpenFailed はカメラのオープン失敗を表す
type CameraOpenFailed struct {
	Gen uint64
	Err error
}

func (CameraOpenFailed) Name() string { return NameCameraOpenFailed }

// CaptureCompleted は撮影の完了を表す
type CaptureCompleted struct {
	Gen   uint64
	Photo *camera.Photo
}

func (CaptureCompleted) Name() string { return NameCaptureCompleted }

// CaptureFailed は撮影の失敗を表す
type CaptureFailed struct {
	Gen uint64
	Err error
}

func (CaptureFailed) Name() string { return NameCaptureFailed }

// FocusCompleted はフォーカスの完了を表す
type FocusCompleted struct {
	Gen uint64
}

func (FocusCompleted) Name() string { return NameFocusCompleted }

// CountdownTick はセルフタイマーの残り秒数の更新を表す
type CountdownTick struct {
	Gen       uint64
	Remaining int
}

func (CountdownTick) Name() string { return NameCountdownTick }

// CountdownFinished はセルフタイマーの満了を表す
type CountdownFinished struct {
	Gen uint64
}

func (CountdownFinished) Name() string { return NameCountdownFinished }
