package captureintent

import (
	"fmt"

	"shunkan/internal/camera"
	"shunkan/internal/stateful"
)

// Resources は構築済みの協力オブジェクトの集合
// モジュールの生成時に一度だけ構築され、モジュールの破棄まで生きる。
// モジュールと現在の状態が参照カウントで共有する。
type Resources struct {
	Camera   camera.AccessPoint // カメラハードウェアへの入口
	UI       UI                 // 表示側アダプタ
	Settings *Settings          // 設定スナップショット
	Errors   stateful.ErrorSink // エラーの届け先

	// プレビュー・撮影のフレーム設定
	FrameWidth  int
	FrameHeight int
	FrameFPS    int
}

// validate は必須の協力オブジェクトが揃っているか検証し、既定値を補う
func (r *Resources) validate() error {
	if r.Camera == nil {
		return fmt.Errorf("カメラアクセスポイントが設定されていない")
	}
	if r.UI == nil {
		return fmt.Errorf("UIアダプタが設定されていない")
	}
	if r.Settings == nil {
		r.Settings = NewSettings(camera.FacingBack, 0)
	}
	if r.Errors == nil {
		r.Errors = stateful.NewLogSink(nil)
	}
	if r.FrameWidth <= 0 {
		r.FrameWidth = 1280
	}
	if r.FrameHeight <= 0 {
		r.FrameHeight = 720
	}
	if r.FrameFPS <= 0 {
		r.FrameFPS = 15
	}
	return nil
}

// openConfig は現在の設定からカメラのオープン設定を組み立てる
func (r *Resources) openConfig() camera.Config {
	return camera.Config{
		Facing: r.Settings.Facing(),
		Width:  r.FrameWidth,
		Height: r.FrameHeight,
		FPS:    r.FrameFPS,
	}
}
