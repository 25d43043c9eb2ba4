package captureintent

import (
	"sync"

	"shunkan/internal/camera"
)

// Settings は撮影インテントの設定スナップショット
// 構築後はスレッドセーフなセッター経由でのみ変更される。
type Settings struct {
	mu           sync.RWMutex
	facing       camera.Facing
	timerSeconds int
	zoomRatio    float64
	gridLines    bool
}

// NewSettings は新しいSettingsを作成する
func NewSettings(facing camera.Facing, timerSeconds int) *Settings {
	return &Settings{
		facing:       facing,
		timerSeconds: timerSeconds,
		zoomRatio:    1.0,
	}
}

// Facing は現在のカメラの向きを返す
func (s *Settings) Facing() camera.Facing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.facing
}

// FlipFacing はカメラの向きを反転し、反転後の向きを返す
func (s *Settings) FlipFacing() camera.Facing {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.facing == camera.FacingBack {
		s.facing = camera.FacingFront
	} else {
		s.facing = camera.FacingBack
	}
	return s.facing
}

// TimerSeconds はセルフタイマーの秒数を返す(0は無効)
func (s *Settings) TimerSeconds() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timerSeconds
}

// SetTimerSeconds はセルフタイマーの秒数を設定する
func (s *Settings) SetTimerSeconds(seconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seconds < 0 {
		seconds = 0
	}
	s.timerSeconds = seconds
}

// ZoomRatio は現在のズーム倍率を返す
func (s *Settings) ZoomRatio() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.zoomRatio
}

// SetZoomRatio はズーム倍率を設定する
func (s *Settings) SetZoomRatio(ratio float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zoomRatio = ratio
}

// GridLines はグリッド線の表示設定を返す
func (s *Settings) GridLines() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gridLines
}

// SetGridLines はグリッド線の表示を設定する
func (s *Settings) SetGridLines(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gridLines = enabled
}
