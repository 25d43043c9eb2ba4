package captureintent

import (
	"context"
	"fmt"
	"time"

	"shunkan/internal/camera"
	"shunkan/internal/event"
	"shunkan/internal/refcount"
	"shunkan/internal/stateful"
)

// previewReadyState はプレビューを表示し操作を受け付ける状態
// カメラセッションを排他的に保持する。セッションのオープンは非同期で、
// 完了は世代トークン付きのイベントとして戻ってくる。
type previewReadyState struct {
	stateBase
	gen     uint64
	session *refcount.RefCounted[camera.Session]

	countdownOn   bool
	countdownStop chan struct{}
}

// newPreviewReady はカメラを開くところから始める状態を作成する
func newPreviewReady(m *Module) *previewReadyState {
	return &previewReadyState{
		stateBase: newStateBase(m),
		gen:       m.machine.NextGeneration(),
	}
}

// newPreviewReadyWithSession は開いたセッションを引き継ぐ状態を作成する
// sessionは呼び出し側がこの状態のためにRetain済みであること。
func newPreviewReadyWithSession(m *Module, session *refcount.RefCounted[camera.Session]) *previewReadyState {
	return &previewReadyState{
		stateBase: newStateBase(m),
		gen:       m.machine.NextGeneration(),
		session:   session,
	}
}

func (s *previewReadyState) Name() string { return "preview_ready" }

func (s *previewReadyState) Enter() stateful.State {
	res := s.resources()
	res.UI.SetShutterEnabled(false)

	if s.session != nil {
		// 引き継いだセッションをそのまま使う
		res.UI.AttachPreview(s.session.Value().Frames())
		res.UI.SetShutterEnabled(true)
		return nil
	}

	s.openCamera()
	return nil
}

// openCamera は現在の世代トークンでカメラのオープンを発行する
func (s *previewReadyState) openCamera() {
	res := s.resources()
	gen := s.gen
	machine := s.module.machine
	res.Camera.Open(context.Background(), res.openConfig(), func(sess camera.Session, err error) {
		if err != nil {
			machine.ProcessEvent(event.CameraOpenFailed{Gen: gen, Err: err})
			return
		}
		machine.ProcessEvent(event.CameraOpened{Gen: gen, Session: sess})
	})
}

func (s *previewReadyState) Handlers() map[string]stateful.Handler {
	return map[string]stateful.Handler{
		event.NameCameraOpened:         s.onCameraOpened,
		event.NameCameraOpenFailed:     s.onCameraOpenFailed,
		event.NameShutterTap:           s.onShutterTap,
		event.NameCancelShutterTap:     s.onCancelShutterTap,
		event.NameCountdownTick:        s.onCountdownTick,
		event.NameCountdownFinished:    s.onCountdownFinished,
		event.NameZoomChanged:          s.onZoomChanged,
		event.NamePreviewTap:           s.onPreviewTap,
		event.NameSwitchCameraTap:      s.onSwitchCamera,
		event.NameSurfaceUpdated:       s.onSurfaceUpdated,
		event.NamePreviewLayoutChanged: s.onLayoutChanged,
		event.NameSurfaceDestroyed:     s.onSurfaceDestroyed,
		event.NamePause:                s.onPause,
		event.NameCancelIntentTap:      s.onCancelIntent,
	}
}

func (s *previewReadyState) onCameraOpened(e stateful.Event) (stateful.State, error) {
	ev := e.(event.CameraOpened)
	if ev.Gen != s.gen {
		// 別世代への完了。届いたセッションは採用せず即座に閉じる
		return s, ev.Session.Close()
	}

	res := s.resources()
	s.session = refcount.New[camera.Session](ev.Session, func(sess camera.Session) {
		_ = sess.Close()
	})

	// ズーム未対応のデバイスでもプレビューは続行する
	_ = ev.Session.SetZoom(res.Settings.ZoomRatio())

	res.UI.AttachPreview(ev.Session.Frames())
	res.UI.SetShutterEnabled(true)
	return s, nil
}

func (s *previewReadyState) onCameraOpenFailed(e stateful.Event) (stateful.State, error) {
	ev := e.(event.CameraOpenFailed)
	if ev.Gen != s.gen {
		return s, nil
	}
	return newFailure(s.module, fmt.Sprintf("カメラに接続できません: %v", ev.Err)), nil
}

func (s *previewReadyState) onShutterTap(stateful.Event) (stateful.State, error) {
	if s.session == nil || s.countdownOn {
		return s, nil
	}
	if total := s.resources().Settings.TimerSeconds(); total > 0 {
		s.startCountdown(total)
		return s, nil
	}
	return s.toCapturing()
}

func (s *previewReadyState) onCancelShutterTap(stateful.Event) (stateful.State, error) {
	if !s.countdownOn {
		return s, nil
	}
	s.stopCountdown()
	s.resources().UI.HideCountdown()
	return s, nil
}

func (s *previewReadyState) onCountdownTick(e stateful.Event) (stateful.State, error) {
	ev := e.(event.CountdownTick)
	if ev.Gen != s.gen || !s.countdownOn {
		return s, nil
	}
	s.resources().UI.ShowCountdown(ev.Remaining)
	return s, nil
}

func (s *previewReadyState) onCountdownFinished(e stateful.Event) (stateful.State, error) {
	ev := e.(event.CountdownFinished)
	if ev.Gen != s.gen || !s.countdownOn {
		return s, nil
	}
	s.stopCountdown()
	s.resources().UI.HideCountdown()
	return s.toCapturing()
}

func (s *previewReadyState) onZoomChanged(e stateful.Event) (stateful.State, error) {
	ev := e.(event.ZoomChanged)
	res := s.resources()

	ratio := ev.Ratio
	if ratio < 1.0 {
		ratio = 1.0
	}
	if max := res.Camera.HardwareSpec().MaxZoomRatio; max > 0 && ratio > max {
		ratio = max
	}
	res.Settings.SetZoomRatio(ratio)

	if s.session != nil {
		if err := s.session.Value().SetZoom(ratio); err != nil {
			return s, fmt.Errorf("ズームの適用に失敗: %w", err)
		}
	}
	return s, nil
}

func (s *previewReadyState) onPreviewTap(e stateful.Event) (stateful.State, error) {
	ev := e.(event.PreviewTap)
	if s.session == nil {
		return s, nil
	}
	if err := s.session.Retain(); err != nil {
		return newFailure(s.module, "カメラセッションを引き継げません"), err
	}
	return newFocusLock(s.module, s.session, ev.X, ev.Y), nil
}

func (s *previewReadyState) onSwitchCamera(stateful.Event) (stateful.State, error) {
	res := s.resources()
	if !res.Camera.HardwareSpec().HasFrontCamera {
		// 切り替え先がないので無視する
		return s, nil
	}

	s.stopCountdown()
	res.UI.HideCountdown()
	res.UI.DetachPreview()
	res.UI.SetShutterEnabled(false)
	s.releaseSession()

	res.Settings.FlipFacing()

	// 世代を進めることで、前の向きへの遅延完了を無害化する
	s.gen = s.module.machine.NextGeneration()
	s.openCamera()
	return s, nil
}

func (s *previewReadyState) onSurfaceUpdated(stateful.Event) (stateful.State, error) {
	// 最初のフレームが表示面に届いた通知。現状は遷移も副作用もない
	return s, nil
}

func (s *previewReadyState) onLayoutChanged(e stateful.Event) (stateful.State, error) {
	ev := e.(event.PreviewLayoutChanged)
	s.resources().UI.ApplyLayout(ev.Width, ev.Height)
	return s, nil
}

func (s *previewReadyState) onSurfaceDestroyed(stateful.Event) (stateful.State, error) {
	return newPreviewSetup(s.module), nil
}

func (s *previewReadyState) onPause(stateful.Event) (stateful.State, error) {
	return newBackground(s.module), nil
}

func (s *previewReadyState) onCancelIntent(stateful.Event) (stateful.State, error) {
	return newFinishingCancelled(s.module), nil
}

// toCapturing はセッションを引き継いで撮影状態に進む
func (s *previewReadyState) toCapturing() (stateful.State, error) {
	if s.session == nil {
		return s, nil
	}
	if err := s.session.Retain(); err != nil {
		return newFailure(s.module, "カメラセッションを引き継げません"), err
	}
	return newCapturing(s.module, s.session), nil
}

// startCountdown はセルフタイマーのカウントダウンを開始する
// タイマーはこの状態が所有し、解体時に停止される。
func (s *previewReadyState) startCountdown(total int) {
	s.countdownOn = true
	stop := make(chan struct{})
	s.countdownStop = stop

	gen := s.gen
	machine := s.module.machine
	interval := s.module.countdownInterval
	s.resources().UI.ShowCountdown(total)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		remaining := total
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				remaining--
				if remaining <= 0 {
					machine.ProcessEvent(event.CountdownFinished{Gen: gen})
					return
				}
				machine.ProcessEvent(event.CountdownTick{Gen: gen, Remaining: remaining})
			}
		}
	}()
}

// stopCountdown はカウントダウンを停止する(未開始なら何もしない)
func (s *previewReadyState) stopCountdown() {
	if s.countdownStop != nil {
		close(s.countdownStop)
		s.countdownStop = nil
	}
	s.countdownOn = false
}

// releaseSession はこの状態のセッション保持を手放す
func (s *previewReadyState) releaseSession() {
	if s.session == nil {
		return
	}
	if err := s.session.Release(); err != nil {
		s.module.sink.Report(fmt.Errorf("セッションの解放に失敗: %w", err))
	}
	s.session = nil
}

func (s *previewReadyState) Teardown() {
	if s.torn {
		return
	}
	s.torn = true

	s.stopCountdown()
	res := s.resources()
	res.UI.HideCountdown()
	res.UI.DetachPreview()
	s.releaseSession()
	s.releaseBase()
}
