package captureintent

import (
	"fmt"
	"time"

	"shunkan/internal/camera"
	"shunkan/internal/event"
	"shunkan/internal/refcount"
	"shunkan/internal/stateful"
)

// focusHoldMax はフォーカスロックを保持する最大時間
// ハードウェアから完了が戻らなくても、この時間で必ずプレビューに戻る。
const focusHoldMax = 3 * time.Second

// focusLockState はタップ位置へのフォーカスを待つ状態
// previewReadyからセッションを引き継ぎ、完了後に返す。
type focusLockState struct {
	stateBase
	gen     uint64
	session *refcount.RefCounted[camera.Session]
	x, y    float64

	holdTimer *time.Timer
}

// newFocusLock はフォーカス待ちの状態を作成する
// sessionは呼び出し側がこの状態のためにRetain済みであること。
func newFocusLock(m *Module, session *refcount.RefCounted[camera.Session], x, y float64) *focusLockState {
	return &focusLockState{
		stateBase: newStateBase(m),
		gen:       m.machine.NextGeneration(),
		session:   session,
		x:         x,
		y:         y,
	}
}

func (s *focusLockState) Name() string { return "focus_lock" }

func (s *focusLockState) Enter() stateful.State {
	gen := s.gen
	machine := s.module.machine

	// フォーカス失敗もロック解除として扱う
	s.session.Value().Focus(s.x, s.y, func(error) {
		machine.ProcessEvent(event.FocusCompleted{Gen: gen})
	})

	// ハードウェアが完了を返さない場合の保険
	s.holdTimer = time.AfterFunc(focusHoldMax, func() {
		machine.ProcessEvent(event.FocusCompleted{Gen: gen})
	})
	return nil
}

func (s *focusLockState) Handlers() map[string]stateful.Handler {
	return map[string]stateful.Handler{
		event.NameFocusCompleted:   s.onFocusCompleted,
		event.NameShutterTap:       s.onShutterTap,
		event.NameSurfaceDestroyed: s.onSurfaceDestroyed,
		event.NamePause:            s.onPause,
		event.NameCancelIntentTap:  s.onCancelIntent,
	}
}

func (s *focusLockState) onFocusCompleted(e stateful.Event) (stateful.State, error) {
	ev := e.(event.FocusCompleted)
	if ev.Gen != s.gen {
		return s, nil
	}
	if err := s.session.Retain(); err != nil {
		return newFailure(s.module, "カメラセッションを引き継げません"), err
	}
	return newPreviewReadyWithSession(s.module, s.session), nil
}

func (s *focusLockState) onShutterTap(stateful.Event) (stateful.State, error) {
	if err := s.session.Retain(); err != nil {
		return newFailure(s.module, "カメラセッションを引き継げません"), err
	}
	return newCapturing(s.module, s.session), nil
}

func (s *focusLockState) onSurfaceDestroyed(stateful.Event) (stateful.State, error) {
	return newPreviewSetup(s.module), nil
}

func (s *focusLockState) onPause(stateful.Event) (stateful.State, error) {
	return newBackground(s.module), nil
}

func (s *focusLockState) onCancelIntent(stateful.Event) (stateful.State, error) {
	return newFinishingCancelled(s.module), nil
}

func (s *focusLockState) Teardown() {
	if s.torn {
		return
	}
	s.torn = true

	if s.holdTimer != nil {
		s.holdTimer.Stop()
	}
	if err := s.session.Release(); err != nil {
		s.module.sink.Report(fmt.Errorf("セッションの解放に失敗: %w", err))
	}
	s.session = nil
	s.releaseBase()
}
