package captureintent

import (
	"fmt"

	"shunkan/internal/camera"
	"shunkan/internal/event"
	"shunkan/internal/refcount"
	"shunkan/internal/stateful"
)

// capturingState は撮影の完了を待つ状態
// 撮影に失敗した場合は一度だけやり直し、それでも失敗したら終了する。
type capturingState struct {
	stateBase
	gen     uint64
	session *refcount.RefCounted[camera.Session]
	retried bool
}

// newCapturing は撮影中の状態を作成する
// sessionは呼び出し側がこの状態のためにRetain済みであること。
func newCapturing(m *Module, session *refcount.RefCounted[camera.Session]) *capturingState {
	return &capturingState{
		stateBase: newStateBase(m),
		gen:       m.machine.NextGeneration(),
		session:   session,
	}
}

func (s *capturingState) Name() string { return "capturing" }

func (s *capturingState) Enter() stateful.State {
	s.resources().UI.SetShutterEnabled(false)
	s.issueCapture()
	return nil
}

// issueCapture は現在の世代トークンで撮影を発行する
func (s *capturingState) issueCapture() {
	gen := s.gen
	machine := s.module.machine
	s.session.Value().Capture(func(photo *camera.Photo, err error) {
		if err != nil {
			machine.ProcessEvent(event.CaptureFailed{Gen: gen, Err: err})
			return
		}
		machine.ProcessEvent(event.CaptureCompleted{Gen: gen, Photo: photo})
	})
}

func (s *capturingState) Handlers() map[string]stateful.Handler {
	return map[string]stateful.Handler{
		event.NameCaptureCompleted: s.onCaptureCompleted,
		event.NameCaptureFailed:    s.onCaptureFailed,
		event.NamePause:            s.onPause,
		event.NameCancelIntentTap:  s.onCancelIntent,
	}
}

func (s *capturingState) onCaptureCompleted(e stateful.Event) (stateful.State, error) {
	ev := e.(event.CaptureCompleted)
	if ev.Gen != s.gen {
		// 別世代の撮影完了。写真は採用しない
		return s, nil
	}
	return newPhotoReviewing(s.module, ev.Photo), nil
}

func (s *capturingState) onCaptureFailed(e stateful.Event) (stateful.State, error) {
	ev := e.(event.CaptureFailed)
	if ev.Gen != s.gen {
		return s, nil
	}
	if !s.retried {
		// 一度だけやり直す
		s.retried = true
		s.issueCapture()
		return s, nil
	}
	return newFailure(s.module, fmt.Sprintf("撮影に失敗しました: %v", ev.Err)), nil
}

func (s *capturingState) onPause(stateful.Event) (stateful.State, error) {
	return newBackground(s.module), nil
}

func (s *capturingState) onCancelIntent(stateful.Event) (stateful.State, error) {
	return newFinishingCancelled(s.module), nil
}

func (s *capturingState) Teardown() {
	if s.torn {
		return
	}
	s.torn = true

	if err := s.session.Release(); err != nil {
		s.module.sink.Report(fmt.Errorf("セッションの解放に失敗: %w", err))
	}
	s.session = nil
	s.releaseBase()
}
