package captureintent

import (
	"shunkan/internal/camera"
	"shunkan/internal/stateful"
)

// finishingState はインテントの終端状態
// 入場時に結末を一度だけ通知する。以後のイベントはすべて無視される。
type finishingState struct {
	stateBase
	result Result
}

// newFinishingConfirmed は承認された写真を持つ終端状態を作成する
func newFinishingConfirmed(m *Module, photo *camera.Photo) *finishingState {
	return &finishingState{
		stateBase: newStateBase(m),
		result:    Result{Outcome: OutcomeConfirmed, Photo: photo},
	}
}

// newFinishingCancelled はキャンセルの終端状態を作成する
func newFinishingCancelled(m *Module) *finishingState {
	return &finishingState{
		stateBase: newStateBase(m),
		result:    Result{Outcome: OutcomeCancelled},
	}
}

func (s *finishingState) Name() string { return "finishing" }

func (s *finishingState) Enter() stateful.State {
	s.resources().UI.SetShutterEnabled(false)
	s.module.emitResult(s.result)
	return nil
}

// Handlers は空の表を返す。終端状態はイベントを受け付けない
func (s *finishingState) Handlers() map[string]stateful.Handler {
	return map[string]stateful.Handler{}
}

func (s *finishingState) Teardown() {
	if s.torn {
		return
	}
	s.torn = true
	s.releaseBase()
}

// failureState は回復不能な失敗の終端状態
// 利用者向けのメッセージを表示し、Failedの結末を通知する。
type failureState struct {
	stateBase
	reason string
}

func newFailure(m *Module, reason string) *failureState {
	return &failureState{
		stateBase: newStateBase(m),
		reason:    reason,
	}
}

func (s *failureState) Name() string { return "failure" }

func (s *failureState) Enter() stateful.State {
	res := s.resources()
	res.UI.SetShutterEnabled(false)
	res.UI.ShowError(s.reason)
	s.module.emitResult(Result{Outcome: OutcomeFailed, Reason: s.reason})
	return nil
}

// Handlers は空の表を返す。終端状態はイベントを受け付けない
func (s *failureState) Handlers() map[string]stateful.Handler {
	return map[string]stateful.Handler{}
}

func (s *failureState) Teardown() {
	if s.torn {
		return
	}
	s.torn = true
	s.releaseBase()
}
