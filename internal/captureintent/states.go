package captureintent

import (
	"fmt"

	"shunkan/internal/event"
	"shunkan/internal/stateful"
)

// stateBase は全状態に共通する土台
// 構築時に共有リソースの借用を取得し、解体時に返す。
type stateBase struct {
	module *Module
	torn   bool
}

// newStateBase は共有リソースを借用した土台を作成する
func newStateBase(m *Module) stateBase {
	if err := m.resources.Retain(); err != nil {
		m.sink.Report(fmt.Errorf("共有リソースの借用に失敗: %w", err))
	}
	return stateBase{module: m}
}

// resources は共有リソースを返す
func (b *stateBase) resources() *Resources {
	return b.module.resources.Value()
}

// releaseBase は共有リソースの借用を返す
func (b *stateBase) releaseBase() {
	if err := b.module.resources.Release(); err != nil {
		b.module.sink.Report(fmt.Errorf("共有リソースの返却に失敗: %w", err))
	}
}

// backgroundState は画面が背面に回っている間の状態
// 排他的なリソースは一切保持しない。
type backgroundState struct {
	stateBase
}

func newBackground(m *Module) *backgroundState {
	return &backgroundState{stateBase: newStateBase(m)}
}

func (s *backgroundState) Name() string { return "background" }

func (s *backgroundState) Enter() stateful.State { return nil }

func (s *backgroundState) Handlers() map[string]stateful.Handler {
	return map[string]stateful.Handler{
		event.NameResume:          s.onResume,
		event.NameCancelIntentTap: s.onCancelIntent,
	}
}

func (s *backgroundState) onResume(stateful.Event) (stateful.State, error) {
	return newPreviewSetup(s.module), nil
}

func (s *backgroundState) onCancelIntent(stateful.Event) (stateful.State, error) {
	return newFinishingCancelled(s.module), nil
}

func (s *backgroundState) Teardown() {
	if s.torn {
		return
	}
	s.torn = true
	s.releaseBase()
}

// previewSetupState は表示面の準備を待つ状態
// カメラはまだ開かない。表示面が利用可能になってからpreview_readyに進む。
type previewSetupState struct {
	stateBase
}

func newPreviewSetup(m *Module) *previewSetupState {
	return &previewSetupState{stateBase: newStateBase(m)}
}

func (s *previewSetupState) Name() string { return "preview_setup" }

func (s *previewSetupState) Enter() stateful.State {
	s.resources().UI.SetShutterEnabled(false)
	return nil
}

func (s *previewSetupState) Handlers() map[string]stateful.Handler {
	return map[string]stateful.Handler{
		event.NameSurfaceAvailable:     s.onSurfaceAvailable,
		event.NamePreviewLayoutChanged: s.onLayoutChanged,
		event.NamePause:                s.onPause,
		event.NameCancelIntentTap:      s.onCancelIntent,
	}
}

func (s *previewSetupState) onSurfaceAvailable(stateful.Event) (stateful.State, error) {
	return newPreviewReady(s.module), nil
}

func (s *previewSetupState) onLayoutChanged(e stateful.Event) (stateful.State, error) {
	ev := e.(event.PreviewLayoutChanged)
	s.resources().UI.ApplyLayout(ev.Width, ev.Height)
	return s, nil
}

func (s *previewSetupState) onPause(stateful.Event) (stateful.State, error) {
	return newBackground(s.module), nil
}

func (s *previewSetupState) onCancelIntent(stateful.Event) (stateful.State, error) {
	return newFinishingCancelled(s.module), nil
}

func (s *previewSetupState) Teardown() {
	if s.torn {
		return
	}
	s.torn = true
	s.releaseBase()
}
