package captureintent

import (
	"shunkan/internal/camera"
	"shunkan/internal/event"
	"shunkan/internal/stateful"
)

// photoReviewingState は撮影した写真の確認を待つ状態
// 写真を排他的に所有する。承認されるまでカメラセッションは持たない。
type photoReviewingState struct {
	stateBase
	photo *camera.Photo
}

func newPhotoReviewing(m *Module, photo *camera.Photo) *photoReviewingState {
	return &photoReviewingState{
		stateBase: newStateBase(m),
		photo:     photo,
	}
}

func (s *photoReviewingState) Name() string { return "photo_reviewing" }

func (s *photoReviewingState) Enter() stateful.State {
	res := s.resources()
	res.UI.SetShutterEnabled(false)
	res.UI.ShowReview(s.photo)
	return nil
}

func (s *photoReviewingState) Handlers() map[string]stateful.Handler {
	return map[string]stateful.Handler{
		event.NameConfirmPhotoTap: s.onConfirm,
		event.NameRetakePhotoTap:  s.onRetake,
		event.NamePause:           s.onPause,
		event.NameCancelIntentTap: s.onCancelIntent,
	}
}

func (s *photoReviewingState) onConfirm(stateful.Event) (stateful.State, error) {
	return newFinishingConfirmed(s.module, s.photo), nil
}

func (s *photoReviewingState) onRetake(stateful.Event) (stateful.State, error) {
	// 写真を破棄してプレビューの準備からやり直す
	s.photo = nil
	return newPreviewSetup(s.module), nil
}

func (s *photoReviewingState) onPause(stateful.Event) (stateful.State, error) {
	// 一時停止では未承認の写真は保持しない
	s.photo = nil
	return newBackground(s.module), nil
}

func (s *photoReviewingState) onCancelIntent(stateful.Event) (stateful.State, error) {
	s.photo = nil
	return newFinishingCancelled(s.module), nil
}

func (s *photoReviewingState) Teardown() {
	if s.torn {
		return
	}
	s.torn = true

	s.resources().UI.HideReview()
	s.releaseBase()
}
