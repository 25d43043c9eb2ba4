package server

import (
	"sync"

	"shunkan/internal/camera"
	"shunkan/internal/captureintent"
)

// UIState はWeb向けUIの現在の表示状態のスナップショット
type UIState struct {
	ShutterEnabled bool   `json:"shutter_enabled"`
	CountdownShown bool   `json:"countdown_shown"`
	Countdown      int    `json:"countdown"`
	ReviewShown    bool   `json:"review_shown"`
	ErrorMessage   string `json:"error_message,omitempty"`
}

// webUI は撮影インテントの表示側アダプタのWeb実装
// 描画の代わりに表示状態を保持し、プレビューフレームを
// 接続中のHTTPクライアントへファンアウトする。
// Webには物理的な表示面がないため、生成直後から表示面ありとして振る舞い、
// 最初のフレーム到達を表示面の更新として通知する。
type webUI struct {
	mu     sync.Mutex
	module *captureintent.Module

	shutterEnabled bool
	countdown      int
	countdownShown bool
	reviewPhoto    *camera.Photo
	errorMessage   string
	layoutWidth    int
	layoutHeight   int

	stopFanout  chan struct{}
	subscribers map[int]chan []byte
	nextSubID   int
}

func newWebUI() *webUI {
	return &webUI{
		subscribers: make(map[int]chan []byte),
	}
}

// bind はフレーム到達の通知先モジュールを設定する
func (u *webUI) bind(m *captureintent.Module) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.module = m
}

// SetShutterEnabled はシャッターボタンの状態を記録する
func (u *webUI) SetShutterEnabled(enabled bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.shutterEnabled = enabled
}

// ShowCountdown はカウントダウンの残り秒数を記録する
func (u *webUI) ShowCountdown(remaining int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.countdown = remaining
	u.countdownShown = true
}

// HideCountdown はカウントダウン表示を消す
func (u *webUI) HideCountdown() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.countdownShown = false
}

// ShowReview は確認用の写真を保持する
func (u *webUI) ShowReview(photo *camera.Photo) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.reviewPhoto = photo
}

// HideReview は確認表示を消す
func (u *webUI) HideReview() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.reviewPhoto = nil
}

// AttachPreview はフレーム供給元を接続し、ファンアウトを開始する
func (u *webUI) AttachPreview(frames <-chan []byte) {
	u.mu.Lock()
	if u.stopFanout != nil {
		close(u.stopFanout)
	}
	stop := make(chan struct{})
	u.stopFanout = stop
	u.mu.Unlock()

	go u.fanout(frames, stop)
}

// DetachPreview はフレームの配信を止める
// 購読者の接続は維持され、次のAttachPreviewで配信が再開される。
func (u *webUI) DetachPreview() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.stopFanout != nil {
		close(u.stopFanout)
		u.stopFanout = nil
	}
}

// ApplyLayout はプレビュー表示領域のサイズを記録する
func (u *webUI) ApplyLayout(width, height int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.layoutWidth = width
	u.layoutHeight = height
}

// ShowError は利用者向けのエラーメッセージを記録する
func (u *webUI) ShowError(message string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.errorMessage = message
}

// fanout はフレームを購読者全員へ配る
// 最初のフレームは表示面の更新としてモジュールへ通知する。
func (u *webUI) fanout(frames <-chan []byte, stop chan struct{}) {
	first := true
	for {
		select {
		case <-stop:
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}

			u.mu.Lock()
			module := u.module
			for _, sub := range u.subscribers {
				// 遅い購読者はフレームを落とす
				select {
				case sub <- frame:
				default:
				}
			}
			u.mu.Unlock()

			if first {
				first = false
				if module != nil {
					module.OnSurfaceUpdated()
				}
			}
		}
	}
}

// Subscribe はプレビューフレームの購読を開始する
// 返されたcancelを呼ぶと購読が解除される。
func (u *webUI) Subscribe() (<-chan []byte, func()) {
	u.mu.Lock()
	defer u.mu.Unlock()

	id := u.nextSubID
	u.nextSubID++
	ch := make(chan []byte, 2)
	u.subscribers[id] = ch

	cancel := func() {
		u.mu.Lock()
		defer u.mu.Unlock()
		delete(u.subscribers, id)
	}
	return ch, cancel
}

// ReviewPhoto は確認表示中の写真を返す(なければnil)
func (u *webUI) ReviewPhoto() *camera.Photo {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.reviewPhoto
}

// State は現在の表示状態のスナップショットを返す
func (u *webUI) State() UIState {
	u.mu.Lock()
	defer u.mu.Unlock()
	return UIState{
		ShutterEnabled: u.shutterEnabled,
		CountdownShown: u.countdownShown,
		Countdown:      u.countdown,
		ReviewShown:    u.reviewPhoto != nil,
		ErrorMessage:   u.errorMessage,
	}
}
