package captureintent

import (
	"sync"

	"shunkan/internal/camera"
)

// UI は表示側アダプタへの出口を表すインターフェース
// すべてのメソッドはfire-and-forgetであり、ブロックしないことが前提。
// 実装はピクセルの描画を担い、このパッケージは意図だけを伝える。
type UI interface {
	// SetShutterEnabled はシャッターボタンの有効/無効を設定する
	SetShutterEnabled(enabled bool)

	// ShowCountdown はセルフタイマーの残り秒数を表示する
	ShowCountdown(remaining int)

	// HideCountdown はカウントダウン表示を消す
	HideCountdown()

	// ShowReview は撮影した写真の確認表示を行う
	ShowReview(photo *camera.Photo)

	// HideReview は確認表示を消す
	HideReview()

	// AttachPreview はプレビューフレームの供給元を接続する
	AttachPreview(frames <-chan []byte)

	// DetachPreview はプレビューの供給を切り離す
	DetachPreview()

	// ApplyLayout はプレビュー表示領域のサイズを適用する
	ApplyLayout(width, height int)

	// ShowError は利用者向けのエラーメッセージを表示する
	ShowError(message string)
}

// MockUI はテスト用のUI実装
// 受け取った指示を記録し、検証用のゲッターを提供する。
type MockUI struct {
	mu              sync.Mutex
	shutterEnabled  bool
	countdown       int
	countdownShown  bool
	reviewPhoto     *camera.Photo
	previewFrames   <-chan []byte
	previewAttached bool
	layoutWidth     int
	layoutHeight    int
	errorMessage    string
}

// NewMockUI は新しいMockUIを作成する
func NewMockUI() *MockUI {
	return &MockUI{}
}

// SetShutterEnabled はシャッターボタンの状態を記録する
func (u *MockUI) SetShutterEnabled(enabled bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.shutterEnabled = enabled
}

// ShowCountdown はカウントダウンの表示を記録する
func (u *MockUI) ShowCountdown(remaining int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.countdown = remaining
	u.countdownShown = true
}

// HideCountdown はカウントダウンの非表示を記録する
func (u *MockUI) HideCountdown() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.countdownShown = false
}

// ShowReview は確認表示を記録する
func (u *MockUI) ShowReview(photo *camera.Photo) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.reviewPhoto = photo
}

// HideReview は確認表示の終了を記録する
func (u *MockUI) HideReview() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.reviewPhoto = nil
}

// AttachPreview はプレビューの接続を記録する
func (u *MockUI) AttachPreview(frames <-chan []byte) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.previewFrames = frames
	u.previewAttached = true
}

// DetachPreview はプレビューの切断を記録する
func (u *MockUI) DetachPreview() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.previewFrames = nil
	u.previewAttached = false
}

// ApplyLayout はレイアウトの適用を記録する
func (u *MockUI) ApplyLayout(width, height int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.layoutWidth = width
	u.layoutHeight = height
}

// ShowError はエラーメッセージを記録する
func (u *MockUI) ShowError(message string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.errorMessage = message
}

// ShutterEnabled はシャッターボタンの状態を返す(検証用)
func (u *MockUI) ShutterEnabled() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.shutterEnabled
}

// Countdown は表示中のカウントダウンを返す(検証用)
func (u *MockUI) Countdown() (remaining int, shown bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.countdown, u.countdownShown
}

// ReviewPhoto は表示中の確認写真を返す(検証用)
func (u *MockUI) ReviewPhoto() *camera.Photo {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.reviewPhoto
}

// PreviewAttached はプレビューが接続中かを返す(検証用)
func (u *MockUI) PreviewAttached() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.previewAttached
}

// Layout は適用されたレイアウトを返す(検証用)
func (u *MockUI) Layout() (width, height int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.layoutWidth, u.layoutHeight
}

// ErrorMessage は表示されたエラーメッセージを返す(検証用)
func (u *MockUI) ErrorMessage() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.errorMessage
}
