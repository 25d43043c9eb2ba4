package camera

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockAccessPoint はテスト用のアクセスポイント実装
// 既定では完了コールバックを即時に呼ぶ。SetManualCompletion(true)にすると
// 完了は保留され、CompletePendingOpen等で任意のタイミングで発火できる
// (遅延コールバックの検証用)。
type MockAccessPoint struct {
	mu             sync.Mutex
	spec           Spec
	manual         bool
	shouldFailOpen bool

	pendingOpens []*pendingOpen
	sessions     []*MockSession
	openCount    int
	closeCount   int
}

type pendingOpen struct {
	cfg  Config
	done func(Session, error)
}

// NewMockAccessPoint は新しいMockAccessPointを作成する
func NewMockAccessPoint() *MockAccessPoint {
	return &MockAccessPoint{
		spec: Spec{
			HasFrontCamera: true,
			HasFlash:       false,
			MaxZoomRatio:   4.0,
		},
	}
}

// HardwareSpec はハードウェアの能力を返す
func (m *MockAccessPoint) HardwareSpec() Spec {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.spec
}

// SetHardwareSpec はテスト用に能力を設定する
func (m *MockAccessPoint) SetHardwareSpec(spec Spec) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spec = spec
}

// SetManualCompletion はテスト用に完了の手動制御を設定する
func (m *MockAccessPoint) SetManualCompletion(manual bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.manual = manual
}

// SetShouldFailOpen はテスト用にOpen失敗を設定する
func (m *MockAccessPoint) SetShouldFailOpen(shouldFail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailOpen = shouldFail
}

// Open はモックカメラを開く
func (m *MockAccessPoint) Open(_ context.Context, cfg Config, done func(Session, error)) {
	m.mu.Lock()
	if m.manual {
		m.pendingOpens = append(m.pendingOpens, &pendingOpen{cfg: cfg, done: done})
		m.mu.Unlock()
		return
	}
	shouldFail := m.shouldFailOpen
	m.mu.Unlock()

	if shouldFail {
		done(nil, fmt.Errorf("モック: カメラを開けない: %w", ErrDeviceUnavailable))
		return
	}
	done(m.newSession(cfg), nil)
}

// CompletePendingOpen は保留中の最も古いOpenを成功させる
// 保留がなければfalseを返す。
func (m *MockAccessPoint) CompletePendingOpen() bool {
	m.mu.Lock()
	if len(m.pendingOpens) == 0 {
		m.mu.Unlock()
		return false
	}
	p := m.pendingOpens[0]
	m.pendingOpens = m.pendingOpens[1:]
	m.mu.Unlock()

	p.done(m.newSession(p.cfg), nil)
	return true
}

// FailPendingOpen は保留中の最も古いOpenを失敗させる
func (m *MockAccessPoint) FailPendingOpen(err error) bool {
	m.mu.Lock()
	if len(m.pendingOpens) == 0 {
		m.mu.Unlock()
		return false
	}
	p := m.pendingOpens[0]
	m.pendingOpens = m.pendingOpens[1:]
	m.mu.Unlock()

	p.done(nil, err)
	return true
}

// PendingOpenCount は保留中のOpenの数を返す
func (m *MockAccessPoint) PendingOpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pendingOpens)
}

// OpenCount は作成されたセッションの総数を返す(リーク検証用)
func (m *MockAccessPoint) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openCount
}

// CloseCount は閉じられたセッションの総数を返す(リーク検証用)
func (m *MockAccessPoint) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCount
}

// LastSession は最後に作成されたセッションを返す(検証用)
func (m *MockAccessPoint) LastSession() *MockSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sessions) == 0 {
		return nil
	}
	return m.sessions[len(m.sessions)-1]
}

// newSession は新しいモックセッションを作成する
func (m *MockAccessPoint) newSession(cfg Config) *MockSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.openCount++
	s := &MockSession{
		ap:     m,
		cfg:    cfg,
		manual: m.manual,
		frames: make(chan []byte, 4),
		zoom:   1.0,
	}
	m.sessions = append(m.sessions, s)
	return s
}

// sessionClosed はセッションのクローズを記録する
func (m *MockAccessPoint) sessionClosed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCount++
}

// MockSession はテスト用のセッション実装
type MockSession struct {
	mu     sync.Mutex
	ap     *MockAccessPoint
	cfg    Config
	manual bool
	frames chan []byte
	zoom   float64
	closed bool

	pendingCaptures []func(*Photo, error)
	pendingFocuses  []func(error)
	failCaptures    int
}

// Device はデバイスパスを返す
func (s *MockSession) Device() string {
	return fmt.Sprintf("/dev/mock-%s", s.cfg.Facing)
}

// Facing はカメラの向きを返す
func (s *MockSession) Facing() Facing {
	return s.cfg.Facing
}

// Frames はプレビューフレームのチャンネルを返す
func (s *MockSession) Frames() <-chan []byte {
	return s.frames
}

// PushFrame はテスト用にプレビューフレームを投入する
// バッファが一杯の場合は捨てる。
func (s *MockSession) PushFrame(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.frames <- frame:
	default:
	}
}

// SetZoom はズーム倍率を設定する
func (s *MockSession) SetZoom(ratio float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.zoom = ratio
	return nil
}

// Zoom は現在のズーム倍率を返す(検証用)
func (s *MockSession) Zoom() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zoom
}

// Focus はフォーカスを非同期に要求する
func (s *MockSession) Focus(_, _ float64, done func(error)) {
	s.mu.Lock()
	if s.manual {
		s.pendingFocuses = append(s.pendingFocuses, done)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	done(nil)
}

// CompletePendingFocus は保留中の最も古いFocusを完了させる
func (s *MockSession) CompletePendingFocus() bool {
	s.mu.Lock()
	if len(s.pendingFocuses) == 0 {
		s.mu.Unlock()
		return false
	}
	done := s.pendingFocuses[0]
	s.pendingFocuses = s.pendingFocuses[1:]
	s.mu.Unlock()

	done(nil)
	return true
}

// Capture は撮影を非同期に要求する
func (s *MockSession) Capture(done func(*Photo, error)) {
	s.mu.Lock()
	if s.manual {
		s.pendingCaptures = append(s.pendingCaptures, done)
		s.mu.Unlock()
		return
	}
	if s.failCaptures > 0 {
		s.failCaptures--
		s.mu.Unlock()
		done(nil, fmt.Errorf("モック: 撮影に失敗"))
		return
	}
	s.mu.Unlock()
	done(s.stubPhoto(), nil)
}

// CompletePendingCapture は保留中の最も古いCaptureを成功させる
// セッションが閉じられた後でも呼べる(遅延コールバックの再現)。
func (s *MockSession) CompletePendingCapture() bool {
	s.mu.Lock()
	if len(s.pendingCaptures) == 0 {
		s.mu.Unlock()
		return false
	}
	done := s.pendingCaptures[0]
	s.pendingCaptures = s.pendingCaptures[1:]
	s.mu.Unlock()

	done(s.stubPhoto(), nil)
	return true
}

// FailPendingCapture は保留中の最も古いCaptureを失敗させる
func (s *MockSession) FailPendingCapture(err error) bool {
	s.mu.Lock()
	if len(s.pendingCaptures) == 0 {
		s.mu.Unlock()
		return false
	}
	done := s.pendingCaptures[0]
	s.pendingCaptures = s.pendingCaptures[1:]
	s.mu.Unlock()

	done(nil, err)
	return true
}

// SetFailCaptures はテスト用に以後n回のCapture失敗を設定する
func (s *MockSession) SetFailCaptures(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCaptures = n
}

// Close はセッションを閉じる(冪等)
func (s *MockSession) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.ap.sessionClosed()
	return nil
}

// Closed はセッションが閉じられているかを返す(検証用)
func (s *MockSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// stubPhoto はテスト用の最小のJPEG写真を生成する
func (s *MockSession) stubPhoto() *Photo {
	return &Photo{
		ID:       uuid.New().String(),
		Data:     []byte{0xFF, 0xD8, 0xFF, 0xDB, 0x00, 0x01, 0xFF, 0xD9},
		MimeType: "image/jpeg",
		Facing:   s.cfg.Facing,
		TakenAt:  time.Now(),
		Width:    s.cfg.Width,
		Height:   s.cfg.Height,
	}
}
