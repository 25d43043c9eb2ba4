package captureintent

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"shunkan/internal/camera"
	"shunkan/internal/event"
	"shunkan/internal/refcount"
	"shunkan/internal/stateful"
)

// Module は撮影インテントの境界アダプタ
// 外部の信号(UIのタップ、ハードウェアのコールバック、ライフサイクル)を
// イベントに変換して状態機械へ転送し、読み取り専用の能力照会に答える。
type Module struct {
	id        string
	machine   *stateful.Machine
	resources *refcount.RefCounted[*Resources]
	sink      stateful.ErrorSink

	resultCh   chan Result
	resultOnce sync.Once
	closeOnce  sync.Once

	// セルフタイマーの刻み幅(テストで短縮する)
	countdownInterval time.Duration
}

// New は新しいModuleを作成し、初期状態(background)を設置する
func New(res *Resources) (*Module, error) {
	if res == nil {
		return nil, fmt.Errorf("リソースが設定されていない")
	}
	if err := res.validate(); err != nil {
		return nil, fmt.Errorf("リソースの検証に失敗: %w", err)
	}

	m := &Module{
		id:                uuid.New().String(),
		sink:              res.Errors,
		resultCh:          make(chan Result, 1),
		countdownInterval: time.Second,
	}
	m.machine = stateful.New(res.Errors)
	m.resources = refcount.New(res, nil)

	if err := m.machine.SetInitialState(newBackground(m)); err != nil {
		return nil, fmt.Errorf("初期状態の設置に失敗: %w", err)
	}
	return m, nil
}

// ID はインテントの一意識別子を返す
func (m *Module) ID() string {
	return m.id
}

// StateName は現在の状態名を返す(状態表示・テスト用)
func (m *Module) StateName() string {
	s := m.machine.CurrentState()
	if s == nil {
		return ""
	}
	return s.Name()
}

// Result は結末の通知チャンネルを返す
// 終端状態に到達した時点で一度だけ値が届く。
func (m *Module) Result() <-chan Result {
	return m.resultCh
}

// HardwareSpec はカメラハードウェアの能力を返す
// 状態機械ではなくリソースに問い合わせる。
func (m *Module) HardwareSpec() camera.Spec {
	return m.resources.Value().Camera.HardwareSpec()
}

// BottomBarSpec はボトムバーUIの構成を返す
func (m *Module) BottomBarSpec() BottomBarSpec {
	res := m.resources.Value()
	spec := res.Camera.HardwareSpec()
	return BottomBarSpec{
		ShowCancel:          true,
		ShowDone:            true,
		ShowRetake:          true,
		SelfTimerEnabled:    res.Settings.TimerSeconds() > 0,
		SwitchCameraEnabled: spec.HasFrontCamera,
	}
}

// Close はモジュールを破棄する
// 現在の状態を解体し、共有リソースの基準参照を手放す。
func (m *Module) Close() {
	m.closeOnce.Do(func() {
		m.machine.Shutdown()
		if err := m.resources.Release(); err != nil {
			m.sink.Report(fmt.Errorf("共有リソースの解放に失敗: %w", err))
		}
	})
}

// emitResult は結末を一度だけ通知する
func (m *Module) emitResult(r Result) {
	m.resultOnce.Do(func() {
		m.resultCh <- r
	})
}

// ライフサイクル境界

// OnResume はライフサイクルの再開を通知する
func (m *Module) OnResume() {
	m.machine.ProcessEvent(event.Resume{})
}

// OnPause はライフサイクルの一時停止を通知する
func (m *Module) OnPause() {
	m.machine.ProcessEvent(event.Pause{})
}

// UI境界

// OnShutterTap はシャッターボタンのタップを通知する
func (m *Module) OnShutterTap() {
	m.machine.ProcessEvent(event.ShutterTap{})
}

// OnCancelShutterTap はカウントダウンのキャンセルを通知する
func (m *Module) OnCancelShutterTap() {
	m.machine.ProcessEvent(event.CancelShutterTap{})
}

// OnCancelIntentTap はインテント全体のキャンセルを通知する
func (m *Module) OnCancelIntentTap() {
	m.machine.ProcessEvent(event.CancelIntentTap{})
}

// OnConfirmPhotoTap は確認画面での承認を通知する
func (m *Module) OnConfirmPhotoTap() {
	m.machine.ProcessEvent(event.ConfirmPhotoTap{})
}

// OnRetakePhotoTap は確認画面での撮り直しを通知する
func (m *Module) OnRetakePhotoTap() {
	m.machine.ProcessEvent(event.RetakePhotoTap{})
}

// OnSwitchCameraTap はカメラ切り替えを通知する
func (m *Module) OnSwitchCameraTap() {
	m.machine.ProcessEvent(event.SwitchCameraTap{})
}

// OnZoomChanged はズーム倍率の変更を通知する
func (m *Module) OnZoomChanged(ratio float64) {
	m.machine.ProcessEvent(event.ZoomChanged{Ratio: ratio})
}

// OnPreviewTap はプレビュー上のタップを通知する
func (m *Module) OnPreviewTap(x, y float64) {
	m.machine.ProcessEvent(event.PreviewTap{X: x, Y: y})
}

// OnPreviewLayoutChanged はプレビュー表示領域のサイズ変更を通知する
func (m *Module) OnPreviewLayoutChanged(width, height int) {
	m.machine.ProcessEvent(event.PreviewLayoutChanged{Width: width, Height: height})
}

// 表示面境界

// OnSurfaceAvailable はプレビュー表示面の利用可能を通知する
func (m *Module) OnSurfaceAvailable(handle any) {
	m.machine.ProcessEvent(event.SurfaceAvailable{Handle: handle})
}

// OnSurfaceDestroyed はプレビュー表示面の破棄を通知する
func (m *Module) OnSurfaceDestroyed() {
	m.machine.ProcessEvent(event.SurfaceDestroyed{})
}

// OnSurfaceUpdated はプレビュー表示面への最初のフレーム到達を通知する
func (m *Module) OnSurfaceUpdated() {
	m.machine.ProcessEvent(event.SurfaceUpdated{})
}
