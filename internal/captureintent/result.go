package captureintent

import "shunkan/internal/camera"

// Outcome は撮影インテントの結末の種別を表す
type Outcome string

const (
	OutcomeConfirmed Outcome = "confirmed" // 写真が承認された
	OutcomeCancelled Outcome = "cancelled" // 利用者がキャンセルした
	OutcomeFailed    Outcome = "failed"    // 回復不能な失敗で終了した
)

// Result は撮影インテントの唯一の結末を表す
// 終端状態に到達した時点で一度だけ通知される。
type Result struct {
	Outcome Outcome       // 結末の種別
	Photo   *camera.Photo // 承認された写真(Confirmedの場合のみ)
	Reason  string        // 失敗理由(Failedの場合のみ)
}

// BottomBarSpec はボトムバーUIの構成を表す能力照会の結果
type BottomBarSpec struct {
	ShowCancel          bool // キャンセルボタンを表示する
	ShowDone            bool // 承認ボタンを表示する
	ShowRetake          bool // 撮り直しボタンを表示する
	SelfTimerEnabled    bool // セルフタイマーが有効
	SwitchCameraEnabled bool // カメラ切り替えが可能
}
