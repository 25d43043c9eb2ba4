package stateful

// Event は状態機械に入力される不変の出来事を表す
// 値は一度だけ作られ、一度だけ消費される。
type Event interface {
	// Name はディスパッチに使うイベント種別の識別子を返す
	Name() string
}

// Handler は1つのイベント種別に対する状態の応答
// 次の状態を返す。現在の状態自身を返した場合は遷移しない。
// エラーはエラーシンクに回送され、状態機械は現在の状態に留まる。
type Handler func(ev Event) (State, error)

// State はワークフローの1つの局面を表す遷移単位
// 状態は自分が受け付けるイベントをHandlersで明示的に列挙し、
// それ以外のイベントは機械側の共通の無視処理に委ねる。
type State interface {
	// Name は状態の識別名を返す
	Name() string

	// Handlers は受け付けるイベント種別ごとのハンドラ表を返す
	Handlers() map[string]Handler

	// Enter は状態が現在状態になった直後に呼ばれる
	// 置き換えが必要な場合(入場時の獲得に失敗した等)は別の状態を返す。
	// それ以外はnilか自分自身を返す。
	Enter() State

	// Teardown は状態が破棄される際に呼ばれる
	// 獲得が途中で失敗していても安全に呼べること(冪等であること)。
	Teardown()
}

// Discardable はどの状態にも処理されずに捨てられる際、後始末が必要なイベント
// セッション等のリソースを運ぶイベントが実装し、Discardで引き取り手のない
// リソースを解放する。Discardは高々一度だけ呼ばれる。
type Discardable interface {
	// Discard は運んでいるリソースを解放する
	Discard()
}

// ErrorSink は境界を越えて投げられないエラーの届け先
type ErrorSink interface {
	// Report はエラーを記録する。ブロックしてはならない
	Report(err error)
}
