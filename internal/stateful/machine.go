package stateful

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrInvalidTransition はAPIの誤用(二重のSetInitialState等)を表す
var ErrInvalidTransition = errors.New("不正な状態遷移")

// Machine はイベントを直列にディスパッチする状態機械
// 複数のゴルーチンからProcessEventを呼んでよいが、イベントの処理
// (副作用と状態交代を含む)は常に1件ずつ完結してから次に進む。
type Machine struct {
	mu          sync.Mutex
	current     State
	pending     []Event
	dispatching bool
	started     bool // 1件でもイベントを処理したらtrue
	closed      bool // Shutdownが要求されたらtrue

	gen    atomic.Uint64
	sink   ErrorSink
	logger *slog.Logger
}

// New は新しいMachineを作成する
func New(sink ErrorSink) *Machine {
	return &Machine{
		sink:   sink,
		logger: slog.Default(),
	}
}

// SetInitialState は初期状態を設置する
// 2回目の呼び出し、またはイベント処理後の呼び出しはErrInvalidTransitionを返す。
func (m *Machine) SetInitialState(s State) error {
	m.mu.Lock()
	if m.current != nil || m.started || m.closed {
		m.mu.Unlock()
		return fmt.Errorf("%w: 初期状態は一度しか設定できない", ErrInvalidTransition)
	}
	m.current = s
	m.mu.Unlock()

	if next := m.safeEnter(s); next != nil && next != s {
		m.swap(s, next)
	}
	return nil
}

// ProcessEvent はイベントを1件投入する
// 呼び出し元には何も返さない。処理中のエラーはエラーシンクに回送される。
// 別のイベントの処理中に呼ばれた場合はキューに積まれ、先行する処理が
// 完了してから順番に処理される。
func (m *Machine) ProcessEvent(ev Event) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.discard(ev)
		return
	}
	if m.current == nil {
		m.mu.Unlock()
		m.sink.Report(fmt.Errorf("%w: 初期状態の設定前にイベント %s を受信した", ErrInvalidTransition, ev.Name()))
		m.discard(ev)
		return
	}

	m.started = true
	m.pending = append(m.pending, ev)
	if m.dispatching {
		// 既に処理中のレーンが後で拾う
		m.mu.Unlock()
		return
	}

	m.dispatching = true
	m.drain()
}

// drain は保留キューを処理し尽くし、要求されていれば解体まで行う
// 呼び出し時はロックを保持していること。解放して戻る。
func (m *Machine) drain() {
	for len(m.pending) > 0 && !m.closed {
		next := m.pending[0]
		m.pending = m.pending[1:]
		cur := m.current
		m.mu.Unlock()

		m.dispatchOne(cur, next)

		m.mu.Lock()
	}

	if m.closed {
		s := m.current
		m.current = nil
		rest := m.pending
		m.pending = nil
		m.dispatching = false
		m.mu.Unlock()

		if s != nil {
			m.safeTeardown(s)
		}
		for _, ev := range rest {
			m.discard(ev)
		}
		return
	}

	m.dispatching = false
	m.mu.Unlock()
}

// CurrentState は現在の状態を返す(テスト・状態表示用)
func (m *Machine) CurrentState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// NextGeneration は新しい世代トークンを発行する
// 非同期要求を発行する状態はこのトークンを完了イベントに持たせ、
// 受信時に自分のトークンと照合することで古い完了を検出する。
func (m *Machine) NextGeneration() uint64 {
	return m.gen.Add(1)
}

// Shutdown は現在の状態を解体し、以後のイベントを受け付けなくする
// モジュール全体の破棄時にのみ呼ぶこと。別のイベントの処理中に呼ばれた
// 場合、解体はそのディスパッチレーンが引き取って行う(直列性の維持)。
// 解体されずに残った保留イベントはDiscardで後始末される。
func (m *Machine) Shutdown() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	if m.dispatching {
		// 進行中のレーンが掃き出しの後に解体する
		m.mu.Unlock()
		return
	}

	m.dispatching = true
	m.drain()
}

// dispatchOne は1件のイベントを現在の状態に対して処理する
func (m *Machine) dispatchOne(cur State, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			m.sink.Report(fmt.Errorf("状態 %s のイベント %s 処理中にpanic: %v", cur.Name(), ev.Name(), r))
		}
	}()

	handler, ok := cur.Handlers()[ev.Name()]
	if !ok {
		// 列挙されていないイベントは現在の状態に留まったまま無視する。
		// リソースを運ぶイベントは引き取り手がいないので後始末する
		m.logger.Debug("未対応イベントを無視する", "state", cur.Name(), "event", ev.Name())
		m.discard(ev)
		return
	}

	next, err := handler(ev)
	if err != nil {
		m.sink.Report(fmt.Errorf("状態 %s でイベント %s の処理に失敗: %w", cur.Name(), ev.Name(), err))
	}
	if next == nil || next == cur {
		return
	}

	m.swap(cur, next)
}

// swap は現在の状態をnextに交代させる
// 新しい状態を先に設置してから旧状態を解体する。Enterが置き換えを
// 返した場合は交代を繰り返す。
func (m *Machine) swap(old, next State) {
	for {
		m.mu.Lock()
		m.current = next
		m.mu.Unlock()

		m.logger.Debug("状態を交代する", "from", old.Name(), "to", next.Name())
		m.safeTeardown(old)

		after := m.safeEnter(next)
		if after == nil || after == next {
			return
		}
		old, next = next, after
	}
}

// discard は処理されないまま捨てられるイベントの後始末を行う
func (m *Machine) discard(ev Event) {
	if d, ok := ev.(Discardable); ok {
		d.Discard()
	}
}

// safeEnter はpanicを回収しながらEnterを呼ぶ
func (m *Machine) safeEnter(s State) (next State) {
	defer func() {
		if r := recover(); r != nil {
			m.sink.Report(fmt.Errorf("状態 %s の入場処理中にpanic: %v", s.Name(), r))
			next = nil
		}
	}()
	return s.Enter()
}

// safeTeardown はpanicを回収しながらTeardownを呼ぶ
func (m *Machine) safeTeardown(s State) {
	defer func() {
		if r := recover(); r != nil {
			m.sink.Report(fmt.Errorf("状態 %s の解体処理中にpanic: %v", s.Name(), r))
		}
	}()
	s.Teardown()
}
