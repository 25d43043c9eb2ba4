package stateful

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// recordSink はテスト用にエラーを蓄積するErrorSink
type recordSink struct {
	mu   sync.Mutex
	errs []error
}

func (s *recordSink) Report(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *recordSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.errs)
}

func (s *recordSink) last() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.errs) == 0 {
		return nil
	}
	return s.errs[len(s.errs)-1]
}

// testEvent は名前だけを持つテスト用イベント
type testEvent string

func (e testEvent) Name() string { return string(e) }

// testState はハンドラ表を差し替えられるテスト用の状態
type testState struct {
	name       string
	handlers   map[string]Handler
	entered    int
	tornDown   int
	onEnter    func() State
	onTeardown func()
}

func (s *testState) Name() string                 { return s.name }
func (s *testState) Handlers() map[string]Handler { return s.handlers }

func (s *testState) Enter() State {
	s.entered++
	if s.onEnter != nil {
		return s.onEnter()
	}
	return nil
}

func (s *testState) Teardown() {
	s.tornDown++
	if s.onTeardown != nil {
		s.onTeardown()
	}
}

func TestMachine_SetInitialStateOnce(t *testing.T) {
	sink := &recordSink{}
	m := New(sink)

	a := &testState{name: "a"}
	if err := m.SetInitialState(a); err != nil {
		t.Fatalf("SetInitialState failed: %v", err)
	}

	// 二重の設置はエラーになる
	err := m.SetInitialState(&testState{name: "b"})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition, got %v", err)
	}

	if m.CurrentState() != a {
		t.Error("Expected current state to remain the first one")
	}
}

func TestMachine_EventBeforeInitialState(t *testing.T) {
	sink := &recordSink{}
	m := New(sink)

	// 初期状態の設置前のイベントはシンクに報告されて捨てられる
	m.ProcessEvent(testEvent("x"))

	if sink.count() != 1 {
		t.Fatalf("Expected 1 reported error, got %d", sink.count())
	}
	if !errors.Is(sink.last(), ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition, got %v", sink.last())
	}
}

func TestMachine_TransitionOrder(t *testing.T) {
	sink := &recordSink{}
	m := New(sink)

	var order []string
	var mu sync.Mutex
	record := func(s string) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, s)
	}

	b := &testState{name: "b"}
	b.onEnter = func() State { record("b-enter"); return nil }

	a := &testState{name: "a"}
	a.onTeardown = func() { record("a-teardown") }
	a.handlers = map[string]Handler{
		"go": func(Event) (State, error) { return b, nil },
	}

	if err := m.SetInitialState(a); err != nil {
		t.Fatalf("SetInitialState failed: %v", err)
	}
	m.ProcessEvent(testEvent("go"))

	if m.CurrentState() != b {
		t.Fatalf("Expected current state b, got %s", m.CurrentState().Name())
	}

	// 旧状態の解体→新状態の入場の順序
	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "a-teardown" || order[1] != "b-enter" {
		t.Errorf("Unexpected order: %v", order)
	}
	if a.tornDown != 1 {
		t.Errorf("Expected a torn down once, got %d", a.tornDown)
	}
}

func TestMachine_UnhandledEventIgnored(t *testing.T) {
	sink := &recordSink{}
	m := New(sink)

	a := &testState{name: "a", handlers: map[string]Handler{}}
	if err := m.SetInitialState(a); err != nil {
		t.Fatalf("SetInitialState failed: %v", err)
	}

	m.ProcessEvent(testEvent("unknown"))

	// 無視されて現在の状態に留まり、エラーにもならない
	if m.CurrentState() != a {
		t.Error("Expected state to stay")
	}
	if sink.count() != 0 {
		t.Errorf("Expected no errors, got %d", sink.count())
	}
}

// discardEvent は後始末の呼び出しを記録するテスト用イベント
type discardEvent struct {
	name      string
	discarded *atomic.Int32
}

func (e discardEvent) Name() string { return e.name }
func (e discardEvent) Discard()     { e.discarded.Add(1) }

func TestMachine_UnhandledDiscardableCleanedUp(t *testing.T) {
	sink := &recordSink{}
	m := New(sink)

	a := &testState{name: "a", handlers: map[string]Handler{}}
	if err := m.SetInitialState(a); err != nil {
		t.Fatalf("SetInitialState failed: %v", err)
	}

	var discarded atomic.Int32
	m.ProcessEvent(discardEvent{name: "carrying", discarded: &discarded})

	// 無視されるだけでなく、運んでいたリソースの後始末が走る
	if got := discarded.Load(); got != 1 {
		t.Errorf("Expected discard to run once, got %d", got)
	}
	if m.CurrentState() != a {
		t.Error("Expected state to stay")
	}
	if sink.count() != 0 {
		t.Errorf("Expected no errors, got %d", sink.count())
	}
}

func TestMachine_ShutdownFromDispatchStaysSerialized(t *testing.T) {
	sink := &recordSink{}
	m := New(sink)

	a := &testState{name: "a"}
	a.handlers = map[string]Handler{
		"quit": func(Event) (State, error) {
			// 処理中の解体要求は進行中のレーンが引き取る
			m.Shutdown()
			if a.tornDown != 0 {
				t.Error("Expected teardown to wait for the running handler")
			}
			return a, nil
		},
	}

	if err := m.SetInitialState(a); err != nil {
		t.Fatalf("SetInitialState failed: %v", err)
	}
	m.ProcessEvent(testEvent("quit"))

	if a.tornDown != 1 {
		t.Errorf("Expected exactly one teardown, got %d", a.tornDown)
	}
	if m.CurrentState() != nil {
		t.Error("Expected no current state after shutdown")
	}

	// 解体後のイベントは受け付けずに後始末される
	var discarded atomic.Int32
	m.ProcessEvent(discardEvent{name: "late", discarded: &discarded})
	if got := discarded.Load(); got != 1 {
		t.Errorf("Expected late event to be discarded, got %d", got)
	}
}

func TestMachine_ShutdownDiscardsPendingEvents(t *testing.T) {
	sink := &recordSink{}
	m := New(sink)

	var discarded atomic.Int32
	a := &testState{name: "a"}
	a.handlers = map[string]Handler{
		"quit": func(Event) (State, error) {
			m.ProcessEvent(discardEvent{name: "carrying", discarded: &discarded})
			m.Shutdown()
			return a, nil
		},
	}

	if err := m.SetInitialState(a); err != nil {
		t.Fatalf("SetInitialState failed: %v", err)
	}
	m.ProcessEvent(testEvent("quit"))

	// 解体で処理されなくなった保留イベントも後始末される
	if got := discarded.Load(); got != 1 {
		t.Errorf("Expected pending event to be discarded, got %d", got)
	}
	if a.tornDown != 1 {
		t.Errorf("Expected exactly one teardown, got %d", a.tornDown)
	}
}

func TestMachine_HandlerErrorReported(t *testing.T) {
	sink := &recordSink{}
	m := New(sink)

	a := &testState{name: "a"}
	a.handlers = map[string]Handler{
		"boom": func(Event) (State, error) { return a, errors.New("失敗した") },
	}

	if err := m.SetInitialState(a); err != nil {
		t.Fatalf("SetInitialState failed: %v", err)
	}
	m.ProcessEvent(testEvent("boom"))

	if sink.count() != 1 {
		t.Errorf("Expected 1 reported error, got %d", sink.count())
	}
	if m.CurrentState() != a {
		t.Error("Expected machine to remain in last valid state")
	}
}

func TestMachine_HandlerPanicRecovered(t *testing.T) {
	sink := &recordSink{}
	m := New(sink)

	a := &testState{name: "a"}
	a.handlers = map[string]Handler{
		"boom": func(Event) (State, error) { panic("爆発") },
	}

	if err := m.SetInitialState(a); err != nil {
		t.Fatalf("SetInitialState failed: %v", err)
	}
	m.ProcessEvent(testEvent("boom"))

	if sink.count() != 1 {
		t.Errorf("Expected panic to be reported, got %d errors", sink.count())
	}
	if m.CurrentState() != a {
		t.Error("Expected machine to remain in last valid state after panic")
	}
}

func TestMachine_ReentrantEnqueue(t *testing.T) {
	sink := &recordSink{}
	m := New(sink)

	var processed []string
	a := &testState{name: "a"}
	a.handlers = map[string]Handler{
		"first": func(Event) (State, error) {
			processed = append(processed, "first")
			// ハンドラ内からの投入はキューに積まれ、後で処理される
			m.ProcessEvent(testEvent("second"))
			processed = append(processed, "first-done")
			return a, nil
		},
		"second": func(Event) (State, error) {
			processed = append(processed, "second")
			return a, nil
		},
	}

	if err := m.SetInitialState(a); err != nil {
		t.Fatalf("SetInitialState failed: %v", err)
	}
	m.ProcessEvent(testEvent("first"))

	want := []string{"first", "first-done", "second"}
	if len(processed) != len(want) {
		t.Fatalf("Expected %v, got %v", want, processed)
	}
	for i := range want {
		if processed[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, processed)
		}
	}
}

func TestMachine_SerializedDispatch(t *testing.T) {
	sink := &recordSink{}
	m := New(sink)

	var inFlight atomic.Int32
	var maxInFlight atomic.Int32
	var total atomic.Int32

	a := &testState{name: "a"}
	a.handlers = map[string]Handler{
		"tick": func(Event) (State, error) {
			n := inFlight.Add(1)
			if n > maxInFlight.Load() {
				maxInFlight.Store(n)
			}
			time.Sleep(100 * time.Microsecond)
			inFlight.Add(-1)
			total.Add(1)
			return a, nil
		},
	}

	if err := m.SetInitialState(a); err != nil {
		t.Fatalf("SetInitialState failed: %v", err)
	}

	// 複数の生産者から同時に投入する
	const producers = 8
	const perProducer = 20
	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				m.ProcessEvent(testEvent("tick"))
			}
		}()
	}
	wg.Wait()

	// キューの掃き出しが別ゴルーチンで続いている可能性があるので待つ
	deadline := time.After(2 * time.Second)
	for total.Load() < producers*perProducer {
		select {
		case <-deadline:
			t.Fatalf("Timed out: processed %d of %d", total.Load(), producers*perProducer)
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if maxInFlight.Load() != 1 {
		t.Errorf("Expected at most one event in flight, observed %d", maxInFlight.Load())
	}
}

func TestMachine_EnterReplacement(t *testing.T) {
	sink := &recordSink{}
	m := New(sink)

	c := &testState{name: "c"}
	b := &testState{name: "b"}
	b.onEnter = func() State { return c } // 入場に伴う即時の置き換え

	a := &testState{name: "a"}
	a.handlers = map[string]Handler{
		"go": func(Event) (State, error) { return b, nil },
	}

	if err := m.SetInitialState(a); err != nil {
		t.Fatalf("SetInitialState failed: %v", err)
	}
	m.ProcessEvent(testEvent("go"))

	if m.CurrentState() != c {
		t.Fatalf("Expected current state c, got %s", m.CurrentState().Name())
	}
	if b.tornDown != 1 {
		t.Errorf("Expected intermediate state torn down once, got %d", b.tornDown)
	}
}

func TestMachine_GenerationMonotonic(t *testing.T) {
	m := New(&recordSink{})

	g1 := m.NextGeneration()
	g2 := m.NextGeneration()
	if g2 <= g1 {
		t.Errorf("Expected monotonically increasing generations, got %d then %d", g1, g2)
	}
}
