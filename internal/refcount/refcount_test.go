package refcount

import (
	"errors"
	"sync"
	"testing"
)

func TestRefCounted_Basic(t *testing.T) {
	closeCount := 0
	rc := New("resource", func(string) { closeCount++ })

	// 初期カウントは1
	if rc.Count() != 1 {
		t.Errorf("Expected initial count 1, got %d", rc.Count())
	}

	if rc.Value() != "resource" {
		t.Errorf("Expected value 'resource', got %s", rc.Value())
	}

	// Retainでカウントが増える
	if err := rc.Retain(); err != nil {
		t.Fatalf("Retain failed: %v", err)
	}
	if rc.Count() != 2 {
		t.Errorf("Expected count 2 after retain, got %d", rc.Count())
	}

	// 1回のReleaseではまだ解放されない
	if err := rc.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if closeCount != 0 {
		t.Errorf("Closer should not run while count > 0")
	}

	// 最後のReleaseで一度だけ解放される
	if err := rc.Release(); err != nil {
		t.Fatalf("Final release failed: %v", err)
	}
	if closeCount != 1 {
		t.Errorf("Expected closer to run exactly once, ran %d times", closeCount)
	}
	if !rc.Closed() {
		t.Error("Expected handle to be closed")
	}
}

func TestRefCounted_OverRelease(t *testing.T) {
	rc := New(1, nil)

	if err := rc.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	// 過剰なReleaseはエラーになる
	err := rc.Release()
	if !errors.Is(err, ErrOverReleased) {
		t.Errorf("Expected ErrOverReleased, got %v", err)
	}
}

func TestRefCounted_RetainAfterClose(t *testing.T) {
	rc := New(1, nil)

	if err := rc.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	// 解放後のRetainはエラーになる
	err := rc.Retain()
	if !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestRefCounted_NilCloser(t *testing.T) {
	rc := New("v", nil)

	// closerがnilでもReleaseは成功する
	if err := rc.Release(); err != nil {
		t.Fatalf("Release with nil closer failed: %v", err)
	}
}

func TestRefCounted_Concurrent(t *testing.T) {
	closeCount := 0
	rc := New(0, func(int) { closeCount++ })

	const n = 50
	for i := 0; i < n; i++ {
		if err := rc.Retain(); err != nil {
			t.Fatalf("Retain failed: %v", err)
		}
	}

	// 並行にReleaseしても解放は一度だけ
	var wg sync.WaitGroup
	for i := 0; i < n+1; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := rc.Release(); err != nil {
				t.Errorf("Release failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if closeCount != 1 {
		t.Errorf("Expected closer to run exactly once, ran %d times", closeCount)
	}
	if rc.Count() != 0 {
		t.Errorf("Expected count 0, got %d", rc.Count())
	}
}
