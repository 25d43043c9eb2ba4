package trigger

import "sync"

// MockDriver はテスト・開発用のGPIOドライバ実装
// SetLevelで任意のピン状態を再現できる。
type MockDriver struct {
	mu     sync.Mutex
	levels map[int]Level
	closed bool
}

// NewMockDriver は新しいMockDriverを作成する
func NewMockDriver() *MockDriver {
	return &MockDriver{levels: make(map[int]Level)}
}

// SetupInput はピンの初期化を記録する
func (d *MockDriver) SetupInput(pin int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.levels[pin]; !ok {
		d.levels[pin] = Low
	}
	return nil
}

// ReadPin は設定されたピン状態を返す
func (d *MockDriver) ReadPin(pin int) (Level, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.levels[pin], nil
}

// SetLevel はテスト用にピン状態を設定する
func (d *MockDriver) SetLevel(pin int, level Level) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.levels[pin] = level
}

// Close はドライバの解放を記録する
func (d *MockDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Closed はドライバが解放済みかを返す(検証用)
func (d *MockDriver) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
