package trigger

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Config は物理シャッターボタンの設定
type Config struct {
	Enabled      bool          `yaml:"enabled"`       // 監視を有効にするか
	Pin          int           `yaml:"pin"`           // 監視するGPIOピン(BCM)
	PollInterval time.Duration `yaml:"poll_interval"` // ポーリング間隔
	Debounce     time.Duration `yaml:"debounce"`      // チャタリング除去の最小間隔
	Mock         bool          `yaml:"mock"`          // モックドライバを使うか(開発用)
}

// DefaultConfig は既定のトリガー設定を返す
func DefaultConfig() Config {
	return Config{
		Enabled:      false,
		Pin:          17,
		PollInterval: 20 * time.Millisecond,
		Debounce:     200 * time.Millisecond,
		Mock:         true,
	}
}

// Watcher はGPIOピンをポーリングしてボタン押下を通知する
type Watcher struct {
	driver  Driver
	config  Config
	onPress func()

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewWatcher は新しいWatcherを作成する
// onPressは押下(立ち上がりエッジ)ごとに監視ゴルーチンから呼ばれる。
func NewWatcher(driver Driver, config Config, onPress func()) *Watcher {
	return &Watcher{
		driver:  driver,
		config:  config,
		onPress: onPress,
	}
}

// Start はボタンの監視を開始する
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("トリガーは既に開始されている")
	}

	if err := w.driver.SetupInput(w.config.Pin); err != nil {
		return fmt.Errorf("ピン %d の初期化に失敗: %w", w.config.Pin, err)
	}

	w.stopCh = make(chan struct{})
	w.running = true

	w.wg.Add(1)
	go w.watch(ctx, w.stopCh)
	return nil
}

// Stop はボタンの監視を停止する
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()

	w.wg.Wait()
}

// watch はピンをポーリングし、立ち上がりエッジを押下として通知する
func (w *Watcher) watch(ctx context.Context, stopCh chan struct{}) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	previous := Low
	var lastPress time.Time

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			level, err := w.driver.ReadPin(w.config.Pin)
			if err != nil {
				continue
			}

			// 立ち上がりエッジのみを押下として扱う
			if level == High && previous == Low {
				now := time.Now()
				if now.Sub(lastPress) >= w.config.Debounce {
					lastPress = now
					w.onPress()
				}
			}
			previous = level
		}
	}
}
