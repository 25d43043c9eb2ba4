// Package trigger GPIO接続の物理シャッターボタンを監視する
//
// # 責務
// - GPIOピンのポーリングによるボタン押下の検出
// - チャタリング除去(デバウンス)
// - 押下のコールバック通知
//
// # 前提要件
//   - Raspberry Pi上での実行(実ドライバ使用時)
//   - /dev/gpiomemへのアクセス権限
package trigger

import (
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"
)

// Level はGPIOピンの論理状態を表す
type Level bool

const (
	Low  Level = false // 低電位
	High Level = true  // 高電位
)

// Driver はGPIOの読み取りを抽象化するインターフェース
// 実機(Raspberry Pi)用とテスト・開発用のモックを差し替えられる。
type Driver interface {
	// SetupInput はピンを入力(プルダウン)として初期化する
	SetupInput(pin int) error

	// ReadPin はピンの現在の論理状態を読む
	ReadPin(pin int) (Level, error)

	// Close はドライバを解放する
	Close() error
}

// NewDriver は設定に応じたGPIOドライバを作成する
// mockがtrueの場合はMockDriverを返す(PC上での開発・テスト用)。
func NewDriver(mock bool) (Driver, error) {
	if mock {
		return NewMockDriver(), nil
	}
	return NewRPiDriver()
}

// RPiDriver はgo-rpioを使ったRaspberry Pi向けの実装
type RPiDriver struct {
	pins map[int]rpio.Pin
}

// NewRPiDriver は実機用のGPIOドライバを作成する
func NewRPiDriver() (*RPiDriver, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("GPIOのオープンに失敗(Raspberry Pi上で実行しているか確認): %w", err)
	}
	return &RPiDriver{pins: make(map[int]rpio.Pin)}, nil
}

// SetupInput はピンを入力(プルダウン)として初期化する
func (d *RPiDriver) SetupInput(pin int) error {
	p := rpio.Pin(pin)
	p.Input()
	p.PullDown()
	d.pins[pin] = p
	return nil
}

// ReadPin はピンの現在の論理状態を読む
func (d *RPiDriver) ReadPin(pin int) (Level, error) {
	p, ok := d.pins[pin]
	if !ok {
		if err := d.SetupInput(pin); err != nil {
			return Low, err
		}
		p = d.pins[pin]
	}
	if p.Read() == rpio.High {
		return High, nil
	}
	return Low, nil
}

// Close はピンを安全な状態(入力)に戻してGPIOを解放する
func (d *RPiDriver) Close() error {
	for _, p := range d.pins {
		p.Input()
	}
	return rpio.Close()
}
