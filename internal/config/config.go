package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"shunkan/internal/trigger"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server  ServerConfig   `yaml:"server"`
	Camera  CameraConfig   `yaml:"camera"`
	Intent  IntentConfig   `yaml:"intent"`
	Trigger trigger.Config `yaml:"trigger"`
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string `yaml:"host"` // リッスンするホスト
	Port int    `yaml:"port"` // リッスンするポート番号

	// タイムアウト設定
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // 読み込みタイムアウト
	WriteTimeout time.Duration `yaml:"write_timeout"` // 書き込みタイムアウト
}

// CameraConfig はカメラ関連の設定
type CameraConfig struct {
	BackDevice  string `yaml:"back_device"`  // 背面カメラのデバイスパス
	FrontDevice string `yaml:"front_device"` // 前面カメラのデバイスパス(空なら前面なし)

	Width  int `yaml:"width"`  // 画像幅
	Height int `yaml:"height"` // 画像高さ
	FPS    int `yaml:"fps"`    // フレームレート

	UseMock bool `yaml:"use_mock"` // モックカメラを使うか(開発用)
}

// IntentConfig は撮影インテントの既定設定
type IntentConfig struct {
	TimerSeconds int     `yaml:"timer_seconds"`  // セルフタイマー秒数(0で無効)
	MaxZoomRatio float64 `yaml:"max_zoom_ratio"` // 最大ズーム倍率
}

// Load は設定を読み込む
// 環境変数による上書きを含む既定値を返す。
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvAsIntOrDefault("PORT", 8080),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 0, // ストリーミング用にタイムアウト無効化
		},
		Camera: CameraConfig{
			BackDevice:  getEnvOrDefault("CAMERA_BACK_DEVICE", "/dev/video0"),
			FrontDevice: getEnvOrDefault("CAMERA_FRONT_DEVICE", ""),
			Width:       1280,
			Height:      720,
			FPS:         15,
			UseMock:     os.Getenv("CAMERA_USE_MOCK") == "1",
		},
		Intent: IntentConfig{
			TimerSeconds: getEnvAsIntOrDefault("INTENT_TIMER_SECONDS", 0),
			MaxZoomRatio: 4.0,
		},
		Trigger: trigger.DefaultConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}
	return cfg, nil
}

// LoadFile はYAMLファイルから設定を読み込み、既定値に上書きする
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("設定ファイルの解析に失敗: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}
	return cfg, nil
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("無効なポート番号: %d", c.Server.Port)
	}

	if !c.Camera.UseMock && c.Camera.BackDevice == "" {
		return fmt.Errorf("背面カメラのデバイスパスが設定されていない")
	}

	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("無効な解像度: %dx%d", c.Camera.Width, c.Camera.Height)
	}

	if c.Camera.FPS <= 0 || c.Camera.FPS > 60 {
		return fmt.Errorf("無効なFPS値: %d", c.Camera.FPS)
	}

	if c.Intent.TimerSeconds < 0 {
		return fmt.Errorf("無効なタイマー秒数: %d", c.Intent.TimerSeconds)
	}

	if c.Intent.MaxZoomRatio < 1.0 {
		return fmt.Errorf("無効な最大ズーム倍率: %f", c.Intent.MaxZoomRatio)
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}
