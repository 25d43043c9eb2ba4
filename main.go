// Package main はShunkanサーバーコマンドの実装です
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"shunkan/internal/camera"
	"shunkan/internal/config"
	"shunkan/internal/server"
	"shunkan/internal/trigger"
)

func main() {
	// コマンドラインオプション
	var (
		host       = flag.String("host", "", "サーバーのホスト (デフォルト: 0.0.0.0)")
		port       = flag.Int("port", 0, "サーバーのポート (デフォルト: 8080)")
		configPath = flag.String("config", "", "設定ファイル(YAML)のパス")
		mock       = flag.Bool("mock", false, "モックカメラを使用する(開発用)")
		help       = flag.Bool("help", false, "ヘルプを表示")
	)

	flag.Parse()

	// ヘルプ表示
	if *help {
		fmt.Println("Shunkan")
		fmt.Println()
		fmt.Println("使用方法:")
		fmt.Println("  shunkan [オプション]")
		fmt.Println()
		fmt.Println("オプション:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	// 設定を読み込む
	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// コマンドラインオプションで設定を上書き
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *mock {
		cfg.Camera.UseMock = true
	}

	// カメラのアクセスポイントを作成
	var accessPoint camera.AccessPoint
	if cfg.Camera.UseMock {
		log.Println("モックカメラを使用します")
		accessPoint = camera.NewMockAccessPoint()
	} else {
		accessPoint = camera.NewV4L2AccessPoint(
			cfg.Camera.BackDevice,
			cfg.Camera.FrontDevice,
			cfg.Intent.MaxZoomRatio,
		)
	}

	// サーバーを作成
	srv := server.New(cfg, accessPoint)

	// コンテキストを作成
	ctx := context.Background()

	// 物理シャッターボタンの監視を開始
	if cfg.Trigger.Enabled {
		driver, err := trigger.NewDriver(cfg.Trigger.Mock)
		if err != nil {
			log.Fatalf("GPIOドライバの初期化に失敗しました: %v", err)
		}
		defer driver.Close()

		watcher := trigger.NewWatcher(driver, cfg.Trigger, srv.PressShutter)
		if err := watcher.Start(ctx); err != nil {
			log.Fatalf("シャッターボタンの監視開始に失敗しました: %v", err)
		}
		defer watcher.Stop()
		log.Printf("シャッターボタンの監視を開始しました: GPIO %d", cfg.Trigger.Pin)
	}

	// サーバーを起動
	log.Printf("Shunkan サーバーを起動します: %s", cfg.ServerAddress())
	if err := srv.Start(ctx); err != nil {
		log.Fatalf("サーバーの起動に失敗しました: %v", err)
	}
}
