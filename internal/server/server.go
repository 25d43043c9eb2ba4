package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"shunkan/internal/camera"
	"shunkan/internal/captureintent"
	"shunkan/internal/config"
)

// intentEntry は1回の撮影インテントの一式(モジュール・UI・結末)
type intentEntry struct {
	module *captureintent.Module
	ui     *webUI

	mu     sync.Mutex
	done   chan struct{}
	result captureintent.Result
}

// awaitResult は結末の到着を待って保存する
func (e *intentEntry) awaitResult() {
	r := <-e.module.Result()
	e.mu.Lock()
	e.result = r
	e.mu.Unlock()
	close(e.done)
}

// finished はインテントが終端に達したかを返す
func (e *intentEntry) finished() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

// resultValue は保存済みの結末を返す
func (e *intentEntry) resultValue() (captureintent.Result, bool) {
	if !e.finished() {
		return captureintent.Result{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result, true
}

// Server はHTTPサーバーと撮影インテントを管理する構造体
type Server struct {
	config     *config.Config
	camera     camera.AccessPoint
	engine     *gin.Engine
	httpServer *http.Server

	mu    sync.Mutex
	entry *intentEntry
}

// New は新しいServerインスタンスを作成する
func New(cfg *config.Config, accessPoint camera.AccessPoint) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		config: cfg,
		camera: accessPoint,
		engine: engine,
		httpServer: &http.Server{
			Addr:         cfg.ServerAddress(),
			Handler:      engine,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}
	s.setupRoutes()
	return s
}

// Handler はルーティング済みのHTTPハンドラを返す(テスト用)
func (s *Server) Handler() http.Handler {
	return s.engine
}

// setupRoutes はHTTPルートを設定する
func (s *Server) setupRoutes() {
	// ヘルスチェックエンドポイント
	s.engine.GET("/health", s.handleHealth)

	// ルートハンドラ(簡単な確認用)
	s.engine.GET("/", s.handleRoot)

	// APIエンドポイント
	api := s.engine.Group("/api")
	api.GET("/status", s.handleStatus)
	api.POST("/intent", s.handleCreateIntent)

	intent := api.Group("/intent/:id")
	intent.GET("", s.handleGetIntent)
	intent.DELETE("", s.handleCancelIntent)
	intent.POST("/shutter", s.handleShutter)
	intent.POST("/shutter/cancel", s.handleCancelShutter)
	intent.POST("/confirm", s.handleConfirm)
	intent.POST("/retake", s.handleRetake)
	intent.POST("/switch", s.handleSwitchCamera)
	intent.POST("/zoom", s.handleZoom)
	intent.POST("/focus", s.handleFocus)
	intent.POST("/pause", s.handlePause)
	intent.POST("/resume", s.handleResume)
	intent.GET("/preview", s.handlePreview)
	intent.GET("/result", s.handleResult)
	intent.GET("/photo", s.handlePhoto)
}

// startIntent は新しい撮影インテントを開始する
// 進行中のインテントがある間は開始できない。
func (s *Server) startIntent(timerSeconds int) (*intentEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entry != nil && !s.entry.finished() {
		return nil, fmt.Errorf("撮影インテントは既に進行中")
	}
	if s.entry != nil {
		s.entry.module.Close()
	}

	ui := newWebUI()
	module, err := captureintent.New(&captureintent.Resources{
		Camera:      s.camera,
		UI:          ui,
		Settings:    captureintent.NewSettings(camera.FacingBack, timerSeconds),
		FrameWidth:  s.config.Camera.Width,
		FrameHeight: s.config.Camera.Height,
		FrameFPS:    s.config.Camera.FPS,
	})
	if err != nil {
		return nil, fmt.Errorf("インテントの作成に失敗: %w", err)
	}
	ui.bind(module)

	entry := &intentEntry{module: module, ui: ui, done: make(chan struct{})}
	go entry.awaitResult()

	// Webには物理的な表示面がないため、再開と同時に表示面ありとして進める
	module.OnResume()
	module.OnSurfaceAvailable(ui)

	s.entry = entry
	return entry, nil
}

// currentEntry は現在のインテント一式を返す(なければnil)
func (s *Server) currentEntry() *intentEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entry
}

// PressShutter は物理ボタンの押下を進行中のインテントへ転送する
// 進行中のインテントがなければ何もしない。
func (s *Server) PressShutter() {
	entry := s.currentEntry()
	if entry == nil || entry.finished() {
		return
	}
	entry.module.OnShutterTap()
}

// Start はサーバーを起動する
func (s *Server) Start(ctx context.Context) error {
	// シャットダウン用のチャンネル
	shutdownCh := make(chan error, 1)

	// サーバーを別ゴルーチンで起動
	go func() {
		log.Printf("HTTPサーバーを起動しています: %s", s.config.ServerAddress())
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			shutdownCh <- fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
	}()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// コンテキストかシグナルを待つ
	select {
	case <-ctx.Done():
		log.Println("コンテキストがキャンセルされました")
	case sig := <-sigCh:
		log.Printf("シグナルを受信しました: %v", sig)
	case err := <-shutdownCh:
		return err
	}

	// グレースフルシャットダウン
	return s.Shutdown()
}

// Shutdown はサーバーをグレースフルにシャットダウンする
// 進行中のインテントは破棄される。
func (s *Server) Shutdown() error {
	log.Println("サーバーをシャットダウンしています...")

	s.mu.Lock()
	if s.entry != nil {
		s.entry.module.Close()
		s.entry = nil
	}
	s.mu.Unlock()

	// 5秒のタイムアウトを設定
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("サーバーのシャットダウンに失敗: %w", err)
	}

	log.Println("サーバーが正常にシャットダウンされました")
	return nil
}
