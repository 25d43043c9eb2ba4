package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shunkan/internal/camera"
	"shunkan/internal/config"
)

// testConfig はテスト用の設定を作成する
func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:         "127.0.0.1",
			Port:         0, // ランダムポートを使用
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 0,
		},
		Camera: config.CameraConfig{
			Width:   1280,
			Height:  720,
			FPS:     15,
			UseMock: true,
		},
		Intent: config.IntentConfig{
			TimerSeconds: 0,
			MaxZoomRatio: 4.0,
		},
	}
}

// testServer はモックカメラを備えたサーバーを作成する
func testServer() (*Server, *camera.MockAccessPoint) {
	ap := camera.NewMockAccessPoint()
	return New(testConfig(), ap), ap
}

// doRequest はテスト用のHTTPリクエストを実行する
func doRequest(srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewBuffer(data)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

// createIntent はインテントを作成してレスポンスを返す
func createIntent(t *testing.T, srv *Server) IntentResponse {
	t.Helper()

	rec := doRequest(srv, http.MethodPost, "/api/intent", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201 for intent creation, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp IntentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse intent response: %v", err)
	}
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := testServer()

	rec := doRequest(srv, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse health response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("Expected status healthy, got %s", resp.Status)
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv, _ := testServer()

	// インテントなしの状態
	rec := doRequest(srv, http.MethodGet, "/api/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var resp StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse status response: %v", err)
	}
	if resp.Intent != nil {
		t.Errorf("Expected no intent, got %+v", resp.Intent)
	}

	// インテント作成後はIDと状態が載る
	intent := createIntent(t, srv)
	rec = doRequest(srv, http.MethodGet, "/api/status", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse status response: %v", err)
	}
	if resp.Intent == nil || resp.Intent.ID != intent.ID {
		t.Errorf("Expected intent %s in status, got %+v", intent.ID, resp.Intent)
	}
}

func TestCreateIntent(t *testing.T) {
	srv, _ := testServer()

	// モックは即時完了するため、作成時点でプレビューまで進んでいる
	intent := createIntent(t, srv)
	if intent.State != "preview_ready" {
		t.Errorf("Expected state preview_ready, got %s", intent.State)
	}
	if !intent.UI.ShutterEnabled {
		t.Error("Expected shutter to be enabled")
	}
}

func TestCreateIntent_Conflict(t *testing.T) {
	srv, _ := testServer()
	createIntent(t, srv)

	// 進行中のインテントがある間は作成できない
	rec := doRequest(srv, http.MethodPost, "/api/intent", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 for second intent, got %d", rec.Code)
	}
}

func TestCreateIntent_ReplacesFinished(t *testing.T) {
	srv, _ := testServer()
	intent := createIntent(t, srv)

	// キャンセルで終端に達したら新しいインテントを作成できる
	rec := doRequest(srv, http.MethodDelete, "/api/intent/"+intent.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204 for cancel, got %d", rec.Code)
	}

	// 結末の確定を待ってから作り直す
	doRequest(srv, http.MethodGet, "/api/intent/"+intent.ID+"/result", nil)

	second := createIntent(t, srv)
	if second.ID == intent.ID {
		t.Error("Expected a fresh intent ID after cancellation")
	}
}

func TestIntentNotFound(t *testing.T) {
	srv, _ := testServer()
	createIntent(t, srv)

	rec := doRequest(srv, http.MethodGet, "/api/intent/unknown-id", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown intent, got %d", rec.Code)
	}
}

func TestShutterConfirmFlow(t *testing.T) {
	srv, _ := testServer()
	intent := createIntent(t, srv)
	base := "/api/intent/" + intent.ID

	// シャッター: モックは即時に撮影が完了し、確認画面へ進む
	rec := doRequest(srv, http.MethodPost, base+"/shutter", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 for shutter, got %d", rec.Code)
	}

	var resp IntentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse shutter response: %v", err)
	}
	if resp.State != "photo_reviewing" {
		t.Fatalf("Expected state photo_reviewing after shutter, got %s", resp.State)
	}
	if !resp.UI.ReviewShown {
		t.Error("Expected review photo to be shown")
	}

	// 確認画面の写真を取得できる
	rec = doRequest(srv, http.MethodGet, base+"/photo", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for review photo, got %d", rec.Code)
	}

	// 承認で終端に達する
	rec = doRequest(srv, http.MethodPost, base+"/confirm", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 for confirm, got %d", rec.Code)
	}

	// 結末は承認済み
	rec = doRequest(srv, http.MethodGet, base+"/result", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 for result, got %d", rec.Code)
	}

	var result ResultResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to parse result response: %v", err)
	}
	if result.Outcome != "confirmed" {
		t.Errorf("Expected outcome confirmed, got %s", result.Outcome)
	}
	if !result.HasPhoto {
		t.Error("Expected result to carry a photo")
	}

	// 承認済みの写真を取得できる
	rec = doRequest(srv, http.MethodGet, base+"/photo", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for confirmed photo, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Expected image/jpeg, got %s", ct)
	}
}

func TestRetakeFlow(t *testing.T) {
	srv, _ := testServer()
	intent := createIntent(t, srv)
	base := "/api/intent/" + intent.ID

	doRequest(srv, http.MethodPost, base+"/shutter", nil)

	// 撮り直しでプレビューに戻る
	rec := doRequest(srv, http.MethodPost, base+"/retake", nil)
	var resp IntentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse retake response: %v", err)
	}
	if resp.State != "preview_ready" {
		t.Errorf("Expected state preview_ready after retake, got %s", resp.State)
	}
	if resp.UI.ReviewShown {
		t.Error("Expected review to be hidden after retake")
	}
}

func TestCancelIntent(t *testing.T) {
	srv, _ := testServer()
	intent := createIntent(t, srv)
	base := "/api/intent/" + intent.ID

	rec := doRequest(srv, http.MethodDelete, base, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204 for cancel, got %d", rec.Code)
	}

	rec = doRequest(srv, http.MethodGet, base+"/result", nil)
	var result ResultResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to parse result response: %v", err)
	}
	if result.Outcome != "cancelled" {
		t.Errorf("Expected outcome cancelled, got %s", result.Outcome)
	}
	if result.HasPhoto {
		t.Error("Expected no photo for cancelled intent")
	}
}

func TestZoomEndpoint(t *testing.T) {
	srv, ap := testServer()
	intent := createIntent(t, srv)
	base := "/api/intent/" + intent.ID

	rec := doRequest(srv, http.MethodPost, base+"/zoom", map[string]any{"ratio": 2.0})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 for zoom, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := ap.LastSession().Zoom(); got != 2.0 {
		t.Errorf("Expected zoom 2.0 applied to session, got %f", got)
	}

	// ボディなしは400
	rec = doRequest(srv, http.MethodPost, base+"/zoom", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing ratio, got %d", rec.Code)
	}
}

func TestFocusEndpoint(t *testing.T) {
	srv, _ := testServer()
	intent := createIntent(t, srv)
	base := "/api/intent/" + intent.ID

	// モックはフォーカスを即時完了し、プレビューに戻る
	rec := doRequest(srv, http.MethodPost, base+"/focus", map[string]any{"x": 0.5, "y": 0.5})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 for focus, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp IntentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse focus response: %v", err)
	}
	if resp.State != "preview_ready" {
		t.Errorf("Expected state preview_ready after focus, got %s", resp.State)
	}

	// 範囲外の座標は400
	rec = doRequest(srv, http.MethodPost, base+"/focus", map[string]any{"x": 1.5, "y": 0.5})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for out-of-range focus, got %d", rec.Code)
	}
}

func TestPauseResume(t *testing.T) {
	srv, _ := testServer()
	intent := createIntent(t, srv)
	base := "/api/intent/" + intent.ID

	rec := doRequest(srv, http.MethodPost, base+"/pause", nil)
	var resp IntentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse pause response: %v", err)
	}
	if resp.State != "background" {
		t.Errorf("Expected state background after pause, got %s", resp.State)
	}

	rec = doRequest(srv, http.MethodPost, base+"/resume", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse resume response: %v", err)
	}
	if resp.State != "preview_ready" {
		t.Errorf("Expected state preview_ready after resume, got %s", resp.State)
	}
}

func TestPressShutter(t *testing.T) {
	srv, _ := testServer()

	// インテントがなければ何も起きない
	srv.PressShutter()

	intent := createIntent(t, srv)
	srv.PressShutter()

	rec := doRequest(srv, http.MethodGet, "/api/intent/"+intent.ID, nil)
	var resp IntentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse intent response: %v", err)
	}
	if resp.State != "photo_reviewing" {
		t.Errorf("Expected state photo_reviewing after hardware press, got %s", resp.State)
	}
}

// TestServerStartAndShutdown はサーバーの起動とシャットダウンをテストする
func TestServerStartAndShutdown(t *testing.T) {
	srv, _ := testServer()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	// サーバーが起動するまで少し待つ
	time.Sleep(100 * time.Millisecond)

	// コンテキストをキャンセルしてサーバーを停止
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Server start/stop failed: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Timed out waiting for server shutdown")
	}
}
