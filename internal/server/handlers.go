package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shunkan/internal/captureintent"
)

// HealthResponse はヘルスチェックのレスポンス
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusResponse はシステム状態のレスポンス
type StatusResponse struct {
	Status    string      `json:"status"`
	Server    ServerInfo  `json:"server"`
	Intent    *IntentInfo `json:"intent,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ServerInfo はサーバーの待ち受け情報
type ServerInfo struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// IntentInfo は撮影インテントの概要
type IntentInfo struct {
	ID       string `json:"id"`
	State    string `json:"state"`
	Finished bool   `json:"finished"`
}

// IntentResponse は撮影インテントの詳細レスポンス
type IntentResponse struct {
	ID        string                      `json:"id"`
	State     string                      `json:"state"`
	UI        UIState                     `json:"ui"`
	BottomBar captureintent.BottomBarSpec `json:"bottom_bar"`
	Timestamp time.Time                   `json:"timestamp"`
}

// ResultResponse は撮影インテントの結末レスポンス
type ResultResponse struct {
	Outcome  string `json:"outcome"`
	Reason   string `json:"reason,omitempty"`
	PhotoID  string `json:"photo_id,omitempty"`
	HasPhoto bool   `json:"has_photo"`
}

// ErrorResponse はエラーレスポンス
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// createIntentRequest はインテント作成リクエストのボディ(省略可)
type createIntentRequest struct {
	TimerSeconds *int `json:"timer_seconds"`
}

// zoomRequest はズーム変更リクエストのボディ
type zoomRequest struct {
	Ratio float64 `json:"ratio" binding:"required"`
}

// focusRequest はフォーカス要求リクエストのボディ
type focusRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// layoutRequest はプレビュー領域サイズのボディ
type layoutRequest struct {
	Width  int `json:"width" binding:"required"`
	Height int `json:"height" binding:"required"`
}

// handleHealth はヘルスチェックエンドポイント
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

// handleStatus はシステム状態取得エンドポイント
func (s *Server) handleStatus(c *gin.Context) {
	response := StatusResponse{
		Status: "running",
		Server: ServerInfo{
			Host: s.config.Server.Host,
			Port: s.config.Server.Port,
		},
		Timestamp: time.Now(),
	}

	if entry := s.currentEntry(); entry != nil {
		response.Intent = &IntentInfo{
			ID:       entry.module.ID(),
			State:    entry.module.StateName(),
			Finished: entry.finished(),
		}
	}

	c.JSON(http.StatusOK, response)
}

// handleCreateIntent は撮影インテント開始エンドポイント
// 進行中のインテントがある場合は409を返す。
func (s *Server) handleCreateIntent(c *gin.Context) {
	timerSeconds := s.config.Intent.TimerSeconds
	var req createIntentRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.TimerSeconds != nil {
		timerSeconds = *req.TimerSeconds
	}

	entry, err := s.startIntent(timerSeconds)
	if err != nil {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:     "intent_in_progress",
			Message:   err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	c.JSON(http.StatusCreated, s.intentResponse(entry))
}

// handleGetIntent は撮影インテントの状態取得エンドポイント
func (s *Server) handleGetIntent(c *gin.Context) {
	entry := s.lookupEntry(c)
	if entry == nil {
		return
	}
	c.JSON(http.StatusOK, s.intentResponse(entry))
}

// handleCancelIntent はインテント全体のキャンセルエンドポイント
func (s *Server) handleCancelIntent(c *gin.Context) {
	entry := s.lookupEntry(c)
	if entry == nil {
		return
	}
	entry.module.OnCancelIntentTap()
	c.Status(http.StatusNoContent)
}

// handleShutter はシャッタータップエンドポイント
func (s *Server) handleShutter(c *gin.Context) {
	entry := s.lookupEntry(c)
	if entry == nil {
		return
	}
	entry.module.OnShutterTap()
	c.JSON(http.StatusOK, s.intentResponse(entry))
}

// handleCancelShutter はカウントダウンキャンセルエンドポイント
func (s *Server) handleCancelShutter(c *gin.Context) {
	entry := s.lookupEntry(c)
	if entry == nil {
		return
	}
	entry.module.OnCancelShutterTap()
	c.JSON(http.StatusOK, s.intentResponse(entry))
}

// handleConfirm は確認画面での承認エンドポイント
func (s *Server) handleConfirm(c *gin.Context) {
	entry := s.lookupEntry(c)
	if entry == nil {
		return
	}
	entry.module.OnConfirmPhotoTap()
	c.JSON(http.StatusOK, s.intentResponse(entry))
}

// handleRetake は確認画面での撮り直しエンドポイント
// 撮り直しは表示面の準備からやり直すため、仮想表示面を改めて通知する。
func (s *Server) handleRetake(c *gin.Context) {
	entry := s.lookupEntry(c)
	if entry == nil {
		return
	}
	entry.module.OnRetakePhotoTap()
	entry.module.OnSurfaceAvailable(entry.ui)
	c.JSON(http.StatusOK, s.intentResponse(entry))
}

// handleSwitchCamera はカメラ切り替えエンドポイント
func (s *Server) handleSwitchCamera(c *gin.Context) {
	entry := s.lookupEntry(c)
	if entry == nil {
		return
	}
	entry.module.OnSwitchCameraTap()
	c.JSON(http.StatusOK, s.intentResponse(entry))
}

// handleZoom はズーム変更エンドポイント
func (s *Server) handleZoom(c *gin.Context) {
	entry := s.lookupEntry(c)
	if entry == nil {
		return
	}

	var req zoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:     "invalid_request",
			Message:   "ズーム倍率(ratio)が必要です",
			Timestamp: time.Now(),
		})
		return
	}

	entry.module.OnZoomChanged(req.Ratio)
	c.JSON(http.StatusOK, s.intentResponse(entry))
}

// handleFocus はフォーカス要求エンドポイント
// 座標は0.0〜1.0の正規化座標で受け取る。
func (s *Server) handleFocus(c *gin.Context) {
	entry := s.lookupEntry(c)
	if entry == nil {
		return
	}

	var req focusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:     "invalid_request",
			Message:   "フォーカス座標(x, y)が必要です",
			Timestamp: time.Now(),
		})
		return
	}
	if req.X < 0 || req.X > 1 || req.Y < 0 || req.Y > 1 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:     "invalid_request",
			Message:   fmt.Sprintf("座標は0.0〜1.0で指定してください: (%f, %f)", req.X, req.Y),
			Timestamp: time.Now(),
		})
		return
	}

	entry.module.OnPreviewTap(req.X, req.Y)
	c.JSON(http.StatusOK, s.intentResponse(entry))
}

// handlePause はライフサイクル一時停止エンドポイント
func (s *Server) handlePause(c *gin.Context) {
	entry := s.lookupEntry(c)
	if entry == nil {
		return
	}
	entry.module.OnPause()
	c.JSON(http.StatusOK, s.intentResponse(entry))
}

// handleResume はライフサイクル再開エンドポイント
// 表示面は常にあるものとして扱うため、再開と同時に表示面ありを通知する。
func (s *Server) handleResume(c *gin.Context) {
	entry := s.lookupEntry(c)
	if entry == nil {
		return
	}
	entry.module.OnResume()
	entry.module.OnSurfaceAvailable(entry.ui)
	c.JSON(http.StatusOK, s.intentResponse(entry))
}

// handlePreview はプレビューのMJPEGストリーミングエンドポイント
func (s *Server) handlePreview(c *gin.Context) {
	entry := s.lookupEntry(c)
	if entry == nil {
		return
	}

	// レスポンスヘッダーを設定
	c.Header("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")

	writer := c.Writer
	flusher, ok := writer.(http.Flusher)
	if !ok {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	frameChan, cancel := entry.ui.Subscribe()
	defer cancel()

	// クライアント切断を検知するためのコンテキスト
	clientGone := c.Request.Context().Done()

	// ストリーミングループ
	for {
		select {
		case <-clientGone:
			// クライアントが切断された
			return

		case <-entry.done:
			// インテントが終端に達した
			return

		case frame, ok := <-frameChan:
			if !ok {
				return
			}

			// MJPEGフレームを書き込み
			if _, err := writer.Write([]byte("--frame\r\n")); err != nil {
				return
			}
			if _, err := writer.Write([]byte("Content-Type: image/jpeg\r\n\r\n")); err != nil {
				return
			}
			if _, err := writer.Write(frame); err != nil {
				return
			}
			if _, err := writer.Write([]byte("\r\n")); err != nil {
				return
			}

			// バッファをフラッシュ
			flusher.Flush()
		}
	}
}

// handleResult は結末取得エンドポイント
// 終端状態に達するまでブロックする。
func (s *Server) handleResult(c *gin.Context) {
	entry := s.lookupEntry(c)
	if entry == nil {
		return
	}

	select {
	case <-c.Request.Context().Done():
		return
	case <-entry.done:
	}

	result, _ := entry.resultValue()
	response := ResultResponse{
		Outcome:  string(result.Outcome),
		Reason:   result.Reason,
		HasPhoto: result.Photo != nil,
	}
	if result.Photo != nil {
		response.PhotoID = result.Photo.ID
	}
	c.JSON(http.StatusOK, response)
}

// handlePhoto は写真取得エンドポイント
// 承認済みの写真、なければ確認表示中の写真を返す。
func (s *Server) handlePhoto(c *gin.Context) {
	entry := s.lookupEntry(c)
	if entry == nil {
		return
	}

	photo := entry.ui.ReviewPhoto()
	if result, ok := entry.resultValue(); ok && result.Photo != nil {
		photo = result.Photo
	}
	if photo == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:     "photo_not_found",
			Message:   "写真はまだありません",
			Timestamp: time.Now(),
		})
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, photo.MimeType, photo.Data)
}

// handleRoot はルートパスのハンドラ
func (s *Server) handleRoot(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, `<!DOCTYPE html>
<html lang="ja">
<head>
    <meta charset="UTF-8">
    <title>Shunkan - 撮影インテントサービス</title>
</head>
<body>
    <h1>Shunkan 撮影インテントサービス</h1>
    <p>サーバーが正常に起動しています。</p>
    <p>ステータス: <a href="/api/status">/api/status</a></p>
    <p>ヘルスチェック: <a href="/health">/health</a></p>
</body>
</html>`)
}

// ヘルパー関数

// lookupEntry はパスのIDに一致する進行中のインテントを返す
// 見つからない場合は404を書き込んでnilを返す。
func (s *Server) lookupEntry(c *gin.Context) *intentEntry {
	entry := s.currentEntry()
	if entry == nil || entry.module.ID() != c.Param("id") {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:     "intent_not_found",
			Message:   "指定された撮影インテントが見つかりません",
			Timestamp: time.Now(),
		})
		return nil
	}
	return entry
}

// intentResponse はインテントの詳細レスポンスを組み立てる
func (s *Server) intentResponse(entry *intentEntry) IntentResponse {
	return IntentResponse{
		ID:        entry.module.ID(),
		State:     entry.module.StateName(),
		UI:        entry.ui.State(),
		BottomBar: entry.module.BottomBarSpec(),
		Timestamp: time.Now(),
	}
}
