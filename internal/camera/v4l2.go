package camera

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// captureWaitTimeout は撮影時に次のフレームを待つ最大時間
const captureWaitTimeout = 5 * time.Second

// V4L2AccessPoint はffmpeg/v4l2-ctlのサブプロセス経由のアクセスポイント実装
type V4L2AccessPoint struct {
	backDevice   string
	frontDevice  string
	maxZoomRatio float64
}

// NewV4L2AccessPoint は新しいV4L2AccessPointを作成する
// frontDeviceが空文字列の場合、前面カメラなしとして扱う。
func NewV4L2AccessPoint(backDevice, frontDevice string, maxZoomRatio float64) *V4L2AccessPoint {
	return &V4L2AccessPoint{
		backDevice:   backDevice,
		frontDevice:  frontDevice,
		maxZoomRatio: maxZoomRatio,
	}
}

// HardwareSpec はハードウェアの能力を返す
func (a *V4L2AccessPoint) HardwareSpec() Spec {
	return Spec{
		HasFrontCamera: a.frontDevice != "",
		HasFlash:       false, // V4L2のWebカメラにフラッシュはない
		MaxZoomRatio:   a.maxZoomRatio,
	}
}

// Open は指定された向きのカメラを非同期に開く
func (a *V4L2AccessPoint) Open(ctx context.Context, cfg Config, done func(Session, error)) {
	go func() {
		device := a.deviceFor(cfg.Facing)
		if device == "" {
			done(nil, fmt.Errorf("%w: 向き %s のデバイスが設定されていない", ErrDeviceUnavailable, cfg.Facing))
			return
		}

		// v4l2-ctlでデバイスの存在を確認する
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		check := exec.CommandContext(checkCtx, "v4l2-ctl", "--device", device, "--info")
		if err := check.Run(); err != nil {
			done(nil, fmt.Errorf("%w: %s の確認に失敗: %v", ErrDeviceUnavailable, device, err))
			return
		}

		sess := newV4L2Session(device, cfg)
		if err := sess.start(); err != nil {
			done(nil, fmt.Errorf("ストリーミングの開始に失敗: %w", err))
			return
		}
		done(sess, nil)
	}()
}

// deviceFor は向きに対応するデバイスパスを返す
func (a *V4L2AccessPoint) deviceFor(facing Facing) string {
	switch facing {
	case FacingFront:
		return a.frontDevice
	default:
		return a.backDevice
	}
}

// v4l2Session はffmpegのストリームを保持するセッション実装
type v4l2Session struct {
	device string
	cfg    Config

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
	frames chan []byte
	latest []byte
}

// newV4L2Session は新しいv4l2Sessionを作成する
func newV4L2Session(device string, cfg Config) *v4l2Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &v4l2Session{
		device: device,
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
		frames: make(chan []byte, 4),
	}
}

// start はffmpegによる連続キャプチャを開始する
func (s *v4l2Session) start() error {
	cmd := exec.CommandContext(s.ctx,
		"ffmpeg",
		"-f", "v4l2",
		"-video_size", fmt.Sprintf("%dx%d", s.cfg.Width, s.cfg.Height),
		"-r", strconv.Itoa(s.cfg.FPS),
		"-i", s.device,
		"-f", "image2pipe",
		"-c:v", "mjpeg",
		"-q:v", "3",
		"-",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdoutパイプの作成に失敗: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpegの起動に失敗: %w", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			_ = cmd.Wait() // キャンセル時のエラーは無視する
		}()

		buffer := make([]byte, 1024*1024)
		frameBuffer := bytes.Buffer{}

		for {
			select {
			case <-s.ctx.Done():
				return
			default:
				n, err := stdout.Read(buffer)
				if err != nil {
					return
				}
				frameBuffer.Write(buffer[:n])
				s.extractFrames(&frameBuffer)
			}
		}
	}()

	return nil
}

// extractFrames はバッファからJPEGマーカーで区切られたフレームを取り出す
func (s *v4l2Session) extractFrames(frameBuffer *bytes.Buffer) {
	data := frameBuffer.Bytes()
	for {
		// JPEGの開始マーカー(FF D8)を探す
		startIdx := bytes.Index(data, []byte{0xFF, 0xD8})
		if startIdx == -1 {
			return
		}

		// JPEGの終了マーカー(FF D9)を探す
		endIdx := bytes.Index(data[startIdx+2:], []byte{0xFF, 0xD9})
		if endIdx == -1 {
			// 完全なフレームがまだない
			if startIdx > 0 {
				rest := data[startIdx:]
				frameBuffer.Reset()
				frameBuffer.Write(rest)
			}
			return
		}

		endIdx += startIdx + 2 + 2 // マーカーのサイズを含める
		frame := make([]byte, endIdx-startIdx)
		copy(frame, data[startIdx:endIdx])
		s.deliverFrame(frame)

		remaining := data[endIdx:]
		frameBuffer.Reset()
		if len(remaining) == 0 {
			return
		}
		frameBuffer.Write(remaining)
		data = frameBuffer.Bytes()
	}
}

// deliverFrame はフレームを最新として保持しつつチャンネルに流す
// 消費が追いつかない場合は古いフレームを捨てる。
func (s *v4l2Session) deliverFrame(frame []byte) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.latest = frame
	s.mu.Unlock()

	select {
	case s.frames <- frame:
	default:
		select {
		case <-s.frames:
		default:
		}
		select {
		case s.frames <- frame:
		default:
		}
	}
}

// Device はデバイスパスを返す
func (s *v4l2Session) Device() string {
	return s.device
}

// Facing はカメラの向きを返す
func (s *v4l2Session) Facing() Facing {
	return s.cfg.Facing
}

// Frames はプレビューフレームのチャンネルを返す
func (s *v4l2Session) Frames() <-chan []byte {
	return s.frames
}

// SetZoom はv4l2-ctl経由でズームを設定する
// デバイスがzoom_absoluteをサポートしない場合はエラーを返す。
func (s *v4l2Session) SetZoom(ratio float64) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(s.ctx, 3*time.Second)
	defer cancel()

	value := int(ratio * 100)
	cmd := exec.CommandContext(ctx, "v4l2-ctl", "--device", s.device,
		"--set-ctrl", fmt.Sprintf("zoom_absolute=%d", value))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ズームの設定に失敗: %w", err)
	}
	return nil
}

// Focus はオートフォーカスの再実行を非同期に要求する
// V4L2では任意座標のフォーカスは表現できないため、連続AFの再有効化で代替する。
func (s *v4l2Session) Focus(_, _ float64, done func(error)) {
	go func() {
		ctx, cancel := context.WithTimeout(s.ctx, 3*time.Second)
		defer cancel()

		cmd := exec.CommandContext(ctx, "v4l2-ctl", "--device", s.device,
			"--set-ctrl", "focus_automatic_continuous=1")
		// AF非対応のデバイスでは失敗するが、フォーカス完了として扱う
		_ = cmd.Run()
		done(nil)
	}()
}

// Capture はストリームの次のフレームを静止画として非同期に取得する
// ストリーミング中のデバイスを別プロセスで開き直すと競合するため、
// 同じストリームから取り出す。
func (s *v4l2Session) Capture(done func(*Photo, error)) {
	go func() {
		deadline := time.After(captureWaitTimeout)
		var frame []byte

		select {
		case f, ok := <-s.frames:
			if !ok {
				done(nil, ErrSessionClosed)
				return
			}
			frame = f
		case <-deadline:
			// フレームが流れてこない場合は保持している最新フレームで代替する
			s.mu.Lock()
			frame = s.latest
			s.mu.Unlock()
			if frame == nil {
				done(nil, fmt.Errorf("撮影に失敗: フレームを取得できない"))
				return
			}
		case <-s.ctx.Done():
			done(nil, ErrSessionClosed)
			return
		}

		done(&Photo{
			ID:       uuid.New().String(),
			Data:     frame,
			MimeType: "image/jpeg",
			Facing:   s.cfg.Facing,
			TakenAt:  time.Now(),
			Width:    s.cfg.Width,
			Height:   s.cfg.Height,
		}, nil)
	}()
}

// Close はセッションを閉じる(冪等)
func (s *v4l2Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	return nil
}
