package stateful

import "log/slog"

// LogSink はエラーを構造化ログに記録するErrorSink実装
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink は新しいLogSinkを作成する
// loggerがnilの場合は既定のロガーを使う。
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Report はエラーをログに記録する
func (s *LogSink) Report(err error) {
	if err == nil {
		return
	}
	s.logger.Error("状態機械でエラーが発生した", "error", err)
}
