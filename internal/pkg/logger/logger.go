package logger

import (
	"log/slog"
	"os"
	"strings"
)

// NewDefault 创建默认的 slog Logger，输出到标准输出。
//
// level 取值: debug / info / warn / error，无法识别时回退为 info。
func NewDefault(level string) *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
