// Package logger はサービス全体で使うJSON構造化ログの初期化を提供する。
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Setup はJSON構造化ログのslog.Loggerを生成して返す。
// アカウント解決や識別子リンクの記録をログ基盤で集計できるよう、
// 出力形式は常にJSONとする。
func Setup(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// SetupDefault はJSON構造化ログをプロセス全体のデフォルトロガーとして設定する。
// writerがnilの場合はos.Stdoutに出力する（コンテナ運用での標準）。
func SetupDefault(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	slog.SetDefault(Setup(w))
}
