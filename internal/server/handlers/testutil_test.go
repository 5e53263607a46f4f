package handlers

import (
	"io"
	"log/slog"
)

// setupTestLogger возвращает логгер, который никуда не пишет
func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
