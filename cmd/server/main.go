package main

import (
	"log/slog"
	"os"

	"go-ocr-inventory/internal/app"
	"go-ocr-inventory/internal/logger"
)

func main() {
	// Until the configuration is loaded, log with the pretty handler.
	slog.SetDefault(logger.New(os.Stdout, "pretty", nil))

	application, err := app.New()
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}
