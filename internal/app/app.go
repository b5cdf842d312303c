package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/text/language"

	"go-ocr-inventory/internal/config"
	"go-ocr-inventory/internal/confirm"
	"go-ocr-inventory/internal/controller"
	"go-ocr-inventory/internal/event"
	"go-ocr-inventory/internal/grouping"
	"go-ocr-inventory/internal/handler"
	"go-ocr-inventory/internal/logger"
	"go-ocr-inventory/internal/ocrclient"
	"go-ocr-inventory/internal/router"
	"go-ocr-inventory/internal/status"
	"go-ocr-inventory/internal/websocket"
)

const downloadRoute = "/api/v1/files/download"

type App struct {
	server       *http.Server
	controller   *controller.Controller
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := new(slog.LevelVar)
	if parsed, levelErr := cfg.SlogLevel(); levelErr == nil {
		level.Set(parsed)
	}
	slog.SetDefault(logger.New(os.Stdout, cfg.LogFormat, level))

	locale := language.Und
	if cfg.GroupLocale != "" {
		locale, err = language.Parse(cfg.GroupLocale)
		if err != nil {
			return nil, fmt.Errorf("invalid GROUP_LOCALE %q: %w", cfg.GroupLocale, err)
		}
	}

	confirmations, err := confirm.NewService(cfg.ConfirmSecret, cfg.ConfirmTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize delete confirmations: %w", err)
	}
	if cfg.ConfirmSecret == "" {
		slog.Warn("CONFIRM_SECRET not set, confirmation tokens will not survive a restart")
	}

	bus := event.NewBus()
	backend := ocrclient.New(ocrclient.Config{
		BaseURL:       cfg.BackendURL,
		Timeout:       cfg.BackendTimeout,
		UploadTimeout: cfg.BackendUploadTimeout,
	})

	inventory := controller.New(backend, controller.Options{
		Grouping:  grouping.Options{Separator: cfg.GroupSeparator, Language: locale},
		Extension: cfg.AcceptedExtension,
		StatusPolicy: status.Policy{
			ErrorTTL:   cfg.StatusErrorTTL,
			SuccessTTL: cfg.StatusSuccessTTL,
			InfoTTL:    cfg.StatusInfoTTL,
		},
		PollInterval: cfg.PollInterval,
		Bus:          bus,
	})

	hub := websocket.NewHub(bus)
	hubCtx, hubCancel := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	appRouter := router.New(cfg, router.Handlers{
		Documents: handler.NewDocumentsHandler(inventory, confirmations, downloadRoute),
		Upload:    handler.NewUploadHandler(inventory, cfg.MaxUploadSize),
		Status:    handler.NewStatusHandler(inventory, backend, cfg.BackendTimeout),
		Download:  handler.NewDownloadHandler(backend),
		Events:    handler.NewEventsHandler(hub, inventory, cfg.CORSOrigins),
		Docs:      handler.NewDocsHandler(),
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	slog.Info("configuration loaded",
		"backend", backend.BaseURL(),
		"poll_interval", cfg.PollInterval,
		"extension", cfg.AcceptedExtension,
		"log_level", level.Level().String(),
	)

	return &App{
		server:     server,
		controller: inventory,
		cleanupFuncs: []func(){
			inventory.Unmount,
			hubCancel,
		},
	}, nil
}

func (a *App) Run() error {
	if err := a.controller.Mount(context.Background()); err != nil {
		return err
	}

	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
