package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/screenq/screenq/internal/capture"
	"github.com/screenq/screenq/internal/config"
	"github.com/screenq/screenq/internal/history"
	"github.com/screenq/screenq/internal/launcher"
	"github.com/screenq/screenq/internal/logger"
	"github.com/screenq/screenq/internal/relay"
	"github.com/screenq/screenq/internal/server"
	"github.com/screenq/screenq/internal/sweeper"
	"github.com/screenq/screenq/internal/upload"
)

func init() {
	godotenv.Load()
}

func main() {
	apiKey := flag.String("api-key", "", "OpenRouter API key (overrides OPENROUTER_API_KEY)")
	model := flag.String("model", "", "chat model (overrides OPENROUTER_MODEL)")
	browserCmd := flag.String("browser", "", "browser command (overrides SCREENQ_BROWSER)")
	port := flag.Int("port", 0, "local endpoint port (overrides SCREENQ_PORT)")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	if *verbose {
		logger.SetDebug(true)
	}

	cfg, err := config.Load(config.Overrides{
		APIKey:  *apiKey,
		Model:   *model,
		Browser: *browserCmd,
		Port:    *port,
	})
	if err != nil {
		logger.Fatal("failed to load config", "error", err)
	}

	uploader := upload.New(upload.Config{
		Storage: upload.StorageConfig{
			Enabled:   cfg.Storage.Enabled,
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			UseSSL:    cfg.Storage.UseSSL,
		},
	})
	initCtx, cancelInit := context.WithTimeout(context.Background(), 10*time.Second)
	uploader.Init(initCtx)
	cancelInit()

	sessionID := strconv.FormatInt(time.Now().Unix(), 10)

	captureCtx, cancelCapture := context.WithTimeout(context.Background(), 30*time.Second)
	snap := capture.New(cfg.ScreenshotDir, uploader).Capture(captureCtx)
	cancelCapture()

	store := history.NewStore(cfg.HistoryDir)
	if err := store.Save(sessionID, history.Record{
		Timestamp: snap.CapturedAt,
		Context:   snap.ContextMap(),
	}); err != nil {
		logger.Error("failed to save session record", "session", sessionID, "error", err)
	}

	relayClient := relay.New(relay.Config{
		APIKey:           cfg.APIKey,
		BaseURL:          cfg.BaseURL,
		Model:            cfg.Model,
		MultimodalModels: cfg.MultimodalModels,
	})

	srv := server.New(server.Config{
		Relay:         relayClient,
		Store:         store,
		SessionID:     sessionID,
		ScreenshotDir: cfg.ScreenshotDir,
	})
	srv.SetContext(snap.ContextMap())

	if cfg.RetentionDays > 0 {
		sw := sweeper.New(cfg.RetentionDays, cfg.ScreenshotDir, cfg.HistoryDir)
		if err := sw.Start(); err != nil {
			logger.Error("failed to start sweeper", "error", err)
		} else {
			defer sw.Stop()
		}
	}

	addr := fmt.Sprintf("localhost:%d", cfg.Port)
	httpSrv := &http.Server{
		Addr:    addr,
		Handler: srv.Handler(),
	}

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("endpoint failed", "addr", addr, "error", err)
		}
	}()

	url := "http://" + addr
	logger.Info("screenq started",
		"session", sessionID,
		"model", cfg.Model,
		"url", url,
		"screenshot", snap.ScreenshotPath != "",
		"text", snap.Text != "",
	)

	launcher.Open(context.Background(), cfg.Browser, url)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down", "session", sessionID)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
