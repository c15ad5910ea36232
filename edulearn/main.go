package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"edulearn/edulearn/bootstrap"
	"edulearn/edulearn/config"
	"edulearn/edulearn/controllers"
	"edulearn/edulearn/routes"
	"edulearn/edulearn/utils/logging"

	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()
	if err := logging.InitLogger(cfg.LogDir); err != nil {
		os.Stderr.WriteString("logger init failed: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logging.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	stack, err := bootstrap.New(ctx, cfg)
	if err != nil {
		logging.ErrorLogger.Error("startup error", zap.Error(err))
		os.Exit(1)
	}
	defer stack.Close()

	registry := stack.NewRegistry()
	var exports controllers.ExportUploader
	if stack.Exports != nil {
		exports = stack.Exports
	}
	authCtrl := controllers.NewAuthController(registry, cfg)
	chatCtrl := controllers.NewChatController(registry, exports)
	healthCtrl := controllers.NewHealthController(cfg.Backend, registry)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: routes.NewRouter(cfg, authCtrl, chatCtrl, healthCtrl),
	}
	go func() {
		logging.AppLogger.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("backend", cfg.Backend),
			zap.String("generator", cfg.Generator),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.ErrorLogger.Error("server listen error", zap.Error(err))
		}
	}()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.ErrorLogger.Error("server shutdown error", zap.Error(err))
	}
	logging.AppLogger.Info("server shutdown complete")
}
