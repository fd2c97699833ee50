package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/urian121/gemini-ai-chat-api/chat/config"
	"github.com/urian121/gemini-ai-chat-api/chat/controllers"
	"github.com/urian121/gemini-ai-chat-api/chat/routes"
	"github.com/urian121/gemini-ai-chat-api/chat/services/gemini"
	"github.com/urian121/gemini-ai-chat-api/chat/sources/psql"
	"github.com/urian121/gemini-ai-chat-api/chat/sources/psql/dao"
	"github.com/urian121/gemini-ai-chat-api/chat/utils/logging"
)

func main() {
	logging.InitLogger()
	cfg := config.LoadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := psql.NewDatabase(ctx, cfg)
	if err != nil {
		logging.ErrorLogger.Error("database connection error", zap.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	conversationDAO := dao.NewConversationDAO(db.DB)
	messageDAO := dao.NewMessageDAO(db.DB)
	geminiClient := gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiAPIURL)

	chatCtrl := controllers.NewChatController(conversationDAO, messageDAO, geminiClient)
	healthCtrl := controllers.NewHealthController()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	// outlasts the 60s Gemini client timeout
	r.Use(middleware.Timeout(90 * time.Second))

	r.Mount("/health", routes.HealthRoutes(healthCtrl))
	r.Mount("/", routes.ChatRoutes(chatCtrl))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}
	go func() {
		logging.AppLogger.Info("server listening", zap.String("port", cfg.Port))
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
