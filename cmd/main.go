package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Divine-P-77777/studylocal/internal/api/handler"
	"github.com/Divine-P-77777/studylocal/internal/chathub"
	"github.com/Divine-P-77777/studylocal/internal/config"
	"github.com/Divine-P-77777/studylocal/internal/conversation"
	"github.com/Divine-P-77777/studylocal/internal/enrolment"
	"github.com/Divine-P-77777/studylocal/internal/localization"
	"github.com/Divine-P-77777/studylocal/internal/messages"
	"github.com/Divine-P-77777/studylocal/internal/storage"
	"github.com/Divine-P-77777/studylocal/internal/tasks"
	"github.com/Divine-P-77777/studylocal/internal/telegram"
	"github.com/Divine-P-77777/studylocal/internal/worker"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func setupLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.StandardLogger()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}
	if cfg.IsProduction() {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

// notifications wires the offline notification queue when both redis and a
// Telegram bot are configured. The returned stop function is never nil.
func notifications(cfg *config.Config, repo *storage.Service, presence worker.OnlineChecker, log *logrus.Logger) (chathub.OfflineNotifier, func()) {
	if cfg.TelegramBotToken == "" || !cfg.RedisEnabled() {
		log.Info("Offline notifications disabled")
		return nil, func() {}
	}

	bot, err := telegram.NewNotifier(cfg.TelegramBotToken)
	if err != nil {
		log.WithError(err).Error("Offline notifications disabled")
		return nil, func() {}
	}
	localizer, err := localization.Default()
	if err != nil {
		log.WithError(err).Fatal("Failed to load translations")
	}

	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	client := asynq.NewClient(redisOpt)
	srv := worker.NewWorkerServer(redisOpt, worker.NewOfflineMessageHandler(repo, presence, bot, localizer), log)
	go srv.Start()

	return tasks.NewNotifier(client, cfg.NotifyDelay), func() {
		srv.Shutdown()
		if err := client.Close(); err != nil {
			log.WithError(err).Warn("Failed to close task client")
		}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	log := setupLogger(cfg)
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	log.Info("Starting StudyLocal chat backend...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to open database")
	}
	rdb, err := storage.OpenRedis(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to open redis")
	}
	repo := storage.NewStorageService(db)
	store := messages.NewStore(repo)

	opts := chathub.Options{MaxRoomMembers: cfg.MaxRoomMembers}
	var onlineChecker worker.OnlineChecker
	if rdb != nil {
		presence := storage.NewPresence(rdb, cfg.KeyPrefix, config.PresenceTTL)
		opts.Presence = presence
		onlineChecker = presence
	}
	notifier, stopNotifications := notifications(cfg, repo, onlineChecker, log)
	opts.Notifier = notifier

	hub := chathub.NewManagerService(store, newBackplane(cfg, rdb), opts)
	hubCtx, stopHub := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		if err := hub.Run(hubCtx); err != nil {
			log.WithError(err).Fatal("Chat hub failed")
		}
	}()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), handler.LoggerMiddleware(log), handler.CORSMiddleware(cfg.AllowedOrigin))
	h := handler.NewHandler(hub, store, enrolment.NewService(repo), conversation.NewService(store, repo),
		repo, cfg.JWTSecret, cfg.AllowedOrigin)
	h.Routes(r)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server shutdown incomplete")
	}
	stopHub()
	<-hubDone
	stopNotifications()
	if rdb != nil {
		_ = rdb.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("Shutdown complete.")
}

func newBackplane(cfg *config.Config, rdb *redis.Client) chathub.Backplane {
	if cfg.Backplane == config.BackplaneRedis {
		return chathub.NewRedisBackplane(rdb, cfg.KeyPrefix)
	}
	return chathub.NewLocalBackplane()
}
