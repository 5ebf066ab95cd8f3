package main

import (
	"context"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"modpanel/internal/bot"
	"modpanel/internal/config"
	"modpanel/internal/storage"
	"modpanel/internal/web"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if cfg.UsesFallbackSecret() {
		logger.Warn("SESSION_SECRET is not set; dashboard sessions are signed with a built-in key")
	}
	if cfg.OAuth.RedirectURI == "" {
		logger.Warn("DISCORD_REDIRECT_URI is not set; dashboard login is disabled")
	}

	store := storage.New()

	botSvc, err := bot.New(cfg, logger.Named("bot"), store)
	if err != nil {
		logger.Fatal("bot init failed", zap.Error(err))
	}
	if err := botSvc.Start(); err != nil {
		logger.Fatal("bot start failed", zap.Error(err))
	}
	logger.Info("bot started")

	sessions, err := web.NewSessionManager(cfg.Web.SessionSecret, cfg.SessionMaxAge(), strings.HasPrefix(cfg.OAuth.RedirectURI, "https://"))
	if err != nil {
		logger.Fatal("session init failed", zap.Error(err))
	}
	server := web.NewServer(store, botSvc.Discord(), web.NewDiscordAuthenticator(cfg.OAuth), sessions, logger.Named("web"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return server.ListenAndServe(groupCtx, cfg.Addr())
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutdown requested")
		return nil
	})

	if err := group.Wait(); err != nil {
		logger.Error("web server error", zap.Error(err))
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	botSvc.Close(closeCtx)
}
