package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"ig-oauth-service/infrastructure/cache"
	"ig-oauth-service/infrastructure/clients/instagram"
	"ig-oauth-service/infrastructure/configuration"
	"ig-oauth-service/infrastructure/logger"
	"ig-oauth-service/infrastructure/persistence"
	"ig-oauth-service/infrastructure/pubsub"
	"ig-oauth-service/infrastructure/realtime"
	"ig-oauth-service/infrastructure/servicebus"
	httpHandler "ig-oauth-service/interfaces/http"
	"ig-oauth-service/server"
	"ig-oauth-service/usecase"
)

var httpServer *http.Server

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	// Env files never override variables already set by the OS.
	configuration.LoadEnvFromFile("config.env", ".env")

	cfg := configuration.C

	db, err := persistence.NewPostgreSQLDB()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Cannot connect to PostgreSQL")
		os.Exit(1)
	}
	defer db.Close()
	if err := persistence.EnsureSchema(db); err != nil {
		logger.GetLogger().WithField("error", err).Error("Schema initialization failed")
		os.Exit(1)
	}

	redisClient, _ := cache.NewCache(
		ctx,
		fmt.Sprintf("%s:%s", cfg.RedisClient.Host, cfg.RedisClient.Port),
		cfg.RedisClient.Username,
		cfg.RedisClient.Password,
	)
	quotaCache := cache.NewQuotaCache(redisClient)

	pubSubClient := pubsub.NewPubSubClient(ctx, cfg.Pubsub.ProjectID)
	attemptTopic := cfg.Pubsub.AttemptTopic
	if attemptTopic == "" {
		attemptTopic = "post-attempts"
	}

	azServiceBusClient, err := servicebus.NewServiceBus(ctx, cfg.ServiceBus.Namespace)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Azure Service Bus not available - continuing without Service Bus features")
		azServiceBusClient = nil
	}
	attemptQueue := cfg.ServiceBus.AttemptQueue
	if attemptQueue == "" {
		attemptQueue = "post-attempts"
	}

	attemptHub := realtime.NewAttemptHub()

	graphClient := instagram.NewClient(&instagram.Config{
		AppID:       cfg.OAuth.Facebook.ClientID,
		AppSecret:   cfg.OAuth.Facebook.ClientSecret,
		RedirectURI: cfg.OAuth.Facebook.RedirectURI,
	})

	accountRepository := persistence.NewInstagramAccountRepository(db)
	licenseRepository := persistence.NewLicenseRepository(db)
	attemptRepository := persistence.NewPostAttemptRepository(db)
	userRepository := persistence.NewUserRepository(db)

	oauthUsecase := usecase.NewOAuthUsecase(graphClient, accountRepository)
	licenseUsecase := usecase.NewLicenseUsecase(licenseRepository, userRepository, attemptRepository)
	publishUsecase := usecase.NewPublishUsecase(
		graphClient,
		accountRepository,
		attemptRepository,
		quotaCache,
		time.Duration(cfg.Publish.PollIntervalSeconds)*time.Second,
		cfg.Publish.MaxPollAttempts,
		pubsub.NewAttemptPublisher(pubSubClient, attemptTopic),
		servicebus.NewAttemptPublisher(azServiceBusClient, attemptQueue),
		attemptHub,
	)
	scheduler := usecase.NewTokenScheduler(
		graphClient,
		accountRepository,
		time.Duration(cfg.Scheduler.CheckIntervalHours)*time.Hour,
		cfg.Scheduler.RefreshBeforeDays,
		time.Duration(cfg.Scheduler.RefreshDelaySeconds)*time.Second,
	)
	scheduler.Start()
	defer scheduler.Stop()

	authHandler := httpHandler.NewAuthHandler(graphClient, oauthUsecase)
	postHandler := httpHandler.NewPostHandler(publishUsecase, licenseUsecase)
	tokenHandler := httpHandler.NewTokenHandler(scheduler)
	licenseHandler := httpHandler.NewLicenseHandler(licenseUsecase)

	router := server.InitiateRouter(authHandler, postHandler, tokenHandler, licenseHandler, licenseUsecase, attemptHub)

	port := cfg.App.Port
	logger.GetLogger().WithField("port", port).Info("Starting application")
	g.Go(func() error {
		httpServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Application shutdown requested")
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}
	scheduler.Stop()

	if err := g.Wait(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}
