package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-relay/auth"
	"chat-relay/bus"
	"chat-relay/cache"
	transport "chat-relay/infrastructure/http"
	"chat-relay/internal"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/search"
	"chat-relay/services"
	"chat-relay/subscriptions"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components and manages the server lifecycle. The
// pattern keeps defers running on every exit path and keeps main itself
// trivially small.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Store of record (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Shared resources: metrics, cache, bus, search index
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	cacheStore, err := cache.NewBadgerCache(log, metrics, config.CacheTTL)
	if err != nil {
		return fmt.Errorf("cache opening failed: %w", err)
	}
	defer cacheStore.Close()

	notificationBus := bus.NewBus(log, metrics)
	defer notificationBus.Close()

	index, err := search.OpenMessageIndex(config.BlugeFilepath, log)
	if err != nil {
		return fmt.Errorf("search index opening failed: %w", err)
	}
	defer index.Close()

	// 4. Repositories & moderation
	users := repositories.NewUserRepository(db)
	rooms, err := repositories.NewRoomRepository(db)
	if err != nil {
		return fmt.Errorf("room repository failed: %w", err)
	}
	defer rooms.Close()
	messages := repositories.NewMessageRepository(db, log)

	bannedWords, err := internal.LoadBannedWords(config.BannedWordsPath)
	if err != nil {
		return fmt.Errorf("banned words loading failed: %w", err)
	}
	moderator, err := moderation.NewModerator(bannedWords, internal.CensoredRune(config.CensoredChar))
	if err != nil {
		return fmt.Errorf("moderator setup failed: %w", err)
	}

	// 5. Services
	tokens := auth.NewTokenManager(config.TokenSecret, config.AuthTokenDuration)
	queryService := services.NewQueryService(log, users, rooms, messages, cacheStore, index)
	mutationService := services.NewMutationService(log, users, rooms, messages,
		cacheStore, notificationBus, &moderator, index)
	authService := services.NewAuthService(log, users, tokens, cacheStore)
	subscriptionService := subscriptions.NewService(log, notificationBus)

	health, err := observability.NewHealthReporter()
	if err != nil {
		return fmt.Errorf("health reporter failed: %w", err)
	}

	// 6. HTTP server
	server := transport.NewServer(log, tokens,
		transport.NewQueryHandler(queryService),
		transport.NewMutationHandler(mutationService),
		transport.NewAuthHandler(authService),
		transport.NewSubscriptionHandler(log, subscriptionService),
		health, registry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := server.Start(address); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("Forced shutdown", "error", err)
	}
	log.Info("Program stopped cleanly")
	return nil
}
