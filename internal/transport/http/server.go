package http

import (
	"context"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"confessbot/internal/bot"
	"confessbot/internal/cache"
	"confessbot/internal/config"
	"confessbot/internal/database"
	"confessbot/internal/queue"
	"confessbot/internal/ratelimit"
	"confessbot/internal/redis"
	"confessbot/internal/repository"
	"confessbot/internal/service"
	"confessbot/internal/store"
	"confessbot/internal/worker"
)

// Run wires the whole application together and serves until a shutdown
// signal arrives.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	docs := store.NewPostgresStore(db)
	if err := docs.Migrate(context.Background()); err != nil {
		return fmt.Errorf("failed to migrate document store: %w", err)
	}

	rdb, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rdb.Close()
	if err := rdb.Ping(context.Background()); err != nil {
		return err
	}
	log.Println("Connected to Redis successfully")

	users := repository.NewUserRepository(docs)
	confessions := repository.NewConfessionRepository(docs)
	threads := repository.NewThreadRepository(docs)
	counters := repository.NewCounterRepository(docs)
	states := repository.NewStateRepository(docs)

	guard := ratelimit.NewRedisGuard(rdb.Client)
	leaderboard := cache.NewRedisLeaderboard(rdb.Client)
	publisher := queue.NewPublisher(rdb.Client)
	consumer := queue.NewConsumer(rdb.Client)

	profiles := service.NewProfileService(users, cfg.AdminIDs)
	confessionSvc := service.NewConfessionService(
		confessions, threads, users, counters, states, guard, publisher, cfg.AdminIDs)
	comments := service.NewCommentService(threads, confessions, users, guard, leaderboard, publisher)
	social := service.NewSocialService(users, publisher)
	discovery := service.NewDiscoveryService(confessions, threads, users, leaderboard)

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return fmt.Errorf("failed to create bot api: %w", err)
	}
	log.Printf("Authorized on bot account %s", api.Self.UserName)

	botUsername := cfg.BotUsername
	if botUsername == "" {
		botUsername = api.Self.UserName
	}
	notifier := bot.NewNotifier(api, cfg.ChannelID, botUsername)
	botRouter := bot.NewRouter(notifier, profiles, confessionSvc, comments, social, discovery, states)

	manager := worker.NewManager(
		consumer,
		worker.NewHandler(notifier, users, confessions, cfg.AdminIDs),
		worker.ManagerConfig{WorkerCount: cfg.WorkerCount},
	)
	if err := manager.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start notification workers: %w", err)
	}
	defer manager.Stop()

	router := NewRouter(RouterConfig{Bot: botRouter, Discovery: discovery})
	srv := &stdhttp.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on :%s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Printf("Received signal %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
