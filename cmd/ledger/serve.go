package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/everybank/ledger-service/internal/command"
	"github.com/everybank/ledger-service/internal/config"
	"github.com/everybank/ledger-service/internal/handler"
	"github.com/everybank/ledger-service/internal/query"
	"github.com/everybank/ledger-service/internal/repository"
	"github.com/everybank/ledger-service/internal/scheduler"
	"github.com/everybank/ledger-service/shared/events"
	"github.com/everybank/ledger-service/shared/middleware"
	redisClient "github.com/everybank/ledger-service/shared/redis"
	"github.com/everybank/ledger-service/shared/utils"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var (
	inMemory    bool
	migrateOnUp bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ledger HTTP service",
	Long: `Serve the ledger API on SERVER_PORT.

By default balances live in Postgres (DATABASE_URL), account views are cached
in Redis (REDIS_ADDR) and ledger events are published to LEDGER_EVENTS_STREAM.
With --in-memory the service keeps everything in process and needs neither.

Examples:
  ledger serve                 # Postgres + Redis
  ledger serve --migrate       # apply the schema first
  ledger serve --in-memory     # local development`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return runServe(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&inMemory, "in-memory", false, "Keep all state in process instead of Postgres and Redis")
	serveCmd.Flags().BoolVar(&migrateOnUp, "migrate", false, "Apply the ledger schema before serving")
}

func runServe(ctx context.Context, cfg *config.Config) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	clock := utils.SystemClock{Location: loc}

	var (
		store     repository.Store
		views     *repository.AccountReadRepository
		publisher command.EventPublisher
	)

	if inMemory {
		log.Println("Running with in-memory store; state is lost on exit")
		store = repository.NewMemoryStore()
		views = repository.NewUncachedAccountReadRepository(store)
	} else {
		// Database connection (write store)
		db, err := openDatabase(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		if migrateOnUp {
			if err := repository.Migrate(ctx, db); err != nil {
				return err
			}
		}

		// Redis connection (read model store + event streaming)
		redis, err := redisClient.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer redis.Close()

		store = repository.NewPostgresStore(db)
		views = repository.NewAccountReadRepository(store, redis, cfg.AccountViewTTL())
		publisher = events.NewPublisher(redis, cfg.LedgerEventsMaxLen)

		projector := query.NewAccountProjector(views)
		go func() {
			subscriber := events.NewSubscriber(redis, events.SubscriberConfig{
				Group:    "ledger-read-model-group",
				Consumer: consumerName(),
				Stream:   cfg.LedgerEventsStream,
				Handler:  projector.HandleLedgerEvent,
			})
			if err := subscriber.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("Subscriber stopped: %v", err)
			}
		}()
	}

	// --- CQRS wiring ---
	commandSvc := command.NewLedgerCommandService(store, publisher, cfg.LedgerEventsStream, clock)
	querySvc := query.NewLedgerQueryService(store, views, clock)

	ledgerHandler := handler.NewLedgerHandler(commandSvc)
	accountHandler := handler.NewAccountHandler(querySvc)

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	sweeper := scheduler.NewScheduler(commandSvc, logger, cfg.MaturitySweepSchedule, loc)
	if err := sweeper.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer func() { <-sweeper.Stop().Done() }()

	gin.SetMode(gin.ReleaseMode)
	router := handler.NewRouter(ledgerHandler, accountHandler, middleware.UserIdentity())
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Ledger service starting on port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

func consumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "ledger-consumer-1"
	}
	return "ledger-" + host
}
