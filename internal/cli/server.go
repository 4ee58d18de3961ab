package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/config"
	"quiz-session-service/internal/engine"
	"quiz-session-service/internal/infra/memory"
	"quiz-session-service/internal/infra/postgres"
	infraredis "quiz-session-service/internal/infra/redis"
	"quiz-session-service/internal/logger"
	transport "quiz-session-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.Setup(cfg.Log.Level, cfg.Log.Format)

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	deps, cleanup, err := buildDeps(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	service := app.NewQuizService(
		deps.sessions, deps.questions, deps.history, deps.bookmarks, deps.settings,
		app.WithAutoAdvanceDelay(config.TTLDuration(cfg.Quiz.AutoAdvanceDelay, engine.DefaultAutoAdvanceDelay)),
		app.WithDefaultSettings(cfg.DefaultSettings()),
		app.WithLogger(log),
	)

	server := &http.Server{
		Addr: ":" + finalPort,
		Handler: transport.NewRouter(service, transport.RouterOptions{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Logger:         log,
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("starting quiz service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server...")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

type deps struct {
	sessions  app.SessionRepository
	questions app.QuestionRepository
	history   app.HistoryStore
	bookmarks app.BookmarkStore
	settings  app.SettingsStore
}

// buildDeps picks a backend per concern: Postgres when configured for topics and history,
// Redis for caching and per-user data, memory otherwise.
func buildDeps(ctx context.Context, cfg config.Config, log zerolog.Logger) (deps, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func() { _ = redisClient.Close() })
		log.Info().Str("addr", cfg.Redis.Addr).Msg("using redis")
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var loader memory.QuestionLoader = memory.NewCatalogLoader()
	var history app.HistoryStore = memory.NewHistoryStore(cfg.HistoryLimit())
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			cleanup()
			return deps{}, nil, err
		}
		closers = append(closers, pool.Close)

		db := postgres.OpenDB(cfg.Postgres.URL)
		closers = append(closers, func() { _ = db.Close() })

		// stored topics first, built-in catalog fills in the rest
		loader = memory.NewMergedLoader(postgres.NewTopicLoader(pool), memory.NewCatalogLoader())
		history = postgres.NewHistoryStore(db, cfg.HistoryLimit())
		log.Info().Msg("using postgres for topics and history")
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if redisClient != nil {
		d := deps{
			sessions:  infraredis.NewSessionStore(redisClient, redisTTL),
			questions: infraredis.NewQuestionRepository(redisClient, loader, quizTTL),
			history:   history,
			bookmarks: infraredis.NewBookmarkStore(redisClient),
			settings:  infraredis.NewSettingsStore(redisClient),
		}
		if cfg.Postgres.URL == "" {
			d.history = infraredis.NewHistoryStore(redisClient, cfg.HistoryLimit())
		}
		return d, cleanup, nil
	}
	return deps{
		sessions:  memory.NewSessionStore(),
		questions: memory.NewQuestionRepository(loader, quizTTL),
		history:   history,
		bookmarks: memory.NewBookmarkStore(),
		settings:  memory.NewSettingsStore(),
	}, cleanup, nil
}
