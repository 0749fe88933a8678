package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/YuvrajSatwan/QuizVerse-sub000/internal/app"
	"github.com/YuvrajSatwan/QuizVerse-sub000/internal/auth"
	"github.com/YuvrajSatwan/QuizVerse-sub000/internal/config"
	"github.com/YuvrajSatwan/QuizVerse-sub000/internal/domain"
	"github.com/YuvrajSatwan/QuizVerse-sub000/internal/infra/memory"
	pgloader "github.com/YuvrajSatwan/QuizVerse-sub000/internal/infra/postgres"
	redisinfra "github.com/YuvrajSatwan/QuizVerse-sub000/internal/infra/redis"
	transport "github.com/YuvrajSatwan/QuizVerse-sub000/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the live-quiz server",
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

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
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

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 6*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = pgloader.NewQuizLoader(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisinfra.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var store app.SessionRepository
	if redisClient != nil {
		store = redisinfra.NewSessionStore(redisClient, redisTTL)
	} else {
		store = memory.NewSessionStore()
	}

	secret := cfg.Auth.Secret
	if secret == "" {
		// Ephemeral secret: host tokens stop working across restarts, which
		// is acceptable for single-node dev runs but must be configured in
		// any real deployment.
		secret = randomSecret()
		log.Printf("auth.secret not configured, using an ephemeral secret")
	}
	issuer := auth.NewTokenIssuer(secret)

	sessionCfg := app.SessionConfig{
		AutoAdvance:      cfg.Quiz.AutoAdvance,
		AutoAdvanceDelay: config.TTLDuration(cfg.Quiz.AutoAdvanceDelay, 5*time.Second),
	}
	service := app.NewSessionService(store, quizRepo, issuer, sessionCfg)

	wsHandler := transport.NewWSHandler(service)
	restHandler := transport.NewRESTHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	restHandler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting live-quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func randomSecret() string {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// sampleQuizzes seeds the in-memory loader for dev runs without Postgres.
func sampleQuizzes() map[string]domain.QuizDefinition {
	return map[string]domain.QuizDefinition{
		"quiz-1": {
			ID:    "quiz-1",
			Title: "Warm-up",
			Questions: []domain.Question{
				{
					Text:         "What is 2 + 2?",
					Type:         domain.QuestionMultipleChoice,
					Options:      []string{"3", "4", "5"},
					CorrectIndex: 1,
					TimeLimitSec: 30,
				},
				{
					Text:         "The sky is blue.",
					Type:         domain.QuestionTrueFalse,
					CorrectIndex: 1,
					TimeLimitSec: 15,
				},
				{
					Text:         "Capital of France?",
					Type:         domain.QuestionWord,
					CorrectText:  "Paris",
					TimeLimitSec: 20,
				},
			},
		},
	}
}
