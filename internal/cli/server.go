package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"course-assessment-service/internal/app"
	"course-assessment-service/internal/catalog"
	"course-assessment-service/internal/config"
	"course-assessment-service/internal/infra/memory"
	inframinio "course-assessment-service/internal/infra/minio"
	"course-assessment-service/internal/infra/postgres"
	"course-assessment-service/internal/infra/rabbitmq"
	infraredis "course-assessment-service/internal/infra/redis"
	"course-assessment-service/internal/render"
	transport "course-assessment-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the assessment server",
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
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 2*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	quizzes, err := catalog.Load(cfg.Quiz.Catalog)
	if err != nil {
		return err
	}
	var loader memory.QuizLoader = memory.NewStaticQuizLoader(quizzes)
	if pool != nil {
		loader = postgres.NewQuizLoader(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = infraredis.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var store app.SessionRepository
	if redisClient != nil {
		store = infraredis.NewSessionStore(redisClient, redisTTL)
	} else {
		store = memory.NewSessionStore()
	}

	var history app.HistoryStore
	switch {
	case pool != nil:
		history = postgres.NewHistoryStore(pool)
	case redisClient != nil:
		history = infraredis.NewHistoryStore(redisClient)
	default:
		log.Println("no postgres or redis configured, history is kept in memory")
		history = memory.NewHistoryStore()
	}

	publisher, err := rabbitmq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
	if err != nil {
		return err
	}
	defer publisher.Close()

	documents := render.NewDocumentBuilder(cfg.Server.PublicBaseURL)
	var artifacts render.ArtifactStore
	if cfg.MinIO.Endpoint != "" {
		artifacts, err = inframinio.NewArtifactStore(ctx, inframinio.Config{
			Endpoint:        cfg.MinIO.Endpoint,
			AccessKeyID:     cfg.MinIO.AccessKeyID,
			SecretAccessKey: cfg.MinIO.SecretAccessKey,
			Bucket:          cfg.MinIO.Bucket,
			Region:          cfg.MinIO.Region,
			UseSSL:          cfg.MinIO.UseSSL,
			PresignExpiry:   config.TTLDuration(cfg.MinIO.PresignExpiry, 7*24*time.Hour),
		})
		if err != nil {
			return err
		}
	}

	renderer := render.NewRenderer(documents, artifacts)
	issuer := app.NewIssuer(history,
		app.WithRenderer(renderer),
		app.WithNotifier(publisher),
		app.WithRetry(cfg.History.Retries, config.TTLDuration(cfg.History.RetryInterval, 200*time.Millisecond)),
	)
	service := app.NewAssessmentService(store, quizRepo, history, issuer,
		app.WithDocuments(documents),
		app.WithArtifacts(renderer),
		app.WithRecordTimeout(config.TTLDuration(cfg.Session.RecordTimeout, 30*time.Second)),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", transport.NewWSHandler(service).ServeWS)
	transport.NewAPIHandler(service).Register(mux)
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting assessment service on :%s", finalPort)
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
