package admin

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/contestgen/internal/api/handlers"
	"github.com/cloo-solutions/contestgen/internal/api/middleware"
	"github.com/cloo-solutions/contestgen/internal/config"
	"github.com/cloo-solutions/contestgen/internal/jobs"
	"github.com/cloo-solutions/contestgen/internal/metrics"
	"github.com/cloo-solutions/contestgen/internal/repository"
	"github.com/cloo-solutions/contestgen/internal/server"
	"github.com/cloo-solutions/contestgen/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP service and weekly scheduler",
		Long: `Start the contest generator service. The weekly scheduler queues a
generation run every Sunday at 00:00 local time; POST /generate-now queues the
same run on demand and POST /generate/{subject} queues a single subject. A background worker runs queued jobs one at a time.`,
		RunE: runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

// app is the wired service, split from runServe so tests can build it
// without a listener or signal handling.
type app struct {
	router    http.Handler
	scheduler *jobs.Worker
	generator *jobs.Worker
	jobs      *repository.GenerationJobRepository
}

func buildApp(cfg *config.Config, pool *pgxpool.Pool, provider *llmProvider, m *metrics.Metrics) *app {
	chunkRepo := repository.NewChunkRepository(pool)
	jobRepo := repository.NewGenerationJobRepository(pool)

	pipeline := newPipeline(cfg, chunkRepo, provider, m)

	jobSvc := service.NewJobService(jobRepo, service.JobDefaults{
		Subjects: cfg.ScheduleSubjects,
		Topic:    cfg.ScheduleTopic,
		Count:    cfg.QuestionCount,
	})

	routerCfg := server.RouterConfig{
		JobHandler: handlers.NewJobHandler(jobSvc),
		Metrics:    m.Handler(),
		Database:   pool,
	}
	if cfg.TriggerToken != "" {
		routerCfg.TokenValidator = middleware.StaticToken{Token: cfg.TriggerToken}
	}

	return &app{
		router:    server.NewRouter(routerCfg),
		scheduler: jobs.NewWorker("scheduler", jobs.NewWeeklyTrigger(jobSvc, m), cfg.PollInterval),
		generator: jobs.NewWorker("generation", jobs.NewGenerationWorker(jobRepo, pipeline, cfg.JobTimeout, m), cfg.JobPollInterval),
		jobs:      jobRepo,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}

	shutdownTelemetry := initTelemetry(cfg)
	defer shutdownTelemetry()

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	pool, err := openDatabase(ctx, cfg, !noMigrate)
	if err != nil {
		return err
	}
	defer pool.Close()

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		return err
	}
	defer provider.Close()

	a := buildApp(cfg, pool, provider, metrics.New())

	// jobs left running by a previous process never finished
	if n, err := a.jobs.RequeueRunning(ctx); err != nil {
		return fmt.Errorf("failed to requeue interrupted jobs: %w", err)
	} else if n > 0 {
		log.Printf("requeued %d interrupted generation jobs", n)
	}

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()
	go a.scheduler.Start(workerCtx)
	go a.generator.Start(workerCtx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		cancelWorkers()
		a.scheduler.Stop()
		a.generator.Stop()
		return fmt.Errorf("server failed: %w", err)
	}
	log.Println("shutting down...")

	// an in-flight job is cancelled and records its partial outcome
	cancelWorkers()
	a.scheduler.Stop()
	a.generator.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}
