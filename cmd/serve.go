package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ateesdalejr/podlistener/api"
	"github.com/ateesdalejr/podlistener/api/types"
	"github.com/ateesdalejr/podlistener/internal/database"
	"github.com/ateesdalejr/podlistener/internal/models"
	"github.com/ateesdalejr/podlistener/internal/services/detection"
	"github.com/ateesdalejr/podlistener/internal/services/enrichment"
	"github.com/ateesdalejr/podlistener/internal/services/episodes"
	"github.com/ateesdalejr/podlistener/internal/services/feedparse"
	"github.com/ateesdalejr/podlistener/internal/services/feeds"
	"github.com/ateesdalejr/podlistener/internal/services/jobs"
	"github.com/ateesdalejr/podlistener/internal/services/keywords"
	"github.com/ateesdalejr/podlistener/internal/services/mentions"
	"github.com/ateesdalejr/podlistener/internal/services/settings"
	"github.com/ateesdalejr/podlistener/internal/services/transcriber"
	"github.com/ateesdalejr/podlistener/internal/services/workers"
	"github.com/ateesdalejr/podlistener/pkg/download"
)

var (
	serverHost string
	serverPort int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the server",
	Long: `Start the Podlistener server with the configured settings.

This runs everything in one process: the HTTP API, the job queue
workers that poll feeds and process episodes, and the scheduler that
keeps the polling cadence.

Example:
  podlistener serve
  podlistener serve --port 9090
  podlistener serve --host 0.0.0.0 --port 8080`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host (overrides config)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (overrides config)")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if serverHost == "" {
		serverHost = cfg.Server.Host
	}
	if serverPort == 0 {
		serverPort = cfg.Server.Port
	}

	db, err := database.Initialize(cfg.Database.Path, cfg.Database.Verbose)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := migrateModels(db); err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Audio.Dir, 0o755); err != nil {
		return fmt.Errorf("creating audio staging dir: %w", err)
	}

	// Services
	feedService := feeds.NewService(feeds.NewRepository(db.DB))
	episodeService := episodes.NewService(episodes.NewRepository(db.DB))
	keywordService := keywords.NewService(keywords.NewRepository(db.DB))
	mentionService := mentions.NewService(mentions.NewRepository(db.DB))
	settingService := settings.NewService(db.DB)
	jobService := jobs.NewService(jobs.NewRepository(db.DB))

	// Transcription calls are the expensive stage; meter them at the queue
	jobService.SetTaskRateLimit(models.TaskTranscribeEpisode, cfg.Transcription.RatePerMinute)

	// Stage clients
	parser := feedparse.New(cfg.Download.UserAgent)
	downloader := download.NewDownloader(download.Options{
		MaxBytes:  cfg.Download.MaxBytes,
		Timeout:   cfg.Download.Timeout,
		UserAgent: cfg.Download.UserAgent,
	})
	transcriptionClient := transcriber.NewClient(cfg.Transcription, settingService)
	enricher := enrichment.NewClient(cfg.LLM)
	detector := detection.New()

	phraseLookup := func(ctx context.Context, keywordID string) (string, error) {
		keyword, err := keywordService.GetKeyword(ctx, keywordID)
		if err != nil {
			return "", err
		}
		return keyword.Phrase, nil
	}

	// Worker pool with one processor per pipeline stage
	pool := workers.NewWorkerPool(jobService, cfg.Queue.Workers, cfg.Queue.PollInterval)
	pool.RegisterProcessor(workers.NewPollProcessor(feedService, episodeService, jobService, parser, cfg.Poller))
	pool.RegisterProcessor(workers.NewProcessEpisodeProcessor(jobService))
	pool.RegisterProcessor(workers.NewDownloadProcessor(episodeService, jobService, downloader, cfg.Audio.Dir))
	pool.RegisterProcessor(workers.NewTranscriptionProcessor(episodeService, jobService, transcriptionClient, cfg.Transcription, cfg.Audio.Dir))
	pool.RegisterProcessor(workers.NewKeywordsProcessor(episodeService, keywordService, jobService, detector))
	pool.RegisterProcessor(workers.NewEnrichmentProcessor(episodeService, mentionService, phraseLookup, enricher, cfg.Audio.Dir))

	scheduler := workers.NewScheduler(jobService, cfg.Poller.Interval, cfg.Queue.RetentionDays)

	// HTTP server
	server := api.NewServer(fmt.Sprintf("%s:%d", serverHost, serverPort))
	server.SetDependencies(&types.Dependencies{
		DB:             db,
		FeedService:    feedService,
		EpisodeService: episodeService,
		KeywordService: keywordService,
		MentionService: mentionService,
		SettingService: settingService,
		JobService:     jobService,
		WorkerPool:     pool,
	})
	if err := server.Initialize(); err != nil {
		return fmt.Errorf("initializing server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	if err := pool.Start(groupCtx); err != nil {
		return fmt.Errorf("starting worker pool: %w", err)
	}

	group.Go(func() error {
		err := scheduler.Run(groupCtx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	})

	group.Go(func() error {
		fmt.Printf("Podlistener listening on %s:%d\n", serverHost, serverPort)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		fmt.Println("\nShutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		pool.Stop()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		return err
	}

	fmt.Println("Server gracefully stopped")
	return nil
}

// migrateModels applies the GORM schema for every persisted model.
func migrateModels(db *database.DB) error {
	if err := db.AutoMigrate(
		&models.Feed{},
		&models.Episode{},
		&models.Keyword{},
		&models.Mention{},
		&models.Job{},
		&models.AppSetting{},
	); err != nil {
		return fmt.Errorf("migrating database schema: %w", err)
	}
	return nil
}
