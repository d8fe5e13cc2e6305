package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/odvcencio/roomhub/internal/generation"
	"github.com/odvcencio/roomhub/internal/telemetry"
	"github.com/odvcencio/roomhub/internal/validation"
	"github.com/odvcencio/roomhub/internal/worker"
)

var workerQueueDriver string

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the validation/generation worker pools",
	RunE:  runWorker,
}

func init() {
	workerCmd.Flags().StringVar(&workerQueueDriver, "queue-driver", "redis", "queue store backend: redis or memory")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	shutdownTracing, err := initTelemetry(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer shutdownTracing(context.Background())

	reg := telemetry.NewRegistry()

	store, err := openQueueStore(cfg, workerQueueDriver)
	if err != nil {
		return err
	}
	qs := bootQueues(cfg, store, reg)

	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	hostname, _ := os.Hostname()
	workerID := fmt.Sprintf("%s-%d", hostname, os.Getpid())

	outputDir := func(jobID string) string {
		return filepath.Join(cfg.Generation.OutputDir, jobID)
	}

	rt := &worker.Runtime{
		WorkerID:           workerID,
		ValidationQueue:    qs.Validation,
		ValidationResolver: validation.NewResolver(db),
		Validator:          worker.NewInProcessValidator(),
		ValidationWorkers:  cfg.Generation.ValidationWorkers,

		GenerationQueue:    qs.Generation,
		GenerationResolver: generation.NewResolver(db, outputDir),
		Generator:          worker.NewExecGeneratorExecutor(cfg.Generation.BinaryPath, nil, loggerFor("generator")),
		GenerationWorkers:  cfg.Generation.GenerationWorkers,
		OutputDir:          outputDir,
		Log:                loggerFor("worker"),
	}

	if err := rt.ProcessOrphans(ctx, cfg.Queue.ClaimTTL); err != nil {
		log.Printf("orphan replay failed: %v", err)
	}

	log.Printf("roomhub worker: %d validation / %d generation slots", cfg.Generation.ValidationWorkers, cfg.Generation.GenerationWorkers)
	if err := rt.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("worker runtime: %w", err)
	}
	return nil
}
