// Package worker implements spec.md's worker-side driver: claim loops over
// both the validation and generation queues, bounded in-flight
// concurrency, and the seams (ValidatorExecutor/GeneratorExecutor) that
// turn a claimed job into a terminal result.
package worker

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/odvcencio/roomhub/internal/generation"
	"github.com/odvcencio/roomhub/internal/queue"
	"github.com/odvcencio/roomhub/internal/validation"
)

const defaultPollInterval = 250 * time.Millisecond

// Runtime drives claim loops for both queues with bounded concurrency,
// generalizing gothub's internal/jobs.WorkerPool (fixed worker count, one
// job type) into two independently sized pools sharing one process.
type Runtime struct {
	WorkerID string

	ValidationQueue    *queue.Queue[validation.Params, validation.Result]
	ValidationResolver queue.Resolver[validation.Result]
	Validator          ValidatorExecutor
	ValidationWorkers  int

	GenerationQueue    *queue.Queue[generation.Params, generation.Result]
	GenerationResolver queue.Resolver[generation.Result]
	Generator          GeneratorExecutor
	GenerationWorkers  int
	// OutputDir maps a generation job_id to its `{generation_output_dir}/
	// {job_id}/` directory, the same func generation.NewResolver needs.
	OutputDir func(jobID string) string

	PollInterval time.Duration
	Log          *slog.Logger
}

// Run starts both claim loop pools and blocks until ctx is cancelled or a
// pool's claim loop returns a non-context error.
func (rt *Runtime) Run(ctx context.Context) error {
	log := rt.Log
	if log == nil {
		log = slog.Default()
	}
	poll := rt.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}

	g, ctx := errgroup.WithContext(ctx)

	if rt.ValidationWorkers > 0 {
		sem := semaphore.NewWeighted(int64(rt.ValidationWorkers))
		g.Go(func() error {
			return runValidationClaimLoop(ctx, rt, sem, poll, log)
		})
	}
	if rt.GenerationWorkers > 0 {
		sem := semaphore.NewWeighted(int64(rt.GenerationWorkers))
		g.Go(func() error {
			return runGenerationClaimLoop(ctx, rt, sem, poll, log)
		})
	}

	return g.Wait()
}

func runValidationClaimLoop(ctx context.Context, rt *Runtime, sem *semaphore.Weighted, poll time.Duration, log *slog.Logger) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil
		}

		descriptor, ok, err := rt.ValidationQueue.Claim(ctx, rt.WorkerID)
		if err != nil {
			sem.Release(1)
			log.ErrorContext(ctx, "validation claim failed", "error", err)
			if !sleepOrDone(ctx, poll) {
				return nil
			}
			continue
		}
		if !ok {
			sem.Release(1)
			if !sleepOrDone(ctx, poll) {
				return nil
			}
			continue
		}

		go func() {
			defer sem.Release(1)
			processValidationJob(ctx, rt, descriptor, log)
		}()
	}
}

func processValidationJob(ctx context.Context, rt *Runtime, descriptor queue.JobDescriptor[validation.Params], log *slog.Logger) {
	jobCtx := queue.ContextWithOTLPContext(ctx, descriptor.OTLPContext)

	result := rt.Validator.Execute(jobCtx, descriptor.Params)
	result.SubmittedAt = descriptor.SubmittedAt
	status := queue.StatusSuccess
	if result.Error != "" {
		status = queue.StatusFailure
	}

	ok, err := rt.ValidationQueue.Resolve(jobCtx, descriptor.JobID, rt.WorkerID, status, result)
	if err != nil {
		log.ErrorContext(jobCtx, "validation resolve failed", "job_id", descriptor.JobID, "error", err)
		return
	}
	if !ok {
		log.WarnContext(jobCtx, "validation job already resolved elsewhere", "job_id", descriptor.JobID)
		return
	}

	jobResult := queue.JobResult[validation.Result]{Status: status, Result: result}
	if err := rt.ValidationResolver.Resolve(jobCtx, descriptor.JobID, jobResult); err != nil {
		log.ErrorContext(jobCtx, "validation resolver callback failed", "job_id", descriptor.JobID, "error", err)
	}
}

func runGenerationClaimLoop(ctx context.Context, rt *Runtime, sem *semaphore.Weighted, poll time.Duration, log *slog.Logger) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil
		}

		descriptor, ok, err := rt.GenerationQueue.Claim(ctx, rt.WorkerID)
		if err != nil {
			sem.Release(1)
			log.ErrorContext(ctx, "generation claim failed", "error", err)
			if !sleepOrDone(ctx, poll) {
				return nil
			}
			continue
		}
		if !ok {
			sem.Release(1)
			if !sleepOrDone(ctx, poll) {
				return nil
			}
			continue
		}

		go func() {
			defer sem.Release(1)
			processGenerationJob(ctx, rt, descriptor, log)
		}()
	}
}

func processGenerationJob(ctx context.Context, rt *Runtime, descriptor queue.JobDescriptor[generation.Params], log *slog.Logger) {
	jobCtx := queue.ContextWithOTLPContext(ctx, descriptor.OTLPContext)

	outputDir := rt.OutputDir(string(descriptor.JobID))
	logPath := filepath.Join(outputDir, "generation.log")

	result := generation.Result{}
	status := queue.StatusSuccess
	if err := rt.Generator.Execute(jobCtx, descriptor.Params, outputDir, logPath); err != nil {
		result.Error = err.Error()
		status = queue.StatusFailure
	}

	ok, err := rt.GenerationQueue.Resolve(jobCtx, descriptor.JobID, rt.WorkerID, status, result)
	if err != nil {
		log.ErrorContext(jobCtx, "generation resolve failed", "job_id", descriptor.JobID, "error", err)
		return
	}
	if !ok {
		log.WarnContext(jobCtx, "generation job already resolved elsewhere", "job_id", descriptor.JobID)
		return
	}

	jobResult := queue.JobResult[generation.Result]{Status: status, Result: result}
	if err := rt.GenerationResolver.Resolve(jobCtx, descriptor.JobID, jobResult); err != nil {
		log.ErrorContext(jobCtx, "generation resolver callback failed", "job_id", descriptor.JobID, "error", err)
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
