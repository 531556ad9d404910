// Package dispatcher runs the dispatch worker: it consumes queued jobs,
// works through their recipient batches, and finalizes each job from its
// recorded counters.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/modubang/notify-api/internal/core"
	"github.com/modubang/notify-api/internal/domain/batch"
	"github.com/modubang/notify-api/internal/domain/model"
	"github.com/modubang/notify-api/internal/observability/metrics"
	"github.com/modubang/notify-api/internal/observability/statsd"
)

const (
	defaultQueueSize   = 64
	defaultConcurrency = 5
	defaultStuckAfter  = 10 * time.Minute
)

// ErrQueueFull is returned by Enqueue when the dispatch queue is at capacity.
var ErrQueueFull = errors.New("dispatch queue is full")

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Repo   core.JobRepository // Required: job store
	Sender core.MessageSender // Required: messaging provider

	QueueSize     int           // Optional: queue capacity, defaults to 64
	Concurrency   int           // Optional: concurrent sends within a batch, defaults to 5
	RatePerSecond float64       // Optional: provider send rate cap, 0 disables
	StuckAfter    time.Duration // Optional: age before a processing job counts as stale

	Logger  *slog.Logger // Optional: structured logger
	Metrics statsd.Sink  // Optional: metric sink
}

// Runner is the dispatch worker. Batches of one job run strictly in order;
// recipients within a batch fan out up to the configured concurrency. Jobs
// from the queue are processed one at a time, so per-job progress stays
// sequential and observable.
type Runner struct {
	repo    core.JobRepository
	sender  core.MessageSender
	queue   chan core.DispatchTask
	limiter *rate.Limiter

	concurrency int
	stuckAfter  time.Duration

	logger  *slog.Logger
	metrics statsd.Sink
}

var _ core.JobEnqueuer = (*Runner)(nil)

// NewRunner creates a new dispatch Runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.Sender == nil {
		return nil, errors.New("MessageSender is required")
	}

	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	stuckAfter := opts.StuckAfter
	if stuckAfter <= 0 {
		stuckAfter = defaultStuckAfter
	}

	var limiter *rate.Limiter
	if opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		repo:        opts.Repo,
		sender:      opts.Sender,
		queue:       make(chan core.DispatchTask, queueSize),
		limiter:     limiter,
		concurrency: concurrency,
		stuckAfter:  stuckAfter,
		logger:      logger.With("component", "dispatcher"),
		metrics:     opts.Metrics,
	}, nil
}

// MustNewRunner creates a new Runner and panics on error.
func MustNewRunner(opts RunnerOptions) *Runner {
	r, err := NewRunner(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create dispatch Runner: %v", err))
	}
	return r
}

// Enqueue hands a task to the worker without blocking. A full queue is a
// synchronous error so job creation fails loudly at submission time.
func (r *Runner) Enqueue(_ context.Context, task core.DispatchTask) error {
	select {
	case r.queue <- task:
		metrics.EmitQueueDepth(r.metrics, len(r.queue))
		return nil
	default:
		return ErrQueueFull
	}
}

// Run consumes the queue until ctx is canceled. It first sweeps jobs left in
// processing by an earlier unclean shutdown. A job in flight when ctx is
// canceled runs to completion; its sends use a detached context.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.sweepStuck(ctx); err != nil {
		r.logger.ErrorContext(ctx, "startup sweep failed", "err", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case task := <-r.queue:
			r.process(context.WithoutCancel(ctx), task)
			metrics.EmitQueueDepth(r.metrics, len(r.queue))
		}
	}
}

// process works through one job. Store write failures abort processing and
// leave the job in processing for a later sweep; provider send failures are
// per-recipient outcomes, never aborts.
func (r *Runner) process(ctx context.Context, task core.DispatchTask) {
	logger := r.logger.With("job_id", task.JobID)

	claimed, err := r.repo.MarkProcessing(ctx, task.JobID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to claim job", "err", err)
		return
	}
	if !claimed {
		logger.WarnContext(ctx, "job not pending, skipping")
		return
	}

	plan, err := batch.NewPlan(task.Recipients, task.BatchSize)
	if err != nil {
		logger.ErrorContext(ctx, "invalid batch plan", "err", err)
		return
	}

	started := time.Now()
	var failed atomic.Int64

	job, getErr := r.repo.GetByID(ctx, task.JobID)
	if getErr != nil {
		logger.ErrorContext(ctx, "failed to load job", "err", getErr)
		return
	}

	for i, recipients := range plan.Batches() {
		if batchErr := r.dispatchBatch(ctx, job, recipients, &failed); batchErr != nil {
			logger.ErrorContext(ctx, "batch aborted", "batch", i+1, "err", batchErr)
			return
		}
		if advanceErr := r.repo.AdvanceBatch(ctx, task.JobID, i+1); advanceErr != nil {
			logger.ErrorContext(ctx, "failed to advance batch", "batch", i+1, "err", advanceErr)
			return
		}
	}

	total := plan.TotalCount()
	failedCount := int(failed.Load())
	status := model.FinalStatus(total, failedCount)

	finalized, finalizeErr := r.repo.Finalize(ctx, task.JobID, status)
	if finalizeErr != nil {
		logger.ErrorContext(ctx, "failed to finalize job", "err", finalizeErr)
		return
	}
	if !finalized {
		logger.WarnContext(ctx, "job was not processing at finalize")
		return
	}

	duration := time.Since(started)
	logger.InfoContext(ctx, "dispatch job finished",
		"status", status,
		"total", total,
		"sent", total-failedCount,
		"failed", failedCount,
		"duration_ms", duration.Milliseconds(),
	)
	metrics.EmitJobFinished(r.metrics, metrics.JobMetric{
		JobType:  string(job.Type),
		Status:   string(status),
		Duration: duration,
		Total:    total,
		Sent:     total - failedCount,
		Failed:   failedCount,
	})
}

// dispatchBatch fans one batch out to the provider and records every outcome.
func (r *Runner) dispatchBatch(ctx context.Context, job *model.DispatchJob, recipients []model.Recipient, failed *atomic.Int64) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for _, recipient := range recipients {
		g.Go(func() error {
			if r.limiter != nil {
				if waitErr := r.limiter.Wait(gctx); waitErr != nil {
					return fmt.Errorf("rate limit wait: %w", waitErr)
				}
			}

			start := time.Now()
			sendErr := r.sender.Send(gctx, recipient.ContactAddress, job.Message)
			metrics.EmitSendResult(r.metrics, string(job.Type), sendErr == nil, time.Since(start))

			outcome := model.RecipientOutcome{Recipient: recipient, Sent: sendErr == nil}
			if sendErr != nil {
				failed.Add(1)
				outcome.Error = sendErr.Error()
				r.logger.WarnContext(gctx, "recipient dispatch failed",
					"job_id", job.ID,
					"recipient_id", recipient.ID,
					"err", sendErr,
				)
			}

			if recordErr := r.repo.RecordOutcome(gctx, job.ID, outcome); recordErr != nil {
				return fmt.Errorf("record outcome for %s: %w", recipient.ID, recordErr)
			}
			return nil
		})
	}
	return g.Wait()
}

// sweepStatus classifies a stale job from its recorded counters. Recipients
// never attempted before the crash count against completion: a job with
// unattempted recipients is at best partial_failed, and failed when nothing
// was delivered at all. Fully attempted jobs use the normal rule.
func sweepStatus(job *model.DispatchJob) model.JobStatus {
	if job.SentCount+job.FailedCount < job.TotalCount {
		if job.SentCount == 0 {
			return model.JobStatusFailed
		}
		return model.JobStatusPartialFailed
	}
	return model.FinalStatus(job.TotalCount, job.FailedCount)
}

// sweepStuck finalizes jobs stranded in processing by an unclean shutdown.
// Their recorded counters stand as-is; nothing is re-sent because a recipient
// may already have received the message.
func (r *Runner) sweepStuck(ctx context.Context) error {
	ids, err := r.repo.ListStuckProcessing(ctx, r.stuckAfter)
	if err != nil {
		return fmt.Errorf("list stuck jobs: %w", err)
	}

	finalized := 0
	for _, id := range ids {
		job, getErr := r.repo.GetByID(ctx, id)
		if getErr != nil {
			r.logger.ErrorContext(ctx, "sweep: failed to load job", "job_id", id, "err", getErr)
			continue
		}
		status := sweepStatus(job)
		if unattempted := job.TotalCount - job.SentCount - job.FailedCount; unattempted > 0 {
			r.logger.WarnContext(ctx, "sweep: job has unattempted recipients",
				"job_id", id,
				"unattempted", unattempted,
				"total", job.TotalCount,
			)
		}
		ok, finalizeErr := r.repo.Finalize(ctx, id, status)
		if finalizeErr != nil {
			r.logger.ErrorContext(ctx, "sweep: failed to finalize job", "job_id", id, "err", finalizeErr)
			continue
		}
		if ok {
			finalized++
			r.logger.InfoContext(ctx, "sweep: finalized stale job", "job_id", id, "status", status)
		}
	}

	if finalized > 0 {
		metrics.EmitSweep(r.metrics, finalized)
	}
	return nil
}
