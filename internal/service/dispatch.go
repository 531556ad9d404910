package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/modubang/notify-api/internal/core"
	"github.com/modubang/notify-api/internal/data"
	"github.com/modubang/notify-api/internal/domain/batch"
	"github.com/modubang/notify-api/internal/domain/model"
	apperrors "github.com/modubang/notify-api/internal/errors"
)

const (
	// jobCacheKeyPrefix namespaces progress snapshots in the shared cache.
	jobCacheKeyPrefix = "dispatch:job:"

	// terminalCacheTTL may be long: terminal jobs are immutable.
	terminalCacheTTL = 5 * time.Minute
)

// DispatchServiceOptions groups dependencies for DispatchService.
type DispatchServiceOptions struct {
	Repo         core.JobRepository   // Required: job store
	Resolver     *RecipientResolver   // Required: recipient resolution
	Enqueuer     core.JobEnqueuer     // Required: hand-off to the dispatch worker
	BatchSize    int                  // Optional: defaults to batch.DefaultSize
	Cache        core.CacheRepository // Optional: progress snapshot cache
	Logger       *slog.Logger         // Optional: structured logger
	TimeProvider data.TimeProvider    // Optional: defaults to system time

	// TerminalCacheTTL overrides how long terminal snapshots stay cached.
	TerminalCacheTTL time.Duration
}

// DispatchService creates dispatch jobs and answers progress queries. The job
// store remains the single source of truth; the cache only serves derived
// snapshots.
type DispatchService struct {
	repo         core.JobRepository
	resolver     *RecipientResolver
	enqueuer     core.JobEnqueuer
	batchSize    int
	cache        core.CacheRepository
	terminalTTL  time.Duration
	logger       *slog.Logger
	timeProvider data.TimeProvider
}

// NewDispatchService constructs a new DispatchService.
func NewDispatchService(opts DispatchServiceOptions) (*DispatchService, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("RecipientResolver is required")
	}
	if opts.Enqueuer == nil {
		return nil, errors.New("JobEnqueuer is required")
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = batch.DefaultSize
	}
	tp := opts.TimeProvider
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}
	terminalTTL := opts.TerminalCacheTTL
	if terminalTTL <= 0 {
		terminalTTL = terminalCacheTTL
	}
	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "dispatch_service")
	}
	return &DispatchService{
		repo:         opts.Repo,
		resolver:     opts.Resolver,
		enqueuer:     opts.Enqueuer,
		batchSize:    batchSize,
		cache:        opts.Cache,
		terminalTTL:  terminalTTL,
		logger:       logger,
		timeProvider: tp,
	}, nil
}

// MustNewDispatchService constructs a new DispatchService and panics on error.
func MustNewDispatchService(opts DispatchServiceOptions) *DispatchService {
	svc, err := NewDispatchService(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create DispatchService: %v", err))
	}
	return svc
}

// CreateJob validates the request, resolves and freezes the recipient list,
// plans batches, persists the job, and hands it to the dispatch worker.
//
// A request that resolves to zero recipients still creates a job: it is
// persisted already completed with all counters at zero and never enqueued.
func (s *DispatchService) CreateJob(ctx context.Context, req *model.CreateDispatchRequest) (*model.DispatchJob, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid dispatch request")
	}

	recipients, err := s.resolver.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	now := s.timeProvider.Now().UTC()
	job := &model.DispatchJob{
		ID:           uuid.NewString(),
		Type:         req.DeriveJobType(),
		TargetType:   req.TargetType,
		TargetFilter: req.TargetFilter,
		TargetIDs:    req.TargetIDs,
		Message:      req.Message,
		Status:       model.JobStatusPending,
		CreatedAt:    now,
	}

	if len(recipients) == 0 {
		completedAt := now
		job.Status = model.FinalStatus(0, 0)
		job.CompletedAt = &completedAt
		if createErr := s.repo.Create(ctx, job); createErr != nil {
			return nil, createErr
		}
		if s.logger != nil {
			s.logger.InfoContext(ctx, "dispatch job completed with no recipients",
				"job_id", job.ID, "type", job.Type)
		}
		return job, nil
	}

	plan, err := batch.NewPlan(recipients, s.batchSize)
	if err != nil {
		return nil, err
	}
	job.TotalCount = plan.TotalCount()
	job.TotalBatches = plan.TotalBatches()

	if createErr := s.repo.Create(ctx, job); createErr != nil {
		return nil, createErr
	}

	task := core.DispatchTask{
		JobID:      job.ID,
		Message:    job.Message,
		Recipients: recipients,
		BatchSize:  s.batchSize,
	}
	if enqueueErr := s.enqueuer.Enqueue(ctx, task); enqueueErr != nil {
		// The job row exists but nothing will process it; surface the
		// failure to the caller. The row stays pending so the drop is
		// visible to pollers and operators.
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "failed to enqueue dispatch job",
				"job_id", job.ID, "err", enqueueErr)
		}
		return nil, apperrors.Wrap(enqueueErr, apperrors.ErrCodeUnavailable, "dispatch queue unavailable")
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "dispatch job created",
			"job_id", job.ID,
			"type", job.Type,
			"target_type", job.TargetType,
			"total_count", job.TotalCount,
			"total_batches", job.TotalBatches,
		)
	}
	return job, nil
}

// GetJob returns the job's latest progress snapshot, reading through the
// cache when one is configured.
//
// Only terminal snapshots are ever cached. An in-flight snapshot written by
// a slow poller could overwrite a fresher one and make counters appear to
// move backward; terminal jobs are immutable, so caching them can never
// reorder progress. In-flight polls always hit the store.
func (s *DispatchService) GetJob(ctx context.Context, id string) (*model.DispatchJob, error) {
	if id == "" {
		return nil, apperrors.Validation("job id is required")
	}

	key := jobCacheKeyPrefix + id
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key); err == nil && cached != nil {
			var job model.DispatchJob
			if unmarshalErr := json.Unmarshal(cached, &job); unmarshalErr == nil {
				return &job, nil
			}
			// fall through to the store on a corrupt entry
		} else if err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "job cache read failed", "job_id", id, "err", err)
		}
	}

	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && job.Status.Terminal() {
		if encoded, marshalErr := json.Marshal(job); marshalErr == nil {
			if setErr := s.cache.Set(ctx, key, encoded, s.terminalTTL); setErr != nil && s.logger != nil {
				s.logger.WarnContext(ctx, "job cache write failed", "job_id", id, "err", setErr)
			}
		}
	}
	return job, nil
}
