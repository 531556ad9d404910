package data

import (
	"context"
	"sync"
	"time"

	"github.com/modubang/notify-api/internal/domain/model"
	apperrors "github.com/modubang/notify-api/internal/errors"
)

// MemJobStore is an in-memory JobRepository with the same transition and
// counter semantics as the Postgres store. It backs dev mode and tests.
type MemJobStore struct {
	mu           sync.Mutex
	jobs         map[string]*model.DispatchJob
	timeProvider TimeProvider
}

// NewMemJobStore creates an empty in-memory job store.
func NewMemJobStore(tp TimeProvider) *MemJobStore {
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &MemJobStore{
		jobs:         make(map[string]*model.DispatchJob),
		timeProvider: tp,
	}
}

// Create stores a copy of the job.
func (s *MemJobStore) Create(_ context.Context, job *model.DispatchJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return apperrors.Conflict("dispatch job already exists")
	}
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

// GetByID returns a snapshot copy of the job.
func (s *MemJobStore) GetByID(_ context.Context, id string) (*model.DispatchJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, apperrors.NotFoundf("dispatch job %s not found", id)
	}
	return cloneJob(job), nil
}

// MarkProcessing transitions pending -> processing.
func (s *MemJobStore) MarkProcessing(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return false, apperrors.NotFoundf("dispatch job %s not found", id)
	}
	if job.Status != model.JobStatusPending {
		return false, nil
	}
	job.Status = model.JobStatusProcessing
	return true, nil
}

// RecordOutcome increments one counter and appends the failure record when the
// outcome is a failure.
func (s *MemJobStore) RecordOutcome(_ context.Context, id string, outcome model.RecipientOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return apperrors.NotFoundf("dispatch job %s not found", id)
	}
	if outcome.Sent {
		job.SentCount++
		return nil
	}
	job.FailedCount++
	job.FailedRecipients = append(job.FailedRecipients, outcome.Failure())
	return nil
}

// AdvanceBatch raises current_batch; it never lowers it.
func (s *MemJobStore) AdvanceBatch(_ context.Context, id string, batch int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return apperrors.NotFoundf("dispatch job %s not found", id)
	}
	if batch > job.CurrentBatch {
		job.CurrentBatch = batch
	}
	return nil
}

// Finalize transitions processing -> terminal status.
func (s *MemJobStore) Finalize(_ context.Context, id string, status model.JobStatus) (bool, error) {
	if !status.Terminal() {
		return false, apperrors.Validationf("finalize requires a terminal status, got %q", status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return false, apperrors.NotFoundf("dispatch job %s not found", id)
	}
	if job.Status != model.JobStatusProcessing {
		return false, nil
	}
	job.Status = status
	now := s.timeProvider.Now().UTC()
	job.CompletedAt = &now
	return true, nil
}

// ListStuckProcessing returns IDs of processing jobs older than maxAge.
func (s *MemJobStore) ListStuckProcessing(_ context.Context, maxAge time.Duration) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.timeProvider.Now().Add(-maxAge)
	var ids []string
	for id, job := range s.jobs {
		if job.Status == model.JobStatusProcessing && job.CreatedAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func cloneJob(job *model.DispatchJob) *model.DispatchJob {
	out := *job
	if job.TargetFilter != nil {
		f := *job.TargetFilter
		out.TargetFilter = &f
	}
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		out.CompletedAt = &t
	}
	out.TargetIDs = append([]string(nil), job.TargetIDs...)
	out.FailedRecipients = append([]model.FailedRecipient(nil), job.FailedRecipients...)
	return &out
}
