// Package core defines the ports between the dispatch engine's service layer
// and its collaborators (job store, recipient directory, messaging provider).
package core

import (
	"context"
	"time"

	"github.com/modubang/notify-api/internal/domain/model"
)

// JobRepository is the contract for the dispatch job store: the single source
// of truth polled by clients. Counter mutations must be single atomic
// increments (never read-modify-write) so they stay correct under concurrent
// recipient dispatch.
type JobRepository interface {
	// Create persists a new job. The job arrives fully planned: counters at
	// zero, total_count and total_batches already computed. A zero-recipient
	// job may be created directly in a terminal status.
	Create(ctx context.Context, job *model.DispatchJob) error

	// GetByID returns the latest committed snapshot including the ordered
	// failed-recipient list. Unknown IDs yield an AppError with code not_found.
	GetByID(ctx context.Context, id string) (*model.DispatchJob, error)

	// MarkProcessing transitions pending -> processing. Returns false without
	// error when the job was not pending.
	MarkProcessing(ctx context.Context, id string) (bool, error)

	// RecordOutcome atomically increments exactly one of sent_count or
	// failed_count and, on failure, appends the failure record in the same
	// transaction. Visible to pollers immediately.
	RecordOutcome(ctx context.Context, id string, outcome model.RecipientOutcome) error

	// AdvanceBatch raises current_batch to batch; it never lowers it.
	AdvanceBatch(ctx context.Context, id string, batch int) error

	// Finalize transitions processing -> status (one of the terminal states)
	// and stamps completed_at. Returns false without error when the job was
	// already terminal or not yet processing.
	Finalize(ctx context.Context, id string, status model.JobStatus) (bool, error)

	// ListStuckProcessing returns IDs of jobs left in processing longer than
	// maxAge, used by the startup sweep after an unclean restart.
	ListStuckProcessing(ctx context.Context, maxAge time.Duration) ([]string, error)
}

// RecipientQuery describes one directory lookup.
// IDs, when non-empty, take precedence over StatusFilter; both empty means
// every recipient of TargetType.
type RecipientQuery struct {
	TargetType   model.TargetType
	IDs          []string
	StatusFilter *string
}

// RecipientDirectory is the system of record for customer/partner contact
// data. Implementations return raw matches; resolution semantics (dedupe,
// drop empty addresses, ID ordering) live in the resolver service.
type RecipientDirectory interface {
	Resolve(ctx context.Context, q RecipientQuery) ([]model.Recipient, error)
}

// DispatchTask is the unit of work handed from job creation to the dispatch
// worker. Recipients carry the frozen resolution; the worker re-derives the
// same batch plan from Recipients and BatchSize.
type DispatchTask struct {
	JobID      string
	Message    string
	Recipients []model.Recipient
	BatchSize  int
}

// JobEnqueuer hands a created job to the dispatch worker. Enqueue returns an
// error when the queue cannot accept the task, which fails the creation
// synchronously rather than leaving a job nobody will pick up.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, task DispatchTask) error
}

// MessageSender is the messaging provider boundary, treated as a black box
// with binary success/failure per recipient. A nil error means the provider
// accepted the message; any error is a per-recipient dispatch failure.
type MessageSender interface {
	Send(ctx context.Context, contactAddress, message string) error
}

// CacheRepository is the minimal cache contract used by the progress query
// service to absorb polling traffic.
type CacheRepository interface {
	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns the cached value, or nil if the key is missing or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes a key. Returns true if the key existed.
	Delete(ctx context.Context, key string) (bool, error)
}
