// Package data provides PostgreSQL and in-memory implementations of the
// dispatch engine's repository ports.
package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/modubang/notify-api/internal/data/pgxutil"
	"github.com/modubang/notify-api/internal/domain/model"
	apperrors "github.com/modubang/notify-api/internal/errors"
)

// RepoConfig holds configuration options for the job repository.
type RepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// JobRepo is the durable dispatch job store backed by PostgreSQL.
// Counter updates are single UPDATE statements so they stay atomic under
// concurrent recipient dispatch.
type JobRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewJobRepo creates a new JobRepo with the given database connection and configuration.
func NewJobRepo(db *sql.DB, cfg RepoConfig) *JobRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &JobRepo{
		DB:           db,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

const jobColumns = `
  id,
  type,
  target_type,
  target_filter,
  target_ids,
  message,
  status,
  total_count,
  sent_count,
  failed_count,
  current_batch,
  total_batches,
  created_at,
  completed_at
`

// Create persists a fully planned job.
func (r *JobRepo) Create(ctx context.Context, job *model.DispatchJob) error {
	ids, err := marshalTargetIDs(job.TargetIDs)
	if err != nil {
		return err
	}

	_, err = r.DB.ExecContext(ctx, `
		INSERT INTO dispatch_jobs
		  (id, type, target_type, target_filter, target_ids, message, status,
		   total_count, total_batches, created_at, completed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		job.ID,
		job.Type,
		job.TargetType,
		job.TargetFilter,
		ids,
		job.Message,
		job.Status,
		job.TotalCount,
		job.TotalBatches,
		job.CreatedAt.UTC(),
		nullableTime(job.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("insert dispatch job: %w", apperrors.MapDBError(err))
	}
	return nil
}

// GetByID returns the latest committed snapshot including failure records in
// append order.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.DispatchJob, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+jobColumns+`
		FROM dispatch_jobs
		WHERE id = $1
	`, id)

	job, err := scanJob(row)
	if err != nil {
		if mapped := apperrors.MapDBError(err); apperrors.IsNotFound(mapped) {
			return nil, apperrors.NotFoundf("dispatch job %s not found", id)
		}
		return nil, fmt.Errorf("get dispatch job: %w", apperrors.MapDBError(err))
	}

	failures, err := r.listFailures(ctx, id)
	if err != nil {
		return nil, err
	}
	job.FailedRecipients = failures
	return job, nil
}

func (r *JobRepo) listFailures(ctx context.Context, jobID string) ([]model.FailedRecipient, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT recipient_id, contact_address, display_name, error
		FROM dispatch_failed_recipients
		WHERE job_id = $1
		ORDER BY id ASC
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list failed recipients: %w", apperrors.MapDBError(err))
	}
	defer rows.Close()

	out := make([]model.FailedRecipient, 0)
	for rows.Next() {
		var fr model.FailedRecipient
		if scanErr := rows.Scan(&fr.RecipientID, &fr.ContactAddress, &fr.DisplayName, &fr.Error); scanErr != nil {
			return nil, fmt.Errorf("scan failed recipient: %w", scanErr)
		}
		out = append(out, fr)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("iterate failed recipients: %w", rowsErr)
	}
	return out, nil
}

// MarkProcessing transitions pending -> processing.
func (r *JobRepo) MarkProcessing(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE dispatch_jobs
		SET status = 'processing'
		WHERE id = $1 AND status = 'pending'
	`, id)
	if err != nil {
		return false, fmt.Errorf("mark processing: %w", apperrors.MapDBError(err))
	}
	return affected(res)
}

// RecordOutcome increments exactly one counter and, on failure, appends the
// failure record within the same transaction.
func (r *JobRepo) RecordOutcome(ctx context.Context, id string, outcome model.RecipientOutcome) error {
	if outcome.Sent {
		_, err := r.DB.ExecContext(ctx, `
			UPDATE dispatch_jobs
			SET sent_count = sent_count + 1
			WHERE id = $1
		`, id)
		if err != nil {
			return fmt.Errorf("record sent: %w", apperrors.MapDBError(err))
		}
		return nil
	}

	fr := outcome.Failure()
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			if _, execErr := tx.ExecContext(ctx, `
				UPDATE dispatch_jobs
				SET failed_count = failed_count + 1
				WHERE id = $1
			`, id); execErr != nil {
				return fmt.Errorf("record failure: %w", execErr)
			}
			if _, execErr := tx.ExecContext(ctx, `
				INSERT INTO dispatch_failed_recipients
				  (job_id, recipient_id, contact_address, display_name, error)
				VALUES ($1,$2,$3,$4,$5)
			`, id, fr.RecipientID, fr.ContactAddress, fr.DisplayName, fr.Error); execErr != nil {
				return fmt.Errorf("append failed recipient: %w", execErr)
			}
			return nil
		},
	})
	if err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

// AdvanceBatch raises current_batch to batch; it never lowers it.
func (r *JobRepo) AdvanceBatch(ctx context.Context, id string, batch int) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE dispatch_jobs
		SET current_batch = GREATEST(current_batch, $2)
		WHERE id = $1
	`, id, batch)
	if err != nil {
		return fmt.Errorf("advance batch: %w", apperrors.MapDBError(err))
	}
	return nil
}

// Finalize transitions processing -> terminal status and stamps completed_at.
// The status guard keeps terminal rows immutable.
func (r *JobRepo) Finalize(ctx context.Context, id string, status model.JobStatus) (bool, error) {
	if !status.Terminal() {
		return false, fmt.Errorf("finalize requires a terminal status, got %q", status)
	}

	res, err := r.DB.ExecContext(ctx, `
		UPDATE dispatch_jobs
		SET status = $2,
		    completed_at = $3
		WHERE id = $1 AND status = 'processing'
	`, id, status, r.timeProvider.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("finalize job: %w", apperrors.MapDBError(err))
	}
	return affected(res)
}

// ListStuckProcessing returns IDs of jobs left in processing longer than maxAge.
func (r *JobRepo) ListStuckProcessing(ctx context.Context, maxAge time.Duration) ([]string, error) {
	cutoff := r.timeProvider.Now().Add(-maxAge).UTC()
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id
		FROM dispatch_jobs
		WHERE status = 'processing' AND created_at < $1
		ORDER BY created_at ASC
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list stuck jobs: %w", apperrors.MapDBError(err))
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if scanErr := rows.Scan(&id); scanErr != nil {
			return nil, fmt.Errorf("scan job id: %w", scanErr)
		}
		ids = append(ids, id)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("iterate stuck jobs: %w", rowsErr)
	}
	return ids, nil
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(scanner rowScanner) (*model.DispatchJob, error) {
	job := &model.DispatchJob{}
	var (
		targetFilter sql.NullString
		targetIDs    []byte
		completedAt  sql.NullTime
	)
	if err := scanner.Scan(
		&job.ID,
		&job.Type,
		&job.TargetType,
		&targetFilter,
		&targetIDs,
		&job.Message,
		&job.Status,
		&job.TotalCount,
		&job.SentCount,
		&job.FailedCount,
		&job.CurrentBatch,
		&job.TotalBatches,
		&job.CreatedAt,
		&completedAt,
	); err != nil {
		return nil, err
	}

	if targetFilter.Valid {
		f := targetFilter.String
		job.TargetFilter = &f
	}
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		job.CompletedAt = &t
	}
	if len(targetIDs) > 0 {
		if err := json.Unmarshal(targetIDs, &job.TargetIDs); err != nil {
			return nil, fmt.Errorf("decode target ids: %w", err)
		}
	}
	job.CreatedAt = job.CreatedAt.UTC()
	return job, nil
}

func marshalTargetIDs(ids []string) ([]byte, error) {
	if len(ids) == 0 {
		return []byte(`[]`), nil
	}
	out, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("encode target ids: %w", err)
	}
	return out, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
