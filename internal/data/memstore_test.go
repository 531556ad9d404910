package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modubang/notify-api/internal/domain/model"
	apperrors "github.com/modubang/notify-api/internal/errors"
)

func newTestJob(id string) *model.DispatchJob {
	return &model.DispatchJob{
		ID:           id,
		Type:         model.JobTypeAnnouncement,
		TargetType:   model.TargetTypeCustomer,
		Message:      "service window tonight",
		Status:       model.JobStatusPending,
		TotalCount:   3,
		TotalBatches: 1,
		CreatedAt:    time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestMemJobStoreCreateAndGet(t *testing.T) {
	store := NewMemJobStore(nil)
	ctx := context.Background()

	job := newTestJob("job-1")
	require.NoError(t, store.Create(ctx, job))

	// mutating the caller's copy must not leak into the store
	job.Message = "changed"
	job.TargetIDs = append(job.TargetIDs, "x")

	got, err := store.GetByID(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "service window tonight", got.Message)
	assert.Empty(t, got.TargetIDs)

	err = store.Create(ctx, newTestJob("job-1"))
	assert.True(t, apperrors.IsConflict(err))

	_, err = store.GetByID(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMemJobStoreMarkProcessing(t *testing.T) {
	store := NewMemJobStore(nil)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, newTestJob("job-1")))

	ok, err := store.MarkProcessing(ctx, "job-1")
	require.NoError(t, err)
	assert.True(t, ok)

	// second claim loses
	ok, err = store.MarkProcessing(ctx, "job-1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.MarkProcessing(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMemJobStoreRecordOutcome(t *testing.T) {
	store := NewMemJobStore(nil)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, newTestJob("job-1")))

	require.NoError(t, store.RecordOutcome(ctx, "job-1", model.RecipientOutcome{
		Recipient: model.Recipient{ID: "c-1", ContactAddress: "010-1111-2222"},
		Sent:      true,
	}))
	require.NoError(t, store.RecordOutcome(ctx, "job-1", model.RecipientOutcome{
		Recipient: model.Recipient{ID: "c-2", ContactAddress: "010-3333-4444", DisplayName: "Kim"},
		Error:     "provider rejected",
	}))
	require.NoError(t, store.RecordOutcome(ctx, "job-1", model.RecipientOutcome{
		Recipient: model.Recipient{ID: "c-3", ContactAddress: "010-5555-6666", DisplayName: "Lee"},
		Error:     "timeout",
	}))

	got, err := store.GetByID(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.SentCount)
	assert.Equal(t, 2, got.FailedCount)
	require.Len(t, got.FailedRecipients, 2)
	assert.Equal(t, "c-2", got.FailedRecipients[0].RecipientID)
	assert.Equal(t, "010-****-**44", got.FailedRecipients[0].ContactAddress)
	assert.Equal(t, "c-3", got.FailedRecipients[1].RecipientID)
	assert.Equal(t, "timeout", got.FailedRecipients[1].Error)
}

func TestMemJobStoreAdvanceBatch(t *testing.T) {
	store := NewMemJobStore(nil)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, newTestJob("job-1")))

	require.NoError(t, store.AdvanceBatch(ctx, "job-1", 2))
	require.NoError(t, store.AdvanceBatch(ctx, "job-1", 1))

	got, err := store.GetByID(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentBatch)
}

func TestMemJobStoreFinalize(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemJobStore(NewFixedTimeProvider(now))
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, newTestJob("job-1")))

	// not processing yet
	ok, err := store.Finalize(ctx, "job-1", model.JobStatusCompleted)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.MarkProcessing(ctx, "job-1")
	require.NoError(t, err)

	ok, err = store.Finalize(ctx, "job-1", model.JobStatusPartialFailed)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := store.GetByID(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusPartialFailed, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, now, *got.CompletedAt)

	// terminal rows are immutable
	ok, err = store.Finalize(ctx, "job-1", model.JobStatusCompleted)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Finalize(ctx, "job-1", model.JobStatusProcessing)
	assert.True(t, apperrors.IsValidation(err))
}

func TestMemJobStoreListStuckProcessing(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemJobStore(NewFixedTimeProvider(now))
	ctx := context.Background()

	old := newTestJob("job-old")
	old.CreatedAt = now.Add(-time.Hour)
	require.NoError(t, store.Create(ctx, old))
	_, err := store.MarkProcessing(ctx, "job-old")
	require.NoError(t, err)

	fresh := newTestJob("job-fresh")
	fresh.CreatedAt = now.Add(-time.Minute)
	require.NoError(t, store.Create(ctx, fresh))
	_, err = store.MarkProcessing(ctx, "job-fresh")
	require.NoError(t, err)

	pending := newTestJob("job-pending")
	pending.CreatedAt = now.Add(-time.Hour)
	require.NoError(t, store.Create(ctx, pending))

	ids, err := store.ListStuckProcessing(ctx, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []string{"job-old"}, ids)
}

func TestMemCacheTTL(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	tp := NewFixedTimeProvider(now)
	cache := NewMemCache(tp)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", []byte("v"), time.Second))

	got, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	tp.AddTime(2 * time.Second)
	got, err = cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, cache.Set(ctx, "k", []byte("v"), time.Minute))
	ok, err := cache.Delete(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = cache.Delete(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
