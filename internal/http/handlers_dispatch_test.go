package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/modubang/notify-api/internal/core"
	"github.com/modubang/notify-api/internal/data"
	"github.com/modubang/notify-api/internal/domain/model"
	"github.com/modubang/notify-api/internal/mocks"
	"github.com/modubang/notify-api/internal/service"
)

type noopEnqueuer struct{ tasks []core.DispatchTask }

func (e *noopEnqueuer) Enqueue(_ context.Context, task core.DispatchTask) error {
	e.tasks = append(e.tasks, task)
	return nil
}

func newTestRouter(t *testing.T, dir core.RecipientDirectory) (http.Handler, *data.MemJobStore, *noopEnqueuer) {
	t.Helper()
	store := data.NewMemJobStore(nil)
	enq := &noopEnqueuer{}
	svc := service.MustNewDispatchService(service.DispatchServiceOptions{
		Repo:     store,
		Resolver: service.MustNewRecipientResolver(service.ResolverOptions{Directory: dir}),
		Enqueuer: enq,
	})
	return NewRouter(RouterServices{Dispatch: svc}), store, enq
}

func TestCreateDispatchJobAccepted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dir := mocks.NewMockRecipientDirectory(ctrl)
	dir.EXPECT().Resolve(gomock.Any(), gomock.Any()).Return([]model.Recipient{
		{ID: "c-1", Type: model.TargetTypeCustomer, DisplayName: "Kim", ContactAddress: "010-1111-2222"},
		{ID: "c-2", Type: model.TargetTypeCustomer, DisplayName: "Lee", ContactAddress: "010-3333-4444"},
	}, nil)

	router, _, enq := newTestRouter(t, dir)

	body := `{"target_type":"customer","target_ids":["c-1","c-2"],"message":"hello"}`
	req := httptest.NewRequest(http.MethodPost, "/api/dispatch-jobs", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var job model.DispatchJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, model.JobTypeManualSelect, job.Type)
	assert.Equal(t, model.JobStatusPending, job.Status)
	assert.Equal(t, 2, job.TotalCount)
	assert.Equal(t, 1, job.TotalBatches)
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, job.ID, enq.tasks[0].JobID)
}

func TestCreateDispatchJobValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router, _, _ := newTestRouter(t, mocks.NewMockRecipientDirectory(ctrl))

	body := `{"target_type":"customer","message":"   "}`
	req := httptest.NewRequest(http.MethodPost, "/api/dispatch-jobs", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "validation", resp["error"])
}

func TestCreateDispatchJobInvalidJSON(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router, _, _ := newTestRouter(t, mocks.NewMockRecipientDirectory(ctrl))

	req := httptest.NewRequest(http.MethodPost, "/api/dispatch-jobs", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateDispatchJobBodyTooLarge(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router, _, _ := newTestRouter(t, mocks.NewMockRecipientDirectory(ctrl))

	oversized := `{"target_type":"customer","message":"` + strings.Repeat("x", maxRequestBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/dispatch-jobs", strings.NewReader(oversized))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "body_too_large", resp["error"])
}

func TestGetDispatchJobNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router, _, _ := newTestRouter(t, mocks.NewMockRecipientDirectory(ctrl))

	req := httptest.NewRequest(http.MethodGet, "/api/dispatch-jobs/missing-id", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "not_found", resp["error"])
}

func TestCreateThenPollProgress(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dir := mocks.NewMockRecipientDirectory(ctrl)
	dir.EXPECT().Resolve(gomock.Any(), gomock.Any()).Return([]model.Recipient{
		{ID: "c-1", Type: model.TargetTypeCustomer, ContactAddress: "010-1111-2222"},
		{ID: "c-2", Type: model.TargetTypeCustomer, ContactAddress: "010-3333-4444", DisplayName: "Lee"},
	}, nil)

	router, store, _ := newTestRouter(t, dir)

	body := `{"target_type":"customer","message":"hello"}`
	req := httptest.NewRequest(http.MethodPost, "/api/dispatch-jobs", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var created model.DispatchJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// simulate the worker making progress
	ctx := context.Background()
	_, err := store.MarkProcessing(ctx, created.ID)
	require.NoError(t, err)
	require.NoError(t, store.RecordOutcome(ctx, created.ID, model.RecipientOutcome{
		Recipient: model.Recipient{ID: "c-1", ContactAddress: "010-1111-2222"},
		Sent:      true,
	}))
	require.NoError(t, store.RecordOutcome(ctx, created.ID, model.RecipientOutcome{
		Recipient: model.Recipient{ID: "c-2", ContactAddress: "010-3333-4444", DisplayName: "Lee"},
		Error:     "provider rejected",
	}))
	require.NoError(t, store.AdvanceBatch(ctx, created.ID, 1))
	_, err = store.Finalize(ctx, created.ID, model.FinalStatus(2, 1))
	require.NoError(t, err)

	pollReq := httptest.NewRequest(http.MethodGet, "/api/dispatch-jobs/"+created.ID, nil)
	pollRec := httptest.NewRecorder()
	router.ServeHTTP(pollRec, pollReq)
	require.Equal(t, http.StatusOK, pollRec.Code)

	var polled model.DispatchJob
	require.NoError(t, json.Unmarshal(pollRec.Body.Bytes(), &polled))
	assert.Equal(t, model.JobStatusPartialFailed, polled.Status)
	assert.Equal(t, 1, polled.SentCount)
	assert.Equal(t, 1, polled.FailedCount)
	require.Len(t, polled.FailedRecipients, 1)
	assert.Equal(t, "c-2", polled.FailedRecipients[0].RecipientID)
	assert.Equal(t, "010-****-**44", polled.FailedRecipients[0].ContactAddress)
	require.NotNil(t, polled.CompletedAt)
}

func TestHealthz(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router, _, _ := newTestRouter(t, mocks.NewMockRecipientDirectory(ctrl))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","service":"notify-api"}`, rec.Body.String())
}
