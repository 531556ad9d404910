package httpx

import (
	"net/http"

	"github.com/modubang/notify-api/internal/domain/model"
	apperrors "github.com/modubang/notify-api/internal/errors"
	"github.com/modubang/notify-api/internal/service"
)

// DispatchHandlers provides HTTP handlers for dispatch job operations.
type DispatchHandlers struct {
	Svc *service.DispatchService
}

// CreateJob accepts a dispatch request and returns the created job. The job
// is accepted for asynchronous processing: 202 with the initial snapshot, and
// clients poll GetJob for progress.
func (h *DispatchHandlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req model.CreateDispatchRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	job, err := h.Svc.CreateJob(r.Context(), &req)
	if err != nil {
		writeAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, job)
}

// GetJob returns the latest progress snapshot for one job, including
// counters, batch position, and the ordered failed-recipient list.
func (h *DispatchHandlers) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.Svc.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		writeAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// writeAppError maps application error codes onto HTTP statuses.
func writeAppError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case apperrors.ErrCodeValidation:
		status = http.StatusBadRequest
	case apperrors.ErrCodeNotFound:
		status = http.StatusNotFound
	case apperrors.ErrCodeConflict:
		status = http.StatusConflict
	case apperrors.ErrCodeUnavailable:
		status = http.StatusServiceUnavailable
	case apperrors.ErrCodeTimeout:
		status = http.StatusGatewayTimeout
	}
	errCode := string(code)
	if errCode == "" {
		errCode = "internal"
	}
	WriteError(w, ErrorParams{Code: status, ErrCode: errCode, Err: err})
}
