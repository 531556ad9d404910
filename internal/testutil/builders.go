package testutil

import (
	"github.com/modubang/notify-api/internal/domain/model"
)

// DispatchRequestBuilder provides a fluent interface for building
// CreateDispatchRequest objects for testing.
type DispatchRequestBuilder struct {
	req *model.CreateDispatchRequest
}

// NewDispatchRequest creates a new DispatchRequestBuilder with sensible defaults.
func NewDispatchRequest() *DispatchRequestBuilder {
	return &DispatchRequestBuilder{
		req: &model.CreateDispatchRequest{
			TargetType: model.TargetTypeCustomer,
			Message:    "service maintenance notice",
		},
	}
}

// WithTargetType sets the target directory.
func (b *DispatchRequestBuilder) WithTargetType(t model.TargetType) *DispatchRequestBuilder {
	b.req.TargetType = t
	return b
}

// WithTargetIDs sets an explicit recipient ID list.
func (b *DispatchRequestBuilder) WithTargetIDs(ids ...string) *DispatchRequestBuilder {
	b.req.TargetIDs = ids
	return b
}

// WithTargetFilter sets a status filter.
func (b *DispatchRequestBuilder) WithTargetFilter(filter string) *DispatchRequestBuilder {
	b.req.TargetFilter = &filter
	return b
}

// WithMessage sets the message body.
func (b *DispatchRequestBuilder) WithMessage(msg string) *DispatchRequestBuilder {
	b.req.Message = msg
	return b
}

// Build returns the constructed CreateDispatchRequest.
func (b *DispatchRequestBuilder) Build() *model.CreateDispatchRequest {
	return b.req
}

// Common request presets.

// ManualSelectRequest targets an explicit customer ID list.
func ManualSelectRequest(ids ...string) *model.CreateDispatchRequest {
	return NewDispatchRequest().WithTargetIDs(ids...).Build()
}

// StatusNotifyRequest targets customers matching a status filter.
func StatusNotifyRequest(filter string) *model.CreateDispatchRequest {
	return NewDispatchRequest().WithTargetFilter(filter).Build()
}

// AnnouncementRequest targets every recipient of the given type.
func AnnouncementRequest(t model.TargetType) *model.CreateDispatchRequest {
	return NewDispatchRequest().WithTargetType(t).Build()
}

// JobBuilder provides a fluent interface for building DispatchJob records.
type JobBuilder struct {
	job *model.DispatchJob
}

// NewJob creates a JobBuilder seeded with a pending announcement job.
func NewJob(id string) *JobBuilder {
	return &JobBuilder{
		job: &model.DispatchJob{
			ID:         id,
			Type:       model.JobTypeAnnouncement,
			TargetType: model.TargetTypeCustomer,
			Message:    "service maintenance notice",
			Status:     model.JobStatusPending,
			CreatedAt:  TestTime(),
		},
	}
}

// WithType sets the job type.
func (b *JobBuilder) WithType(t model.JobType) *JobBuilder {
	b.job.Type = t
	return b
}

// WithStatus sets the job status.
func (b *JobBuilder) WithStatus(s model.JobStatus) *JobBuilder {
	b.job.Status = s
	return b
}

// WithTargetIDs sets the recorded target ID list.
func (b *JobBuilder) WithTargetIDs(ids ...string) *JobBuilder {
	b.job.TargetIDs = ids
	b.job.Type = model.JobTypeManualSelect
	return b
}

// WithCounts sets the total count and batch plan.
func (b *JobBuilder) WithCounts(total, batches int) *JobBuilder {
	b.job.TotalCount = total
	b.job.TotalBatches = batches
	return b
}

// Build returns the constructed DispatchJob.
func (b *JobBuilder) Build() *model.DispatchJob {
	return b.job
}
