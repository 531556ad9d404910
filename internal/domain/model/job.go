// Package model defines the core data types for the bulk notification dispatch system.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobType describes how a dispatch job's recipients were targeted.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobType string

// JobStatus represents the current status of a dispatch job.
type JobStatus string

// TargetType selects which directory a dispatch job targets.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type TargetType string

const (
	// JobTypeManualSelect targets an explicit list of recipient IDs.
	JobTypeManualSelect JobType = "manual_select"
	// JobTypeStatusNotify targets recipients matching a status filter.
	JobTypeStatusNotify JobType = "status_notify"
	// JobTypeAnnouncement targets every recipient of the target type.
	JobTypeAnnouncement JobType = "announcement"

	// JobStatusPending indicates a job is created but dispatch has not started.
	JobStatusPending JobStatus = "pending"
	// JobStatusProcessing indicates at least one batch has started.
	JobStatusProcessing JobStatus = "processing"
	// JobStatusCompleted indicates every recipient was sent successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusPartialFailed indicates some, but not all, recipients failed.
	JobStatusPartialFailed JobStatus = "partial_failed"
	// JobStatusFailed indicates every recipient failed.
	JobStatusFailed JobStatus = "failed"

	// TargetTypeCustomer targets the customer directory.
	TargetTypeCustomer TargetType = "customer"
	// TargetTypePartner targets the partner vendor directory.
	TargetTypePartner TargetType = "partner"
)

// Valid returns true if the JobType is valid.
func (t JobType) Valid() bool {
	return t == JobTypeManualSelect || t == JobTypeStatusNotify || t == JobTypeAnnouncement
}

// UnmarshalText implements encoding.TextUnmarshaler for JobType to allow env parsing.
func (t *JobType) UnmarshalText(text []byte) error {
	v := JobType(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid JobType: %q", v)
	}
	*t = v
	return nil
}

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	return s == JobStatusPending || s == JobStatusProcessing || s.Terminal()
}

// Terminal returns true for the three immutable end states.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusPartialFailed || s == JobStatusFailed
}

// Valid returns true if the TargetType is valid.
func (t TargetType) Valid() bool {
	return t == TargetTypeCustomer || t == TargetTypePartner
}

// UnmarshalText implements encoding.TextUnmarshaler for TargetType.
func (t *TargetType) UnmarshalText(text []byte) error {
	v := TargetType(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid TargetType: %q", v)
	}
	*t = v
	return nil
}

// DispatchJob is the durable record of one bulk-dispatch request.
// Counters are mutated exclusively by the dispatch worker; pollers only read.
type DispatchJob struct {
	ID           string     `json:"job_id"                  db:"id"`
	Type         JobType    `json:"job_type"                db:"type"`
	TargetType   TargetType `json:"target_type"             db:"target_type"`
	TargetFilter *string    `json:"target_filter,omitempty" db:"target_filter"`
	TargetIDs    []string   `json:"target_ids,omitempty"    db:"target_ids"`
	Message      string     `json:"message"                 db:"message"`
	Status       JobStatus  `json:"status"                  db:"status"`

	TotalCount   int `json:"total_count"   db:"total_count"`
	SentCount    int `json:"sent_count"    db:"sent_count"`
	FailedCount  int `json:"failed_count"  db:"failed_count"`
	CurrentBatch int `json:"current_batch" db:"current_batch"`
	TotalBatches int `json:"total_batches" db:"total_batches"`

	FailedRecipients []FailedRecipient `json:"failed_recipients" db:"-"`

	CreatedAt   time.Time  `json:"created_at"             db:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// CreateDispatchRequest is the client input for creating a dispatch job.
// The job type is derived server-side and never client-supplied.
type CreateDispatchRequest struct {
	TargetType   TargetType `json:"target_type"`
	TargetFilter *string    `json:"target_filter,omitempty"`
	TargetIDs    []string   `json:"target_ids,omitempty"`
	Message      string     `json:"message"`
}

// Validate validates the CreateDispatchRequest fields and normalizes the ID list.
func (r *CreateDispatchRequest) Validate() error {
	if !r.TargetType.Valid() {
		return errors.New("invalid target type")
	}
	if strings.TrimSpace(r.Message) == "" {
		return errors.New("message is required")
	}
	if r.TargetFilter != nil && strings.TrimSpace(*r.TargetFilter) == "" {
		return errors.New("target filter must not be blank")
	}

	ids := r.TargetIDs[:0]
	for _, id := range r.TargetIDs {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	r.TargetIDs = ids
	return nil
}

// DeriveJobType determines the job type from the targeting spec.
// Explicit IDs take precedence over a status filter; neither means broadcast.
func (r *CreateDispatchRequest) DeriveJobType() JobType {
	switch {
	case len(r.TargetIDs) > 0:
		return JobTypeManualSelect
	case r.TargetFilter != nil:
		return JobTypeStatusNotify
	default:
		return JobTypeAnnouncement
	}
}

// FinalStatus derives the terminal status from final counters.
// This is the single classification rule shared by every finalization path:
// failed == 0 is completed (which covers the zero-recipient case),
// failed == total is failed, anything in between is partial_failed.
func FinalStatus(total, failed int) JobStatus {
	switch {
	case failed == 0:
		return JobStatusCompleted
	case failed >= total:
		return JobStatusFailed
	default:
		return JobStatusPartialFailed
	}
}
