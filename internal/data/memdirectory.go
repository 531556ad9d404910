package data

import (
	"context"

	"github.com/modubang/notify-api/internal/core"
	"github.com/modubang/notify-api/internal/domain/model"
)

// MemDirectory is an in-memory RecipientDirectory for dev mode and tests.
// It applies the same query semantics as the Postgres directory: explicit IDs
// win over the status filter, unknown IDs are absent from the result.
type MemDirectory struct {
	recipients []model.Recipient
}

// NewMemDirectory creates a directory over a fixed recipient set.
func NewMemDirectory(recipients []model.Recipient) *MemDirectory {
	return &MemDirectory{recipients: recipients}
}

// DevSeedDirectory returns a directory populated with sample customers and
// partners for local development.
func DevSeedDirectory() *MemDirectory {
	return NewMemDirectory([]model.Recipient{
		{ID: "cust-001", Type: model.TargetTypeCustomer, DisplayName: "Kim Minji", ContactAddress: "010-1111-0001", StatusAtResolution: "active"},
		{ID: "cust-002", Type: model.TargetTypeCustomer, DisplayName: "Lee Junho", ContactAddress: "010-1111-0002", StatusAtResolution: "active"},
		{ID: "cust-003", Type: model.TargetTypeCustomer, DisplayName: "Park Soyeon", ContactAddress: "010-1111-0003", StatusAtResolution: "dormant"},
		{ID: "part-001", Type: model.TargetTypePartner, DisplayName: "CleanPro Seoul", ContactAddress: "010-2222-0001", StatusAtResolution: "active"},
		{ID: "part-002", Type: model.TargetTypePartner, DisplayName: "FixIt Busan", ContactAddress: "010-2222-0002", StatusAtResolution: "suspended"},
	})
}

// Resolve returns recipients matching the query in insertion order.
func (d *MemDirectory) Resolve(_ context.Context, q core.RecipientQuery) ([]model.Recipient, error) {
	wanted := make(map[string]struct{}, len(q.IDs))
	for _, id := range q.IDs {
		wanted[id] = struct{}{}
	}

	out := make([]model.Recipient, 0)
	for _, rec := range d.recipients {
		if rec.Type != q.TargetType {
			continue
		}
		if len(wanted) > 0 {
			if _, ok := wanted[rec.ID]; !ok {
				continue
			}
		} else if q.StatusFilter != nil && rec.StatusAtResolution != *q.StatusFilter {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
