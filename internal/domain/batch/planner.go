// Package batch partitions a resolved recipient list into fixed-size batches.
package batch

import (
	"fmt"

	"github.com/modubang/notify-api/internal/domain/model"
)

// DefaultSize is the batch size used when configuration supplies none.
const DefaultSize = 5

// Plan is a deterministic partition of an ordered recipient list.
// Batches are contiguous slices in resolution order, so re-planning the same
// list always reproduces the same batch membership.
type Plan struct {
	recipients []model.Recipient
	size       int
}

// NewPlan builds a plan over recipients with the given batch size.
func NewPlan(recipients []model.Recipient, size int) (*Plan, error) {
	if size < 1 {
		return nil, fmt.Errorf("batch size must be positive, got %d", size)
	}
	return &Plan{recipients: recipients, size: size}, nil
}

// TotalBatches returns ceil(len(recipients) / size).
func (p *Plan) TotalBatches() int {
	return (len(p.recipients) + p.size - 1) / p.size
}

// TotalCount returns the number of recipients covered by the plan.
func (p *Plan) TotalCount() int {
	return len(p.recipients)
}

// Batch returns the i-th batch (zero-based) as a sub-slice of the recipient
// list. It panics if i is out of range, matching slice semantics.
func (p *Plan) Batch(i int) []model.Recipient {
	start := i * p.size
	end := start + p.size
	if end > len(p.recipients) {
		end = len(p.recipients)
	}
	return p.recipients[start:end]
}

// Batches yields every batch in order.
func (p *Plan) Batches() [][]model.Recipient {
	n := p.TotalBatches()
	out := make([][]model.Recipient, 0, n)
	for i := range n {
		out = append(out, p.Batch(i))
	}
	return out
}
