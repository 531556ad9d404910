// Package service implements the dispatch engine's business logic: recipient
// resolution, job creation and planning, and progress queries.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modubang/notify-api/internal/core"
	"github.com/modubang/notify-api/internal/domain/model"
)

// ResolverOptions groups dependencies for RecipientResolver.
type ResolverOptions struct {
	Directory core.RecipientDirectory // Required: customer/partner directory
	Logger    *slog.Logger            // Optional: structured logger
}

// RecipientResolver turns a dispatch request's targeting input into the final
// frozen recipient list. Resolution happens exactly once, at job creation;
// later directory changes never affect the job.
type RecipientResolver struct {
	directory core.RecipientDirectory
	logger    *slog.Logger
}

// NewRecipientResolver constructs a new RecipientResolver.
func NewRecipientResolver(opts ResolverOptions) (*RecipientResolver, error) {
	if opts.Directory == nil {
		return nil, errors.New("RecipientDirectory is required")
	}
	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "recipient_resolver")
	}
	return &RecipientResolver{directory: opts.Directory, logger: logger}, nil
}

// MustNewRecipientResolver constructs a new RecipientResolver and panics on error.
func MustNewRecipientResolver(opts ResolverOptions) *RecipientResolver {
	r, err := NewRecipientResolver(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create RecipientResolver: %v", err))
	}
	return r
}

// Resolve produces the final recipient list for the request.
//
// Explicit IDs take precedence over the status filter; IDs not present in the
// directory are silently dropped. Duplicates keep the first occurrence only,
// recipients without a contact address are dropped, and the returned order is
// deterministic: request order for explicit IDs, directory order otherwise.
func (r *RecipientResolver) Resolve(ctx context.Context, req *model.CreateDispatchRequest) ([]model.Recipient, error) {
	query := core.RecipientQuery{TargetType: req.TargetType}
	if len(req.TargetIDs) > 0 {
		query.IDs = req.TargetIDs
	} else {
		query.StatusFilter = req.TargetFilter
	}

	matches, err := r.directory.Resolve(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("resolve recipients: %w", err)
	}

	if len(query.IDs) > 0 {
		matches = orderByRequest(query.IDs, matches)
	}

	resolved := make([]model.Recipient, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	dropped := 0
	for _, rec := range matches {
		if rec.ContactAddress == "" {
			dropped++
			continue
		}
		if _, dup := seen[rec.ID]; dup {
			continue
		}
		seen[rec.ID] = struct{}{}
		resolved = append(resolved, rec)
	}

	if r.logger != nil {
		r.logger.InfoContext(ctx, "recipients resolved",
			"target_type", req.TargetType,
			"requested_ids", len(req.TargetIDs),
			"matched", len(matches),
			"resolved", len(resolved),
			"dropped_no_contact", dropped,
		)
	}
	return resolved, nil
}

// orderByRequest reorders directory matches to follow the request's ID order.
// IDs the directory did not return are skipped.
func orderByRequest(ids []string, matches []model.Recipient) []model.Recipient {
	byID := make(map[string]model.Recipient, len(matches))
	for _, rec := range matches {
		if _, ok := byID[rec.ID]; !ok {
			byID[rec.ID] = rec
		}
	}
	out := make([]model.Recipient, 0, len(ids))
	emitted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, done := emitted[id]; done {
			continue
		}
		if rec, ok := byID[id]; ok {
			out = append(out, rec)
			emitted[id] = struct{}{}
		}
	}
	return out
}
