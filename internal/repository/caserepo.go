// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/junceapp/caseflow/internal/model"
	"github.com/junceapp/caseflow/internal/status"
)

// CaseRepository owns all case reads and transactional case writes.
type CaseRepository interface {
	// Create inserts the case, its media collections and the submit audit row
	// in one transaction, incrementing the parent claimant count for sub-cases.
	// Returns the generated case id.
	Create(ctx context.Context, nc *model.NewCase) (string, error)

	// GetByID returns the full aggregate for a live case.
	GetByID(ctx context.Context, id string) (*model.CaseAggregate, error)

	// Search compiles the filters into data and count queries and returns one
	// enriched page of results.
	Search(ctx context.Context, filters []model.Filter, page model.PageRequest) (*model.CasePage, error)

	// Transition applies req atomically: audit row plus conditional status
	// update. The destination is resolved by the caller from the transition table.
	Transition(ctx context.Context, req model.TransitionRequest, to status.Status) error

	// Update rewrites the mutable case fields and media collections, re-seeding
	// status to pending_review with an audit row, all in one transaction.
	Update(ctx context.Context, id string, nc *model.NewCase) error

	// SoftDelete marks a case not alive, preserving audit history.
	SoftDelete(ctx context.Context, id string) error

	// MarkRead flips the read flag on caller-owned cases in one statement and
	// returns the number of rows touched.
	MarkRead(ctx context.Context, userID string, caseIDs []string) (int64, error)

	// UnreadCounts returns the unread-badge histogram for one claimant, with
	// terminal outcomes folded into the closed bucket.
	UnreadCounts(ctx context.Context, userID string) (model.StatusCounts, error)

	// AuditCounts returns the granular histogram over all live cases.
	AuditCounts(ctx context.Context) (model.StatusCounts, error)
}
