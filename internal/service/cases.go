// Package service holds business rules between the transport boundary and
// the repositories: input validation, the lifecycle table lookup, canned
// searches and the best-effort profile touch.
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/junceapp/caseflow/internal/errs"
	"github.com/junceapp/caseflow/internal/limiter"
	"github.com/junceapp/caseflow/internal/model"
	"github.com/junceapp/caseflow/internal/repository"
	"github.com/junceapp/caseflow/internal/status"
)

// MyCases status filter tokens that are not plain statuses.
const (
	FilterAll      = "all"
	FilterFinished = "closed" // expands to the three terminal outcomes
)

// finishedStatuses is the terminal trio shown together in "finished" views.
var finishedStatuses = []any{status.Success, status.Failure, status.Closed}

// CaseService defines the case workflow operations consumed by the
// transport layer.
type CaseService interface {
	// Create validates and stores a new case, returning its id.
	Create(ctx context.Context, nc *model.NewCase) (string, error)
	// Get returns the full aggregate for one case.
	Get(ctx context.Context, id string) (*model.CaseAggregate, error)
	// Update rewrites a caller-owned case and re-seeds it to pending review.
	Update(ctx context.Context, id string, nc *model.NewCase) error
	// Transition applies one reviewer operation and returns the new status.
	Transition(ctx context.Context, req model.TransitionRequest) (status.Status, error)
	// Delete soft-deletes a case (administrative).
	Delete(ctx context.Context, id string) error
	// MarkRead flips the read flag on caller-owned cases.
	MarkRead(ctx context.Context, userID string, caseIDs []string) (int64, error)

	// Search runs a caller-supplied filter specification.
	Search(ctx context.Context, filters []model.Filter, page model.PageRequest) (*model.CasePage, error)
	// WishCases lists pending primaries ranked by claimant count.
	WishCases(ctx context.Context, keyword string, page model.PageRequest) (*model.CasePage, error)
	// RecentCases lists newest pending primaries.
	RecentCases(ctx context.Context, keyword string, page model.PageRequest) (*model.CasePage, error)
	// GoingCases lists primaries under active handling.
	GoingCases(ctx context.Context, keyword string, page model.PageRequest) (*model.CasePage, error)
	// FinishedCases lists primaries with a terminal outcome.
	FinishedCases(ctx context.Context, keyword string, page model.PageRequest) (*model.CasePage, error)
	// MyCases lists the caller's cases with an optional status filter.
	MyCases(ctx context.Context, userID, statusFilter string, page model.PageRequest) (*model.CasePage, error)
	// SuccessResults lists recent successful outcomes.
	SuccessResults(ctx context.Context) (*model.CasePage, error)
	// LastChosen returns the most recent case picked up by review.
	LastChosen(ctx context.Context) (*model.CasePage, error)

	// UnreadCounts returns the caller's unread-badge histogram.
	UnreadCounts(ctx context.Context, userID string) (model.StatusCounts, error)
	// AuditCounts returns the dashboard histogram over all live cases.
	AuditCounts(ctx context.Context) (model.StatusCounts, error)
}

type CaseServiceImpl struct {
	cases repository.CaseRepository
	users repository.UserRepository
	lim   limiter.Limiter
	log   *zap.Logger
}

// NewCaseService constructs CaseService.
func NewCaseService(cases repository.CaseRepository, users repository.UserRepository, lim limiter.Limiter, log *zap.Logger) *CaseServiceImpl {
	if lim == nil {
		lim = limiter.Noop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CaseServiceImpl{cases: cases, users: users, lim: lim, log: log}
}

func validateNewCase(nc *model.NewCase) error {
	if nc.UserID == "" {
		return fmt.Errorf("%w: empty user id", errs.ErrValidation)
	}
	if nc.GoodsName == "" {
		return fmt.Errorf("%w: empty goods name", errs.ErrValidation)
	}
	if nc.IsSub && nc.PrimaryID == "" {
		return fmt.Errorf("%w: sub-case without primary_id", errs.ErrValidation)
	}
	if !nc.IsSub && nc.PrimaryID != "" {
		return fmt.Errorf("%w: primary_id on a non-sub case", errs.ErrValidation)
	}
	for _, group := range [][]model.NewMedia{nc.GoodsPics, nc.TestReports, nc.BuyProofs} {
		for _, m := range group {
			if m.URL == "" {
				return fmt.Errorf("%w: media item without url", errs.ErrValidation)
			}
		}
	}
	return nil
}

// Create validates the claim, enforces the submission limiter, stores the
// case and then best-effort updates the claimant's contact profile. The
// profile touch runs after commit and never fails the created case.
func (s *CaseServiceImpl) Create(ctx context.Context, nc *model.NewCase) (string, error) {
	if err := validateNewCase(nc); err != nil {
		return "", err
	}

	ok, retryAfter, err := s.lim.Allow(ctx, nc.UserID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: retry in %s", errs.ErrRateLimited, retryAfter)
	}

	id, err := s.cases.Create(ctx, nc)
	if err != nil {
		return "", err
	}

	if _, _, err := s.lim.Note(ctx, nc.UserID); err != nil {
		s.log.Warn("submission limiter note failed", zap.String("user_id", nc.UserID), zap.Error(err))
	}
	if nc.Phone != "" || nc.ClaimantName != "" {
		if err := s.users.TouchContact(ctx, nc.UserID, nc.Phone, nc.ClaimantName); err != nil {
			s.log.Warn("profile touch failed", zap.String("user_id", nc.UserID), zap.Error(err))
		}
	}
	return id, nil
}

// Get returns the full aggregate for one case.
func (s *CaseServiceImpl) Get(ctx context.Context, id string) (*model.CaseAggregate, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty case id", errs.ErrValidation)
	}
	return s.cases.GetByID(ctx, id)
}

// Update rewrites a caller-owned case; the repository re-seeds it to
// pending review with an audit row.
func (s *CaseServiceImpl) Update(ctx context.Context, id string, nc *model.NewCase) error {
	if id == "" {
		return fmt.Errorf("%w: empty case id", errs.ErrValidation)
	}
	if err := validateNewCase(nc); err != nil {
		return err
	}
	return s.cases.Update(ctx, id, nc)
}

// Transition resolves the destination from the transition table and applies
// it atomically. Unknown status/operation pairs fail before touching storage.
func (s *CaseServiceImpl) Transition(ctx context.Context, req model.TransitionRequest) (status.Status, error) {
	if req.CaseID == "" || req.ApproverID == "" {
		return "", fmt.Errorf("%w: empty case or approver id", errs.ErrValidation)
	}
	to, err := status.Next(req.Status, req.Operation)
	if err != nil {
		return "", err
	}
	if err := s.cases.Transition(ctx, req, to); err != nil {
		return "", err
	}
	return to, nil
}

// Delete soft-deletes a case.
func (s *CaseServiceImpl) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty case id", errs.ErrValidation)
	}
	return s.cases.SoftDelete(ctx, id)
}

// MarkRead flips the read flag for caller-owned cases.
func (s *CaseServiceImpl) MarkRead(ctx context.Context, userID string, caseIDs []string) (int64, error) {
	if userID == "" {
		return 0, fmt.Errorf("%w: empty user id", errs.ErrValidation)
	}
	return s.cases.MarkRead(ctx, userID, caseIDs)
}

// Search runs a caller-supplied filter specification as-is.
func (s *CaseServiceImpl) Search(ctx context.Context, filters []model.Filter, page model.PageRequest) (*model.CasePage, error) {
	return s.cases.Search(ctx, filters, page)
}

func withKeyword(filters []model.Filter, keyword string) []model.Filter {
	if keyword == "" {
		return filters
	}
	return append(filters, model.Filter{Field: "goods_name", Condition: "contains", Values: []any{keyword}})
}

// WishCases lists pending primaries ranked by claimant count.
func (s *CaseServiceImpl) WishCases(ctx context.Context, keyword string, page model.PageRequest) (*model.CasePage, error) {
	filters := []model.Filter{
		{Field: "status", Condition: "eq", Values: []any{status.PendingReview}},
		{Field: "claimant_count", Order: "desc"},
		{Field: "is_sub", Condition: "eq", Values: []any{false}},
	}
	return s.cases.Search(ctx, withKeyword(filters, keyword), page)
}

// RecentCases lists newest pending primaries.
func (s *CaseServiceImpl) RecentCases(ctx context.Context, keyword string, page model.PageRequest) (*model.CasePage, error) {
	filters := []model.Filter{
		{Field: "status", Condition: "in", Values: []any{status.PendingReview}},
		{Field: "created_at", Order: "desc"},
		{Field: "is_sub", Condition: "eq", Values: []any{false}},
	}
	return s.cases.Search(ctx, withKeyword(filters, keyword), page)
}

// GoingCases lists primaries under active handling.
func (s *CaseServiceImpl) GoingCases(ctx context.Context, keyword string, page model.PageRequest) (*model.CasePage, error) {
	filters := []model.Filter{
		{Field: "status", Condition: "in", Values: []any{status.Accepted, status.InProgress}},
		{Field: "created_at", Order: "desc"},
		{Field: "is_sub", Condition: "eq", Values: []any{false}},
	}
	return s.cases.Search(ctx, withKeyword(filters, keyword), page)
}

// FinishedCases lists primaries with a terminal outcome.
func (s *CaseServiceImpl) FinishedCases(ctx context.Context, keyword string, page model.PageRequest) (*model.CasePage, error) {
	filters := []model.Filter{
		{Field: "status", Condition: "in", Values: finishedStatuses},
		{Field: "created_at", Order: "desc"},
		{Field: "is_sub", Condition: "eq", Values: []any{false}},
	}
	return s.cases.Search(ctx, withKeyword(filters, keyword), page)
}

// MyCases lists the caller's cases newest first. statusFilter is a plain
// status, FilterFinished (the terminal trio) or FilterAll (no predicate).
func (s *CaseServiceImpl) MyCases(ctx context.Context, userID, statusFilter string, page model.PageRequest) (*model.CasePage, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: empty user id", errs.ErrValidation)
	}
	filters := []model.Filter{
		{Field: "user_id", Condition: "eq", Values: []any{userID}},
		{Field: "created_at", Order: "desc"},
	}
	switch statusFilter {
	case FilterAll, "":
	case FilterFinished:
		filters = append(filters, model.Filter{Field: "status", Condition: "in", Values: finishedStatuses})
	default:
		if !status.Valid(status.Status(statusFilter)) {
			return nil, fmt.Errorf("%w: unknown status filter %q", errs.ErrInvalidState, statusFilter)
		}
		filters = append(filters, model.Filter{Field: "status", Condition: "eq", Values: []any{statusFilter}})
	}
	return s.cases.Search(ctx, filters, page)
}

// SuccessResults lists recent successful outcomes.
func (s *CaseServiceImpl) SuccessResults(ctx context.Context) (*model.CasePage, error) {
	filters := []model.Filter{
		{Field: "status", Condition: "in", Values: []any{status.Success}},
		{Field: "created_at", Order: "desc"},
	}
	return s.cases.Search(ctx, filters, model.PageRequest{PageNum: 1, PageSize: 50})
}

// LastChosen returns the most recent case already picked up by review.
func (s *CaseServiceImpl) LastChosen(ctx context.Context) (*model.CasePage, error) {
	filters := []model.Filter{
		{Field: "status", Condition: "neq", Values: []any{status.PendingReview}},
		{Field: "created_at", Order: "desc"},
		{Field: "is_sub", Condition: "eq", Values: []any{false}},
	}
	return s.cases.Search(ctx, filters, model.PageRequest{PageNum: 1, PageSize: 1})
}

// UnreadCounts returns the caller's unread-badge histogram.
func (s *CaseServiceImpl) UnreadCounts(ctx context.Context, userID string) (model.StatusCounts, error) {
	if userID == "" {
		return model.StatusCounts{}, fmt.Errorf("%w: empty user id", errs.ErrValidation)
	}
	return s.cases.UnreadCounts(ctx, userID)
}

// AuditCounts returns the dashboard histogram over all live cases.
func (s *CaseServiceImpl) AuditCounts(ctx context.Context) (model.StatusCounts, error) {
	return s.cases.AuditCounts(ctx)
}
