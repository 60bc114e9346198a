// Package model defines domain entities used by services and repositories.
package model

import (
	"encoding/json"
	"time"

	"github.com/junceapp/caseflow/internal/status"
)

// MediaItem is one attachment row from goods_pics, test_reports or buy_proofs.
type MediaItem struct {
	ID     int64  `json:"id"`
	CaseID string `json:"case_id"`
	URL    string `json:"url"`
	Type   string `json:"type"` // defaults to "image"
}

// NewMedia is a caller-supplied attachment for case creation/update.
type NewMedia struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

// Case is the central aggregate root: one consumer complaint tracked
// through the review workflow.
type Case struct {
	ID            string          `json:"id"` // opaque "case_"-prefixed id
	UserID        string          `json:"user_id"`
	GoodsName     string          `json:"goods_name"`
	GoodsURL      string          `json:"goods_url"`
	URLHash       string          `json:"url_hash"` // content hash of GoodsURL for future dedup
	Manufacturer  string          `json:"manufacturer"`
	Phone         string          `json:"phone"`
	ProblemDesc   json.RawMessage `json:"problem_desc"`
	BuyDate       *time.Time      `json:"buy_date"`
	IsSub         bool            `json:"is_sub"`
	PrimaryID     string          `json:"primary_id"` // parent case when IsSub
	ClaimantCount int             `json:"claimant_count"`
	Status        status.Status   `json:"status"`
	Result        string          `json:"result"`
	IsAlive       bool            `json:"is_alive"`
	IsRead        bool            `json:"is_read"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	AcceptAt      *time.Time      `json:"accept_at"`
	FinishAt      *time.Time      `json:"finish_at"`
}

// CaseAggregate is a case enriched with claimant display fields, the three
// media collections and, for a primary case, its live sub-cases.
type CaseAggregate struct {
	Case
	Nickname    string      `json:"nickname"`
	AvatarURL   string      `json:"avatar_url"`
	GoodsPics   []MediaItem `json:"goods_pics"`
	TestReports []MediaItem `json:"test_reports"`
	BuyProofs   []MediaItem `json:"buy_proofs"`
	SubCases    []Case      `json:"sub_cases"`
}

// NewCase is the mutation input for case creation and update.
type NewCase struct {
	UserID       string          `json:"-"`
	GoodsName    string          `json:"goods_name"`
	GoodsURL     string          `json:"goods_url"`
	Manufacturer string          `json:"manufacturer"`
	Phone        string          `json:"phone"`
	ProblemDesc  json.RawMessage `json:"problem_desc"`
	BuyDate      *time.Time      `json:"buy_date"`
	IsSub        bool            `json:"is_sub"`
	PrimaryID    string          `json:"primary_id"`
	GoodsPics    []NewMedia      `json:"goods_pics"`
	TestReports  []NewMedia      `json:"test_reports"`
	BuyProofs    []NewMedia      `json:"buy_proofs"`
	ClaimantName string          `json:"claimant_name"` // best-effort profile touch only
}

// StatusLogEntry is one immutable audit record of a transition.
type StatusLogEntry struct {
	ID         int64            `json:"id"`
	CaseID     string           `json:"case_id"`
	ApproverID string           `json:"approver_id"`
	Operation  status.Operation `json:"operation"`
	FromStatus status.Status    `json:"from_status"`
	ToStatus   status.Status    `json:"to_status"`
	Reason     string           `json:"reason"`
	CreatedAt  time.Time        `json:"created_at"`
}

// TransitionRequest asks the lifecycle engine to apply an operation.
// Status is the current status the caller observed; the engine refuses
// the transition if the row has moved on since.
type TransitionRequest struct {
	CaseID     string           `json:"case_id"`
	ApproverID string           `json:"-"`
	Status     status.Status    `json:"status"`
	Operation  status.Operation `json:"operation_type"`
	Reason     string           `json:"reason"`
}

// Filter is one declarative search descriptor compiled into query predicates.
// A descriptor carrying only Order contributes exclusively to ordering.
type Filter struct {
	Field     string `json:"field"`
	Condition string `json:"condition"`
	Values    []any  `json:"values"`
	Order     string `json:"order"`
}

// PageRequest selects one page of search results.
type PageRequest struct {
	PageNum  int `json:"pageNum"`
	PageSize int `json:"pageSize"`
}

// CasePage is the paginated search envelope.
type CasePage struct {
	PageNum  int             `json:"pageNum"`
	PageSize int             `json:"pageSize"`
	Total    int64           `json:"total"`
	List     []CaseAggregate `json:"list"`
	AlgID    int             `json:"algId"` // always 0, reserved for ranking experiments
}

// StatusCounts is the fixed eight-bucket status histogram.
type StatusCounts struct {
	PendingSubmit int64 `json:"pending_submit"`
	PendingReview int64 `json:"pending_review"`
	Reviewed      int64 `json:"reviewed"`
	Accepted      int64 `json:"accepted"`
	InProgress    int64 `json:"in_progress"`
	Success       int64 `json:"success"`
	Failure       int64 `json:"failure"`
	Closed        int64 `json:"closed"`
}

// Add records n cases in the bucket for s. When fold is true the three
// terminal outcomes collapse into the closed bucket (unread-badge view).
func (c *StatusCounts) Add(s status.Status, n int64, fold bool) {
	if fold && status.Terminal(s) {
		c.Closed += n
		return
	}
	switch s {
	case status.PendingSubmit:
		c.PendingSubmit += n
	case status.PendingReview:
		c.PendingReview += n
	case status.Reviewed:
		c.Reviewed += n
	case status.Accepted:
		c.Accepted += n
	case status.InProgress:
		c.InProgress += n
	case status.Success:
		c.Success += n
	case status.Failure:
		c.Failure += n
	case status.Closed:
		c.Closed += n
	}
}

// User is a claimant or staff account. Referenced read-only from case
// listings for display fields.
type User struct {
	ID           string    `json:"id"`
	NickName     string    `json:"nick_name"`
	AvatarURL    string    `json:"avatar_url"`
	ClaimantName string    `json:"claimant_name"`
	Phone        string    `json:"phone"`
	IsAdmin      bool      `json:"is_admin"`
	IsAudit      bool      `json:"is_audit"`
	IsAlive      bool      `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProfilePatch is a partial user profile update; nil fields are untouched.
type ProfilePatch struct {
	NickName     *string `json:"nick_name"`
	AvatarURL    *string `json:"avatar_url"`
	Phone        *string `json:"phone"`
	ClaimantName *string `json:"claimant_name"`
}

// UserPage is the paginated user listing.
type UserPage struct {
	Users []User `json:"users"`
	Total int64  `json:"total"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
}
