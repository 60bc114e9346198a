package postgres

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/junceapp/caseflow/internal/errs"
	"github.com/junceapp/caseflow/internal/model"
	"github.com/junceapp/caseflow/internal/status"
)

// caseColumns is the canonical scan list for a case row. Nullable text
// columns are coalesced so model.Case carries plain strings.
const caseColumns = `c.id, c.user_id, c.goods_name, c.goods_url, COALESCE(c.url_hash,''), c.manufacturer, ` +
	`COALESCE(c.phone,''), c.problem_desc, c.buy_date, c.is_sub, COALESCE(c.primary_id,''), c.claimant_count, ` +
	`c.status, COALESCE(c.result,''), c.is_alive, c.is_read, c.created_at, c.updated_at, c.accept_at, c.finish_at`

// Media collection tables. Fixed set, never taken from input.
const (
	tableGoodsPics   = "goods_pics"
	tableTestReports = "test_reports"
	tableBuyProofs   = "buy_proofs"
)

// readTxOptions gives every aggregate read a consistent snapshot without
// blocking writers.
var readTxOptions = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

// CaseRepo implements CaseRepository using PostgreSQL.
type CaseRepo struct{ db *DB }

// NewCaseRepo constructs a case repository.
func NewCaseRepo(db *DB) *CaseRepo { return &CaseRepo{db: db} }

// newCaseID generates an opaque case id. UUIDv7 keeps rough time ordering
// without the collision window of a timestamp+rand scheme.
func newCaseID() string {
	return "case_" + uuid.Must(uuid.NewV7()).String()
}

func urlHash(goodsURL string) any {
	if goodsURL == "" {
		return nil
	}
	sum := md5.Sum([]byte(goodsURL))
	return hex.EncodeToString(sum[:])
}

// Create inserts the case, its three media collections and the submit audit
// row in one transaction. For a sub-case the parent claimant count is
// incremented atomically in the same transaction; a missing, dead or
// non-primary parent aborts the whole creation.
func (r *CaseRepo) Create(ctx context.Context, nc *model.NewCase) (id string, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	var primaryID any
	if nc.IsSub {
		const bump = `
UPDATE cases SET claimant_count = claimant_count + 1, updated_at = now()
WHERE id=$1 AND is_alive AND NOT is_sub`
		tag, execErr := tx.Exec(ctx, bump, nc.PrimaryID)
		if execErr != nil {
			err = execErr
			return "", err
		}
		if tag.RowsAffected() == 0 {
			err = fmt.Errorf("primary case %s: %w", nc.PrimaryID, errs.ErrNotFound)
			return "", err
		}
		primaryID = nc.PrimaryID
	}

	id = newCaseID()
	const ins = `
INSERT INTO cases (id, user_id, goods_name, goods_url, url_hash, manufacturer, phone, problem_desc, buy_date, is_sub, primary_id, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	if _, err = tx.Exec(ctx, ins,
		id, nc.UserID, nc.GoodsName, nc.GoodsURL, urlHash(nc.GoodsURL), nc.Manufacturer,
		nc.Phone, nc.ProblemDesc, nc.BuyDate, nc.IsSub, primaryID, status.PendingReview,
	); err != nil {
		return "", err
	}

	if err = insertMedia(ctx, tx, tableGoodsPics, id, nc.GoodsPics); err != nil {
		return "", err
	}
	if err = insertMedia(ctx, tx, tableTestReports, id, nc.TestReports); err != nil {
		return "", err
	}
	if err = insertMedia(ctx, tx, tableBuyProofs, id, nc.BuyProofs); err != nil {
		return "", err
	}

	if err = insertStatusLog(ctx, tx, id, nc.UserID, status.OpSubmit, status.PendingSubmit, status.PendingReview, ""); err != nil {
		return "", err
	}
	return id, nil
}

func insertMedia(ctx context.Context, tx pgx.Tx, table, caseID string, items []model.NewMedia) error {
	q := fmt.Sprintf(`INSERT INTO %s (case_id, url, type) VALUES ($1,$2,$3)`, table)
	for _, it := range items {
		typ := it.Type
		if typ == "" {
			typ = "image"
		}
		if _, err := tx.Exec(ctx, q, caseID, it.URL, typ); err != nil {
			return err
		}
	}
	return nil
}

func insertStatusLog(ctx context.Context, tx pgx.Tx, caseID, actorID string, op status.Operation, from, to status.Status, reason string) error {
	const q = `
INSERT INTO case_status_logs (case_id, approver_id, operation, from_status, to_status, reason)
VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := tx.Exec(ctx, q, caseID, actorID, op, from, to, reason)
	return err
}

// Transition applies one lifecycle step. Inside a single transaction it
// verifies the case is live, appends the audit row, then updates the status
// conditionally on the expected current value; a lost race surfaces as
// errs.ErrConflict and rolls everything back, so no partial audit trail is
// ever persisted. A repeated close (closed -> closed) short-circuits with no
// additional audit row.
func (r *CaseRepo) Transition(ctx context.Context, req model.TransitionRequest, to status.Status) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	const sel = `SELECT status FROM cases WHERE id=$1 AND is_alive FOR UPDATE`
	var cur status.Status
	if err = tx.QueryRow(ctx, sel, req.CaseID).Scan(&cur); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = fmt.Errorf("case %s: %w", req.CaseID, errs.ErrNotFound)
		}
		return err
	}

	if cur == status.Closed && to == status.Closed {
		return nil
	}

	if err = insertStatusLog(ctx, tx, req.CaseID, req.ApproverID, req.Operation, req.Status, to, req.Reason); err != nil {
		return err
	}

	var upd string
	args := []any{req.CaseID, to}
	switch {
	case status.Terminal(to):
		upd = `
UPDATE cases SET status=$2, result=$3, updated_at=now(), finish_at=now()
WHERE id=$1 AND status=$4`
		args = append(args, req.Reason, req.Status)
	case to == status.Accepted:
		upd = `
UPDATE cases SET status=$2, updated_at=now(), accept_at=now()
WHERE id=$1 AND status=$3`
		args = append(args, req.Status)
	default:
		upd = `
UPDATE cases SET status=$2, updated_at=now()
WHERE id=$1 AND status=$3`
		args = append(args, req.Status)
	}
	tag, execErr := tx.Exec(ctx, upd, args...)
	if execErr != nil {
		err = execErr
		return err
	}
	if tag.RowsAffected() == 0 {
		err = fmt.Errorf("case %s moved from %s: %w", req.CaseID, req.Status, errs.ErrConflict)
		return err
	}
	return nil
}

// Update rewrites the mutable fields, replaces the media collections and
// re-seeds status to pending_review, logging the reset as a submit
// operation. Ownership is part of the row lock predicate.
func (r *CaseRepo) Update(ctx context.Context, id string, nc *model.NewCase) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	const sel = `SELECT status FROM cases WHERE id=$1 AND user_id=$2 AND is_alive FOR UPDATE`
	var cur status.Status
	if err = tx.QueryRow(ctx, sel, id, nc.UserID).Scan(&cur); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = fmt.Errorf("case %s: %w", id, errs.ErrNotFound)
		}
		return err
	}

	const upd = `
UPDATE cases SET goods_name=$2, goods_url=$3, url_hash=$4, manufacturer=$5, phone=$6, problem_desc=$7, buy_date=$8, status=$9, updated_at=now()
WHERE id=$1`
	if _, err = tx.Exec(ctx, upd,
		id, nc.GoodsName, nc.GoodsURL, urlHash(nc.GoodsURL), nc.Manufacturer,
		nc.Phone, nc.ProblemDesc, nc.BuyDate, status.PendingReview,
	); err != nil {
		return err
	}

	for _, table := range []string{tableGoodsPics, tableTestReports, tableBuyProofs} {
		if _, err = tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE case_id=$1`, table), id); err != nil {
			return err
		}
	}
	if err = insertMedia(ctx, tx, tableGoodsPics, id, nc.GoodsPics); err != nil {
		return err
	}
	if err = insertMedia(ctx, tx, tableTestReports, id, nc.TestReports); err != nil {
		return err
	}
	if err = insertMedia(ctx, tx, tableBuyProofs, id, nc.BuyProofs); err != nil {
		return err
	}

	return insertStatusLog(ctx, tx, id, nc.UserID, status.OpSubmit, cur, status.PendingReview, "resubmitted")
}

// SoftDelete marks a case not alive. History rows stay untouched.
func (r *CaseRepo) SoftDelete(ctx context.Context, id string) error {
	const q = `UPDATE cases SET is_alive=FALSE, updated_at=now() WHERE id=$1 AND is_alive`
	tag, err := r.db.Pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("case %s: %w", id, errs.ErrNotFound)
	}
	return nil
}

// MarkRead flips the read flag for caller-owned live cases in one statement.
// Ownership sits inside the predicate so there is no verify-then-update race.
func (r *CaseRepo) MarkRead(ctx context.Context, userID string, caseIDs []string) (int64, error) {
	if len(caseIDs) == 0 {
		return 0, nil
	}
	const q = `UPDATE cases SET is_read=TRUE WHERE user_id=$1 AND id = ANY($2) AND is_alive`
	tag, err := r.db.Pool.Exec(ctx, q, userID, caseIDs)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// GetByID assembles the full aggregate inside one snapshot transaction:
// case row with claimant display fields, the three media collections and,
// for a primary case, its live sub-cases.
func (r *CaseRepo) GetByID(ctx context.Context, id string) (agg *model.CaseAggregate, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, readTxOptions)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	q := searchSelect + ` WHERE c.id=$1 AND c.is_alive`
	row := tx.QueryRow(ctx, q, id)
	a, scanErr := scanAggregate(row)
	if scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			err = fmt.Errorf("case %s: %w", id, errs.ErrNotFound)
			return nil, err
		}
		err = scanErr
		return nil, err
	}

	if err = enrich(ctx, tx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Search runs the compiled data and count queries and enriches every page
// row, all on one snapshot transaction. The count shares the filter
// predicates but ignores pagination, so total is page-independent.
func (r *CaseRepo) Search(ctx context.Context, filters []model.Filter, page model.PageRequest) (res *model.CasePage, err error) {
	cs, err := compileSearch(filters, page)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.Pool.BeginTx(ctx, readTxOptions)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	rows, err := tx.Query(ctx, cs.dataSQL, cs.dataArgs...)
	if err != nil {
		return nil, err
	}
	list := make([]model.CaseAggregate, 0, page.PageSize)
	for rows.Next() {
		a, scanErr := scanAggregate(rows)
		if scanErr != nil {
			rows.Close()
			err = scanErr
			return nil, err
		}
		list = append(list, *a)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, err
	}

	var total int64
	if err = tx.QueryRow(ctx, cs.countSQL, cs.countArgs...).Scan(&total); err != nil {
		return nil, err
	}

	for i := range list {
		if err = enrich(ctx, tx, &list[i]); err != nil {
			return nil, err
		}
	}

	return &model.CasePage{
		PageNum:  page.PageNum,
		PageSize: page.PageSize,
		Total:    total,
		List:     list,
		AlgID:    0,
	}, nil
}

// UnreadCounts groups the caller's live unread cases by status, folding
// terminal outcomes into the closed bucket for the badge view.
func (r *CaseRepo) UnreadCounts(ctx context.Context, userID string) (model.StatusCounts, error) {
	const q = `
SELECT status, COUNT(*) FROM cases
WHERE user_id=$1 AND is_alive AND NOT is_read
GROUP BY status`
	return r.countByStatus(ctx, q, true, userID)
}

// AuditCounts groups all live cases by status with granular terminal buckets.
func (r *CaseRepo) AuditCounts(ctx context.Context) (model.StatusCounts, error) {
	const q = `
SELECT status, COUNT(*) FROM cases
WHERE is_alive
GROUP BY status`
	return r.countByStatus(ctx, q, false)
}

func (r *CaseRepo) countByStatus(ctx context.Context, q string, fold bool, args ...any) (model.StatusCounts, error) {
	var counts model.StatusCounts
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return counts, err
	}
	defer rows.Close()
	for rows.Next() {
		var s status.Status
		var n int64
		if err := rows.Scan(&s, &n); err != nil {
			return counts, err
		}
		counts.Add(s, n, fold)
	}
	return counts, rows.Err()
}

// scanAggregate scans one joined search row (case columns plus nickname and
// avatar) into an aggregate shell; media and sub-cases come from enrich.
func scanAggregate(row pgx.Row) (*model.CaseAggregate, error) {
	var a model.CaseAggregate
	if err := row.Scan(
		&a.ID, &a.UserID, &a.GoodsName, &a.GoodsURL, &a.URLHash, &a.Manufacturer,
		&a.Phone, &a.ProblemDesc, &a.BuyDate, &a.IsSub, &a.PrimaryID, &a.ClaimantCount,
		&a.Status, &a.Result, &a.IsAlive, &a.IsRead, &a.CreatedAt, &a.UpdatedAt, &a.AcceptAt, &a.FinishAt,
		&a.Nickname, &a.AvatarURL,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

func scanCase(row pgx.Row) (*model.Case, error) {
	var c model.Case
	if err := row.Scan(
		&c.ID, &c.UserID, &c.GoodsName, &c.GoodsURL, &c.URLHash, &c.Manufacturer,
		&c.Phone, &c.ProblemDesc, &c.BuyDate, &c.IsSub, &c.PrimaryID, &c.ClaimantCount,
		&c.Status, &c.Result, &c.IsAlive, &c.IsRead, &c.CreatedAt, &c.UpdatedAt, &c.AcceptAt, &c.FinishAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

// enrich attaches the three media collections and, for a primary case, the
// live sub-case rollups. Runs on the caller's transaction so one aggregate
// is always a consistent snapshot.
func enrich(ctx context.Context, q querier, a *model.CaseAggregate) error {
	var err error
	if a.GoodsPics, err = fetchMedia(ctx, q, tableGoodsPics, a.ID); err != nil {
		return err
	}
	if a.TestReports, err = fetchMedia(ctx, q, tableTestReports, a.ID); err != nil {
		return err
	}
	if a.BuyProofs, err = fetchMedia(ctx, q, tableBuyProofs, a.ID); err != nil {
		return err
	}
	a.SubCases = []model.Case{}
	if a.IsSub {
		return nil
	}

	sub := `SELECT ` + caseColumns + ` FROM cases c WHERE c.primary_id=$1 AND c.is_alive`
	rows, err := q.Query(ctx, sub, a.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		c, scanErr := scanCase(rows)
		if scanErr != nil {
			return scanErr
		}
		a.SubCases = append(a.SubCases, *c)
	}
	return rows.Err()
}

func fetchMedia(ctx context.Context, q querier, table, caseID string) ([]model.MediaItem, error) {
	sql := fmt.Sprintf(`SELECT id, case_id, url, type FROM %s WHERE case_id=$1 ORDER BY id`, table)
	rows, err := q.Query(ctx, sql, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []model.MediaItem{}
	for rows.Next() {
		var m model.MediaItem
		if err := rows.Scan(&m.ID, &m.CaseID, &m.URL, &m.Type); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}
