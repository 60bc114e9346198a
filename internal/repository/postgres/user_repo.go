package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/junceapp/caseflow/internal/errs"
	"github.com/junceapp/caseflow/internal/model"
)

const userColumns = `id, nick_name, COALESCE(avatar_url,''), COALESCE(claimant_name,''), COALESCE(phone,''), is_admin, is_audit, is_alive, created_at, updated_at`

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(
		&u.ID, &u.NickName, &u.AvatarURL, &u.ClaimantName, &u.Phone,
		&u.IsAdmin, &u.IsAudit, &u.IsAlive, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

// defaultNickname derives a nickname from the trailing id characters,
// mirroring first-contact account creation.
func defaultNickname(id string) string {
	suffix := id
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	return "user_" + suffix
}

// Ensure creates the user on first sight and returns the row either way.
func (r *UserRepo) Ensure(ctx context.Context, id string) (*model.User, error) {
	const ins = `
INSERT INTO users (id, nick_name) VALUES ($1,$2)
ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.Pool.Exec(ctx, ins, id, defaultNickname(id)); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Create inserts a new user row; a duplicate id fails with errs.ErrConflict.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, nick_name, avatar_url, claimant_name, phone, is_admin, is_audit)
VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := r.db.Pool.Exec(ctx, q, u.ID, u.NickName, u.AvatarURL, u.ClaimantName, u.Phone, u.IsAdmin, u.IsAudit)
	if isUniqueViolation(err) {
		return fmt.Errorf("user %s: %w", u.ID, errs.ErrConflict)
	}
	return err
}

// GetByID selects a live user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id=$1 AND is_alive`
	u, err := scanUser(r.db.Pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, errs.ErrNotFound)
		}
		return nil, err
	}
	return u, nil
}

// List returns one page of live users plus the total live count.
func (r *UserRepo) List(ctx context.Context, page, limit int) ([]model.User, int64, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE is_alive ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.Pool.Query(ctx, q, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	users := []model.User{}
	for rows.Next() {
		u, scanErr := scanUser(rows)
		if scanErr != nil {
			rows.Close()
			return nil, 0, scanErr
		}
		users = append(users, *u)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	const count = `SELECT COUNT(*) FROM users WHERE is_alive`
	if err := r.db.Pool.QueryRow(ctx, count).Scan(&total); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// UpdateProfile applies the non-nil patch fields. Columns are fixed here;
// only values travel as parameters.
func (r *UserRepo) UpdateProfile(ctx context.Context, id string, p model.ProfilePatch) error {
	sets := []string{}
	args := []any{id}
	add := func(col string, v *string) {
		if v != nil {
			args = append(args, *v)
			sets = append(sets, fmt.Sprintf("%s=$%d", col, len(args)))
		}
	}
	add("nick_name", p.NickName)
	add("avatar_url", p.AvatarURL)
	add("phone", p.Phone)
	add("claimant_name", p.ClaimantName)
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at=now()")

	q := fmt.Sprintf(`UPDATE users SET %s WHERE id=$1 AND is_alive`, strings.Join(sets, ", "))
	tag, err := r.db.Pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, errs.ErrNotFound)
	}
	return nil
}

// SetRoles updates the staff flags.
func (r *UserRepo) SetRoles(ctx context.Context, id string, isAdmin, isAudit bool) error {
	const q = `UPDATE users SET is_admin=$2, is_audit=$3, updated_at=now() WHERE id=$1 AND is_alive`
	tag, err := r.db.Pool.Exec(ctx, q, id, isAdmin, isAudit)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, errs.ErrNotFound)
	}
	return nil
}

// SoftDelete marks a user not alive.
func (r *UserRepo) SoftDelete(ctx context.Context, id string) error {
	const q = `UPDATE users SET is_alive=FALSE, updated_at=now() WHERE id=$1 AND is_alive`
	tag, err := r.db.Pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, errs.ErrNotFound)
	}
	return nil
}

// TouchContact fills in contact fields supplied alongside a case submission.
// Empty arguments leave the stored value alone.
func (r *UserRepo) TouchContact(ctx context.Context, id, phone, claimantName string) error {
	const q = `
UPDATE users SET
  phone = COALESCE(NULLIF($2,''), phone),
  claimant_name = COALESCE(NULLIF($3,''), claimant_name),
  updated_at = now()
WHERE id=$1 AND is_alive`
	_, err := r.db.Pool.Exec(ctx, q, id, phone, claimantName)
	return err
}
