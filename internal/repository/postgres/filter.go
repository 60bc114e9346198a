package postgres

import (
	"fmt"
	"strings"

	"github.com/junceapp/caseflow/internal/errs"
	"github.com/junceapp/caseflow/internal/model"
)

// filterColumns is the fixed allow-list of queryable fields. Field names
// arriving from callers are resolved here and never interpolated from free
// text, so only values ever reach the wire as bound parameters.
var filterColumns = map[string]string{
	"id":             "c.id",
	"user_id":        "c.user_id",
	"goods_name":     "c.goods_name",
	"manufacturer":   "c.manufacturer",
	"phone":          "c.phone",
	"status":         "c.status",
	"result":         "c.result",
	"is_sub":         "c.is_sub",
	"is_read":        "c.is_read",
	"primary_id":     "c.primary_id",
	"claimant_count": "c.claimant_count",
	"buy_date":       "c.buy_date",
	"created_at":     "c.created_at",
	"updated_at":     "c.updated_at",
	"accept_at":      "c.accept_at",
	"finish_at":      "c.finish_at",
}

const (
	searchSelect = `SELECT ` + caseColumns + `, COALESCE(u.nick_name,''), COALESCE(u.avatar_url,'')
FROM cases c
LEFT JOIN users u ON c.user_id = u.id`

	searchCount = `SELECT COUNT(*) FROM cases c`
)

// compiledSearch is one search compiled into a data query and a count query
// sharing identical predicates and bound arguments; the data query
// additionally carries ORDER BY, LIMIT and OFFSET.
type compiledSearch struct {
	dataSQL   string
	countSQL  string
	dataArgs  []any
	countArgs []any
}

// compileSearch translates the ordered filter descriptors and pagination
// into SQL. Descriptors with empty values and no order contribute nothing;
// a descriptor carrying order contributes to the single retained ORDER BY
// clause (last one wins). The liveness predicate is always appended.
func compileSearch(filters []model.Filter, page model.PageRequest) (*compiledSearch, error) {
	if page.PageNum < 1 || page.PageSize < 1 {
		return nil, fmt.Errorf("%w: pageNum and pageSize must be >= 1", errs.ErrValidation)
	}

	where := []string{"c.is_alive"}
	var args []any
	var orderClause string

	next := func() int { return len(args) + 1 }

	for _, f := range filters {
		col := ""
		if f.Field != "" {
			var ok bool
			if col, ok = filterColumns[f.Field]; !ok {
				return nil, fmt.Errorf("%w: unknown filter field %q", errs.ErrValidation, f.Field)
			}
		}

		if f.Order != "" {
			dir := strings.ToUpper(f.Order)
			if dir != "ASC" && dir != "DESC" {
				return nil, fmt.Errorf("%w: bad order direction %q", errs.ErrValidation, f.Order)
			}
			if col == "" {
				return nil, fmt.Errorf("%w: order without field", errs.ErrValidation)
			}
			orderClause = fmt.Sprintf(" ORDER BY %s %s", col, dir)
		}

		if len(f.Values) == 0 {
			continue
		}
		if col == "" {
			return nil, fmt.Errorf("%w: filter without field", errs.ErrValidation)
		}

		switch f.Condition {
		case "":
			// order-only descriptor with stray values
		case "eq":
			where = append(where, fmt.Sprintf("%s = $%d", col, next()))
			args = append(args, f.Values[0])
		case "neq":
			where = append(where, fmt.Sprintf("%s <> $%d", col, next()))
			args = append(args, f.Values[0])
		case "in":
			where = append(where, fmt.Sprintf("%s = ANY($%d)", col, next()))
			args = append(args, f.Values)
		case "notin":
			where = append(where, fmt.Sprintf("%s <> ALL($%d)", col, next()))
			args = append(args, f.Values)
		case "contains":
			likes := make([]string, 0, len(f.Values))
			for _, v := range f.Values {
				likes = append(likes, fmt.Sprintf("%s LIKE $%d", col, next()))
				args = append(args, fmt.Sprintf("%%%v%%", v))
			}
			where = append(where, "("+strings.Join(likes, " AND ")+")")
		case "date":
			if len(f.Values) >= 2 {
				where = append(where, fmt.Sprintf("%s BETWEEN $%d AND $%d", col, next(), next()+1))
				args = append(args, f.Values[0], f.Values[1])
			} else {
				where = append(where, fmt.Sprintf("%s::date = ($%d)::date", col, next()))
				args = append(args, f.Values[0])
			}
		default:
			return nil, fmt.Errorf("%w: unsupported filter condition %q", errs.ErrInvalidState, f.Condition)
		}
	}

	whereSQL := " WHERE " + strings.Join(where, " AND ")

	countArgs := make([]any, len(args))
	copy(countArgs, args)

	dataSQL := searchSelect + whereSQL + orderClause +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	dataArgs := append(args, page.PageSize, (page.PageNum-1)*page.PageSize)

	return &compiledSearch{
		dataSQL:   dataSQL,
		countSQL:  searchCount + whereSQL,
		dataArgs:  dataArgs,
		countArgs: countArgs,
	}, nil
}
